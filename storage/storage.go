package storage

import (
	"github.com/squareup/rowstore/conf"
	"github.com/squareup/rowstore/errors"
)

type KVPair struct {
	Key   []byte
	Value []byte
}

// WriteBatch represents some puts and deletes that will be written atomically by the underlying storage
// implementation. Deletes are applied after puts.
type WriteBatch struct {
	puts    []KVPair
	deletes [][]byte
}

func NewWriteBatch() *WriteBatch {
	return &WriteBatch{}
}

func (wb *WriteBatch) AddPut(k []byte, v []byte) {
	wb.puts = append(wb.puts, KVPair{Key: k, Value: v})
}

func (wb *WriteBatch) AddDelete(k []byte) {
	wb.deletes = append(wb.deletes, k)
}

func (wb *WriteBatch) HasWrites() bool {
	return len(wb.puts) > 0 || len(wb.deletes) > 0
}

func (wb *WriteBatch) NumPuts() int {
	return len(wb.puts)
}

func (wb *WriteBatch) NumDeletes() int {
	return len(wb.deletes)
}

type KVReceiver func([]byte, []byte) error

type KReceiver func([]byte) error

func (wb *WriteBatch) ForEachPut(kvReceiver KVReceiver) error {
	for _, kv := range wb.puts {
		if err := kvReceiver(kv.Key, kv.Value); err != nil {
			return err
		}
	}
	return nil
}

func (wb *WriteBatch) ForEachDelete(kReceiver KReceiver) error {
	for _, k := range wb.deletes {
		if err := kReceiver(k); err != nil {
			return err
		}
	}
	return nil
}

// Storage is an ordered key value store.
type Storage interface {
	WriteBatch(batch *WriteBatch) error

	// Get returns nil if the key does not exist
	Get(key []byte) ([]byte, error)

	// Scan returns pairs with startKey <= key < endKey in key order. A nil endKey means no upper bound and a
	// limit of -1 means no limit.
	Scan(startKey []byte, endKey []byte, limit int) ([]KVPair, error)

	Close() error
}

// NewStorage creates the Storage selected by the config.
func NewStorage(cnf conf.Config) (Storage, error) {
	switch cnf.StorageType {
	case conf.StorageTypePebble:
		return OpenPebbleStorage(cnf.DataDir)
	case conf.StorageTypeMemory:
		return NewFakeStorage(), nil
	default:
		return nil, errors.NewInvalidConfigurationError("unknown storage type " + cnf.StorageType)
	}
}
