package storage

import (
	"os"

	"github.com/cockroachdb/pebble"
	log "github.com/sirupsen/logrus"
	"github.com/squareup/rowstore/common"
	"github.com/squareup/rowstore/errors"
)

var syncWriteOptions = &pebble.WriteOptions{Sync: true}

// PebbleStorage is a Storage persisted in a local pebble database.
type PebbleStorage struct {
	dir    string
	pebble *pebble.DB
}

func OpenPebbleStorage(dir string) (*PebbleStorage, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.WithStack(err)
	}
	// TODO tune pebble options (cache size, memtable size) once there are realistic row sizes to measure with
	peb, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	log.Debugf("opened pebble storage in %s", dir)
	return &PebbleStorage{dir: dir, pebble: peb}, nil
}

func (p *PebbleStorage) WriteBatch(batch *WriteBatch) error {
	pebBatch := p.pebble.NewBatch()
	if err := batch.ForEachPut(func(k []byte, v []byte) error {
		return errors.WithStack(pebBatch.Set(k, v, nil))
	}); err != nil {
		return err
	}
	if err := batch.ForEachDelete(func(k []byte) error {
		return errors.WithStack(pebBatch.Delete(k, nil))
	}); err != nil {
		return err
	}
	return errors.WithStack(p.pebble.Apply(pebBatch, syncWriteOptions))
}

func (p *PebbleStorage) Get(key []byte) ([]byte, error) {
	v, closer, err := p.pebble.Get(key)
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	// Pebble reuses its buffers, so the value must be copied before the closer is invoked
	res := common.CopyByteSlice(v)
	if err := closer.Close(); err != nil {
		return nil, errors.WithStack(err)
	}
	return res, nil
}

func (p *PebbleStorage) Scan(startKey []byte, endKey []byte, limit int) ([]KVPair, error) {
	if startKey == nil {
		panic("startKey cannot be nil")
	}
	iter := p.pebble.NewIter(&pebble.IterOptions{LowerBound: startKey, UpperBound: endKey})
	var pairs []KVPair
	for iter.First(); iter.Valid(); iter.Next() {
		if limit != -1 && len(pairs) >= limit {
			break
		}
		pairs = append(pairs, KVPair{
			Key:   common.CopyByteSlice(iter.Key()),
			Value: common.CopyByteSlice(iter.Value()),
		})
	}
	if err := iter.Close(); err != nil {
		return nil, errors.WithStack(err)
	}
	return pairs, nil
}

func (p *PebbleStorage) Close() error {
	log.Debugf("closing pebble storage in %s", p.dir)
	return errors.WithStack(p.pebble.Close())
}
