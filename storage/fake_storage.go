package storage

import (
	"bytes"
	"sync"

	"github.com/google/btree"
	"github.com/squareup/rowstore/common"
)

// FakeStorage is an in-memory Storage backed by a btree.
type FakeStorage struct {
	btree *btree.BTree
	mu    sync.RWMutex
}

func NewFakeStorage() *FakeStorage {
	return &FakeStorage{
		btree: btree.New(3),
	}
}

func (f *FakeStorage) WriteBatch(batch *WriteBatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, kvPair := range batch.puts {
		f.btree.ReplaceOrInsert(&kvWrapper{
			key:   common.CopyByteSlice(kvPair.Key),
			value: common.CopyByteSlice(kvPair.Value),
		})
	}
	for _, key := range batch.deletes {
		f.btree.Delete(&kvWrapper{key: key})
	}
	return nil
}

func (f *FakeStorage) Get(key []byte) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	item := f.btree.Get(&kvWrapper{key: key})
	if item == nil {
		return nil, nil
	}
	return common.CopyByteSlice(item.(*kvWrapper).value), nil
}

func (f *FakeStorage) Scan(startKey []byte, endKey []byte, limit int) ([]KVPair, error) {
	if startKey == nil {
		panic("startKey cannot be nil")
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	var result []KVPair
	resFunc := func(i btree.Item) bool {
		if limit != -1 && len(result) >= limit {
			return false
		}
		wrapper := i.(*kvWrapper)
		result = append(result, KVPair{
			Key:   common.CopyByteSlice(wrapper.key),
			Value: common.CopyByteSlice(wrapper.value),
		})
		return limit == -1 || len(result) < limit
	}
	if endKey != nil {
		f.btree.AscendRange(&kvWrapper{key: startKey}, &kvWrapper{key: endKey}, resFunc)
	} else {
		f.btree.AscendGreaterOrEqual(&kvWrapper{key: startKey}, resFunc)
	}
	return result, nil
}

func (f *FakeStorage) Close() error {
	return nil
}

type kvWrapper struct {
	key   []byte
	value []byte
}

func (k kvWrapper) Less(than btree.Item) bool {
	return bytes.Compare(k.key, than.(*kvWrapper).key) < 0
}
