package rowdef

import (
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/squareup/rowstore/errors"
)

// RowDefCache is the registry that hands fully built RowDefs to concurrent readers. A RowDef must not be
// modified after it has been Put.
type RowDefCache struct {
	lock    sync.RWMutex
	rowDefs map[int32]*RowDef
}

func NewRowDefCache() *RowDefCache {
	return &RowDefCache{rowDefs: make(map[int32]*RowDef)}
}

func (c *RowDefCache) Put(rowDef *RowDef) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if _, ok := c.rowDefs[rowDef.ID()]; ok {
		return errors.NewRowDefAlreadyExistsError(rowDef.ID())
	}
	c.rowDefs[rowDef.ID()] = rowDef
	log.Debugf("registered %s", rowDef)
	return nil
}

// Replace installs rowDef whether or not a RowDef with the same id is present, e.g. after a table's
// definition changed. Readers holding the old RowDef are unaffected.
func (c *RowDefCache) Replace(rowDef *RowDef) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.rowDefs[rowDef.ID()] = rowDef
	log.Debugf("replaced row def %d", rowDef.ID())
}

func (c *RowDefCache) Get(id int32) (*RowDef, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	rd, ok := c.rowDefs[id]
	return rd, ok
}

func (c *RowDefCache) MustGet(id int32) (*RowDef, error) {
	rd, ok := c.Get(id)
	if !ok {
		return nil, errors.NewUnknownRowDefError(id)
	}
	return rd, nil
}

func (c *RowDefCache) Remove(id int32) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	_, ok := c.rowDefs[id]
	delete(c.rowDefs, id)
	return ok
}

// IDs returns the registered ids in ascending order.
func (c *RowDefCache) IDs() []int32 {
	c.lock.RLock()
	defer c.lock.RUnlock()
	ids := make([]int32, 0, len(c.rowDefs))
	for id := range c.rowDefs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
