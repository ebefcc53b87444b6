package table

import (
	log "github.com/sirupsen/logrus"
	"github.com/squareup/rowstore/common"
	"github.com/squareup/rowstore/errors"
	"github.com/squareup/rowstore/metrics"
	"github.com/squareup/rowstore/rowdata"
	"github.com/squareup/rowstore/rowdef"
	"github.com/squareup/rowstore/storage"
)

const keySize = 12

// Table stores framed records of one RowDef in a Storage. Each record lives under the key
// rowDefID (4 bytes, big-endian) | rowID (8 bytes, big-endian), so a scan returns rows in row id order.
type Table struct {
	rowDef         *rowdef.RowDef
	storage        storage.Storage
	rowsWritten    metrics.Counter
	rowsRead       metrics.Counter
	corruptRecords metrics.Counter
}

// Metrics are the counters shared by all tables.
type Metrics struct {
	RowsWritten    metrics.Counter
	RowsRead       metrics.Counter
	CorruptRecords metrics.Counter
}

func NewMetrics(factory metrics.Factory) (*Metrics, error) {
	rowsWritten, err := factory.CreateCounter("rowstore_rows_written_total", "Number of rows written to storage")
	if err != nil {
		return nil, err
	}
	rowsRead, err := factory.CreateCounter("rowstore_rows_read_total", "Number of rows read from storage")
	if err != nil {
		return nil, err
	}
	corrupt, err := factory.CreateCounter("rowstore_corrupt_records_total", "Number of stored records that failed validation")
	if err != nil {
		return nil, err
	}
	return &Metrics{RowsWritten: rowsWritten, RowsRead: rowsRead, CorruptRecords: corrupt}, nil
}

func NewTable(rowDef *rowdef.RowDef, storage storage.Storage, m *Metrics) *Table {
	return &Table{
		rowDef:         rowDef,
		storage:        storage,
		rowsWritten:    m.RowsWritten,
		rowsRead:       m.RowsRead,
		corruptRecords: m.CorruptRecords,
	}
}

func (t *Table) RowDef() *rowdef.RowDef {
	return t.rowDef
}

func (t *Table) encodeKey(rowID uint64) []byte {
	key := make([]byte, 0, keySize)
	key = common.AppendUint32ToBufferBE(key, uint32(t.rowDef.ID()))
	return common.AppendUint64ToBufferBE(key, rowID)
}

func (t *Table) keyPrefix() []byte {
	return common.AppendUint32ToBufferBE(make([]byte, 0, 4), uint32(t.rowDef.ID()))
}

// Upsert adds the record for values to batch under rowID. Nothing is written until the batch is applied.
func (t *Table) Upsert(rowID uint64, values []interface{}, batch *storage.WriteBatch) error {
	record, err := rowdata.AppendRow(nil, t.rowDef, values)
	if err != nil {
		return err
	}
	batch.AddPut(t.encodeKey(rowID), record)
	return nil
}

func (t *Table) Delete(rowID uint64, batch *storage.WriteBatch) {
	batch.AddDelete(t.encodeKey(rowID))
}

// Apply writes batch to storage. Its puts are counted as rows written once the write has succeeded.
func (t *Table) Apply(batch *storage.WriteBatch) error {
	if err := t.storage.WriteBatch(batch); err != nil {
		return err
	}
	t.rowsWritten.Add(float64(batch.NumPuts()))
	return nil
}

// Put writes a single row immediately.
func (t *Table) Put(rowID uint64, values []interface{}) error {
	batch := storage.NewWriteBatch()
	if err := t.Upsert(rowID, values, batch); err != nil {
		return err
	}
	return t.Apply(batch)
}

func (t *Table) Remove(rowID uint64) error {
	batch := storage.NewWriteBatch()
	t.Delete(rowID, batch)
	return t.Apply(batch)
}

// Get returns the stored row, or nil if there is none. The record's framing and row def are validated before
// it is returned.
func (t *Table) Get(rowID uint64) (*rowdata.RowData, error) {
	key := t.encodeKey(rowID)
	value, err := t.storage.Get(key)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}
	row, err := t.decode(key, value)
	if err != nil {
		return nil, err
	}
	t.rowsRead.Inc()
	return row, nil
}

// Row is a stored row with its id.
type Row struct {
	RowID uint64
	Data  *rowdata.RowData
}

// Scan returns up to limit rows in row id order, starting at fromRowID. A limit of -1 means no limit.
func (t *Table) Scan(fromRowID uint64, limit int) ([]Row, error) {
	endKey := common.IncrementBytesBigEndian(t.keyPrefix())
	pairs, err := t.storage.Scan(t.encodeKey(fromRowID), endKey, limit)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(pairs))
	for _, kv := range pairs {
		row, err := t.decode(kv.Key, kv.Value)
		if err != nil {
			return nil, err
		}
		rowID, _ := common.ReadUint64FromBufferBE(kv.Key, 4)
		rows = append(rows, Row{RowID: rowID, Data: row})
	}
	t.rowsRead.Add(float64(len(rows)))
	return rows, nil
}

func (t *Table) decode(key []byte, value []byte) (*rowdata.RowData, error) {
	row := rowdata.NewRowData(value)
	err := row.PrepareRow(0)
	if err == nil {
		err = row.CheckRowDef(t.rowDef)
	}
	if err == nil && row.RowEnd() != len(value) {
		err = errors.NewCorruptRowDataError(row.RowEnd(), "%d unexpected bytes after record", len(value)-row.RowEnd())
	}
	if err != nil {
		t.corruptRecords.Inc()
		log.Warnf("invalid record stored at %s: %v", common.DumpRowKey(key), err)
		return nil, err
	}
	return row, nil
}
