package rowdata

import (
	"fmt"
	"strings"

	"github.com/squareup/rowstore/common"
	"github.com/squareup/rowstore/errors"
	"github.com/squareup/rowstore/rowdef"
)

// Record layout, all integers little-endian:
//
//   [0..4)      record length L, header and trailer included
//   [4..6)      SignatureA
//   [6..8)      field count F
//   [8..12)     row def id
//   [12..)      null map, (F+7)/8 bytes, bit i set => field i is null
//               fixed-width data of the non-null fixed-width fields, in field order
//               end offsets of the non-null variable-width fields, RowDef.VarPrefixWidth() bytes each
//               variable-width data, in field order
//   [L-6..L-4)  SignatureB
//   [L-4..L)    L again
const (
	lengthOffset     = 0
	signatureAOffset = 4
	fieldCountOffset = 6
	rowDefIDOffset   = 8
	nullMapOffset    = rowdef.RowHeaderSize
	trailerSize      = 6

	MinimumRowSize = rowdef.RowHeaderSize + trailerSize

	SignatureA uint16 = 'A' | 'B'<<8
	SignatureB uint16 = 'B' | 'A'<<8
)

// RowData is a cursor over a window of a borrowed buffer holding zero or more consecutive records. It never
// copies or owns the buffer; it only moves its own offsets. A RowData must not be used from more than one
// goroutine at a time.
type RowData struct {
	bytes       []byte
	bufferStart int
	bufferEnd   int
	rowStart    int
	rowEnd      int
}

func NewRowData(bytes []byte) *RowData {
	return NewRowDataWindow(bytes, 0, len(bytes))
}

// NewRowDataWindow creates a RowData over bytes[start:end]. The cursor is positioned before the first record
// so that the first call to NextRow selects the record at start.
func NewRowDataWindow(bytes []byte, start int, end int) *RowData {
	rd := &RowData{}
	rd.Reset(bytes, start, end)
	return rd
}

func (rd *RowData) Reset(bytes []byte, start int, end int) {
	if start < 0 || end > len(bytes) || start > end {
		panic(fmt.Sprintf("invalid window [%d, %d) over buffer of length %d", start, end, len(bytes)))
	}
	rd.bytes = bytes
	rd.bufferStart = start
	rd.bufferEnd = end
	rd.rowStart = start
	rd.rowEnd = start
}

// CreateRow writes a record for values at the start of the window and selects it. A nil value is stored as
// null.
func (rd *RowData) CreateRow(rowDef *rowdef.RowDef, values []interface{}) error {
	enc, err := newRowEncoder(rowDef, values)
	if err != nil {
		return err
	}
	size := enc.size()
	if rd.bufferStart+size > rd.bufferEnd {
		return errors.NewBufferTooSmallError(size, rd.bufferEnd-rd.bufferStart)
	}
	enc.write(rd.bytes, rd.bufferStart)
	rd.rowStart = rd.bufferStart
	rd.rowEnd = rd.bufferStart + size
	return nil
}

// AppendRow appends a record for values to buffer.
func AppendRow(buffer []byte, rowDef *rowdef.RowDef, values []interface{}) ([]byte, error) {
	enc, err := newRowEncoder(rowDef, values)
	if err != nil {
		return nil, err
	}
	offset := len(buffer)
	size := enc.size()
	if cap(buffer)-offset >= size {
		buffer = buffer[:offset+size]
	} else {
		grown := make([]byte, offset+size, 2*cap(buffer)+size)
		copy(grown, buffer)
		buffer = grown
	}
	enc.write(buffer, offset)
	return buffer, nil
}

// PrepareRow validates the framing of the record at offset and selects it.
func (rd *RowData) PrepareRow(offset int) error {
	if offset < rd.bufferStart || offset+MinimumRowSize > rd.bufferEnd {
		return rd.corrupt(offset, "offset outside buffer [%d, %d)", rd.bufferStart, rd.bufferEnd)
	}
	size := int(common.ReadUint32(rd.bytes, offset+lengthOffset))
	if size < MinimumRowSize || size > rd.bufferEnd-offset {
		return rd.corrupt(offset, "record length %d does not fit buffer [%d, %d)", size, rd.bufferStart, rd.bufferEnd)
	}
	if sig := common.ReadUint16(rd.bytes, offset+signatureAOffset); sig != SignatureA {
		return rd.corrupt(offset, "invalid leading signature 0x%04x", sig)
	}
	fieldCount := int(common.ReadUint16(rd.bytes, offset+fieldCountOffset))
	if MinimumRowSize+(fieldCount+7)/8 > size {
		return rd.corrupt(offset, "record length %d too small for %d fields", size, fieldCount)
	}
	end := offset + size
	if sig := common.ReadUint16(rd.bytes, end-trailerSize); sig != SignatureB {
		return rd.corrupt(offset, "invalid trailing signature 0x%04x", sig)
	}
	if trailingSize := int(common.ReadUint32(rd.bytes, end-trailerSize+2)); trailingSize != size {
		return rd.corrupt(offset, "trailing length %d does not match leading length %d", trailingSize, size)
	}
	rd.rowStart = offset
	rd.rowEnd = end
	return nil
}

func (rd *RowData) corrupt(offset int, msgFormat string, args ...interface{}) error {
	return errors.NewCorruptRowDataError(offset, msgFormat, args...)
}

// NextRow selects the record following the current one. It returns false when the window is exhausted.
func (rd *RowData) NextRow() (bool, error) {
	if rd.rowEnd >= rd.bufferEnd {
		return false, nil
	}
	if err := rd.PrepareRow(rd.rowEnd); err != nil {
		return false, err
	}
	return true, nil
}

// CheckRowDef verifies that the selected record was written with rowDef.
func (rd *RowData) CheckRowDef(rowDef *rowdef.RowDef) error {
	if rd.RowDefID() != rowDef.ID() || rd.FieldCount() != rowDef.FieldCount() {
		return errors.NewRowDefMismatchError(rowDef.ID(), rd.RowDefID(), rowDef.FieldCount(), rd.FieldCount())
	}
	return nil
}

func (rd *RowData) RowDefID() int32 {
	return int32(common.ReadUint32(rd.bytes, rd.rowStart+rowDefIDOffset))
}

func (rd *RowData) FieldCount() int {
	return int(common.ReadUint16(rd.bytes, rd.rowStart+fieldCountOffset))
}

func (rd *RowData) RowSize() int {
	return rd.rowEnd - rd.rowStart
}

func (rd *RowData) RowStart() int {
	return rd.rowStart
}

func (rd *RowData) RowEnd() int {
	return rd.rowEnd
}

func (rd *RowData) BufferStart() int {
	return rd.bufferStart
}

func (rd *RowData) BufferEnd() int {
	return rd.bufferEnd
}

// Bytes returns the selected record. The slice aliases the underlying buffer.
func (rd *RowData) Bytes() []byte {
	return rd.bytes[rd.rowStart:rd.rowEnd:rd.rowEnd]
}

// FieldLocation returns the packed (offset, width) of the field in the underlying buffer, or
// rowdef.NullLocation.
func (rd *RowData) FieldLocation(rowDef *rowdef.RowDef, index int) uint64 {
	return rowDef.FieldLocation(rd.bytes, rd.rowStart, index)
}

func (rd *RowData) IsNull(index int) bool {
	if index < 0 || index >= rd.FieldCount() {
		panic(fmt.Sprintf("field index %d out of range for row with %d fields", index, rd.FieldCount()))
	}
	return rd.bytes[rd.rowStart+nullMapOffset+index/8]&(1<<uint(index%8)) != 0
}

func (rd *RowData) GetInt64(rowDef *rowdef.RowDef, index int) int64 {
	location := rd.FieldLocation(rowDef, index)
	if location == rowdef.NullLocation {
		return 0
	}
	offset, width := rowdef.LocationOffset(location), rowdef.LocationWidth(location)
	switch rowDef.FieldDef(index).Type().Encoding {
	case rowdef.EncodingInt:
		return common.ReadInt(rd.bytes, offset, width)
	case rowdef.EncodingUint:
		return int64(common.ReadUint(rd.bytes, offset, width))
	default:
		panic(fmt.Sprintf("field %s is not an integer", rowDef.FieldDef(index)))
	}
}

func (rd *RowData) GetUint64(rowDef *rowdef.RowDef, index int) uint64 {
	location := rd.FieldLocation(rowDef, index)
	if location == rowdef.NullLocation {
		return 0
	}
	offset, width := rowdef.LocationOffset(location), rowdef.LocationWidth(location)
	switch rowDef.FieldDef(index).Type().Encoding {
	case rowdef.EncodingInt:
		return uint64(common.ReadInt(rd.bytes, offset, width))
	case rowdef.EncodingUint:
		return common.ReadUint(rd.bytes, offset, width)
	default:
		panic(fmt.Sprintf("field %s is not an integer", rowDef.FieldDef(index)))
	}
}

func (rd *RowData) GetFloat64(rowDef *rowdef.RowDef, index int) float64 {
	location := rd.FieldLocation(rowDef, index)
	if location == rowdef.NullLocation {
		return 0
	}
	offset := rowdef.LocationOffset(location)
	switch rowDef.FieldDef(index).Type().Encoding {
	case rowdef.EncodingFloat:
		return float64(common.ReadFloat32(rd.bytes, offset))
	case rowdef.EncodingDouble:
		return common.ReadFloat64(rd.bytes, offset)
	default:
		panic(fmt.Sprintf("field %s is not a floating point number", rowDef.FieldDef(index)))
	}
}

func (rd *RowData) GetFloat32(rowDef *rowdef.RowDef, index int) float32 {
	return float32(rd.GetFloat64(rowDef, index))
}

// GetBytes returns the raw bytes of the field, or nil if it is null. The slice aliases the underlying buffer.
func (rd *RowData) GetBytes(rowDef *rowdef.RowDef, index int) []byte {
	location := rd.FieldLocation(rowDef, index)
	if location == rowdef.NullLocation {
		return nil
	}
	offset, width := rowdef.LocationOffset(location), rowdef.LocationWidth(location)
	return rd.bytes[offset : offset+width : offset+width]
}

func (rd *RowData) GetString(rowDef *rowdef.RowDef, index int) string {
	return string(rd.GetBytes(rowDef, index))
}

// GetValue decodes the field into int64, uint64, float32, float64, string or []byte according to its type,
// or nil if it is null.
func (rd *RowData) GetValue(rowDef *rowdef.RowDef, index int) interface{} {
	if rd.FieldLocation(rowDef, index) == rowdef.NullLocation {
		return nil
	}
	switch rowDef.FieldDef(index).Type().Encoding {
	case rowdef.EncodingInt:
		return rd.GetInt64(rowDef, index)
	case rowdef.EncodingUint:
		return rd.GetUint64(rowDef, index)
	case rowdef.EncodingFloat:
		return rd.GetFloat32(rowDef, index)
	case rowdef.EncodingDouble:
		return rd.GetFloat64(rowDef, index)
	case rowdef.EncodingString:
		return rd.GetString(rowDef, index)
	case rowdef.EncodingBytes:
		return common.CopyByteSlice(rd.GetBytes(rowDef, index))
	default:
		panic(fmt.Sprintf("unexpected encoding for field %s", rowDef.FieldDef(index)))
	}
}

func (rd *RowData) Values(rowDef *rowdef.RowDef) []interface{} {
	values := make([]interface{}, rowDef.FieldCount())
	for i := range values {
		values[i] = rd.GetValue(rowDef, i)
	}
	return values
}

// ToString renders the selected record as RowData[id](v0, v1, ...).
func (rd *RowData) ToString(rowDef *rowdef.RowDef) string {
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("RowData[%d](", rd.RowDefID()))
	for i := 0; i < rowDef.FieldCount(); i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		if rd.IsNull(i) {
			sb.WriteString("null")
			continue
		}
		switch rowDef.FieldDef(i).Type().Encoding {
		case rowdef.EncodingString:
			sb.WriteString(fmt.Sprintf("%q", common.ByteSliceToStringZeroCopy(rd.GetBytes(rowDef, i))))
		case rowdef.EncodingBytes:
			sb.WriteString(fmt.Sprintf("0x%x", rd.GetBytes(rowDef, i)))
		default:
			sb.WriteString(fmt.Sprintf("%v", rd.GetValue(rowDef, i)))
		}
	}
	sb.WriteString(")")
	return sb.String()
}
