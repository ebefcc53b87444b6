package rowdata

import (
	"fmt"
	"math"

	"github.com/squareup/rowstore/common"
	"github.com/squareup/rowstore/errors"
	"github.com/squareup/rowstore/rowdef"
)

// rowEncoder holds the values of one row converted to their stored form, so that the exact record size is
// known before anything is written.
type rowEncoder struct {
	rowDef    *rowdef.RowDef
	nulls     []bool
	fixed     []uint64
	varData   [][]byte
	fixedSize int
	varCount  int
	varSize   int
}

func newRowEncoder(rowDef *rowdef.RowDef, values []interface{}) (*rowEncoder, error) {
	fieldCount := rowDef.FieldCount()
	if len(values) != fieldCount {
		return nil, errors.NewWrongNumberOfValuesError(fieldCount, len(values))
	}
	enc := &rowEncoder{
		rowDef:  rowDef,
		nulls:   make([]bool, fieldCount),
		fixed:   make([]uint64, fieldCount),
		varData: make([][]byte, fieldCount),
	}
	for i, value := range values {
		if value == nil {
			enc.nulls[i] = true
			continue
		}
		fd := rowDef.FieldDef(i)
		if fd.IsFixedWidth() {
			bits, err := fixedBits(fd, value)
			if err != nil {
				return nil, err
			}
			enc.fixed[i] = bits
			enc.fixedSize += fd.MaxWidth()
		} else {
			data, err := varBytes(fd, value)
			if err != nil {
				return nil, err
			}
			enc.varData[i] = data
			enc.varCount++
			enc.varSize += len(data)
		}
	}
	return enc, nil
}

func (e *rowEncoder) size() int {
	return rowdef.RowHeaderSize + e.rowDef.NullMapSize() + e.fixedSize + e.varCount*e.rowDef.VarPrefixWidth() +
		e.varSize + trailerSize
}

// write lays the record out at offset. buffer must have room for size() bytes.
func (e *rowEncoder) write(buffer []byte, offset int) {
	size := e.size()
	common.WriteUint32(buffer, offset+lengthOffset, uint32(size))
	common.WriteUint16(buffer, offset+signatureAOffset, SignatureA)
	common.WriteUint16(buffer, offset+fieldCountOffset, uint16(e.rowDef.FieldCount()))
	common.WriteUint32(buffer, offset+rowDefIDOffset, uint32(e.rowDef.ID()))

	nullMap := offset + nullMapOffset
	for i := 0; i < e.rowDef.NullMapSize(); i++ {
		buffer[nullMap+i] = 0
	}
	pos := nullMap + e.rowDef.NullMapSize()
	for i, null := range e.nulls {
		if null {
			buffer[nullMap+i/8] |= 1 << uint(i%8)
			continue
		}
		fd := e.rowDef.FieldDef(i)
		if fd.IsFixedWidth() {
			common.WriteUint(buffer, pos, e.fixed[i], fd.MaxWidth())
			pos += fd.MaxWidth()
		}
	}
	prefixWidth := e.rowDef.VarPrefixWidth()
	varPos := pos + e.varCount*prefixWidth
	varEnd := 0
	for i, null := range e.nulls {
		if null || e.rowDef.FieldDef(i).IsFixedWidth() {
			continue
		}
		data := e.varData[i]
		copy(buffer[varPos+varEnd:], data)
		varEnd += len(data)
		if prefixWidth > 0 {
			common.WriteUint(buffer, pos, uint64(varEnd), prefixWidth)
			pos += prefixWidth
		}
	}
	end := offset + size
	common.WriteUint16(buffer, end-trailerSize, SignatureB)
	common.WriteUint32(buffer, end-trailerSize+2, uint32(size))
}

// fixedBits converts value to the little-endian bit pattern stored for fd, checking that it fits fd's width.
func fixedBits(fd *rowdef.FieldDef, value interface{}) (uint64, error) {
	width := fd.MaxWidth()
	switch fd.Type().Encoding {
	case rowdef.EncodingInt:
		v, ok := toInt64(value)
		if !ok {
			return 0, errors.NewValueOutOfRangeError(fmt.Sprintf("%v cannot be stored in %s", value, fd))
		}
		if width < 8 {
			limit := int64(1) << uint(8*width-1)
			if v < -limit || v >= limit {
				return 0, errors.NewValueOutOfRangeError(fmt.Sprintf("%d does not fit in %s", v, fd))
			}
		}
		return uint64(v), nil
	case rowdef.EncodingUint:
		v, ok := toUint64(value)
		if !ok {
			return 0, errors.NewValueOutOfRangeError(fmt.Sprintf("%v cannot be stored in %s", value, fd))
		}
		if width < 8 && v >= uint64(1)<<uint(8*width) {
			return 0, errors.NewValueOutOfRangeError(fmt.Sprintf("%d does not fit in %s", v, fd))
		}
		return v, nil
	case rowdef.EncodingFloat:
		v, ok := toFloat64(value)
		if !ok {
			return 0, errors.Errorf("unexpected value type %T for %s", value, fd)
		}
		if !math.IsInf(v, 0) && !math.IsNaN(v) && math.Abs(v) > math.MaxFloat32 {
			return 0, errors.NewValueOutOfRangeError(fmt.Sprintf("%g does not fit in %s", v, fd))
		}
		return uint64(math.Float32bits(float32(v))), nil
	case rowdef.EncodingDouble:
		v, ok := toFloat64(value)
		if !ok {
			return 0, errors.Errorf("unexpected value type %T for %s", value, fd)
		}
		return math.Float64bits(v), nil
	default:
		return 0, errors.Errorf("unexpected encoding %d for fixed width column %s", fd.Type().Encoding, fd)
	}
}

func varBytes(fd *rowdef.FieldDef, value interface{}) ([]byte, error) {
	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return nil, errors.Errorf("unexpected value type %T for %s", value, fd)
	}
	if len(data) > fd.MaxWidth() {
		return nil, errors.NewVarcharTooBigError(fd.Name(), len(data), fd.MaxWidth())
	}
	return data, nil
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	default:
		return 0, false
	}
}

func toUint64(value interface{}) (uint64, bool) {
	switch v := value.(type) {
	case uint:
		return uint64(v), true
	case uint8:
		return uint64(v), true
	case uint16:
		return uint64(v), true
	case uint32:
		return uint64(v), true
	case uint64:
		return v, true
	default:
		i, ok := toInt64(value)
		if !ok || i < 0 {
			return 0, false
		}
		return uint64(i), true
	}
}

func toFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		i, ok := toInt64(value)
		if !ok {
			return 0, false
		}
		return float64(i), true
	}
}
