package rowdata

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/squareup/rowstore/common"
	"github.com/squareup/rowstore/errors"
	"github.com/squareup/rowstore/rowdef"
	"github.com/stretchr/testify/require"
)

func createRowDef(t *testing.T, id int32, descriptor string) *rowdef.RowDef {
	t.Helper()
	rd, err := rowdef.ParseRowDef(id, descriptor)
	require.NoError(t, err)
	return rd
}

func createRow(t *testing.T, rowDef *rowdef.RowDef, values ...interface{}) *RowData {
	t.Helper()
	rd := NewRowData(make([]byte, 1024))
	err := rd.CreateRow(rowDef, values)
	require.NoError(t, err)
	return rd
}

func requireLocation(t *testing.T, expectedOffset int, expectedWidth int, location uint64) {
	t.Helper()
	require.NotEqual(t, rowdef.NullLocation, location)
	require.Equal(t, expectedOffset, rowdef.LocationOffset(location))
	require.Equal(t, expectedWidth, rowdef.LocationWidth(location))
}

func TestFixedFieldsWithNull(t *testing.T) {
	rowDef := createRowDef(t, 1, "a INT, b INT, c INT")
	rd := createRow(t, rowDef, 10, nil, 30)

	fixedBase := rowdef.RowHeaderSize + 1
	requireLocation(t, fixedBase, 4, rd.FieldLocation(rowDef, 0))
	require.Equal(t, rowdef.NullLocation, rd.FieldLocation(rowDef, 1))
	requireLocation(t, fixedBase+4, 4, rd.FieldLocation(rowDef, 2))

	require.Equal(t, int64(10), rd.GetInt64(rowDef, 0))
	require.True(t, rd.IsNull(1))
	require.Equal(t, int64(30), rd.GetInt64(rowDef, 2))
	require.Equal(t, fixedBase+8+trailerSize, rd.RowSize())
	require.Equal(t, "RowData[1](10, null, 30)", rd.ToString(rowDef))
}

func TestWireLayout(t *testing.T) {
	rowDef := createRowDef(t, 7, "a SMALLINT, b VARCHAR(10)")
	rd := createRow(t, rowDef, 0x0102, "xy")
	expected := []byte{
		24, 0, 0, 0, // length
		'A', 'B',
		2, 0, // field count
		7, 0, 0, 0, // row def id
		0,          // null map
		0x02, 0x01, // a
		2,        // end offset of b
		'x', 'y', // b
		'B', 'A',
		24, 0, 0, 0,
	}
	require.Equal(t, expected, rd.Bytes())
}

func TestVariableFieldBracketing(t *testing.T) {
	rowDef := createRowDef(t, 1, "a INT, b VARCHAR, c INT, d VARCHAR")
	require.Equal(t, 3, rowDef.VarPrefixWidth())
	rd := createRow(t, rowDef, 5, "AB", 7, "CDE")

	first := rd.FieldLocation(rowDef, 1)
	second := rd.FieldLocation(rowDef, 3)
	requireLocation(t, rowdef.LocationOffset(first)+2, 3, second)
	require.Equal(t, 2, rowdef.LocationWidth(first))
	// header, null map, two ints, two 3 byte prefixes
	require.Equal(t, rowdef.RowHeaderSize+1+8+6, rowdef.LocationOffset(first))

	require.Equal(t, int64(5), rd.GetInt64(rowDef, 0))
	require.Equal(t, "AB", rd.GetString(rowDef, 1))
	require.Equal(t, int64(7), rd.GetInt64(rowDef, 2))
	require.Equal(t, "CDE", rd.GetString(rowDef, 3))
}

func TestVariableFieldsWithNulls(t *testing.T) {
	rowDef := createRowDef(t, 1, "a VARCHAR(20), b VARCHAR(20), c VARBINARY(20), d INT, e VARCHAR(20)")
	require.Equal(t, 1, rowDef.VarPrefixWidth())
	rd := createRow(t, rowDef, "first", nil, []byte{}, nil, "last")
	require.Equal(t, "first", rd.GetString(rowDef, 0))
	require.Equal(t, rowdef.NullLocation, rd.FieldLocation(rowDef, 1))
	require.Nil(t, rd.GetValue(rowDef, 1))
	// an empty value is present, not null
	location := rd.FieldLocation(rowDef, 2)
	require.NotEqual(t, rowdef.NullLocation, location)
	require.Equal(t, 0, rowdef.LocationWidth(location))
	require.Equal(t, []byte{}, rd.GetValue(rowDef, 2))
	require.Equal(t, "last", rd.GetString(rowDef, 4))
}

func TestNullIsNotZero(t *testing.T) {
	rowDef := createRowDef(t, 1, "a INT, b INT, c VARCHAR(8), d VARCHAR(8), e DOUBLE, f DOUBLE")
	rd := createRow(t, rowDef, 0, nil, "", nil, 0.0, nil)
	for i := 0; i < rowDef.FieldCount(); i += 2 {
		require.NotEqual(t, rowdef.NullLocation, rd.FieldLocation(rowDef, i), "field %d", i)
		require.False(t, rd.IsNull(i))
		require.Equal(t, rowdef.NullLocation, rd.FieldLocation(rowDef, i+1), "field %d", i+1)
		require.True(t, rd.IsNull(i+1))
	}
	require.Equal(t, []interface{}{int64(0), nil, "", nil, 0.0, nil}, rd.Values(rowDef))
}

func TestAllTypesRoundTrip(t *testing.T) {
	rowDef := createRowDef(t, 3, "a TINYINT, b SMALLINT, c MEDIUMINT, d INT, e BIGINT, f UTINYINT, g USMALLINT, "+
		"h UMEDIUMINT, i UINT, j UBIGINT, k FLOAT, l DOUBLE, m VARCHAR(100), n VARBINARY(100), o BLOB(1000)")
	values := []interface{}{
		int64(math.MinInt8), int64(math.MaxInt16), int64(-8388608), int64(math.MinInt32), int64(math.MaxInt64),
		uint64(math.MaxUint8), uint64(math.MaxUint16), uint64(0xFFFFFF), uint64(math.MaxUint32), uint64(math.MaxUint64),
		float32(-1234.5), math.MaxFloat64, "⌘ somestring", []byte{1, 2, 3}, []byte("blob"),
	}
	rd := createRow(t, rowDef, values...)
	require.Equal(t, values, rd.Values(rowDef))
	require.Equal(t, int32(3), rd.RowDefID())
	require.Equal(t, 15, rd.FieldCount())
	require.NoError(t, rd.CheckRowDef(rowDef))
}

func TestIntegerNarrowing(t *testing.T) {
	rowDef := createRowDef(t, 1, "a TINYINT, b UTINYINT, c MEDIUMINT")
	rd := createRow(t, rowDef, int32(-1), uint64(200), int16(300))
	require.Equal(t, int64(-1), rd.GetInt64(rowDef, 0))
	require.Equal(t, uint64(200), rd.GetUint64(rowDef, 1))
	require.Equal(t, int64(300), rd.GetInt64(rowDef, 2))
}

func TestCreateRowErrors(t *testing.T) {
	rowDef := createRowDef(t, 1, "a TINYINT, b UTINYINT, c VARCHAR(3), d FLOAT")
	testCreateRowError(t, rowDef, errors.WrongNumberOfValues, 1, 2)
	testCreateRowError(t, rowDef, errors.ValueOutOfRange, 128, 0, "", 0.0)
	testCreateRowError(t, rowDef, errors.ValueOutOfRange, -129, 0, "", 0.0)
	testCreateRowError(t, rowDef, errors.ValueOutOfRange, 0, -1, "", 0.0)
	testCreateRowError(t, rowDef, errors.ValueOutOfRange, 0, 256, "", 0.0)
	testCreateRowError(t, rowDef, errors.ValueOutOfRange, "x", 0, "", 0.0)
	testCreateRowError(t, rowDef, errors.VarcharTooBig, 0, 0, "abcd", 0.0)
	testCreateRowError(t, rowDef, errors.ValueOutOfRange, 0, 0, "", math.MaxFloat64)

	rd := NewRowData(make([]byte, 10))
	err := rd.CreateRow(rowDef, []interface{}{1, 1, "a", 1.0})
	require.True(t, errors.HasCode(err, errors.BufferTooSmall))
}

func testCreateRowError(t *testing.T, rowDef *rowdef.RowDef, code errors.ErrorCode, values ...interface{}) {
	t.Helper()
	rd := NewRowData(make([]byte, 1024))
	err := rd.CreateRow(rowDef, values)
	require.Error(t, err)
	require.True(t, errors.HasCode(err, code), "expected code %d got %v", code, err)
}

// naiveLocation walks the fields one at a time, which is what the coordinate tables avoid.
func naiveLocation(rowDef *rowdef.RowDef, values []interface{}, index int) (int, int) {
	if values[index] == nil {
		return 0, 0
	}
	pos := rowdef.RowHeaderSize + rowDef.NullMapSize()
	fixedOffset := -1
	for i, v := range values {
		fd := rowDef.FieldDef(i)
		if v == nil || !fd.IsFixedWidth() {
			continue
		}
		if i == index {
			fixedOffset = pos
		}
		pos += fd.MaxWidth()
	}
	if fixedOffset != -1 {
		return fixedOffset, rowDef.FieldDef(index).MaxWidth()
	}
	varCount := 0
	for i, v := range values {
		if v != nil && !rowDef.FieldDef(i).IsFixedWidth() {
			varCount++
		}
	}
	varPos := pos + varCount*rowDef.VarPrefixWidth()
	for i, v := range values {
		if v == nil || rowDef.FieldDef(i).IsFixedWidth() {
			continue
		}
		l := len(v.(string))
		if i == index {
			return varPos, l
		}
		varPos += l
	}
	panic("unreachable")
}

func mixedRowDef(t *testing.T, fieldCount int) (*rowdef.RowDef, func(row int, field int) interface{}) {
	t.Helper()
	types := []string{"INT", "VARCHAR(40)", "TINYINT", "BIGINT", "VARCHAR(3)", "SMALLINT", "DOUBLE", "MEDIUMINT"}
	descriptor := ""
	for i := 0; i < fieldCount; i++ {
		if i > 0 {
			descriptor += ", "
		}
		descriptor += fmt.Sprintf("f%d %s", i, types[(i*3)%len(types)])
	}
	rowDef := createRowDef(t, int32(fieldCount), descriptor)
	value := func(row int, field int) interface{} {
		switch rowDef.FieldDef(field).Type() {
		case rowdef.Varchar:
			return fmt.Sprintf("%d", (row*7+field)%1000)
		case rowdef.Double:
			return float64(row*field) / 4
		default:
			return int64((row*31 + field) % 100)
		}
	}
	return rowDef, value
}

func TestGroupBoundaries(t *testing.T) {
	for _, fieldCount := range []int{1, 7, 8, 9, 15, 16, 17, 24, 33} {
		rowDef, value := mixedRowDef(t, fieldCount)
		nullPatterns := []func(int) bool{
			func(i int) bool { return false },
			func(i int) bool { return i%3 == 1 },
			func(i int) bool { return i%2 == 0 },
			func(i int) bool { return i%8 == 0 },
			func(i int) bool { return i%8 == 7 },
			func(i int) bool { return i != fieldCount-1 },
			func(i int) bool { return true },
		}
		for p, isNull := range nullPatterns {
			values := make([]interface{}, fieldCount)
			for i := range values {
				if !isNull(i) {
					values[i] = value(p, i)
				}
			}
			rd := createRow(t, rowDef, values...)
			for i := range values {
				location := rd.FieldLocation(rowDef, i)
				if values[i] == nil {
					require.Equal(t, rowdef.NullLocation, location, "fields %d pattern %d field %d", fieldCount, p, i)
					continue
				}
				offset, width := naiveLocation(rowDef, values, i)
				requireLocation(t, offset, width, location)
			}
			require.Equal(t, values, rd.Values(rowDef), "fields %d pattern %d", fieldCount, p)
		}
	}
}

func TestFirstFieldOfSecondGroup(t *testing.T) {
	rowDef, _ := mixedRowDef(t, 9)
	values := []interface{}{nil, nil, nil, nil, nil, nil, nil, nil, int64(42)}
	rd := createRow(t, rowDef, values...)
	requireLocation(t, rowdef.RowHeaderSize+2, 4, rd.FieldLocation(rowDef, 8))
	require.Equal(t, int64(42), rd.GetInt64(rowDef, 8))
}

func TestFieldIndexOutOfRangePanics(t *testing.T) {
	rowDef := createRowDef(t, 1, "a INT")
	rd := createRow(t, rowDef, 1)
	require.Panics(t, func() { rd.FieldLocation(rowDef, 1) })
	require.Panics(t, func() { rd.FieldLocation(rowDef, -1) })
}

func createRecords(t *testing.T, rowDef *rowdef.RowDef, rows ...[]interface{}) []byte {
	t.Helper()
	var buff []byte
	for _, row := range rows {
		var err error
		buff, err = AppendRow(buff, rowDef, row)
		require.NoError(t, err)
	}
	return buff
}

func TestCorruptionDetected(t *testing.T) {
	rowDef := createRowDef(t, 1, "a INT, b VARCHAR(10)")
	record := createRecords(t, rowDef, []interface{}{1, "abc"})
	size := len(record)

	for _, pos := range []int{signatureAOffset, signatureAOffset + 1, size - trailerSize, size - trailerSize + 1,
		size - 4, size - 1, lengthOffset} {
		corrupted := common.CopyByteSlice(record)
		corrupted[pos] ^= 0xFF
		rd := NewRowData(corrupted)
		ok, err := rd.NextRow()
		require.False(t, ok)
		require.True(t, errors.HasCode(err, errors.CorruptRowData), "byte %d: %v", pos, err)
	}

	for truncated := 0; truncated < size; truncated++ {
		rd := NewRowDataWindow(record, 0, truncated)
		err := rd.PrepareRow(0)
		require.True(t, errors.HasCode(err, errors.CorruptRowData), "truncated to %d: %v", truncated, err)
	}

	rd := NewRowDataWindow(record, 0, size)
	require.True(t, errors.HasCode(rd.PrepareRow(-1), errors.CorruptRowData))
	require.True(t, errors.HasCode(rd.PrepareRow(1), errors.CorruptRowData))
	require.NoError(t, rd.PrepareRow(0))
}

func TestMultipleRecords(t *testing.T) {
	rowDef := createRowDef(t, 1, "a INT, b VARCHAR(10), c BIGINT")
	rows := [][]interface{}{
		{int64(1), "one", int64(100)},
		{nil, "two", nil},
		{int64(3), nil, int64(300)},
	}
	buff := createRecords(t, rowDef, rows...)
	// surround the records with junk to check the window is honoured
	framed := append([]byte{9, 9, 9}, buff...)
	framed = append(framed, 9, 9)
	rd := NewRowDataWindow(framed, 3, 3+len(buff))
	for _, expected := range rows {
		ok, err := rd.NextRow()
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, rd.CheckRowDef(rowDef))
		require.Equal(t, expected, rd.Values(rowDef))
	}
	ok, err := rd.NextRow()
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 3+len(buff), rd.RowEnd())
}

func TestCheckRowDef(t *testing.T) {
	rowDef := createRowDef(t, 1, "a INT")
	other := createRowDef(t, 2, "a INT")
	rd := createRow(t, rowDef, 1)
	require.NoError(t, rd.CheckRowDef(rowDef))
	require.True(t, errors.HasCode(rd.CheckRowDef(other), errors.RowDefMismatch))
}

func TestCreateRowInWindow(t *testing.T) {
	rowDef := createRowDef(t, 1, "a INT, b VARCHAR(5)")
	buff := make([]byte, 100)
	rd := NewRowDataWindow(buff, 40, 100)
	require.NoError(t, rd.CreateRow(rowDef, []interface{}{77, "hi"}))
	require.Equal(t, 40, rd.RowStart())

	reader := NewRowDataWindow(buff, 40, rd.RowEnd())
	ok, err := reader.NextRow()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []interface{}{int64(77), "hi"}, reader.Values(rowDef))
}

func TestRandomSchemaLocations(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	fixedTypes := []*rowdef.Type{rowdef.TinyInt, rowdef.SmallInt, rowdef.MediumInt, rowdef.Int, rowdef.BigInt}
	for c := 0; c < 1000; c++ {
		fieldCount := 1 + rnd.Intn(40)
		fieldDefs := make([]*rowdef.FieldDef, fieldCount)
		for i := range fieldDefs {
			name := fmt.Sprintf("f%d", i)
			if rnd.Intn(3) == 0 {
				fd, err := rowdef.NewFieldDefWithWidth(name, rowdef.Varchar, 1+rnd.Intn(30))
				require.NoError(t, err)
				fieldDefs[i] = fd
			} else {
				fieldDefs[i] = rowdef.NewFieldDef(name, fixedTypes[rnd.Intn(len(fixedTypes))])
			}
		}
		rowDef, err := rowdef.NewRowDef(rowdef.RowDefInfo{ID: int32(c + 1), FieldDefs: fieldDefs})
		require.NoError(t, err)

		values := make([]interface{}, fieldCount)
		for i, fd := range fieldDefs {
			if rnd.Intn(3) == 0 {
				continue
			}
			if fd.IsFixedWidth() {
				values[i] = int64(rnd.Intn(100))
			} else {
				s := make([]byte, rnd.Intn(fd.MaxWidth()+1))
				for j := range s {
					s[j] = byte('a' + rnd.Intn(26))
				}
				values[i] = string(s)
			}
		}

		start := 1 + rnd.Intn(50)
		buff := make([]byte, start+2048)
		rd := NewRowDataWindow(buff, start, len(buff))
		require.NoError(t, rd.CreateRow(rowDef, values))
		for i := range values {
			location := rd.FieldLocation(rowDef, i)
			if values[i] == nil {
				require.Equal(t, rowdef.NullLocation, location, "case %d field %d", c, i)
				continue
			}
			offset, width := naiveLocation(rowDef, values, i)
			requireLocation(t, start+offset, width, location)
		}
		require.Equal(t, values, rd.Values(rowDef), "case %d", c)
	}
}
