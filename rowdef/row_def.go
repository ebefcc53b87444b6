package rowdef

import (
	"fmt"
	"strings"

	"github.com/squareup/rowstore/common"
	"github.com/squareup/rowstore/errors"
)

const (
	// RowHeaderSize is the length of the fixed record header: length, signature, field count and row def id.
	// The null map starts immediately after it.
	RowHeaderSize = 12

	// NullLocation is returned by FieldLocation for a field that is null. No real field can start at offset 0
	// because every field lies past the header.
	NullLocation uint64 = 0

	maxFieldCount     = 0xFFFF
	maxFixedWidth     = 0xFF
	maxVarDataLimit   = 0xFFFFFF
	coordOffsetMask   = 0xFFFFFF
	coordWidthShift   = 24
	varCountMask      = 0x0F
	varLastFieldShift = 4
)

// RowDefInfo carries everything needed to build a RowDef.
type RowDefInfo struct {
	ID               int32
	FieldDefs        []*FieldDef
	PKFields         []int
	ParentRowDefID   int32
	ParentJoinFields []int
}

// RowDef describes one version of one table's row shape. Besides the ordered FieldDefs it holds, for every
// group of 8 fields (one null map byte), two 256 entry tables indexed by a presence mask (bit set = field
// present):
//
//   fieldCoordinates: low 24 bits are the number of bytes used by the present fixed-width fields in the mask,
//                     high 8 bits are the width of the highest present fixed-width field in the mask.
//   varFieldMap:      low 4 bits are the number of present variable-width fields in the mask, high 4 bits
//                     are 1 + the bit position of the highest one, or 0 if there is none.
//
// With these, locating a field costs one table lookup per null map byte instead of one step per field.
// A RowDef is immutable after NewRowDef returns and may be shared between goroutines.
type RowDef struct {
	id               int32
	fieldDefs        []*FieldDef
	pkFields         []int
	parentRowDefID   int32
	parentJoinFields []int
	nullMapSize      int
	maxVarDataSize   int
	varPrefixWidth   int
	fieldCoordinates [][256]uint32
	varFieldMap      [][256]byte
	fieldIndexes     map[string]int
}

func NewRowDef(info RowDefInfo) (*RowDef, error) {
	fieldCount := len(info.FieldDefs)
	if fieldCount > maxFieldCount {
		return nil, errors.NewInvalidDescriptorError(fmt.Sprintf("row def %d has %d fields, maximum is %d",
			info.ID, fieldCount, maxFieldCount))
	}
	rd := &RowDef{
		id:               info.ID,
		fieldDefs:        info.FieldDefs,
		pkFields:         info.PKFields,
		parentRowDefID:   info.ParentRowDefID,
		parentJoinFields: info.ParentJoinFields,
		nullMapSize:      (fieldCount + 7) / 8,
		fieldIndexes:     make(map[string]int, fieldCount),
	}
	for i, fd := range info.FieldDefs {
		if fd.IsFixedWidth() {
			if fd.MaxWidth() < 1 || fd.MaxWidth() > maxFixedWidth {
				return nil, errors.NewInvalidFieldWidthError(fd.Name(), fd.MaxWidth(), 1, maxFixedWidth)
			}
		} else {
			rd.maxVarDataSize += fd.MaxWidth()
		}
		if _, exists := rd.fieldIndexes[fd.Name()]; exists {
			return nil, errors.NewInvalidDescriptorError(fmt.Sprintf("duplicate column %s", fd.Name()))
		}
		rd.fieldIndexes[fd.Name()] = i
	}
	if err := checkFieldIndexes("primary key", info.PKFields, fieldCount); err != nil {
		return nil, err
	}
	if info.ParentRowDefID == 0 && len(info.ParentJoinFields) != 0 {
		return nil, errors.NewInvalidDescriptorError("parent join columns given without a parent row def")
	}
	if err := checkFieldIndexes("parent join", info.ParentJoinFields, fieldCount); err != nil {
		return nil, err
	}
	switch {
	case rd.maxVarDataSize == 0:
		rd.varPrefixWidth = 0
	case rd.maxVarDataSize <= 0xFF:
		rd.varPrefixWidth = 1
	case rd.maxVarDataSize <= 0xFFFF:
		rd.varPrefixWidth = 2
	case rd.maxVarDataSize <= maxVarDataLimit:
		rd.varPrefixWidth = 3
	default:
		return nil, errors.NewInvalidDescriptorError(fmt.Sprintf("row def %d can hold %d bytes of variable length data, maximum is %d",
			info.ID, rd.maxVarDataSize, maxVarDataLimit))
	}
	rd.computeFieldCoordinates()
	return rd, nil
}

func checkFieldIndexes(what string, indexes []int, fieldCount int) error {
	for _, index := range indexes {
		if index < 0 || index >= fieldCount {
			return errors.NewInvalidDescriptorError(fmt.Sprintf("%s column index %d out of range", what, index))
		}
	}
	return nil
}

func (rd *RowDef) computeFieldCoordinates() {
	fieldCount := len(rd.fieldDefs)
	rd.fieldCoordinates = make([][256]uint32, rd.nullMapSize)
	rd.varFieldMap = make([][256]byte, rd.nullMapSize)
	for group := 0; group < rd.nullMapSize; group++ {
		for mask := 0; mask < 256; mask++ {
			var offset, lastWidth, varCount, lastVar int
			for bit := 0; bit < 8; bit++ {
				field := group*8 + bit
				if field >= fieldCount {
					break
				}
				if mask&(1<<uint(bit)) == 0 {
					continue
				}
				fd := rd.fieldDefs[field]
				if fd.IsFixedWidth() {
					offset += fd.MaxWidth()
					lastWidth = fd.MaxWidth()
				} else {
					varCount++
					lastVar = bit + 1
				}
			}
			rd.fieldCoordinates[group][mask] = uint32(offset) | uint32(lastWidth)<<coordWidthShift
			rd.varFieldMap[group][mask] = byte(varCount) | byte(lastVar)<<varLastFieldShift
		}
	}
}

// FieldLocation returns the packed location of field index in the record starting at rowStart, or
// NullLocation if the field is null. Use LocationOffset and LocationWidth to unpack. An out of range index
// panics.
func (rd *RowDef) FieldLocation(bytes []byte, rowStart int, index int) uint64 {
	if index < 0 || index >= len(rd.fieldDefs) {
		panic(fmt.Sprintf("field index %d out of range for row def %d with %d fields", index, rd.id, len(rd.fieldDefs)))
	}
	nullMapOffset := rowStart + RowHeaderSize
	group := index >> 3
	bit := uint(index & 7)
	if bytes[nullMapOffset+group]&(1<<bit) != 0 {
		return NullLocation
	}
	fixedBase := nullMapOffset + rd.nullMapSize
	// Bits 0 to bit inclusive, so the field itself is the last one counted in its group.
	upToField := byte(uint(1)<<(bit+1) - 1)

	if rd.fieldDefs[index].IsFixedWidth() {
		offset := 0
		for g := 0; g < group; g++ {
			offset += int(rd.fieldCoordinates[g][^bytes[nullMapOffset+g]] & coordOffsetMask)
		}
		coord := rd.fieldCoordinates[group][^bytes[nullMapOffset+group]&upToField]
		width := int(coord >> coordWidthShift)
		offset += int(coord & coordOffsetMask)
		return PackLocation(fixedBase+offset-width, width)
	}

	// The prefix and data regions follow all of the fixed-width data, so every group contributes.
	fixedSize := 0
	varCount := 0
	varOrdinal := 0
	for g := 0; g < rd.nullMapSize; g++ {
		present := ^bytes[nullMapOffset+g]
		fixedSize += int(rd.fieldCoordinates[g][present] & coordOffsetMask)
		groupVarCount := int(rd.varFieldMap[g][present] & varCountMask)
		varCount += groupVarCount
		if g < group {
			varOrdinal += groupVarCount
		} else if g == group {
			vm := rd.varFieldMap[g][present&upToField]
			if uint(vm>>varLastFieldShift) != bit+1 {
				panic(fmt.Sprintf("row def %d: variable field map does not end at field %d", rd.id, index))
			}
			varOrdinal += int(vm & varCountMask)
		}
	}
	prefixBase := fixedBase + fixedSize
	varBase := prefixBase + varCount*rd.varPrefixWidth
	if rd.varPrefixWidth == 0 {
		return PackLocation(varBase, 0)
	}
	end := int(common.ReadUint(bytes, prefixBase+(varOrdinal-1)*rd.varPrefixWidth, rd.varPrefixWidth))
	start := 0
	if varOrdinal > 1 {
		start = int(common.ReadUint(bytes, prefixBase+(varOrdinal-2)*rd.varPrefixWidth, rd.varPrefixWidth))
	}
	return PackLocation(varBase+start, end-start)
}

func PackLocation(offset int, width int) uint64 {
	return uint64(uint32(offset)) | uint64(uint32(width))<<32
}

func LocationOffset(location uint64) int {
	return int(uint32(location))
}

func LocationWidth(location uint64) int {
	return int(location >> 32)
}

func (rd *RowDef) ID() int32 {
	return rd.id
}

func (rd *RowDef) FieldCount() int {
	return len(rd.fieldDefs)
}

func (rd *RowDef) FieldDef(index int) *FieldDef {
	return rd.fieldDefs[index]
}

func (rd *RowDef) FieldDefs() []*FieldDef {
	return rd.fieldDefs
}

// FieldIndex returns the position of the named column, or -1.
func (rd *RowDef) FieldIndex(name string) int {
	index, ok := rd.fieldIndexes[name]
	if !ok {
		return -1
	}
	return index
}

func (rd *RowDef) PKFields() []int {
	return rd.pkFields
}

func (rd *RowDef) ParentRowDefID() int32 {
	return rd.parentRowDefID
}

func (rd *RowDef) ParentJoinFields() []int {
	return rd.parentJoinFields
}

func (rd *RowDef) HasParent() bool {
	return rd.parentRowDefID != 0
}

func (rd *RowDef) NullMapSize() int {
	return rd.nullMapSize
}

// VarPrefixWidth is the number of bytes used by each variable-width field's end offset: 0, 1, 2 or 3.
func (rd *RowDef) VarPrefixWidth() int {
	return rd.varPrefixWidth
}

// MaxVarDataSize is the largest possible size of a record's variable data region.
func (rd *RowDef) MaxVarDataSize() int {
	return rd.maxVarDataSize
}

func (rd *RowDef) String() string {
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("RowDef[id=%d", rd.id))
	if rd.parentRowDefID != 0 {
		sb.WriteString(fmt.Sprintf(",parent=%d%v", rd.parentRowDefID, rd.parentJoinFields))
	}
	sb.WriteString("](")
	for i, fd := range rd.fieldDefs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fd.String())
	}
	if len(rd.pkFields) > 0 {
		sb.WriteString(fmt.Sprintf(", PRIMARY KEY %v", rd.pkFields))
	}
	sb.WriteString(")")
	return sb.String()
}
