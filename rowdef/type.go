package rowdef

import (
	"strings"

	"github.com/squareup/rowstore/errors"
)

// Encoding is how the bytes of a column are interpreted once located.
type Encoding int

const (
	EncodingInt Encoding = iota + 1
	EncodingUint
	EncodingFloat
	EncodingDouble
	EncodingString
	EncodingBytes
)

// Type is a column storage type. MinWidth and MaxWidth bound the number of bytes a value occupies in a row
// record; a type whose bounds are equal is fixed width.
type Type struct {
	Name     string
	Encoding Encoding
	MinWidth int
	MaxWidth int
}

func (t *Type) IsFixedWidth() bool {
	return t.MinWidth == t.MaxWidth
}

func (t *Type) String() string {
	return t.Name
}

var (
	TinyInt    = &Type{Name: "TINYINT", Encoding: EncodingInt, MinWidth: 1, MaxWidth: 1}
	SmallInt   = &Type{Name: "SMALLINT", Encoding: EncodingInt, MinWidth: 2, MaxWidth: 2}
	MediumInt  = &Type{Name: "MEDIUMINT", Encoding: EncodingInt, MinWidth: 3, MaxWidth: 3}
	Int        = &Type{Name: "INT", Encoding: EncodingInt, MinWidth: 4, MaxWidth: 4}
	BigInt     = &Type{Name: "BIGINT", Encoding: EncodingInt, MinWidth: 8, MaxWidth: 8}
	UTinyInt   = &Type{Name: "UTINYINT", Encoding: EncodingUint, MinWidth: 1, MaxWidth: 1}
	USmallInt  = &Type{Name: "USMALLINT", Encoding: EncodingUint, MinWidth: 2, MaxWidth: 2}
	UMediumInt = &Type{Name: "UMEDIUMINT", Encoding: EncodingUint, MinWidth: 3, MaxWidth: 3}
	UInt       = &Type{Name: "UINT", Encoding: EncodingUint, MinWidth: 4, MaxWidth: 4}
	UBigInt    = &Type{Name: "UBIGINT", Encoding: EncodingUint, MinWidth: 8, MaxWidth: 8}
	Float      = &Type{Name: "FLOAT", Encoding: EncodingFloat, MinWidth: 4, MaxWidth: 4}
	Double     = &Type{Name: "DOUBLE", Encoding: EncodingDouble, MinWidth: 8, MaxWidth: 8}
	Varchar    = &Type{Name: "VARCHAR", Encoding: EncodingString, MinWidth: 0, MaxWidth: 0xFFFF}
	Varbinary  = &Type{Name: "VARBINARY", Encoding: EncodingBytes, MinWidth: 0, MaxWidth: 0xFFFF}
	Blob       = &Type{Name: "BLOB", Encoding: EncodingBytes, MinWidth: 0, MaxWidth: 0xFFFFFF}

	// TypesByName allows lookup of a Type by its SQL name.
	TypesByName = map[string]*Type{}
)

func init() {
	for _, t := range []*Type{TinyInt, SmallInt, MediumInt, Int, BigInt, UTinyInt, USmallInt, UMediumInt, UInt,
		UBigInt, Float, Double, Varchar, Varbinary, Blob} {
		TypesByName[t.Name] = t
	}
}

// TypeRef is a type name captured by the descriptor parser.
type TypeRef struct {
	*Type
}

func (t *TypeRef) Capture(tokens []string) error {
	text := strings.ToUpper(strings.Join(tokens, " "))
	typ, ok := TypesByName[text]
	if !ok {
		return errors.Errorf("unknown column type %s", text)
	}
	t.Type = typ
	return nil
}
