package rowdef

import (
	"fmt"

	"github.com/squareup/rowstore/errors"
)

// FieldDef describes the storage of one column. It is immutable once created.
type FieldDef struct {
	name     string
	typ      *Type
	minWidth int
	maxWidth int
}

func NewFieldDef(name string, typ *Type) *FieldDef {
	return &FieldDef{
		name:     name,
		typ:      typ,
		minWidth: typ.MinWidth,
		maxWidth: typ.MaxWidth,
	}
}

// NewFieldDefWithWidth creates a FieldDef whose maximum width is narrower than the type's, e.g. VARCHAR(32).
func NewFieldDefWithWidth(name string, typ *Type, maxWidth int) (*FieldDef, error) {
	if !typ.IsFixedWidth() && maxWidth < 1 {
		// width 0 would make the column look fixed width
		return nil, errors.NewInvalidFieldWidthError(name, maxWidth, 1, typ.MaxWidth)
	}
	if maxWidth < typ.MinWidth || maxWidth > typ.MaxWidth {
		return nil, errors.NewInvalidFieldWidthError(name, maxWidth, typ.MinWidth, typ.MaxWidth)
	}
	return &FieldDef{
		name:     name,
		typ:      typ,
		minWidth: typ.MinWidth,
		maxWidth: maxWidth,
	}, nil
}

func (f *FieldDef) Name() string {
	return f.name
}

func (f *FieldDef) Type() *Type {
	return f.typ
}

func (f *FieldDef) MinWidth() int {
	return f.minWidth
}

func (f *FieldDef) MaxWidth() int {
	return f.maxWidth
}

func (f *FieldDef) IsFixedWidth() bool {
	return f.minWidth == f.maxWidth
}

func (f *FieldDef) String() string {
	if f.IsFixedWidth() {
		return fmt.Sprintf("%s %s", f.name, f.typ.Name)
	}
	return fmt.Sprintf("%s %s(%d)", f.name, f.typ.Name, f.maxWidth)
}
