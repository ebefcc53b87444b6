package rowdef

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/alecthomas/participle/v2/lexer/stateful"
	"github.com/squareup/rowstore/errors"
)

// A row descriptor is a compact column list used by tools and tests, e.g.
//
//   id BIGINT, name VARCHAR(32), price DOUBLE, PRIMARY KEY (id), PARENT 3 (customer_id)
//
// It names columns and storage types only; it is not DDL.

var (
	descriptorLexer = stateful.MustSimple([]stateful.Rule{
		{Name: `Ident`, Pattern: `[a-zA-Z_][a-zA-Z_0-9]*`, Action: nil},
		{Name: `Number`, Pattern: `\d+`, Action: nil},
		{Name: `Punct`, Pattern: `[,()]`, Action: nil},
		{Name: `Whitespace`, Pattern: `\s+`, Action: nil},
	})
	descriptorParser = participle.MustBuild(&descriptorAST{},
		participle.Lexer(descriptorLexer),
		participle.CaseInsensitive("Ident"),
		participle.Elide("Whitespace"),
		participle.UseLookahead(2),
	)
)

type descriptorAST struct {
	Options []*descriptorOption `parser:"@@ (\",\" @@)*"`
}

type descriptorOption struct {
	PrimaryKey []string          `parser:"  \"PRIMARY\" \"KEY\" \"(\" @Ident (\",\" @Ident)* \")\""`
	Parent     *parentDescriptor `parser:"| @@"`
	Column     *columnDescriptor `parser:"| @@"`
}

type parentDescriptor struct {
	ID      int32    `parser:"\"PARENT\" @Number"`
	Columns []string `parser:"\"(\" @Ident (\",\" @Ident)* \")\""`
}

type columnDescriptor struct {
	Pos lexer.Position

	Name  string   `parser:"@Ident"`
	Type  *TypeRef `parser:"@Ident"` // Conversion done by TypeRef.Capture()
	Width []int    `parser:"(\"(\" @Number \")\")?"`
}

func (c *columnDescriptor) toFieldDef() (*FieldDef, error) {
	switch len(c.Width) {
	case 0:
		return NewFieldDef(c.Name, c.Type.Type), nil
	case 1:
		return NewFieldDefWithWidth(c.Name, c.Type.Type, c.Width[0])
	default:
		return nil, participle.Errorf(c.Pos, "expected %s(width)", c.Type.Name)
	}
}

// ParseRowDef builds a RowDef with the given id from a row descriptor.
func ParseRowDef(id int32, descriptor string) (*RowDef, error) {
	ast := &descriptorAST{}
	if err := descriptorParser.ParseString("", descriptor, ast); err != nil {
		return nil, errors.NewInvalidDescriptorError(err.Error())
	}
	info := RowDefInfo{ID: id}
	var pkNames, parentJoinNames []string
	for _, opt := range ast.Options {
		switch {
		case opt.Column != nil:
			fd, err := opt.Column.toFieldDef()
			if err != nil {
				return nil, errors.MaybeAddStack(err)
			}
			info.FieldDefs = append(info.FieldDefs, fd)
		case opt.Parent != nil:
			if info.ParentRowDefID != 0 {
				return nil, errors.NewInvalidDescriptorError("more than one PARENT clause")
			}
			if opt.Parent.ID == 0 {
				return nil, errors.NewInvalidDescriptorError("parent row def id must not be 0")
			}
			info.ParentRowDefID = opt.Parent.ID
			parentJoinNames = opt.Parent.Columns
		default:
			if pkNames != nil {
				return nil, errors.NewInvalidDescriptorError("more than one PRIMARY KEY clause")
			}
			pkNames = opt.PrimaryKey
		}
	}
	indexes := func(names []string) ([]int, error) {
		var res []int
		for _, name := range names {
			found := -1
			for i, fd := range info.FieldDefs {
				if fd.Name() == name {
					found = i
					break
				}
			}
			if found == -1 {
				return nil, errors.NewInvalidDescriptorError(fmt.Sprintf("unknown column %s", name))
			}
			res = append(res, found)
		}
		return res, nil
	}
	var err error
	if info.PKFields, err = indexes(pkNames); err != nil {
		return nil, err
	}
	if info.ParentJoinFields, err = indexes(parentJoinNames); err != nil {
		return nil, err
	}
	return NewRowDef(info)
}
