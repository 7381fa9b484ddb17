// Package irgen lowers flattened declarations to named LLVM struct types.
// Unions become a struct of their most aligned member followed by byte
// padding, the way clang lowers them.
package irgen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/ztrue/tracerr"

	"github.com/pontaoski/c2go/ast"
	"github.com/pontaoski/c2go/errors"
	"github.com/pontaoski/c2go/layout"
)

type ctx struct {
	table   *layout.Table
	infos   map[string]*layout.Info
	structs map[string]*types.StructType
}

// Generate builds a module holding one named struct type per declaration
// and the JSON layout table as the global __c2go_layout. Array sizes given
// by name must resolve through the table's constants.
func Generate(decls []ast.Declaration, table *layout.Table) (*ir.Module, error) {
	infos, err := layout.Compute(decls, table)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}

	c := &ctx{
		table:   table,
		infos:   infos,
		structs: make(map[string]*types.StructType, len(decls)),
	}
	modu := ir.NewModule()

	// declare every name first so fields may refer forward
	for _, d := range decls {
		st := types.NewStruct()
		st.SetName(d.Name.Name)
		c.structs[d.Name.Name] = st
		modu.TypeDefs = append(modu.TypeDefs, st)
	}

	for _, d := range decls {
		var err error
		if d.Kind == ast.KindUnion {
			err = c.union(d)
		} else {
			err = c.structure(d)
		}
		if err != nil {
			return nil, tracerr.Wrap(err)
		}
	}

	if err := registerTypeInfoWithModule(newTypeInfo(decls, infos), modu); err != nil {
		return nil, tracerr.Wrap(err)
	}

	return modu, nil
}

func (c *ctx) structure(d ast.Declaration) error {
	st := c.structs[d.Name.Name]
	for _, f := range d.Fields {
		t, err := c.lower(f.Type)
		if err != nil {
			return err
		}
		st.Fields = append(st.Fields, t)
	}
	return nil
}

func (c *ctx) union(d ast.Declaration) error {
	st := c.structs[d.Name.Name]
	info := c.infos[d.Name.Name]
	if len(d.Fields) == 0 {
		return nil
	}

	best := 0
	for i, f := range info.Fields {
		cur := info.Fields[best]
		if f.Align > cur.Align || (f.Align == cur.Align && f.Size > cur.Size) {
			best = i
		}
	}

	t, err := c.lower(d.Fields[best].Type)
	if err != nil {
		return err
	}
	st.Fields = append(st.Fields, t)

	if pad := info.Size - info.Fields[best].Size; pad > 0 {
		st.Fields = append(st.Fields, types.NewArray(uint64(pad), types.I8))
	}
	return nil
}

func (c *ctx) lower(t ast.Type) (types.Type, error) {
	switch kind := t.(type) {
	case ast.Ident:
		return c.named(ast.Identifier(kind))
	case ast.Pointer:
		// targets are never validated, so unknown ones point at bytes
		var target types.Type = types.I8
		if named, err := c.named(kind.Target); err == nil {
			target = named
		}
		for i := 0; i < kind.Depth; i++ {
			target = types.NewPointer(target)
		}
		return target, nil
	case ast.Array:
		n, err := c.table.Length(kind)
		if err != nil {
			return nil, err
		}
		elem, err := c.lower(kind.Elem)
		if err != nil {
			return nil, err
		}
		return types.NewArray(n, elem), nil
	}

	return nil, fmt.Errorf("cannot lower %s; declarations must be flattened first", ast.TypeString(t))
}

func (c *ctx) named(id ast.Identifier) (types.Type, error) {
	if st, ok := c.structs[id.Name]; ok {
		return st, nil
	}
	if p, ok := c.table.Primitives[id.Name]; ok {
		return primitive(p), nil
	}
	return nil, errors.UnknownType{Name: id.Name, Location: id.Pos}
}

func primitive(p layout.Primitive) types.Type {
	if p.Float {
		switch p.Size {
		case 2:
			return types.Half
		case 4:
			return types.Float
		case 8:
			return types.Double
		case 16:
			return types.FP128
		}
	}
	return types.NewInt(uint64(p.Size) * 8)
}
