// Package layout computes C ABI sizes, alignments and field offsets for
// flattened declarations. Structs are laid out sequentially with natural
// alignment; unions place every member at offset zero.
package layout

import (
	"github.com/ztrue/tracerr"

	"github.com/pontaoski/c2go/ast"
	"github.com/pontaoski/c2go/errors"
)

type FieldInfo struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Offset int    `json:"offset"`
	Size   int    `json:"size"`
	Align  int    `json:"align"`
}

type Info struct {
	Name   string      `json:"-"`
	Kind   ast.Kind    `json:"-"`
	Size   int         `json:"size"`
	Align  int         `json:"align"`
	Fields []FieldInfo `json:"fields"`
}

type engine struct {
	table    *Table
	decls    map[string]ast.Declaration
	done     map[string]*Info
	visiting []string
}

func newEngine(decls []ast.Declaration, table *Table) *engine {
	e := &engine{
		table: table,
		decls: make(map[string]ast.Declaration, len(decls)),
		done:  make(map[string]*Info, len(decls)),
	}
	for _, d := range decls {
		e.decls[d.Name.Name] = d
	}
	return e
}

// Compute lays out every declaration in decls. Types referenced by name
// resolve first to another declaration, then to the table's primitives.
func Compute(decls []ast.Declaration, table *Table) (map[string]*Info, error) {
	e := newEngine(decls, table)

	for _, d := range decls {
		if _, err := e.declaration(d); err != nil {
			return nil, tracerr.Wrap(err)
		}
	}

	return e.done, nil
}

// Known lays out whichever declarations it can and leaves out the rest, such
// as those referencing a type or constant the table does not know.
func Known(decls []ast.Declaration, table *Table) map[string]*Info {
	e := newEngine(decls, table)

	for _, d := range decls {
		e.declaration(d)
	}

	return e.done
}

func alignUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}

func (e *engine) declaration(d ast.Declaration) (*Info, error) {
	name := d.Name.Name
	if info, ok := e.done[name]; ok {
		return info, nil
	}

	for i, v := range e.visiting {
		if v == name {
			path := append(append([]string{}, e.visiting[i:]...), name)
			return nil, errors.CyclicLayout{Path: path}
		}
	}
	e.visiting = append(e.visiting, name)
	defer func() { e.visiting = e.visiting[:len(e.visiting)-1] }()

	info := &Info{Name: name, Kind: d.Kind, Align: 1}
	offset := 0
	for _, f := range d.Fields {
		size, align, err := e.sizeOf(f.Type)
		if err != nil {
			return nil, err
		}

		fi := FieldInfo{
			Name:  f.MemberName(),
			Type:  ast.TypeString(f.Type),
			Size:  size,
			Align: align,
		}
		if d.Kind == ast.KindStruct {
			fi.Offset = alignUp(offset, align)
			offset = fi.Offset + size
		} else if size > offset {
			offset = size
		}
		if align > info.Align {
			info.Align = align
		}

		info.Fields = append(info.Fields, fi)
	}
	info.Size = alignUp(offset, info.Align)

	e.done[name] = info
	return info, nil
}

func (e *engine) sizeOf(t ast.Type) (size int, align int, err error) {
	switch v := t.(type) {
	case ast.Ident:
		if d, ok := e.decls[v.Name]; ok {
			info, err := e.declaration(d)
			if err != nil {
				return 0, 0, err
			}
			return info.Size, info.Align, nil
		}
		if p, ok := e.table.Primitives[v.Name]; ok {
			return p.Size, p.Align, nil
		}
		return 0, 0, errors.UnknownType{Name: v.Name, Location: v.Pos}
	case ast.Pointer:
		return e.table.PointerSize, e.table.PointerAlign, nil
	case ast.Array:
		n, err := e.table.Length(v)
		if err != nil {
			return 0, 0, err
		}
		size, align, err := e.sizeOf(v.Elem)
		if err != nil {
			return 0, 0, err
		}
		return size * int(n), align, nil
	}

	return 0, 0, errors.UnknownType{Name: ast.TypeString(t)}
}

// Length evaluates an array's element count, looking named sizes up in
// the table's constants.
func (t *Table) Length(a ast.Array) (uint64, error) {
	switch size := a.Size.(type) {
	case ast.Number:
		return size.Value, nil
	case ast.Ident:
		if v, ok := t.Constants[size.Name]; ok {
			return v, nil
		}
		return 0, errors.UnresolvedConstant{Name: size.Name, Location: size.Pos}
	}
	return 0, errors.UnresolvedConstant{Name: ast.TypeString(a.Size), Location: a.Pos}
}
