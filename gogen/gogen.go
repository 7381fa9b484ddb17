// Package gogen emits Go source for flattened declarations. Every emitted
// type carries a structs.HostLayout marker, keeps the declared field order,
// and comes with size and alignment constants plus buffer views.
package gogen

import (
	"bytes"
	"fmt"
	"go/token"
	"math"
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/ztrue/tracerr"

	"github.com/pontaoski/c2go/ast"
	"github.com/pontaoski/c2go/errors"
	"github.com/pontaoski/c2go/layout"
)

const (
	cviewPath = "github.com/pontaoski/c2go/cview"

	// storage field of an emitted union
	unionStorage = "raw"
)

const DefaultHeader = "Code generated by c2go. DO NOT EDIT."

type Options struct {
	Package string
	Header  string

	// AssertSizes emits compile-time checks that Go's layout of each type
	// matches the C layout Table computes. Types Table cannot lay out get
	// no check.
	AssertSizes bool
	Table       *layout.Table
}

// reservedTypeNames would shadow a predeclared identifier or an import of
// the generated file.
var reservedTypeNames = map[string]bool{
	"any": true, "bool": true, "byte": true, "comparable": true, "complex64": true, "complex128": true,
	"error": true, "float32": true, "float64": true, "int": true, "int8": true, "int16": true,
	"int32": true, "int64": true, "rune": true, "string": true, "uint": true, "uint8": true,
	"uint16": true, "uint32": true, "uint64": true, "uintptr": true, "max": true, "new": true,
	"fmt": true, "unsafe": true, "structs": true, "cview": true,
}

// reservedUnionMembers collide with a union's storage or its methods.
var reservedUnionMembers = map[string]bool{
	unionStorage: true,
	"String":     true,
	"GoString":   true,
}

func escape(name string) string {
	if token.IsKeyword(name) {
		return name + "_"
	}
	return name
}

type generator struct {
	f *jen.File

	// Go names of declared types
	names map[string]string
	// every package-level Go name, with the declaration that introduced it
	claimed map[string]ast.Identifier
	// structs that print through cview.Format
	formatted map[string]bool
}

// Generate renders decls as one Go source file. Names referenced but not
// declared, such as DWORD or MAX_PATH, are emitted verbatim for the
// surrounding package to define.
//
// Escaping can map distinct C names onto one Go name; that is reported as
// errors.DuplicateDeclaration or errors.DuplicateField rather than emitted.
func Generate(decls []ast.Declaration, opts Options) ([]byte, error) {
	if opts.Package == "" {
		return nil, tracerr.New("gogen: no package name")
	}
	if opts.Header == "" {
		opts.Header = DefaultHeader
	}

	g := &generator{
		f:       jen.NewFile(opts.Package),
		names:   make(map[string]string, len(decls)),
		claimed: map[string]ast.Identifier{},
	}
	g.f.HeaderComment(opts.Header)

	for _, d := range decls {
		name := escape(d.Name.Name)
		if reservedTypeNames[name] {
			name += "_"
		}
		g.names[d.Name.Name] = name
		if err := g.claim(name, d.Name); err != nil {
			return nil, tracerr.Wrap(err)
		}
	}
	for _, d := range decls {
		for _, helper := range helpers(g.TypeName(d.Name.Name)) {
			if err := g.claim(helper, d.Name); err != nil {
				return nil, tracerr.Wrap(err)
			}
		}
	}
	g.formatted = formatted(decls)

	for _, d := range decls {
		members, err := g.members(d)
		if err != nil {
			return nil, tracerr.Wrap(err)
		}

		if d.Kind == ast.KindUnion {
			err = g.union(d, members)
		} else {
			err = g.structure(d, members)
		}
		if err != nil {
			return nil, tracerr.Wrap(err)
		}
		g.accessors(d)
	}

	if opts.AssertSizes && opts.Table != nil {
		g.assertions(decls, layout.Known(decls, opts.Table))
	}

	var buf bytes.Buffer
	if err := g.f.Render(&buf); err != nil {
		return nil, tracerr.Wrap(err)
	}
	return buf.Bytes(), nil
}

// TypeName is the Go name generated for a declared type.
func (g *generator) TypeName(name string) string {
	if n, ok := g.names[name]; ok {
		return n
	}
	return escape(name)
}

func helpers(name string) []string {
	return []string{
		"Sizeof" + name,
		"Alignof" + name,
		name + "FromBytes",
		name + "FromMutBytes",
		"View" + name,
	}
}

func (g *generator) claim(name string, owner ast.Identifier) error {
	if first, ok := g.claimed[name]; ok {
		return errors.DuplicateDeclaration{Name: name, First: first.Pos, Location: owner.Pos}
	}
	g.claimed[name] = owner
	return nil
}

// members returns the Go name of each field of d, in order.
func (g *generator) members(d ast.Declaration) ([]string, error) {
	seen := map[string]bool{}
	ret := make([]string, 0, len(d.Fields))
	for _, f := range d.Fields {
		name := escape(f.MemberName())
		switch {
		case d.Kind == ast.KindUnion && reservedUnionMembers[name]:
			name += "_"
		case d.Kind == ast.KindStruct && g.formatted[d.Name.Name] && name == "Format":
			name += "_"
		}

		if name != "_" && seen[name] {
			loc := d.Name.Pos
			if f.Name != nil {
				loc = f.Name.Pos
			}
			return nil, errors.DuplicateField{Declaration: d.Name.Name, Name: name, Location: loc}
		}
		seen[name] = true
		ret = append(ret, name)
	}
	return ret, nil
}

// formatted finds the structs holding a union by value, directly or
// through arrays and other structs. fmt cannot reach the union's String
// method through an unexported field, so these structs print themselves.
func formatted(decls []ast.Declaration) map[string]bool {
	ret := map[string]bool{}
	for _, d := range decls {
		if d.Kind == ast.KindUnion {
			ret[d.Name.Name] = true
		}
	}

	for changed := true; changed; {
		changed = false
		for _, d := range decls {
			if ret[d.Name.Name] {
				continue
			}
			for _, f := range d.Fields {
				if name, ok := valueName(f.Type); ok && ret[name] {
					ret[d.Name.Name] = true
					changed = true
					break
				}
			}
		}
	}

	for _, d := range decls {
		if d.Kind == ast.KindUnion {
			delete(ret, d.Name.Name)
		}
	}
	return ret
}

// valueName is the type name t stores by value, looking through arrays.
func valueName(t ast.Type) (string, bool) {
	switch v := t.(type) {
	case ast.Ident:
		return v.Name, true
	case ast.Array:
		return valueName(v.Elem)
	}
	return "", false
}

func (g *generator) goType(t ast.Type) (*jen.Statement, error) {
	switch v := t.(type) {
	case ast.Ident:
		return jen.Id(g.TypeName(v.Name)), nil
	case ast.Pointer:
		return jen.Op(strings.Repeat("*", v.Depth)).Id(g.TypeName(v.Target.Name)), nil
	case ast.Array:
		var size jen.Code
		switch s := v.Size.(type) {
		case ast.Number:
			if s.Value > math.MaxInt64 {
				return nil, errors.InvalidInteger{Lit: s.Lit, Location: s.Pos}
			}
			size = jen.Lit(int(s.Value))
		case ast.Ident:
			size = jen.Id(s.Name)
		default:
			return nil, fmt.Errorf("array size %s is not an integer or identifier", ast.TypeString(v.Size))
		}
		elem, err := g.goType(v.Elem)
		if err != nil {
			return nil, err
		}
		return jen.Index(size).Add(elem), nil
	}

	return nil, fmt.Errorf("cannot emit %s as a field type; declarations must be flattened first", ast.TypeString(t))
}

func (g *generator) structure(d ast.Declaration, members []string) error {
	name := g.TypeName(d.Name.Name)

	fields := []jen.Code{jen.Id("_").Qual("structs", "HostLayout")}
	for i, f := range d.Fields {
		typ, err := g.goType(f.Type)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", d.Name.Name, f.MemberName(), err)
		}
		fields = append(fields, jen.Id(members[i]).Add(typ))
	}

	g.f.Commentf("%s is the layout of C struct %s.", name, d.Name.Name)
	g.f.Type().Id(name).Struct(fields...)

	if g.formatted[d.Name.Name] {
		var values []jen.Code
		for _, m := range members {
			if m == "_" {
				continue
			}
			values = append(values, jen.Values(jen.Dict{
				jen.Id("Name"):  jen.Lit(m),
				jen.Id("Value"): jen.Id("x").Dot(m),
			}))
		}

		g.f.Commentf("Format prints %s like fmt does, with union members shown by name.", name)
		g.f.Func().Params(jen.Id("x").Id(name)).Id("Format").Params(
			jen.Id("f").Qual("fmt", "State"),
			jen.Id("verb").Rune(),
		).Block(
			jen.Qual(cviewPath, "Format").Call(
				jen.Id("f"),
				jen.Id("verb"),
				jen.Lit(name),
				jen.Index().Qual(cviewPath, "Field").Values(values...),
			),
		)
	}
	return nil
}

// union emits an aligned byte array big enough for the largest member, with
// one zero-length array per member type to give it that member's alignment.
// Each member is read through a method returning a pointer to offset zero.
func (g *generator) union(d ast.Declaration, members []string) error {
	name := g.TypeName(d.Name.Name)

	fields := []jen.Code{jen.Id("_").Qual("structs", "HostLayout")}
	var sizes []jen.Code
	seen := map[string]bool{}
	for _, f := range d.Fields {
		typ, err := g.goType(f.Type)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", d.Name.Name, f.MemberName(), err)
		}

		key := ast.TypeString(f.Type)
		if seen[key] {
			continue
		}
		seen[key] = true

		elem, _ := g.goType(f.Type)
		fields = append(fields, jen.Id("_").Index(jen.Lit(0)).Add(typ))
		sizes = append(sizes, jen.Qual("unsafe", "Sizeof").Call(jen.Op("*").New(elem)))
	}

	storage := jen.Id(unionStorage)
	if len(sizes) == 0 {
		storage.Index(jen.Lit(0)).Byte()
	} else {
		storage.Index(jen.Id("max").Call(sizes...)).Byte()
	}
	fields = append(fields, storage)

	g.f.Commentf("%s is the layout of C union %s. Every member starts at offset", name, d.Name.Name)
	g.f.Comment("zero; read one through its accessor method.")
	g.f.Type().Id(name).Struct(fields...)

	for i, f := range d.Fields {
		typ, _ := g.goType(f.Type)
		cast, _ := g.goType(f.Type)

		g.f.Func().Params(jen.Id("u").Op("*").Id(name)).Id(members[i]).Params().Op("*").Add(typ).Block(
			jen.Return(jen.Parens(jen.Op("*").Add(cast)).Call(
				jen.Qual("unsafe", "Pointer").Call(jen.Op("&").Id("u").Dot(unionStorage)),
			)),
		)
	}

	// only one member is meaningful at a time, so printing stays opaque
	for _, method := range []string{"String", "GoString"} {
		g.f.Func().Params(jen.Id(name)).Id(method).Params().String().Block(
			jen.Return(jen.Lit(d.Name.Name)),
		)
	}

	return nil
}

func (g *generator) accessors(d ast.Declaration) {
	name := g.TypeName(d.Name.Name)
	sizeof := "Sizeof" + name
	alignof := "Alignof" + name

	g.f.Const().Defs(
		jen.Id(sizeof).Op("=").Int().Call(jen.Qual("unsafe", "Sizeof").Call(jen.Id(name).Values())),
		jen.Id(alignof).Op("=").Int().Call(jen.Qual("unsafe", "Alignof").Call(jen.Id(name).Values())),
	)

	g.f.Commentf("%sFromBytes views the memory at p as a %s that the caller only reads.", name, name)
	g.f.Commentf("p must address at least %s bytes, aligned to %s, that stay", sizeof, alignof)
	g.f.Comment("live while the view is used. None of this is checked.")
	g.f.Func().Id(name+"FromBytes").Params(jen.Id("p").Qual("unsafe", "Pointer")).Op("*").Id(name).Block(
		jen.Return(jen.Parens(jen.Op("*").Id(name)).Call(jen.Id("p"))),
	)

	g.f.Commentf("%sFromMutBytes views the memory at p as a mutable %s, under the", name, name)
	g.f.Commentf("same unchecked contract as %sFromBytes.", name)
	g.f.Func().Id(name+"FromMutBytes").Params(jen.Id("p").Qual("unsafe", "Pointer")).Op("*").Id(name).Block(
		jen.Return(jen.Parens(jen.Op("*").Id(name)).Call(jen.Id("p"))),
	)

	g.f.Commentf("View%s is %sFromMutBytes after checking that b is long enough", name, name)
	g.f.Comment("and suitably aligned. The view aliases b, and is never nil on success.")
	g.f.Func().Id("View"+name).Params(jen.Id("b").Index().Byte()).Params(jen.Op("*").Id(name), jen.Error()).Block(
		jen.If(
			jen.Err().Op(":=").Qual(cviewPath, "Check").Call(jen.Id("b"), jen.Lit(d.Name.Name), jen.Id(sizeof), jen.Id(alignof)),
			jen.Err().Op("!=").Nil(),
		).Block(
			jen.Return(jen.Nil(), jen.Err()),
		),
		jen.Return(jen.Id(name+"FromMutBytes").Call(jen.Qual(cviewPath, "Pointer").Call(jen.Id("b"))), jen.Nil()),
	)
}

// assertions emits a function that fails to compile when Go's size or
// alignment of a type drifts from the C layout.
func (g *generator) assertions(decls []ast.Declaration, infos map[string]*layout.Info) {
	var checks []jen.Code
	for _, d := range decls {
		info, ok := infos[d.Name.Name]
		if !ok {
			continue
		}
		name := g.TypeName(d.Name.Name)
		checks = append(checks,
			jen.Id("_").Op("=").Id("x").Index(jen.Id("Sizeof"+name).Op("-").Lit(info.Size)),
			jen.Id("_").Op("=").Id("x").Index(jen.Id("Alignof"+name).Op("-").Lit(info.Align)),
		)
	}
	if len(checks) == 0 {
		return
	}

	g.f.Comment("An \"invalid array index\" compiler error signifies that a type's Go layout")
	g.f.Comment("no longer matches its C layout.")
	g.f.Func().Id("_").Params().Block(
		append([]jen.Code{jen.Var().Id("x").Index(jen.Lit(1)).Struct()}, checks...)...,
	)
}
