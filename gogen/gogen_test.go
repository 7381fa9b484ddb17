package gogen

import (
	goast "go/ast"
	goparser "go/parser"
	"go/token"
	gotypes "go/types"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ztrue/tracerr"

	"github.com/pontaoski/c2go/ast"
	"github.com/pontaoski/c2go/errors"
	"github.com/pontaoski/c2go/hoist"
	"github.com/pontaoski/c2go/layout"
	"github.com/pontaoski/c2go/parser"
)

type field struct {
	Name string
	Type string
}

// generated is a parsed view of generator output.
type generated struct {
	src   string
	file  *goast.File
	types map[string]*goast.StructType
	funcs map[string]*goast.FuncDecl
	order []string
}

func flattenSource(t *testing.T, src string) []ast.Declaration {
	t.Helper()

	prog, err := parser.ParseString(src, "test.h")
	require.NoError(t, err)
	decls, err := hoist.Flatten(prog)
	require.NoError(t, err)
	require.NoError(t, hoist.CheckUnique(decls))
	return decls
}

func generate(t *testing.T, src string, opts Options) *generated {
	t.Helper()

	decls := flattenSource(t, src)
	if opts.Package == "" {
		opts.Package = "winabi"
	}
	out, err := Generate(decls, opts)
	require.NoError(t, err)

	file, err := goparser.ParseFile(token.NewFileSet(), "zdefs.go", out, goparser.ParseComments)
	require.NoError(t, err, string(out))

	g := &generated{
		src:   string(out),
		file:  file,
		types: map[string]*goast.StructType{},
		funcs: map[string]*goast.FuncDecl{},
	}
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *goast.GenDecl:
			for _, spec := range d.Specs {
				ts, ok := spec.(*goast.TypeSpec)
				if !ok {
					continue
				}
				g.types[ts.Name.Name] = ts.Type.(*goast.StructType)
				g.order = append(g.order, ts.Name.Name)
			}
		case *goast.FuncDecl:
			name := d.Name.Name
			if d.Recv != nil {
				name = gotypes.ExprString(d.Recv.List[0].Type) + "." + name
			}
			g.funcs[name] = d
		}
	}
	return g
}

func (g *generated) fields(t *testing.T, typ string) (ret []field) {
	t.Helper()

	st, ok := g.types[typ]
	require.True(t, ok, "no type %s in\n%s", typ, g.src)
	for _, f := range st.Fields.List {
		for _, n := range f.Names {
			ret = append(ret, field{n.Name, gotypes.ExprString(f.Type)})
		}
	}
	return
}

func TestScalarAndArrayStruct(t *testing.T) {
	g := generate(t, "struct A { DWORD var1; DWORD array[10]; };", Options{})

	assert.Equal(t, []string{"A"}, g.order)
	assert.Equal(t, []field{
		{"_", "structs.HostLayout"},
		{"var1", "DWORD"},
		{"array", "[10]DWORD"},
	}, g.fields(t, "A"))

	assert.Contains(t, g.src, "SizeofA  = int(unsafe.Sizeof(A{}))")
	assert.Contains(t, g.src, "AlignofA = int(unsafe.Alignof(A{}))")
	assert.Contains(t, g.funcs, "AFromBytes")
	assert.Contains(t, g.funcs, "AFromMutBytes")
	assert.Contains(t, g.funcs, "ViewA")
	assert.NotContains(t, g.funcs, "A.String", "structs print structurally")
}

func TestNestedUnion(t *testing.T) {
	g := generate(t, "struct A { union { DWORD x; DWORD y; } u; };", Options{})

	assert.Equal(t, []string{"A", "A_U"}, g.order)
	assert.Equal(t, []field{
		{"_", "structs.HostLayout"},
		{"u", "A_U"},
	}, g.fields(t, "A"))

	// both members share one type, so one alignment marker suffices
	assert.Equal(t, []field{
		{"_", "structs.HostLayout"},
		{"_", "[0]DWORD"},
		{"raw", "[max(unsafe.Sizeof(*new(DWORD)))]byte"},
	}, g.fields(t, "A_U"))

	for _, m := range []string{"*A_U.x", "*A_U.y"} {
		fn, ok := g.funcs[m]
		require.True(t, ok, "missing %s", m)
		assert.Equal(t, "*DWORD", gotypes.ExprString(fn.Type.Results.List[0].Type))
	}
	assert.Contains(t, g.src, "return (*DWORD)(unsafe.Pointer(&u.raw))")

	assert.Contains(t, g.funcs, "A_U.String")
	assert.Contains(t, g.funcs, "A_U.GoString")
	assert.Contains(t, g.src, `return "A_U"`)
	assert.Contains(t, g.funcs, "A.Format", "u is unexported, so A prints it through A_U.String")
	assert.NotContains(t, g.funcs, "A_U.Format")
}

func TestStructsHoldingUnionsFormat(t *testing.T) {
	g := generate(t, `
struct B { union { DWORD x; DWORD y; } u; BYTE Format; };
struct Grid { B cells[2][2]; };
struct Ref { B *b; };
struct Plain { DWORD d; };
`, Options{})

	assert.Contains(t, g.funcs, "B.Format")
	assert.Contains(t, g.funcs, "Grid.Format", "arrays hold their elements by value")
	assert.NotContains(t, g.funcs, "Ref.Format", "pointers print as addresses anyway")
	assert.NotContains(t, g.funcs, "Plain.Format")

	assert.Equal(t, []field{
		{"_", "structs.HostLayout"},
		{"u", "B_U"},
		{"Format_", "BYTE"},
	}, g.fields(t, "B"))
	assert.Contains(t, g.src, `cview.Format(f, verb, "B", []cview.Field{`)
	assert.Contains(t, g.src, "Value: x.u,")
	assert.Contains(t, g.src, "Value: x.Format_,")

	fn := g.funcs["B.Format"]
	assert.Equal(t, "fmt.State", gotypes.ExprString(fn.Type.Params.List[0].Type))
	assert.Equal(t, "rune", gotypes.ExprString(fn.Type.Params.List[1].Type))
}

func TestGoNameCollisions(t *testing.T) {
	for _, tc := range []struct {
		src  string
		name string
	}{
		{"struct type { DWORD x; }; struct type_ { DWORD y; };", "type_"},
		{"struct int { DWORD x; }; struct int_ { DWORD y; };", "int_"},
		{"struct A { DWORD x; }; struct SizeofA { DWORD y; };", "SizeofA"},
		{"struct A { DWORD x; }; struct AFromBytes { DWORD y; };", "AFromBytes"},
		{"struct A { DWORD x; }; union ViewA { DWORD y; };", "ViewA"},
		{"struct A_ { DWORD x; }; struct AlignofA_ { DWORD y; };", "AlignofA_"},
	} {
		t.Run(tc.src, func(t *testing.T) {
			_, err := Generate(flattenSource(t, tc.src), Options{Package: "p"})
			require.Error(t, err)

			e, ok := tracerr.Unwrap(err).(errors.DuplicateDeclaration)
			require.True(t, ok, "unexpected error %T", tracerr.Unwrap(err))
			assert.Equal(t, tc.name, e.Name)
			assert.NotEqual(t, e.First, e.Location)
		})
	}
}

func TestGoMemberCollisions(t *testing.T) {
	for _, tc := range []struct {
		src  string
		name string
	}{
		{"struct S { DWORD func; DWORD func_; };", "func_"},
		{"union V { DWORD raw; DWORD raw_; };", "raw_"},
		{"union V { DWORD String; BYTE String_; };", "String_"},
		{"struct S { union { DWORD x; } u; DWORD Format; DWORD Format_; };", "Format_"},
	} {
		t.Run(tc.src, func(t *testing.T) {
			_, err := Generate(flattenSource(t, tc.src), Options{Package: "p"})
			require.Error(t, err)

			e, ok := tracerr.Unwrap(err).(errors.DuplicateField)
			require.True(t, ok, "unexpected error %T", tracerr.Unwrap(err))
			assert.Equal(t, tc.name, e.Name)
		})
	}
}

func TestArraySizeOutOfRange(t *testing.T) {
	_, err := Generate(flattenSource(t, "struct S { BYTE b[18446744073709551615]; };"), Options{Package: "p"})
	require.Error(t, err)

	e, ok := tracerr.Unwrap(err).(errors.InvalidInteger)
	require.True(t, ok, "unexpected error %T", tracerr.Unwrap(err))
	assert.Equal(t, "18446744073709551615", e.Lit)
	assert.Equal(t, 1, e.Location.From.Line)

	g := generate(t, "struct S { BYTE b[9223372036854775807]; };", Options{})
	assert.Equal(t, "[9223372036854775807]BYTE", g.fields(t, "S")[1].Type)
}

func TestUnionMixedMembers(t *testing.T) {
	g := generate(t, "union U { BYTE b[5]; DWORD d; QWORD *p; };", Options{})

	assert.Equal(t, []field{
		{"_", "structs.HostLayout"},
		{"_", "[0][5]BYTE"},
		{"_", "[0]DWORD"},
		{"_", "[0]*QWORD"},
		{"raw", "[max(unsafe.Sizeof(*new([5]BYTE)), unsafe.Sizeof(*new(DWORD)), unsafe.Sizeof(*new(*QWORD)))]byte"},
	}, g.fields(t, "U"))
	assert.Contains(t, g.funcs, "*U.b")
	assert.Contains(t, g.funcs, "*U.p")
}

func TestEmptyUnion(t *testing.T) {
	g := generate(t, "union E { };", Options{})

	assert.Equal(t, []field{
		{"_", "structs.HostLayout"},
		{"raw", "[0]byte"},
	}, g.fields(t, "E"))
}

func TestPointerField(t *testing.T) {
	g := generate(t, "struct A { DWORD *p; CHAR **argv; DWORD *table[4]; };", Options{})

	assert.Equal(t, []field{
		{"_", "structs.HostLayout"},
		{"p", "*DWORD"},
		{"argv", "**CHAR"},
		{"table", "[4]*DWORD"},
	}, g.fields(t, "A"))
}

func TestArrayForms(t *testing.T) {
	g := generate(t, "struct S { WCHAR path[MAX_PATH]; BYTE [2] grid[3]; BYTE h[0x10]; };", Options{})

	assert.Equal(t, []field{
		{"_", "structs.HostLayout"},
		{"path", "[MAX_PATH]WCHAR"},
		{"grid", "[3][2]BYTE"},
		{"h", "[16]BYTE"},
	}, g.fields(t, "S"))
}

func TestFieldOrderPreserved(t *testing.T) {
	g := generate(t, "struct S { BYTE z; QWORD a; WORD m; BYTE b; };", Options{})

	var names []string
	for _, f := range g.fields(t, "S") {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"_", "z", "a", "m", "b"}, names)
}

func TestEscaping(t *testing.T) {
	g := generate(t, `
struct int { DWORD type; DWORD range; };
union V { DWORD raw; DWORD String; DWORD func; };
struct W { int i; };
`, Options{})

	assert.Equal(t, []field{
		{"_", "structs.HostLayout"},
		{"type_", "DWORD"},
		{"range_", "DWORD"},
	}, g.fields(t, "int_"))
	assert.Equal(t, []field{
		{"_", "structs.HostLayout"},
		{"i", "int_"},
	}, g.fields(t, "W"))

	assert.Contains(t, g.funcs, "*V.raw_")
	assert.Contains(t, g.funcs, "*V.String_")
	assert.Contains(t, g.funcs, "*V.func_")
	assert.Contains(t, g.funcs, "V.String")
	assert.Contains(t, g.src, "int(unsafe.Sizeof(int_{}))")
}

func TestUndeclaredPredeclaredNamesPassThrough(t *testing.T) {
	g := generate(t, "struct S { uint32 a; byte b[4]; };", Options{})

	assert.Equal(t, []field{
		{"_", "structs.HostLayout"},
		{"a", "uint32"},
		{"b", "[4]byte"},
	}, g.fields(t, "S"))
}

func TestCheckedView(t *testing.T) {
	g := generate(t, "struct A { DWORD x; };", Options{})

	fn := g.funcs["ViewA"]
	require.NotNil(t, fn)
	assert.Equal(t, "[]byte", gotypes.ExprString(fn.Type.Params.List[0].Type))
	assert.Contains(t, g.src, `cview.Check(b, "A", SizeofA, AlignofA)`)
	assert.Contains(t, g.src, "return AFromMutBytes(cview.Pointer(b)), nil")

	var imports []string
	for _, imp := range g.file.Imports {
		imports = append(imports, imp.Path.Value)
	}
	assert.ElementsMatch(t, []string{`"structs"`, `"unsafe"`, `"github.com/pontaoski/c2go/cview"`}, imports)
}

func TestHeader(t *testing.T) {
	g := generate(t, "struct A { DWORD x; };", Options{Package: "defs"})
	assert.True(t, strings.HasPrefix(g.src, "// "+DefaultHeader+"\n"))
	assert.Equal(t, "defs", g.file.Name.Name)

	g = generate(t, "struct A { DWORD x; };", Options{Header: "Generated from ntdef.h."})
	assert.True(t, strings.HasPrefix(g.src, "// Generated from ntdef.h.\n"))
}

func TestAssertSizes(t *testing.T) {
	g := generate(t, `
struct A { union { DWORD x; DWORD y; } u; BYTE tail; };
struct B { MYSTERY m; };
`, Options{AssertSizes: true, Table: layout.DefaultTable()})

	fn, ok := g.funcs["_"]
	require.True(t, ok, g.src)
	body := g.src[fn.Pos()-1:]

	assert.Contains(t, body, "var x [1]struct{}")
	assert.Contains(t, body, "_ = x[SizeofA-8]")
	assert.Contains(t, body, "_ = x[AlignofA-4]")
	assert.Contains(t, body, "_ = x[SizeofA_U-4]")
	assert.NotContains(t, body, "SizeofB", "B cannot be laid out, so it gets no check")
}

func TestAssertSizesNeedsTable(t *testing.T) {
	g := generate(t, "struct A { DWORD x; };", Options{AssertSizes: true})
	assert.NotContains(t, g.funcs, "_")
}

func TestUnflattenedInputIsRejected(t *testing.T) {
	decls := []ast.Declaration{{
		Name: ast.NewID("A"),
		Fields: []ast.Field{
			{Type: ast.Union{Name: ast.NewID("u")}},
		},
	}}

	_, err := Generate(decls, Options{Package: "p"})
	assert.Error(t, err)
}

func TestMissingPackage(t *testing.T) {
	_, err := Generate(nil, Options{})
	assert.Error(t, err)
}
