package irgen

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ztrue/tracerr"

	"github.com/pontaoski/c2go/ast"
	"github.com/pontaoski/c2go/errors"
	"github.com/pontaoski/c2go/hoist"
	"github.com/pontaoski/c2go/layout"
	"github.com/pontaoski/c2go/parser"
)

func flatten(t *testing.T, src string) []ast.Declaration {
	t.Helper()

	prog, err := parser.ParseString(src, "test.h")
	require.NoError(t, err)
	decls, err := hoist.Flatten(prog)
	require.NoError(t, err)
	return decls
}

func generate(t *testing.T, src string) *ir.Module {
	t.Helper()

	m, err := Generate(flatten(t, src), layout.DefaultTable())
	require.NoError(t, err)
	return m
}

func typeDef(t *testing.T, m *ir.Module, name string) *types.StructType {
	t.Helper()

	for _, td := range m.TypeDefs {
		if td.Name() == name {
			st, ok := td.(*types.StructType)
			require.True(t, ok, "%s is a %T", name, td)
			return st
		}
	}
	require.FailNow(t, "missing type", name)
	return nil
}

func TestScalarAndArray(t *testing.T) {
	m := generate(t, "struct A { DWORD var1; DWORD array[10]; };")

	a := typeDef(t, m, "A")
	require.Len(t, a.Fields, 2)
	assert.True(t, a.Fields[0].Equal(types.I32))
	assert.True(t, a.Fields[1].Equal(types.NewArray(10, types.I32)))
}

func TestTypeDefsFollowDeclarationOrder(t *testing.T) {
	m := generate(t, "struct A { union { DWORD x; DWORD y; } u; BYTE b; };")

	var names []string
	for _, td := range m.TypeDefs {
		names = append(names, td.Name())
	}
	assert.Equal(t, []string{"A", "A_U"}, names)
}

func TestForwardReference(t *testing.T) {
	m := generate(t, `
struct Outer { BYTE tag; Inner in; Inner *next; };
struct Inner { WORD a; QWORD b; };
`)

	outer := typeDef(t, m, "Outer")
	inner := typeDef(t, m, "Inner")
	require.Len(t, outer.Fields, 3)
	assert.Same(t, inner, outer.Fields[1])

	ptr, ok := outer.Fields[2].(*types.PointerType)
	require.True(t, ok)
	assert.Same(t, inner, ptr.ElemType)
}

func TestUnionLowering(t *testing.T) {
	for _, tc := range []struct {
		src    string
		fields []types.Type
	}{
		{"union S { BYTE c[5]; DWORD i; };", []types.Type{types.I32, types.NewArray(4, types.I8)}},
		{"union S { DWORD i; QWORD q; };", []types.Type{types.I64}},
		{"union S { WORD w; BYTE b[2]; };", []types.Type{types.I16}},
		{"union S { BYTE b; };", []types.Type{types.I8}},
		{"union S { };", nil},
	} {
		t.Run(tc.src, func(t *testing.T) {
			s := typeDef(t, generate(t, tc.src), "S")
			require.Len(t, s.Fields, len(tc.fields))
			for i, want := range tc.fields {
				assert.True(t, want.Equal(s.Fields[i]), "field %d is %s, want %s", i, s.Fields[i], want)
			}
		})
	}
}

func TestPointers(t *testing.T) {
	m := generate(t, "struct A { DWORD *p; MYSTERY **q; A *self; };")

	a := typeDef(t, m, "A")
	assert.True(t, a.Fields[0].Equal(types.NewPointer(types.I32)))
	assert.True(t, a.Fields[1].Equal(types.NewPointer(types.NewPointer(types.I8))), "unknown targets point at bytes")
	assert.Same(t, a, a.Fields[2].(*types.PointerType).ElemType)
}

func TestFloats(t *testing.T) {
	m := generate(t, "struct F { float f; double d; };")

	f := typeDef(t, m, "F")
	assert.True(t, f.Fields[0].Equal(types.Float))
	assert.True(t, f.Fields[1].Equal(types.Double))
}

func TestUnknownType(t *testing.T) {
	_, err := Generate(flatten(t, "struct A { MYSTERY m; };"), layout.DefaultTable())
	require.Error(t, err)

	e, ok := tracerr.Unwrap(err).(errors.UnknownType)
	require.True(t, ok, "unexpected error %T", tracerr.Unwrap(err))
	assert.Equal(t, "MYSTERY", e.Name)
}

func TestNamedArraySizes(t *testing.T) {
	decls := flatten(t, "struct P { WCHAR path[MAX_PATH]; };")

	_, err := Generate(decls, layout.DefaultTable())
	require.Error(t, err)
	_, ok := tracerr.Unwrap(err).(errors.UnresolvedConstant)
	assert.True(t, ok, "unexpected error %T", tracerr.Unwrap(err))

	table := layout.DefaultTable()
	table.Merge(&layout.Table{Constants: map[string]uint64{"MAX_PATH": 260}})
	m, err := Generate(decls, table)
	require.NoError(t, err)
	assert.True(t, typeDef(t, m, "P").Fields[0].Equal(types.NewArray(260, types.I16)))
}

func TestEmbeddedTypeInfo(t *testing.T) {
	m := generate(t, "struct A { DWORD var1; DWORD array[10]; }; union U { BYTE c[5]; DWORD i; };")

	info, err := ModuleTypeInfo(m)
	require.NoError(t, err)
	require.Len(t, info.Types, 2)

	a := info.Types["A"]
	require.NotNil(t, a)
	assert.Equal(t, "struct", a.Kind)
	assert.Equal(t, 44, a.Size)
	assert.Equal(t, 4, a.Align)
	require.Len(t, a.Fields, 2)
	assert.Equal(t, "array", a.Fields[1].Name)
	assert.Equal(t, 4, a.Fields[1].Offset)

	u := info.Types["U"]
	assert.Equal(t, "union", u.Kind)
	assert.Equal(t, 8, u.Size)

	assert.Contains(t, m.String(), "@"+TypeInfoSymbol)
}

func TestModuleWithoutTypeInfo(t *testing.T) {
	_, err := ModuleTypeInfo(ir.NewModule())
	assert.Error(t, err)
}

func TestParseTypeInfoIgnoresTerminator(t *testing.T) {
	info, err := ParseTypeInfo([]byte(`{"types":{"A":{"kind":"struct","size":4,"align":4,"fields":[]}}}` + "\x00"))
	require.NoError(t, err)
	assert.Equal(t, 4, info.Types["A"].Size)
}
