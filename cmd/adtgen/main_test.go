package main

import (
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, src string) string {
	t.Helper()

	file, err := parse("x.adt", []byte(src))
	require.NoError(t, err)
	out, err := generate("x.adt", "x", file)
	require.NoError(t, err)
	return string(out)
}

func TestGenerateSumType(t *testing.T) {
	out := render(t, `
type Type =
	| Struct of Aggregate
	| Ident of Identifier
	;
`)

	assert.True(t, strings.HasPrefix(out, "// Code generated by adtgen from x.adt. DO NOT EDIT."))
	assert.Contains(t, out, "package x")
	assert.Contains(t, out, "// Type is one of Struct or Ident.\ntype Type interface {\n\tis_Type()\n}")
	assert.Contains(t, out, "type Struct Aggregate")
	assert.Contains(t, out, "func (v Struct) is_Type() {}")
	assert.Contains(t, out, "type Ident Identifier")
}

func TestCaseList(t *testing.T) {
	out := render(t, "type T = | A of int | B of int | C of int ;")
	assert.Contains(t, out, "// T is one of A, B or C.")
}

func TestGenerateNestedSumTypeEmbeds(t *testing.T) {
	out := render(t, `
type Inner = | A of int ;
type Outer = | Wrap of Inner ;
`)

	assert.Contains(t, out, "type Wrap struct {\n\tInner\n}")
}

func TestGeneratePlainAlias(t *testing.T) {
	out := render(t, `type Size = uint64;`)

	assert.Contains(t, out, "type Size uint64")
	assert.NotContains(t, out, "is_Size")
}

func TestRejects(t *testing.T) {
	for _, src := range []string{
		"type T = | A of int ; type T = uint64 ;",
		"type T = | A of int | A of uint ;",
		"type T = | A of int ; type U = | A of int ;",
		"type T = | T of int ;",
		"type T = ;",
		"type T = | A int ;",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := parse("x.adt", []byte(src))
			assert.Error(t, err)
		})
	}
}

func TestRunWritesFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "ast.adt")
	out := filepath.Join(dir, "ast_gen.go")
	require.NoError(t, ioutil.WriteFile(in, []byte("type Type = | Number of Integer ;"), 0644))

	require.NoError(t, run(in, out, "ast"))

	data, err := ioutil.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "from ast.adt")
	assert.Contains(t, string(data), "type Number Integer")
}

func TestRunReportsSource(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "bad.adt")
	require.NoError(t, ioutil.WriteFile(in, []byte("type = ;"), 0644))

	err := run(in, filepath.Join(dir, "out.go"), "ast")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.adt")
}
