// Package compiler runs declaration text through parsing, hoisting and the
// uniqueness check, then hands the flat declarations to a backend.
package compiler

import (
	"io"
	"os"

	"github.com/llir/llvm/ir"
	"github.com/sirupsen/logrus"
	"github.com/ztrue/tracerr"

	"github.com/pontaoski/c2go/ast"
	"github.com/pontaoski/c2go/gogen"
	"github.com/pontaoski/c2go/hoist"
	"github.com/pontaoski/c2go/irgen"
	"github.com/pontaoski/c2go/layout"
	"github.com/pontaoski/c2go/lexer"
	"github.com/pontaoski/c2go/parser"
)

// Source is one named input.
type Source struct {
	Name   string
	Reader io.Reader
}

type Compiler struct {
	Log   *logrus.Entry
	Table *layout.Table
}

// New returns a compiler logging to log. A nil table means
// layout.DefaultTable.
func New(log *logrus.Entry, table *layout.Table) *Compiler {
	if table == nil {
		table = layout.DefaultTable()
	}
	return &Compiler{Log: log, Table: table}
}

// Parse parses every source in order into one program. The first error
// stops everything.
func (c *Compiler) Parse(sources ...Source) (*ast.Program, error) {
	prog := &ast.Program{}
	for _, src := range sources {
		p, err := parser.Parse(lexer.NewLexer(src.Reader, src.Name))
		if err != nil {
			return nil, err
		}

		c.Log.WithFields(logrus.Fields{
			"file":         src.Name,
			"declarations": len(p.Declarations),
		}).Debug("parsed")
		prog.Declarations = append(prog.Declarations, p.Declarations...)
	}
	return prog, nil
}

// Flatten parses sources and returns the hoisted, checked declarations.
func (c *Compiler) Flatten(sources ...Source) ([]ast.Declaration, error) {
	prog, err := c.Parse(sources...)
	if err != nil {
		return nil, err
	}

	decls, err := hoist.Flatten(prog)
	if err != nil {
		return nil, err
	}
	if err := hoist.CheckUnique(decls); err != nil {
		return nil, err
	}

	if c.Log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		names := make([]string, 0, len(decls))
		for _, d := range decls {
			names = append(names, d.Name.Name)
		}
		c.Log.WithFields(logrus.Fields{
			"declarations": len(prog.Declarations),
			"hoisted":      len(decls) - len(prog.Declarations),
			"types":        names,
		}).Debug("flattened")
	}

	return decls, nil
}

// FlattenFiles is Flatten over the named files.
func (c *Compiler) FlattenFiles(paths ...string) ([]ast.Declaration, error) {
	var sources []Source
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, tracerr.Wrap(err)
		}
		defer f.Close()
		sources = append(sources, Source{Name: path, Reader: f})
	}
	return c.Flatten(sources...)
}

// Go renders decls as Go source. When opts asks for size assertions
// without a table the compiler's own is used.
func (c *Compiler) Go(decls []ast.Declaration, opts gogen.Options) ([]byte, error) {
	if opts.AssertSizes && opts.Table == nil {
		opts.Table = c.Table
	}

	out, err := gogen.Generate(decls, opts)
	if err != nil {
		return nil, err
	}

	c.Log.WithFields(logrus.Fields{
		"package": opts.Package,
		"bytes":   len(out),
	}).Debug("generated go")
	return out, nil
}

func (c *Compiler) LLVM(decls []ast.Declaration) (*ir.Module, error) {
	m, err := irgen.Generate(decls, c.Table)
	if err != nil {
		return nil, err
	}

	c.Log.WithField("types", len(m.TypeDefs)).Debug("generated llvm")
	return m, nil
}

func (c *Compiler) Layout(decls []ast.Declaration) (map[string]*layout.Info, error) {
	return layout.Compute(decls, c.Table)
}
