// Command adtgen generates closed sum types from a small ADT description.
//
//	type Type =
//		| Struct of Aggregate
//		| Ident of Identifier
//		;
//
// becomes an interface with an unexported marker method plus one named type
// per case. A case whose payload is itself a sum type embeds it.
//
// Usage: adtgen <in.adt> <out.go> <package>
package main

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/participle"
	"github.com/dave/jennifer/jen"
)

type adtFile struct {
	Decls []*adtDecl `@@*`
}

type adtCase struct {
	Name string `@Ident "of"`
	Of   string `(@Ident | @String | @RawString)`
}

// adtDecl is either a plain named type (Alias) or a sum over Cases.
type adtDecl struct {
	Name  string     `"type" @Ident "="`
	Alias *string    `(  (@Ident | @String | @RawString)`
	Cases []*adtCase ` | ("|" @@)+ )`
	End   struct{}   `";"`
}

var parser = participle.MustBuild(&adtFile{})

func parse(source string, data []byte) (*adtFile, error) {
	file := &adtFile{}
	if err := parser.ParseBytes(data, file); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	if err := file.check(); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return file, nil
}

// check rejects names declared twice, either as types or as cases, since
// both end up as Go types in one package.
func (f *adtFile) check() error {
	seen := map[string]string{}
	claim := func(name, what string) error {
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("%s %s already declared as %s", what, name, prev)
		}
		seen[name] = what
		return nil
	}

	for _, d := range f.Decls {
		if err := claim(d.Name, "type"); err != nil {
			return err
		}
	}
	for _, d := range f.Decls {
		for _, c := range d.Cases {
			if err := claim(c.Name, "case of "+d.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *adtFile) sumTypes() map[string]bool {
	ret := map[string]bool{}
	for _, d := range f.Decls {
		if len(d.Cases) > 0 {
			ret[d.Name] = true
		}
	}
	return ret
}

func caseList(cases []*adtCase) string {
	names := make([]string, len(cases))
	for i, c := range cases {
		names[i] = c.Name
	}
	if len(names) == 1 {
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " or " + names[len(names)-1]
}

// generate renders f as Go source for package pkgname.
func generate(source, pkgname string, f *adtFile) ([]byte, error) {
	out := jen.NewFile(pkgname)
	out.HeaderComment(fmt.Sprintf("Code generated by adtgen from %s. DO NOT EDIT.", source))

	sums := f.sumTypes()
	for _, d := range f.Decls {
		if d.Alias != nil {
			out.Type().Id(d.Name).Id(*d.Alias)
			continue
		}

		marker := "is_" + d.Name
		out.Commentf("%s is one of %s.", d.Name, caseList(d.Cases))
		out.Type().Id(d.Name).Interface(jen.Id(marker).Params())

		for _, c := range d.Cases {
			if sums[c.Of] {
				out.Type().Id(c.Name).Struct(jen.Id(c.Of))
			} else {
				out.Type().Id(c.Name).Id(c.Of)
			}
			out.Func().Params(jen.Id("v").Id(c.Name)).Id(marker).Params().Block()
		}
	}

	var buf bytes.Buffer
	if err := out.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func run(in, out, pkgname string) error {
	data, err := ioutil.ReadFile(in)
	if err != nil {
		return err
	}

	file, err := parse(filepath.Base(in), data)
	if err != nil {
		return err
	}

	src, err := generate(filepath.Base(in), pkgname, file)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(out, src, 0644)
}

func main() {
	if len(os.Args) != 4 {
		fmt.Fprintf(os.Stderr, "usage: %s <in.adt> <out.go> <package>\n", os.Args[0])
		os.Exit(2)
	}

	if err := run(os.Args[1], os.Args[2], os.Args[3]); err != nil {
		fmt.Fprintf(os.Stderr, "adtgen: %s\n", err)
		os.Exit(1)
	}
}
