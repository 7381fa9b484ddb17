package main

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"os/exec"
	"strings"
	"text/tabwriter"

	"github.com/alecthomas/repr"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"github.com/ztrue/tracerr"

	"github.com/pontaoski/c2go/ast"
	"github.com/pontaoski/c2go/compiler"
	"github.com/pontaoski/c2go/gogen"
	"github.com/pontaoski/c2go/irgen"
)

// project loads the config named by --config and the declarations of the
// inputs given as arguments, falling back to the config's inputs.
func project(c *cli.Context) (projectConfig, *compiler.Compiler, []ast.Declaration, error) {
	doc, err := loadConfig(c.String("config"), c.IsSet("config"))
	if err != nil {
		return doc, nil, nil, err
	}

	inputs := c.Args().Slice()
	if len(inputs) == 0 {
		inputs = doc.Inputs
	}
	if len(inputs) == 0 {
		return doc, nil, nil, fmt.Errorf("no input files given and %s lists none", c.String("config"))
	}

	comp := compiler.New(logrus.WithField("cmd", c.Command.Name), doc.table())
	decls, err := comp.FlattenFiles(inputs...)
	if err != nil {
		return doc, nil, nil, err
	}

	if c.Bool("dump") {
		repr.Println(decls)
	}
	return doc, comp, decls, nil
}

func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return tracerr.Wrap(ioutil.WriteFile(path, data, 0644))
}

func main() {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   configFile,
		Usage:   "project configuration",
	}
	dumpFlag := &cli.BoolFlag{
		Name:  "dump",
		Usage: "print the flattened declarations",
	}

	app := &cli.App{
		Name:  "c2go",
		Usage: "generate layout-compatible Go types from C struct and union declarations",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				logrus.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
		ExitErrHandler: func(context *cli.Context, err error) {
			if err == nil {
				return
			}
			if context.Bool("verbose") {
				tracerr.PrintSourceColor(err)
			} else {
				fmt.Fprintln(os.Stderr, "c2go:", err)
			}
			os.Exit(1)
		},
		Commands: []*cli.Command{
			{
				Name:      "init",
				Usage:     "write a c2go.yaml for a package",
				ArgsUsage: "<package>",
				Action: func(c *cli.Context) error {
					name := c.Args().First()
					if name == "" {
						return fmt.Errorf("no package name provided")
					}
					if _, err := os.Stat(configFile); err == nil {
						return fmt.Errorf("%s already exists", configFile)
					}

					return writeConfig(configFile, projectConfig{
						Package: name,
						Output:  "zdefs.go",
						Inputs:  []string{name + ".h"},
					})
				},
			},
			{
				Name:      "gen",
				Usage:     "generate Go source",
				ArgsUsage: "[inputs...]",
				Flags: []cli.Flag{
					configFlag,
					dumpFlag,
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}},
					&cli.StringFlag{Name: "package", Aliases: []string{"p"}},
					&cli.BoolFlag{Name: "assert-sizes", Usage: "emit compile-time layout checks"},
				},
				Action: func(c *cli.Context) error {
					doc, comp, decls, err := project(c)
					if err != nil {
						return err
					}

					opts := gogen.Options{
						Package:     doc.Package,
						AssertSizes: doc.AssertSizes || c.Bool("assert-sizes"),
					}
					if c.IsSet("package") {
						opts.Package = c.String("package")
					}

					out, err := comp.Go(decls, opts)
					if err != nil {
						return err
					}

					path := doc.Output
					if c.IsSet("output") {
						path = c.String("output")
					}
					return writeOutput(path, out)
				},
			},
			{
				Name:      "llvm",
				Usage:     "generate LLVM IR, or a shared object carrying the layout table",
				ArgsUsage: "[inputs...]",
				Flags: []cli.Flag{
					configFlag,
					dumpFlag,
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}},
					&cli.BoolFlag{Name: "shared", Usage: "compile with clang into a shared object"},
				},
				Action: func(c *cli.Context) error {
					_, comp, decls, err := project(c)
					if err != nil {
						return err
					}

					module, err := comp.LLVM(decls)
					if err != nil {
						return err
					}
					if !c.Bool("shared") {
						return writeOutput(c.String("output"), []byte(module.String()))
					}

					out := c.String("output")
					if out == "" {
						return fmt.Errorf("--shared needs --output")
					}

					fi, err := ioutil.TempFile("", "*.ll")
					if err != nil {
						return err
					}
					defer os.Remove(fi.Name())
					defer fi.Close()
					if _, err := io.Copy(fi, strings.NewReader(module.String())); err != nil {
						return err
					}

					cmd := exec.Command("clang", "-shared", "-nostdlib", "-o", out, fi.Name())
					cmd.Stdout = os.Stdout
					cmd.Stderr = os.Stderr
					return tracerr.Wrap(cmd.Run())
				},
			},
			{
				Name:      "layout",
				Usage:     "print C sizes, alignments and field offsets",
				ArgsUsage: "[inputs...]",
				Flags:     []cli.Flag{configFlag, dumpFlag},
				Action: func(c *cli.Context) error {
					_, comp, decls, err := project(c)
					if err != nil {
						return err
					}

					infos, err := comp.Layout(decls)
					if err != nil {
						return err
					}

					w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
					for _, d := range decls {
						info := infos[d.Name.Name]
						fmt.Fprintf(w, "%s %s\tsize %d\talign %d\n", d.Kind, d.Name.Name, info.Size, info.Align)
						for _, f := range info.Fields {
							fmt.Fprintf(w, "  +%d\t%s\t%s\n", f.Offset, f.Name, f.Type)
						}
					}
					return w.Flush()
				},
			},
			{
				Name:      "typeinfo",
				Usage:     "dump the layout table embedded in a compiled module",
				ArgsUsage: "<lib.so>",
				Action: func(c *cli.Context) error {
					file := c.Args().Get(0)
					if file == "" {
						return fmt.Errorf("no library given")
					}
					data, err := irgen.ReadTypeInfo(file)
					if err != nil {
						return err
					}
					repr.Println(data)
					return nil
				},
			},
		},
	}
	app.Run(os.Args)
}
