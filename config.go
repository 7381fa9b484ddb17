package main

import (
	"io/ioutil"
	"os"

	"github.com/ztrue/tracerr"
	"gopkg.in/yaml.v2"

	"github.com/pontaoski/c2go/layout"
)

const configFile = "c2go.yaml"

type projectConfig struct {
	Package     string   `yaml:"package"`
	Output      string   `yaml:"output,omitempty"`
	Inputs      []string `yaml:"inputs,omitempty"`
	AssertSizes bool     `yaml:"assert_sizes,omitempty"`

	PointerSize  int                         `yaml:"pointer_size,omitempty"`
	PointerAlign int                         `yaml:"pointer_align,omitempty"`
	Primitives   map[string]layout.Primitive `yaml:"primitives,omitempty"`
	Constants    map[string]uint64           `yaml:"constants,omitempty"`
}

// loadConfig reads path. A missing file is only an error when required.
func loadConfig(path string, required bool) (projectConfig, error) {
	var doc projectConfig

	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) && !required {
		return doc, nil
	}
	if err != nil {
		return doc, tracerr.Wrap(err)
	}

	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return doc, tracerr.Errorf("reading %s: %w", path, err)
	}
	return doc, nil
}

func writeConfig(path string, doc projectConfig) error {
	out, err := yaml.Marshal(doc)
	if err != nil {
		return tracerr.Wrap(err)
	}
	return tracerr.Wrap(ioutil.WriteFile(path, out, 0644))
}

// table is the default layout table with the project's overrides applied.
func (p projectConfig) table() *layout.Table {
	t := layout.DefaultTable()
	t.Merge(&layout.Table{
		Primitives:   p.Primitives,
		Constants:    p.Constants,
		PointerSize:  p.PointerSize,
		PointerAlign: p.PointerAlign,
	})
	return t
}
