package irgen

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"

	"github.com/pontaoski/c2go/ast"
	"github.com/pontaoski/c2go/layout"
	"github.com/pontaoski/c2go/reader"
)

// TypeInfoSymbol names the global holding a module's layout table.
const TypeInfoSymbol = "__c2go_layout"

type TypeInfo struct {
	Types map[string]*TypeLayout `json:"types"`
}

type TypeLayout struct {
	Kind string `json:"kind"`
	*layout.Info
}

func newTypeInfo(decls []ast.Declaration, infos map[string]*layout.Info) TypeInfo {
	t := TypeInfo{Types: make(map[string]*TypeLayout, len(decls))}
	for _, d := range decls {
		t.Types[d.Name.Name] = &TypeLayout{Kind: d.Kind.String(), Info: infos[d.Name.Name]}
	}
	return t
}

func registerTypeInfoWithModule(t TypeInfo, m *ir.Module) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}

	g := m.NewGlobalDef(TypeInfoSymbol, constant.NewCharArray(append(data, 0)))
	g.Immutable = true
	return nil
}

// ParseTypeInfo decodes a layout table, ignoring a trailing NUL.
func ParseTypeInfo(data []byte) (t TypeInfo, err error) {
	err = json.Unmarshal(bytes.TrimRight(data, "\x00"), &t)
	return
}

// ModuleTypeInfo reads the layout table back out of a generated module.
func ModuleTypeInfo(m *ir.Module) (TypeInfo, error) {
	for _, g := range m.Globals {
		if g.Name() != TypeInfoSymbol {
			continue
		}
		arr, ok := g.Init.(*constant.CharArray)
		if !ok {
			return TypeInfo{}, fmt.Errorf("%s is a %T, not a character array", TypeInfoSymbol, g.Init)
		}
		return ParseTypeInfo(arr.X)
	}
	return TypeInfo{}, fmt.Errorf("module has no %s global", TypeInfoSymbol)
}

// ReadTypeInfo loads the layout table of a compiled shared object.
func ReadTypeInfo(path string) (TypeInfo, error) {
	data, err := reader.ReadSymbolString(path, TypeInfoSymbol)
	if err != nil {
		return TypeInfo{}, err
	}
	return ParseTypeInfo([]byte(data))
}
