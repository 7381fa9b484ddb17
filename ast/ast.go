// Package ast is the type tree built from declaration text.
//
// Type is a closed sum over Struct, Union, Ident, Pointer, Array and Number;
// see ast.adt. Aggregates own their fields and nested aggregates own their
// own sub-trees.
package ast

import "github.com/pontaoski/c2go/types"

//go:generate go run ../cmd/adtgen ast.adt ast_gen.go ast

type Identifier struct {
	Name string
	Pos  types.Span
}

func NewID(name string) Identifier {
	return Identifier{Name: name}
}

// Aggregate is the body of a struct or union. For a nested anonymous member
// Name is the member's instance name until the hoister renames it.
type Aggregate struct {
	Name   Identifier
	Fields []Field
}

type PointerType struct {
	Depth  int
	Target Identifier
}

// ArrayType is Elem repeated Size times. Size is an Ident or a Number;
// identifiers are left for the host to resolve.
type ArrayType struct {
	Elem Type
	Size Type
	Pos  types.Span
}

type Integer struct {
	Value uint64
	Lit   string
	Pos   types.Span
}

// Field is one member. A nil Name marks an anonymous aggregate member whose
// Type is a Struct or Union.
type Field struct {
	Name *Identifier
	Type Type
}

func (f Field) Anonymous() bool {
	return f.Name == nil
}

// MemberName is the name used to access the field from its parent.
func (f Field) MemberName() string {
	if f.Name != nil {
		return f.Name.Name
	}
	switch t := f.Type.(type) {
	case Struct:
		return t.Name.Name
	case Union:
		return t.Name.Name
	}
	return ""
}

type Kind int

const (
	KindStruct Kind = iota
	KindUnion
)

func (k Kind) String() string {
	if k == KindUnion {
		return "union"
	}
	return "struct"
}

type Declaration struct {
	Name   Identifier
	Kind   Kind
	Fields []Field
}

// DeclarationOf converts a nested aggregate node into a declaration.
func DeclarationOf(t Type) (Declaration, bool) {
	switch v := t.(type) {
	case Struct:
		return Declaration{Name: v.Name, Kind: KindStruct, Fields: v.Fields}, true
	case Union:
		return Declaration{Name: v.Name, Kind: KindUnion, Fields: v.Fields}, true
	}
	return Declaration{}, false
}

type Program struct {
	Declarations []Declaration
}
