// Package errors holds the diagnostics produced while compiling declarations.
// Every error carries the source span it refers to when one is known.
package errors

import (
	"fmt"
	"strings"

	"github.com/pontaoski/c2go/types"
)

type ExpectedOneOfKindGotKind struct {
	Expected []types.TokenKind
	Got      types.TokenKind
	Lit      string
	Location types.Span
}

func (e ExpectedOneOfKindGotKind) Error() string {
	if e.Lit != "" && e.Got != types.EOF {
		return fmt.Sprintf("got a %s %q, expected one of %s. %s", e.Got, e.Lit, e.Expected, e.Location)
	}
	return fmt.Sprintf("got a %s, expected one of %s. %s", e.Got, e.Expected, e.Location)
}

type InvalidInteger struct {
	Lit      string
	Location types.Span
}

func (e InvalidInteger) Error() string {
	return fmt.Sprintf("invalid integer literal %q. %s", e.Lit, e.Location)
}

// StructuralError reports a field whose shape the hoister cannot flatten.
type StructuralError struct {
	Declaration string
	Field       string
	Reason      string
	Location    types.Span
}

func (e StructuralError) Error() string {
	field := e.Field
	if field == "" {
		field = "<anonymous>"
	}
	return fmt.Sprintf("%s.%s: %s. %s", e.Declaration, field, e.Reason, e.Location)
}

type DuplicateDeclaration struct {
	Name     string
	First    types.Span
	Location types.Span
}

func (e DuplicateDeclaration) Error() string {
	return fmt.Sprintf("type %s declared more than once (first at %s). %s", e.Name, e.First, e.Location)
}

type DuplicateField struct {
	Declaration string
	Name        string
	Location    types.Span
}

func (e DuplicateField) Error() string {
	return fmt.Sprintf("field %s specified more than once in %s. %s", e.Name, e.Declaration, e.Location)
}

type UnknownType struct {
	Name     string
	Location types.Span
}

func (e UnknownType) Error() string {
	return fmt.Sprintf("no layout known for type %s. %s", e.Name, e.Location)
}

type CyclicLayout struct {
	Path []string
}

func (e CyclicLayout) Error() string {
	return fmt.Sprintf("type contains itself by value: %s", strings.Join(e.Path, " -> "))
}

type UnresolvedConstant struct {
	Name     string
	Location types.Span
}

func (e UnresolvedConstant) Error() string {
	return fmt.Sprintf("array size %s has no value in the constants table. %s", e.Name, e.Location)
}

// UnterminatedComment is a /* comment still open at end of input. Location
// runs from the opening /* to the end of input.
type UnterminatedComment struct {
	Location types.Span
}

func (e UnterminatedComment) Error() string {
	return fmt.Sprintf("comment starting at %d:%d is never closed. %s", e.Location.From.Line, e.Location.From.Column, e.Location)
}
