// Package hoist flattens nested anonymous aggregates into named top-level
// declarations.
package hoist

import (
	"strings"

	"github.com/ztrue/tracerr"

	"github.com/pontaoski/c2go/ast"
	"github.com/pontaoski/c2go/errors"
)

// SynthesizeName derives the name of a hoisted member type.
func SynthesizeName(parent, member string) string {
	return parent + "_" + strings.ToUpper(member)
}

// Flatten returns every declaration of p, plus one declaration per anonymous
// aggregate at any depth. None of the results has an aggregate field type;
// each hoisted member is rewritten to reference its synthesized type by name.
//
// Declarations are processed from a stack, so the output is in pop order:
// the last top-level declaration comes first, and the types hoisted out of a
// declaration follow it, last member first.
func Flatten(p *ast.Program) ([]ast.Declaration, error) {
	pending := make([]ast.Declaration, len(p.Declarations))
	copy(pending, p.Declarations)

	var out []ast.Declaration
	for len(pending) > 0 {
		decl := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		fields := make([]ast.Field, 0, len(decl.Fields))
		for _, field := range decl.Fields {
			rewritten, nested, err := flattenField(decl, field)
			if err != nil {
				return nil, tracerr.Wrap(err)
			}
			if nested != nil {
				pending = append(pending, *nested)
			}
			fields = append(fields, rewritten)
		}

		decl.Fields = fields
		out = append(out, decl)
	}

	return out, nil
}

func flattenField(parent ast.Declaration, field ast.Field) (ast.Field, *ast.Declaration, error) {
	if field.Anonymous() {
		nested, ok := ast.DeclarationOf(field.Type)
		if !ok {
			return field, nil, errors.StructuralError{
				Declaration: parent.Name.Name,
				Reason:      "member without a name must be a struct or union, got " + describe(field.Type),
				Location:    parent.Name.Pos,
			}
		}

		member := nested.Name
		nested.Name = ast.Identifier{
			Name: SynthesizeName(parent.Name.Name, member.Name),
			Pos:  member.Pos,
		}

		return ast.Field{
			Name: &member,
			Type: ast.Ident(nested.Name),
		}, &nested, nil
	}

	if reason := checkNamed(field.Type); reason != "" {
		return field, nil, errors.StructuralError{
			Declaration: parent.Name.Name,
			Field:       field.Name.Name,
			Reason:      reason,
			Location:    field.Name.Pos,
		}
	}

	return field, nil, nil
}

// checkNamed reports why t cannot be the type of a named member, or "".
func checkNamed(t ast.Type) string {
	switch v := t.(type) {
	case ast.Ident, ast.Pointer:
		return ""
	case ast.Array:
		switch v.Size.(type) {
		case ast.Ident, ast.Number:
		default:
			return "array size must be an integer or identifier, got " + describe(v.Size)
		}
		return checkNamed(v.Elem)
	}

	return "named member cannot have type " + describe(t)
}

func describe(t ast.Type) string {
	switch t.(type) {
	case nil:
		return "nothing"
	case ast.Number:
		return "integer literal " + ast.TypeString(t)
	case ast.Struct:
		return "nested struct"
	case ast.Union:
		return "nested union"
	}
	return ast.TypeString(t)
}

// CheckUnique rejects declaration sets where a name, user-given or
// synthesized, is declared twice, or where one declaration repeats a member.
func CheckUnique(decls []ast.Declaration) error {
	seen := map[string]ast.Identifier{}
	for _, decl := range decls {
		if first, ok := seen[decl.Name.Name]; ok {
			return tracerr.Wrap(errors.DuplicateDeclaration{
				Name:     decl.Name.Name,
				First:    first.Pos,
				Location: decl.Name.Pos,
			})
		}
		seen[decl.Name.Name] = decl.Name

		members := map[string]bool{}
		for _, field := range decl.Fields {
			name := field.MemberName()
			if members[name] {
				loc := decl.Name.Pos
				if field.Name != nil {
					loc = field.Name.Pos
				}
				return tracerr.Wrap(errors.DuplicateField{
					Declaration: decl.Name.Name,
					Name:        name,
					Location:    loc,
				})
			}
			members[name] = true
		}
	}

	return nil
}
