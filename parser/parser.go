package parser

import (
	"strconv"
	"strings"

	"github.com/ztrue/tracerr"

	"github.com/pontaoski/c2go/ast"
	"github.com/pontaoski/c2go/errors"
	"github.com/pontaoski/c2go/lexer"
	"github.com/pontaoski/c2go/types"
)

type Parser struct {
	l   *lexer.Lexer
	ast ast.Program
}

func NewParser(l *lexer.Lexer) Parser {
	return Parser{l: l}
}

// Parse parses one program from l. Any unexpected token aborts the whole
// parse; no partial program is returned.
func Parse(l *lexer.Lexer) (*ast.Program, error) {
	p := NewParser(l)
	if err := p.Parse(); err != nil {
		return nil, err
	}
	return &p.ast, nil
}

func ParseString(src, filename string) (*ast.Program, error) {
	return Parse(lexer.NewLexer(strings.NewReader(src), filename))
}

func (p *Parser) Program() *ast.Program {
	return &p.ast
}

func (p *Parser) Parse() (err error) {
	defer func() {
		if r := recover(); r != nil {
			rerr, ok := r.(error)
			if ok {
				p.ast = ast.Program{}
				err = tracerr.Wrap(rerr)
			} else {
				panic(r)
			}
		}
	}()

	for !p.l.PeekIs(types.EOF) {
		p.ast.Declarations = append(p.ast.Declarations, p.parseDeclaration())
	}

	return nil
}

func kindOf(tok types.Token) ast.Kind {
	if tok.Kind == types.UNION {
		return ast.KindUnion
	}
	return ast.KindStruct
}

func identAt(tok types.Token, lit string) ast.Identifier {
	return ast.Identifier{Name: lit, Pos: tok.Location}
}

// ("struct" | "union") IDENT "{" field* "}" ";"
func (p *Parser) parseDeclaration() ast.Declaration {
	kw, _ := p.l.LexExpecting(types.STRUCT, types.UNION)
	tok, name := p.l.LexExpecting(types.IDENT)

	fields := p.parseFields()
	p.l.LexExpecting(types.EOS)

	return ast.Declaration{
		Name:   identAt(tok, name),
		Kind:   kindOf(kw),
		Fields: fields,
	}
}

// parseFields expects to be positioned at the opening brace and consumes
// through the closing one.
func (p *Parser) parseFields() (fields []ast.Field) {
	p.l.LexExpecting(types.LBRACE)

	for !p.l.PeekIs(types.RBRACE) {
		fields = append(fields, p.parseField())
	}

	p.l.LexExpecting(types.RBRACE)
	return
}

func (p *Parser) parseField() ast.Field {
	if p.l.PeekIs(types.STRUCT, types.UNION) {
		return p.parseNestedField()
	}

	tok, lit := p.l.LexExpecting(types.IDENT)
	var kind ast.Type = ast.Ident(identAt(tok, lit))

	// T [N] name
	if p.l.PeekIs(types.LBRACK) {
		kind = p.parseArray(kind)
	}

	// a pointer to an array has no spelling without parens, so stars
	// after a bracket fall through to the identifier check below
	if _, isArray := kind.(ast.Array); !isArray {
		depth := 0
		for p.l.PeekIs(types.STAR) {
			p.l.LexExpecting(types.STAR)
			depth++
		}
		if depth > 0 {
			kind = ast.Pointer{Depth: depth, Target: ast.Identifier(kind.(ast.Ident))}
		}
	}

	nameTok, name := p.l.LexExpecting(types.IDENT)
	id := identAt(nameTok, name)

	// T name [N]
	if p.l.PeekIs(types.LBRACK) {
		kind = p.parseArray(kind)
	}

	p.l.LexExpecting(types.EOS)

	return ast.Field{Name: &id, Type: kind}
}

// ("struct" | "union") "{" field* "}" IDENT ";"
func (p *Parser) parseNestedField() ast.Field {
	kw, _ := p.l.LexExpecting(types.STRUCT, types.UNION)
	fields := p.parseFields()
	tok, name := p.l.LexExpecting(types.IDENT)
	p.l.LexExpecting(types.EOS)

	agg := ast.Aggregate{Name: identAt(tok, name), Fields: fields}
	if kindOf(kw) == ast.KindUnion {
		return ast.Field{Type: ast.Union(agg)}
	}
	return ast.Field{Type: ast.Struct(agg)}
}

// parseArray wraps elem in one "[" (INT | IDENT) "]" suffix.
func (p *Parser) parseArray(elem ast.Type) ast.Type {
	open, _ := p.l.LexExpecting(types.LBRACK)
	tok, lit := p.l.LexExpecting(types.INT, types.IDENT)
	end, _ := p.l.LexExpecting(types.RBRACK)

	var size ast.Type
	switch tok.Kind {
	case types.INT:
		size = parseInteger(tok, lit)
	case types.IDENT:
		size = ast.Ident(identAt(tok, lit))
	}

	return ast.Array{
		Elem: elem,
		Size: size,
		Pos:  types.Span{From: open.Location.From, To: end.Location.To},
	}
}

func parseInteger(tok types.Token, lit string) ast.Number {
	digits := strings.TrimRight(lit, "uUlL")
	value, err := strconv.ParseUint(digits, 0, 64)
	if err != nil || digits == "" {
		panic(errors.InvalidInteger{Lit: lit, Location: tok.Location})
	}

	return ast.Number{Value: value, Lit: lit, Pos: tok.Location}
}
