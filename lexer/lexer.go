package lexer

import (
	"bufio"
	"io"
	"strings"
	"unicode"

	"github.com/pontaoski/c2go/errors"
	"github.com/pontaoski/c2go/types"
)

var keywords = map[string]types.TokenKind{
	"struct": types.STRUCT,
	"union":  types.UNION,
}

var punctuation = map[rune]types.TokenKind{
	'{': types.LBRACE,
	'}': types.RBRACE,
	'[': types.LBRACK,
	']': types.RBRACK,
	'*': types.STAR,
	';': types.EOS,
}

// Lexer turns declaration text into tokens. Failures reading the underlying
// reader, unterminated comments and unexpected tokens in LexExpecting are
// raised by panicking; the parser recovers them into errors.
type Lexer struct {
	pos          types.Position
	reader       *bufio.Reader
	peeked       *types.Token
	peekedString string

	// column before the last newline, so backup can step over it
	lastNewline bool
	prevColumn  int
}

func NewLexer(reader io.Reader, filename string) *Lexer {
	return &Lexer{
		pos:    types.Position{Line: 1, Column: 0, Filename: filename},
		reader: bufio.NewReader(reader),
	}
}

func (l *Lexer) Position() types.Position {
	return l.pos
}

func (l *Lexer) newline() {
	l.pos.Line++
	l.pos.Column = 0
}

func (l *Lexer) backup() {
	if err := l.reader.UnreadRune(); err != nil {
		panic(err)
	}

	if l.lastNewline {
		l.pos.Line--
		l.pos.Column = l.prevColumn
		l.lastNewline = false
		return
	}
	l.pos.Column--
}

// read returns the next rune, or ok == false at EOF.
func (l *Lexer) read() (rune, bool) {
	r, _, err := l.reader.ReadRune()
	if err != nil {
		if err == io.EOF {
			return 0, false
		}
		panic(err)
	}

	l.lastNewline = r == '\n'
	if l.lastNewline {
		l.prevColumn = l.pos.Column
		l.newline()
	} else {
		l.pos.Column++
	}
	return r, true
}

func (l *Lexer) kinded(t types.TokenKind) types.Token {
	return types.Token{
		Location: types.SingleCharSpan(l.pos),
		Kind:     t,
	}
}

func firstChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func otherChar(r rune) bool {
	return firstChar(r) || unicode.IsDigit(r)
}

// lexWord reads a run of identifier characters. It is used for both
// identifiers and integer literals; the parser validates the latter.
func (l *Lexer) lexWord() (types.Position, types.Position, string) {
	var lit strings.Builder
	var from, to types.Position

	for {
		r, ok := l.read()
		if !ok {
			return from, to, lit.String()
		}

		if !otherChar(r) {
			l.backup()
			return from, to, lit.String()
		}

		if lit.Len() == 0 {
			from = l.pos
		}
		lit.WriteRune(r)
		to = l.pos
	}
}

func (l *Lexer) skipLineComment() {
	for {
		r, ok := l.read()
		if !ok || r == '\n' {
			return
		}
	}
}

// skipBlockComment reports whether the comment was closed before EOF.
func (l *Lexer) skipBlockComment() bool {
	star := false
	for {
		r, ok := l.read()
		if !ok {
			return false
		}
		if star && r == '/' {
			return true
		}
		star = r == '*'
	}
}

func (l *Lexer) Peek() (types.Token, string) {
	if l.peeked != nil {
		return *l.peeked, l.peekedString
	}

	tok, str := l.Lex()
	l.peeked = &tok
	l.peekedString = str

	return tok, str
}

func (l *Lexer) PeekIs(k ...types.TokenKind) bool {
	token, _ := l.Peek()
	for _, kind := range k {
		if token.Kind == kind {
			return true
		}
	}

	return false
}

func (l *Lexer) LexExpecting(k ...types.TokenKind) (types.Token, string) {
	token, lit := l.Lex()
	for _, kind := range k {
		if token.Kind == kind {
			return token, lit
		}
	}

	panic(errors.ExpectedOneOfKindGotKind{
		Expected: k,
		Got:      token.Kind,
		Lit:      lit,
		Location: token.Location,
	})
}

func (l *Lexer) Lex() (types.Token, string) {
	if l.peeked != nil {
		defer func() { l.peeked = nil }()
		return *l.peeked, l.peekedString
	}

	for {
		r, ok := l.read()
		if !ok {
			return l.kinded(types.EOF), ""
		}

		if kind, ok := punctuation[r]; ok {
			return l.kinded(kind), string(r)
		}

		switch {
		case r == '/':
			start := l.pos
			next, ok := l.read()
			switch {
			case ok && next == '/':
				l.skipLineComment()
				continue
			case ok && next == '*':
				if !l.skipBlockComment() {
					panic(errors.UnterminatedComment{
						Location: types.Span{From: start, To: l.pos},
					})
				}
				continue
			case ok:
				l.backup()
			}
			return l.kinded(types.ILLEGAL), "/"
		case unicode.IsSpace(r):
			continue
		case unicode.IsDigit(r):
			l.backup()
			from, to, lit := l.lexWord()

			return types.Token{Kind: types.INT, Location: types.Span{From: from, To: to}}, lit
		case firstChar(r):
			l.backup()
			from, to, lit := l.lexWord()

			if kind, ok := keywords[lit]; ok {
				return types.Token{Kind: kind, Location: types.Span{From: from, To: to}}, lit
			}

			return types.Token{Kind: types.IDENT, Location: types.Span{From: from, To: to}}, lit
		}

		return l.kinded(types.ILLEGAL), string(r)
	}
}

type testToken struct {
	t types.Token
	s string
}

func (l *Lexer) lexToEOF() (ret []testToken) {
	t, s := l.Lex()
	for t.Kind != types.EOF {
		ret = append(ret, testToken{
			t: t,
			s: s,
		})
		t, s = l.Lex()
	}
	return
}
