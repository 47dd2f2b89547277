package kicadsexp

import (
	"errors"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Definition is the token grammar shared by board and schematic files.
// Rules are tried in order, so a lone '"' matches nothing and is reported
// as invalid input.
var Definition = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},
	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"`},
	{Name: "Symbol", Pattern: `[^\s()"]+`},
})

var (
	tokenWhitespace = Definition.Symbols()["Whitespace"]
	tokenLParen     = Definition.Symbols()["LParen"]
	tokenRParen     = Definition.Symbols()["RParen"]
	tokenString     = Definition.Symbols()["String"]
	tokenSymbol     = Definition.Symbols()["Symbol"]
)

// Lexer yields the significant tokens of a text buffer, dropping whitespace.
type Lexer struct {
	lex lexer.Lexer
}

// NewLexer creates a lexer over text.
func NewLexer(text string) (*Lexer, error) {
	lex, err := Definition.LexString("", text)
	if err != nil {
		return nil, err
	}
	return &Lexer{lex: lex}, nil
}

// Next returns the next non-whitespace token. Lexing failures are reported
// as *ParseError at the offending offset.
func (l *Lexer) Next() (lexer.Token, error) {
	for {
		tok, err := l.lex.Next()
		if err != nil {
			var lexErr *lexer.Error
			if errors.As(err, &lexErr) {
				return tok, &ParseError{
					Offset: lexErr.Pos.Offset,
					Line:   lexErr.Pos.Line,
					Column: lexErr.Pos.Column,
					Token:  `"`,
					Msg:    strings.TrimPrefix(lexErr.Msg, "lexer: "),
				}
			}
			return tok, &ParseError{Msg: err.Error()}
		}
		if tok.Type == tokenWhitespace {
			continue
		}
		return tok, nil
	}
}

// unquote strips the surrounding quotes of a String token and resolves the
// escape sequences KiCad writes.
func unquote(raw string) string {
	body := raw[1 : len(raw)-1]
	if !strings.Contains(body, `\`) {
		return body
	}
	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' && i+1 < len(body) {
			i++
			switch body[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(body[i])
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// quote is the inverse of unquote.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
