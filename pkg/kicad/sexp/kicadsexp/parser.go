package kicadsexp

import (
	"fmt"
	"io"

	"github.com/alecthomas/participle/v2/lexer"
)

// Parser parses S-expressions from a lexer
type Parser struct {
	lexer   *Lexer
	current lexer.Token
}

// NewParser creates a new parser over text.
func NewParser(text string) (*Parser, error) {
	lex, err := NewLexer(text)
	if err != nil {
		return nil, err
	}
	return &Parser{lexer: lex}, nil
}

// ParseAll parses all top-level S-expressions from the input
func (p *Parser) ParseAll() ([]Sexp, error) {
	var result []Sexp

	if err := p.advance(); err != nil {
		return nil, err
	}

	for !p.current.EOF() {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		result = append(result, expr)

		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (p *Parser) advance() error {
	tok, err := p.lexer.Next()
	if err != nil {
		return err
	}
	p.current = tok
	return nil
}

// parseExpr parses a single S-expression
func (p *Parser) parseExpr() (Sexp, error) {
	tok := p.current
	switch tok.Type {
	case tokenLParen:
		return p.parseList()

	case tokenString:
		return Atom{Value: unquote(tok.Value), Quoted: true, At: tok.Pos}, nil

	case tokenSymbol:
		return Atom{Value: tok.Value, At: tok.Pos}, nil

	case tokenRParen:
		return nil, tokenError(tok, "unexpected ')'")

	default:
		return nil, tokenError(tok, "unexpected token")
	}
}

// parseList parses a list: ( ... )
func (p *Parser) parseList() (Sexp, error) {
	open := p.current
	list := &List{At: open.Pos}

	for {
		if err := p.advance(); err != nil {
			return nil, err
		}

		if p.current.Type == tokenRParen {
			break
		}

		if p.current.EOF() {
			return nil, tokenError(p.current, fmt.Sprintf(
				"unexpected EOF: list opened at line %d, column %d is missing its closing ')'",
				open.Pos.Line, open.Pos.Column))
		}

		elem, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, elem)
	}

	return list, nil
}

func tokenError(tok lexer.Token, msg string) *ParseError {
	text := tok.Value
	if tok.EOF() {
		text = "EOF"
	}
	return &ParseError{
		Offset: tok.Pos.Offset,
		Line:   tok.Pos.Line,
		Column: tok.Pos.Column,
		Token:  text,
		Msg:    msg,
	}
}

// Parse parses S-expressions from an io.Reader.
func Parse(r io.Reader) ([]Sexp, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return ParseString(string(data))
}

// ParseString parses S-expressions from a string (convenience function)
func ParseString(s string) ([]Sexp, error) {
	parser, err := NewParser(s)
	if err != nil {
		return nil, err
	}
	return parser.ParseAll()
}

// ParseDocument parses text that must hold exactly one top-level list with
// the given keyword.
func ParseDocument(text, key string) (*List, error) {
	nodes, err := ParseString(text)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, &ParseError{Token: "EOF", Msg: fmt.Sprintf("empty input, expected (%s ...)", key)}
	}
	root, ok := nodes[0].(*List)
	if !ok || root.Key() != key {
		return nil, Errorf(nodes[0], "expected (%s ...) at top level", key)
	}
	if len(nodes) > 1 {
		return nil, Errorf(nodes[1], "unexpected content after (%s ...)", key)
	}
	return root, nil
}
