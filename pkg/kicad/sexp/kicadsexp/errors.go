package kicadsexp

import "fmt"

// ParseError reports malformed input together with the position of the
// offending token.
type ParseError struct {
	Offset int    // byte offset, 0-based
	Line   int    // 1-based
	Column int    // 1-based
	Token  string // offending token text, "EOF" at end of input
	Msg    string
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("parse error at offset %d near %q: %s", e.Offset, e.Token, e.Msg)
	}
	return fmt.Sprintf("parse error at line %d, column %d (offset %d) near %q: %s",
		e.Line, e.Column, e.Offset, e.Token, e.Msg)
}

// Errorf creates a ParseError located at node.
func Errorf(node Sexp, format string, args ...any) *ParseError {
	e := &ParseError{Msg: fmt.Sprintf(format, args...)}
	if node == nil {
		return e
	}
	pos := node.Pos()
	e.Offset, e.Line, e.Column = pos.Offset, pos.Line, pos.Column
	switch n := node.(type) {
	case Atom:
		e.Token = n.Value
	case *List:
		e.Token = "(" + n.Key()
	}
	return e
}
