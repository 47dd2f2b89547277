// Package kicadsexp provides the S-expression token tree used by KiCad board
// and schematic files: a positional parser built on a participle lexer and a
// deterministic emitter.
package kicadsexp

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Sexp represents an S-expression node.
// It is either an Atom or a *List.
type Sexp interface {
	// IsLeaf returns true if this is an atom (not a list)
	IsLeaf() bool

	// Pos returns where the node starts in the source text. Nodes built in
	// memory have a zero position.
	Pos() lexer.Position

	// String returns the single-line text form
	String() string
}

// Atom is a symbol, number or quoted string.
type Atom struct {
	Value  string
	Quoted bool
	At     lexer.Position
}

func (a Atom) IsLeaf() bool        { return true }
func (a Atom) Pos() lexer.Position { return a.At }

func (a Atom) String() string {
	if a.Quoted {
		return quote(a.Value)
	}
	return a.Value
}

// List is a parenthesized sequence of nodes. By convention the first item is
// an unquoted keyword.
type List struct {
	Items []Sexp
	At    lexer.Position
}

// L builds a list whose head is the keyword key.
func L(key string, items ...Sexp) *List {
	l := &List{Items: make([]Sexp, 0, len(items)+1)}
	l.Items = append(l.Items, Sym(key))
	return l.Add(items...)
}

// Add appends items to the list, skipping nil entries, and returns the list.
func (l *List) Add(items ...Sexp) *List {
	for _, item := range items {
		if item == nil {
			continue
		}
		if sub, ok := item.(*List); ok && sub == nil {
			continue
		}
		l.Items = append(l.Items, item)
	}
	return l
}

func (l *List) IsLeaf() bool        { return false }
func (l *List) Pos() lexer.Position { return l.At }

// Len returns the number of elements in the list
func (l *List) Len() int {
	return len(l.Items)
}

// Get returns the element at the given index
func (l *List) Get(index int) Sexp {
	if index < 0 || index >= len(l.Items) {
		return nil
	}
	return l.Items[index]
}

// Key returns the leading keyword, or "" if the list does not start with an
// unquoted atom.
func (l *List) Key() string {
	if len(l.Items) == 0 {
		return ""
	}
	if a, ok := l.Items[0].(Atom); ok && !a.Quoted {
		return a.Value
	}
	return ""
}

// Children returns the nested lists in order.
func (l *List) Children() []*List {
	var out []*List
	for _, item := range l.Items {
		if sub, ok := item.(*List); ok {
			out = append(out, sub)
		}
	}
	return out
}

func (l *List) String() string {
	parts := make([]string, len(l.Items))
	for i, item := range l.Items {
		parts[i] = item.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Sym builds an unquoted atom.
func Sym(v string) Atom {
	return Atom{Value: v}
}

// Str builds a quoted atom.
func Str(v string) Atom {
	return Atom{Value: v, Quoted: true}
}

// Num builds a numeric atom with fixed precision.
func Num(v float64) Atom {
	return Atom{Value: FormatNumber(v)}
}

// Int builds an integer atom.
func Int(v int) Atom {
	return Atom{Value: formatInt(v)}
}
