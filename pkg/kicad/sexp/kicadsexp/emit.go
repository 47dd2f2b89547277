package kicadsexp

import (
	"io"
	"strconv"
	"strings"
)

// Precision is the number of decimal places written for every real number.
const Precision = 4

// inlineKeys are lists that are always written on one line, whatever they
// contain.
var inlineKeys = map[string]bool{
	"at":           true,
	"xy":           true,
	"start":        true,
	"end":          true,
	"size":         true,
	"net":          true,
	"effects":      true,
	"font":         true,
	"stroke":       true,
	"fill":         true,
	"pin_names":    true,
	"number":       true,
	"name":         true,
	"offset":       true,
	"scale":        true,
	"rotate":       true,
	"xyz":          true,
	"connect_pads": true,
}

// FormatNumber writes v with fixed precision. Negative zero becomes zero so
// that output does not depend on the sign of rounding noise.
func FormatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', Precision, 64)
	if s == "-0.0000" {
		return "0.0000"
	}
	return s
}

func formatInt(v int) string {
	return strconv.Itoa(v)
}

// Format renders a node as indented text terminated by a newline. Lists
// whose items are all atoms, or whose keyword is in the inline set, are
// written on one line. When a list holds any multi-line child, each of its
// child lists starts a new line indented by two spaces per level.
func Format(node Sexp) string {
	var b strings.Builder
	writeNode(&b, node, 0)
	b.WriteByte('\n')
	return b.String()
}

// Write renders node to w using Format.
func Write(w io.Writer, node Sexp) error {
	_, err := io.WriteString(w, Format(node))
	return err
}

func writeNode(b *strings.Builder, node Sexp, depth int) {
	list, ok := node.(*List)
	if !ok {
		b.WriteString(node.String())
		return
	}
	if isInline(list) {
		b.WriteString(list.String())
		return
	}

	block := false
	for _, item := range list.Items {
		if sub, isList := item.(*List); isList && !isInline(sub) {
			block = true
			break
		}
	}

	b.WriteByte('(')
	broken := false
	for i, item := range list.Items {
		if broken || (block && !item.IsLeaf()) {
			broken = true
			b.WriteByte('\n')
			b.WriteString(strings.Repeat("  ", depth+1))
			writeNode(b, item, depth+1)
			continue
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		writeNode(b, item, depth+1)
	}
	if broken {
		b.WriteByte('\n')
		b.WriteString(strings.Repeat("  ", depth))
	}
	b.WriteByte(')')
}

func isInline(l *List) bool {
	if inlineKeys[l.Key()] {
		return true
	}
	for _, item := range l.Items {
		if !item.IsLeaf() {
			return false
		}
	}
	return true
}
