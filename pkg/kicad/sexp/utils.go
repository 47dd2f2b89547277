package sexp

import (
	"strconv"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp/kicadsexp"
)

// S-expression navigation helpers. Every failure is a *kicadsexp.ParseError
// located at the offending node.

// FindNode searches for a child list with the given key (first symbol)
// Example: FindNode(list, "at") finds (at 100 50) in a list
func FindNode(l *kicadsexp.List, key string) (*kicadsexp.List, bool) {
	for _, item := range l.Items {
		if sub, ok := item.(*kicadsexp.List); ok && sub.Key() == key {
			return sub, true
		}
	}
	return nil, false
}

// RequireNode is FindNode for mandatory fields.
func RequireNode(l *kicadsexp.List, key string) (*kicadsexp.List, error) {
	if sub, ok := FindNode(l, key); ok {
		return sub, nil
	}
	return nil, kicadsexp.Errorf(l, "missing required (%s ...)", key)
}

// FindAllNodes finds all child lists with the given key
func FindAllNodes(l *kicadsexp.List, key string) []*kicadsexp.List {
	var results []*kicadsexp.List
	for _, item := range l.Items {
		if sub, ok := item.(*kicadsexp.List); ok && sub.Key() == key {
			results = append(results, sub)
		}
	}
	return results
}

// CheckKeys rejects child lists whose keyword is not in allowed.
func CheckKeys(l *kicadsexp.List, allowed ...string) error {
	set := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		set[k] = true
	}
	for _, sub := range l.Children() {
		if !set[sub.Key()] {
			return kicadsexp.Errorf(sub, "unknown keyword %q in (%s ...)", sub.Key(), l.Key())
		}
	}
	return nil
}

// Typed value extraction helpers

// GetString extracts an atom value at the given index in a list.
// Index 0 is the key, 1 is first value, etc.
func GetString(l *kicadsexp.List, index int) (string, error) {
	item := l.Get(index)
	if item == nil {
		return "", kicadsexp.Errorf(l, "(%s ...) is missing value %d", l.Key(), index)
	}
	atom, ok := item.(kicadsexp.Atom)
	if !ok {
		return "", kicadsexp.Errorf(item, "expected a value at index %d of (%s ...)", index, l.Key())
	}
	return atom.Value, nil
}

// GetFloat extracts a float64 value at the given index
func GetFloat(l *kicadsexp.List, index int) (float64, error) {
	str, err := GetString(l, index)
	if err != nil {
		return 0, err
	}
	val, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, kicadsexp.Errorf(l.Get(index), "bad number %q", str)
	}
	return val, nil
}

// GetInt extracts an int value at the given index
func GetInt(l *kicadsexp.List, index int) (int, error) {
	str, err := GetString(l, index)
	if err != nil {
		return 0, err
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, kicadsexp.Errorf(l.Get(index), "bad integer %q", str)
	}
	return val, nil
}

// GetChildString extracts the first value of the (key ...) child.
func GetChildString(l *kicadsexp.List, key string) (string, error) {
	sub, err := RequireNode(l, key)
	if err != nil {
		return "", err
	}
	return GetString(sub, 1)
}

// GetChildFloat extracts the first number of the (key ...) child.
func GetChildFloat(l *kicadsexp.List, key string) (float64, error) {
	sub, err := RequireNode(l, key)
	if err != nil {
		return 0, err
	}
	return GetFloat(sub, 1)
}

// Atoms returns the values of the atoms after the key.
func Atoms(l *kicadsexp.List) []string {
	var out []string
	for _, item := range l.Items[1:] {
		if a, ok := item.(kicadsexp.Atom); ok {
			out = append(out, a.Value)
		}
	}
	return out
}

// HasSymbol checks if a list contains a specific unquoted symbol
func HasSymbol(l *kicadsexp.List, symbol string) bool {
	for _, item := range l.Items[1:] {
		if a, ok := item.(kicadsexp.Atom); ok && !a.Quoted && a.Value == symbol {
			return true
		}
	}
	return false
}

// Domain-specific extraction helpers

// GetPosition extracts a PositionAngle from an (at X Y [angle]) node.
// Values are millimeters and degrees; nothing is converted.
func GetPosition(l *kicadsexp.List) (PositionAngle, error) {
	xy, err := GetPositionXY(l)
	if err != nil {
		return PositionAngle{}, err
	}
	result := PositionAngle{Position: xy}
	if l.Len() > 3 {
		angle, err := GetFloat(l, 3)
		if err != nil {
			return PositionAngle{}, err
		}
		result.Angle = Angle(angle)
	}
	return result, nil
}

// GetPositionXY extracts just X,Y coordinates (no angle)
// Used for (start X Y), (end X Y), (xy X Y), etc.
func GetPositionXY(l *kicadsexp.List) (Position, error) {
	x, err := GetFloat(l, 1)
	if err != nil {
		return Position{}, err
	}
	y, err := GetFloat(l, 2)
	if err != nil {
		return Position{}, err
	}
	return Position{X: x, Y: y}, nil
}

// GetChildPosition extracts the (key X Y) child as a Position.
func GetChildPosition(l *kicadsexp.List, key string) (Position, error) {
	sub, err := RequireNode(l, key)
	if err != nil {
		return Position{}, err
	}
	return GetPositionXY(sub)
}

// GetSize extracts (size W H).
func GetSize(l *kicadsexp.List) (Size, error) {
	sub, err := RequireNode(l, "size")
	if err != nil {
		return Size{}, err
	}
	p, err := GetPositionXY(sub)
	if err != nil {
		return Size{}, err
	}
	return Size{Width: p.X, Height: p.Y}, nil
}

// GetPoints extracts the (xy X Y) entries of a (pts ...) node.
func GetPoints(pts *kicadsexp.List) ([]Position, error) {
	if err := CheckKeys(pts, "xy"); err != nil {
		return nil, err
	}
	var points []Position
	for _, xy := range FindAllNodes(pts, "xy") {
		p, err := GetPositionXY(xy)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

// GetProperty extracts the key and value of a (property "key" "value" ...) node.
func GetProperty(l *kicadsexp.List) (string, string, error) {
	key, err := GetString(l, 1)
	if err != nil {
		return "", "", err
	}
	value, err := GetString(l, 2)
	if err != nil {
		return "", "", err
	}
	return key, value, nil
}

// GetTitleBlock reads an optional (title_block ...) node.
func GetTitleBlock(l *kicadsexp.List) (TitleBlock, error) {
	var tb TitleBlock
	node, ok := FindNode(l, "title_block")
	if !ok {
		return tb, nil
	}
	if err := CheckKeys(node, "title", "date", "rev", "company"); err != nil {
		return tb, err
	}
	fields := map[string]*string{
		"title":   &tb.Title,
		"date":    &tb.Date,
		"rev":     &tb.Revision,
		"company": &tb.Company,
	}
	for key, dst := range fields {
		if sub, ok := FindNode(node, key); ok {
			v, err := GetString(sub, 1)
			if err != nil {
				return tb, err
			}
			*dst = v
		}
	}
	return tb, nil
}

// Emission helpers

// Snap rounds v to the file precision so that positions held in memory
// match what a reparse would produce.
func Snap(v float64) float64 {
	f, _ := strconv.ParseFloat(FormatNumber(v), 64)
	return f
}

// SnapPosition snaps both coordinates of p.
func SnapPosition(p Position) Position {
	return Position{X: Snap(p.X), Y: Snap(p.Y)}
}

// FormatNumber formats v with the fixed file precision.
func FormatNumber(v float64) string {
	return kicadsexp.FormatNumber(v)
}

// XY builds (key X Y).
func XY(key string, p Position) *kicadsexp.List {
	return kicadsexp.L(key, kicadsexp.Num(p.X), kicadsexp.Num(p.Y))
}

// At builds (at X Y [angle]); the angle is omitted when withAngle is false.
func At(p PositionAngle, withAngle bool) *kicadsexp.List {
	at := XY("at", p.Position)
	if withAngle {
		at.Add(kicadsexp.Num(float64(p.Angle)))
	}
	return at
}

// Pts builds (pts (xy X Y) ...).
func Pts(points []Position) *kicadsexp.List {
	pts := kicadsexp.L("pts")
	for _, p := range points {
		pts.Add(XY("xy", p))
	}
	return pts
}

// Stroke builds (stroke (width W) (type t)).
func Stroke(width float64, kind string) *kicadsexp.List {
	return kicadsexp.L("stroke",
		kicadsexp.L("width", kicadsexp.Num(width)),
		kicadsexp.L("type", kicadsexp.Sym(kind)),
	)
}

// Effects builds the text effects node; hide appends the hide flag.
func Effects(size float64, hide bool) *kicadsexp.List {
	eff := kicadsexp.L("effects",
		kicadsexp.L("font", kicadsexp.L("size", kicadsexp.Num(size), kicadsexp.Num(size))),
	)
	if hide {
		eff.Add(kicadsexp.L("hide", kicadsexp.Sym("yes")))
	}
	return eff
}

// TitleBlockNode builds (title_block ...) or nil when tb is empty.
func TitleBlockNode(tb TitleBlock) *kicadsexp.List {
	if tb == (TitleBlock{}) {
		return nil
	}
	node := kicadsexp.L("title_block")
	if tb.Title != "" {
		node.Add(kicadsexp.L("title", kicadsexp.Str(tb.Title)))
	}
	if tb.Date != "" {
		node.Add(kicadsexp.L("date", kicadsexp.Str(tb.Date)))
	}
	if tb.Revision != "" {
		node.Add(kicadsexp.L("rev", kicadsexp.Str(tb.Revision)))
	}
	if tb.Company != "" {
		node.Add(kicadsexp.L("company", kicadsexp.Str(tb.Company)))
	}
	return node
}

// UUIDNode builds (uuid "...").
func UUIDNode(id UUID) *kicadsexp.List {
	return kicadsexp.L("uuid", kicadsexp.Str(string(id)))
}
