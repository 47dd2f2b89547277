// Package sexp provides the value types and S-expression helpers shared by the
// board and schematic document packages.
package sexp

import (
	"fmt"
	"math"
)

// Epsilon is the coordinate tolerance used when deciding whether two points
// coincide. It matches the 4-decimal precision of the file formats.
const Epsilon = 1e-4

// Position represents a 2D coordinate in millimeters.
type Position struct {
	X float64 // X coordinate in mm
	Y float64 // Y coordinate in mm
}

// Add returns p translated by o.
func (p Position) Add(o Position) Position {
	return Position{X: p.X + o.X, Y: p.Y + o.Y}
}

// Sub returns p - o.
func (p Position) Sub(o Position) Position {
	return Position{X: p.X - o.X, Y: p.Y - o.Y}
}

// DistanceTo returns the euclidean distance between two positions
func (p Position) DistanceTo(o Position) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// Equal reports whether two positions coincide within Epsilon.
func (p Position) Equal(o Position) bool {
	return math.Abs(p.X-o.X) < Epsilon && math.Abs(p.Y-o.Y) < Epsilon
}

// Midpoint returns the point halfway between p and o.
func (p Position) Midpoint(o Position) Position {
	return Position{X: (p.X + o.X) / 2, Y: (p.Y + o.Y) / 2}
}

// Key returns a stable map key for the position rounded to file precision.
func (p Position) Key() string {
	return FormatNumber(p.X) + "," + FormatNumber(p.Y)
}

// Rotate rotates p about the origin by angle degrees (counter-clockwise in
// the y-down file coordinate system, as KiCad does).
func (p Position) Rotate(angle Angle) Position {
	if angle == 0 {
		return p
	}
	rad := -float64(angle) * math.Pi / 180.0
	cos, sin := math.Cos(rad), math.Sin(rad)
	return Position{
		X: p.X*cos - p.Y*sin,
		Y: p.X*sin + p.Y*cos,
	}
}

func (p Position) String() string {
	return fmt.Sprintf("(%s, %s)", FormatNumber(p.X), FormatNumber(p.Y))
}

// Angle represents rotation in degrees
type Angle float64

// PositionAngle combines position with rotation
type PositionAngle struct {
	Position
	Angle Angle
}

// Size represents dimensions
type Size struct {
	Width  float64 // Width in mm
	Height float64 // Height in mm
}

// BoundingBox represents a rectangular boundary
type BoundingBox struct {
	Min Position // Minimum (top-left) corner
	Max Position // Maximum (bottom-right) corner
}

// Rect builds a bounding box from an origin and a size.
func Rect(origin Position, size Size) BoundingBox {
	return BoundingBox{
		Min: origin,
		Max: Position{X: origin.X + size.Width, Y: origin.Y + size.Height},
	}
}

// Intersects checks if two bounding boxes intersect (touching edges count)
func (bb BoundingBox) Intersects(other BoundingBox) bool {
	return bb.Min.X <= other.Max.X && bb.Max.X >= other.Min.X &&
		bb.Min.Y <= other.Max.Y && bb.Max.Y >= other.Min.Y
}

// Overlaps checks if two bounding boxes share interior area. Boxes that only
// touch along an edge do not overlap.
func (bb BoundingBox) Overlaps(other BoundingBox) bool {
	return bb.Min.X < other.Max.X-Epsilon && bb.Max.X > other.Min.X+Epsilon &&
		bb.Min.Y < other.Max.Y-Epsilon && bb.Max.Y > other.Min.Y+Epsilon
}

// Contains checks if a position is within the bounding box
func (bb BoundingBox) Contains(pos Position) bool {
	return pos.X >= bb.Min.X-Epsilon && pos.X <= bb.Max.X+Epsilon &&
		pos.Y >= bb.Min.Y-Epsilon && pos.Y <= bb.Max.Y+Epsilon
}

// ContainsBox checks if other lies entirely inside bb.
func (bb BoundingBox) ContainsBox(other BoundingBox) bool {
	return bb.Contains(other.Min) && bb.Contains(other.Max)
}

// NewBoundingBox creates an empty bounding box
func NewBoundingBox() BoundingBox {
	return BoundingBox{
		Min: Position{X: 1e9, Y: 1e9},
		Max: Position{X: -1e9, Y: -1e9},
	}
}

// IsEmpty checks if the bounding box is empty
func (bb BoundingBox) IsEmpty() bool {
	return bb.Min.X > bb.Max.X || bb.Min.Y > bb.Max.Y
}

// Expand expands the bounding box to include a position
func (bb *BoundingBox) Expand(pos Position) {
	if pos.X < bb.Min.X {
		bb.Min.X = pos.X
	}
	if pos.Y < bb.Min.Y {
		bb.Min.Y = pos.Y
	}
	if pos.X > bb.Max.X {
		bb.Max.X = pos.X
	}
	if pos.Y > bb.Max.Y {
		bb.Max.Y = pos.Y
	}
}

// ExpandBox expands to include another bounding box
func (bb *BoundingBox) ExpandBox(other BoundingBox) {
	if !other.IsEmpty() {
		bb.Expand(other.Min)
		bb.Expand(other.Max)
	}
}

// Inflate returns the box grown by margin on every side.
func (bb BoundingBox) Inflate(margin float64) BoundingBox {
	return BoundingBox{
		Min: Position{X: bb.Min.X - margin, Y: bb.Min.Y - margin},
		Max: Position{X: bb.Max.X + margin, Y: bb.Max.Y + margin},
	}
}

// Translate returns the box moved by offset.
func (bb BoundingBox) Translate(offset Position) BoundingBox {
	return BoundingBox{Min: bb.Min.Add(offset), Max: bb.Max.Add(offset)}
}

// Width returns the width of the bounding box
func (bb BoundingBox) Width() float64 {
	return bb.Max.X - bb.Min.X
}

// Height returns the height of the bounding box
func (bb BoundingBox) Height() float64 {
	return bb.Max.Y - bb.Min.Y
}

// Size returns the box dimensions.
func (bb BoundingBox) Size() Size {
	return Size{Width: bb.Width(), Height: bb.Height()}
}

// Center returns the center point of the bounding box
func (bb BoundingBox) Center() Position {
	return Position{
		X: (bb.Min.X + bb.Max.X) / 2.0,
		Y: (bb.Min.Y + bb.Max.Y) / 2.0,
	}
}

// Corners returns the four corners in clockwise order starting at Min.
func (bb BoundingBox) Corners() [4]Position {
	return [4]Position{
		bb.Min,
		{X: bb.Max.X, Y: bb.Min.Y},
		bb.Max,
		{X: bb.Min.X, Y: bb.Max.Y},
	}
}

// Isolation tags an entity with a voltage domain for isolation checks.
type Isolation string

const (
	IsolationNone Isolation = ""
	IsolationHigh Isolation = "high"
	IsolationLow  Isolation = "low"
)

// ParseIsolation converts a tag string to an Isolation class.
func ParseIsolation(s string) (Isolation, error) {
	switch Isolation(s) {
	case IsolationNone, IsolationHigh, IsolationLow:
		return Isolation(s), nil
	}
	return IsolationNone, fmt.Errorf("unknown isolation class %q", s)
}

// Opposes reports whether a and b are a high/low pair.
func (i Isolation) Opposes(other Isolation) bool {
	return (i == IsolationHigh && other == IsolationLow) ||
		(i == IsolationLow && other == IsolationHigh)
}

// TitleBlock holds the title block fields shared by both file kinds
type TitleBlock struct {
	Title    string
	Date     string
	Revision string
	Company  string
}
