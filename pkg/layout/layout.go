// Package layout places footprints and symbols with a selectable strategy
// while keeping every entity's bounding box clear of the others.
package layout

import (
	"fmt"
	"strings"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/netlist"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
)

// Strategy selects a placement algorithm
type Strategy int

const (
	Grid      Strategy = iota // Uniform lattice, row-major in insertion order
	Linear                    // Single row or column with fixed spacing
	Clustered                 // Net-sharing groups placed contiguously
	Zonal                     // Functional zones in signal-flow order
)

var strategyNames = []string{"grid", "linear", "clustered", "zonal"}

func (s Strategy) String() string {
	if int(s) >= 0 && int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy converts a strategy name. "professional" is accepted as an
// alias of zonal.
func ParseStrategy(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "professional" {
		return Zonal, nil
	}
	for i, n := range strategyNames {
		if n == name {
			return Strategy(i), nil
		}
	}
	return Grid, fmt.Errorf("unknown layout strategy %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	v, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Axis is the direction of a linear layout
type Axis string

const (
	Horizontal Axis = "horizontal"
	Vertical   Axis = "vertical"
)

// Options controls placement. Zero values are replaced by defaults in
// Validate.
type Options struct {
	Pitch             float64          `yaml:"pitch"`              // Minimum grid cell size in mm
	Spacing           float64          `yaml:"spacing"`            // Gap between entity outlines in mm
	Margin            float64          `yaml:"margin"`             // Keep-out from the bounds edge in mm
	Columns           int              `yaml:"columns"`            // Grid columns, 0 to derive from the bounds
	Axis              Axis             `yaml:"axis"`               // Linear direction
	ClusterThreshold  int              `yaml:"cluster_threshold"`  // Shared nets needed to join a cluster
	IsolationDistance float64          `yaml:"isolation_distance"` // Gap between high and low voltage zones
	Zones             []ZoneDefinition `yaml:"zones"`              // Zonal policy, DefaultZones() when nil
}

// DefaultOptions returns Options with sensible defaults for most boards.
func DefaultOptions() Options {
	return Options{
		Pitch:             10,
		Spacing:           2,
		Margin:            5,
		Axis:              Horizontal,
		ClusterThreshold:  1,
		IsolationDistance: 6,
	}
}

// Validate fills unset fields with defaults and rejects impossible values.
func (o *Options) Validate() error {
	def := DefaultOptions()
	if o.Pitch == 0 {
		o.Pitch = def.Pitch
	}
	if o.Spacing == 0 {
		o.Spacing = def.Spacing
	}
	if o.Margin == 0 {
		o.Margin = def.Margin
	}
	if o.Axis == "" {
		o.Axis = def.Axis
	}
	if o.ClusterThreshold < 1 {
		o.ClusterThreshold = def.ClusterThreshold
	}
	if o.IsolationDistance == 0 {
		o.IsolationDistance = def.IsolationDistance
	}
	if o.Zones == nil {
		o.Zones = DefaultZones()
	}

	if o.Pitch < 0 || o.Spacing < 0 || o.Margin < 0 || o.IsolationDistance < 0 {
		return fmt.Errorf("layout distances must not be negative")
	}
	if o.Columns < 0 {
		return fmt.Errorf("layout columns must not be negative")
	}
	if o.Axis != Horizontal && o.Axis != Vertical {
		return fmt.Errorf("unknown layout axis %q", o.Axis)
	}
	return nil
}

// Item is one placeable entity as seen by the layout engine.
type Item struct {
	Reference string
	Kind      string           // Footprint name or symbol lib id
	Role      string           // Functional role, matched against zones
	Isolation sexp.Isolation   // Voltage class before placement
	Box       sexp.BoundingBox // Outline relative to the anchor
	Nets      []netlist.NetID  // Distinct nets of the entity's pins
}

// Placement is the outcome for one entity.
type Placement struct {
	Reference string
	Position  sexp.Position    // Anchor position
	Box       sexp.BoundingBox // Absolute outline
	Zone      string           // Zone name for zonal layouts
	Isolation sexp.Isolation
}

// ZoneRegion is the rectangle assigned to a zone.
type ZoneRegion struct {
	Name      string
	Box       sexp.BoundingBox
	Isolation sexp.Isolation
	Members   []string
}

// PlacementResult reports where every entity went.
type PlacementResult struct {
	Strategy   Strategy
	Placements []Placement
	Zones      []ZoneRegion     // Zonal only
	Bounds     sexp.BoundingBox // Declared bounds, or the fitted extent
	Declared   bool             // Whether Bounds came from the document
}

// Placement returns the placement of ref.
func (r *PlacementResult) Placement(ref string) (Placement, bool) {
	for _, p := range r.Placements {
		if p.Reference == ref {
			return p, true
		}
	}
	return Placement{}, false
}

// Place arranges every entity of target with the given strategy and moves
// the entities in the document. Nothing is moved when placement fails.
func Place(target Target, strategy Strategy, opts Options) (*PlacementResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	items := target.Items()
	bounds, declared := target.Bounds()

	l := &layouter{opts: opts, bounds: bounds, declared: declared}
	var (
		placements []Placement
		zones      []ZoneRegion
		err        error
	)
	switch strategy {
	case Grid:
		placements, err = l.grid(items)
	case Linear:
		placements, err = l.linear(items)
	case Clustered:
		placements, err = l.clustered(items)
	case Zonal:
		placements, zones, err = l.zonal(items)
	default:
		return nil, fmt.Errorf("unknown layout strategy %v", strategy)
	}
	if err != nil {
		return nil, err
	}
	if err := l.verify(placements); err != nil {
		return nil, err
	}

	for _, p := range placements {
		if err := target.Move(p.Reference, p.Position); err != nil {
			return nil, fmt.Errorf("failed to move %s: %w", p.Reference, err)
		}
		if p.Isolation != sexp.IsolationNone {
			if err := target.Tag(p.Reference, p.Isolation); err != nil {
				return nil, fmt.Errorf("failed to tag %s: %w", p.Reference, err)
			}
		}
	}

	result := &PlacementResult{
		Strategy:   strategy,
		Placements: placements,
		Zones:      zones,
		Bounds:     bounds,
		Declared:   declared,
	}
	if !declared {
		result.Bounds = l.fitted(placements)
	}
	return result, nil
}

// layouter holds the state shared by the strategies.
type layouter struct {
	opts     Options
	bounds   sexp.BoundingBox
	declared bool
}

// area is the usable region inside the margin. Undeclared bounds have no
// right or bottom edge.
func (l *layouter) area() sexp.BoundingBox {
	if !l.declared {
		return sexp.BoundingBox{
			Min: sexp.Position{X: l.opts.Margin, Y: l.opts.Margin},
			Max: sexp.Position{X: 1e9, Y: 1e9},
		}
	}
	return l.bounds.Inflate(-l.opts.Margin)
}

// place puts item so that its outline's top-left corner lands on corner.
func place(item Item, corner sexp.Position) Placement {
	pos := sexp.SnapPosition(corner.Sub(item.Box.Min))
	return Placement{
		Reference: item.Reference,
		Position:  pos,
		Box:       item.Box.Translate(pos),
		Isolation: item.Isolation,
	}
}

// verify enforces the non-overlap and containment guarantees.
func (l *layouter) verify(placements []Placement) error {
	for i := range placements {
		for j := i + 1; j < len(placements); j++ {
			if placements[i].Box.Overlaps(placements[j].Box) {
				return &LayoutError{
					Zone:   placements[j].Zone,
					Entity: placements[j].Reference,
					Msg:    fmt.Sprintf("overlaps %s", placements[i].Reference),
				}
			}
		}
		if l.declared && !l.bounds.ContainsBox(placements[i].Box) {
			return &LayoutError{
				Zone:   placements[i].Zone,
				Entity: placements[i].Reference,
				Msg:    fmt.Sprintf("outline at %s leaves the declared bounds", placements[i].Position),
			}
		}
	}
	return nil
}

// fitted returns the extent grown to hold every placement plus the margin.
func (l *layouter) fitted(placements []Placement) sexp.BoundingBox {
	bb := sexp.BoundingBox{}
	for _, p := range placements {
		bb.Expand(p.Box.Max)
	}
	bb.Max = bb.Max.Add(sexp.Position{X: l.opts.Margin, Y: l.opts.Margin})
	return bb
}
