// Package routing connects the members of each net with straight segments.
//
// Every net is joined greedily: the nearest pair of members in different
// connected components is linked until the net forms one component. Existing
// tracks and wires count as connections, so routing a routed document adds
// nothing. Segments ignore obstacles; the design rule check reports any
// clearance problems this causes.
package routing

import (
	"fmt"
	"math"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/netlist"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
)

// WidthRules selects track widths by net class.
type WidthRules struct {
	Default  float64            `yaml:"default"`   // Width for nets without a listed class
	Classes  map[string]float64 `yaml:"classes"`   // Net class to width
	ViaSize  float64            `yaml:"via_size"`  // Via pad diameter
	ViaDrill float64            `yaml:"via_drill"` // Via drill diameter
}

// DefaultWidthRules returns the widths used for mains-powered designs:
// signal tracks at 0.25 mm, supply nets at 0.8 mm and mains nets at 1.2 mm.
func DefaultWidthRules() WidthRules {
	return WidthRules{
		Default: 0.25,
		Classes: map[string]float64{
			"power":        0.8,
			"high_voltage": 1.2,
		},
		ViaSize:  0.8,
		ViaDrill: 0.4,
	}
}

// Width returns the track width for a net class.
func (r WidthRules) Width(class string) float64 {
	if w, ok := r.Classes[class]; ok && w > 0 {
		return w
	}
	return r.Default
}

// Validate fills unset fields with defaults and rejects impossible values.
func (r *WidthRules) Validate() error {
	def := DefaultWidthRules()
	if r.Default == 0 {
		r.Default = def.Default
	}
	if r.ViaSize == 0 {
		r.ViaSize = def.ViaSize
	}
	if r.ViaDrill == 0 {
		r.ViaDrill = def.ViaDrill
	}
	if r.Default < 0 {
		return fmt.Errorf("default track width %v is negative", r.Default)
	}
	for class, w := range r.Classes {
		if w <= 0 {
			return fmt.Errorf("track width %v for class %q is not positive", w, class)
		}
	}
	if r.ViaDrill >= r.ViaSize {
		return fmt.Errorf("via drill %v must be smaller than via size %v", r.ViaDrill, r.ViaSize)
	}
	return nil
}

// terminal is a net member resolved to a position. Schematic terminals
// have no layers.
type terminal struct {
	key    string
	pos    sexp.Position
	layers []string
}

// link is one connection chosen by spanning.
type link struct {
	from, to terminal
}

// span joins the components of terms in nearest-pair order, starting from
// the component of the first terminal. Coincident terminals are merged
// without a link.
func span(ds *netlist.DisjointSet, terms []terminal) []link {
	if len(terms) < 2 {
		return nil
	}
	var links []link
	for {
		root := ds.Find(terms[0].key)
		best, bestDist := [2]int{-1, -1}, math.Inf(1)
		for i, a := range terms {
			if ds.Find(a.key) != root {
				continue
			}
			for j, b := range terms {
				if ds.Find(b.key) == root {
					continue
				}
				if d := a.pos.DistanceTo(b.pos); d < bestDist {
					best, bestDist = [2]int{i, j}, d
				}
			}
		}
		if best[0] < 0 {
			return links
		}
		a, b := terms[best[0]], terms[best[1]]
		ds.Union(a.key, b.key)
		if bestDist >= sexp.Epsilon {
			links = append(links, link{from: a, to: b})
		}
	}
}

// pointKey identifies a copper point on a layer.
func pointKey(layer string, p sexp.Position) string {
	return "pt:" + layer + ":" + p.Key()
}
