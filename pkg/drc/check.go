package drc

import (
	"fmt"
	"slices"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/netlist"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/pcb"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
	"github.com/OpenTraceLab/kicadgen/pkg/routing"
)

// copper is a pad, track or via reduced to the geometry the clearance check
// needs. Pads are boxes; tracks and vias are segments with a radius.
type copper struct {
	name   string
	net    netlist.NetID
	layers []string
	isBox  bool
	box    sexp.BoundingBox
	a, b   sexp.Position
	radius float64
}

func (c copper) distance(o copper) float64 {
	switch {
	case c.isBox && o.isBox:
		return sexp.BoxDistance(c.box, o.box)
	case c.isBox:
		return sexp.SegmentBoxDistance(o.a, o.b, c.box) - o.radius
	case o.isBox:
		return sexp.SegmentBoxDistance(c.a, c.b, o.box) - c.radius
	}
	return sexp.SegmentDistance(c.a, c.b, o.a, o.b) - c.radius - o.radius
}

// Check validates a board and returns every finding.
func Check(b *pcb.Board, rules Rules) *Report {
	r := &Report{}
	if err := rules.Validate(); err != nil {
		rules = DefaultRules()
	}

	checkClearance(b, rules, r)
	checkIsolation(b, rules, r)
	checkWidths(b, rules, r)
	checkOutline(b, r)

	for _, v := range b.Nets().Validate() {
		r.add(&ConnectivityViolation{Finding: v})
	}
	for _, name := range routing.Unrouted(b) {
		r.add(&ConnectivityViolation{Finding: netlist.Violation{
			Kind:     KindUnroutedNet,
			Severity: SeverityWarning,
			Net:      name,
			Message:  fmt.Sprintf("net %q is not fully connected", name),
		}})
	}
	return r
}

// boardCopper lists the copper of b that belongs to a net.
func boardCopper(b *pcb.Board) []copper {
	stack := b.CopperLayers()
	var out []copper
	for _, p := range b.AllPads() {
		if p.Pad.Net == netlist.NoNet {
			continue
		}
		out = append(out, copper{
			name:   "pad " + p.Member().String(),
			net:    p.Pad.Net,
			layers: p.Pad.Layers.CopperLayers(stack),
			isBox:  true,
			box:    p.Footprint.PadBox(*p.Pad),
		})
	}
	for i, t := range b.Tracks {
		if t.Net == netlist.NoNet {
			continue
		}
		out = append(out, copper{
			name:   fmt.Sprintf("track %d", i),
			net:    t.Net,
			layers: []string{t.Layer},
			a:      t.Start,
			b:      t.End,
			radius: t.Width / 2,
		})
	}
	for i, v := range b.Vias {
		if v.Net == netlist.NoNet {
			continue
		}
		out = append(out, copper{
			name:   fmt.Sprintf("via %d", i),
			net:    v.Net,
			layers: v.Layers.CopperLayers(stack),
			a:      v.Position,
			b:      v.Position,
			radius: v.Size / 2,
		})
	}
	return out
}

func checkClearance(b *pcb.Board, rules Rules, r *Report) {
	items := boardCopper(b)
	for i, x := range items {
		for _, y := range items[i+1:] {
			if x.net == y.net {
				continue
			}
			layer, ok := sharedLayer(x.layers, y.layers)
			if !ok {
				continue
			}
			if d := x.distance(y); d < rules.Clearance-sexp.Epsilon {
				r.add(&ClearanceViolation{A: x.name, B: y.name, Layer: layer, Distance: max(d, 0), Required: rules.Clearance})
			}
		}
	}
}

func sharedLayer(a, b []string) (string, bool) {
	for _, l := range a {
		if slices.Contains(b, l) {
			return l, true
		}
	}
	return "", false
}

// tagged is an entity with a voltage class and an extent.
type tagged struct {
	name      string
	isolation sexp.Isolation
	box       sexp.BoundingBox
}

func boardTagged(b *pcb.Board) []tagged {
	var out []tagged
	for _, fp := range b.Footprints {
		if fp.Isolation != sexp.IsolationNone {
			out = append(out, tagged{name: fp.Reference, isolation: fp.Isolation, box: fp.GetBoundingBox()})
		}
	}
	for i, z := range b.Zones {
		if z.Isolation != sexp.IsolationNone {
			name := z.Name
			if name == "" {
				name = fmt.Sprintf("zone %d", i)
			}
			out = append(out, tagged{name: name, isolation: z.Isolation, box: sexp.PolygonBounds(z.Outline)})
		}
	}
	return out
}

func checkIsolation(b *pcb.Board, rules Rules, r *Report) {
	isolate(boardTagged(b), rules.Isolation, r)
}

func isolate(items []tagged, required float64, r *Report) {
	for _, hv := range items {
		if hv.isolation != sexp.IsolationHigh {
			continue
		}
		for _, lv := range items {
			if lv.isolation != sexp.IsolationLow {
				continue
			}
			if d := sexp.BoxDistance(hv.box, lv.box); d < required-sexp.Epsilon {
				r.add(&IsolationViolation{High: hv.name, Low: lv.name, Distance: d, Required: required})
			}
		}
	}
}

func checkWidths(b *pcb.Board, rules Rules, r *Report) {
	nets := b.Nets()
	for i, t := range b.Tracks {
		class := ""
		if t.Net != netlist.NoNet {
			class = nets.Class(t.Net)
		}
		if need := rules.MinWidthFor(class); t.Width < need-sexp.Epsilon {
			r.add(&WidthViolation{Track: i, Net: nets.Name(t.Net), Class: class, Width: t.Width, Required: need})
		}
	}
}

func checkOutline(b *pcb.Board, r *Report) {
	if b.Outline == nil {
		return
	}
	for _, fp := range b.Footprints {
		for _, c := range fp.GetBoundingBox().Corners() {
			if !sexp.PointInPolygon(c, b.Outline.Points) {
				r.add(&OutlineViolation{Reference: fp.Reference})
				break
			}
		}
	}
}
