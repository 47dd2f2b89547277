package schematic

import (
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/netlist"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
)

// ResolveWireNets sets every wire's net from the pins and labels its
// connected wire group touches. Wires are joined at shared endpoints.
// Pins take precedence over labels, and a label on an otherwise unnamed
// group declares its net. A group touching nothing is NoNet.
func (s *Schematic) ResolveWireNets() {
	ds := s.wireSets()

	groupNet := make(map[string]NetID)
	claim := func(key string, id NetID) {
		root := ds.Find(key)
		if _, ok := groupNet[root]; !ok {
			groupNet[root] = id
		}
	}

	for _, pin := range s.AllPins() {
		if pin.Net == netlist.NoNet {
			continue
		}
		if w, ok := s.wireAtPin(pin); ok {
			claim(w.Start.Key(), pin.Net)
		}
	}
	for _, l := range s.Labels {
		w, ok := s.wireUnder(l)
		if !ok {
			continue
		}
		if _, claimed := groupNet[ds.Find(w.Start.Key())]; !claimed {
			claim(w.Start.Key(), s.nets.GetOrCreate(l.Text))
		}
	}

	for i := range s.Wires {
		s.Wires[i].Net = groupNet[ds.Find(s.Wires[i].Start.Key())]
	}
}

// netLabels returns one label for every wire group that carries a net but
// touches no net pin and no label. Writing them keeps the net of such a
// group across a reparse.
func (s *Schematic) netLabels() []Label {
	ds := s.wireSets()
	named := make(map[string]bool)
	for _, pin := range s.AllPins() {
		if pin.Net == netlist.NoNet {
			continue
		}
		if w, ok := s.wireAtPin(pin); ok {
			named[ds.Find(w.Start.Key())] = true
		}
	}
	for _, l := range s.Labels {
		if w, ok := s.wireUnder(l); ok {
			named[ds.Find(w.Start.Key())] = true
		}
	}

	var out []Label
	for _, w := range s.Wires {
		root := ds.Find(w.Start.Key())
		if w.Net == netlist.NoNet || named[root] {
			continue
		}
		named[root] = true
		// A label on a pin would join the pin instead of the wire
		at := w.Start
		if len(s.pinsAt(at)) > 0 {
			at = sexp.SnapPosition(w.Start.Midpoint(w.End))
		}
		out = append(out, Label{Text: s.nets.Name(w.Net), Position: at})
	}
	return out
}

func (s *Schematic) wireSets() *netlist.DisjointSet {
	ds := netlist.NewDisjointSet()
	for _, w := range s.Wires {
		ds.Union(w.Start.Key(), w.End.Key())
	}
	return ds
}

func (s *Schematic) wireAtPin(pin PinAt) (Wire, bool) {
	for _, w := range s.Wires {
		if w.Start.Equal(pin.Position) || w.End.Equal(pin.Position) {
			return w, true
		}
	}
	return Wire{}, false
}

func (s *Schematic) wireUnder(l Label) (Wire, bool) {
	for _, w := range s.Wires {
		if sexp.PointSegmentDistance(l.Position, w.Start, w.End) < sexp.Epsilon {
			return w, true
		}
	}
	return Wire{}, false
}
