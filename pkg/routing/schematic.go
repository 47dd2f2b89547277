package routing

import (
	"fmt"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/netlist"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/schematic"
)

// RouteSchematic draws wires until every net of the sheet is one connected
// component and returns the number of wires created. Power flags take part
// as members of their net.
func RouteSchematic(s *schematic.Schematic) (int, error) {
	nets := s.Nets()
	byNet := make(map[netlist.NetID][]terminal)
	for _, p := range s.AllPins() {
		if p.Net == netlist.NoNet {
			continue
		}
		byNet[p.Net] = append(byNet[p.Net], terminal{key: "pin:" + p.Member().String(), pos: p.Position})
	}

	created := 0
	for _, net := range nets.Nets() {
		terms := byNet[net.ID]
		if len(terms) < 2 {
			continue
		}

		ds := netlist.NewDisjointSet()
		for _, t := range terms {
			ds.Union(t.key, pointKey("", t.pos))
		}
		for _, w := range s.Wires {
			if w.Net == net.ID {
				ds.Union(pointKey("", w.Start), pointKey("", w.End))
			}
		}

		for _, l := range span(ds, terms) {
			if err := s.AddWire(schematic.Wire{Start: l.from.pos, End: l.to.pos, Net: net.ID}); err != nil {
				return created, fmt.Errorf("failed to wire net %s: %w", net.Name, err)
			}
			created++
		}
	}
	return created, nil
}
