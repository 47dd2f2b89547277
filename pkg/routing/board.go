package routing

import (
	"fmt"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/netlist"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/pcb"
)

// Route adds tracks until every net of the board is one connected
// component and returns the number of track segments created. Pads without
// a common copper layer are joined through a via at the midpoint.
func Route(b *pcb.Board, rules WidthRules) (int, error) {
	if err := rules.Validate(); err != nil {
		return 0, err
	}
	stack := b.CopperLayers()
	nets := b.Nets()
	pads := padIndex(b)

	created := 0
	for _, net := range nets.Nets() {
		terms := padTerminals(nets, net.ID, pads, stack)
		if len(terms) < 2 {
			continue
		}

		ds := boardConnectivity(b, net.ID, stack, terms)
		width := rules.Width(nets.Class(net.ID))
		for _, l := range span(ds, terms) {
			n, err := connect(b, l, net.ID, width, rules)
			if err != nil {
				return created, fmt.Errorf("failed to route net %s: %w", net.Name, err)
			}
			created += n
		}
	}
	return created, nil
}

// boardConnectivity seeds a disjoint set with the copper already present on
// the net: tracks, vias and the pads they touch.
func boardConnectivity(b *pcb.Board, id netlist.NetID, stack []string, terms []terminal) *netlist.DisjointSet {
	ds := netlist.NewDisjointSet()
	for _, t := range terms {
		ds.Add(t.key)
		for _, layer := range t.layers {
			ds.Union(t.key, pointKey(layer, t.pos))
		}
	}
	for _, t := range b.Tracks {
		if t.Net == id {
			ds.Union(pointKey(t.Layer, t.Start), pointKey(t.Layer, t.End))
		}
	}
	for _, v := range b.Vias {
		if v.Net != id {
			continue
		}
		layers := v.Layers.CopperLayers(stack)
		for i := 1; i < len(layers); i++ {
			layer := layers[i]
			ds.Union(pointKey(layers[0], v.Position), pointKey(layer, v.Position))
		}
	}
	return ds
}

// connect lays one link and returns the number of segments added.
func connect(b *pcb.Board, l link, id netlist.NetID, width float64, rules WidthRules) (int, error) {
	if layer, ok := commonLayer(l.from.layers, l.to.layers); ok {
		return 1, b.AddTrack(pcb.Track{Start: l.from.pos, End: l.to.pos, Width: width, Layer: layer, Net: id})
	}
	if len(l.from.layers) == 0 || len(l.to.layers) == 0 {
		return 0, fmt.Errorf("pad at %s has no copper layer", l.from.pos)
	}

	from, to := l.from.layers[0], l.to.layers[0]
	mid := l.from.pos.Midpoint(l.to.pos)

	// Both legs and the via go in together or not at all.
	before := len(b.Tracks)
	if err := b.AddTrack(pcb.Track{Start: l.from.pos, End: mid, Width: width, Layer: from, Net: id}); err != nil {
		return 0, err
	}
	if err := b.AddTrack(pcb.Track{Start: mid, End: l.to.pos, Width: width, Layer: to, Net: id}); err != nil {
		b.Tracks = b.Tracks[:before]
		return 0, err
	}
	if err := b.AddVia(pcb.Via{
		Position: mid,
		Size:     rules.ViaSize,
		Drill:    rules.ViaDrill,
		Layers:   pcb.LayerSet{from, to},
		Net:      id,
	}); err != nil {
		b.Tracks = b.Tracks[:before]
		return 0, err
	}
	return 2, nil
}

// commonLayer returns the first layer of a, in stack order, that b also has.
func commonLayer(a, b []string) (string, bool) {
	for _, la := range a {
		for _, lb := range b {
			if la == lb {
				return la, true
			}
		}
	}
	return "", false
}

// Unrouted returns the names of the nets of b whose pads are not yet all
// joined by copper.
func Unrouted(b *pcb.Board) []string {
	stack := b.CopperLayers()
	nets := b.Nets()
	pads := padIndex(b)

	var out []string
	for _, net := range nets.Nets() {
		terms := padTerminals(nets, net.ID, pads, stack)
		ds := boardConnectivity(b, net.ID, stack, terms)
		if len(span(ds, terms)) > 0 {
			out = append(out, net.Name)
		}
	}
	return out
}

func padIndex(b *pcb.Board) map[netlist.Member]pcb.PadAt {
	pads := make(map[netlist.Member]pcb.PadAt)
	for _, p := range b.AllPads() {
		pads[p.Member()] = p
	}
	return pads
}

func padTerminals(nets *netlist.Registry, id netlist.NetID, pads map[netlist.Member]pcb.PadAt, stack []string) []terminal {
	var terms []terminal
	for _, m := range nets.Members(id) {
		p, ok := pads[m]
		if !ok {
			continue
		}
		terms = append(terms, terminal{
			key:    "pad:" + m.String(),
			pos:    p.Position,
			layers: p.Pad.Layers.CopperLayers(stack),
		})
	}
	return terms
}
