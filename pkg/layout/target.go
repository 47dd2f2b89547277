package layout

import (
	"slices"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/netlist"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/pcb"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/schematic"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
)

// Target is a document whose entities can be placed. Items are reported in
// insertion order with outlines relative to their anchors.
type Target interface {
	Items() []Item
	Bounds() (sexp.BoundingBox, bool)
	Move(ref string, pos sexp.Position) error
	Tag(ref string, isolation sexp.Isolation) error
}

// BoardTarget places the footprints of a board.
type BoardTarget struct {
	board *pcb.Board
}

// ForBoard adapts a board for placement.
func ForBoard(b *pcb.Board) *BoardTarget {
	return &BoardTarget{board: b}
}

func (t *BoardTarget) Items() []Item {
	items := make([]Item, 0, len(t.board.Footprints))
	for _, fp := range t.board.Footprints {
		it := Item{
			Reference: fp.Reference,
			Kind:      fp.Name,
			Role:      fp.Role,
			Isolation: fp.Isolation,
			Box:       fp.GetBoundingBox().Translate(sexp.Position{X: -fp.Position.X, Y: -fp.Position.Y}),
		}
		for _, pad := range fp.Pads {
			it.Nets = addNet(it.Nets, pad.Net)
		}
		items = append(items, it)
	}
	return items
}

func (t *BoardTarget) Bounds() (sexp.BoundingBox, bool) {
	return t.board.Bounds()
}

func (t *BoardTarget) Move(ref string, pos sexp.Position) error {
	fp, err := t.board.Footprint(ref)
	if err != nil {
		return err
	}
	fp.Position.Position = pos
	return nil
}

func (t *BoardTarget) Tag(ref string, isolation sexp.Isolation) error {
	fp, err := t.board.Footprint(ref)
	if err != nil {
		return err
	}
	fp.Isolation = isolation
	return nil
}

// SchematicTarget places the symbols of a schematic. Power symbols follow
// their pins and are not placed.
type SchematicTarget struct {
	sch *schematic.Schematic
}

// ForSchematic adapts a schematic for placement.
func ForSchematic(s *schematic.Schematic) *SchematicTarget {
	return &SchematicTarget{sch: s}
}

func (t *SchematicTarget) Items() []Item {
	items := make([]Item, 0, len(t.sch.Symbols))
	for _, sym := range t.sch.Symbols {
		it := Item{
			Reference: sym.Reference,
			Kind:      sym.LibID,
			Role:      sym.Role,
			Isolation: sym.Isolation,
			Box:       sym.GetBoundingBox().Translate(sexp.Position{X: -sym.Position.X, Y: -sym.Position.Y}),
		}
		for _, pin := range sym.Pins {
			it.Nets = addNet(it.Nets, pin.Net)
		}
		items = append(items, it)
	}
	return items
}

func (t *SchematicTarget) Bounds() (sexp.BoundingBox, bool) {
	return t.sch.Bounds()
}

func (t *SchematicTarget) Move(ref string, pos sexp.Position) error {
	sym, err := t.sch.Symbol(ref)
	if err != nil {
		return err
	}
	sym.Position = pos
	return nil
}

func (t *SchematicTarget) Tag(ref string, isolation sexp.Isolation) error {
	sym, err := t.sch.Symbol(ref)
	if err != nil {
		return err
	}
	sym.Isolation = isolation
	return nil
}

func addNet(nets []netlist.NetID, id netlist.NetID) []netlist.NetID {
	if id == netlist.NoNet || slices.Contains(nets, id) {
		return nets
	}
	return append(nets, id)
}
