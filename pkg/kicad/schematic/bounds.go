package schematic

import (
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
)

// BodyMargin pads symbol outlines beyond their pin connection points.
const BodyMargin = 1.27

// LocalBounds returns the symbol outline in sheet orientation, relative to
// the anchor and before rotation.
func (sym *Symbol) LocalBounds() BoundingBox {
	bb := sexp.NewBoundingBox()
	bb.Expand(Position{})
	for _, pin := range sym.Pins {
		bb.Expand(Position{X: pin.Offset.X, Y: -pin.Offset.Y})
	}
	return bb.Inflate(BodyMargin)
}

// GetBoundingBox returns the absolute outline of the symbol.
func (sym *Symbol) GetBoundingBox() BoundingBox {
	local := sym.LocalBounds()
	bb := sexp.NewBoundingBox()
	for _, c := range local.Corners() {
		bb.Expand(c.Rotate(sym.Angle).Add(sym.Position))
	}
	return bb
}

// GetBoundingBox returns the outline of a power flag.
func (ps *PowerSymbol) GetBoundingBox() BoundingBox {
	bb := sexp.NewBoundingBox()
	bb.Expand(ps.Position)
	return bb.Inflate(BodyMargin)
}

// GetBoundingBox returns the box enclosing every symbol, power flag and
// wire, or an empty box for an empty sheet.
func (s *Schematic) GetBoundingBox() BoundingBox {
	bb := sexp.NewBoundingBox()
	for _, sym := range s.Symbols {
		bb.ExpandBox(sym.GetBoundingBox())
	}
	for i := range s.PowerSymbols {
		bb.ExpandBox(s.PowerSymbols[i].GetBoundingBox())
	}
	for _, w := range s.Wires {
		bb.Expand(w.Start)
		bb.Expand(w.End)
	}
	return bb
}

// bodyRect returns the body rectangle of a library symbol in library
// coordinates, spanning the inner ends of its pins.
func bodyRect(pins []Pin) (Position, Position) {
	bb := sexp.NewBoundingBox()
	bb.Expand(Position{X: -1.016, Y: -1.016})
	bb.Expand(Position{X: 1.016, Y: 1.016})
	for _, pin := range pins {
		dir := Position{X: 1}.Rotate(-pin.Angle)
		inner := Position{X: pin.Offset.X + dir.X*pin.Length, Y: pin.Offset.Y + dir.Y*pin.Length}
		bb.Expand(sexp.SnapPosition(inner))
	}
	return bb.Min, bb.Max
}
