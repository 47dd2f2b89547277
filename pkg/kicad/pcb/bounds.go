package pcb

import (
	"math"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
)

// CourtyardMargin is the clearance added around pads to form a footprint's
// courtyard.
const CourtyardMargin = 0.25

// GetBoundingBox calculates the bounding box of the entire board
// Includes tracks, vias, footprints, zones and the outline
func (b *Board) GetBoundingBox() BoundingBox {
	bbox := NewBoundingBox()

	// Include all tracks
	for _, track := range b.Tracks {
		bbox.Expand(track.Start)
		bbox.Expand(track.End)
	}

	// Include all vias
	for _, via := range b.Vias {
		// Vias have a size, so expand by radius
		bbox.ExpandBox(sexp.BoundingBox{Min: via.Position, Max: via.Position}.Inflate(via.Size / 2.0))
	}

	// Include all footprints (with position transformation)
	for _, fp := range b.Footprints {
		bbox.ExpandBox(fp.GetBoundingBox())
	}

	for _, zone := range b.Zones {
		bbox.ExpandBox(sexp.PolygonBounds(zone.Outline))
	}

	if b.Outline != nil {
		bbox.ExpandBox(b.Outline.Bounds())
	}

	return bbox
}

// LocalBounds returns the courtyard of the footprint relative to its
// origin, before rotation: the pad extents grown by CourtyardMargin.
func (fp *Footprint) LocalBounds() BoundingBox {
	bbox := NewBoundingBox()

	for _, pad := range fp.Pads {
		bbox.ExpandBox(padLocalBox(pad))
	}

	// If no pads, at least include footprint origin
	if bbox.IsEmpty() {
		bbox.Expand(Position{})
	}

	return bbox.Inflate(CourtyardMargin)
}

// GetBoundingBox calculates the absolute courtyard of a footprint,
// accounting for position and rotation.
func (fp *Footprint) GetBoundingBox() BoundingBox {
	bbox := NewBoundingBox()
	for _, corner := range fp.LocalBounds().Corners() {
		bbox.Expand(fp.TransformPosition(PositionAngle{Position: corner}))
	}
	return bbox
}

// PadBox returns the absolute rectangle covered by a pad.
func (fp *Footprint) PadBox(pad Pad) BoundingBox {
	bbox := NewBoundingBox()
	local := padLocalBox(pad)
	for _, corner := range local.Corners() {
		bbox.Expand(fp.TransformPosition(PositionAngle{Position: corner}))
	}
	return bbox
}

// TransformPosition transforms a relative position by footprint position and rotation
func (fp *Footprint) TransformPosition(relPos PositionAngle) Position {
	return relPos.Position.Rotate(fp.Position.Angle).Add(fp.Position.Position)
}

// padLocalBox is the pad rectangle in footprint coordinates, including the
// pad's own rotation.
func padLocalBox(pad Pad) BoundingBox {
	hw, hh := pad.Size.Width/2.0, pad.Size.Height/2.0
	if pad.Position.Angle != 0 {
		rad := float64(pad.Position.Angle) * math.Pi / 180.0
		cos, sin := math.Abs(math.Cos(rad)), math.Abs(math.Sin(rad))
		hw, hh = hw*cos+hh*sin, hw*sin+hh*cos
	}
	return BoundingBox{
		Min: Position{X: pad.Position.X - hw, Y: pad.Position.Y - hh},
		Max: Position{X: pad.Position.X + hw, Y: pad.Position.Y + hh},
	}
}
