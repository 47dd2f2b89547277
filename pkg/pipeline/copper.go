package pipeline

import (
	"fmt"
	"math"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/netlist"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/pcb"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/schematic"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
	"github.com/OpenTraceLab/kicadgen/pkg/routing"
)

// CopperOptions control the pours and stitching vias added to boards whose
// intent asks for a ground plane.
type CopperOptions struct {
	MinThickness   float64 `yaml:"min_thickness"`   // Narrowest fill of every pour
	PowerClearance float64 `yaml:"power_clearance"` // Gap around power planes, at least the rule clearance
	StitchPitch    float64 `yaml:"stitch_pitch"`    // Ground via grid spacing
	NoStitching    bool    `yaml:"no_stitching"`
}

// DefaultCopperOptions returns the pour settings used when none are
// configured.
func DefaultCopperOptions() CopperOptions {
	return CopperOptions{
		MinThickness:   0.25,
		PowerClearance: 0.6,
		StitchPitch:    10,
	}
}

// Validate fills unset values with defaults and rejects negative ones.
func (o *CopperOptions) Validate() error {
	def := DefaultCopperOptions()
	if o.MinThickness == 0 {
		o.MinThickness = def.MinThickness
	}
	if o.PowerClearance == 0 {
		o.PowerClearance = def.PowerClearance
	}
	if o.StitchPitch == 0 {
		o.StitchPitch = def.StitchPitch
	}
	if o.MinThickness < 0 || o.PowerClearance < 0 || o.StitchPitch < 0 {
		return fmt.Errorf("copper settings must not be negative")
	}
	return nil
}

// Zone priorities. Inner planes fill before the outer pours.
const (
	outerPriority = 1
	planePriority = 2
)

// copperPlan lists the pours of a board:
//
//	2 layers: GND on F.Cu, and the first power net on B.Cu or GND again
//	          when the design has no power net
//	4 layers: GND on In1.Cu, the power nets side by side on In2.Cu, GND on
//	          both outer layers
//
// Every pour covers the board outline except split power planes, which
// divide it into vertical strips.
func copperPlan(layers []string, gnd netlist.NetID, power []netlist.NetID, edge sexp.BoundingBox) []pcb.Zone {
	full := rectPoints(edge)
	ground := func(layer string, priority int) pcb.Zone {
		return pcb.Zone{Net: gnd, Layer: layer, Outline: full, Priority: priority}
	}

	if len(layers) == 2 {
		zones := []pcb.Zone{ground(pcb.LayerFCu, outerPriority)}
		if len(power) == 0 {
			return append(zones, ground(pcb.LayerBCu, outerPriority))
		}
		return append(zones, pcb.Zone{Net: power[0], Layer: pcb.LayerBCu, Outline: full, Priority: planePriority})
	}

	zones := []pcb.Zone{ground(layers[1], planePriority)}
	strip := edge.Width() / float64(len(power))
	for i, id := range power {
		area := edge
		area.Min.X = edge.Min.X + float64(i)*strip
		area.Max.X = area.Min.X + strip
		zones = append(zones, pcb.Zone{Net: id, Layer: layers[2], Outline: rectPoints(area), Priority: planePriority + i})
	}
	return append(zones,
		ground(layers[0], outerPriority),
		ground(layers[len(layers)-1], outerPriority),
	)
}

func rectPoints(bb sexp.BoundingBox) []sexp.Position {
	c := bb.Corners()
	return c[:]
}

// groundNet picks the net named GND, or else the first ground net.
func groundNet(nets *netlist.Registry) (netlist.NetID, bool) {
	if id, ok := nets.Lookup("GND"); ok {
		return id, true
	}
	for _, n := range nets.Nets() {
		if schematic.IsGround(n.Name) {
			return n.ID, true
		}
	}
	return netlist.NoNet, false
}

// powerNets returns the non-ground nets of class power in code order, or
// VCC alone when no net carries the class.
func powerNets(nets *netlist.Registry) []netlist.NetID {
	var out []netlist.NetID
	for _, n := range nets.Nets() {
		if n.Class == "power" && !schematic.IsGround(n.Name) {
			out = append(out, n.ID)
		}
	}
	if len(out) == 0 {
		if id, ok := nets.Lookup("VCC"); ok {
			out = append(out, id)
		}
	}
	return out
}

// stitch drops through vias on net onto a grid of pitch centred in edge.
// A grid point is skipped when the via would come closer than clearance to
// the board edge, a footprint courtyard, a track or another via. It
// returns the number of vias added.
func stitch(b *pcb.Board, net netlist.NetID, edge sexp.BoundingBox, pitch, clearance float64, widths routing.WidthRules) (int, error) {
	cols := int(math.Floor(edge.Width() / pitch))
	rows := int(math.Floor(edge.Height() / pitch))
	x0 := edge.Min.X + (edge.Width()-float64(cols-1)*pitch)/2
	y0 := edge.Min.Y + (edge.Height()-float64(rows-1)*pitch)/2
	radius := widths.ViaSize / 2

	added := 0
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			at := sexp.SnapPosition(sexp.Position{X: x0 + float64(col)*pitch, Y: y0 + float64(row)*pitch})
			if !stitchFree(b, at, radius, edge, clearance) {
				continue
			}
			if err := b.AddVia(pcb.Via{
				Position: at,
				Size:     widths.ViaSize,
				Drill:    widths.ViaDrill,
				Layers:   pcb.LayerSet{pcb.LayerFCu, pcb.LayerBCu},
				Net:      net,
			}); err != nil {
				return added, err
			}
			added++
		}
	}
	return added, nil
}

func stitchFree(b *pcb.Board, at sexp.Position, radius float64, edge sexp.BoundingBox, clearance float64) bool {
	box := sexp.BoundingBox{Min: at, Max: at}.Inflate(radius)
	if !edge.ContainsBox(box.Inflate(clearance)) {
		return false
	}
	for _, fp := range b.Footprints {
		if sexp.BoxDistance(box, fp.GetBoundingBox()) < clearance {
			return false
		}
	}
	for _, t := range b.Tracks {
		if sexp.PointSegmentDistance(at, t.Start, t.End) < radius+t.Width/2+clearance {
			return false
		}
	}
	for _, v := range b.Vias {
		if at.DistanceTo(v.Position) < radius+v.Size/2+clearance {
			return false
		}
	}
	return true
}
