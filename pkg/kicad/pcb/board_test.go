package pcb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/netlist"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
)

func testFootprint(ref string, x, y float64) *Footprint {
	return &Footprint{
		Reference: ref,
		Name:      "R_0805",
		Value:     "10k",
		Position:  PositionAngle{Position: Position{X: x, Y: y}},
		Pads: []Pad{
			{Number: "1", Type: "smd", Shape: "roundrect", Position: PositionAngle{Position: Position{X: -1.025}},
				Size: Size{Width: 1.15, Height: 1.05}, Layers: LayerSet{"F.Cu", "F.Paste", "F.Mask"}, PinType: "passive"},
			{Number: "2", Type: "smd", Shape: "roundrect", Position: PositionAngle{Position: Position{X: 1.025}},
				Size: Size{Width: 1.15, Height: 1.05}, Layers: LayerSet{"F.Cu", "F.Paste", "F.Mask"}, PinType: "passive"},
		},
	}
}

func testBoard(t *testing.T) *Board {
	t.Helper()
	b := NewBoard("test board")
	require.NoError(t, b.SetBoardProperties(100, 80, 2))

	r1 := testFootprint("R1", 10, 10)
	r1.Role = "input"
	r1.Isolation = sexp.IsolationHigh
	r1.Model = "${KICAD8_3DMODEL_DIR}/Resistor_SMD.3dshapes/R_0805_2012Metric.wrl"
	require.NoError(t, b.AddFootprint(r1))
	require.NoError(t, b.AddFootprint(testFootprint("R2", 20, 10)))

	vcc, err := b.ConnectPad("R1", "1", "VCC")
	require.NoError(t, err)
	_, err = b.ConnectPad("R2", "1", "VCC")
	require.NoError(t, err)
	gnd, err := b.ConnectPad("R2", "2", "GND")
	require.NoError(t, err)

	p1, err := b.PadPosition("R1", "1")
	require.NoError(t, err)
	p2, err := b.PadPosition("R2", "1")
	require.NoError(t, err)
	require.NoError(t, b.AddTrack(Track{Start: p1, End: p2, Width: 0.25, Layer: LayerFCu, Net: vcc}))
	require.NoError(t, b.AddVia(Via{Position: Position{X: 15, Y: 20}, Size: 0.8, Drill: 0.4, Net: gnd}))

	outline, err := b.RectOutline(1)
	require.NoError(t, err)
	require.NoError(t, b.SetOutline(outline))

	require.NoError(t, b.AddZone(Zone{
		Name: "GND_pour", Net: gnd, Layer: LayerBCu, Outline: outline[:4],
		MinThickness: 0.25, Clearance: 0.5,
	}))
	return b
}

// Adding R1 twice must fail and leave exactly one R1.
func TestAddFootprintDuplicate(t *testing.T) {
	b := NewBoard("dup")
	require.NoError(t, b.AddFootprint(testFootprint("R1", 0, 0)))

	err := b.AddFootprint(testFootprint("R1", 5, 5))
	var dup *sexp.DuplicateReferenceError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "R1", dup.Reference)
	assert.Len(t, b.Footprints, 1)
	assert.Equal(t, 0.0, b.Footprints[0].Position.X)
}

func TestAddFootprintUnknownNet(t *testing.T) {
	b := NewBoard("nets")
	fp := testFootprint("R1", 0, 0)
	fp.Pads[0].Net = 7

	var unknown *netlist.UnknownNetError
	require.ErrorAs(t, b.AddFootprint(fp), &unknown)
	assert.Empty(t, b.Footprints)
}

func TestRemove(t *testing.T) {
	b := testBoard(t)

	var nf *sexp.NotFoundError
	require.ErrorAs(t, b.Remove("U9"), &nf)

	require.NoError(t, b.Remove("R2"))
	_, err := b.Footprint("R2")
	require.ErrorAs(t, err, &nf)

	_, hasGND := b.Nets().Lookup("GND")
	assert.False(t, hasGND, "GND lost its only member and is pruned")
	assert.Equal(t, netlist.NoNet, b.Vias[0].Net)
	assert.Equal(t, netlist.NoNet, b.Zones[0].Net)

	vcc, ok := b.Nets().Lookup("VCC")
	require.True(t, ok)
	assert.Equal(t, []netlist.Member{{Owner: "R1", Pin: "1"}}, b.Nets().Members(vcc))
}

func TestSetBoardProperties(t *testing.T) {
	tests := []struct {
		name          string
		width, height float64
		layers        int
		wantErr       bool
	}{
		{"valid", 100, 80, 2, false},
		{"four layers", 50, 50, 4, false},
		{"zero width", 0, 80, 2, true},
		{"negative height", 100, -1, 2, true},
		{"three layers", 100, 80, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBoard("props")
			err := b.SetBoardProperties(tt.width, tt.height, tt.layers)
			if tt.wantErr {
				var geo *sexp.InvalidGeometryError
				assert.ErrorAs(t, err, &geo)
				assert.Equal(t, 0.0, b.Width)
				return
			}
			require.NoError(t, err)
			assert.Len(t, b.CopperLayers(), tt.layers)
		})
	}
}

func TestAddTrackNetConflict(t *testing.T) {
	b := testBoard(t)
	gnd, _ := b.Nets().Lookup("GND")
	start, err := b.PadPosition("R1", "1") // VCC
	require.NoError(t, err)

	err = b.AddTrack(Track{Start: start, End: Position{X: 50, Y: 50}, Width: 0.25, Layer: LayerFCu, Net: gnd})
	var conflict *netlist.NetConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, netlist.Member{Owner: "R1", Pin: "1"}, conflict.Member)

	// Unassigned tracks may touch any pad
	assert.NoError(t, b.AddTrack(Track{Start: start, End: Position{X: 50, Y: 50}, Width: 0.25, Layer: LayerFCu}))

	var unknown *netlist.UnknownNetError
	assert.ErrorAs(t, b.AddTrack(Track{Start: start, End: start, Width: 0.25, Layer: LayerFCu, Net: 99}), &unknown)
}

func TestSetOutline(t *testing.T) {
	b := NewBoard("outline")
	open := []Position{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}

	var geo *sexp.InvalidGeometryError
	require.ErrorAs(t, b.SetOutline(open), &geo)
	assert.Nil(t, b.Outline)

	require.NoError(t, b.SetOutline(append(open, open[0])))
	assert.Len(t, b.Outline.Points, 5)
}

func TestFootprintBounds(t *testing.T) {
	fp := testFootprint("R1", 10, 10)
	bb := fp.GetBoundingBox()
	assert.InDelta(t, 10-1.6-0.25, bb.Min.X, 1e-9)
	assert.InDelta(t, 10+1.6+0.25, bb.Max.X, 1e-9)
	assert.InDelta(t, 10-0.525-0.25, bb.Min.Y, 1e-9)

	fp.Position.Angle = 90
	rotated := fp.GetBoundingBox()
	assert.InDelta(t, bb.Width(), rotated.Height(), 1e-9)
	assert.InDelta(t, bb.Height(), rotated.Width(), 1e-9)
}
