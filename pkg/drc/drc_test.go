package drc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/library"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/pcb"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/schematic"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
	"github.com/OpenTraceLab/kicadgen/pkg/layout"
	"github.com/OpenTraceLab/kicadgen/pkg/routing"
)

func padFootprint(ref string, x, y float64) *pcb.Footprint {
	return &pcb.Footprint{
		Reference: ref,
		Name:      "TestPad",
		Position:  sexp.PositionAngle{Position: sexp.Position{X: x, Y: y}},
		Pads: []pcb.Pad{{
			Number: "1",
			Type:   "smd",
			Shape:  "rect",
			Size:   sexp.Size{Width: 1, Height: 1},
			Layers: pcb.LayerSet{pcb.LayerFCu},
		}},
	}
}

func addPad(t *testing.T, b *pcb.Board, ref string, x, y float64, net string) *pcb.Footprint {
	t.Helper()
	fp := padFootprint(ref, x, y)
	require.NoError(t, b.AddFootprint(fp))
	if net != "" {
		_, err := b.ConnectPad(ref, "1", net)
		require.NoError(t, err)
	}
	return fp
}

func TestScenarioNoClearanceViolations(t *testing.T) {
	b := pcb.NewBoard("scenario")
	require.NoError(t, b.SetBoardProperties(100, 80, 2))
	for _, p := range []struct{ typ, ref string }{{"resistor", "R1"}, {"capacitor", "C1"}, {"led", "LED1"}} {
		part, err := library.Lookup(p.typ)
		require.NoError(t, err)
		fp, err := part.NewFootprint(p.ref, "")
		require.NoError(t, err)
		require.NoError(t, b.AddFootprint(fp))
		_, err = b.ConnectPad(p.ref, "1", "VCC")
		require.NoError(t, err)
	}

	_, err := layout.Place(layout.ForBoard(b), layout.Grid, layout.DefaultOptions())
	require.NoError(t, err)
	n, err := routing.Route(b, routing.DefaultWidthRules())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	report := Check(b, DefaultRules())
	assert.Zero(t, report.Count(KindClearance))
	assert.Zero(t, report.Count(KindWidth))
	assert.Zero(t, report.Count(KindUnroutedNet))
	assert.False(t, report.HasErrors())
}

func TestClearancePads(t *testing.T) {
	b := pcb.NewBoard("clearance")
	addPad(t, b, "TP1", 10, 10, "N1")
	addPad(t, b, "TP2", 11.3, 10, "N2")
	addPad(t, b, "TP3", 30, 10, "N2")

	report := Check(b, DefaultRules())
	require.Equal(t, 1, report.Count(KindClearance))

	var cv *ClearanceViolation
	for _, v := range report.Violations {
		if c, ok := v.(*ClearanceViolation); ok {
			cv = c
		}
	}
	require.NotNil(t, cv)
	assert.Equal(t, "pad TP1.1", cv.A)
	assert.Equal(t, "pad TP2.1", cv.B)
	assert.Equal(t, pcb.LayerFCu, cv.Layer)
	assert.InDelta(t, 0.3, cv.Distance, 1e-6)
	assert.Equal(t, SeverityError, cv.Severity())
}

func TestClearanceIgnoresUnassignedCopper(t *testing.T) {
	b := pcb.NewBoard("nonet")
	addPad(t, b, "TP1", 10, 10, "N1")
	addPad(t, b, "TP2", 10.5, 10, "")

	report := Check(b, DefaultRules())
	assert.Zero(t, report.Count(KindClearance))
}

func TestClearanceCrossingTracks(t *testing.T) {
	b := pcb.NewBoard("tracks")
	n1 := b.Nets().GetOrCreate("N1")
	n2 := b.Nets().GetOrCreate("N2")
	require.NoError(t, b.AddTrack(pcb.Track{Start: sexp.Position{X: 0, Y: 0}, End: sexp.Position{X: 10, Y: 10}, Width: 0.25, Layer: pcb.LayerFCu, Net: n1}))
	require.NoError(t, b.AddTrack(pcb.Track{Start: sexp.Position{X: 0, Y: 10}, End: sexp.Position{X: 10, Y: 0}, Width: 0.25, Layer: pcb.LayerFCu, Net: n2}))
	require.NoError(t, b.AddTrack(pcb.Track{Start: sexp.Position{X: 0, Y: 10}, End: sexp.Position{X: 10, Y: 0}, Width: 0.25, Layer: pcb.LayerBCu, Net: n1}))

	report := Check(b, DefaultRules())
	// Tracks 0 and 1 cross on F.Cu; track 2 is on the other layer.
	assert.Equal(t, 1, report.Count(KindClearance))
}

func TestWidthViolations(t *testing.T) {
	b := pcb.NewBoard("width")
	require.NoError(t, b.SetBoardProperties(20, 20, 2))
	sig := b.Nets().GetOrCreate("SIG")
	pwr := b.Nets().GetOrCreate("PWR")
	require.NoError(t, b.Nets().SetClass(pwr, "power"))

	tracks := []pcb.Track{
		{Start: sexp.Position{X: 0, Y: 0}, End: sexp.Position{X: 10, Y: 0}, Width: 0.25, Layer: pcb.LayerFCu, Net: sig},
		{Start: sexp.Position{X: 0, Y: 5}, End: sexp.Position{X: 10, Y: 5}, Width: 0.1, Layer: pcb.LayerFCu, Net: sig},
		{Start: sexp.Position{X: 0, Y: 10}, End: sexp.Position{X: 10, Y: 10}, Width: 0.3, Layer: pcb.LayerFCu, Net: pwr},
		{Start: sexp.Position{X: 0, Y: 15}, End: sexp.Position{X: 10, Y: 15}, Width: 0.8, Layer: pcb.LayerFCu, Net: pwr},
	}
	for _, tr := range tracks {
		require.NoError(t, b.AddTrack(tr))
	}

	report := Check(b, DefaultRules())
	require.Equal(t, 2, report.Count(KindWidth))
	var got []int
	for _, v := range report.Violations {
		if w, ok := v.(*WidthViolation); ok {
			got = append(got, w.Track)
		}
	}
	assert.Equal(t, []int{1, 2}, got)

	// The power class is read back from the file
	parsed, err := pcb.ParseString(pcb.Serialize(b))
	require.NoError(t, err)
	assert.Equal(t, 2, Check(parsed, DefaultRules()).Count(KindWidth))
}

func TestIsolation(t *testing.T) {
	tests := []struct {
		name  string
		lowX  float64
		count int
	}{
		{"too close", 13, 1},
		{"far enough", 20, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := pcb.NewBoard("isolation")
			addPad(t, b, "J1", 10, 10, "").Isolation = sexp.IsolationHigh
			addPad(t, b, "J2", tt.lowX, 10, "").Isolation = sexp.IsolationLow

			report := Check(b, DefaultRules())
			assert.Equal(t, tt.count, report.Count(KindIsolation))
		})
	}
}

func TestIsolationZones(t *testing.T) {
	b := pcb.NewBoard("zones")
	addPad(t, b, "J2", 12, 5, "").Isolation = sexp.IsolationLow
	require.NoError(t, b.AddZone(pcb.Zone{
		Name:      "mains",
		Layer:     pcb.LayerBCu,
		Outline:   []sexp.Position{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}},
		Isolation: sexp.IsolationHigh,
	}))

	report := Check(b, DefaultRules())
	require.Equal(t, 1, report.Count(KindIsolation))
	iv := report.Errors()[0].(*IsolationViolation)
	assert.Equal(t, "mains", iv.High)
	assert.Equal(t, "J2", iv.Low)
}

func TestOutlineWarning(t *testing.T) {
	b := pcb.NewBoard("outline")
	require.NoError(t, b.SetBoardProperties(50, 40, 2))
	outline, err := b.RectOutline(1)
	require.NoError(t, err)
	require.NoError(t, b.SetOutline(outline))
	addPad(t, b, "TP1", 10, 10, "")
	addPad(t, b, "TP2", 60, 10, "")

	report := Check(b, DefaultRules())
	require.Equal(t, 1, report.Count(KindOutline))
	assert.Equal(t, "TP2", report.Warnings()[0].(*OutlineViolation).Reference)
	assert.False(t, report.HasErrors())
}

func TestConnectivityWarnings(t *testing.T) {
	b := pcb.NewBoard("connectivity")
	addPad(t, b, "TP1", 10, 10, "LONELY")
	addPad(t, b, "TP2", 20, 10, "OPEN")
	addPad(t, b, "TP3", 30, 10, "OPEN")

	report := Check(b, DefaultRules())
	assert.Equal(t, 1, report.Count("dangling-net"))
	assert.Equal(t, 1, report.Count(KindUnroutedNet))
	assert.False(t, report.HasErrors())
	assert.Equal(t, []string{"dangling-net", KindUnroutedNet}, report.Kinds())
}

func TestCheckSchematic(t *testing.T) {
	sch := schematic.NewSchematic("check")
	require.NoError(t, sch.SetPageProperties(100, 100))
	part, err := library.Lookup("resistor")
	require.NoError(t, err)
	for _, s := range []struct {
		ref  string
		x, y float64
	}{{"R1", 50, 50}, {"R2", 51, 50}, {"R3", 200, 50}} {
		sym, err := part.NewSymbol(s.ref, "")
		require.NoError(t, err)
		sym.Position = sexp.Position{X: s.x, Y: s.y}
		require.NoError(t, sch.AddSymbol(sym))
	}

	report := CheckSchematic(sch, DefaultRules())
	assert.Equal(t, 1, report.Count(KindClearance))
	assert.Equal(t, 1, report.Count(KindOutline))
}
