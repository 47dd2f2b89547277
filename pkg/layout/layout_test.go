package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/library"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/pcb"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/schematic"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
)

func newBoard(t *testing.T, width, height float64) *pcb.Board {
	t.Helper()
	b := pcb.NewBoard("layout")
	if width > 0 {
		require.NoError(t, b.SetBoardProperties(width, height, 2))
	}
	return b
}

func addPart(t *testing.T, b *pcb.Board, partType, ref string) *pcb.Footprint {
	t.Helper()
	p, err := library.Lookup(partType)
	require.NoError(t, err)
	fp, err := p.NewFootprint(ref, "")
	require.NoError(t, err)
	require.NoError(t, b.AddFootprint(fp))
	return fp
}

// assertNoOverlap checks the footprints as they now sit on the board.
func assertNoOverlap(t *testing.T, b *pcb.Board) {
	t.Helper()
	bounds, declared := b.Bounds()
	for i, a := range b.Footprints {
		if declared {
			assert.True(t, bounds.ContainsBox(a.GetBoundingBox()), "%s outside board", a.Reference)
		}
		for _, c := range b.Footprints[i+1:] {
			assert.False(t, a.GetBoundingBox().Overlaps(c.GetBoundingBox()), "%s overlaps %s", a.Reference, c.Reference)
		}
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"grid", Grid, false},
		{"Linear", Linear, false},
		{" clustered ", Clustered, false},
		{"zonal", Zonal, false},
		{"professional", Zonal, false},
		{"spiral", Grid, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrategy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "zonal", Zonal.String())
}

func TestOptionsValidate(t *testing.T) {
	var o Options
	require.NoError(t, o.Validate())
	assert.Equal(t, DefaultOptions().Pitch, o.Pitch)
	assert.Equal(t, 6.0, o.IsolationDistance)
	assert.NotEmpty(t, o.Zones)

	bad := DefaultOptions()
	bad.Spacing = -1
	assert.Error(t, bad.Validate())

	bad = DefaultOptions()
	bad.Axis = "diagonal"
	assert.Error(t, bad.Validate())
}

func TestPlaceNonOverlap(t *testing.T) {
	parts := []struct{ typ, ref string }{
		{"terminal", "J1"},
		{"fuse_holder", "F1"},
		{"bridge", "D1"},
		{"electrolytic", "C1"},
		{"transformer", "T1"},
		{"ic", "U1"},
		{"resistor", "R1"},
		{"resistor", "R2"},
		{"capacitor", "C2"},
		{"led", "D2"},
	}
	for _, strategy := range []Strategy{Grid, Linear, Clustered, Zonal} {
		t.Run(strategy.String(), func(t *testing.T) {
			b := newBoard(t, 300, 200)
			for _, p := range parts {
				addPart(t, b, p.typ, p.ref)
			}
			_, err := b.ConnectPad("R1", "2", "N1")
			require.NoError(t, err)
			_, err = b.ConnectPad("U1", "1", "N1")
			require.NoError(t, err)

			res, err := Place(ForBoard(b), strategy, DefaultOptions())
			require.NoError(t, err)
			assert.Len(t, res.Placements, len(parts))
			assert.True(t, res.Declared)
			assertNoOverlap(t, b)
		})
	}
}

func TestGridScenario(t *testing.T) {
	b := newBoard(t, 100, 80)
	for _, p := range []struct{ typ, ref string }{{"resistor", "R1"}, {"capacitor", "C1"}, {"led", "LED1"}} {
		addPart(t, b, p.typ, p.ref)
	}

	res, err := Place(ForBoard(b), Grid, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, res.Placements, 3)

	// Row-major insertion order, one cell per entity.
	assert.InDelta(t, 10, b.Footprints[0].Position.X, 1e-9)
	assert.InDelta(t, 20, b.Footprints[1].Position.X, 1e-9)
	assert.InDelta(t, 30, b.Footprints[2].Position.X, 1e-9)
	for _, fp := range b.Footprints {
		assert.InDelta(t, 10, fp.Position.Y, 1e-9)
	}

	for i, a := range b.Footprints {
		for _, c := range b.Footprints[i+1:] {
			assert.GreaterOrEqual(t, sexp.BoxDistance(a.GetBoundingBox(), c.GetBoundingBox()), 2.0)
		}
	}
}

func TestGridOverflow(t *testing.T) {
	b := newBoard(t, 30, 20)
	for _, ref := range []string{"R1", "R2", "R3"} {
		addPart(t, b, "resistor", ref)
	}

	_, err := Place(ForBoard(b), Grid, DefaultOptions())
	var le *LayoutError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "R3", le.Entity)

	// Nothing moves on failure.
	for _, fp := range b.Footprints {
		assert.Equal(t, sexp.Position{}, fp.Position.Position)
	}
}

func TestGridUndeclaredGrows(t *testing.T) {
	b := newBoard(t, 0, 0)
	for _, ref := range []string{"R1", "R2", "R3", "R4", "R5"} {
		addPart(t, b, "resistor", ref)
	}

	res, err := Place(ForBoard(b), Grid, DefaultOptions())
	require.NoError(t, err)
	assert.False(t, res.Declared)
	for _, fp := range b.Footprints {
		assert.True(t, res.Bounds.ContainsBox(fp.GetBoundingBox()), fp.Reference)
	}
	// Five items make a 3 column grid.
	assert.InDelta(t, b.Footprints[0].Position.X, b.Footprints[3].Position.X, 1e-9)
	assert.Greater(t, b.Footprints[3].Position.Y, b.Footprints[0].Position.Y)
	assertNoOverlap(t, b)
}

func TestLinearVertical(t *testing.T) {
	b := newBoard(t, 50, 100)
	for _, p := range []struct{ typ, ref string }{{"resistor", "R1"}, {"electrolytic", "C1"}, {"resistor", "R2"}} {
		addPart(t, b, p.typ, p.ref)
	}

	opts := DefaultOptions()
	opts.Axis = Vertical
	_, err := Place(ForBoard(b), Linear, opts)
	require.NoError(t, err)

	for i := 1; i < len(b.Footprints); i++ {
		prev, cur := b.Footprints[i-1], b.Footprints[i]
		assert.InDelta(t, prev.GetBoundingBox().Center().X, cur.GetBoundingBox().Center().X, 1e-3)
		gap := cur.GetBoundingBox().Min.Y - prev.GetBoundingBox().Max.Y
		assert.InDelta(t, opts.Spacing, gap, 1e-3)
	}
}

func TestClusteredKeepsNetsTogether(t *testing.T) {
	b := newBoard(t, 200, 100)
	for _, p := range []struct{ typ, ref string }{
		{"resistor", "R1"}, {"capacitor", "C1"}, {"resistor", "R2"}, {"capacitor", "C2"},
	} {
		addPart(t, b, p.typ, p.ref)
	}
	for _, c := range []struct{ ref, pad, net string }{
		{"R1", "2", "A"}, {"R2", "1", "A"}, {"C1", "2", "B"}, {"C2", "1", "B"},
	} {
		_, err := b.ConnectPad(c.ref, c.pad, c.net)
		require.NoError(t, err)
	}

	res, err := Place(ForBoard(b), Clustered, DefaultOptions())
	require.NoError(t, err)

	x := func(ref string) float64 {
		p, ok := res.Placement(ref)
		require.True(t, ok, ref)
		return p.Position.X
	}
	assert.Less(t, x("R1"), x("R2"))
	assert.Less(t, x("R2"), x("C1"))
	assert.Less(t, x("C1"), x("C2"))
	assertNoOverlap(t, b)
}

func TestZonalIsolation(t *testing.T) {
	b := newBoard(t, 150, 100)
	addPart(t, b, "terminal", "J1")
	addPart(t, b, "fuse", "F1")
	addPart(t, b, "resistor", "R1").Role = "output"
	addPart(t, b, "led", "D1")

	res, err := Place(ForBoard(b), Zonal, DefaultOptions())
	require.NoError(t, err)

	var names []string
	for _, z := range res.Zones {
		names = append(names, z.Name)
	}
	assert.Equal(t, []string{"input", "protection", "output", "general"}, names)

	j1, _ := b.Footprint("J1")
	f1, _ := b.Footprint("F1")
	r1, _ := b.Footprint("R1")
	d1, _ := b.Footprint("D1")
	assert.Equal(t, sexp.IsolationHigh, j1.Isolation)
	assert.Equal(t, sexp.IsolationHigh, f1.Isolation)
	assert.Equal(t, sexp.IsolationLow, r1.Isolation)
	assert.Equal(t, sexp.IsolationNone, d1.Isolation)

	for _, hv := range []*pcb.Footprint{j1, f1} {
		assert.GreaterOrEqual(t, sexp.BoxDistance(hv.GetBoundingBox(), r1.GetBoundingBox()), 6.0-1e-3)
	}
	// Signal flow runs left to right.
	assert.Less(t, j1.Position.X, f1.Position.X)
	assert.Less(t, f1.Position.X, r1.Position.X)
	assertNoOverlap(t, b)
}

func TestZonalInsufficientSpace(t *testing.T) {
	b := newBoard(t, 20, 20)
	addPart(t, b, "terminal", "J1")

	_, err := Place(ForBoard(b), Zonal, DefaultOptions())
	var le *LayoutError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "input", le.Zone)
	assert.Contains(t, err.Error(), "input")
}

func TestZonalCustomZones(t *testing.T) {
	b := newBoard(t, 100, 100)
	addPart(t, b, "resistor", "R1")

	opts := DefaultOptions()
	opts.Zones = []ZoneDefinition{{Name: "input", Roles: []string{"input"}}}
	_, err := Place(ForBoard(b), Zonal, opts)
	var le *LayoutError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "R1", le.Entity)
}

func TestPlaceSchematic(t *testing.T) {
	sch := schematic.NewSchematic("layout")
	for _, ref := range []string{"R1", "R2"} {
		p, err := library.Lookup("resistor")
		require.NoError(t, err)
		sym, err := p.NewSymbol(ref, "")
		require.NoError(t, err)
		require.NoError(t, sch.AddSymbol(sym))
	}

	res, err := Place(ForSchematic(sch), Linear, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, res.Placements, 2)

	r1, err := sch.Symbol("R1")
	require.NoError(t, err)
	r2, err := sch.Symbol("R2")
	require.NoError(t, err)
	assert.Equal(t, res.Placements[0].Position, r1.Position)
	assert.InDelta(t, r1.Position.Y, r2.Position.Y, 1e-9)
	assert.False(t, r1.GetBoundingBox().Overlaps(r2.GetBoundingBox()))

	// Pins travel with the symbol.
	pos, err := sch.PinPosition("R1", "1")
	require.NoError(t, err)
	assert.InDelta(t, r1.Position.Y-3.81, pos.Y, 1e-9)
}

// fixedTarget is a document of square items with declared bounds.
type fixedTarget struct {
	bounds sexp.BoundingBox
	items  []Item
	moved  map[string]sexp.Position
}

func (f *fixedTarget) Items() []Item                    { return f.items }
func (f *fixedTarget) Bounds() (sexp.BoundingBox, bool) { return f.bounds, true }
func (f *fixedTarget) Tag(string, sexp.Isolation) error { return nil }
func (f *fixedTarget) Move(ref string, pos sexp.Position) error {
	f.moved[ref] = pos
	return nil
}

func square(ref, role string, side float64) Item {
	return Item{Reference: ref, Role: role, Box: sexp.BoundingBox{Max: sexp.Position{X: side, Y: side}}}
}

func TestZonalIsolationAcrossBands(t *testing.T) {
	target := &fixedTarget{
		bounds: sexp.Rect(sexp.Position{}, sexp.Size{Width: 26, Height: 100}),
		items: []Item{
			square("H1", "hv", 10), square("H2", "hv", 10),
			square("M1", "mid", 10),
			square("L1", "lv", 2),
		},
		moved: map[string]sexp.Position{},
	}
	opts := DefaultOptions()
	opts.Margin = 1
	opts.Zones = []ZoneDefinition{
		{Name: "hv", Order: 0, Roles: []string{"hv"}, Isolation: sexp.IsolationHigh},
		{Name: "mid", Order: 1, Roles: []string{"mid"}},
		{Name: "lv", Order: 2, Roles: []string{"lv"}, Isolation: sexp.IsolationLow},
	}

	res, err := Place(target, Zonal, opts)
	require.NoError(t, err)
	require.Len(t, res.Zones, 3)

	// The mid zone wraps to a second band; the low zone follows it there
	// and must still clear the high zone above.
	assert.Greater(t, res.Zones[1].Box.Min.Y, res.Zones[0].Box.Max.Y)
	assert.GreaterOrEqual(t, sexp.BoxDistance(res.Zones[0].Box, res.Zones[2].Box), 6.0-1e-3)

	low, ok := res.Placement("L1")
	require.True(t, ok)
	for _, ref := range []string{"H1", "H2"} {
		high, ok := res.Placement(ref)
		require.True(t, ok)
		assert.GreaterOrEqual(t, sexp.BoxDistance(high.Box, low.Box), 6.0-1e-3, ref)
	}
	for i, a := range res.Placements {
		for _, b := range res.Placements[i+1:] {
			assert.False(t, a.Box.Overlaps(b.Box), "%s overlaps %s", a.Reference, b.Reference)
		}
	}
}
