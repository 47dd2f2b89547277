package schematic

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/netlist"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp/kicadsexp"
)

func testResistor(ref string, x, y float64) *Symbol {
	return &Symbol{
		Reference: ref,
		LibID:     "Device:R",
		Value:     "10k",
		Footprint: "Resistor_SMD:R_0805",
		Position:  Position{X: x, Y: y},
		Pins: []Pin{
			{Number: "1", Type: "passive", Offset: Position{Y: 3.81}, Angle: 270, Length: 1.27},
			{Number: "2", Type: "passive", Offset: Position{Y: -3.81}, Angle: 90, Length: 1.27},
		},
	}
}

// testSchematic builds R1 and R2 sharing VCC, R2.2 on GND through a power
// flag, a routed wire on each net and one free label.
func testSchematic(t *testing.T) *Schematic {
	t.Helper()
	s := NewSchematic("test sheet")
	require.NoError(t, s.SetPageProperties(297, 210))

	r1 := testResistor("R1", 50, 40)
	r1.Role = "input"
	r1.Isolation = sexp.IsolationHigh
	require.NoError(t, s.AddSymbol(r1))
	require.NoError(t, s.AddSymbol(testResistor("R2", 70, 40)))

	vcc, err := s.ConnectPin("R1", "1", "VCC")
	require.NoError(t, err)
	_, err = s.ConnectPin("R2", "1", "VCC")
	require.NoError(t, err)
	gnd, err := s.ConnectPin("R2", "2", "GND")
	require.NoError(t, err)

	ref, err := s.AddPowerSymbol("GND", Position{X: 70, Y: 48.89})
	require.NoError(t, err)
	require.Equal(t, "#PWR01", ref)

	a, err := s.PinPosition("R1", "1")
	require.NoError(t, err)
	b, err := s.PinPosition("R2", "1")
	require.NoError(t, err)
	require.NoError(t, s.AddWire(Wire{Start: a, End: b, Net: vcc}))

	c, err := s.PinPosition("R2", "2")
	require.NoError(t, err)
	require.NoError(t, s.AddWire(Wire{Start: c, End: Position{X: 70, Y: 48.89}, Net: gnd}))

	require.NoError(t, s.AddLabel(Label{Text: "SPARE", Position: Position{X: 100, Y: 100}}))
	return s
}

func TestPinPosition(t *testing.T) {
	s := NewSchematic("pins")
	require.NoError(t, s.AddSymbol(testResistor("R1", 50, 40)))
	rotated := testResistor("R2", 50, 40)
	rotated.Angle = 90
	require.NoError(t, s.AddSymbol(rotated))

	p, err := s.PinPosition("R1", "1")
	require.NoError(t, err)
	assert.True(t, p.Equal(Position{X: 50, Y: 36.19}), "got %s", p)

	p, err = s.PinPosition("R2", "1")
	require.NoError(t, err)
	assert.True(t, p.Equal(Position{X: 46.19, Y: 40}), "got %s", p)

	_, err = s.PinPosition("R1", "9")
	var nf *sexp.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestAddSymbolDuplicate(t *testing.T) {
	s := NewSchematic("dup")
	require.NoError(t, s.AddSymbol(testResistor("R1", 0, 0)))

	err := s.AddSymbol(testResistor("R1", 20, 0))
	var dup *sexp.DuplicateReferenceError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "R1", dup.Reference)
	assert.Len(t, s.Symbols, 1)
}

func TestAddSymbolUnknownNet(t *testing.T) {
	s := NewSchematic("nets")
	sym := testResistor("R1", 0, 0)
	sym.Pins[0].Net = 7

	err := s.AddSymbol(sym)
	var unknown *netlist.UnknownNetError
	require.ErrorAs(t, err, &unknown)
	assert.Empty(t, s.Symbols)
}

func TestAddLabelOnPin(t *testing.T) {
	s := NewSchematic("labels")
	require.NoError(t, s.AddSymbol(testResistor("R1", 50, 40)))

	require.NoError(t, s.AddLabel(Label{Text: "VCC", Position: Position{X: 50, Y: 36.19}}))
	assert.Empty(t, s.Labels)

	id, ok := s.Nets().Lookup("VCC")
	require.True(t, ok)
	assert.Equal(t, id, s.Symbols[0].Pins[0].Net)

	err := s.AddLabel(Label{Text: "GND", Position: Position{X: 50, Y: 36.19}})
	var conflict *netlist.NetConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "R1.1", conflict.Member.String())
	_, ok = s.Nets().Lookup("GND")
	assert.False(t, ok, "a rejected label must not create its net")
}

func TestAddWire(t *testing.T) {
	s := NewSchematic("wires")
	require.NoError(t, s.AddSymbol(testResistor("R1", 50, 40)))
	vcc, err := s.ConnectPin("R1", "1", "VCC")
	require.NoError(t, err)
	gnd := s.Nets().GetOrCreate("GND")

	err = s.AddWire(Wire{Start: Position{X: 50, Y: 36.19}, End: Position{X: 60, Y: 36.19}, Net: gnd})
	var conflict *netlist.NetConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, vcc, conflict.MemberNet)

	err = s.AddWire(Wire{Start: Position{X: 1, Y: 1}, End: Position{X: 1, Y: 1}})
	var geom *sexp.InvalidGeometryError
	require.ErrorAs(t, err, &geom)

	err = s.AddWire(Wire{Start: Position{}, End: Position{X: 1}, Net: 42})
	var unknown *netlist.UnknownNetError
	require.ErrorAs(t, err, &unknown)

	require.NoError(t, s.AddWire(Wire{Start: Position{X: 50, Y: 36.19}, End: Position{X: 60, Y: 36.19}, Net: vcc}))
	assert.Len(t, s.Wires, 1)
}

func TestSetPageProperties(t *testing.T) {
	tests := []struct {
		name          string
		width, height float64
		wantErr       bool
	}{
		{"a4 landscape", 297, 210, false},
		{"zero width", 0, 210, true},
		{"negative height", 297, -1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSchematic("page")
			err := s.SetPageProperties(tt.width, tt.height)
			if tt.wantErr {
				var geom *sexp.InvalidGeometryError
				assert.ErrorAs(t, err, &geom)
				_, ok := s.Bounds()
				assert.False(t, ok)
				return
			}
			require.NoError(t, err)
			bb, ok := s.Bounds()
			require.True(t, ok)
			assert.InDelta(t, tt.width, bb.Width(), 1e-9)
		})
	}
}

func TestRemove(t *testing.T) {
	s := testSchematic(t)

	var nf *sexp.NotFoundError
	require.ErrorAs(t, s.Remove("R9"), &nf)

	require.NoError(t, s.Remove("R2"))
	_, ok := s.Nets().Lookup("GND")
	assert.True(t, ok, "power flag still holds GND")

	require.NoError(t, s.Remove("#PWR01"))
	_, ok = s.Nets().Lookup("GND")
	assert.False(t, ok)
	assert.Equal(t, netlist.NoNet, s.Wires[1].Net)

	vcc, ok := s.Nets().Lookup("VCC")
	require.True(t, ok)
	assert.Equal(t, vcc, s.Wires[0].Net)
	assert.Len(t, s.Nets().Members(vcc), 1)
}

func TestSerializeDeterministic(t *testing.T) {
	s := testSchematic(t)
	first := Serialize(s)
	assert.Equal(t, first, Serialize(s))
	assert.Equal(t, first, Serialize(testSchematic(t)))

	assert.True(t, strings.HasPrefix(first,
		"(kicad_sch\n  (version 20231120)\n  (generator \"kicadgen\")\n  (generator_version \"8.0\")\n  (uuid \""), first)
	assert.Contains(t, first, `(paper "User" 297.0000 210.0000)`)
	assert.Contains(t, first, `(label "VCC" (at 50.0000 36.1900 0.0000)`)
	assert.Contains(t, first, `(symbol "power:GND"`)
	assert.Contains(t, first, `(lib_id "Device:R")`)

	// lib symbols precede wires, which precede labels and instances
	lib := strings.Index(first, "(lib_symbols")
	wire := strings.Index(first, "(wire")
	label := strings.Index(first, "(label")
	inst := strings.Index(first, "(lib_id")
	assert.True(t, lib < wire && wire < label && label < inst)
}

func TestRoundTrip(t *testing.T) {
	s := testSchematic(t)
	text := Serialize(s)

	parsed, err := ParseString(text)
	require.NoError(t, err)
	assert.Equal(t, text, Serialize(parsed))

	assert.Equal(t, FormatVersion, parsed.Version)
	assert.Equal(t, GeneratorName, parsed.Generator)
	assert.Equal(t, s.Title, parsed.Title)
	assert.Equal(t, 297.0, parsed.Width)

	require.Len(t, parsed.Symbols, 2)
	r1 := parsed.Symbols[0]
	assert.Equal(t, "R1", r1.Reference)
	assert.Equal(t, "10k", r1.Value)
	assert.Equal(t, "Resistor_SMD:R_0805", r1.Footprint)
	assert.Equal(t, "input", r1.Role)
	assert.Equal(t, sexp.IsolationHigh, r1.Isolation)
	assert.Equal(t, s.Symbols[0].Position, r1.Position)
	assert.Equal(t, "VCC", parsed.Nets().Name(r1.Pins[0].Net))
	assert.Equal(t, netlist.NoNet, r1.Pins[1].Net)
	assert.Equal(t, "GND", parsed.Nets().Name(parsed.Symbols[1].Pins[1].Net))

	require.Len(t, parsed.PowerSymbols, 1)
	assert.Equal(t, "#PWR01", parsed.PowerSymbols[0].Reference)
	assert.Equal(t, "GND", parsed.Nets().Name(parsed.PowerSymbols[0].Net))

	require.Len(t, parsed.Wires, 2)
	assert.Equal(t, "VCC", parsed.Nets().Name(parsed.Wires[0].Net))
	assert.Equal(t, "GND", parsed.Nets().Name(parsed.Wires[1].Net))

	require.Len(t, parsed.Labels, 1)
	assert.Equal(t, "SPARE", parsed.Labels[0].Text)
}

func TestResolveWireNets(t *testing.T) {
	s := NewSchematic("resolve")
	vcc := s.Nets().GetOrCreate("VCC")
	require.NoError(t, s.AddWire(Wire{Start: Position{}, End: Position{X: 10}}))
	require.NoError(t, s.AddWire(Wire{Start: Position{X: 10}, End: Position{X: 10, Y: 10}}))
	require.NoError(t, s.AddWire(Wire{Start: Position{X: 50}, End: Position{X: 60}}))
	require.NoError(t, s.AddLabel(Label{Text: "VCC", Position: Position{X: 5}}))

	s.ResolveWireNets()
	assert.Equal(t, vcc, s.Wires[0].Net)
	assert.Equal(t, vcc, s.Wires[1].Net)
	assert.Equal(t, netlist.NoNet, s.Wires[2].Net)
}

// A wire group whose net no pin names gets a label so the net is read back.
func TestWireNetWithoutPinsRoundTrip(t *testing.T) {
	s := NewSchematic("free wire")
	require.NoError(t, s.AddSymbol(testResistor("R1", 50, 40)))
	sense := s.Nets().GetOrCreate("SENSE")
	pin, err := s.PinPosition("R1", "1")
	require.NoError(t, err)
	require.NoError(t, s.AddWire(Wire{Start: pin, End: Position{X: 60, Y: 36.19}, Net: sense}))
	require.NoError(t, s.AddWire(Wire{Start: Position{X: 60, Y: 36.19}, End: Position{X: 60, Y: 30}, Net: sense}))

	text := Serialize(s)
	assert.Equal(t, 1, strings.Count(text, `(label "SENSE"`))

	parsed, err := ParseString(text)
	require.NoError(t, err)
	assert.Equal(t, text, Serialize(parsed))

	require.Len(t, parsed.Wires, 2)
	for _, w := range parsed.Wires {
		assert.Equal(t, "SENSE", parsed.Nets().Name(w.Net))
	}
	require.Len(t, parsed.Labels, 1)
	assert.True(t, parsed.Labels[0].Position.Equal(Position{X: 55, Y: 36.19}), "label moved off the pin")
	assert.Equal(t, netlist.NoNet, parsed.Symbols[0].Pins[0].Net)
}

func TestParseTruncated(t *testing.T) {
	text := Serialize(testSchematic(t))
	truncated := strings.TrimSuffix(text, ")\n")

	_, err := ParseString(truncated)
	var perr *kicadsexp.ParseError
	require.True(t, errors.As(err, &perr), "expected *ParseError, got %v", err)
	assert.Equal(t, len(truncated), perr.Offset)
	assert.Equal(t, "EOF", perr.Token)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		token string
	}{
		{
			name:  "unknown keyword",
			input: `(kicad_sch (version 20231120) (junction (at 1 1)))`,
			token: "(junction",
		},
		{
			name:  "old version",
			input: `(kicad_sch (version 20200101))`,
			token: "20200101",
		},
		{
			name:  "undefined library symbol",
			input: `(kicad_sch (version 20231120) (lib_symbols) (symbol (lib_id "Device:C") (at 0 0 0)))`,
			token: "(symbol",
		},
		{
			name:  "bad number",
			input: `(kicad_sch (version 20231120) (wire (pts (xy 1 x) (xy 2 2))))`,
			token: "x",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.input)
			var perr *kicadsexp.ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.token, perr.Token)
		})
	}
}
