package pcb

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

// Test parseHeader function
func TestParseHeader(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantVersion int
		wantGen     string
		wantErr     bool
	}{
		{
			name:        "valid KiCad 6.0 with generator",
			input:       "(kicad_pcb (version 20211014) (generator pcbnew))",
			wantVersion: 20211014,
			wantGen:     "pcbnew",
		},
		{
			name:        "valid KiCad 6.0 with host",
			input:       "(kicad_pcb (version 20221018) (host pcbnew \"(6.0.10)\"))",
			wantVersion: 20221018,
			wantGen:     "pcbnew",
		},
		{
			name:        "KiCad 8 quoted generator",
			input:       "(kicad_pcb (version 20240108) (generator \"kicadgen\"))",
			wantVersion: 20240108,
			wantGen:     "kicadgen",
		},
		{
			name:    "missing version",
			input:   "(kicad_pcb (generator pcbnew))",
			wantErr: true,
		},
		{
			name:    "old version (KiCad 5)",
			input:   "(kicad_pcb (version 20171130))",
			wantErr: true,
		},
		{
			name:        "no generator (should default to unknown)",
			input:       "(kicad_pcb (version 20211014))",
			wantVersion: 20211014,
			wantGen:     "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := kicadsexp.ParseDocument(tt.input, "kicad_pcb")
			require.NoError(t, err)

			version, gen, err := parseHeader(root)
			if tt.wantErr {
				var perr *kicadsexp.ParseError
				assert.ErrorAs(t, err, &perr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, version)
			assert.Equal(t, tt.wantGen, gen)
		})
	}
}

func TestSerializeIsDeterministic(t *testing.T) {
	b := testBoard(t)
	assert.Equal(t, Serialize(b), Serialize(b))
	assert.Equal(t, Serialize(b), Serialize(testBoard(t)), "UUIDs derive from content, not randomness")
}

func TestRoundTrip(t *testing.T) {
	b := testBoard(t)
	text := Serialize(b)

	parsed, err := ParseString(text)
	require.NoError(t, err)

	assert.Equal(t, text, Serialize(parsed))

	assert.Equal(t, b.Width, parsed.Width)
	assert.Equal(t, b.Height, parsed.Height)
	assert.Equal(t, 2, parsed.LayerCount)
	assert.Equal(t, b.Nets().Nets(), parsed.Nets().Nets())
	require.Len(t, parsed.Footprints, 2)

	r1, err := parsed.Footprint("R1")
	require.NoError(t, err)
	assert.Equal(t, "input", r1.Role)
	assert.Equal(t, sexp.IsolationHigh, r1.Isolation)
	assert.Equal(t, b.Footprints[0].Model, r1.Model)
	assert.Equal(t, b.Footprints[0].Pads, r1.Pads)

	vcc, _ := parsed.Nets().Lookup("VCC")
	assert.Equal(t, vcc, parsed.Nets().NetOf(netlist.Member{Owner: "R1", Pin: "1"}))

	assert.Equal(t, b.Tracks, parsed.Tracks)
	assert.Equal(t, b.Vias, parsed.Vias)
	assert.Equal(t, b.Zones, parsed.Zones)
	assert.Equal(t, b.Outline.Points, parsed.Outline.Points)
}

func TestNetClassRoundTrip(t *testing.T) {
	b := testBoard(t)
	vcc, _ := b.Nets().Lookup("VCC")
	gnd, _ := b.Nets().Lookup("GND")
	require.NoError(t, b.Nets().SetClass(vcc, "power"))
	require.NoError(t, b.Nets().SetClass(gnd, "power"))

	text := Serialize(b)
	assert.Contains(t, text, `(net_class "power"`)
	assert.Equal(t, 1, strings.Count(text, "(net_class"))

	parsed, err := ParseString(text)
	require.NoError(t, err)
	assert.Equal(t, text, Serialize(parsed))

	for _, name := range []string{"VCC", "GND"} {
		id, ok := parsed.Nets().Lookup(name)
		require.True(t, ok)
		assert.Equal(t, "power", parsed.Nets().Class(id), name)
	}
}

func TestSerializeFieldOrder(t *testing.T) {
	text := Serialize(testBoard(t))

	assert.True(t, strings.HasPrefix(text, "(kicad_pcb\n  (version 20240108)\n  (generator \"kicadgen\")"))
	assert.Contains(t, text, `(paper "User" 100.0000 80.0000)`)
	assert.Contains(t, text, `(net 0 "")`)

	padLine := `(pad "1" smd roundrect (at -1.0250 0.0000) (size 1.1500 1.0500) (layers "F.Cu" "F.Paste" "F.Mask") (roundrect_rratio 0.2500) (net 1 "VCC") (pintype "passive")`
	assert.Contains(t, text, padLine)

	order := []string{"(layer \"F.Cu\")", "(uuid ", "(at 10.0000 10.0000 0.0000)", "(property \"Reference\"", "(attr smd)", "(fp_rect", "(pad \"1\"", "(model "}
	fp := text[strings.Index(text, "(footprint \"R_0805\""):]
	last := -1
	for _, token := range order {
		idx := strings.Index(fp, token)
		require.GreaterOrEqual(t, idx, 0, "missing %s", token)
		assert.Greater(t, idx, last, "%s out of order", token)
		last = idx
	}
}

func TestParseTruncated(t *testing.T) {
	text := Serialize(testBoard(t))
	truncated := strings.TrimSuffix(text, ")\n")

	_, err := ParseString(truncated)
	var perr *kicadsexp.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, len(truncated), perr.Offset)
	assert.Equal(t, "EOF", perr.Token)
}

func TestParseRejectsUnknownContent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		token string
	}{
		{
			name:  "unknown top-level keyword",
			input: "(kicad_pcb (version 20240108) (layers (0 \"F.Cu\" signal)) (gr_text \"x\"))",
			token: "(gr_text",
		},
		{
			name:  "bad number",
			input: "(kicad_pcb (version 20240108) (layers (0 \"F.Cu\" signal)) (segment (start a 0) (end 1 1) (width 0.2) (layer \"F.Cu\") (net 0)))",
			token: "a",
		},
		{
			name:  "undeclared net",
			input: "(kicad_pcb (version 20240108) (layers (0 \"F.Cu\" signal)) (via (at 0 0) (size 0.8) (drill 0.4) (layers \"F.Cu\" \"B.Cu\") (net 3)))",
			token: "(net",
		},
		{
			name:  "net class of undeclared net",
			input: "(kicad_pcb (version 20240108) (layers (0 \"F.Cu\" signal)) (net 0 \"\") (net_class \"power\" (add_net \"VCC\")))",
			token: "(add_net",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.input)
			var perr *kicadsexp.ParseError
			require.True(t, errors.As(err, &perr), "expected ParseError, got %v", err)
			assert.Equal(t, tt.token, perr.Token)
			assert.Greater(t, perr.Offset, 0)
		})
	}
}
