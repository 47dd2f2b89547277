package intent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/netlist"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
	"github.com/OpenTraceLab/kicadgen/pkg/layout"
)

const ledYAML = `
name: led
width: 50
height: 40
layout: grid
components:
  - {ref: R1, type: resistor, value: 1k}
  - {ref: D1, type: led}
  - {ref: J1, type: header, role: input}
connections:
  - {net: VCC, class: power, pins: [J1.1, R1.1], power: true}
  - {net: LED_A, pins: [R1.2, D1.1]}
  - {net: GND, pins: [D1.2, J1.2], power: true}
`

const ledTOML = `
name = "led"
width = 50.0
height = 40.0
layout = "grid"

[[components]]
ref = "R1"
type = "resistor"
value = "1k"

[[components]]
ref = "D1"
type = "led"

[[components]]
ref = "J1"
type = "header"
role = "input"

[[connections]]
net = "VCC"
class = "power"
pins = ["J1.1", "R1.1"]
power = true

[[connections]]
net = "LED_A"
pins = ["R1.2", "D1.1"]

[[connections]]
net = "GND"
pins = ["D1.2", "J1.2"]
power = true
`

func TestParseFormats(t *testing.T) {
	fromYAML, err := Parse([]byte(ledYAML), YAML)
	require.NoError(t, err)
	fromTOML, err := Parse([]byte(ledTOML), TOML)
	require.NoError(t, err)

	assert.Equal(t, fromYAML, fromTOML)
	assert.Equal(t, CurrentVersion, fromYAML.Version)
	assert.Equal(t, 2, fromYAML.Layers)
	require.Len(t, fromYAML.Connections, 3)

	members, err := fromYAML.Connections[0].Members()
	require.NoError(t, err)
	assert.Equal(t, []netlist.Member{{Owner: "J1", Pin: "1"}, {Owner: "R1", Pin: "1"}}, members)

	s, err := fromYAML.Strategy()
	require.NoError(t, err)
	assert.Equal(t, layout.Grid, s)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("name: x\ncolour: red\n"), YAML)
	assert.Error(t, err)

	_, err = Parse([]byte("name = \"x\"\ncolour = \"red\"\n"), TOML)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Intent {
		return Intent{
			Name:       "t",
			Components: []Component{{Ref: "R1", Type: "resistor"}, {Ref: "R2", Type: "resistor"}},
			Connections: []Connection{
				{Net: "N1", Pins: []string{"R1.1", "R2.1"}},
			},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Intent)
		errMsg string
	}{
		{"valid", func(*Intent) {}, ""},
		{"no name", func(in *Intent) { in.Name = "" }, "no name"},
		{"version", func(in *Intent) { in.Version = 7 }, "version 7"},
		{"half size", func(in *Intent) { in.Width = 10 }, "board size"},
		{"layers", func(in *Intent) { in.Layers = 3 }, "layer count 3"},
		{"strategy", func(in *Intent) { in.Layout = "spiral" }, "spiral"},
		{"unknown type", func(in *Intent) { in.Components[1].Type = "flux" }, "flux"},
		{"isolation", func(in *Intent) { in.Components[0].Isolation = "medium" }, "medium"},
		{"duplicate ref", func(in *Intent) { in.Components[1].Ref = "R1" }, "R1"},
		{"unknown component", func(in *Intent) { in.Connections[0].Pins[1] = "U9.1" }, "U9"},
		{"unknown pin", func(in *Intent) { in.Connections[0].Pins[1] = "R2.7" }, "R2.7"},
		{"malformed pin", func(in *Intent) { in.Connections[0].Pins[1] = "R2" }, "REF.PIN"},
		{"pin on two nets", func(in *Intent) {
			in.Connections = append(in.Connections, Connection{Net: "N2", Pins: []string{"R1.1"}})
		}, "on both N1 and N2"},
		{"net twice", func(in *Intent) {
			in.Connections = append(in.Connections, Connection{Net: "N1", Pins: []string{"R1.2"}})
		}, "declared twice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid()
			tt.mutate(&in)
			err := in.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateDuplicateIsTyped(t *testing.T) {
	in := Intent{Name: "t", Components: []Component{{Ref: "R1", Type: "resistor"}, {Ref: "R1", Type: "capacitor"}}}
	var dup *sexp.DuplicateReferenceError
	assert.ErrorAs(t, in.Validate(), &dup)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "led.yml")
	require.NoError(t, os.WriteFile(path, []byte(ledYAML), 0o644))

	in, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "led", in.Name)

	_, err = LoadFile(filepath.Join(dir, "led.json"))
	assert.Error(t, err)
}
