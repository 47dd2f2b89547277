// Package library is the built-in part database: footprints, schematic
// symbols and the component type tags that select them.
package library

import (
	"sort"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/pcb"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/schematic"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
)

// Part joins a component type tag to its footprint and symbol.
type Part struct {
	Type      string // Component type tag (e.g., "resistor")
	Prefix    string // Reference designator prefix (e.g., "R")
	Footprint string // Short footprint name (e.g., "R_0805")
	Symbol    SymbolDef
	Role      string // Default functional role, empty for general parts
	Value     string // Default value string
}

// parts is the part database keyed by type tag
var parts = map[string]Part{
	"resistor":        {Prefix: "R", Footprint: "R_0805", Symbol: symResistor, Value: "10k"},
	"resistor_1206":   {Prefix: "R", Footprint: "R_1206", Symbol: symResistor, Value: "10k"},
	"resistor_axial":  {Prefix: "R", Footprint: "R_Axial", Symbol: symResistor, Value: "10k"},
	"capacitor":       {Prefix: "C", Footprint: "C_0805", Symbol: symCapacitor, Value: "100n"},
	"electrolytic":    {Prefix: "C", Footprint: "C_Elec_8x10", Symbol: symPolarized, Value: "470u"},
	"electrolytic_10": {Prefix: "C", Footprint: "C_Elec_10x10", Symbol: symPolarized, Value: "1000u"},
	"led":             {Prefix: "D", Footprint: "LED_0805", Symbol: symLED, Value: "LED"},
	"diode":           {Prefix: "D", Footprint: "D_SOD123", Symbol: symDiode, Value: "1N4148"},
	"rectifier":       {Prefix: "D", Footprint: "D_DO41", Symbol: symDiode, Role: "rectification", Value: "1N4007"},
	"bridge":          {Prefix: "D", Footprint: "D_Bridge", Symbol: symBridge, Role: "rectification", Value: "DB107"},
	"ic":              {Prefix: "U", Footprint: "DIP8", Symbol: symIC, Value: "IC"},
	"ic_smd":          {Prefix: "U", Footprint: "SOP8", Symbol: symICSmall, Value: "IC"},
	"transistor":      {Prefix: "Q", Footprint: "TO92", Symbol: symTransistor, Value: "2N3904"},
	"terminal":        {Prefix: "J", Footprint: "TerminalBlock_2P", Symbol: symTerminal, Role: "input", Value: "Screw_Terminal"},
	"header":          {Prefix: "J", Footprint: "Header_2P", Symbol: symHeader, Value: "Conn_01x02"},
	"inductor":        {Prefix: "L", Footprint: "L_Radial", Symbol: symInductor, Value: "100u"},
	"transformer":     {Prefix: "T", Footprint: "Transformer_EE25", Symbol: symTransformer, Role: "power-stage", Value: "EE25"},
	"fuse":            {Prefix: "F", Footprint: "Fuse_1206", Symbol: symFuse, Role: "protection", Value: "1A"},
	"fuse_holder":     {Prefix: "F", Footprint: "Fuse_5x20", Symbol: symFuse, Role: "protection", Value: "1A"},
}

// Lookup returns the part registered for a type tag.
func Lookup(partType string) (Part, error) {
	p, ok := parts[partType]
	if !ok {
		return Part{}, &sexp.NotFoundError{Kind: "part type", Reference: partType}
	}
	p.Type = partType
	return p, nil
}

// Types lists every known type tag in sorted order.
func Types() []string {
	out := make([]string, 0, len(parts))
	for t := range parts {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// NewFootprint instantiates the part's footprint. An empty value uses the
// part default.
func (p Part) NewFootprint(ref, value string) (*pcb.Footprint, error) {
	def, err := Footprint(p.Footprint)
	if err != nil {
		return nil, err
	}
	fp := def.Build(ref, p.value(value))
	fp.Role = p.Role
	return fp, nil
}

// NewSymbol instantiates the part's schematic symbol with its footprint
// assignment filled in.
func (p Part) NewSymbol(ref, value string) (*schematic.Symbol, error) {
	def, err := Footprint(p.Footprint)
	if err != nil {
		return nil, err
	}
	sym := p.Symbol.Build(ref, p.value(value))
	sym.Footprint = def.ID()
	sym.Role = p.Role
	return sym, nil
}

func (p Part) value(v string) string {
	if v != "" {
		return v
	}
	return p.Value
}
