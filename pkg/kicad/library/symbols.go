package library

import (
	"fmt"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/schematic"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
)

// SymbolDef is a schematic symbol in the built-in library. Pin offsets use
// library coordinates (Y up).
type SymbolDef struct {
	LibID string
	Pins  []schematic.Pin
}

// Build instantiates the symbol at the origin.
func (d SymbolDef) Build(ref, value string) *schematic.Symbol {
	return &schematic.Symbol{
		Reference: ref,
		LibID:     d.LibID,
		Value:     value,
		Pins:      append([]schematic.Pin(nil), d.Pins...),
	}
}

func pin(number, name, kind string, x, y float64, angle sexp.Angle, length float64) schematic.Pin {
	return schematic.Pin{
		Number: number,
		Name:   name,
		Type:   kind,
		Offset: sexp.Position{X: x, Y: y},
		Angle:  angle,
		Length: length,
	}
}

// vertical is the two-pin layout of R, C, L and F: pin 1 on top.
func vertical(libID string, length float64) SymbolDef {
	return SymbolDef{LibID: libID, Pins: []schematic.Pin{
		pin("1", "", "passive", 0, 3.81, 270, length),
		pin("2", "", "passive", 0, -3.81, 90, length),
	}}
}

// horizontal is the two-pin layout of diodes: anode on the right.
func horizontal(libID string) SymbolDef {
	return SymbolDef{LibID: libID, Pins: []schematic.Pin{
		pin("1", "A", "passive", 3.81, 0, 180, 2.54),
		pin("2", "K", "passive", -3.81, 0, 0, 2.54),
	}}
}

func connector(libID string) SymbolDef {
	return SymbolDef{LibID: libID, Pins: []schematic.Pin{
		pin("1", "Pin_1", "passive", -5.08, 0, 0, 3.81),
		pin("2", "Pin_2", "passive", -5.08, -2.54, 0, 3.81),
	}}
}

func dualInline8(libID string) SymbolDef {
	d := SymbolDef{LibID: libID}
	for i := 0; i < 4; i++ {
		d.Pins = append(d.Pins, pin(fmt.Sprint(i+1), "", "bidirectional", -10.16, 3.81-float64(i)*2.54, 0, 2.54))
	}
	for i := 0; i < 4; i++ {
		d.Pins = append(d.Pins, pin(fmt.Sprint(i+5), "", "bidirectional", 10.16, -3.81+float64(i)*2.54, 180, 2.54))
	}
	return d
}

var (
	symResistor    = vertical("Device:R", 1.27)
	symCapacitor   = vertical("Device:C", 2.794)
	symPolarized   = vertical("Device:C_Polarized", 2.794)
	symInductor    = vertical("Device:L", 1.27)
	symFuse        = vertical("Device:Fuse", 1.27)
	symLED         = horizontal("Device:LED")
	symDiode       = horizontal("Device:D")
	symTerminal    = connector("Connector:Screw_Terminal_01x02")
	symHeader      = connector("Connector_Generic:Conn_01x02")
	symIC          = dualInline8("kicadgen:IC_DIP8")
	symICSmall     = dualInline8("kicadgen:IC_SOIC8")

	symBridge = SymbolDef{LibID: "Device:D_Bridge_+-AA", Pins: []schematic.Pin{
		pin("1", "+", "passive", 0, 7.62, 270, 2.54),
		pin("2", "-", "passive", 0, -7.62, 90, 2.54),
		pin("3", "", "passive", -7.62, 0, 0, 2.54),
		pin("4", "", "passive", 7.62, 0, 180, 2.54),
	}}

	symTransistor = SymbolDef{LibID: "Device:Q_NPN_EBC", Pins: []schematic.Pin{
		pin("1", "E", "passive", 2.54, -5.08, 90, 2.54),
		pin("2", "B", "input", -5.08, 0, 0, 2.54),
		pin("3", "C", "passive", 2.54, 5.08, 270, 2.54),
	}}

	symTransformer = SymbolDef{LibID: "kicadgen:Transformer_EE25", Pins: []schematic.Pin{
		pin("1", "P1", "passive", -10.16, 5.08, 0, 2.54),
		pin("2", "P2", "passive", -10.16, -5.08, 0, 2.54),
		pin("3", "A1", "passive", 0, 7.62, 270, 2.54),
		pin("4", "A2", "passive", 0, -7.62, 90, 2.54),
		pin("5", "S1", "passive", 10.16, 5.08, 180, 2.54),
		pin("6", "S2", "passive", 10.16, -5.08, 180, 2.54),
	}}
)
