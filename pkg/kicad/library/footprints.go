package library

import (
	"fmt"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/pcb"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
)

// PadDef is a pad of a footprint definition. Drill 0 means surface mount.
type PadDef struct {
	Number string
	X, Y   float64
	W, H   float64
	Shape  string
	Drill  float64
}

// FootprintDef is a package in the built-in footprint library.
type FootprintDef struct {
	Library     string // KiCad library nickname (e.g., "Resistor_SMD")
	Name        string // Footprint name inside the library
	Description string
	Pads        []PadDef
}

// ID returns the "Library:Name" identifier used by schematic symbols.
func (d FootprintDef) ID() string {
	return d.Library + ":" + d.Name
}

// Model returns the 3D model path KiCad ships for the footprint.
func (d FootprintDef) Model() string {
	return fmt.Sprintf("${KICAD8_3DMODEL_DIR}/%s.3dshapes/%s.wrl", d.Library, d.Name)
}

// Build instantiates the footprint at the origin.
func (d FootprintDef) Build(ref, value string) *pcb.Footprint {
	fp := &pcb.Footprint{
		Reference:   ref,
		Name:        d.Name,
		Value:       value,
		Description: d.Description,
		Layer:       pcb.LayerFCu,
		Model:       d.Model(),
	}
	for _, p := range d.Pads {
		pad := pcb.Pad{
			Number:   p.Number,
			Type:     "smd",
			Shape:    p.Shape,
			Position: sexp.PositionAngle{Position: sexp.Position{X: p.X, Y: p.Y}},
			Size:     sexp.Size{Width: p.W, Height: p.H},
			Layers:   pcb.LayerSet{pcb.LayerFCu, pcb.LayerFPaste, pcb.LayerFMask},
			PinType:  "passive",
		}
		if p.Drill > 0 {
			pad.Type = "thru_hole"
			pad.Drill = p.Drill
			pad.Layers = pcb.LayerSet{pcb.LayerAllCu, pcb.LayerAllMask}
		}
		fp.Pads = append(fp.Pads, pad)
	}
	return fp
}

// twoPad builds the common symmetric two-terminal layout along X.
func twoPad(pitch, w, h float64, shape1, shape2 string, drill float64) []PadDef {
	return []PadDef{
		{Number: "1", X: -pitch / 2, W: w, H: h, Shape: shape1, Drill: drill},
		{Number: "2", X: pitch / 2, W: w, H: h, Shape: shape2, Drill: drill},
	}
}

func dip8() []PadDef {
	var pads []PadDef
	for i := 0; i < 4; i++ {
		pads = append(pads, PadDef{Number: fmt.Sprint(i + 1), X: -3.81, Y: 3.81 - float64(i)*2.54, W: 1.5, H: 1.5, Shape: "circle", Drill: 0.8})
	}
	for i := 0; i < 4; i++ {
		pads = append(pads, PadDef{Number: fmt.Sprint(i + 5), X: 3.81, Y: -3.81 + float64(i)*2.54, W: 1.5, H: 1.5, Shape: "circle", Drill: 0.8})
	}
	pads[0].Shape = "rect"
	return pads
}

func sop8() []PadDef {
	var pads []PadDef
	for i := 0; i < 4; i++ {
		pads = append(pads, PadDef{Number: fmt.Sprint(i + 1), X: -2.7, Y: 2.275 - float64(i)*1.27, W: 1.5, H: 0.6, Shape: "roundrect"})
	}
	for i := 0; i < 4; i++ {
		pads = append(pads, PadDef{Number: fmt.Sprint(i + 5), X: 2.7, Y: -2.275 + float64(i)*1.27, W: 1.5, H: 0.6, Shape: "roundrect"})
	}
	return pads
}

// footprints is the built-in footprint library keyed by short name.
var footprints = map[string]FootprintDef{
	"R_0805": {
		Library: "Resistor_SMD", Name: "R_0805_2012Metric",
		Description: "Resistor SMD 0805 (2012 Metric)",
		Pads:        twoPad(2.05, 1.15, 1.05, "roundrect", "roundrect", 0),
	},
	"R_1206": {
		Library: "Resistor_SMD", Name: "R_1206_3216Metric",
		Description: "Resistor SMD 1206 (3216 Metric)",
		Pads:        twoPad(2.925, 1.125, 1.75, "roundrect", "roundrect", 0),
	},
	"R_Axial": {
		Library: "Resistor_THT", Name: "R_Axial_DIN0207_L6.3mm_D2.5mm_P10.16mm_Horizontal",
		Description: "Resistor, Axial, 1/4W, 6.3mm body",
		Pads:        twoPad(10.16, 1.8, 1.8, "circle", "circle", 0.8),
	},
	"C_0805": {
		Library: "Capacitor_SMD", Name: "C_0805_2012Metric",
		Description: "Capacitor SMD 0805 (2012 Metric)",
		Pads:        twoPad(1.9, 1.0, 1.25, "roundrect", "roundrect", 0),
	},
	"C_Elec_8x10": {
		Library: "Capacitor_THT", Name: "CP_Radial_D8.0mm_P3.50mm",
		Description: "Electrolytic Capacitor, 8mm diameter, 3.5mm pitch",
		Pads:        twoPad(3.5, 2.0, 2.0, "rect", "circle", 1.0),
	},
	"C_Elec_10x10": {
		Library: "Capacitor_THT", Name: "CP_Radial_D10.0mm_P5.00mm",
		Description: "Electrolytic Capacitor, 10mm diameter, 5mm pitch",
		Pads:        twoPad(5.0, 2.5, 2.5, "rect", "circle", 1.0),
	},
	"LED_0805": {
		Library: "LED_SMD", Name: "LED_0805_2012Metric",
		Description: "LED SMD 0805 (2012 Metric)",
		Pads:        twoPad(1.875, 0.975, 1.4, "roundrect", "roundrect", 0),
	},
	"D_SOD123": {
		Library: "Diode_SMD", Name: "D_SOD-123",
		Description: "Diode SOD-123",
		Pads:        twoPad(2.8, 1.1, 0.9, "rect", "roundrect", 0),
	},
	"D_DO41": {
		Library: "Diode_THT", Name: "D_DO-41_SOD81_P10.16mm_Horizontal",
		Description: "Diode DO-41 (SOD81), Axial",
		Pads:        twoPad(10.16, 2.0, 2.0, "rect", "circle", 1.0),
	},
	"D_Bridge": {
		Library: "Diode_THT", Name: "Diode_Bridge_DIP-4",
		Description: "Diode Bridge, DIP-4",
		Pads: []PadDef{
			{Number: "1", X: -3.81, Y: -2.54, W: 1.5, H: 1.5, Shape: "rect", Drill: 0.8},
			{Number: "2", X: -3.81, Y: 2.54, W: 1.5, H: 1.5, Shape: "circle", Drill: 0.8},
			{Number: "3", X: 3.81, Y: 2.54, W: 1.5, H: 1.5, Shape: "circle", Drill: 0.8},
			{Number: "4", X: 3.81, Y: -2.54, W: 1.5, H: 1.5, Shape: "circle", Drill: 0.8},
		},
	},
	"DIP8": {
		Library: "Package_DIP", Name: "DIP-8_W7.62mm",
		Description: "DIP-8, 7.62mm width",
		Pads:        dip8(),
	},
	"SOP8": {
		Library: "Package_SO", Name: "SOIC-8_3.9x4.9mm_P1.27mm",
		Description: "SOIC-8, 3.9x4.9mm, 1.27mm pitch",
		Pads:        sop8(),
	},
	"TO92": {
		Library: "Package_TO_SOT_THT", Name: "TO-92_Inline",
		Description: "TO-92, Inline",
		Pads: []PadDef{
			{Number: "1", X: -2.54, W: 1.5, H: 1.5, Shape: "rect", Drill: 0.8},
			{Number: "2", W: 1.5, H: 1.5, Shape: "circle", Drill: 0.8},
			{Number: "3", X: 2.54, W: 1.5, H: 1.5, Shape: "circle", Drill: 0.8},
		},
	},
	"TerminalBlock_2P": {
		Library: "TerminalBlock_Phoenix", Name: "TerminalBlock_Phoenix_MKDS-1,5-2-5.08_1x02_P5.08mm_Horizontal",
		Description: "Terminal Block, 2 pins, 5.08mm pitch",
		Pads:        twoPad(5.08, 2.5, 2.5, "rect", "circle", 1.3),
	},
	"Header_2P": {
		Library: "Connector_PinHeader_2.54mm", Name: "PinHeader_1x02_P2.54mm_Vertical",
		Description: "Pin Header, 1x2, 2.54mm pitch, Vertical",
		Pads: []PadDef{
			{Number: "1", Y: -1.27, W: 1.7, H: 1.7, Shape: "rect", Drill: 1.0},
			{Number: "2", Y: 1.27, W: 1.7, H: 1.7, Shape: "circle", Drill: 1.0},
		},
	},
	"L_Radial": {
		Library: "Inductor_THT", Name: "L_Radial_D7.0mm_P5.00mm",
		Description: "Inductor, Radial, 7mm diameter, 5mm pitch",
		Pads:        twoPad(5.0, 2.0, 2.0, "circle", "circle", 0.8),
	},
	"Transformer_EE25": {
		Library: "Transformer_THT", Name: "Transformer_EE25",
		Description: "Transformer, EE-25 core, 6 pins",
		Pads: []PadDef{
			{Number: "1", X: -7.5, Y: 5.0, W: 2.5, H: 2.5, Shape: "rect", Drill: 1.0},
			{Number: "2", X: -7.5, Y: -5.0, W: 2.5, H: 2.5, Shape: "circle", Drill: 1.0},
			{Number: "3", Y: 5.0, W: 2.0, H: 2.0, Shape: "circle", Drill: 1.0},
			{Number: "4", Y: -5.0, W: 2.0, H: 2.0, Shape: "circle", Drill: 1.0},
			{Number: "5", X: 7.5, Y: 5.0, W: 2.5, H: 2.5, Shape: "circle", Drill: 1.0},
			{Number: "6", X: 7.5, Y: -5.0, W: 2.5, H: 2.5, Shape: "circle", Drill: 1.0},
		},
	},
	"Fuse_5x20": {
		Library: "Fuse", Name: "Fuseholder_Cylinder-5x20mm_StaggeredPins",
		Description: "Fuse Holder, 5x20mm cylinder",
		Pads:        twoPad(10.16, 2.5, 2.5, "circle", "circle", 1.3),
	},
	"Fuse_1206": {
		Library: "Fuse", Name: "Fuse_1206_3216Metric",
		Description: "Fuse SMD 1206",
		Pads:        twoPad(3.0, 1.0, 1.6, "roundrect", "roundrect", 0),
	},
}

// Footprint returns a footprint definition by short name (e.g., "R_0805").
func Footprint(name string) (FootprintDef, error) {
	d, ok := footprints[name]
	if !ok {
		return FootprintDef{}, &sexp.NotFoundError{Kind: "footprint definition", Reference: name}
	}
	return d, nil
}
