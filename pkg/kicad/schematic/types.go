// Package schematic models KiCad schematic files (.kicad_sch): symbols,
// wires, labels and power symbols sharing one net registry.
package schematic

import (
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/netlist"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
)

// Re-export shared types from sexp package for convenience
type Position = sexp.Position
type Angle = sexp.Angle
type PositionAngle = sexp.PositionAngle
type Size = sexp.Size
type BoundingBox = sexp.BoundingBox
type UUID = sexp.UUID
type NetID = netlist.NetID

// File format written by this package.
const (
	FormatVersion    = 20231120
	GeneratorName    = "kicadgen"
	GeneratorVersion = "8.0"
)

// Schematic represents a complete KiCad schematic. It owns its entities and
// the net registry they reference.
type Schematic struct {
	Version          int    // File format version
	Generator        string // Generator info (e.g., "eeschema")
	GeneratorVersion string // Generator version
	Title            sexp.TitleBlock

	Width  float64 // Declared page width in mm, 0 if undeclared
	Height float64 // Declared page height in mm, 0 if undeclared

	Symbols      []*Symbol     // Symbol instances, in insertion order
	Wires        []Wire        // Wire connections
	Labels       []Label       // Local labels not sitting on a pin
	PowerSymbols []PowerSymbol // Power flags such as GND and VCC

	nets *netlist.Registry
}

// Symbol represents a symbol instance on the schematic
type Symbol struct {
	Reference string   // Reference designator (e.g., "R1")
	LibID     string   // Library identifier (e.g., "Device:R")
	Value     string   // Component value
	Footprint string   // Footprint assignment (e.g., "Resistor_SMD:R_0805")
	Position  Position // Anchor position
	Angle     Angle    // Rotation in degrees
	Pins      []Pin    // Pins in library order
	Role      string   // Functional role used by zonal layout
	Isolation sexp.Isolation
}

// Pin represents a symbol pin. Offset is in library coordinates (Y up);
// it is the electrical connection point.
type Pin struct {
	Number string   // Pin number
	Name   string   // Pin name
	Type   string   // Electrical type (input, output, passive, power_in, ...)
	Offset Position // Connection point relative to the symbol anchor
	Angle  Angle    // Direction from the connection point toward the body
	Length float64  // Pin length
	Net    NetID    // Connected net, NoNet until assigned
}

// Wire represents a wire segment
type Wire struct {
	Start Position
	End   Position
	Net   NetID // Connected net, NoNet means unrouted
}

// Label represents a local net label
type Label struct {
	Text     string
	Position Position
	Angle    Angle
}

// PowerSymbol is a power flag whose single pin joins the named net.
type PowerSymbol struct {
	Reference string // Reference designator (e.g., "#PWR01")
	Net       NetID
	Position  Position
}

// PowerPin is the pin number of every power symbol.
const PowerPin = "1"

// PowerLibID returns the library identifier of the power symbol for a net.
func PowerLibID(netName string) string {
	return "power:" + netName
}
