package schematic

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/netlist"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp/kicadsexp"
)

// Minimum supported KiCad schematic version (6.0 = 20211123)
const MinSupportedVersion = 20211123

var (
	schematicKeys = []string{
		"version", "generator", "generator_version", "uuid", "paper", "title_block",
		"lib_symbols", "wire", "label", "symbol", "sheet_instances",
	}
	libSymbolKeys = []string{"power", "pin_names", "pin_numbers", "exclude_from_sim", "in_bom", "on_board", "property", "symbol"}
	unitKeys      = []string{"rectangle", "polyline", "pin"}
	libPinKeys    = []string{"at", "length", "name", "number"}
	instanceKeys  = []string{"lib_id", "at", "unit", "exclude_from_sim", "in_bom", "on_board", "dnp", "uuid", "property", "pin", "instances"}
	labelKeys     = []string{"at", "fields_autoplaced", "effects", "uuid"}
	wireKeys      = []string{"pts", "stroke", "uuid"}
)

// libSymbol is a parsed (lib_symbols ...) entry.
type libSymbol struct {
	power bool
	pins  []Pin
}

// ParseFile reads and parses a KiCad schematic file
func ParseFile(filename string) (*Schematic, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads and parses a KiCad schematic from an io.Reader
func Parse(r io.Reader) (*Schematic, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read schematic: %w", err)
	}
	return ParseString(string(data))
}

// ParseString parses kicad_sch text. Malformed or unknown content fails
// with a *kicadsexp.ParseError. Labels sitting on a pin's connection point
// become that pin's net; wire nets follow from connectivity.
func ParseString(text string) (*Schematic, error) {
	root, err := kicadsexp.ParseDocument(text, "kicad_sch")
	if err != nil {
		return nil, err
	}
	if err := sexp.CheckKeys(root, schematicKeys...); err != nil {
		return nil, err
	}

	sch := &Schematic{nets: netlist.NewRegistry()}
	if err := parseHeader(root, sch); err != nil {
		return nil, err
	}

	if paper, ok := sexp.FindNode(root, "paper"); ok {
		if err := parsePaper(paper, sch); err != nil {
			return nil, err
		}
	}
	if sch.Title, err = sexp.GetTitleBlock(root); err != nil {
		return nil, err
	}

	lib := make(map[string]libSymbol)
	if libNode, ok := sexp.FindNode(root, "lib_symbols"); ok {
		if lib, err = parseLibSymbols(libNode); err != nil {
			return nil, err
		}
	}

	// Symbols first so that labels can find the pins they sit on
	for _, node := range sexp.FindAllNodes(root, "symbol") {
		if err := parseInstance(node, lib, sch); err != nil {
			return nil, err
		}
	}

	for _, node := range sexp.FindAllNodes(root, "label") {
		l, err := parseLabel(node)
		if err != nil {
			return nil, err
		}
		if err := sch.AddLabel(l); err != nil {
			return nil, kicadsexp.Errorf(node, "%v", err)
		}
	}

	for _, node := range sexp.FindAllNodes(root, "wire") {
		if err := sexp.CheckKeys(node, wireKeys...); err != nil {
			return nil, err
		}
		pts, err := sexp.RequireNode(node, "pts")
		if err != nil {
			return nil, err
		}
		points, err := sexp.GetPoints(pts)
		if err != nil {
			return nil, err
		}
		if len(points) != 2 {
			return nil, kicadsexp.Errorf(pts, "wire has %d points, want 2", len(points))
		}
		if err := sch.AddWire(Wire{Start: points[0], End: points[1]}); err != nil {
			return nil, kicadsexp.Errorf(node, "%v", err)
		}
	}
	sch.ResolveWireNets()

	return sch, nil
}

// parseHeader extracts version and generator information from the root node
// Expected format: (kicad_sch (version 20231120) (generator "eeschema") ...)
func parseHeader(root *kicadsexp.List, sch *Schematic) error {
	versionNode, err := sexp.RequireNode(root, "version")
	if err != nil {
		return err
	}
	if sch.Version, err = sexp.GetInt(versionNode, 1); err != nil {
		return err
	}
	if sch.Version < MinSupportedVersion {
		return kicadsexp.Errorf(versionNode.Get(1),
			"unsupported KiCad version: %d (minimum required: %d / KiCad 6.0)", sch.Version, MinSupportedVersion)
	}

	sch.Generator = "unknown"
	if gen, ok := sexp.FindNode(root, "generator"); ok {
		if sch.Generator, err = sexp.GetString(gen, 1); err != nil {
			return err
		}
	}
	if gv, ok := sexp.FindNode(root, "generator_version"); ok {
		if sch.GeneratorVersion, err = sexp.GetString(gv, 1); err != nil {
			return err
		}
	}
	return nil
}

// parsePaper reads (paper "User" W H) into the declared page size.
func parsePaper(node *kicadsexp.List, sch *Schematic) error {
	kind, err := sexp.GetString(node, 1)
	if err != nil {
		return err
	}
	if kind != "User" {
		return nil
	}
	if sch.Width, err = sexp.GetFloat(node, 2); err != nil {
		return err
	}
	if sch.Height, err = sexp.GetFloat(node, 3); err != nil {
		return err
	}
	return nil
}

// parseLibSymbols extracts the pin definitions of every library symbol.
// Expected format: (lib_symbols (symbol "Device:R" ... (symbol "R_1_1" (pin ...))))
func parseLibSymbols(node *kicadsexp.List) (map[string]libSymbol, error) {
	if err := sexp.CheckKeys(node, "symbol"); err != nil {
		return nil, err
	}
	lib := make(map[string]libSymbol)
	for _, symNode := range node.Children() {
		if err := sexp.CheckKeys(symNode, libSymbolKeys...); err != nil {
			return nil, err
		}
		name, err := sexp.GetString(symNode, 1)
		if err != nil {
			return nil, err
		}
		if _, dup := lib[name]; dup {
			return nil, kicadsexp.Errorf(symNode, "library symbol %q defined twice", name)
		}
		_, power := sexp.FindNode(symNode, "power")
		entry := libSymbol{power: power}

		for _, unit := range sexp.FindAllNodes(symNode, "symbol") {
			if err := sexp.CheckKeys(unit, unitKeys...); err != nil {
				return nil, err
			}
			for _, pinNode := range sexp.FindAllNodes(unit, "pin") {
				pin, err := parseLibPin(pinNode)
				if err != nil {
					return nil, err
				}
				entry.pins = append(entry.pins, pin)
			}
		}
		lib[name] = entry
	}
	return lib, nil
}

// parseLibPin extracts a library pin
// Expected format: (pin passive line (at x y angle) (length l) (name "n" ...) (number "1" ...))
func parseLibPin(node *kicadsexp.List) (Pin, error) {
	var pin Pin
	if err := sexp.CheckKeys(node, libPinKeys...); err != nil {
		return pin, err
	}
	var err error
	if pin.Type, err = sexp.GetString(node, 1); err != nil {
		return pin, err
	}

	atNode, err := sexp.RequireNode(node, "at")
	if err != nil {
		return pin, err
	}
	at, err := sexp.GetPosition(atNode)
	if err != nil {
		return pin, err
	}
	pin.Offset, pin.Angle = at.Position, at.Angle

	if _, ok := sexp.FindNode(node, "length"); ok {
		if pin.Length, err = sexp.GetChildFloat(node, "length"); err != nil {
			return pin, err
		}
	}
	if pin.Name, err = sexp.GetChildString(node, "name"); err != nil {
		return pin, err
	}
	if pin.Name == "~" {
		pin.Name = ""
	}
	if pin.Number, err = sexp.GetChildString(node, "number"); err != nil {
		return pin, err
	}
	return pin, nil
}

// parseInstance adds a placed symbol or power flag to sch.
func parseInstance(node *kicadsexp.List, lib map[string]libSymbol, sch *Schematic) error {
	if err := sexp.CheckKeys(node, instanceKeys...); err != nil {
		return err
	}
	libID, err := sexp.GetChildString(node, "lib_id")
	if err != nil {
		return err
	}
	def, ok := lib[libID]
	if !ok {
		return kicadsexp.Errorf(node, "symbol uses undefined library symbol %q", libID)
	}

	atNode, err := sexp.RequireNode(node, "at")
	if err != nil {
		return err
	}
	at, err := sexp.GetPosition(atNode)
	if err != nil {
		return err
	}

	sym := &Symbol{LibID: libID, Position: at.Position, Angle: at.Angle}
	for _, propNode := range sexp.FindAllNodes(node, "property") {
		key, value, err := sexp.GetProperty(propNode)
		if err != nil {
			return err
		}
		switch key {
		case propReference:
			sym.Reference = value
		case propValue:
			sym.Value = value
		case propFootprint:
			sym.Footprint = value
		case propRole:
			sym.Role = value
		case propIsolation:
			iso, err := sexp.ParseIsolation(value)
			if err != nil {
				return kicadsexp.Errorf(propNode, "%v", err)
			}
			sym.Isolation = iso
		default:
			return kicadsexp.Errorf(propNode, "unknown symbol property %q", key)
		}
	}
	if sym.Reference == "" {
		return kicadsexp.Errorf(node, "symbol %q has no Reference property", libID)
	}

	if def.power {
		net := strings.TrimPrefix(libID, "power:")
		if err := sch.addPower(sym.Reference, net, sym.Position); err != nil {
			return kicadsexp.Errorf(node, "%v", err)
		}
		return nil
	}

	for _, pinNode := range sexp.FindAllNodes(node, "pin") {
		number, err := sexp.GetString(pinNode, 1)
		if err != nil {
			return err
		}
		if !hasPin(def.pins, number) {
			return kicadsexp.Errorf(pinNode, "pin %q is not defined by %q", number, libID)
		}
	}
	sym.Pins = append([]Pin(nil), def.pins...)

	if err := sch.AddSymbol(sym); err != nil {
		return kicadsexp.Errorf(node, "%v", err)
	}
	return nil
}

// parseLabel extracts a local label
// Expected format: (label "text" (at x y angle) ...)
func parseLabel(node *kicadsexp.List) (Label, error) {
	var l Label
	if err := sexp.CheckKeys(node, labelKeys...); err != nil {
		return l, err
	}
	var err error
	if l.Text, err = sexp.GetString(node, 1); err != nil {
		return l, err
	}
	atNode, err := sexp.RequireNode(node, "at")
	if err != nil {
		return l, err
	}
	at, err := sexp.GetPosition(atNode)
	if err != nil {
		return l, err
	}
	l.Position, l.Angle = at.Position, at.Angle
	return l, nil
}

func hasPin(pins []Pin, number string) bool {
	for _, p := range pins {
		if p.Number == number {
			return true
		}
	}
	return false
}
