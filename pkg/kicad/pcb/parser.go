package pcb

import (
	"fmt"
	"io"
	"os"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/netlist"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp/kicadsexp"
)

// Minimum supported KiCad version (6.0 = 20211014)
const MinSupportedVersion = 20211014

// boardKeys are the top-level keywords the parser understands. Anything
// else is rejected.
var boardKeys = []string{
	"version", "generator", "generator_version", "host", "general", "paper", "title_block",
	"layers", "setup", "net", "net_class", "footprint", "gr_poly", "segment", "via", "zone",
}

// ParseFile reads and parses a KiCad board file
func ParseFile(filename string) (*Board, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads and parses a KiCad board from an io.Reader
func Parse(r io.Reader) (*Board, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read board: %w", err)
	}
	return ParseString(string(data))
}

// ParseString parses kicad_pcb text. Malformed or unknown content fails
// with a *kicadsexp.ParseError.
func ParseString(text string) (*Board, error) {
	root, err := kicadsexp.ParseDocument(text, "kicad_pcb")
	if err != nil {
		return nil, err
	}
	if err := sexp.CheckKeys(root, boardKeys...); err != nil {
		return nil, err
	}

	version, generator, err := parseHeader(root)
	if err != nil {
		return nil, err
	}

	board := &Board{
		Version:   version,
		Generator: generator,
		nets:      netlist.NewRegistry(),
	}
	if gv, ok := sexp.FindNode(root, "generator_version"); ok {
		if board.GeneratorVersion, err = sexp.GetString(gv, 1); err != nil {
			return nil, err
		}
	}

	// Parse general section
	if generalNode, found := sexp.FindNode(root, "general"); found {
		if board.General, err = parseGeneral(generalNode); err != nil {
			return nil, err
		}
	}

	if paper, found := sexp.FindNode(root, "paper"); found {
		if err := parsePaper(paper, board); err != nil {
			return nil, err
		}
	}

	if board.Title, err = sexp.GetTitleBlock(root); err != nil {
		return nil, err
	}

	// Parse layers section
	layersNode, err := sexp.RequireNode(root, "layers")
	if err != nil {
		return nil, err
	}
	if board.Layers, err = parseLayers(layersNode); err != nil {
		return nil, err
	}
	board.LayerCount = len(board.CopperLayers())

	if setup, found := sexp.FindNode(root, "setup"); found {
		if err := sexp.CheckKeys(setup, "pad_to_mask_clearance"); err != nil {
			return nil, err
		}
		if _, ok := sexp.FindNode(setup, "pad_to_mask_clearance"); ok {
			if board.Setup.PadToMaskClearance, err = sexp.GetChildFloat(setup, "pad_to_mask_clearance"); err != nil {
				return nil, err
			}
		}
	}

	// Nets come before everything that references them
	if err := parseNets(root, board.nets); err != nil {
		return nil, err
	}
	if err := parseNetClasses(root, board.nets); err != nil {
		return nil, err
	}

	for _, node := range root.Children() {
		switch node.Key() {
		case "footprint":
			fp, err := parseFootprint(node, board.nets)
			if err != nil {
				return nil, err
			}
			if err := board.AddFootprint(fp); err != nil {
				return nil, kicadsexp.Errorf(node, "%v", err)
			}
		case "gr_poly":
			if board.Outline != nil {
				return nil, kicadsexp.Errorf(node, "board has more than one outline")
			}
			if board.Outline, err = parseOutline(node); err != nil {
				return nil, err
			}
		case "segment":
			t, err := parseTrack(node, board.nets)
			if err != nil {
				return nil, err
			}
			board.Tracks = append(board.Tracks, t)
		case "via":
			v, err := parseVia(node, board.nets)
			if err != nil {
				return nil, err
			}
			board.Vias = append(board.Vias, v)
		case "zone":
			z, err := parseZone(node, board.nets)
			if err != nil {
				return nil, err
			}
			board.Zones = append(board.Zones, z)
		}
	}

	return board, nil
}

// parseHeader extracts version and generator information from the root node
// Expected format: (kicad_pcb (version 20221018) (generator pcbnew) ...)
func parseHeader(root *kicadsexp.List) (version int, generator string, err error) {
	versionNode, err := sexp.RequireNode(root, "version")
	if err != nil {
		return 0, "", err
	}

	ver, err := sexp.GetInt(versionNode, 1)
	if err != nil {
		return 0, "", err
	}

	// Validate version (must be KiCad 6.0 or later)
	if ver < MinSupportedVersion {
		return 0, "", kicadsexp.Errorf(versionNode.Get(1),
			"unsupported KiCad version: %d (minimum required: %d / KiCad 6.0)", ver, MinSupportedVersion)
	}

	// Find generator/host node (optional in some files)
	gen := "unknown"
	if hostNode, found := sexp.FindNode(root, "host"); found {
		// Format: (host tool build)
		if gen, err = sexp.GetString(hostNode, 1); err != nil {
			return 0, "", err
		}
	} else if genNode, found := sexp.FindNode(root, "generator"); found {
		// Newer format: (generator "pcbnew")
		if gen, err = sexp.GetString(genNode, 1); err != nil {
			return 0, "", err
		}
	}

	return ver, gen, nil
}

// parseGeneral extracts general board properties
// Expected format: (general (thickness 1.6) ...)
func parseGeneral(node *kicadsexp.List) (General, error) {
	var general General
	if err := sexp.CheckKeys(node, "thickness", "legacy_teardrops"); err != nil {
		return general, err
	}
	if _, found := sexp.FindNode(node, "thickness"); found {
		thickness, err := sexp.GetChildFloat(node, "thickness")
		if err != nil {
			return general, err
		}
		general.Thickness = thickness
	}
	return general, nil
}

// parsePaper reads (paper "User" W H) into the declared board size. Named
// paper sizes leave the size undeclared.
func parsePaper(node *kicadsexp.List, board *Board) error {
	kind, err := sexp.GetString(node, 1)
	if err != nil {
		return err
	}
	if kind != "User" {
		return nil
	}
	if board.Width, err = sexp.GetFloat(node, 2); err != nil {
		return err
	}
	if board.Height, err = sexp.GetFloat(node, 3); err != nil {
		return err
	}
	return nil
}

// parseLayers extracts layer definitions
// Expected format: (layers (0 "F.Cu" signal) (31 "B.Cu" signal) ...)
func parseLayers(node *kicadsexp.List) ([]Layer, error) {
	layerNodes := node.Children()
	if len(layerNodes) == 0 {
		return nil, kicadsexp.Errorf(node, "no layers defined")
	}

	var layers []Layer
	for _, layerNode := range layerNodes {
		number, err := sexp.GetInt(layerNode, 0)
		if err != nil {
			return nil, err
		}
		name, err := sexp.GetString(layerNode, 1)
		if err != nil {
			return nil, err
		}
		layerType, err := sexp.GetString(layerNode, 2)
		if err != nil {
			return nil, err
		}
		layer := Layer{Number: number, Name: name, Type: layerType}
		if layerNode.Len() > 3 {
			if layer.UserName, err = sexp.GetString(layerNode, 3); err != nil {
				return nil, err
			}
		}
		layers = append(layers, layer)
	}

	return layers, nil
}

// parseNets registers every (net n "name") declaration, keeping file codes.
// Net 0 is the reserved unconnected net.
// parseNetClasses applies (net_class "<class>" (add_net "<name>")...) to the
// declared nets.
func parseNetClasses(root *kicadsexp.List, nets *netlist.Registry) error {
	for _, classNode := range sexp.FindAllNodes(root, "net_class") {
		class, err := sexp.GetString(classNode, 1)
		if err != nil {
			return err
		}
		if err := sexp.CheckKeys(classNode, "add_net"); err != nil {
			return err
		}
		for _, add := range sexp.FindAllNodes(classNode, "add_net") {
			name, err := sexp.GetString(add, 1)
			if err != nil {
				return err
			}
			id, ok := nets.Lookup(name)
			if !ok {
				return kicadsexp.Errorf(add, "net class %q names undeclared net %q", class, name)
			}
			if err := nets.SetClass(id, class); err != nil {
				return kicadsexp.Errorf(add, "%v", err)
			}
		}
	}
	return nil
}

func parseNets(root *kicadsexp.List, nets *netlist.Registry) error {
	for _, netNode := range sexp.FindAllNodes(root, "net") {
		number, err := sexp.GetInt(netNode, 1)
		if err != nil {
			return err
		}
		name, err := sexp.GetString(netNode, 2)
		if err != nil {
			return err
		}
		if number == 0 {
			continue
		}
		if err := nets.Register(NetID(number), name); err != nil {
			return kicadsexp.Errorf(netNode, "%v", err)
		}
	}
	return nil
}
