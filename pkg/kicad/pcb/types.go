package pcb

import (
	"fmt"
	"strings"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/netlist"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
)

// Shared types (aliases to sexp package)
type Position = sexp.Position
type Angle = sexp.Angle
type PositionAngle = sexp.PositionAngle
type Size = sexp.Size
type BoundingBox = sexp.BoundingBox
type UUID = sexp.UUID

// NetID is the net code type used on the board.
type NetID = netlist.NetID

// Re-export BoundingBox constructor
var NewBoundingBox = sexp.NewBoundingBox

// Well-known layer names.
const (
	LayerFCu      = "F.Cu"
	LayerBCu      = "B.Cu"
	LayerAllCu    = "*.Cu"
	LayerAllMask  = "*.Mask"
	LayerEdgeCuts = "Edge.Cuts"
	LayerFSilkS   = "F.SilkS"
	LayerFFab     = "F.Fab"
	LayerFCrtYd   = "F.CrtYd"
	LayerFPaste   = "F.Paste"
	LayerFMask    = "F.Mask"
)

// ValidLayerCounts are the copper layer counts a board may declare.
var ValidLayerCounts = []int{1, 2, 4, 6, 8}

// Layer represents a PCB layer
type Layer struct {
	Number   int    // Layer number (ordinal)
	Name     string // Layer name (e.g., "F.Cu", "B.Cu", "F.SilkS")
	Type     string // Layer type (e.g., "signal", "user")
	UserName string // Optional display name (e.g., "F.Silkscreen")
}

// IsCopper reports whether the layer carries copper.
func (l Layer) IsCopper() bool {
	return IsCopperLayer(l.Name)
}

// LayerSet represents a set of layers
type LayerSet []string

// Contains reports whether the set covers layer, honoring "*.Cu" style
// wildcards.
func (ls LayerSet) Contains(layer string) bool {
	for _, l := range ls {
		if l == layer {
			return true
		}
		if strings.HasPrefix(l, "*.") && strings.HasSuffix(layer, l[1:]) {
			return true
		}
	}
	return false
}

// CopperLayers returns the explicit copper layers of the set, expanding
// "*.Cu" against the board stack.
func (ls LayerSet) CopperLayers(stack []string) []string {
	var out []string
	for _, layer := range stack {
		if ls.Contains(layer) {
			out = append(out, layer)
		}
	}
	return out
}

// IsCopperLayer reports whether name is a copper layer name.
func IsCopperLayer(name string) bool {
	return strings.HasSuffix(name, ".Cu")
}

// CopperLayerNames returns the copper layer names of an n-layer board,
// front to back.
func CopperLayerNames(n int) []string {
	if n <= 1 {
		return []string{LayerFCu}
	}
	names := []string{LayerFCu}
	for i := 1; i < n-1; i++ {
		names = append(names, fmt.Sprintf("In%d.Cu", i))
	}
	return append(names, LayerBCu)
}

// StackUp returns the layer table written for an n-layer board.
func StackUp(n int) []Layer {
	var layers []Layer
	for i, name := range CopperLayerNames(n) {
		number := i
		if name == LayerBCu {
			number = 31
		}
		layers = append(layers, Layer{Number: number, Name: name, Type: "signal"})
	}
	return append(layers,
		Layer{Number: 32, Name: "B.Adhes", Type: "user", UserName: "B.Adhesive"},
		Layer{Number: 33, Name: "F.Adhes", Type: "user", UserName: "F.Adhesive"},
		Layer{Number: 34, Name: "B.Paste", Type: "user"},
		Layer{Number: 35, Name: LayerFPaste, Type: "user"},
		Layer{Number: 36, Name: "B.SilkS", Type: "user", UserName: "B.Silkscreen"},
		Layer{Number: 37, Name: LayerFSilkS, Type: "user", UserName: "F.Silkscreen"},
		Layer{Number: 38, Name: "B.Mask", Type: "user"},
		Layer{Number: 39, Name: LayerFMask, Type: "user"},
		Layer{Number: 44, Name: LayerEdgeCuts, Type: "user"},
		Layer{Number: 46, Name: "B.CrtYd", Type: "user", UserName: "B.Courtyard"},
		Layer{Number: 47, Name: LayerFCrtYd, Type: "user", UserName: "F.Courtyard"},
		Layer{Number: 48, Name: "B.Fab", Type: "user"},
		Layer{Number: 49, Name: LayerFFab, Type: "user"},
	)
}
