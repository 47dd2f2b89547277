package pcb

import (
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/netlist"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp/kicadsexp"
)

// Hidden footprint properties carrying layout metadata.
const (
	propReference = "Reference"
	propValue     = "Value"
	propRole      = "Role"
	propIsolation = "Isolation"
)

var (
	footprintKeys = []string{"layer", "uuid", "at", "descr", "property", "attr", "fp_rect", "pad", "model"}
	padKeys       = []string{"at", "size", "drill", "layers", "roundrect_rratio", "net", "pintype", "uuid"}
)

// emitFootprint writes a footprint in the fixed field order: layer, uuid,
// at, descr, properties, attr, courtyard, pads, model.
func emitFootprint(fp *Footprint, nets *netlist.Registry, ids sexp.UUIDSource) *kicadsexp.List {
	node := kicadsexp.L("footprint", kicadsexp.Str(fp.Name),
		kicadsexp.L("layer", kicadsexp.Str(fp.Layer)),
		sexp.UUIDNode(ids.For("footprint", fp.Reference)),
		sexp.At(fp.Position, true),
	)
	if fp.Description != "" {
		node.Add(kicadsexp.L("descr", kicadsexp.Str(fp.Description)))
	}

	court := fp.LocalBounds()
	node.Add(
		emitProperty(fp, propReference, fp.Reference, Position{Y: court.Min.Y - 1}, LayerFSilkS, false, ids),
		emitProperty(fp, propValue, fp.Value, Position{Y: court.Max.Y + 1}, LayerFFab, false, ids),
	)
	if fp.Role != "" {
		node.Add(emitProperty(fp, propRole, fp.Role, Position{}, LayerFFab, true, ids))
	}
	if fp.Isolation != sexp.IsolationNone {
		node.Add(emitProperty(fp, propIsolation, string(fp.Isolation), Position{}, LayerFFab, true, ids))
	}

	node.Add(kicadsexp.L("attr", kicadsexp.Sym(fp.attr())))
	node.Add(kicadsexp.L("fp_rect",
		sexp.XY("start", court.Min),
		sexp.XY("end", court.Max),
		sexp.Stroke(0.05, "solid"),
		kicadsexp.L("fill", kicadsexp.Sym("none")),
		kicadsexp.L("layer", kicadsexp.Str(LayerFCrtYd)),
		sexp.UUIDNode(ids.For("footprint", fp.Reference, "courtyard")),
	))

	for _, pad := range fp.Pads {
		node.Add(emitPad(fp, pad, nets, ids))
	}

	if fp.Model != "" {
		node.Add(kicadsexp.L("model", kicadsexp.Str(fp.Model),
			kicadsexp.L("offset", kicadsexp.L("xyz", kicadsexp.Num(0), kicadsexp.Num(0), kicadsexp.Num(0))),
			kicadsexp.L("scale", kicadsexp.L("xyz", kicadsexp.Num(1), kicadsexp.Num(1), kicadsexp.Num(1))),
			kicadsexp.L("rotate", kicadsexp.L("xyz", kicadsexp.Num(0), kicadsexp.Num(0), kicadsexp.Num(0))),
		))
	}
	return node
}

func emitProperty(fp *Footprint, key, value string, at Position, layer string, hide bool, ids sexp.UUIDSource) *kicadsexp.List {
	prop := kicadsexp.L("property", kicadsexp.Str(key), kicadsexp.Str(value),
		sexp.At(PositionAngle{Position: at}, true),
		kicadsexp.L("layer", kicadsexp.Str(layer)),
	)
	if hide {
		prop.Add(kicadsexp.L("hide", kicadsexp.Sym("yes")))
	}
	return prop.Add(
		sexp.UUIDNode(ids.For("footprint", fp.Reference, "property", key)),
		sexp.Effects(1, false),
	)
}

// emitPad writes number, type, shape, position, size, drill, layers, net.
func emitPad(fp *Footprint, pad Pad, nets *netlist.Registry, ids sexp.UUIDSource) *kicadsexp.List {
	node := kicadsexp.L("pad", kicadsexp.Str(pad.Number), kicadsexp.Sym(pad.Type), kicadsexp.Sym(pad.Shape),
		sexp.At(pad.Position, pad.Position.Angle != 0),
		kicadsexp.L("size", kicadsexp.Num(pad.Size.Width), kicadsexp.Num(pad.Size.Height)),
	)
	if pad.Drill > 0 {
		node.Add(kicadsexp.L("drill", kicadsexp.Num(pad.Drill)))
	}
	layers := kicadsexp.L("layers")
	for _, l := range pad.Layers {
		layers.Add(kicadsexp.Str(l))
	}
	node.Add(layers)
	if pad.Shape == "roundrect" {
		node.Add(kicadsexp.L("roundrect_rratio", kicadsexp.Num(0.25)))
	}
	if pad.Net != netlist.NoNet {
		node.Add(kicadsexp.L("net", kicadsexp.Int(int(pad.Net)), kicadsexp.Str(nets.Name(pad.Net))))
	}
	pinType := pad.PinType
	if pinType == "" {
		pinType = "passive"
	}
	return node.Add(
		kicadsexp.L("pintype", kicadsexp.Str(pinType)),
		sexp.UUIDNode(ids.For("footprint", fp.Reference, "pad", pad.Number)),
	)
}

// attr is "smd" when every pad is surface mount.
func (fp *Footprint) attr() string {
	for _, pad := range fp.Pads {
		if pad.Type != "smd" {
			return "through_hole"
		}
	}
	return "smd"
}

// parseFootprint extracts a footprint and registers its pad nets.
// Expected format: (footprint "name" (layer ..) (uuid ..) (at x y a) ... (pad ...) ...)
func parseFootprint(node *kicadsexp.List, nets *netlist.Registry) (*Footprint, error) {
	if err := sexp.CheckKeys(node, footprintKeys...); err != nil {
		return nil, err
	}

	name, err := sexp.GetString(node, 1)
	if err != nil {
		return nil, err
	}
	fp := &Footprint{Name: name}

	if fp.Layer, err = sexp.GetChildString(node, "layer"); err != nil {
		return nil, err
	}

	atNode, err := sexp.RequireNode(node, "at")
	if err != nil {
		return nil, err
	}
	if fp.Position, err = sexp.GetPosition(atNode); err != nil {
		return nil, err
	}

	if descr, ok := sexp.FindNode(node, "descr"); ok {
		if fp.Description, err = sexp.GetString(descr, 1); err != nil {
			return nil, err
		}
	}

	for _, propNode := range sexp.FindAllNodes(node, "property") {
		key, value, err := sexp.GetProperty(propNode)
		if err != nil {
			return nil, err
		}
		switch key {
		case propReference:
			fp.Reference = value
		case propValue:
			fp.Value = value
		case propRole:
			fp.Role = value
		case propIsolation:
			iso, err := sexp.ParseIsolation(value)
			if err != nil {
				return nil, kicadsexp.Errorf(propNode, "%v", err)
			}
			fp.Isolation = iso
		default:
			return nil, kicadsexp.Errorf(propNode, "unknown footprint property %q", key)
		}
	}
	if fp.Reference == "" {
		return nil, kicadsexp.Errorf(node, "footprint %q has no Reference property", name)
	}

	for _, padNode := range sexp.FindAllNodes(node, "pad") {
		pad, err := parsePad(padNode, nets)
		if err != nil {
			return nil, err
		}
		fp.Pads = append(fp.Pads, *pad)
	}

	if model, ok := sexp.FindNode(node, "model"); ok {
		if fp.Model, err = sexp.GetString(model, 1); err != nil {
			return nil, err
		}
	}

	return fp, nil
}

// parsePad extracts a pad definition from a footprint
// Expected format: (pad "number" type shape (at x y [angle]) (size w h) (layers ...) (net n "name") ...)
func parsePad(node *kicadsexp.List, nets *netlist.Registry) (*Pad, error) {
	if err := sexp.CheckKeys(node, padKeys...); err != nil {
		return nil, err
	}

	pad := &Pad{}
	var err error

	if pad.Number, err = sexp.GetString(node, 1); err != nil {
		return nil, err
	}
	// Pad type (thru_hole, smd, connect, np_thru_hole)
	if pad.Type, err = sexp.GetString(node, 2); err != nil {
		return nil, err
	}
	// Pad shape (circle, rect, oval, roundrect, trapezoid, custom)
	if pad.Shape, err = sexp.GetString(node, 3); err != nil {
		return nil, err
	}

	atNode, err := sexp.RequireNode(node, "at")
	if err != nil {
		return nil, err
	}
	if pad.Position, err = sexp.GetPosition(atNode); err != nil {
		return nil, err
	}
	if pad.Size, err = sexp.GetSize(node); err != nil {
		return nil, err
	}

	if drillNode, ok := sexp.FindNode(node, "drill"); ok {
		if pad.Drill, err = sexp.GetFloat(drillNode, 1); err != nil {
			return nil, err
		}
	}

	layersNode, err := sexp.RequireNode(node, "layers")
	if err != nil {
		return nil, err
	}
	pad.Layers = LayerSet(sexp.Atoms(layersNode))

	if netNode, ok := sexp.FindNode(node, "net"); ok {
		code, err := sexp.GetInt(netNode, 1)
		if err != nil {
			return nil, err
		}
		if code != 0 && !nets.Has(NetID(code)) {
			return nil, kicadsexp.Errorf(netNode, "pad %q references undeclared net %d", pad.Number, code)
		}
		pad.Net = NetID(code)
	}

	if pinType, ok := sexp.FindNode(node, "pintype"); ok {
		if pad.PinType, err = sexp.GetString(pinType, 1); err != nil {
			return nil, err
		}
	}

	return pad, nil
}
