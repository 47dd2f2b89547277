package pcb

import (
	"strconv"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/netlist"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp/kicadsexp"
)

var (
	segmentKeys = []string{"start", "end", "width", "layer", "net", "uuid"}
	viaKeys     = []string{"at", "size", "drill", "layers", "net", "uuid"}
	zoneKeys    = []string{"net", "net_name", "layer", "uuid", "name", "hatch", "priority",
		"connect_pads", "min_thickness", "filled_areas_thickness", "fill", "polygon"}
	outlineKeys = []string{"pts", "stroke", "fill", "layer", "uuid"}
)

func emitTrack(i int, t Track, ids sexp.UUIDSource) *kicadsexp.List {
	return kicadsexp.L("segment",
		sexp.XY("start", t.Start),
		sexp.XY("end", t.End),
		kicadsexp.L("width", kicadsexp.Num(t.Width)),
		kicadsexp.L("layer", kicadsexp.Str(t.Layer)),
		kicadsexp.L("net", kicadsexp.Int(int(t.Net))),
		sexp.UUIDNode(ids.For("segment", strconv.Itoa(i))),
	)
}

func emitVia(i int, v Via, ids sexp.UUIDSource) *kicadsexp.List {
	layers := kicadsexp.L("layers")
	for _, l := range v.Layers {
		layers.Add(kicadsexp.Str(l))
	}
	return kicadsexp.L("via",
		sexp.XY("at", v.Position),
		kicadsexp.L("size", kicadsexp.Num(v.Size)),
		kicadsexp.L("drill", kicadsexp.Num(v.Drill)),
		layers,
		kicadsexp.L("net", kicadsexp.Int(int(v.Net))),
		sexp.UUIDNode(ids.For("via", strconv.Itoa(i))),
	)
}

func emitZone(i int, z Zone, nets *netlist.Registry, ids sexp.UUIDSource) *kicadsexp.List {
	node := kicadsexp.L("zone",
		kicadsexp.L("net", kicadsexp.Int(int(z.Net))),
		kicadsexp.L("net_name", kicadsexp.Str(nets.Name(z.Net))),
		kicadsexp.L("layer", kicadsexp.Str(z.Layer)),
		sexp.UUIDNode(ids.For("zone", strconv.Itoa(i))),
	)
	if z.Name != "" {
		node.Add(kicadsexp.L("name", kicadsexp.Str(z.Name)))
	}
	node.Add(kicadsexp.L("hatch", kicadsexp.Sym("edge"), kicadsexp.Num(0.5)))
	if z.Priority > 0 {
		node.Add(kicadsexp.L("priority", kicadsexp.Int(z.Priority)))
	}
	return node.Add(
		kicadsexp.L("connect_pads", kicadsexp.L("clearance", kicadsexp.Num(z.Clearance))),
		kicadsexp.L("min_thickness", kicadsexp.Num(z.MinThickness)),
		kicadsexp.L("filled_areas_thickness", kicadsexp.Sym("no")),
		kicadsexp.L("fill", kicadsexp.Sym("yes"),
			kicadsexp.L("thermal_gap", kicadsexp.Num(0.5)),
			kicadsexp.L("thermal_bridge_width", kicadsexp.Num(0.5)),
		),
		kicadsexp.L("polygon", sexp.Pts(z.Outline)),
	)
}

// emitOutline writes the board edge as a gr_poly without the repeated
// closing point.
func emitOutline(o *Outline, ids sexp.UUIDSource) *kicadsexp.List {
	return kicadsexp.L("gr_poly",
		sexp.Pts(o.Points[:len(o.Points)-1]),
		sexp.Stroke(0.1, "default"),
		kicadsexp.L("fill", kicadsexp.Sym("none")),
		kicadsexp.L("layer", kicadsexp.Str(LayerEdgeCuts)),
		sexp.UUIDNode(ids.For("outline")),
	)
}

// parseTrack extracts a segment.
// Expected format: (segment (start x y) (end x y) (width w) (layer "F.Cu") (net n) (uuid ..))
func parseTrack(node *kicadsexp.List, nets *netlist.Registry) (Track, error) {
	var t Track
	var err error
	if err = sexp.CheckKeys(node, segmentKeys...); err != nil {
		return t, err
	}
	if t.Start, err = sexp.GetChildPosition(node, "start"); err != nil {
		return t, err
	}
	if t.End, err = sexp.GetChildPosition(node, "end"); err != nil {
		return t, err
	}
	if t.Width, err = sexp.GetChildFloat(node, "width"); err != nil {
		return t, err
	}
	if t.Layer, err = sexp.GetChildString(node, "layer"); err != nil {
		return t, err
	}
	t.Net, err = parseNetRef(node, nets)
	return t, err
}

// parseVia extracts a via.
// Expected format: (via (at x y) (size s) (drill d) (layers "F.Cu" "B.Cu") (net n) (uuid ..))
func parseVia(node *kicadsexp.List, nets *netlist.Registry) (Via, error) {
	var v Via
	var err error
	if err = sexp.CheckKeys(node, viaKeys...); err != nil {
		return v, err
	}
	if v.Position, err = sexp.GetChildPosition(node, "at"); err != nil {
		return v, err
	}
	if v.Size, err = sexp.GetChildFloat(node, "size"); err != nil {
		return v, err
	}
	if v.Drill, err = sexp.GetChildFloat(node, "drill"); err != nil {
		return v, err
	}
	layers, err := sexp.RequireNode(node, "layers")
	if err != nil {
		return v, err
	}
	v.Layers = LayerSet(sexp.Atoms(layers))
	v.Net, err = parseNetRef(node, nets)
	return v, err
}

// parseZone extracts a copper pour outline and its settings.
func parseZone(node *kicadsexp.List, nets *netlist.Registry) (Zone, error) {
	var z Zone
	var err error
	if err = sexp.CheckKeys(node, zoneKeys...); err != nil {
		return z, err
	}
	if z.Net, err = parseNetRef(node, nets); err != nil {
		return z, err
	}
	if z.Layer, err = sexp.GetChildString(node, "layer"); err != nil {
		return z, err
	}
	if nameNode, ok := sexp.FindNode(node, "name"); ok {
		if z.Name, err = sexp.GetString(nameNode, 1); err != nil {
			return z, err
		}
	}
	if prio, ok := sexp.FindNode(node, "priority"); ok {
		if z.Priority, err = sexp.GetInt(prio, 1); err != nil {
			return z, err
		}
	}
	if connect, ok := sexp.FindNode(node, "connect_pads"); ok {
		if z.Clearance, err = sexp.GetChildFloat(connect, "clearance"); err != nil {
			return z, err
		}
	}
	if z.MinThickness, err = sexp.GetChildFloat(node, "min_thickness"); err != nil {
		return z, err
	}
	polygon, err := sexp.RequireNode(node, "polygon")
	if err != nil {
		return z, err
	}
	pts, err := sexp.RequireNode(polygon, "pts")
	if err != nil {
		return z, err
	}
	z.Outline, err = sexp.GetPoints(pts)
	return z, err
}

// parseOutline reads the Edge.Cuts gr_poly and closes the polygon again.
func parseOutline(node *kicadsexp.List) (*Outline, error) {
	if err := sexp.CheckKeys(node, outlineKeys...); err != nil {
		return nil, err
	}
	layer, err := sexp.GetChildString(node, "layer")
	if err != nil {
		return nil, err
	}
	if layer != LayerEdgeCuts {
		return nil, kicadsexp.Errorf(node, "gr_poly on layer %q is not supported", layer)
	}
	pts, err := sexp.RequireNode(node, "pts")
	if err != nil {
		return nil, err
	}
	points, err := sexp.GetPoints(pts)
	if err != nil {
		return nil, err
	}
	if len(points) < 3 {
		return nil, kicadsexp.Errorf(pts, "board outline needs at least 3 points, got %d", len(points))
	}
	return &Outline{Points: append(points, points[0])}, nil
}

// parseNetRef reads the (net n) child, which must name a declared net or 0.
func parseNetRef(node *kicadsexp.List, nets *netlist.Registry) (NetID, error) {
	netNode, err := sexp.RequireNode(node, "net")
	if err != nil {
		return netlist.NoNet, err
	}
	code, err := sexp.GetInt(netNode, 1)
	if err != nil {
		return netlist.NoNet, err
	}
	if code != 0 && !nets.Has(NetID(code)) {
		return netlist.NoNet, kicadsexp.Errorf(netNode, "reference to undeclared net %d", code)
	}
	return NetID(code), nil
}
