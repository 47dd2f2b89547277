package schematic

import (
	"io"
	"slices"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/netlist"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp/kicadsexp"
)

// Text size used for every field and label.
const textSize = 1.27

// Symbol properties. Footprint, Role and Isolation are hidden.
const (
	propReference = "Reference"
	propValue     = "Value"
	propFootprint = "Footprint"
	propRole      = "Role"
	propIsolation = "Isolation"
)

// Serialize renders the schematic as kicad_sch text. It performs no
// validation; the same schematic always yields the same bytes.
func Serialize(s *Schematic) string {
	return kicadsexp.Format(Build(s))
}

// Write renders the schematic to w.
func Write(w io.Writer, s *Schematic) error {
	return kicadsexp.Write(w, Build(s))
}

// Build returns the token tree of the schematic.
func Build(s *Schematic) *kicadsexp.List {
	ids := sexp.NewUUIDSource(s.Title.Title)
	rootID := ids.For("schematic")

	root := kicadsexp.L("kicad_sch",
		kicadsexp.L("version", kicadsexp.Int(s.Version)),
		kicadsexp.L("generator", kicadsexp.Str(s.Generator)),
	)
	if s.GeneratorVersion != "" {
		root.Add(kicadsexp.L("generator_version", kicadsexp.Str(s.GeneratorVersion)))
	}
	root.Add(sexp.UUIDNode(rootID))
	if bounds, ok := s.Bounds(); ok {
		root.Add(kicadsexp.L("paper", kicadsexp.Str("User"), kicadsexp.Num(bounds.Width()), kicadsexp.Num(bounds.Height())))
	} else {
		root.Add(kicadsexp.L("paper", kicadsexp.Str("A4")))
	}
	root.Add(sexp.TitleBlockNode(s.Title))
	root.Add(emitLibSymbols(s))

	for i, w := range s.Wires {
		root.Add(kicadsexp.L("wire",
			sexp.Pts([]Position{w.Start, w.End}),
			sexp.Stroke(0, "default"),
			sexp.UUIDNode(ids.For("wire", strconv.Itoa(i))),
		))
	}
	labels := append(slices.Clone(s.Labels), s.netLabels()...)
	for i, l := range labels {
		root.Add(emitLabel(l, ids.For("label", strconv.Itoa(i))))
	}
	for _, sym := range s.Symbols {
		for _, pin := range sym.Pins {
			if pin.Net == netlist.NoNet {
				continue
			}
			l := Label{Text: s.nets.Name(pin.Net), Position: sym.PinAnchor(pin)}
			root.Add(emitLabel(l, ids.For("label", sym.Reference, pin.Number)))
		}
	}

	for _, sym := range s.Symbols {
		root.Add(emitSymbol(s, sym, ids, rootID))
	}
	for _, ps := range s.PowerSymbols {
		root.Add(emitPowerSymbol(s, ps, ids, rootID))
	}

	root.Add(kicadsexp.L("sheet_instances",
		kicadsexp.L("path", kicadsexp.Str("/"), kicadsexp.L("page", kicadsexp.Str("1"))),
	))
	return root
}

// emitLibSymbols writes one library definition per lib id, taking pins from
// the first instance, followed by the power symbols in name order.
func emitLibSymbols(s *Schematic) *kicadsexp.List {
	first := make(map[string]*Symbol)
	var libIDs []string
	for _, sym := range s.Symbols {
		if _, ok := first[sym.LibID]; !ok {
			first[sym.LibID] = sym
			libIDs = append(libIDs, sym.LibID)
		}
	}
	sort.Strings(libIDs)

	lib := kicadsexp.L("lib_symbols")
	for _, id := range libIDs {
		lib.Add(emitLibSymbol(first[id]))
	}
	for _, name := range powerNets(s) {
		lib.Add(emitPowerLibSymbol(name))
	}
	return lib
}

func emitLibSymbol(sym *Symbol) *kicadsexp.List {
	name := unitName(sym.LibID)
	node := kicadsexp.L("symbol", kicadsexp.Str(sym.LibID),
		kicadsexp.L("pin_names", kicadsexp.L("offset", kicadsexp.Num(0))),
		kicadsexp.L("exclude_from_sim", kicadsexp.Sym("no")),
		kicadsexp.L("in_bom", kicadsexp.Sym("yes")),
		kicadsexp.L("on_board", kicadsexp.Sym("yes")),
		libProperty(propReference, refPrefix(sym.Reference), false),
		libProperty(propValue, name, false),
	)

	start, end := bodyRect(sym.Pins)
	node.Add(kicadsexp.L("symbol", kicadsexp.Str(name+"_0_1"),
		kicadsexp.L("rectangle",
			sexp.XY("start", start),
			sexp.XY("end", end),
			sexp.Stroke(0.254, "default"),
			kicadsexp.L("fill", kicadsexp.L("type", kicadsexp.Sym("background"))),
		),
	))

	unit := kicadsexp.L("symbol", kicadsexp.Str(name+"_1_1"))
	for _, pin := range sym.Pins {
		pinName := pin.Name
		if pinName == "" {
			pinName = "~"
		}
		pinType := pin.Type
		if pinType == "" {
			pinType = "passive"
		}
		unit.Add(kicadsexp.L("pin", kicadsexp.Sym(pinType), kicadsexp.Sym("line"),
			sexp.At(PositionAngle{Position: pin.Offset, Angle: pin.Angle}, true),
			kicadsexp.L("length", kicadsexp.Num(pin.Length)),
			kicadsexp.L("name", kicadsexp.Str(pinName), sexp.Effects(textSize, false)),
			kicadsexp.L("number", kicadsexp.Str(pin.Number), sexp.Effects(textSize, false)),
		))
	}
	return node.Add(unit)
}

// emitPowerLibSymbol writes the power:<net> definition. Ground nets point
// down, every other supply points up.
func emitPowerLibSymbol(net string) *kicadsexp.List {
	angle, tip := Angle(90), 1.27
	if IsGround(net) {
		angle, tip = 270, -1.27
	}
	return kicadsexp.L("symbol", kicadsexp.Str(PowerLibID(net)),
		kicadsexp.L("power"),
		kicadsexp.L("pin_names", kicadsexp.L("offset", kicadsexp.Num(0))),
		kicadsexp.L("exclude_from_sim", kicadsexp.Sym("no")),
		kicadsexp.L("in_bom", kicadsexp.Sym("yes")),
		kicadsexp.L("on_board", kicadsexp.Sym("yes")),
		libProperty(propReference, "#PWR", true),
		libProperty(propValue, net, false),
		kicadsexp.L("symbol", kicadsexp.Str(net+"_0_1"),
			kicadsexp.L("polyline",
				sexp.Pts([]Position{{}, {Y: tip}}),
				sexp.Stroke(0, "default"),
				kicadsexp.L("fill", kicadsexp.L("type", kicadsexp.Sym("none"))),
			),
		),
		kicadsexp.L("symbol", kicadsexp.Str(net+"_1_1"),
			kicadsexp.L("pin", kicadsexp.Sym("power_in"), kicadsexp.Sym("line"),
				sexp.At(PositionAngle{Angle: angle}, true),
				kicadsexp.L("length", kicadsexp.Num(0)),
				kicadsexp.Sym("hide"),
				kicadsexp.L("name", kicadsexp.Str(net), sexp.Effects(textSize, false)),
				kicadsexp.L("number", kicadsexp.Str(PowerPin), sexp.Effects(textSize, false)),
			),
		),
	)
}

func libProperty(key, value string, hide bool) *kicadsexp.List {
	return kicadsexp.L("property", kicadsexp.Str(key), kicadsexp.Str(value),
		sexp.At(PositionAngle{}, true),
		sexp.Effects(textSize, hide),
	)
}

func emitLabel(l Label, id UUID) *kicadsexp.List {
	return kicadsexp.L("label", kicadsexp.Str(l.Text),
		sexp.At(PositionAngle{Position: l.Position, Angle: l.Angle}, true),
		kicadsexp.L("fields_autoplaced", kicadsexp.Sym("yes")),
		sexp.Effects(textSize, false).Add(kicadsexp.L("justify", kicadsexp.Sym("left"), kicadsexp.Sym("bottom"))),
		sexp.UUIDNode(id),
	)
}

func emitSymbol(s *Schematic, sym *Symbol, ids sexp.UUIDSource, rootID UUID) *kicadsexp.List {
	node := instanceHeader(sym.LibID, PositionAngle{Position: sym.Position, Angle: sym.Angle}, ids.For("symbol", sym.Reference))

	bb := sym.GetBoundingBox()
	side := Position{X: bb.Max.X + 1.27, Y: bb.Center().Y}
	node.Add(
		instanceProperty(propReference, sym.Reference, side.Add(Position{Y: -textSize}), false),
		instanceProperty(propValue, sym.Value, side.Add(Position{Y: textSize}), false),
		instanceProperty(propFootprint, sym.Footprint, sym.Position, true),
	)
	if sym.Role != "" {
		node.Add(instanceProperty(propRole, sym.Role, sym.Position, true))
	}
	if sym.Isolation != sexp.IsolationNone {
		node.Add(instanceProperty(propIsolation, string(sym.Isolation), sym.Position, true))
	}
	for _, pin := range sym.Pins {
		node.Add(kicadsexp.L("pin", kicadsexp.Str(pin.Number),
			sexp.UUIDNode(ids.For("symbol", sym.Reference, "pin", pin.Number))))
	}
	return node.Add(instances(s, sym.Reference, rootID))
}

func emitPowerSymbol(s *Schematic, ps PowerSymbol, ids sexp.UUIDSource, rootID UUID) *kicadsexp.List {
	net := s.nets.Name(ps.Net)
	node := instanceHeader(PowerLibID(net), PositionAngle{Position: ps.Position}, ids.For("symbol", ps.Reference))
	valueAt := ps.Position.Add(Position{Y: -3.81})
	if IsGround(net) {
		valueAt = ps.Position.Add(Position{Y: 3.81})
	}
	return node.Add(
		instanceProperty(propReference, ps.Reference, ps.Position, true),
		instanceProperty(propValue, net, valueAt, false),
		kicadsexp.L("pin", kicadsexp.Str(PowerPin), sexp.UUIDNode(ids.For("symbol", ps.Reference, "pin", PowerPin))),
		instances(s, ps.Reference, rootID),
	)
}

func instanceHeader(libID string, at PositionAngle, id UUID) *kicadsexp.List {
	return kicadsexp.L("symbol",
		kicadsexp.L("lib_id", kicadsexp.Str(libID)),
		sexp.At(at, true),
		kicadsexp.L("unit", kicadsexp.Int(1)),
		kicadsexp.L("exclude_from_sim", kicadsexp.Sym("no")),
		kicadsexp.L("in_bom", kicadsexp.Sym("yes")),
		kicadsexp.L("on_board", kicadsexp.Sym("yes")),
		kicadsexp.L("dnp", kicadsexp.Sym("no")),
		sexp.UUIDNode(id),
	)
}

func instanceProperty(key, value string, at Position, hide bool) *kicadsexp.List {
	return kicadsexp.L("property", kicadsexp.Str(key), kicadsexp.Str(value),
		sexp.At(PositionAngle{Position: at}, true),
		sexp.Effects(textSize, hide),
	)
}

func instances(s *Schematic, ref string, rootID UUID) *kicadsexp.List {
	return kicadsexp.L("instances",
		kicadsexp.L("project", kicadsexp.Str(s.Title.Title),
			kicadsexp.L("path", kicadsexp.Str("/"+string(rootID)),
				kicadsexp.L("reference", kicadsexp.Str(ref)),
				kicadsexp.L("unit", kicadsexp.Int(1)),
			),
		),
	)
}

// powerNets returns the distinct net names of the power symbols, sorted.
func powerNets(s *Schematic) []string {
	seen := make(map[string]bool)
	var names []string
	for _, ps := range s.PowerSymbols {
		name := s.nets.Name(ps.Net)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// unitName is the part of a lib id after the library prefix.
func unitName(libID string) string {
	if i := strings.LastIndex(libID, ":"); i >= 0 {
		return libID[i+1:]
	}
	return libID
}

// refPrefix strips the trailing number of a reference designator.
func refPrefix(ref string) string {
	return strings.TrimRightFunc(ref, unicode.IsDigit)
}

// IsGround reports whether a supply net is a ground return.
func IsGround(net string) bool {
	upper := strings.ToUpper(net)
	return strings.HasPrefix(upper, "GND") || strings.HasSuffix(upper, "GND") || upper == "VSS"
}
