package pcb

import (
	"io"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp/kicadsexp"
)

// Serialize renders the board as kicad_pcb text. It performs no validation;
// the same board always yields the same bytes.
func Serialize(b *Board) string {
	return kicadsexp.Format(Build(b))
}

// Write renders the board to w.
func Write(w io.Writer, b *Board) error {
	return kicadsexp.Write(w, Build(b))
}

// Build returns the token tree of the board.
func Build(b *Board) *kicadsexp.List {
	ids := sexp.NewUUIDSource(b.Title.Title)

	root := kicadsexp.L("kicad_pcb",
		kicadsexp.L("version", kicadsexp.Int(b.Version)),
		kicadsexp.L("generator", kicadsexp.Str(b.Generator)),
	)
	if b.GeneratorVersion != "" {
		root.Add(kicadsexp.L("generator_version", kicadsexp.Str(b.GeneratorVersion)))
	}
	root.Add(kicadsexp.L("general", kicadsexp.L("thickness", kicadsexp.Num(b.General.Thickness))))

	if bounds, ok := b.Bounds(); ok {
		root.Add(kicadsexp.L("paper", kicadsexp.Str("User"), kicadsexp.Num(bounds.Width()), kicadsexp.Num(bounds.Height())))
	} else {
		root.Add(kicadsexp.L("paper", kicadsexp.Str("A4")))
	}
	root.Add(sexp.TitleBlockNode(b.Title))

	layers := kicadsexp.L("layers")
	for _, l := range b.Layers {
		layer := (&kicadsexp.List{}).Add(kicadsexp.Int(l.Number), kicadsexp.Str(l.Name), kicadsexp.Sym(l.Type))
		if l.UserName != "" {
			layer.Add(kicadsexp.Str(l.UserName))
		}
		layers.Add(layer)
	}
	root.Add(layers)
	root.Add(kicadsexp.L("setup", kicadsexp.L("pad_to_mask_clearance", kicadsexp.Num(b.Setup.PadToMaskClearance))))

	root.Add(kicadsexp.L("net", kicadsexp.Int(0), kicadsexp.Str("")))
	for _, n := range b.nets.Nets() {
		root.Add(kicadsexp.L("net", kicadsexp.Int(int(n.ID)), kicadsexp.Str(n.Name)))
	}
	for _, nc := range emitNetClasses(b) {
		root.Add(nc)
	}

	for _, fp := range b.Footprints {
		root.Add(emitFootprint(fp, b.nets, ids))
	}
	if b.Outline != nil && len(b.Outline.Points) > 1 {
		root.Add(emitOutline(b.Outline, ids))
	}
	for i, t := range b.Tracks {
		root.Add(emitTrack(i, t, ids))
	}
	for i, v := range b.Vias {
		root.Add(emitVia(i, v, ids))
	}
	for i, z := range b.Zones {
		root.Add(emitZone(i, z, b.nets, ids))
	}
	return root
}

// emitNetClasses groups classed nets into one net_class node per class, in
// order of first appearance by net number.
func emitNetClasses(b *Board) []*kicadsexp.List {
	var order []string
	byClass := make(map[string]*kicadsexp.List)
	for _, n := range b.nets.Nets() {
		if n.Class == "" {
			continue
		}
		node, ok := byClass[n.Class]
		if !ok {
			node = kicadsexp.L("net_class", kicadsexp.Str(n.Class))
			byClass[n.Class] = node
			order = append(order, n.Class)
		}
		node.Add(kicadsexp.L("add_net", kicadsexp.Str(n.Name)))
	}
	out := make([]*kicadsexp.List, 0, len(order))
	for _, class := range order {
		out = append(out, byClass[class])
	}
	return out
}
