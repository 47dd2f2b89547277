package layout

import (
	"fmt"
	"math"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/netlist"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
)

// cellSize returns the lattice cell that holds any of items with spacing
// to spare, never smaller than minimum.
func cellSize(items []Item, minimum, spacing float64) (float64, float64) {
	w, h := minimum, minimum
	for _, it := range items {
		w = math.Max(w, it.Box.Width()+spacing)
		h = math.Max(h, it.Box.Height()+spacing)
	}
	return w, h
}

// centerIn places item centered in cell.
func centerIn(item Item, cell sexp.BoundingBox) Placement {
	c := cell.Center()
	return place(item, sexp.Position{X: c.X - item.Box.Width()/2, Y: c.Y - item.Box.Height()/2})
}

// grid fills a uniform lattice row by row in insertion order.
func (l *layouter) grid(items []Item) ([]Placement, error) {
	if len(items) == 0 {
		return nil, nil
	}
	area := l.area()
	cw, ch := cellSize(items, l.opts.Pitch, l.opts.Spacing)

	cols := l.opts.Columns
	if cols == 0 {
		if l.declared {
			cols = int(math.Floor((area.Width() + sexp.Epsilon) / cw))
		} else {
			cols = int(math.Ceil(math.Sqrt(float64(len(items)))))
		}
	}
	if cols < 1 {
		return nil, &LayoutError{Entity: items[0].Reference, Msg: fmt.Sprintf("no room for a %.2f mm grid cell", cw)}
	}

	out := make([]Placement, 0, len(items))
	for i, it := range items {
		row, col := i/cols, i%cols
		cell := sexp.Rect(
			area.Min.Add(sexp.Position{X: float64(col) * cw, Y: float64(row) * ch}),
			sexp.Size{Width: cw, Height: ch},
		)
		if !area.ContainsBox(cell) {
			return nil, &LayoutError{Entity: it.Reference, Msg: fmt.Sprintf("grid cell %d,%d falls outside the board", row, col)}
		}
		out = append(out, centerIn(it, cell))
	}
	return out, nil
}

// linear lines items up along one axis on a shared centerline.
func (l *layouter) linear(items []Item) ([]Placement, error) {
	area := l.area()
	var across float64
	for _, it := range items {
		if l.opts.Axis == Horizontal {
			across = math.Max(across, it.Box.Height())
		} else {
			across = math.Max(across, it.Box.Width())
		}
	}

	out := make([]Placement, 0, len(items))
	cursor := area.Min
	for _, it := range items {
		var corner sexp.Position
		if l.opts.Axis == Horizontal {
			corner = sexp.Position{X: cursor.X, Y: area.Min.Y + (across-it.Box.Height())/2}
			cursor.X += it.Box.Width() + l.opts.Spacing
		} else {
			corner = sexp.Position{X: area.Min.X + (across-it.Box.Width())/2, Y: cursor.Y}
			cursor.Y += it.Box.Height() + l.opts.Spacing
		}
		p := place(it, corner)
		if !area.ContainsBox(p.Box) {
			return nil, &LayoutError{Entity: it.Reference, Msg: fmt.Sprintf("no room on the %s line", l.opts.Axis)}
		}
		out = append(out, p)
	}
	return out, nil
}

// clustered groups items that share nets and packs each group contiguously.
func (l *layouter) clustered(items []Item) ([]Placement, error) {
	if len(items) == 0 {
		return nil, nil
	}

	ds := netlist.NewDisjointSet()
	for _, it := range items {
		ds.Add(it.Reference)
	}
	for i := range items {
		for j := i + 1; j < len(items); j++ {
			if sharedNets(items[i], items[j]) >= l.opts.ClusterThreshold {
				ds.Union(items[i].Reference, items[j].Reference)
			}
		}
	}

	// Clusters keep the insertion order of their first member.
	var clusters [][]Item
	index := make(map[string]int)
	for _, it := range items {
		root := ds.Find(it.Reference)
		n, ok := index[root]
		if !ok {
			n = len(clusters)
			index[root] = n
			clusters = append(clusters, nil)
		}
		clusters[n] = append(clusters[n], it)
	}

	s := newShelf(l.area(), l.opts.Spacing, l.shelfWidth(items))
	var out []Placement
	for ci, cluster := range clusters {
		for k, it := range nearestOrder(cluster) {
			gap := l.opts.Spacing
			if k == 0 && ci > 0 {
				gap = 2 * l.opts.Spacing
			}
			corner, ok := s.next(it.Box.Size(), gap)
			if !ok {
				return nil, &LayoutError{Entity: it.Reference, Msg: fmt.Sprintf("no room for cluster %d", ci+1)}
			}
			out = append(out, place(it, corner))
		}
	}
	return out, nil
}

// shelfWidth limits rows when the bounds are undeclared so the packing
// comes out roughly square.
func (l *layouter) shelfWidth(items []Item) float64 {
	if l.declared {
		return 0
	}
	var area, widest float64
	for _, it := range items {
		area += (it.Box.Width() + l.opts.Spacing) * (it.Box.Height() + l.opts.Spacing)
		widest = math.Max(widest, it.Box.Width())
	}
	return math.Max(math.Sqrt(area)*1.5, widest)
}

// nearestOrder starts at the first item and repeatedly appends the item
// sharing the most nets with the last one, ties going to insertion order.
func nearestOrder(cluster []Item) []Item {
	if len(cluster) < 3 {
		return cluster
	}
	rest := append([]Item(nil), cluster[1:]...)
	order := []Item{cluster[0]}
	for len(rest) > 0 {
		last := order[len(order)-1]
		best, bestShared := 0, -1
		for i, it := range rest {
			if n := sharedNets(last, it); n > bestShared {
				best, bestShared = i, n
			}
		}
		order = append(order, rest[best])
		rest = append(rest[:best], rest[best+1:]...)
	}
	return order
}

func sharedNets(a, b Item) int {
	n := 0
	for _, x := range a.Nets {
		for _, y := range b.Nets {
			if x == y {
				n++
				break
			}
		}
	}
	return n
}

// shelf packs rectangles left to right, wrapping to a new row when the
// current one is full.
type shelf struct {
	area    sexp.BoundingBox
	spacing float64
	right   float64 // Row limit
	cursor  sexp.Position
	rowH    float64
}

func newShelf(area sexp.BoundingBox, spacing, width float64) *shelf {
	right := area.Max.X
	if width > 0 {
		right = math.Min(right, area.Min.X+width)
	}
	return &shelf{area: area, spacing: spacing, right: right, cursor: area.Min}
}

// next reserves a w by h slot gap away from the previous one and returns its
// top-left corner.
func (s *shelf) next(size sexp.Size, gap float64) (sexp.Position, bool) {
	x := s.cursor.X
	if x > s.area.Min.X {
		x += gap
	}
	if x+size.Width > s.right+sexp.Epsilon && s.cursor.X > s.area.Min.X {
		s.cursor = sexp.Position{X: s.area.Min.X, Y: s.cursor.Y + s.rowH + gap}
		s.rowH = 0
		x = s.area.Min.X
	}
	if x+size.Width > s.area.Max.X+sexp.Epsilon || s.cursor.Y+size.Height > s.area.Max.Y+sexp.Epsilon {
		return sexp.Position{}, false
	}
	corner := sexp.Position{X: x, Y: s.cursor.Y}
	s.cursor.X = x + size.Width
	s.rowH = math.Max(s.rowH, size.Height)
	return corner, true
}
