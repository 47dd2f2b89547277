package layout

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
)

// ZoneDefinition is one functional region of a zonal layout. An item joins
// the first zone, by Order, whose Roles list its role or whose Match accepts
// it.
type ZoneDefinition struct {
	Name      string          `yaml:"name"`
	Order     int             `yaml:"order"`
	Roles     []string        `yaml:"roles"`
	Match     func(Item) bool `yaml:"-"`
	Isolation sexp.Isolation  `yaml:"isolation"`
}

func (z ZoneDefinition) accepts(it Item) bool {
	if slices.Contains(z.Roles, it.Role) {
		return true
	}
	return z.Match != nil && z.Match(it)
}

// DefaultZones returns the signal-flow zoning of a mains powered design:
// high voltage input stages first, the isolating power stage, then the low
// voltage side. Items without a matching role land in "general".
func DefaultZones() []ZoneDefinition {
	return []ZoneDefinition{
		{Name: "input", Order: 0, Roles: []string{"input"}, Isolation: sexp.IsolationHigh},
		{Name: "protection", Order: 1, Roles: []string{"protection"}, Isolation: sexp.IsolationHigh},
		{Name: "rectification", Order: 2, Roles: []string{"rectification"}, Isolation: sexp.IsolationHigh},
		{Name: "power-stage", Order: 3, Roles: []string{"power-stage", "isolation"}},
		{Name: "output", Order: 4, Roles: []string{"output"}, Isolation: sexp.IsolationLow},
		{Name: "feedback", Order: 5, Roles: []string{"feedback", "control"}},
		{Name: "general", Order: 99, Match: func(Item) bool { return true }},
	}
}

// zonal assigns items to zones, sizes one region per non-empty zone and
// lays the regions out left to right in bands, top to bottom.
func (l *layouter) zonal(items []Item) ([]Placement, []ZoneRegion, error) {
	defs := slices.Clone(l.opts.Zones)
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].Order < defs[j].Order })

	members := make([][]Item, len(defs))
	for _, it := range items {
		zi := slices.IndexFunc(defs, func(z ZoneDefinition) bool { return z.accepts(it) })
		if zi < 0 {
			return nil, nil, &LayoutError{Entity: it.Reference, Msg: fmt.Sprintf("no zone accepts role %q", it.Role)}
		}
		members[zi] = append(members[zi], it)
	}

	area := l.area()
	cursor := area.Min
	var (
		out     []Placement
		regions []ZoneRegion
		bandH   float64
	)
	for zi, def := range defs {
		zoneItems := members[zi]
		if len(zoneItems) == 0 {
			continue
		}
		cw, ch := cellSize(zoneItems, 0, l.opts.Spacing)
		cols := int(math.Ceil(math.Sqrt(float64(len(zoneItems)))))
		rows := (len(zoneItems) + cols - 1) / cols
		size := sexp.Size{Width: float64(cols) * cw, Height: float64(rows) * ch}

		gap := l.opts.Spacing
		for _, r := range regions {
			if def.Isolation.Opposes(r.Isolation) {
				gap = math.Max(gap, l.opts.IsolationDistance)
			}
		}

		x := cursor.X
		if len(regions) > 0 {
			x += gap
		}
		if x+size.Width > area.Max.X+sexp.Epsilon && len(regions) > 0 {
			cursor = sexp.Position{X: area.Min.X, Y: cursor.Y + bandH + gap}
			bandH = 0
			x = area.Min.X
		}
		box := l.isolate(sexp.Rect(sexp.Position{X: x, Y: cursor.Y}, size), def.Isolation, regions)
		if !area.ContainsBox(box) {
			return nil, nil, &LayoutError{
				Zone: def.Name,
				Msg:  fmt.Sprintf("insufficient space for %d members (%.2f x %.2f mm)", len(zoneItems), size.Width, size.Height),
			}
		}
		cursor.X = box.Max.X
		bandH = math.Max(bandH, box.Max.Y-cursor.Y)

		region := ZoneRegion{Name: def.Name, Box: box, Isolation: def.Isolation}
		for i, it := range zoneItems {
			cell := sexp.Rect(
				box.Min.Add(sexp.Position{X: float64(i%cols) * cw, Y: float64(i/cols) * ch}),
				sexp.Size{Width: cw, Height: ch},
			)
			p := centerIn(it, cell)
			p.Zone = def.Name
			if def.Isolation != sexp.IsolationNone {
				p.Isolation = def.Isolation
			}
			out = append(out, p)
			region.Members = append(region.Members, it.Reference)
		}
		regions = append(regions, region)
	}
	return out, regions, nil
}

// isolate pushes box down until it keeps the isolation distance from every
// earlier region of the opposite voltage class. Earlier regions sit above
// box or to its left, so moving down only ever increases the distance.
func (l *layouter) isolate(box sexp.BoundingBox, class sexp.Isolation, regions []ZoneRegion) sexp.BoundingBox {
	for moved := true; moved; {
		moved = false
		for _, r := range regions {
			if !class.Opposes(r.Isolation) {
				continue
			}
			if sexp.BoxDistance(box, r.Box) < l.opts.IsolationDistance-sexp.Epsilon {
				box = box.Translate(sexp.Position{Y: r.Box.Max.Y + l.opts.IsolationDistance - box.Min.Y})
				moved = true
			}
		}
	}
	return box
}
