package drc

import (
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/schematic"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
)

// CheckSchematic validates a schematic. Overlapping symbol outlines are
// reported as clearance errors; symbols off the declared page as outline
// warnings.
func CheckSchematic(s *schematic.Schematic, rules Rules) *Report {
	r := &Report{}
	if err := rules.Validate(); err != nil {
		rules = DefaultRules()
	}

	var tags []tagged
	for i, a := range s.Symbols {
		box := a.GetBoundingBox()
		for _, o := range s.Symbols[i+1:] {
			if box.Overlaps(o.GetBoundingBox()) {
				r.add(&ClearanceViolation{A: a.Reference, B: o.Reference})
			}
		}
		if a.Isolation != sexp.IsolationNone {
			tags = append(tags, tagged{name: a.Reference, isolation: a.Isolation, box: box})
		}
	}
	isolate(tags, rules.Isolation, r)

	if page, ok := s.Bounds(); ok {
		for _, sym := range s.Symbols {
			if !page.ContainsBox(sym.GetBoundingBox()) {
				r.add(&OutlineViolation{Reference: sym.Reference})
			}
		}
	}

	for _, v := range s.Nets().Validate() {
		r.add(&ConnectivityViolation{Finding: v})
	}
	return r
}
