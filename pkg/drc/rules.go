package drc

import "fmt"

// Rules are the design rule limits, all in mm.
type Rules struct {
	Clearance   float64            `yaml:"clearance"`    // Copper gap between different nets
	Isolation   float64            `yaml:"isolation"`    // Gap between high and low voltage entities
	MinWidth    float64            `yaml:"min_width"`    // Track width floor for unlisted classes
	ClassWidths map[string]float64 `yaml:"class_widths"` // Track width floor per net class
}

// DefaultRules returns the rules checked when none are configured.
func DefaultRules() Rules {
	return Rules{
		Clearance: 0.5,
		Isolation: 6,
		MinWidth:  0.2,
		ClassWidths: map[string]float64{
			"power":        0.5,
			"high_voltage": 1.0,
		},
	}
}

// MinWidthFor returns the minimum track width of a net class.
func (r Rules) MinWidthFor(class string) float64 {
	if w, ok := r.ClassWidths[class]; ok {
		return w
	}
	return r.MinWidth
}

// Validate fills unset limits with defaults and rejects negative ones.
func (r *Rules) Validate() error {
	def := DefaultRules()
	if r.Clearance == 0 {
		r.Clearance = def.Clearance
	}
	if r.Isolation == 0 {
		r.Isolation = def.Isolation
	}
	if r.MinWidth == 0 {
		r.MinWidth = def.MinWidth
	}
	if r.Clearance < 0 || r.Isolation < 0 || r.MinWidth < 0 {
		return fmt.Errorf("design rule limits must not be negative")
	}
	for class, w := range r.ClassWidths {
		if w < 0 {
			return fmt.Errorf("minimum width %v for class %q is negative", w, class)
		}
	}
	return nil
}
