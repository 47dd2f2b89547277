// Package intent defines the closed design record the generator consumes:
// board size, components drawn from the part library and the nets joining
// their pins.
package intent

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/library"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/netlist"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/pcb"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
	"github.com/OpenTraceLab/kicadgen/pkg/layout"
)

// CurrentVersion is the intent format version this package reads.
const CurrentVersion = 1

// Intent describes one design.
type Intent struct {
	Version     int          `yaml:"version" toml:"version"`
	Name        string       `yaml:"name" toml:"name"`
	Width       float64      `yaml:"width" toml:"width"`   // Board width in mm, 0 to fit
	Height      float64      `yaml:"height" toml:"height"` // Board height in mm, 0 to fit
	Layers      int          `yaml:"layers" toml:"layers"` // Copper layers, 2 when unset
	Layout      string       `yaml:"layout" toml:"layout"` // Placement strategy name
	GroundPlane bool         `yaml:"ground_plane" toml:"ground_plane"`
	Components  []Component  `yaml:"components" toml:"components"`
	Connections []Connection `yaml:"connections" toml:"connections"`
}

// Component is a part instance.
type Component struct {
	Ref       string `yaml:"ref" toml:"ref"`
	Type      string `yaml:"type" toml:"type"` // Part library type tag
	Value     string `yaml:"value" toml:"value"`
	Role      string `yaml:"role" toml:"role"`           // Overrides the part's default role
	Isolation string `yaml:"isolation" toml:"isolation"` // "high", "low" or empty
}

// Connection is a net and the pins on it, written "REF.PIN".
type Connection struct {
	Net   string   `yaml:"net" toml:"net"`
	Class string   `yaml:"class" toml:"class"`
	Pins  []string `yaml:"pins" toml:"pins"`
	Power bool     `yaml:"power" toml:"power"` // Draw a power flag on the schematic
}

// Members parses the connection's pins.
func (c Connection) Members() ([]netlist.Member, error) {
	out := make([]netlist.Member, 0, len(c.Pins))
	for _, p := range c.Pins {
		ref, pin, ok := strings.Cut(p, ".")
		if !ok || ref == "" || pin == "" {
			return nil, fmt.Errorf("net %s: pin %q is not REF.PIN", c.Net, p)
		}
		out = append(out, netlist.Member{Owner: ref, Pin: pin})
	}
	return out, nil
}

// Strategy returns the placement strategy, zonal when unset.
func (in *Intent) Strategy() (layout.Strategy, error) {
	if in.Layout == "" {
		return layout.Zonal, nil
	}
	return layout.ParseStrategy(in.Layout)
}

// Validate fills defaults and checks the record against the part library.
// Every problem found is reported.
func (in *Intent) Validate() error {
	if in.Version == 0 {
		in.Version = CurrentVersion
	}
	if in.Layers == 0 {
		in.Layers = 2
	}

	var errs []error
	if in.Version != CurrentVersion {
		errs = append(errs, fmt.Errorf("unsupported intent version %d", in.Version))
	}
	if strings.TrimSpace(in.Name) == "" {
		errs = append(errs, errors.New("design has no name"))
	}
	if in.Width < 0 || in.Height < 0 || (in.Width == 0) != (in.Height == 0) {
		errs = append(errs, fmt.Errorf("board size %vx%v must be both positive or both unset", in.Width, in.Height))
	}
	if !slices.Contains(pcb.ValidLayerCounts, in.Layers) {
		errs = append(errs, fmt.Errorf("layer count %d is not one of %v", in.Layers, pcb.ValidLayerCounts))
	}
	if _, err := in.Strategy(); err != nil {
		errs = append(errs, err)
	}
	if len(in.Components) == 0 {
		errs = append(errs, errors.New("design has no components"))
	}

	pads := make(map[string][]string)
	for _, c := range in.Components {
		if c.Ref == "" {
			errs = append(errs, fmt.Errorf("component of type %q has no reference", c.Type))
			continue
		}
		if _, dup := pads[c.Ref]; dup {
			errs = append(errs, &sexp.DuplicateReferenceError{Reference: c.Ref})
			continue
		}
		if _, err := sexp.ParseIsolation(c.Isolation); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Ref, err))
		}
		part, err := library.Lookup(c.Type)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Ref, err))
			pads[c.Ref] = nil
			continue
		}
		def, err := library.Footprint(part.Footprint)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Ref, err))
			continue
		}
		for _, p := range def.Pads {
			pads[c.Ref] = append(pads[c.Ref], p.Number)
		}
	}

	seen := make(map[netlist.Member]string)
	nets := make(map[string]bool)
	for _, conn := range in.Connections {
		if conn.Net == "" {
			errs = append(errs, errors.New("connection has no net name"))
			continue
		}
		if nets[conn.Net] {
			errs = append(errs, fmt.Errorf("net %s is declared twice", conn.Net))
		}
		nets[conn.Net] = true
		members, err := conn.Members()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, m := range members {
			numbers, ok := pads[m.Owner]
			switch {
			case !ok:
				errs = append(errs, fmt.Errorf("net %s: %w", conn.Net, &sexp.NotFoundError{Kind: "component", Reference: m.Owner}))
			case numbers != nil && !slices.Contains(numbers, m.Pin):
				errs = append(errs, fmt.Errorf("net %s: %w", conn.Net, &sexp.NotFoundError{Kind: "pin", Reference: m.String()}))
			case seen[m] != "":
				errs = append(errs, fmt.Errorf("%s is on both %s and %s", m, seen[m], conn.Net))
			default:
				seen[m] = conn.Net
			}
		}
	}
	return errors.Join(errs...)
}
