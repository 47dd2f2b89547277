// Package drc checks finished boards and schematics against clearance,
// isolation, track width and outline rules.
//
// Checks never fail: every finding is collected in a Report and the caller
// decides what to do with errors and warnings.
package drc

import (
	"fmt"
	"sort"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/netlist"
)

// Violation kinds.
const (
	KindClearance   = "clearance"
	KindIsolation   = "isolation"
	KindWidth       = "width"
	KindOutline     = "outline"
	KindUnroutedNet = "unrouted-net"
)

// Severity grades a violation.
type Severity = netlist.Severity

const (
	SeverityError   = netlist.SeverityError
	SeverityWarning = netlist.SeverityWarning
)

// Violation is a single finding.
type Violation interface {
	Kind() string
	Severity() Severity
	Error() string
}

// ClearanceViolation is a pair of copper objects on different nets, or
// overlapping symbols, closer than allowed.
type ClearanceViolation struct {
	A, B     string
	Layer    string
	Distance float64
	Required float64
}

func (v *ClearanceViolation) Kind() string       { return KindClearance }
func (v *ClearanceViolation) Severity() Severity { return SeverityError }
func (v *ClearanceViolation) Error() string {
	if v.Layer == "" {
		return fmt.Sprintf("%s and %s are %.4f mm apart, need %.4f mm", v.A, v.B, v.Distance, v.Required)
	}
	return fmt.Sprintf("%s and %s are %.4f mm apart on %s, need %.4f mm", v.A, v.B, v.Distance, v.Layer, v.Required)
}

// IsolationViolation is a high voltage entity too close to a low voltage one.
type IsolationViolation struct {
	High, Low string
	Distance  float64
	Required  float64
}

func (v *IsolationViolation) Kind() string       { return KindIsolation }
func (v *IsolationViolation) Severity() Severity { return SeverityError }
func (v *IsolationViolation) Error() string {
	return fmt.Sprintf("high voltage %s is %.4f mm from low voltage %s, need %.4f mm", v.High, v.Distance, v.Low, v.Required)
}

// WidthViolation is a track narrower than its net class allows.
type WidthViolation struct {
	Track    int // Index into the board's tracks
	Net      string
	Class    string
	Width    float64
	Required float64
}

func (v *WidthViolation) Kind() string       { return KindWidth }
func (v *WidthViolation) Severity() Severity { return SeverityError }
func (v *WidthViolation) Error() string {
	return fmt.Sprintf("track %d on %s is %.4f mm wide, need %.4f mm", v.Track, v.Net, v.Width, v.Required)
}

// OutlineViolation is an entity not fully inside the board outline or page.
type OutlineViolation struct {
	Reference string
}

func (v *OutlineViolation) Kind() string       { return KindOutline }
func (v *OutlineViolation) Severity() Severity { return SeverityWarning }
func (v *OutlineViolation) Error() string {
	return fmt.Sprintf("%s is not inside the outline", v.Reference)
}

// ConnectivityViolation carries a net registry finding or a net whose
// members are not all joined.
type ConnectivityViolation struct {
	Finding netlist.Violation
}

func (v *ConnectivityViolation) Kind() string       { return v.Finding.Kind }
func (v *ConnectivityViolation) Severity() Severity { return v.Finding.Severity }
func (v *ConnectivityViolation) Error() string      { return v.Finding.Message }

// Report aggregates the findings of a check.
type Report struct {
	Violations []Violation
}

func (r *Report) add(v Violation) {
	r.Violations = append(r.Violations, v)
}

// Errors returns the error severity findings.
func (r *Report) Errors() []Violation {
	return r.filter(SeverityError)
}

// Warnings returns the warning severity findings.
func (r *Report) Warnings() []Violation {
	return r.filter(SeverityWarning)
}

// HasErrors reports whether any finding is an error.
func (r *Report) HasErrors() bool {
	return len(r.Errors()) > 0
}

// Count returns the number of findings of a kind.
func (r *Report) Count(kind string) int {
	n := 0
	for _, v := range r.Violations {
		if v.Kind() == kind {
			n++
		}
	}
	return n
}

// Kinds returns the distinct kinds present, sorted.
func (r *Report) Kinds() []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range r.Violations {
		if !seen[v.Kind()] {
			seen[v.Kind()] = true
			out = append(out, v.Kind())
		}
	}
	sort.Strings(out)
	return out
}

func (r *Report) filter(s Severity) []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity() == s {
			out = append(out, v)
		}
	}
	return out
}
