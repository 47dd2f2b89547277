// Package netlist tracks net membership of pins and pads within one
// document.
package netlist

import (
	"fmt"
	"sort"
)

// NetID is the integer net code written to files.
type NetID int

// NoNet is the reserved code for "not connected".
const NoNet NetID = 0

// Net is a named electrical net.
type Net struct {
	ID    NetID
	Name  string
	Class string // net class label used for width rules, "" for default
}

// Member identifies a pin or pad by its owner's reference designator and
// its pin number.
type Member struct {
	Owner string
	Pin   string
}

func (m Member) String() string {
	return m.Owner + "." + m.Pin
}

// Severity grades a violation.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Violation kinds reported by Validate.
const (
	KindDanglingNet    = "dangling-net"
	KindUnroutedMember = "unrouted-member"
)

// Violation is a non-fatal connectivity finding.
type Violation struct {
	Kind     string
	Severity Severity
	Net      string
	Member   Member
	Message  string
}

// Registry owns the nets of a single document and the net membership of
// its pins and pads. It is not safe for concurrent use; each document owns
// its own registry.
type Registry struct {
	nets      map[NetID]*Net
	byName    map[string]NetID
	next      NetID
	members   map[Member]NetID
	mustRoute map[Member]bool
}

// NewRegistry creates an empty registry. Codes are allocated from 1.
func NewRegistry() *Registry {
	return &Registry{
		nets:      make(map[NetID]*Net),
		byName:    make(map[string]NetID),
		next:      1,
		members:   make(map[Member]NetID),
		mustRoute: make(map[Member]bool),
	}
}

// GetOrCreate returns the code of the named net, allocating the next code
// the first time a name is seen. Names are case-sensitive. The empty name
// maps to NoNet.
func (r *Registry) GetOrCreate(name string) NetID {
	if name == "" {
		return NoNet
	}
	if id, ok := r.byName[name]; ok {
		return id
	}
	id := r.next
	r.next++
	r.nets[id] = &Net{ID: id, Name: name}
	r.byName[name] = id
	return id
}

// Register adds a net with a fixed code, as read from a file. Registering
// the same id and name twice is a no-op.
func (r *Registry) Register(id NetID, name string) error {
	if id <= NoNet {
		return fmt.Errorf("net code %d is reserved", id)
	}
	if existing, ok := r.nets[id]; ok {
		if existing.Name != name {
			return fmt.Errorf("net code %d already registered as %q", id, existing.Name)
		}
		return nil
	}
	if other, ok := r.byName[name]; ok {
		return fmt.Errorf("net %q already registered with code %d", name, other)
	}
	r.nets[id] = &Net{ID: id, Name: name}
	r.byName[name] = id
	if id >= r.next {
		r.next = id + 1
	}
	return nil
}

// Has reports whether id is a registered net.
func (r *Registry) Has(id NetID) bool {
	_, ok := r.nets[id]
	return ok
}

// Net returns the net with the given code.
func (r *Registry) Net(id NetID) (Net, bool) {
	n, ok := r.nets[id]
	if !ok {
		return Net{}, false
	}
	return *n, true
}

// Lookup returns the code of a net by name.
func (r *Registry) Lookup(name string) (NetID, bool) {
	id, ok := r.byName[name]
	return id, ok
}

// Name returns the net name for id, or "" for NoNet and unknown codes.
func (r *Registry) Name(id NetID) string {
	if n, ok := r.nets[id]; ok {
		return n.Name
	}
	return ""
}

// SetClass attaches a net class label to a net.
func (r *Registry) SetClass(id NetID, class string) error {
	n, ok := r.nets[id]
	if !ok {
		return &UnknownNetError{ID: id}
	}
	n.Class = class
	return nil
}

// Class returns the net class label of id ("" if none).
func (r *Registry) Class(id NetID) string {
	if n, ok := r.nets[id]; ok {
		return n.Class
	}
	return ""
}

// Assign sets the net of a member. Assigning NoNet clears the membership.
func (r *Registry) Assign(m Member, id NetID) error {
	if id == NoNet {
		r.Unassign(m)
		return nil
	}
	if !r.Has(id) {
		return &UnknownNetError{ID: id}
	}
	r.members[m] = id
	return nil
}

// Unassign clears the net of a member.
func (r *Registry) Unassign(m Member) {
	delete(r.members, m)
}

// NetOf returns the net of a member, or NoNet.
func (r *Registry) NetOf(m Member) NetID {
	return r.members[m]
}

// MarkMustRoute flags a member as required to be connected.
func (r *Registry) MarkMustRoute(m Member) {
	r.mustRoute[m] = true
}

// Members returns the members of a net sorted by owner then pin.
func (r *Registry) Members(id NetID) []Member {
	var out []Member
	for m, net := range r.members {
		if net == id {
			out = append(out, m)
		}
	}
	sortMembers(out)
	return out
}

// Release drops every membership and must-route flag of an owner.
func (r *Registry) Release(owner string) {
	for m := range r.members {
		if m.Owner == owner {
			delete(r.members, m)
		}
	}
	for m := range r.mustRoute {
		if m.Owner == owner {
			delete(r.mustRoute, m)
		}
	}
}

// Prune removes nets without members and returns their codes in ascending
// order. Remaining codes are not renumbered.
func (r *Registry) Prune() []NetID {
	used := make(map[NetID]bool, len(r.nets))
	for _, id := range r.members {
		used[id] = true
	}
	var removed []NetID
	for id, n := range r.nets {
		if !used[id] {
			delete(r.byName, n.Name)
			delete(r.nets, id)
			removed = append(removed, id)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	return removed
}

// Nets returns all registered nets ordered by code.
func (r *Registry) Nets() []Net {
	out := make([]Net, 0, len(r.nets))
	for _, n := range r.nets {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Validate reports must-route members left unassigned and nets with fewer
// than two members. It never fails.
func (r *Registry) Validate() []Violation {
	var violations []Violation

	counts := make(map[NetID]int, len(r.nets))
	for _, id := range r.members {
		counts[id]++
	}
	for _, n := range r.Nets() {
		if c := counts[n.ID]; c < 2 {
			violations = append(violations, Violation{
				Kind:     KindDanglingNet,
				Severity: SeverityWarning,
				Net:      n.Name,
				Message:  fmt.Sprintf("net %q has %d member(s)", n.Name, c),
			})
		}
	}

	var unrouted []Member
	for m := range r.mustRoute {
		if r.members[m] == NoNet {
			unrouted = append(unrouted, m)
		}
	}
	sortMembers(unrouted)
	for _, m := range unrouted {
		violations = append(violations, Violation{
			Kind:     KindUnroutedMember,
			Severity: SeverityWarning,
			Member:   m,
			Message:  fmt.Sprintf("%s must be routed but has no net", m),
		})
	}

	return violations
}

func sortMembers(ms []Member) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].Owner != ms[j].Owner {
			return ms[i].Owner < ms[j].Owner
		}
		return ms[i].Pin < ms[j].Pin
	})
}
