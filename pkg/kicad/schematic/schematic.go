package schematic

import (
	"fmt"
	"slices"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/netlist"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
)

// NewSchematic creates an empty schematic on an undeclared page.
func NewSchematic(title string) *Schematic {
	return &Schematic{
		Version:          FormatVersion,
		Generator:        GeneratorName,
		GeneratorVersion: GeneratorVersion,
		Title:            sexp.TitleBlock{Title: title},
		nets:             netlist.NewRegistry(),
	}
}

// Nets returns the schematic's net registry.
func (s *Schematic) Nets() *netlist.Registry {
	return s.nets
}

// SetPageProperties declares the page size.
func (s *Schematic) SetPageProperties(width, height float64) error {
	if width <= 0 {
		return &sexp.InvalidGeometryError{Field: "page width", Reason: fmt.Sprintf("%v is not positive", width)}
	}
	if height <= 0 {
		return &sexp.InvalidGeometryError{Field: "page height", Reason: fmt.Sprintf("%v is not positive", height)}
	}
	s.Width, s.Height = width, height
	return nil
}

// Bounds returns the declared page area and whether one is declared.
func (s *Schematic) Bounds() (BoundingBox, bool) {
	if s.Width <= 0 || s.Height <= 0 {
		return BoundingBox{}, false
	}
	return sexp.Rect(Position{}, Size{Width: s.Width, Height: s.Height}), true
}

// AddSymbol inserts sym. Pin nets already set on sym must be registered. A
// symbol whose reference already exists is rejected and nothing is added.
func (s *Schematic) AddSymbol(sym *Symbol) error {
	if sym.Reference == "" {
		return fmt.Errorf("symbol %q has no reference designator", sym.LibID)
	}
	if s.hasReference(sym.Reference) {
		return &sexp.DuplicateReferenceError{Reference: sym.Reference}
	}
	for _, pin := range sym.Pins {
		if pin.Net != netlist.NoNet && !s.nets.Has(pin.Net) {
			return &netlist.UnknownNetError{ID: pin.Net}
		}
	}
	sym.Position = sexp.SnapPosition(sym.Position)
	for _, pin := range sym.Pins {
		if pin.Net != netlist.NoNet {
			_ = s.nets.Assign(netlist.Member{Owner: sym.Reference, Pin: pin.Number}, pin.Net)
		}
	}
	s.Symbols = append(s.Symbols, sym)
	return nil
}

// Symbol returns the symbol with the given reference.
func (s *Schematic) Symbol(ref string) (*Symbol, error) {
	i := s.symbolIndex(ref)
	if i < 0 {
		return nil, &sexp.NotFoundError{Kind: "symbol", Reference: ref}
	}
	return s.Symbols[i], nil
}

// Remove detaches a symbol or power symbol, releases its net memberships
// and prunes nets left without members.
func (s *Schematic) Remove(ref string) error {
	if i := s.symbolIndex(ref); i >= 0 {
		s.Symbols = slices.Delete(s.Symbols, i, i+1)
	} else if i := s.powerIndex(ref); i >= 0 {
		s.PowerSymbols = slices.Delete(s.PowerSymbols, i, i+1)
	} else {
		return &sexp.NotFoundError{Kind: "symbol", Reference: ref}
	}
	s.nets.Release(ref)
	s.PruneNets()
	return nil
}

// AssignPin sets the net of a symbol pin.
func (s *Schematic) AssignPin(ref, number string, id NetID) error {
	pin, err := s.pin(ref, number)
	if err != nil {
		return err
	}
	if err := s.nets.Assign(netlist.Member{Owner: ref, Pin: number}, id); err != nil {
		return err
	}
	pin.Net = id
	return nil
}

// ConnectPin assigns a pin to the named net, creating the net if needed.
func (s *Schematic) ConnectPin(ref, number, netName string) (NetID, error) {
	if _, err := s.pin(ref, number); err != nil {
		return netlist.NoNet, err
	}
	id := s.nets.GetOrCreate(netName)
	return id, s.AssignPin(ref, number, id)
}

// RequireRouting flags a pin as one that must end up on a net.
func (s *Schematic) RequireRouting(ref, number string) error {
	if _, err := s.pin(ref, number); err != nil {
		return err
	}
	s.nets.MarkMustRoute(netlist.Member{Owner: ref, Pin: number})
	return nil
}

// PinPosition returns the absolute connection point of a symbol or power
// symbol pin.
func (s *Schematic) PinPosition(ref, number string) (Position, error) {
	if i := s.powerIndex(ref); i >= 0 && number == PowerPin {
		return s.PowerSymbols[i].Position, nil
	}
	sym, err := s.Symbol(ref)
	if err != nil {
		return Position{}, err
	}
	pin, err := s.pin(ref, number)
	if err != nil {
		return Position{}, err
	}
	return sym.PinAnchor(*pin), nil
}

// AddPowerSymbol places a power flag joining netName at the given point and
// returns its generated reference.
func (s *Schematic) AddPowerSymbol(netName string, at Position) (string, error) {
	if netName == "" {
		return "", fmt.Errorf("power symbol needs a net name")
	}
	ref := ""
	for n := len(s.PowerSymbols) + 1; ; n++ {
		ref = fmt.Sprintf("#PWR%02d", n)
		if !s.hasReference(ref) {
			break
		}
	}
	if err := s.addPower(ref, netName, at); err != nil {
		return "", err
	}
	return ref, nil
}

func (s *Schematic) addPower(ref, netName string, at Position) error {
	if s.hasReference(ref) {
		return &sexp.DuplicateReferenceError{Reference: ref}
	}
	id := s.nets.GetOrCreate(netName)
	if err := s.nets.Assign(netlist.Member{Owner: ref, Pin: PowerPin}, id); err != nil {
		return err
	}
	s.PowerSymbols = append(s.PowerSymbols, PowerSymbol{
		Reference: ref,
		Net:       id,
		Position:  sexp.SnapPosition(at),
	})
	return nil
}

// AddWire appends a wire segment. The net must be registered (or NoNet) and
// an endpoint lying on an assigned pin must carry that pin's net.
func (s *Schematic) AddWire(w Wire) error {
	if w.Net != netlist.NoNet && !s.nets.Has(w.Net) {
		return &netlist.UnknownNetError{ID: w.Net}
	}
	w.Start, w.End = sexp.SnapPosition(w.Start), sexp.SnapPosition(w.End)
	if w.Start.Equal(w.End) {
		return &sexp.InvalidGeometryError{Field: "wire", Reason: "zero length"}
	}
	if w.Net != netlist.NoNet {
		for _, end := range []Position{w.Start, w.End} {
			for _, p := range s.pinsAt(end) {
				if p.Net != netlist.NoNet && p.Net != w.Net {
					return &netlist.NetConflictError{Member: p.Member(), MemberNet: p.Net, Net: w.Net}
				}
			}
		}
	}
	s.Wires = append(s.Wires, w)
	return nil
}

// AddLabel places a net label. A label on a symbol pin's connection point
// joins that pin to the label's net instead of being stored separately.
func (s *Schematic) AddLabel(l Label) error {
	if l.Text == "" {
		return fmt.Errorf("label at %s has no text", l.Position)
	}
	l.Position = sexp.SnapPosition(l.Position)
	pins := s.pinsAt(l.Position)
	if len(pins) == 0 {
		s.Labels = append(s.Labels, l)
		return nil
	}
	target, _ := s.nets.Lookup(l.Text)
	for _, p := range pins {
		if p.Net != netlist.NoNet && s.nets.Name(p.Net) != l.Text {
			return &netlist.NetConflictError{Member: p.Member(), MemberNet: p.Net, Net: target}
		}
	}
	for _, p := range pins {
		if p.Power {
			continue
		}
		if _, err := s.ConnectPin(p.Owner, p.Number, l.Text); err != nil {
			return err
		}
	}
	return nil
}

// PruneNets removes nets without pin members and resets any wire still
// referencing them to NoNet. It returns the removed codes.
func (s *Schematic) PruneNets() []NetID {
	removed := s.nets.Prune()
	for i := range s.Wires {
		if slices.Contains(removed, s.Wires[i].Net) {
			s.Wires[i].Net = netlist.NoNet
		}
	}
	return removed
}

// PinAt is a symbol or power pin resolved to sheet coordinates.
type PinAt struct {
	Owner    string
	Number   string
	Position Position
	Net      NetID
	Power    bool
}

// Member returns the registry member of the pin.
func (p PinAt) Member() netlist.Member {
	return netlist.Member{Owner: p.Owner, Pin: p.Number}
}

// AllPins returns every symbol pin followed by every power pin.
func (s *Schematic) AllPins() []PinAt {
	var out []PinAt
	for _, sym := range s.Symbols {
		for _, pin := range sym.Pins {
			out = append(out, PinAt{
				Owner:    sym.Reference,
				Number:   pin.Number,
				Position: sym.PinAnchor(pin),
				Net:      pin.Net,
			})
		}
	}
	for _, ps := range s.PowerSymbols {
		out = append(out, PinAt{
			Owner:    ps.Reference,
			Number:   PowerPin,
			Position: ps.Position,
			Net:      ps.Net,
			Power:    true,
		})
	}
	return out
}

// PinAnchor returns the absolute connection point of pin. Library
// coordinates have Y pointing up, the sheet has Y pointing down.
func (sym *Symbol) PinAnchor(pin Pin) Position {
	local := Position{X: pin.Offset.X, Y: -pin.Offset.Y}
	return sexp.SnapPosition(local.Rotate(sym.Angle).Add(sym.Position))
}

func (s *Schematic) pinsAt(p Position) []PinAt {
	var out []PinAt
	for _, pin := range s.AllPins() {
		if pin.Position.Equal(p) {
			out = append(out, pin)
		}
	}
	return out
}

func (s *Schematic) hasReference(ref string) bool {
	return s.symbolIndex(ref) >= 0 || s.powerIndex(ref) >= 0
}

func (s *Schematic) symbolIndex(ref string) int {
	for i, sym := range s.Symbols {
		if sym.Reference == ref {
			return i
		}
	}
	return -1
}

func (s *Schematic) powerIndex(ref string) int {
	for i, ps := range s.PowerSymbols {
		if ps.Reference == ref {
			return i
		}
	}
	return -1
}

func (s *Schematic) pin(ref, number string) (*Pin, error) {
	sym, err := s.Symbol(ref)
	if err != nil {
		return nil, err
	}
	for i := range sym.Pins {
		if sym.Pins[i].Number == number {
			return &sym.Pins[i], nil
		}
	}
	return nil, &sexp.NotFoundError{Kind: "pin", Reference: ref + "." + number}
}
