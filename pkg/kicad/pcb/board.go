package pcb

import (
	"fmt"
	"slices"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/netlist"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
)

// File format written by this package.
const (
	FormatVersion    = 20240108
	GeneratorName    = "kicadgen"
	GeneratorVersion = "8.0"
)

// Board represents a complete KiCad PCB. It owns its entities and the net
// registry they reference.
type Board struct {
	Version          int     // File format version
	Generator        string  // Generator info (e.g., "pcbnew")
	GeneratorVersion string  // Generator version
	General          General // General board properties
	Title            sexp.TitleBlock

	Width      float64 // Declared board width in mm, 0 if undeclared
	Height     float64 // Declared board height in mm, 0 if undeclared
	LayerCount int     // Copper layer count

	Layers     []Layer      // Layer definitions
	Setup      Setup        // Board setup and configuration
	Footprints []*Footprint // Component footprints, in insertion order
	Tracks     []Track      // Track segments
	Vias       []Via        // Vias
	Zones      []Zone       // Copper zones
	Outline    *Outline     // Board edge, nil if not set

	nets *netlist.Registry
}

// General contains general board properties
type General struct {
	Thickness float64 // Board thickness in mm
}

// Setup contains board setup and default values
type Setup struct {
	PadToMaskClearance float64
}

// Footprint represents a component footprint
type Footprint struct {
	Reference   string        // Reference designator (e.g., "R1")
	Name        string        // Footprint name (e.g., "R_0805")
	Value       string        // Component value
	Description string        // Free text description
	Layer       string        // Layer (F.Cu or B.Cu typically)
	Position    PositionAngle // Position and rotation
	Pads        []Pad         // Pads
	Model       string        // Optional 3D model path
	Role        string        // Functional role used by zonal layout
	Isolation   sexp.Isolation
}

// Pad represents a footprint pad
type Pad struct {
	Number   string        // Pad number/name
	Type     string        // Pad type (thru_hole, smd, connect, np_thru_hole)
	Shape    string        // Pad shape (circle, rect, oval, roundrect)
	Position PositionAngle // Offset and rotation relative to the footprint
	Size     Size          // Pad size
	Drill    float64       // Drill diameter (0 for SMD)
	Layers   LayerSet      // Layers the pad appears on
	Net      NetID         // Connected net, NoNet until assigned
	PinType  string        // Electrical type (passive, input, power_in, ...)
}

// Track represents a copper track segment
type Track struct {
	Start Position // Start point
	End   Position // End point
	Width float64  // Track width in mm
	Layer string   // Layer name
	Net   NetID    // Connected net, NoNet means unrouted
}

// Via represents a via
type Via struct {
	Position Position // Via position
	Size     float64  // Via diameter
	Drill    float64  // Drill diameter
	Layers   LayerSet // Layer pair
	Net      NetID    // Connected net
}

// Zone represents a copper pour
type Zone struct {
	Name         string
	Net          NetID
	Layer        string
	Outline      []Position // Zone outline polygon
	MinThickness float64    // Minimum thickness
	Clearance    float64    // Pad clearance
	Priority     int
	Isolation    sexp.Isolation
}

// Outline is the closed board edge polygon. The first and last points are
// equal.
type Outline struct {
	Points []Position
}

// Bounds returns the bounding box of the outline.
func (o *Outline) Bounds() BoundingBox {
	return sexp.PolygonBounds(o.Points)
}

// NewBoard creates an empty two-layer board.
func NewBoard(title string) *Board {
	return &Board{
		Version:          FormatVersion,
		Generator:        GeneratorName,
		GeneratorVersion: GeneratorVersion,
		General:          General{Thickness: 1.6},
		Title:            sexp.TitleBlock{Title: title},
		LayerCount:       2,
		Layers:           StackUp(2),
		nets:             netlist.NewRegistry(),
	}
}

// Nets returns the board's net registry.
func (b *Board) Nets() *netlist.Registry {
	return b.nets
}

// SetBoardProperties declares the board size and copper layer count.
func (b *Board) SetBoardProperties(width, height float64, layers int) error {
	if width <= 0 {
		return &sexp.InvalidGeometryError{Field: "board width", Reason: fmt.Sprintf("%v is not positive", width)}
	}
	if height <= 0 {
		return &sexp.InvalidGeometryError{Field: "board height", Reason: fmt.Sprintf("%v is not positive", height)}
	}
	if !slices.Contains(ValidLayerCounts, layers) {
		return &sexp.InvalidGeometryError{Field: "layer count", Reason: fmt.Sprintf("%d is not one of %v", layers, ValidLayerCounts)}
	}
	b.Width, b.Height = width, height
	b.LayerCount = layers
	b.Layers = StackUp(layers)
	return nil
}

// Bounds returns the declared board area and whether one is declared.
func (b *Board) Bounds() (BoundingBox, bool) {
	if b.Width <= 0 || b.Height <= 0 {
		return BoundingBox{}, false
	}
	return sexp.Rect(Position{}, Size{Width: b.Width, Height: b.Height}), true
}

// CopperLayers returns the copper layer names of the board stack.
func (b *Board) CopperLayers() []string {
	var names []string
	for _, l := range b.Layers {
		if l.IsCopper() {
			names = append(names, l.Name)
		}
	}
	return names
}

// AddFootprint inserts fp. Pad nets already set on fp must be registered.
// A footprint whose reference already exists is rejected and nothing is
// added.
func (b *Board) AddFootprint(fp *Footprint) error {
	if fp.Reference == "" {
		return fmt.Errorf("footprint %q has no reference designator", fp.Name)
	}
	if b.footprintIndex(fp.Reference) >= 0 {
		return &sexp.DuplicateReferenceError{Reference: fp.Reference}
	}
	for _, pad := range fp.Pads {
		if pad.Net != netlist.NoNet && !b.nets.Has(pad.Net) {
			return &netlist.UnknownNetError{ID: pad.Net}
		}
	}
	if fp.Layer == "" {
		fp.Layer = LayerFCu
	}
	fp.Position.Position = sexp.SnapPosition(fp.Position.Position)
	for _, pad := range fp.Pads {
		if pad.Net != netlist.NoNet {
			// Net presence checked above
			_ = b.nets.Assign(netlist.Member{Owner: fp.Reference, Pin: pad.Number}, pad.Net)
		}
	}
	b.Footprints = append(b.Footprints, fp)
	return nil
}

// Footprint returns the footprint with the given reference.
func (b *Board) Footprint(ref string) (*Footprint, error) {
	i := b.footprintIndex(ref)
	if i < 0 {
		return nil, &sexp.NotFoundError{Kind: "footprint", Reference: ref}
	}
	return b.Footprints[i], nil
}

// Remove detaches the footprint, releases its net memberships and prunes
// nets left without members.
func (b *Board) Remove(ref string) error {
	i := b.footprintIndex(ref)
	if i < 0 {
		return &sexp.NotFoundError{Kind: "footprint", Reference: ref}
	}
	b.Footprints = slices.Delete(b.Footprints, i, i+1)
	b.nets.Release(ref)
	b.PruneNets()
	return nil
}

// AssignPad sets the net of a pad.
func (b *Board) AssignPad(ref, number string, id NetID) error {
	pad, err := b.pad(ref, number)
	if err != nil {
		return err
	}
	if err := b.nets.Assign(netlist.Member{Owner: ref, Pin: number}, id); err != nil {
		return err
	}
	pad.Net = id
	return nil
}

// ConnectPad assigns a pad to the named net, creating the net if needed.
func (b *Board) ConnectPad(ref, number, netName string) (NetID, error) {
	if _, err := b.pad(ref, number); err != nil {
		return netlist.NoNet, err
	}
	id := b.nets.GetOrCreate(netName)
	return id, b.AssignPad(ref, number, id)
}

// RequireRouting flags a pad as one that must end up on a net.
func (b *Board) RequireRouting(ref, number string) error {
	if _, err := b.pad(ref, number); err != nil {
		return err
	}
	b.nets.MarkMustRoute(netlist.Member{Owner: ref, Pin: number})
	return nil
}

// PadPosition returns the absolute position of a pad.
func (b *Board) PadPosition(ref, number string) (Position, error) {
	fp, err := b.Footprint(ref)
	if err != nil {
		return Position{}, err
	}
	pad, err := b.pad(ref, number)
	if err != nil {
		return Position{}, err
	}
	return fp.TransformPosition(pad.Position), nil
}

// AddTrack appends a track segment. The net must be registered (or NoNet)
// and an endpoint lying on an assigned pad must carry that pad's net.
func (b *Board) AddTrack(t Track) error {
	if t.Width <= 0 {
		return &sexp.InvalidGeometryError{Field: "track width", Reason: fmt.Sprintf("%v is not positive", t.Width)}
	}
	if t.Net != netlist.NoNet && !b.nets.Has(t.Net) {
		return &netlist.UnknownNetError{ID: t.Net}
	}
	t.Start, t.End = sexp.SnapPosition(t.Start), sexp.SnapPosition(t.End)
	if t.Net != netlist.NoNet {
		for _, end := range []Position{t.Start, t.End} {
			if err := b.checkEndpoint(end, t.Layer, t.Net); err != nil {
				return err
			}
		}
	}
	b.Tracks = append(b.Tracks, t)
	return nil
}

// AddVia appends a via. Vias always belong to a registered net.
func (b *Board) AddVia(v Via) error {
	if !b.nets.Has(v.Net) {
		return &netlist.UnknownNetError{ID: v.Net}
	}
	if v.Size <= 0 || v.Drill <= 0 || v.Drill >= v.Size {
		return &sexp.InvalidGeometryError{Field: "via", Reason: fmt.Sprintf("size %v / drill %v", v.Size, v.Drill)}
	}
	if len(v.Layers) == 0 {
		v.Layers = LayerSet{LayerFCu, LayerBCu}
	}
	v.Position = sexp.SnapPosition(v.Position)
	b.Vias = append(b.Vias, v)
	return nil
}

// AddZone appends a copper pour.
func (b *Board) AddZone(z Zone) error {
	if z.Net != netlist.NoNet && !b.nets.Has(z.Net) {
		return &netlist.UnknownNetError{ID: z.Net}
	}
	if len(z.Outline) < 3 {
		return &sexp.InvalidGeometryError{Field: "zone outline", Reason: "fewer than 3 points"}
	}
	if !IsCopperLayer(z.Layer) {
		return &sexp.InvalidGeometryError{Field: "zone layer", Reason: fmt.Sprintf("%q is not a copper layer", z.Layer)}
	}
	z.Outline = snapAll(z.Outline)
	b.Zones = append(b.Zones, z)
	return nil
}

// SetOutline sets the board edge. The polygon must be closed: at least
// three distinct points and the first point repeated at the end.
func (b *Board) SetOutline(points []Position) error {
	if len(points) < 4 {
		return &sexp.InvalidGeometryError{Field: "board outline", Reason: "fewer than 3 distinct points"}
	}
	if !points[0].Equal(points[len(points)-1]) {
		return &sexp.InvalidGeometryError{Field: "board outline", Reason: "polygon is not closed"}
	}
	b.Outline = &Outline{Points: snapAll(points)}
	return nil
}

// RectOutline returns the closed polygon of the declared board area inset
// by margin on every side.
func (b *Board) RectOutline(margin float64) ([]Position, error) {
	bounds, ok := b.Bounds()
	if !ok {
		return nil, &sexp.InvalidGeometryError{Field: "board outline", Reason: "board size not declared"}
	}
	inner := bounds.Inflate(-margin)
	if inner.Width() <= 0 || inner.Height() <= 0 {
		return nil, &sexp.InvalidGeometryError{Field: "board outline", Reason: fmt.Sprintf("margin %v leaves no area", margin)}
	}
	c := inner.Corners()
	return []Position{c[0], c[1], c[2], c[3], c[0]}, nil
}

// PruneNets removes nets without pad members and resets any track, via or
// zone still referencing them to NoNet. It returns the removed codes.
func (b *Board) PruneNets() []NetID {
	removed := b.nets.Prune()
	if len(removed) == 0 {
		return nil
	}
	gone := func(id NetID) bool { return slices.Contains(removed, id) }
	for i := range b.Tracks {
		if gone(b.Tracks[i].Net) {
			b.Tracks[i].Net = netlist.NoNet
		}
	}
	for i := range b.Vias {
		if gone(b.Vias[i].Net) {
			b.Vias[i].Net = netlist.NoNet
		}
	}
	for i := range b.Zones {
		if gone(b.Zones[i].Net) {
			b.Zones[i].Net = netlist.NoNet
		}
	}
	return removed
}

// PadAt is a pad resolved to board coordinates.
type PadAt struct {
	Footprint *Footprint
	Pad       *Pad
	Position  Position
}

// Member returns the registry member of the pad.
func (p PadAt) Member() netlist.Member {
	return netlist.Member{Owner: p.Footprint.Reference, Pin: p.Pad.Number}
}

// AllPads returns every pad with its absolute position, in footprint then
// pad order.
func (b *Board) AllPads() []PadAt {
	var out []PadAt
	for _, fp := range b.Footprints {
		for i := range fp.Pads {
			out = append(out, PadAt{
				Footprint: fp,
				Pad:       &fp.Pads[i],
				Position:  fp.TransformPosition(fp.Pads[i].Position),
			})
		}
	}
	return out
}

func (b *Board) checkEndpoint(end Position, layer string, net NetID) error {
	for _, p := range b.AllPads() {
		if !p.Position.Equal(end) || !p.Pad.Layers.Contains(layer) {
			continue
		}
		if p.Pad.Net != netlist.NoNet && p.Pad.Net != net {
			return &netlist.NetConflictError{Member: p.Member(), MemberNet: p.Pad.Net, Net: net}
		}
	}
	return nil
}

// snapAll returns a copy of points rounded to file precision.
func snapAll(points []Position) []Position {
	out := make([]Position, len(points))
	for i, p := range points {
		out[i] = sexp.SnapPosition(p)
	}
	return out
}

func (b *Board) footprintIndex(ref string) int {
	for i, fp := range b.Footprints {
		if fp.Reference == ref {
			return i
		}
	}
	return -1
}

func (b *Board) pad(ref, number string) (*Pad, error) {
	fp, err := b.Footprint(ref)
	if err != nil {
		return nil, err
	}
	for i := range fp.Pads {
		if fp.Pads[i].Number == number {
			return &fp.Pads[i], nil
		}
	}
	return nil, &sexp.NotFoundError{Kind: "pad", Reference: ref + "." + number}
}
