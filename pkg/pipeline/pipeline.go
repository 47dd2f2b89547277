// Package pipeline turns a design intent into a placed, routed and checked
// board and schematic.
//
// A run builds both documents from the part library, lays them out with the
// intent's strategy, adds power flags, routes every net, draws the board
// outline and optional copper planes, checks the design rules and serializes
// the result. Rule findings never fail a run; they are returned in the
// reports.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/OpenTraceLab/kicadgen/pkg/drc"
	"github.com/OpenTraceLab/kicadgen/pkg/intent"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/library"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/pcb"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/schematic"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/sexp"
	"github.com/OpenTraceLab/kicadgen/pkg/layout"
	"github.com/OpenTraceLab/kicadgen/pkg/routing"
)

// Result is a generated design.
type Result struct {
	Design        string
	Board         *pcb.Board
	Schematic     *schematic.Schematic
	BoardText     string
	SchematicText string

	Placement          *layout.PlacementResult // Board placement
	SchematicPlacement *layout.PlacementResult

	Report          *drc.Report // Board findings
	SchematicReport *drc.Report

	Segments int // Tracks and wires added by routing
}

// ErrNilIntent is returned when a run is given no intent.
var ErrNilIntent = errors.New("nil design intent")

// Sink receives finished designs, for example a live editor session. A
// failing sink is logged and does not fail the run.
type Sink interface {
	Replay(ctx context.Context, res *Result) error
}

// Run generates one design. A nil cfg uses DefaultConfig.
func Run(ctx context.Context, in *intent.Intent, cfg *Config) (*Result, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return run(ctx, in, cfg)
}

// run expects a validated cfg and never modifies it.
func run(ctx context.Context, in *intent.Intent, cfg *Config) (*Result, error) {
	if in == nil {
		return nil, ErrNilIntent
	}
	r := &runner{
		ctx: ctx,
		cfg: cfg,
		log: cfg.Logger.With().Str("design", in.Name).Logger(),
		res: &Result{Design: in.Name},
	}
	start := time.Now()
	err := r.run(in)
	cfg.Metrics.RecordDesign(err)
	if err != nil {
		r.log.Error().Err(err).Msg("generation failed")
		return nil, err
	}
	r.log.Info().
		Int("segments", r.res.Segments).
		Int("violations", len(r.res.Report.Violations)).
		Dur("elapsed", time.Since(start)).
		Msg("design generated")

	if cfg.Sink != nil {
		if err := cfg.Sink.Replay(ctx, r.res); err != nil {
			r.log.Warn().Err(err).Msg("sink replay failed")
		}
	}
	return r.res, nil
}

type runner struct {
	ctx context.Context
	cfg *Config
	log zerolog.Logger
	res *Result

	board *pcb.Board
	sch   *schematic.Schematic
}

func (r *runner) run(in *intent.Intent) error {
	stages := []struct {
		name string
		fn   func(*intent.Intent) error
	}{
		{"validate", func(in *intent.Intent) error { return in.Validate() }},
		{"build", r.build},
		{"connect", r.connect},
		{"layout", r.layout},
		{"power", r.power},
		{"route", r.route},
		{"outline", r.outline},
		{"check", r.check},
		{"serialize", r.serialize},
	}
	for _, s := range stages {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		err := s.fn(in)
		r.cfg.Metrics.ObserveStage(s.name, time.Since(start))
		if err != nil {
			return fmt.Errorf("%s stage failed: %w", s.name, err)
		}
		r.log.Debug().Str("stage", s.name).Dur("elapsed", time.Since(start)).Msg("stage done")
	}
	return nil
}

// build creates both documents with every component.
func (r *runner) build(in *intent.Intent) error {
	r.board = pcb.NewBoard(in.Name)
	if in.Width > 0 {
		if err := r.board.SetBoardProperties(in.Width, in.Height, in.Layers); err != nil {
			return err
		}
	}
	r.sch = schematic.NewSchematic(in.Name)
	if r.cfg.PageWidth > 0 {
		if err := r.sch.SetPageProperties(r.cfg.PageWidth, r.cfg.PageHeight); err != nil {
			return err
		}
	}
	r.res.Board, r.res.Schematic = r.board, r.sch

	for _, c := range in.Components {
		part, err := library.Lookup(c.Type)
		if err != nil {
			return fmt.Errorf("%s: %w", c.Ref, err)
		}
		iso, err := sexp.ParseIsolation(c.Isolation)
		if err != nil {
			return fmt.Errorf("%s: %w", c.Ref, err)
		}
		fp, err := part.NewFootprint(c.Ref, c.Value)
		if err != nil {
			return fmt.Errorf("%s: %w", c.Ref, err)
		}
		sym, err := part.NewSymbol(c.Ref, c.Value)
		if err != nil {
			return fmt.Errorf("%s: %w", c.Ref, err)
		}
		if c.Role != "" {
			fp.Role, sym.Role = c.Role, c.Role
		}
		fp.Isolation, sym.Isolation = iso, iso
		if err := r.board.AddFootprint(fp); err != nil {
			return err
		}
		if err := r.sch.AddSymbol(sym); err != nil {
			return err
		}
	}
	return nil
}

// connect registers every net in both documents and joins its pins.
func (r *runner) connect(in *intent.Intent) error {
	for _, conn := range in.Connections {
		members, err := conn.Members()
		if err != nil {
			return err
		}
		boardNet := r.board.Nets().GetOrCreate(conn.Net)
		schNet := r.sch.Nets().GetOrCreate(conn.Net)
		if conn.Class != "" {
			if err := r.board.Nets().SetClass(boardNet, conn.Class); err != nil {
				return err
			}
			if err := r.sch.Nets().SetClass(schNet, conn.Class); err != nil {
				return err
			}
		}
		for _, m := range members {
			if _, err := r.board.ConnectPad(m.Owner, m.Pin, conn.Net); err != nil {
				return fmt.Errorf("net %s: %w", conn.Net, err)
			}
			if _, err := r.sch.ConnectPin(m.Owner, m.Pin, conn.Net); err != nil {
				return fmt.Errorf("net %s: %w", conn.Net, err)
			}
			if err := r.board.RequireRouting(m.Owner, m.Pin); err != nil {
				return err
			}
			if err := r.sch.RequireRouting(m.Owner, m.Pin); err != nil {
				return err
			}
		}
	}
	return nil
}

// layout places both documents. A board without a declared size is sized
// to fit its placement.
func (r *runner) layout(in *intent.Intent) error {
	strategy, err := in.Strategy()
	if err != nil {
		return err
	}
	board, err := layout.Place(layout.ForBoard(r.board), strategy, r.cfg.Layout)
	if err != nil {
		return fmt.Errorf("board: %w", err)
	}
	sch, err := layout.Place(layout.ForSchematic(r.sch), strategy, r.cfg.Layout)
	if err != nil {
		return fmt.Errorf("schematic: %w", err)
	}
	r.res.Placement, r.res.SchematicPlacement = board, sch
	r.cfg.Metrics.AddPlaced("board", strategy.String(), len(board.Placements))
	r.cfg.Metrics.AddPlaced("schematic", strategy.String(), len(sch.Placements))

	if !board.Declared {
		w, h := math.Ceil(board.Bounds.Max.X), math.Ceil(board.Bounds.Max.Y)
		if err := r.board.SetBoardProperties(w, h, in.Layers); err != nil {
			return err
		}
		r.log.Debug().Float64("width", w).Float64("height", h).Msg("board sized to fit")
	}
	return nil
}

// power draws a flag for every connection that asks for one, below the
// first pin for ground nets and beside it for supplies.
func (r *runner) power(in *intent.Intent) error {
	for _, conn := range in.Connections {
		if !conn.Power {
			continue
		}
		members, err := conn.Members()
		if err != nil {
			return err
		}
		if len(members) == 0 {
			r.log.Warn().Str("net", conn.Net).Msg("power net has no pins, flag skipped")
			continue
		}
		at, err := r.sch.PinPosition(members[0].Owner, members[0].Pin)
		if err != nil {
			return err
		}
		offset := sexp.Position{X: r.cfg.PowerOffset}
		if schematic.IsGround(conn.Net) {
			offset = sexp.Position{Y: r.cfg.PowerOffset}
		}
		if _, err := r.sch.AddPowerSymbol(conn.Net, sexp.SnapPosition(at.Add(offset))); err != nil {
			return fmt.Errorf("net %s: %w", conn.Net, err)
		}
	}
	return nil
}

func (r *runner) route(*intent.Intent) error {
	tracks, err := routing.Route(r.board, r.cfg.Widths)
	if err != nil {
		return fmt.Errorf("board: %w", err)
	}
	wires, err := routing.RouteSchematic(r.sch)
	if err != nil {
		return fmt.Errorf("schematic: %w", err)
	}
	r.res.Segments = tracks + wires
	r.cfg.Metrics.AddSegments("board", tracks)
	r.cfg.Metrics.AddSegments("schematic", wires)
	r.log.Debug().Int("tracks", tracks).Int("wires", wires).Msg("routed")
	return nil
}

// outline draws the board edge and, when asked, pours ground and power
// planes inside it and stitches the ground with a grid of vias.
func (r *runner) outline(in *intent.Intent) error {
	edge, err := r.board.RectOutline(r.cfg.OutlineMargin)
	if err != nil {
		return err
	}
	if err := r.board.SetOutline(edge); err != nil {
		return err
	}
	if !in.GroundPlane {
		return nil
	}

	nets := r.board.Nets()
	gnd, ok := groundNet(nets)
	if !ok {
		r.log.Warn().Msg("ground plane requested but the design has no ground net")
		return nil
	}

	area := sexp.PolygonBounds(edge)
	copper := r.cfg.Copper
	for _, z := range copperPlan(r.board.CopperLayers(), gnd, powerNets(nets), area) {
		z.Name = nets.Name(z.Net)
		z.MinThickness = copper.MinThickness
		z.Clearance = r.cfg.Rules.Clearance
		if z.Net != gnd {
			z.Clearance = math.Max(z.Clearance, copper.PowerClearance)
		}
		if err := r.board.AddZone(z); err != nil {
			return err
		}
	}
	if copper.NoStitching {
		return nil
	}
	vias, err := stitch(r.board, gnd, area, copper.StitchPitch, r.cfg.Rules.Clearance, r.cfg.Widths)
	if err != nil {
		return err
	}
	r.log.Debug().Int("zones", len(r.board.Zones)).Int("vias", vias).Msg("poured copper")
	return nil
}

// check runs the design rules on both documents, then drops nets left
// without members.
func (r *runner) check(*intent.Intent) error {
	r.res.Report = drc.Check(r.board, r.cfg.Rules)
	r.res.SchematicReport = drc.CheckSchematic(r.sch, r.cfg.Rules)
	for _, rep := range []*drc.Report{r.res.Report, r.res.SchematicReport} {
		for _, v := range rep.Violations {
			r.cfg.Metrics.AddViolation(v.Kind(), string(v.Severity()))
		}
	}
	if n := len(r.res.Report.Errors()); n > 0 {
		r.log.Warn().Int("errors", n).Strs("kinds", r.res.Report.Kinds()).Msg("board has design rule errors")
	}

	if pruned := r.board.PruneNets(); len(pruned) > 0 {
		r.log.Debug().Int("nets", len(pruned)).Msg("pruned empty board nets")
	}
	r.sch.PruneNets()
	return nil
}

func (r *runner) serialize(*intent.Intent) error {
	r.res.BoardText = pcb.Serialize(r.board)
	r.res.SchematicText = schematic.Serialize(r.sch)
	return nil
}
