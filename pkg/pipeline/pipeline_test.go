package pipeline

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/kicadgen/internal/metrics"
	"github.com/OpenTraceLab/kicadgen/pkg/drc"
	"github.com/OpenTraceLab/kicadgen/pkg/intent"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/pcb"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/schematic"
	"github.com/OpenTraceLab/kicadgen/pkg/layout"
)

// scenarioIntent is a 100x80 two layer board with R1, C1 and LED1 sharing
// VCC on pad 1, placed on a grid.
func scenarioIntent() *intent.Intent {
	return &intent.Intent{
		Name:   "scenario",
		Width:  100,
		Height: 80,
		Layout: "grid",
		Components: []intent.Component{
			{Ref: "R1", Type: "resistor"},
			{Ref: "C1", Type: "capacitor"},
			{Ref: "LED1", Type: "led"},
		},
		Connections: []intent.Connection{
			{Net: "VCC", Pins: []string{"R1.1", "C1.1", "LED1.1"}},
		},
	}
}

// ledIntent is an indicator board left to size itself, laid out by zones,
// with power flags and a ground pour.
func ledIntent() *intent.Intent {
	return &intent.Intent{
		Name:        "led",
		GroundPlane: true,
		Components: []intent.Component{
			{Ref: "J1", Type: "header", Role: "input"},
			{Ref: "R1", Type: "resistor", Value: "1k"},
			{Ref: "D1", Type: "led"},
		},
		Connections: []intent.Connection{
			{Net: "VCC", Class: "power", Pins: []string{"J1.1", "R1.1"}, Power: true},
			{Net: "LED_A", Pins: []string{"R1.2", "D1.1"}},
			{Net: "GND", Pins: []string{"D1.2", "J1.2"}, Power: true},
		},
	}
}

func TestRunScenario(t *testing.T) {
	res, err := Run(context.Background(), scenarioIntent(), nil)
	require.NoError(t, err)

	assert.Len(t, res.Board.Tracks, 2)
	assert.Equal(t, 4, res.Segments)
	assert.Zero(t, res.Report.Count(drc.KindClearance))
	assert.False(t, res.Report.HasErrors())
	assert.Equal(t, layout.Grid, res.Placement.Strategy)
	require.NotNil(t, res.Board.Outline)

	board, err := pcb.ParseString(res.BoardText)
	require.NoError(t, err)
	assert.Len(t, board.Footprints, 3)
	assert.Len(t, board.Tracks, 2)

	sch, err := schematic.ParseString(res.SchematicText)
	require.NoError(t, err)
	assert.Len(t, sch.Symbols, 3)
}

func TestRunDeterministic(t *testing.T) {
	a, err := Run(context.Background(), ledIntent(), nil)
	require.NoError(t, err)
	b, err := Run(context.Background(), ledIntent(), nil)
	require.NoError(t, err)
	assert.Equal(t, a.BoardText, b.BoardText)
	assert.Equal(t, a.SchematicText, b.SchematicText)
}

func TestRunSizesBoardAndPours(t *testing.T) {
	res, err := Run(context.Background(), ledIntent(), nil)
	require.NoError(t, err)

	bounds, ok := res.Board.Bounds()
	require.True(t, ok)
	for _, fp := range res.Board.Footprints {
		assert.True(t, bounds.ContainsBox(fp.GetBoundingBox()), fp.Reference)
	}
	assert.Equal(t, layout.Zonal, res.Placement.Strategy)

	require.Len(t, res.Board.Zones, 2)
	gnd, vcc := res.Board.Zones[0], res.Board.Zones[1]
	assert.Equal(t, pcb.LayerFCu, gnd.Layer)
	assert.Equal(t, "GND", res.Board.Nets().Name(gnd.Net))
	assert.Len(t, gnd.Outline, 4)
	assert.Equal(t, pcb.LayerBCu, vcc.Layer)
	assert.Equal(t, "VCC", res.Board.Nets().Name(vcc.Net))
	assert.Greater(t, vcc.Priority, gnd.Priority)

	j1, err := res.Board.Footprint("J1")
	require.NoError(t, err)
	assert.Equal(t, "input", j1.Role)
}

func TestRunPowerFlags(t *testing.T) {
	res, err := Run(context.Background(), ledIntent(), nil)
	require.NoError(t, err)
	require.Len(t, res.Schematic.PowerSymbols, 2)

	nets := res.Schematic.Nets()
	var gnd, vcc *schematic.PowerSymbol
	for i := range res.Schematic.PowerSymbols {
		ps := &res.Schematic.PowerSymbols[i]
		switch nets.Name(ps.Net) {
		case "GND":
			gnd = ps
		case "VCC":
			vcc = ps
		}
	}
	require.NotNil(t, gnd)
	require.NotNil(t, vcc)

	pin, err := res.Schematic.PinPosition("D1", "2")
	require.NoError(t, err)
	assert.InDelta(t, pin.X, gnd.Position.X, 1e-3)
	assert.InDelta(t, pin.Y+5.08, gnd.Position.Y, 1e-3)

	pin, err = res.Schematic.PinPosition("J1", "1")
	require.NoError(t, err)
	assert.InDelta(t, pin.X+5.08, vcc.Position.X, 1e-3)
	assert.InDelta(t, pin.Y, vcc.Position.Y, 1e-3)
}

func TestRunNetClasses(t *testing.T) {
	res, err := Run(context.Background(), ledIntent(), nil)
	require.NoError(t, err)

	vcc, ok := res.Board.Nets().Lookup("VCC")
	require.True(t, ok)
	assert.Equal(t, "power", res.Board.Nets().Class(vcc))
	for _, tr := range res.Board.Tracks {
		if tr.Net == vcc {
			assert.Equal(t, 0.8, tr.Width)
		}
	}
	assert.Zero(t, res.Report.Count(drc.KindWidth))
}

func TestRunErrors(t *testing.T) {
	t.Run("invalid intent", func(t *testing.T) {
		in := scenarioIntent()
		in.Components = append(in.Components, intent.Component{Ref: "R1", Type: "resistor"})
		_, err := Run(context.Background(), in, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validate stage failed")
	})

	t.Run("board too small", func(t *testing.T) {
		in := scenarioIntent()
		in.Width, in.Height = 10, 10
		_, err := Run(context.Background(), in, nil)
		var le *layout.LayoutError
		require.ErrorAs(t, err, &le)
		assert.Contains(t, err.Error(), "layout stage failed")
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Run(ctx, scenarioIntent(), nil)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.OutlineMargin = 20
		_, err := Run(context.Background(), scenarioIntent(), cfg)
		assert.ErrorContains(t, err, "outline margin")
	})

	t.Run("nil intent", func(t *testing.T) {
		res, err := Run(context.Background(), nil, nil)
		assert.ErrorIs(t, err, ErrNilIntent)
		assert.Nil(t, res)
	})
}

func TestRunLogsAndMetrics(t *testing.T) {
	var buf bytes.Buffer
	m, reg := metrics.New()
	cfg := DefaultConfig()
	cfg.Logger = zerolog.New(&buf)
	cfg.Metrics = m

	_, err := Run(context.Background(), scenarioIntent(), cfg)
	require.NoError(t, err)
	in := scenarioIntent()
	in.Layout = "spiral"
	_, err = Run(context.Background(), in, cfg)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Designs.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Designs.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Placed.WithLabelValues("board", "grid")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Segments.WithLabelValues("board")))
	n, err := testutil.GatherAndCount(reg, "kicadgen_stage_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 9, n)

	assert.Contains(t, buf.String(), `"design":"scenario"`)
	assert.Contains(t, buf.String(), "design generated")
	assert.Contains(t, buf.String(), "generation failed")
}

type recordingSink struct {
	got []string
	err error
}

func (s *recordingSink) Replay(_ context.Context, res *Result) error {
	s.got = append(s.got, res.Design)
	return s.err
}

func TestRunSink(t *testing.T) {
	sink := &recordingSink{}
	cfg := DefaultConfig()
	cfg.Sink = sink
	_, err := Run(context.Background(), scenarioIntent(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"scenario"}, sink.got)

	sink.err = errors.New("editor not running")
	_, err = Run(context.Background(), ledIntent(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"scenario", "led"}, sink.got)
}

func TestRunBatch(t *testing.T) {
	bad := scenarioIntent()
	bad.Name = "broken"
	bad.Components[0].Type = "flux_capacitor"

	results, err := RunBatch(context.Background(), []*intent.Intent{scenarioIntent(), ledIntent(), bad}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `design "broken"`)
	require.Len(t, results, 3)
	require.NotNil(t, results[0])
	require.NotNil(t, results[1])
	assert.Nil(t, results[2])
	assert.Equal(t, "scenario", results[0].Design)
	assert.Equal(t, "led", results[1].Design)

	results, err = RunBatch(context.Background(), []*intent.Intent{nil, scenarioIntent()}, nil)
	assert.ErrorIs(t, err, ErrNilIntent)
	assert.Contains(t, err.Error(), "design 0")
	assert.Nil(t, results[0])
	assert.NotNil(t, results[1])
}
