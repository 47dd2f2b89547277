// Package metrics provides Prometheus metrics for the generation pipeline.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Collector holds the pipeline metrics.
type Collector struct {
	Designs       *prometheus.CounterVec
	Placed        *prometheus.CounterVec
	Segments      *prometheus.CounterVec
	Violations    *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
}

// NewWithRegistry creates a collector with every metric registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		Designs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kicadgen",
				Name:      "designs_total",
				Help:      "Total number of designs generated, by outcome",
			},
			[]string{"result"},
		),
		Placed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kicadgen",
				Name:      "placed_entities_total",
				Help:      "Total number of footprints and symbols placed",
			},
			[]string{"document", "strategy"},
		),
		Segments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kicadgen",
				Name:      "routed_segments_total",
				Help:      "Total number of tracks and wires created by routing",
			},
			[]string{"document"},
		),
		Violations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kicadgen",
				Name:      "violations_total",
				Help:      "Total number of design rule findings",
			},
			[]string{"kind", "severity"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "kicadgen",
				Name:      "stage_duration_seconds",
				Help:      "Pipeline stage duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"stage"},
		),
	}
}

// New creates a collector on a private registry, for callers that only
// need the counters in process.
func New() (*Collector, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg), reg
}

// WriteText writes everything g gathers in the Prometheus text exposition
// format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// The recording helpers below accept a nil collector so callers without
// metrics need no guards.

// RecordDesign counts one finished design.
func (c *Collector) RecordDesign(err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.Designs.WithLabelValues(result).Inc()
}

// AddPlaced counts entities placed in a document.
func (c *Collector) AddPlaced(document, strategy string, n int) {
	if c == nil {
		return
	}
	c.Placed.WithLabelValues(document, strategy).Add(float64(n))
}

// AddSegments counts segments created by routing a document.
func (c *Collector) AddSegments(document string, n int) {
	if c == nil {
		return
	}
	c.Segments.WithLabelValues(document).Add(float64(n))
}

// AddViolation counts one design rule finding.
func (c *Collector) AddViolation(kind, severity string) {
	if c == nil {
		return
	}
	c.Violations.WithLabelValues(kind, severity).Inc()
}

// ObserveStage records how long a pipeline stage took.
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	if c == nil {
		return
	}
	c.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}
