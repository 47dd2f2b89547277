package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/OpenTraceLab/kicadgen/internal/metrics"
	"github.com/OpenTraceLab/kicadgen/pkg/drc"
	"github.com/OpenTraceLab/kicadgen/pkg/layout"
	"github.com/OpenTraceLab/kicadgen/pkg/routing"
)

// Config controls a pipeline run. The rule sections can be loaded from a
// YAML rules file; the logger, metrics and sink are set by the caller.
type Config struct {
	Layout layout.Options     `yaml:"layout"`
	Widths routing.WidthRules `yaml:"widths"`
	Rules  drc.Rules          `yaml:"rules"`
	Copper CopperOptions      `yaml:"copper"`

	OutlineMargin float64 `yaml:"outline_margin"` // Board edge inset from the declared size
	PageWidth     float64 `yaml:"page_width"`     // Schematic page, 0 for a growing A4 sheet
	PageHeight    float64 `yaml:"page_height"`
	PowerOffset   float64 `yaml:"power_offset"` // Distance of power flags from their pin

	Logger  zerolog.Logger     `yaml:"-"`
	Metrics *metrics.Collector `yaml:"-"` // Optional
	Sink    Sink               `yaml:"-"` // Optional
}

// DefaultConfig returns a Config with the default rules, no metrics and a
// silent logger.
func DefaultConfig() *Config {
	return &Config{
		Layout:        layout.DefaultOptions(),
		Widths:        routing.DefaultWidthRules(),
		Rules:         drc.DefaultRules(),
		Copper:        DefaultCopperOptions(),
		OutlineMargin: 1,
		PowerOffset:   5.08,
		Logger:        zerolog.Nop(),
	}
}

// Validate fills unset values with defaults and checks the sections
// against each other.
func (c *Config) Validate() error {
	if c.PowerOffset == 0 {
		c.PowerOffset = 5.08
	}

	var errs []error
	if err := c.Layout.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("layout: %w", err))
	}
	if err := c.Widths.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("widths: %w", err))
	}
	if err := c.Rules.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("rules: %w", err))
	}
	if err := c.Copper.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("copper: %w", err))
	}
	if c.OutlineMargin < 0 {
		errs = append(errs, fmt.Errorf("outline margin %v is negative", c.OutlineMargin))
	}
	if c.OutlineMargin > c.Layout.Margin {
		errs = append(errs, fmt.Errorf("outline margin %v exceeds layout margin %v", c.OutlineMargin, c.Layout.Margin))
	}
	if c.PageWidth < 0 || c.PageHeight < 0 || (c.PageWidth == 0) != (c.PageHeight == 0) {
		errs = append(errs, fmt.Errorf("page size %vx%v must be both positive or both unset", c.PageWidth, c.PageHeight))
	}
	if c.PowerOffset < 0 {
		errs = append(errs, fmt.Errorf("power offset %v is negative", c.PowerOffset))
	}
	if c.Widths.Default < c.Rules.MinWidth {
		errs = append(errs, fmt.Errorf("default track width %v is below the minimum width %v", c.Widths.Default, c.Rules.MinWidth))
	}
	return errors.Join(errs...)
}

// LoadConfig reads a YAML rules file over the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML rules over the defaults. Unknown keys are
// rejected.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
