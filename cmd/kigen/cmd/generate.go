package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/kicadgen/internal/metrics"
	"github.com/OpenTraceLab/kicadgen/pkg/intent"
	"github.com/OpenTraceLab/kicadgen/pkg/pipeline"
)

var generateCmd = &cobra.Command{
	Use:   "generate <intent_file>...",
	Short: "Generate a board and schematic from design intents",
	Long: `Reads one or more design intent files (.yaml, .yml or .toml), then places,
routes and checks each design.

Without --out-dir the board (or with --output schematic, the schematic) of a
single design is printed to stdout. With --out-dir every design is written as
<name>.kicad_pcb and <name>.kicad_sch and several intents run concurrently.

With --watch the intents are regenerated whenever one of them is saved, until
interrupted.

With --metrics the pipeline counters and stage timings are printed to stderr
in the Prometheus text format after every run.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringP("output", "o", "board", "document printed to stdout: board or schematic")
	generateCmd.Flags().StringP("out-dir", "d", "", "write both documents of every design into this directory")
	generateCmd.Flags().BoolP("watch", "w", false, "regenerate when an intent file changes")
	generateCmd.Flags().Bool("metrics", false, "print Prometheus metrics to stderr after generating")
	bindFlags(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	collector, reg := metrics.New()
	cfg.Metrics = collector

	outDir := settings.GetString("out-dir")
	output := settings.GetString("output")
	if output != "board" && output != "schematic" {
		return fmt.Errorf("unknown output %q, want board or schematic", output)
	}
	if outDir == "" && len(args) > 1 {
		return fmt.Errorf("%d intents given, use --out-dir to write more than one design", len(args))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	gen := &generator{cfg: cfg, out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr(), outDir: outDir, output: output}
	if settings.GetBool("metrics") {
		gen.metrics = reg
	}
	err = gen.run(ctx, args)
	if !settings.GetBool("watch") {
		return err
	}
	if err != nil {
		cfg.Logger.Error().Err(err).Msg("generation failed")
	}
	return gen.watch(ctx, args)
}

type generator struct {
	cfg    *pipeline.Config
	out    io.Writer
	errOut io.Writer
	outDir string
	output string

	// metrics is dumped after every run when set.
	metrics prometheus.Gatherer
}

// run generates every intent once.
func (g *generator) run(ctx context.Context, paths []string) error {
	ins := make([]*intent.Intent, 0, len(paths))
	for _, p := range paths {
		in, err := intent.LoadFile(p)
		if err != nil {
			return err
		}
		ins = append(ins, in)
	}

	results, err := pipeline.RunBatch(ctx, ins, g.cfg)
	for _, res := range results {
		if res == nil {
			continue
		}
		if werr := g.write(res); werr != nil {
			return werr
		}
		fmt.Fprint(g.errOut, renderReport(res.Design+" board", res.Report))
		fmt.Fprint(g.errOut, renderReport(res.Design+" schematic", res.SchematicReport))
	}
	if g.metrics != nil {
		if merr := metrics.WriteText(g.errOut, g.metrics); merr != nil {
			return merr
		}
	}
	return err
}

func (g *generator) write(res *pipeline.Result) error {
	if g.outDir == "" {
		text := res.BoardText
		if g.output == "schematic" {
			text = res.SchematicText
		}
		_, err := io.WriteString(g.out, text)
		return err
	}

	if err := os.MkdirAll(g.outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	base := filepath.Join(g.outDir, fileName(res.Design))
	if err := os.WriteFile(base+".kicad_pcb", []byte(res.BoardText), 0o644); err != nil {
		return fmt.Errorf("failed to write board: %w", err)
	}
	if err := os.WriteFile(base+".kicad_sch", []byte(res.SchematicText), 0o644); err != nil {
		return fmt.Errorf("failed to write schematic: %w", err)
	}
	g.cfg.Logger.Info().Str("design", res.Design).Str("dir", g.outDir).Msg("wrote design")
	return nil
}

// fileName turns a design name into a file name stem.
func fileName(design string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, design)
}

// watch regenerates on every save of an intent file. Editors that save
// atomically replace the file, so the parent directories are watched.
func (g *generator) watch(ctx context.Context, paths []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	watched := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		watched[abs] = true
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("watch directory: %w", err)
		}
	}
	g.cfg.Logger.Info().Strs("intents", paths).Msg("watching for changes")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, _ := filepath.Abs(event.Name)
			if !watched[abs] || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			g.cfg.Logger.Debug().Str("event", event.Op.String()).Str("file", event.Name).Msg("intent changed")
			if err := g.run(ctx, paths); err != nil {
				g.cfg.Logger.Error().Err(err).Msg("regeneration failed")
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			g.cfg.Logger.Error().Err(err).Msg("file watcher error")

		case <-ctx.Done():
			return nil
		}
	}
}
