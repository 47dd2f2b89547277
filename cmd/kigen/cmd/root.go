package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/OpenTraceLab/kicadgen/pkg/pipeline"
)

// settings merges flags with KIGEN_* environment variables. Flags win.
var settings = viper.New()

var rootCmd = &cobra.Command{
	Use:   "kigen",
	Short: "kigen - KiCad board and schematic generator",
	Long: `kigen turns a design intent file into a placed and routed KiCad board
and a matching schematic, and checks existing files against design rules.

Every flag can also be set through the environment, for example
KIGEN_CONFIG=rules.yaml or KIGEN_VERBOSE=true.

Examples:
  kigen generate psu.yaml                    # Print the board to stdout
  kigen generate psu.yaml --out-dir build    # Write board and schematic
  kigen generate psu.yaml --watch -d build   # Regenerate on every save
  kigen check build/psu.kicad_pcb            # Run the design rule check
  kigen fmt board.kicad_pcb                  # Print the canonical form`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

func init() {
	settings.SetEnvPrefix("KIGEN")
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringP("config", "c", "", "YAML rules file (layout, widths, design rules)")
	bindFlags(rootCmd)
}

// bindFlags makes the command's flags visible to settings.
func bindFlags(cmd *cobra.Command) {
	if err := settings.BindPFlags(cmd.PersistentFlags()); err != nil {
		panic(err)
	}
	if err := settings.BindPFlags(cmd.Flags()); err != nil {
		panic(err)
	}
}

// newLogger writes human readable logs to stderr, debug level when verbose.
func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if settings.GetBool("verbose") {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// loadConfig returns the pipeline configuration from the rules file, or
// the defaults when none is given.
func loadConfig() (*pipeline.Config, error) {
	cfg := pipeline.DefaultConfig()
	if path := settings.GetString("config"); path != "" {
		loaded, err := pipeline.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.Logger = newLogger()
	return cfg, nil
}
