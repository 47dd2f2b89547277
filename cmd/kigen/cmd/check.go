package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/kicadgen/pkg/drc"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/pcb"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/schematic"
)

var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Run the design rule check on a board or schematic",
	Long: `Parses a .kicad_pcb or .kicad_sch file and reports clearance, isolation,
track width, outline and connectivity findings. The limits come from the
rules file given with --config, or the defaults.

The command fails when the report contains errors; warnings alone pass.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	filename := args[0]
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var report *drc.Report
	switch filepath.Ext(filename) {
	case ".kicad_pcb":
		board, err := pcb.ParseFile(filename)
		if err != nil {
			return fmt.Errorf("error parsing board: %w", err)
		}
		report = drc.Check(board, cfg.Rules)
	case ".kicad_sch":
		sch, err := schematic.ParseFile(filename)
		if err != nil {
			return fmt.Errorf("error parsing schematic: %w", err)
		}
		report = drc.CheckSchematic(sch, cfg.Rules)
	default:
		return fmt.Errorf("unknown file type %q, want .kicad_pcb or .kicad_sch", filepath.Ext(filename))
	}

	fmt.Fprint(cmd.OutOrStdout(), renderReport(filename, report))
	if n := len(report.Errors()); n > 0 {
		return fmt.Errorf("%d design rule error(s)", n)
	}
	return nil
}
