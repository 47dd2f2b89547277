package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/pcb"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/schematic"
)

var fmtCmd = &cobra.Command{
	Use:   "fmt <file>",
	Short: "Rewrite a board or schematic in canonical form",
	Long: `Parses a .kicad_pcb or .kicad_sch file and prints it back in the canonical
field order and number format used by generate. With --write the file is
replaced in place.`,
	Args: cobra.ExactArgs(1),
	RunE: runFmt,
}

func init() {
	rootCmd.AddCommand(fmtCmd)
	fmtCmd.Flags().Bool("write", false, "write the result back to the file")
	bindFlags(fmtCmd)
}

func runFmt(cmd *cobra.Command, args []string) error {
	filename := args[0]

	var text string
	switch filepath.Ext(filename) {
	case ".kicad_pcb":
		board, err := pcb.ParseFile(filename)
		if err != nil {
			return fmt.Errorf("error parsing board: %w", err)
		}
		text = pcb.Serialize(board)
	case ".kicad_sch":
		sch, err := schematic.ParseFile(filename)
		if err != nil {
			return fmt.Errorf("error parsing schematic: %w", err)
		}
		text = schematic.Serialize(sch)
	default:
		return fmt.Errorf("unknown file type %q, want .kicad_pcb or .kicad_sch", filepath.Ext(filename))
	}

	if settings.GetBool("write") {
		return os.WriteFile(filename, []byte(text), 0o644)
	}
	_, err := io.WriteString(cmd.OutOrStdout(), text)
	return err
}
