package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/kicadgen/pkg/kicad/netlist"
	"github.com/OpenTraceLab/kicadgen/pkg/kicad/pcb"
)

var netsCmd = &cobra.Command{
	Use:   "nets <board_file> [net_name]",
	Short: "Show board net information",
	Long: `Display information about nets in a board file.

Without net_name: Lists all nets with pad/track/via counts
With net_name: Shows the members, tracks and vias of that net`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runNets,
}

func init() {
	rootCmd.AddCommand(netsCmd)
}

func runNets(cmd *cobra.Command, args []string) error {
	board, err := pcb.ParseFile(args[0])
	if err != nil {
		return fmt.Errorf("error parsing board: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(args) == 2 {
		return showNetDetails(out, board, args[1])
	}
	listAllNets(out, board)
	return nil
}

func listAllNets(w io.Writer, board *pcb.Board) {
	nets := board.Nets()
	all := nets.Nets()
	fmt.Fprintf(w, "Board: %d nets\n\n", len(all))
	fmt.Fprintf(w, "%-30s %-14s %6s %6s %6s\n", "Net Name", "Class", "Pads", "Tracks", "Vias")
	fmt.Fprintln(w, strings.Repeat("─", 66))

	for _, n := range all {
		tracks, vias := copperOn(board, n.ID)
		fmt.Fprintf(w, "%-30s %-14s %6d %6d %6d\n",
			n.Name, n.Class,
			len(nets.Members(n.ID)),
			len(tracks),
			len(vias))
	}
}

func showNetDetails(w io.Writer, board *pcb.Board, netName string) error {
	nets := board.Nets()
	id, ok := nets.Lookup(netName)
	if !ok {
		return fmt.Errorf("net '%s' not found", netName)
	}
	fmt.Fprintf(w, "Net: %s (number %d)\n\n", netName, id)

	members := nets.Members(id)
	fmt.Fprintf(w, "Pads (%d):\n", len(members))
	for _, m := range members {
		pos, err := board.PadPosition(m.Owner, m.Pin)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  Pad %-8s at (%.2f, %.2f)\n", m.String(), pos.X, pos.Y)
	}

	tracks, vias := copperOn(board, id)
	fmt.Fprintf(w, "\nTracks (%d):\n", len(tracks))
	for i, track := range tracks {
		fmt.Fprintf(w, "  Track %d: %.2f mm wide on %s from (%.2f, %.2f) to (%.2f, %.2f)\n",
			i+1, track.Width, track.Layer,
			track.Start.X, track.Start.Y,
			track.End.X, track.End.Y)
	}

	fmt.Fprintf(w, "\nVias (%d):\n", len(vias))
	for i, via := range vias {
		fmt.Fprintf(w, "  Via %d: %.2f mm diameter, %.2f mm drill at (%.2f, %.2f)\n",
			i+1, via.Size, via.Drill,
			via.Position.X, via.Position.Y)
	}
	return nil
}

// copperOn returns the tracks and vias of a net.
func copperOn(board *pcb.Board, id netlist.NetID) ([]pcb.Track, []pcb.Via) {
	var tracks []pcb.Track
	for _, t := range board.Tracks {
		if t.Net == id {
			tracks = append(tracks, t)
		}
	}
	var vias []pcb.Via
	for _, v := range board.Vias {
		if v.Net == id {
			vias = append(vias, v)
		}
	}
	return tracks, vias
}
