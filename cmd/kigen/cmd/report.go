package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/OpenTraceLab/kicadgen/pkg/drc"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	kindStyle  = lipgloss.NewStyle().Width(16).Foreground(lipgloss.Color("#6B7280"))
)

// renderReport formats a design rule report, errors first.
func renderReport(title string, r *drc.Report) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(title) + "\n")
	if r == nil || len(r.Violations) == 0 {
		sb.WriteString("  " + okStyle.Render("✓ no findings") + "\n")
		return sb.String()
	}

	for _, v := range r.Errors() {
		sb.WriteString("  " + errorStyle.Render("✗") + " " + kindStyle.Render(v.Kind()) + v.Error() + "\n")
	}
	for _, v := range r.Warnings() {
		sb.WriteString("  " + warnStyle.Render("!") + " " + kindStyle.Render(v.Kind()) + v.Error() + "\n")
	}

	summary := fmt.Sprintf("%d error(s), %d warning(s)", len(r.Errors()), len(r.Warnings()))
	if r.HasErrors() {
		summary = errorStyle.Render(summary)
	} else {
		summary = warnStyle.Render(summary)
	}
	sb.WriteString("  " + summary + "\n")
	return sb.String()
}
