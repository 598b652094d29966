package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bayclock/bayclock/internal/timecalc"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	// heatLevels go from an idle day to eight hours or more.
	heatLevels = []lipgloss.Style{
		lipgloss.NewStyle().Foreground(lipgloss.Color("237")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("22")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("28")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("40")),
	}
)

const heatBarWidth = 16

// heatLevel maps tracked seconds to an index into heatLevels.
func heatLevel(seconds int64) int {
	switch hours := seconds / 3600; {
	case seconds <= 0:
		return 0
	case hours < 2:
		return 1
	case hours < 4:
		return 2
	case hours < 8:
		return 3
	default:
		return 4
	}
}

// printHeatmap draws one bar per day of the week starting at weekStart,
// scaled to the busiest day.
func printHeatmap(w io.Writer, weekStart time.Time, totals [7]int64) {
	var peak int64
	for _, secs := range totals {
		peak = max(peak, secs)
	}
	for i, secs := range totals {
		day := weekStart.AddDate(0, 0, i)
		width := 0
		if peak > 0 {
			width = int(secs * heatBarWidth / peak)
		}
		if secs > 0 && width == 0 {
			width = 1
		}
		bar := heatLevels[heatLevel(secs)].Render(strings.Repeat("█", width) + strings.Repeat("·", heatBarWidth-width))
		fmt.Fprintf(w, "%s  %s  %s\n", day.Format("Mon"), bar, mutedStyle.Render(timecalc.FormatDuration(secs, false)))
	}
}
