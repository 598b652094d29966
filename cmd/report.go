package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/bayclock/bayclock/internal/aggregate"
	"github.com/bayclock/bayclock/internal/dateutil"
	"github.com/bayclock/bayclock/internal/timecalc"
)

var (
	reportTop    int
	reportFormat string
	reportLast   bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the weekly time report",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().IntVar(&reportTop, "top", -1, "Number of top projects to show (default from config)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "md", "Output format: md, csv, json")
	reportCmd.Flags().BoolVar(&reportLast, "last", false, "Report on the previous week")
}

// weekReport is everything a report renders.
type weekReport struct {
	Week    string            `json:"week"`
	From    string            `json:"from"`
	To      string            `json:"to"`
	Summary aggregate.Summary `json:"summary"`
	Days    [7]int64          `json:"day_seconds"`

	start time.Time
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	now := time.Now()

	switch reportFormat {
	case "md", "csv", "json":
	default:
		exitErr(exitUsage, fmt.Errorf("unknown format %q", reportFormat))
	}

	a := mustApp(ctx)
	defer a.Close()

	day := now
	if reportLast {
		day = now.AddDate(0, 0, -7)
	}
	from, to := dateutil.WeekRange(day, a.cfg.TimesheetWeekStart())
	top := reportTop
	if top < 0 {
		top = a.cfg.Timesheet.TopProjects
	}

	entries := a.fetchRange(ctx, from, to)
	r := weekReport{
		Week:    dateutil.ISOWeekLabel(from),
		From:    dateutil.Key(from),
		To:      dateutil.Key(to),
		Summary: aggregate.Summarize(entries, a.labels(ctx), dateutil.TodayKey(now), top),
		Days:    aggregate.WeekTotals(entries, from),
		start:   from,
	}
	return printReport(cmd.OutOrStdout(), r, reportFormat)
}

func printReport(w io.Writer, r weekReport, format string) error {
	switch format {
	case "csv":
		fmt.Fprintln(w, "project,duration_minutes")
		for _, p := range r.Summary.Projects {
			fmt.Fprintf(w, "%s,%d\n", csvEscape(p.Project), p.Seconds/60)
		}
	case "json":
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		fmt.Fprintln(w, string(data))
	default: // md
		fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Week %s", r.Week)),
			mutedStyle.Render(fmt.Sprintf("(%s – %s)", dateutil.FormatDisplayDate(r.From, time.Local), dateutil.FormatDisplayDate(r.To, time.Local))))
		fmt.Fprintln(w, "--------------------------------")
		for _, p := range r.Summary.Top {
			fmt.Fprintf(w, "%-20s%s\n", p.Project, timecalc.FormatDuration(p.Seconds, false))
		}
		if hidden := len(r.Summary.Projects) - len(r.Summary.Top); hidden > 0 {
			fmt.Fprintf(w, "%-20s%s\n", fmt.Sprintf("(+%d more)", hidden), "")
		}
		fmt.Fprintln(w, "--------------------------------")
		fmt.Fprintf(w, "%-20s%s\n", "Total", r.Summary.Total)
		fmt.Fprintf(w, "%-20s%d\n", "Active days", r.Summary.Days)
		fmt.Fprintln(w)
		printHeatmap(w, r.start, r.Days)
	}
	return nil
}
