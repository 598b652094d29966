package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/bayclock/bayclock/internal/aggregate"
	"github.com/bayclock/bayclock/internal/dateutil"
	"github.com/bayclock/bayclock/internal/model"
)

var (
	listToday bool
	listWeek  bool
	listFrom  string
	listTo    string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List time entries",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listToday, "today", false, "Show today's entries (default)")
	listCmd.Flags().BoolVar(&listWeek, "week", false, "Show this week's entries")
	listCmd.Flags().StringVar(&listFrom, "from", "", "First date (YYYY-MM-DD)")
	listCmd.Flags().StringVar(&listTo, "to", "", "Last date (YYYY-MM-DD); defaults to today")
	listCmd.MarkFlagsMutuallyExclusive("today", "week", "from")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	now := time.Now()

	a := mustApp(ctx)
	defer a.Close()

	var from, to time.Time
	switch {
	case listFrom != "":
		from = parseDateFlag("from", listFrom)
		to = now
		if listTo != "" {
			to = parseDateFlag("to", listTo)
		}
	case listWeek:
		from, to = dateutil.WeekRange(now, a.cfg.TimesheetWeekStart())
	default:
		from, to = now, now
	}

	entries := a.fetchRange(ctx, from, to)
	printList(cmd.OutOrStdout(), entries, a.labels(ctx))
	return nil
}

// printList prints entries grouped by day with a total per day.
func printList(w io.Writer, entries []model.TimeEntry, labels map[string]string) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No entries found.")
		return
	}

	for _, day := range aggregate.GroupByDate(entries) {
		fmt.Fprintf(w, "%s  (%s)\n",
			headerStyle.Render(dateutil.FormatDisplayDate(day.Date, time.Local)),
			aggregate.DailyTotal(day.Entries, day.Date))

		for _, e := range day.Entries {
			span := "--:--–--:--"
			if e.HasClockRange() {
				span = clockHM(e.Start) + "–" + clockHM(e.End)
			}
			project, ok := aggregate.ProjectLabel(e, labels)
			if !ok {
				project = "-"
			}
			desc := ""
			if e.Description != "" {
				desc = "  " + e.Description
			}
			fmt.Fprintf(w, "  %s  %s%s (%s)\n", span, project, desc, e.Duration)
		}
	}
}

// clockHM trims a clock string to HH:MM.
func clockHM(v string) string {
	if len(v) > 5 {
		return v[:5]
	}
	return v
}
