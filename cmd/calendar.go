package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/bayclock/bayclock/internal/aggregate"
	"github.com/bayclock/bayclock/internal/calendar"
	"github.com/bayclock/bayclock/internal/config"
	"github.com/bayclock/bayclock/internal/dateutil"
	"github.com/bayclock/bayclock/internal/model"
	"github.com/bayclock/bayclock/internal/server"
	"github.com/bayclock/bayclock/internal/timecalc"
)

var (
	calendarWeek   string
	calendarFormat string
)

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Lay out a week of entries on the hour grid",
	Args:  cobra.NoArgs,
	RunE:  runCalendar,
}

func init() {
	calendarCmd.Flags().StringVar(&calendarWeek, "week", "", "Any date in the week (YYYY-MM-DD); defaults to today")
	calendarCmd.Flags().StringVar(&calendarFormat, "format", "text", "Output format: text, json")
}

func gridFromConfig(cfg *config.Config) calendar.Grid {
	return calendar.Grid{
		HourHeight:     cfg.Calendar.HourHeight,
		HeaderOffset:   cfg.Calendar.HeaderOffset,
		MinBlockHeight: cfg.Calendar.MinBlockHeight,
	}
}

func runCalendar(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	day := time.Now()
	if calendarWeek != "" {
		day = parseDateFlag("week", calendarWeek)
	}
	if calendarFormat != "text" && calendarFormat != "json" {
		exitErr(exitUsage, fmt.Errorf("unknown format %q", calendarFormat))
	}

	a := mustApp(ctx)
	defer a.Close()

	start, end := dateutil.WeekRange(day, a.cfg.CalendarWeekStart())
	entries := a.fetchRange(ctx, start, end)
	week := layoutWeek(gridFromConfig(a.cfg), entries, start, end)

	if calendarFormat == "json" {
		data, err := json.MarshalIndent(week, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	printCalendar(cmd.OutOrStdout(), week, entries, a.labels(ctx))
	return nil
}

func layoutWeek(grid calendar.Grid, entries []model.TimeEntry, start, end time.Time) server.WeekResponse {
	week := server.WeekResponse{
		WeekStart: dateutil.Key(start),
		WeekEnd:   dateutil.Key(end),
		Grid:      grid,
		Blocks:    grid.LayoutWeek(entries, start),
	}
	for i, secs := range aggregate.WeekTotals(entries, start) {
		week.Totals[i] = timecalc.FormatDuration(secs, false)
	}
	return week
}

// printCalendar lists the blocks of each day in grid order.
func printCalendar(w io.Writer, week server.WeekResponse, entries []model.TimeEntry, labels map[string]string) {
	byID := make(map[string]model.TimeEntry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}

	blocks := make([]calendar.Block, len(week.Blocks))
	copy(blocks, week.Blocks)
	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].Column != blocks[j].Column {
			return blocks[i].Column < blocks[j].Column
		}
		return blocks[i].Top < blocks[j].Top
	})

	first, err := dateutil.ParseKey(week.WeekStart, time.Local)
	if err != nil {
		return
	}
	next := 0
	for col := range 7 {
		key := dateutil.Key(first.AddDate(0, 0, col))
		fmt.Fprintf(w, "%s  %s\n", headerStyle.Render(dateutil.FormatDisplayDate(key, time.Local)), mutedStyle.Render(week.Totals[col]))
		for ; next < len(blocks) && blocks[next].Column == col; next++ {
			b := blocks[next]
			project, ok := aggregate.ProjectLabel(byID[b.EntryID], labels)
			if !ok {
				project = "-"
			}
			fmt.Fprintf(w, "  %02d:%02d–%02d:%02d  %-20s %s\n",
				b.Span.StartHour, b.Span.StartMinute, b.Span.EndHour, b.Span.EndMinute,
				project, mutedStyle.Render(fmt.Sprintf("y=%.0f h=%.0f", b.Top, b.Height)))
		}
	}
}
