package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bayclock/bayclock/internal/dateutil"
	"github.com/bayclock/bayclock/internal/model"
	"github.com/bayclock/bayclock/internal/timecalc"
)

var (
	addDate        string
	addStart       string
	addEnd         string
	addDuration    string
	addProject     string
	addDescription string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a time entry manually",
	Long: `Add a finished time entry. Give either --duration or both --start and --end.
An end time earlier than the start time is read as the next day.`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addDate, "date", "", "Date (YYYY-MM-DD); defaults to today")
	addCmd.Flags().StringVar(&addStart, "start", "", "Start time (HH:MM)")
	addCmd.Flags().StringVar(&addEnd, "end", "", "End time (HH:MM)")
	addCmd.Flags().StringVar(&addDuration, "duration", "", `Duration such as "1h 30m"`)
	addCmd.Flags().StringVarP(&addProject, "project", "p", "", "Project name")
	addCmd.Flags().StringVarP(&addDescription, "description", "d", "", "Description")
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	entry, err := buildManualEntry(addDate, addStart, addEnd, addDuration, time.Now())
	if err != nil {
		exitErr(exitUsage, err)
	}
	entry.Description = addDescription

	a := mustApp(ctx)
	defer a.Close()

	project, err := a.resolveProject(ctx, addProject)
	if err != nil {
		exitErr(exitBackend, err)
	}
	entry.ProjectID = project.ID
	entry.UserID = a.currentUser(ctx).ID

	created, err := a.backend.CreateEntry(ctx, entry)
	if err != nil {
		exitErr(exitBackend, err)
	}

	label := project.Name
	if label == "" {
		label = "no project"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s on %s (%s)\n",
		created.Duration, dateutil.FormatDisplayDate(created.Date, time.Local), label)
	return nil
}

// buildManualEntry validates the add flags. An explicit duration wins over the
// clock range; without one the range must be complete.
func buildManualEntry(date, start, end, duration string, now time.Time) (model.TimeEntry, error) {
	if date == "" {
		date = dateutil.TodayKey(now)
	}
	if _, err := dateutil.ParseKey(date, time.Local); err != nil {
		return model.TimeEntry{}, fmt.Errorf("invalid --date value %q: %w", date, err)
	}
	for name, v := range map[string]string{"start": start, "end": end} {
		if v == "" {
			continue
		}
		h, m, s, ok := timecalc.ParseClock(v)
		if !ok || h > 23 || m > 59 || s > 59 {
			return model.TimeEntry{}, fmt.Errorf("invalid --%s value %q, want HH:MM", name, v)
		}
	}

	e := model.TimeEntry{Date: date, Start: start, End: end}
	switch {
	case duration != "":
		secs := timecalc.ParseDuration(duration)
		if secs == 0 {
			return model.TimeEntry{}, fmt.Errorf("invalid --duration value %q", duration)
		}
		e.Duration = timecalc.FormatDuration(secs, true)
	case start != "" && end != "":
		secs, _ := timecalc.Elapsed(start, end)
		if secs == 0 {
			return model.TimeEntry{}, errors.New("--start and --end are equal")
		}
		e.Duration = timecalc.FormatDuration(secs, true)
	default:
		return model.TimeEntry{}, errors.New("give --duration or both --start and --end")
	}
	return e, nil
}
