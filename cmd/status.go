package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bayclock/bayclock/internal/aggregate"
	"github.com/bayclock/bayclock/internal/dateutil"
	"github.com/bayclock/bayclock/internal/timecalc"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current timer status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	now := time.Now()
	out := cmd.OutOrStdout()

	a := mustApp(ctx)
	defer a.Close()

	if cur := a.timer.Current(); cur.Running {
		fmt.Fprintln(out, "Running:")
		fmt.Fprintf(out, "  Project: %s\n", cur.Project)
		if cur.Description != "" {
			fmt.Fprintf(out, "  Description: %s\n", cur.Description)
		}
		fmt.Fprintf(out, "  Since: %s\n", cur.StartedAt.Format("15:04"))
		fmt.Fprintf(out, "  Elapsed: %s\n", timecalc.FormatDurationHHMMSS(cur.Elapsed(now)))
		return nil
	}

	entries := a.fetchRange(ctx, now, now)
	fmt.Fprintln(out, "No active timer.")
	fmt.Fprintf(out, "Today: %s logged.\n", aggregate.DailyTotal(entries, dateutil.TodayKey(now)))
	return nil
}
