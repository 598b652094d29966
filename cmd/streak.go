package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bayclock/bayclock/internal/aggregate"
	"github.com/bayclock/bayclock/internal/dateutil"
	"github.com/bayclock/bayclock/internal/model"
)

var streakCmd = &cobra.Command{
	Use:   "streak",
	Short: "Show current and longest runs of tracked days",
	Args:  cobra.NoArgs,
	RunE:  runStreak,
}

func runStreak(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	now := time.Now()

	a := mustApp(ctx)
	defer a.Close()

	user := a.currentUser(ctx)
	entries, err := a.backend.FetchEntries(ctx, model.EntryFilter{UserID: user.ID, To: dateutil.TodayKey(now)})
	if err != nil {
		exitErr(exitBackend, err)
	}

	st := aggregate.Streaks(aggregate.ActiveDates(entries), dateutil.TodayKey(now))
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Current streak: %s\n", plural(st.Current, "day"))
	fmt.Fprintf(out, "Longest streak: %s\n", plural(st.Max, "day"))
	return nil
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
