package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bayclock/bayclock/internal/timecalc"
	"github.com/bayclock/bayclock/internal/timer"
)

var (
	stopDescription string
	stopDiscard     bool
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running timer and save its entry",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

func init() {
	stopCmd.Flags().StringVarP(&stopDescription, "description", "d", "", "Append to the entry description")
	stopCmd.Flags().BoolVar(&stopDiscard, "discard", false, "Clear the timer without saving an entry")
}

func runStop(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	now := time.Now()

	a := mustApp(ctx)
	defer a.Close()

	cur := a.timer.Current()
	if !cur.Running {
		exitErr(exitUsage, timer.ErrIdle)
	}
	if stopDiscard {
		if err := a.timer.Reset(); err != nil {
			exitErr(exitBackend, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Discarded timer for project %q after %s\n",
			cur.Project, timecalc.FormatDuration(cur.Elapsed(now), true))
		return nil
	}
	cur.Description = appendDescription(cur.Description, stopDescription)

	// Entries are saved before the timer is cleared so a failed save loses nothing.
	if err := a.saveTimer(ctx, cur, now); err != nil {
		exitErr(exitBackend, err)
	}
	if _, err := a.timer.Stop(); err != nil {
		exitErr(exitBackend, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Stopped timer for project %q. Elapsed: %s\n",
		cur.Project, timecalc.FormatDuration(cur.Elapsed(now), true))
	return nil
}

func appendDescription(current, extra string) string {
	switch {
	case extra == "":
		return current
	case current == "":
		return extra
	default:
		return current + "\n" + extra
	}
}
