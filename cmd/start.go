package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var startDescription string

var startCmd = &cobra.Command{
	Use:   "start <project>",
	Short: "Start the timer for a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runStart,
}

func init() {
	startCmd.Flags().StringVarP(&startDescription, "description", "d", "", "What you are working on")
}

func runStart(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	now := time.Now()

	a := mustApp(ctx)
	defer a.Close()

	// An already running timer is stopped and saved first.
	if cur := a.timer.Current(); cur.Running {
		fmt.Fprintf(os.Stderr, "Warning: auto-stopping active timer for project %q\n", cur.Project)
		if err := a.saveTimer(ctx, cur, now); err != nil {
			exitErr(exitBackend, err)
		}
		if _, err := a.timer.Stop(); err != nil {
			exitErr(exitBackend, err)
		}
	}

	project, err := a.resolveProject(ctx, args[0])
	if err != nil {
		exitErr(exitBackend, err)
	}
	name := project.Name
	if name == "" {
		name = args[0]
	}

	if _, err := a.timer.Start(name, project.ID, startDescription, now); err != nil {
		exitErr(exitBackend, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Started timer for project %q at %s\n", name, now.Format("15:04:05"))
	return nil
}
