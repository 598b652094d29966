package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bayclock/bayclock/internal/dateutil"
	"github.com/bayclock/bayclock/internal/model"
)

var (
	syncFrom   string
	syncTo     string
	syncDryRun bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror Supabase entries into the local database",
	Long: `Download entries from the configured Supabase project and upsert them into
the local SQLite database by ID. Rows that already match are skipped.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncFrom, "from", "", "First date (YYYY-MM-DD); defaults to 30 days ago")
	syncCmd.Flags().StringVar(&syncTo, "to", "", "Last date (YYYY-MM-DD); defaults to today")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Report what would change without writing")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	now := time.Now()

	from := now.AddDate(0, 0, -30)
	to := now
	if syncFrom != "" {
		from = parseDateFlag("from", syncFrom)
	}
	if syncTo != "" {
		to = parseDateFlag("to", syncTo)
	}
	if from.After(to) {
		exitErr(exitUsage, fmt.Errorf("--from %s is after --to %s", dateutil.Key(from), dateutil.Key(to)))
	}

	cfg, log := loadConfig()
	defer log.Sync()

	remote, err := openSupabase(ctx, cfg, log)
	if err != nil {
		exitErr(exitBackend, err)
	}
	local, err := openLocal(cfg, log)
	if err != nil {
		exitErr(exitBackend, err)
	}
	defer local.Close()

	user, err := remote.CurrentUser(ctx)
	if err != nil {
		exitErr(exitBackend, err)
	}
	projects, err := remote.Projects(ctx)
	if err != nil {
		exitErr(exitBackend, err)
	}
	entries, err := remote.FetchEntries(ctx, model.EntryFilter{
		UserID: user.ID,
		From:   dateutil.Key(from),
		To:     dateutil.Key(to),
	})
	if err != nil {
		exitErr(exitBackend, err)
	}

	log.Info("Syncing entries",
		zap.String("from", dateutil.Key(from)),
		zap.String("to", dateutil.Key(to)),
		zap.Int("remote", len(entries)),
		zap.Bool("dry_run", syncDryRun),
	)

	res, err := local.Mirror(ctx, projects, entries, syncDryRun)
	if err != nil {
		exitErr(exitBackend, err)
	}

	prefix := ""
	if syncDryRun {
		prefix = "[dry-run] "
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%sImported: %d, Updated: %d, Skipped: %d, Errors: %d\n",
		prefix, res.Imported, res.Updated, res.Skipped, res.Errors)
	return nil
}
