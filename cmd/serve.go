package cmd

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bayclock/bayclock/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve entries, summaries and the calendar as a JSON API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The server logs every request, so it defaults to info.
	if logLevel == "" {
		logLevel = "info"
	}
	a := mustApp(ctx)
	defer a.Close()

	addr := a.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	h := server.NewHandler(a.backend, server.Options{
		Grid:              gridFromConfig(a.cfg),
		CalendarWeekStart: a.cfg.CalendarWeekStart(),
		ReportWeekStart:   a.cfg.TimesheetWeekStart(),
		TopProjects:       a.cfg.Timesheet.TopProjects,
	}, a.log.Logger)

	if err := server.Run(ctx, addr, server.New(h, a.log.Logger), 10*time.Second, a.log.Logger); err != nil {
		exitErr(exitBackend, err)
	}
	return nil
}
