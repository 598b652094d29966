package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/bayclock/bayclock/internal/aggregate"
	"github.com/bayclock/bayclock/internal/dateutil"
	"github.com/bayclock/bayclock/internal/model"
	"github.com/bayclock/bayclock/internal/timecalc"
)

var (
	exportFormat    string
	exportFrom      string
	exportTo        string
	exportClipboard bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export time entries to stdout or the clipboard",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, json")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "First date (YYYY-MM-DD); defaults to the start of this week")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "Last date (YYYY-MM-DD); defaults to the end of this week")
	exportCmd.Flags().BoolVar(&exportClipboard, "clipboard", false, "Copy the export to the clipboard instead of printing it")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	now := time.Now()

	if exportFormat != "csv" && exportFormat != "json" {
		exitErr(exitUsage, fmt.Errorf("unknown format %q", exportFormat))
	}

	a := mustApp(ctx)
	defer a.Close()

	from, to := dateutil.WeekRange(now, a.cfg.TimesheetWeekStart())
	if exportFrom != "" {
		from = parseDateFlag("from", exportFrom)
	}
	if exportTo != "" {
		to = parseDateFlag("to", exportTo)
	}

	entries := a.fetchRange(ctx, from, to)
	labels := a.labels(ctx)

	var buf bytes.Buffer
	if err := writeExport(&buf, entries, labels, exportFormat); err != nil {
		exitErr(exitBackend, err)
	}

	if exportClipboard {
		if err := clipboard.WriteAll(buf.String()); err != nil {
			exitErr(exitBackend, fmt.Errorf("copying to clipboard: %w", err))
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Copied %d entries to the clipboard.\n", len(entries))
		return nil
	}
	_, err := io.Copy(cmd.OutOrStdout(), &buf)
	return err
}

func writeExport(w io.Writer, entries []model.TimeEntry, labels map[string]string, format string) error {
	if format == "json" {
		rows := make([]model.TimeEntry, len(entries))
		for i, e := range entries {
			if label, ok := aggregate.ProjectLabel(e, labels); ok {
				e.Project = label
			}
			rows[i] = e
		}
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	fmt.Fprintln(w, "date,project,description,start,end,duration_minutes")
	for _, e := range entries {
		project, _ := aggregate.ProjectLabel(e, labels)
		fmt.Fprintf(w, "%s,%s,%s,%s,%s,%d\n",
			csvEscape(e.Date),
			csvEscape(project),
			csvEscape(e.Description),
			csvEscape(e.Start),
			csvEscape(e.End),
			timecalc.ParseDuration(e.Duration)/60,
		)
	}
	return nil
}

// csvEscape quotes a field that holds a comma, quote or line break, doubling
// any quotes inside it.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
