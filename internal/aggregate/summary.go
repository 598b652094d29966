package aggregate

import (
	"github.com/bayclock/bayclock/internal/model"
	"github.com/bayclock/bayclock/internal/timecalc"
)

// Summary bundles the figures shown by reports.
type Summary struct {
	TotalSeconds int64          `json:"total_seconds"`
	Total        string         `json:"total"`
	Projects     []ProjectTotal `json:"projects"`
	Top          []ProjectTotal `json:"top"`
	Days         int            `json:"days"`
	Streak       Streak         `json:"streak"`
	Earliest     string         `json:"earliest,omitempty"`
	Latest       string         `json:"latest,omitempty"`
}

// Summarize computes a Summary of entries. today is the caller's local date
// key and topN limits Top (0 keeps every project).
func Summarize(entries []model.TimeEntry, labels map[string]string, today string, topN int) Summary {
	total := SumDurations(entries)
	projects := PerProjectTotals(entries, labels)
	dates := ActiveDates(entries)
	earliest, latest := TimeRange(entries)
	return Summary{
		TotalSeconds: total,
		Total:        timecalc.FormatDuration(total, false),
		Projects:     projects,
		Top:          TopN(projects, topN),
		Days:         len(dates),
		Streak:       Streaks(dates, today),
		Earliest:     earliest,
		Latest:       latest,
	}
}

// Labels indexes project names by ID.
func Labels(projects []model.Project) map[string]string {
	labels := make(map[string]string, len(projects))
	for _, p := range projects {
		labels[p.ID] = p.Name
	}
	return labels
}
