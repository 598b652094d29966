// Package aggregate computes summaries over time entries. Every function is
// pure: inputs are never modified and malformed fields count as zero or are
// skipped instead of failing the computation.
package aggregate

import (
	"sort"
	"time"

	"github.com/bayclock/bayclock/internal/dateutil"
	"github.com/bayclock/bayclock/internal/model"
	"github.com/bayclock/bayclock/internal/timecalc"
)

// UnknownProject labels entries whose project reference resolves to nothing.
const UnknownProject = "Unknown Project"

// DayBucket holds the entries of one date.
type DayBucket struct {
	Date    string            `json:"date"`
	Entries []model.TimeEntry `json:"entries"`
}

// ProjectTotal is the tracked time of one project.
type ProjectTotal struct {
	Project string `json:"project"`
	Seconds int64  `json:"seconds"`
}

// Streak holds the current and longest runs of consecutive active days.
type Streak struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

// SumDurations returns the total seconds of all entries.
func SumDurations(entries []model.TimeEntry) int64 {
	var total int64
	for _, e := range entries {
		total += timecalc.ParseDuration(e.Duration)
	}
	return total
}

// GroupByDate buckets entries by date. Buckets appear in the order their date
// is first seen and keep entry order within each bucket.
func GroupByDate(entries []model.TimeEntry) []DayBucket {
	index := map[string]int{}
	var buckets []DayBucket
	for _, e := range entries {
		i, seen := index[e.Date]
		if !seen {
			i = len(buckets)
			index[e.Date] = i
			buckets = append(buckets, DayBucket{Date: e.Date})
		}
		buckets[i].Entries = append(buckets[i].Entries, e)
	}
	return buckets
}

// ProjectLabel resolves the display label of an entry's project. labels maps
// project IDs to names. ok is false for entries without any project.
func ProjectLabel(e model.TimeEntry, labels map[string]string) (label string, ok bool) {
	if e.Project != "" {
		return e.Project, true
	}
	if e.ProjectID == "" {
		return "", false
	}
	if name, found := labels[e.ProjectID]; found && name != "" {
		return name, true
	}
	return UnknownProject, true
}

// PerProjectTotals sums seconds by project label, in first-encountered order.
// Entries without a project are left out.
func PerProjectTotals(entries []model.TimeEntry, labels map[string]string) []ProjectTotal {
	index := map[string]int{}
	var totals []ProjectTotal
	for _, e := range entries {
		label, ok := ProjectLabel(e, labels)
		if !ok {
			continue
		}
		i, seen := index[label]
		if !seen {
			i = len(totals)
			index[label] = i
			totals = append(totals, ProjectTotal{Project: label})
		}
		totals[i].Seconds += timecalc.ParseDuration(e.Duration)
	}
	return totals
}

// DailyTotal returns the HH:MM:SS total of entries on dateKey.
func DailyTotal(entries []model.TimeEntry, dateKey string) string {
	var total int64
	for _, e := range entries {
		if e.Date == dateKey {
			total += timecalc.ParseDuration(e.Duration)
		}
	}
	return timecalc.FormatDurationHHMMSS(total)
}

// TopN returns the n largest totals, descending. Ties keep their input order.
// n <= 0 returns every total.
func TopN(totals []ProjectTotal, n int) []ProjectTotal {
	sorted := make([]ProjectTotal, len(totals))
	copy(sorted, totals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Seconds > sorted[j].Seconds
	})
	if n > 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// ActiveDates returns the distinct valid date keys of entries in ascending order.
func ActiveDates(entries []model.TimeEntry) []string {
	seen := map[string]bool{}
	var dates []string
	for _, e := range entries {
		if seen[e.Date] {
			continue
		}
		if _, err := dateutil.ParseKey(e.Date, time.UTC); err != nil {
			continue
		}
		seen[e.Date] = true
		dates = append(dates, e.Date)
	}
	sort.Strings(dates)
	return dates
}

// Streaks measures runs of calendar-consecutive days in dateKeys, which must
// be distinct and sorted ascending. Keys after today are ignored. Current is
// the length of the trailing run when it ends on today, otherwise zero.
func Streaks(dateKeys []string, today string) Streak {
	var st Streak
	run := 0
	prev := ""
	for _, key := range dateKeys {
		if key > today {
			break
		}
		if prev != "" {
			if gap, err := dateutil.DaysBetween(prev, key); err == nil && gap == 1 {
				run++
			} else {
				run = 1
			}
		} else {
			run = 1
		}
		if run > st.Max {
			st.Max = run
		}
		prev = key
	}
	if prev != "" && prev == today {
		st.Current = run
	}
	return st
}

// TimeRange returns the earliest start and latest end among entries that
// have both. HH:MM strings of one day sort correctly as text.
func TimeRange(entries []model.TimeEntry) (earliest, latest string) {
	for _, e := range entries {
		if !e.HasClockRange() {
			continue
		}
		if earliest == "" || e.Start < earliest {
			earliest = e.Start
		}
		if latest == "" || e.End > latest {
			latest = e.End
		}
	}
	return earliest, latest
}

// WeekTotals returns the seconds tracked on each of the seven days starting at
// weekStart. Entries outside that week are ignored.
func WeekTotals(entries []model.TimeEntry, weekStart time.Time) [7]int64 {
	var totals [7]int64
	first := dateutil.Key(weekStart)
	for _, e := range entries {
		offset, err := dateutil.DaysBetween(first, e.Date)
		if err != nil || offset < 0 || offset > 6 {
			continue
		}
		totals[offset] += timecalc.ParseDuration(e.Duration)
	}
	return totals
}
