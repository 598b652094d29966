package aggregate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bayclock/bayclock/internal/aggregate"
	"github.com/bayclock/bayclock/internal/model"
)

func entry(id, date, start, end, duration, project string) model.TimeEntry {
	return model.TimeEntry{ID: id, Date: date, Start: start, End: end, Duration: duration, Project: project}
}

func TestSumDurations(t *testing.T) {
	a := []model.TimeEntry{
		entry("1", "2024-06-01", "", "", "1h 30m", "A"),
		entry("2", "2024-06-01", "", "", "garbage", "A"),
	}
	b := []model.TimeEntry{
		entry("3", "2024-06-02", "", "", "45s", ""),
		entry("4", "2024-06-02", "", "", "", "B"),
	}
	assert.Equal(t, int64(5400), aggregate.SumDurations(a))
	assert.Equal(t, int64(45), aggregate.SumDurations(b))
	assert.Equal(t, aggregate.SumDurations(a)+aggregate.SumDurations(b), aggregate.SumDurations(append(a, b...)))
	assert.Equal(t, int64(0), aggregate.SumDurations(nil))
}

func TestGroupByDate(t *testing.T) {
	entries := []model.TimeEntry{
		entry("1", "2024-06-02", "", "", "1h", "A"),
		entry("2", "2024-06-01", "", "", "1h", "A"),
		entry("3", "2024-06-02", "", "", "1h", "B"),
		entry("4", "2024-06-01", "", "", "1h", "C"),
	}
	buckets := aggregate.GroupByDate(entries)
	require.Len(t, buckets, 2)
	assert.Equal(t, "2024-06-02", buckets[0].Date)
	assert.Equal(t, []string{"1", "3"}, ids(buckets[0].Entries))
	assert.Equal(t, "2024-06-01", buckets[1].Date)
	assert.Equal(t, []string{"2", "4"}, ids(buckets[1].Entries))

	assert.Empty(t, aggregate.GroupByDate(nil))
}

func ids(entries []model.TimeEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestPerProjectTotals(t *testing.T) {
	labels := map[string]string{"p1": "Website", "p2": "Mobile"}
	entries := []model.TimeEntry{
		{ID: "1", Duration: "1h", ProjectID: "p2"},
		{ID: "2", Duration: "30m", ProjectID: "p1"},
		{ID: "3", Duration: "30m", ProjectID: "p2"},
		{ID: "4", Duration: "2h"},
		{ID: "5", Duration: "10m", ProjectID: "gone"},
		{ID: "6", Duration: "5m", ProjectID: "p1", Project: "Website"},
	}
	got := aggregate.PerProjectTotals(entries, labels)
	assert.Equal(t, []aggregate.ProjectTotal{
		{Project: "Mobile", Seconds: 5400},
		{Project: "Website", Seconds: 2100},
		{Project: aggregate.UnknownProject, Seconds: 600},
	}, got)
	assert.Empty(t, aggregate.PerProjectTotals(nil, nil))
}

func TestDailyTotal(t *testing.T) {
	entries := []model.TimeEntry{
		entry("1", "2024-06-01", "", "", "1h 1m", "A"),
		entry("2", "2024-06-01", "", "", "1s", "A"),
		entry("3", "2024-06-02", "", "", "5h", "A"),
	}
	assert.Equal(t, "01:01:01", aggregate.DailyTotal(entries, "2024-06-01"))
	assert.Equal(t, "00:00:00", aggregate.DailyTotal(entries, "2024-06-03"))
}

func TestTopN(t *testing.T) {
	totals := []aggregate.ProjectTotal{
		{Project: "A", Seconds: 7200},
		{Project: "B", Seconds: 3600},
		{Project: "C", Seconds: 10800},
	}
	assert.Equal(t, []aggregate.ProjectTotal{
		{Project: "C", Seconds: 10800},
		{Project: "A", Seconds: 7200},
	}, aggregate.TopN(totals, 2))
	assert.Equal(t, "A", totals[0].Project, "input must not be reordered")
	assert.Len(t, aggregate.TopN(totals, 0), 3)
	assert.Len(t, aggregate.TopN(totals, 10), 3)
}

func TestTopNStableOnTies(t *testing.T) {
	totals := []aggregate.ProjectTotal{
		{Project: "first", Seconds: 60},
		{Project: "big", Seconds: 120},
		{Project: "second", Seconds: 60},
		{Project: "third", Seconds: 60},
	}
	got := aggregate.TopN(totals, 0)
	assert.Equal(t, []string{"big", "first", "second", "third"}, []string{got[0].Project, got[1].Project, got[2].Project, got[3].Project})
}

func TestStreaks(t *testing.T) {
	tests := []struct {
		name  string
		dates []string
		today string
		want  aggregate.Streak
	}{
		{"empty", nil, "2024-06-05", aggregate.Streak{}},
		{"gap before today", []string{"2024-06-01", "2024-06-02", "2024-06-03", "2024-06-05"}, "2024-06-05", aggregate.Streak{Current: 1, Max: 3}},
		{"single today", []string{"2024-06-05"}, "2024-06-05", aggregate.Streak{Current: 1, Max: 1}},
		{"single past", []string{"2024-06-01"}, "2024-06-05", aggregate.Streak{Current: 0, Max: 1}},
		{"run ends yesterday", []string{"2024-06-03", "2024-06-04"}, "2024-06-05", aggregate.Streak{Current: 0, Max: 2}},
		{"month boundary", []string{"2024-02-28", "2024-02-29", "2024-03-01"}, "2024-03-01", aggregate.Streak{Current: 3, Max: 3}},
		{"longest later", []string{"2024-01-01", "2024-01-03", "2024-01-04", "2024-01-05", "2024-01-06"}, "2024-01-10", aggregate.Streak{Current: 0, Max: 4}},
		{"future entry ignored", []string{"2024-06-04", "2024-06-05", "2024-06-09"}, "2024-06-05", aggregate.Streak{Current: 2, Max: 2}},
		{"future run not counted", []string{"2024-06-05", "2024-06-06", "2024-06-07", "2024-06-08"}, "2024-06-05", aggregate.Streak{Current: 1, Max: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, aggregate.Streaks(tt.dates, tt.today))
		})
	}
}

func TestActiveDates(t *testing.T) {
	entries := []model.TimeEntry{
		entry("1", "2024-06-03", "", "", "1h", "A"),
		entry("2", "2024-06-01", "", "", "1h", "A"),
		entry("3", "2024-06-03", "", "", "1h", "A"),
		entry("4", "", "", "", "1h", "A"),
		entry("5", "yesterday", "", "", "1h", "A"),
	}
	assert.Equal(t, []string{"2024-06-01", "2024-06-03"}, aggregate.ActiveDates(entries))
}

func TestTimeRange(t *testing.T) {
	entries := []model.TimeEntry{
		entry("1", "2024-06-01", "09:30", "11:00", "1h 30m", "A"),
		entry("2", "2024-06-01", "08:15", "", "1h", "A"),
		entry("3", "2024-06-01", "13:00", "17:45", "4h 45m", "A"),
		entry("4", "2024-06-01", "", "23:00", "1h", "A"),
	}
	earliest, latest := aggregate.TimeRange(entries)
	assert.Equal(t, "09:30", earliest)
	assert.Equal(t, "17:45", latest)

	earliest, latest = aggregate.TimeRange(nil)
	assert.Equal(t, "", earliest)
	assert.Equal(t, "", latest)
}

func TestWeekTotals(t *testing.T) {
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.Local)
	entries := []model.TimeEntry{
		entry("1", "2024-06-03", "", "", "1h", "A"),
		entry("2", "2024-06-03", "", "", "30m", "A"),
		entry("3", "2024-06-09", "", "", "2h", "A"),
		entry("4", "2024-06-10", "", "", "9h", "A"),
		entry("5", "2024-06-02", "", "", "9h", "A"),
	}
	got := aggregate.WeekTotals(entries, start)
	assert.Equal(t, [7]int64{5400, 0, 0, 0, 0, 0, 7200}, got)
}

func TestSummarize(t *testing.T) {
	entries := []model.TimeEntry{
		{ID: "1", Date: "2024-06-04", Start: "09:00", End: "10:00", Duration: "1h", ProjectID: "p1"},
		{ID: "2", Date: "2024-06-05", Start: "10:00", End: "12:00", Duration: "2h", ProjectID: "p2"},
		{ID: "3", Date: "2024-06-05", Duration: "15m"},
	}
	labels := aggregate.Labels([]model.Project{{ID: "p1", Name: "Alpha"}, {ID: "p2", Name: "Beta"}})

	s := aggregate.Summarize(entries, labels, "2024-06-05", 1)
	assert.Equal(t, int64(11700), s.TotalSeconds)
	assert.Equal(t, "3h 15m", s.Total)
	assert.Len(t, s.Projects, 2)
	assert.Equal(t, []aggregate.ProjectTotal{{Project: "Beta", Seconds: 7200}}, s.Top)
	assert.Equal(t, 2, s.Days)
	assert.Equal(t, aggregate.Streak{Current: 2, Max: 2}, s.Streak)
	assert.Equal(t, "09:00", s.Earliest)
	assert.Equal(t, "12:00", s.Latest)
}
