package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bayclock/bayclock/internal/aggregate"
	"github.com/bayclock/bayclock/internal/calendar"
	"github.com/bayclock/bayclock/internal/model"
	"github.com/bayclock/bayclock/internal/server"
	"github.com/bayclock/bayclock/internal/store"
)

// Wednesday.
var now = time.Date(2024, 6, 5, 12, 0, 0, 0, time.Local)

func setup(t *testing.T) (*store.Store, http.Handler) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "api.db"), model.User{ID: "u1", Role: model.RoleUser}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	h := server.NewHandler(s, server.Options{
		Grid:              calendar.DefaultGrid(),
		CalendarWeekStart: time.Sunday,
		ReportWeekStart:   time.Monday,
		TopProjects:       5,
		Now:               func() time.Time { return now },
	}, zap.NewNop())
	return s, server.New(h, zap.NewNop())
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	_, h := setup(t)
	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCreateEntry(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		status   int
		duration string
	}{
		{"duration from clock range", `{"date":"2024-06-04","start_time":"09:00","end_time":"10:30"}`, http.StatusCreated, "1h 30m 0s"},
		{"clock range keeps seconds", `{"date":"2024-06-04","start_time":"09:00:00","end_time":"10:05:42"}`, http.StatusCreated, "1h 5m 42s"},
		{"explicit duration", `{"date":"2024-06-04","duration":"45m"}`, http.StatusCreated, "45m"},
		{"defaults to today", `{"duration":"10m"}`, http.StatusCreated, "10m"},
		{"missing duration", `{"date":"2024-06-04"}`, http.StatusBadRequest, ""},
		{"invalid date", `{"date":"2024-02-30","duration":"1h"}`, http.StatusBadRequest, ""},
		{"bad json", `{`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, h := setup(t)
			rec := do(t, h, http.MethodPost, "/api/v1/entries", tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status != http.StatusCreated {
				return
			}
			var got model.TimeEntry
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.NotEmpty(t, got.ID)
			assert.Equal(t, "u1", got.UserID)
			assert.Equal(t, tt.duration, got.Duration)
		})
	}
}

func TestListUpdateDelete(t *testing.T) {
	s, h := setup(t)
	ctx := context.Background()

	e, err := s.CreateEntry(ctx, model.TimeEntry{Date: "2024-06-04", Duration: "1h"})
	require.NoError(t, err)
	_, err = s.CreateEntry(ctx, model.TimeEntry{Date: "2024-05-01", Duration: "2h"})
	require.NoError(t, err)
	foreign, err := s.CreateEntry(ctx, model.TimeEntry{Date: "2024-06-04", Duration: "3h", UserID: "other"})
	require.NoError(t, err)

	rec := do(t, h, http.MethodGet, "/api/v1/entries?from=2024-06-01&to=2024-06-30", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []model.TimeEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, e.ID, listed[0].ID)

	rec = do(t, h, http.MethodGet, "/api/v1/entries?from=nope", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/v1/entries/update?id="+e.ID, `{"duration":"1h 15m"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated model.TimeEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "1h 15m", updated.Duration)

	rec = do(t, h, http.MethodPut, "/api/v1/entries/update?id=missing", `{"duration":"1m"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, h, http.MethodPut, "/api/v1/entries/update", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/v1/entries/update?id="+foreign.ID, `{"duration":"5m"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, h, http.MethodDelete, "/api/v1/entries/delete?id="+foreign.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	kept, err := s.GetEntry(ctx, foreign.ID)
	require.NoError(t, err)
	assert.Equal(t, "3h", kept.Duration)

	rec = do(t, h, http.MethodDelete, "/api/v1/entries/delete?id="+e.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodDelete, "/api/v1/entries/delete?id="+e.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/v1/entries/delete?id="+e.ID, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSummary(t *testing.T) {
	s, h := setup(t)
	ctx := context.Background()

	web, err := s.EnsureProject(ctx, "Website")
	require.NoError(t, err)
	ops, err := s.EnsureProject(ctx, "Ops")
	require.NoError(t, err)
	for _, e := range []model.TimeEntry{
		{Date: "2024-06-03", Duration: "2h", ProjectID: web.ID},
		{Date: "2024-06-04", Duration: "30m", ProjectID: ops.ID},
		{Date: "2024-06-05", Duration: "1h", ProjectID: web.ID},
		{Date: "2024-05-20", Duration: "9h", ProjectID: ops.ID},
	} {
		_, err := s.CreateEntry(ctx, e)
		require.NoError(t, err)
	}

	rec := do(t, h, http.MethodGet, "/api/v1/summary?top=1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sum aggregate.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, int64(3*3600+1800), sum.TotalSeconds)
	assert.Equal(t, "3h 30m", sum.Total)
	assert.Equal(t, []aggregate.ProjectTotal{{Project: "Website", Seconds: 3 * 3600}}, sum.Top)
	assert.Equal(t, 3, sum.Days)
	assert.Equal(t, aggregate.Streak{Current: 3, Max: 3}, sum.Streak)

	rec = do(t, h, http.MethodGet, "/api/v1/summary?from=2024-05-01&to=2024-05-31", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, "9h", sum.Total)

	rec = do(t, h, http.MethodGet, "/api/v1/summary?top=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalendar(t *testing.T) {
	s, h := setup(t)
	ctx := context.Background()

	e, err := s.CreateEntry(ctx, model.TimeEntry{Date: "2024-06-04", Start: "09:00", End: "10:30", Duration: "1h 30m"})
	require.NoError(t, err)
	_, err = s.CreateEntry(ctx, model.TimeEntry{Date: "2024-06-09", Duration: "1h"})
	require.NoError(t, err)

	rec := do(t, h, http.MethodGet, "/api/v1/calendar?week=2024-06-05", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var week server.WeekResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &week))
	assert.Equal(t, "2024-06-02", week.WeekStart)
	assert.Equal(t, "2024-06-08", week.WeekEnd)
	require.Len(t, week.Blocks, 1)
	b := week.Blocks[0]
	assert.Equal(t, e.ID, b.EntryID)
	assert.Equal(t, 2, b.Column)
	assert.InDelta(t, 482.0, b.Top, 1e-9)
	assert.InDelta(t, 72.0, b.Height, 1e-9)
	assert.Equal(t, "1h 30m", week.Totals[2])

	rec = do(t, h, http.MethodGet, "/api/v1/calendar?week=06/05/2024", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
