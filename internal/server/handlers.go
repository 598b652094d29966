package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/bayclock/bayclock/internal/aggregate"
	"github.com/bayclock/bayclock/internal/backend"
	"github.com/bayclock/bayclock/internal/calendar"
	"github.com/bayclock/bayclock/internal/dateutil"
	"github.com/bayclock/bayclock/internal/model"
	"github.com/bayclock/bayclock/internal/timecalc"
)

// Options configures a Handler.
type Options struct {
	Grid              calendar.Grid
	CalendarWeekStart time.Weekday
	ReportWeekStart   time.Weekday
	TopProjects       int
	// Now defaults to time.Now.
	Now func() time.Time
}

// Handler serves the entry, summary and calendar endpoints.
type Handler struct {
	backend backend.Backend
	opts    Options
	logger  *zap.Logger
}

// NewHandler returns a Handler reading and writing through b.
func NewHandler(b backend.Backend, opts Options, logger *zap.Logger) *Handler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Handler{backend: b, opts: opts, logger: logger}
}

// WeekResponse is the body of GET /api/v1/calendar.
type WeekResponse struct {
	WeekStart string           `json:"week_start"`
	WeekEnd   string           `json:"week_end"`
	Grid      calendar.Grid    `json:"grid"`
	Blocks    []calendar.Block `json:"blocks"`
	Totals    [7]string        `json:"totals"`
}

func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filter, ok := h.filter(w, r)
	if !ok {
		return
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = o
		}
	}

	entries, err := h.backend.FetchEntries(r.Context(), filter)
	if err != nil {
		h.fail(w, "Failed to get time entries", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var entry model.TimeEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		h.logger.Error("Failed to decode request", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if entry.Date == "" {
		entry.Date = dateutil.TodayKey(h.opts.Now())
	}
	if _, err := dateutil.ParseKey(entry.Date, nil); err != nil {
		http.Error(w, "Invalid date", http.StatusBadRequest)
		return
	}
	if entry.Duration == "" && entry.HasClockRange() {
		if secs, ok := timecalc.Elapsed(entry.Start, entry.End); ok {
			entry.Duration = timecalc.FormatDuration(secs, true)
		}
	}
	if timecalc.ParseDuration(entry.Duration) == 0 {
		http.Error(w, "Missing duration", http.StatusBadRequest)
		return
	}

	user, err := h.backend.CurrentUser(r.Context())
	if err != nil {
		h.fail(w, "Failed to resolve user", err)
		return
	}
	entry.ID = ""
	entry.UserID = user.ID

	created, err := h.backend.CreateEntry(r.Context(), entry)
	if err != nil {
		h.fail(w, "Failed to create time entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Missing id parameter", http.StatusBadRequest)
		return
	}

	var patch model.EntryPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.logger.Error("Failed to decode request", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if patch.Date != nil {
		if _, err := dateutil.ParseKey(*patch.Date, nil); err != nil {
			http.Error(w, "Invalid date", http.StatusBadRequest)
			return
		}
	}

	if !h.authorize(w, r, id) {
		return
	}
	entry, err := h.backend.UpdateEntry(r.Context(), id, patch)
	if err != nil {
		h.fail(w, "Failed to update time entry", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Missing id parameter", http.StatusBadRequest)
		return
	}

	if !h.authorize(w, r, id) {
		return
	}
	if err := h.backend.DeleteEntry(r.Context(), id); err != nil {
		h.fail(w, "Failed to delete time entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Summary returns totals, top projects and streaks. The range defaults to the
// current report week.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	now := h.opts.Now()
	q := r.URL.Query()
	if q.Get("from") == "" && q.Get("to") == "" {
		from, to := dateutil.WeekRange(now, h.opts.ReportWeekStart)
		q.Set("from", dateutil.Key(from))
		q.Set("to", dateutil.Key(to))
		r.URL.RawQuery = q.Encode()
	}
	filter, ok := h.filter(w, r)
	if !ok {
		return
	}

	top := h.opts.TopProjects
	if topStr := q.Get("top"); topStr != "" {
		n, err := strconv.Atoi(topStr)
		if err != nil || n < 0 {
			http.Error(w, "Invalid top parameter", http.StatusBadRequest)
			return
		}
		top = n
	}

	entries, err := h.backend.FetchEntries(r.Context(), filter)
	if err != nil {
		h.fail(w, "Failed to get time entries", err)
		return
	}
	projects, err := h.backend.Projects(r.Context())
	if err != nil {
		h.fail(w, "Failed to get projects", err)
		return
	}

	writeJSON(w, http.StatusOK, aggregate.Summarize(entries, aggregate.Labels(projects), dateutil.TodayKey(now), top))
}

// Calendar lays out the week containing the week parameter (default today).
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	day := h.opts.Now()
	if key := r.URL.Query().Get("week"); key != "" {
		t, err := dateutil.ParseKey(key, nil)
		if err != nil {
			http.Error(w, "Invalid week parameter", http.StatusBadRequest)
			return
		}
		day = t
	}
	start, end := dateutil.WeekRange(day, h.opts.CalendarWeekStart)

	user, err := h.backend.CurrentUser(r.Context())
	if err != nil {
		h.fail(w, "Failed to resolve user", err)
		return
	}
	entries, err := h.backend.FetchEntries(r.Context(), model.EntryFilter{
		UserID: user.ID,
		From:   dateutil.Key(start),
		To:     dateutil.Key(end),
	})
	if err != nil {
		h.fail(w, "Failed to get time entries", err)
		return
	}

	resp := WeekResponse{
		WeekStart: dateutil.Key(start),
		WeekEnd:   dateutil.Key(end),
		Grid:      h.opts.Grid,
		Blocks:    h.opts.Grid.LayoutWeek(entries, start),
	}
	for i, secs := range aggregate.WeekTotals(entries, start) {
		resp.Totals[i] = timecalc.FormatDuration(secs, false)
	}
	writeJSON(w, http.StatusOK, resp)
}

// filter builds an EntryFilter from the from/to/project query parameters.
// Non-admin users only ever see their own entries.
func (h *Handler) filter(w http.ResponseWriter, r *http.Request) (model.EntryFilter, bool) {
	q := r.URL.Query()
	filter := model.EntryFilter{
		From:      q.Get("from"),
		To:        q.Get("to"),
		ProjectID: q.Get("project_id"),
	}
	for _, key := range []string{filter.From, filter.To} {
		if key == "" {
			continue
		}
		if _, err := dateutil.ParseKey(key, nil); err != nil {
			http.Error(w, "Invalid date range", http.StatusBadRequest)
			return filter, false
		}
	}

	user, err := h.backend.CurrentUser(r.Context())
	if err != nil {
		h.fail(w, "Failed to resolve user", err)
		return filter, false
	}
	if !user.IsAdmin() || q.Get("user_id") == "" {
		filter.UserID = user.ID
	} else {
		filter.UserID = q.Get("user_id")
	}
	return filter, true
}

// authorize reports whether the current user may change entry id. Admins may
// change any entry; other users get 404 for entries they do not own.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, id string) bool {
	user, err := h.backend.CurrentUser(r.Context())
	if err != nil {
		h.fail(w, "Failed to resolve user", err)
		return false
	}
	if user.IsAdmin() {
		return true
	}
	own, err := h.backend.FetchEntries(r.Context(), model.EntryFilter{UserID: user.ID})
	if err != nil {
		h.fail(w, "Failed to get time entries", err)
		return false
	}
	for _, e := range own {
		if e.ID == id {
			return true
		}
	}
	h.fail(w, "Time entry not found", backend.ErrNotFound)
	return false
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, backend.ErrNotFound):
		http.Error(w, "Time entry not found", http.StatusNotFound)
	case errors.Is(err, backend.ErrUnauthorized):
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	default:
		h.logger.Error(msg, zap.Error(err))
		http.Error(w, msg, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
