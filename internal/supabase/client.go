package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/bayclock/bayclock/internal/backend"
	"github.com/bayclock/bayclock/internal/model"
)

const entrySelect = "*,projects(name)"

// Client is an authenticated Supabase REST client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ backend.Backend = (*Client)(nil)

// Options configures NewClient.
type Options struct {
	BaseURL string
	AnonKey string
	Timeout time.Duration
	// TokenPath receives refreshed tokens; empty disables saving.
	TokenPath string
	Logger    *zap.Logger
}

// NewClient creates a client that sends tok with every request and refreshes
// it when it expires.
func NewClient(ctx context.Context, tok *oauth2.Token, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// The anon key travels on every request, including token refreshes.
	base := &http.Client{
		Timeout:   opts.Timeout,
		Transport: &apiKeyTransport{key: opts.AnonKey, base: http.DefaultTransport},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	auth := &Auth{baseURL: opts.BaseURL, anonKey: opts.AnonKey, httpClient: base}
	ts := oauth2.ReuseTokenSource(tok, &refreshSource{ctx: ctx, auth: auth, current: tok})
	httpClient := oauth2.NewClient(ctx, &savingTokenSource{ts: ts, path: opts.TokenPath, last: tok.AccessToken})
	httpClient.Timeout = opts.Timeout

	return &Client{baseURL: opts.BaseURL, httpClient: httpClient, logger: logger}
}

type apiKeyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("apikey", t.key)
	return t.base.RoundTrip(r)
}

// entryRow is the wire shape of the entries table.
type entryRow struct {
	ID          string  `json:"id,omitempty"`
	UserID      string  `json:"user_id,omitempty"`
	Date        string  `json:"date"`
	Start       *string `json:"start_time"`
	End         *string `json:"end_time"`
	Duration    string  `json:"duration"`
	Description string  `json:"description"`
	ProjectID   *string `json:"project_id"`
	Projects    *struct {
		Name string `json:"name"`
	} `json:"projects,omitempty"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toRow(e model.TimeEntry) entryRow {
	return entryRow{
		ID:          e.ID,
		UserID:      e.UserID,
		Date:        e.Date,
		Start:       nullable(e.Start),
		End:         nullable(e.End),
		Duration:    e.Duration,
		Description: e.Description,
		ProjectID:   nullable(e.ProjectID),
	}
}

func (r entryRow) toEntry() model.TimeEntry {
	e := model.TimeEntry{
		ID:          r.ID,
		UserID:      r.UserID,
		Date:        r.Date,
		Start:       deref(r.Start),
		End:         deref(r.End),
		Duration:    r.Duration,
		Description: r.Description,
		ProjectID:   deref(r.ProjectID),
	}
	if r.Projects != nil {
		e.Project = r.Projects.Name
	}
	return e
}

// FetchEntries lists entries matching filter.
func (c *Client) FetchEntries(ctx context.Context, filter model.EntryFilter) ([]model.TimeEntry, error) {
	q := url.Values{}
	q.Set("select", entrySelect)
	q.Set("order", "date.asc,start_time.asc")
	if filter.UserID != "" {
		q.Set("user_id", "eq."+filter.UserID)
	}
	if filter.From != "" {
		q.Add("date", "gte."+filter.From)
	}
	if filter.To != "" {
		q.Add("date", "lte."+filter.To)
	}
	if filter.ProjectID != "" {
		q.Set("project_id", "eq."+filter.ProjectID)
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
		q.Set("offset", strconv.Itoa(max(filter.Offset, 0)))
	}

	var rows []entryRow
	if err := c.do(ctx, http.MethodGet, "/rest/v1/entries", q, nil, &rows); err != nil {
		return nil, fmt.Errorf("fetching entries: %w", err)
	}
	entries := make([]model.TimeEntry, len(rows))
	for i, r := range rows {
		entries[i] = r.toEntry()
	}
	return entries, nil
}

// CreateEntry inserts entry and returns the stored row.
func (c *Client) CreateEntry(ctx context.Context, entry model.TimeEntry) (model.TimeEntry, error) {
	q := url.Values{"select": {entrySelect}}
	var rows []entryRow
	if err := c.do(ctx, http.MethodPost, "/rest/v1/entries", q, toRow(entry), &rows); err != nil {
		return model.TimeEntry{}, fmt.Errorf("creating entry: %w", err)
	}
	if len(rows) == 0 {
		return model.TimeEntry{}, fmt.Errorf("creating entry: empty response")
	}
	return rows[0].toEntry(), nil
}

// UpdateEntry applies patch to the entry with the given ID.
func (c *Client) UpdateEntry(ctx context.Context, id string, patch model.EntryPatch) (model.TimeEntry, error) {
	body := map[string]any{}
	setText := func(column string, v *string) {
		if v != nil {
			body[column] = *v
		}
	}
	setNullable := func(column string, v *string) {
		if v != nil {
			body[column] = nullable(*v)
		}
	}
	setText("date", patch.Date)
	setNullable("start_time", patch.Start)
	setNullable("end_time", patch.End)
	setText("duration", patch.Duration)
	setText("description", patch.Description)
	setNullable("project_id", patch.ProjectID)

	q := url.Values{"id": {"eq." + id}, "select": {entrySelect}}
	var rows []entryRow
	// An empty patch reads the row back unchanged.
	method, payload := http.MethodPatch, any(body)
	if len(body) == 0 {
		method, payload = http.MethodGet, nil
	}
	if err := c.do(ctx, method, "/rest/v1/entries", q, payload, &rows); err != nil {
		return model.TimeEntry{}, fmt.Errorf("updating entry %s: %w", id, err)
	}
	if len(rows) == 0 {
		return model.TimeEntry{}, fmt.Errorf("entry %s: %w", id, backend.ErrNotFound)
	}
	return rows[0].toEntry(), nil
}

// DeleteEntry removes the entry with the given ID.
func (c *Client) DeleteEntry(ctx context.Context, id string) error {
	q := url.Values{"id": {"eq." + id}, "select": {"id"}}
	var rows []entryRow
	if err := c.do(ctx, http.MethodDelete, "/rest/v1/entries", q, nil, &rows); err != nil {
		return fmt.Errorf("deleting entry %s: %w", id, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("entry %s: %w", id, backend.ErrNotFound)
	}
	return nil
}

// Projects lists the projects visible to the user.
func (c *Client) Projects(ctx context.Context) ([]model.Project, error) {
	q := url.Values{"select": {"id,name,workspace_id"}, "order": {"name.asc"}}
	var projects []model.Project
	if err := c.do(ctx, http.MethodGet, "/rest/v1/projects", q, nil, &projects); err != nil {
		return nil, fmt.Errorf("fetching projects: %w", err)
	}
	return projects, nil
}

// CurrentUser returns the signed-in user with the role from their profile.
func (c *Client) CurrentUser(ctx context.Context) (model.User, error) {
	var u struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", nil, nil, &u); err != nil {
		return model.User{}, fmt.Errorf("fetching user: %w", err)
	}

	var profiles []struct {
		Role string `json:"role"`
	}
	q := url.Values{"id": {"eq." + u.ID}, "select": {"role"}}
	if err := c.do(ctx, http.MethodGet, "/rest/v1/profiles", q, nil, &profiles); err != nil {
		return model.User{}, fmt.Errorf("fetching profile: %w", err)
	}

	user := model.User{ID: u.ID, Email: u.Email, Role: model.RoleUser}
	if len(profiles) > 0 && profiles[0].Role != "" {
		user.Role = profiles[0].Role
	}
	return user, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshalling request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	c.logger.Debug("Supabase request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", backend.ErrUnauthorized, string(raw))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &backend.StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
