package supabase_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/bayclock/bayclock/internal/backend"
	"github.com/bayclock/bayclock/internal/model"
	"github.com/bayclock/bayclock/internal/supabase"
)

const anonKey = "anon-key"

func validToken() *oauth2.Token {
	return &oauth2.Token{AccessToken: "access-1", TokenType: "bearer", RefreshToken: "refresh-1",
		Expiry: time.Now().Add(time.Hour)}
}

func newClient(t *testing.T, handler http.HandlerFunc, tok *oauth2.Token, tokenPath string) *supabase.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return supabase.NewClient(context.Background(), tok, supabase.Options{
		BaseURL:   srv.URL,
		AnonKey:   anonKey,
		Timeout:   5 * time.Second,
		TokenPath: tokenPath,
	})
}

func TestFetchEntries(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/entries", r.URL.Path)
		assert.Equal(t, anonKey, r.Header.Get("apikey"))
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "*,projects(name)", q.Get("select"))
		assert.Equal(t, []string{"gte.2024-06-01", "lte.2024-06-30"}, q["date"])
		assert.Equal(t, "eq.u1", q.Get("user_id"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[
			{"id":"e1","user_id":"u1","date":"2024-06-04","start_time":"09:00","end_time":"10:30",
			 "duration":"1h 30m","description":"landing","project_id":"p1","projects":{"name":"Website"}},
			{"id":"e2","user_id":"u1","date":"2024-06-05","start_time":null,"end_time":null,
			 "duration":"45m","description":"","project_id":null,"projects":null}
		]`)
	}, validToken(), "")

	entries, err := client.FetchEntries(context.Background(), model.EntryFilter{UserID: "u1", From: "2024-06-01", To: "2024-06-30"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.TimeEntry{ID: "e1", UserID: "u1", Date: "2024-06-04", Start: "09:00", End: "10:30",
		Duration: "1h 30m", Description: "landing", ProjectID: "p1", Project: "Website"}, entries[0])
	assert.Empty(t, entries[1].ProjectID)
	assert.Empty(t, entries[1].Project)
	assert.False(t, entries[1].HasClockRange())
}

func TestCreateEntry(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2024-06-04", body["date"])
		assert.Nil(t, body["project_id"])
		assert.NotContains(t, body, "id")

		_, _ = io.WriteString(w, `[{"id":"new","user_id":"u1","date":"2024-06-04","duration":"30m","description":"x"}]`)
	}, validToken(), "")

	created, err := client.CreateEntry(context.Background(), model.TimeEntry{Date: "2024-06-04", Duration: "30m", Description: "x"})
	require.NoError(t, err)
	assert.Equal(t, "new", created.ID)
}

func TestUpdateAndDeleteNotFound(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.missing", r.URL.Query().Get("id"))
		_, _ = io.WriteString(w, `[]`)
	}, validToken(), "")

	d := "1h"
	_, err := client.UpdateEntry(context.Background(), "missing", model.EntryPatch{Duration: &d})
	assert.ErrorIs(t, err, backend.ErrNotFound)
	assert.ErrorIs(t, client.DeleteEntry(context.Background(), "missing"), backend.ErrNotFound)
}

func TestUpdateEntryClearsProject(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"project_id": nil, "description": "moved"}, body)
		_, _ = io.WriteString(w, `[{"id":"e1","date":"2024-06-04","duration":"1h","description":"moved"}]`)
	}, validToken(), "")

	empty, desc := "", "moved"
	updated, err := client.UpdateEntry(context.Background(), "e1", model.EntryPatch{ProjectID: &empty, Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "moved", updated.Description)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"unauthorized", http.StatusUnauthorized, func(t *testing.T, err error) { assert.ErrorIs(t, err, backend.ErrUnauthorized) }},
		{"forbidden", http.StatusForbidden, func(t *testing.T, err error) { assert.ErrorIs(t, err, backend.ErrUnauthorized) }},
		{"server error", http.StatusInternalServerError, func(t *testing.T, err error) {
			var se *backend.StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
			assert.Contains(t, se.Body, "boom")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, `{"message":"boom"}`)
			}, validToken(), "")
			_, err := client.Projects(context.Background())
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestCurrentUserRole(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/user":
			_, _ = io.WriteString(w, `{"id":"u1","email":"ada@example.com"}`)
		case "/rest/v1/profiles":
			assert.Equal(t, "eq.u1", r.URL.Query().Get("id"))
			_, _ = io.WriteString(w, `[{"role":"admin"}]`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}, validToken(), "")

	user, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.User{ID: "u1", Email: "ada@example.com", Role: model.RoleAdmin}, user)
}

func TestExpiredTokenIsRefreshedAndSaved(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "auth", "supabase_token.json")
	expired := &oauth2.Token{AccessToken: "old", RefreshToken: "refresh-1", Expiry: time.Now().Add(-time.Hour)}

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, anonKey, r.Header.Get("apikey"))
		if r.URL.Path == "/auth/v1/token" {
			assert.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "refresh-1", body["refresh_token"])
			_, _ = io.WriteString(w, `{"access_token":"new","token_type":"bearer","expires_in":3600,"refresh_token":"refresh-2"}`)
			return
		}
		assert.Equal(t, "Bearer new", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[]`)
	}, expired, tokenPath)

	_, err := client.Projects(context.Background())
	require.NoError(t, err)

	saved, err := supabase.LoadToken(tokenPath)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "new", saved.AccessToken)
	assert.Equal(t, "refresh-2", saved.RefreshToken)
}

func TestSignIn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"invalid_grant","error_description":"Invalid login credentials"}`)
			return
		}
		_, _ = io.WriteString(w, `{"access_token":"a","token_type":"bearer","expires_in":60,"refresh_token":"r"}`)
	}))
	defer srv.Close()

	auth := supabase.NewAuth(srv.URL, anonKey, 5*time.Second)
	tok, err := auth.SignIn(context.Background(), "ada@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "a", tok.AccessToken)
	assert.True(t, tok.Expiry.After(time.Now()))

	_, err = auth.SignIn(context.Background(), "ada@example.com", "wrong")
	assert.ErrorIs(t, err, backend.ErrUnauthorized)
	assert.Contains(t, err.Error(), "Invalid login credentials")
}

func TestLoadTokenMissing(t *testing.T) {
	tok, err := supabase.LoadToken(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Nil(t, tok)
}
