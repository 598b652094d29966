// Package backend defines the persistence and session collaborator that the
// CLI and HTTP API read entries from and write entries to.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/bayclock/bayclock/internal/model"
)

var (
	// ErrNotFound is returned when an entry or project does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned when the session is missing or rejected.
	ErrUnauthorized = errors.New("unauthorized")
)

// Backend is implemented by the local SQLite store and the Supabase client.
type Backend interface {
	FetchEntries(ctx context.Context, filter model.EntryFilter) ([]model.TimeEntry, error)
	CreateEntry(ctx context.Context, entry model.TimeEntry) (model.TimeEntry, error)
	UpdateEntry(ctx context.Context, id string, patch model.EntryPatch) (model.TimeEntry, error)
	DeleteEntry(ctx context.Context, id string) error
	Projects(ctx context.Context) ([]model.Project, error)
	CurrentUser(ctx context.Context) (model.User, error)
}

// StatusError reports an unexpected HTTP status from a remote backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
}
