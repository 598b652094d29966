package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bayclock/bayclock/internal/aggregate"
	"github.com/bayclock/bayclock/internal/dateutil"
	"github.com/bayclock/bayclock/internal/model"
	"github.com/bayclock/bayclock/internal/timer"
)

// fetchRange loads the user's entries between two dates, inclusive.
func (a *app) fetchRange(ctx context.Context, from, to time.Time) []model.TimeEntry {
	user := a.currentUser(ctx)
	entries, err := a.backend.FetchEntries(ctx, model.EntryFilter{
		UserID: user.ID,
		From:   dateutil.Key(from),
		To:     dateutil.Key(to),
	})
	if err != nil {
		exitErr(exitBackend, err)
	}
	return entries
}

// labels returns project names by ID.
func (a *app) labels(ctx context.Context) map[string]string {
	projects, err := a.backend.Projects(ctx)
	if err != nil {
		exitErr(exitBackend, err)
	}
	return aggregate.Labels(projects)
}

// resolveProject finds a project by name, ignoring case. The local store
// creates missing projects; remote projects must already exist.
func (a *app) resolveProject(ctx context.Context, name string) (model.Project, error) {
	if name == "" {
		return model.Project{}, nil
	}
	projects, err := a.backend.Projects(ctx)
	if err != nil {
		return model.Project{}, err
	}
	for _, p := range projects {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	if a.local != nil {
		return a.local.EnsureProject(ctx, name)
	}
	return model.Project{}, fmt.Errorf("unknown project %q", name)
}

// saveTimer writes the entries of a running timer stopped at stoppedAt.
func (a *app) saveTimer(ctx context.Context, st timer.State, stoppedAt time.Time) error {
	user := a.currentUser(ctx)
	for _, e := range timer.Entries(st, stoppedAt) {
		e.UserID = user.ID
		created, err := a.backend.CreateEntry(ctx, e)
		if err != nil {
			return fmt.Errorf("saving entry for %s: %w", e.Date, err)
		}
		a.log.Debug("Timer entry saved",
			zap.String("id", created.ID),
			zap.String("date", created.Date),
			zap.String("duration", created.Duration),
		)
	}
	return nil
}

// parseDateFlag parses a YYYY-MM-DD flag value as a local date.
func parseDateFlag(name, value string) time.Time {
	t, err := dateutil.ParseKey(value, time.Local)
	if err != nil {
		exitErr(exitUsage, fmt.Errorf("invalid --%s value %q: %w", name, value, err))
	}
	return t
}
