package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bayclock/bayclock/internal/backend"
	"github.com/bayclock/bayclock/internal/model"
)

// SyncResult holds counters for a mirror run.
type SyncResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Updated  int `json:"updated"`
	Errors   int `json:"errors"`
}

// Mirror copies remote projects and entries into the local database, keyed by
// ID. Rows that already match are skipped; changed rows are updated in place.
// With dryRun set nothing is written but the counters are still computed.
func (s *Store) Mirror(ctx context.Context, projects []model.Project, entries []model.TimeEntry, dryRun bool) (SyncResult, error) {
	var result SyncResult

	if !dryRun {
		for _, p := range projects {
			if err := s.UpsertProject(ctx, p); err != nil {
				return result, err
			}
		}
	}

	for _, remote := range entries {
		if remote.ID == "" {
			s.logger.Warn("Skipping remote entry without id", zap.String("date", remote.Date))
			result.Errors++
			continue
		}

		local, err := s.GetEntry(ctx, remote.ID)
		switch {
		case errors.Is(err, backend.ErrNotFound):
			if !dryRun {
				if _, err := s.CreateEntry(ctx, remote); err != nil {
					s.logger.Error("Failed to import entry", zap.String("id", remote.ID), zap.Error(err))
					result.Errors++
					continue
				}
			}
			result.Imported++
		case err != nil:
			return result, fmt.Errorf("loading entry %s: %w", remote.ID, err)
		case sameEntry(local, remote):
			result.Skipped++
		default:
			if !dryRun {
				if _, err := s.UpdateEntry(ctx, remote.ID, patchFrom(remote)); err != nil {
					s.logger.Error("Failed to update entry", zap.String("id", remote.ID), zap.Error(err))
					result.Errors++
					continue
				}
			}
			result.Updated++
		}
	}

	s.logger.Info("Mirror finished",
		zap.Int("imported", result.Imported),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", result.Errors),
		zap.Bool("dry_run", dryRun),
	)
	return result, nil
}

func sameEntry(a, b model.TimeEntry) bool {
	return a.Date == b.Date && a.Start == b.Start && a.End == b.End &&
		a.Duration == b.Duration && a.Description == b.Description && a.ProjectID == b.ProjectID
}

func patchFrom(e model.TimeEntry) model.EntryPatch {
	return model.EntryPatch{
		Date:        &e.Date,
		Start:       &e.Start,
		End:         &e.End,
		Duration:    &e.Duration,
		Description: &e.Description,
		ProjectID:   &e.ProjectID,
	}
}
