package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/bayclock/bayclock/internal/backend"
	"github.com/bayclock/bayclock/internal/model"
)

// Store keeps entries and projects in a local SQLite database.
type Store struct {
	db     *sql.DB
	user   model.User
	logger *zap.Logger
}

var _ backend.Backend = (*Store)(nil)

// New opens (and migrates) the database at path. user is returned by
// CurrentUser and stamped on new entries.
func New(path string, user model.User, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, user: user, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Debug("Database connection established", zap.String("path", path))
	return s, nil
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			workspace_id TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS time_entries (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			date TEXT NOT NULL,
			start_time TEXT NOT NULL DEFAULT '',
			end_time TEXT NOT NULL DEFAULT '',
			duration TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			project_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_time_entries_user_date ON time_entries(user_id, date)`,
		`INSERT OR IGNORE INTO schema_migrations (version) VALUES (1)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.logger.Debug("Database connection closed")
	return nil
}

// CurrentUser returns the configured local user.
func (s *Store) CurrentUser(ctx context.Context) (model.User, error) {
	return s.user, nil
}

const entryColumns = `e.id, e.user_id, e.date, e.start_time, e.end_time, e.duration, e.description, e.project_id, COALESCE(p.name, '')`

func scanEntry(row interface{ Scan(...any) error }) (model.TimeEntry, error) {
	var e model.TimeEntry
	err := row.Scan(&e.ID, &e.UserID, &e.Date, &e.Start, &e.End, &e.Duration, &e.Description, &e.ProjectID, &e.Project)
	return e, err
}

// FetchEntries returns entries matching filter ordered by date and start time.
func (s *Store) FetchEntries(ctx context.Context, filter model.EntryFilter) ([]model.TimeEntry, error) {
	var where []string
	var args []any
	if filter.UserID != "" {
		where = append(where, "e.user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.From != "" {
		where = append(where, "e.date >= ?")
		args = append(args, filter.From)
	}
	if filter.To != "" {
		where = append(where, "e.date <= ?")
		args = append(args, filter.To)
	}
	if filter.ProjectID != "" {
		where = append(where, "e.project_id = ?")
		args = append(args, filter.ProjectID)
	}

	query := `SELECT ` + entryColumns + ` FROM time_entries e LEFT JOIN projects p ON p.id = e.project_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY e.date ASC, e.start_time ASC, e.created_at ASC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, max(filter.Offset, 0))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query time entries: %w", err)
	}
	defer rows.Close()

	var entries []model.TimeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan time entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return entries, nil
}

// GetEntry returns one entry by ID.
func (s *Store) GetEntry(ctx context.Context, id string) (model.TimeEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM time_entries e LEFT JOIN projects p ON p.id = e.project_id WHERE e.id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TimeEntry{}, fmt.Errorf("time entry %s: %w", id, backend.ErrNotFound)
	}
	if err != nil {
		return model.TimeEntry{}, fmt.Errorf("failed to get time entry: %w", err)
	}
	return e, nil
}

// CreateEntry inserts entry, assigning an ID and the current user when empty.
func (s *Store) CreateEntry(ctx context.Context, entry model.TimeEntry) (model.TimeEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.UserID == "" {
		entry.UserID = s.user.ID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO time_entries (id, user_id, date, start_time, end_time, duration, description, project_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.UserID, entry.Date, entry.Start, entry.End, entry.Duration, entry.Description, entry.ProjectID,
	)
	if err != nil {
		return model.TimeEntry{}, fmt.Errorf("failed to create time entry: %w", err)
	}

	s.logger.Debug("Time entry created", zap.String("id", entry.ID), zap.String("date", entry.Date))
	return s.GetEntry(ctx, entry.ID)
}

// UpdateEntry applies patch to the entry with the given ID.
func (s *Store) UpdateEntry(ctx context.Context, id string, patch model.EntryPatch) (model.TimeEntry, error) {
	setParts := []string{"updated_at = CURRENT_TIMESTAMP"}
	var args []any

	add := func(column string, v *string) {
		if v != nil {
			setParts = append(setParts, column+" = ?")
			args = append(args, *v)
		}
	}
	add("date", patch.Date)
	add("start_time", patch.Start)
	add("end_time", patch.End)
	add("duration", patch.Duration)
	add("description", patch.Description)
	add("project_id", patch.ProjectID)

	if len(setParts) == 1 {
		return s.GetEntry(ctx, id)
	}

	args = append(args, id)
	result, err := s.db.ExecContext(ctx,
		`UPDATE time_entries SET `+strings.Join(setParts, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return model.TimeEntry{}, fmt.Errorf("failed to update time entry: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return model.TimeEntry{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.TimeEntry{}, fmt.Errorf("time entry %s: %w", id, backend.ErrNotFound)
	}
	return s.GetEntry(ctx, id)
}

// DeleteEntry removes the entry with the given ID.
func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM time_entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete time entry: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("time entry %s: %w", id, backend.ErrNotFound)
	}
	return nil
}

// Projects returns all projects ordered by name.
func (s *Store) Projects(ctx context.Context) ([]model.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, workspace_id FROM projects ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.WorkspaceID); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// EnsureProject returns the project called name, creating it if needed.
func (s *Store) EnsureProject(ctx context.Context, name string) (model.Project, error) {
	var p model.Project
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, workspace_id FROM projects WHERE name = ? AND workspace_id = ''`, name,
	).Scan(&p.ID, &p.Name, &p.WorkspaceID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.Project{}, fmt.Errorf("failed to look up project: %w", err)
	}

	p = model.Project{ID: uuid.NewString(), Name: name}
	if err := s.UpsertProject(ctx, p); err != nil {
		return model.Project{}, err
	}
	return p, nil
}

// UpsertProject inserts or renames a project by ID.
func (s *Store) UpsertProject(ctx context.Context, p model.Project) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, workspace_id) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, workspace_id = excluded.workspace_id`,
		p.ID, p.Name, p.WorkspaceID,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert project: %w", err)
	}
	return nil
}
