// Package timer holds the running timer. State lives in one Store that
// persists itself to a JSON file and notifies subscribers on every change.
package timer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bayclock/bayclock/internal/dateutil"
	"github.com/bayclock/bayclock/internal/model"
	"github.com/bayclock/bayclock/internal/timecalc"
)

var (
	// ErrRunning is returned by Start when a timer is already running.
	ErrRunning = errors.New("timer already running")
	// ErrIdle is returned by Stop when no timer is running.
	ErrIdle = errors.New("no active timer")
)

// State is a snapshot of the timer.
type State struct {
	Running     bool      `json:"running"`
	Project     string    `json:"project,omitempty"`
	ProjectID   string    `json:"project_id,omitempty"`
	Description string    `json:"description,omitempty"`
	StartedAt   time.Time `json:"started_at,omitempty"`
}

// Elapsed returns the whole seconds since StartedAt, or 0 when idle.
func (s State) Elapsed(now time.Time) int64 {
	if !s.Running {
		return 0
	}
	return int64(now.Sub(s.StartedAt).Seconds())
}

// Store owns the timer state.
type Store struct {
	path string

	mu     sync.Mutex
	state  State
	nextID int
	subs   map[int]func(State)
}

// Open loads the state file at path. A missing file means an idle timer; a
// corrupt file is moved aside to path+".corrupt" and reported as an error.
func Open(path string) (*Store, error) {
	s := &Store{path: path, subs: map[int]func(State){}}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading timer state %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &s.state); err != nil {
		backupPath := path + ".corrupt"
		_ = os.Rename(path, backupPath)
		return nil, fmt.Errorf("corrupt timer state in %s (backed up to %s): %w", path, backupPath, err)
	}
	return s, nil
}

// Current returns the current state.
func (s *Store) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to be called after every change. The returned func
// removes the subscription.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Start begins a timer at the given time.
func (s *Store) Start(project, projectID, description string, at time.Time) (State, error) {
	return s.update(func(cur State) (State, error) {
		if cur.Running {
			return cur, ErrRunning
		}
		return State{
			Running:     true,
			Project:     project,
			ProjectID:   projectID,
			Description: description,
			StartedAt:   at,
		}, nil
	})
}

// Stop ends the running timer and returns the state it had.
func (s *Store) Stop() (State, error) {
	var stopped State
	_, err := s.update(func(cur State) (State, error) {
		if !cur.Running {
			return cur, ErrIdle
		}
		stopped = cur
		return State{}, nil
	})
	return stopped, err
}

// Reset clears any state without reporting it.
func (s *Store) Reset() error {
	_, err := s.update(func(State) (State, error) { return State{}, nil })
	return err
}

func (s *Store) update(fn func(State) (State, error)) (State, error) {
	s.mu.Lock()
	next, err := fn(s.state)
	if err != nil {
		s.mu.Unlock()
		return s.state, err
	}
	if err := s.save(next); err != nil {
		s.mu.Unlock()
		return s.state, err
	}
	s.state = next
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return next, nil
}

// save atomically writes the state file.
func (s *Store) save(st State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating timer directory: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling timer state: %w", err)
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing timer state: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving timer state: %w", err)
	}
	return nil
}

// Entries turns a stopped timer into time entries. A timer that ran past
// midnight is split at each day boundary so that every entry's end is after
// its start on the same date.
func Entries(st State, stoppedAt time.Time) []model.TimeEntry {
	if !st.Running || !stoppedAt.After(st.StartedAt) {
		return nil
	}
	stoppedAt = stoppedAt.In(st.StartedAt.Location())

	var entries []model.TimeEntry
	from := st.StartedAt
	for !dateutil.SameDay(from, stoppedAt) {
		end := dateutil.EndOfDay(from)
		entries = append(entries, segment(st, from, end))
		from = dateutil.StartOfDay(end.Add(time.Second))
	}
	return append(entries, segment(st, from, stoppedAt))
}

func segment(st State, from, to time.Time) model.TimeEntry {
	return model.TimeEntry{
		Date:        dateutil.Key(from),
		Start:       dateutil.ClockString(from),
		End:         dateutil.ClockString(to),
		Duration:    timecalc.FormatDuration(int64(to.Sub(from).Seconds()), true),
		Description: st.Description,
		ProjectID:   st.ProjectID,
		Project:     st.Project,
	}
}
