package cmd

import (
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bayclock/bayclock/internal/timer"
)

func TestLogTimerChanges(t *testing.T) {
	ts, err := timer.Open(filepath.Join(t.TempDir(), "timer.json"))
	if err != nil {
		t.Fatal(err)
	}
	core, logs := observer.New(zapcore.DebugLevel)
	unwatch := logTimerChanges(ts, zap.New(core))

	at := time.Date(2024, 6, 4, 9, 0, 0, 0, time.UTC)
	if _, err := ts.Start("Website", "p1", "", at); err != nil {
		t.Fatal(err)
	}
	if _, err := ts.Stop(); err != nil {
		t.Fatal(err)
	}
	unwatch()
	if _, err := ts.Start("Ops", "", "", at); err != nil {
		t.Fatal(err)
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d log entries, want 2", len(entries))
	}
	if got := entries[0].Message; got != "Timer started" {
		t.Errorf("first message = %q, want %q", got, "Timer started")
	}
	if got := entries[0].ContextMap()["project"]; got != "Website" {
		t.Errorf("project field = %v, want Website", got)
	}
	if got := entries[1].Message; got != "Timer cleared" {
		t.Errorf("second message = %q, want %q", got, "Timer cleared")
	}
}
