package app

import (
	"context"
	"testing"

	"github.com/groupdesk/groupdesk/internal/config"
)

func testOptions() Options {
	return Options{
		Config: config.Config{
			Reminder: config.Reminder{Schedule: "@hourly"},
		},
	}
}

func TestLifecycleTransitions(t *testing.T) {
	a := New(testOptions())
	if got := a.State(); got != StateUninitialized {
		t.Fatalf("new application must be uninitialized, got %s", got)
	}

	if err := a.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if got := a.State(); got != StateReady {
		t.Fatalf("expected ready, got %s", got)
	}

	// Init on a ready application does nothing.
	if err := a.Init(context.Background()); err != nil {
		t.Fatalf("repeated Init failed: %v", err)
	}

	a.Close()
	if got := a.State(); got != StateUninitialized {
		t.Fatalf("expected uninitialized after close, got %s", got)
	}
}

func TestInitFailureIsRetryable(t *testing.T) {
	opts := testOptions()
	opts.Config.Reminder.Schedule = "not a schedule"
	a := New(opts)

	if err := a.Init(context.Background()); err == nil {
		t.Fatal("expected Init to fail on a bad schedule")
	}
	if got := a.State(); got != StateFailed {
		t.Fatalf("expected failed, got %s", got)
	}
	if a.Err() == nil {
		t.Fatal("failed state must carry the error")
	}

	// A corrected configuration can be retried through a fresh attempt.
	a.cfg.Reminder.Schedule = "@hourly"
	if err := a.Init(context.Background()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if got := a.State(); got != StateReady {
		t.Fatalf("expected ready after retry, got %s", got)
	}
	a.Close()
}

func TestNilStoresFallBackToMemory(t *testing.T) {
	a := New(testOptions())
	if a.Chat == nil || a.Journal == nil || a.Notices == nil || a.Ledger == nil || a.Todos == nil || a.Agencies == nil {
		t.Fatal("all services must be constructed")
	}
	if _, err := a.Notices.List(context.Background()); err != nil {
		t.Fatalf("memory-backed service failed: %v", err)
	}
}
