package scheduler

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/flemzord/groupme/pkg/archive"
	"github.com/flemzord/groupme/pkg/groupme"
)

func testArchive(t *testing.T) *archive.Store {
	t.Helper()
	store, err := archive.Open(filepath.Join(t.TempDir(), "archive.db"),
		slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// staticLister serves the same page once, then an empty feed.
type staticLister struct {
	msgs   []*groupme.Message
	served bool
}

func (l *staticLister) List(_ context.Context, _ groupme.ListMessagesOptions) ([]*groupme.Message, error) {
	if l.served {
		return nil, nil
	}
	l.served = true
	return l.msgs, nil
}

func TestTargetDefaultSchedule(t *testing.T) {
	t.Parallel()

	if got := (Target{}).schedule(); got != "*/5 * * * *" {
		t.Errorf("schedule() = %q, want the five-minute default", got)
	}
	if got := (Target{Schedule: "0 * * * *"}).schedule(); got != "0 * * * *" {
		t.Errorf("schedule() = %q, want the explicit expression", got)
	}
}

func TestSyncerStartStop(t *testing.T) {
	t.Parallel()

	s := NewSyncer(testArchive(t), slog.Default())
	if err := s.Start(Target{GroupID: "g1", Messages: &staticLister{}}); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
}

func TestSyncerInvalidSchedule(t *testing.T) {
	t.Parallel()

	s := NewSyncer(testArchive(t), slog.Default())
	err := s.Start(Target{GroupID: "g1", Messages: &staticLister{}, Schedule: "invalid"})
	if err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestSyncerNilLogger(t *testing.T) {
	t.Parallel()

	s := NewSyncer(testArchive(t), nil) // should not panic
	if s.logger == nil {
		t.Fatal("logger should default to slog.Default()")
	}
}

func TestSyncArchivesTargetMessages(t *testing.T) {
	t.Parallel()

	store := testArchive(t)
	s := NewSyncer(store, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	s.sync(context.Background(), Target{
		GroupID: "g1",
		Messages: &staticLister{msgs: []*groupme.Message{
			{ID: "1", GroupID: "g1", Text: "hello"},
			{ID: "2", GroupID: "g1", Text: "world"},
		}},
	})

	count, err := store.Count(context.Background(), "g1")
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if count != 2 {
		t.Errorf("archived count = %d, want 2", count)
	}
}
