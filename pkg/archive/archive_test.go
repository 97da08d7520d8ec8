package archive

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/flemzord/groupme/pkg/groupme"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "archive.db"),
		slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func msg(id, groupID, text string) *groupme.Message {
	return &groupme.Message{ID: id, GroupID: groupID, UserID: "u1", Name: "Ann", Text: text}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	store, err := Open(path, logger)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := store.Insert(context.Background(), "g1", msg("1", "g1", "hello")); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	// Reopening migrates again without clobbering data.
	store, err = Open(path, logger)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer store.Close()

	count, err := store.Count(context.Background(), "g1")
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if count != 1 {
		t.Errorf("count after reopen = %d, want 1", count)
	}
}

func TestSearchMatchesTextWithinGroup(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, "g1",
		msg("1", "g1", "pizza tonight?"),
		msg("2", "g1", "meeting at noon"),
	); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if err := store.Insert(ctx, "g2", msg("3", "g2", "pizza friday")); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}

	hits, err := store.Search(ctx, "g1", "pizza", 10)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "1" {
		t.Errorf("hits = %v, want just message 1", hits)
	}

	// Empty group id searches everywhere.
	hits, err = store.Search(ctx, "", "pizza", 10)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("len(hits) = %d, want 2 across groups", len(hits))
	}
}

func TestInsertReplacesAndReindexes(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, "g1", msg("1", "g1", "draft")); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if err := store.Insert(ctx, "g1", msg("1", "g1", "final")); err != nil {
		t.Fatalf("reinsert error: %v", err)
	}

	hits, err := store.Search(ctx, "g1", "draft", 10)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("stale text still indexed: %v", hits)
	}

	hits, err = store.Search(ctx, "g1", "final", 10)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("len(hits) = %d, want 1", len(hits))
	}
}

// fakeLister serves messages in pages of syncPageSize, keyed by after_id.
type fakeLister struct {
	msgs     []*groupme.Message
	afterIDs []string
	done     bool
}

func (f *fakeLister) List(_ context.Context, opts groupme.ListMessagesOptions) ([]*groupme.Message, error) {
	f.afterIDs = append(f.afterIDs, opts.AfterID)
	if f.done {
		return nil, &groupme.APIError{StatusCode: http.StatusNotModified}
	}

	start := 0
	if opts.AfterID != "" {
		for i, m := range f.msgs {
			if m.ID == opts.AfterID {
				start = i + 1
				break
			}
		}
	}
	end := start + opts.Limit
	if end >= len(f.msgs) {
		end = len(f.msgs)
		f.done = true
	}
	return f.msgs[start:end], nil
}

func TestSyncPagesForwardAndRecordsState(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	var msgs []*groupme.Message
	for i := 1; i <= syncPageSize+5; i++ {
		id := strconv.Itoa(i)
		msgs = append(msgs, msg(id, "g1", "message "+id))
	}
	lister := &fakeLister{msgs: msgs}

	total, err := store.Sync(ctx, lister, "g1")
	if err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	if total != len(msgs) {
		t.Errorf("total = %d, want %d", total, len(msgs))
	}
	if len(lister.afterIDs) != 2 || lister.afterIDs[0] != "" || lister.afterIDs[1] != strconv.Itoa(syncPageSize) {
		t.Errorf("afterIDs = %v, want paging from the start then after message %d", lister.afterIDs, syncPageSize)
	}

	last, err := store.LastMessageID(ctx, "g1")
	if err != nil {
		t.Fatalf("LastMessageID() error: %v", err)
	}
	if last != msgs[len(msgs)-1].ID {
		t.Errorf("last = %q, want %q", last, msgs[len(msgs)-1].ID)
	}

	count, err := store.Count(ctx, "g1")
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if count != len(msgs) {
		t.Errorf("count = %d, want %d", count, len(msgs))
	}
}

func TestSyncResumesFromLastMessage(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	msgs := []*groupme.Message{msg("1", "g1", "one"), msg("2", "g1", "two")}
	if _, err := store.Sync(ctx, &fakeLister{msgs: msgs}, "g1"); err != nil {
		t.Fatalf("first Sync() error: %v", err)
	}

	// The feed now answers 304: nothing newer.
	lister := &fakeLister{done: true}
	total, err := store.Sync(ctx, lister, "g1")
	if err != nil {
		t.Fatalf("second Sync() error: %v", err)
	}
	if total != 0 {
		t.Errorf("total = %d, want 0", total)
	}
	if len(lister.afterIDs) != 1 || lister.afterIDs[0] != "2" {
		t.Errorf("afterIDs = %v, want a single request after message 2", lister.afterIDs)
	}
}
