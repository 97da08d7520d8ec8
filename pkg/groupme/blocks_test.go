package groupme

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBlocksList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/blocks" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("user"); got != "u1" {
			t.Errorf("user = %q, want u1", got)
		}
		writeEnvelope(t, w, map[string]any{
			"blocks": []map[string]any{
				{"user_id": "u1", "blocked_user_id": "u9", "created_at": 1600000000},
			},
		})
	}))
	defer srv.Close()

	blocks, err := NewBlocks(NewSession("TOKEN", srv.URL), "u1").List(context.Background())
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(blocks) != 1 || blocks[0].BlockedUserID != "u9" {
		t.Errorf("blocks = %v", blocks)
	}
}

func TestBlockExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/blocks/between" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		writeEnvelope(t, w, map[string]any{"between": false})
	}))
	defer srv.Close()

	block := &Block{UserID: "u1", BlockedUserID: "u9"}
	block.bind(NewSession("TOKEN", srv.URL))

	exists, err := block.Exists(context.Background())
	if err != nil {
		t.Fatalf("Exists() error: %v", err)
	}
	if exists {
		t.Error("Exists() = true, want false")
	}
}

func TestUnblockVerdict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/blocks/delete" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	ok, err := NewBlocks(NewSession("TOKEN", srv.URL), "u1").Unblock(context.Background(), "u9")
	if err != nil {
		t.Fatalf("Unblock() error: %v", err)
	}
	if ok {
		t.Error("Unblock() = true, want false for a rejected unblock")
	}
}
