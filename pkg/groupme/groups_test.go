package groupme

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func fakeGroupData() map[string]any {
	return map[string]any{
		"id":              "g1",
		"group_id":        "g1",
		"name":            "Test Group",
		"description":     "a group",
		"creator_user_id": "u1",
		"created_at":      1600000000,
		"updated_at":      1600000100,
		"members": []map[string]any{
			{"id": "m1", "user_id": "u1", "nickname": "Ann"},
		},
	}
}

func TestGroupsList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/groups" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("page"); got != "2" {
			t.Errorf("page = %q, want 2", got)
		}
		if got := r.URL.Query().Get("per_page"); got != "10" {
			t.Errorf("per_page = %q, want 10", got)
		}
		writeEnvelope(t, w, []map[string]any{fakeGroupData()})
	}))
	defer srv.Close()

	groups, err := NewGroups(NewSession("TOKEN", srv.URL)).List(context.Background(), ListGroupsOptions{Page: 2, PerPage: 10})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("len(groups) = %d, want 1", len(groups))
	}

	g := groups[0]
	if g.Name != "Test Group" {
		t.Errorf("Name = %q, want %q", g.Name, "Test Group")
	}
	if g.Messages == nil || g.Memberships == nil {
		t.Fatal("scoped managers not bound")
	}
	if len(g.Members) != 1 || g.Members[0].Nickname != "Ann" {
		t.Errorf("Members = %v", g.Members)
	}
	if g.Created().Unix() != 1600000000 {
		t.Errorf("Created() = %v", g.Created())
	}
}

func TestGroupFieldBag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		data := fakeGroupData()
		data["theme_name"] = "midnight"
		writeEnvelope(t, w, data)
	}))
	defer srv.Close()

	g, err := NewGroups(NewSession("TOKEN", srv.URL)).Get(context.Background(), "g1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	raw, err := g.Extra.Field("theme_name")
	if err != nil {
		t.Fatalf("Field(theme_name) error: %v", err)
	}
	if string(raw) != `"midnight"` {
		t.Errorf("theme_name = %s", raw)
	}

	if _, err := g.Extra.Field("nope"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("Field(nope) error = %v, want ErrUnknownField", err)
	}
}

func TestGroupJoinUnwrapsGroup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/groups/g1/join/TOK" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		writeEnvelope(t, w, map[string]any{"group": fakeGroupData()})
	}))
	defer srv.Close()

	g, err := NewGroups(NewSession("TOKEN", srv.URL)).Join(context.Background(), "g1", "TOK")
	if err != nil {
		t.Fatalf("Join() error: %v", err)
	}
	if g.ID != "g1" {
		t.Errorf("ID = %q, want g1", g.ID)
	}
}

func TestGroupRefreshReplacesData(t *testing.T) {
	var name string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		data := fakeGroupData()
		data["name"] = name
		writeEnvelope(t, w, data)
	}))
	defer srv.Close()

	mgr := NewGroups(NewSession("TOKEN", srv.URL))

	name = "before"
	g, err := mgr.Get(context.Background(), "g1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	name = "after"
	if err := g.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if g.Name != "after" {
		t.Errorf("Name = %q, want %q", g.Name, "after")
	}
	if g.Messages == nil {
		t.Fatal("Refresh() dropped the scoped managers")
	}
}

func TestGroupDestroyVerdict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/groups/g1/destroy" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	ok, err := NewGroups(NewSession("TOKEN", srv.URL)).Destroy(context.Background(), "g1")
	if err != nil {
		t.Fatalf("Destroy() error: %v", err)
	}
	if ok {
		t.Error("Destroy() = true, want false for a rejected destroy")
	}
}

func TestChangeOwners(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/groups/change_owners" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Requests []OwnerChange `json:"requests"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("unmarshal request: %v", err)
		}
		if len(req.Requests) != 1 || req.Requests[0].OwnerID != "u2" {
			t.Errorf("requests = %v", req.Requests)
		}
		writeEnvelope(t, w, map[string]any{
			"results": []map[string]string{
				{"group_id": "g1", "owner_id": "u2", "status": "200"},
			},
		})
	}))
	defer srv.Close()

	results, err := NewGroups(NewSession("TOKEN", srv.URL)).ChangeOwners(context.Background(), OwnerChange{GroupID: "g1", OwnerID: "u2"})
	if err != nil {
		t.Fatalf("ChangeOwners() error: %v", err)
	}
	if len(results) != 1 || results[0].Status != "200" {
		t.Errorf("results = %v", results)
	}
}
