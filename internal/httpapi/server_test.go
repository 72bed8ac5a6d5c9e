package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/antoniostano/maistro/internal/memstore"
	"github.com/antoniostano/maistro/internal/observability"
)

func TestListMemoriesScopedToUser(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewInMemoryStore()

	aliceTodo, _ := json.Marshal(map[string]string{"task": "buy milk", "status": "not started"})
	bobTodo, _ := json.Marshal(map[string]string{"task": "walk dog", "status": "not started"})
	if err := store.Put(ctx, memstore.Namespace{Category: memstore.CategoryTodo, UserID: "alice"}, "t1", aliceTodo); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Put(ctx, memstore.Namespace{Category: memstore.CategoryTodo, UserID: "bob"}, "t2", bobTodo); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	srv := New(store, nil, nil)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/v1/users/alice/memories")
	if err != nil {
		t.Fatalf("GET memories error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var got memoriesResponse
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.UserID != "alice" {
		t.Fatalf("UserID = %q, want %q", got.UserID, "alice")
	}
	todos := got.Categories[memstore.CategoryTodo]
	if len(todos) != 1 {
		t.Fatalf("alice todos = %d, want 1", len(todos))
	}
	if todos[0].Key != "t1" {
		t.Fatalf("todos[0].Key = %q, want %q", todos[0].Key, "t1")
	}
}

func TestHealthAndReady(t *testing.T) {
	srv := New(memstore.NewInMemoryStore(), nil, nil)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	for _, path := range []string{"/healthz", "/readyz"} {
		res, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d, want %d", path, res.StatusCode, http.StatusOK)
		}
	}
}

func TestPerfTurnsSnapshot(t *testing.T) {
	perf := observability.NewTurnStageWindow(16)
	perf.Observe("respond", 120)

	srv := New(memstore.NewInMemoryStore(), nil, perf)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/v1/perf/turns")
	if err != nil {
		t.Fatalf("GET perf error = %v", err)
	}
	defer res.Body.Close()

	var snap observability.TurnStageSnapshot
	if err := json.NewDecoder(res.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Stages) != 1 || snap.Stages[0].Stage != "respond" {
		t.Fatalf("snapshot stages = %+v, want one respond stage", snap.Stages)
	}
}
