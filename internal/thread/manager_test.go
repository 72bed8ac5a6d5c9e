package thread

import (
	"context"
	"testing"
	"time"

	"github.com/antoniostano/maistro/internal/protocol"
)

func TestIDIsStablePerUserAndSession(t *testing.T) {
	a := ID("alice", "default")
	b := ID("alice", "default")
	if a != b {
		t.Fatalf("ID() not stable: %q != %q", a, b)
	}
	if ID("alice", "default") == ID("bob", "default") {
		t.Fatalf("ID() should differ across users")
	}
	if ID("alice", "default") == ID("alice", "work") {
		t.Fatalf("ID() should differ across sessions")
	}
}

func TestCheckpointResumesHistory(t *testing.T) {
	m := NewManager(time.Minute)
	th := m.Checkpoint("alice", "default")
	if th.ID == "" {
		t.Fatalf("thread ID should not be empty")
	}

	if err := m.Append(th.ID, protocol.User("hello"), protocol.Assistant("hi")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	again := m.Checkpoint("alice", "default")
	if again.ID != th.ID {
		t.Fatalf("Checkpoint() = %q, want resumed %q", again.ID, th.ID)
	}
	if len(again.Messages) != 2 {
		t.Fatalf("resumed history = %d messages, want 2", len(again.Messages))
	}
}

func TestCompleteTurnCounts(t *testing.T) {
	m := NewManager(time.Minute)
	th := m.Checkpoint("alice", "default")

	if err := m.CompleteTurn(th.ID); err != nil {
		t.Fatalf("CompleteTurn() error = %v", err)
	}
	got, err := m.Get(th.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Turns != 1 {
		t.Fatalf("Turns = %d, want 1", got.Turns)
	}
}

func TestJanitorExpiresIdleThreads(t *testing.T) {
	m := NewManager(30 * time.Millisecond)
	th := m.Checkpoint("alice", "default")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartJanitor(ctx, 10*time.Millisecond)

	time.Sleep(90 * time.Millisecond)
	got, err := m.Get(th.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusEnded {
		t.Fatalf("Status = %q, want %q", got.Status, StatusEnded)
	}
}
