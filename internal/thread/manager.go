package thread

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/antoniostano/maistro/internal/protocol"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

var ErrNotFound = errors.New("thread not found")

// ID derives a stable thread identifier from the owning user and a session
// label, so the same (user, session) pair always resumes the same history.
func ID(userID, session string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(userID+"\x00"+session)).String()
}

// Thread is one conversation checkpoint: the accumulated message history for a
// (user, session) pair plus bookkeeping.
type Thread struct {
	ID             string             `json:"thread_id"`
	UserID         string             `json:"user_id"`
	Session        string             `json:"session"`
	Status         Status             `json:"status"`
	Messages       []protocol.Message `json:"messages"`
	Turns          int                `json:"turns"`
	StartedAt      time.Time          `json:"started_at"`
	LastActivityAt time.Time          `json:"last_activity_at"`
}

// Manager keeps checkpoints in memory and expires threads that go idle.
type Manager struct {
	mu                sync.RWMutex
	threads           map[string]*Thread
	inactivityTimeout time.Duration
	onExpire          func(*Thread)
}

func NewManager(inactivityTimeout time.Duration) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 30 * time.Minute
	}
	return &Manager{
		threads:           make(map[string]*Thread),
		inactivityTimeout: inactivityTimeout,
	}
}

func (m *Manager) SetExpireHook(hook func(*Thread)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

// Checkpoint returns the thread for the (user, session) pair, creating it on
// first use.
func (m *Manager) Checkpoint(userID, session string) *Thread {
	id := ID(userID, session)

	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.threads[id]
	if !ok || t.Status == StatusEnded {
		now := time.Now().UTC()
		t = &Thread{
			ID:             id,
			UserID:         userID,
			Session:        session,
			Status:         StatusActive,
			StartedAt:      now,
			LastActivityAt: now,
		}
		m.threads[id] = t
	}
	return clone(t)
}

func (m *Manager) Get(threadID string) (*Thread, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.threads[threadID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(t), nil
}

// Append extends the thread history and bumps activity.
func (m *Manager) Append(threadID string, msgs ...protocol.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.threads[threadID]
	if !ok {
		return ErrNotFound
	}
	t.Messages = append(t.Messages, msgs...)
	t.LastActivityAt = time.Now().UTC()
	return nil
}

// CompleteTurn records a finished turn on the thread.
func (m *Manager) CompleteTurn(threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.threads[threadID]
	if !ok {
		return ErrNotFound
	}
	t.Turns++
	t.LastActivityAt = time.Now().UTC()
	return nil
}

// History returns a copy of the thread's message history.
func (m *Manager) History(threadID string) ([]protocol.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.threads[threadID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]protocol.Message, len(t.Messages))
	copy(out, t.Messages)
	return out, nil
}

func (m *Manager) End(threadID string) (*Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.threads[threadID]
	if !ok {
		return nil, ErrNotFound
	}
	t.Status = StatusEnded
	t.LastActivityAt = time.Now().UTC()
	return clone(t), nil
}

// StartJanitor expires threads whose last activity is older than the
// inactivity timeout. It stops when ctx is cancelled.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireIdle()
			}
		}
	}()
}

func (m *Manager) expireIdle() {
	cutoff := time.Now().UTC().Add(-m.inactivityTimeout)

	m.mu.Lock()
	var expired []*Thread
	for _, t := range m.threads {
		if t.Status == StatusActive && t.LastActivityAt.Before(cutoff) {
			t.Status = StatusEnded
			expired = append(expired, clone(t))
		}
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, t := range expired {
			hook(t)
		}
	}
}

func clone(t *Thread) *Thread {
	cp := *t
	cp.Messages = make([]protocol.Message, len(t.Messages))
	copy(cp.Messages, t.Messages)
	return &cp
}
