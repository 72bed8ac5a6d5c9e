package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/antoniostano/maistro/internal/protocol"
)

// MockCompleter provides deterministic local replies when no model backend is
// available. Tests enqueue scripted messages; without a script it echoes the
// latest user input.
type MockCompleter struct {
	mu       sync.Mutex
	scripted []protocol.Message
	requests []CompletionRequest
}

func NewMockCompleter() *MockCompleter { return &MockCompleter{} }

// Enqueue schedules replies returned by subsequent Complete calls in order.
func (c *MockCompleter) Enqueue(msgs ...protocol.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripted = append(c.scripted, msgs...)
}

// Requests returns every request seen so far, for assertions.
func (c *MockCompleter) Requests() []CompletionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CompletionRequest, len(c.requests))
	copy(out, c.requests)
	return out
}

func (c *MockCompleter) Complete(ctx context.Context, req CompletionRequest) (protocol.Message, error) {
	select {
	case <-ctx.Done():
		return protocol.Message{}, ctx.Err()
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)

	if len(c.scripted) > 0 {
		next := c.scripted[0]
		c.scripted = c.scripted[1:]
		return next, nil
	}

	return protocol.Assistant(buildMockReply(req.Messages)), nil
}

func buildMockReply(msgs []protocol.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == protocol.RoleUser {
			text := strings.TrimSpace(msgs[i].Content)
			if text == "" {
				break
			}
			return fmt.Sprintf("I heard you: %s", text)
		}
	}
	return "I am listening."
}
