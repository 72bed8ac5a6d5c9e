package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/antoniostano/maistro/internal/protocol"
)

// Tool describes a tool offered to the model for one completion.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// CompletionRequest is the normalized request sent to the model collaborator.
type CompletionRequest struct {
	System   string
	Messages []protocol.Message
	Tools    []Tool
}

// Completer is the language-model boundary. The reply may embed zero or more
// tool calls, each with a unique id.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (protocol.Message, error)
}

// Config controls completer construction.
type Config struct {
	Mode      string
	APIKey    string
	Model     string
	MaxTokens int
}

// NewCompleter builds the configured completer. Mode auto prefers the real
// Anthropic backend when an API key is present and falls back to the mock.
func NewCompleter(cfg Config) (Completer, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.APIKey) != "" {
			return NewAnthropicCompleter(cfg), nil
		}
		return NewMockCompleter(), nil
	case "anthropic":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("anthropic api key is required for anthropic mode")
		}
		return NewAnthropicCompleter(cfg), nil
	case "mock":
		return NewMockCompleter(), nil
	default:
		return nil, fmt.Errorf("unsupported completer mode %q", cfg.Mode)
	}
}
