package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/antoniostano/maistro/internal/protocol"
	"github.com/antoniostano/maistro/internal/reliability"
)

const (
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 2048

	retryMaxAttempts = 3
	retryBaseDelay   = 200 * time.Millisecond
	retryCapDelay    = 2 * time.Second
)

// AnthropicCompleter calls the Anthropic Messages API.
type AnthropicCompleter struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

func NewAnthropicCompleter(cfg Config) *AnthropicCompleter {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &AnthropicCompleter{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     model,
		maxTokens: int64(maxTokens),
	}
}

func (c *AnthropicCompleter) Complete(ctx context.Context, req CompletionRequest) (protocol.Message, error) {
	system, msgs, err := toAnthropicMessages(req)
	if err != nil {
		return protocol.Message{}, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  msgs,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(req.Tools) > 0 {
		params.Tools = toAnthropicTools(req.Tools)
	}

	var resp *anthropic.Message
	for attempt := 0; ; attempt++ {
		resp, err = c.client.Messages.New(ctx, params)
		if err == nil {
			break
		}
		if attempt+1 >= retryMaxAttempts || !isRetryable(err) {
			return protocol.Message{}, fmt.Errorf("anthropic completion: %w", err)
		}
		select {
		case <-ctx.Done():
			return protocol.Message{}, ctx.Err()
		case <-time.After(reliability.ExponentialBackoff(attempt, retryBaseDelay, retryCapDelay)):
		}
	}

	return fromAnthropicMessage(resp), nil
}

func isRetryable(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return reliability.IsRetryableHTTPStatus(apiErr.StatusCode)
	}
	return false
}

// toAnthropicMessages converts protocol history to API params. System messages
// are folded into the system prompt and consecutive tool acknowledgements are
// grouped into a single user message so every tool_use block of the preceding
// assistant turn is answered in one place.
func toAnthropicMessages(req CompletionRequest) (string, []anthropic.MessageParam, error) {
	systemParts := make([]string, 0, 1)
	if req.System != "" {
		systemParts = append(systemParts, req.System)
	}

	var out []anthropic.MessageParam
	var pendingResults []anthropic.ContentBlockParamUnion

	flushResults := func() {
		if len(pendingResults) > 0 {
			out = append(out, anthropic.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for _, m := range req.Messages {
		switch m.Role {
		case protocol.RoleSystem:
			flushResults()
			systemParts = append(systemParts, m.Content)
		case protocol.RoleUser:
			flushResults()
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case protocol.RoleAssistant:
			flushResults()
			blocks := make([]anthropic.ContentBlockParamUnion, 0, 1+len(m.ToolCalls))
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, call := range m.ToolCalls {
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						Type:  "tool_use",
						ID:    call.ID,
						Name:  call.Name,
						Input: json.RawMessage(call.Args),
					},
				})
			}
			if len(blocks) == 0 {
				blocks = append(blocks, anthropic.NewTextBlock(""))
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		case protocol.RoleTool:
			pendingResults = append(pendingResults, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false))
		default:
			return "", nil, fmt.Errorf("unsupported message role %q", m.Role)
		}
	}
	flushResults()

	return strings.Join(systemParts, "\n\n"), out, nil
}

func toAnthropicTools(tools []Tool) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		props := t.InputSchema["properties"]
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: anthropic.ToolInputSchemaParam{Properties: props},
		}})
	}
	return out
}

func fromAnthropicMessage(resp *anthropic.Message) protocol.Message {
	msg := protocol.Message{Role: protocol.RoleAssistant}
	for _, block := range resp.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			msg.Content += v.Text
		case anthropic.ToolUseBlock:
			msg.ToolCalls = append(msg.ToolCalls, protocol.ToolCall{
				ID:   v.ID,
				Name: v.Name,
				Args: json.RawMessage(v.JSON.Input.Raw()),
			})
		}
	}
	return msg
}
