package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Role identifies who produced a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// UpdateType is the closed set of memory categories an update request can name.
type UpdateType string

const (
	UpdateUser         UpdateType = "user"
	UpdateTodo         UpdateType = "todo"
	UpdateInstructions UpdateType = "instructions"
)

var ErrUnknownUpdateType = errors.New("unknown update type")

// ParseUpdateType validates a raw discriminant coming back from the model.
func ParseUpdateType(raw string) (UpdateType, error) {
	switch UpdateType(strings.TrimSpace(raw)) {
	case UpdateUser:
		return UpdateUser, nil
	case UpdateTodo:
		return UpdateTodo, nil
	case UpdateInstructions:
		return UpdateInstructions, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownUpdateType, raw)
	}
}

// ToolCall is a structured tool invocation emitted by the model. ID correlates
// the request with the tool message that acknowledges it; Args holds the raw
// JSON arguments as produced by the model.
type ToolCall struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// UpdateType extracts and validates the update_type discriminant from the
// call's arguments.
func (c ToolCall) UpdateType() (UpdateType, error) {
	var args struct {
		UpdateType string `json:"update_type"`
	}
	if len(c.Args) > 0 {
		if err := json.Unmarshal(c.Args, &args); err != nil {
			return "", fmt.Errorf("decode tool call args: %w", err)
		}
	}
	return ParseUpdateType(args.UpdateType)
}

// UpdateRequest builds an UpdateMemory tool call for the given category.
func UpdateRequest(id string, ut UpdateType) ToolCall {
	args, _ := json.Marshal(map[string]string{"update_type": string(ut)})
	return ToolCall{ID: id, Name: "UpdateMemory", Args: args}
}

// Message is one entry of the conversation turn state. Tool messages carry the
// ToolCallID of the request they acknowledge; an acknowledgement without a
// matching request id is semantically orphaned.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// System returns a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User returns a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Assistant returns an assistant message with optional update requests.
func Assistant(content string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolResult returns an acknowledgement for the given request id.
func ToolResult(callID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID}
}

// LastMessage returns the final message of the slice, or a zero Message.
func LastMessage(msgs []Message) Message {
	if len(msgs) == 0 {
		return Message{}
	}
	return msgs[len(msgs)-1]
}

// MergeRuns collapses consecutive text messages from the same role into one
// message, preserving order. Messages carrying tool calls or tool results are
// never merged so correlation ids stay attached to their own entries.
func MergeRuns(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if len(out) == 0 {
			out = append(out, m)
			continue
		}
		prev := &out[len(out)-1]
		mergeable := prev.Role == m.Role &&
			len(prev.ToolCalls) == 0 && len(m.ToolCalls) == 0 &&
			prev.ToolCallID == "" && m.ToolCallID == ""
		if mergeable {
			prev.Content = strings.TrimSpace(prev.Content + "\n" + m.Content)
			continue
		}
		out = append(out, m)
	}
	return out
}
