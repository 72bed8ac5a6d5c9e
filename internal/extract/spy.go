package extract

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/antoniostano/maistro/internal/protocol"
)

// Spy records the document tool calls an extractor makes so callers can report
// what changed after the fact.
type Spy struct {
	mu    sync.Mutex
	calls []protocol.ToolCall
}

func NewSpy() *Spy { return &Spy{} }

func (s *Spy) OnToolCall(call protocol.ToolCall) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *Spy) Calls() []protocol.ToolCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.ToolCall, len(s.calls))
	copy(out, s.calls)
	return out
}

// SummarizeToolCalls renders one line per observed call, distinguishing new
// records from revisions of existing ones.
func SummarizeToolCalls(calls []protocol.ToolCall) string {
	var b strings.Builder
	for _, call := range calls {
		var args map[string]json.RawMessage
		if err := json.Unmarshal(call.Args, &args); err != nil {
			continue
		}

		docID := ""
		if raw, ok := args["doc_id"]; ok {
			_ = json.Unmarshal(raw, &docID)
			delete(args, "doc_id")
		}
		payload, err := json.Marshal(args)
		if err != nil {
			continue
		}

		if docID != "" {
			fmt.Fprintf(&b, "Document %s updated:\nPlan: %s\n", docID, payload)
		} else {
			fmt.Fprintf(&b, "New %s created:\nContent: %s\n", call.Name, payload)
		}
	}
	return b.String()
}
