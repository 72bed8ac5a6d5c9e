package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/antoniostano/maistro/internal/llm"
	"github.com/antoniostano/maistro/internal/protocol"
)

const extractionSystemPrompt = `You are extracting structured records from a conversation.

System time: %s

Call the %q tool once per record you want to create or revise. To revise an
existing record, include its doc_id; to create a new record, omit doc_id.
%s
Existing records, as (key, tool, value) triples:
%s`

// LLMConfig configures an LLMExtractor.
type LLMConfig struct {
	Completer llm.Completer
	// Tool is the document schema the model must fill in for each record.
	Tool llm.Tool
	// EnableInserts allows the model to create new records in addition to
	// revising the ones it is shown.
	EnableInserts bool
	// Observer, if set, sees every accepted document tool call.
	Observer Observer
	// Now stubs the clock in tests. Defaults to time.Now.
	Now func() time.Time
}

// LLMExtractor drives a Completer with a single document tool and collects the
// records the model emits as tool calls.
type LLMExtractor struct {
	cfg LLMConfig
}

func NewLLMExtractor(cfg LLMConfig) (*LLMExtractor, error) {
	if cfg.Completer == nil {
		return nil, fmt.Errorf("extractor: completer is required")
	}
	if cfg.Tool.Name == "" {
		return nil, fmt.Errorf("extractor: tool name is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &LLMExtractor{cfg: cfg}, nil
}

func (e *LLMExtractor) Extract(ctx context.Context, msgs []protocol.Message, existing []ExistingRecord) (Result, error) {
	req := llm.CompletionRequest{
		System:   e.systemPrompt(existing),
		Messages: msgs,
		Tools:    []llm.Tool{e.cfg.Tool},
	}

	resp, err := e.cfg.Completer.Complete(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("extract %s: %w", e.cfg.Tool.Name, err)
	}

	var result Result
	for _, call := range resp.ToolCalls {
		if call.Name != e.cfg.Tool.Name {
			continue
		}
		record, meta, err := splitDocID(call.Args)
		if err != nil {
			return Result{}, fmt.Errorf("extract %s: %w", e.cfg.Tool.Name, err)
		}
		// Without insert mode the model may only revise records it was shown,
		// except on first extraction when there is nothing to revise yet.
		if !e.cfg.EnableInserts && meta.DocID == "" && len(existing) > 0 {
			continue
		}
		result.Responses = append(result.Responses, record)
		result.Metadata = append(result.Metadata, meta)
		if e.cfg.Observer != nil {
			e.cfg.Observer.OnToolCall(call)
		}
	}
	return result, nil
}

func (e *LLMExtractor) systemPrompt(existing []ExistingRecord) string {
	insertNote := "Only revise the records you are shown; do not create new ones.\n"
	if e.cfg.EnableInserts {
		insertNote = "Create as many new records as the conversation supports.\n"
	}

	var triples strings.Builder
	if len(existing) == 0 {
		triples.WriteString("(none)")
	}
	for i, rec := range existing {
		if i > 0 {
			triples.WriteByte('\n')
		}
		fmt.Fprintf(&triples, "(%s, %s, %s)", rec.Key, rec.Tool, rec.Value)
	}

	return fmt.Sprintf(extractionSystemPrompt,
		e.cfg.Now().UTC().Format(time.RFC3339),
		e.cfg.Tool.Name,
		insertNote,
		triples.String())
}

// splitDocID pops doc_id out of the tool call arguments; whatever remains is
// the record itself.
func splitDocID(args json.RawMessage) (json.RawMessage, ResponseMeta, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(args, &fields); err != nil {
		return nil, ResponseMeta{}, fmt.Errorf("decode document args: %w", err)
	}

	var meta ResponseMeta
	if raw, ok := fields["doc_id"]; ok {
		if err := json.Unmarshal(raw, &meta.DocID); err != nil {
			return nil, ResponseMeta{}, fmt.Errorf("decode doc_id: %w", err)
		}
		delete(fields, "doc_id")
	}

	record, err := json.Marshal(fields)
	if err != nil {
		return nil, ResponseMeta{}, fmt.Errorf("encode record: %w", err)
	}
	return record, meta, nil
}
