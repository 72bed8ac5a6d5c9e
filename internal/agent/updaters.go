package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/antoniostano/maistro/internal/extract"
	"github.com/antoniostano/maistro/internal/llm"
	"github.com/antoniostano/maistro/internal/memstore"
	"github.com/antoniostano/maistro/internal/protocol"
)

// instructionsKey is the fixed record key for the single per-user
// instructions record.
const instructionsKey = "user_instructions"

// UpdateTurn is the input to an updater: the conversation history preceding
// the tool-call message, plus the update requests that triggered this branch.
type UpdateTurn struct {
	UserID  string
	History []protocol.Message
	Calls   []protocol.ToolCall
}

// Updater reconciles one memory category against the latest turn and returns
// an acknowledgement for every triggering request.
type Updater interface {
	Step() Step
	Update(ctx context.Context, turn UpdateTurn) ([]protocol.Message, error)
}

// ExtractorFactory builds an extractor for a single update run, wiring in the
// observer that will see its document tool calls.
type ExtractorFactory func(obs extract.Observer) extract.Extractor

// ProfileUpdater reconciles the profile namespace via structured extraction.
type ProfileUpdater struct {
	store     memstore.Store
	extractor extract.Extractor
}

func NewProfileUpdater(store memstore.Store, extractor extract.Extractor) *ProfileUpdater {
	return &ProfileUpdater{store: store, extractor: extractor}
}

func (u *ProfileUpdater) Step() Step { return StepUpdateProfile }

func (u *ProfileUpdater) Update(ctx context.Context, turn UpdateTurn) ([]protocol.Message, error) {
	if len(turn.Calls) == 0 {
		return nil, fmt.Errorf("%w: profile updater invoked without a triggering request", ErrInvalidUpdateType)
	}

	ns := memstore.Namespace{Category: memstore.CategoryProfile, UserID: turn.UserID}
	existing, err := existingRecords(ctx, u.store, ns, "Profile")
	if err != nil {
		return nil, err
	}

	res, err := u.extractor.Extract(ctx, protocol.MergeRuns(turn.History), existing)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if err := upsertResults(ctx, u.store, ns, res); err != nil {
		return nil, err
	}

	return acknowledge(turn.Calls, "updated profile"), nil
}

// TodoUpdater reconciles the todo namespace. Each run gets a fresh extractor
// observed by a spy so the acknowledgement can describe exactly what changed.
type TodoUpdater struct {
	store   memstore.Store
	factory ExtractorFactory
}

func NewTodoUpdater(store memstore.Store, factory ExtractorFactory) *TodoUpdater {
	return &TodoUpdater{store: store, factory: factory}
}

func (u *TodoUpdater) Step() Step { return StepUpdateTodos }

func (u *TodoUpdater) Update(ctx context.Context, turn UpdateTurn) ([]protocol.Message, error) {
	if len(turn.Calls) == 0 {
		return nil, fmt.Errorf("%w: todo updater invoked without a triggering request", ErrInvalidUpdateType)
	}

	ns := memstore.Namespace{Category: memstore.CategoryTodo, UserID: turn.UserID}
	existing, err := existingRecords(ctx, u.store, ns, "ToDo")
	if err != nil {
		return nil, err
	}

	spy := extract.NewSpy()
	res, err := u.factory(spy).Extract(ctx, protocol.MergeRuns(turn.History), existing)
	if err != nil {
		return nil, fmt.Errorf("update todos: %w", err)
	}
	if err := upsertResults(ctx, u.store, ns, res); err != nil {
		return nil, err
	}

	summary := extract.SummarizeToolCalls(spy.Calls())
	if summary == "" {
		summary = "updated todos"
	}
	return acknowledge(turn.Calls, summary), nil
}

// InstructionsUpdater rewrites the single free-text instructions record by
// asking the model directly, no structured extraction.
type InstructionsUpdater struct {
	store     memstore.Store
	completer llm.Completer
}

func NewInstructionsUpdater(store memstore.Store, completer llm.Completer) *InstructionsUpdater {
	return &InstructionsUpdater{store: store, completer: completer}
}

func (u *InstructionsUpdater) Step() Step { return StepUpdateInstructions }

func (u *InstructionsUpdater) Update(ctx context.Context, turn UpdateTurn) ([]protocol.Message, error) {
	if len(turn.Calls) == 0 {
		return nil, fmt.Errorf("%w: instructions updater invoked without a triggering request", ErrInvalidUpdateType)
	}

	ns := memstore.Namespace{Category: memstore.CategoryInstructions, UserID: turn.UserID}
	current := noInstructions
	item, err := u.store.Get(ctx, ns, instructionsKey)
	switch {
	case err == nil:
		var rec extract.Instructions
		if err := json.Unmarshal(item.Value, &rec); err == nil && rec.Memory != "" {
			current = rec.Memory
		}
	case errors.Is(err, memstore.ErrNotFound):
	default:
		return nil, fmt.Errorf("update instructions: %w", err)
	}

	req := llm.CompletionRequest{
		System:   fmt.Sprintf(rewriteInstructionsPrompt, current),
		Messages: turn.History,
	}
	resp, err := u.completer.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("update instructions: %w", err)
	}

	value, err := json.Marshal(extract.Instructions{Memory: resp.Content})
	if err != nil {
		return nil, fmt.Errorf("update instructions: %w", err)
	}
	if err := u.store.Put(ctx, ns, instructionsKey, value); err != nil {
		return nil, fmt.Errorf("update instructions: %w", err)
	}

	return acknowledge(turn.Calls, "updated instructions"), nil
}

func existingRecords(ctx context.Context, store memstore.Store, ns memstore.Namespace, tool string) ([]extract.ExistingRecord, error) {
	items, err := store.Search(ctx, ns)
	if err != nil {
		return nil, fmt.Errorf("search %s memory: %w", ns.Category, err)
	}
	out := make([]extract.ExistingRecord, 0, len(items))
	for _, item := range items {
		out = append(out, extract.ExistingRecord{Key: item.Key, Tool: tool, Value: item.Value})
	}
	return out, nil
}

// upsertResults writes every extracted record, reusing the extractor's stable
// document id as the key when it supplies one so re-extraction revises the
// same record instead of duplicating it.
func upsertResults(ctx context.Context, store memstore.Store, ns memstore.Namespace, res extract.Result) error {
	for i, value := range res.Responses {
		key := ""
		if i < len(res.Metadata) {
			key = res.Metadata[i].DocID
		}
		if key == "" {
			key = uuid.NewString()
		}
		if err := store.Put(ctx, ns, key, value); err != nil {
			return fmt.Errorf("put %s memory: %w", ns.Category, err)
		}
	}
	return nil
}

func acknowledge(calls []protocol.ToolCall, content string) []protocol.Message {
	out := make([]protocol.Message, 0, len(calls))
	for _, call := range calls {
		out = append(out, protocol.ToolResult(call.ID, content))
	}
	return out
}
