package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/antoniostano/maistro/internal/extract"
	"github.com/antoniostano/maistro/internal/llm"
	"github.com/antoniostano/maistro/internal/memstore"
	"github.com/antoniostano/maistro/internal/observability"
	"github.com/antoniostano/maistro/internal/protocol"
	"github.com/antoniostano/maistro/internal/thread"
)

// Config carries the collaborators of the turn loop. Completer, Store and
// Threads are required; Metrics and Perf are optional.
type Config struct {
	Completer llm.Completer
	Store     memstore.Store
	Threads   *thread.Manager
	Metrics   *observability.Metrics
	Perf      *observability.TurnStageWindow
	// MaxTurns bounds respond/update cycles within one invocation.
	MaxTurns int
}

// Graph is the turn loop: respond, route, run the selected updaters, loop
// back to respond, terminate when the model requests no more updates.
type Graph struct {
	cfg      Config
	updaters map[Step]Updater
}

func New(cfg Config, updaters ...Updater) (*Graph, error) {
	if cfg.Completer == nil {
		return nil, fmt.Errorf("agent: completer is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("agent: store is required")
	}
	if cfg.Threads == nil {
		return nil, fmt.Errorf("agent: thread manager is required")
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 10
	}

	byStep := make(map[Step]Updater, len(updaters))
	for _, u := range updaters {
		if _, dup := byStep[u.Step()]; dup {
			return nil, fmt.Errorf("agent: duplicate updater for step %s", u.Step())
		}
		byStep[u.Step()] = u
	}
	return &Graph{cfg: cfg, updaters: byStep}, nil
}

// InvokeConfig scopes one invocation. UserID selects the persistent memory
// namespaces; Session selects the conversation checkpoint within that user.
type InvokeConfig struct {
	UserID  string
	Session string
}

// Result is the final turn state of one invocation.
type Result struct {
	ThreadID string
	Messages []protocol.Message
	Reply    string
}

// Invoke appends msgs to the (user, session) thread and runs the turn loop to
// termination.
func (g *Graph) Invoke(ctx context.Context, msgs []protocol.Message, cfg InvokeConfig) (*Result, error) {
	if strings.TrimSpace(cfg.UserID) == "" {
		return nil, fmt.Errorf("agent: user id is required")
	}

	if m := g.cfg.Metrics; m != nil {
		m.ActiveTurns.Inc()
		defer m.ActiveTurns.Dec()
	}
	turnStart := time.Now()

	th := g.cfg.Threads.Checkpoint(cfg.UserID, cfg.Session)
	history := make([]protocol.Message, 0, len(th.Messages)+len(msgs))
	history = append(history, th.Messages...)
	history = append(history, msgs...)
	checkpointed := len(th.Messages)

	tool := updateMemoryTool()
	terminated := false

	for iter := 0; iter < g.cfg.MaxTurns; iter++ {
		system, err := g.systemPrompt(ctx, cfg.UserID)
		if err != nil {
			return nil, g.fail("memory_read", err)
		}

		respondStart := time.Now()
		resp, err := g.cfg.Completer.Complete(ctx, llm.CompletionRequest{
			System:   system,
			Messages: history,
			Tools:    []llm.Tool{tool},
		})
		if err != nil {
			return nil, g.fail("completion", fmt.Errorf("respond: %w", err))
		}
		g.observeStage("respond", respondStart)
		history = append(history, resp)

		routed, err := Route(resp)
		if err != nil {
			return nil, g.fail("invalid_update_type", err)
		}
		if routed[0].Step == StepTerminate {
			terminated = true
			break
		}

		for _, branch := range routed {
			updater, ok := g.updaters[branch.Step]
			if !ok {
				return nil, g.fail("missing_updater", fmt.Errorf("agent: no updater registered for step %s", branch.Step))
			}

			updateStart := time.Now()
			acks, err := updater.Update(ctx, UpdateTurn{
				UserID:  cfg.UserID,
				History: history[:len(history)-1],
				Calls:   branch.Calls,
			})
			if err != nil {
				if m := g.cfg.Metrics; m != nil {
					m.ExtractionErrors.WithLabelValues(categoryLabel(branch.Step)).Inc()
				}
				return nil, g.fail("update_failure", err)
			}
			g.observeStage(string(branch.Step), updateStart)
			if m := g.cfg.Metrics; m != nil {
				m.UpdateOps.WithLabelValues(categoryLabel(branch.Step)).Inc()
			}
			history = append(history, acks...)
		}
	}

	if !terminated {
		return nil, g.fail("loop_budget", fmt.Errorf("agent: turn did not terminate within %d cycles", g.cfg.MaxTurns))
	}

	if err := g.cfg.Threads.Append(th.ID, history[checkpointed:]...); err != nil {
		return nil, g.fail("checkpoint", fmt.Errorf("append thread history: %w", err))
	}
	if err := g.cfg.Threads.CompleteTurn(th.ID); err != nil {
		return nil, g.fail("checkpoint", fmt.Errorf("complete turn: %w", err))
	}

	if m := g.cfg.Metrics; m != nil {
		m.Turns.WithLabelValues("ok").Inc()
		m.ObserveTurnLatency(time.Since(turnStart))
	}
	g.observeStage("turn_total", turnStart)

	return &Result{
		ThreadID: th.ID,
		Messages: history,
		Reply:    protocol.LastMessage(history).Content,
	}, nil
}

func (g *Graph) fail(outcome string, err error) error {
	if m := g.cfg.Metrics; m != nil {
		m.Turns.WithLabelValues(outcome).Inc()
	}
	return err
}

func (g *Graph) observeStage(stage string, since time.Time) {
	if g.cfg.Perf != nil {
		g.cfg.Perf.Observe(stage, float64(time.Since(since).Microseconds())/1000)
	}
}

// systemPrompt folds the user's current memories into the chat prompt.
func (g *Graph) systemPrompt(ctx context.Context, userID string) (string, error) {
	profile, err := renderItems(ctx, g.cfg.Store, memstore.Namespace{Category: memstore.CategoryProfile, UserID: userID})
	if err != nil {
		return "", err
	}
	todos, err := renderItems(ctx, g.cfg.Store, memstore.Namespace{Category: memstore.CategoryTodo, UserID: userID})
	if err != nil {
		return "", err
	}
	instructions, err := renderInstructions(ctx, g.cfg.Store, userID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(chatSystemPrompt, profile, todos, instructions), nil
}

func renderItems(ctx context.Context, store memstore.Store, ns memstore.Namespace) (string, error) {
	items, err := store.Search(ctx, ns)
	if err != nil {
		return "", fmt.Errorf("search %s memory: %w", ns.Category, err)
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, string(item.Value))
	}
	return strings.Join(lines, "\n"), nil
}

func renderInstructions(ctx context.Context, store memstore.Store, userID string) (string, error) {
	ns := memstore.Namespace{Category: memstore.CategoryInstructions, UserID: userID}
	item, err := store.Get(ctx, ns, instructionsKey)
	if err != nil {
		if err == memstore.ErrNotFound {
			return "", nil
		}
		return "", fmt.Errorf("get instructions memory: %w", err)
	}
	var rec extract.Instructions
	if err := json.Unmarshal(item.Value, &rec); err != nil {
		return "", fmt.Errorf("decode instructions memory: %w", err)
	}
	return rec.Memory, nil
}

// updateMemoryTool is the single tool exposed to the respond step.
func updateMemoryTool() llm.Tool {
	return llm.Tool{
		Name:        "UpdateMemory",
		Description: "Request an update of one long-term memory category.",
		InputSchema: llm.ObjectSchema(map[string]any{
			"update_type": llm.StringEnumProperty(
				"Which memory category to update.",
				string(protocol.UpdateUser), string(protocol.UpdateTodo), string(protocol.UpdateInstructions),
			),
		}, "update_type"),
	}
}

func categoryLabel(step Step) string {
	switch step {
	case StepUpdateProfile:
		return string(memstore.CategoryProfile)
	case StepUpdateTodos:
		return string(memstore.CategoryTodo)
	case StepUpdateInstructions:
		return string(memstore.CategoryInstructions)
	}
	return string(step)
}
