// Package batch feeds transcript entries through the turn loop, isolating one
// user's failure from the rest.
package batch

import (
	"context"

	"github.com/antoniostano/maistro/internal/agent"
	"github.com/antoniostano/maistro/internal/ingest"
	"github.com/antoniostano/maistro/internal/protocol"
)

// Invoker runs one conversational turn.
type Invoker interface {
	Invoke(ctx context.Context, msgs []protocol.Message, cfg agent.InvokeConfig) (*agent.Result, error)
}

// Result is the per-entry outcome of a batch run.
type Result struct {
	UserID   string
	ThreadID string
	Reply    string
	Err      error
}

// Processor runs entries sequentially, continue-on-error.
type Processor struct {
	invoker Invoker
	session string
}

func NewProcessor(invoker Invoker, session string) *Processor {
	return &Processor{invoker: invoker, session: session}
}

// Run processes every entry in order. A failed entry is recorded and the rest
// of the batch keeps going; ctx cancellation stops the batch.
func (p *Processor) Run(ctx context.Context, entries []ingest.Entry) []Result {
	out := make([]Result, 0, len(entries))
	for _, e := range entries {
		if ctx.Err() != nil {
			out = append(out, Result{UserID: e.UserID, Err: ctx.Err()})
			continue
		}
		res, err := p.invoker.Invoke(ctx, []protocol.Message{protocol.User(e.Message)}, agent.InvokeConfig{
			UserID:  e.UserID,
			Session: p.session,
		})
		if err != nil {
			out = append(out, Result{UserID: e.UserID, Err: err})
			continue
		}
		out = append(out, Result{UserID: e.UserID, ThreadID: res.ThreadID, Reply: res.Reply})
	}
	return out
}
