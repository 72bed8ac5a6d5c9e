package agent

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/antoniostano/maistro/internal/extract"
	"github.com/antoniostano/maistro/internal/llm"
	"github.com/antoniostano/maistro/internal/memstore"
	"github.com/antoniostano/maistro/internal/protocol"
	"github.com/antoniostano/maistro/internal/thread"
)

type graphFixture struct {
	graph     *Graph
	completer *llm.MockCompleter
	store     *memstore.InMemoryStore
	todoEx    *extract.MockExtractor
	profileEx *extract.MockExtractor
}

func newGraphFixture(t *testing.T) *graphFixture {
	t.Helper()
	completer := llm.NewMockCompleter()
	store := memstore.NewInMemoryStore()
	profileEx := extract.NewMockExtractor()
	todoEx := extract.NewMockExtractor()

	g, err := New(Config{
		Completer: completer,
		Store:     store,
		Threads:   thread.NewManager(time.Minute),
		MaxTurns:  5,
	},
		NewProfileUpdater(store, profileEx),
		NewTodoUpdater(store, func(extract.Observer) extract.Extractor { return todoEx }),
		NewInstructionsUpdater(store, completer),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &graphFixture{graph: g, completer: completer, store: store, todoEx: todoEx, profileEx: profileEx}
}

func TestInvokeTerminatesWithoutUpdates(t *testing.T) {
	f := newGraphFixture(t)
	f.completer.Enqueue(protocol.Assistant("hello there"))

	res, err := f.graph.Invoke(context.Background(), []protocol.Message{protocol.User("hi")}, InvokeConfig{UserID: "alice"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if res.Reply != "hello there" {
		t.Fatalf("Reply = %q, want %q", res.Reply, "hello there")
	}
	// user message plus one assistant message, nothing appended after.
	if len(res.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(res.Messages))
	}
	if len(f.completer.Requests()) != 1 {
		t.Fatalf("completer calls = %d, want 1", len(f.completer.Requests()))
	}
}

func TestInvokeRequiresUserID(t *testing.T) {
	f := newGraphFixture(t)
	if _, err := f.graph.Invoke(context.Background(), nil, InvokeConfig{}); err == nil {
		t.Fatalf("Invoke() error = nil, want missing user id error")
	}
}

func TestInvokeCorrelatesConcurrentAcks(t *testing.T) {
	f := newGraphFixture(t)
	f.completer.Enqueue(
		protocol.Assistant("",
			protocol.UpdateRequest("c1", protocol.UpdateUser),
			protocol.UpdateRequest("c2", protocol.UpdateTodo),
		),
		protocol.Assistant("noted!"),
	)

	res, err := f.graph.Invoke(context.Background(), []protocol.Message{
		protocol.User("remind me to call Bob and update my name"),
	}, InvokeConfig{UserID: "alice"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	byCallID := make(map[string]string)
	for _, m := range res.Messages {
		if m.Role == protocol.RoleTool {
			byCallID[m.ToolCallID] = m.Content
		}
	}
	if len(byCallID) != 2 {
		t.Fatalf("tool acks = %d, want 2", len(byCallID))
	}
	if byCallID["c1"] != "updated profile" {
		t.Fatalf("ack for c1 = %q, want %q", byCallID["c1"], "updated profile")
	}
	if byCallID["c2"] != "updated todos" {
		t.Fatalf("ack for c2 = %q, want %q", byCallID["c2"], "updated todos")
	}
	if res.Reply != "noted!" {
		t.Fatalf("Reply = %q, want %q", res.Reply, "noted!")
	}
}

func TestInvokeBuyMilkScenario(t *testing.T) {
	f := newGraphFixture(t)
	ctx := context.Background()

	milkNew, _ := json.Marshal(map[string]string{"task": "buy milk", "status": "not started"})
	milkDone, _ := json.Marshal(map[string]string{"task": "buy milk", "status": "done"})
	f.todoEx.Enqueue(
		extract.Result{Responses: []json.RawMessage{milkNew}, Metadata: []extract.ResponseMeta{{DocID: "milk-1"}}},
		extract.Result{Responses: []json.RawMessage{milkDone}, Metadata: []extract.ResponseMeta{{DocID: "milk-1"}}},
	)

	f.completer.Enqueue(
		protocol.Assistant("", protocol.UpdateRequest("c1", protocol.UpdateTodo)),
		protocol.Assistant("Added buy milk to your list."),
	)
	res, err := f.graph.Invoke(ctx, []protocol.Message{protocol.User("remind me to buy milk")}, InvokeConfig{UserID: "u42"})
	if err != nil {
		t.Fatalf("first Invoke() error = %v", err)
	}

	ns := memstore.Namespace{Category: memstore.CategoryTodo, UserID: "u42"}
	items, err := f.store.Search(ctx, ns)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(items) != 1 || !strings.Contains(string(items[0].Value), "buy milk") {
		t.Fatalf("after turn 1: items = %+v, want one buy-milk record", items)
	}

	f.completer.Enqueue(
		protocol.Assistant("", protocol.UpdateRequest("c2", protocol.UpdateTodo)),
		protocol.Assistant("Marked it done."),
	)
	res2, err := f.graph.Invoke(ctx, []protocol.Message{
		protocol.User("actually I already bought it, mark it done"),
	}, InvokeConfig{UserID: "u42"})
	if err != nil {
		t.Fatalf("second Invoke() error = %v", err)
	}
	if res2.ThreadID != res.ThreadID {
		t.Fatalf("thread = %q, want resumed %q", res2.ThreadID, res.ThreadID)
	}
	if len(res2.Messages) <= len(res.Messages) {
		t.Fatalf("turn 2 history (%d messages) should extend turn 1 (%d)", len(res2.Messages), len(res.Messages))
	}

	items, err = f.store.Search(ctx, ns)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("after turn 2: %d records, want the same single record", len(items))
	}
	if items[0].Key != "milk-1" || !strings.Contains(string(items[0].Value), "done") {
		t.Fatalf("after turn 2: record = %+v, want milk-1 marked done", items[0])
	}
}

func TestInvokeIsolatesThreadsPerUser(t *testing.T) {
	f := newGraphFixture(t)
	ctx := context.Background()

	f.completer.Enqueue(protocol.Assistant("hi alice"), protocol.Assistant("hi bob"))
	resA, err := f.graph.Invoke(ctx, []protocol.Message{protocol.User("hello")}, InvokeConfig{UserID: "alice"})
	if err != nil {
		t.Fatalf("Invoke(alice) error = %v", err)
	}
	resB, err := f.graph.Invoke(ctx, []protocol.Message{protocol.User("hello")}, InvokeConfig{UserID: "bob"})
	if err != nil {
		t.Fatalf("Invoke(bob) error = %v", err)
	}
	if resA.ThreadID == resB.ThreadID {
		t.Fatalf("threads should differ per user, both %q", resA.ThreadID)
	}
	if len(resB.Messages) != 2 {
		t.Fatalf("bob's history = %d messages, want fresh thread with 2", len(resB.Messages))
	}
}

func TestInvokeFoldsMemoriesIntoSystemPrompt(t *testing.T) {
	f := newGraphFixture(t)
	ctx := context.Background()

	ns := memstore.Namespace{Category: memstore.CategoryTodo, UserID: "alice"}
	value, _ := json.Marshal(map[string]string{"task": "buy milk", "status": "not started"})
	if err := f.store.Put(ctx, ns, "milk-1", value); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	f.completer.Enqueue(protocol.Assistant("you still need milk"))
	if _, err := f.graph.Invoke(ctx, []protocol.Message{protocol.User("what's on my list?")}, InvokeConfig{UserID: "alice"}); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	reqs := f.completer.Requests()
	if len(reqs) != 1 {
		t.Fatalf("completer calls = %d, want 1", len(reqs))
	}
	if !strings.Contains(reqs[0].System, "buy milk") {
		t.Fatalf("system prompt missing stored todo:\n%s", reqs[0].System)
	}
	if len(reqs[0].Tools) != 1 || reqs[0].Tools[0].Name != "UpdateMemory" {
		t.Fatalf("respond step tools = %+v, want the UpdateMemory tool", reqs[0].Tools)
	}
}

func TestInvokeFailsWhenLoopNeverTerminates(t *testing.T) {
	f := newGraphFixture(t)
	for i := 0; i < 5; i++ {
		f.completer.Enqueue(protocol.Assistant("", protocol.UpdateRequest("c1", protocol.UpdateTodo)))
	}

	_, err := f.graph.Invoke(context.Background(), []protocol.Message{protocol.User("loop")}, InvokeConfig{UserID: "alice"})
	if err == nil || !strings.Contains(err.Error(), "did not terminate") {
		t.Fatalf("Invoke() error = %v, want loop budget error", err)
	}
}
