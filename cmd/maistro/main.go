package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/antoniostano/maistro/internal/agent"
	"github.com/antoniostano/maistro/internal/batch"
	"github.com/antoniostano/maistro/internal/config"
	"github.com/antoniostano/maistro/internal/extract"
	"github.com/antoniostano/maistro/internal/httpapi"
	"github.com/antoniostano/maistro/internal/ingest"
	"github.com/antoniostano/maistro/internal/llm"
	"github.com/antoniostano/maistro/internal/memstore"
	"github.com/antoniostano/maistro/internal/observability"
	"github.com/antoniostano/maistro/internal/thread"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	perf := observability.NewTurnStageWindow(256)

	ctx := context.Background()
	store, err := memstore.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("memory store init failed: %v", err)
	}
	defer store.Close()

	completer, err := llm.NewCompleter(llm.Config{
		Mode:      cfg.LLMProvider,
		APIKey:    cfg.AnthropicAPIKey,
		Model:     cfg.LLMModel,
		MaxTokens: cfg.LLMMaxTokens,
	})
	if err != nil {
		log.Fatalf("completer init failed: %v", err)
	}
	if _, ok := completer.(*llm.MockCompleter); ok {
		log.Printf("llm provider: mock")
	} else {
		log.Printf("llm provider: anthropic (%s)", cfg.LLMModel)
	}

	profileExtractor, err := extract.NewLLMExtractor(extract.LLMConfig{
		Completer: completer,
		Tool:      extract.ProfileTool(),
	})
	if err != nil {
		log.Fatalf("profile extractor init failed: %v", err)
	}
	todoFactory := func(obs extract.Observer) extract.Extractor {
		ex, err := extract.NewLLMExtractor(extract.LLMConfig{
			Completer:     completer,
			Tool:          extract.TodoTool(),
			EnableInserts: true,
			Observer:      obs,
		})
		if err != nil {
			log.Fatalf("todo extractor init failed: %v", err)
		}
		return ex
	}

	threads := thread.NewManager(30 * time.Minute)
	graph, err := agent.New(agent.Config{
		Completer: completer,
		Store:     store,
		Threads:   threads,
		Metrics:   metrics,
		Perf:      perf,
		MaxTurns:  cfg.MaxTurns,
	},
		agent.NewProfileUpdater(store, profileExtractor),
		agent.NewTodoUpdater(store, todoFactory),
		agent.NewInstructionsUpdater(store, completer),
	)
	if err != nil {
		log.Fatalf("agent init failed: %v", err)
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	threads.StartJanitor(runCtx, 30*time.Second)

	go runTranscriptBatch(runCtx, cfg, graph, store, metrics)

	api := httpapi.New(store, metrics, perf)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}

// runTranscriptBatch feeds the configured transcript through the turn loop,
// one user message per line. A missing file is not an error; the server still
// serves the inspection API.
func runTranscriptBatch(ctx context.Context, cfg config.Config, graph *agent.Graph, store memstore.Store, metrics *observability.Metrics) {
	entries, err := ingest.LoadFile(cfg.TranscriptPath, func(lineno int, _ string) {
		metrics.IngestionSkips.Inc()
		log.Printf("ingest: skipping malformed line %d of %s", lineno, cfg.TranscriptPath)
	})
	if err != nil {
		log.Printf("transcript not loaded: %v", err)
		return
	}
	if len(entries) > cfg.BatchSize {
		entries = entries[:cfg.BatchSize]
	}
	log.Printf("ingested %d transcript entries from %s", len(entries), cfg.TranscriptPath)

	processor := batch.NewProcessor(graph, "transcript")
	users := make(map[string]bool)
	for _, res := range processor.Run(ctx, entries) {
		if res.Err != nil {
			log.Printf("batch: user %s failed: %v", res.UserID, res.Err)
			continue
		}
		users[res.UserID] = true
		log.Printf("batch: user %s: %s", res.UserID, res.Reply)
	}

	for userID := range users {
		for _, category := range memstore.Categories() {
			ns := memstore.Namespace{Category: category, UserID: userID}
			items, err := store.Search(ctx, ns)
			if err != nil {
				log.Printf("batch: reading %s memory for %s failed: %v", category, userID, err)
				continue
			}
			for _, item := range items {
				log.Printf("memory: user=%s category=%s key=%s value=%s", userID, category, item.Key, item.Value)
			}
		}
	}
}
