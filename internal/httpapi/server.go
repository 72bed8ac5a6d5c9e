// Package httpapi exposes a read-only inspection surface over the memory
// store and perf counters. Turns themselves are invoked in-process, not over
// the wire.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/antoniostano/maistro/internal/memstore"
	"github.com/antoniostano/maistro/internal/observability"
)

type Server struct {
	store   memstore.Store
	perf    *observability.TurnStageWindow
	metrics *observability.Metrics
}

func New(store memstore.Store, metrics *observability.Metrics, perf *observability.TurnStageWindow) *Server {
	return &Server{store: store, metrics: metrics, perf: perf}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Get("/v1/users/{user_id}/memories", s.handleListMemories)
	r.Get("/v1/perf/turns", s.handlePerfTurns)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":           "ready",
		"store_configured": s.store != nil,
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func trimParam(r *http.Request, name string) string {
	return strings.TrimSpace(chi.URLParam(r, name))
}
