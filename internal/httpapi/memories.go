package httpapi

import (
	"net/http"

	"github.com/antoniostano/maistro/internal/memstore"
)

type memoriesResponse struct {
	UserID     string                              `json:"user_id"`
	Categories map[memstore.Category][]memstoreRow `json:"categories"`
}

type memstoreRow struct {
	Key       string `json:"key"`
	Value     any    `json:"value"`
	CreatedAt any    `json:"created_at"`
	UpdatedAt any    `json:"updated_at"`
}

func (s *Server) handleListMemories(w http.ResponseWriter, r *http.Request) {
	userID := trimParam(r, "user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "invalid_user_id", "missing user id")
		return
	}
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "unavailable", "memory store not configured")
		return
	}

	out := memoriesResponse{
		UserID:     userID,
		Categories: make(map[memstore.Category][]memstoreRow, 3),
	}
	for _, category := range memstore.Categories() {
		ns := memstore.Namespace{Category: category, UserID: userID}
		items, err := s.store.Search(r.Context(), ns)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "store_error", err.Error())
			return
		}
		rows := make([]memstoreRow, 0, len(items))
		for _, item := range items {
			rows = append(rows, memstoreRow{
				Key:       item.Key,
				Value:     item.Value,
				CreatedAt: item.CreatedAt,
				UpdatedAt: item.UpdatedAt,
			})
		}
		out.Categories[category] = rows
	}
	respondJSON(w, http.StatusOK, out)
}
