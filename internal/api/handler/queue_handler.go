package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/starline/queue-callback/internal/repository"
)

// QueueHandler serves read-only snapshots of tracked queue state.
type QueueHandler struct {
	repo   repository.QueueRepository
	logger *zap.Logger
}

func NewQueueHandler(repo repository.QueueRepository, logger *zap.Logger) *QueueHandler {
	return &QueueHandler{repo: repo, logger: logger}
}

// ListEntries handles GET /api/v1/queues/{name}/entries
func (h *QueueHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	entries, err := h.repo.ListEntries(r.Context(), name)
	if err != nil {
		h.logger.Error("list entries failed", zap.String("queue", name), zap.Error(err))
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"queue":   name,
		"entries": entries,
		"total":   len(entries),
	})
}

// ListMembers handles GET /api/v1/queues/{name}/members
func (h *QueueHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	members, err := h.repo.ListMembers(r.Context(), name)
	if err != nil {
		h.logger.Error("list members failed", zap.String("queue", name), zap.Error(err))
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"queue":   name,
		"members": members,
		"total":   len(members),
	})
}
