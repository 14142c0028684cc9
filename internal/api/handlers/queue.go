package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/riftlane/match-backend/internal/api/middleware"
	"github.com/riftlane/match-backend/internal/domain"
	"github.com/riftlane/match-backend/internal/service"
)

type QueueHandler struct {
	queue *service.QueueService
	log   *zap.Logger
}

func NewQueueHandler(queue *service.QueueService, log *zap.Logger) *QueueHandler {
	return &QueueHandler{queue: queue, log: log}
}

type JoinQueueRequest struct {
	Region string   `json:"region"`
	Lanes  []string `json:"lanes"`
	Rating int      `json:"rating"`
}

type QueueStatusResponse struct {
	Regions map[string]int `json:"regions"`
}

func (h *QueueHandler) Join(w http.ResponseWriter, r *http.Request) {
	playerID, ok := middleware.GetPlayerID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req JoinQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(h.log, w, domain.ErrValidation)
		return
	}

	lanes := make([]domain.Lane, len(req.Lanes))
	for i, l := range req.Lanes {
		lanes[i] = domain.Lane(l)
	}
	entry := domain.QueueEntry{
		PlayerID: playerID,
		Region:   req.Region,
		Lanes:    lanes,
		Rating:   req.Rating,
	}
	if err := h.queue.Join(r.Context(), entry); err != nil {
		respondError(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]bool{"queued": true})
}

func (h *QueueHandler) Leave(w http.ResponseWriter, r *http.Request) {
	playerID, ok := middleware.GetPlayerID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.queue.Leave(r.Context(), playerID); err != nil {
		respondError(h.log, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *QueueHandler) Status(w http.ResponseWriter, r *http.Request) {
	regions, err := h.queue.Status(r.Context())
	if err != nil {
		respondError(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, QueueStatusResponse{Regions: regions})
}
