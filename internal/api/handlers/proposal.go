package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/riftlane/match-backend/internal/api/middleware"
	"github.com/riftlane/match-backend/internal/domain"
	"github.com/riftlane/match-backend/internal/service"
)

type ProposalHandler struct {
	acceptance *service.AcceptanceService
	log        *zap.Logger
}

func NewProposalHandler(acceptance *service.AcceptanceService, log *zap.Logger) *ProposalHandler {
	return &ProposalHandler{acceptance: acceptance, log: log}
}

type ProposalProgressResponse struct {
	MatchID   string    `json:"matchId"`
	Accepted  int       `json:"accepted"`
	Total     int       `json:"total"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *ProposalHandler) Accept(w http.ResponseWriter, r *http.Request) {
	playerID, matchID, ok := h.params(w, r)
	if !ok {
		return
	}

	p, err := h.acceptance.Accept(r.Context(), matchID, playerID)
	if err != nil {
		respondError(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, ProposalProgressResponse{
		MatchID:   p.MatchID.String(),
		Accepted:  p.AcceptedCount(),
		Total:     len(p.Responses),
		ExpiresAt: p.ExpiresAt,
	})
}

func (h *ProposalHandler) Decline(w http.ResponseWriter, r *http.Request) {
	playerID, matchID, ok := h.params(w, r)
	if !ok {
		return
	}

	if err := h.acceptance.Decline(r.Context(), matchID, playerID); err != nil {
		respondError(h.log, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProposalHandler) params(w http.ResponseWriter, r *http.Request) (playerID, matchID uuid.UUID, ok bool) {
	playerID, authed := middleware.GetPlayerID(r.Context())
	if !authed {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return uuid.Nil, uuid.Nil, false
	}
	matchID, err := uuid.Parse(chi.URLParam(r, "matchID"))
	if err != nil {
		respondError(h.log, w, domain.ErrValidation)
		return uuid.Nil, uuid.Nil, false
	}
	return playerID, matchID, true
}
