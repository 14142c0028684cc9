package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/riftlane/match-backend/internal/api/middleware"
	"github.com/riftlane/match-backend/internal/domain"
	"github.com/riftlane/match-backend/internal/service"
)

type MonitorHandler struct {
	monitors *service.MonitorService
	log      *zap.Logger
}

func NewMonitorHandler(monitors *service.MonitorService, log *zap.Logger) *MonitorHandler {
	return &MonitorHandler{monitors: monitors, log: log}
}

type MuteRequest struct {
	Muted bool `json:"muted"`
}

type LiveStateRequest struct {
	State string `json:"state"`
}

type CancelGameRequest struct {
	Reason string `json:"reason"`
}

func (h *MonitorHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, matchID, ok := h.params(w, r)
	if !ok {
		return
	}

	monitor, err := h.monitors.Get(r.Context(), matchID)
	if err != nil {
		respondError(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, monitor)
}

func (h *MonitorHandler) Mute(w http.ResponseWriter, r *http.Request) {
	playerID, matchID, ok := h.params(w, r)
	if !ok {
		return
	}

	var req MuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(h.log, w, domain.ErrValidation)
		return
	}

	monitor, err := h.monitors.SetMuted(r.Context(), matchID, playerID, req.Muted)
	if err != nil {
		respondError(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, monitor)
}

func (h *MonitorHandler) ReportLiveState(w http.ResponseWriter, r *http.Request) {
	_, matchID, ok := h.params(w, r)
	if !ok {
		return
	}

	var req LiveStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(h.log, w, domain.ErrValidation)
		return
	}

	monitor, err := h.monitors.ReportLiveState(r.Context(), matchID, req.State)
	if err != nil {
		respondError(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, monitor)
}

func (h *MonitorHandler) End(w http.ResponseWriter, r *http.Request) {
	_, matchID, ok := h.params(w, r)
	if !ok {
		return
	}

	if err := h.monitors.EndGame(r.Context(), matchID); err != nil {
		respondError(h.log, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MonitorHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	_, matchID, ok := h.params(w, r)
	if !ok {
		return
	}

	var req CancelGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req.Reason = "cancelled"
	}
	if req.Reason == "" {
		req.Reason = "cancelled"
	}

	if err := h.monitors.CancelGame(r.Context(), matchID, req.Reason); err != nil {
		respondError(h.log, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MonitorHandler) params(w http.ResponseWriter, r *http.Request) (playerID, matchID uuid.UUID, ok bool) {
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
