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

type DraftHandler struct {
	drafts *service.DraftService
	log    *zap.Logger
}

func NewDraftHandler(drafts *service.DraftService, log *zap.Logger) *DraftHandler {
	return &DraftHandler{drafts: drafts, log: log}
}

type SubmitActionRequest struct {
	ActionIndex int    `json:"actionIndex"`
	ActionType  string `json:"actionType"`
	ChampionID  string `json:"championId"`
}

type ChangePickRequest struct {
	ChampionID string `json:"championId"`
}

func (h *DraftHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, matchID, ok := h.params(w, r)
	if !ok {
		return
	}

	session, err := h.drafts.GetSession(r.Context(), matchID)
	if err != nil {
		respondError(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (h *DraftHandler) SubmitAction(w http.ResponseWriter, r *http.Request) {
	playerID, matchID, ok := h.params(w, r)
	if !ok {
		return
	}

	var req SubmitActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(h.log, w, domain.ErrValidation)
		return
	}

	session, err := h.drafts.SubmitAction(r.Context(), matchID, playerID,
		req.ChampionID, domain.ActionType(req.ActionType), req.ActionIndex)
	if err != nil {
		respondError(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (h *DraftHandler) ChangePick(w http.ResponseWriter, r *http.Request) {
	playerID, matchID, ok := h.params(w, r)
	if !ok {
		return
	}

	var req ChangePickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(h.log, w, domain.ErrValidation)
		return
	}

	session, err := h.drafts.ChangePick(r.Context(), matchID, playerID, req.ChampionID)
	if err != nil {
		respondError(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (h *DraftHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	playerID, matchID, ok := h.params(w, r)
	if !ok {
		return
	}

	session, err := h.drafts.Confirm(r.Context(), matchID, playerID)
	if err != nil {
		respondError(h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (h *DraftHandler) params(w http.ResponseWriter, r *http.Request) (playerID, matchID uuid.UUID, ok bool) {
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
