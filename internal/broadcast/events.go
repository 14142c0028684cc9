package broadcast

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/riftlane/match-backend/internal/domain"
)

type Topic string

const (
	TopicQueueStatus        Topic = "queue-status"
	TopicProposalFound      Topic = "proposal-found"
	TopicProposalProgress   Topic = "proposal-progress"
	TopicMatchCancelled     Topic = "match-cancelled"
	TopicDraftStarted       Topic = "draft-started"
	TopicDraftUpdated       Topic = "draft-updated"
	TopicDraftTimer         Topic = "draft-timer"
	TopicDraftConfirmation  Topic = "draft-confirmation-update"
	TopicGameReady          Topic = "game-ready"
	TopicGameEnded          Topic = "game-ended"
)

// Event is one state-change notification. Players limits fanout to the
// listed recipients; an empty list means every connected client may see it.
type Event struct {
	Topic   Topic           `json:"topic"`
	MatchID *uuid.UUID      `json:"matchId,omitempty"`
	Players []uuid.UUID     `json:"players,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	SentAt  time.Time       `json:"sentAt"`
}

func newEvent(topic Topic, matchID *uuid.UUID, players []uuid.UUID, payload interface{}) Event {
	raw, _ := json.Marshal(payload)
	return Event{
		Topic:   topic,
		MatchID: matchID,
		Players: players,
		Payload: raw,
		SentAt:  time.Now(),
	}
}

type QueueStatusPayload struct {
	Region  string `json:"region"`
	Waiting int    `json:"waiting"`
}

func QueueStatusEvent(region string, waiting int) Event {
	return newEvent(TopicQueueStatus, nil, nil, QueueStatusPayload{Region: region, Waiting: waiting})
}

type ProposalProgressPayload struct {
	Accepted  int       `json:"accepted"`
	Total     int       `json:"total"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func ProposalFoundEvent(matchID uuid.UUID, players []uuid.UUID, expiresAt time.Time) Event {
	return newEvent(TopicProposalFound, &matchID, players, ProposalProgressPayload{
		Accepted: 0, Total: len(players), ExpiresAt: expiresAt,
	})
}

func ProposalProgressEvent(p *domain.MatchProposal, players []uuid.UUID) Event {
	return newEvent(TopicProposalProgress, &p.MatchID, players, ProposalProgressPayload{
		Accepted:  p.AcceptedCount(),
		Total:     len(p.Responses),
		ExpiresAt: p.ExpiresAt,
	})
}

type MatchCancelledPayload struct {
	Reason string `json:"reason"`
}

func MatchCancelledEvent(matchID uuid.UUID, players []uuid.UUID, reason string) Event {
	return newEvent(TopicMatchCancelled, &matchID, players, MatchCancelledPayload{Reason: reason})
}

type DraftUpdatePayload struct {
	CurrentAction int               `json:"currentAction"`
	Stage         domain.DraftStage `json:"stage"`
	Team          domain.Team       `json:"team,omitempty"`
	ActionType    domain.ActionType `json:"actionType,omitempty"`
	ChampionID    string            `json:"championId,omitempty"`
	DeadlineAt    time.Time         `json:"deadlineAt,omitempty"`
}

func DraftStartedEvent(s *domain.DraftSession) Event {
	phase := s.CurrentPhase()
	return newEvent(TopicDraftStarted, &s.MatchID, s.Participants(), DraftUpdatePayload{
		CurrentAction: s.CurrentAction,
		Stage:         s.Stage,
		Team:          phase.Team,
		ActionType:    phase.ActionType,
		DeadlineAt:    phase.DeadlineAt,
	})
}

func DraftUpdatedEvent(s *domain.DraftSession, lockedChampion string) Event {
	payload := DraftUpdatePayload{
		CurrentAction: s.CurrentAction,
		Stage:         s.Stage,
		ChampionID:    lockedChampion,
	}
	if phase := s.CurrentPhase(); phase != nil {
		payload.Team = phase.Team
		payload.ActionType = phase.ActionType
		payload.DeadlineAt = phase.DeadlineAt
	}
	return newEvent(TopicDraftUpdated, &s.MatchID, s.Participants(), payload)
}

type DraftTimerPayload struct {
	CurrentAction int   `json:"currentAction"`
	RemainingMs   int64 `json:"remainingMs"`
}

func DraftTimerEvent(s *domain.DraftSession) Event {
	phase := s.CurrentPhase()
	remaining := time.Until(phase.DeadlineAt).Milliseconds()
	if remaining < 0 {
		remaining = 0
	}
	return newEvent(TopicDraftTimer, &s.MatchID, s.Participants(), DraftTimerPayload{
		CurrentAction: s.CurrentAction,
		RemainingMs:   remaining,
	})
}

type ConfirmationPayload struct {
	Confirmed    int  `json:"confirmed"`
	Total        int  `json:"total"`
	AllConfirmed bool `json:"allConfirmed"`
}

func ConfirmationEvent(s *domain.DraftSession) Event {
	return newEvent(TopicDraftConfirmation, &s.MatchID, s.Participants(), ConfirmationPayload{
		Confirmed:    s.ConfirmedCount(),
		Total:        len(s.Confirmed),
		AllConfirmed: s.AllConfirmed(),
	})
}

func GameReadyEvent(matchID uuid.UUID, players []uuid.UUID) Event {
	return newEvent(TopicGameReady, &matchID, players, nil)
}

func GameEndedEvent(matchID uuid.UUID, players []uuid.UUID) Event {
	return newEvent(TopicGameEnded, &matchID, players, nil)
}
