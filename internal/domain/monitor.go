package domain

import (
	"time"

	"github.com/google/uuid"
)

// GameMonitor is the ephemeral tracking record for a live game. The result
// reporting flow itself lives elsewhere; this record only marks that a game
// is being tracked and carries the last reported live state.
type GameMonitor struct {
	MatchID   uuid.UUID          `json:"matchId"`
	StartedAt time.Time          `json:"startedAt"`
	LiveState string             `json:"liveState"`
	Muted     map[uuid.UUID]bool `json:"muted"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

func NewGameMonitor(matchID uuid.UUID) *GameMonitor {
	now := time.Now()
	return &GameMonitor{
		MatchID:   matchID,
		StartedAt: now,
		Muted:     make(map[uuid.UUID]bool),
		UpdatedAt: now,
	}
}
