package domain

import (
	"time"

	"github.com/google/uuid"
)

type Lane string

const (
	LaneTop     Lane = "top"
	LaneJungle  Lane = "jungle"
	LaneMid     Lane = "mid"
	LaneBot     Lane = "bot"
	LaneSupport Lane = "support"
)

var AllLanes = []Lane{LaneTop, LaneJungle, LaneMid, LaneBot, LaneSupport}

func (l Lane) Valid() bool {
	for _, lane := range AllLanes {
		if l == lane {
			return true
		}
	}
	return false
}

// QueueEntry is a waiting player. A player has at most one active entry at
// a time, enforced by the cache's per-player reverse index.
type QueueEntry struct {
	PlayerID uuid.UUID `json:"playerId"`
	Region   string    `json:"region"`
	Lanes    []Lane    `json:"lanes"` // ordered preference, most preferred first
	Rating   int       `json:"rating"`
	JoinedAt time.Time `json:"joinedAt"`
}

func (e *QueueEntry) Validate() error {
	if e.PlayerID == uuid.Nil || e.Region == "" || e.Rating < 0 {
		return ErrValidation
	}
	for _, l := range e.Lanes {
		if !l.Valid() {
			return ErrValidation
		}
	}
	return nil
}
