package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type MatchStatus string

const (
	MatchStatusFound      MatchStatus = "match_found"
	MatchStatusAccepting  MatchStatus = "accepting"
	MatchStatusAccepted   MatchStatus = "accepted"
	MatchStatusDraft      MatchStatus = "draft"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
	MatchStatusCancelled  MatchStatus = "cancelled"
)

// Match is the durable record of a match's existence. Its status decides
// which ephemeral cache entry (proposal, draft session, game monitor) is
// allowed to exist for the match id.
type Match struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	Status      MatchStatus    `json:"status" gorm:"not null;index"`
	Region      string         `json:"region" gorm:"not null"`
	BlueTeam    datatypes.JSON `json:"blueTeam" gorm:"type:jsonb;default:'[]'"`
	RedTeam     datatypes.JSON `json:"redTeam" gorm:"type:jsonb;default:'[]'"`
	CreatedAt   time.Time      `json:"createdAt"`
	StartedAt   *time.Time     `json:"startedAt"`
	CompletedAt *time.Time     `json:"completedAt"`
}

// Terminal reports whether the match can no longer change status.
func (s MatchStatus) Terminal() bool {
	return s == MatchStatusCompleted || s == MatchStatusCancelled
}

func MarshalRoster(players []uuid.UUID) datatypes.JSON {
	raw, _ := json.Marshal(players)
	return raw
}

func UnmarshalRoster(raw datatypes.JSON) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var players []uuid.UUID
	if err := json.Unmarshal(raw, &players); err != nil {
		return nil, err
	}
	return players, nil
}

// Rosters returns the ordered blue and red player lists.
func (m *Match) Rosters() ([]uuid.UUID, []uuid.UUID, error) {
	blue, err := UnmarshalRoster(m.BlueTeam)
	if err != nil {
		return nil, nil, err
	}
	red, err := UnmarshalRoster(m.RedTeam)
	if err != nil {
		return nil, nil, err
	}
	return blue, red, nil
}
