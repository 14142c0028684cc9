package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/riftlane/match-backend/internal/domain"
)

// MatchRepository is the durable, crash-persistent match store. It is the
// sole arbiter of which ephemeral cache state may exist for a match id.
type MatchRepository interface {
	Create(ctx context.Context, match *domain.Match) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Match, error)
	// Transition moves the match from one of the given statuses to the
	// target status in a single guarded update. It returns
	// domain.ErrStaleStatus when the row is no longer in any of the from
	// statuses, which callers use to detect a concurrent resolution.
	Transition(ctx context.Context, id uuid.UUID, from []domain.MatchStatus, to domain.MatchStatus) error
	GetByStatus(ctx context.Context, status domain.MatchStatus, limit int) ([]*domain.Match, error)
}
