// Package memory holds an in-memory MatchRepository used by tests. It
// mirrors the behaviour of the postgres implementation, including the
// guarded status transition.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/riftlane/match-backend/internal/domain"
	"github.com/riftlane/match-backend/internal/repository"
)

type matchRepository struct {
	mu      sync.Mutex
	matches map[uuid.UUID]*domain.Match
}

func NewMatchRepository() repository.MatchRepository {
	return &matchRepository{matches: make(map[uuid.UUID]*domain.Match)}
}

func (r *matchRepository) Create(ctx context.Context, match *domain.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *match
	r.matches[match.ID] = &cp
	return nil
}

func (r *matchRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[id]
	if !ok {
		return nil, domain.ErrMatchNotFound
	}
	cp := *match
	return &cp, nil
}

func (r *matchRepository) Transition(ctx context.Context, id uuid.UUID, from []domain.MatchStatus, to domain.MatchStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[id]
	if !ok {
		return domain.ErrStaleStatus
	}
	for _, s := range from {
		if match.Status == s {
			match.Status = to
			now := time.Now()
			switch to {
			case domain.MatchStatusInProgress:
				match.StartedAt = &now
			case domain.MatchStatusCompleted, domain.MatchStatusCancelled:
				match.CompletedAt = &now
			}
			return nil
		}
	}
	return domain.ErrStaleStatus
}

func (r *matchRepository) GetByStatus(ctx context.Context, status domain.MatchStatus, limit int) ([]*domain.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Match
	for _, m := range r.matches {
		if m.Status == status {
			cp := *m
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}
