package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/riftlane/match-backend/internal/domain"
	"github.com/riftlane/match-backend/internal/repository"
	"gorm.io/gorm"
)

type matchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(db *gorm.DB) repository.MatchRepository {
	return &matchRepository{db: db}
}

func (r *matchRepository) Create(ctx context.Context, match *domain.Match) error {
	return r.db.WithContext(ctx).Create(match).Error
}

func (r *matchRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Match, error) {
	var match domain.Match
	err := r.db.WithContext(ctx).First(&match, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (r *matchRepository) Transition(ctx context.Context, id uuid.UUID, from []domain.MatchStatus, to domain.MatchStatus) error {
	updates := map[string]interface{}{"status": to}
	now := time.Now()
	switch to {
	case domain.MatchStatusInProgress:
		updates["started_at"] = &now
	case domain.MatchStatusCompleted, domain.MatchStatusCancelled:
		updates["completed_at"] = &now
	}

	res := r.db.WithContext(ctx).
		Model(&domain.Match{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrStaleStatus
	}
	return nil
}

func (r *matchRepository) GetByStatus(ctx context.Context, status domain.MatchStatus, limit int) ([]*domain.Match, error) {
	var matches []*domain.Match
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Limit(limit).
		Find(&matches).Error
	return matches, err
}
