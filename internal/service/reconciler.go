package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/riftlane/match-backend/internal/cache"
	"github.com/riftlane/match-backend/internal/domain"
	"github.com/riftlane/match-backend/internal/repository"
)

// Reconciler purges phantom cache entries: ephemeral state whose durable
// match row is missing or in a status the entry is incompatible with. Such
// state arises from crashes between the two stores. The durable store is
// authoritative, so the cache side always loses.
type Reconciler struct {
	store   *cache.Store
	matches repository.MatchRepository
	log     *zap.Logger
}

func NewReconciler(store *cache.Store, matches repository.MatchRepository, log *zap.Logger) *Reconciler {
	return &Reconciler{store: store, matches: matches, log: log}
}

// bucket maps one cache entry kind to the match statuses it may coexist
// with.
type bucket struct {
	name       string
	compatible []domain.MatchStatus
	ids        func(context.Context) ([]uuid.UUID, error)
	delete     func(context.Context, uuid.UUID) error
}

func (r *Reconciler) buckets() []bucket {
	return []bucket{
		{
			name:       "proposal",
			compatible: []domain.MatchStatus{domain.MatchStatusFound, domain.MatchStatusAccepting},
			ids:        r.store.ProposalIDs,
			delete:     r.store.DeleteProposal,
		},
		{
			name:       "draft",
			compatible: []domain.MatchStatus{domain.MatchStatusAccepted, domain.MatchStatusDraft},
			ids:        r.store.DraftIDs,
			delete:     r.store.DeleteDraft,
		},
		{
			name:       "monitor",
			compatible: []domain.MatchStatus{domain.MatchStatusInProgress},
			ids:        r.store.MonitorIDs,
			delete:     r.store.DeleteMonitor,
		},
	}
}

func (r *Reconciler) Run(ctx context.Context) error {
	_, err := r.Sweep(ctx)
	return err
}

// Sweep walks every bucket once and returns the number of entries removed.
// Idempotent: a second pass over a quiet system removes nothing.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	removed := 0
	for _, b := range r.buckets() {
		ids, err := b.ids(ctx)
		if err != nil {
			return removed, err
		}
		for _, matchID := range ids {
			phantom, status, err := r.isPhantom(ctx, matchID, b.compatible)
			if err != nil {
				r.log.Warn("reconciliation lookup failed",
					zap.String("bucket", b.name),
					zap.String("matchId", matchID.String()),
					zap.Error(err))
				continue
			}
			if !phantom {
				continue
			}
			if err := b.delete(ctx, matchID); err != nil {
				r.log.Warn("removing phantom entry failed",
					zap.String("bucket", b.name),
					zap.String("matchId", matchID.String()),
					zap.Error(err))
				continue
			}
			removed++
			r.log.Warn("removed phantom cache entry",
				zap.String("bucket", b.name),
				zap.String("matchId", matchID.String()),
				zap.String("matchStatus", string(status)))
		}
	}
	return removed, nil
}

func (r *Reconciler) isPhantom(ctx context.Context, matchID uuid.UUID, compatible []domain.MatchStatus) (bool, domain.MatchStatus, error) {
	match, err := r.matches.GetByID(ctx, matchID)
	if errors.Is(err, domain.ErrMatchNotFound) {
		return true, "", nil
	}
	if err != nil {
		return false, "", err
	}
	for _, s := range compatible {
		if match.Status == s {
			return false, match.Status, nil
		}
	}
	return true, match.Status, nil
}
