package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/riftlane/match-backend/internal/broadcast"
	"github.com/riftlane/match-backend/internal/cache"
)

// StatusBroadcaster periodically re-announces queue populations and draft
// timers. Event delivery is best-effort, so these snapshots are what keep
// clients that missed an event from drifting.
type StatusBroadcaster struct {
	store *cache.Store
	bus   *broadcast.Bus
	log   *zap.Logger
}

func NewStatusBroadcaster(store *cache.Store, bus *broadcast.Bus, log *zap.Logger) *StatusBroadcaster {
	return &StatusBroadcaster{store: store, bus: bus, log: log}
}

func (b *StatusBroadcaster) Run(ctx context.Context) error {
	regions, err := b.store.Regions(ctx)
	if err != nil {
		return err
	}
	for _, region := range regions {
		n, err := b.store.QueueLen(ctx, region)
		if err != nil || n == 0 {
			continue
		}
		_ = b.bus.Publish(ctx, broadcast.QueueStatusEvent(region, int(n)))
	}

	ids, err := b.store.DraftIDs(ctx)
	if err != nil {
		return err
	}
	for _, matchID := range ids {
		session, err := b.store.GetDraft(ctx, matchID)
		if err != nil {
			continue
		}
		if session.CurrentPhase() == nil {
			continue
		}
		_ = b.bus.Publish(ctx, broadcast.DraftTimerEvent(session))
	}
	return nil
}
