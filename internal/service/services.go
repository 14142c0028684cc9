// Package service holds the match lifecycle logic: queueing, the
// accept/decline vote, the ban/pick draft, live-game tracking, and the
// background jobs that keep the fast cache and the durable store agreeing.
package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/riftlane/match-backend/internal/broadcast"
	"github.com/riftlane/match-backend/internal/cache"
	"github.com/riftlane/match-backend/internal/repository"
)

type Config struct {
	TeamSize        int
	MaxRatingSpread int
	AcceptTimeout   time.Duration
	PhaseTimer      time.Duration
	TimeoutPolicy   TimeoutPolicy
}

type Services struct {
	Queue       *QueueService
	Acceptance  *AcceptanceService
	Draft       *DraftService
	Monitor     *MonitorService
	Reconciler  *Reconciler
	Broadcaster *StatusBroadcaster
}

func New(store *cache.Store, matches repository.MatchRepository, bus *broadcast.Bus,
	catalog ChampionCatalog, cfg Config, log *zap.Logger) *Services {
	strategy := &RatingBalanceStrategy{MaxRatingSpread: cfg.MaxRatingSpread}
	queue := NewQueueService(store, matches, bus, strategy, cfg.TeamSize, cfg.AcceptTimeout, log)
	monitor := NewMonitorService(store, matches, bus, log)
	return &Services{
		Queue:       queue,
		Acceptance:  NewAcceptanceService(store, matches, bus, queue, cfg.PhaseTimer, log),
		Draft:       NewDraftService(store, matches, bus, monitor, catalog, cfg.PhaseTimer, cfg.TimeoutPolicy, log),
		Monitor:     monitor,
		Reconciler:  NewReconciler(store, matches, log),
		Broadcaster: NewStatusBroadcaster(store, bus, log),
	}
}
