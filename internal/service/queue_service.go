package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/riftlane/match-backend/internal/broadcast"
	"github.com/riftlane/match-backend/internal/cache"
	"github.com/riftlane/match-backend/internal/domain"
	"github.com/riftlane/match-backend/internal/repository"
)

const matchPassLock = "matchpass"

// QueueService manages the waiting pool and periodically forms matches
// out of it.
type QueueService struct {
	store         *cache.Store
	matches       repository.MatchRepository
	bus           *broadcast.Bus
	strategy      MatchStrategy
	teamSize      int
	acceptTimeout time.Duration
	log           *zap.Logger
}

func NewQueueService(store *cache.Store, matches repository.MatchRepository, bus *broadcast.Bus,
	strategy MatchStrategy, teamSize int, acceptTimeout time.Duration, log *zap.Logger) *QueueService {
	return &QueueService{
		store:         store,
		matches:       matches,
		bus:           bus,
		strategy:      strategy,
		teamSize:      teamSize,
		acceptTimeout: acceptTimeout,
		log:           log,
	}
}

func (q *QueueService) Join(ctx context.Context, entry domain.QueueEntry) error {
	if entry.JoinedAt.IsZero() {
		entry.JoinedAt = time.Now()
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	if err := q.store.JoinQueue(ctx, entry); err != nil {
		return err
	}
	q.publishQueueStatus(ctx, entry.Region)
	return nil
}

func (q *QueueService) Leave(ctx context.Context, playerID uuid.UUID) error {
	region, removed, err := q.store.LeaveQueue(ctx, playerID)
	if err != nil {
		return err
	}
	if removed {
		q.publishQueueStatus(ctx, region)
	}
	return nil
}

// Requeue puts players back into the pool after a cancelled match,
// keeping their original join time so they do not lose their place.
func (q *QueueService) Requeue(ctx context.Context, entries []domain.QueueEntry) {
	regions := map[string]bool{}
	for _, e := range entries {
		if err := q.store.JoinQueue(ctx, e); err != nil && !errors.Is(err, domain.ErrAlreadyQueued) {
			q.log.Warn("requeue failed",
				zap.String("playerId", e.PlayerID.String()),
				zap.Error(err))
			continue
		}
		regions[e.Region] = true
	}
	for region := range regions {
		q.publishQueueStatus(ctx, region)
	}
}

// Status reports the number of waiting players per region.
func (q *QueueService) Status(ctx context.Context) (map[string]int, error) {
	regions, err := q.store.Regions(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(regions))
	for _, region := range regions {
		n, err := q.store.QueueLen(ctx, region)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			out[region] = int(n)
		}
	}
	return out, nil
}

// RunMatchPass scans every region for formable groups under a cross-process
// lock. Two processes running the pass at once would each consume the same
// queue entries, so the lock is load-bearing, not an optimisation.
func (q *QueueService) RunMatchPass(ctx context.Context) error {
	ok, err := q.store.AcquireLock(ctx, matchPassLock, 10*time.Second)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	defer func() { _ = q.store.ReleaseLock(ctx, matchPassLock) }()

	regions, err := q.store.Regions(ctx)
	if err != nil {
		return err
	}
	for _, region := range regions {
		entries, err := q.store.QueueEntries(ctx, region)
		if err != nil {
			q.log.Warn("match pass skipping region", zap.String("region", region), zap.Error(err))
			continue
		}
		for _, group := range q.strategy.FormGroups(entries, q.teamSize) {
			if err := q.createMatch(ctx, region, group); err != nil {
				q.log.Error("match creation failed", zap.String("region", region), zap.Error(err))
			}
		}
	}
	return nil
}

// createMatch writes the durable row first, then the proposal, then removes
// the consumed queue entries. A crash in between leaves either a phantom
// row with no proposal (reaped by status, never by the reconciler) or
// players both queued and proposed; the proposal's per-player response map
// makes the latter harmless.
func (q *QueueService) createMatch(ctx context.Context, region string, group Group) error {
	entries := append(append([]domain.QueueEntry{}, group.Blue...), group.Red...)
	bluePlayers := playerIDs(group.Blue)
	redPlayers := playerIDs(group.Red)

	match := &domain.Match{
		ID:       uuid.New(),
		Status:   domain.MatchStatusFound,
		Region:   region,
		BlueTeam: domain.MarshalRoster(bluePlayers),
		RedTeam:  domain.MarshalRoster(redPlayers),
	}
	if err := q.matches.Create(ctx, match); err != nil {
		return err
	}

	proposal := domain.NewMatchProposal(match.ID, region, entries, q.acceptTimeout)
	if err := q.store.SaveProposal(ctx, proposal); err != nil {
		return err
	}
	if err := q.matches.Transition(ctx, match.ID,
		[]domain.MatchStatus{domain.MatchStatusFound}, domain.MatchStatusAccepting); err != nil {
		return err
	}

	all := append(append([]uuid.UUID{}, bluePlayers...), redPlayers...)
	if err := q.store.RemoveEntries(ctx, region, all); err != nil {
		q.log.Warn("removing consumed queue entries failed",
			zap.String("matchId", match.ID.String()), zap.Error(err))
	}

	q.log.Info("match proposed",
		zap.String("matchId", match.ID.String()),
		zap.String("region", region),
		zap.Int("players", len(all)))
	_ = q.bus.Publish(ctx, broadcast.ProposalFoundEvent(match.ID, all, proposal.ExpiresAt))
	q.publishQueueStatus(ctx, region)
	return nil
}

// publishQueueStatus announces the region's population, but stays silent
// when the queue is empty so idle clients are not woken.
func (q *QueueService) publishQueueStatus(ctx context.Context, region string) {
	n, err := q.store.QueueLen(ctx, region)
	if err != nil || n == 0 {
		return
	}
	_ = q.bus.Publish(ctx, broadcast.QueueStatusEvent(region, int(n)))
}

func playerIDs(entries []domain.QueueEntry) []uuid.UUID {
	out := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		out[i] = e.PlayerID
	}
	return out
}
