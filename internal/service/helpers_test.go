package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/riftlane/match-backend/internal/broadcast"
	"github.com/riftlane/match-backend/internal/cache"
	"github.com/riftlane/match-backend/internal/domain"
	"github.com/riftlane/match-backend/internal/repository"
	"github.com/riftlane/match-backend/internal/repository/memory"
	"github.com/riftlane/match-backend/internal/service"
)

type testEnv struct {
	store    *cache.Store
	matches  repository.MatchRepository
	services *service.Services
	redis    *miniredis.Miniredis
}

func newTestEnv(t *testing.T, cfg service.Config) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store := cache.NewStore(rdb, time.Hour, time.Hour)
	matches := memory.NewMatchRepository()
	bus := broadcast.NewBus(rdb, zap.NewNop())
	catalog := service.StaticCatalog{
		"aatrox", "ahri", "akali", "ashe", "braum", "caitlyn",
		"darius", "ezreal", "garen", "janna", "jinx", "kaisa",
	}

	if cfg.TeamSize == 0 {
		cfg.TeamSize = 2
	}
	if cfg.AcceptTimeout == 0 {
		cfg.AcceptTimeout = 30 * time.Second
	}
	if cfg.PhaseTimer == 0 {
		cfg.PhaseTimer = 30 * time.Second
	}

	return &testEnv{
		store:    store,
		matches:  matches,
		services: service.New(store, matches, bus, catalog, cfg, zap.NewNop()),
		redis:    mr,
	}
}

// queuePlayers joins 2*teamSize close-rated players and runs the match
// pass, returning the resulting proposal.
func (env *testEnv) queuePlayers(t *testing.T, teamSize int) *domain.MatchProposal {
	t.Helper()
	ctx := context.Background()

	for i := 0; i < 2*teamSize; i++ {
		entry := domain.QueueEntry{
			PlayerID: uuid.New(),
			Region:   "euw",
			Lanes:    []domain.Lane{domain.AllLanes[i%len(domain.AllLanes)]},
			Rating:   1500 + i*10,
			JoinedAt: time.Now(),
		}
		require.NoError(t, env.services.Queue.Join(ctx, entry))
	}
	require.NoError(t, env.services.Queue.RunMatchPass(ctx))

	ids, err := env.store.ProposalIDs(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	p, err := env.store.GetProposal(ctx, ids[0])
	require.NoError(t, err)
	return p
}

// acceptAll drives the proposal to full acceptance and returns the draft
// session that it spawned.
func (env *testEnv) acceptAll(t *testing.T, p *domain.MatchProposal) *domain.DraftSession {
	t.Helper()
	ctx := context.Background()

	for playerID := range p.Responses {
		_, err := env.services.Acceptance.Accept(ctx, p.MatchID, playerID)
		require.NoError(t, err)
	}

	session, err := env.store.GetDraft(ctx, p.MatchID)
	require.NoError(t, err)
	return session
}

// runDraft locks every remaining phase with distinct champions.
func (env *testEnv) runDraft(t *testing.T, session *domain.DraftSession, champions []string) *domain.DraftSession {
	t.Helper()
	ctx := context.Background()

	current := session
	for current.Stage != domain.DraftStageCompleted {
		phase := current.CurrentPhase()
		require.NotNil(t, phase)

		next, err := env.services.Draft.SubmitAction(ctx, current.MatchID, phase.ActorID,
			champions[phase.Index], phase.ActionType, phase.Index)
		require.NoError(t, err)
		current = next
	}
	return current
}

// expireCurrentPhase rewinds the current phase deadline into the past.
func (env *testEnv) expireCurrentPhase(t *testing.T, matchID uuid.UUID) {
	t.Helper()
	_, err := env.store.UpdateDraft(context.Background(), matchID, func(s *domain.DraftSession) error {
		s.Phases[s.CurrentAction].DeadlineAt = time.Now().Add(-time.Second)
		return nil
	})
	require.NoError(t, err)
}

// expireProposal rewinds the proposal deadline into the past.
func (env *testEnv) expireProposal(t *testing.T, matchID uuid.UUID) {
	t.Helper()
	_, err := env.store.UpdateProposal(context.Background(), matchID, func(p *domain.MatchProposal) error {
		p.ExpiresAt = time.Now().Add(-time.Second)
		return nil
	})
	require.NoError(t, err)
}

func (env *testEnv) matchStatus(t *testing.T, matchID uuid.UUID) domain.MatchStatus {
	t.Helper()
	match, err := env.matches.GetByID(context.Background(), matchID)
	require.NoError(t, err)
	return match.Status
}
