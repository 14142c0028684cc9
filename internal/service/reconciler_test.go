package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftlane/match-backend/internal/domain"
	"github.com/riftlane/match-backend/internal/service"
)

func TestReconciler_RemovesOrphanedEntries(t *testing.T) {
	env := newTestEnv(t, service.Config{TeamSize: 2})
	ctx := context.Background()

	// No durable row exists for any of these.
	orphanProposal := domain.NewMatchProposal(uuid.New(), "euw", nil, time.Minute)
	require.NoError(t, env.store.SaveProposal(ctx, orphanProposal))
	orphanDraft, err := domain.NewDraftSession(uuid.New(), []uuid.UUID{uuid.New()}, []uuid.UUID{uuid.New()}, nil, time.Minute)
	require.NoError(t, err)
	require.NoError(t, env.store.SaveDraft(ctx, orphanDraft))
	require.NoError(t, env.store.SaveMonitor(ctx, domain.NewGameMonitor(uuid.New())))

	removed, err := env.services.Reconciler.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	ids, err := env.store.ProposalIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestReconciler_RemovesStatusMismatches(t *testing.T) {
	env := newTestEnv(t, service.Config{TeamSize: 2})
	ctx := context.Background()

	// A completed match must not retain a draft session.
	match := &domain.Match{ID: uuid.New(), Status: domain.MatchStatusCompleted, Region: "euw"}
	require.NoError(t, env.matches.Create(ctx, match))
	session, err := domain.NewDraftSession(match.ID, []uuid.UUID{uuid.New()}, []uuid.UUID{uuid.New()}, nil, time.Minute)
	require.NoError(t, err)
	require.NoError(t, env.store.SaveDraft(ctx, session))

	// A match still in draft must not retain a monitor.
	drafting := &domain.Match{ID: uuid.New(), Status: domain.MatchStatusDraft, Region: "euw"}
	require.NoError(t, env.matches.Create(ctx, drafting))
	require.NoError(t, env.store.SaveMonitor(ctx, domain.NewGameMonitor(drafting.ID)))

	removed, err := env.services.Reconciler.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
}

func TestReconciler_LeavesConsistentState(t *testing.T) {
	env := newTestEnv(t, service.Config{TeamSize: 2})
	ctx := context.Background()

	p := env.queuePlayers(t, 2)

	removed, err := env.services.Reconciler.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)

	_, err = env.store.GetProposal(ctx, p.MatchID)
	require.NoError(t, err)
}

func TestReconciler_SecondSweepIsNoop(t *testing.T) {
	env := newTestEnv(t, service.Config{TeamSize: 2})
	ctx := context.Background()

	require.NoError(t, env.store.SaveProposal(ctx, domain.NewMatchProposal(uuid.New(), "euw", nil, time.Minute)))

	removed, err := env.services.Reconciler.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	removed, err = env.services.Reconciler.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
