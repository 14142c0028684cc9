package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftlane/match-backend/internal/cache"
	"github.com/riftlane/match-backend/internal/domain"
	"github.com/riftlane/match-backend/internal/testutil"
)

func newTestStore(t *testing.T) *cache.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return cache.NewStore(rdb, time.Hour, time.Hour)
}

func TestStore_JoinQueueIsExclusivePerPlayer(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := testutil.NewQueueEntry().Build()
	require.NoError(t, store.JoinQueue(ctx, entry))

	err := store.JoinQueue(ctx, entry)
	assert.ErrorIs(t, err, domain.ErrAlreadyQueued)

	entries, err := store.QueueEntries(ctx, entry.Region)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_LeaveQueue(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := testutil.NewQueueEntry().Build()
	require.NoError(t, store.JoinQueue(ctx, entry))

	region, removed, err := store.LeaveQueue(ctx, entry.PlayerID)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, entry.Region, region)

	_, removed, err = store.LeaveQueue(ctx, entry.PlayerID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestStore_ProposalRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entries := []domain.QueueEntry{
		testutil.NewQueueEntry().Build(),
		testutil.NewQueueEntry().Build(),
	}
	p := domain.NewMatchProposal(uuid.New(), "euw", entries, time.Minute)
	require.NoError(t, store.SaveProposal(ctx, p))

	got, err := store.GetProposal(ctx, p.MatchID)
	require.NoError(t, err)
	assert.Equal(t, p.MatchID, got.MatchID)
	assert.Len(t, got.Responses, 2)

	require.NoError(t, store.DeleteProposal(ctx, p.MatchID))
	_, err = store.GetProposal(ctx, p.MatchID)
	assert.ErrorIs(t, err, domain.ErrProposalNotFound)
}

func TestStore_UpdateProposalAppliesMutation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := testutil.NewQueueEntry().Build()
	p := domain.NewMatchProposal(uuid.New(), "euw", []domain.QueueEntry{entry}, time.Minute)
	require.NoError(t, store.SaveProposal(ctx, p))

	updated, err := store.UpdateProposal(ctx, p.MatchID, func(p *domain.MatchProposal) error {
		p.Responses[entry.PlayerID] = domain.ResponseAccepted
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.AcceptedCount())

	got, err := store.GetProposal(ctx, p.MatchID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AcceptedCount())
}

func TestStore_UpdateAbortsWithoutWrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := testutil.NewQueueEntry().Build()
	p := domain.NewMatchProposal(uuid.New(), "euw", []domain.QueueEntry{entry}, time.Minute)
	require.NoError(t, store.SaveProposal(ctx, p))

	_, err := store.UpdateProposal(ctx, p.MatchID, func(p *domain.MatchProposal) error {
		p.Responses[entry.PlayerID] = domain.ResponseAccepted
		return domain.ErrAlreadyResponded
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyResponded)

	got, err := store.GetProposal(ctx, p.MatchID)
	require.NoError(t, err)
	assert.Zero(t, got.AcceptedCount(), "aborted update must not write")
}

func TestStore_UpdateMissingEntry(t *testing.T) {
	store := newTestStore(t)

	_, err := store.UpdateDraft(context.Background(), uuid.New(), func(s *domain.DraftSession) error {
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestStore_ScanIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := map[uuid.UUID]bool{}
	for i := 0; i < 3; i++ {
		p := domain.NewMatchProposal(uuid.New(), "euw", nil, time.Minute)
		require.NoError(t, store.SaveProposal(ctx, p))
		want[p.MatchID] = true
	}

	ids, err := store.ProposalIDs(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 3)
	for _, id := range ids {
		assert.True(t, want[id])
	}
}

func TestStore_Locks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ok, err := store.AcquireLock(ctx, "pass", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.AcquireLock(ctx, "pass", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.ReleaseLock(ctx, "pass"))
	ok, err = store.AcquireLock(ctx, "pass", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
