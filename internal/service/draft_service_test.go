package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftlane/match-backend/internal/domain"
	"github.com/riftlane/match-backend/internal/service"
	"github.com/riftlane/match-backend/internal/testutil"
)

// startDraft forms a 2v2 match and drives it to a live draft session.
func startDraft(t *testing.T, env *testEnv) *domain.DraftSession {
	t.Helper()
	p := env.queuePlayers(t, 2)
	return env.acceptAll(t, p)
}

func TestDraftService_PhaseOrderForSmallTeams(t *testing.T) {
	env := newTestEnv(t, service.Config{TeamSize: 2})
	session := startDraft(t, env)

	require.Len(t, session.Phases, 6)
	assert.Equal(t, domain.ActionTypeBan, session.Phases[0].ActionType)
	assert.Equal(t, domain.TeamBlue, session.Phases[0].Team)
	assert.Equal(t, domain.ActionTypeBan, session.Phases[1].ActionType)
	assert.Equal(t, domain.TeamRed, session.Phases[1].Team)
	for _, p := range session.Phases[2:] {
		assert.Equal(t, domain.ActionTypePick, p.ActionType)
	}
}

func TestDraftService_SubmitOutOfTurn(t *testing.T) {
	env := newTestEnv(t, service.Config{TeamSize: 2})
	session := startDraft(t, env)
	ctx := context.Background()

	// Phase 0 belongs to blue; a red participant may not act.
	redActor := session.RedTeam[0]
	_, err := env.services.Draft.SubmitAction(ctx, session.MatchID, redActor,
		"aatrox", domain.ActionTypeBan, 0)
	assert.ErrorIs(t, err, domain.ErrWrongTurn)

	// Submitting a future unlocked phase is also out of turn.
	_, err = env.services.Draft.SubmitAction(ctx, session.MatchID, redActor,
		"aatrox", domain.ActionTypeBan, 1)
	assert.ErrorIs(t, err, domain.ErrWrongTurn)

	// Neither attempt advanced anything.
	got, err := env.services.Draft.GetSession(ctx, session.MatchID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentAction)
	assert.False(t, got.Phases[0].Locked)
}

func TestDraftService_NonParticipantRejected(t *testing.T) {
	env := newTestEnv(t, service.Config{TeamSize: 2})
	session := startDraft(t, env)

	outsider := testutil.Roster(1)[0]
	_, err := env.services.Draft.SubmitAction(context.Background(), session.MatchID, outsider,
		"aatrox", domain.ActionTypeBan, 0)
	assert.ErrorIs(t, err, domain.ErrNotParticipant)
}

func TestDraftService_ResubmitLockedPhase(t *testing.T) {
	env := newTestEnv(t, service.Config{TeamSize: 2})
	session := startDraft(t, env)
	ctx := context.Background()

	actor := session.Phases[0].ActorID
	_, err := env.services.Draft.SubmitAction(ctx, session.MatchID, actor,
		"aatrox", domain.ActionTypeBan, 0)
	require.NoError(t, err)

	// A client retry of the same action index reports the lock instead of
	// consuming the next phase.
	_, err = env.services.Draft.SubmitAction(ctx, session.MatchID, actor,
		"aatrox", domain.ActionTypeBan, 0)
	assert.ErrorIs(t, err, domain.ErrAlreadyLocked)

	got, err := env.services.Draft.GetSession(ctx, session.MatchID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentAction)
}

func TestDraftService_ChampionAvailability(t *testing.T) {
	env := newTestEnv(t, service.Config{TeamSize: 2})
	session := startDraft(t, env)
	ctx := context.Background()

	submit := func(index int, champion string) error {
		_, err := env.services.Draft.SubmitAction(ctx, session.MatchID,
			session.Phases[index].ActorID, champion, session.Phases[index].ActionType, index)
		return err
	}

	// Both teams may ban the same champion.
	require.NoError(t, submit(0, "aatrox"))
	require.NoError(t, submit(1, "aatrox"))

	// A banned champion cannot be picked.
	err := submit(2, "aatrox")
	assert.ErrorIs(t, err, domain.ErrChampionUnavailable)

	require.NoError(t, submit(2, "ahri"))

	// A picked champion cannot be picked again, by either team.
	err = submit(3, "ahri")
	assert.ErrorIs(t, err, domain.ErrChampionUnavailable)
	require.NoError(t, submit(3, "ashe"))
}

func TestDraftService_MismatchedActionType(t *testing.T) {
	env := newTestEnv(t, service.Config{TeamSize: 2})
	session := startDraft(t, env)

	_, err := env.services.Draft.SubmitAction(context.Background(), session.MatchID,
		session.Phases[0].ActorID, "aatrox", domain.ActionTypePick, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDraftService_FullFlowToGameStart(t *testing.T) {
	env := newTestEnv(t, service.Config{TeamSize: 2})
	session := startDraft(t, env)
	ctx := context.Background()

	completed := env.runDraft(t, session, testutil.Champions(6))
	assert.Equal(t, domain.DraftStageCompleted, completed.Stage)
	assert.Nil(t, completed.CurrentPhase())

	for i, playerID := range completed.Participants() {
		got, err := env.services.Draft.Confirm(ctx, completed.MatchID, playerID)
		require.NoError(t, err)
		assert.Equal(t, i+1, got.ConfirmedCount())
	}

	assert.Equal(t, domain.MatchStatusInProgress, env.matchStatus(t, completed.MatchID))

	monitor, err := env.services.Monitor.Get(ctx, completed.MatchID)
	require.NoError(t, err)
	assert.Equal(t, completed.MatchID, monitor.MatchID)

	// The confirmed draft session is retired.
	_, err = env.services.Draft.GetSession(ctx, completed.MatchID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestDraftService_ConfirmBeforeCompletion(t *testing.T) {
	env := newTestEnv(t, service.Config{TeamSize: 2})
	session := startDraft(t, env)

	_, err := env.services.Draft.Confirm(context.Background(), session.MatchID, session.BlueTeam[0])
	assert.ErrorIs(t, err, domain.ErrDraftNotComplete)
}

func TestDraftService_ChangePick(t *testing.T) {
	env := newTestEnv(t, service.Config{TeamSize: 2})
	session := startDraft(t, env)
	ctx := context.Background()

	completed := env.runDraft(t, session, testutil.Champions(6))

	// All but one player confirm, then the first changes their mind.
	participants := completed.Participants()
	for _, playerID := range participants[:len(participants)-1] {
		_, err := env.services.Draft.Confirm(ctx, completed.MatchID, playerID)
		require.NoError(t, err)
	}

	changer := completed.BlueTeam[0]
	changed, err := env.services.Draft.ChangePick(ctx, completed.MatchID, changer, "zed")
	require.NoError(t, err)

	idx := changed.PickPhaseIndex(changer)
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "zed", changed.Phases[idx].ChampionID)

	// Only the changer's confirmation was cleared; the other confirmed
	// players keep theirs.
	assert.False(t, changed.Confirmed[changer])
	assert.Equal(t, len(participants)-2, changed.ConfirmedCount())
}

func TestDraftService_ChangePickToTakenChampion(t *testing.T) {
	env := newTestEnv(t, service.Config{TeamSize: 2})
	session := startDraft(t, env)
	ctx := context.Background()

	champions := testutil.Champions(6)
	completed := env.runDraft(t, session, champions)

	changer := completed.BlueTeam[0]
	otherIdx := completed.PickPhaseIndex(completed.RedTeam[0])
	require.GreaterOrEqual(t, otherIdx, 0)

	_, err := env.services.Draft.ChangePick(ctx, completed.MatchID, changer,
		completed.Phases[otherIdx].ChampionID)
	assert.ErrorIs(t, err, domain.ErrChampionUnavailable)

	// Re-locking your own current champion is fine.
	ownIdx := completed.PickPhaseIndex(changer)
	_, err = env.services.Draft.ChangePick(ctx, completed.MatchID, changer,
		completed.Phases[ownIdx].ChampionID)
	assert.NoError(t, err)
}

func TestDraftService_ChangePickBeforeCompletion(t *testing.T) {
	env := newTestEnv(t, service.Config{TeamSize: 2})
	session := startDraft(t, env)

	_, err := env.services.Draft.ChangePick(context.Background(), session.MatchID,
		session.BlueTeam[0], "zed")
	assert.ErrorIs(t, err, domain.ErrDraftNotComplete)
}

func TestDraftService_TimedOutBanLocksEmpty(t *testing.T) {
	env := newTestEnv(t, service.Config{TeamSize: 2, TimeoutPolicy: service.TimeoutForfeit})
	session := startDraft(t, env)
	ctx := context.Background()

	// Even under forfeit policy a missed ban just locks empty.
	env.expireCurrentPhase(t, session.MatchID)
	require.NoError(t, env.services.Draft.SweepExpired(ctx))

	got, err := env.services.Draft.GetSession(ctx, session.MatchID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentAction)
	assert.True(t, got.Phases[0].Locked)
	assert.Empty(t, got.Phases[0].ChampionID)
}

func TestDraftService_TimedOutPickAutoSelects(t *testing.T) {
	env := newTestEnv(t, service.Config{TeamSize: 2, TimeoutPolicy: service.TimeoutAuto})
	session := startDraft(t, env)
	ctx := context.Background()

	current := env.lockBans(t, session)

	env.expireCurrentPhase(t, current.MatchID)
	require.NoError(t, env.services.Draft.SweepExpired(ctx))

	got, err := env.services.Draft.GetSession(ctx, current.MatchID)
	require.NoError(t, err)
	assert.True(t, got.Phases[2].Locked)
	assert.NotEmpty(t, got.Phases[2].ChampionID, "auto policy fills the pick")
}

func TestDraftService_TimedOutPickSkips(t *testing.T) {
	env := newTestEnv(t, service.Config{TeamSize: 2, TimeoutPolicy: service.TimeoutSkip})
	session := startDraft(t, env)
	ctx := context.Background()

	current := env.lockBans(t, session)

	env.expireCurrentPhase(t, current.MatchID)
	require.NoError(t, env.services.Draft.SweepExpired(ctx))

	got, err := env.services.Draft.GetSession(ctx, current.MatchID)
	require.NoError(t, err)
	assert.True(t, got.Phases[2].Locked)
	assert.Empty(t, got.Phases[2].ChampionID)
}

func TestDraftService_TimedOutPickForfeits(t *testing.T) {
	env := newTestEnv(t, service.Config{TeamSize: 2, TimeoutPolicy: service.TimeoutForfeit})
	session := startDraft(t, env)
	ctx := context.Background()

	current := env.lockBans(t, session)

	env.expireCurrentPhase(t, current.MatchID)
	require.NoError(t, env.services.Draft.SweepExpired(ctx))

	assert.Equal(t, domain.MatchStatusCancelled, env.matchStatus(t, current.MatchID))
	_, err := env.services.Draft.GetSession(ctx, current.MatchID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestDraftService_LateSubmissionAfterTimeout(t *testing.T) {
	env := newTestEnv(t, service.Config{TeamSize: 2})
	session := startDraft(t, env)
	ctx := context.Background()

	env.expireCurrentPhase(t, session.MatchID)

	// The late request itself settles the expiry, then sees its phase
	// already locked.
	_, err := env.services.Draft.SubmitAction(ctx, session.MatchID,
		session.Phases[0].ActorID, "aatrox", domain.ActionTypeBan, 0)
	assert.ErrorIs(t, err, domain.ErrAlreadyLocked)

	got, err := env.services.Draft.GetSession(ctx, session.MatchID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentAction)
	assert.Empty(t, got.Phases[0].ChampionID)
}

func TestDraftService_ConcurrentSubmissionsLockOnce(t *testing.T) {
	env := newTestEnv(t, service.Config{TeamSize: 2})
	session := startDraft(t, env)
	ctx := context.Background()

	actor := session.Phases[0].ActorID
	champions := testutil.Champions(4)

	errs := make(chan error, len(champions))
	var wg sync.WaitGroup
	for _, champ := range champions {
		wg.Add(1)
		go func(champ string) {
			defer wg.Done()
			_, err := env.services.Draft.SubmitAction(ctx, session.MatchID, actor,
				champ, domain.ActionTypeBan, 0)
			errs <- err
		}(champ)
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrAlreadyLocked)
	}
	assert.Equal(t, 1, wins, "exactly one submission locks the phase")

	got, err := env.services.Draft.GetSession(ctx, session.MatchID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentAction)
	assert.True(t, got.Phases[0].Locked)
	assert.Contains(t, champions, got.Phases[0].ChampionID)
}

func TestDraftService_ConfirmRetryRestoresMonitor(t *testing.T) {
	env := newTestEnv(t, service.Config{TeamSize: 2})
	session := startDraft(t, env)
	ctx := context.Background()

	completed := env.runDraft(t, session, testutil.Champions(6))
	participants := completed.Participants()
	for _, playerID := range participants[:len(participants)-1] {
		_, err := env.services.Draft.Confirm(ctx, completed.MatchID, playerID)
		require.NoError(t, err)
	}

	// The durable transition landed but the monitor write was lost, as
	// after a crash mid game start.
	require.NoError(t, env.matches.Transition(ctx, completed.MatchID,
		[]domain.MatchStatus{domain.MatchStatusDraft}, domain.MatchStatusInProgress))

	last := participants[len(participants)-1]
	_, err := env.services.Draft.Confirm(ctx, completed.MatchID, last)
	require.NoError(t, err)

	// Reporting success means the monitor exists and the session is retired.
	monitor, err := env.services.Monitor.Get(ctx, completed.MatchID)
	require.NoError(t, err)
	assert.Equal(t, completed.MatchID, monitor.MatchID)

	_, err = env.services.Draft.GetSession(ctx, completed.MatchID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

// lockBans submits both ban phases so the session sits on its first pick.
func (env *testEnv) lockBans(t *testing.T, session *domain.DraftSession) *domain.DraftSession {
	t.Helper()
	ctx := context.Background()

	current := session
	for current.Stage == domain.DraftStageBans {
		phase := current.CurrentPhase()
		next, err := env.services.Draft.SubmitAction(ctx, current.MatchID, phase.ActorID,
			testutil.Champions(6)[5-phase.Index], phase.ActionType, phase.Index)
		require.NoError(t, err)
		current = next
	}
	return current
}
