package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftlane/match-backend/internal/domain"
	"github.com/riftlane/match-backend/internal/testutil"
)

// newSession builds a session from fresh rosters, failing the test on
// invalid input.
func newSession(t *testing.T, blue, red []uuid.UUID, phaseTimer time.Duration) *domain.DraftSession {
	t.Helper()
	s, err := domain.NewDraftSession(uuid.New(), blue, red, nil, phaseTimer)
	require.NoError(t, err)
	return s
}

func TestNewDraftSession_TournamentFormat(t *testing.T) {
	blue := testutil.Roster(5)
	red := testutil.Roster(5)
	s := newSession(t, blue, red, 30*time.Second)

	require.Len(t, s.Phases, 20)
	assert.Equal(t, domain.DraftStageBans, s.Stage)

	bans, picks := 0, 0
	perTeamPicks := map[domain.Team]int{}
	for _, p := range s.Phases {
		switch p.ActionType {
		case domain.ActionTypeBan:
			bans++
		case domain.ActionTypePick:
			picks++
			perTeamPicks[p.Team]++
		}
	}
	assert.Equal(t, 10, bans)
	assert.Equal(t, 10, picks)
	assert.Equal(t, 5, perTeamPicks[domain.TeamBlue])
	assert.Equal(t, 5, perTeamPicks[domain.TeamRed])

	// Only the opening phase has a deadline; later ones get theirs when
	// they become current.
	assert.False(t, s.Phases[0].DeadlineAt.IsZero())
	assert.True(t, s.Phases[1].DeadlineAt.IsZero())
}

func TestNewDraftSession_EveryPlayerOwnsOnePick(t *testing.T) {
	blue := testutil.Roster(5)
	red := testutil.Roster(5)
	s := newSession(t, blue, red, 30*time.Second)

	owners := map[uuid.UUID]int{}
	for _, p := range s.Phases {
		if p.ActionType == domain.ActionTypePick {
			owners[p.ActorID]++
		}
	}
	require.Len(t, owners, 10)
	for _, n := range owners {
		assert.Equal(t, 1, n)
	}
}

func TestNewDraftSession_SmallTeams(t *testing.T) {
	for _, size := range []int{1, 2, 3} {
		blue := testutil.Roster(size)
		red := testutil.Roster(size)
		s := newSession(t, blue, red, time.Second)

		assert.Len(t, s.Phases, 2+2*size)
		assert.Equal(t, domain.ActionTypeBan, s.Phases[0].ActionType)
		assert.Equal(t, domain.ActionTypeBan, s.Phases[1].ActionType)
	}
}

func TestNewDraftSession_RejectsBadRosters(t *testing.T) {
	cases := []struct {
		name      string
		blue, red []uuid.UUID
	}{
		{"empty blue", nil, testutil.Roster(2)},
		{"empty red", testutil.Roster(2), nil},
		{"both empty", nil, nil},
		{"mismatched sizes", testutil.Roster(3), testutil.Roster(2)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := domain.NewDraftSession(uuid.New(), tc.blue, tc.red, nil, time.Minute)
			assert.Error(t, err)
			assert.Nil(t, s)
		})
	}
}

func TestDraftSession_LockCurrentAdvances(t *testing.T) {
	s := newSession(t, testutil.Roster(1), testutil.Roster(1), time.Minute)

	s.LockCurrent("aatrox", time.Minute)
	assert.Equal(t, 1, s.CurrentAction)
	assert.True(t, s.Phases[0].Locked)
	assert.False(t, s.Phases[1].DeadlineAt.IsZero())

	s.LockCurrent("ahri", time.Minute)
	assert.Equal(t, domain.DraftStagePicks, s.Stage)

	s.LockCurrent("ashe", time.Minute)
	s.LockCurrent("braum", time.Minute)
	assert.Equal(t, domain.DraftStageCompleted, s.Stage)
	assert.Nil(t, s.CurrentPhase())
}

func TestDraftSession_Availability(t *testing.T) {
	s := newSession(t, testutil.Roster(1), testutil.Roster(1), time.Minute)

	s.LockCurrent("aatrox", time.Minute) // blue ban
	s.LockCurrent("aatrox", time.Minute) // red ban, same champion
	s.LockCurrent("ahri", time.Minute)   // blue pick

	assert.True(t, s.LockedAsBan("aatrox"))
	assert.True(t, s.LockedAsPick("ahri"))

	// Banned champions cannot be picked; picked ones cannot be picked or
	// banned again.
	assert.False(t, s.PickAvailable("aatrox", -1))
	assert.False(t, s.PickAvailable("ahri", -1))
	assert.False(t, s.BanAvailable("ahri"))

	// A ban of an already banned champion is allowed.
	assert.True(t, s.BanAvailable("aatrox"))

	// The except index frees a player's own slot for re-locking.
	assert.True(t, s.PickAvailable("ahri", 2))
}

func TestDraftSession_Confirmations(t *testing.T) {
	s := newSession(t, testutil.Roster(1), testutil.Roster(1), time.Minute)

	assert.False(t, s.AllConfirmed())

	for _, id := range s.Participants() {
		s.Confirmed[id] = true
	}
	assert.True(t, s.AllConfirmed())
	assert.Equal(t, 2, s.ConfirmedCount())
}
