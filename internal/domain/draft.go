package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Team string

const (
	TeamBlue Team = "blue"
	TeamRed  Team = "red"
)

type ActionType string

const (
	ActionTypeBan  ActionType = "ban"
	ActionTypePick ActionType = "pick"
)

type DraftStage string

const (
	DraftStageBans      DraftStage = "bans"
	DraftStagePicks     DraftStage = "picks"
	DraftStageCompleted DraftStage = "completed"
)

// turnSlot is one step of a draft format: which team acts and how.
type turnSlot struct {
	team   Team
	action ActionType
}

// tournamentTurns is the fixed 20-action order for five-player teams:
// six bans, six picks (B R R B B R), four bans, four picks (R B B R).
var tournamentTurns = []turnSlot{
	{TeamBlue, ActionTypeBan}, {TeamRed, ActionTypeBan},
	{TeamBlue, ActionTypeBan}, {TeamRed, ActionTypeBan},
	{TeamBlue, ActionTypeBan}, {TeamRed, ActionTypeBan},
	{TeamBlue, ActionTypePick}, {TeamRed, ActionTypePick},
	{TeamRed, ActionTypePick}, {TeamBlue, ActionTypePick},
	{TeamBlue, ActionTypePick}, {TeamRed, ActionTypePick},
	{TeamRed, ActionTypeBan}, {TeamBlue, ActionTypeBan},
	{TeamRed, ActionTypeBan}, {TeamBlue, ActionTypeBan},
	{TeamRed, ActionTypePick}, {TeamBlue, ActionTypePick},
	{TeamBlue, ActionTypePick}, {TeamRed, ActionTypePick},
}

// shortTurns derives a reduced format for smaller teams: one ban per team,
// then picks alternating in snake order (B, RR, BB, ...).
func shortTurns(teamSize int) []turnSlot {
	turns := []turnSlot{
		{TeamBlue, ActionTypeBan},
		{TeamRed, ActionTypeBan},
	}
	next := TeamBlue
	remaining := map[Team]int{TeamBlue: teamSize, TeamRed: teamSize}
	take := 1
	for remaining[TeamBlue]+remaining[TeamRed] > 0 {
		for i := 0; i < take && remaining[next] > 0; i++ {
			turns = append(turns, turnSlot{next, ActionTypePick})
			remaining[next]--
		}
		if next == TeamBlue {
			next = TeamRed
		} else {
			next = TeamBlue
		}
		take = 2
	}
	return turns
}

// DraftPhase is one ordered ban/pick slot. It may be mutated only while
// unlocked and only by its expected actor, or by the system on timeout.
type DraftPhase struct {
	Index      int        `json:"index"`
	Team       Team       `json:"team"`
	ActionType ActionType `json:"actionType"`
	ActorID    uuid.UUID  `json:"actorId"`
	IsBot      bool       `json:"isBot"`
	ChampionID string     `json:"championId"` // empty until locked; stays empty for a skipped ban
	Locked     bool       `json:"locked"`
	DeadlineAt time.Time  `json:"deadlineAt"`
}

// DraftSession is the ephemeral turn-based ban/pick state for one match.
type DraftSession struct {
	MatchID       uuid.UUID          `json:"matchId"`
	BlueTeam      []uuid.UUID        `json:"blueTeam"`
	RedTeam       []uuid.UUID        `json:"redTeam"`
	Phases        []DraftPhase       `json:"phases"`
	CurrentAction int                `json:"currentAction"`
	Stage         DraftStage         `json:"stage"`
	Confirmed     map[uuid.UUID]bool `json:"confirmed"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// NewDraftSession precomputes the full phase list at creation; turn order is
// a format constant and is never recomputed per action. Bans rotate through
// the roster in order, picks follow roster order, so every participant owns
// exactly one pick phase. Rosters must be non-empty and equal in size; a
// match row that violates that cannot produce a draft.
func NewDraftSession(matchID uuid.UUID, blue, red []uuid.UUID, bots map[uuid.UUID]bool, phaseTimer time.Duration) (*DraftSession, error) {
	if len(blue) == 0 || len(blue) != len(red) {
		return nil, errors.New("draft requires two equal non-empty rosters")
	}
	turns := tournamentTurns
	if len(blue) != 5 {
		turns = shortTurns(len(blue))
	}

	now := time.Now()
	rosters := map[Team][]uuid.UUID{TeamBlue: blue, TeamRed: red}
	banCount := map[Team]int{}
	pickCount := map[Team]int{}

	phases := make([]DraftPhase, len(turns))
	for i, turn := range turns {
		roster := rosters[turn.team]
		var actor uuid.UUID
		switch turn.action {
		case ActionTypeBan:
			actor = roster[banCount[turn.team]%len(roster)]
			banCount[turn.team]++
		case ActionTypePick:
			actor = roster[pickCount[turn.team]]
			pickCount[turn.team]++
		}
		phases[i] = DraftPhase{
			Index:      i,
			Team:       turn.team,
			ActionType: turn.action,
			ActorID:    actor,
			IsBot:      bots[actor],
		}
	}
	phases[0].DeadlineAt = now.Add(phaseTimer)

	s := &DraftSession{
		MatchID:       matchID,
		BlueTeam:      blue,
		RedTeam:       red,
		Phases:        phases,
		CurrentAction: 0,
		Confirmed:     make(map[uuid.UUID]bool, len(blue)+len(red)),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, id := range s.Participants() {
		s.Confirmed[id] = false
	}
	s.Stage = s.stageAt(0)
	return s, nil
}

func (s *DraftSession) stageAt(index int) DraftStage {
	if index >= len(s.Phases) {
		return DraftStageCompleted
	}
	if s.Phases[index].ActionType == ActionTypeBan {
		return DraftStageBans
	}
	return DraftStagePicks
}

func (s *DraftSession) CurrentPhase() *DraftPhase {
	if s.CurrentAction >= len(s.Phases) {
		return nil
	}
	return &s.Phases[s.CurrentAction]
}

func (s *DraftSession) Participants() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(s.BlueTeam)+len(s.RedTeam))
	out = append(out, s.BlueTeam...)
	out = append(out, s.RedTeam...)
	return out
}

func (s *DraftSession) IsParticipant(playerID uuid.UUID) bool {
	for _, id := range s.Participants() {
		if id == playerID {
			return true
		}
	}
	return false
}

// LockedAsPick reports whether the champion is locked as a pick in any phase.
func (s *DraftSession) LockedAsPick(championID string) bool {
	return s.lockedAs(championID, ActionTypePick, -1)
}

// LockedAsBan reports whether the champion is locked as a ban in any phase.
func (s *DraftSession) LockedAsBan(championID string) bool {
	return s.lockedAs(championID, ActionTypeBan, -1)
}

func (s *DraftSession) lockedAs(championID string, action ActionType, exceptIndex int) bool {
	if championID == "" {
		return false
	}
	for i := range s.Phases {
		p := &s.Phases[i]
		if i != exceptIndex && p.Locked && p.ActionType == action && p.ChampionID == championID {
			return true
		}
	}
	return false
}

// PickAvailable applies the availability rule for a pick targeting the given
// phase index: the champion must not be locked as a pick elsewhere, nor
// locked as a ban anywhere.
func (s *DraftSession) PickAvailable(championID string, phaseIndex int) bool {
	return !s.lockedAs(championID, ActionTypePick, phaseIndex) && !s.LockedAsBan(championID)
}

// BanAvailable applies the availability rule for a ban: the champion must
// not be locked as a pick anywhere.
func (s *DraftSession) BanAvailable(championID string) bool {
	return !s.LockedAsPick(championID)
}

// LockCurrent locks the current phase with the champion and advances the
// sequence, setting the next phase's deadline. CurrentAction only ever grows.
func (s *DraftSession) LockCurrent(championID string, phaseTimer time.Duration) {
	now := time.Now()
	phase := &s.Phases[s.CurrentAction]
	phase.ChampionID = championID
	phase.Locked = true
	s.CurrentAction++
	s.Stage = s.stageAt(s.CurrentAction)
	if next := s.CurrentPhase(); next != nil {
		next.DeadlineAt = now.Add(phaseTimer)
	}
	s.UpdatedAt = now
}

// PickPhaseIndex returns the index of the player's locked pick phase, or -1.
func (s *DraftSession) PickPhaseIndex(playerID uuid.UUID) int {
	for i := range s.Phases {
		p := &s.Phases[i]
		if p.ActionType == ActionTypePick && p.ActorID == playerID && p.Locked {
			return i
		}
	}
	return -1
}

func (s *DraftSession) AllConfirmed() bool {
	for _, ok := range s.Confirmed {
		if !ok {
			return false
		}
	}
	return len(s.Confirmed) > 0
}

func (s *DraftSession) ConfirmedCount() int {
	n := 0
	for _, ok := range s.Confirmed {
		if ok {
			n++
		}
	}
	return n
}
