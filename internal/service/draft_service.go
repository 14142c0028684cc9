package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/riftlane/match-backend/internal/broadcast"
	"github.com/riftlane/match-backend/internal/cache"
	"github.com/riftlane/match-backend/internal/domain"
	"github.com/riftlane/match-backend/internal/repository"
)

// TimeoutPolicy decides what happens to a pick phase whose deadline passes
// without a submission. Missed bans always lock empty regardless of policy,
// and bot-owned phases always auto-select.
type TimeoutPolicy string

const (
	TimeoutAuto    TimeoutPolicy = "auto"    // lock a random available champion
	TimeoutSkip    TimeoutPolicy = "skip"    // lock the phase empty
	TimeoutForfeit TimeoutPolicy = "forfeit" // cancel the whole match
)

func (p TimeoutPolicy) Valid() bool {
	return p == TimeoutAuto || p == TimeoutSkip || p == TimeoutForfeit
}

// DraftService runs the turn-based ban/pick sequence. All mutations go
// through the draft session's compare-and-set, so a duplicate submission, a
// client retry, or a race against the timeout sweep settles on exactly one
// lock per phase.
type DraftService struct {
	store      *cache.Store
	matches    repository.MatchRepository
	bus        *broadcast.Bus
	monitors   *MonitorService
	catalog    ChampionCatalog
	phaseTimer time.Duration
	policy     TimeoutPolicy
	log        *zap.Logger
}

func NewDraftService(store *cache.Store, matches repository.MatchRepository, bus *broadcast.Bus,
	monitors *MonitorService, catalog ChampionCatalog, phaseTimer time.Duration,
	policy TimeoutPolicy, log *zap.Logger) *DraftService {
	if !policy.Valid() {
		policy = TimeoutAuto
	}
	return &DraftService{
		store:      store,
		matches:    matches,
		bus:        bus,
		monitors:   monitors,
		catalog:    catalog,
		phaseTimer: phaseTimer,
		policy:     policy,
		log:        log,
	}
}

func (d *DraftService) GetSession(ctx context.Context, matchID uuid.UUID) (*domain.DraftSession, error) {
	return d.store.GetDraft(ctx, matchID)
}

// SubmitAction locks the phase at actionIndex with the given champion.
// actionIndex pins the client's view of the sequence: a resubmission of an
// already-locked index reports the lock instead of advancing the draft.
func (d *DraftService) SubmitAction(ctx context.Context, matchID, actorID uuid.UUID,
	championID string, action domain.ActionType, actionIndex int) (*domain.DraftSession, error) {
	if championID == "" {
		return nil, domain.ErrValidation
	}

	// Deadlines are wall-clock timestamps, not process timers. A submission
	// arriving after the deadline first settles the expiry, then validates
	// against the advanced state.
	current, err := d.store.GetDraft(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if phase := current.CurrentPhase(); phase != nil && time.Now().After(phase.DeadlineAt) {
		d.resolveExpired(ctx, matchID)
	}

	session, err := d.store.UpdateDraft(ctx, matchID, func(s *domain.DraftSession) error {
		if !s.IsParticipant(actorID) {
			return domain.ErrNotParticipant
		}
		if actionIndex < 0 || actionIndex >= len(s.Phases) {
			return domain.ErrValidation
		}
		if s.Phases[actionIndex].Locked {
			return domain.ErrAlreadyLocked
		}
		if actionIndex != s.CurrentAction {
			return domain.ErrWrongTurn
		}
		phase := s.CurrentPhase()
		if phase.ActionType != action {
			return domain.ErrValidation
		}
		if phase.ActorID != actorID {
			return domain.ErrWrongTurn
		}
		switch action {
		case domain.ActionTypePick:
			if !s.PickAvailable(championID, -1) {
				return domain.ErrChampionUnavailable
			}
		case domain.ActionTypeBan:
			if !s.BanAvailable(championID) {
				return domain.ErrChampionUnavailable
			}
		default:
			return domain.ErrValidation
		}
		s.LockCurrent(championID, d.phaseTimer)
		return nil
	})
	if err != nil {
		return nil, err
	}

	d.log.Debug("draft action locked",
		zap.String("matchId", matchID.String()),
		zap.Int("action", actionIndex),
		zap.String("championId", championID))
	d.publishProgress(ctx, session, championID)
	return session, nil
}

// ChangePick swaps the player's own locked pick during the confirmation
// window. It clears only that player's confirmation; everyone else's stands.
func (d *DraftService) ChangePick(ctx context.Context, matchID, playerID uuid.UUID, championID string) (*domain.DraftSession, error) {
	if championID == "" {
		return nil, domain.ErrValidation
	}
	session, err := d.store.UpdateDraft(ctx, matchID, func(s *domain.DraftSession) error {
		if !s.IsParticipant(playerID) {
			return domain.ErrNotParticipant
		}
		if s.Stage != domain.DraftStageCompleted {
			return domain.ErrDraftNotComplete
		}
		idx := s.PickPhaseIndex(playerID)
		if idx < 0 {
			return domain.ErrValidation
		}
		if !s.PickAvailable(championID, idx) {
			return domain.ErrChampionUnavailable
		}
		s.Phases[idx].ChampionID = championID
		s.Confirmed[playerID] = false
		s.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	_ = d.bus.Publish(ctx, broadcast.DraftUpdatedEvent(session, championID))
	_ = d.bus.Publish(ctx, broadcast.ConfirmationEvent(session))
	return session, nil
}

// Confirm records the player's final-roster confirmation. The last
// confirmation starts the game.
func (d *DraftService) Confirm(ctx context.Context, matchID, playerID uuid.UUID) (*domain.DraftSession, error) {
	var all bool
	session, err := d.store.UpdateDraft(ctx, matchID, func(s *domain.DraftSession) error {
		if !s.IsParticipant(playerID) {
			return domain.ErrNotParticipant
		}
		if s.Stage != domain.DraftStageCompleted {
			return domain.ErrDraftNotComplete
		}
		s.Confirmed[playerID] = true
		s.UpdatedAt = time.Now()
		all = s.AllConfirmed()
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = d.bus.Publish(ctx, broadcast.ConfirmationEvent(session))
	if all {
		if err := d.finalize(ctx, session); err != nil {
			return nil, err
		}
	}
	return session, nil
}

// SweepExpired advances every session whose current phase deadline passed.
// Safe to run in every process; the compare-and-set admits one winner per
// phase.
func (d *DraftService) SweepExpired(ctx context.Context) error {
	ids, err := d.store.DraftIDs(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, matchID := range ids {
		s, err := d.store.GetDraft(ctx, matchID)
		if err != nil {
			continue
		}
		if phase := s.CurrentPhase(); phase != nil && now.After(phase.DeadlineAt) {
			d.resolveExpired(ctx, matchID)
		}
	}
	return nil
}

// finalize hands the confirmed draft off to game tracking. The guarded
// transition out of draft is what makes a duplicated final confirmation
// start exactly one game.
func (d *DraftService) finalize(ctx context.Context, session *domain.DraftSession) error {
	err := d.matches.Transition(ctx, session.MatchID,
		[]domain.MatchStatus{domain.MatchStatusDraft}, domain.MatchStatusInProgress)
	if errors.Is(err, domain.ErrStaleStatus) {
		// The match already left draft, either because another process won
		// the transition or because an earlier attempt failed between the
		// transition and the monitor write. Success may only be reported
		// once the monitor actually exists.
		return d.repairHandoff(ctx, session)
	}
	if err != nil {
		return err
	}

	if _, err := d.monitors.Start(ctx, session.MatchID); err != nil {
		return err
	}
	if err := d.store.DeleteDraft(ctx, session.MatchID); err != nil {
		d.log.Warn("deleting confirmed draft failed",
			zap.String("matchId", session.MatchID.String()), zap.Error(err))
	}

	d.log.Info("draft confirmed, game starting", zap.String("matchId", session.MatchID.String()))
	_ = d.bus.Publish(ctx, broadcast.GameReadyEvent(session.MatchID, session.Participants()))
	return nil
}

// repairHandoff finishes a game start whose monitor write was lost after
// the durable transition. No-op when the handoff completed elsewhere or
// the match moved on past in_progress.
func (d *DraftService) repairHandoff(ctx context.Context, session *domain.DraftSession) error {
	match, err := d.matches.GetByID(ctx, session.MatchID)
	if err != nil {
		return err
	}
	if match.Status != domain.MatchStatusInProgress {
		return nil
	}
	if _, err := d.monitors.Get(ctx, session.MatchID); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrMonitorNotFound) {
		return err
	}

	if _, err := d.monitors.Start(ctx, session.MatchID); err != nil {
		return err
	}
	if err := d.store.DeleteDraft(ctx, session.MatchID); err != nil {
		d.log.Warn("deleting confirmed draft failed",
			zap.String("matchId", session.MatchID.String()), zap.Error(err))
	}
	d.log.Warn("recreated missing game monitor", zap.String("matchId", session.MatchID.String()))
	_ = d.bus.Publish(ctx, broadcast.GameReadyEvent(session.MatchID, session.Participants()))
	return nil
}

// resolveExpired settles one timed-out phase. Missed bans lock empty, bot
// phases auto-select, and human picks follow the configured policy.
func (d *DraftService) resolveExpired(ctx context.Context, matchID uuid.UUID) {
	s, err := d.store.GetDraft(ctx, matchID)
	if err != nil {
		return
	}
	phase := s.CurrentPhase()
	if phase == nil || !time.Now().After(phase.DeadlineAt) {
		return
	}

	if phase.ActionType == domain.ActionTypeBan {
		d.lockExpired(ctx, matchID, phase.Index, "")
		return
	}

	policy := d.policy
	if phase.IsBot {
		policy = TimeoutAuto
	}
	switch policy {
	case TimeoutForfeit:
		d.forfeit(ctx, s)
	case TimeoutSkip:
		d.lockExpired(ctx, matchID, phase.Index, "")
	default:
		d.lockExpired(ctx, matchID, phase.Index, d.randomAvailable(ctx, s))
	}
}

// lockExpired locks the phase at index if it is still current and still
// past its deadline. A concurrent submission or sweep that got there first
// turns this into a no-op.
func (d *DraftService) lockExpired(ctx context.Context, matchID uuid.UUID, index int, championID string) {
	now := time.Now()
	session, err := d.store.UpdateDraft(ctx, matchID, func(s *domain.DraftSession) error {
		if s.CurrentAction != index {
			return errSkipResolution
		}
		phase := s.CurrentPhase()
		if phase == nil || !now.After(phase.DeadlineAt) {
			return errSkipResolution
		}
		if championID != "" && phase.ActionType == domain.ActionTypePick && !s.PickAvailable(championID, -1) {
			championID = ""
		}
		s.LockCurrent(championID, d.phaseTimer)
		return nil
	})
	if err != nil {
		if !errors.Is(err, errSkipResolution) && !errors.Is(err, domain.ErrSessionNotFound) {
			d.log.Warn("resolving expired phase failed",
				zap.String("matchId", matchID.String()), zap.Error(err))
		}
		return
	}

	d.log.Info("draft phase timed out",
		zap.String("matchId", matchID.String()),
		zap.Int("action", index),
		zap.String("championId", championID))
	d.publishProgress(ctx, session, championID)
}

// forfeit cancels the match over a missed pick under the forfeit policy.
func (d *DraftService) forfeit(ctx context.Context, s *domain.DraftSession) {
	err := d.matches.Transition(ctx, s.MatchID,
		[]domain.MatchStatus{domain.MatchStatusAccepted, domain.MatchStatusDraft},
		domain.MatchStatusCancelled)
	if errors.Is(err, domain.ErrStaleStatus) {
		return
	}
	if err != nil {
		d.log.Error("forfeiting draft failed", zap.String("matchId", s.MatchID.String()), zap.Error(err))
		return
	}
	if err := d.store.DeleteDraft(ctx, s.MatchID); err != nil {
		d.log.Warn("deleting forfeited draft failed",
			zap.String("matchId", s.MatchID.String()), zap.Error(err))
	}
	d.log.Info("draft forfeited on timeout", zap.String("matchId", s.MatchID.String()))
	_ = d.bus.Publish(ctx, broadcast.MatchCancelledEvent(s.MatchID, s.Participants(), "draft-timeout"))
}

func (d *DraftService) publishProgress(ctx context.Context, session *domain.DraftSession, championID string) {
	_ = d.bus.Publish(ctx, broadcast.DraftUpdatedEvent(session, championID))
	if session.Stage == domain.DraftStageCompleted {
		_ = d.bus.Publish(ctx, broadcast.ConfirmationEvent(session))
	}
}

func (d *DraftService) randomAvailable(ctx context.Context, s *domain.DraftSession) string {
	ids, err := d.catalog.ChampionIDs(ctx)
	if err != nil {
		return ""
	}
	var available []string
	for _, c := range ids {
		if s.PickAvailable(c, -1) {
			available = append(available, c)
		}
	}
	if len(available) == 0 {
		return ""
	}
	return available[rand.Intn(len(available))]
}
