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

// errSkipResolution aborts a compare-and-set without a write when another
// process already resolved the proposal. Never surfaces to callers.
var errSkipResolution = errors.New("proposal already resolved")

// Recovery skips matches younger than recoverGrace so it never races a
// handoff still in flight on another process.
const (
	recoverGrace = 30 * time.Second
	recoverBatch = 64
)

// AcceptanceService runs the accept/decline vote on a proposed match. A
// proposal resolves exactly once: the Resolved flag flips inside the cache
// compare-and-set, and only the process that flipped it carries out the
// side effects. The durable status transition is the second gate, so even
// a duplicated flip cannot double-apply.
type AcceptanceService struct {
	store      *cache.Store
	matches    repository.MatchRepository
	bus        *broadcast.Bus
	queue      *QueueService
	phaseTimer time.Duration
	log        *zap.Logger
}

func NewAcceptanceService(store *cache.Store, matches repository.MatchRepository, bus *broadcast.Bus,
	queue *QueueService, phaseTimer time.Duration, log *zap.Logger) *AcceptanceService {
	return &AcceptanceService{
		store:      store,
		matches:    matches,
		bus:        bus,
		queue:      queue,
		phaseTimer: phaseTimer,
		log:        log,
	}
}

// Accept records the player's acceptance. The last acceptance resolves the
// proposal and starts the draft.
func (a *AcceptanceService) Accept(ctx context.Context, matchID, playerID uuid.UUID) (*domain.MatchProposal, error) {
	now := time.Now()
	var won bool
	var timedOut bool
	p, err := a.store.UpdateProposal(ctx, matchID, func(p *domain.MatchProposal) error {
		if !p.Requires(playerID) {
			return domain.ErrNotParticipant
		}
		if p.Resolved {
			if p.Expired(now) {
				return domain.ErrProposalExpired
			}
			return domain.ErrAlreadyResponded
		}
		if p.Expired(now) {
			// Lazy expiry: the first request past the deadline claims the
			// resolution instead of waiting for the sweep.
			p.Resolved = true
			timedOut = true
			return nil
		}
		if p.Responses[playerID] != domain.ResponsePending {
			return domain.ErrAlreadyResponded
		}
		p.Responses[playerID] = domain.ResponseAccepted
		if p.AllAccepted() {
			p.Resolved = true
			won = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if timedOut {
		a.resolveCancelled(ctx, p, "timeout")
		return nil, domain.ErrProposalExpired
	}

	_ = a.bus.Publish(ctx, broadcast.ProposalProgressEvent(p, participantIDs(p)))
	if won {
		if err := a.resolveAccepted(ctx, p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Decline records the player's decline, which cancels the match outright.
func (a *AcceptanceService) Decline(ctx context.Context, matchID, playerID uuid.UUID) error {
	now := time.Now()
	var won bool
	var timedOut bool
	p, err := a.store.UpdateProposal(ctx, matchID, func(p *domain.MatchProposal) error {
		if !p.Requires(playerID) {
			return domain.ErrNotParticipant
		}
		if p.Resolved {
			if p.Expired(now) {
				return domain.ErrProposalExpired
			}
			return domain.ErrAlreadyResponded
		}
		if p.Expired(now) {
			p.Resolved = true
			timedOut = true
			return nil
		}
		if p.Responses[playerID] != domain.ResponsePending {
			return domain.ErrAlreadyResponded
		}
		p.Responses[playerID] = domain.ResponseDeclined
		p.Resolved = true
		won = true
		return nil
	})
	if err != nil {
		return err
	}
	if timedOut {
		a.resolveCancelled(ctx, p, "timeout")
		return domain.ErrProposalExpired
	}
	if won {
		a.resolveCancelled(ctx, p, "declined")
	}
	return nil
}

// SweepExpired cancels proposals whose deadline passed without resolution.
// Safe to run concurrently in every process: the Resolved flip under
// compare-and-set admits exactly one winner per proposal.
func (a *AcceptanceService) SweepExpired(ctx context.Context) error {
	ids, err := a.store.ProposalIDs(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, matchID := range ids {
		p, err := a.store.UpdateProposal(ctx, matchID, func(p *domain.MatchProposal) error {
			if p.Resolved || !p.Expired(now) {
				return errSkipResolution
			}
			p.Resolved = true
			return nil
		})
		if err != nil {
			if !errors.Is(err, errSkipResolution) && !errors.Is(err, domain.ErrProposalNotFound) {
				a.log.Warn("proposal sweep failed", zap.String("matchId", matchID.String()), zap.Error(err))
			}
			continue
		}
		a.resolveCancelled(ctx, p, "timeout")
	}
	return nil
}

// resolveAccepted moves the match into draft. The guarded transition makes
// this idempotent across processes; a follow-up write that fails here is
// repaired by RecoverStalled.
func (a *AcceptanceService) resolveAccepted(ctx context.Context, p *domain.MatchProposal) error {
	err := a.matches.Transition(ctx, p.MatchID,
		[]domain.MatchStatus{domain.MatchStatusFound, domain.MatchStatusAccepting},
		domain.MatchStatusAccepted)
	if errors.Is(err, domain.ErrStaleStatus) {
		return nil
	}
	if err != nil {
		return err
	}

	match, err := a.matches.GetByID(ctx, p.MatchID)
	if err != nil {
		return err
	}
	if err := a.startDraft(ctx, match); err != nil {
		return err
	}
	if err := a.store.DeleteProposal(ctx, p.MatchID); err != nil {
		a.log.Warn("deleting resolved proposal failed",
			zap.String("matchId", p.MatchID.String()), zap.Error(err))
	}

	a.log.Info("proposal accepted, draft started", zap.String("matchId", p.MatchID.String()))
	return nil
}

// startDraft writes the draft session and completes the accepted→draft
// transition, announcing the session. Callers hold the match in accepted.
func (a *AcceptanceService) startDraft(ctx context.Context, match *domain.Match) error {
	blue, red, err := match.Rosters()
	if err != nil {
		return err
	}
	session, err := domain.NewDraftSession(match.ID, blue, red, nil, a.phaseTimer)
	if err != nil {
		return err
	}
	if err := a.store.SaveDraft(ctx, session); err != nil {
		return err
	}
	err = a.matches.Transition(ctx, match.ID,
		[]domain.MatchStatus{domain.MatchStatusAccepted}, domain.MatchStatusDraft)
	if err != nil && !errors.Is(err, domain.ErrStaleStatus) {
		return err
	}
	_ = a.bus.Publish(ctx, broadcast.DraftStartedEvent(session))
	return nil
}

// RecoverStalled repairs matches whose handoff between the durable store
// and the cache was cut short by a crash or a failed write. A match stuck
// in accepted gets its draft session rebuilt from the durable rosters; a
// match stuck in match_found with no live proposal is cancelled, its
// players having never left the queue.
func (a *AcceptanceService) RecoverStalled(ctx context.Context) error {
	cutoff := time.Now().Add(-recoverGrace)

	stuck, err := a.matches.GetByStatus(ctx, domain.MatchStatusAccepted, recoverBatch)
	if err != nil {
		return err
	}
	for _, match := range stuck {
		if match.CreatedAt.After(cutoff) {
			continue
		}
		if _, err := a.store.GetDraft(ctx, match.ID); err == nil {
			// Session exists; only the final transition was lost.
			if err := a.matches.Transition(ctx, match.ID,
				[]domain.MatchStatus{domain.MatchStatusAccepted}, domain.MatchStatusDraft); err != nil &&
				!errors.Is(err, domain.ErrStaleStatus) {
				a.log.Warn("recovering accepted match failed",
					zap.String("matchId", match.ID.String()), zap.Error(err))
			}
			continue
		} else if !errors.Is(err, domain.ErrSessionNotFound) {
			continue
		}
		if err := a.startDraft(ctx, match); err != nil {
			a.log.Warn("recovering accepted match failed",
				zap.String("matchId", match.ID.String()), zap.Error(err))
			continue
		}
		a.log.Warn("rebuilt draft session for stalled match", zap.String("matchId", match.ID.String()))
	}

	found, err := a.matches.GetByStatus(ctx, domain.MatchStatusFound, recoverBatch)
	if err != nil {
		return err
	}
	for _, match := range found {
		if match.CreatedAt.After(cutoff) {
			continue
		}
		if _, err := a.store.GetProposal(ctx, match.ID); !errors.Is(err, domain.ErrProposalNotFound) {
			continue
		}
		if err := a.matches.Transition(ctx, match.ID,
			[]domain.MatchStatus{domain.MatchStatusFound}, domain.MatchStatusCancelled); err != nil {
			if !errors.Is(err, domain.ErrStaleStatus) {
				a.log.Warn("cancelling stalled match failed",
					zap.String("matchId", match.ID.String()), zap.Error(err))
			}
			continue
		}
		a.log.Warn("cancelled match with no proposal", zap.String("matchId", match.ID.String()))
	}
	return nil
}

// resolveCancelled cancels the match and puts the players who accepted
// back into the queue with their original join times.
func (a *AcceptanceService) resolveCancelled(ctx context.Context, p *domain.MatchProposal, reason string) {
	err := a.matches.Transition(ctx, p.MatchID,
		[]domain.MatchStatus{domain.MatchStatusFound, domain.MatchStatusAccepting},
		domain.MatchStatusCancelled)
	if errors.Is(err, domain.ErrStaleStatus) {
		return
	}
	if err != nil {
		a.log.Error("cancelling match failed", zap.String("matchId", p.MatchID.String()), zap.Error(err))
		return
	}

	// The cache entry goes before the requeue so a racing status read
	// cannot see a cancelled match with a live proposal.
	if err := a.store.DeleteProposal(ctx, p.MatchID); err != nil {
		a.log.Warn("deleting cancelled proposal failed",
			zap.String("matchId", p.MatchID.String()), zap.Error(err))
	}
	a.queue.Requeue(ctx, p.AcceptedEntries())

	a.log.Info("match cancelled",
		zap.String("matchId", p.MatchID.String()),
		zap.String("reason", reason))
	_ = a.bus.Publish(ctx, broadcast.MatchCancelledEvent(p.MatchID, participantIDs(p), reason))
}

func participantIDs(p *domain.MatchProposal) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(p.Responses))
	for id := range p.Responses {
		out = append(out, id)
	}
	return out
}
