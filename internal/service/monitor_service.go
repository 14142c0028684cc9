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

// MonitorService tracks matches whose game is live. The monitor entry is
// the handoff target after a confirmed draft; it lives until the game
// result is reported.
type MonitorService struct {
	store   *cache.Store
	matches repository.MatchRepository
	bus     *broadcast.Bus
	log     *zap.Logger
}

func NewMonitorService(store *cache.Store, matches repository.MatchRepository, bus *broadcast.Bus, log *zap.Logger) *MonitorService {
	return &MonitorService{store: store, matches: matches, bus: bus, log: log}
}

func (m *MonitorService) Start(ctx context.Context, matchID uuid.UUID) (*domain.GameMonitor, error) {
	monitor := domain.NewGameMonitor(matchID)
	if err := m.store.SaveMonitor(ctx, monitor); err != nil {
		return nil, err
	}
	return monitor, nil
}

func (m *MonitorService) Get(ctx context.Context, matchID uuid.UUID) (*domain.GameMonitor, error) {
	return m.store.GetMonitor(ctx, matchID)
}

// SetMuted toggles notification muting for one participant of the match.
func (m *MonitorService) SetMuted(ctx context.Context, matchID, playerID uuid.UUID, muted bool) (*domain.GameMonitor, error) {
	if err := m.requireParticipant(ctx, matchID, playerID); err != nil {
		return nil, err
	}
	return m.store.UpdateMonitor(ctx, matchID, func(mon *domain.GameMonitor) error {
		mon.Muted[playerID] = muted
		mon.UpdatedAt = time.Now()
		return nil
	})
}

// ReportLiveState records the latest observed in-game state snapshot.
func (m *MonitorService) ReportLiveState(ctx context.Context, matchID uuid.UUID, state string) (*domain.GameMonitor, error) {
	return m.store.UpdateMonitor(ctx, matchID, func(mon *domain.GameMonitor) error {
		mon.LiveState = state
		mon.UpdatedAt = time.Now()
		return nil
	})
}

// EndGame completes the match and retires its monitor.
func (m *MonitorService) EndGame(ctx context.Context, matchID uuid.UUID) error {
	if err := m.matches.Transition(ctx, matchID,
		[]domain.MatchStatus{domain.MatchStatusInProgress}, domain.MatchStatusCompleted); err != nil {
		return err
	}
	if err := m.store.DeleteMonitor(ctx, matchID); err != nil {
		m.log.Warn("deleting monitor failed", zap.String("matchId", matchID.String()), zap.Error(err))
	}
	players, _ := m.participants(ctx, matchID)
	m.log.Info("game ended", zap.String("matchId", matchID.String()))
	_ = m.bus.Publish(ctx, broadcast.GameEndedEvent(matchID, players))
	return nil
}

// CancelGame abandons a live match, for remakes and failed game starts.
func (m *MonitorService) CancelGame(ctx context.Context, matchID uuid.UUID, reason string) error {
	if err := m.matches.Transition(ctx, matchID,
		[]domain.MatchStatus{domain.MatchStatusInProgress}, domain.MatchStatusCancelled); err != nil {
		return err
	}
	if err := m.store.DeleteMonitor(ctx, matchID); err != nil {
		m.log.Warn("deleting monitor failed", zap.String("matchId", matchID.String()), zap.Error(err))
	}
	players, _ := m.participants(ctx, matchID)
	m.log.Info("game cancelled",
		zap.String("matchId", matchID.String()),
		zap.String("reason", reason))
	_ = m.bus.Publish(ctx, broadcast.MatchCancelledEvent(matchID, players, reason))
	return nil
}

// RecoverStalled recreates monitors for in_progress matches that lost
// theirs to a crash between the durable transition and the cache write.
// The reconciler only deletes phantoms; this is the opposite repair.
func (m *MonitorService) RecoverStalled(ctx context.Context) error {
	live, err := m.matches.GetByStatus(ctx, domain.MatchStatusInProgress, recoverBatch)
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-recoverGrace)
	for _, match := range live {
		if match.StartedAt == nil || match.StartedAt.After(cutoff) {
			continue
		}
		if _, err := m.store.GetMonitor(ctx, match.ID); !errors.Is(err, domain.ErrMonitorNotFound) {
			continue
		}
		if _, err := m.Start(ctx, match.ID); err != nil {
			m.log.Warn("recreating monitor failed", zap.String("matchId", match.ID.String()), zap.Error(err))
			continue
		}
		m.log.Warn("recreated missing game monitor", zap.String("matchId", match.ID.String()))
		players, _ := m.participants(ctx, match.ID)
		_ = m.bus.Publish(ctx, broadcast.GameReadyEvent(match.ID, players))
	}
	return nil
}

func (m *MonitorService) participants(ctx context.Context, matchID uuid.UUID) ([]uuid.UUID, error) {
	match, err := m.matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	blue, red, err := match.Rosters()
	if err != nil {
		return nil, err
	}
	return append(blue, red...), nil
}

func (m *MonitorService) requireParticipant(ctx context.Context, matchID, playerID uuid.UUID) error {
	players, err := m.participants(ctx, matchID)
	if err != nil {
		return err
	}
	for _, id := range players {
		if id == playerID {
			return nil
		}
	}
	return domain.ErrNotParticipant
}
