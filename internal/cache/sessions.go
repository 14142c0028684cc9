package cache

import (
	"context"

	"github.com/google/uuid"
	"github.com/riftlane/match-backend/internal/domain"
)

// Proposal bucket

func (s *Store) SaveProposal(ctx context.Context, p *domain.MatchProposal) error {
	return s.setJSON(ctx, proposalKey(p.MatchID), p)
}

func (s *Store) GetProposal(ctx context.Context, matchID uuid.UUID) (*domain.MatchProposal, error) {
	var p domain.MatchProposal
	if err := s.getJSON(ctx, proposalKey(matchID), domain.ErrProposalNotFound, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProposal mutates the proposal under compare-and-set.
func (s *Store) UpdateProposal(ctx context.Context, matchID uuid.UUID, fn func(*domain.MatchProposal) error) (*domain.MatchProposal, error) {
	return casUpdate(ctx, s, proposalKey(matchID), domain.ErrProposalNotFound, fn)
}

func (s *Store) DeleteProposal(ctx context.Context, matchID uuid.UUID) error {
	return s.rdb.Del(ctx, proposalKey(matchID)).Err()
}

func (s *Store) ProposalIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.scanIDs(ctx, "mm:proposal:")
}

// Draft bucket

func (s *Store) SaveDraft(ctx context.Context, session *domain.DraftSession) error {
	return s.setJSON(ctx, draftKey(session.MatchID), session)
}

func (s *Store) GetDraft(ctx context.Context, matchID uuid.UUID) (*domain.DraftSession, error) {
	var session domain.DraftSession
	if err := s.getJSON(ctx, draftKey(matchID), domain.ErrSessionNotFound, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// UpdateDraft mutates the draft session under compare-and-set. A duplicate
// click, a client retry, or a race between a submission and the timeout
// sweep serialises here instead of double-advancing the sequence.
func (s *Store) UpdateDraft(ctx context.Context, matchID uuid.UUID, fn func(*domain.DraftSession) error) (*domain.DraftSession, error) {
	return casUpdate(ctx, s, draftKey(matchID), domain.ErrSessionNotFound, fn)
}

func (s *Store) DeleteDraft(ctx context.Context, matchID uuid.UUID) error {
	return s.rdb.Del(ctx, draftKey(matchID)).Err()
}

func (s *Store) DraftIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.scanIDs(ctx, "mm:draft:")
}

// Monitor bucket

func (s *Store) SaveMonitor(ctx context.Context, m *domain.GameMonitor) error {
	return s.setJSON(ctx, monitorKey(m.MatchID), m)
}

func (s *Store) GetMonitor(ctx context.Context, matchID uuid.UUID) (*domain.GameMonitor, error) {
	var m domain.GameMonitor
	if err := s.getJSON(ctx, monitorKey(matchID), domain.ErrMonitorNotFound, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) UpdateMonitor(ctx context.Context, matchID uuid.UUID, fn func(*domain.GameMonitor) error) (*domain.GameMonitor, error) {
	return casUpdate(ctx, s, monitorKey(matchID), domain.ErrMonitorNotFound, fn)
}

func (s *Store) DeleteMonitor(ctx context.Context, matchID uuid.UUID) error {
	return s.rdb.Del(ctx, monitorKey(matchID)).Err()
}

func (s *Store) MonitorIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.scanIDs(ctx, "mm:monitor:")
}
