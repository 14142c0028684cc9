package domain

import (
	"time"

	"github.com/google/uuid"
)

type ProposalResponse string

const (
	ResponsePending  ProposalResponse = "pending"
	ResponseAccepted ProposalResponse = "accepted"
	ResponseDeclined ProposalResponse = "declined"
)

// MatchProposal is the ephemeral accept/decline vote for a found match.
// It resolves exactly once: all accept, any decline, or deadline expiry.
// The Resolved flag is flipped inside the cache's compare-and-set so only
// one process carries out the resolution side effects.
type MatchProposal struct {
	MatchID   uuid.UUID                      `json:"matchId"`
	Region    string                         `json:"region"`
	Entries   map[uuid.UUID]QueueEntry       `json:"entries"` // consumed queue entries, for requeue on cancellation
	Responses map[uuid.UUID]ProposalResponse `json:"responses"`
	ExpiresAt time.Time                      `json:"expiresAt"`
	CreatedAt time.Time                      `json:"createdAt"`
	Resolved  bool                           `json:"resolved"`
}

func NewMatchProposal(matchID uuid.UUID, region string, entries []QueueEntry, timeout time.Duration) *MatchProposal {
	now := time.Now()
	p := &MatchProposal{
		MatchID:   matchID,
		Region:    region,
		Entries:   make(map[uuid.UUID]QueueEntry, len(entries)),
		Responses: make(map[uuid.UUID]ProposalResponse, len(entries)),
		ExpiresAt: now.Add(timeout),
		CreatedAt: now,
	}
	for _, e := range entries {
		p.Entries[e.PlayerID] = e
		p.Responses[e.PlayerID] = ResponsePending
	}
	return p
}

func (p *MatchProposal) Requires(playerID uuid.UUID) bool {
	_, ok := p.Responses[playerID]
	return ok
}

func (p *MatchProposal) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

func (p *MatchProposal) AcceptedCount() int {
	n := 0
	for _, r := range p.Responses {
		if r == ResponseAccepted {
			n++
		}
	}
	return n
}

func (p *MatchProposal) AllAccepted() bool {
	return p.AcceptedCount() == len(p.Responses)
}

// AcceptedEntries returns the queue entries of every player who accepted,
// preserving their original join time for requeueing.
func (p *MatchProposal) AcceptedEntries() []QueueEntry {
	var entries []QueueEntry
	for id, r := range p.Responses {
		if r == ResponseAccepted {
			entries = append(entries, p.Entries[id])
		}
	}
	return entries
}
