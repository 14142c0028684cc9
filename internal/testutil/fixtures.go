// Package testutil holds shared fixtures for tests.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/riftlane/match-backend/internal/domain"
)

// QueueEntryBuilder builds queue entries with sensible defaults.
type QueueEntryBuilder struct {
	entry domain.QueueEntry
}

func NewQueueEntry() *QueueEntryBuilder {
	return &QueueEntryBuilder{entry: domain.QueueEntry{
		PlayerID: uuid.New(),
		Region:   "euw",
		Lanes:    []domain.Lane{domain.LaneMid},
		Rating:   1500,
		JoinedAt: time.Now(),
	}}
}

func (b *QueueEntryBuilder) WithPlayer(id uuid.UUID) *QueueEntryBuilder {
	b.entry.PlayerID = id
	return b
}

func (b *QueueEntryBuilder) WithRegion(region string) *QueueEntryBuilder {
	b.entry.Region = region
	return b
}

func (b *QueueEntryBuilder) WithRating(rating int) *QueueEntryBuilder {
	b.entry.Rating = rating
	return b
}

func (b *QueueEntryBuilder) WithLanes(lanes ...domain.Lane) *QueueEntryBuilder {
	b.entry.Lanes = lanes
	return b
}

func (b *QueueEntryBuilder) WithJoinedAt(t time.Time) *QueueEntryBuilder {
	b.entry.JoinedAt = t
	return b
}

func (b *QueueEntryBuilder) Build() domain.QueueEntry {
	return b.entry
}

// Roster returns n fresh player ids.
func Roster(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

// Champions returns n distinct champion ids.
func Champions(n int) []string {
	names := []string{
		"aatrox", "ahri", "akali", "ashe", "braum", "caitlyn", "darius",
		"ezreal", "garen", "janna", "jinx", "kaisa", "leesin", "leona",
		"lux", "malphite", "morgana", "nautilus", "orianna", "renekton",
		"sett", "thresh", "vayne", "viktor", "yasuo", "zed",
	}
	return names[:n]
}
