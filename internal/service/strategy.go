package service

import (
	"sort"

	"github.com/riftlane/match-backend/internal/domain"
)

// Group is a formed match candidate: two rosters drawn from one region's
// queue.
type Group struct {
	Region string
	Blue   []domain.QueueEntry
	Red    []domain.QueueEntry
}

// MatchStrategy decides which waiting players form a match and how they
// split into teams. Entries belong to a single region.
type MatchStrategy interface {
	FormGroups(entries []domain.QueueEntry, teamSize int) []Group
}

// RatingBalanceStrategy forms groups from rating-adjacent windows of the
// queue, then picks the team split minimising the rating gap with lane
// coverage as a tiebreaker. MaxRatingSpread bounds the window; zero means
// unbounded.
type RatingBalanceStrategy struct {
	MaxRatingSpread int
}

func (s *RatingBalanceStrategy) FormGroups(entries []domain.QueueEntry, teamSize int) []Group {
	need := 2 * teamSize
	if len(entries) < need {
		return nil
	}

	sorted := make([]domain.QueueEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Rating != sorted[j].Rating {
			return sorted[i].Rating < sorted[j].Rating
		}
		return sorted[i].JoinedAt.Before(sorted[j].JoinedAt)
	})

	var groups []Group
	i := 0
	for i+need <= len(sorted) {
		window := sorted[i : i+need]
		spread := window[len(window)-1].Rating - window[0].Rating
		if s.MaxRatingSpread > 0 && spread > s.MaxRatingSpread {
			i++
			continue
		}
		blue, red := bestSplit(window, teamSize)
		groups = append(groups, Group{Region: window[0].Region, Blue: blue, Red: red})
		i += need
	}
	return groups
}

// bestSplit tries every way of assigning the window to two teams and keeps
// the split with the lowest cost.
func bestSplit(window []domain.QueueEntry, teamSize int) ([]domain.QueueEntry, []domain.QueueEntry) {
	best := -1
	var bestMask int
	for _, mask := range teamMasks(len(window), teamSize) {
		cost := splitCost(window, mask, teamSize)
		if best < 0 || cost < best {
			best = cost
			bestMask = mask
		}
	}

	var blue, red []domain.QueueEntry
	for idx, e := range window {
		if bestMask&(1<<idx) != 0 {
			blue = append(blue, e)
		} else {
			red = append(red, e)
		}
	}
	return blue, red
}

// teamMasks enumerates bitmasks with exactly teamSize bits set out of n.
// n is at most 10, so the full scan is at most 1024 masks.
func teamMasks(n, teamSize int) []int {
	var masks []int
	for mask := 0; mask < 1<<n; mask++ {
		if popCount(mask) == teamSize {
			masks = append(masks, mask)
		}
	}
	return masks
}

func popCount(v int) int {
	n := 0
	for v != 0 {
		v &= v - 1
		n++
	}
	return n
}

// splitCost scores a candidate split. Rating imbalance dominates; missing
// first-preference lane coverage adds a fixed penalty per uncovered slot.
func splitCost(window []domain.QueueEntry, mask, teamSize int) int {
	var blueSum, redSum int
	blueLanes := map[domain.Lane]bool{}
	redLanes := map[domain.Lane]bool{}
	for idx, e := range window {
		var lane domain.Lane
		if len(e.Lanes) > 0 {
			lane = e.Lanes[0]
		}
		if mask&(1<<idx) != 0 {
			blueSum += e.Rating
			blueLanes[lane] = true
		} else {
			redSum += e.Rating
			redLanes[lane] = true
		}
	}
	diff := blueSum - redSum
	if diff < 0 {
		diff = -diff
	}
	lanePenalty := (teamSize - len(blueLanes)) + (teamSize - len(redLanes))
	return diff + lanePenalty*50
}
