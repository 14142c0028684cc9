package cache

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/riftlane/match-backend/internal/domain"
)

// JoinQueue adds a waiting player. The per-player reverse index is created
// with SETNX so a player can hold at most one entry across all processes.
func (s *Store) JoinQueue(ctx context.Context, entry domain.QueueEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.withTransientRetry(ctx, func() error {
		ok, err := s.rdb.SetNX(ctx, playerKey(entry.PlayerID), entry.Region, s.queueTTL).Result()
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAlreadyQueued
		}
		pipe := s.rdb.Pipeline()
		pipe.HSet(ctx, queueKey(entry.Region), entry.PlayerID.String(), raw)
		pipe.Expire(ctx, queueKey(entry.Region), s.queueTTL)
		pipe.SAdd(ctx, regionsKey, entry.Region)
		_, err = pipe.Exec(ctx)
		return err
	})
}

// LeaveQueue removes the player's entry if one exists. Idempotent; reports
// the region the player was queued in.
func (s *Store) LeaveQueue(ctx context.Context, playerID uuid.UUID) (string, bool, error) {
	var region string
	var removed bool
	err := s.withTransientRetry(ctx, func() error {
		r, err := s.rdb.Get(ctx, playerKey(playerID)).Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		pipe := s.rdb.Pipeline()
		pipe.HDel(ctx, queueKey(r), playerID.String())
		pipe.Del(ctx, playerKey(playerID))
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		region, removed = r, true
		return nil
	})
	return region, removed, err
}

// RemoveEntries drops the consumed queue entries of a formed group.
func (s *Store) RemoveEntries(ctx context.Context, region string, playerIDs []uuid.UUID) error {
	return s.withTransientRetry(ctx, func() error {
		pipe := s.rdb.Pipeline()
		for _, id := range playerIDs {
			pipe.HDel(ctx, queueKey(region), id.String())
			pipe.Del(ctx, playerKey(id))
		}
		_, err := pipe.Exec(ctx)
		return err
	})
}

func (s *Store) QueueEntries(ctx context.Context, region string) ([]domain.QueueEntry, error) {
	var entries []domain.QueueEntry
	err := s.withTransientRetry(ctx, func() error {
		fields, err := s.rdb.HGetAll(ctx, queueKey(region)).Result()
		if err != nil {
			return err
		}
		entries = entries[:0]
		for _, raw := range fields {
			var e domain.QueueEntry
			if err := json.Unmarshal([]byte(raw), &e); err != nil {
				continue
			}
			entries = append(entries, e)
		}
		return nil
	})
	return entries, err
}

func (s *Store) QueueLen(ctx context.Context, region string) (int64, error) {
	return s.rdb.HLen(ctx, queueKey(region)).Result()
}

// Regions returns every region that has ever had a queue entry. Regions
// with empty queues are cheap to skip at read time.
func (s *Store) Regions(ctx context.Context) ([]string, error) {
	return s.rdb.SMembers(ctx, regionsKey).Result()
}
