// Package cache is the fast ephemeral store shared by every server process.
// All in-flight session state (queue entries, proposals, draft sessions,
// game monitors) lives here keyed by match or player id, JSON-encoded with
// a bounded TTL. Mutations to per-match entries go through an optimistic
// compare-and-set so that two near-simultaneous writers cannot
// double-advance state.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/riftlane/match-backend/internal/domain"
)

const (
	casAttempts       = 5
	transientAttempts = 3
	retryBaseDelay    = 25 * time.Millisecond
)

type Store struct {
	rdb      *redis.Client
	ttl      time.Duration // ephemeral bucket TTL
	queueTTL time.Duration // queue entry TTL
}

func NewStore(rdb *redis.Client, ttl, queueTTL time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl, queueTTL: queueTTL}
}

func NewClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func proposalKey(matchID uuid.UUID) string { return "mm:proposal:" + matchID.String() }
func draftKey(matchID uuid.UUID) string    { return "mm:draft:" + matchID.String() }
func monitorKey(matchID uuid.UUID) string  { return "mm:monitor:" + matchID.String() }
func queueKey(region string) string        { return "mm:queue:" + region }
func playerKey(playerID uuid.UUID) string  { return "mm:player:" + playerID.String() }
func lockKey(name string) string           { return "mm:lock:" + name }

const regionsKey = "mm:regions"

// AcquireLock takes a best-effort cross-process lock. Used by sweeps whose
// redundant execution would not be harmless (the queue matching pass).
func (s *Store) AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, lockKey(name), time.Now().UnixMilli(), ttl).Result()
}

func (s *Store) ReleaseLock(ctx context.Context, name string) error {
	return s.rdb.Del(ctx, lockKey(name)).Err()
}

// withTransientRetry retries f on transport-level failures with a short
// jittered delay, then gives up with domain.ErrTransient so the caller
// rejects the request instead of half-applying it.
func (s *Store) withTransientRetry(ctx context.Context, f func() error) error {
	var err error
	for attempt := 0; attempt < transientAttempts; attempt++ {
		if err = f(); err == nil || !isTransient(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBaseDelay + time.Duration(rand.Intn(25))*time.Millisecond):
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrTransient, err)
}

func isTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	for _, sentinel := range []error{
		domain.ErrProposalNotFound, domain.ErrSessionNotFound, domain.ErrMonitorNotFound,
		domain.ErrAlreadyQueued, domain.ErrWrongTurn, domain.ErrAlreadyLocked,
		domain.ErrChampionUnavailable, domain.ErrAlreadyResponded, domain.ErrProposalExpired,
		domain.ErrNotParticipant, domain.ErrValidation, domain.ErrDraftNotComplete,
	} {
		if errors.Is(err, sentinel) {
			return false
		}
	}
	return true
}

// casUpdate runs fn against the decoded entry under WATCH and writes the
// mutated value back in the same transaction. A concurrent write to the key
// aborts the transaction and the read-mutate-write is retried against fresh
// state. fn returning an error abandons the update with no write at all and
// that error is returned to the caller unchanged.
func casUpdate[T any](ctx context.Context, s *Store, key string, missing error, fn func(*T) error) (*T, error) {
	var out *T
	var err error
	for attempt := 0; attempt < casAttempts; attempt++ {
		var fnErr error
		err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if err == redis.Nil {
				fnErr = missing
				return missing
			}
			if err != nil {
				return err
			}
			var entry T
			if err := json.Unmarshal(raw, &entry); err != nil {
				return err
			}
			if err := fn(&entry); err != nil {
				fnErr = err
				return err
			}
			newRaw, err := json.Marshal(&entry)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, newRaw, s.ttl)
				return nil
			})
			if err != nil {
				return err
			}
			out = &entry
			return nil
		}, key)
		if fnErr != nil {
			return nil, fnErr
		}
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	return out, nil
}

func (s *Store) getJSON(ctx context.Context, key string, missing error, v interface{}) error {
	return s.withTransientRetry(ctx, func() error {
		raw, err := s.rdb.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return missing
		}
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, v)
	})
}

func (s *Store) setJSON(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.withTransientRetry(ctx, func() error {
		return s.rdb.Set(ctx, key, raw, s.ttl).Err()
	})
}

// scanIDs walks keys under the given prefix and parses the trailing match id.
func (s *Store) scanIDs(ctx context.Context, prefix string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	iter := s.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		id, err := uuid.Parse(iter.Val()[len(prefix):])
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, iter.Err()
}
