package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voicebot/voicebot/internal/shared"
)

// ErrConflict is returned when an update keeps losing optimistic races.
var ErrConflict = errors.New("capture: too many concurrent updates")

// Store persists per-account state. Update applies fn atomically with respect
// to other updates of the same account.
type Store interface {
	Load(ctx context.Context, accountID string) (State, error)
	Update(ctx context.Context, accountID string, fn func(State) (State, error)) (State, error)
}

const maxUpdateAttempts = 8

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisStore keeps state as JSON under one key per account, updated with
// WATCH/MULTI so the web process and workers never interleave transitions.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore constructs a RedisStore. ttl bounds how long an untouched
// state survives; zero keeps it forever.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Load returns the stored state, or the zero (Idle) state.
func (s *RedisStore) Load(ctx context.Context, accountID string) (State, error) {
	return s.load(ctx, s.client, shared.CaptureStateKey(accountID))
}

// Update runs fn against the current state and stores the result. fn may be
// called several times when another writer wins the race; errors from fn
// abort without writing.
func (s *RedisStore) Update(ctx context.Context, accountID string, fn func(State) (State, error)) (State, error) {
	key := shared.CaptureStateKey(accountID)
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		var out State
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			cur, err := s.load(ctx, tx, key)
			if err != nil {
				return err
			}
			next, err := fn(cur)
			if err != nil {
				out = cur
				return err
			}
			raw, err := json.Marshal(next)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, raw, s.ttl)
				return nil
			})
			if err != nil {
				return err
			}
			out = next
			return nil
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return out, err
	}
	return State{}, ErrConflict
}

func (s *RedisStore) load(ctx context.Context, c getter, key string) (State, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("capture: load state: %w", err)
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, fmt.Errorf("capture: decode state: %w", err)
	}
	return st, nil
}

var _ Store = (*RedisStore)(nil)
