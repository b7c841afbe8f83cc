package capture

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, 0)
}

func TestRedisStoreLoadDefaultsToIdle(t *testing.T) {
	store := newRedisStore(t)
	st, err := store.Load(context.Background(), "acct")
	require.NoError(t, err)
	assert.Equal(t, StageIdle, st.Stage)
}

func TestRedisStoreUpdate(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	st, err := store.Update(ctx, "acct", func(cur State) (State, error) {
		return cur.captured(SourceFile, "a.wav", "audio/wav", "hello", t0), nil
	})
	require.NoError(t, err)
	assert.Equal(t, StageTranscribed, st.Stage)

	loaded, err := store.Load(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, st, loaded)

	boom := errors.New("boom")
	cur, err := store.Update(ctx, "acct", func(State) (State, error) { return State{}, boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, st, cur, "failed updates report the unchanged state")

	other, err := store.Load(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, StageIdle, other.Stage, "accounts are isolated")
}

func TestRedisStoreConcurrentUpdatesAreSerialised(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	const writers = 5
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, "acct", func(cur State) (State, error) {
				return cur.reset(t0), nil
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	applied := 0
	for err := range errs {
		if err == nil {
			applied++
			continue
		}
		require.ErrorIs(t, err, ErrConflict)
	}
	st, err := store.Load(ctx, "acct")
	require.NoError(t, err)
	assert.EqualValues(t, applied, st.Epoch, "every applied reset bumps the epoch exactly once")
}
