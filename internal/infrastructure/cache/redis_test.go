package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func setupRedisStore(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *redis.Client, *RedisStore[[]cachedEntry]) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client, NewRedisStore[[]cachedEntry](client, "sysdict:dictionary", ttl)
}

func TestRedisStore_SetGet(t *testing.T) {
	mr, _, store := setupRedisStore(t, 0)
	ctx := context.Background()
	value := []cachedEntry{{Name: "Enabled", Value: "1"}}

	require.NoError(t, store.Set(ctx, "State-", value))
	assert.True(t, mr.Exists("sysdict:dictionary:State-"))

	got, ok, err := store.Get(ctx, "State-")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, value, got)
}

func TestRedisStore_Miss(t *testing.T) {
	_, _, store := setupRedisStore(t, 0)

	_, ok, err := store.Get(context.Background(), "absent")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_TTL(t *testing.T) {
	mr, _, store := setupRedisStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []cachedEntry{{Name: "a"}}))
	assert.Equal(t, time.Minute, mr.TTL("sysdict:dictionary:k"))

	mr.FastForward(2 * time.Minute)
	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_ClearOnlyOwnPrefix(t *testing.T) {
	mr, client, store := setupRedisStore(t, 0)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", nil))
	require.NoError(t, store.Set(ctx, "b", nil))
	require.NoError(t, client.Set(ctx, "other:key", "x", 0).Err())

	require.NoError(t, store.Clear(ctx))

	assert.False(t, mr.Exists("sysdict:dictionary:a"))
	assert.False(t, mr.Exists("sysdict:dictionary:b"))
	assert.True(t, mr.Exists("other:key"))
}

func TestRedisStore_DecodeError(t *testing.T) {
	mr, _, store := setupRedisStore(t, 0)
	require.NoError(t, mr.Set("sysdict:dictionary:k", "not json"))

	_, ok, err := store.Get(context.Background(), "k")

	assert.Error(t, err)
	assert.False(t, ok)
}

func TestLookup_WithRedisStore(t *testing.T) {
	_, _, store := setupRedisStore(t, 0)
	lookup := NewLookup[[]cachedEntry]("dictionary", store, nil)
	ctx := context.Background()

	calls := 0
	load := func(context.Context) ([]cachedEntry, error) {
		calls++
		return []cachedEntry{{Name: "Enabled", Value: "1"}}, nil
	}

	_, err := lookup.GetOrLoad(ctx, "State-", load)
	require.NoError(t, err)
	got, err := lookup.GetOrLoad(ctx, "State-", load)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, "Enabled", got[0].Name)
}
