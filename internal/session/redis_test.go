package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ""), mr
}

func TestRedisStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		store, _ := newRedisStore(t)
		return store
	})
}

func TestOpenRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	store, closeFn, err := OpenRedisStore(ctx, "redis://"+mr.Addr(), "candidash:test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeFn() })

	require.NoError(t, store.Save(ctx, testSession()))
	assert.True(t, mr.Exists("candidash:test"))
	assert.False(t, mr.Exists(DefaultRedisKey))
}

func TestOpenRedisStore_Errors(t *testing.T) {
	ctx := context.Background()

	_, _, err := OpenRedisStore(ctx, "http://not-redis", "")
	assert.ErrorContains(t, err, "parse redis url")

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, _, err = OpenRedisStore(ctx, "redis://"+addr, "")
	assert.ErrorContains(t, err, "redis not reachable")
}

func TestRedisStore_TTLFollowsExpiry(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	s := testSession()
	store.now = func() time.Time { return s.ExpiresAt.Add(-time.Hour) }
	require.NoError(t, store.Save(ctx, s))
	assert.Equal(t, time.Hour, mr.TTL(DefaultRedisKey))

	mr.FastForward(time.Hour)
	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_NoExpiryKeepsKey(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	s := testSession()
	s.ExpiresAt = time.Time{}
	require.NoError(t, store.Save(ctx, s))
	assert.Zero(t, mr.TTL(DefaultRedisKey))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestRedisStore_SaveExpiredSession(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, testSession()))

	expired := testSession()
	expired.Username = "ravi"
	store.now = func() time.Time { return expired.ExpiresAt }
	err := store.Save(ctx, expired)
	assert.ErrorIs(t, err, ErrExpired)

	// The previous record is left alone.
	store.now = time.Now
	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "asha", got.Username)
	assert.True(t, mr.Exists(DefaultRedisKey))
}

func TestRedisStore_Corrupt(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "not json", value: "{not json"},
		{name: "missing token", value: `{"userId": 1, "username": "asha"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mr := newRedisStore(t)
			require.NoError(t, mr.Set(DefaultRedisKey, tt.value))

			_, err := store.Load(context.Background())
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestRedisStore_ServerGone(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()

	_, err := store.Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.ErrorContains(t, err, "load session")
}
