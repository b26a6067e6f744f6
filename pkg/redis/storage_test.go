package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/multisite/pkg/cache"
	"github.com/dmitrymomot/multisite/pkg/redis"
)

func newTestStorage(t *testing.T, namespace string) (*redis.Storage, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return redis.NewStorage(client, namespace), srv
}

func TestStorage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("implements cache backend", func(t *testing.T) {
		t.Parallel()

		s, _ := newTestStorage(t, "ms")
		var _ cache.Backend = s
	})

	t.Run("set get delete", func(t *testing.T) {
		t.Parallel()

		s, srv := newTestStorage(t, "ms")

		require.NoError(t, s.Set(ctx, "a", []byte("1"), 0))
		assert.True(t, srv.Exists("ms:a"))

		v, ok, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("1"), v)

		require.NoError(t, s.Delete(ctx, "a"))
		_, ok, err = s.Get(ctx, "a")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ttl is applied", func(t *testing.T) {
		t.Parallel()

		s, srv := newTestStorage(t, "ms")

		require.NoError(t, s.Set(ctx, "a", []byte("1"), time.Minute))
		assert.Equal(t, time.Minute, srv.TTL("ms:a"))

		srv.FastForward(2 * time.Minute)
		_, ok, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("clear only touches its namespace", func(t *testing.T) {
		t.Parallel()

		s, srv := newTestStorage(t, "ms")
		require.NoError(t, srv.Set("other:key", "keep"))

		for _, k := range []string{"a", "b", "c"} {
			require.NoError(t, s.Set(ctx, k, []byte(k), 0))
		}

		require.NoError(t, s.Clear(ctx))

		assert.False(t, srv.Exists("ms:a"))
		assert.False(t, srv.Exists("ms:b"))
		assert.False(t, srv.Exists("ms:c"))
		assert.True(t, srv.Exists("other:key"))
	})

	t.Run("empty namespace gets default", func(t *testing.T) {
		t.Parallel()

		s, _ := newTestStorage(t, "")
		assert.Equal(t, "multisite", s.Namespace())
	})

	t.Run("server errors are wrapped", func(t *testing.T) {
		t.Parallel()

		s, srv := newTestStorage(t, "ms")
		srv.Close()

		_, _, err := s.Get(ctx, "a")
		assert.ErrorIs(t, err, redis.ErrStorage)
		assert.ErrorIs(t, s.Clear(ctx), redis.ErrStorage)
	})
}

func TestConnect(t *testing.T) {
	t.Parallel()

	t.Run("connects to running server", func(t *testing.T) {
		t.Parallel()

		srv := miniredis.RunT(t)
		client, err := redis.Connect(context.Background(), redis.Config{
			ConnectionURL:  "redis://" + srv.Addr() + "/0",
			RetryAttempts:  1,
			ConnectTimeout: time.Second,
		})
		require.NoError(t, err)
		defer client.Close()

		assert.NoError(t, redis.Healthcheck(client)(context.Background()))
	})

	t.Run("empty url", func(t *testing.T) {
		t.Parallel()

		_, err := redis.Connect(context.Background(), redis.Config{})
		assert.ErrorIs(t, err, redis.ErrEmptyConnectionURL)
	})

	t.Run("bad url", func(t *testing.T) {
		t.Parallel()

		_, err := redis.Connect(context.Background(), redis.Config{ConnectionURL: "http://nope"})
		assert.ErrorIs(t, err, redis.ErrFailedToParseRedisConnString)
	})

	t.Run("unreachable server", func(t *testing.T) {
		t.Parallel()

		srv := miniredis.RunT(t)
		addr := srv.Addr()
		srv.Close()

		_, err := redis.Connect(context.Background(), redis.Config{
			ConnectionURL:  "redis://" + addr + "/0",
			RetryAttempts:  2,
			RetryInterval:  10 * time.Millisecond,
			ConnectTimeout: time.Second,
		})
		assert.ErrorIs(t, err, redis.ErrRedisNotReady)
	})
}
