package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient(t *testing.T) {
	t.Run("Success: connects and pings", func(t *testing.T) {
		s := miniredis.RunT(t)

		client, err := NewRedisClient(Config{Addr: s.Addr()})
		require.NoError(t, err)
		defer client.Close()

		ctx := context.Background()
		require.NoError(t, client.Set(ctx, "categories:probe", "ok", time.Minute).Err())

		val, err := client.Get(ctx, "categories:probe").Result()
		require.NoError(t, err)
		assert.Equal(t, "ok", val)
	})

	t.Run("Fail: unreachable address surfaces at startup", func(t *testing.T) {
		// Port 1 is reserved, nothing listens there.
		client, err := NewRedisClient(Config{Addr: "localhost:1"})
		require.Error(t, err)
		assert.Nil(t, client)
		assert.Contains(t, err.Error(), "cache: connect to redis")
	})

	t.Run("Fail: wrong password is rejected", func(t *testing.T) {
		s := miniredis.RunT(t)
		s.RequireAuth("right-password")

		client, err := NewRedisClient(Config{Addr: s.Addr(), Password: "wrong-password"})
		require.Error(t, err)
		assert.Nil(t, client)
	})
}
