package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/config"
)

var _ fiber.Storage = (*RedisStorage)(nil)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *Redis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r := NewRedis(config.RedisConfig{Addr: mr.Addr()}, zap.NewNop())
	require.NotNil(t, r)
	t.Cleanup(r.Close)
	return mr, r
}

func TestNewRedis_Disabled(t *testing.T) {
	r := NewRedis(config.RedisConfig{}, zap.NewNop())
	assert.Nil(t, r)
	assert.Error(t, r.Ping(context.Background()))
	r.Close()
}

func TestRedisStorage(t *testing.T) {
	mr, r := newTestRedis(t)
	require.NoError(t, r.Ping(context.Background()))
	storage := r.Storage()

	t.Run("Should return nil for unknown keys", func(t *testing.T) {
		val, err := storage.Get("missing")
		require.NoError(t, err)
		assert.Nil(t, val)
	})

	t.Run("Should round trip values under a prefix", func(t *testing.T) {
		require.NoError(t, storage.Set("10.0.0.1", []byte("3"), time.Minute))
		val, err := storage.Get("10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, []byte("3"), val)
		assert.True(t, mr.Exists(storageKeyPrefix+"10.0.0.1"))
	})

	t.Run("Should expire values", func(t *testing.T) {
		require.NoError(t, storage.Set("short", []byte("1"), time.Second))
		mr.FastForward(2 * time.Second)
		val, err := storage.Get("short")
		require.NoError(t, err)
		assert.Nil(t, val)
	})

	t.Run("Should delete and reset", func(t *testing.T) {
		require.NoError(t, storage.Set("a", []byte("1"), 0))
		require.NoError(t, storage.Set("b", []byte("1"), 0))
		require.NoError(t, mr.Set("unrelated", "keep"))

		require.NoError(t, storage.Delete("a"))
		val, err := storage.Get("a")
		require.NoError(t, err)
		assert.Nil(t, val)

		require.NoError(t, storage.Reset())
		val, err = storage.Get("b")
		require.NoError(t, err)
		assert.Nil(t, val)
		assert.True(t, mr.Exists("unrelated"))
	})

	t.Run("Should ignore empty keys", func(t *testing.T) {
		assert.NoError(t, storage.Set("", []byte("x"), 0))
		val, err := storage.Get("")
		assert.NoError(t, err)
		assert.Nil(t, val)
		assert.NoError(t, storage.Delete(""))
		assert.NoError(t, storage.Close())
	})
}
