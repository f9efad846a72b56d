package database

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petition-workers/internal/common/config"
)

func newTestClient(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewRedis(config.RedisConfig{Address: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisClient_GetSet(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))
	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	val, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	mr.FastForward(2 * time.Minute)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisClient_JSON(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	type payload struct {
		Sections map[string]string `json:"sections"`
	}
	in := payload{Sections: map[string]string{"introduction": "I am writing."}}
	require.NoError(t, c.SetJSON(ctx, "letter:abc", in, 0))

	var out payload
	require.NoError(t, c.GetJSON(ctx, "letter:abc", &out))
	assert.Equal(t, in, out)

	require.NoError(t, c.Del(ctx, "letter:abc"))
	assert.ErrorIs(t, c.GetJSON(ctx, "letter:abc", &out), ErrNotFound)
}

func TestRedisClient_DecodeError(t *testing.T) {
	c, mr := newTestClient(t)
	require.NoError(t, mr.Set("bad", "{not json"))

	var out map[string]string
	assert.Error(t, c.GetJSON(context.Background(), "bad", &out))
}

func TestRedisClient_PingFailure(t *testing.T) {
	c := NewRedisFromClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond}))
	defer c.Close()
	assert.Error(t, c.Ping(context.Background()))
}
