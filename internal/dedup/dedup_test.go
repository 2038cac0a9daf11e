package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisDeduper(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	d := NewRedis(client, time.Minute)
	ctx := context.Background()

	first, err := d.FirstSeen(ctx, "wamid.1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := d.FirstSeen(ctx, "wamid.1")
	require.NoError(t, err)
	assert.False(t, again)

	mr.FastForward(2 * time.Minute)
	afterTTL, err := d.FirstSeen(ctx, "wamid.1")
	require.NoError(t, err)
	assert.True(t, afterTTL)
}

func TestRedisDeduperSurfacesErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	_, err := NewRedis(client, time.Minute).FirstSeen(context.Background(), "wamid.1")
	assert.Error(t, err)
}

func TestMemoryDeduperExpires(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	d := NewMemory(time.Minute)
	d.now = func() time.Time { return now }
	ctx := context.Background()

	first, _ := d.FirstSeen(ctx, "wamid.1")
	again, _ := d.FirstSeen(ctx, "wamid.1")
	assert.True(t, first)
	assert.False(t, again)

	now = now.Add(2 * time.Minute)
	afterTTL, _ := d.FirstSeen(ctx, "wamid.1")
	assert.True(t, afterTTL)
}
