package ratelimit

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/pricewatch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilLockerIsDisabled(t *testing.T) {
	locker := NewLocker(nil)
	assert.Nil(t, locker)

	lease, err := locker.Acquire(context.Background(), "k", time.Second)
	assert.ErrorIs(t, err, ErrLockDisabled)
	assert.Nil(t, lease)
	assert.NoError(t, lease.Release(context.Background()))

	_, err = locker.Holder(context.Background(), "k")
	assert.ErrorIs(t, err, ErrLockDisabled)
}

func TestAcquireValidatesBeforeCallingRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })
	locker := NewLocker(client)
	require.NotNil(t, locker)
	assert.NotEmpty(t, locker.holder)

	_, err := locker.Acquire(context.Background(), "", time.Second)
	assert.ErrorIs(t, err, ErrLockKey)
	_, err = locker.Acquire(context.Background(), "pricewatch:candidate:adopt", 0)
	assert.ErrorIs(t, err, ErrLockTTL)
}

func TestSourceLimiterDisabled(t *testing.T) {
	limiter, err := NewSourceLimiter(config.Config{}, nil)
	require.NoError(t, err)
	assert.False(t, limiter.Enabled())

	allowed, wait, err := limiter.Allow(context.Background(), "selver")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, wait)
}

func TestSourceLimiterNeedsRedis(t *testing.T) {
	_, err := NewSourceLimiter(config.Config{RateLimit: config.RateLimitConfig{Enabled: true, SourceRate: 1, SourceBurst: 1}}, nil)
	assert.Error(t, err)
}

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, time.Second, defaultBucketTTL(0, 1))
	assert.Equal(t, 8*time.Second, defaultBucketTTL(50, 200))
	assert.Equal(t, time.Second, defaultBucketTTL(1000, 1))
}

func TestCastHelpers(t *testing.T) {
	assert.Equal(t, int64(1), castToInt(int64(1)))
	assert.Equal(t, int64(0), castToInt("x"))
	assert.InDelta(t, 0.25, castToFloat("0.25"), 1e-9)
	assert.InDelta(t, 3.0, castToFloat(int64(3)), 1e-9)
	assert.Zero(t, castToFloat("nope"))
}
