package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/pricewatch/internal/config"
)

const keyObservationSource = "pricewatch:observations:source:%s"

// SourceLimiter throttles observation writes per collector source.
type SourceLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewSourceLimiter(cfg config.Config, client *redis.Client) (*SourceLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}
	if client == nil {
		return nil, errors.New("rate limit requires REDIS_ADDR")
	}
	if limitCfg.SourceRate <= 0 || limitCfg.SourceBurst <= 0 {
		return nil, errors.New("source rate limit must be positive")
	}
	return &SourceLimiter{
		bucket: NewTokenBucket(client),
		rate:   limitCfg.SourceRate,
		burst:  limitCfg.SourceBurst,
	}, nil
}

func (l *SourceLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow reports whether source may write now and, if not, how long to wait.
func (l *SourceLimiter) Allow(ctx context.Context, source string) (bool, time.Duration, error) {
	if !l.Enabled() {
		return true, 0, nil
	}
	source = strings.ToLower(strings.TrimSpace(source))
	if source == "" {
		source = "unknown"
	}
	res, err := l.bucket.Allow(ctx, fmt.Sprintf(keyObservationSource, source), l.rate, l.burst)
	if err != nil {
		return false, 0, err
	}
	return res.Allowed, res.RetryAfter, nil
}
