// Package limiter implements fixed-window attempt counters on Redis.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRateLimited = errors.New("rate limited")
	ErrUnavailable = errors.New("limiter unavailable")
)

// FixedWindow allows at most limit hits per key within window. The window of a
// key starts with its first hit.
type FixedWindow struct {
	redis  redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

func NewFixedWindow(client redis.UniversalClient, prefix string, limit int, window time.Duration) *FixedWindow {
	return &FixedWindow{
		redis:  client,
		prefix: prefix,
		limit:  limit,
		window: window,
	}
}

// Check records a hit for key and fails with ErrRateLimited when the key is
// over its limit. Redis failures are reported as ErrUnavailable.
func (l *FixedWindow) Check(ctx context.Context, key string) error {
	redisKey := l.prefix + ":" + key

	count, err := l.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
	}

	if count > int64(l.limit) {
		return ErrRateLimited
	}

	return nil
}

// Reset forgets every hit recorded for key.
func (l *FixedWindow) Reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, l.prefix+":"+key).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return nil
}
