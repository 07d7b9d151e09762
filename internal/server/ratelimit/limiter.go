// Package ratelimit bounds OTP verification attempts per identity using a
// fixed counter in Redis shared by every identity service instance.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	DefaultMaxAttempts = 5
	DefaultWindow      = 5 * time.Minute
)

// AttemptLimiter counts attempts per key inside a window. Every attempt
// refreshes the window, so a client that keeps guessing stays locked out.
type AttemptLimiter struct {
	redis       redis.UniversalClient
	prefix      string
	maxAttempts int64
	window      time.Duration
}

func NewAttemptLimiter(client redis.UniversalClient, prefix string, maxAttempts int, window time.Duration) *AttemptLimiter {
	if prefix == "" {
		prefix = "projectrux:otp-attempts"
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &AttemptLimiter{
		redis:       client,
		prefix:      prefix,
		maxAttempts: int64(maxAttempts),
		window:      window,
	}
}

func (l *AttemptLimiter) key(k string) string {
	return fmt.Sprintf("%s:%s", l.prefix, k)
}

// Allow records one attempt and reports whether it is within the limit.
// On Redis errors it fails open: it returns true together with the error.
func (l *AttemptLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := l.key(key)

	pipe := l.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("redis error: %w", err)
	}

	return incr.Val() <= l.maxAttempts, nil
}

// Reset forgets the attempts for key, e.g. after a successful verification
// or when a fresh code is sent.
func (l *AttemptLimiter) Reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}
