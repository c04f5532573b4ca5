// Package limiters throttles password-reset traffic with redis-backed
// fixed windows, keyed per identifier and per client IP.
package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrResetRateLimited = errors.New("reset rate limited")
	ErrResetUnavailable = errors.New("reset limiter unavailable")
)

type ResetConfig struct {
	// MaxRequests caps requests per window and per key. Zero disables the
	// limiter entirely.
	MaxRequests int
	Window      time.Duration
}

// ResetLimiter enforces a fixed window per email and per IP. A nil limiter
// or a nil redis client allows everything, which is what redis-less
// development mode gets.
type ResetLimiter struct {
	redis  redis.UniversalClient
	config ResetConfig
}

func NewResetLimiter(redisClient redis.UniversalClient, cfg ResetConfig) *ResetLimiter {
	return &ResetLimiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckRequest admits or rejects one reset request for the given email and
// optional client IP.
func (l *ResetLimiter) CheckRequest(ctx context.Context, email, ip string) error {
	if l == nil || l.redis == nil || l.config.MaxRequests <= 0 {
		return nil
	}

	if err := l.enforceFixedWindow(ctx, identifierKey(email)); err != nil {
		return err
	}
	if ip != "" {
		if err := l.enforceFixedWindow(ctx, ipKey(ip)); err != nil {
			return err
		}
	}
	return nil
}

func (l *ResetLimiter) enforceFixedWindow(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResetUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrResetUnavailable, err)
		}
	}

	if count > int64(l.config.MaxRequests) {
		return ErrResetRateLimited
	}

	return nil
}

func identifierKey(email string) string {
	return "pgri:" + email
}

func ipKey(ip string) string {
	return "pgrip:" + ip
}
