// Package ratelimit throttles password sign-in attempts with fixed-window Redis counters.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRateLimited is returned when the attempt budget for the window is spent.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps Redis failures. Callers treat it as fail-open.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

const keyPrefix = "piiwatch:login:"

// Config holds limiter tuning parameters.
type Config struct {
	// MaxAttempts is the number of failed attempts allowed per window.
	MaxAttempts int
	// Cooldown is the window length, measured from the first failure.
	Cooldown time.Duration
}

// Limiter enforces per-email and per-IP failed sign-in budgets.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a Limiter backed by the given Redis client.
func New(client redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{redis: client, config: cfg}
}

// CheckLogin returns ErrRateLimited once either the email or the IP has used up its budget.
func (l *Limiter) CheckLogin(ctx context.Context, email, ip string) error {
	for _, key := range loginKeys(email, ip) {
		count, err := l.redis.Get(ctx, key).Int64()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if count >= int64(l.config.MaxAttempts) {
			return ErrRateLimited
		}
	}
	return nil
}

// RecordFailure counts one failed attempt for email and ip.
// INCR and EXPIRE NX run in one MULTI so a counter never outlives its window;
// NX keeps the window fixed from the first failure.
func (l *Limiter) RecordFailure(ctx context.Context, email, ip string) error {
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range loginKeys(email, ip) {
			pipe.Incr(ctx, key)
			pipe.ExpireNX(ctx, key, l.config.Cooldown)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Reset clears the email counter after a successful sign-in. The IP counter is kept.
func (l *Limiter) Reset(ctx context.Context, email string) error {
	if err := l.redis.Del(ctx, emailKey(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (l *Limiter) Ping(ctx context.Context) error {
	return l.redis.Ping(ctx).Err()
}

func loginKeys(email, ip string) []string {
	keys := []string{emailKey(email)}
	if ip != "" {
		keys = append(keys, keyPrefix+"ip:"+ip)
	}
	return keys
}

func emailKey(email string) string {
	return keyPrefix + "email:" + strings.ToLower(strings.TrimSpace(email))
}
