// Package ratelimit counts requests per key in fixed windows held in Redis.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/diagnosis/luxsuv-reservations/pkg/config"
)

// Limiter decides whether one more request for key fits in the current
// window. retryAfter is only meaningful when allowed is false.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// The first hit in a window sets its expiry, so the window starts with the
// first request rather than on a clock boundary.
var fixedWindow = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
return { count, ttl }
`)

type RedisLimiter struct {
	rdb    redis.Scripter
	prefix string
	limit  int
	window time.Duration
}

func NewRedisLimiter(rdb redis.Scripter, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, prefix: prefix, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	vals, err := fixedWindow.Run(ctx, l.rdb, []string{l.key(key)}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit %s: %w", l.prefix, err)
	}
	if len(vals) != 2 {
		return false, 0, fmt.Errorf("rate limit %s: unexpected script result %v", l.prefix, vals)
	}

	count, ttl := vals[0], time.Duration(vals[1])*time.Millisecond
	if count > int64(l.limit) {
		if ttl < 0 {
			ttl = l.window
		}
		return false, ttl, nil
	}
	return true, 0, nil
}

// key hashes the caller-supplied part so client addresses are not stored
// in clear.
func (l *RedisLimiter) key(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "ratelimit:" + l.prefix + ":" + hex.EncodeToString(sum[:])
}

// NewRedisClient connects using a redis:// URL and verifies the server
// answers.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
