package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Fixed window counter. Returns the hit count and the window's remaining lifetime in milliseconds.
var fixedWindowScript = redis.NewScript(`
	local count = redis.call("INCR", KEYS[1])
	if count == 1 then
		redis.call("PEXPIRE", KEYS[1], ARGV[1])
	end

	local ttl = redis.call("PTTL", KEYS[1])
	if ttl < 0 then
		redis.call("PEXPIRE", KEYS[1], ARGV[1])
		ttl = tonumber(ARGV[1])
	end

	return {count, ttl}
`)

type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type Limiter struct {
	client redis.Scripter
	prefix string
	limit  int
	window time.Duration
}

func NewLimiter(client redis.Scripter, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
	}
}

func (l *Limiter) Key(id string) string {
	return fmt.Sprintf("ratelimit:%s:%s", l.prefix, id)
}

// Allow counts one hit for id in the current window.
func (l *Limiter) Allow(ctx context.Context, id string) (Result, error) {
	values, err := fixedWindowScript.Run(ctx, l.client, []string{l.Key(id)}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit %s: %w", id, err)
	}

	if len(values) != 2 {
		return Result{}, fmt.Errorf("rate limit %s: unexpected reply %v", id, values)
	}

	count, ttl := int(values[0]), time.Duration(values[1])*time.Millisecond

	if count > l.limit {
		return Result{Allowed: false, RetryAfter: ttl}, nil
	}

	return Result{Allowed: true, Remaining: l.limit - count}, nil
}
