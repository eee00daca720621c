package limiter

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// fixed window counter; returns {allowed, remaining, ttl seconds}
var windowScript = goredis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])

	local current = redis.call('GET', key)
	if current == false then
		current = 0
	else
		current = tonumber(current)
	end

	local ttl = redis.call('TTL', key)
	if ttl < 0 then
		ttl = window
	end

	if current < limit then
		redis.call('INCR', key)
		if ttl == window then
			redis.call('EXPIRE', key, window)
		end
		return {1, limit - current - 1, ttl}
	end
	return {0, 0, ttl}
`)

// Redis is a fixed window counter shared by every server instance.
type Redis struct {
	client goredis.Scripter
	limit  int
	window time.Duration
	prefix string
}

func NewRedis(client goredis.Scripter, limit int, window time.Duration) *Redis {
	if limit <= 0 {
		limit = 1
	}
	if window < time.Second {
		window = time.Second
	}
	return &Redis{client: client, limit: limit, window: window, prefix: "fitcoach:ratelimit:"}
}

func (r *Redis) Allow(ctx context.Context, key string) (Result, error) {
	raw, err := windowScript.Run(ctx, r.client, []string{r.prefix + key}, r.limit, int(r.window.Seconds())).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit check: %w", err)
	}
	if len(raw) < 3 {
		return Result{}, fmt.Errorf("unexpected rate limit result %v", raw)
	}
	return Result{
		Allowed:   raw[0] == 1,
		Limit:     r.limit,
		Remaining: int(raw[1]),
		ResetIn:   time.Duration(raw[2]) * time.Second,
	}, nil
}

// NewRedisClient connects to addr and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}
