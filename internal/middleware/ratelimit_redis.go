package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-hub/internal/config"
)

// gcraScript stores one value per key: the theoretical arrival time (TAT) of
// the next request in milliseconds.  A request is allowed when the TAT it
// would push forward stays within burst emission intervals of now.
//
// ARGV: now_ms, interval_ms, burst, ttl_ms.  Returns {allowed, remaining, retry_ms}.
var gcraScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local interval = tonumber(ARGV[2])
local burst = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local tat = tonumber(redis.call('GET', KEYS[1]))
if tat == nil or tat < now then
	tat = now
end

local next_tat = tat + interval
local allow_at = next_tat - interval * burst
if now < allow_at then
	return {0, 0, allow_at - now}
end

redis.call('SET', KEYS[1], next_tat, 'PX', ttl)
return {1, math.floor((now - allow_at) / interval), 0}
`)

// redisBuckets runs gcraScript so every replica draws from the same bucket.
type redisBuckets struct {
	rdb      *redis.Client
	interval time.Duration
	burst    int
	ttl      time.Duration
	now      func() time.Time
}

func newRedisBuckets(cfg config.RateLimitConfig, rdb *redis.Client) *redisBuckets {
	interval := emissionInterval(cfg)
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	ttl := cfg.TTL
	if full := interval * time.Duration(cfg.Capacity); ttl < full {
		ttl = full
	}
	return &redisBuckets{
		rdb:      rdb,
		interval: interval,
		burst:    cfg.Capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (r *redisBuckets) take(ctx context.Context, key string) (verdict, error) {
	args := []interface{}{
		r.now().UnixMilli(),
		r.interval.Milliseconds(),
		int64(r.burst),
		r.ttl.Milliseconds(),
	}
	res, err := gcraScript.Run(ctx, r.rdb, []string{key}, args...).Int64Slice()
	if err != nil {
		return verdict{}, err
	}
	if len(res) != 3 {
		return verdict{}, fmt.Errorf("ratelimit script returned %d values", len(res))
	}
	return verdict{
		allowed:   res[0] == 1,
		remaining: int(res[1]),
		retry:     time.Duration(res[2]) * time.Millisecond,
	}, nil
}
