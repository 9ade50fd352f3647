package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/iliyamo/event-hub/internal/config"
)

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// localBuckets keeps one rate.Limiter per key.  Idle buckets are dropped
// once they have been unused for the configured TTL.
type localBuckets struct {
	burst     int
	every     rate.Limit
	ttl       time.Duration
	mu        sync.Mutex
	buckets   map[string]*localBucket
	lastSweep time.Time
	now       func() time.Time
}

func newLocalBuckets(cfg config.RateLimitConfig) *localBuckets {
	return &localBuckets{
		burst:   cfg.Capacity,
		every:   rate.Every(emissionInterval(cfg)),
		ttl:     cfg.TTL,
		buckets: map[string]*localBucket{},
		now:     time.Now,
	}
}

func (l *localBuckets) take(_ context.Context, key string) (verdict, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.ttl {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) > l.ttl {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &localBucket{limiter: rate.NewLimiter(l.every, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	r := b.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return verdict{retry: delay}, nil
	}
	return verdict{allowed: true, remaining: int(b.limiter.TokensAt(now))}, nil
}

// emissionInterval is the time it takes to earn back a single token.
func emissionInterval(cfg config.RateLimitConfig) time.Duration {
	return cfg.RefillInterval / time.Duration(cfg.RefillTokens)
}
