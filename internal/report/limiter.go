package report

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long an unused datasource bucket is kept.
const limiterIdleTTL = 10 * time.Minute

type datasourceLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per datasource.
type rateLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets map[string]*datasourceLimiter
	now     func() time.Time
}

// newRateLimiter returns nil when perSecond <= 0, which disables limiting.
func newRateLimiter(perSecond float64, burst int) *rateLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &rateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		buckets: make(map[string]*datasourceLimiter),
		now:     time.Now,
	}
}

// Allow takes one token from the datasource's bucket.
func (l *rateLimiter) Allow(datasourceID string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[datasourceID]
	if !ok {
		b = &datasourceLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[datasourceID] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// Prune drops buckets idle for longer than limiterIdleTTL.
func (l *rateLimiter) Prune() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for id, b := range l.buckets {
		if now.Sub(b.lastSeen) > limiterIdleTTL {
			delete(l.buckets, id)
			removed++
		}
	}
	return removed
}
