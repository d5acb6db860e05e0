package api

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per account.
type RateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	interval time.Duration
	burst    int
}

// NewRateLimiter allows perMinute requests per account with the given
// burst.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	l := &RateLimiter{}
	l.SetLimit(perMinute, burst)
	return l
}

// Allow reports whether account may make a request now.
func (l *RateLimiter) Allow(account string) bool {
	return l.get(account).Allow()
}

func (l *RateLimiter) get(account string) *rate.Limiter {
	l.mu.RLock()
	limiter, ok := l.limiters[account]
	l.mu.RUnlock()
	if ok {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, ok := l.limiters[account]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Every(l.interval), l.burst)
	l.limiters[account] = limiter
	return limiter
}

// SetLimit changes the limits. Existing buckets are discarded so every
// account picks up the new limits on its next request.
func (l *RateLimiter) SetLimit(perMinute, burst int) {
	if perMinute <= 0 {
		perMinute = 1
	}
	if burst <= 0 {
		burst = 1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.interval = time.Minute / time.Duration(perMinute)
	l.burst = burst
	l.limiters = make(map[string]*rate.Limiter)
}

// Prune drops the buckets that have refilled completely by now and returns
// how many were dropped. A full bucket is indistinguishable from a new one,
// so pruning never changes what Allow reports.
func (l *RateLimiter) Prune(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for account, limiter := range l.limiters {
		if limiter.TokensAt(now) >= float64(l.burst) {
			delete(l.limiters, account)
			n++
		}
	}
	return n
}

// Len returns the number of tracked accounts.
func (l *RateLimiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.limiters)
}
