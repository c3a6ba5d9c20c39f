// Package ratelimit throttles OTP sends and login attempts per key (phone,
// email, or client IP).
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter reports whether an action identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter keeps a token bucket per key in process memory. Suited to
// single-instance deployments and tests.
type MemoryLimiter struct {
	mu       sync.Mutex
	limiters map[string]*keyLimiter
	rate     rate.Limit
	burst    int
}

// NewMemoryLimiter creates a per-key limiter allowing r events per second
// with the given burst.
func NewMemoryLimiter(r rate.Limit, burst int) *MemoryLimiter {
	l := &MemoryLimiter{
		limiters: make(map[string]*keyLimiter),
		rate:     r,
		burst:    burst,
	}
	go l.cleanupLoop()
	return l
}

// Allow reports whether the action for key may proceed now.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.limiters[key]
	if !ok {
		kl = &keyLimiter{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[key] = kl
	}
	kl.lastSeen = time.Now()
	return kl.limiter.Allow(), nil
}

// cleanupLoop removes stale entries every 3 minutes.
func (l *MemoryLimiter) cleanupLoop() {
	ticker := time.NewTicker(3 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		l.mu.Lock()
		for key, kl := range l.limiters {
			if time.Since(kl.lastSeen) > 5*time.Minute {
				delete(l.limiters, key)
			}
		}
		l.mu.Unlock()
	}
}
