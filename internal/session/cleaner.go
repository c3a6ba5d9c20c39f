// Package session holds session maintenance that runs outside the request
// path. The HTTP server only revokes sessions; rows for expired refresh
// tokens stay behind and are swept here.
package session

import (
	"context"
	"log"
	"time"
)

// ExpiredDeleter deletes sessions whose refresh tokens have expired.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Cleaner periodically deletes expired session rows. Revoked-but-unexpired
// sessions are kept so refresh attempts against them still fail loudly.
type Cleaner struct {
	sessions ExpiredDeleter
	interval time.Duration
}

// NewCleaner returns a Cleaner sweeping at the given interval. A non-positive
// interval falls back to one hour.
func NewCleaner(sessions ExpiredDeleter, interval time.Duration) *Cleaner {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Cleaner{sessions: sessions, interval: interval}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
// Sweep errors are logged and the loop keeps going.
func (c *Cleaner) Run(ctx context.Context) {
	c.sweep(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

func (c *Cleaner) sweep(ctx context.Context) {
	n, err := c.sessions.DeleteExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("session cleaner: delete expired: %v", err)
		}
		return
	}
	if n > 0 {
		log.Printf("session cleaner: deleted %d expired sessions", n)
	}
}
