package session

import (
	"context"
	"log/slog"
	"time"
)

// Reaper expires abandoned conversations so stale prompts cannot capture a
// user's unrelated message days later.
type Reaper struct {
	manager *Manager
	ttl     time.Duration
	log     *slog.Logger
}

// NewReaper creates a reaper over the manager with the given TTL.
func NewReaper(manager *Manager, ttl time.Duration, log *slog.Logger) *Reaper {
	return &Reaper{manager: manager, ttl: ttl, log: log}
}

// Start runs the reaper loop until the context is cancelled.
func (r *Reaper) Start(ctx context.Context) {
	if r.ttl <= 0 {
		return // Expiry disabled
	}

	interval := min(r.ttl/10, time.Minute)
	interval = max(interval, time.Second)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if dropped := r.manager.expire(r.ttl); dropped > 0 {
				r.log.Debug("expired stale conversations", "count", dropped)
			}
		}
	}
}
