package limiter

import (
	"context"
	"sync"
	"time"
)

// Pacer spaces out eviction invocations to a maximum rate. The cloud sync
// daemon serializes placeholder conversions internally; hammering it with
// thousands of brctl calls per second just piles up queue latency.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

// NewPacer creates a pacer allowing at most maxPerSecond invocations.
// A rate <= 0 means unlimited; Wait becomes a no-op.
func NewPacer(maxPerSecond float64) *Pacer {
	if maxPerSecond <= 0 {
		return &Pacer{}
	}
	return &Pacer{
		interval: time.Duration(float64(time.Second) / maxPerSecond),
	}
}

// Wait blocks until the next invocation slot, or until ctx is cancelled.
// Safe for concurrent use by multiple workers.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.interval <= 0 {
		return nil
	}

	p.mu.Lock()
	now := time.Now()
	if p.next.Before(now) {
		p.next = now
	}
	wait := p.next.Sub(now)
	p.next = p.next.Add(p.interval)
	p.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
