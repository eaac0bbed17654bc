package fetch

import (
	"context"
	"sync"
	"time"
)

// DefaultCourtesyDelay spaces consecutive requests to one provider.
const DefaultCourtesyDelay = 2 * time.Second

// Pacer enforces a courtesy delay between consecutive requests to the same
// upstream provider. This is a correctness requirement, not an
// optimization: several of the scraped sites rate-limit aggressively.
// The per-provider reservation makes it safe to share one Pacer across
// goroutines should chains ever run in parallel.
type Pacer struct {
	mu    sync.Mutex
	delay time.Duration
	next  map[string]time.Time
}

// NewPacer creates a pacer with the given inter-request delay.
func NewPacer(delay time.Duration) *Pacer {
	if delay <= 0 {
		delay = DefaultCourtesyDelay
	}
	return &Pacer{
		delay: delay,
		next:  make(map[string]time.Time),
	}
}

// Wait blocks until the provider's next request slot, or until the context
// is done. The slot is reserved before sleeping so concurrent callers
// queue up behind each other instead of stampeding.
func (p *Pacer) Wait(ctx context.Context, provider string) error {
	p.mu.Lock()
	now := time.Now()
	at, ok := p.next[provider]
	if !ok || at.Before(now) {
		at = now
	}
	p.next[provider] = at.Add(p.delay)
	p.mu.Unlock()

	wait := time.Until(at)
	if wait <= 0 {
		return nil
	}
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
