package probe

import (
	"context"
	"time"
)

// Confirmer debounces a single negative probe into a trustworthy "down"
// verdict. After a settle delay it re-probes up to Attempts times with a
// fixed backoff; one reachable reading anywhere in the sequence cancels the
// verdict. Only outages are debounced this way, recoveries are taken at face
// value.
type Confirmer struct {
	Checker  Checker
	Settle   time.Duration
	Attempts int
	Backoff  time.Duration
}

func NewConfirmer(c Checker) *Confirmer {
	return &Confirmer{
		Checker:  c,
		Settle:   2 * time.Second,
		Attempts: 3,
		Backoff:  time.Second,
	}
}

// Confirm reports whether the address is really down. A cancelled context
// reads as "not confirmed" so an interrupted cycle never opens an outage.
func (c *Confirmer) Confirm(ctx context.Context, addr string) bool {
	attempts := c.Attempts
	if attempts < 1 {
		attempts = 1
	}
	if !sleep(ctx, c.Settle) {
		return false
	}
	for i := 0; i < attempts; i++ {
		if ctx.Err() != nil {
			return false
		}
		if c.Checker.Check(ctx, addr) {
			return false
		}
		if i < attempts-1 {
			if !sleep(ctx, c.Backoff) {
				return false
			}
		}
	}
	return true
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
