// Package pacer spaces outbound calls to a rate-limited provider.
package pacer

import (
	"context"
	"sync"
	"time"
)

// Pacer enforces a minimum interval between consecutive calls across all
// goroutines sharing it.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

type Option func(*Pacer)

// WithClock replaces the wall clock and sleeper, for tests.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Pacer) {
		if now != nil {
			p.now = now
		}
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

func New(interval time.Duration, opts ...Option) *Pacer {
	p := &Pacer{
		interval: interval,
		now:      time.Now,
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Wait blocks until at least the configured interval has passed since the
// previous call, then records this call. It returns ctx.Err() if the context
// ends first, in which case the slot is not consumed.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.last.IsZero() {
		if d := p.interval - p.now().Sub(p.last); d > 0 {
			if err := p.sleep(ctx, d); err != nil {
				return err
			}
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}
	p.last = p.now()
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
