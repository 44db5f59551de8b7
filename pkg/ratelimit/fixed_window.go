// Package ratelimit implements fixed-window admission counters keyed by client.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"portfolio-backend/internal/domain"
)

// Policy is the quota of a limiter: at most Limit admits per Window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// ContactPolicy is the quota applied to contact submissions.
func ContactPolicy() Policy {
	return Policy{Limit: 5, Window: 15 * time.Minute}
}

// GlobalPolicy is the quota applied to every API request.
func GlobalPolicy() Policy {
	return Policy{Limit: 100, Window: time.Minute}
}

// entry tracks request count for a key
type entry struct {
	mu      sync.Mutex
	count   int
	resetAt time.Time
	dead    bool // removed by Sweep; callers holding it must reload
}

// FixedWindow is an in-memory limiter. Windows are wall-clock based: the quota
// of a key is restored in full at resetAt, not gradually.
// State is process local and lost on restart.
type FixedWindow struct {
	policy  Policy
	entries sync.Map // key -> *entry
	now     func() time.Time
}

// Option customizes a FixedWindow.
type Option func(*FixedWindow)

// WithClock overrides the clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(f *FixedWindow) {
		if now != nil {
			f.now = now
		}
	}
}

// NewFixedWindow creates an in-memory limiter for policy.
func NewFixedWindow(policy Policy, opts ...Option) *FixedWindow {
	f := &FixedWindow{
		policy: policy,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Allow admits or denies one call for key. It never returns an error; the
// signature matches the Redis-backed limiter.
func (f *FixedWindow) Allow(_ context.Context, key string) (domain.RateDecision, error) {
	return f.allow(key, f.now()), nil
}

func (f *FixedWindow) allow(key string, now time.Time) domain.RateDecision {
	var e *entry
	for {
		v, _ := f.entries.LoadOrStore(key, &entry{})
		e = v.(*entry)
		// check-and-increment must be atomic per key
		e.mu.Lock()
		if !e.dead {
			break
		}
		e.mu.Unlock()
	}
	defer e.mu.Unlock()

	if e.count == 0 || !now.Before(e.resetAt) {
		e.count = 1
		e.resetAt = now.Add(f.policy.Window)
		return f.decision(true, e)
	}

	if e.count >= f.policy.Limit {
		return f.decision(false, e)
	}

	e.count++
	return f.decision(true, e)
}

func (f *FixedWindow) decision(allowed bool, e *entry) domain.RateDecision {
	remaining := f.policy.Limit - e.count
	if remaining < 0 {
		remaining = 0
	}
	return domain.RateDecision{
		Allowed:   allowed,
		Limit:     f.policy.Limit,
		Remaining: remaining,
		ResetAt:   e.resetAt,
	}
}

// Count returns the admitted count of the current window for key, or 0 when
// the key has no live window.
func (f *FixedWindow) Count(key string) int {
	v, ok := f.entries.Load(key)
	if !ok {
		return 0
	}
	e := v.(*entry)
	e.mu.Lock()
	defer e.mu.Unlock()
	if !f.now().Before(e.resetAt) {
		return 0
	}
	return e.count
}

// Sweep drops entries whose window ended before now and returns how many were removed.
func (f *FixedWindow) Sweep(now time.Time) int {
	removed := 0
	f.entries.Range(func(key, value interface{}) bool {
		e := value.(*entry)
		e.mu.Lock()
		if !now.Before(e.resetAt) {
			e.dead = true
			f.entries.Delete(key)
			removed++
		}
		e.mu.Unlock()
		return true
	})
	return removed
}

// RunSweeper sweeps expired entries every interval until ctx is done.
func (f *FixedWindow) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.Sweep(f.now())
		}
	}
}
