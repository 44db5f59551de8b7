package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func TestFixedWindowAdmitsFiveThenDenies(t *testing.T) {
	clock := newClock()
	limiter := NewFixedWindow(ContactPolicy(), WithClock(clock.Now))
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		d, err := limiter.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "call %d should be admitted", i)
		assert.Equal(t, 5-i, d.Remaining)
		clock.Advance(time.Minute)
	}

	d, err := limiter.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, d.Allowed, "sixth call in the window is denied")
	assert.Equal(t, 5, limiter.Count("1.2.3.4"), "denied calls do not count")
	assert.Equal(t, 0, d.Remaining)
}

func TestFixedWindowResetsExactlyAtWindowEnd(t *testing.T) {
	clock := newClock()
	start := clock.Now()
	limiter := NewFixedWindow(ContactPolicy(), WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = limiter.Allow(ctx, "k")
	}

	clock.Advance(15*time.Minute - time.Nanosecond)
	d, _ := limiter.Allow(ctx, "k")
	assert.False(t, d.Allowed, "window must not reset early")
	assert.Equal(t, start.Add(15*time.Minute), d.ResetAt)

	clock.Advance(time.Nanosecond)
	d, _ = limiter.Allow(ctx, "k")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, limiter.Count("k"), "count restarts at 1")
	assert.Equal(t, clock.Now().Add(15*time.Minute), d.ResetAt)

	// the new window gets the full quota back
	for i := 0; i < 4; i++ {
		d, _ = limiter.Allow(ctx, "k")
		assert.True(t, d.Allowed)
	}
	d, _ = limiter.Allow(ctx, "k")
	assert.False(t, d.Allowed)
}

func TestFixedWindowKeysAreIndependent(t *testing.T) {
	limiter := NewFixedWindow(Policy{Limit: 1, Window: time.Hour})
	ctx := context.Background()

	a, _ := limiter.Allow(ctx, "a")
	b, _ := limiter.Allow(ctx, "b")
	again, _ := limiter.Allow(ctx, "a")

	assert.True(t, a.Allowed)
	assert.True(t, b.Allowed)
	assert.False(t, again.Allowed)
}

func TestFixedWindowConcurrentSameKey(t *testing.T) {
	limiter := NewFixedWindow(ContactPolicy())
	ctx := context.Background()

	var admitted int64
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d, _ := limiter.Allow(ctx, "shared"); d.Allowed {
				atomic.AddInt64(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(5), admitted)
}

func TestFixedWindowSweep(t *testing.T) {
	clock := newClock()
	limiter := NewFixedWindow(ContactPolicy(), WithClock(clock.Now))
	ctx := context.Background()

	_, _ = limiter.Allow(ctx, "old")
	clock.Advance(10 * time.Minute)
	_, _ = limiter.Allow(ctx, "fresh")
	clock.Advance(5 * time.Minute)

	assert.Equal(t, 1, limiter.Sweep(clock.Now()))
	assert.Equal(t, 0, limiter.Count("old"))
	assert.Equal(t, 1, limiter.Count("fresh"))

	d, _ := limiter.Allow(ctx, "old")
	assert.True(t, d.Allowed)
}

func TestRunSweeperStopsWithContext(t *testing.T) {
	limiter := NewFixedWindow(ContactPolicy())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		limiter.RunSweeper(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestRedisLimiterWithoutClientUsesFallback(t *testing.T) {
	fallback := NewFixedWindow(Policy{Limit: 2, Window: time.Minute})
	limiter := NewRedisLimiter(nil, Policy{Limit: 2, Window: time.Minute}, "rl:contact:", fallback)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := limiter.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	d, err := limiter.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 2, fallback.Count("ip"))
}

func TestDecisionFromCounter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d := decisionFromCounter(ContactPolicy(), 5, 90*time.Second, false, now)

	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, now.Add(90*time.Second), d.ResetAt)

	d = decisionFromCounter(ContactPolicy(), 2, -1, true, now)
	assert.Equal(t, 3, d.Remaining)
	assert.Equal(t, now, d.ResetAt)
}

func newMiniredisLimiter(t *testing.T) (*miniredis.Miniredis, *RedisLimiter, *FixedWindow) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{
		Addr:        mr.Addr(),
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })

	fallback := NewFixedWindow(ContactPolicy())
	return mr, NewRedisLimiter(client, ContactPolicy(), "rl:contact:", fallback), fallback
}

func TestRedisLimiterFixedWindow(t *testing.T) {
	mr, limiter, fallback := newMiniredisLimiter(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		d, err := limiter.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "call %d", i)
		assert.Equal(t, 5-i, d.Remaining)
	}

	d, err := limiter.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), d.ResetAt, 5*time.Second)

	count, err := mr.Get("rl:contact:ip")
	require.NoError(t, err)
	assert.Equal(t, "5", count, "denied calls must not increment")
	assert.Greater(t, mr.TTL("rl:contact:ip"), time.Duration(0))

	// Other keys have their own window
	d, err = limiter.Allow(ctx, "other")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	mr.FastForward(15 * time.Minute)

	d, err = limiter.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 4, d.Remaining)
	count, err = mr.Get("rl:contact:ip")
	require.NoError(t, err)
	assert.Equal(t, "1", count)

	assert.Zero(t, fallback.Count("ip"), "healthy redis must not touch the in-memory store")
}

func TestRedisLimiterFallsBackWhenServerDown(t *testing.T) {
	mr, limiter, fallback := newMiniredisLimiter(t)
	mr.Close()

	d, err := limiter.Allow(context.Background(), "ip")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, fallback.Count("ip"))
}
