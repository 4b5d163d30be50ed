package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock.
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

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestTTL_ExpiryBoundary(t *testing.T) {
	clk := &fakeClock{now: t0}
	c := NewTTL[string](5*time.Minute, clk)
	e := c.Set("docs", "cfg")

	if !e.FetchedAt.Equal(t0) || !e.ExpiresAt.Equal(t0.Add(5*time.Minute)) {
		t.Fatalf("unexpected stamps: %+v", e)
	}

	clk.Advance(4*time.Minute + 59*time.Second)
	if got, ok := c.Get("docs"); !ok || got.Data != "cfg" {
		t.Fatalf("expected hit at t0+4m59s, got ok=%v", ok)
	}

	clk.Advance(2 * time.Second)
	if _, ok := c.Get("docs"); ok {
		t.Fatal("expected miss at t0+5m1s")
	}
}

func TestTTL_Invalidate(t *testing.T) {
	c := NewTTL[int](time.Minute, &fakeClock{now: t0})
	c.Set("a", 1)
	c.Set("b", 2)

	c.Invalidate("a")
	if _, ok := c.Get("a"); ok {
		t.Error("a should be gone")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("b should remain")
	}

	c.InvalidateAll()
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d", c.Len())
	}
}

func TestTTL_SweepRemovesOnlyExpired(t *testing.T) {
	clk := &fakeClock{now: t0}
	c := NewTTL[int](time.Minute, clk)
	c.Set("old", 1)
	clk.Advance(30 * time.Second)
	c.Set("new", 2)
	clk.Advance(31 * time.Second)

	// expired but not yet swept
	if c.Len() != 2 {
		t.Fatalf("expected 2 stored entries, got %d", c.Len())
	}
	if removed := c.Sweep(); removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if _, ok := c.Get("new"); !ok {
		t.Error("new should survive the sweep")
	}
}

func TestTTL_RunStopsOnCancel(t *testing.T) {
	clk := &fakeClock{now: t0}
	c := NewTTL[int](time.Minute, clk)
	c.Set("a", 1)
	clk.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for c.Len() != 0 {
		select {
		case <-deadline:
			t.Fatal("sweeper did not remove expired entry")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewTTL_DefaultClock(t *testing.T) {
	c := NewTTL[int](time.Hour, nil)
	c.Set("a", 1)
	if _, ok := c.Get("a"); !ok {
		t.Error("expected hit with system clock")
	}
}
