package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/project-brain/internal/core/domain"
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
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(ttl time.Duration) (*Cache[string], *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	return New[string](ttl, WithClock(clock.Now)), clock
}

func TestGetOrComputeHitIsIdempotent(t *testing.T) {
	c, _ := newTestCache(time.Hour)
	calls := 0
	compute := func() (string, error) {
		calls++
		return "answer", nil
	}

	v, cached, err := c.GetOrCompute("What is the fire rating?", domain.SearchFilter{}, 5, 0, compute)
	if err != nil || cached || v != "answer" {
		t.Fatalf("first call: v=%q cached=%v err=%v", v, cached, err)
	}
	v, cached, err = c.GetOrCompute("  what IS the   fire rating? ", domain.SearchFilter{}, 5, 0, compute)
	if err != nil || !cached || v != "answer" {
		t.Fatalf("second call: v=%q cached=%v err=%v", v, cached, err)
	}
	if calls != 1 {
		t.Fatalf("expected compute once, got %d", calls)
	}
}

func TestGetOrComputeKeyIncludesFilterAndK(t *testing.T) {
	c, _ := newTestCache(time.Hour)
	calls := 0
	compute := func() (string, error) {
		calls++
		return "v", nil
	}
	page := 3
	_, _, _ = c.GetOrCompute("q", domain.SearchFilter{}, 5, 0, compute)
	_, _, _ = c.GetOrCompute("q", domain.SearchFilter{}, 6, 0, compute)
	_, _, _ = c.GetOrCompute("q", domain.SearchFilter{PageMin: &page}, 5, 0, compute)
	if calls != 3 {
		t.Fatalf("expected 3 distinct keys, got %d computes", calls)
	}
}

func TestGetOrComputeExpiry(t *testing.T) {
	c, clock := newTestCache(time.Hour)
	calls := 0
	compute := func() (string, error) {
		calls++
		return "v", nil
	}

	_, _, _ = c.GetOrCompute("q", domain.SearchFilter{}, 5, 10*time.Second, compute)
	clock.Advance(9 * time.Second)
	if _, cached, _ := c.GetOrCompute("q", domain.SearchFilter{}, 5, 10*time.Second, compute); !cached {
		t.Fatalf("expected hit before ttl")
	}
	clock.Advance(time.Second)
	if _, cached, _ := c.GetOrCompute("q", domain.SearchFilter{}, 5, 10*time.Second, compute); cached {
		t.Fatalf("expected miss at ttl boundary")
	}
	if calls != 2 {
		t.Fatalf("expected recompute after expiry, got %d calls", calls)
	}
}

func TestGetOrComputeFailureIsNotCached(t *testing.T) {
	c, _ := newTestCache(time.Hour)
	boom := errors.New("boom")

	_, _, err := c.GetOrCompute("q", domain.SearchFilter{}, 5, 0, func() (string, error) { return "", boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected compute error, got %v", err)
	}
	if s := c.Stats(); s.TotalEntries != 0 {
		t.Fatalf("expected nothing cached, got %+v", s)
	}
	v, cached, err := c.GetOrCompute("q", domain.SearchFilter{}, 5, 0, func() (string, error) { return "ok", nil })
	if err != nil || cached || v != "ok" {
		t.Fatalf("expected fresh compute after failure, got v=%q cached=%v err=%v", v, cached, err)
	}
}

func TestGetOrComputeCoalescesConcurrentMisses(t *testing.T) {
	c, _ := newTestCache(time.Hour)
	var calls atomic.Int32
	release := make(chan struct{})
	compute := func() (string, error) {
		calls.Add(1)
		<-release
		return "v", nil
	}

	const callers = 16
	var started, wg sync.WaitGroup
	started.Add(callers)
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			started.Done()
			v, _, err := c.GetOrCompute("same", domain.SearchFilter{}, 5, 0, compute)
			if err != nil || v != "v" {
				t.Errorf("unexpected result v=%q err=%v", v, err)
			}
		}()
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single compute, got %d", got)
	}
}

func TestStatsPruneAndClear(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	compute := func() (string, error) { return "v", nil }

	_, _, _ = c.GetOrCompute("a", domain.SearchFilter{}, 5, 0, compute)
	clock.Advance(30 * time.Second)
	_, _, _ = c.GetOrCompute("b", domain.SearchFilter{}, 5, 0, compute)
	clock.Advance(40 * time.Second)

	s := c.Stats()
	if s.TotalEntries != 2 || s.ValidEntries != 1 || s.TTLSeconds != 60 {
		t.Fatalf("unexpected stats %+v", s)
	}
	if removed := c.Prune(); removed != 1 {
		t.Fatalf("expected 1 pruned entry, got %d", removed)
	}
	c.Clear()
	if s := c.Stats(); s.TotalEntries != 0 || s.ValidEntries != 0 {
		t.Fatalf("expected empty cache after Clear, got %+v", s)
	}
}

func TestClearDuringComputeDoesNotStore(t *testing.T) {
	c, _ := newTestCache(time.Hour)
	_, _, err := c.GetOrCompute("q", domain.SearchFilter{}, 5, 0, func() (string, error) {
		c.Clear()
		return "stale", nil
	})
	if err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}
	if s := c.Stats(); s.TotalEntries != 0 {
		t.Fatalf("expected compute racing Clear not to be stored, got %+v", s)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	c, _ := newTestCache(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
}
