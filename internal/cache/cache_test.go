package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"saldo/internal/log"
)

func TestLRUCache_Eviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to be cached")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("expected least recently used entry b to be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("expected a=1, got %d %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("expected size 2, got %d", c.Size())
	}

	c.Delete("a")
	c.Clear()
	if c.Size() != 0 {
		t.Errorf("expected empty cache, got %d", c.Size())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("x", "1")
	c.Set("y", "2")
	now = now.Add(30 * time.Second)
	c.Set("z", "3")

	now = now.Add(45 * time.Second)
	if _, ok := c.Get("x"); ok {
		t.Error("expected x to be expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("expected 1 expired entry (y), got %d", n)
	}
	if v, ok := c.Get("z"); !ok || v != "3" {
		t.Errorf("expected z to survive, got %q %v", v, ok)
	}
}

func TestMemo_CachesAndInvalidates(t *testing.T) {
	m := NewMemo[int](10, time.Minute)
	calls := 0
	compute := func() (int, error) {
		calls++
		return calls * 10, nil
	}

	for i := 0; i < 3; i++ {
		v, err := m.Do("k", compute)
		if err != nil || v != 10 {
			t.Fatalf("Do() = %d, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("expected one computation, got %d", calls)
	}
	if hits, misses := m.Stats(); hits != 2 || misses != 1 {
		t.Errorf("unexpected stats hits=%d misses=%d", hits, misses)
	}

	m.Invalidate()
	if m.Generation() != 1 || m.Size() != 0 {
		t.Errorf("expected generation 1 and empty cache, got %d/%d", m.Generation(), m.Size())
	}
	if v, _ := m.Do("k", compute); v != 20 {
		t.Errorf("expected recomputation after invalidate, got %d", v)
	}
}

func TestMemo_ErrorsAreNotCached(t *testing.T) {
	m := NewMemo[int](10, time.Minute)
	boom := errors.New("boom")
	if _, err := m.Do("k", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if v, err := m.Do("k", func() (int, error) { return 7, nil }); err != nil || v != 7 {
		t.Errorf("expected fresh computation, got %d %v", v, err)
	}
}

func TestMemo_InvalidateDuringCompute(t *testing.T) {
	m := NewMemo[int](10, time.Minute)
	if _, err := m.Do("k", func() (int, error) {
		m.Invalidate()
		return 1, nil
	}); err != nil {
		t.Fatal(err)
	}
	if m.Size() != 0 {
		t.Error("value computed before an invalidation must not be stored")
	}
}

func TestMemo_CollapsesConcurrentCalls(t *testing.T) {
	m := NewMemo[int](10, time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Do("k", func() (int, error) {
				calls.Add(1)
				<-release
				return 1, nil
			})
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	// Late goroutines may miss the flight but must then hit the cache.
	if n := calls.Load(); n != 1 {
		t.Errorf("expected a single computation, got %d", n)
	}
}

func TestManager_CleanOnce(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](10, time.Second)
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	c.Set("b", 2)

	m := NewManager(log.Discard())
	m.Register(c)
	m.Register(NewMemo[int](10, time.Minute))

	now = now.Add(2 * time.Second)
	if n := m.CleanOnce(); n != 2 {
		t.Errorf("expected 2 evictions, got %d", n)
	}

	m.StartCleanup(context.Background(), 10*time.Millisecond)
	m.Stop()
	m.Stop()
}
