package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func TestLRUCacheGetSetExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](4, time.Minute).WithClock(clock.now)

	c.Set("jobs", "table")
	if v, ok := c.Get("jobs"); !ok || v != "table" {
		t.Fatalf("expected hit, got %q ok=%v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatalf("expected miss")
	}

	clock.t = clock.t.Add(2 * time.Minute)
	if _, ok := c.Get("jobs"); ok {
		t.Fatalf("expected expired entry to miss")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry must be removed on read, size=%d", c.Size())
	}

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 2 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a becomes most recent
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatalf("least recently used entry must be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("recently used entry must survive")
	}
	if c.Stats().Evictions != 1 {
		t.Fatalf("expected one eviction, got %d", c.Stats().Evictions)
	}
}

func TestLRUCacheCleanAndClear(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	c := NewLRUCache[int](10, time.Second).WithClock(clock.now)
	c.Set("a", 1)
	clock.t = clock.t.Add(500 * time.Millisecond)
	c.Set("b", 2)
	clock.t = clock.t.Add(700 * time.Millisecond)

	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("expected 1 expired entry, got %d", n)
	}
	c.Delete("nope")
	c.Clear()
	if c.Size() != 0 {
		t.Fatalf("expected empty cache after Clear")
	}
}

func TestManagerCleanNow(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	c := NewLRUCache[int](10, time.Second).WithClock(clock.now)
	c.Set("a", 1)
	clock.t = clock.t.Add(2 * time.Second)

	m := NewManager(nil)
	m.Register("tables", c)
	if n := m.CleanNow(); n != 1 {
		t.Fatalf("expected 1 removed entry, got %d", n)
	}

	m.StartCleanup(10 * time.Millisecond)
	m.Stop()
	m.Stop()
}

func TestManagerStopWithoutStart(t *testing.T) {
	m := NewManager(nil)
	m.Stop()
}
