package cache

import (
	"testing"
	"time"
)

func TestSetGetAndExpire(t *testing.T) {
	c := New[string](0, 50*time.Millisecond, 0)
	now := time.Now()
	c.now = func() time.Time { return now }

	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected no value initially")
	}

	c.Set("k", "hello")
	if v, ok := c.Get("k"); !ok || v != "hello" {
		t.Fatalf("expected value 'hello', got %v ok=%v", v, ok)
	}

	now = now.Add(80 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected expired value to be gone")
	}
	if c.Len() != 0 {
		t.Fatalf("expected lazy delete, len=%d", c.Len())
	}
}

func TestDelete(t *testing.T) {
	c := New[int](0, time.Second, 0)
	c.Set("k", 42)
	if v, ok := c.Get("k"); !ok || v != 42 {
		t.Fatalf("expected 42 present before delete, got %v ok=%v", v, ok)
	}
	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected deleted value to be absent")
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int](2, 0, 0)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // b is now LRU
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a kept")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatalf("expected c kept")
	}
}

func TestJanitorSweeps(t *testing.T) {
	c := New[int](0, 10*time.Millisecond, 5*time.Millisecond)
	defer c.Close()
	c.Set("k", 1)

	deadline := time.Now().Add(time.Second)
	for c.Len() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("janitor did not sweep expired entry")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNilCacheIsSafe(t *testing.T) {
	var c *Cache[string]
	c.Set("k", "v")
	if _, ok := c.Get("k"); ok {
		t.Fatal("nil cache returned a value")
	}
	c.Delete("k")
	c.Close()
}
