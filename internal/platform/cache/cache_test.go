package cache

import (
	"testing"
	"time"
)

func newTestCache(ttl time.Duration) (*Cache, *time.Time) {
	c := New(ttl)
	now := time.Now()
	c.nowFunc = func() time.Time { return now }
	return c, &now
}

func TestGetSet(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	defer c.Stop()

	c.Set("k", 42)
	v, ok := c.Get("k")
	if !ok {
		t.Fatal("expected hit")
	}
	if v.(int) != 42 {
		t.Errorf("expected 42, got %v", v)
	}
}

func TestGetMiss(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	defer c.Stop()

	if _, ok := c.Get("absent"); ok {
		t.Error("expected miss")
	}
}

func TestExpiry(t *testing.T) {
	c, now := newTestCache(time.Minute)
	defer c.Stop()

	c.Set("k", "v")
	*now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("expected expired entry to miss")
	}
	if c.Len() != 0 {
		t.Error("expired entry should be deleted on read")
	}
}

func TestInvalidatePrefix(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	defer c.Stop()

	c.Set("slots:d1:a", 1)
	c.Set("slots:d1:b", 2)
	c.Set("slots:d2:a", 3)

	c.InvalidatePrefix("slots:d1:")

	if _, ok := c.Get("slots:d1:a"); ok {
		t.Error("expected d1 entries invalidated")
	}
	if _, ok := c.Get("slots:d2:a"); !ok {
		t.Error("expected d2 entry to survive")
	}
}

func TestEvictExpired(t *testing.T) {
	c, now := newTestCache(time.Minute)
	defer c.Stop()

	c.Set("a", 1)
	c.Set("b", 2)
	*now = now.Add(2 * time.Minute)
	c.evictExpired()
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", c.Len())
	}
}
