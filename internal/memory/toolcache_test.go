package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"research-collab/pkg/config"
	pkgerrors "research-collab/pkg/errors"
)

func TestMemToolCache_PutGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemToolCache(time.Minute)
	if err := c.Put(ctx, "ch1", "paper_search", `{"results":[]}`); err != nil {
		t.Fatalf("Put: %v", err)
	}
	val, ok, err := c.Get(ctx, "ch1", "paper_search")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if val != `{"results":[]}` {
		t.Errorf("got %q", val)
	}
}

func TestMemToolCache_MissOnOtherChannel(t *testing.T) {
	ctx := context.Background()
	c := NewMemToolCache(time.Minute)
	_ = c.Put(ctx, "ch1", "paper_search", "x")
	if _, ok, _ := c.Get(ctx, "ch2", "paper_search"); ok {
		t.Error("cache should be keyed by channel")
	}
}

func TestMemToolCache_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemToolCache(5 * time.Minute)
	base := time.Now()
	c.now = func() time.Time { return base }

	_ = c.Put(ctx, "ch1", "paper_search", "x")

	c.now = func() time.Time { return base.Add(4 * time.Minute) }
	if _, ok, _ := c.Get(ctx, "ch1", "paper_search"); !ok {
		t.Error("entry should still be fresh")
	}

	c.now = func() time.Time { return base.Add(6 * time.Minute) }
	if _, ok, _ := c.Get(ctx, "ch1", "paper_search"); ok {
		t.Error("entry should have expired")
	}
}

func TestNewToolCache_UnsupportedType(t *testing.T) {
	_, err := NewToolCache(config.CacheConfig{Type: "memcached"}, 0)
	if !errors.Is(err, pkgerrors.ErrUnsupported) {
		t.Errorf("got %v, want ErrUnsupported", err)
	}
}
