package pathcache

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestMemoryGetPutInvalidate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, ok, _ := m.Get(ctx, "c1", "v1"); ok {
		t.Fatal("expected miss on empty cache")
	}

	if err := m.Put(ctx, "c1", "v1", []byte(`[["a","b"]]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := m.Put(ctx, "c2", "v1", []byte(`[]`)); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := m.Get(ctx, "c1", "v1")
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if string(got) != `[["a","b"]]` {
		t.Errorf("unexpected value %q", got)
	}

	// Returned bytes must not alias the stored copy.
	got[0] = 'x'
	again, _, _ := m.Get(ctx, "c1", "v1")
	if again[0] != '[' {
		t.Error("cache value was mutated through returned slice")
	}

	if err := m.Invalidate(ctx, "c1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if m.Len("c1") != 0 {
		t.Error("expected c1 to be empty after invalidate")
	}
	if m.Len("c2") != 1 {
		t.Error("invalidate should not touch other courses")
	}
}

func TestNewRedisWithoutAddrIsNil(t *testing.T) {
	r, err := NewRedis(context.Background(), RedisConfig{}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != nil {
		t.Fatal("expected nil client when no address is configured")
	}
}
