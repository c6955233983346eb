package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryProviderRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider(time.Minute, time.Minute)

	if _, err := p.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
	value := []byte("v1")
	if err := p.Set(ctx, "k", value, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	value[0] = 'x'

	got, err := p.Get(ctx, "k")
	if err != nil || string(got) != "v1" {
		t.Fatalf("expected stored copy v1, got %q (%v)", got, err)
	}

	ok, _ := p.SetNX(ctx, "k", []byte("v2"), 0)
	if ok {
		t.Fatalf("SetNX should not overwrite")
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatalf("del: %v", err)
	}
	ok, _ = p.SetNX(ctx, "k", []byte("v2"), 0)
	if !ok {
		t.Fatalf("SetNX should store after delete")
	}
}

func TestMemoryProviderExpiry(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider(time.Minute, time.Minute)
	_ = p.Set(ctx, "short", []byte("v"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if _, err := p.Get(ctx, "short"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expired entry to miss, got %v", err)
	}
}

func TestNoopProviderAlwaysMisses(t *testing.T) {
	var p Provider = NoopProvider{}
	_ = p.Set(context.Background(), "k", []byte("v"), time.Minute)
	if _, err := p.Get(context.Background(), "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("noop provider must miss, got %v", err)
	}
}
