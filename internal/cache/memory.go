package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryProvider is an in-process Provider used when no Valkey server is
// configured.
type MemoryProvider struct {
	items *gocache.Cache
}

// NewMemoryProvider creates a provider whose entries default to ttl and are
// swept every cleanup interval.
func NewMemoryProvider(ttl, cleanup time.Duration) *MemoryProvider {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}
	return &MemoryProvider{items: gocache.New(ttl, cleanup)}
}

// Get returns a copy of the stored bytes or ErrCacheMiss.
func (p *MemoryProvider) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := p.items.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), data...), nil
}

// Set stores a copy of value. A non-positive ttl uses the provider default.
func (p *MemoryProvider) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	p.items.Set(key, append([]byte(nil), value...), expiry(ttl))
	return nil
}

// SetNX stores value only when key is absent.
func (p *MemoryProvider) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := p.items.Add(key, append([]byte(nil), value...), expiry(ttl)); err != nil {
		return false, nil
	}
	return true, nil
}

// Del removes key.
func (p *MemoryProvider) Del(_ context.Context, key string) error {
	p.items.Delete(key)
	return nil
}

// Close drops every entry.
func (p *MemoryProvider) Close() error {
	p.items.Flush()
	return nil
}

func expiry(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.DefaultExpiration
	}
	return ttl
}
