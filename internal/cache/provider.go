package cache

import (
	"context"
	"errors"
	"time"
)

// Provider is the key/value surface shared by the profile cache and the
// snooze sweep lock. Values are opaque bytes; profiles travel as JSON.
type Provider interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value only when key is absent. The sweeper uses it to
	// claim one interval window across replicas.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
	Close() error
}

// ErrCacheMiss is returned by Get for an absent or expired key. Profile
// reads fall through to the document store on it.
var ErrCacheMiss = errors.New("cache miss")

// NoopProvider disables caching. Every profile read goes to the store and
// every sweep lock is granted, so each replica sweeps on its own.
type NoopProvider struct{}

func (NoopProvider) Get(context.Context, string) ([]byte, error) {
	return nil, ErrCacheMiss
}

func (NoopProvider) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

func (NoopProvider) SetNX(context.Context, string, []byte, time.Duration) (bool, error) {
	return true, nil
}

func (NoopProvider) Del(context.Context, string) error { return nil }

func (NoopProvider) Close() error { return nil }
