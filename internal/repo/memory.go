package repo

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
)

// MemoryStore keeps documents in process memory. Values are stored as JSON
// so callers never share mutable state with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
	logs map[string][][]byte
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string][]byte),
		logs: make(map[string][][]byte),
	}
}

func (m *MemoryStore) Load(_ context.Context, path string, out any) error {
	m.mu.RLock()
	data, ok := m.docs[path]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(data, out)
}

func (m *MemoryStore) Save(_ context.Context, path string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.docs[path] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Patch(_ context.Context, path string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[path]
	if !ok {
		return ErrNotFound
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	doc, err := mergeFields(doc, fields)
	if err != nil {
		return err
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	m.docs[path] = merged
	return nil
}

func (m *MemoryStore) Append(_ context.Context, collection string, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.logs[collection] = append(m.logs[collection], data)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0)
	for k := range m.docs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) Close(context.Context) error { return nil }

// Records returns the raw JSON records appended to collection.
func (m *MemoryStore) Records(collection string) []json.RawMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]json.RawMessage, len(m.logs[collection]))
	for i, rec := range m.logs[collection] {
		out[i] = append(json.RawMessage(nil), rec...)
	}
	return out
}
