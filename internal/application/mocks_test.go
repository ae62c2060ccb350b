package application_test

import (
	"context"
	"sync"

	"github.com/ericfisherdev/covlens/internal/contract"
	"github.com/ericfisherdev/covlens/internal/domain/model"
	"github.com/ericfisherdev/covlens/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockTransport struct {
	mu      sync.Mutex
	ops     []contract.Operation
	execute func(op contract.Operation) ([]byte, error)
}

func (m *mockTransport) Execute(_ context.Context, op contract.Operation) ([]byte, error) {
	m.mu.Lock()
	m.ops = append(m.ops, op)
	m.mu.Unlock()
	return m.execute(op)
}

func (m *mockTransport) opNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.ops))
	for _, op := range m.ops {
		names = append(names, op.Name)
	}
	return names
}

type mockCache struct {
	mu      sync.Mutex
	entries map[string]model.CacheEntry
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string]model.CacheEntry)}
}

func (c *mockCache) Fetch(ctx context.Context, key string, fetch driven.FetchFunc) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && e.HasData {
		return e.Data, nil
	}
	v, err := fetch(ctx)
	if err != nil {
		if _, ok := model.AsClassified(err); ok {
			c.entries[key] = model.CacheEntry{Err: err}
		}
		return nil, err
	}
	c.entries[key] = model.CacheEntry{Data: v, HasData: true}
	return v, nil
}

func (c *mockCache) Peek(key string) model.CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[key]
}

func (c *mockCache) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

func (c *mockCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}

type mockWatchStore struct {
	mu      sync.Mutex
	nextID  int64
	watches []model.Watch
}

func (m *mockWatchStore) Add(_ context.Context, t model.QueryTarget) (model.Watch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	w := model.Watch{ID: m.nextID, Target: t}
	m.watches = append(m.watches, w)
	return w, nil
}

func (m *mockWatchStore) Remove(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range m.watches {
		if w.ID == id {
			m.watches = append(m.watches[:i], m.watches[i+1:]...)
			return nil
		}
	}
	return driven.ErrWatchNotFound
}

func (m *mockWatchStore) List(_ context.Context) ([]model.Watch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Watch(nil), m.watches...), nil
}
