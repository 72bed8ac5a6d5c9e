package memstore

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// InMemoryStore is the default in-process store for local/dev use. Records do
// not survive the process; see PostgresStore for durable storage.
type InMemoryStore struct {
	mu    sync.RWMutex
	items map[Namespace][]Item
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{items: make(map[Namespace][]Item)}
}

func (s *InMemoryStore) Put(_ context.Context, ns Namespace, key string, value json.RawMessage) error {
	now := time.Now().UTC()
	val := make(json.RawMessage, len(value))
	copy(val, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	arr := s.items[ns]
	for i := range arr {
		if arr[i].Key == key {
			arr[i].Value = val
			arr[i].UpdatedAt = now
			return nil
		}
	}
	s.items[ns] = append(arr, Item{Key: key, Value: val, CreatedAt: now, UpdatedAt: now})
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, ns Namespace, key string) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items[ns] {
		if it.Key == key {
			return it, nil
		}
	}
	return Item{}, ErrNotFound
}

func (s *InMemoryStore) Search(_ context.Context, ns Namespace) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.items[ns]
	if len(arr) == 0 {
		return nil, nil
	}
	out := make([]Item, len(arr))
	copy(out, arr)
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }
