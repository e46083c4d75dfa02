package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// memoryStore is an in-memory Store for tests. TTLs are recorded but never
// expire within a test run.
type memoryStore struct {
	mu     sync.Mutex
	values map[string][]byte
	gets   int
	sets   int
	fail   bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: make(map[string][]byte)}
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.fail {
		return nil, context.DeadlineExceeded
	}
	value, ok := s.values[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return value, nil
}

func (s *memoryStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	if s.fail {
		return context.DeadlineExceeded
	}
	s.values[key] = value
	return nil
}

func (s *memoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return context.DeadlineExceeded
	}
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func (s *memoryStore) DeleteByPrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return context.DeadlineExceeded
	}
	for key := range s.values {
		if strings.HasPrefix(key, prefix) {
			delete(s.values, key)
		}
	}
	return nil
}

func (s *memoryStore) Close() error { return nil }

func (s *memoryStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	return ok
}

func (s *memoryStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}
