package store

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MemoryStore is an in-memory implementation of the KeyValueStore interface
type MemoryStore struct {
	entries map[string][]string
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string][]string),
		logger:  logger,
	}
}

// Get returns a copy of the values stored under key
func (s *MemoryStore) Get(ctx context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := s.entries[key]
	out := make([]string, len(values))
	copy(out, values)
	return out, nil
}

// Set replaces the values stored under key
func (s *MemoryStore) Set(ctx context.Context, key string, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = dedupe(values)
	s.logger.Debug("Updated store entry", zap.String("key", key), zap.Int("count", len(s.entries[key])))
	return nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
