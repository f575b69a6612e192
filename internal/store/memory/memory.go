package memory

import (
	"context"
	"sync"

	"sheetpos/backend/internal/store"
)

type Store struct {
	mu      sync.RWMutex
	entries map[string]string
}

func New() *Store {
	return &Store{entries: make(map[string]string)}
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.entries[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return value, nil
}

func (s *Store) Set(_ context.Context, key string, value string) error {
	s.mu.Lock()
	s.entries[key] = value
	s.mu.Unlock()
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

func (s *Store) Close() error {
	return nil
}
