package memory

import (
	"context"
	"sync"

	"github.com/dmehra2102/campus-cafe/internal/preferences/application"
)

type Store struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewStore() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

func (s *Store) Get(_ context.Context, userID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[userID]
	if !ok {
		return nil, application.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (s *Store) Put(_ context.Context, userID string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[userID] = append([]byte(nil), blob...)
	return nil
}
