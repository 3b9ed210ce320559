package pebble

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"

	"github.com/dmehra2102/campus-cafe/internal/preferences/application"
	"github.com/dmehra2102/campus-cafe/internal/preferences/domain"
)

// Store keeps preference blobs in a local pebble database, keyed
// "userPreferences/<user id>".
type Store struct {
	db *pebble.DB
}

func Open(dir string) (*Store, error) {
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func key(userID string) []byte {
	return []byte(domain.StorageKey + "/" + userID)
}

func (s *Store) Get(_ context.Context, userID string) ([]byte, error) {
	v, closer, err := s.db.Get(key(userID))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, application.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), v...), nil
}

func (s *Store) Put(_ context.Context, userID string, blob []byte) error {
	return s.db.Set(key(userID), blob, pebble.Sync)
}
