// Package memory keeps the cache snapshot in process memory for development
// and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/kanka-search/internal/index"
	"github.com/JakeFAU/kanka-search/internal/storage"
)

// Store holds the encoded snapshot, so callers never share maps with it.
type Store struct {
	mu  sync.RWMutex
	raw []byte
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{}
}

// NewFromBytes seeds the store with an encoded snapshot.
func NewFromBytes(raw []byte) *Store {
	return &Store{raw: append([]byte(nil), raw...)}
}

// Load decodes the current snapshot.
func (s *Store) Load(_ context.Context) (*index.Cache, error) {
	s.mu.RLock()
	raw := s.raw
	s.mu.RUnlock()
	if raw == nil {
		return nil, storage.ErrCacheNotFound
	}
	cache, err := storage.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("load memory cache: %w", err)
	}
	return cache, nil
}

// Save replaces the snapshot.
func (s *Store) Save(_ context.Context, cache *index.Cache) error {
	raw, err := storage.Encode(cache)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrCacheWrite, err)
	}
	s.mu.Lock()
	s.raw = raw
	s.mu.Unlock()
	return nil
}

// Bytes returns a copy of the encoded snapshot, or nil before the first Save.
func (s *Store) Bytes() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.raw == nil {
		return nil
	}
	return append([]byte(nil), s.raw...)
}
