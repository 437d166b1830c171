// Package storage persists the search cache snapshot. Backends live in the
// local, memory and gcs subpackages and share the JSON codec defined here.
package storage

import (
	"context"
	"errors"

	"github.com/JakeFAU/kanka-search/internal/index"
)

var (
	// ErrCacheNotFound means no snapshot has been written yet.
	ErrCacheNotFound = errors.New("storage: cache not found")
	// ErrCacheCorrupt means a snapshot exists but cannot be decoded.
	ErrCacheCorrupt = errors.New("storage: cache is corrupt")
	// ErrCacheWrite means a snapshot could not be persisted.
	ErrCacheWrite = errors.New("storage: cache write failed")
)

// Store loads and replaces the cache snapshot. Save replaces the previous
// snapshot as a whole; a concurrent Load sees either the old or the new one.
type Store interface {
	Load(ctx context.Context) (*index.Cache, error)
	Save(ctx context.Context, cache *index.Cache) error
}
