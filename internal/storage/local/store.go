// Package local stores the cache snapshot as a JSON file.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/kanka-search/internal/index"
	"github.com/JakeFAU/kanka-search/internal/storage"
)

// Config captures the parameters for the file store.
type Config struct {
	// Path is the cache file. Its directory is created when missing.
	Path string `mapstructure:"path" yaml:"path"`
}

// Store reads and atomically replaces a single cache file.
type Store struct {
	path string
}

// New creates a file-backed store.
func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("cache path is required")
	}
	dir := filepath.Dir(cfg.Path)
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if mkErr := os.MkdirAll(dir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to stat cache directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("cache directory %s is not a directory", dir)
	}
	return &Store{path: cfg.Path}, nil
}

// Path returns the cache file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the cache file.
func (s *Store) Load(_ context.Context) (*index.Cache, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrCacheNotFound
		}
		return nil, fmt.Errorf("read cache %s: %w", s.path, err)
	}
	cache, err := storage.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.path, err)
	}
	return cache, nil
}

// Save writes the snapshot to a temporary file in the same directory and
// renames it over the cache file, so readers never see a partial write.
func (s *Store) Save(_ context.Context, cache *index.Cache) error {
	raw, err := storage.Encode(cache)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrCacheWrite, err)
	}
	if err := writeAtomic(s.path, raw); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrCacheWrite, err)
	}
	return nil
}

func writeAtomic(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".cache-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", dest, err)
	}
	// Directory fsync is not supported everywhere.
	_ = syncDir(dir)
	return nil
}

func syncDir(dir string) error {
	f, err := os.Open(dir) // #nosec G304 -- directory of the configured cache path.
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return f.Sync()
}
