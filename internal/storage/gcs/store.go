// Package gcs stores the cache snapshot as a Google Cloud Storage object.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/JakeFAU/kanka-search/internal/index"
	cachestore "github.com/JakeFAU/kanka-search/internal/storage"
)

// Config captures the object that holds the snapshot.
type Config struct {
	Bucket string `mapstructure:"bucket" yaml:"bucket"`
	Object string `mapstructure:"object" yaml:"object"`
	// Endpoint overrides the API endpoint and disables authentication,
	// which is what emulators expect.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}

// Store reads and replaces one GCS object.
type Store struct {
	client *storage.Client
	bucket string
	object string
}

// NewClient creates a storage client. Credentials come from Application
// Default Credentials unless an endpoint override is given.
func NewClient(ctx context.Context, cfg Config) (*storage.Client, error) {
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return client, nil
}

// New creates a GCS-backed store.
func New(client *storage.Client, cfg Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if cfg.Object == "" {
		return nil, fmt.Errorf("object name is required")
	}
	return &Store{client: client, bucket: cfg.Bucket, object: cfg.Object}, nil
}

// Load downloads and decodes the snapshot.
func (s *Store) Load(ctx context.Context) (*index.Cache, error) {
	r, err := s.client.Bucket(s.bucket).Object(s.object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, cachestore.ErrCacheNotFound
		}
		return nil, fmt.Errorf("open gs://%s/%s: %w", s.bucket, s.object, err)
	}
	defer func() { _ = r.Close() }()

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read gs://%s/%s: %w", s.bucket, s.object, err)
	}
	cache, err := cachestore.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("load gs://%s/%s: %w", s.bucket, s.object, err)
	}
	return cache, nil
}

// Save uploads the snapshot. The object only becomes visible once the
// writer is closed, so readers keep seeing the previous generation until then.
func (s *Store) Save(ctx context.Context, cache *index.Cache) error {
	raw, err := cachestore.Encode(cache)
	if err != nil {
		return fmt.Errorf("%w: %w", cachestore.ErrCacheWrite, err)
	}
	w := s.client.Bucket(s.bucket).Object(s.object).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(raw); err != nil {
		if closeErr := w.Close(); closeErr != nil {
			return fmt.Errorf("%w: write gs://%s/%s: %w (close writer: %v)", cachestore.ErrCacheWrite, s.bucket, s.object, err, closeErr)
		}
		return fmt.Errorf("%w: write gs://%s/%s: %w", cachestore.ErrCacheWrite, s.bucket, s.object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: close gs://%s/%s: %w", cachestore.ErrCacheWrite, s.bucket, s.object, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close GCS client: %w", err)
	}
	return nil
}
