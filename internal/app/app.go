// Package app builds the long-lived services of a kanka-search process from
// its configuration, acting as a small dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/kanka-search/internal/clock/system"
	"github.com/JakeFAU/kanka-search/internal/config"
	"github.com/JakeFAU/kanka-search/internal/crawler"
	"github.com/JakeFAU/kanka-search/internal/diagnostics"
	collyfetcher "github.com/JakeFAU/kanka-search/internal/fetcher/colly"
	"github.com/JakeFAU/kanka-search/internal/id/uuid"
	"github.com/JakeFAU/kanka-search/internal/index"
	"github.com/JakeFAU/kanka-search/internal/kanka"
	"github.com/JakeFAU/kanka-search/internal/pipeline"
	"github.com/JakeFAU/kanka-search/internal/policy/ratelimit"
	"github.com/JakeFAU/kanka-search/internal/policy/retry"
	"github.com/JakeFAU/kanka-search/internal/search"
	"github.com/JakeFAU/kanka-search/internal/storage"
	"github.com/JakeFAU/kanka-search/internal/storage/gcs"
	"github.com/JakeFAU/kanka-search/internal/storage/local"
	"github.com/JakeFAU/kanka-search/internal/storage/memory"
	"github.com/JakeFAU/kanka-search/internal/telemetry"
)

// App holds the services shared by every command.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	store   storage.Store
	service *pipeline.Service
	ids     *uuid.Generator
	closers []func() error
}

// New wires the cache store, the Kanka client, the crawler and the search
// pipeline. A missing token only fails once a refresh is needed, so searches
// against a fresh cache keep working offline.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger, ids: uuid.New()}

	tp, err := telemetry.InitTracerProvider(ctx, "kanka-search")
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.closers = append(a.closers, func() error { return tp.Shutdown(context.Background()) })

	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store

	resolver, crawl, err := a.buildCrawler()
	if err != nil {
		a.Close()
		return nil, err
	}

	service, err := pipeline.New(pipeline.Config{TTL: cfg.CacheTTL()}, pipeline.Deps{
		Store:    store,
		Resolver: resolver,
		Crawler:  crawl,
		Engine:   search.NewEngine(cfg.Search.Limit),
		Clock:    system.New(),
		IDs:      a.ids,
		Logger:   logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	a.service = service

	logger.Debug("application services initialized",
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Int("categories", len(cfg.Crawler.Categories)),
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context) (storage.Store, error) {
	switch a.cfg.Cache.Backend {
	case config.BackendFile, "":
		store, err := local.New(local.Config{Path: a.cfg.Cache.Path})
		if err != nil {
			return nil, fmt.Errorf("open file cache: %w", err)
		}
		return store, nil
	case config.BackendGCS:
		gcsCfg := gcs.Config{
			Bucket:   a.cfg.Cache.GCS.Bucket,
			Object:   a.cfg.Cache.GCS.Object,
			Endpoint: a.cfg.Cache.GCS.Endpoint,
		}
		client, err := gcs.NewClient(ctx, gcsCfg)
		if err != nil {
			return nil, err
		}
		store, err := gcs.New(client, gcsCfg)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("open gcs cache: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case config.BackendMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", a.cfg.Cache.Backend)
	}
}

func (a *App) buildCrawler() (pipeline.DirectoryResolver, pipeline.CampaignCrawler, error) {
	var api crawler.API = missingTokenAPI{}
	if headers, err := kanka.NewTokenHeaders(a.cfg.Kanka.Token); err == nil {
		fetcher := collyfetcher.New(collyfetcher.Config{
			UserAgent: a.cfg.Kanka.UserAgent,
			Timeout:   a.cfg.Crawler.RequestTimeout,
		})
		limiter := ratelimit.New(ratelimit.Config{RequestsPerMinute: a.cfg.Crawler.RateLimitPerMinute})
		var opts []kanka.Option
		if a.cfg.Crawler.MaxAttempts > 1 {
			opts = append(opts, kanka.WithRetry(retry.New(retry.Config{MaxAttempts: a.cfg.Crawler.MaxAttempts})))
		}
		client, err := kanka.NewClient(kanka.Config{
			APIURL:         a.cfg.Kanka.APIURL,
			RequestTimeout: a.cfg.Crawler.RequestTimeout,
		}, headers, fetcher, limiter, a.logger, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("build kanka client: %w", err)
		}
		api = client
	}

	resolver, err := crawler.NewResolver(api, a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("build resolver: %w", err)
	}
	crawl, err := crawler.New(crawler.Config{
		Categories:     a.cfg.Crawler.Categories,
		MaxConcurrency: a.cfg.Crawler.MaxConcurrency,
		WebURL:         a.cfg.Kanka.WebURL,
	}, api, a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("build crawler: %w", err)
	}
	if _, ok := api.(missingTokenAPI); ok {
		return tokenGate{}, crawl, nil
	}
	return resolver, crawl, nil
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Store returns the cache store.
func (a *App) Store() storage.Store {
	return a.store
}

// Service returns the search pipeline.
func (a *App) Service() *pipeline.Service {
	return a.service
}

// RecordFailure appends a failed query to the diagnostics log and returns
// the log path for the failure item. The log is only created on failure.
func (a *App) RecordFailure(query string, failure error) string {
	recorder, err := diagnostics.New(a.cfg.Diagnostics.LogPath)
	if err != nil {
		a.logger.Error("diagnostics log unavailable", zap.Error(err), zap.NamedError("failure", failure))
		return a.cfg.Diagnostics.LogPath
	}
	runID := a.ids.MustNewID()
	recorder.Record(query, failure, zap.String("run_id", runID))
	if err := recorder.Close(); err != nil {
		a.logger.Warn("diagnostics log flush failed", zap.Error(err))
	}
	return recorder.Path()
}

// Close releases the services held by the container.
func (a *App) Close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Warn("error closing service", zap.Error(err))
		}
	}
	a.closers = nil
	_ = a.logger.Sync()
}

// missingTokenAPI stands in for the Kanka client when no token is set.
type missingTokenAPI struct{}

func (missingTokenAPI) ListCampaigns(context.Context) ([]kanka.Entity, error) {
	return nil, kanka.ErrMissingToken
}

func (missingTokenAPI) ListCategory(context.Context, string, string) ([]kanka.Entity, error) {
	return nil, kanka.ErrMissingToken
}

// tokenGate stops a refresh before the crawl when there is no token, even
// if the cache could supply the campaign list.
type tokenGate struct{}

func (tokenGate) Resolve(context.Context, *index.Cache) (map[string]string, error) {
	return nil, errors.Join(crawler.ErrDirectoryUnavailable, kanka.ErrMissingToken)
}
