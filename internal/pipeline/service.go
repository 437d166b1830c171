package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/JakeFAU/kanka-search/internal/crawler"
	"github.com/JakeFAU/kanka-search/internal/index"
	"github.com/JakeFAU/kanka-search/internal/metrics"
	"github.com/JakeFAU/kanka-search/internal/search"
	"github.com/JakeFAU/kanka-search/internal/storage"
	"github.com/JakeFAU/kanka-search/internal/telemetry"
)

// Config holds the run settings.
type Config struct {
	TTL time.Duration
}

// Deps are the collaborators of a Service.
type Deps struct {
	Store    storage.Store
	Resolver DirectoryResolver
	Crawler  CampaignCrawler
	Engine   *search.Engine
	Clock    Clock
	IDs      IDGenerator
	Logger   *zap.Logger
}

// Service wires the cache, the crawler and the query engine together.
type Service struct {
	ttl      time.Duration
	store    storage.Store
	resolver DirectoryResolver
	crawler  CampaignCrawler
	engine   *search.Engine
	clock    Clock
	ids      IDGenerator
	logger   *zap.Logger

	// flight collapses concurrent rebuilds into one crawl and one write.
	flight singleflight.Group
}

const rebuildKey = "rebuild"

// RefreshReport describes a refresh.
type RefreshReport struct {
	RunID string
	// Refreshed is false when the cache was fresh and nothing was crawled.
	Refreshed bool
	Cache     *index.Cache
	Campaigns int
	Failures  []crawler.CategoryFailure
	Stats     index.MergeStats
	Duration  time.Duration
}

// New validates deps and builds a Service.
func New(cfg Config, deps Deps) (*Service, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("pipeline: store is required")
	case deps.Resolver == nil:
		return nil, errors.New("pipeline: resolver is required")
	case deps.Crawler == nil:
		return nil, errors.New("pipeline: crawler is required")
	case deps.Engine == nil:
		return nil, errors.New("pipeline: engine is required")
	case deps.Clock == nil:
		return nil, errors.New("pipeline: clock is required")
	case deps.IDs == nil:
		return nil, errors.New("pipeline: id generator is required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("pipeline: ttl must be positive, got %s", cfg.TTL)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		ttl:      cfg.TTL,
		store:    deps.Store,
		resolver: deps.Resolver,
		crawler:  deps.Crawler,
		engine:   deps.Engine,
		clock:    deps.Clock,
		ids:      deps.IDs,
		logger:   logger,
	}, nil
}

// Search answers query from the cache, rebuilding the cache first when it
// is missing or stale. A corrupt cache fails the search.
func (s *Service) Search(ctx context.Context, query string) ([]search.Match, error) {
	return s.SearchN(ctx, query, s.engine.Limit())
}

// SearchN is Search with a caller-chosen limit, capped at the engine limit.
func (s *Service) SearchN(ctx context.Context, query string, limit int) ([]search.Match, error) {
	runID := s.newRunID()
	logger := s.logger.With(zap.String("run_id", runID))

	cached, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	if index.NeedsRefresh(cached, s.ttl, s.clock.Now()) {
		logger.Info("cache stale, refreshing")
		if _, err := s.sharedRebuild(ctx, runID, cached, false); err != nil {
			return nil, err
		}
		// Rank against what was persisted, not the in-memory build.
		if cached, err = s.load(ctx); err != nil {
			return nil, err
		}
	}
	if cached == nil {
		return nil, fmt.Errorf("pipeline: %w after refresh", storage.ErrCacheNotFound)
	}

	matches := s.engine.QueryN(query, cached.Data, limit)
	logger.Debug("query ranked",
		zap.String("query", query),
		zap.Int("candidates", cached.Len()),
		zap.Int("matches", len(matches)),
	)
	return matches, nil
}

// Refresh rebuilds the cache when it is stale, or always when force is set.
// A forced refresh also recovers from a corrupt cache.
func (s *Service) Refresh(ctx context.Context, force bool) (RefreshReport, error) {
	runID := s.newRunID()

	cached, err := s.load(ctx)
	if err != nil {
		if !force || !errors.Is(err, storage.ErrCacheCorrupt) {
			return RefreshReport{RunID: runID}, err
		}
		s.logger.Warn("ignoring corrupt cache", zap.String("run_id", runID), zap.Error(err))
		cached = nil
	}

	if !force && !index.NeedsRefresh(cached, s.ttl, s.clock.Now()) {
		s.logger.Info("cache fresh, nothing to do",
			zap.String("run_id", runID),
			zap.Time("built_at", cached.BuiltAt),
		)
		return RefreshReport{RunID: runID, Cache: cached}, nil
	}
	return s.sharedRebuild(ctx, runID, cached, force)
}

// sharedRebuild runs at most one rebuild at a time. Callers arriving while
// one is in flight wait for it and share its report. A gated leader checks
// the store again first, so a caller that read the cache before a rebuild
// finished does not crawl a second time.
func (s *Service) sharedRebuild(ctx context.Context, runID string, cached *index.Cache, force bool) (RefreshReport, error) {
	results := s.flight.DoChan(rebuildKey, func() (any, error) {
		if !force {
			if current, err := s.load(ctx); err == nil && !index.NeedsRefresh(current, s.ttl, s.clock.Now()) {
				s.logger.Debug("cache rebuilt by a concurrent run", zap.String("run_id", runID))
				return RefreshReport{RunID: runID, Cache: current}, nil
			}
		}
		return s.rebuild(ctx, runID, cached)
	})

	select {
	case <-ctx.Done():
		return RefreshReport{RunID: runID}, fmt.Errorf("wait for rebuild: %w", ctx.Err())
	case res := <-results:
		report, _ := res.Val.(RefreshReport)
		if res.Shared {
			s.logger.Debug("joined in-flight rebuild", zap.String("run_id", runID), zap.String("leader_run_id", report.RunID))
		}
		return report, res.Err
	}
}

func (s *Service) rebuild(ctx context.Context, runID string, cached *index.Cache) (RefreshReport, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "pipeline.rebuild", trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()

	start := s.clock.Now()
	logger := s.logger.With(zap.String("run_id", runID))
	report := RefreshReport{RunID: runID}

	fail := func(stage string, err error) (RefreshReport, error) {
		telemetry.Fail(span, err)
		metrics.ObserveRefresh("error", s.clock.Now().Sub(start))
		logger.Error("refresh failed", zap.String("stage", stage), zap.Error(err))
		return report, err
	}

	directory, err := s.resolver.Resolve(ctx, cached)
	if err != nil {
		return fail("resolve", err)
	}
	campaigns := crawler.Campaigns(directory)
	report.Campaigns = len(campaigns)

	results, err := s.crawler.CrawlAll(ctx, campaigns)
	if err != nil {
		return fail("crawl", err)
	}
	report.Failures = crawler.Failures(results)

	merged, stats := index.MergeWithStats(crawler.Parts(results)...)
	report.Stats = stats
	fresh := index.NewCache(merged, s.clock.Now())
	if err := s.store.Save(ctx, fresh); err != nil {
		return fail("persist", err)
	}
	report.Cache = fresh
	report.Refreshed = true
	report.Duration = s.clock.Now().Sub(start)

	outcome := "ok"
	if len(report.Failures) > 0 {
		outcome = "partial"
	}
	span.SetAttributes(
		attribute.Int("campaigns", report.Campaigns),
		attribute.Int("entries", stats.Entries),
		attribute.Int("category_failures", len(report.Failures)),
	)
	metrics.ObserveRefresh(outcome, report.Duration)
	metrics.SetCacheEntries(fresh.Len())
	metrics.AddMergeCollisions(stats.Collisions)

	for _, f := range report.Failures {
		logger.Warn("category failed", zap.String("campaign", f.Campaign), zap.String("category", f.Category), zap.Error(f.Err))
	}
	logger.Info("cache rebuilt",
		zap.Int("campaigns", report.Campaigns),
		zap.Int("entries", stats.Entries),
		zap.Int("collisions", stats.Collisions),
		zap.Int("category_failures", len(report.Failures)),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// load returns nil without error when no cache exists yet.
func (s *Service) load(ctx context.Context) (*index.Cache, error) {
	cached, err := s.store.Load(ctx)
	if errors.Is(err, storage.ErrCacheNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cache: %w", err)
	}
	return cached, nil
}

func (s *Service) newRunID() string {
	id, err := s.ids.NewID()
	if err != nil {
		s.logger.Warn("run id unavailable", zap.Error(err))
		return "unknown"
	}
	return id
}
