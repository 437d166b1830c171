package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/kanka-search/internal/index"
	"github.com/JakeFAU/kanka-search/internal/kanka"
	"github.com/JakeFAU/kanka-search/internal/metrics"
	"github.com/JakeFAU/kanka-search/internal/telemetry"
)

// DefaultMaxConcurrency bounds how many campaigns are crawled at once.
const DefaultMaxConcurrency = 8

// Config holds the settings for a crawl.
type Config struct {
	// Categories are fetched in this order for every campaign.
	Categories     []string
	MaxConcurrency int
	WebURL         string
}

// Crawler turns campaigns into display-name to link maps.
type Crawler struct {
	api        API
	links      kanka.Links
	categories []string
	limit      int
	logger     *zap.Logger
}

// New builds a Crawler. Empty config fields fall back to the Kanka defaults.
func New(cfg Config, api API, logger *zap.Logger) (*Crawler, error) {
	if api == nil {
		return nil, errors.New("crawler: api is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	categories := cfg.Categories
	if len(categories) == 0 {
		categories = kanka.DefaultCategories
	}
	limit := cfg.MaxConcurrency
	if limit <= 0 {
		limit = DefaultMaxConcurrency
	}
	return &Crawler{
		api:        api,
		links:      kanka.NewLinks(cfg.WebURL),
		categories: append([]string(nil), categories...),
		limit:      limit,
		logger:     logger,
	}, nil
}

// CrawlCampaign fetches every category of one campaign in order. A category
// that cannot be fetched is skipped and reported; the rest of the campaign
// is still indexed. The returned map belongs to the caller.
func (c *Crawler) CrawlCampaign(ctx context.Context, campaign Campaign) (map[string]string, []CategoryFailure) {
	ctx, span := telemetry.Tracer().Start(ctx, "crawler.campaign", trace.WithAttributes(
		attribute.String("campaign.name", campaign.Name),
		attribute.String("campaign.id", campaign.ID),
	))
	defer span.End()
	metrics.IncActiveCrawls()
	defer metrics.DecActiveCrawls()

	logger := c.logger.With(zap.String("campaign", campaign.Name), zap.String("campaign_id", campaign.ID))
	data := make(map[string]string)
	var failures []CategoryFailure

	for _, category := range c.categories {
		if ctx.Err() != nil {
			break
		}
		records, err := c.api.ListCategory(ctx, campaign.ID, category)
		if err != nil {
			failure := newCategoryFailure(campaign, category, err)
			failures = append(failures, failure)
			metrics.ObserveCategoryFailure(category)
			logger.Warn("category skipped", zap.String("category", category), zap.Error(err))
			continue
		}
		for _, record := range records {
			data[index.DisplayName(record.Name)] = c.links.Entity(campaign.ID, category, record.ID)
		}
		data[campaign.Name+" "+index.CategoryLabel(category)] = c.links.Category(campaign.ID, category)
	}
	data[campaign.Name+index.DashboardMarker] = c.links.Dashboard(campaign.ID)

	span.SetAttributes(attribute.Int("entries", len(data)), attribute.Int("category_failures", len(failures)))
	logger.Debug("campaign crawled", zap.Int("entries", len(data)), zap.Int("failures", len(failures)))
	return data, failures
}

// CrawlAll crawls every campaign with at most MaxConcurrency tasks in flight
// and waits for all of them. Results come back in the order of campaigns.
// It fails only when ctx ends before the crawl completes.
func (c *Crawler) CrawlAll(ctx context.Context, campaigns []Campaign) ([]CampaignResult, error) {
	start := time.Now()
	results := make([]CampaignResult, len(campaigns))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.limit)
	for i, campaign := range campaigns {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, failures := c.CrawlCampaign(gctx, campaign)
			results[i] = CampaignResult{Campaign: campaign, Data: data, Failures: failures}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("crawl campaigns: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("crawl campaigns: %w", err)
	}

	c.logger.Info("crawl finished",
		zap.Int("campaigns", len(campaigns)),
		zap.Int("max_concurrency", c.limit),
		zap.Duration("duration", time.Since(start)),
	)
	return results, nil
}

// Parts returns the data maps of results in order, ready for index.Merge.
func Parts(results []CampaignResult) []map[string]string {
	parts := make([]map[string]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, r.Data)
	}
	return parts
}

// Failures flattens the category failures of results.
func Failures(results []CampaignResult) []CategoryFailure {
	var out []CategoryFailure
	for _, r := range results {
		out = append(out, r.Failures...)
	}
	return out
}
