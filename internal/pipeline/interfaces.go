package pipeline

import (
	"context"
	"time"

	"github.com/JakeFAU/kanka-search/internal/crawler"
	"github.com/JakeFAU/kanka-search/internal/index"
)

// DirectoryResolver produces the campaigns a refresh should crawl.
type DirectoryResolver interface {
	Resolve(ctx context.Context, cached *index.Cache) (map[string]string, error)
}

// CampaignCrawler crawls a set of campaigns and joins the results.
type CampaignCrawler interface {
	CrawlAll(ctx context.Context, campaigns []crawler.Campaign) ([]crawler.CampaignResult, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
