package crawler

import (
	"context"

	"github.com/JakeFAU/kanka-search/internal/kanka"
)

// API lists the remote records a crawl needs.
type API interface {
	ListCampaigns(ctx context.Context) ([]kanka.Entity, error)
	ListCategory(ctx context.Context, campaignID, category string) ([]kanka.Entity, error)
}
