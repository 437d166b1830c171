package crawler

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/JakeFAU/kanka-search/internal/index"
	"github.com/JakeFAU/kanka-search/internal/kanka"
)

// Resolver decides which campaigns a refresh should crawl.
type Resolver struct {
	api    API
	logger *zap.Logger
}

// NewResolver builds a Resolver backed by api.
func NewResolver(api API, logger *zap.Logger) (*Resolver, error) {
	if api == nil {
		return nil, errors.New("crawler: api is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{api: api, logger: logger}, nil
}

// Resolve returns the campaign directory as name to id. Campaigns recorded
// in cached are used when there are any; otherwise the remote directory is
// listed. cached may be nil.
func (r *Resolver) Resolve(ctx context.Context, cached *index.Cache) (map[string]string, error) {
	if fromCache := FromCache(cached); len(fromCache) > 0 {
		r.logger.Debug("campaigns resolved from cache", zap.Int("campaigns", len(fromCache)))
		return fromCache, nil
	}

	entities, err := r.api.ListCampaigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
	}
	directory := make(map[string]string, len(entities))
	for _, e := range entities {
		directory[index.DisplayName(e.Name)] = strconv.FormatInt(e.ID, 10)
	}
	r.logger.Debug("campaigns resolved from api", zap.Int("campaigns", len(directory)))
	return directory, nil
}

// FromCache derives the campaign directory from the dashboard entries of a
// previous snapshot. Entries whose link is not a campaign dashboard are
// ignored, so an entity that happens to end in " Dashboard" is not taken for
// a campaign.
func FromCache(cached *index.Cache) map[string]string {
	directory := make(map[string]string)
	for name, link := range cached.Dashboards() {
		id, ok := kanka.CampaignIDFromDashboard(link)
		if !ok {
			continue
		}
		directory[name] = id
	}
	return directory
}
