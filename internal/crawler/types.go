package crawler

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrDirectoryUnavailable means the campaign list could not be fetched.
	ErrDirectoryUnavailable = errors.New("crawler: campaign directory unavailable")
	// ErrCategoryFetchFailed marks a category that was skipped during a crawl.
	ErrCategoryFetchFailed = errors.New("crawler: category fetch failed")
)

// Campaign identifies one campaign to crawl.
type Campaign struct {
	Name string
	ID   string
}

// Campaigns turns a name to id directory into a list ordered by name, then id.
func Campaigns(directory map[string]string) []Campaign {
	out := make([]Campaign, 0, len(directory))
	for name, id := range directory {
		out = append(out, Campaign{Name: name, ID: id})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// CategoryFailure records a category skipped during a campaign crawl.
type CategoryFailure struct {
	Campaign string
	Category string
	Err      error
}

func newCategoryFailure(campaign Campaign, category string, cause error) CategoryFailure {
	return CategoryFailure{
		Campaign: campaign.Name,
		Category: category,
		Err:      fmt.Errorf("%w: %s/%s: %w", ErrCategoryFetchFailed, campaign.Name, category, cause),
	}
}

func (f CategoryFailure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s/%s", ErrCategoryFetchFailed, f.Campaign, f.Category)
	}
	return f.Err.Error()
}

func (f CategoryFailure) Unwrap() error {
	return f.Err
}

// CampaignResult is the output of one campaign task.
type CampaignResult struct {
	Campaign Campaign
	Data     map[string]string
	Failures []CategoryFailure
}
