package kanka

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultWebURL is the root of the Kanka web UI.
const DefaultWebURL = "https://kanka.io/en"

// Links builds the web pages stored in the cache.
type Links struct {
	base string
}

// NewLinks returns a builder rooted at webURL, or DefaultWebURL when empty.
func NewLinks(webURL string) Links {
	if webURL == "" {
		webURL = DefaultWebURL
	}
	return Links{base: strings.TrimRight(webURL, "/")}
}

// Dashboard is the campaign root page.
func (l Links) Dashboard(campaignID string) string {
	return fmt.Sprintf("%s/campaign/%s", l.base, campaignID)
}

// Category is the listing page of one category inside a campaign.
func (l Links) Category(campaignID, category string) string {
	return fmt.Sprintf("%s/%s", l.Dashboard(campaignID), category)
}

// Entity is the page of a single record.
func (l Links) Entity(campaignID, category string, entityID int64) string {
	return fmt.Sprintf("%s/%d", l.Category(campaignID, category), entityID)
}

// CampaignIDFromDashboard recovers the campaign id from a dashboard link,
// which is its trailing path segment. Links that are not shaped like a
// dashboard are rejected.
func CampaignIDFromDashboard(link string) (string, bool) {
	u, err := url.Parse(link)
	if err != nil {
		return "", false
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 {
		return "", false
	}
	id := segments[len(segments)-1]
	if segments[len(segments)-2] != "campaign" || id == "" {
		return "", false
	}
	return id, true
}
