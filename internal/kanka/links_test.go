package kanka

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinks(t *testing.T) {
	t.Parallel()

	links := NewLinks("")
	assert.Equal(t, "https://kanka.io/en/campaign/1", links.Dashboard("1"))
	assert.Equal(t, "https://kanka.io/en/campaign/1/characters", links.Category("1", "characters"))
	assert.Equal(t, "https://kanka.io/en/campaign/1/characters/5", links.Entity("1", "characters", 5))

	custom := NewLinks("https://kanka.example/fr/")
	assert.Equal(t, "https://kanka.example/fr/campaign/9", custom.Dashboard("9"))
}

func TestCampaignIDFromDashboard(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		link   string
		wantID string
		wantOK bool
	}{
		{"dashboard", "https://kanka.io/en/campaign/42", "42", true},
		{"trailing slash", "https://kanka.io/en/campaign/42/", "42", true},
		{"category link", "https://kanka.io/en/campaign/42/characters", "", false},
		{"entity link", "https://kanka.io/en/campaign/42/characters/7", "", false},
		{"no path", "https://kanka.io", "", false},
		{"garbage", "://", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			id, ok := CampaignIDFromDashboard(tc.link)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantID, id)
		})
	}
}

func TestTokenHeaders(t *testing.T) {
	t.Parallel()

	_, err := NewTokenHeaders("")
	assert.ErrorIs(t, err, ErrMissingToken)

	headers, err := NewTokenHeaders("abc")
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{
		"Authorization": "Bearer abc",
		"Accept":        "application/json",
	}, headers.Headers())
}
