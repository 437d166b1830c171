package alfred

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/kanka-search/internal/search"
)

func TestFromMatches(t *testing.T) {
	t.Parallel()

	items := FromMatches([]search.Match{
		{DisplayName: "Unicode Hero", Link: "https://kanka.io/en/campaign/1/characters/5", Score: 90},
		{DisplayName: "Villain", Link: "https://kanka.io/en/campaign/1/characters/6", Score: 20},
	})
	require.Len(t, items.Items, 2)
	assert.Equal(t, Item{
		UID:          "Unicode Hero",
		Title:        "Unicode Hero",
		Subtitle:     "https://kanka.io/en/campaign/1/characters/5",
		Arg:          "https://kanka.io/en/campaign/1/characters/5",
		Autocomplete: "Unicode Hero",
	}, items.Items[0])
	assert.Equal(t, "Villain", items.Items[1].Title)
}

func TestWriteEmptyList(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FromMatches(nil)))
	assert.JSONEq(t, `{"items":[]}`, buf.String())
}

func TestWriteErrorItem(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, ErrorItem("/tmp/log.txt")))
	assert.JSONEq(t, `{"items":[{
		"uid":"whoops",
		"title":"whoopsie",
		"subtitle":"Select to open log file",
		"type":"file",
		"arg":"/tmp/log.txt",
		"autocomplete":"whoopsie",
		"icon":{"path":""}
	}]}`, buf.String())
}

func TestWriteKeepsLinksVerbatim(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FromMatches([]search.Match{{DisplayName: "A & B", Link: "https://x/?a=1&b=2"}})))
	assert.Contains(t, buf.String(), "https://x/?a=1&b=2")

	var decoded Items
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "A & B", decoded.Items[0].Title)
}
