// Package alfred renders search results as Alfred Script Filter JSON.
package alfred

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/JakeFAU/kanka-search/internal/search"
)

// Icon points at an item icon; an empty path uses the workflow icon.
type Icon struct {
	Path string `json:"path"`
}

// Item is one row of the result list.
type Item struct {
	UID          string `json:"uid"`
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle"`
	Type         string `json:"type,omitempty"`
	Arg          string `json:"arg"`
	Autocomplete string `json:"autocomplete"`
	Icon         Icon   `json:"icon"`
}

// Items is the Script Filter envelope.
type Items struct {
	Items []Item `json:"items"`
}

// FromMatches converts ranked matches, keeping their order. Actioning an
// item opens its Kanka page.
func FromMatches(matches []search.Match) Items {
	out := Items{Items: make([]Item, 0, len(matches))}
	for _, m := range matches {
		out.Items = append(out.Items, Item{
			UID:          m.DisplayName,
			Title:        m.DisplayName,
			Subtitle:     m.Link,
			Arg:          m.Link,
			Autocomplete: m.DisplayName,
		})
	}
	return out
}

// ErrorItem is the single item shown when a search fails. Actioning it
// opens the diagnostics log.
func ErrorItem(logPath string) Items {
	return Items{Items: []Item{{
		UID:          "whoops",
		Title:        "whoopsie",
		Subtitle:     "Select to open log file",
		Type:         "file",
		Arg:          logPath,
		Autocomplete: "whoopsie",
	}}}
}

// Write encodes items to w as one JSON document.
func Write(w io.Writer, items Items) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("encode alfred items: %w", err)
	}
	return nil
}
