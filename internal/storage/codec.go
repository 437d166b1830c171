package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/JakeFAU/kanka-search/internal/index"
)

// Older tooling wrote local wall-clock time without an offset.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

type document struct {
	CacheTime *string            `json:"cache_time,omitempty"`
	Data      *map[string]string `json:"data"`
}

// Encode renders cache as indented JSON with sorted keys.
func Encode(cache *index.Cache) ([]byte, error) {
	if cache == nil {
		return nil, errors.New("storage: nil cache")
	}
	data := cache.Data
	if data == nil {
		data = map[string]string{}
	}
	doc := document{Data: &data}
	if !cache.BuiltAt.IsZero() {
		ts := cache.BuiltAt.Format(time.RFC3339Nano)
		doc.CacheTime = &ts
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	// Names and links are written verbatim.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode cache: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a snapshot. A missing timestamp yields a zero BuiltAt; an
// unreadable document or timestamp is reported as ErrCacheCorrupt.
func Decode(raw []byte) (*index.Cache, error) {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheCorrupt, err)
	}
	if doc.Data == nil {
		return nil, fmt.Errorf("%w: missing data", ErrCacheCorrupt)
	}
	var builtAt time.Time
	if doc.CacheTime != nil {
		ts, err := parseCacheTime(*doc.CacheTime)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCacheCorrupt, err)
		}
		builtAt = ts
	}
	return index.NewCache(*doc.Data, builtAt), nil
}

func parseCacheTime(value string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	for _, layout := range naiveLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized cache_time %q", value)
}
