package index

import (
	"strings"
	"time"
)

// DashboardMarker suffixes the display name of every campaign dashboard entry.
const DashboardMarker = " Dashboard"

// Cache is a complete snapshot of every campaign's entries.
// A zero BuiltAt means the snapshot carries no build timestamp.
type Cache struct {
	BuiltAt time.Time
	Data    map[string]string
}

// NewCache wraps a merged map into a snapshot stamped with builtAt.
func NewCache(data map[string]string, builtAt time.Time) *Cache {
	if data == nil {
		data = map[string]string{}
	}
	return &Cache{BuiltAt: builtAt, Data: data}
}

// Len reports the number of entries in the snapshot.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Data)
}

// Dashboards returns the dashboard entries of the snapshot, keyed by the
// campaign name with the marker stripped.
func (c *Cache) Dashboards() map[string]string {
	out := make(map[string]string)
	if c == nil {
		return out
	}
	for name, link := range c.Data {
		if !strings.HasSuffix(name, DashboardMarker) {
			continue
		}
		campaign := strings.TrimSuffix(name, DashboardMarker)
		if campaign == "" {
			continue
		}
		out[campaign] = link
	}
	return out
}
