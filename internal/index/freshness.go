package index

import "time"

// NeedsRefresh reports whether the snapshot must be rebuilt before serving a
// query. A snapshot is fresh only when it has a build timestamp and its age is
// strictly between zero and ttl; a timestamp in the future counts as stale.
func NeedsRefresh(cache *Cache, ttl time.Duration, now time.Time) bool {
	if cache == nil || cache.BuiltAt.IsZero() {
		return true
	}
	age := now.Sub(cache.BuiltAt)
	return !(age > 0 && age < ttl)
}

// TTLFromHours converts the configured hour count to a duration.
func TTLFromHours(hours int) time.Duration {
	return time.Duration(hours) * time.Hour
}
