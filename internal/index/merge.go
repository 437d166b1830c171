package index

// MergeStats describes a merge.
type MergeStats struct {
	Sources    int
	Entries    int
	Collisions int
}

// Merge folds the per-campaign maps into one map by inserting them in the
// order given. When two maps share a display name the later one wins and the
// earlier link is dropped.
func Merge(parts ...map[string]string) map[string]string {
	merged, _ := MergeWithStats(parts...)
	return merged
}

// MergeWithStats is Merge that also counts overwritten keys.
func MergeWithStats(parts ...map[string]string) (map[string]string, MergeStats) {
	size := 0
	for _, p := range parts {
		size += len(p)
	}
	merged := make(map[string]string, size)
	stats := MergeStats{Sources: len(parts)}
	for _, p := range parts {
		for name, link := range p {
			if _, exists := merged[name]; exists {
				stats.Collisions++
			}
			merged[name] = link
		}
	}
	stats.Entries = len(merged)
	return merged, stats
}
