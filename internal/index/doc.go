// Package index holds the searchable snapshot built from a Kanka crawl: the
// display-name normalization that defines the search key space, the merge of
// per-campaign maps, and the freshness gate that decides when a snapshot must
// be rebuilt.
package index
