// Package pipeline runs a search end to end: it checks the cache for
// freshness, rebuilds it from the Kanka API when stale, and ranks the cached
// names against the query.
package pipeline
