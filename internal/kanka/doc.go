// Package kanka is a small client for the parts of the Kanka REST API the
// search cache needs: the campaign directory and the per-category entity
// listings. It also builds the web links stored in the cache.
package kanka
