// Package crawler resolves the campaign directory and crawls every category
// of every campaign into the display-name to link maps that make up the
// search cache.
package crawler
