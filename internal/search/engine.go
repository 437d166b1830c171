package search

import (
	"sort"
)

// DefaultLimit caps a result list. Matches past the first twenty or so are
// rarely relevant.
const DefaultLimit = 25

// Match is one ranked candidate.
type Match struct {
	DisplayName string `json:"display_name"`
	Link        string `json:"link"`
	Score       int    `json:"score"`
}

// Engine ranks display names against a query.
type Engine struct {
	limit  int
	scorer Scorer
}

// Option customizes an Engine.
type Option func(*Engine)

// WithScorer swaps the similarity function.
func WithScorer(s Scorer) Option {
	return func(e *Engine) {
		if s != nil {
			e.scorer = s
		}
	}
}

// NewEngine returns an Engine that keeps at most limit matches.
// A non-positive limit falls back to DefaultLimit.
func NewEngine(limit int, opts ...Option) *Engine {
	if limit <= 0 {
		limit = DefaultLimit
	}
	e := &Engine{limit: limit, scorer: WeightedRatio}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Limit reports the maximum number of matches Query returns.
func (e *Engine) Limit() int {
	return e.limit
}

// Query scores every key of data against text and returns the best matches,
// highest score first. Equal scores keep lexical key order. data is only read.
func (e *Engine) Query(text string, data map[string]string) []Match {
	return e.QueryN(text, data, e.limit)
}

// QueryN is Query with a per-call limit, clamped to the engine's limit.
func (e *Engine) QueryN(text string, data map[string]string, limit int) []Match {
	if limit <= 0 || limit > e.limit {
		limit = e.limit
	}
	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)

	matches := make([]Match, 0, len(names))
	for _, name := range names {
		matches = append(matches, Match{
			DisplayName: name,
			Link:        data[name],
			Score:       e.scorer(text, name),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
