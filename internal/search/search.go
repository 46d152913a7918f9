// Package search builds an ephemeral weighted fuzzy index over the
// error-code catalog. The index is rebuilt whenever the catalog changes and
// is never updated incrementally.
package search

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/hvackit/fieldsync/internal/model"
)

// Field weights: code matches outrank meaning matches outrank solution
// matches.
const (
	weightCode     = 2.0
	weightMeaning  = 1.5
	weightSolution = 1.0

	// exactCodeBonus pins an exact code hit to the top of the ranking.
	exactCodeBonus = 1 << 20
)

// Index is a per-catalog search structure. Deterministic for a fixed
// catalog and query; ties keep catalog order.
type Index struct {
	items     []model.ErrorCode
	codes     []string
	meanings  []string
	solutions []string
	minScore  float64
}

// Option adjusts index behavior.
type Option func(*Index)

// WithMinScore sets the similarity floor; matches scoring below it are
// dropped. Lower values are more permissive.
func WithMinScore(min float64) Option {
	return func(ix *Index) { ix.minScore = min }
}

// NewIndex builds the index over items.
func NewIndex(items []model.ErrorCode, opts ...Option) *Index {
	ix := &Index{
		items:     items,
		codes:     make([]string, len(items)),
		meanings:  make([]string, len(items)),
		solutions: make([]string, len(items)),
	}
	for i, it := range items {
		ix.codes[i] = it.Code
		ix.meanings[i] = it.Meaning
		ix.solutions[i] = it.Solution
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Search returns the ranked matches for query. An empty query returns the
// whole catalog, the lookup-page behavior.
func (ix *Index) Search(query string) []model.ErrorCode {
	if strings.TrimSpace(query) == "" {
		out := make([]model.ErrorCode, len(ix.items))
		copy(out, ix.items)
		return out
	}
	return ix.rank(query)
}

// Match returns the ranked matches for query. An empty query matches
// nothing, the filter behavior.
func (ix *Index) Match(query string) []model.ErrorCode {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	return ix.rank(query)
}

type scored struct {
	index int
	score float64
}

func (ix *Index) rank(query string) []model.ErrorCode {
	best := map[int]float64{}
	accumulate := func(field []string, weight float64) {
		for _, m := range fuzzy.Find(query, field) {
			score := weight * float64(m.Score)
			if weight == weightCode && strings.EqualFold(field[m.Index], query) {
				score += exactCodeBonus
			}
			if cur, ok := best[m.Index]; !ok || score > cur {
				best[m.Index] = score
			}
		}
	}
	accumulate(ix.codes, weightCode)
	accumulate(ix.meanings, weightMeaning)
	accumulate(ix.solutions, weightSolution)

	ranked := make([]scored, 0, len(best))
	for i, s := range best {
		if s < ix.minScore {
			continue
		}
		ranked = append(ranked, scored{index: i, score: s})
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		if ranked[a].score != ranked[b].score {
			return ranked[a].score > ranked[b].score
		}
		return ranked[a].index < ranked[b].index
	})

	out := make([]model.ErrorCode, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, ix.items[r.index])
	}
	return out
}
