package correction

import (
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/floats"
)

// IndexCache memoizes the rank vector 1..M per hypothesis count. Entries are
// computed on first use and never mutated afterwards. Concurrent misses for
// the same M may each build a vector; LoadOrStore keeps the first and every
// caller receives that one.
type IndexCache struct {
	ranks  sync.Map // int -> []float64
	builds atomic.Int64
}

// NewIndexCache creates an empty cache
func NewIndexCache() *IndexCache {
	return &IndexCache{}
}

// Ranks returns the shared rank vector [1, 2, ..., m]. Callers must not modify it.
func (c *IndexCache) Ranks(m int) []float64 {
	if v, ok := c.ranks.Load(m); ok {
		return v.([]float64)
	}
	built := buildRanks(m)
	c.builds.Add(1)
	v, _ := c.ranks.LoadOrStore(m, built)
	return v.([]float64)
}

// Len reports how many hypothesis counts are cached
func (c *IndexCache) Len() int {
	n := 0
	c.ranks.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Builds reports how many rank vectors were computed, duplicates included
func (c *IndexCache) Builds() int64 {
	return c.builds.Load()
}

func buildRanks(m int) []float64 {
	if m <= 0 {
		return []float64{}
	}
	ranks := make([]float64, m)
	if m == 1 {
		ranks[0] = 1
		return ranks
	}
	return floats.Span(ranks, 1, float64(m))
}
