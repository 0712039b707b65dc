// Package selection picks the crossings that get a high-resolution follow-up.
package selection

import (
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/samirrijal/cumulus/internal/core/domain"
)

const (
	DefaultTop    = 2
	DefaultRandom = 3
)

// Selector takes the most confident cloudy crossings plus a random sample of the rest.
type Selector struct {
	top    int
	random int

	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a selector. A nil src uses a randomly seeded PCG; pass a seeded
// source for reproducible picks.
func New(top, random int, src rand.Source) *Selector {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Selector{
		top:    max(top, 0),
		random: max(random, 0),
		rng:    rand.New(src),
	}
}

// Limit is the most crossings Select can return.
func (s *Selector) Limit() int { return s.top + s.random }

// Select returns at most top+random results that need a high-res image. The first
// top entries are ordered by descending confidence; ties keep input order.
func (s *Selector) Select(results []domain.CrossingResult) []domain.CrossingResult {
	var candidates []domain.CrossingResult
	for _, r := range results {
		if r.Detection.NeedsHighRes {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return []domain.CrossingResult{}
	}

	slices.SortStableFunc(candidates, func(a, b domain.CrossingResult) int {
		return b.Detection.Confidence - a.Detection.Confidence
	})

	n := min(s.top, len(candidates))
	selected := slices.Clone(candidates[:n])

	rest := candidates[n:]
	s.mu.Lock()
	s.rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
	s.mu.Unlock()

	return append(selected, rest[:min(s.random, len(rest))]...)
}
