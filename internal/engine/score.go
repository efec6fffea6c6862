// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import "github.com/meshintel/metasearch/pkg/types"

// scorer computes result scores from the static trust-weight table.
// Weights reflect empirical upstream reliability, not content relevance.
type scorer struct {
	weights map[types.SourceID]float64
	def     float64
}

// weight returns the trust weight for a source, falling back to the
// configured default for unknown sources.
func (s scorer) weight(id types.SourceID) float64 {
	if w, ok := s.weights[id]; ok {
		return w
	}
	return s.def
}

// score combines a source's trust weight with positional decay: the
// upstream's own top pick scores the full weight, later positions decay
// hyperbolically. Monotonically non-increasing in pos.
func (s scorer) score(id types.SourceID, pos int) float64 {
	return s.weight(id) / float64(1+pos)
}
