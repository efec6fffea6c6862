// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"math"

	"github.com/meshintel/metasearch/pkg/types"
)

// allocation is one planned upstream call: which source, how many results
// to ask it for.
type allocation struct {
	Source types.SourceID
	Limit  int
}

// planQuota computes the per-source fetch limits for the primary wave.
// Preferred sources get a static share scaled by totalBudget against the
// baseline; the rest split the remaining budget evenly with a floor. The
// sum of limits may exceed totalBudget: overfetching is intentional, it
// absorbs partial failures and normalizer rejections. A single requested
// source gets the whole budget, bounded by the per-call ceiling. Output
// preserves the requested order.
func planQuota(requested []types.SourceID, totalBudget int, preferred []types.SourceID, q types.QuotaConfig) []allocation {
	if len(requested) == 0 || totalBudget <= 0 {
		return nil
	}

	if len(requested) == 1 {
		return []allocation{{Source: requested[0], Limit: clampLimit(totalBudget, 1, q.MaxPerSource)}}
	}

	prefSet := make(map[types.SourceID]struct{}, len(preferred))
	for _, id := range preferred {
		prefSet[id] = struct{}{}
	}

	scale := float64(totalBudget) / float64(q.BaselineBudget)
	prefLimit := clampLimit(int(math.Round(float64(q.PreferredShare)*scale)), q.MinPerSource, q.MaxPerSource)

	var others int
	remaining := totalBudget
	for _, id := range requested {
		if _, ok := prefSet[id]; ok {
			remaining -= prefLimit
		} else {
			others++
		}
	}

	otherLimit := q.MinPerSource
	if others > 0 && remaining > 0 {
		otherLimit = clampLimit(remaining/others, q.MinPerSource, q.MaxPerSource)
	}

	plan := make([]allocation, 0, len(requested))
	for _, id := range requested {
		limit := otherLimit
		if _, ok := prefSet[id]; ok {
			limit = prefLimit
		}
		plan = append(plan, allocation{Source: id, Limit: limit})
	}
	return plan
}

func clampLimit(n, min, max int) int {
	if n < min {
		return min
	}
	if max > 0 && n > max {
		return max
	}
	return n
}
