// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"testing"

	"github.com/meshintel/metasearch/pkg/types"
)

func testQuotaConfig() types.QuotaConfig {
	return types.QuotaConfig{
		BaselineBudget: 20,
		PreferredShare: 8,
		MinPerSource:   3,
		MaxPerSource:   50,
		FallbackLimit:  10,
	}
}

func TestPlanQuotaEmpty(t *testing.T) {
	if got := planQuota(nil, 20, nil, testQuotaConfig()); got != nil {
		t.Errorf("planQuota(nil sources) = %v, want nil", got)
	}
	if got := planQuota([]types.SourceID{"a"}, 0, nil, testQuotaConfig()); got != nil {
		t.Errorf("planQuota(zero budget) = %v, want nil", got)
	}
}

func TestPlanQuotaSingleSource(t *testing.T) {
	plan := planQuota([]types.SourceID{"solo"}, 30, []types.SourceID{"solo"}, testQuotaConfig())
	if len(plan) != 1 {
		t.Fatalf("len(plan) = %d, want 1", len(plan))
	}
	if plan[0].Source != "solo" || plan[0].Limit != 30 {
		t.Errorf("plan[0] = %+v, want {solo 30}", plan[0])
	}

	// The per-call ceiling still applies.
	plan = planQuota([]types.SourceID{"solo"}, 200, nil, testQuotaConfig())
	if plan[0].Limit != 50 {
		t.Errorf("single-source limit = %d, want ceiling 50", plan[0].Limit)
	}
}

func TestPlanQuotaPreferredShare(t *testing.T) {
	requested := []types.SourceID{"pref1", "other1", "pref2", "other2"}
	preferred := []types.SourceID{"pref1", "pref2"}
	plan := planQuota(requested, 20, preferred, testQuotaConfig())

	if len(plan) != 4 {
		t.Fatalf("len(plan) = %d, want 4", len(plan))
	}
	// Budget 20 at baseline 20: preferred get the static share of 8 each,
	// the remaining 4 split between two others but floored at 3.
	want := map[types.SourceID]int{"pref1": 8, "pref2": 8, "other1": 3, "other2": 3}
	for _, a := range plan {
		if a.Limit != want[a.Source] {
			t.Errorf("limit[%s] = %d, want %d", a.Source, a.Limit, want[a.Source])
		}
	}

	// Order preserved.
	for i, a := range plan {
		if a.Source != requested[i] {
			t.Errorf("plan[%d].Source = %s, want %s", i, a.Source, requested[i])
		}
	}

	// Overfetch is allowed: 8+8+3+3 = 22 > 20.
	var sum int
	for _, a := range plan {
		sum += a.Limit
	}
	if sum != 22 {
		t.Errorf("sum of limits = %d, want 22", sum)
	}
}

func TestPlanQuotaScalesWithBudget(t *testing.T) {
	requested := []types.SourceID{"pref", "other"}
	plan := planQuota(requested, 40, []types.SourceID{"pref"}, testQuotaConfig())

	// Double the baseline doubles the preferred share: 8 * 40/20 = 16.
	// The other source inherits the remaining 24, clamped by the ceiling.
	want := map[types.SourceID]int{"pref": 16, "other": 24}
	for _, a := range plan {
		if a.Limit != want[a.Source] {
			t.Errorf("limit[%s] = %d, want %d", a.Source, a.Limit, want[a.Source])
		}
	}
}

func TestPlanQuotaFloorWhenExhausted(t *testing.T) {
	// Tiny budget: preferred shares eat it all, others still get the floor.
	requested := []types.SourceID{"pref1", "pref2", "other"}
	plan := planQuota(requested, 6, []types.SourceID{"pref1", "pref2"}, testQuotaConfig())

	for _, a := range plan {
		if a.Limit < 3 {
			t.Errorf("limit[%s] = %d, below floor 3", a.Source, a.Limit)
		}
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		n, min, max, want int
	}{
		{5, 1, 10, 5},
		{0, 1, 10, 1},
		{15, 1, 10, 10},
		{15, 1, 0, 15}, // zero max means unbounded
	}
	for _, tt := range tests {
		if got := clampLimit(tt.n, tt.min, tt.max); got != tt.want {
			t.Errorf("clampLimit(%d, %d, %d) = %d, want %d", tt.n, tt.min, tt.max, got, tt.want)
		}
	}
}
