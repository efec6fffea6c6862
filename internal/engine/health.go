// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"sync"
	"time"

	"github.com/meshintel/metasearch/pkg/types"
)

// HealthTracker keeps rolling per-source counters. The orchestrator is the
// only writer; external reporting reads through Snapshot. A single mutex is
// enough — mutations are short and happen once per upstream call.
type HealthTracker struct {
	mu  sync.Mutex
	m   map[types.SourceID]*types.SourceHealth
	now func() time.Time
}

// NewHealthTracker returns an empty tracker.
func NewHealthTracker() *HealthTracker {
	return &HealthTracker{
		m:   make(map[types.SourceID]*types.SourceHealth),
		now: time.Now,
	}
}

func (t *HealthTracker) entry(id types.SourceID) *types.SourceHealth {
	h, ok := t.m[id]
	if !ok {
		h = &types.SourceHealth{}
		t.m[id] = h
	}
	return h
}

// RecordRequest counts one dispatch to the source. Called before the
// adapter call so in-flight requests are visible in the totals.
func (t *HealthTracker) RecordRequest(id types.SourceID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entry(id).TotalRequests++
}

// RecordSuccess marks the source's most recent call as succeeded.
func (t *HealthTracker) RecordSuccess(id types.SourceID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entry(id).LastSuccess = t.now()
}

// RecordError marks the source's most recent call as failed.
func (t *HealthTracker) RecordError(id types.SourceID, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := t.entry(id)
	h.TotalErrors++
	h.LastError = t.now()
	h.LastErrorMessage = msg
}

// Snapshot returns a copy of every source's health for external reporting.
func (t *HealthTracker) Snapshot() map[types.SourceID]types.SourceHealth {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[types.SourceID]types.SourceHealth, len(t.m))
	for id, h := range t.m {
		out[id] = *h
	}
	return out
}

// Healthy reports the aggregate signal: healthy iff fewer than half of the
// tracked sources are currently unhealthy. An empty tracker is healthy.
func (t *HealthTracker) Healthy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.m) == 0 {
		return true
	}
	unhealthy := 0
	for _, h := range t.m {
		if h.Unhealthy() {
			unhealthy++
		}
	}
	return unhealthy*2 < len(t.m)
}
