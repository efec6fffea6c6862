// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"sync"
	"time"

	"github.com/meshintel/metasearch/pkg/types"
)

const (
	minCooldown     = 30 * time.Second
	maxCooldown     = 30 * time.Minute
	defaultCooldown = 10 * time.Minute
)

// breaker skips sources that recently signalled a blocked/CAPTCHA
// condition. Tripping again extends the window from now.
type breaker struct {
	mu       sync.Mutex
	until    map[types.SourceID]time.Time
	cooldown time.Duration
	now      func() time.Time
}

// newBreaker clamps the cooldown to [30s, 30m]; zero means the default.
func newBreaker(cooldown time.Duration) *breaker {
	switch {
	case cooldown <= 0:
		cooldown = defaultCooldown
	case cooldown < minCooldown:
		cooldown = minCooldown
	case cooldown > maxCooldown:
		cooldown = maxCooldown
	}
	return &breaker{
		until:    make(map[types.SourceID]time.Time),
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Trip blocks the source for one cooldown from now.
func (b *breaker) Trip(id types.SourceID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.until[id] = b.now().Add(b.cooldown)
}

// Blocked reports whether the source is currently skipped, and until when.
func (b *breaker) Blocked(id types.SourceID) (bool, time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	until, ok := b.until[id]
	if !ok || !b.now().Before(until) {
		return false, time.Time{}
	}
	return true, until
}
