// Package cache holds the two process-wide caches: the latest refresh
// snapshot and the article summary cache.
package cache

import (
	"sync/atomic"
	"time"

	"github.com/seenimoa/finsum/pkg/models"
)

// ResultCache holds the most recent complete snapshot. Readers always observe
// either the previous or the new snapshot, never a mix.
type ResultCache struct {
	snap atomic.Pointer[models.Snapshot]
}

// NewResultCache returns an empty cache.
func NewResultCache() *ResultCache {
	return &ResultCache{}
}

// Get returns the current snapshot, or nil if no refresh has succeeded yet.
// Callers must treat the snapshot as read-only.
func (c *ResultCache) Get() *models.Snapshot {
	return c.snap.Load()
}

// Replace installs s as the current snapshot.
func (c *ResultCache) Replace(s *models.Snapshot) {
	c.snap.Store(s)
}

// LastRefresh returns when the current snapshot was taken.
func (c *ResultCache) LastRefresh() (time.Time, bool) {
	s := c.snap.Load()
	if s == nil {
		return time.Time{}, false
	}
	return s.RefreshedAt, true
}

// Stale reports whether the cache is empty or its snapshot is older than maxAge.
func (c *ResultCache) Stale(maxAge time.Duration, now time.Time) bool {
	s := c.snap.Load()
	return s == nil || s.Age(now) > maxAge
}
