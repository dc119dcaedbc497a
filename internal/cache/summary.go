package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// ContentKey returns the summary cache key for an article: the hex MD5 of
// title + "_" + content.
func ContentKey(title, content string) string {
	sum := md5.Sum([]byte(title + "_" + content))
	return hex.EncodeToString(sum[:])
}

type store interface {
	get(key string) (string, bool)
	add(key, value string)
	len() int
}

// SummaryCache maps content keys to summaries. Entries are never invalidated.
// Concurrent computations for one key collapse into a single call.
type SummaryCache struct {
	entries store
	group   singleflight.Group
}

// NewSummaryCache creates a cache. maxEntries <= 0 means unbounded; otherwise
// the least recently used entry is evicted once the bound is reached.
func NewSummaryCache(maxEntries int) *SummaryCache {
	if maxEntries <= 0 {
		return &SummaryCache{entries: &mapStore{m: make(map[string]string)}}
	}
	l, err := lru.New[string, string](maxEntries)
	if err != nil {
		// only reachable with a non-positive size
		panic(fmt.Sprintf("summary cache: %v", err))
	}
	return &SummaryCache{entries: &lruStore{l: l}}
}

// Get returns the cached summary for key.
func (c *SummaryCache) Get(key string) (string, bool) {
	return c.entries.get(key)
}

// Len returns the number of cached summaries.
func (c *SummaryCache) Len() int {
	return c.entries.len()
}

// GetOrCompute returns the cached summary for key, calling compute on a miss.
// Errors from compute are returned to every waiting caller and not cached.
// ctx only bounds this caller's wait: a computation shared with other callers
// keeps running, and its result is still stored, after ctx is done.
func (c *SummaryCache) GetOrCompute(ctx context.Context, key string, compute func() (string, error)) (string, error) {
	if v, ok := c.entries.get(key); ok {
		return v, nil
	}
	ch := c.group.DoChan(key, func() (any, error) {
		if v, ok := c.entries.get(key); ok {
			return v, nil
		}
		s, err := compute()
		if err != nil {
			return "", err
		}
		c.entries.add(key, s)
		return s, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

type mapStore struct {
	mu sync.RWMutex
	m  map[string]string
}

func (s *mapStore) get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok
}

func (s *mapStore) add(key, value string) {
	s.mu.Lock()
	s.m[key] = value
	s.mu.Unlock()
}

func (s *mapStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// lru.Cache is internally synchronized.
type lruStore struct {
	l *lru.Cache[string, string]
}

func (s *lruStore) get(key string) (string, bool) { return s.l.Get(key) }
func (s *lruStore) add(key, value string)         { s.l.Add(key, value) }
func (s *lruStore) len() int                      { return s.l.Len() }
