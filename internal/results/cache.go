package results

import (
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/fop-engine/internal/metrics"
)

// GlobalScope is the cache key of the competition-wide result set.
const GlobalScope = "global"

// RankingCache keeps computed result sets until they expire or are
// invalidated by a decision.
type RankingCache struct {
	cache     *cache.Cache
	ttl       time.Duration
	mu        sync.RWMutex
	hitCount  uint64
	missCount uint64
}

// NewRankingCache creates a cache whose entries live for ttl. A zero ttl
// keeps entries until they are invalidated.
func NewRankingCache(ttl time.Duration) *RankingCache {
	expiration, cleanup := ttl, ttl*2
	if ttl <= 0 {
		expiration, cleanup = cache.NoExpiration, 0
	}
	return &RankingCache{
		cache: cache.New(expiration, cleanup),
		ttl:   expiration,
	}
}

// Get returns the cached result set for a scope.
func (rc *RankingCache) Get(scope string) (ResultSet, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if v, found := rc.cache.Get(scope); found {
		if rs, ok := v.(ResultSet); ok {
			rc.hitCount++
			rc.updateMetrics()
			return rs, true
		}
	}
	rc.missCount++
	rc.updateMetrics()
	return nil, false
}

// Set stores a result set for a scope.
func (rc *RankingCache) Set(scope string, rs ResultSet) {
	rc.cache.Set(scope, rs, rc.ttl)
}

// Invalidate drops one scope.
func (rc *RankingCache) Invalidate(scope string) {
	rc.cache.Delete(scope)
}

// Clear drops every scope and resets the statistics.
func (rc *RankingCache) Clear() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.cache.Flush()
	rc.hitCount = 0
	rc.missCount = 0
}

// Stats returns cache statistics.
func (rc *RankingCache) Stats() (hits, misses uint64, ratio float64) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.statsLocked()
}

func (rc *RankingCache) statsLocked() (hits, misses uint64, ratio float64) {
	hits, misses = rc.hitCount, rc.missCount
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

func (rc *RankingCache) updateMetrics() {
	_, _, ratio := rc.statsLocked()
	metrics.UpdateRankingCacheHitRatio(ratio)
}

// ItemCount returns the number of cached scopes.
func (rc *RankingCache) ItemCount() int {
	return rc.cache.ItemCount()
}
