// Package cache implements the daemon's multi-tier in-memory cache:
// bounded, TTL-expiring LRUs for search and info lookups, a negative
// cache for misses, and singleton slots for the rarely-changing status
// and explicit-package snapshots.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/arc-language/omg/internal/model"
)

// searchResult is stored by reference so a cache hit costs a pointer
// copy rather than a slice clone.
type searchResult struct {
	packages []model.Package
}

// Cache holds every cache tier the daemon consults on the request path.
type Cache struct {
	search       *expirable.LRU[string, *searchResult]
	debianSearch *expirable.LRU[string, *searchResult]
	info         *expirable.LRU[string, *model.DetailedPackageInfo]
	infoMiss     *expirable.LRU[string, struct{}]

	mu             sync.Mutex
	status         *model.StatusResult
	statusAt       time.Time
	statusTTL      time.Duration
	explicit       []model.Package
	explicitAt     time.Time
	explicitCount      int
	explicitCountAt    time.Time
	explicitCountValid bool

	countersMu   sync.Mutex
	hits, misses int64
}

func (c *Cache) addHit()  { c.countersMu.Lock(); c.hits++; c.countersMu.Unlock() }
func (c *Cache) addMiss() { c.countersMu.Lock(); c.misses++; c.countersMu.Unlock() }

// New constructs a Cache. maxSize bounds every LRU tier; searchTTL governs
// search/debianSearch/info/infoMiss entries; statusTTL governs the status
// and explicit singleton slots.
func New(maxSize int, searchTTL, statusTTL time.Duration) *Cache {
	return &Cache{
		search:       expirable.NewLRU[string, *searchResult](maxSize, nil, searchTTL),
		debianSearch: expirable.NewLRU[string, *searchResult](maxSize, nil, searchTTL),
		info:         expirable.NewLRU[string, *model.DetailedPackageInfo](maxSize, nil, searchTTL),
		infoMiss:     expirable.NewLRU[string, struct{}](maxSize, nil, searchTTL),
		statusTTL:    statusTTL,
	}
}

func searchKey(query string, limit int) string {
	// limit is folded into the key because two callers requesting
	// different limits over the same query are different cache entries.
	return fmt.Sprintf("%s\x00%d", query, limit)
}

// GetSearch returns a cached Arch/uniform search result for (query,
// limit), if present and unexpired.
func (c *Cache) GetSearch(query string, limit int) ([]model.Package, bool) {
	v, ok := c.search.Get(searchKey(query, limit))
	if !ok {
		c.addMiss()
		return nil, false
	}
	c.addHit()
	return v.packages, true
}

// PutSearch caches a search result for (query, limit).
func (c *Cache) PutSearch(query string, limit int, results []model.Package) {
	c.search.Add(searchKey(query, limit), &searchResult{packages: results})
}

// GetDebianSearch is GetSearch's counterpart for the Debian-specific
// search variant, kept as a distinct tier since the two ecosystems can
// disagree on ranking for the same query string.
func (c *Cache) GetDebianSearch(query string, limit int) ([]model.Package, bool) {
	v, ok := c.debianSearch.Get(searchKey(query, limit))
	if !ok {
		c.addMiss()
		return nil, false
	}
	c.addHit()
	return v.packages, true
}

// PutDebianSearch caches a Debian search result.
func (c *Cache) PutDebianSearch(query string, limit int, results []model.Package) {
	c.debianSearch.Add(searchKey(query, limit), &searchResult{packages: results})
}

// GetInfo returns a cached DetailedPackageInfo for name.
func (c *Cache) GetInfo(name string) (*model.DetailedPackageInfo, bool) {
	v, ok := c.info.Get(name)
	if !ok {
		c.addMiss()
		return nil, false
	}
	c.addHit()
	return v, true
}

// PutInfo caches info for name and clears any matching negative-cache
// entry: a positive result always supersedes
// a stale negative one.
func (c *Cache) PutInfo(name string, info model.DetailedPackageInfo) {
	c.info.Add(name, &info)
	c.infoMiss.Remove(name)
}

// IsInfoMiss reports whether name was recently looked up and found not
// to exist, so repeated lookups for a nonexistent package skip the full
// index scan.
func (c *Cache) IsInfoMiss(name string) bool {
	_, ok := c.infoMiss.Get(name)
	return ok
}

// PutInfoMiss records that name does not exist, unless a positive entry
// for it is already cached (a positive result always wins).
func (c *Cache) PutInfoMiss(name string) {
	if _, ok := c.info.Get(name); ok {
		return
	}
	c.infoMiss.Add(name, struct{}{})
}

// GetStatus returns the cached StatusResult if present and younger than
// the configured statusTTL.
func (c *Cache) GetStatus() (model.StatusResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == nil || time.Since(c.statusAt) > c.statusTTL {
		return model.StatusResult{}, false
	}
	return *c.status, true
}

// PutStatus caches the current StatusResult snapshot.
func (c *Cache) PutStatus(s model.StatusResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = &s
	c.statusAt = time.Now()
}

// GetExplicit returns the cached explicit-package list if present and
// younger than statusTTL.
func (c *Cache) GetExplicit() ([]model.Package, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.explicit == nil || time.Since(c.explicitAt) > c.statusTTL {
		return nil, false
	}
	return c.explicit, true
}

// PutExplicit caches the explicit-package list.
func (c *Cache) PutExplicit(pkgs []model.Package) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.explicit = pkgs
	c.explicitAt = time.Now()
}

// GetExplicitCount returns the cached explicit-package count.
func (c *Cache) GetExplicitCount() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.explicitCountValid || time.Since(c.explicitCountAt) > c.statusTTL {
		return 0, false
	}
	return c.explicitCount, true
}

// PutExplicitCount caches the explicit-package count.
func (c *Cache) PutExplicitCount(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.explicitCount = n
	c.explicitCountAt = time.Now()
	c.explicitCountValid = true
}

// Stats reports cumulative hit/miss counts across every tier, exposed by
// the CacheStats RPC.
type Stats struct {
	Hits, Misses int64
}

// Stats returns the cache's cumulative hit/miss counters.
func (c *Cache) Stats() Stats {
	c.countersMu.Lock()
	defer c.countersMu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses}
}

// Clear empties every tier, for the CacheClear RPC.
func (c *Cache) Clear() {
	c.search.Purge()
	c.debianSearch.Purge()
	c.info.Purge()
	c.infoMiss.Purge()

	c.mu.Lock()
	c.status = nil
	c.explicit = nil
	c.explicitCountValid = false
	c.mu.Unlock()
}

// InvalidateOnMtime clears every tier when current (a watched path's
// observed mtime) is newer than lastSeen, returning true if an
// invalidation occurred.
func (c *Cache) InvalidateOnMtime(lastSeen, current time.Time) bool {
	if !current.After(lastSeen) {
		return false
	}
	c.Clear()
	return true
}
