// Package transport implements the TransportCoordinator: read-with-fallback
// and write-to-all across a list of clone URLs, plus the preference cache
// that favors previously-successful URLs.
package transport

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// PreferenceTTL is the lifetime of a cached preferred-URL entry.
const PreferenceTTL = 1 * time.Hour

// preference is the per-CRA cached routing state.
type preference struct {
	preferredURL  string
	lastSuccessAt time.Time
	failedURLs    map[string]bool
}

// PreferenceCache is an in-process CRA -> preference map with a 1h TTL on
// the preferred-URL entry itself, backed by an expirable LRU so stale
// entries are reclaimed without an explicit cleanup pass.
type PreferenceCache struct {
	mu    sync.Mutex
	cache *lru.LRU[string, *preference]
}

// NewPreferenceCache builds a cache holding up to capacity CRAs' routing
// preferences.
func NewPreferenceCache(capacity int) *PreferenceCache {
	return &PreferenceCache{
		cache: lru.NewLRU[string, *preference](capacity, nil, PreferenceTTL),
	}
}

func (c *PreferenceCache) get(cra string) *preference {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.cache.Get(cra)
	if !ok {
		return &preference{failedURLs: map[string]bool{}}
	}
	return p
}

func (c *PreferenceCache) recordSuccess(cra, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.cache.Get(cra)
	if !ok {
		p = &preference{failedURLs: map[string]bool{}}
	}
	p.preferredURL = url
	p.lastSuccessAt = time.Now()
	delete(p.failedURLs, url)
	c.cache.Add(cra, p)
}

func (c *PreferenceCache) recordFailure(cra, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.cache.Get(cra)
	if !ok {
		p = &preference{failedURLs: map[string]bool{}}
	}
	if p.failedURLs == nil {
		p.failedURLs = map[string]bool{}
	}
	p.failedURLs[url] = true
	c.cache.Add(cra, p)
}

// reorder places the cached preferred URL first (if present and its last
// success is within PreferenceTTL), followed by URLs with no failure
// recorded, followed by previously-failed URLs last.
func (c *PreferenceCache) reorder(cra string, urls []string) []string {
	p := c.get(cra)

	var preferred []string
	var clean []string
	var failed []string
	seen := map[string]bool{}

	if p.preferredURL != "" && time.Since(p.lastSuccessAt) < PreferenceTTL {
		for _, u := range urls {
			if u == p.preferredURL {
				preferred = append(preferred, u)
				seen[u] = true
				break
			}
		}
	}
	for _, u := range urls {
		if seen[u] {
			continue
		}
		if p.failedURLs[u] {
			failed = append(failed, u)
		} else {
			clean = append(clean, u)
		}
		seen[u] = true
	}

	out := make([]string, 0, len(urls))
	out = append(out, preferred...)
	out = append(out, clean...)
	out = append(out, failed...)
	return out
}
