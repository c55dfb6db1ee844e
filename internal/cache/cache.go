// internal/cache/cache.go
package cache

import (
	"container/list"
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/law-makers/leadharvest/pkg/models"
	"github.com/rs/zerolog/log"
)

// Cache stores rendered pages so that a website shared by several listings
// is fetched once per TTL.
//
// Implementations:
//   - MemoryCache: in-process LRU bounded by bytes
//   - RedisCache: shared between processes, bounded by TTL only
type Cache interface {
	// Get returns the cached page for key, if present and not expired.
	Get(key string) (*models.PageData, bool)

	// Set stores a page under key for ttl. Existing entries are replaced.
	Set(key string, page *models.PageData, ttl time.Duration) error

	// Delete removes key. Missing keys are not an error.
	Delete(key string) error

	// Clear removes every entry.
	Clear() error

	// Close releases background resources.
	Close()
}

// PageKey canonicalizes a page URL for use as a cache key
func PageKey(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

type cacheEntry struct {
	page      *models.PageData
	expiresAt time.Time
	key       string
	size      int64
}

// MemoryCache implements Cache with LRU eviction
type MemoryCache struct {
	store   map[string]*list.Element
	lruList *list.List
	mu      sync.Mutex
	maxSize int64
	size    int64
	ctx     context.Context
	cancel  context.CancelFunc
	hits    uint64
	misses  uint64
}

// NewMemoryCache creates an LRU cache bounded to maxSizeBytes
func NewMemoryCache(maxSizeBytes int64) *MemoryCache {
	if maxSizeBytes <= 0 {
		maxSizeBytes = 64 * 1024 * 1024
	}

	ctx, cancel := context.WithCancel(context.Background())
	mc := &MemoryCache{
		store:   make(map[string]*list.Element),
		lruList: list.New(),
		maxSize: maxSizeBytes,
		ctx:     ctx,
		cancel:  cancel,
	}

	go mc.cleanupExpired(time.Minute)
	return mc
}

func pageSize(p *models.PageData) int64 {
	// struct and header overhead is roughly 1KB
	return int64(len(p.HTML)+len(p.Title)+len(p.URL)) + 1024
}

// Get retrieves a cached page and marks it most recently used
func (mc *MemoryCache) Get(key string) (*models.PageData, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	element, ok := mc.store[key]
	if !ok {
		mc.misses++
		return nil, false
	}

	entry := element.Value.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		mc.misses++
		mc.removeElement(element)
		return nil, false
	}

	mc.lruList.MoveToFront(element)
	mc.hits++
	log.Debug().Str("key", key).Msg("Cache hit")
	return entry.page, true
}

// Set stores a page, evicting least recently used entries to stay in budget
func (mc *MemoryCache) Set(key string, page *models.PageData, ttl time.Duration) error {
	if page == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if element, ok := mc.store[key]; ok {
		mc.removeElement(element)
	}

	entry := &cacheEntry{
		page:      page,
		expiresAt: time.Now().Add(ttl),
		key:       key,
		size:      pageSize(page),
	}
	if entry.size > mc.maxSize {
		log.Debug().Str("key", key).Int64("size_bytes", entry.size).Msg("Page larger than cache, not stored")
		return nil
	}

	for mc.size+entry.size > mc.maxSize && mc.lruList.Len() > 0 {
		mc.removeElement(mc.lruList.Back())
	}

	mc.store[key] = mc.lruList.PushFront(entry)
	mc.size += entry.size
	return nil
}

// Delete removes a cached page
func (mc *MemoryCache) Delete(key string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if element, ok := mc.store[key]; ok {
		mc.removeElement(element)
	}
	return nil
}

// Clear removes all cached pages
func (mc *MemoryCache) Clear() error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.store = make(map[string]*list.Element)
	mc.lruList = list.New()
	mc.size = 0
	return nil
}

// Close stops the background cleanup goroutine
func (mc *MemoryCache) Close() {
	mc.cancel()
}

// Len returns the number of cached entries
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.lruList.Len()
}

// Stats returns hit/miss counters and utilization
func (mc *MemoryCache) Stats() map[string]interface{} {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	hitRate := 0.0
	if total := mc.hits + mc.misses; total > 0 {
		hitRate = float64(mc.hits) / float64(total) * 100
	}

	return map[string]interface{}{
		"entries":    mc.lruList.Len(),
		"size_bytes": mc.size,
		"max_size":   mc.maxSize,
		"hits":       mc.hits,
		"misses":     mc.misses,
		"hit_rate":   hitRate,
	}
}

// removeElement must be called with the lock held
func (mc *MemoryCache) removeElement(element *list.Element) {
	if element == nil {
		return
	}
	entry := element.Value.(*cacheEntry)
	mc.lruList.Remove(element)
	delete(mc.store, entry.key)
	mc.size -= entry.size
}

func (mc *MemoryCache) cleanupExpired(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mc.mu.Lock()
			now := time.Now()
			var next *list.Element
			for element := mc.lruList.Front(); element != nil; element = next {
				next = element.Next()
				if now.After(element.Value.(*cacheEntry).expiresAt) {
					mc.removeElement(element)
				}
			}
			mc.mu.Unlock()
		case <-mc.ctx.Done():
			return
		}
	}
}
