// internal/cache/cache.go
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultMaxSize bounds a MemoryCache created with a non-positive size
const DefaultMaxSize = 8 * 1024 * 1024

// Cache stores encoded API responses.
//
// Implementations must be safe for concurrent use. Common implementations:
//   - MemoryCache: in-memory cache with LRU eviction
type Cache interface {
	// Get returns the payload stored under key and whether it was found
	// and still fresh.
	Get(key string) ([]byte, bool)

	// Set stores payload under key for ttl, replacing any previous value.
	// Implementations may evict other entries to make room.
	Set(key string, payload []byte, ttl time.Duration) error

	// Delete removes key. Missing keys are not an error.
	Delete(key string) error

	// Clear removes every entry.
	Clear() error

	// Close stops background work.
	Close()
}

// Stats is a point-in-time view of cache usage
type Stats struct {
	Entries   int     `json:"entries"`
	SizeBytes int64   `json:"sizeBytes"`
	MaxSize   int64   `json:"maxSize"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	HitRate   float64 `json:"hitRate"`
}

type cacheEntry struct {
	key       string
	payload   []byte
	expiresAt time.Time
}

func (e *cacheEntry) size() int64 {
	return int64(len(e.key) + len(e.payload))
}

// MemoryCache implements Cache with LRU eviction bounded by payload bytes
type MemoryCache struct {
	store   map[string]*list.Element
	lruList *list.List
	mu      sync.Mutex
	maxSize int64
	size    int64
	now     func() time.Time
	cancel  context.CancelFunc
	done    chan struct{}
	hits    uint64
	misses  uint64
}

// NewMemoryCache creates a MemoryCache and starts its expiry sweep
func NewMemoryCache(maxSizeBytes int64) *MemoryCache {
	return newMemoryCache(maxSizeBytes, time.Now, time.Minute)
}

func newMemoryCache(maxSizeBytes int64, now func() time.Time, sweep time.Duration) *MemoryCache {
	if maxSizeBytes <= 0 {
		maxSizeBytes = DefaultMaxSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	mc := &MemoryCache{
		store:   make(map[string]*list.Element),
		lruList: list.New(),
		maxSize: maxSizeBytes,
		now:     now,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go mc.cleanupExpired(ctx, sweep)

	return mc
}

// Get retrieves a payload and marks it most recently used
func (mc *MemoryCache) Get(key string) ([]byte, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	element, exists := mc.store[key]
	if !exists {
		mc.misses++
		return nil, false
	}

	entry := element.Value.(*cacheEntry)
	if !mc.now().Before(entry.expiresAt) {
		mc.misses++
		mc.remove(element)
		return nil, false
	}

	mc.lruList.MoveToFront(element)
	mc.hits++

	log.Debug().Str("key", key).Msg("Cache hit")
	return entry.payload, true
}

// Set stores payload for ttl. A non-positive ttl is a no-op, as is a payload
// larger than the whole cache.
func (mc *MemoryCache) Set(key string, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	entry := &cacheEntry{key: key, payload: payload, expiresAt: mc.now().Add(ttl)}
	if entry.size() > mc.maxSize {
		log.Debug().Str("key", key).Int64("size_bytes", entry.size()).Msg("Payload exceeds cache size, not cached")
		return nil
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if element, exists := mc.store[key]; exists {
		mc.remove(element)
	}

	for mc.size+entry.size() > mc.maxSize && mc.lruList.Len() > 0 {
		mc.evictLRU()
	}

	mc.store[key] = mc.lruList.PushFront(entry)
	mc.size += entry.size()

	log.Debug().
		Str("key", key).
		Dur("ttl", ttl).
		Int64("size_bytes", entry.size()).
		Msg("Cached response")

	return nil
}

// Delete removes a cached payload
func (mc *MemoryCache) Delete(key string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if element, exists := mc.store[key]; exists {
		mc.remove(element)
	}
	return nil
}

// Clear removes all entries and resets counters
func (mc *MemoryCache) Clear() error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.store = make(map[string]*list.Element)
	mc.lruList = list.New()
	mc.size = 0
	mc.hits = 0
	mc.misses = 0

	return nil
}

// Close stops the background cleanup goroutine
func (mc *MemoryCache) Close() {
	mc.cancel()
	<-mc.done
}

// remove must be called with the lock held
func (mc *MemoryCache) remove(element *list.Element) {
	entry := element.Value.(*cacheEntry)
	mc.lruList.Remove(element)
	delete(mc.store, entry.key)
	mc.size -= entry.size()
}

// evictLRU must be called with the lock held
func (mc *MemoryCache) evictLRU() {
	element := mc.lruList.Back()
	if element == nil {
		return
	}
	log.Debug().Str("key", element.Value.(*cacheEntry).key).Msg("Evicted from cache (LRU)")
	mc.remove(element)
}

// Purge drops every expired entry and returns how many were removed
func (mc *MemoryCache) Purge() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := mc.now()
	removed := 0

	var next *list.Element
	for element := mc.lruList.Front(); element != nil; element = next {
		next = element.Next()
		if !now.Before(element.Value.(*cacheEntry).expiresAt) {
			mc.remove(element)
			removed++
		}
	}
	return removed
}

func (mc *MemoryCache) cleanupExpired(ctx context.Context, interval time.Duration) {
	defer close(mc.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := mc.Purge(); n > 0 {
				log.Debug().Int("removed", n).Msg("Expired cache entries purged")
			}
		case <-ctx.Done():
			return
		}
	}
}

// Stats returns cache statistics including hit rate
func (mc *MemoryCache) Stats() Stats {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	s := Stats{
		Entries:   mc.lruList.Len(),
		SizeBytes: mc.size,
		MaxSize:   mc.maxSize,
		Hits:      mc.hits,
		Misses:    mc.misses,
	}
	if total := mc.hits + mc.misses; total > 0 {
		s.HitRate = float64(mc.hits) / float64(total) * 100
	}
	return s
}
