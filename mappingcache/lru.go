package mappingcache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// memoryLayer is the in-memory LRU keyed by Key, capped at Capacity and
// emptied wholesale by Cache.Clear. A Resolver.SetMode call does not clear
// it: nothing in this module registers Cache.Clear as the offline
// Resolver's OnModeChange callback.
type memoryLayer struct {
	mu    sync.RWMutex
	cache *lru.Cache[Key, Entry]
}

func newMemoryLayer() *memoryLayer {
	cache, err := lru.New[Key, Entry](Capacity)
	if err != nil {
		// Capacity is a positive compile-time constant; lru.New only
		// errors on size <= 0.
		panic(err)
	}
	return &memoryLayer{cache: cache}
}

func (m *memoryLayer) get(key Key) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cache.Get(key)
}

func (m *memoryLayer) put(key Key, entry Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Add(key, entry)
}

func (m *memoryLayer) remove(key Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Remove(key)
}

func (m *memoryLayer) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Purge()
}
