package mappingcache

import (
	"sync/atomic"

	"github.com/nerveband/amp-resolver/logging"
)

// Cache is the public facade the Dispatcher consults: an always-on
// in-memory LRU in front of a best-effort persistent store. A persistent
// store I/O failure degrades the Cache to in-memory-only for the rest of
// the process; it never blocks resolution (spec.md §4.E "Failure").
type Cache struct {
	memory    *memoryLayer
	persisted *persistentStore // nil once degraded, or if never opened
	logger    logging.Logger
	degraded  atomic.Bool
}

// Open constructs a Cache backed by the in-memory LRU and, if dbPath is
// non-empty, a SQLite persistent store. A failure to open the persistent
// store starts the Cache already degraded, logging a warning rather than
// failing construction.
func Open(dbPath string, logger logging.Logger) *Cache {
	if logger == nil {
		logger = logging.Nop
	}
	c := &Cache{memory: newMemoryLayer(), logger: logger}

	if dbPath == "" {
		c.degraded.Store(true)
		return c
	}

	store, err := openPersistentStore(dbPath, logger)
	if err != nil {
		logger.Printf("mapping cache: persistent store unavailable, degrading to in-memory only: %v", err)
		c.degraded.Store(true)
		return c
	}
	c.persisted = store
	return c
}

// Close releases the persistent store's connection, if any.
func (c *Cache) Close() error {
	if c.persisted == nil {
		return nil
	}
	return c.persisted.close()
}

// Degraded reports whether the persistent layer has been abandoned for
// this process.
func (c *Cache) Degraded() bool {
	return c.degraded.Load()
}

// Lookup checks the in-memory LRU first, falling through to the persistent
// store on a miss; a persistent hit is promoted into the LRU.
func (c *Cache) Lookup(key Key, trackHash string) (Entry, bool) {
	if entry, ok := c.memory.get(key); ok {
		c.touchPersistent(trackHash)
		return entry, true
	}

	if c.degraded.Load() || c.persisted == nil {
		return Entry{}, false
	}

	entry, found, err := c.persisted.lookup(trackHash)
	if err != nil {
		c.degrade(err)
		return Entry{}, false
	}
	if !found {
		return Entry{}, false
	}

	c.memory.put(key, entry)
	c.touchPersistent(trackHash)
	return entry, true
}

func (c *Cache) touchPersistent(trackHash string) {
	if c.degraded.Load() || c.persisted == nil {
		return
	}
	if err := c.persisted.touch(trackHash); err != nil {
		c.degrade(err)
	}
}

// Store writes entry into the in-memory LRU unconditionally (the LRU has
// no persistence-eligibility restriction) and, if confidence qualifies,
// into the persistent store too.
func (c *Cache) Store(key Key, trackHash string, entry Entry) {
	c.store(key, trackHash, entry, false)
}

// StoreForced behaves like Store but additionally persists ConfidenceLow
// entries, for the Dispatcher's persist_low_matches policy.
func (c *Cache) StoreForced(key Key, trackHash string, entry Entry) {
	c.store(key, trackHash, entry, true)
}

func (c *Cache) store(key Key, trackHash string, entry Entry, allowLow bool) {
	c.memory.put(key, entry)

	if c.degraded.Load() || c.persisted == nil {
		return
	}
	if err := c.persisted.store(trackHash, entry, allowLow); err != nil && err != ErrNotPersistable {
		c.degrade(err)
	}
}

// Delete removes the mapping from both layers.
func (c *Cache) Delete(key Key, trackHash string) {
	c.memory.remove(key)

	if c.degraded.Load() || c.persisted == nil {
		return
	}
	if err := c.persisted.delete(trackHash); err != nil {
		c.degrade(err)
	}
}

// Clear purges the in-memory LRU and leaves the persistent store as it is.
// It runs only when called explicitly; a mode change does not call it.
func (c *Cache) Clear() {
	c.memory.clear()
}

func (c *Cache) degrade(err error) {
	if c.degraded.CompareAndSwap(false, true) {
		c.logger.Printf("mapping cache: persistent store failed, degrading to in-memory only: %v", err)
	}
}
