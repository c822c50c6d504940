// Package tilecache implements the per-Manager Tile Cache: an LRU of
// recently fetched remote tiles keyed by (tile-id, generation). It
// generalizes the teacher's cog.TileCache (internal/cog/tilecache.go,
// pspoerri-geotiff2pmtiles) — a mutex-guarded map + append-only eviction
// order, keyed by identity alone because source COG tiles never change —
// to a cache whose key includes generation and that must actively detect
// and evict a stale generation on a miss, since GP tiles are rewritten in
// place by the Cholesky DAG.
package tilecache

import (
	"sync"

	"github.com/google/uuid"

	"github.com/pspoerri/gprat/internal/tilebuf"
	"github.com/pspoerri/gprat/internal/telemetry"
)

// DefaultCapacity is the default number of entries retained per Manager
// (spec.md §4.3). It is not derived from any measurement of typical
// working-set size; callers running with tight memory budgets should pass
// an explicit capacity instead (see internal/config for a RAM-derived
// sizing helper).
const DefaultCapacity = 16

type key struct {
	gid uuid.UUID
	gen uint64
}

type entry struct {
	buf tilebuf.Buffer
}

// Cache is an LRU keyed by (gid, generation). All operations are made
// atomic by a single internal lock; the backing map and slice need not be
// thread-safe on their own, matching the teacher's cog.TileCache.
type Cache struct {
	mu       sync.Mutex
	entries  map[key]*entry
	order    []key
	capacity int
}

// New creates a tile cache with the given maximum number of entries. A
// non-positive capacity falls back to DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		entries:  make(map[key]*entry, capacity),
		order:    make([]key, 0, capacity),
		capacity: capacity,
	}
}

func (c *Cache) lock()   { c.mu.Lock() }
func (c *Cache) unlock() { c.mu.Unlock() }

// Result is the outcome of TryGet.
type Result struct {
	Hit bool
	Buf tilebuf.Buffer
}

// TryGet returns a hit when an entry for gid exists with exactly the
// requested generation. Map iteration is unordered and more than one
// generation of the same tile can coexist (a remote fetch at gen g plus a
// later speculative SetTile insert at gen g+1, say), so every entry for gid
// is scanned before a miss is declared — stopping at the first match found,
// regardless of visit order, would risk evicting the exact-match entry and
// reporting a false miss. Strictly older generations found along the way are
// evicted as stale; the exact-match entry, if any, is never evicted, per
// spec.md §4.3.
func (c *Cache) TryGet(gid uuid.UUID, gen uint64) Result {
	c.lock()
	defer c.unlock()

	var hit *entry
	var stale []key
	for k, e := range c.entries {
		if k.gid != gid {
			continue
		}
		if k.gen == gen {
			hit = e
			continue
		}
		if k.gen < gen {
			stale = append(stale, k)
		}
	}
	for _, k := range stale {
		c.removeLocked(k)
		telemetry.Counters.CacheEvictions.Add(1)
	}
	if hit != nil {
		c.touch(key{gid, gen})
		telemetry.Counters.CacheHits.Add(1)
		return Result{Hit: true, Buf: hit.buf}
	}
	telemetry.Counters.CacheMisses.Add(1)
	return Result{}
}

// Insert admits (gid, gen, buf), evicting the least-recently-used entry if
// the cache is at capacity.
func (c *Cache) Insert(gid uuid.UUID, gen uint64, buf tilebuf.Buffer) {
	c.lock()
	defer c.unlock()

	k := key{gid, gen}
	if _, ok := c.entries[k]; ok {
		return
	}
	for len(c.entries) >= c.capacity && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		if _, ok := c.entries[oldest]; ok {
			delete(c.entries, oldest)
			telemetry.Counters.CacheEvictions.Add(1)
		}
	}
	c.entries[k] = &entry{buf: buf}
	c.order = append(c.order, k)
	telemetry.Counters.CacheInsertions.Add(1)
}

// Clear drops all entries.
func (c *Cache) Clear() {
	c.lock()
	defer c.unlock()
	c.entries = make(map[key]*entry, c.capacity)
	c.order = c.order[:0]
}

// touch moves k to the back of the LRU order (most-recently-used). Must be
// called with the lock held.
func (c *Cache) touch(k key) {
	for i, kk := range c.order {
		if kk == k {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append(c.order, k)
}

// removeLocked deletes k from both the map and the order slice. Must be
// called with the lock held.
func (c *Cache) removeLocked(k key) {
	delete(c.entries, k)
	for i, kk := range c.order {
		if kk == k {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
