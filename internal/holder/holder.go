// Package holder implements the Tile Holder: the authoritative, single-home
// custodian of one tile's buffer. It generalizes the locking discipline of
// the teacher's DiskTileStore (internal/tile/diskstore.go,
// pspoerri-geotiff2pmtiles) — a mutex-guarded map whose lock is always
// released before any I/O — down to a single tile guarded by a
// sync.RWMutex, matching spec.md §4.2's "readers-writer lock... never
// holds the lock across network I/O".
package holder

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/pspoerri/gprat/internal/tilebuf"
	"github.com/pspoerri/gprat/internal/telemetry"
)

// Holder exclusively owns one tile's buffer for the dataset's lifetime. Its
// home locality never changes after construction.
type Holder struct {
	gid      uuid.UUID
	home     int
	mu       sync.RWMutex
	buf      tilebuf.Buffer
	gen      atomic.Uint64
}

// New creates a Holder pinned to homeLocality, seeded with initial. Its
// generation starts at 0.
func New(homeLocality int, initial tilebuf.Buffer) *Holder {
	telemetry.Counters.HolderAllocs.Add(1)
	return &Holder{
		gid:  uuid.New(),
		home: homeLocality,
		buf:  initial,
	}
}

// GID returns the Holder's globally unique tile id.
func (h *Holder) GID() uuid.UUID { return h.gid }

// Home returns the Holder's fixed home locality index.
func (h *Holder) Home() int { return h.home }

// Generation returns the current generation without taking the buffer.
func (h *Holder) Generation() uint64 { return h.gen.Load() }

// Get returns a shared-storage snapshot of the current buffer together
// with its generation. Safe under concurrent readers; takes the lock in
// shared mode only for the duration of the copy-out, never across I/O.
func (h *Holder) Get() (tilebuf.Buffer, uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.buf, h.gen.Load()
}

// Set replaces the current buffer and bumps the generation by one,
// returning the new generation. Serialized against concurrent readers and
// other writers; the caller is responsible for ensuring at most one writer
// targets this Holder at a given logical moment (spec.md §4.4's
// write-serialization protocol — the DAG, not this lock, prevents
// concurrent writers; this lock only protects Set against in-flight Get).
func (h *Holder) Set(buf tilebuf.Buffer) uint64 {
	h.mu.Lock()
	h.buf = buf
	next := h.gen.Add(1)
	h.mu.Unlock()
	return next
}

// Close releases the Holder's buffer back to its tilebuf pool. Call once
// the dataset that owns this Holder is dropped.
func (h *Holder) Close() {
	h.mu.Lock()
	buf := h.buf
	h.buf = tilebuf.Buffer{}
	h.mu.Unlock()
	if !buf.IsZero() {
		tilebuf.Release(buf)
	}
	telemetry.Counters.HolderDeallocs.Add(1)
}
