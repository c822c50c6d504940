// Package telemetry holds the process-wide, atomics-only counters the core
// exposes for tile-buffer lifecycle, Holder lifecycle, tile-cache behavior
// and remote-fetch timing. Initialization is idempotent; Reset is safe to
// call between test runs or benchmark iterations.
package telemetry

import (
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Counters is the single process-wide telemetry instance. Every package in
// this module reports through it rather than keeping private counters, the
// way the teacher aggregates per-zoom-level stats into one Stats value in
// internal/tile/generator.go.
var Counters counters

type counters struct {
	BufferAllocs   atomic.Int64
	BufferDeallocs atomic.Int64
	BufferBytes    atomic.Int64

	HolderAllocs   atomic.Int64
	HolderDeallocs atomic.Int64

	CacheHits       atomic.Int64
	CacheMisses     atomic.Int64
	CacheInsertions atomic.Int64
	CacheEvictions  atomic.Int64

	RemoteFetchCount   atomic.Int64
	RemoteFetchNanos   atomic.Int64
}

// RecordBufferAlloc records the allocation of a tile buffer of the given
// byte size.
func (c *counters) RecordBufferAlloc(bytes int64) {
	c.BufferAllocs.Add(1)
	c.BufferBytes.Add(bytes)
}

// RecordBufferDealloc records the release of a tile buffer of the given
// byte size.
func (c *counters) RecordBufferDealloc(bytes int64) {
	c.BufferDeallocs.Add(1)
	c.BufferBytes.Add(-bytes)
}

// RecordRemoteFetch records the wall-clock duration of one remote fetch, as
// measured from task submission to buffer delivery (not wire time — the
// resolving task may queue behind others on the target locality before the
// transport call itself begins).
func (c *counters) RecordRemoteFetch(d time.Duration) {
	c.RemoteFetchCount.Add(1)
	c.RemoteFetchNanos.Add(d.Nanoseconds())
}

// Reset zeroes every counter. Best-effort: concurrent increments racing a
// Reset may be lost, which is acceptable for telemetry that must never fail
// a user operation.
func (c *counters) Reset() {
	c.BufferAllocs.Store(0)
	c.BufferDeallocs.Store(0)
	c.BufferBytes.Store(0)
	c.HolderAllocs.Store(0)
	c.HolderDeallocs.Store(0)
	c.CacheHits.Store(0)
	c.CacheMisses.Store(0)
	c.CacheInsertions.Store(0)
	c.CacheEvictions.Store(0)
	c.RemoteFetchCount.Store(0)
	c.RemoteFetchNanos.Store(0)
}

// Snapshot is a point-in-time copy suitable for logging or a CLI summary.
type Snapshot struct {
	BufferAllocs, BufferDeallocs, BufferBytes int64
	HolderAllocs, HolderDeallocs              int64
	CacheHits, CacheMisses                    int64
	CacheInsertions, CacheEvictions           int64
	RemoteFetchCount                          int64
	RemoteFetchNanos                          int64
}

// Snapshot reads every counter into a Snapshot.
func (c *counters) Snapshot() Snapshot {
	return Snapshot{
		BufferAllocs:     c.BufferAllocs.Load(),
		BufferDeallocs:   c.BufferDeallocs.Load(),
		BufferBytes:      c.BufferBytes.Load(),
		HolderAllocs:     c.HolderAllocs.Load(),
		HolderDeallocs:   c.HolderDeallocs.Load(),
		CacheHits:        c.CacheHits.Load(),
		CacheMisses:      c.CacheMisses.Load(),
		CacheInsertions:  c.CacheInsertions.Load(),
		CacheEvictions:   c.CacheEvictions.Load(),
		RemoteFetchCount: c.RemoteFetchCount.Load(),
		RemoteFetchNanos: c.RemoteFetchNanos.Load(),
	}
}

// Log emits the snapshot as a single structured logrus entry. Telemetry
// logging is best-effort and must never fail a user operation, so this
// never returns an error.
func (s Snapshot) Log(logger *logrus.Logger) {
	logger.WithFields(logrus.Fields{
		"buffer_allocs":      s.BufferAllocs,
		"buffer_deallocs":    s.BufferDeallocs,
		"buffer_bytes":       s.BufferBytes,
		"holder_allocs":      s.HolderAllocs,
		"holder_deallocs":    s.HolderDeallocs,
		"cache_hits":         s.CacheHits,
		"cache_misses":       s.CacheMisses,
		"cache_insertions":   s.CacheInsertions,
		"cache_evictions":    s.CacheEvictions,
		"remote_fetch_count": s.RemoteFetchCount,
		"remote_fetch_nanos": s.RemoteFetchNanos,
	}).Info("telemetry snapshot")
}
