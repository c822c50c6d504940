// Package tilebuf implements the Tile Buffer: a shallow-copy owner of a
// contiguous row-major float64 tile. Storage is not reference-counted:
// copies share one slice, and Release returns it to the pool whether or not
// other copies still refer to it. It
// generalizes the teacher's image.RGBA pooling in
// internal/tile/rgbapool.go (pspoerri-geotiff2pmtiles) from fixed-size
// pixel buffers recycled by a sync.Pool keyed on (width, height) to
// fixed-size float64 matrix tiles recycled the same way.
package tilebuf

import (
	"sync"

	"github.com/pspoerri/gprat/internal/telemetry"
)

// poolKey identifies a buffer pool by tile dimensions, mirroring the
// teacher's rgbaPoolKey.
type poolKey struct{ rows, cols int }

// pools maps (rows, cols) -> *sync.Pool of *[]float64, the same
// one-pool-per-distinct-size idiom the teacher uses for *image.RGBA: in
// practice a run has a single tile size, so the map stays tiny.
var pools sync.Map

// Buffer is a shallow-copy-semantics handle to a tile's storage: copying a
// Buffer value shares the underlying slice. Kernels that mutate in place
// must first call Clone to obtain storage they exclusively own.
type Buffer struct {
	rows, cols int
	data       []float64
}

// New allocates a zeroed buffer of rows*cols addressable elements,
// recycling storage from the size-keyed pool when available.
func New(rows, cols int) Buffer {
	key := poolKey{rows, cols}
	if p, ok := pools.Load(key); ok {
		if v := p.(*sync.Pool).Get(); v != nil {
			data := v.(*[]float64)
			clearFloat64(*data)
			telemetry.Counters.RecordBufferAlloc(int64(rows * cols * 8))
			return Buffer{rows: rows, cols: cols, data: *data}
		}
	}
	telemetry.Counters.RecordBufferAlloc(int64(rows * cols * 8))
	return Buffer{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

// Zeros is an alias for New, matching the kernel interface's
// gen_tile_..._zeros generator naming (§6).
func Zeros(rows, cols int) Buffer { return New(rows, cols) }

// Identity returns the n*n identity matrix as a tile buffer, matching the
// kernel interface's gen_tile_..._identity generator.
func Identity(n int) Buffer {
	b := New(n, n)
	for i := 0; i < n; i++ {
		b.data[i*n+i] = 1
	}
	return b
}

// Release returns the buffer's storage to its size-keyed pool. Callers
// must not use the Buffer (or any shallow copy sharing its storage) after
// calling Release.
func Release(b Buffer) {
	if b.data == nil {
		return
	}
	telemetry.Counters.RecordBufferDealloc(int64(b.rows * b.cols * 8))
	key := poolKey{b.rows, b.cols}
	p, _ := pools.LoadOrStore(key, &sync.Pool{})
	data := b.data
	p.(*sync.Pool).Put(&data)
}

// Rows returns the number of rows.
func (b Buffer) Rows() int { return b.rows }

// Cols returns the number of columns.
func (b Buffer) Cols() int { return b.cols }

// View returns an immutable element span in row-major order. Callers must
// not write through the returned slice; use Clone first.
func (b Buffer) View() []float64 { return b.data }

// At returns the element at (row, col).
func (b Buffer) At(row, col int) float64 { return b.data[row*b.cols+col] }

// Clone returns a Buffer backed by freshly allocated, fully independent
// storage, safe for a kernel to mutate in place.
func (b Buffer) Clone() Buffer {
	out := New(b.rows, b.cols)
	copy(out.data, b.data)
	return out
}

// ViewMut returns a mutable element span. Callers must hold exclusive
// write access to this Buffer's storage (i.e. it must be a Clone, or a
// buffer otherwise known to have no other sharers) before calling this.
func (b Buffer) ViewMut() []float64 { return b.data }

// IsZero reports whether the buffer carries no storage (the zero value).
func (b Buffer) IsZero() bool { return b.data == nil }

func clearFloat64(s []float64) {
	for i := range s {
		s[i] = 0
	}
}
