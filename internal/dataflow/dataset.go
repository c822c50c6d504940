package dataflow

import (
	"github.com/pspoerri/gprat/internal/holder"
	"github.com/pspoerri/gprat/internal/manager"
	"github.com/pspoerri/gprat/internal/scheduler"
	"github.com/pspoerri/gprat/internal/tilebuf"
)

// newTileHandle creates a fresh Holder pinned to home, registers it on
// home's Manager, and returns the generation-0 Handle callers pass through
// the DAG. This is the Tiled Dataset construction step of §3: a fixed
// count of handles, each backed by exactly one Holder, for the life of the
// dataset.
func newTileHandle(reg *manager.Registry, localities []int, home, index int, initial tilebuf.Buffer) (manager.Handle, error) {
	h := holder.New(home, initial)
	m, err := reg.Get(home)
	if err != nil {
		return manager.Handle{}, err
	}
	if err := m.RegisterHolder(h); err != nil {
		return manager.Handle{}, err
	}
	return manager.Handle{
		ManagerRefs: localities,
		GID:         h.GID(),
		Home:        home,
		Index:       index,
		Generation:  0,
	}, nil
}

// Matrix is an n x n grid of tile handles (the "Tiled Dataset" of §3
// specialized to a square block matrix). Only the lower triangle
// (row >= col) is meaningful for the Cholesky DAG; entries above the
// diagonal are left as the zero Handle.
type Matrix struct {
	N      int
	Handle [][]manager.Handle
}

// NewMatrix builds an n x n lower-triangular grid of tile handles, each
// tile's shape set by the buffer gen returns, homed per the scheduler's
// CovarianceTile placement (a tile
// matrix's natural placement: the same formula spec.md §6 assigns to
// covariance-tile generation, reused here for data placement since the
// engine has no separate "data placement" policy beyond the task
// placement functions it already carries). gen supplies each tile's
// initial contents.
func NewMatrix(sched *scheduler.Scheduler, reg *manager.Registry, n int, gen func(row, col int) tilebuf.Buffer) (*Matrix, error) {
	localities := sched.Localities()
	m := &Matrix{N: n, Handle: make([][]manager.Handle, n)}
	for row := 0; row < n; row++ {
		m.Handle[row] = make([]manager.Handle, n)
		for col := 0; col <= row; col++ {
			home := sched.On(scheduler.CovarianceTile, n, row, col)
			h, err := newTileHandle(reg, localities, home, row*n+col, gen(row, col))
			if err != nil {
				return nil, err
			}
			m.Handle[row][col] = h
		}
	}
	return m, nil
}

// Futures returns the matrix's handles wrapped as already-resolved
// futures, the entry point for an Engine-driven DAG.
func (m *Matrix) Futures() [][]*HandleFuture {
	out := make([][]*HandleFuture, m.N)
	for row := range out {
		out[row] = make([]*HandleFuture, m.N)
		for col := 0; col <= row; col++ {
			out[row][col] = Resolved(m.Handle[row][col])
		}
	}
	return out
}

// Vector is an ordered sequence of n tile handles, each a single tile-sized
// column vector (rows x 1), used for right-hand sides, alpha, predictive
// means, and posterior-variance diagonals.
type Vector struct {
	N      int
	Handle []manager.Handle
}

// NewVector builds an n-entry tiled vector, each tile homed per the
// scheduler's AlphaPrediction placement (spec.md §6's "alpha/prediction
// tile(i)" row — the natural placement for a per-tile vector entry).
func NewVector(sched *scheduler.Scheduler, reg *manager.Registry, n int, gen func(i int) tilebuf.Buffer) (*Vector, error) {
	localities := sched.Localities()
	v := &Vector{N: n, Handle: make([]manager.Handle, n)}
	for i := 0; i < n; i++ {
		home := sched.On(scheduler.AlphaPrediction, n, i)
		h, err := newTileHandle(reg, localities, home, i, gen(i))
		if err != nil {
			return nil, err
		}
		v.Handle[i] = h
	}
	return v, nil
}

// Futures returns the vector's handles wrapped as already-resolved futures.
func (v *Vector) Futures() []*HandleFuture {
	out := make([]*HandleFuture, v.N)
	for i, h := range v.Handle {
		out[i] = Resolved(h)
	}
	return out
}

// VectorToBuffer wraps a plain []float64 as a tile buffer of shape
// (len(v), 1), the convention this package uses to push vector-kernel
// results (Trsv, Gemv) back through the Handle/Buffer pipeline the
// matrix-kernel tasks already use.
func VectorToBuffer(v []float64) tilebuf.Buffer {
	b := tilebuf.New(len(v), 1)
	copy(b.ViewMut(), v)
	return b
}

// BufferToVector unwraps a tile buffer of shape (n, 1) back to a plain
// []float64, copying so the result is safe to mutate independently of the
// buffer's shared storage.
func BufferToVector(b tilebuf.Buffer) []float64 {
	return append([]float64(nil), b.View()...)
}
