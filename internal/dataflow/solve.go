package dataflow

import (
	"github.com/pspoerri/gprat/internal/kernel"
	"github.com/pspoerri/gprat/internal/scheduler"
	"github.com/pspoerri/gprat/internal/tilebuf"
)

// ForwardSolve submits the tiled forward-substitution DAG solving
// l * y = rhs for y, where lh is the n x n lower-triangular grid of final
// handle futures Cholesky returned (not a fresh Matrix.Futures() snapshot
// — those would still carry the matrix's pre-factorization, generation-0
// handles) and rhs is an n-entry tiled vector. It follows the same
// column-then-fan-out shape as Cholesky's k-loop: each diagonal solve
// (placement Trsv(k)) is followed by an independent GEMV update per
// remaining row (placement SolveGemv(k,m)), run for every m in parallel.
func ForwardSolve(e *Engine, lh [][]*HandleFuture, rhs []*HandleFuture) []*HandleFuture {
	n := len(lh)
	y := append([]*HandleFuture(nil), rhs...)

	for k := 0; k < n; k++ {
		y[k] = e.Submit(scheduler.Trsv, n, []int{k}, y[k], forwardTrsvKernel, lh[k][k], y[k])
		for m := k + 1; m < n; m++ {
			y[m] = e.Submit(scheduler.SolveGemv, n, []int{k, m}, y[m], gemvSubKernel, lh[m][k], y[m], y[k])
		}
	}
	return y
}

// BackSolve submits the tiled back-substitution DAG solving lᵀ * x = y
// for x, completing l^-T(l^-1 rhs). It descends k from n-1 to 0, mirroring
// ForwardSolve's ascent; each update reads l[k,m] transposed, since
// lᵀ[m,k] = l[k,m] for the lower-triangular tile matrix l. lh is the same
// Cholesky-output handle grid ForwardSolve takes.
func BackSolve(e *Engine, lh [][]*HandleFuture, y []*HandleFuture) []*HandleFuture {
	n := len(lh)
	x := append([]*HandleFuture(nil), y...)

	for k := n - 1; k >= 0; k-- {
		x[k] = e.Submit(scheduler.Trsv, n, []int{k}, x[k], backTrsvKernel, lh[k][k], x[k])
		for m := 0; m < k; m++ {
			x[m] = e.Submit(scheduler.SolveGemv, n, []int{k, m}, x[m], gemvSubTransKernel, lh[k][m], x[m], x[k])
		}
	}
	return x
}

// Alpha computes alpha = l^-T(l^-1 rhs), the predictive-mean weight
// vector every prediction and uncertainty DAG consumes, by chaining
// ForwardSolve into BackSolve.
func Alpha(e *Engine, lh [][]*HandleFuture, rhs []*HandleFuture) []*HandleFuture {
	return BackSolve(e, lh, ForwardSolve(e, lh, rhs))
}

func forwardTrsvKernel(bufs []tilebuf.Buffer) (tilebuf.Buffer, error) {
	x, err := kernel.Trsv(bufs[0], BufferToVector(bufs[1]), kernel.NoTranspose)
	if err != nil {
		return tilebuf.Buffer{}, err
	}
	return VectorToBuffer(x), nil
}

func backTrsvKernel(bufs []tilebuf.Buffer) (tilebuf.Buffer, error) {
	x, err := kernel.Trsv(bufs[0], BufferToVector(bufs[1]), kernel.Trans)
	if err != nil {
		return tilebuf.Buffer{}, err
	}
	return VectorToBuffer(x), nil
}

// gemvSubKernel computes bufs[1] - bufs[0]*bufs[2] (forward-solve update:
// y[m] -= l[m,k] * y[k]).
func gemvSubKernel(bufs []tilebuf.Buffer) (tilebuf.Buffer, error) {
	out, err := kernel.Gemv(bufs[0], BufferToVector(bufs[1]), BufferToVector(bufs[2]), -1, kernel.NoTranspose)
	if err != nil {
		return tilebuf.Buffer{}, err
	}
	return VectorToBuffer(out), nil
}

// gemvSubTransKernel computes bufs[1] - bufs[0]ᵀ*bufs[2] (back-solve
// update: x[m] -= l[k,m]ᵀ * x[k]).
func gemvSubTransKernel(bufs []tilebuf.Buffer) (tilebuf.Buffer, error) {
	out, err := kernel.Gemv(bufs[0], BufferToVector(bufs[1]), BufferToVector(bufs[2]), -1, kernel.Trans)
	if err != nil {
		return tilebuf.Buffer{}, err
	}
	return VectorToBuffer(out), nil
}
