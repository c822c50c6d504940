package dataflow

import (
	"github.com/pspoerri/gprat/internal/kernel"
	"github.com/pspoerri/gprat/internal/scheduler"
	"github.com/pspoerri/gprat/internal/tilebuf"
)

// Cholesky submits the tiled Cholesky DAG of spec.md §4.5 over the n x n
// lower-triangular tile matrix a, overwriting it in place (through handle
// chaining, not mutation) with its Cholesky factor L such that
// a = L * Lᵀ. It returns the full lower-triangular grid of final-generation
// handles; callers awaiting result[n-1][n-1] (the terminal handle, every
// other tile's write being its causal ancestor by construction of the loop
// nest below) know the whole factorization has completed, while the rest
// of the grid remains available for downstream DAGs (solves, predictions)
// that need more than just the last diagonal tile.
//
// Every statement of the loop nest becomes exactly one Engine.Submit call,
// matching the DAG verbatim:
//
//	for k = 0 .. n-1:
//	    A[k,k] <- POTRF(A[k,k])
//	    for m = k+1 .. n-1:
//	        A[m,k] <- TRSM(L=A[k,k], rhs=A[m,k], transpose=T, side=right)
//	    for m = k+1 .. n-1:
//	        A[m,m] <- SYRK(A[m,m], A[m,k])
//	        for n' = k+1 .. m-1:
//	            A[m,n'] <- GEMM(A[m,k], A[n',k], A[m,n'])
func Cholesky(e *Engine, a *Matrix) [][]*HandleFuture {
	n := a.N
	h := a.Futures()

	for k := 0; k < n; k++ {
		h[k][k] = e.Submit(scheduler.Potrf, n, []int{k}, h[k][k], potrfKernel, h[k][k])

		for m := k + 1; m < n; m++ {
			h[m][k] = e.Submit(scheduler.Trsm, n, []int{k, m}, h[m][k], trsmKernel, h[k][k], h[m][k])
		}

		for m := k + 1; m < n; m++ {
			h[m][m] = e.Submit(scheduler.Syrk, n, []int{m}, h[m][m], syrkKernel, h[m][m], h[m][k])

			for np := k + 1; np < m; np++ {
				h[m][np] = e.Submit(scheduler.Gemm, n, []int{k, m, np}, h[m][np], gemmKernel, h[m][k], h[np][k], h[m][np])
			}
		}
	}

	return h
}

func potrfKernel(bufs []tilebuf.Buffer) (tilebuf.Buffer, error) {
	return kernel.Potrf(bufs[0])
}

func trsmKernel(bufs []tilebuf.Buffer) (tilebuf.Buffer, error) {
	// bufs[0] = L = A[k,k], bufs[1] = rhs = A[m,k]; X*Lᵀ=rhs, side=Right.
	return kernel.Trsm(bufs[0], bufs[1], kernel.Trans, kernel.Right)
}

func syrkKernel(bufs []tilebuf.Buffer) (tilebuf.Buffer, error) {
	return kernel.Syrk(bufs[0], bufs[1])
}

func gemmKernel(bufs []tilebuf.Buffer) (tilebuf.Buffer, error) {
	// A[m,n'] <- A[m,n'] - A[m,k]*A[n',k]ᵀ.
	return kernel.Gemm(bufs[0], bufs[1], bufs[2], kernel.NoTranspose, kernel.Trans)
}
