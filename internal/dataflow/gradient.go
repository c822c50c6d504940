package dataflow

import (
	"github.com/pspoerri/gprat/internal/future"
	"github.com/pspoerri/gprat/internal/kernel"
	"github.com/pspoerri/gprat/internal/scheduler"
	"github.com/pspoerri/gprat/internal/tilebuf"
)

// BufferFuture resolves to a plain tile buffer, used by DAG leaves that
// produce a tile without updating any existing Holder (the gradient
// producers below never feed back into a Cholesky-style in-place chain,
// so they skip the Handle/Set machinery entirely).
type BufferFuture = future.Future[tilebuf.Buffer]

// SubmitPure runs fn as its own errgroup goroutine, the same
// one-task-per-goroutine discipline as Submit, for DAG leaves that
// produce a tile buffer directly rather than advancing an existing
// Holder's generation. loc is accepted but not used: fn runs the same way
// whatever locality the caller computed.
func (e *Engine) SubmitPure(loc int, fn func() (tilebuf.Buffer, error)) *BufferFuture {
	_ = loc
	e.submitted.Add(1)
	f, resolve := future.New[tilebuf.Buffer]()
	e.group.Go(func() error {
		defer e.completed.Add(1)
		buf, err := fn()
		if err != nil {
			resolve(tilebuf.Buffer{}, err)
			return err
		}
		resolve(buf, nil)
		return nil
	})
	return f
}

// GradientTiles is the result of submitting the gradient-tile producer
// DAG: per training-tile-pair, the length-scale and signal-variance
// gradient tiles the Adam optimizer (out of scope here; see spec.md §1)
// consumes.
type GradientTiles struct {
	GradL [][]*BufferFuture
	GradV [][]*BufferFuture
}

// Gradients submits the gradient-tile producer DAG: for every
// lower-triangular tile pair (row, col) of the training covariance
// matrix, it regenerates the covariance tile together with its squared-
// distance tile, then derives GradL and GradV from them. Placement
// reuses the CovarianceTile coefficients of spec.md §6, per the original
// implementation's K_grad_l_tile/K_grad_v_tile placement rows
// (original_source/examples/distributed/src/distributed_cholesky.hpp),
// which share covariance_tile's (row+col) mod L formula rather than
// defining their own — grounded in
// original_source/core/include/gprat/cpu/gp_optimizer_actions.hpp.
func Gradients(e *Engine, n int, trainPoints [][][]float64, hyper kernel.Hyperparameters) *GradientTiles {
	g := &GradientTiles{
		GradL: make([][]*BufferFuture, n),
		GradV: make([][]*BufferFuture, n),
	}
	for row := 0; row < n; row++ {
		g.GradL[row] = make([]*BufferFuture, n)
		g.GradV[row] = make([]*BufferFuture, n)
		for col := 0; col <= row; col++ {
			row, col := row, col
			loc := e.sched.On(scheduler.CovarianceTile, n, row, col)

			g.GradL[row][col] = e.SubmitPure(loc, func() (tilebuf.Buffer, error) {
				cov, sqDist, err := kernel.GenTileCovarianceWithDistance(trainPoints[row], trainPoints[col], hyper)
				if err != nil {
					return tilebuf.Buffer{}, err
				}
				return kernel.GenTileGradL(cov, sqDist, hyper.LengthScale)
			})
			g.GradV[row][col] = e.SubmitPure(loc, func() (tilebuf.Buffer, error) {
				cov, err := kernel.GenTileCovariance(trainPoints[row], trainPoints[col], hyper)
				if err != nil {
					return tilebuf.Buffer{}, err
				}
				return kernel.GenTileGradV(cov, hyper.Variance)
			})
		}
	}
	return g
}
