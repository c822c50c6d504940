package dataflow

import (
	"github.com/pspoerri/gprat/internal/future"
	"github.com/pspoerri/gprat/internal/kernel"
	"github.com/pspoerri/gprat/internal/scheduler"
	"github.com/pspoerri/gprat/internal/tilebuf"
)

// Predict submits the prediction DAG: for every query (test) tile i, a
// GEMV sweep accumulates cross-covariance(test_i, train_k) * alpha[k]
// across every training tile k into pred's i-th entry. pred must already
// be a zero-initialized n-entry Vector sized to the test tiling; its
// futures are both the accumulator and the Submit target, matching
// spec.md §6's "alpha/prediction tile(i)" placement (2i mod L / SMA).
//
// Grounded in original_source/core/include/gprat/cpu/gp_algorithms_actions.hpp's
// prediction action, which likewise folds the per-training-tile
// cross-covariance generation and GEMV accumulation into one action per
// query tile rather than one task per (query tile, training tile) pair.
func Predict(e *Engine, pred *Vector, alpha []*HandleFuture, trainPoints, testPoints [][][]float64, hyper kernel.Hyperparameters) []*HandleFuture {
	n := len(trainPoints)
	predFut := pred.Futures()
	out := make([]*HandleFuture, pred.N)

	for i := 0; i < pred.N; i++ {
		inputs := append([]*HandleFuture{predFut[i]}, alpha...)
		out[i] = e.Submit(scheduler.AlphaPrediction, n, []int{i}, predFut[i], func(bufs []tilebuf.Buffer) (tilebuf.Buffer, error) {
			predVec := BufferToVector(bufs[0])
			for k := 0; k < n; k++ {
				cov, err := kernel.GenTileCrossCovariance(testPoints[i], trainPoints[k], hyper)
				if err != nil {
					return tilebuf.Buffer{}, err
				}
				next, err := kernel.Gemv(cov, predVec, BufferToVector(bufs[k+1]), 1, kernel.NoTranspose)
				if err != nil {
					return tilebuf.Buffer{}, err
				}
				predVec = next
			}
			return VectorToBuffer(predVec), nil
		}, inputs...)
	}
	return out
}

// Uncertainty submits the posterior-covariance DAG: for every query tile
// i, the diagonal of the posterior covariance is the prior variance
// diagonal minus the variance explained by training data, accumulated as
// sum_k diag(v_kᵀ v_k) where v_k solves l[k,k]*v_k = crossCov(train_k,
// test_i). priorVarDiag must already hold each query tile's prior
// (training-free) variance diagonal.
//
// This tile-local solve (against each training tile's own diagonal factor
// rather than a full forward solve across all k) mirrors the
// "uncertainty_tile"/"inter_alpha_tile" placement rows of
// original_source/examples/distributed/src/distributed_cholesky.hpp,
// which likewise reduce the posterior variance per training tile without
// re-deriving a full alpha-style solve chain. lh is the Cholesky-output
// handle grid, not a fresh Matrix.Futures() snapshot.
func Uncertainty(e *Engine, lh [][]*HandleFuture, trainPoints, testPoints [][][]float64, hyper kernel.Hyperparameters, priorVarDiag *Vector) []*HandleFuture {
	n := len(lh)
	priorFut := priorVarDiag.Futures()
	out := make([]*HandleFuture, priorVarDiag.N)

	for i := 0; i < priorVarDiag.N; i++ {
		inputs := []*HandleFuture{priorFut[i]}
		for k := 0; k < n; k++ {
			inputs = append(inputs, lh[k][k])
		}
		out[i] = e.Submit(scheduler.MatrixTrsm, n, []int{i, 0}, priorFut[i], func(bufs []tilebuf.Buffer) (tilebuf.Buffer, error) {
			priorDiag := BufferToVector(bufs[0])
			reduction := make([]float64, len(priorDiag))
			for k := 0; k < n; k++ {
				cross, err := kernel.GenTileCrossCovariance(trainPoints[k], testPoints[i], hyper)
				if err != nil {
					return tilebuf.Buffer{}, err
				}
				v, err := kernel.Trsm(bufs[k+1], cross, kernel.NoTranspose, kernel.Left)
				if err != nil {
					return tilebuf.Buffer{}, err
				}
				reduction, err = kernel.DotDiagSyrk(v, reduction)
				if err != nil {
					return tilebuf.Buffer{}, err
				}
			}
			post := make([]float64, len(priorDiag))
			for j := range post {
				post[j] = priorDiag[j] - reduction[j]
			}
			return VectorToBuffer(post), nil
		}, inputs...)
	}
	return out
}

// Loss submits the negative-log-marginal-likelihood DAG: each diagonal
// Cholesky tile contributes its log-determinant term (placement
// VectorReduce(k), spec.md §6's "vector AXPY(k), diagonal(k), loss(k)"
// row), and the partial sums are combined with the alpha-y dot product
// once every contribution has resolved. Grounded in
// original_source/core/include/gprat/cpu/gp_optimizer_actions.hpp. lh is
// the Cholesky-output handle grid, not a fresh Matrix.Futures() snapshot.
func Loss(e *Engine, lh [][]*HandleFuture, alpha, y []*HandleFuture, n int) *future.Future[float64] {
	partials := make([]*future.Future[float64], n)
	dots := make([]*future.Future[float64], n)

	for k := 0; k < n; k++ {
		k := k
		partials[k] = future.Go(func() (float64, error) {
			h, err := lh[k][k].Await()
			if err != nil {
				return 0, err
			}
			loc := e.sched.On(scheduler.VectorReduce, n, k)
			buf, err := h.Buffer(loc, e.reg)
			if err != nil {
				return 0, err
			}
			diag, err := kernel.GetMatrixDiagonal(buf)
			if err != nil {
				return 0, err
			}
			return kernel.ComputeLoss(diag), nil
		})

		dots[k] = future.Go(func() (float64, error) {
			loc := e.sched.On(scheduler.VectorReduce, n, k)
			ah, err := alpha[k].Await()
			if err != nil {
				return 0, err
			}
			yh, err := y[k].Await()
			if err != nil {
				return 0, err
			}
			aBuf, err := ah.Buffer(loc, e.reg)
			if err != nil {
				return 0, err
			}
			yBuf, err := yh.Buffer(loc, e.reg)
			if err != nil {
				return 0, err
			}
			return kernel.ComputeDot(BufferToVector(aBuf), BufferToVector(yBuf))
		})
	}

	return future.Go(func() (float64, error) {
		var logDetSum, alphaDotY float64
		size := 0
		for k := 0; k < n; k++ {
			p, err := partials[k].Await()
			if err != nil {
				return 0, err
			}
			logDetSum += p

			d, err := dots[k].Await()
			if err != nil {
				return 0, err
			}
			alphaDotY += d

			h, err := alpha[k].Await()
			if err != nil {
				return 0, err
			}
			loc := e.sched.On(scheduler.VectorReduce, n, k)
			buf, err := h.Buffer(loc, e.reg)
			if err != nil {
				return 0, err
			}
			size += buf.Rows()
		}
		return kernel.FinalizeLoss(logDetSum, alphaDotY, size), nil
	})
}
