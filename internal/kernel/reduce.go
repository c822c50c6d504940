package kernel

import (
	"math"

	"github.com/pspoerri/gprat/internal/gprerrors"
	"github.com/pspoerri/gprat/internal/tilebuf"
)

// GetMatrixDiagonal returns the diagonal entries of a square tile.
func GetMatrixDiagonal(a tilebuf.Buffer) ([]float64, error) {
	n := a.Rows()
	if a.Cols() != n {
		return nil, gprerrors.Wrap(gprerrors.KindKernel, "get_matrix_diagonal: tile must be square, got %dx%d", n, a.Cols())
	}
	d := a.View()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = d[i*n+i]
	}
	return out, nil
}

// ComputeTrace returns the sum of the diagonal of a square tile.
func ComputeTrace(a tilebuf.Buffer) (float64, error) {
	diag, err := GetMatrixDiagonal(a)
	if err != nil {
		return 0, err
	}
	return ComputeTraceDiag(diag), nil
}

// ComputeTraceDiag sums an already-extracted diagonal vector.
func ComputeTraceDiag(diag []float64) float64 {
	var sum float64
	for _, v := range diag {
		sum += v
	}
	return sum
}

// ComputeDot returns the dot product of two equal-length vectors.
func ComputeDot(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, gprerrors.Wrap(gprerrors.KindKernel, "compute_dot: length mismatch %d vs %d", len(a), len(b))
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum, nil
}

// DotDiagSyrk returns r + diag(Aᵀ·A), where A is N×M and r has length M.
// Used by the posterior-uncertainty DAG to accumulate the variance
// reduction contributed by each training tile.
func DotDiagSyrk(a tilebuf.Buffer, r []float64) ([]float64, error) {
	m := a.Cols()
	if len(r) != m {
		return nil, gprerrors.Wrap(gprerrors.KindKernel, "dot_diag_syrk: r length %d != a.Cols() %d", len(r), m)
	}
	d := a.View()
	n := a.Rows()
	out := append([]float64(nil), r...)
	for j := 0; j < m; j++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += d[i*m+j] * d[i*m+j]
		}
		out[j] += sum
	}
	return out, nil
}

// DotDiagGemm returns r + diag(Aᵀ·B), where A and B are both N×M and r has
// length M.
func DotDiagGemm(a, b tilebuf.Buffer, r []float64) ([]float64, error) {
	if a.Rows() != b.Rows() || a.Cols() != b.Cols() {
		return nil, gprerrors.Wrap(gprerrors.KindKernel, "dot_diag_gemm: shape mismatch a=%dx%d b=%dx%d", a.Rows(), a.Cols(), b.Rows(), b.Cols())
	}
	m := a.Cols()
	if len(r) != m {
		return nil, gprerrors.Wrap(gprerrors.KindKernel, "dot_diag_gemm: r length %d != cols %d", len(r), m)
	}
	ad, bd := a.View(), b.View()
	n := a.Rows()
	out := append([]float64(nil), r...)
	for j := 0; j < m; j++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += ad[i*m+j] * bd[i*m+j]
		}
		out[j] += sum
	}
	return out, nil
}

// ComputeLoss returns the negative-log-marginal-likelihood contribution of
// one diagonal Cholesky tile: sum(log(diag(L)^2)), the tile-local term of
// the standard GP log-determinant. Callers sum this across all diagonal
// tiles and add 0.5*(total + alphaDotY + n*log(2*pi)) once, per
// original_source/core/include/gprat/cpu/gp_optimizer_actions.hpp.
func ComputeLoss(diagL []float64) float64 {
	var sum float64
	for _, v := range diagL {
		sum += math.Log(v * v)
	}
	return sum
}

// FinalizeLoss combines the accumulated log-determinant term with the
// alpha-dot-y term and the dataset size to produce the final negative log
// marginal likelihood.
func FinalizeLoss(logDetSum, alphaDotY float64, n int) float64 {
	return 0.5 * (logDetSum + alphaDotY + float64(n)*math.Log(2*math.Pi))
}
