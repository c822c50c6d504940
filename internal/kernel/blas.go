// Package kernel implements the numeric kernels spec.md marks out of scope
// as opaque collaborators (§1, §6): POTRF, TRSM, SYRK, GEMM and friends,
// plus the squared-exponential covariance generators and the loss/trace
// reductions the hyperparameter-optimization DAGs need. They are ordinary
// pure-ish functions over tilebuf.Buffer values; the dataflow engine treats
// them as black boxes that either return a result or an error.
//
// These are reference implementations sized for correctness over a tiled
// execution core, not a performance target — the teacher repo's raster
// kernels (internal/tile/downsample.go et al., not carried into this
// module) were likewise plain nested loops rather than SIMD-tuned code.
package kernel

import (
	"math"

	"github.com/pspoerri/gprat/internal/gprerrors"
	"github.com/pspoerri/gprat/internal/tilebuf"
)

// Transpose selects whether a TRSM/GEMM operand is used as-is or
// transposed, matching spec.md §6's `transpose_L ∈ {N,T}` parameter.
type Transpose int

const (
	NoTranspose Transpose = iota
	Trans
)

// Side selects which side of the product the triangular operand occupies
// in TRSM, matching spec.md §6's `side_L ∈ {L,R}` parameter.
type Side int

const (
	Left Side = iota
	Right
)

// Potrf computes the lower Cholesky factor L of the symmetric
// positive-definite block a, such that a = L·Lᵀ. a is not modified; the
// result is a freshly allocated buffer.
func Potrf(a tilebuf.Buffer) (tilebuf.Buffer, error) {
	n := a.Rows()
	if a.Cols() != n {
		return tilebuf.Buffer{}, gprerrors.Wrap(gprerrors.KindKernel, "potrf: tile must be square, got %dx%d", n, a.Cols())
	}
	l := a.Clone()
	d := l.ViewMut()
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sum := d[i*n+j]
			for k := 0; k < j; k++ {
				sum -= d[i*n+k] * d[j*n+k]
			}
			if i == j {
				if sum <= 0 {
					return tilebuf.Buffer{}, gprerrors.Wrap(gprerrors.KindKernel, "potrf: tile is not positive definite at diagonal %d", i)
				}
				d[i*n+j] = math.Sqrt(sum)
			} else {
				d[i*n+j] = sum / d[j*n+j]
			}
		}
		for j := i + 1; j < n; j++ {
			d[i*n+j] = 0
		}
	}
	return l, nil
}

// Trsm solves for X in one of L·X=B, Lᵀ·X=B, X·L=B or X·Lᵀ=B, where l is
// an N×N lower-triangular matrix, depending on side and trans.
func Trsm(l, b tilebuf.Buffer, trans Transpose, side Side) (tilebuf.Buffer, error) {
	n := l.Rows()
	if l.Cols() != n {
		return tilebuf.Buffer{}, gprerrors.Wrap(gprerrors.KindKernel, "trsm: triangular operand must be square, got %dx%d", n, l.Cols())
	}
	ld := l.View()
	x := b.Clone()
	xd := x.ViewMut()

	switch side {
	case Left:
		if b.Rows() != n {
			return tilebuf.Buffer{}, gprerrors.Wrap(gprerrors.KindKernel, "trsm: side=Left requires b.Rows()==%d, got %d", n, b.Rows())
		}
		m := b.Cols()
		if trans == NoTranspose {
			for i := 0; i < n; i++ {
				for c := 0; c < m; c++ {
					sum := xd[i*m+c]
					for k := 0; k < i; k++ {
						sum -= ld[i*n+k] * xd[k*m+c]
					}
					xd[i*m+c] = sum / ld[i*n+i]
				}
			}
		} else {
			for i := n - 1; i >= 0; i-- {
				for c := 0; c < m; c++ {
					sum := xd[i*m+c]
					for k := i + 1; k < n; k++ {
						sum -= ld[k*n+i] * xd[k*m+c]
					}
					xd[i*m+c] = sum / ld[i*n+i]
				}
			}
		}
	case Right:
		if b.Cols() != n {
			return tilebuf.Buffer{}, gprerrors.Wrap(gprerrors.KindKernel, "trsm: side=Right requires b.Cols()==%d, got %d", n, b.Cols())
		}
		m := b.Rows()
		if trans == Trans {
			for r := 0; r < m; r++ {
				for j := 0; j < n; j++ {
					sum := xd[r*n+j]
					for k := 0; k < j; k++ {
						sum -= xd[r*n+k] * ld[j*n+k]
					}
					xd[r*n+j] = sum / ld[j*n+j]
				}
			}
		} else {
			for r := 0; r < m; r++ {
				for j := n - 1; j >= 0; j-- {
					sum := xd[r*n+j]
					for k := j + 1; k < n; k++ {
						sum -= xd[r*n+k] * ld[k*n+j]
					}
					xd[r*n+j] = sum / ld[j*n+j]
				}
			}
		}
	}
	return x, nil
}

// Syrk computes a − b·bᵀ, where a is N×N and b is N×K.
func Syrk(a, b tilebuf.Buffer) (tilebuf.Buffer, error) {
	n := a.Rows()
	if a.Cols() != n || b.Rows() != n {
		return tilebuf.Buffer{}, gprerrors.Wrap(gprerrors.KindKernel, "syrk: dimension mismatch a=%dx%d b=%dx%d", a.Rows(), a.Cols(), b.Rows(), b.Cols())
	}
	k := b.Cols()
	out := a.Clone()
	od := out.ViewMut()
	bd := b.View()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			var sum float64
			for kk := 0; kk < k; kk++ {
				sum += bd[i*k+kk] * bd[j*k+kk]
			}
			od[i*n+j] -= sum
		}
	}
	return out, nil
}

// Gemm computes c − op(a)·op(b), where op applies a transpose per trA/trB.
func Gemm(a, b, c tilebuf.Buffer, trA, trB Transpose) (tilebuf.Buffer, error) {
	ar, ac := a.Rows(), a.Cols()
	if trA == Trans {
		ar, ac = ac, ar
	}
	br, bc := b.Rows(), b.Cols()
	if trB == Trans {
		br, bc = bc, br
	}
	if ac != br || ar != c.Rows() || bc != c.Cols() {
		return tilebuf.Buffer{}, gprerrors.Wrap(gprerrors.KindKernel, "gemm: dimension mismatch")
	}
	out := c.Clone()
	od := out.ViewMut()
	ad, bd := a.View(), b.View()
	aAt := func(i, j int) float64 {
		if trA == Trans {
			return ad[j*a.Cols()+i]
		}
		return ad[i*a.Cols()+j]
	}
	bAt := func(i, j int) float64 {
		if trB == Trans {
			return bd[j*b.Cols()+i]
		}
		return bd[i*b.Cols()+j]
	}
	for i := 0; i < ar; i++ {
		for j := 0; j < bc; j++ {
			var sum float64
			for k := 0; k < ac; k++ {
				sum += aAt(i, k) * bAt(k, j)
			}
			od[i*bc+j] -= sum
		}
	}
	return out, nil
}

// Trsv solves l·x=b or lᵀ·x=b for the vector x, where l is N×N
// lower-triangular and b has length N.
func Trsv(l tilebuf.Buffer, b []float64, trans Transpose) ([]float64, error) {
	bb := tilebuf.New(len(b), 1)
	copy(bb.ViewMut(), b)
	x, err := Trsm(l, bb, trans, Left)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), x.View()...), nil
}

// Gemv computes a + alpha*op(A)*b, where op applies a transpose per trA
// and alpha is +1 or -1.
func Gemv(A tilebuf.Buffer, a, b []float64, alpha float64, trA Transpose) ([]float64, error) {
	rows, cols := A.Rows(), A.Cols()
	if trA == Trans {
		rows, cols = cols, rows
	}
	if cols != len(b) || rows != len(a) {
		return nil, gprerrors.Wrap(gprerrors.KindKernel, "gemv: dimension mismatch A=%dx%d a=%d b=%d", A.Rows(), A.Cols(), len(a), len(b))
	}
	d := A.View()
	at := func(i, j int) float64 {
		if trA == Trans {
			return d[j*A.Cols()+i]
		}
		return d[i*A.Cols()+j]
	}
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		var sum float64
		for j := 0; j < cols; j++ {
			sum += at(i, j) * b[j]
		}
		out[i] = a[i] + alpha*sum
	}
	return out, nil
}

// Ger computes the rank-1 update a − x·yᵀ.
func Ger(a tilebuf.Buffer, x, y []float64) (tilebuf.Buffer, error) {
	if a.Rows() != len(x) || a.Cols() != len(y) {
		return tilebuf.Buffer{}, gprerrors.Wrap(gprerrors.KindKernel, "ger: dimension mismatch a=%dx%d x=%d y=%d", a.Rows(), a.Cols(), len(x), len(y))
	}
	out := a.Clone()
	od := out.ViewMut()
	cols := a.Cols()
	for i := range x {
		for j := range y {
			od[i*cols+j] -= x[i] * y[j]
		}
	}
	return out, nil
}

// Axpy computes y + alpha*x element-wise.
func Axpy(y, x []float64, alpha float64) ([]float64, error) {
	if len(y) != len(x) {
		return nil, gprerrors.Wrap(gprerrors.KindKernel, "axpy: length mismatch y=%d x=%d", len(y), len(x))
	}
	out := make([]float64, len(y))
	for i := range y {
		out[i] = y[i] + alpha*x[i]
	}
	return out, nil
}
