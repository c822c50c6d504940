package dataflow

import (
	"context"
	"math"
	"testing"

	"github.com/pspoerri/gprat/internal/manager"
	"github.com/pspoerri/gprat/internal/scheduler"
	"github.com/pspoerri/gprat/internal/tilebuf"
)

// TestAlphaSingleLocality factors a small SPD system and checks that Alpha
// recovers alpha = A^-1 rhs via Cholesky forward/back substitution, the
// pipeline every Predict/Uncertainty/Loss call downstream of Cholesky
// depends on.
func TestAlphaSingleLocality(t *testing.T) {
	reg := manager.NewRegistry()
	manager.New(0, reg, 0)

	sched, err := scheduler.NewLocal([]int{0})
	if err != nil {
		t.Fatal(err)
	}

	const n = 2
	a := [][]float64{{4}, {2, 5}}
	mat, err := NewMatrix(sched, reg, n, func(row, col int) tilebuf.Buffer {
		return scalarBuf(a[row][col])
	})
	if err != nil {
		t.Fatal(err)
	}

	rhsVals := []float64{1, 2}
	rhsVec, err := NewVector(sched, reg, n, func(i int) tilebuf.Buffer {
		return scalarBuf(rhsVals[i])
	})
	if err != nil {
		t.Fatal(err)
	}

	eng := NewEngine(context.Background(), sched, reg)
	grid := Cholesky(eng, mat)
	alpha := Alpha(eng, grid, rhsVec.Futures())
	if err := eng.Wait(); err != nil {
		t.Fatalf("Wait() returned error: %v", err)
	}

	got := make([]float64, n)
	for i := 0; i < n; i++ {
		h, err := alpha[i].Await()
		if err != nil {
			t.Fatalf("alpha[%d] failed: %v", i, err)
		}
		buf, err := h.Buffer(0, reg)
		if err != nil {
			t.Fatal(err)
		}
		got[i] = buf.At(0, 0)
	}

	// Full system: A = [[4,2],[2,5]], rhs = [1,2].
	// A^-1 = 1/16 * [[5,-2],[-2,4]] -> alpha = [1/16, 6/16].
	want := []float64{1.0 / 16.0, 6.0 / 16.0}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("alpha[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
