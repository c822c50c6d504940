package dataflow

import (
	"context"
	"math"
	"testing"

	"github.com/pspoerri/gprat/internal/manager"
	"github.com/pspoerri/gprat/internal/scheduler"
	"github.com/pspoerri/gprat/internal/telemetry"
	"github.com/pspoerri/gprat/internal/tilebuf"
)

func scalarBuf(v float64) tilebuf.Buffer {
	b := tilebuf.New(1, 1)
	b.ViewMut()[0] = v
	return b
}

// TestCholeskySingleLocality reproduces spec.md §8 scenario 1: L=1,
// n_tiles=2, 1x1 tiles, A=[[4,2],[2,5]]. The factor should be
// L ~= [[2,0],[1,2]], the terminal handle's generation should be 1, and
// (single locality, no remote fetches) the cache hit count is 0.
func TestCholeskySingleLocality(t *testing.T) {
	telemetry.Counters.Reset()

	reg := manager.NewRegistry()
	manager.New(0, reg, 0)

	sched, err := scheduler.NewLocal([]int{0})
	if err != nil {
		t.Fatal(err)
	}

	a := [][]float64{{4}, {2, 5}}
	mat, err := NewMatrix(sched, reg, 2, func(row, col int) tilebuf.Buffer {
		return scalarBuf(a[row][col])
	})
	if err != nil {
		t.Fatal(err)
	}

	eng := NewEngine(context.Background(), sched, reg)
	grid := Cholesky(eng, mat)
	terminal := grid[1][1]
	if err := eng.Wait(); err != nil {
		t.Fatalf("Wait() returned error: %v", err)
	}

	finalHandle, err := terminal.Await()
	if err != nil {
		t.Fatalf("terminal future failed: %v", err)
	}
	if finalHandle.Generation != 1 {
		t.Fatalf("terminal generation = %d, want 1", finalHandle.Generation)
	}

	buf, err := finalHandle.Buffer(0, reg)
	if err != nil {
		t.Fatal(err)
	}
	if got := buf.At(0, 0); math.Abs(got-2) > 1e-9 {
		t.Fatalf("L[1,1] = %v, want 2", got)
	}

	if got := telemetry.Counters.Snapshot().CacheHits; got != 0 {
		t.Fatalf("cache hits = %d, want 0 (single locality, no remote fetches)", got)
	}
}

// TestCholeskyTwoLocalitySMA reproduces spec.md §8 scenario 2's shape: a
// deterministic SPD input factored under a two-locality SMA scheduler
// reconstructs the original matrix via L*Lᵀ to within 1e-9*n.
func TestCholeskyTwoLocalitySMA(t *testing.T) {
	reg := manager.NewRegistry()
	manager.New(0, reg, 0)
	manager.New(1, reg, 0)

	sched, err := scheduler.NewSMA([]int{0, 1})
	if err != nil {
		t.Fatal(err)
	}

	const n = 4
	a := make([][]float64, n)
	for i := range a {
		a[i] = make([]float64, n)
		for j := 0; j <= i; j++ {
			if i == j {
				a[i][j] = float64(n) + float64(i) + 1
			} else {
				a[i][j] = 1.0 / float64(i+j+2)
			}
		}
	}

	mat, err := NewMatrix(sched, reg, n, func(row, col int) tilebuf.Buffer {
		return scalarBuf(a[row][col])
	})
	if err != nil {
		t.Fatal(err)
	}

	eng := NewEngine(context.Background(), sched, reg)
	grid := Cholesky(eng, mat)
	terminal := grid[n-1][n-1]
	if err := eng.Wait(); err != nil {
		t.Fatalf("Wait() returned error: %v", err)
	}
	if _, err := terminal.Await(); err != nil {
		t.Fatalf("terminal future failed: %v", err)
	}

	finalL := make([][]float64, n)
	for row := 0; row < n; row++ {
		finalL[row] = make([]float64, n)
		for col := 0; col <= row; col++ {
			loc := sched.On(scheduler.CovarianceTile, n, row, col)
			h, err := grid[row][col].Await()
			if err != nil {
				t.Fatal(err)
			}
			buf, err := h.Buffer(loc, reg)
			if err != nil {
				t.Fatal(err)
			}
			finalL[row][col] = buf.At(0, 0)
		}
	}

	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			var sum float64
			for k := 0; k <= j; k++ {
				sum += finalL[i][k] * finalL[j][k]
			}
			if math.Abs(sum-a[i][j]) > 1e-9*float64(n) {
				t.Fatalf("L*Lt[%d][%d] = %v, want %v", i, j, sum, a[i][j])
			}
		}
	}
}
