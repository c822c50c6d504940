package dataflow

import (
	"context"
	"math"
	"testing"

	"github.com/pspoerri/gprat/internal/kernel"
	"github.com/pspoerri/gprat/internal/manager"
	"github.com/pspoerri/gprat/internal/scheduler"
)

// TestGradientsSingleTile checks the length-scale and signal-variance
// gradient tiles against the closed-form squared-exponential derivatives
// for a 2-point training tile.
func TestGradientsSingleTile(t *testing.T) {
	reg := manager.NewRegistry()
	manager.New(0, reg, 0)
	sched, err := scheduler.NewLocal([]int{0})
	if err != nil {
		t.Fatal(err)
	}

	hyper := kernel.Hyperparameters{LengthScale: 2, Variance: 3, NoiseVariance: 0.1}
	trainPoints := [][][]float64{{{0.0}, {1.0}}}

	eng := NewEngine(context.Background(), sched, reg)
	grads := Gradients(eng, 1, trainPoints, hyper)
	if err := eng.Wait(); err != nil {
		t.Fatalf("Wait() returned error: %v", err)
	}

	gl, err := grads.GradL[0][0].Await()
	if err != nil {
		t.Fatalf("grad_l failed: %v", err)
	}
	gv, err := grads.GradV[0][0].Await()
	if err != nil {
		t.Fatalf("grad_v failed: %v", err)
	}

	cov, err := kernel.GenTileCovariance(trainPoints[0], trainPoints[0], hyper)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			diff := float64(i - j)
			sqDist := diff * diff
			k := cov.At(i, j)

			wantGL := k * sqDist / (hyper.LengthScale * hyper.LengthScale * hyper.LengthScale)
			if got := gl.At(i, j); math.Abs(got-wantGL) > 1e-9 {
				t.Fatalf("grad_l[%d][%d] = %v, want %v", i, j, got, wantGL)
			}

			wantGV := k / hyper.Variance
			if got := gv.At(i, j); math.Abs(got-wantGV) > 1e-9 {
				t.Fatalf("grad_v[%d][%d] = %v, want %v", i, j, got, wantGV)
			}
		}
	}
}
