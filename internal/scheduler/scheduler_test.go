package scheduler

import "testing"

func TestCyclicRejectsNonDivisibleConfiguration(t *testing.T) {
	_, err := NewCyclic([]int{0, 1, 2}, 2, 2)
	if err == nil {
		t.Fatalf("NewCyclic(3 localities, 2x2) should be rejected, got nil error")
	}
}

func TestCyclicAcceptsDivisibleConfiguration(t *testing.T) {
	s, err := NewCyclic([]int{0, 1, 2, 3}, 2, 2)
	if err != nil {
		t.Fatalf("NewCyclic(4 localities, 2x2) unexpected error: %v", err)
	}
	if s.L() != 4 {
		t.Fatalf("L() = %d, want 4", s.L())
	}
}

func TestBlockCyclicCovarianceTile(t *testing.T) {
	s, err := NewCyclic([]int{0, 1, 2, 3}, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.On(CovarianceTile, 0, 3, 5); got != 2 {
		t.Errorf("CovarianceTile(row=3,col=5) = %d, want 2", got)
	}
}

func TestBlockCyclicGemm(t *testing.T) {
	s, err := NewCyclic([]int{0, 1, 2, 3}, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.On(Gemm, 0, 0, 2, 3); got != 1 {
		t.Errorf("Gemm(k=0,m=2,n=3) = %d, want 1", got)
	}
}

func TestSMATrsmTwoLocalities(t *testing.T) {
	s, err := NewSMA([]int{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	if got := s.On(Trsm, 0, 0, 1); got != 1 {
		t.Errorf("Trsm(k=0,m=1) on L=2 = %d, want 1", got)
	}
}

func TestLocalModeAlwaysFirstLocality(t *testing.T) {
	s, err := NewLocal([]int{7})
	if err != nil {
		t.Fatal(err)
	}
	for _, kind := range []TaskKind{Potrf, Syrk, Trsm, Gemm, CovarianceTile} {
		if got := s.On(kind, 10, 3, 4, 5); got != 7 {
			t.Errorf("On(%v) in Local mode = %d, want 7", kind, got)
		}
	}
}

func TestPlacementIsPure(t *testing.T) {
	s, err := NewCyclic([]int{0, 1, 2, 3, 4, 5}, 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	first := s.On(Gemm, 8, 1, 2, 3)
	for i := 0; i < 100; i++ {
		if got := s.On(Gemm, 8, 1, 2, 3); got != first {
			t.Fatalf("On() not pure: call %d returned %d, want %d", i, got, first)
		}
	}
}
