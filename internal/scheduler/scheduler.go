// Package scheduler implements the pluggable placement policy: a pure
// function per task kind that maps tile indices to a target locality. It
// generalizes the teacher's resolved-once-then-held interface pattern in
// internal/encode/encoder.go (pspoerri-geotiff2pmtiles), where NewEncoder
// picks a concrete Encoder implementation once at construction and callers
// hold the interface value rather than re-branching on a format string —
// here, the policy and its parameters are fixed at construction. On still
// switches on the mode and the TaskKind on every call; no dispatch table
// is built.
package scheduler

import (
	"github.com/pspoerri/gprat/internal/gprerrors"
)

// Mode selects the placement policy.
type Mode int

const (
	// Local sends every task to locality 0 (single-process mode).
	Local Mode = iota
	// SMA is symmetric modulo-arithmetic placement with kind-specific
	// integer coefficients.
	SMA
	// Cyclic is 2-D block-cyclic placement parameterized by width x height.
	Cyclic
)

func (m Mode) String() string {
	switch m {
	case Local:
		return "local"
	case SMA:
		return "sma"
	case Cyclic:
		return "cyclic"
	default:
		return "unknown"
	}
}

// TaskKind names a placement function from spec.md §6's closed
// coefficient table.
type TaskKind int

const (
	Potrf TaskKind = iota
	Syrk
	Trsm
	Gemm
	Trsv
	SolveGemv
	MatrixTrsm
	MatrixGemm
	CovarianceTile
	AlphaPrediction
	KRankGemm
	VectorReduce // AXPY(k), diagonal(k), loss(k) share one formula
)

// Scheduler is an immutable placement policy plus the ordered list of
// locality ids it targets. Safe to share freely once constructed.
type Scheduler struct {
	mode       Mode
	localities []int
	width      int
	height     int
}

// NewLocal creates a Local-mode scheduler over the given locality ids
// (only localities[0] is ever targeted).
func NewLocal(localities []int) (*Scheduler, error) {
	if len(localities) == 0 {
		return nil, gprerrors.Wrap(gprerrors.KindConfiguration, "scheduler: at least one locality is required")
	}
	return &Scheduler{mode: Local, localities: cloneInts(localities)}, nil
}

// NewSMA creates a symmetric modulo-arithmetic scheduler over the given
// locality ids.
func NewSMA(localities []int) (*Scheduler, error) {
	if len(localities) == 0 {
		return nil, gprerrors.Wrap(gprerrors.KindConfiguration, "scheduler: at least one locality is required")
	}
	return &Scheduler{mode: SMA, localities: cloneInts(localities)}, nil
}

// NewCyclic creates a 2-D block-cyclic scheduler. The constructor rejects
// configurations where width*height does not equal len(localities),
// per spec.md §6.
func NewCyclic(localities []int, width, height int) (*Scheduler, error) {
	if len(localities) == 0 {
		return nil, gprerrors.Wrap(gprerrors.KindConfiguration, "scheduler: at least one locality is required")
	}
	if width <= 0 || height <= 0 {
		return nil, gprerrors.Wrap(gprerrors.KindConfiguration, "scheduler: cyclic width and height must be positive, got %d x %d", width, height)
	}
	if width*height != len(localities) {
		return nil, gprerrors.Wrap(gprerrors.KindConfiguration,
			"scheduler: cyclic width*height (%d*%d=%d) must equal locality count (%d)",
			width, height, width*height, len(localities))
	}
	return &Scheduler{mode: Cyclic, localities: cloneInts(localities), width: width, height: height}, nil
}

// Mode returns the scheduler's placement policy.
func (s *Scheduler) Mode() Mode { return s.mode }

// Localities returns a copy of the ordered locality id list.
func (s *Scheduler) Localities() []int { return cloneInts(s.localities) }

// L returns the number of localities the scheduler targets.
func (s *Scheduler) L() int { return len(s.localities) }

// locality maps a placement index in [0, L) to the actual locality id,
// wrapping defensively so a caller-supplied formula never panics on a
// slightly out-of-range index (block-cyclic sums are not reduced mod L by
// spec.md §6, only the SMA/flat forms are).
func (s *Scheduler) locality(idx int) int {
	L := len(s.localities)
	idx %= L
	if idx < 0 {
		idx += L
	}
	return s.localities[idx]
}

func cloneInts(in []int) []int {
	out := make([]int, len(in))
	copy(out, in)
	return out
}
