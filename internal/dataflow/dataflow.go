// Package dataflow implements the futures-based task submission engine of
// §4.5: Submit resolves a task's input handles asynchronously on the
// target locality, invokes the numeric kernel, and publishes the result
// through the output tile's Holder, producing an advanced handle. The
// tiled Cholesky DAG and its downstream solve/predict/optimize DAGs are
// built on top of this one primitive.
//
// One Engine corresponds to one DAG run: it owns an errgroup.Group the
// way the teacher's Generate (internal/tile/generator.go,
// pspoerri-geotiff2pmtiles) owns one sync.WaitGroup per zoom level — here
// generalized from a hand-rolled WaitGroup + buffered error channel to
// golang.org/x/sync/errgroup, already a direct dependency via
// jcom-dev-zmanim and GoogleContainerTools-skaffold. Every Submit call is
// its own errgroup goroutine: the engine never coalesces two kernel tasks
// into one execution context, matching §4.5's "do not combine / do not
// share" scheduling hint.
package dataflow

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/pspoerri/gprat/internal/future"
	"github.com/pspoerri/gprat/internal/gprerrors"
	"github.com/pspoerri/gprat/internal/manager"
	"github.com/pspoerri/gprat/internal/scheduler"
	"github.com/pspoerri/gprat/internal/tilebuf"
)

// HandleFuture resolves to an advanced tile handle, same type the Manager
// itself returns from SetTile.
type HandleFuture = future.Future[manager.Handle]

// Kernel is the shape every numeric kernel presents to the engine: a pure
// function over the buffers resolved from a task's input handles. Kernels
// never suspend (§5); only Submit's resolution of input futures does.
type Kernel func(bufs []tilebuf.Buffer) (tilebuf.Buffer, error)

// Engine drives one DAG run: a scheduler for placement, a registry for
// cross-locality Manager lookup, and an errgroup that fans out every task
// submission as an independent goroutine.
type Engine struct {
	sched *scheduler.Scheduler
	reg   *manager.Registry
	group *errgroup.Group
	ctx   context.Context

	submitted atomic.Int64
	completed atomic.Int64
}

// NewEngine creates an Engine for one DAG run over sched and reg. The
// engine keeps the context from errgroup.WithContext, which is cancelled on
// the first task error; neither Submit nor the kernels consult it (§5 says
// kernels never suspend), so already-submitted tasks still run to
// completion and see the failure through their input futures.
func NewEngine(ctx context.Context, sched *scheduler.Scheduler, reg *manager.Registry) *Engine {
	g, gctx := errgroup.WithContext(ctx)
	return &Engine{sched: sched, reg: reg, group: g, ctx: gctx}
}

// Scheduler returns the engine's placement policy.
func (e *Engine) Scheduler() *scheduler.Scheduler { return e.sched }

// Registry returns the engine's locality registry.
func (e *Engine) Registry() *manager.Registry { return e.reg }

// Wait blocks until every task submitted so far has completed, returning
// the first error encountered (if any). Per spec.md §4.6, a failed kernel
// or remote fetch propagates through every dependent future and is
// reported here as well as through the terminal handle future awaited by
// the caller.
func (e *Engine) Wait() error { return e.group.Wait() }

// Submit is the task-submission primitive of §4.5. It evaluates the
// target locality from kind/indices, then creates a deferred task that:
//  1. awaits target and every entry of inputs (in order),
//  2. resolves each to a buffer via the target locality's Manager,
//  3. invokes kernel over the resolved buffers,
//  4. publishes the result through target's Holder, advancing its
//     generation.
//
// target and inputs overlap whenever a kernel reads the same tile it
// writes (e.g. SYRK's A[m,m] is both read and written) — passing the same
// *HandleFuture twice is safe, since Future.Await may be called any
// number of times once resolved. The returned future never consumes an
// input handle's buffer: Buffer() returns a shared-storage snapshot, so
// other consumers of the same input remain unaffected (§4.5).
func (e *Engine) Submit(kind scheduler.TaskKind, nTiles int, indices []int, target *HandleFuture, kernel Kernel, inputs ...*HandleFuture) *HandleFuture {
	loc := e.sched.On(kind, nTiles, indices...)
	e.submitted.Add(1)
	f, resolve := future.New[manager.Handle]()
	e.group.Go(func() error {
		defer e.completed.Add(1)
		bufs := make([]tilebuf.Buffer, len(inputs))
		for i, in := range inputs {
			h, err := in.Await()
			if err != nil {
				resolve(manager.Handle{}, err)
				return err
			}
			buf, err := h.Buffer(loc, e.reg)
			if err != nil {
				resolve(manager.Handle{}, err)
				return err
			}
			bufs[i] = buf
		}

		result, err := kernel(bufs)
		if err != nil {
			werr := gprerrors.WrapErr(gprerrors.KindKernel, err, "dataflow: kernel failed")
			resolve(manager.Handle{}, werr)
			return werr
		}

		targetHandle, err := target.Await()
		if err != nil {
			resolve(manager.Handle{}, err)
			return err
		}
		next, err := targetHandle.Set(loc, e.reg, result).Await()
		if err != nil {
			resolve(manager.Handle{}, err)
			return err
		}
		resolve(next, nil)
		return nil
	})
	return f
}

// Resolved wraps an already-known handle as a completed future, the entry
// point for a DAG's initial (not-yet-written-by-this-run) tile handles.
func Resolved(h manager.Handle) *HandleFuture {
	return future.Resolved(h, nil)
}

// Progress reports how many tasks have been submitted to and completed by
// this engine so far, for a caller-driven progress display (see
// cmd/gpratsim's progress reporter, adapted from the teacher's in-place
// terminal progress bar). Submitted only ever grows monotonically across
// a DAG's construction; Completed catches up to it as tasks finish.
func (e *Engine) Progress() (submitted, completed int64) {
	return e.submitted.Load(), e.completed.Load()
}
