package dispatch

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/refmatch/pkg/refmatch/rows"
)

const (
	// DefaultWorkers caps the pool size
	DefaultWorkers = 8
	// DefaultProgressEvery is the completion cadence of progress events
	DefaultProgressEvery = 10
)

// numCPU is swapped in tests to force the parallel path on small machines.
var numCPU = runtime.NumCPU

// ProgressFunc receives (percent, completed, total). Calls are serialized.
type ProgressFunc func(percent float64, completed, total int)

// Task produces the result for reference row i.
type Task func(ctx context.Context, i int) (rows.Result, error)

// Dispatcher fans tasks out over a bounded worker pool and falls back to a
// sequential pass when the parallel pass fails.
type Dispatcher struct {
	Workers       int
	ProgressEvery int
	Logger        *zap.SugaredLogger
}

// New creates a dispatcher. Zero values select the defaults; a nil logger
// discards output.
func New(workers, progressEvery int, logger *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		Workers:       workers,
		ProgressEvery: progressEvery,
		Logger:        logger,
	}
}

func (d *Dispatcher) logger() *zap.SugaredLogger {
	if d.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return d.Logger
}

// WorkerCount returns the effective pool size: the configured cap, never
// more than the number of logical CPUs.
func (d *Dispatcher) WorkerCount() int {
	w := d.Workers
	if w <= 0 {
		w = DefaultWorkers
	}
	return max(1, min(w, numCPU()))
}

// Run executes task for rows [0, total) and returns results in row order.
// Cancellation aborts without fallback and without further progress events.
// Any other parallel failure discards partial results and reruns everything
// sequentially; a sequential failure is returned.
func (d *Dispatcher) Run(ctx context.Context, total int, task Task, progress ProgressFunc) ([]rows.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if total <= 0 {
		return []rows.Result{}, nil
	}

	workers := d.WorkerCount()
	if workers > 1 && total > 1 {
		results, err := d.runParallel(ctx, total, workers, task, progress)
		if err == nil {
			return results, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		d.logger().Warnw("parallel dispatch failed, falling back to sequential",
			"error", err,
			"rows", total,
			"workers", workers,
		)
	}

	return d.runSequential(ctx, total, task, progress)
}

func (d *Dispatcher) runParallel(ctx context.Context, total, workers int, task Task, progress ProgressFunc) ([]rows.Result, error) {
	results := make([]rows.Result, total)
	rep := newReporter(ctx, total, d.ProgressEvery, progress)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < total; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := safeCall(gctx, task, i)
			if err != nil {
				return err
			}
			results[i] = res
			rep.done()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (d *Dispatcher) runSequential(ctx context.Context, total int, task Task, progress ProgressFunc) ([]rows.Result, error) {
	results := make([]rows.Result, total)
	rep := newReporter(ctx, total, d.ProgressEvery, progress)

	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := safeCall(ctx, task, i)
		if err != nil {
			return nil, err
		}
		results[i] = res
		rep.done()
	}
	return results, nil
}

// safeCall turns a panicking task into an error.
func safeCall(ctx context.Context, task Task, i int) (res rows.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("row %d: panic: %v", i, r)
		}
	}()
	res, err = task(ctx, i)
	if err != nil {
		err = fmt.Errorf("row %d: %w", i, err)
	}
	return res, err
}

type reporter struct {
	mu        sync.Mutex
	ctx       context.Context
	completed int
	total     int
	every     int
	fn        ProgressFunc
}

func newReporter(ctx context.Context, total, every int, fn ProgressFunc) *reporter {
	if every <= 0 {
		every = DefaultProgressEvery
	}
	return &reporter{ctx: ctx, total: total, every: every, fn: fn}
}

func (r *reporter) done() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.completed++
	if r.fn == nil || r.ctx.Err() != nil {
		return
	}
	if r.completed%r.every == 0 || r.completed == r.total {
		r.fn(float64(r.completed)/float64(r.total)*100, r.completed, r.total)
	}
}
