// Package parallel implements the data-parallel "parallel-for" used by the cutting
// kernels. Work units are claimed dynamically from a shared atomic counter so that
// uneven slices or batches balance across workers. Every unit runs to completion
// on the goroutine that claimed it.
package parallel

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

// DefaultAbortInterval is the number of polls between queries of the context.
const DefaultAbortInterval = 64

// Config controls how work is scheduled.
type Config struct {
	// Sequential forces all work to run on the calling goroutine.
	Sequential bool
	// Workers is the maximum number of goroutines. Zero or negative selects runtime.NumCPU().
	Workers int
	// AbortInterval is the number of work units between context queries.
	// Zero selects DefaultAbortInterval.
	AbortInterval int
}

// NumWorkers returns the number of workers that would process n units of work.
func (cfg Config) NumWorkers(n int) int {
	if n <= 0 {
		return 0
	}
	if cfg.Sequential {
		return 1
	}
	w := cfg.Workers
	if w <= 0 {
		w = runtime.NumCPU()
	}
	return max(1, min(w, n))
}

// Abort is a cooperative cancellation flag shared by all workers of a computation.
// Workers call Poll once per work unit; only one in every interval polls actually
// queries the context, the rest read the shared flag.
type Abort struct {
	ctx      context.Context
	interval int64
	ticks    atomic.Int64
	flag     atomic.Bool
}

// NewAbort returns an Abort that queries ctx every interval polls.
// A nil ctx never aborts.
func NewAbort(ctx context.Context, interval int) *Abort {
	if interval <= 0 {
		interval = DefaultAbortInterval
	}
	ab := &Abort{ctx: ctx, interval: int64(interval)}
	if ctx != nil && ctx.Err() != nil {
		ab.flag.Store(true)
	}
	return ab
}

// Poll reports whether the computation should stop.
func (ab *Abort) Poll() bool {
	if ab == nil || ab.ctx == nil {
		return false
	} else if ab.flag.Load() {
		return true
	}
	if ab.ticks.Add(1)%ab.interval == 0 && ab.ctx.Err() != nil {
		ab.flag.Store(true)
	}
	return ab.flag.Load()
}

// Aborted reports whether Poll has ever observed a cancelled context.
func (ab *Abort) Aborted() bool {
	return ab != nil && ab.flag.Load()
}

// Err returns the context's error if the computation was aborted.
func (ab *Abort) Err() error {
	if !ab.Aborted() {
		return nil
	}
	return ab.ctx.Err()
}

// For calls fn for every i in [0,n) distributing calls over workers. fn receives the
// worker index in [0,workers) which callers use to address per-worker buffers.
// For returns once all claimed units have finished (a barrier) and reports the
// number of workers used. Units not yet claimed when ab is raised are skipped.
func For(cfg Config, ab *Abort, n int, fn func(worker, i int)) (workers int) {
	workers = cfg.NumWorkers(n)
	if workers == 0 {
		return 0
	}
	if workers == 1 {
		for i := 0; i < n; i++ {
			if ab.Poll() {
				break
			}
			fn(0, i)
		}
		return 1
	}
	var next atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		wid := w
		go func() {
			defer wg.Done()
			for {
				i := int(next.Add(1) - 1)
				if i >= n || ab.Poll() {
					return
				}
				fn(wid, i)
			}
		}()
	}
	wg.Wait()
	return workers
}

// ForRange splits [0,n) into contiguous chunks of at most grain units and calls fn
// once per chunk. It is useful when per-unit work is too small to schedule alone.
func ForRange(cfg Config, ab *Abort, n, grain int, fn func(worker, begin, end int)) (workers int) {
	if grain <= 0 {
		grain = 1
	}
	nchunks := (n + grain - 1) / grain
	return For(cfg, ab, nchunks, func(worker, chunk int) {
		begin := chunk * grain
		fn(worker, begin, min(begin+grain, n))
	})
}
