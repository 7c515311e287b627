package threadpool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ErrgroupPool is the default ThreadPool, partitioning [0,n) into
// contiguous, roughly equal-sized chunks run concurrently via
// golang.org/x/sync/errgroup (teacher's direct dependency
// golang.org/x/sync, adopted here in place of a hand-rolled WaitGroup loop).
// fn reports no error, so every partition runs to completion and Run
// returns nil.
type ErrgroupPool struct {
	size int
}

// NewErrgroupPool builds a pool with `size` workers; size <= 0 defaults to
// runtime.GOMAXPROCS(0).
func NewErrgroupPool(size int) *ErrgroupPool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &ErrgroupPool{size: size}
}

func (p *ErrgroupPool) Size() int { return p.size }

func (p *ErrgroupPool) Run(ctx context.Context, n int, fn func(Partition)) error {
	if n <= 0 {
		return nil
	}
	workers := p.size
	if workers > n {
		workers = n
	}

	chunk := (n + workers - 1) / workers
	g, _ := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		start := w * chunk
		stop := start + chunk
		if stop > n {
			stop = n
		}
		if start >= stop {
			continue
		}
		partition := Partition{WorkerID: w, Start: start, Stop: stop}
		g.Go(func() error {
			fn(partition)
			return nil
		})
	}
	return g.Wait()
}
