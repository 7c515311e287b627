// Package threadpool defines the scheduling boundary the core relies on
// for parallel bulk operations (compression, batch search, index
// construction), per spec §5: "Parallel OS threads via an externally
// provided thread pool." The core runs its parallel loops through a
// ThreadPool; vamana.New falls back to an ErrgroupPool when the caller
// supplies none.
package threadpool

import "context"

// Partition describes one disjoint slice of work: indices [Start,Stop) of
// a larger range being processed concurrently by Size() workers.
type Partition struct {
	WorkerID int
	Start    int
	Stop     int
}

// ThreadPool runs fn once per partition of [0,n), across Size() workers.
// Implementations must not retain fn after Run returns.
type ThreadPool interface {
	Size() int
	Run(ctx context.Context, n int, fn func(p Partition)) error
}
