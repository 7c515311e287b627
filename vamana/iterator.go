package vamana

import (
	"context"

	"github.com/pkg/errors"
)

// Schedule decides, for each batch iteration i (0-based), the search
// parameters to use and the maximum number of fresh (never-before-yielded)
// results the batch iterator should emit. Implementations must produce
// monotonically non-shrinking buffer configs across iterations.
type Schedule interface {
	ForIteration(i int) VamanaSearchParameters
	MaxCandidates(i int) int
}

// DefaultSchedule grows the buffer by a fixed batch size each iteration,
// yielding up to batch size fresh results per call.
type DefaultSchedule struct {
	Base      VamanaSearchParameters
	BatchSize int
}

func (s DefaultSchedule) ForIteration(i int) VamanaSearchParameters {
	p := s.Base
	growth := i * s.BatchSize
	p.BufferConfig.SearchWindowSize += growth
	p.BufferConfig.TotalCapacity += growth
	return p
}

func (s DefaultSchedule) MaxCandidates(i int) int { return s.BatchSize }

// LinearSchedule grows window and capacity by independent per-iteration
// deltas, and the yield quota by a base plus a per-iteration slope; it can
// also defer enabling the visited-id filter until construction has grown
// large enough that re-expanding already-seen ids dominates the cost of
// tracking them.
type LinearSchedule struct {
	Base               VamanaSearchParameters
	DeltaWindow        int
	DeltaCapacity      int
	BatchBase          int
	BatchSlope         int
	EnableVisitedAfter int // -1 disables
}

func NewLinearSchedule(base VamanaSearchParameters, deltaWindow, deltaCapacity, batchBase, batchSlope, enableVisitedAfter int) (LinearSchedule, error) {
	if deltaCapacity < deltaWindow {
		return LinearSchedule{}, errors.Wrap(ErrInvariantViolation, "delta_capacity must be >= delta_window")
	}
	return LinearSchedule{
		Base: base, DeltaWindow: deltaWindow, DeltaCapacity: deltaCapacity,
		BatchBase: batchBase, BatchSlope: batchSlope, EnableVisitedAfter: enableVisitedAfter,
	}, nil
}

func (s LinearSchedule) ForIteration(i int) VamanaSearchParameters {
	p := s.Base
	p.BufferConfig.SearchWindowSize += i * s.DeltaWindow
	p.BufferConfig.TotalCapacity += i * s.DeltaCapacity
	if s.EnableVisitedAfter >= 0 && i > s.EnableVisitedAfter {
		p.VisitedSet = true
	}
	return p
}

func (s LinearSchedule) MaxCandidates(i int) int { return s.BatchBase + s.BatchSlope*i }

// AbstractSchedule type-erases a Schedule behind plain function values, so
// callers can hold heterogeneous schedules (or swap one mid-iteration via
// Update) without a type switch. Copying it is cheap and safe.
type AbstractSchedule struct {
	forIteration  func(int) VamanaSearchParameters
	maxCandidates func(int) int
}

func WrapSchedule(s Schedule) AbstractSchedule {
	return AbstractSchedule{forIteration: s.ForIteration, maxCandidates: s.MaxCandidates}
}

func (a AbstractSchedule) ForIteration(i int) VamanaSearchParameters { return a.forIteration(i) }
func (a AbstractSchedule) MaxCandidates(i int) int                  { return a.maxCandidates(i) }

// BatchIterator yields search results in growing batches, reusing the
// underlying search buffer across calls to Next instead of restarting
// from the entry point each time (spec §4.5.2).
type BatchIterator struct {
	index      *Index
	query      []float32
	schedule   Schedule
	iteration  int
	buffer     *SearchBuffer
	results    []Neighbor
	yielded    map[uint64]bool
	done       bool
	restart    bool
}

// NewBatchIterator constructs an iterator and runs its first batch.
func NewBatchIterator(ctx context.Context, index *Index, query []float32, schedule Schedule) (*BatchIterator, error) {
	it := &BatchIterator{index: index, query: query, schedule: schedule, yielded: map[uint64]bool{}}
	if err := it.runIteration(ctx); err != nil {
		return nil, err
	}
	return it, nil
}

func (it *BatchIterator) runIteration(ctx context.Context) error {
	params := it.schedule.ForIteration(it.iteration)
	if it.iteration > 0 {
		prev := it.schedule.ForIteration(it.iteration - 1)
		if params.BufferConfig.TotalCapacity < prev.BufferConfig.TotalCapacity ||
			params.BufferConfig.SearchWindowSize < prev.BufferConfig.SearchWindowSize {
			return errors.Wrap(ErrInvariantViolation, "schedule must not shrink buffer_config across iterations")
		}
	}

	resume := it.buffer
	if it.restart {
		resume = nil
	}
	buf, _, err := it.index.greedySearch(ctx, it.query, params.BufferConfig, params.VisitedSet, resume)
	if err != nil {
		return err
	}
	it.buffer = buf
	it.restart = false

	maxCandidates := it.schedule.MaxCandidates(it.iteration)
	fresh := make([]Neighbor, 0, maxCandidates)
	for _, n := range buf.Best(buf.Len()) {
		if len(fresh) >= maxCandidates {
			break
		}
		if it.yielded[n.ID] {
			continue
		}
		it.yielded[n.ID] = true
		fresh = append(fresh, n)
	}
	it.results = fresh
	it.iteration++
	if len(fresh) == 0 || uint64(len(it.yielded)) >= it.index.cfg.VectorsSize {
		it.done = true
	}
	return nil
}

// Results returns the fresh candidates surfaced by the most recent Next
// (or the constructor's implicit first call).
func (it *BatchIterator) Results() []Neighbor { return it.results }

// Done reports whether the iterator has exhausted the dataset or a batch
// produced no new candidates.
func (it *BatchIterator) Done() bool { return it.done }

// Next advances to the next batch. A no-op once Done.
func (it *BatchIterator) Next(ctx context.Context) error {
	if it.done {
		return nil
	}
	return it.runIteration(ctx)
}

// RestartNextSearch discards cached search state so the next Next call
// restarts greedy search from the entry point rather than resuming.
func (it *BatchIterator) RestartNextSearch() { it.restart = true }

// Update retargets the iterator at a new query (and optionally a new
// schedule), resetting iteration state and running the first batch under
// the new query. On failure the iterator is left exactly as it was before
// Update was called (strong exception safety).
func (it *BatchIterator) Update(ctx context.Context, query []float32, schedule ...Schedule) error {
	snapshot := *it
	it.query = query
	if len(schedule) > 0 {
		it.schedule = schedule[0]
	}
	it.iteration = 0
	it.buffer = nil
	it.yielded = map[uint64]bool{}
	it.results = nil
	it.done = false
	it.restart = true

	if err := it.runIteration(ctx); err != nil {
		*it = snapshot
		return err
	}
	return nil
}
