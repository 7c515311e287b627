package vamana

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// CalibrationContext distinguishes a from-scratch parameter sweep against
// held-out training queries from a narrower tune-up against a live test
// set, where only accuracy-preserving adjustments (growing the search
// window) are acceptable.
type CalibrationContext int

const (
	InitialTraining CalibrationContext = iota
	TestSetTuneUp
)

// CalibrationTarget names the recall@k this search configuration must
// achieve, and the query/groundtruth pairs used to measure it.
type CalibrationTarget struct {
	K           int
	RecallAtK   float64
	Queries     [][]float32
	Groundtruth [][]uint64
}

// CalibrationReport summarizes the chosen parameters and the latency
// observed achieving them, over Trials repeated timed runs (reported as
// both the mean and the minimum, the latter being the better estimate of
// steady-state per-query cost once warm).
type CalibrationReport struct {
	Parameters  VamanaSearchParameters
	AchievedAt  float64
	MeanLatency float64
	MinLatency  float64
}

// Calibrate binary-searches search_window_size over [1, maxWindow] for the
// smallest value achieving the target recall. secondaryGrid is not swept:
// a non-empty grid is only checked against the context, and passing one
// from TestSetTuneUp raises ErrCalibrationContext.
func Calibrate(ctx context.Context, idx *Index, target CalibrationTarget, calCtx CalibrationContext, maxWindow int, secondaryGrid []int) (CalibrationReport, error) {
	if calCtx != InitialTraining && len(secondaryGrid) > 0 {
		return CalibrationReport{}, errors.Wrap(ErrCalibrationContext,
			"secondary parameter sweep is only permitted during initial training")
	}

	lo, hi := 1, maxWindow
	best := -1
	var bestRecall float64
	for lo <= hi {
		mid := (lo + hi) / 2
		params := VamanaSearchParameters{
			BufferConfig:      SearchBufferConfig{SearchWindowSize: mid, TotalCapacity: mid},
			PrefetchLookahead: 4,
			PrefetchStep:      1,
		}
		recall, err := measureRecall(ctx, idx, target, params)
		if err != nil {
			return CalibrationReport{}, err
		}
		if idx.cfg.Metrics != nil {
			idx.cfg.Metrics.CalibrationIterations.Inc()
		}
		if recall >= target.RecallAtK {
			best, bestRecall = mid, recall
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}
	if best == -1 {
		return CalibrationReport{}, errors.Errorf(
			"vamana: no window size up to %d achieves recall@%d >= %.4f", maxWindow, target.K, target.RecallAtK)
	}

	chosen := VamanaSearchParameters{
		BufferConfig:      SearchBufferConfig{SearchWindowSize: best, TotalCapacity: best},
		PrefetchLookahead: 4,
		PrefetchStep:      1,
	}
	const trials = 5
	latencies := make([]float64, 0, trials*len(target.Queries))
	for t := 0; t < trials; t++ {
		for _, q := range target.Queries {
			d, err := timedSearch(ctx, idx, q, target.K, chosen)
			if err != nil {
				return CalibrationReport{}, err
			}
			latencies = append(latencies, d)
		}
	}

	return CalibrationReport{
		Parameters:  chosen,
		AchievedAt:  bestRecall,
		MeanLatency: stat.Mean(latencies, nil),
		MinLatency:  floats.Min(latencies),
	}, nil
}

func measureRecall(ctx context.Context, idx *Index, target CalibrationTarget, params VamanaSearchParameters) (float64, error) {
	if len(target.Queries) == 0 {
		return 0, errors.New("vamana: calibration target has no queries")
	}
	var hits, total int
	for i, q := range target.Queries {
		results, err := idx.Search(ctx, q, target.K, params)
		if err != nil {
			return 0, err
		}
		truth := make(map[uint64]bool, len(target.Groundtruth[i]))
		for _, id := range target.Groundtruth[i] {
			truth[id] = true
		}
		for _, r := range results {
			if truth[r.ID] {
				hits++
			}
		}
		total += target.K
	}
	return float64(hits) / float64(total), nil
}

func timedSearch(ctx context.Context, idx *Index, query []float32, k int, params VamanaSearchParameters) (float64, error) {
	start := time.Now()
	if _, err := idx.Search(ctx, query, k, params); err != nil {
		return 0, err
	}
	return time.Since(start).Seconds(), nil
}
