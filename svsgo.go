// Package svsgo is the top-level facade: the entry points a caller reaches
// for first, tying the codec (lvq), distance kernels (distancer), dataset
// containers (dataset), graph search (vamana), and the dynamic index
// lifecycle (dispatch) together. Everything here is a thin composition of
// those packages' own constructors; it adds no behavior of its own.
package svsgo

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/pkg/errors"

	"github.com/vamanadb/svsgo/dispatch"
	"github.com/vamanadb/svsgo/distancer"
	"github.com/vamanadb/svsgo/lvq"
	"github.com/vamanadb/svsgo/threadpool"
	"github.com/vamanadb/svsgo/vamana"
)

// StaticIndexConfig configures BuildVamana.
type StaticIndexConfig struct {
	MaxDegree  int
	WindowSize int
	Alpha      float32
	Distance   distancer.Provider
	Pool       threadpool.ThreadPool
}

// BuildVamana builds a static Vamana graph over vectors, or loads it from
// dir if a matching artifact was already persisted there -- the same
// cache-by-configuration convention as the teacher's diskAnn.BuildVamana,
// generalized from a fixed product-quantized codec to any uncompressed
// []float32 dataset plus a pluggable distancer.Provider.
func BuildVamana(ctx context.Context, dir string, vectors [][]float32, cfg StaticIndexConfig) (*vamana.Index, error) {
	if len(vectors) == 0 {
		return nil, errors.New("svsgo: BuildVamana requires at least one vector")
	}
	if cfg.Distance == nil {
		return nil, errors.New("svsgo: StaticIndexConfig.Distance is required")
	}
	dims := len(vectors[0])
	completePath := fmt.Sprintf("%s/%d.vamana-r%d-l%d-a%.1f", dir, len(vectors), cfg.MaxDegree, cfg.WindowSize, cfg.Alpha)

	pool := cfg.Pool
	if pool == nil {
		pool = threadpool.NewErrgroupPool(0)
	}
	indexCfg := vamana.Config{
		Build:       vamana.BuildParameters{MaxDegree: cfg.MaxDegree, WindowSize: cfg.WindowSize, Alpha: cfg.Alpha},
		Dimensions:  dims,
		VectorsSize: uint64(len(vectors)),
		VectorForID: func(ctx context.Context, id uint64) ([]float32, error) { return vectors[id], nil },
		Distance: func(a, b []float32) float32 {
			d, _, _ := cfg.Distance.SingleDist(a, b)
			return d
		},
		Pool: pool,
	}

	if _, err := os.Stat(completePath); err == nil {
		if idx, _, loadErr := vamana.LoadIndex(completePath, indexCfg); loadErr == nil {
			return idx, nil
		}
	}

	idx, err := vamana.New(indexCfg)
	if err != nil {
		return nil, err
	}
	if err := idx.Build(ctx); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "mkdir %s", dir)
	}
	if err := vamana.Save(completePath, idx, vamana.DefaultVamanaSearchParameters()); err != nil {
		return nil, errors.Wrapf(err, "save built index to %s", completePath)
	}
	return idx, nil
}

// NewDynamicScaledBiased opens a mutable, one-level LVQ-compressed Vamana
// index: compression and the distance function are both derived from
// provider, matching how the dataset/distancer packages bind a single
// distancer.Provider to a codec elsewhere in this module. Search and
// construction compare against dataset-resident compressed vectors
// directly through distancer.CompressedDistancer (resolved via
// dispatch.Global when a kernel was registered for provider's metric,
// falling back to provider.NewCompressed otherwise), rather than decoding
// every candidate to []float32 first.
func NewDynamicScaledBiased(dims, blockSize, bits int, strategy lvq.Strategy, provider distancer.Provider, buildParams vamana.BuildParameters) *dispatch.DynamicIndex[lvq.ScaledBiasedVector] {
	compress := func(raw []float32) (lvq.ScaledBiasedVector, error) {
		return lvq.CompressOneLevel(raw, bits, strategy)
	}
	distance := func(a, b []float32) float32 {
		d, _, _ := provider.SingleDist(a, b)
		return d
	}
	idx := dispatch.NewDynamicIndex[lvq.ScaledBiasedVector](dims, blockSize, compress, distance, buildParams)
	idx.SetCompressedDistance(scaledBiasedCompressedDistance(provider, dims))
	return idx
}

// NewDynamicScaledBiasedWithGlobalBias is NewDynamicScaledBiased over a
// dataset that was mean-centered before compression: compress subtracts
// globalBias.Mean per spec §4.2, and the fused search/construction path
// runs queries through fixer (FixArgument against globalBias.Mean, then
// CompressedDistancer) instead of provider.NewCompressed directly, so the
// reconstructed distance accounts for the removed mean (spec §4.3 "Biased
// distance").
func NewDynamicScaledBiasedWithGlobalBias(dims, blockSize, bits int, strategy lvq.Strategy, fixer distancer.BiasFixer, globalBias lvq.GlobalBias, buildParams vamana.BuildParameters) *dispatch.DynamicIndex[lvq.ScaledBiasedVector] {
	compress := func(raw []float32) (lvq.ScaledBiasedVector, error) {
		return lvq.CompressOneLevel(globalBias.Centered(raw), bits, strategy)
	}
	// Each call gets its own ShallowCopy of fixer: medoid computation and
	// other pool-parallel passes call Distance/CompressedDistance from
	// multiple goroutines, and FixArgument mutates the fixer's cached
	// query state, so callers can't safely share one fixer across them
	// (spec §3.3/§9 "per-thread mutable state only via explicit
	// shallow_copy").
	distance := func(a, b []float32) float32 {
		sb, err := lvq.CompressOneLevel(globalBias.Centered(b), bits, strategy)
		if err != nil {
			return float32(math.Inf(1))
		}
		threadFixer := fixer.ShallowCopy()
		threadFixer.FixArgument(a, globalBias.Mean)
		dist, _ := threadFixer.CompressedDistancer().DistanceToCompressed(sb)
		return dist
	}
	idx := dispatch.NewDynamicIndex[lvq.ScaledBiasedVector](dims, blockSize, compress, distance, buildParams)
	idx.SetCompressedDistance(func(left []float32, v lvq.ScaledBiasedVector) (float32, error) {
		threadFixer := fixer.ShallowCopy()
		threadFixer.FixArgument(left, globalBias.Mean)
		return threadFixer.CompressedDistancer().DistanceToCompressed(v)
	})
	return idx
}

// NewDynamicTwoLevel opens a mutable, two-level (primary + residual) LVQ-
// compressed Vamana index. Search and construction compare against
// dataset-resident compressed vectors directly, the same as
// NewDynamicScaledBiased.
func NewDynamicTwoLevel(dims, blockSize, primaryBits, residualBits int, strategy lvq.Strategy, provider distancer.Provider, buildParams vamana.BuildParameters) *dispatch.DynamicIndex[lvq.TwoLevelVector] {
	compress := func(raw []float32) (lvq.TwoLevelVector, error) {
		return lvq.CompressTwoLevel(raw, primaryBits, residualBits, strategy)
	}
	distance := func(a, b []float32) float32 {
		d, _, _ := provider.SingleDist(a, b)
		return d
	}
	idx := dispatch.NewDynamicIndex[lvq.TwoLevelVector](dims, blockSize, compress, distance, buildParams)
	idx.SetCompressedDistance(twoLevelCompressedDistance(provider, dims))
	return idx
}
