package distancer

import (
	"github.com/pkg/errors"

	"github.com/vamanadb/svsgo/lvq"
)

// L2BiasFixer implements BiasFixer for L2: fix_argument(q) stores
// q' = q - mean; the compressed compute then uses q' against a plain L2
// kernel (spec §4.3 "Biased distance").
type L2BiasFixer struct {
	Fixed    []float32
	provider L2SquaredProvider
}

func NewL2BiasFixer() *L2BiasFixer {
	return &L2BiasFixer{provider: NewL2SquaredProvider()}
}

func (f *L2BiasFixer) FixArgument(query, mean []float32) {
	fixed := make([]float32, len(query))
	for i := range query {
		fixed[i] = query[i] - mean[i]
	}
	f.Fixed = fixed
}

func (f *L2BiasFixer) ShallowCopy() BiasFixer {
	return &L2BiasFixer{provider: f.provider}
}

// CompressedDistancer returns a CompressedDistancer bound to the fixed
// query; callers must have called FixArgument first.
func (f *L2BiasFixer) CompressedDistancer() CompressedDistancer {
	return f.provider.NewCompressed(f.Fixed)
}

// IPBiasFixer implements BiasFixer for inner product: fix_argument(q)
// stores q.mean; the compressed compute returns q.mean + q.d_compressed
// (spec §4.3).
type IPBiasFixer struct {
	Query      []float32
	DotMean    float32
	provider   DotProductProvider
}

func NewIPBiasFixer() *IPBiasFixer {
	return &IPBiasFixer{provider: NewDotProductProvider()}
}

func (f *IPBiasFixer) FixArgument(query, mean []float32) {
	var dot float32
	for i := range query {
		dot += query[i] * mean[i]
	}
	f.Query = query
	f.DotMean = dot
}

func (f *IPBiasFixer) ShallowCopy() BiasFixer {
	return &IPBiasFixer{provider: f.provider}
}

// CompressedDistancer returns a CompressedDistancer bound to the query and
// dataset mean fixed by the most recent FixArgument call. Unlike L2,
// inner product is not translation-invariant, so this can't reuse a plain
// CompressedDot the way L2BiasFixer reuses CompressedL2 -- the returned
// distancer instead folds DotMean back in per spec §4.3:
// dist_original(q,x) = dist_modified(q,x-mean) = q.mean + q.(x-mean).
func (f *IPBiasFixer) CompressedDistancer() CompressedDistancer {
	return &biasedIPDistancer{query: f.Query, dotMean: f.DotMean}
}

// biasedIPDistancer computes the biased inner-product distance against a
// dataset vector that was mean-centered at compression time, reconstructing
// scale*packed+bias per dimension fused with the accumulation, the same way
// CompressedDot does for the unbiased case.
type biasedIPDistancer struct {
	query   []float32
	dotMean float32
}

func (d *biasedIPDistancer) DistanceToCompressed(v lvq.ScaledBiasedVector) (float32, error) {
	if len(d.query) != v.Dimensions() {
		return 0, errors.Errorf("vector lengths don't match: %d vs %d", len(d.query), v.Dimensions())
	}
	var sum float32
	for i, q := range d.query {
		sum += q * v.Decode(i)
	}
	return -(d.dotMean + sum), nil
}

func (d *biasedIPDistancer) DistanceToTwoLevel(v lvq.TwoLevelVector) (float32, error) {
	if len(d.query) != v.Dimensions() {
		return 0, errors.Errorf("vector lengths don't match: %d vs %d", len(d.query), v.Dimensions())
	}
	var sum float32
	for i, q := range d.query {
		sum += q * v.Decode(i)
	}
	return -(d.dotMean + sum), nil
}
