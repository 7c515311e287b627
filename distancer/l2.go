package distancer

import (
	"github.com/pkg/errors"
	"github.com/vamanadb/svsgo/lvq"
)

var l2SquaredImpl func(a, b []float32) float32 = func(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += l2SquaredStepImpl(a[i], b[i])
	}
	return sum
}

var l2SquaredStepImpl func(a, b float32) float32 = func(a, b float32) float32 {
	diff := a - b
	return diff * diff
}

// L2Squared is a bound query awaiting an uncompressed right-hand vector,
// adapted from the teacher's L2Squared (same shape, same field name).
type L2Squared struct {
	a []float32
}

func (l L2Squared) Distance(b []float32) (float32, bool, error) {
	if len(l.a) != len(b) {
		return 0, false, errors.Errorf("vector lengths don't match: %d vs %d", len(l.a), len(b))
	}
	return l2SquaredImpl(l.a, b), true, nil
}

// CompressedL2 is a bound query awaiting a compressed right-hand vector.
// It reconstructs scale*packed+bias per dimension, fused with the L2 step,
// mirroring spec §4.3's "unpack -> reconstruct floats -> apply per-metric
// op -> accumulate" SIMD plan (expressed here as a scalar loop; dispatch
// selects any registered wide-kernel specialization for hot paths).
type CompressedL2 struct {
	a []float32
}

func (l CompressedL2) DistanceToCompressed(v lvq.ScaledBiasedVector) (float32, error) {
	if len(l.a) != v.Dimensions() {
		return 0, errors.Errorf("vector lengths don't match: %d vs %d", len(l.a), v.Dimensions())
	}
	var sum float32
	for i, q := range l.a {
		sum += l2SquaredStepImpl(q, v.Decode(i))
	}
	return sum, nil
}

func (l CompressedL2) DistanceToTwoLevel(v lvq.TwoLevelVector) (float32, error) {
	if len(l.a) != v.Dimensions() {
		return 0, errors.Errorf("vector lengths don't match: %d vs %d", len(l.a), v.Dimensions())
	}
	var sum float32
	for i, q := range l.a {
		sum += l2SquaredStepImpl(q, v.Decode(i))
	}
	return sum, nil
}

type L2SquaredProvider struct{}

func NewL2SquaredProvider() L2SquaredProvider { return L2SquaredProvider{} }

func (l L2SquaredProvider) SingleDist(a, b []float32) (float32, bool, error) {
	if len(a) != len(b) {
		return 0, false, errors.Errorf("vector lengths don't match: %d vs %d", len(a), len(b))
	}
	return l2SquaredImpl(a, b), true, nil
}

func (l L2SquaredProvider) Type() string { return "l2-squared" }

func (l L2SquaredProvider) New(a []float32) Distancer { return &L2Squared{a: a} }

func (l L2SquaredProvider) NewCompressed(a []float32) CompressedDistancer {
	return &CompressedL2{a: a}
}

func (l L2SquaredProvider) Step(x, y float32) float32 { return l2SquaredStepImpl(x, y) }

func (l L2SquaredProvider) Wrap(x float32) float32 { return x }
