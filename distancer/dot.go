package distancer

import (
	"github.com/pkg/errors"
	"github.com/vamanadb/svsgo/lvq"
)

var dotImpl func(a, b []float32) float32 = func(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// DotProduct is a bound query awaiting an uncompressed right-hand vector.
// Like the teacher's L2 implementation, distance is reported as the
// negated dot product so smaller is always "closer" across providers.
type DotProduct struct {
	a []float32
}

func (d DotProduct) Distance(b []float32) (float32, bool, error) {
	if len(d.a) != len(b) {
		return 0, false, errors.Errorf("vector lengths don't match: %d vs %d", len(d.a), len(b))
	}
	return -dotImpl(d.a, b), true, nil
}

// CompressedDot reconstructs scale*packed+bias per dimension fused with
// the inner-product accumulation.
type CompressedDot struct {
	a []float32
}

func (d CompressedDot) DistanceToCompressed(v lvq.ScaledBiasedVector) (float32, error) {
	if len(d.a) != v.Dimensions() {
		return 0, errors.Errorf("vector lengths don't match: %d vs %d", len(d.a), v.Dimensions())
	}
	var sum float32
	for i, q := range d.a {
		sum += q * v.Decode(i)
	}
	return -sum, nil
}

func (d CompressedDot) DistanceToTwoLevel(v lvq.TwoLevelVector) (float32, error) {
	if len(d.a) != v.Dimensions() {
		return 0, errors.Errorf("vector lengths don't match: %d vs %d", len(d.a), v.Dimensions())
	}
	var sum float32
	for i, q := range d.a {
		sum += q * v.Decode(i)
	}
	return -sum, nil
}

type DotProductProvider struct{}

func NewDotProductProvider() DotProductProvider { return DotProductProvider{} }

func (d DotProductProvider) SingleDist(a, b []float32) (float32, bool, error) {
	if len(a) != len(b) {
		return 0, false, errors.Errorf("vector lengths don't match: %d vs %d", len(a), len(b))
	}
	return -dotImpl(a, b), true, nil
}

func (d DotProductProvider) Type() string { return "dot" }

func (d DotProductProvider) New(a []float32) Distancer { return &DotProduct{a: a} }

func (d DotProductProvider) NewCompressed(a []float32) CompressedDistancer {
	return &CompressedDot{a: a}
}

func (d DotProductProvider) Step(x, y float32) float32 { return x * y }

func (d DotProductProvider) Wrap(x float32) float32 { return -x }
