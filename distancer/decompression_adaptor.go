package distancer

import "github.com/vamanadb/svsgo/lvq"

// DecompressionAdaptor lets index construction, which needs distances
// between two compressed vectors, reuse an uncompressed-query kernel: it
// caches the decompressed left-hand side on FixArgument and then calls the
// uncompressed kernel against the (also decompressed) right-hand side
// (spec §4.3 "Decompression adaptor").
type DecompressionAdaptor struct {
	provider Provider
	left     []float32
	mean     []float32 // non-nil when the adaptor must restore the mean for biased IP
}

func NewDecompressionAdaptor(provider Provider) *DecompressionAdaptor {
	return &DecompressionAdaptor{provider: provider}
}

// NewBiasedDecompressionAdaptor restores the mean before fixing the
// argument so both sides are in the original space, per spec §4.3: "For
// the biased IP case, the adaptor restores the mean before fixing the
// argument so both sides are in the original space."
func NewBiasedDecompressionAdaptor(provider Provider, mean []float32) *DecompressionAdaptor {
	return &DecompressionAdaptor{provider: provider, mean: mean}
}

func (a *DecompressionAdaptor) FixArgument(lhs lvq.ScaledBiasedVector) {
	decoded := make([]float32, lhs.Dimensions())
	lhs.DecodeAll(decoded)
	if a.mean != nil {
		for i := range decoded {
			decoded[i] += a.mean[i]
		}
	}
	a.left = decoded
}

func (a *DecompressionAdaptor) FixArgumentTwoLevel(lhs lvq.TwoLevelVector) {
	decoded := make([]float32, lhs.Dimensions())
	lhs.DecodeAll(decoded)
	if a.mean != nil {
		for i := range decoded {
			decoded[i] += a.mean[i]
		}
	}
	a.left = decoded
}

// DistanceToCompressed decompresses rhs and calls the uncompressed kernel
// against the cached decompressed left-hand side.
func (a *DecompressionAdaptor) DistanceToCompressed(rhs lvq.ScaledBiasedVector) (float32, error) {
	decoded := make([]float32, rhs.Dimensions())
	rhs.DecodeAll(decoded)
	return a.distanceToDecoded(decoded)
}

// DistanceToTwoLevel decompresses rhs and calls the uncompressed kernel
// against the cached decompressed left-hand side, mirroring
// DistanceToCompressed for two-level vectors so DecompressionAdaptor
// satisfies CompressedDistancer for either dataset kind.
func (a *DecompressionAdaptor) DistanceToTwoLevel(rhs lvq.TwoLevelVector) (float32, error) {
	decoded := make([]float32, rhs.Dimensions())
	rhs.DecodeAll(decoded)
	return a.distanceToDecoded(decoded)
}

func (a *DecompressionAdaptor) distanceToDecoded(decoded []float32) (float32, error) {
	if a.mean != nil {
		for i := range decoded {
			decoded[i] += a.mean[i]
		}
	}
	d, _, err := a.provider.New(a.left).Distance(decoded)
	return d, err
}
