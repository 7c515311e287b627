package svsgo

import (
	"github.com/vamanadb/svsgo/dispatch"
	"github.com/vamanadb/svsgo/distancer"
	"github.com/vamanadb/svsgo/lvq"
)

// init populates dispatch.Global with every L2/IP/cosine x scaled-biased/
// two-level compressed-distance kernel this module ships, dimension-
// agnostic, at the generic tier -- this repo has no hand-written AVX2/
// AVX512 assembly kernels, so TierGeneric is the only tier any of these
// register under; a backend that adds SIMD-specialized kernels later
// would register those same keys again at TierAVX2/TierAVX512 (spec §9:
// "at process start, a dispatcher table is populated by each backend
// calling register_target").
func init() {
	for _, p := range []distancer.Provider{
		distancer.NewL2SquaredProvider(),
		distancer.NewDotProductProvider(),
		distancer.NewCosineProvider(),
	} {
		kind, ok := distanceKindFor(p)
		if !ok {
			continue
		}
		p := p
		dispatch.Global.Register(
			dispatch.Key{Dataset: dispatch.DatasetScaledBiased, Query: dispatch.QueryFloat32, Data: dispatch.DataUint8, Distance: kind, Dimensions: dispatch.DynamicDim},
			dispatch.TierGeneric,
			dispatch.Kernel(dispatch.CompressedDistance[lvq.ScaledBiasedVector](func(left []float32, v lvq.ScaledBiasedVector) (float32, error) {
				return p.NewCompressed(left).DistanceToCompressed(v)
			})),
		)
		dispatch.Global.Register(
			dispatch.Key{Dataset: dispatch.DatasetTwoLevel, Query: dispatch.QueryFloat32, Data: dispatch.DataUint8, Distance: kind, Dimensions: dispatch.DynamicDim},
			dispatch.TierGeneric,
			dispatch.Kernel(dispatch.CompressedDistance[lvq.TwoLevelVector](func(left []float32, v lvq.TwoLevelVector) (float32, error) {
				return p.NewCompressed(left).DistanceToTwoLevel(v)
			})),
		)
	}
}

// distanceKindFor maps a distancer.Provider to the DistanceKind its
// kernels should register under; providers this module doesn't ship a
// DistanceKind for are left unregistered rather than guessed at.
func distanceKindFor(p distancer.Provider) (dispatch.DistanceKind, bool) {
	switch p.Type() {
	case "l2-squared":
		return dispatch.DistanceL2, true
	case "dot":
		return dispatch.DistanceIP, true
	case "cosine":
		return dispatch.DistanceCosine, true
	default:
		return "", false
	}
}

// scaledBiasedCompressedDistance resolves the registered compressed-
// distance kernel for (scaled-biased, kind, dims) through dispatch.Global,
// falling back to building one directly from provider when nothing was
// registered for it (e.g. a caller-supplied Provider this package doesn't
// know the DistanceKind for).
func scaledBiasedCompressedDistance(provider distancer.Provider, dims int) dispatch.CompressedDistance[lvq.ScaledBiasedVector] {
	if kind, ok := distanceKindFor(provider); ok {
		key := dispatch.Key{Dataset: dispatch.DatasetScaledBiased, Query: dispatch.QueryFloat32, Data: dispatch.DataUint8, Distance: kind, Dimensions: dims}
		if k, err := dispatch.Global.Lookup(key, true); err == nil {
			if fn, ok := k.(dispatch.CompressedDistance[lvq.ScaledBiasedVector]); ok {
				return fn
			}
		}
	}
	return func(left []float32, v lvq.ScaledBiasedVector) (float32, error) {
		return provider.NewCompressed(left).DistanceToCompressed(v)
	}
}

// twoLevelCompressedDistance is scaledBiasedCompressedDistance's two-level
// counterpart.
func twoLevelCompressedDistance(provider distancer.Provider, dims int) dispatch.CompressedDistance[lvq.TwoLevelVector] {
	if kind, ok := distanceKindFor(provider); ok {
		key := dispatch.Key{Dataset: dispatch.DatasetTwoLevel, Query: dispatch.QueryFloat32, Data: dispatch.DataUint8, Distance: kind, Dimensions: dims}
		if k, err := dispatch.Global.Lookup(key, true); err == nil {
			if fn, ok := k.(dispatch.CompressedDistance[lvq.TwoLevelVector]); ok {
				return fn
			}
		}
	}
	return func(left []float32, v lvq.TwoLevelVector) (float32, error) {
		return provider.NewCompressed(left).DistanceToTwoLevel(v)
	}
}
