// Package distancer computes similarity between an uncompressed query and
// either an uncompressed or LVQ-compressed vector. The Distancer/Provider
// split (a per-query stateful Distancer built from a Provider) is adapted
// from the teacher's adapters/repos/db/vector/hnsw/distancer package, kept
// verbatim in shape and generalized to also reconstruct from
// lvq.ScaledBiasedVector / lvq.TwoLevelVector.
package distancer

import "github.com/vamanadb/svsgo/lvq"

// Distancer holds a fixed left-hand query and computes distance against a
// varying right-hand uncompressed vector.
type Distancer interface {
	Distance(b []float32) (float32, bool, error)
}

// CompressedDistancer computes distance against a compressed
// ScaledBiasedVector, as produced during index construction and search.
type CompressedDistancer interface {
	DistanceToCompressed(v lvq.ScaledBiasedVector) (float32, error)
	DistanceToTwoLevel(v lvq.TwoLevelVector) (float32, error)
}

// Provider is a distance metric family: L2, inner product, cosine. New
// binds a query and returns a Distancer against uncompressed data;
// NewCompressed binds a query and returns a CompressedDistancer.
type Provider interface {
	SingleDist(a, b []float32) (float32, bool, error)
	Type() string
	New(a []float32) Distancer
	NewCompressed(a []float32) CompressedDistancer
	// Step and Wrap let callers fuse the per-dimension metric operator into
	// a tight unpack loop (spec §4.3 "SIMD plan" step 3) without importing
	// the full Provider just for one coefficient.
	Step(x, y float32) float32
	Wrap(x float32) float32
}

// BiasFixer caches query-side state derived from a dataset-wide mean that
// was subtracted at compression time (spec §4.2 global bias extraction,
// §4.3 "Biased distance"). FixArgument must be called once per query
// before any DistanceToCompressed/DistanceToTwoLevel call; it is not
// thread-safe, matching the spec's "per-thread mutable state only via
// explicit shallow_copy" ownership rule (spec §3.3, §9).
type BiasFixer interface {
	FixArgument(query []float32, mean []float32)
	ShallowCopy() BiasFixer
	// CompressedDistancer returns a CompressedDistancer bound to the query
	// fixed by the most recent FixArgument call.
	CompressedDistancer() CompressedDistancer
}
