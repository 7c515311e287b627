// Package dataset holds contiguous collections of compressed vectors with
// O(1) random access (spec §4.4, component C4): static per-vector,
// static global, and blocked (growable) variants, plus directory-based
// persistence (spec §6.1/§6.2).
package dataset

import "github.com/pkg/errors"

var (
	// ErrIndexOutOfRange is returned by GetDatum/SetDatum/EraseAt for an
	// out-of-bounds index.
	ErrIndexOutOfRange = errors.New("dataset: index out of range")
)

// Vector is the common reconstruction surface shared by
// lvq.ScaledBiasedVector and lvq.TwoLevelVector, letting Dataset be generic
// over either representation.
type Vector interface {
	Dimensions() int
	Decode(i int) float32
	DecodeAll(out []float32)
}

// Dataset is a size-N sequence of compressed vectors with uniform
// (bits, dimensions, strategy) (spec §3.1).
type Dataset[V Vector] interface {
	Size() int
	Dimensions() int
	GetDatum(i int) (V, error)
}

// MutableDataset additionally allows overwriting an existing slot in place
// (used when LVQ compression is refreshed for a single vector, e.g. after
// consolidate moves a live vector into a reused slot).
type MutableDataset[V Vector] interface {
	Dataset[V]
	SetDatum(i int, v V) error
}

// GrowableDataset is the blocked-dataset surface used by dynamic indices
// (spec §4.4 "Blocked" variant): append/erase/compact without
// renumbering other slots until an explicit compaction pass.
type GrowableDataset[V Vector] interface {
	MutableDataset[V]
	Append(v V) (id int)
	EraseAt(i int) error
	CompactInPlace(permutation []int) error
}
