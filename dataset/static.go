package dataset

import "github.com/pkg/errors"

// Static is the "static per-vector" dataset variant (spec §4.4): one
// contiguous collection of compressed vectors, each with its own scale and
// bias already embedded in V (lvq.ScaledBiasedVector / TwoLevelVector
// carry their own per-vector parameters). Size is constant after
// construction.
type Static[V Vector] struct {
	vectors []V
	dims    int
}

// NewStatic wraps an existing slice of compressed vectors. All vectors
// must share the same Dimensions().
func NewStatic[V Vector](vectors []V) (*Static[V], error) {
	dims := 0
	if len(vectors) > 0 {
		dims = vectors[0].Dimensions()
	}
	for i, v := range vectors {
		if v.Dimensions() != dims {
			return nil, errors.Errorf("vector %d has %d dimensions, want %d", i, v.Dimensions(), dims)
		}
	}
	return &Static[V]{vectors: vectors, dims: dims}, nil
}

func (s *Static[V]) Size() int       { return len(s.vectors) }
func (s *Static[V]) Dimensions() int { return s.dims }

func (s *Static[V]) GetDatum(i int) (V, error) {
	var zero V
	if i < 0 || i >= len(s.vectors) {
		return zero, errors.Wrapf(ErrIndexOutOfRange, "index %d, size %d", i, len(s.vectors))
	}
	return s.vectors[i], nil
}

func (s *Static[V]) SetDatum(i int, v V) error {
	if i < 0 || i >= len(s.vectors) {
		return errors.Wrapf(ErrIndexOutOfRange, "index %d, size %d", i, len(s.vectors))
	}
	if v.Dimensions() != s.dims {
		return errors.Errorf("dimension mismatch: got %d, want %d", v.Dimensions(), s.dims)
	}
	s.vectors[i] = v
	return nil
}
