package dataset

import (
	"github.com/pkg/errors"
	"github.com/vamanadb/svsgo/lvq"
)

// GlobalVector decodes using a dataset-wide (scale,bias) pair rather than
// per-vector parameters (spec §4.4 "Static global").
type GlobalVector struct {
	Scale, Bias float32
	Packed      lvq.CompressedVector
}

func (v GlobalVector) Dimensions() int { return v.Packed.Length }

func (v GlobalVector) Decode(i int) float32 {
	return v.Scale*float32(v.Packed.Get(i)) + v.Bias
}

func (v GlobalVector) DecodeAll(out []float32) {
	raw := make([]uint32, v.Packed.Length)
	lvq.BulkUnpack(v.Packed.Strategy, v.Packed.Data, v.Packed.Encoding.Bits(), v.Packed.Length, raw)
	for i, r := range raw {
		out[i] = v.Scale*float32(r) + v.Bias
	}
}

// StaticGlobal is the "static global" dataset variant: one contiguous
// blob of packed vectors sharing a single (scale,bias) pair.
type StaticGlobal struct {
	packed      []lvq.CompressedVector
	scale, bias float32
	dims        int
}

func NewStaticGlobal(packed []lvq.CompressedVector, scale, bias float32) (*StaticGlobal, error) {
	dims := 0
	if len(packed) > 0 {
		dims = packed[0].Length
	}
	for i, p := range packed {
		if p.Length != dims {
			return nil, errors.Errorf("vector %d has %d dimensions, want %d", i, p.Length, dims)
		}
	}
	return &StaticGlobal{packed: packed, scale: scale, bias: bias, dims: dims}, nil
}

func (s *StaticGlobal) Size() int       { return len(s.packed) }
func (s *StaticGlobal) Dimensions() int { return s.dims }

func (s *StaticGlobal) GetDatum(i int) (GlobalVector, error) {
	if i < 0 || i >= len(s.packed) {
		return GlobalVector{}, errors.Wrapf(ErrIndexOutOfRange, "index %d, size %d", i, len(s.packed))
	}
	return GlobalVector{Scale: s.scale, Bias: s.bias, Packed: s.packed[i]}, nil
}

func (s *StaticGlobal) SetDatum(i int, v GlobalVector) error {
	if i < 0 || i >= len(s.packed) {
		return errors.Wrapf(ErrIndexOutOfRange, "index %d, size %d", i, len(s.packed))
	}
	s.packed[i] = v.Packed
	return nil
}

func (s *StaticGlobal) ScaleBias() (scale, bias float32) { return s.scale, s.bias }
