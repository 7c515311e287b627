package lvq

import "github.com/pkg/errors"

// CompressedVector is a non-owning view over a contiguous packed byte
// region: (data pointer, length, strategy). It must not outlive the
// storage it addresses (spec §3.3). Set writes through the view into that
// shared storage.
type CompressedVector struct {
	Data     []byte
	Length   int
	Encoding Encoding
	Strategy Strategy
}

// NewCompressedVector wraps an existing byte slice as a view; it does not
// copy data.
func NewCompressedVector(data []byte, length int, enc Encoding, strategy Strategy) CompressedVector {
	return CompressedVector{Data: data, Length: length, Encoding: enc, Strategy: strategy}
}

// AllocCompressedVector allocates fresh zeroed storage sized for `length`
// elements of `enc` under `strategy`.
func AllocCompressedVector(length int, enc Encoding, strategy Strategy) CompressedVector {
	data := make([]byte, strategy.StorageBytes(enc.Bits(), length))
	return CompressedVector{Data: data, Length: length, Encoding: enc, Strategy: strategy}
}

// Get decodes the logical value at index i.
func (v CompressedVector) Get(i int) int {
	raw := Get(v.Strategy, v.Data, v.Encoding.Bits(), v.Length, i)
	return v.Encoding.Decode(byte(raw))
}

// Set encodes value and stores it at logical index i. The view must be
// backed by storage the caller owns exclusively.
func (v CompressedVector) Set(value, i int) error {
	encoded, err := v.Encoding.Encode(value)
	if err != nil {
		return errors.Wrapf(err, "set index %d", i)
	}
	return Set(v.Strategy, v.Data, v.Encoding.Bits(), v.Length, i, uint32(encoded))
}

// Decode fills out[0:Length] with the decoded logical sequence.
func (v CompressedVector) Decode(out []int) {
	raw := make([]uint32, v.Length)
	BulkUnpack(v.Strategy, v.Data, v.Encoding.Bits(), v.Length, raw)
	for i, r := range raw {
		out[i] = v.Encoding.Decode(byte(r))
	}
}

// Equal reports logical equivalence per spec §3.1: same length, same
// (signedness,bits), same decoded sequence, regardless of packing strategy.
func (v CompressedVector) Equal(o CompressedVector) bool {
	if v.Length != o.Length {
		return false
	}
	if v.Encoding.Signedness() != o.Encoding.Signedness() || v.Encoding.Bits() != o.Encoding.Bits() {
		return false
	}
	return Equal(v.Strategy, v.Data, o.Strategy, o.Data, v.Encoding.Bits(), v.Length)
}
