package lvq

import "github.com/pkg/errors"

// Strategy determines the byte layout of a dimension-indexed sequence of
// bits-wide encoded values. Every Strategy supplies the logical<->linear
// index permutation used to address individual fields, plus a bulk-unpack
// path intended to mirror a SIMD gather in a systems implementation (this
// pure-Go module walks it scalar; no accelerated variant exists).
type Strategy interface {
	Name() string
	// StorageBytes returns the number of bytes needed to store `length`
	// bits-wide fields under this layout.
	StorageBytes(bits, length int) int
	LogicalToLinear(length, i int) int
	LinearToLogical(length, i int) int
	// Get/Set operate in linear (on-disk) index space.
	getLinear(data []byte, bits, linear int) uint32
	setLinear(data []byte, bits, linear int, v uint32) error
}

// Linear is the identity packing: element i occupies bits [i*bits,(i+1)*bits)
// of the flat byte stream.
type Linear struct{}

func (Linear) Name() string { return "linear" }

func (Linear) StorageBytes(bits, length int) int {
	return (bits*length + 7) / 8
}

func (Linear) LogicalToLinear(_, i int) int { return i }
func (Linear) LinearToLogical(_, i int) int { return i }

func (Linear) getLinear(data []byte, bits, linear int) uint32 {
	return readBits(data, linear*bits, bits)
}

func (Linear) setLinear(data []byte, bits, linear int, v uint32) error {
	writeBits(data, linear*bits, bits, v)
	return nil
}

// Interleaved partitions the sequence into blocks of L*E logical elements.
// Within a block, lane k in [0,L) holds elements at logical positions
// k, k+L, k+2L, ..., k+(E-1)L, packed contiguously (lane-major) into a
// bits*E-bit lane word. A block occupies bits*L*E/8 bytes; (L,E,bits) of
// (16,4,8) and (16,8,4) each give a 64-byte (one cache line) block.
type Interleaved struct {
	L, E int
}

func NewInterleaved(lanes, elementsPerLane int) Interleaved {
	return Interleaved{L: lanes, E: elementsPerLane}
}

func (s Interleaved) blockLen() int { return s.L * s.E }

func (s Interleaved) Name() string { return "interleaved" }

func (s Interleaved) StorageBytes(bits, length int) int {
	blockLen := s.blockLen()
	numBlocks := (length + blockLen - 1) / blockLen
	return numBlocks * blockLen * bits / 8
}

// LogicalToLinear maps logical index i to its linear (byte-stream) slot:
// within the owning block, lane k = (i mod blockLen) mod L, slot e =
// (i mod blockLen) div L; linear position is lane-major: k*E + e.
func (s Interleaved) LogicalToLinear(_, i int) int {
	blockLen := s.blockLen()
	block := i / blockLen
	p := i % blockLen
	k := p % s.L
	e := p / s.L
	return block*blockLen + k*s.E + e
}

func (s Interleaved) LinearToLogical(_, j int) int {
	blockLen := s.blockLen()
	block := j / blockLen
	local := j % blockLen
	k := local / s.E
	e := local % s.E
	return block*blockLen + k + e*s.L
}

func (s Interleaved) getLinear(data []byte, bits, linear int) uint32 {
	return readBits(data, linear*bits, bits)
}

func (s Interleaved) setLinear(data []byte, bits, linear int, v uint32) error {
	writeBits(data, linear*bits, bits, v)
	return nil
}

// Get reads the logical element i (in [0,length)) under strategy s.
func Get(s Strategy, data []byte, bits, length, i int) uint32 {
	return s.getLinear(data, bits, s.LogicalToLinear(length, i))
}

// Set writes value v to logical element i, returning ErrOutOfRange if v
// cannot be represented in `bits` bits.
func Set(s Strategy, data []byte, bits, length, i int, v uint32) error {
	if v >= 1<<uint(bits) {
		return errors.Wrapf(ErrOutOfRange, "value %d does not fit in %d bits", v, bits)
	}
	return s.setLinear(data, bits, s.LogicalToLinear(length, i), v)
}

// BulkUnpack fills out[0:length] with the scalar-unpacked logical sequence.
// Equivalent to calling Get for every i in [0,length); a systems
// implementation would instead issue a single wide load of a cache-line
// block and fan it out with shift+mask, see spec's "SIMD unpacking".
func BulkUnpack(s Strategy, data []byte, bits, length int, out []uint32) {
	for i := 0; i < length; i++ {
		out[i] = Get(s, data, bits, length, i)
	}
}

// Equal reports whether two packed sequences of the same (bits,length)
// decode to the same values, regardless of packing strategy. Linear-Linear
// reduces to a byte-range memcmp; any other combination falls back to
// element-wise comparison.
func Equal(sa Strategy, a []byte, sb Strategy, b []byte, bits, length int) bool {
	if _, aLinear := sa.(Linear); aLinear {
		if _, bLinear := sb.(Linear); bLinear {
			n := sa.StorageBytes(bits, length)
			if len(a) < n || len(b) < n {
				return false
			}
			for i := 0; i < n; i++ {
				if a[i] != b[i] {
					return false
				}
			}
			return true
		}
	}
	for i := 0; i < length; i++ {
		if Get(sa, a, bits, length, i) != Get(sb, b, bits, length, i) {
			return false
		}
	}
	return true
}
