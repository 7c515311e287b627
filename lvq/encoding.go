package lvq

import (
	"fmt"

	"github.com/pkg/errors"
)

// Signedness selects whether an Encoding's decoded range straddles zero.
type Signedness int

const (
	Unsigned Signedness = iota
	Signed
)

func (s Signedness) String() string {
	if s == Signed {
		return "signed"
	}
	return "unsigned"
}

// Encoding parameterizes a sub-byte integer codec by (signedness, bits),
// bits in [3,8]. A signed encoding of 7 bits or fewer applies a bias of
// 2^(bits-1) during Encode so the stored byte is zero-extended unsigned;
// 8-bit signed is stored as two's complement with no bias.
type Encoding struct {
	signedness Signedness
	bits       int
}

// NewEncoding validates bits is in [3,8] and returns the Encoding.
func NewEncoding(signedness Signedness, bits int) (Encoding, error) {
	if bits < 3 || bits > 8 {
		return Encoding{}, errors.Wrapf(ErrOutOfRange, "bits=%d must be in [3,8]", bits)
	}
	return Encoding{signedness: signedness, bits: bits}, nil
}

// MustNewEncoding panics on an invalid (signedness, bits) pair; for use in
// package-level tables where bits is a compile-time constant.
func MustNewEncoding(signedness Signedness, bits int) Encoding {
	e, err := NewEncoding(signedness, bits)
	if err != nil {
		panic(err)
	}
	return e
}

func (e Encoding) Signedness() Signedness { return e.signedness }
func (e Encoding) Bits() int              { return e.bits }

func (e Encoding) bias() int {
	if e.signedness == Signed && e.bits <= 7 {
		return 1 << uint(e.bits-1)
	}
	return 0
}

// Min is the smallest value this Encoding can represent.
func (e Encoding) Min() int {
	switch {
	case e.signedness == Unsigned:
		return 0
	case e.bits == 8:
		return -128
	default:
		return -(1 << uint(e.bits-1))
	}
}

// Max is the largest value this Encoding can represent.
func (e Encoding) Max() int {
	switch {
	case e.signedness == Unsigned:
		return (1 << uint(e.bits)) - 1
	case e.bits == 8:
		return 127
	default:
		return (1 << uint(e.bits-1)) - 1
	}
}

// AbsMax is the largest magnitude this Encoding can represent.
func (e Encoding) AbsMax() int {
	min, max := e.Min(), e.Max()
	if -min > max {
		return -min
	}
	return max
}

// CheckBounds reports whether v lies in [Min(),Max()].
func (e Encoding) CheckBounds(v int) bool {
	return v >= e.Min() && v <= e.Max()
}

// Encode maps v to its stored byte representation. Returns ErrOutOfRange if
// v cannot be represented.
func (e Encoding) Encode(v int) (byte, error) {
	if !e.CheckBounds(v) {
		return 0, errors.Wrapf(ErrOutOfRange, "value %d not in [%d,%d]", v, e.Min(), e.Max())
	}
	stored := v + e.bias()
	return byte(stored), nil
}

// Decode maps a stored byte back to its logical value.
func (e Encoding) Decode(b byte) int {
	if e.signedness == Signed && e.bits == 8 {
		return int(int8(b))
	}
	return int(b) - e.bias()
}

func (e Encoding) String() string {
	return fmt.Sprintf("%s%d", e.signedness, e.bits)
}
