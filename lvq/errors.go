package lvq

import "github.com/pkg/errors"

// Sentinel errors matching the taxonomy every package in this module draws
// from. Wrap with errors.Wrapf to attach context; test with errors.Is.
var (
	ErrOutOfRange       = errors.New("lvq: value out of range for encoding")
	ErrDimensionMismatch = errors.New("lvq: dimension mismatch")
	ErrCompression      = errors.New("lvq: compression failed")
)
