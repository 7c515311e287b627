package lvq

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// GlobalBias is the result of mean-centering a dataset before compression
// (spec §4.2 "Global bias extraction"). Mean is the per-dimension mean of
// the dataset, computed with gonum/floats to match the teacher's numeric
// stack rather than a hand-rolled accumulation loop.
type GlobalBias struct {
	Mean []float32
}

// ExtractGlobalBias computes the per-dimension mean of vectors. The caller
// is expected to have already partitioned `vectors` across a ThreadPool for
// large datasets (spec §5: bulk operations parallelize over disjoint
// partitions); this is the single-partition reduction step.
func ExtractGlobalBias(vectors [][]float32) GlobalBias {
	if len(vectors) == 0 {
		return GlobalBias{}
	}
	dims := len(vectors[0])
	sum := make([]float64, dims)
	for _, v := range vectors {
		for i, x := range v {
			sum[i] += float64(x)
		}
	}
	floats.Scale(1/float64(len(vectors)), sum)
	mean := make([]float32, dims)
	for i, s := range sum {
		mean[i] = float32(s)
	}
	return GlobalBias{Mean: mean}
}

// Centered returns x - bias.Mean, allocating a new slice.
func (b GlobalBias) Centered(x []float32) []float32 {
	out := make([]float32, len(x))
	for i := range x {
		out[i] = x[i] - b.Mean[i]
	}
	return out
}

func roundHalfEven(x float32) float32 {
	floor := float32(int64(x))
	if x < 0 && x != floor {
		floor--
	}
	diff := x - floor
	switch {
	case diff < 0.5:
		return floor
	case diff > 0.5:
		return floor + 1
	default:
		if int64(floor)%2 == 0 {
			return floor
		}
		return floor + 1
	}
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CompressOneLevel produces a ScaledBiasedVector for x at bit width bits
// using per-vector min/max scaling (spec §4.2 item 2). strategy selects
// the packed layout of the primary level.
func CompressOneLevel(x []float32, bits int, strategy Strategy) (ScaledBiasedVector, error) {
	enc, err := NewEncoding(Unsigned, bits)
	if err != nil {
		return ScaledBiasedVector{}, err
	}

	min, max := x[0], x[0]
	for _, v := range x {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	var scale float32 = 1.0
	bias := min
	if max != min {
		scale = (max - min) / float32(enc.Max())
	} else {
		return ScaledBiasedVector{}, errors.Wrapf(ErrCompression,
			"zero-variance vector: all entries equal %g, degrade to scale=1,bias=%g", min, min)
	}

	packed := AllocCompressedVector(len(x), enc, strategy)
	for i, v := range x {
		q := roundHalfEven((v - bias) / scale)
		q = clamp(q, float32(enc.Min()), float32(enc.Max()))
		if err := packed.Set(int(q), i); err != nil {
			return ScaledBiasedVector{}, errors.Wrapf(err, "encode dim %d", i)
		}
	}

	return ScaledBiasedVector{
		Scale:  NewFloat16(scale),
		Bias:   NewFloat16(bias),
		Packed: packed,
	}, nil
}

// CompressDegenerate handles the zero-variance case explicitly (spec §4.2
// "Compression fails... in that case scale is set to 1.0 and bias to min
// so decoding returns bias for all entries"). Call this when
// CompressOneLevel returns ErrCompression and the caller wants the
// degraded-but-defined encoding instead of propagating the failure.
func CompressDegenerate(x []float32, bits int, strategy Strategy) ScaledBiasedVector {
	enc := MustNewEncoding(Unsigned, bits)
	packed := AllocCompressedVector(len(x), enc, strategy)
	// all entries decode to bias regardless of packed contents; leave zeroed.
	return ScaledBiasedVector{
		Scale:  NewFloat16(1.0),
		Bias:   NewFloat16(x[0]),
		Packed: packed,
	}
}

// CompressTwoLevel adds a signed residual of width R over a primary
// compressed with bits P (spec §4.2 item 3).
func CompressTwoLevel(x []float32, primaryBits, residualBits int, strategy Strategy) (TwoLevelVector, error) {
	primary, err := CompressOneLevel(x, primaryBits, strategy)
	if err != nil {
		if errors.Is(err, ErrCompression) {
			primary = CompressDegenerate(x, primaryBits, strategy)
		} else {
			return TwoLevelVector{}, err
		}
	}

	renc, err := NewEncoding(Signed, residualBits)
	if err != nil {
		return TwoLevelVector{}, err
	}
	step := primary.Scale.Float32() / float32(uint32(1)<<uint(residualBits))

	residual := AllocCompressedVector(len(x), renc, strategy)
	for i, v := range x {
		r := roundHalfEven((v - primary.Decode(i)) / step)
		r = clamp(r, float32(renc.Min()), float32(renc.Max()))
		if err := residual.Set(int(r), i); err != nil {
			return TwoLevelVector{}, errors.Wrapf(err, "encode residual dim %d", i)
		}
	}

	return TwoLevelVector{Primary: primary, Residual: residual}, nil
}

// CompressGlobalOneLevel uses dataset-wide min/max instead of per-vector
// (spec §4.2 item 4), yielding a single shared (scale,bias) pair for the
// whole dataset plus one packed vector per input.
func CompressGlobalOneLevel(vectors [][]float32, bits int, strategy Strategy) (scale, bias float32, packed []CompressedVector, err error) {
	enc, err := NewEncoding(Unsigned, bits)
	if err != nil {
		return 0, 0, nil, err
	}
	if len(vectors) == 0 {
		return 0, 0, nil, nil
	}

	min, max := vectors[0][0], vectors[0][0]
	for _, v := range vectors {
		for _, x := range v {
			if x < min {
				min = x
			}
			if x > max {
				max = x
			}
		}
	}
	bias = min
	if max == min {
		scale = 1.0
	} else {
		scale = (max - min) / float32(enc.Max())
	}

	packed = make([]CompressedVector, len(vectors))
	for vi, v := range vectors {
		cv := AllocCompressedVector(len(v), enc, strategy)
		for i, x := range v {
			q := roundHalfEven((x - bias) / scale)
			q = clamp(q, float32(enc.Min()), float32(enc.Max()))
			if serr := cv.Set(int(q), i); serr != nil {
				return 0, 0, nil, errors.Wrapf(serr, "vector %d dim %d", vi, i)
			}
		}
		packed[vi] = cv
	}
	return scale, bias, packed, nil
}
