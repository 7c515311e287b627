package lvq

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compression monotonicity (spec §8): for one-level compression with
// target recall 1.0 and one vector, reconstructed error is bounded by
// scale (half the maximum quantization step).
func TestCompressOneLevelErrorBound(t *testing.T) {
	x := []float32{0.1, 5.3, -2.7, 9.9, 0.0, -9.9}
	sb, err := CompressOneLevel(x, 8, Linear{})
	require.NoError(t, err)

	scale := sb.Scale.Float32()
	for i, want := range x {
		got := sb.Decode(i)
		assert.LessOrEqualf(t, math.Abs(float64(got-want)), float64(scale),
			"dim %d: |%.4f - %.4f| should be <= scale %.4f", i, got, want, scale)
	}
}

func TestCompressOneLevelZeroVarianceFails(t *testing.T) {
	x := []float32{3, 3, 3, 3}
	_, err := CompressOneLevel(x, 8, Linear{})
	require.Error(t, err)

	degraded := CompressDegenerate(x, 8, Linear{})
	assert.InDelta(t, 1.0, degraded.Scale.Float32(), 1e-6)
	for i := range x {
		assert.InDelta(t, 3.0, degraded.Decode(i), 1e-2)
	}
}

func TestCompressTwoLevelRefinesError(t *testing.T) {
	x := make([]float32, 32)
	for i := range x {
		x[i] = float32(i)*0.37 - 5.1
	}
	one, err := CompressOneLevel(x, 8, Linear{})
	require.NoError(t, err)
	two, err := CompressTwoLevel(x, 8, 4, Linear{})
	require.NoError(t, err)

	var oneErr, twoErr float64
	for i, want := range x {
		oneErr += math.Abs(float64(one.Decode(i) - want))
		twoErr += math.Abs(float64(two.Decode(i) - want))
	}
	assert.LessOrEqual(t, twoErr, oneErr, "two-level residual should not increase total error")
}

func TestExtractGlobalBias(t *testing.T) {
	vectors := [][]float32{
		{1, 2, 3},
		{3, 4, 5},
		{5, 6, 7},
	}
	bias := ExtractGlobalBias(vectors)
	assert.InDeltaSlice(t, []float32{3, 4, 5}, bias.Mean, 1e-6)

	centered := bias.Centered(vectors[0])
	assert.InDeltaSlice(t, []float32{-2, -2, -2}, centered, 1e-6)
}

func TestCompressGlobalOneLevel(t *testing.T) {
	vectors := [][]float32{
		{0, 10},
		{5, 5},
		{10, 0},
	}
	scale, bias, packed, err := CompressGlobalOneLevel(vectors, 8, Linear{})
	require.NoError(t, err)
	assert.Equal(t, float32(0), bias)
	assert.Greater(t, scale, float32(0))
	require.Len(t, packed, 3)
	for vi, v := range vectors {
		for i, want := range v {
			got := scale*float32(packed[vi].Get(i)) + bias
			assert.InDelta(t, want, got, float64(scale))
		}
	}
}

func TestFloat16RoundTrip(t *testing.T) {
	values := []float32{0, 1, -1, 0.5, -0.5, 3.14159, -123.456, 65504, -65504}
	for _, v := range values {
		f := NewFloat16(v)
		got := f.Float32()
		assert.InDelta(t, v, got, math.Abs(float64(v))*0.001+0.01)
	}
}
