package distancer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vamanadb/svsgo/lvq"
)

func TestL2SquaredBasic(t *testing.T) {
	p := NewL2SquaredProvider()
	d, ok, err := p.SingleDist([]float32{1, 2, 3}, []float32{4, 6, 3})
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 9+16+0, d, 1e-6)
}

func TestDotProductNegated(t *testing.T) {
	p := NewDotProductProvider()
	d, ok, err := p.SingleDist([]float32{1, 2, 3}, []float32{1, 1, 1})
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, -6, d, 1e-6)
}

func TestCosineOrthogonal(t *testing.T) {
	p := NewCosineProvider()
	d, ok, err := p.SingleDist([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 0, d, 1e-6)
}

// S4 from spec §8: query=[1,2,3], data+bias=[2,3,4] with bias=[1,1,1],
// uncompressed L2 = 3. Compressing the bias-removed data and computing
// L2_biased yields 3 (within tolerance).
func TestBiasedDistanceScenarioS4(t *testing.T) {
	query := []float32{1, 2, 3}
	data := []float32{2, 3, 4}
	bias := []float32{1, 1, 1}

	p := NewL2SquaredProvider()
	uncompressedDist, _, err := p.SingleDist(query, data)
	require.NoError(t, err)
	assert.InDelta(t, 3, uncompressedDist, 1e-6)

	centered := make([]float32, len(data))
	for i := range data {
		centered[i] = data[i] - bias[i]
	}
	sb, err := compressNoisyOneLevel(centered)
	require.NoError(t, err)

	fixer := NewL2BiasFixer()
	fixer.FixArgument(query, bias)
	biasedDist, err := fixer.CompressedDistancer().DistanceToCompressed(sb)
	require.NoError(t, err)
	// 8-bit LVQ over the centered range [1,3] has a step of 2/255, so the
	// middle coordinate is off by up to one step; 1e-2 covers that error.
	assert.InDelta(t, 3, biasedDist, 1e-2)
}

func compressNoisyOneLevel(x []float32) (lvq.ScaledBiasedVector, error) {
	return lvq.CompressOneLevel(x, 8, lvq.Linear{})
}

// Property: L2(q, x+b) == L2_biased_over_bias(q, x) for random vectors,
// within tolerance, across many trials (spec §8 "Biased-distance
// equivalence").
func TestBiasedDistanceEquivalenceProperty(t *testing.T) {
	dims := 16
	bias := make([]float32, dims)
	for i := range bias {
		bias[i] = float32(i) * 0.3
	}

	p := NewL2SquaredProvider()
	for trial := 0; trial < 20; trial++ {
		query := make([]float32, dims)
		x := make([]float32, dims)
		for i := 0; i < dims; i++ {
			query[i] = float32((trial+i)%7) - 3
			x[i] = float32((trial*3+i)%11) - 5
		}
		dataPlusBias := make([]float32, dims)
		for i := range x {
			dataPlusBias[i] = x[i] + bias[i]
		}

		want, _, err := p.SingleDist(query, dataPlusBias)
		require.NoError(t, err)

		sb, err := lvq.CompressOneLevel(x, 8, lvq.Linear{})
		if err != nil {
			continue // zero-variance vector this trial, skip
		}
		fixer := NewL2BiasFixer()
		fixer.FixArgument(query, bias)
		got, err := fixer.CompressedDistancer().DistanceToCompressed(sb)
		require.NoError(t, err)

		assert.InDelta(t, want, got, float64(want)*1e-1+1e-1)
	}
}

// IP analog of TestBiasedDistanceScenarioS4: biased inner product must
// restore the same value as the unbiased provider run directly against
// data+bias, since inner product is not translation-invariant the way L2
// is and needs its own fixer path (IPBiasFixer).
func TestBiasedDistanceIP(t *testing.T) {
	query := []float32{1, 2, 3}
	data := []float32{2, 3, 4}
	bias := []float32{1, 1, 1}

	p := NewDotProductProvider()
	uncompressedDist, _, err := p.SingleDist(query, data)
	require.NoError(t, err)

	centered := make([]float32, len(data))
	for i := range data {
		centered[i] = data[i] - bias[i]
	}
	sb, err := compressNoisyOneLevel(centered)
	require.NoError(t, err)

	fixer := NewIPBiasFixer()
	fixer.FixArgument(query, bias)
	biasedDist, err := fixer.CompressedDistancer().DistanceToCompressed(sb)
	require.NoError(t, err)
	// Same 8-bit quantization step (2/255) as the L2 case above.
	assert.InDelta(t, uncompressedDist, biasedDist, 1e-2)
}

func TestDecompressionAdaptor(t *testing.T) {
	a := []float32{1, 2, 3, 4}
	b := []float32{1.1, 2.1, 2.9, 4.2}

	sbA, err := lvq.CompressOneLevel(a, 8, lvq.Linear{})
	require.NoError(t, err)
	sbB, err := lvq.CompressOneLevel(b, 8, lvq.Linear{})
	require.NoError(t, err)

	adaptor := NewDecompressionAdaptor(NewL2SquaredProvider())
	adaptor.FixArgument(sbA)
	got, err := adaptor.DistanceToCompressed(sbB)
	require.NoError(t, err)

	var want float32
	for i := 0; i < sbA.Dimensions(); i++ {
		d := sbA.Decode(i) - sbB.Decode(i)
		want += d * d
	}
	assert.InDelta(t, want, got, 1e-4)
}

func TestDecompressionAdaptorTwoLevel(t *testing.T) {
	a := []float32{1, 2, 3, 4, 5, 6, 7, 8}
	b := []float32{1.1, 2.1, 2.9, 4.2, 4.8, 6.3, 6.9, 8.1}

	tlA, err := lvq.CompressTwoLevel(a, 8, 4, lvq.Linear{})
	require.NoError(t, err)
	tlB, err := lvq.CompressTwoLevel(b, 8, 4, lvq.Linear{})
	require.NoError(t, err)

	adaptor := NewDecompressionAdaptor(NewL2SquaredProvider())
	adaptor.FixArgumentTwoLevel(tlA)
	got, err := adaptor.DistanceToTwoLevel(tlB)
	require.NoError(t, err)

	var want float32
	for i := 0; i < tlA.Dimensions(); i++ {
		d := tlA.Decode(i) - tlB.Decode(i)
		want += d * d
	}
	assert.InDelta(t, want, got, 1e-4)
}
