package dataset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vamanadb/svsgo/lvq"
)

func sampleVectors(n, dims int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, dims)
		for j := range v {
			v[j] = float32((i*7+j*3)%23) - 11
		}
		out[i] = v
	}
	return out
}

func compressAll(t *testing.T, raw [][]float32, bits int) []lvq.ScaledBiasedVector {
	t.Helper()
	out := make([]lvq.ScaledBiasedVector, len(raw))
	for i, v := range raw {
		sb, err := lvq.CompressOneLevel(v, bits, lvq.Linear{})
		require.NoError(t, err)
		out[i] = sb
	}
	return out
}

func TestStaticGetSetDatum(t *testing.T) {
	raw := sampleVectors(10, 8)
	vectors := compressAll(t, raw, 8)
	ds, err := NewStatic(vectors)
	require.NoError(t, err)
	assert.Equal(t, 10, ds.Size())
	assert.Equal(t, 8, ds.Dimensions())

	got, err := ds.GetDatum(3)
	require.NoError(t, err)
	assert.Equal(t, vectors[3], got)

	_, err = ds.GetDatum(100)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestBlockedAppendEraseCompact(t *testing.T) {
	b := NewBlocked[lvq.ScaledBiasedVector](4, 0)
	raw := sampleVectors(10, 8)
	vectors := compressAll(t, raw, 8)
	for _, v := range vectors {
		b.Append(v)
	}
	require.Equal(t, 10, b.Size())

	require.NoError(t, b.EraseAt(2))
	require.NoError(t, b.EraseAt(5))

	// permutation has one entry per current slot; -1 marks a tombstoned
	// slot to drop, otherwise it's the order-preserving new index (spec §9
	// open-question resolution).
	permutation := []int{0, 1, -1, 2, 3, -1, 4, 5, 6, 7}
	require.NoError(t, b.CompactInPlace(permutation))

	liveSrc := []int{0, 1, 3, 4, 6, 7, 8, 9}
	assert.Equal(t, len(liveSrc), b.Size())
	for dst, src := range liveSrc {
		got, err := b.GetDatum(dst)
		require.NoError(t, err)
		assert.Equal(t, vectors[src], got)
	}
}

func TestSaveLoadScaledBiasedRoundTrip(t *testing.T) {
	raw := sampleVectors(20, 16)
	vectors := compressAll(t, raw, 6)
	ds, err := NewStatic(vectors)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "dataset")
	require.NoError(t, SaveScaledBiased(dir, ds))

	loaded, err := LoadScaledBiased(dir)
	require.NoError(t, err)
	assert.Equal(t, ds.Size(), loaded.Size())
	assert.Equal(t, ds.Dimensions(), loaded.Dimensions())

	for i := 0; i < ds.Size(); i++ {
		want, _ := ds.GetDatum(i)
		got, _ := loaded.GetDatum(i)
		assert.Equal(t, want.Scale, got.Scale)
		assert.Equal(t, want.Bias, got.Bias)
		for d := 0; d < ds.Dimensions(); d++ {
			assert.InDelta(t, want.Decode(d), got.Decode(d), 1e-6)
		}
	}
}

func TestSaveLoadTwoLevelRoundTrip(t *testing.T) {
	raw := sampleVectors(12, 12)
	vectors := make([]lvq.TwoLevelVector, len(raw))
	for i, v := range raw {
		tv, err := lvq.CompressTwoLevel(v, 8, 4, lvq.NewInterleaved(16, 4))
		require.NoError(t, err)
		vectors[i] = tv
	}
	ds, err := NewStatic(vectors)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "dataset2")
	require.NoError(t, SaveTwoLevel(dir, ds))

	loaded, err := LoadTwoLevel(dir)
	require.NoError(t, err)
	require.Equal(t, ds.Size(), loaded.Size())
	for i := 0; i < ds.Size(); i++ {
		want, _ := ds.GetDatum(i)
		got, _ := loaded.GetDatum(i)
		for d := 0; d < ds.Dimensions(); d++ {
			assert.InDelta(t, want.Decode(d), got.Decode(d), 1e-6)
		}
	}
}

func TestStaticGlobalDataset(t *testing.T) {
	raw := sampleVectors(6, 4)
	scale, bias, packed, err := lvq.CompressGlobalOneLevel(raw, 8, lvq.Linear{})
	require.NoError(t, err)
	ds, err := NewStaticGlobal(packed, scale, bias)
	require.NoError(t, err)

	for i, want := range raw {
		v, err := ds.GetDatum(i)
		require.NoError(t, err)
		for d, wantVal := range want {
			assert.InDelta(t, wantVal, v.Decode(d), float64(scale))
		}
	}
}
