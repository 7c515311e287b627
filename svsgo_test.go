package svsgo

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vamanadb/svsgo/dispatch"
	"github.com/vamanadb/svsgo/distancer"
	"github.com/vamanadb/svsgo/lvq"
	"github.com/vamanadb/svsgo/vamana"
)

func randomVectors(n, dims int, seed int64) [][]float32 {
	r := rand.New(rand.NewSource(seed))
	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, dims)
		for j := range v {
			v[j] = r.Float32()
		}
		out[i] = v
	}
	return out
}

func TestBuildVamanaBuildsAndReloadsFromCache(t *testing.T) {
	dir := t.TempDir()
	vectors := randomVectors(150, 8, 11)
	cfg := StaticIndexConfig{
		MaxDegree:  16,
		WindowSize: 32,
		Alpha:      1.2,
		Distance:   distancer.NewL2SquaredProvider(),
	}

	idx, err := BuildVamana(context.Background(), dir, vectors, cfg)
	require.NoError(t, err)
	assert.Equal(t, len(vectors), idx.Size())

	reloaded, err := BuildVamana(context.Background(), dir, vectors, cfg)
	require.NoError(t, err)
	assert.Equal(t, idx.EntryPoint(), reloaded.EntryPoint())

	bufCfg, err := vamana.NewSearchBufferConfig(24, 24)
	require.NoError(t, err)
	results, err := reloaded.Search(context.Background(), vectors[0], 5, vamana.VamanaSearchParameters{BufferConfig: bufCfg})
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestBuildVamanaRejectsEmptyDataset(t *testing.T) {
	_, err := BuildVamana(context.Background(), t.TempDir(), nil, StaticIndexConfig{Distance: distancer.NewL2SquaredProvider()})
	assert.Error(t, err)
}

func TestNewDynamicScaledBiasedAddAndSearch(t *testing.T) {
	provider := distancer.NewL2SquaredProvider()
	strategy := lvq.Linear{}
	di := NewDynamicScaledBiased(8, 64, 8, strategy, provider, vamana.DefaultBuildParameters())

	vectors := randomVectors(20, 8, 3)
	ids := make([]uint64, len(vectors))
	for i := range ids {
		ids[i] = uint64(i + 1)
	}
	require.NoError(t, di.AddPoints(context.Background(), vectors, ids, false))

	got, err := di.Search(context.Background(), vectors[0], 3, vamana.DefaultVamanaSearchParameters())
	require.NoError(t, err)
	assert.NotEmpty(t, got)
}

// Confirms this package's init populates the process-wide dispatch table
// (spec §9 "a dispatcher table is populated by each backend calling
// register_target") rather than leaving it an unused, decorative data
// structure.
func TestInitRegistersCompressedDistanceKernels(t *testing.T) {
	registered := dispatch.Global.Registered()
	assert.Contains(t, registered, dispatch.Key{
		Dataset: dispatch.DatasetScaledBiased, Query: dispatch.QueryFloat32,
		Data: dispatch.DataUint8, Distance: dispatch.DistanceL2, Dimensions: dispatch.DynamicDim,
	})
	assert.Contains(t, registered, dispatch.Key{
		Dataset: dispatch.DatasetTwoLevel, Query: dispatch.QueryFloat32,
		Data: dispatch.DataUint8, Distance: dispatch.DistanceIP, Dimensions: dispatch.DynamicDim,
	})
}

// NewDynamicScaledBiased must resolve its fused compressed-distance kernel
// from dispatch.Global rather than silently falling back, for every metric
// this package registers.
func TestNewDynamicScaledBiasedResolvesKernelFromDispatch(t *testing.T) {
	fn := scaledBiasedCompressedDistance(distancer.NewL2SquaredProvider(), 8)
	key := dispatch.Key{Dataset: dispatch.DatasetScaledBiased, Query: dispatch.QueryFloat32, Data: dispatch.DataUint8, Distance: dispatch.DistanceL2, Dimensions: dispatch.DynamicDim}
	want, err := dispatch.Global.Lookup(key, true)
	require.NoError(t, err)
	wantFn, ok := want.(dispatch.CompressedDistance[lvq.ScaledBiasedVector])
	require.True(t, ok)

	sb, err := lvq.CompressOneLevel([]float32{1, 2, 3, 4, 5, 6, 7, 8}, 8, lvq.Linear{})
	require.NoError(t, err)
	query := []float32{1, 1, 1, 1, 1, 1, 1, 1}
	got, err := fn(query, sb)
	require.NoError(t, err)
	wantDist, err := wantFn(query, sb)
	require.NoError(t, err)
	assert.Equal(t, wantDist, got)
}

func TestNewDynamicScaledBiasedWithGlobalBiasAddAndSearch(t *testing.T) {
	dims := 8
	vectors := randomVectors(30, dims, 9)
	globalBias := lvq.ExtractGlobalBias(vectors)

	di := NewDynamicScaledBiasedWithGlobalBias(dims, 64, 8, lvq.Linear{}, distancer.NewL2BiasFixer(), globalBias, vamana.DefaultBuildParameters())

	ids := make([]uint64, len(vectors))
	for i := range ids {
		ids[i] = uint64(i + 1)
	}
	require.NoError(t, di.AddPoints(context.Background(), vectors, ids, false))

	got, err := di.Search(context.Background(), vectors[0], 3, vamana.DefaultVamanaSearchParameters())
	require.NoError(t, err)
	assert.NotEmpty(t, got)
}
