package vamana

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vamanadb/svsgo/threadpool"
)

func TestBuildShardedProducesSearchableIndex(t *testing.T) {
	vectors := randomDataset(240, 6, 55)
	cfg := Config{
		Build:       BuildParameters{MaxDegree: 16, WindowSize: 32, Alpha: 1.2},
		Dimensions:  len(vectors[0]),
		VectorsSize: uint64(len(vectors)),
		VectorForID: func(ctx context.Context, id uint64) ([]float32, error) {
			return vectors[id], nil
		},
		Distance: squaredL2,
		Pool:     threadpool.NewErrgroupPool(4),
	}
	idx, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, idx.BuildSharded(context.Background(), 4, 2))
	assert.Less(t, idx.EntryPoint(), uint64(len(vectors)))

	bufCfg, err := NewSearchBufferConfig(48, 48)
	require.NoError(t, err)
	got, err := idx.Search(context.Background(), vectors[0], 5, VamanaSearchParameters{BufferConfig: bufCfg})
	require.NoError(t, err)
	assert.NotEmpty(t, got)
}
