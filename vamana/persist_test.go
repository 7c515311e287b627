package vamana

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadIndexRoundTrip(t *testing.T) {
	vectors := randomDataset(120, 6, 31)
	idx := buildTestIndex(t, vectors)
	defaultSearch := VamanaSearchParameters{
		BufferConfig:      SearchBufferConfig{SearchWindowSize: 32, TotalCapacity: 32},
		PrefetchLookahead: 4,
		PrefetchStep:      1,
	}

	dir := filepath.Join(t.TempDir(), "index")
	require.NoError(t, Save(dir, idx, defaultSearch))

	loaded, search, err := LoadIndex(dir, Config{
		VectorForID: func(ctx context.Context, id uint64) ([]float32, error) { return vectors[id], nil },
		Distance:    squaredL2,
	})
	require.NoError(t, err)
	assert.Equal(t, idx.EntryPoint(), loaded.EntryPoint())
	assert.Equal(t, idx.Size(), loaded.Size())
	assert.Equal(t, defaultSearch.PrefetchLookahead, search.PrefetchLookahead)

	for id := 0; id < idx.Size(); id++ {
		assert.Equal(t, idx.Graph().Neighbors(uint64(id)), loaded.Graph().Neighbors(uint64(id)))
	}

	got, err := loaded.Search(context.Background(), vectors[0], 5, search)
	require.NoError(t, err)
	assert.NotEmpty(t, got)
}

func TestLoadIndexRejectsSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	_, _, err := LoadIndex(dir, Config{})
	assert.Error(t, err)
}
