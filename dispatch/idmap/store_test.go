package idmap

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.db")
	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	want := map[uint64]uint64{1: 10, 2: 20, 3: 30}
	require.NoError(t, store.Checkpoint(want))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCheckpointOverwritesPreviousSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.db")
	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Checkpoint(map[uint64]uint64{1: 1}))
	require.NoError(t, store.Checkpoint(map[uint64]uint64{2: 2}))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, map[uint64]uint64{2: 2}, got)
}
