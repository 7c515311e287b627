package bench

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func TestRegisterLookupAndDuplicatePanics(t *testing.T) {
	name := "test_entry_point_dup"
	defer func() {
		registryMu.Lock()
		delete(registry, name)
		registryMu.Unlock()
	}()

	Register(name, func(raw toml.Primitive, meta *toml.MetaData) (any, error) { return nil, nil })
	assert.Contains(t, Registered(), name)

	_, err := Lookup(name)
	require.NoError(t, err)

	assert.Panics(t, func() {
		Register(name, func(raw toml.Primitive, meta *toml.MetaData) (any, error) { return nil, nil })
	})
}

func TestLookupMissingEntryPoint(t *testing.T) {
	_, err := Lookup("no_such_entry_point")
	assert.Error(t, err)
}

func TestVamanaBuildAndSearchJobRoundTrip(t *testing.T) {
	dir := t.TempDir()
	base := randomVectors(200, 8, 7)
	queries := randomVectors(5, 8, 9)

	paths := map[string][][]float32{
		"base.bin":    base,
		"queries.bin": queries,
	}
	prevLoader := Loader
	Loader = func(path string, dims int) ([][]float32, error) { return paths[filepath.Base(path)], nil }
	defer func() { Loader = prevLoader }()

	savePath := filepath.Join(dir, "index")
	inputPath := filepath.Join(dir, "jobs.toml")
	outputPath := filepath.Join(dir, "results.toml")

	buildJob := VamanaBuildJob{
		Schema:     SchemaVamanaBuildJob,
		DataPath:   "base.bin",
		SavePath:   savePath,
		Dimensions: 8,
		Metric:     "l2",
		MaxDegree:  16,
		WindowSize: 32,
		Alpha:      1.2,
		NumThreads: 2,
	}
	searchJob := VamanaSearchJob{
		Schema:      SchemaVamanaSearchJob,
		IndexPath:   savePath,
		DataPath:    "base.bin",
		Metric:      "l2",
		QueriesPath: "queries.bin",
		K:           5,
		State: VamanaState{
			Schema:               SchemaVamanaState,
			SearchWindowSize:     32,
			SearchBufferCapacity: 32,
			PrefetchLookahead:    4,
			PrefetchStep:         1,
			NumThreads:           2,
		},
	}

	input := struct {
		Jobs map[string]struct {
			EntryPoint string      `toml:"entry_point"`
			Job        interface{} `toml:"job"`
		} `toml:"jobs"`
	}{
		Jobs: map[string]struct {
			EntryPoint string      `toml:"entry_point"`
			Job        interface{} `toml:"job"`
		}{
			"build": {EntryPoint: "vamana_static_build", Job: buildJob},
			"search": {EntryPoint: "vamana_static_search", Job: searchJob},
		},
	}

	f, err := os.Create(inputPath)
	require.NoError(t, err)
	require.NoError(t, toml.NewEncoder(f).Encode(input))
	require.NoError(t, f.Close())

	require.NoError(t, RunJobFile(inputPath, outputPath))

	var out map[string]resultRecord
	_, err = toml.DecodeFile(outputPath, &out)
	require.NoError(t, err)

	require.Contains(t, out, "build")
	require.Contains(t, out, "search")
	assert.False(t, out["search"].StartTime.After(out["search"].StopTime))
	assert.NotNil(t, out["search"].Result)
}

func TestVamanaCompressedBuildJobRunsFusedPath(t *testing.T) {
	dir := t.TempDir()
	base := randomVectors(120, 8, 13)

	prevLoader := Loader
	Loader = func(path string, dims int) ([][]float32, error) { return base, nil }
	defer func() { Loader = prevLoader }()

	inputPath := filepath.Join(dir, "jobs.toml")
	outputPath := filepath.Join(dir, "results.toml")

	job := VamanaCompressedBuildJob{
		Schema:     SchemaVamanaCompressedBuildJob,
		DataPath:   "base.bin",
		Dimensions: 8,
		Metric:     "l2",
		Bits:       8,
		MaxDegree:  16,
		WindowSize: 32,
		Alpha:      1.2,
		BlockSize:  32,
	}

	input := struct {
		Jobs map[string]struct {
			EntryPoint string      `toml:"entry_point"`
			Job        interface{} `toml:"job"`
		} `toml:"jobs"`
	}{
		Jobs: map[string]struct {
			EntryPoint string      `toml:"entry_point"`
			Job        interface{} `toml:"job"`
		}{
			"build": {EntryPoint: "vamana_compressed_build", Job: job},
		},
	}

	f, err := os.Create(inputPath)
	require.NoError(t, err)
	require.NoError(t, toml.NewEncoder(f).Encode(input))
	require.NoError(t, f.Close())

	require.NoError(t, RunJobFile(inputPath, outputPath))

	var out map[string]resultRecord
	_, err = toml.DecodeFile(outputPath, &out)
	require.NoError(t, err)

	require.Contains(t, out, "build")
	assert.NotNil(t, out["build"].Result)
}

func TestUnimplementedIndexFamilyEntryPointsFailClosed(t *testing.T) {
	ep, err := Lookup("ivf_static_build")
	require.NoError(t, err)
	_, err = ep(toml.Primitive{}, &toml.MetaData{})
	assert.Error(t, err)
}
