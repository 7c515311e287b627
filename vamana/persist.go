package vamana

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

func f32bits(f float32) uint32      { return math.Float32bits(f) }
func f32fromBits(b uint32) float32 { return math.Float32frombits(b) }

// SchemaGraphIndex is the __schema__ tag a persisted Vamana index carries.
const SchemaGraphIndex = "vamana_graph_index"

// Pre-v0.0.1 configs predate the prefetch fields and the persisted
// default search parameters; Load fills them in with the original
// implementation's defaults rather than failing closed.
const (
	versionV000 = "v0.0.0"
	versionV001 = "v0.0.1"
	SaveVersion = versionV001
)

// persistedConfig is the svs_config.toml payload for a Vamana index.
type persistedConfig struct {
	Schema     string `toml:"__schema__"`
	Version    string `toml:"__version__"`
	Dimensions int    `toml:"dimensions"`
	Length     int    `toml:"length"`
	MaxDegree  int    `toml:"max_degree"`
	WindowSize int    `toml:"window_size"`
	Alpha      float32 `toml:"alpha"`
	EntryPoint uint64 `toml:"entry_point"`

	// Search parameters; absent (zero Version) in pre-v0.0.1 configs.
	SearchWindowSize  int `toml:"search_window_size,omitempty"`
	SearchCapacity    int `toml:"search_buffer_capacity,omitempty"`
	VisitedSet        bool `toml:"visited_set,omitempty"`
	PrefetchLookahead int `toml:"prefetch_lookahead,omitempty"`
	PrefetchStep      int `toml:"prefetch_step,omitempty"`
}

func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	stem := filepath.Base(path)
	tmp := filepath.Join(dir, stem+"_"+uuid.NewString()+"_temp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, "write temp file %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "rename %s -> %s", tmp, path)
	}
	return nil
}

// Save persists the graph, entry point, build parameters, and the given
// default search parameters to dir as svs_config.toml + graph.bin.
func Save(dir string, idx *Index, defaultSearch VamanaSearchParameters) error {
	if idx.graph == nil {
		return errors.New("vamana: cannot persist an unbuilt index")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "mkdir %s", dir)
	}

	cfg := persistedConfig{
		Schema:            SchemaGraphIndex,
		Version:           SaveVersion,
		Dimensions:        idx.cfg.Dimensions,
		Length:            idx.graph.Size(),
		MaxDegree:         idx.graph.KMax,
		WindowSize:        idx.cfg.Build.WindowSize,
		Alpha:             idx.cfg.Build.Alpha,
		EntryPoint:        idx.entryPoint,
		SearchWindowSize:  defaultSearch.BufferConfig.SearchWindowSize,
		SearchCapacity:    defaultSearch.BufferConfig.TotalCapacity,
		VisitedSet:        defaultSearch.VisitedSet,
		PrefetchLookahead: defaultSearch.PrefetchLookahead,
		PrefetchStep:      defaultSearch.PrefetchStep,
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return errors.Wrap(err, "encode toml")
	}
	if err := atomicWriteFile(filepath.Join(dir, "svs_config.toml"), buf.Bytes()); err != nil {
		return err
	}

	var graphData bytes.Buffer
	for id := 0; id < idx.graph.Size(); id++ {
		edges := idx.graph.Neighbors(uint64(id))
		var n32 [4]byte
		binary.LittleEndian.PutUint32(n32[:], uint32(len(edges)))
		graphData.Write(n32[:])
		for _, e := range edges {
			var rec [12]byte
			binary.LittleEndian.PutUint64(rec[0:8], e.ID)
			binary.LittleEndian.PutUint32(rec[8:12], f32bits(e.Distance))
			graphData.Write(rec[:])
		}
	}
	return atomicWriteFile(filepath.Join(dir, "graph.bin"), graphData.Bytes())
}

// LoadIndex reads back an index persisted with Save. cfg must supply the
// runtime dependencies Save does not persist: VectorForID, Distance, and
// optionally Pool/Logger; its Dimensions/VectorsSize/Build fields are
// overwritten from the on-disk config.
func LoadIndex(dir string, cfg Config) (*Index, VamanaSearchParameters, error) {
	var pc persistedConfig
	if _, err := toml.DecodeFile(filepath.Join(dir, "svs_config.toml"), &pc); err != nil {
		return nil, VamanaSearchParameters{}, errors.Wrapf(err, "decode config in %s", dir)
	}
	if pc.Schema != SchemaGraphIndex {
		return nil, VamanaSearchParameters{}, errors.Errorf("vamana: schema mismatch: got %q, want %q", pc.Schema, SchemaGraphIndex)
	}

	search := VamanaSearchParameters{
		BufferConfig:      SearchBufferConfig{SearchWindowSize: pc.SearchWindowSize, TotalCapacity: pc.SearchCapacity},
		VisitedSet:        pc.VisitedSet,
		PrefetchLookahead: pc.PrefetchLookahead,
		PrefetchStep:      pc.PrefetchStep,
	}
	if pc.Version == versionV000 || pc.Version == "" {
		// Pre-v0.0.1 configs never wrote the search-parameter block at
		// all: fall back to the defaults, matching the original
		// implementation's migration path.
		defaults := DefaultVamanaSearchParameters()
		search.PrefetchLookahead = defaults.PrefetchLookahead
		search.PrefetchStep = defaults.PrefetchStep
		if search.BufferConfig.SearchWindowSize == 0 {
			search.BufferConfig = SearchBufferConfig{SearchWindowSize: pc.WindowSize, TotalCapacity: pc.WindowSize}
		}
	}

	graphBytes, err := os.ReadFile(filepath.Join(dir, "graph.bin"))
	if err != nil {
		return nil, VamanaSearchParameters{}, errors.Wrap(err, "read graph.bin")
	}
	graph := NewGraph(pc.Length, pc.MaxDegree)
	offset := 0
	for id := 0; id < pc.Length; id++ {
		if offset+4 > len(graphBytes) {
			return nil, VamanaSearchParameters{}, errors.Errorf("vamana: graph.bin truncated at node %d", id)
		}
		count := int(binary.LittleEndian.Uint32(graphBytes[offset : offset+4]))
		offset += 4
		edges := make([]Neighbor, count)
		for i := 0; i < count; i++ {
			if offset+12 > len(graphBytes) {
				return nil, VamanaSearchParameters{}, errors.Errorf("vamana: graph.bin truncated in edge list of node %d", id)
			}
			edges[i] = Neighbor{
				ID:       binary.LittleEndian.Uint64(graphBytes[offset : offset+8]),
				Distance: f32fromBits(binary.LittleEndian.Uint32(graphBytes[offset+8 : offset+12])),
			}
			offset += 12
		}
		graph.adjacency[id] = edges
	}

	cfg.Dimensions = pc.Dimensions
	cfg.VectorsSize = uint64(pc.Length)
	cfg.Build = BuildParameters{MaxDegree: pc.MaxDegree, WindowSize: pc.WindowSize, Alpha: pc.Alpha}
	idx, err := New(cfg)
	if err != nil {
		return nil, VamanaSearchParameters{}, err
	}
	idx.graph = graph
	idx.entryPoint = pc.EntryPoint
	return idx, search, nil
}
