// Package bench defines the job-descriptor schemas and named entry points
// the external benchmark driver uses (spec §6.3): the driver reads an
// input TOML file of job descriptors, dispatches each to a registered
// entry point by string key, and appends timed results to an output TOML
// file. Loading raw vector files (fvecs/ivecs/binary) and the driver's own
// CLI are out of scope here (spec §1 "Out of scope: external
// collaborators") -- this package only implements the interface those
// collaborators call into.
package bench

// Schema tags for the representative set of persisted job/result formats
// named in spec §6.1.
const (
	SchemaVamanaBuildJob           = "benchmark_vamana_build_job"
	SchemaVamanaSearchJob          = "benchmark_vamana_search_job"
	SchemaVamanaCompressedBuildJob = "benchmark_vamana_compressed_build_job"
	SchemaVamanaState              = "benchmark_vamana_state"
	SchemaExpectedResult           = "benchmark_expected_result"
)

// VamanaBuildJob describes a graph construction job.
type VamanaBuildJob struct {
	Schema     string  `toml:"__schema__"`
	DataPath   string  `toml:"data_path"`
	SavePath   string  `toml:"save_path"`
	Dimensions int     `toml:"dimensions"`
	Metric     string  `toml:"distance"`
	MaxDegree  int     `toml:"max_degree"`
	WindowSize int     `toml:"window_size"`
	Alpha      float32 `toml:"alpha"`
	NumThreads int     `toml:"num_threads"`
}

// VamanaCompressedBuildJob describes a graph construction job over an
// LVQ-compressed dataset, exercising the fused compressed-distance path
// (spec §4.3 decompression adaptor) rather than vamana_static_build's
// plain uncompressed []float32 dataset.
type VamanaCompressedBuildJob struct {
	Schema      string  `toml:"__schema__"`
	DataPath    string  `toml:"data_path"`
	Dimensions  int     `toml:"dimensions"`
	Metric      string  `toml:"distance"`
	Bits        int     `toml:"bits"`
	MaxDegree   int     `toml:"max_degree"`
	WindowSize  int     `toml:"window_size"`
	Alpha       float32 `toml:"alpha"`
	BlockSize   int     `toml:"block_size"`
}

// VamanaState is a runtime state snapshot: search parameters plus the
// thread count the job ran with.
type VamanaState struct {
	Schema                 string `toml:"__schema__"`
	SearchWindowSize       int    `toml:"search_window_size"`
	SearchBufferCapacity   int    `toml:"search_buffer_capacity"`
	SearchBufferVisitedSet bool   `toml:"search_buffer_visited_set"`
	PrefetchLookahead      int    `toml:"prefetch_lookahead"`
	PrefetchStep           int    `toml:"prefetch_step"`
	NumThreads             int    `toml:"num_threads"`
}

// VamanaSearchJob describes a search job run against a previously built
// index. DataPath names the same base dataset the index was built over --
// Save/LoadIndex persist the graph, entry point and parameters but not the
// vectors (spec §6.1), so the search job must supply a VectorForID source
// itself.
type VamanaSearchJob struct {
	Schema          string      `toml:"__schema__"`
	IndexPath       string      `toml:"index_path"`
	DataPath        string      `toml:"data_path"`
	Metric          string      `toml:"distance"`
	QueriesPath     string      `toml:"queries_path"`
	GroundtruthPath string      `toml:"groundtruth_path"`
	K               int         `toml:"k"`
	State           VamanaState `toml:"state"`
}

// ExpectedResult is the reference result a search job's output is
// regression-checked against.
type ExpectedResult struct {
	Schema    string  `toml:"__schema__"`
	K         int     `toml:"k"`
	RecallAtK float64 `toml:"recall_at_k"`
	QPS       float64 `toml:"qps,omitempty"`
}
