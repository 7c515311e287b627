// Package dispatch implements the runtime specialization table backends
// register concrete kernels into, and the dynamic (mutable) index
// lifecycle built on top of a vamana graph.
package dispatch

import (
	"sync"

	"github.com/klauspost/cpuid/v2"

	"github.com/vamanadb/svsgo/metrics"
)

// DatasetKind names the container family a registered kernel targets.
type DatasetKind string

const (
	DatasetScaledBiased DatasetKind = "scaled_biased"
	DatasetTwoLevel     DatasetKind = "two_level"
	DatasetStaticGlobal DatasetKind = "static_global"
	DatasetFloat        DatasetKind = "float"
)

// QueryType names the in-memory representation of a query vector.
type QueryType string

const (
	QueryFloat32 QueryType = "float32"
)

// DataType names the on-disk element type backing a dataset.
type DataType string

const (
	DataFloat32 DataType = "float32"
	DataUint8   DataType = "uint8"
)

// DistanceKind names the metric a kernel computes.
type DistanceKind string

const (
	DistanceL2     DistanceKind = "l2"
	DistanceIP     DistanceKind = "ip"
	DistanceCosine DistanceKind = "cosine"
)

// DynamicDim is the dimension value naming a dimension-agnostic fallback
// specialization, used when no kernel was compiled for the exact width.
const DynamicDim = -1

// Key is the runtime tuple dispatch routes on.
type Key struct {
	Dataset    DatasetKind
	Query      QueryType
	Data       DataType
	Distance   DistanceKind
	Dimensions int
}

// Tier ranks kernel variants by the instruction-set extension they
// require, best first. A backend may register the same Key multiple
// times under different tiers; Lookup picks the best tier the running
// CPU actually supports.
type Tier int

const (
	TierAVX512 Tier = iota
	TierAVX2
	TierGeneric
)

// DetectTier reports the best tier klauspost/cpuid finds support for on
// the running CPU.
func DetectTier() Tier {
	switch {
	case cpuid.CPU.Supports(cpuid.AVX512F):
		return TierAVX512
	case cpuid.CPU.Supports(cpuid.AVX2):
		return TierAVX2
	default:
		return TierGeneric
	}
}

// Kernel is an opaque registered specialization. Callers type-assert it
// back to the function signature their backend expects -- the dispatcher
// itself never calls into a kernel, it only routes to one.
type Kernel any

// Dispatcher is the process-wide specialization table. The zero value is
// not usable; construct with NewDispatcher.
type Dispatcher struct {
	mu      sync.RWMutex
	table   map[Key]map[Tier]Kernel
	metrics *metrics.Collectors
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{table: make(map[Key]map[Tier]Kernel)}
}

// Global is the process-wide dispatcher backends register into at process
// start (spec §9 "Global state": "a dispatcher table is populated by each
// backend calling register_target"). svsgo's init populates it with this
// module's compressed-distance kernels; callers needing an isolated table
// for a test should construct their own with NewDispatcher instead.
var Global = NewDispatcher()

// WithMetrics attaches a collectors instance that Lookup misses increment
// (dispatch_misses_total, labeled by dataset kind).
func (d *Dispatcher) WithMetrics(m *metrics.Collectors) *Dispatcher {
	d.metrics = m
	return d
}

// Register installs a kernel for (key, tier). Registering the same
// (key, tier) pair twice is a programming error and panics, mirroring the
// teacher's "register at most once" module-init conventions -- this runs
// during process startup, not in response to external input.
func (d *Dispatcher) Register(key Key, tier Tier, kernel Kernel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tiers, ok := d.table[key]
	if !ok {
		tiers = make(map[Tier]Kernel)
		d.table[key] = tiers
	}
	if _, exists := tiers[tier]; exists {
		panic("dispatch: duplicate registration for " + formatKeyTier(key, tier))
	}
	tiers[tier] = kernel
}

// Lookup resolves key to the best-available kernel for the running CPU.
// If tryGeneric is true and no kernel is registered at the exact
// dimension, a dynamic-dimension specialization for the same
// (dataset, query, data, distance) is tried instead.
func (d *Dispatcher) Lookup(key Key, tryGeneric bool) (Kernel, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if k, ok := lookupBestTier(d.table, key); ok {
		return k, nil
	}
	if tryGeneric {
		generic := key
		generic.Dimensions = DynamicDim
		if k, ok := lookupBestTier(d.table, generic); ok {
			return k, nil
		}
	}
	if d.metrics != nil {
		d.metrics.DispatchMisses.WithLabelValues(string(key.Dataset)).Inc()
	}
	return nil, &UnimplementedSpecializationError{Key: key}
}

func lookupBestTier(table map[Key]map[Tier]Kernel, key Key) (Kernel, bool) {
	tiers, ok := table[key]
	if !ok {
		return nil, false
	}
	for tier := DetectTier(); tier <= TierGeneric; tier++ {
		if k, ok := tiers[tier]; ok {
			return k, true
		}
	}
	return nil, false
}

// Registered reports every key with at least one registered tier, for
// diagnostics ("listing of compiled specializations", spec §7).
func (d *Dispatcher) Registered() []Key {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Key, 0, len(d.table))
	for k := range d.table {
		out = append(out, k)
	}
	return out
}

func formatKeyTier(key Key, tier Tier) string {
	return string(key.Dataset) + "/" + string(key.Query) + "/" + string(key.Data) + "/" + string(key.Distance)
}
