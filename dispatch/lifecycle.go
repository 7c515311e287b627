package dispatch

import (
	"context"

	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/pkg/errors"

	"github.com/vamanadb/svsgo/dataset"
	"github.com/vamanadb/svsgo/dispatch/idmap"
	"github.com/vamanadb/svsgo/vamana"
)

// Compressor turns a raw vector into the dataset's on-disk representation;
// the inverse (decoding back to floats for distance computation) is the
// V type's own Decode/DecodeAll methods.
type Compressor[V dataset.Vector] func(raw []float32) (V, error)

// CompressedDistance computes the distance between an already-materialized
// left-hand vector and one dataset-resident compressed vector, without
// decoding the right-hand side to []float32 first (spec §4.3 decompression
// adaptor). This is the kernel shape the dispatch table (dispatcher.go)
// registers and svsgo's NewDynamicScaledBiased/NewDynamicTwoLevel resolve
// via Dispatcher.Lookup.
type CompressedDistance[V dataset.Vector] func(left []float32, v V) (float32, error)

// DynamicIndex is a mutable Vamana index: add_points, delete_points,
// consolidate, and compact over a growable blocked dataset (spec §4.6).
// The caller is responsible for serializing calls against a single
// instance -- per spec §5, the core does not acquire locks internally.
type DynamicIndex[V dataset.Vector] struct {
	dims               int
	buildParams        vamana.BuildParameters
	compress           Compressor[V]
	distance           vamana.DistanceFunc
	compressedDistance CompressedDistance[V]
	store              dataset.GrowableDataset[V]
	graph              *vamana.Index
	hasEntry           bool
	externalToID       map[uint64]uint64
	internalToID       map[uint64]uint64
	tombstones         *roaring64.Bitmap
	freeSlots          *freeSlotSet
	checkpoint         *idmap.Store
}

// SetCompressedDistance wires the fused compressed-distance kernel a
// backend resolved via the dispatch table (or built directly from a
// distancer.CompressedDistancer): once set, search and construction
// compare against dataset-resident compressed vectors without decoding
// them to []float32 first. Optional -- without it the index falls back to
// decoding every vector through the plain Compressor/Distance pair. Must
// be called before the first AddPoints, which is when the underlying
// vamana graph config is built.
func (di *DynamicIndex[V]) SetCompressedDistance(fn CompressedDistance[V]) {
	di.compressedDistance = fn
}

func (di *DynamicIndex[V]) compressedDistanceToID(ctx context.Context, left []float32, internalID uint64) (float32, error) {
	v, err := di.store.GetDatum(int(internalID))
	if err != nil {
		return 0, err
	}
	return di.compressedDistance(left, v)
}

// AttachCheckpoint wires a bbolt checkpoint store into the index: any
// previously checkpointed ID map is loaded immediately, and every
// subsequent successful mutation (AddPoints/DeletePoints/Consolidate/
// Compact) re-checkpoints the current external->internal map. This is
// the frequent, low-latency half of the save model; the dataset/vamana
// packages' atomic TOML+binary save is the final durable half (spec §9).
func (di *DynamicIndex[V]) AttachCheckpoint(store *idmap.Store) error {
	loaded, err := store.Load()
	if err != nil {
		return err
	}
	di.checkpoint = store
	if len(loaded) == 0 {
		return nil
	}
	di.externalToID = loaded
	di.internalToID = make(map[uint64]uint64, len(loaded))
	for external, internal := range loaded {
		di.internalToID[internal] = external
	}
	return nil
}

func (di *DynamicIndex[V]) checkpointNow() error {
	if di.checkpoint == nil {
		return nil
	}
	return di.checkpoint.Checkpoint(di.externalToID)
}

// NewDynamicIndex constructs an empty dynamic index over a blocked
// dataset with the given block size.
func NewDynamicIndex[V dataset.Vector](dims, blockSize int, compress Compressor[V], distance vamana.DistanceFunc, buildParams vamana.BuildParameters) *DynamicIndex[V] {
	return &DynamicIndex[V]{
		dims:         dims,
		buildParams:  buildParams,
		compress:     compress,
		distance:     distance,
		store:        dataset.NewBlocked[V](blockSize, dims),
		externalToID: make(map[uint64]uint64),
		internalToID: make(map[uint64]uint64),
		tombstones:   roaring64.New(),
		freeSlots:    newFreeSlotSet(),
	}
}

func (di *DynamicIndex[V]) vectorForID(ctx context.Context, internalID uint64) ([]float32, error) {
	v, err := di.store.GetDatum(int(internalID))
	if err != nil {
		return nil, err
	}
	out := make([]float32, di.dims)
	v.DecodeAll(out)
	return out, nil
}

func (di *DynamicIndex[V]) ensureGraph() error {
	if di.graph != nil {
		return nil
	}
	cfg := vamana.Config{
		Build:       di.buildParams,
		Dimensions:  di.dims,
		VectorsSize: 0,
		VectorForID: di.vectorForID,
		Distance:    di.distance,
	}
	if di.compressedDistance != nil {
		cfg.CompressedDistance = di.compressedDistanceToID
	}
	idx, err := vamana.New(cfg)
	if err != nil {
		return err
	}
	di.graph = idx
	return nil
}

// HasID reports whether external id is currently present (live, not
// tombstoned).
func (di *DynamicIndex[V]) HasID(id uint64) bool {
	_, ok := di.externalToID[id]
	return ok
}

// AllIDs returns every live external id, in no particular order.
func (di *DynamicIndex[V]) AllIDs() []uint64 {
	out := make([]uint64, 0, len(di.externalToID))
	for id := range di.externalToID {
		out = append(out, id)
	}
	return out
}

// GetDistance computes the distance from the vector stored under external
// id to query, for inspection (spec §4.6).
func (di *DynamicIndex[V]) GetDistance(ctx context.Context, id uint64, query []float32) (float32, error) {
	internal, ok := di.externalToID[id]
	if !ok {
		return 0, errors.Wrapf(ErrIdMissing, "id %d", id)
	}
	v, err := di.vectorForID(ctx, internal)
	if err != nil {
		return 0, err
	}
	return di.distance(query, v), nil
}

// AddPoints inserts points under the given external ids. If reuseEmpty,
// slots freed by a prior Consolidate are filled earliest-first before any
// new slot is appended. Length mismatches, id conflicts, wrong dimensions
// and compression errors are reported before anything is changed. An error
// while storing a point or linking it into the graph is returned without
// undoing the points already stored or linked.
func (di *DynamicIndex[V]) AddPoints(ctx context.Context, points [][]float32, ids []uint64, reuseEmpty bool) error {
	if len(points) != len(ids) {
		return errors.New("dispatch: points and ids must have equal length")
	}
	if len(points) == 0 {
		return nil
	}

	seen := make(map[uint64]bool, len(ids))
	var conflicts []uint64
	for _, id := range ids {
		if seen[id] || di.HasID(id) {
			conflicts = append(conflicts, id)
		}
		seen[id] = true
	}
	if len(conflicts) > 0 {
		return &IdConflictError{IDs: conflicts}
	}

	compressed := make([]V, len(points))
	for i, p := range points {
		if len(p) != di.dims {
			return errors.Errorf("dispatch: point %d has dimension %d, want %d", i, len(p), di.dims)
		}
		v, err := di.compress(p)
		if err != nil {
			return errors.Wrapf(err, "compressing point for id %d", ids[i])
		}
		compressed[i] = v
	}

	if err := di.ensureGraph(); err != nil {
		return err
	}

	internalIDs := make([]uint64, len(points))
	for i, v := range compressed {
		var internalID uint64
		if reuseEmpty && di.freeSlots.Len() > 0 {
			internalID = di.freeSlots.PopMin()
			if err := di.store.SetDatum(int(internalID), v); err != nil {
				return errors.Wrap(err, "dispatch: reusing empty slot")
			}
		} else {
			internalID = uint64(di.store.Append(v))
		}
		internalIDs[i] = internalID
		di.externalToID[ids[i]] = internalID
		di.internalToID[internalID] = ids[i]
	}

	di.graph.GrowTo(di.store.Size())
	for i, internalID := range internalIDs {
		if err := di.insertIntoGraph(ctx, internalID); err != nil {
			return errors.Wrapf(err, "inserting point for id %d", ids[i])
		}
	}
	return di.checkpointNow()
}

func (di *DynamicIndex[V]) insertIntoGraph(ctx context.Context, internalID uint64) error {
	if !di.hasEntry {
		di.graph.SetEntryPoint(internalID)
		di.hasEntry = true
		return nil
	}

	q, err := di.vectorForID(ctx, internalID)
	if err != nil {
		return err
	}
	windowCfg, err := vamana.NewSearchBufferConfig(di.buildParams.WindowSize, di.buildParams.WindowSize)
	if err != nil {
		return err
	}
	_, visited, err := di.graph.GreedySearchVisited(ctx, q, windowCfg, false)
	if err != nil {
		return err
	}
	if err := di.graph.RobustPrune(ctx, internalID, visited); err != nil {
		return err
	}
	for _, n := range di.graph.Graph().Neighbors(internalID) {
		extended := append(vamana.NeighborIDs(di.graph.Graph().Neighbors(n.ID)), internalID)
		if err := di.graph.RobustPrune(ctx, n.ID, extended); err != nil {
			return err
		}
	}
	return nil
}

// DeletePoints tombstones the given external ids: excluded from future
// searches, but their storage and graph edges are untouched until
// Consolidate runs.
func (di *DynamicIndex[V]) DeletePoints(ids []uint64) error {
	var missing []uint64
	internalIDs := make([]uint64, 0, len(ids))
	for _, id := range ids {
		internal, ok := di.externalToID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		internalIDs = append(internalIDs, internal)
	}
	if len(missing) > 0 {
		return &IdMissingError{IDs: missing}
	}
	for i, id := range ids {
		di.tombstones.Add(internalIDs[i])
		delete(di.externalToID, id)
	}
	return di.checkpointNow()
}

// Search runs graph search and filters out any tombstoned internal id
// before mapping results back to external ids (spec §4.6 "after
// consolidate, searches return only non-deleted IDs" -- true even before
// consolidate runs, per §4.6's delete_points contract).
func (di *DynamicIndex[V]) Search(ctx context.Context, query []float32, k int, params vamana.VamanaSearchParameters) ([]uint64, error) {
	if di.graph == nil {
		return nil, nil
	}
	// Over-fetch since tombstoned hits must be filtered without shrinking
	// the effective result count.
	deleted := int(di.tombstones.GetCardinality())
	widened := params
	widened.BufferConfig.TotalCapacity += deleted
	if widened.BufferConfig.TotalCapacity < widened.BufferConfig.SearchWindowSize {
		widened.BufferConfig.TotalCapacity = widened.BufferConfig.SearchWindowSize
	}
	raw, err := di.graph.Search(ctx, query, k+deleted, widened)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, 0, k)
	for _, n := range raw {
		if di.tombstones.Contains(n.ID) {
			continue
		}
		external, ok := di.internalToID[n.ID]
		if !ok {
			continue
		}
		out = append(out, external)
		if len(out) == k {
			break
		}
	}
	return out, nil
}
