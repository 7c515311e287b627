package dispatch

import (
	"context"

	"github.com/pkg/errors"

	"github.com/vamanadb/svsgo/vamana"
)

// Consolidate resolves tombstoned internal ids into free slots: their
// storage is erased, their graph edges are removed from every surviving
// neighbor (re-pruned from the deleted node's own surviving out-edges so
// the hole it leaves doesn't strand a region of the graph), and the entry
// point is recomputed if it was among the deleted.
func (di *DynamicIndex[V]) Consolidate(ctx context.Context) error {
	if di.tombstones.GetCardinality() == 0 {
		return nil
	}
	deletedIDs := di.tombstones.ToArray()
	deletedSet := make(map[uint64]bool, len(deletedIDs))
	for _, id := range deletedIDs {
		deletedSet[id] = true
	}

	graph := di.graph.Graph()
	for internalID := 0; internalID < graph.Size(); internalID++ {
		id := uint64(internalID)
		if deletedSet[id] {
			continue
		}
		edges := graph.Neighbors(id)
		kept := make([]vamana.Neighbor, 0, len(edges))
		var replacements []uint64
		for _, e := range edges {
			if !deletedSet[e.ID] {
				kept = append(kept, e)
				continue
			}
			for _, e2 := range graph.Neighbors(e.ID) {
				if !deletedSet[e2.ID] {
					replacements = append(replacements, e2.ID)
				}
			}
		}
		if len(replacements) == 0 {
			if err := graph.SetNeighbors(id, kept); err != nil {
				return err
			}
			continue
		}
		candidates := append(vamana.NeighborIDs(kept), replacements...)
		if err := di.graph.RobustPrune(ctx, id, candidates); err != nil {
			return err
		}
	}

	if deletedSet[di.graph.EntryPoint()] {
		newEntry, ok := di.firstSurvivingInternalID(deletedSet)
		if !ok {
			return errors.New("dispatch: consolidate would remove every point")
		}
		di.graph.SetEntryPoint(newEntry)
	}

	for _, internalID := range deletedIDs {
		if err := di.store.EraseAt(int(internalID)); err != nil {
			return err
		}
		delete(di.internalToID, internalID)
		di.freeSlots.Push(internalID)
	}
	di.tombstones.Clear()
	return di.checkpointNow()
}

func (di *DynamicIndex[V]) firstSurvivingInternalID(excluding map[uint64]bool) (uint64, bool) {
	best := uint64(0)
	found := false
	for id := range di.internalToID {
		if excluding[id] {
			continue
		}
		if !found || id < best {
			best = id
			found = true
		}
	}
	return best, found
}

// Compact renumbers live internal ids densely from zero, shrinking the
// backing blocked dataset and rebuilding the graph's adjacency under the
// new numbering. External ids and search results are unaffected; only
// storage tightens (spec §4.6). batchSize is accepted for API parity with
// the original's chunked variant but is currently a single atomic pass;
// the backing Blocked dataset already moves data block-by-block.
func (di *DynamicIndex[V]) Compact(ctx context.Context, batchSize ...int) error {
	n := di.store.Size()
	permutation := make([]int, n)
	remap := make(map[uint64]uint64, len(di.internalToID))
	dst := 0
	for src := 0; src < n; src++ {
		id := uint64(src)
		if di.tombstones.Contains(id) {
			permutation[src] = -1
			continue
		}
		if _, live := di.internalToID[id]; !live {
			permutation[src] = -1
			continue
		}
		permutation[src] = dst
		remap[id] = uint64(dst)
		dst++
	}
	if err := di.store.CompactInPlace(permutation); err != nil {
		return err
	}

	graph := di.graph.Graph()
	newGraph := vamana.NewGraph(dst, di.buildParams.MaxDegree)
	for src, newID := range remap {
		edges := graph.Neighbors(src)
		mapped := make([]vamana.Neighbor, 0, len(edges))
		for _, e := range edges {
			if mappedID, ok := remap[e.ID]; ok {
				mapped = append(mapped, vamana.Neighbor{ID: mappedID, Distance: e.Distance})
			}
		}
		if err := newGraph.SetNeighbors(newID, mapped); err != nil {
			return err
		}
	}
	di.graph.ReplaceGraph(newGraph)
	di.graph.SetSize(dst)
	if newEntry, ok := remap[di.graph.EntryPoint()]; ok {
		di.graph.SetEntryPoint(newEntry)
	} else if dst > 0 {
		di.graph.SetEntryPoint(0)
	}

	newExternalToID := make(map[uint64]uint64, len(di.externalToID))
	newInternalToID := make(map[uint64]uint64, len(remap))
	for external, internal := range di.externalToID {
		newInternal, ok := remap[internal]
		if !ok {
			continue
		}
		newExternalToID[external] = newInternal
		newInternalToID[newInternal] = external
	}
	di.externalToID = newExternalToID
	di.internalToID = newInternalToID
	di.freeSlots.Reset()
	di.tombstones.Clear()
	return di.checkpointNow()
}
