package vamana

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/pkg/errors"
	"github.com/spaolacci/murmur3"

	"github.com/vamanadb/svsgo/threadpool"
)

// BuildSharded partitions the dataset across `clusters` murmur3-seeded
// shards (each id additionally replicated into a second shard when
// overlap > 1, giving cross-shard edges a chance to form), builds a
// full Vamana index per shard in parallel, then merges their adjacency
// lists into a single graph and recomputes a global medoid entry point.
// Grounded on the original implementation's sharded build, which
// hash-partitions rather than clusters by similarity to keep the
// partitioning itself cheap and embarrassingly parallel.
func (idx *Index) BuildSharded(ctx context.Context, clusters, overlap int) error {
	if clusters <= 1 {
		return idx.Build(ctx)
	}
	n := int(idx.cfg.VectorsSize)
	if n == 0 {
		return errors.New("vamana: cannot build an index over zero vectors")
	}

	shardOf := make([][]uint64, clusters)
	for i := 0; i < n; i++ {
		id := uint64(i)
		h1 := shardHash(id, 0) % uint32(clusters)
		shardOf[h1] = append(shardOf[h1], id)
		if overlap > 1 {
			h2 := shardHash(id, 1) % uint32(clusters)
			if h2 != h1 {
				shardOf[h2] = append(shardOf[h2], id)
			}
		}
	}

	graph := NewGraph(n, idx.cfg.Build.MaxDegree)
	var mu sync.Mutex
	pool := idx.cfg.Pool
	if pool == nil {
		pool = threadpool.NewErrgroupPool(0)
	}

	err := pool.Run(ctx, clusters, func(p threadpool.Partition) {
		for s := p.Start; s < p.Stop; s++ {
			members := shardOf[s]
			if len(members) == 0 {
				continue
			}
			local := make(map[uint64]int, len(members))
			for li, gid := range members {
				local[gid] = li
			}
			shardCfg := idx.cfg
			shardCfg.VectorsSize = uint64(len(members))
			shardCfg.VectorForID = func(ctx context.Context, localID uint64) ([]float32, error) {
				return idx.cfg.VectorForID(ctx, members[localID])
			}
			shardCfg.Pool = threadpool.NewErrgroupPool(1)
			shardIdx, err := New(shardCfg)
			if err != nil {
				continue
			}
			if err := shardIdx.Build(ctx); err != nil {
				continue
			}
			mu.Lock()
			for localID, edges := range shardIdx.graph.adjacency {
				gid := members[localID]
				mapped := make([]Neighbor, len(edges))
				for i, e := range edges {
					mapped[i] = Neighbor{ID: members[e.ID], Distance: e.Distance}
				}
				graph.adjacency[gid] = mergeNeighbors(graph.adjacency[gid], mapped, idx.cfg.Build.MaxDegree)
			}
			mu.Unlock()
		}
	})
	if err != nil {
		return errors.Wrap(err, "sharded build")
	}

	idx.graph = graph
	entry, err := idx.medoid(ctx)
	if err != nil {
		return errors.Wrap(err, "recomputing global medoid after sharded build")
	}
	idx.entryPoint = entry
	return nil
}

func shardHash(id uint64, seed uint32) uint32 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], id)
	return murmur3.Sum32WithSeed(buf[:], seed)
}

func mergeNeighbors(existing, incoming []Neighbor, max int) []Neighbor {
	seen := make(map[uint64]bool, len(existing))
	out := make([]Neighbor, 0, len(existing)+len(incoming))
	for _, n := range existing {
		if !seen[n.ID] {
			seen[n.ID] = true
			out = append(out, n)
		}
	}
	for _, n := range incoming {
		if !seen[n.ID] {
			seen[n.ID] = true
			out = append(out, n)
		}
	}
	if len(out) > max {
		out = out[:max]
	}
	return out
}
