// Package vamana implements the Vamana graph-search state machine: greedy
// best-first search over a pruned directed graph, the two-pass robust
// pruning construction algorithm, batch iteration with growth schedules,
// and recall calibration.
package vamana

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/vamanadb/svsgo/metrics"
	"github.com/vamanadb/svsgo/threadpool"
)

// VectorForID resolves a dataset id to its (possibly decompressed) feature
// vector, so the index stays agnostic to the codec backing the dataset.
type VectorForID func(ctx context.Context, id uint64) ([]float32, error)

// DistanceFunc computes the distance between two vectors in the space the
// index was built over; smaller is closer.
type DistanceFunc func(a, b []float32) float32

// CompressedDistanceFunc computes the distance between an already-
// materialized left-hand vector -- a search query, or another node's own
// decoded vector -- and the dataset-resident vector stored under id,
// without first decoding the right-hand side to []float32 (spec §4.3's
// decompression adaptor, issued through C3 against C4-resident data).
// Optional; when nil the index falls back to VectorForID + Distance.
type CompressedDistanceFunc func(ctx context.Context, left []float32, id uint64) (float32, error)

// Config wires an Index to its backing dataset and distance.
type Config struct {
	Build              BuildParameters
	Dimensions         int
	VectorsSize        uint64
	VectorForID        VectorForID
	Distance           DistanceFunc
	CompressedDistance CompressedDistanceFunc
	Pool               threadpool.ThreadPool
	Logger             *logrus.Logger
	Metrics            *metrics.Collectors
}

// Index is a static Vamana graph index: a fixed node count, a pruned
// adjacency list, and a single medoid entry point. Dynamic add/delete
// lifecycle lives one layer up, in the dispatch package.
type Index struct {
	cfg        Config
	graph      *Graph
	entryPoint uint64
}

// New constructs an unbuilt index; call Build before searching.
func New(cfg Config) (*Index, error) {
	if cfg.VectorForID == nil || cfg.Distance == nil {
		return nil, errors.New("vamana: VectorForID and Distance are required")
	}
	if cfg.Pool == nil {
		cfg.Pool = threadpool.NewErrgroupPool(0)
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Build.MaxDegree <= 0 {
		cfg.Build = DefaultBuildParameters()
	}
	return &Index{cfg: cfg}, nil
}

// distanceToID computes the distance from left to the vector stored at
// id, fusing decode and distance through CompressedDistance when the
// backend registered one; otherwise it decodes id's vector and falls back
// to the plain Distance closure.
func (idx *Index) distanceToID(ctx context.Context, left []float32, id uint64) (float32, error) {
	if idx.cfg.CompressedDistance != nil {
		return idx.cfg.CompressedDistance(ctx, left, id)
	}
	v, err := idx.cfg.VectorForID(ctx, id)
	if err != nil {
		return 0, err
	}
	return idx.cfg.Distance(left, v), nil
}

func (idx *Index) Graph() *Graph        { return idx.graph }
func (idx *Index) EntryPoint() uint64   { return idx.entryPoint }
func (idx *Index) Size() int            { return int(idx.cfg.VectorsSize) }
func (idx *Index) Dimensions() int      { return idx.cfg.Dimensions }
func (idx *Index) Parameters() BuildParameters { return idx.cfg.Build }

// SetEntryPoint overrides the medoid entry point, used by dynamic index
// maintenance when the previous entry point is deleted and consolidated
// away.
func (idx *Index) SetEntryPoint(id uint64) { idx.entryPoint = id }

// GrowTo extends the graph to cover ids [0,n), appending empty adjacency
// slots for newly inserted points. Shrinking is not supported; compaction
// instead swaps in a freshly built, densely numbered graph via ReplaceGraph
// and SetSize.
func (idx *Index) GrowTo(n int) {
	if idx.graph == nil {
		idx.graph = NewGraph(n, idx.cfg.Build.MaxDegree)
	} else if n > idx.graph.Size() {
		idx.graph.adjacency = append(idx.graph.adjacency, make([][]Neighbor, n-idx.graph.Size())...)
	}
	if uint64(n) > idx.cfg.VectorsSize {
		idx.cfg.VectorsSize = uint64(n)
	}
}

// GreedySearchVisited runs greedy search from the entry point and returns
// both the k-closest results and the full ordered set of candidates
// visited along the way -- the latter is the pruning-candidate set a
// caller doing online insertion needs.
func (idx *Index) GreedySearchVisited(ctx context.Context, query []float32, cfg SearchBufferConfig, useFilter bool) ([]Neighbor, []uint64, error) {
	buf, visited, err := idx.greedySearch(ctx, query, cfg, useFilter, nil)
	if err != nil {
		return nil, nil, err
	}
	return buf.Best(buf.Len()), visited, nil
}

// RobustPrune selects at most Parameters().MaxDegree neighbors for p out
// of candidateIDs and installs them as p's out-edges. Exported so online
// insertion (dispatch.DynamicIndex.AddPoints) can reuse construction's
// pruning step one point at a time.
func (idx *Index) RobustPrune(ctx context.Context, p uint64, candidateIDs []uint64) error {
	return idx.robustPruneIDs(ctx, p, candidateIDs)
}

// ReplaceGraph swaps in a fresh adjacency list wholesale, used after
// compaction renumbers every node.
func (idx *Index) ReplaceGraph(g *Graph) { idx.graph = g }

// SetSize overrides the logical vector count directly, used after
// compaction shrinks the dataset (GrowTo only ever grows).
func (idx *Index) SetSize(n int) { idx.cfg.VectorsSize = uint64(n) }

// Build constructs the graph in two passes: an alpha=1 pass that builds
// rough connectivity, then an alpha=cfg.Build.Alpha pass that adds the
// long-range edges robust pruning needs for logarithmic search depth.
func (idx *Index) Build(ctx context.Context) error {
	n := int(idx.cfg.VectorsSize)
	if n == 0 {
		return errors.New("vamana: cannot build an index over zero vectors")
	}
	idx.graph = idx.randomGraph(n)

	entry, err := idx.medoid(ctx)
	if err != nil {
		return errors.Wrap(err, "computing medoid entry point")
	}
	idx.entryPoint = entry

	alpha := idx.cfg.Build.Alpha
	idx.cfg.Logger.WithFields(logrus.Fields{"n": n, "R": idx.cfg.Build.MaxDegree, "L": idx.cfg.Build.WindowSize}).
		Info("vamana: building index, pass 1 (alpha=1)")
	idx.cfg.Build.Alpha = 1
	if err := idx.pass(ctx); err != nil {
		idx.cfg.Build.Alpha = alpha
		return errors.Wrap(err, "construction pass 1")
	}
	idx.cfg.Build.Alpha = alpha

	idx.cfg.Logger.WithField("alpha", alpha).Info("vamana: building index, pass 2")
	if err := idx.pass(ctx); err != nil {
		return errors.Wrap(err, "construction pass 2")
	}
	return nil
}

// randomGraph seeds every node with a random out-edge set of the build
// degree cap, the starting point robust pruning iteratively refines away
// from.
func (idx *Index) randomGraph(n int) *Graph {
	g := NewGraph(n, idx.cfg.Build.MaxDegree)
	r := rand.New(rand.NewSource(1))
	degree := idx.cfg.Build.MaxDegree
	if degree > n-1 {
		degree = n - 1
	}
	for i := 0; i < n; i++ {
		ns := make([]Neighbor, 0, degree)
		seen := map[int]bool{i: true}
		for len(ns) < degree {
			j := r.Intn(n)
			if seen[j] {
				continue
			}
			seen[j] = true
			ns = append(ns, Neighbor{ID: uint64(j)})
		}
		g.adjacency[i] = ns
	}
	return g
}

func permutation(n int) []int {
	r := rand.New(rand.NewSource(2))
	p := r.Perm(n)
	return p
}

func (idx *Index) pass(ctx context.Context) error {
	order := permutation(int(idx.cfg.VectorsSize))
	for _, x := range order {
		p := uint64(x)
		q, err := idx.cfg.VectorForID(ctx, p)
		if err != nil {
			return errors.Wrapf(err, "fetch vector %d", p)
		}
		buf, err := NewSearchBufferConfig(idx.cfg.Build.WindowSize, idx.cfg.Build.WindowSize)
		if err != nil {
			return err
		}
		_, visited, err := idx.greedySearch(ctx, q, buf, false, nil)
		if err != nil {
			return err
		}
		if err := idx.robustPruneIDs(ctx, p, visited); err != nil {
			return err
		}
		for _, n := range idx.graph.Neighbors(p) {
			nid := n.ID
			extended := append(append([]uint64{}, NeighborIDs(idx.graph.Neighbors(nid))...), p)
			if len(extended) > idx.cfg.Build.MaxDegree {
				if err := idx.robustPruneIDs(ctx, nid, extended); err != nil {
					return err
				}
			} else {
				withDist := make([]Neighbor, 0, len(extended))
				qNid, err := idx.cfg.VectorForID(ctx, nid)
				if err != nil {
					return err
				}
				for _, id := range extended {
					if id == nid {
						continue
					}
					d, err := idx.distanceToID(ctx, qNid, id)
					if err != nil {
						return err
					}
					withDist = append(withDist, Neighbor{ID: id, Distance: d})
				}
				if err := idx.graph.SetNeighbors(nid, withDist); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (idx *Index) medoid(ctx context.Context) (uint64, error) {
	n := int(idx.cfg.VectorsSize)
	dims := idx.cfg.Dimensions
	mean := make([]float32, dims)
	for i := 0; i < n; i++ {
		v, err := idx.cfg.VectorForID(ctx, uint64(i))
		if err != nil {
			return 0, err
		}
		for j, x := range v {
			mean[j] += x
		}
	}
	for j := range mean {
		mean[j] /= float32(n)
	}

	type best struct {
		id   uint64
		dist float32
	}
	bestGlobal := best{dist: float32(math.MaxFloat32)}
	var mu sync.Mutex
	err := idx.cfg.Pool.Run(ctx, n, func(p threadpool.Partition) {
		for i := p.Start; i < p.Stop; i++ {
			v, err := idx.cfg.VectorForID(ctx, uint64(i))
			if err != nil {
				continue
			}
			d := idx.cfg.Distance(v, mean)
			mu.Lock()
			if d < bestGlobal.dist {
				bestGlobal = best{id: uint64(i), dist: d}
			}
			mu.Unlock()
		}
	})
	if err != nil {
		return 0, err
	}
	return bestGlobal.id, nil
}

// Search runs greedy best-first search from the entry point and returns
// the k closest vectors found.
func (idx *Index) Search(ctx context.Context, query []float32, k int, params VamanaSearchParameters) ([]Neighbor, error) {
	if idx.cfg.Metrics != nil {
		start := time.Now()
		defer func() { idx.cfg.Metrics.SearchLatency.Observe(time.Since(start).Seconds()) }()
	}
	buf, _, err := idx.greedySearch(ctx, query, params.BufferConfig, params.VisitedSet, nil)
	if err != nil {
		return nil, err
	}
	best := buf.Best(k)
	if idx.cfg.Metrics != nil {
		idx.cfg.Metrics.SearchResultsTotal.Add(float64(len(best)))
	}
	return best, nil
}

// greedySearch runs the core expansion loop, optionally continuing from
// an existing buffer (the batch iterator's cross-call state) instead of
// restarting from the entry point.
func (idx *Index) greedySearch(ctx context.Context, query []float32, cfg SearchBufferConfig, useFilter bool, resume *SearchBuffer) (*SearchBuffer, []uint64, error) {
	buf := resume
	if buf == nil {
		buf = NewSearchBuffer(cfg)
		d, err := idx.distanceToID(ctx, query, idx.entryPoint)
		if err != nil {
			return nil, nil, err
		}
		buf.Insert(idx.entryPoint, d)
	} else {
		if err := buf.Grow(cfg); err != nil {
			return nil, nil, err
		}
		// Candidates evicted at the old capacity are gone; re-expanding the
		// retained entries lets the widened buffer refill from their
		// neighbors.
		for i := range buf.entries {
			buf.entries[i].Visited = false
		}
	}

	var filter *VisitedFilter
	if useFilter {
		filter = NewVisitedFilter()
	}

	var visitedOrder []uint64
	for buf.NotAllVisited() {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		cur, ok := buf.PopUnvisited()
		if !ok {
			break
		}
		visitedOrder = append(visitedOrder, cur.ID)
		if filter != nil {
			filter.Add(cur.ID)
		}
		for _, nb := range idx.graph.Neighbors(cur.ID) {
			if filter != nil && filter.Contains(nb.ID) {
				continue
			}
			d, err := idx.distanceToID(ctx, query, nb.ID)
			if err != nil {
				return nil, nil, err
			}
			buf.Insert(nb.ID, d)
		}
	}
	return buf, visitedOrder, nil
}

// robustPruneCandidate tracks a candidate neighbor during robust pruning;
// its distance to the pruning target is computed lazily and cached.
type robustPruneCandidate struct {
	id        uint64
	dist      float32
	distKnown bool
}

// robustPruneIDs selects at most cfg.Build.MaxDegree neighbors for p from
// candidateIDs, greedily taking the closest remaining candidate and
// discarding any other candidate x for which alpha * d(chosen, x) <= d(p,
// x) -- x is already well served by a vector near chosen, so keeping an
// edge to it from p would be redundant.
func (idx *Index) robustPruneIDs(ctx context.Context, p uint64, candidateIDs []uint64) error {
	qp, err := idx.cfg.VectorForID(ctx, p)
	if err != nil {
		return err
	}

	seen := map[uint64]bool{p: true}
	cands := make([]*robustPruneCandidate, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		cands = append(cands, &robustPruneCandidate{id: id})
	}

	vecCache := make(map[uint64][]float32, 1)
	vecCache[p] = qp
	// vectorOf decodes and caches a node's own vector -- needed whenever it
	// becomes the left-hand side of a later comparison (distanceToID only
	// fuses the right-hand side).
	vectorOf := func(id uint64) ([]float32, error) {
		if v, ok := vecCache[id]; ok {
			return v, nil
		}
		v, err := idx.cfg.VectorForID(ctx, id)
		if err != nil {
			return nil, err
		}
		vecCache[id] = v
		return v, nil
	}

	out := make([]Neighbor, 0, idx.cfg.Build.MaxDegree)
	for len(cands) > 0 && len(out) < idx.cfg.Build.MaxDegree {
		best := -1
		for i, c := range cands {
			if !c.distKnown {
				d, err := idx.distanceToID(ctx, qp, c.id)
				if err != nil {
					return err
				}
				c.dist = d
				c.distKnown = true
			}
			if best == -1 || c.dist < cands[best].dist {
				best = i
			}
		}
		chosen := cands[best]
		out = append(out, Neighbor{ID: chosen.id, Distance: chosen.dist})
		qmin, err := vectorOf(chosen.id)
		if err != nil {
			return err
		}

		remaining := cands[:0]
		for _, c := range cands {
			if c.id == chosen.id {
				continue
			}
			dMinX, err := idx.distanceToID(ctx, qmin, c.id)
			if err != nil {
				return err
			}
			if idx.cfg.Build.Alpha*dMinX <= c.dist {
				continue
			}
			remaining = append(remaining, c)
		}
		cands = remaining
	}
	return idx.graph.SetNeighbors(p, out)
}
