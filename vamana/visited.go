package vamana

import "github.com/RoaringBitmap/roaring/roaring64"

// VisitedFilter tracks the set of ids a search has already expanded, so a
// query revisiting a node through a second path can skip it outright. Built
// on roaring64 rather than a plain map since search workloads repeatedly
// allocate and discard one of these per query.
type VisitedFilter struct {
	bm *roaring64.Bitmap
}

func NewVisitedFilter() *VisitedFilter {
	return &VisitedFilter{bm: roaring64.New()}
}

func (f *VisitedFilter) Contains(id uint64) bool { return f.bm.Contains(id) }

func (f *VisitedFilter) Add(id uint64) { f.bm.Add(id) }

func (f *VisitedFilter) Len() uint64 { return f.bm.GetCardinality() }

func (f *VisitedFilter) Reset() { f.bm.Clear() }
