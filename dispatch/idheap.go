package dispatch

import "container/heap"

// idHeap is a min-heap of internal ids freed by consolidate, giving
// add_points(reuse_empty=true) an earliest-empty-first reuse policy
// (spec §9 open-question resolution: lowest freed slot wins, keeping
// storage dense from the front rather than round-robin).
type idHeap []uint64

func (h idHeap) Len() int            { return len(h) }
func (h idHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x any)         { *h = append(*h, x.(uint64)) }
func (h *idHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// freeSlotSet wraps idHeap behind the push/pop vocabulary the dynamic
// index uses, and a cheap clone for strong-exception rollback.
type freeSlotSet struct {
	h idHeap
}

func newFreeSlotSet() *freeSlotSet { return &freeSlotSet{} }

func (f *freeSlotSet) Len() int { return len(f.h) }

func (f *freeSlotSet) Push(id uint64) { heap.Push(&f.h, id) }

func (f *freeSlotSet) PopMin() uint64 { return heap.Pop(&f.h).(uint64) }

func (f *freeSlotSet) Clone() *freeSlotSet {
	cp := make(idHeap, len(f.h))
	copy(cp, f.h)
	return &freeSlotSet{h: cp}
}

func (f *freeSlotSet) Reset() { f.h = nil }
