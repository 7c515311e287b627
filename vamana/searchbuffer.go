package vamana

import (
	"sort"

	"github.com/pkg/errors"
)

// SearchBufferConfig splits a search buffer into a front "window" of
// candidates still eligible to be expanded and a trailing backfill region
// retained only to seed later growth (batch iteration, spec §4.5.2).
// SearchWindowSize must not exceed TotalCapacity.
type SearchBufferConfig struct {
	SearchWindowSize int
	TotalCapacity    int
}

// NewSearchBufferConfig validates the window/capacity split invariant.
func NewSearchBufferConfig(window, capacity int) (SearchBufferConfig, error) {
	if window <= 0 || capacity <= 0 {
		return SearchBufferConfig{}, errors.Wrap(ErrInvariantViolation, "window and capacity must be positive")
	}
	if capacity < window {
		return SearchBufferConfig{}, errors.Wrapf(ErrInvariantViolation,
			"search_buffer_capacity (%d) must be >= search_window_size (%d)", capacity, window)
	}
	return SearchBufferConfig{SearchWindowSize: window, TotalCapacity: capacity}, nil
}

// SearchNeighbor is a candidate held in a SearchBuffer, with the visited
// bit the greedy search loop uses to find its next expansion frontier.
type SearchNeighbor struct {
	Neighbor
	Visited bool
}

// SearchBuffer is a bounded, distance-sorted candidate list. Entries are
// kept sorted ascending by (Distance, ID) at all times; at most
// cfg.TotalCapacity entries are retained, and only entries within
// [0, cfg.SearchWindowSize) are eligible to be popped for expansion.
type SearchBuffer struct {
	cfg     SearchBufferConfig
	entries []SearchNeighbor
}

func NewSearchBuffer(cfg SearchBufferConfig) *SearchBuffer {
	return &SearchBuffer{cfg: cfg, entries: make([]SearchNeighbor, 0, cfg.TotalCapacity)}
}

func (b *SearchBuffer) Len() int { return len(b.entries) }

func (b *SearchBuffer) Config() SearchBufferConfig { return b.cfg }

// Grow widens the buffer's window/capacity split. It is an error to shrink
// either bound; schedules that violate this raise ErrInvariantViolation
// one layer up, in the batch iterator.
func (b *SearchBuffer) Grow(cfg SearchBufferConfig) error {
	if cfg.TotalCapacity < b.cfg.TotalCapacity || cfg.SearchWindowSize < b.cfg.SearchWindowSize {
		return errors.Wrap(ErrInvariantViolation, "search buffer config must not shrink")
	}
	b.cfg = cfg
	return nil
}

// Insert adds (id, distance) in sorted position, evicting the worst entry
// if the buffer is already at capacity. Returns true if the candidate was
// kept (i.e. not worse than every existing entry at a full buffer).
func (b *SearchBuffer) Insert(id uint64, distance float32) bool {
	pos := sort.Search(len(b.entries), func(i int) bool {
		e := b.entries[i]
		if e.Distance != distance {
			return e.Distance > distance
		}
		return e.ID >= id
	})
	if pos < len(b.entries) && b.entries[pos].ID == id && b.entries[pos].Distance == distance {
		return false
	}
	if pos >= b.cfg.TotalCapacity {
		return false
	}
	entry := SearchNeighbor{Neighbor: Neighbor{ID: id, Distance: distance}}
	if len(b.entries) < b.cfg.TotalCapacity {
		b.entries = append(b.entries, SearchNeighbor{})
	}
	copy(b.entries[pos+1:], b.entries[pos:len(b.entries)-1])
	b.entries[pos] = entry
	return true
}

func (b *SearchBuffer) windowLimit() int {
	limit := b.cfg.SearchWindowSize
	if limit > len(b.entries) {
		limit = len(b.entries)
	}
	return limit
}

// NotAllVisited reports whether an unvisited candidate remains within the
// current window.
func (b *SearchBuffer) NotAllVisited() bool {
	limit := b.windowLimit()
	for i := 0; i < limit; i++ {
		if !b.entries[i].Visited {
			return true
		}
	}
	return false
}

// PopUnvisited marks and returns the closest unvisited candidate within
// the window, or false if none remains.
func (b *SearchBuffer) PopUnvisited() (SearchNeighbor, bool) {
	limit := b.windowLimit()
	for i := 0; i < limit; i++ {
		if !b.entries[i].Visited {
			b.entries[i].Visited = true
			return b.entries[i], true
		}
	}
	return SearchNeighbor{}, false
}

// Best returns the k closest entries (fewer if the buffer holds less).
func (b *SearchBuffer) Best(k int) []Neighbor {
	if k > len(b.entries) {
		k = len(b.entries)
	}
	out := make([]Neighbor, k)
	for i := 0; i < k; i++ {
		out[i] = b.entries[i].Neighbor
	}
	return out
}
