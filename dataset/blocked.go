package dataset

import "github.com/pkg/errors"

// DefaultBlockSize matches the spec's description of a blocked dataset as
// "a vector of fixed-size blocks"; 1024 keeps block-boundary resize
// (append/erase) cheap relative to typical LVQ vector sizes (a few hundred
// bytes each) while staying well above one page.
const DefaultBlockSize = 1024

// Blocked is the growable dataset variant used by dynamic indices (spec
// §4.4): append/erase resize by whole blocks; compaction is deferred to an
// explicit CompactInPlace call driven by the dispatch package's compact()
// operation.
type Blocked[V Vector] struct {
	blockSize int
	blocks    [][]V
	size      int
	dims      int
}

func NewBlocked[V Vector](blockSize, dims int) *Blocked[V] {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &Blocked[V]{blockSize: blockSize, dims: dims}
}

func (b *Blocked[V]) Size() int       { return b.size }
func (b *Blocked[V]) Dimensions() int { return b.dims }

func (b *Blocked[V]) locate(i int) (block, offset int) {
	return i / b.blockSize, i % b.blockSize
}

func (b *Blocked[V]) GetDatum(i int) (V, error) {
	var zero V
	if i < 0 || i >= b.size {
		return zero, errors.Wrapf(ErrIndexOutOfRange, "index %d, size %d", i, b.size)
	}
	blk, off := b.locate(i)
	return b.blocks[blk][off], nil
}

func (b *Blocked[V]) SetDatum(i int, v V) error {
	if i < 0 || i >= b.size {
		return errors.Wrapf(ErrIndexOutOfRange, "index %d, size %d", i, b.size)
	}
	if b.dims != 0 && v.Dimensions() != b.dims {
		return errors.Errorf("dimension mismatch: got %d, want %d", v.Dimensions(), b.dims)
	}
	blk, off := b.locate(i)
	b.blocks[blk][off] = v
	return nil
}

// Append grows the dataset by one slot, allocating a new block if the
// current last block is full, and returns the new slot's index.
func (b *Blocked[V]) Append(v V) int {
	if b.dims == 0 {
		b.dims = v.Dimensions()
	}
	blk, off := b.locate(b.size)
	if blk == len(b.blocks) {
		b.blocks = append(b.blocks, make([]V, b.blockSize))
	}
	b.blocks[blk][off] = v
	id := b.size
	b.size++
	return id
}

// EraseAt zeroes the slot's content. Logical deletion bookkeeping (which
// external IDs are tombstoned) lives in the dispatch package's ID map, per
// spec §4.4: "container contents are not renumbered until compact()."
func (b *Blocked[V]) EraseAt(i int) error {
	if i < 0 || i >= b.size {
		return errors.Wrapf(ErrIndexOutOfRange, "index %d, size %d", i, b.size)
	}
	var zero V
	blk, off := b.locate(i)
	b.blocks[blk][off] = zero
	return nil
}

// Resize grows or shrinks the logical size by appending/removing whole
// blocks as needed (spec §4.4 "Blocked... supports resize(new_n) by
// appending/removing blocks").
func (b *Blocked[V]) Resize(newSize int) {
	neededBlocks := (newSize + b.blockSize - 1) / b.blockSize
	for len(b.blocks) < neededBlocks {
		b.blocks = append(b.blocks, make([]V, b.blockSize))
	}
	if neededBlocks < len(b.blocks) {
		b.blocks = b.blocks[:neededBlocks]
	}
	b.size = newSize
}

// CompactInPlace reorders entries according to permutation, one entry per
// current slot (len(permutation) must equal b.Size()): permutation[i] is
// the new index for the vector currently at slot i, or -1 if slot i is
// tombstoned and should be dropped. This implements the spec §9
// open-question resolution: "emit a permutation π s.t. π(i) < π(j) iff the
// pre-compact internal index of i is less than that of j among live
// nodes" — callers (dispatch.Compact) build permutation so that surviving
// slots keep their relative order.
func (b *Blocked[V]) CompactInPlace(permutation []int) error {
	if len(permutation) != b.size {
		return errors.Errorf("permutation length %d must equal dataset size %d", len(permutation), b.size)
	}
	newSize := 0
	for _, dst := range permutation {
		if dst >= newSize {
			newSize = dst + 1
		}
	}
	out := NewBlocked[V](b.blockSize, b.dims)
	out.Resize(newSize)
	for src, dst := range permutation {
		if dst < 0 {
			continue
		}
		v, err := b.GetDatum(src)
		if err != nil {
			return err
		}
		if err := out.SetDatum(dst, v); err != nil {
			return err
		}
	}
	*b = *out
	return nil
}
