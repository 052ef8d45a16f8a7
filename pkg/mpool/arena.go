// Package mpool is the block-pool façade the cache is built on: typed
// allocation, a cast-or-fail accessor, and intrusive list/tree
// membership — all expressed over small generational handles instead
// of pointers, per the "arena + index" design note for safe-language
// ports of the original pointer-and-refcount allocator.
package mpool

import "errors"

// ErrOutOfMemory is the error a constructor can return to report an
// allocation failure. Alloc never returns it on its own: when a
// constructor fails, Alloc discards the partially constructed value,
// returns its slot to the free list, and passes the constructor's own
// error through.
var ErrOutOfMemory = errors.New("mpool: allocation failed")

// Ref is a generational handle into an Arena[T]. The zero Ref is never
// valid (generations start at 1), so a zero Ref can be used as a
// "no link" sentinel without an extra boolean.
type Ref[T any] struct {
	idx uint32
	gen uint32
}

// Valid reports whether r is not the zero-value sentinel. It does not
// by itself mean the referenced slot is still live; use Arena.Get for
// that.
func (r Ref[T]) Valid() bool { return r.gen != 0 }

type slot[T any] struct {
	value T
	gen   uint32
	live  bool
}

// Arena is a slab of T, indexed by generational handles. Freed slots
// are recycled by index, and their generation is bumped so stale
// handles captured before the free reliably fail Get rather than
// aliasing a new occupant.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	count int
}

// NewArena returns an empty arena.
func NewArena[T any]() *Arena[T] {
	return &Arena[T]{}
}

// Alloc reserves a slot, runs construct (if non-nil) against its
// zero-valued payload, and returns a handle to it. If construct
// returns an error the slot is released back to the free list and the
// error is returned to the caller — the failed allocation never
// becomes visible through Get.
func (a *Arena[T]) Alloc(construct func(*T) error) (Ref[T], error) {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot[T]{})
		idx = uint32(len(a.slots) - 1)
	}
	s := &a.slots[idx]
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	var zero T
	s.value = zero
	if construct != nil {
		if err := construct(&s.value); err != nil {
			s.live = false
			a.free = append(a.free, idx)
			return Ref[T]{}, err
		}
	}
	s.live = true
	a.count++
	return Ref[T]{idx: idx, gen: s.gen}, nil
}

// Get returns the live value behind ref, or ok=false if ref is stale,
// zero, or out of range — the "cast" half of the façade contract.
func (a *Arena[T]) Get(ref Ref[T]) (*T, bool) {
	if ref.gen == 0 || int(ref.idx) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[ref.idx]
	if !s.live || s.gen != ref.gen {
		return nil, false
	}
	return &s.value, true
}

// Recycle runs destruct (if non-nil and ref is still live) and returns
// the slot to the free list. Recycling a stale or already-recycled
// ref is a silent no-op.
func (a *Arena[T]) Recycle(ref Ref[T], destruct func(*T)) {
	if ref.gen == 0 || int(ref.idx) >= len(a.slots) {
		return
	}
	s := &a.slots[ref.idx]
	if !s.live || s.gen != ref.gen {
		return
	}
	if destruct != nil {
		destruct(&s.value)
	}
	var zero T
	s.value = zero
	s.live = false
	a.count--
	a.free = append(a.free, ref.idx)
}

// Len reports the number of currently live slots.
func (a *Arena[T]) Len() int { return a.count }
