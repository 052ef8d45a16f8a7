package mpool

// RefCounted is a shared handle over a single backing Arena slot,
// implementing the ref_create/ref_duplicate/ref_release contract: the
// underlying value is recycled exactly when the last duplicate is
// released, regardless of how many Entry (or other) structures hold a
// copy of the RefCounted value.
//
// The refcount itself is a separately allocated int that every copy
// points at, outside the payload arena, so duplicating a RefCounted
// never touches the payload's slot generation.
type RefCounted[T any] struct {
	arena   *Arena[T]
	ref     Ref[T]
	count   *int
	destroy func(*T)
}

// RefCreate allocates a new backing value in arena and returns a
// RefCounted with count 1.
func RefCreate[T any](arena *Arena[T], construct func(*T) error, destroy func(*T)) (RefCounted[T], error) {
	ref, err := arena.Alloc(construct)
	if err != nil {
		return RefCounted[T]{}, err
	}
	n := 1
	return RefCounted[T]{arena: arena, ref: ref, count: &n, destroy: destroy}, nil
}

// Valid reports whether rc was ever initialized via RefCreate or
// Duplicate.
func (rc RefCounted[T]) Valid() bool { return rc.count != nil }

// Get returns the live backing value, or ok=false if it has already
// been fully released.
func (rc RefCounted[T]) Get() (*T, bool) {
	if rc.arena == nil {
		return nil, false
	}
	return rc.arena.Get(rc.ref)
}

// Duplicate increments the shared refcount and returns a second handle
// to the same backing value.
func (rc RefCounted[T]) Duplicate() RefCounted[T] {
	if rc.count != nil {
		*rc.count++
	}
	return rc
}

// Release decrements the shared refcount, recycling the backing arena
// slot when it reaches zero. Releasing an already fully-released or
// zero-value RefCounted is a no-op. Returns true if this call performed
// the final recycle.
func (rc RefCounted[T]) Release() bool {
	if rc.count == nil || *rc.count <= 0 {
		return false
	}
	*rc.count--
	if *rc.count > 0 {
		return false
	}
	rc.arena.Recycle(rc.ref, rc.destroy)
	return true
}

// Count reports the current number of live duplicates.
func (rc RefCounted[T]) Count() int {
	if rc.count == nil {
		return 0
	}
	return *rc.count
}
