package mpool

import "sync/atomic"

// listIDs hands out the identity each List takes on its first PushBack,
// so a Link records which list it belongs to.
var listIDs atomic.Uint64

// Link is one intrusive list membership for a T stored in an Arena[T].
// A value that belongs to several lists at once (e.g. a cache Entry
// indexed by hash, time, and destination simultaneously) embeds one
// Link per list.
type Link[T any] struct {
	prev, next Ref[T]
	attached   bool
	list       uint64
}

// Attached reports whether this link currently belongs to a list.
func (l *Link[T]) Attached() bool { return l.attached }

// Accessor extracts the Link for one particular list role (e.g. "the
// hash-index link") out of a *T. Each list role a type participates in
// gets its own Accessor.
type Accessor[T any] func(*T) *Link[T]

// List is an intrusive doubly linked list head: FIFO by append
// (PushBack at the tail, so repeated appends preserve arrival order
// when walked head-to-tail). Entries are identified by Ref,
// not by value, so mutation during iteration is safe as long as the
// iterator captures the next pointer before invoking user code (see
// ForEach).
type List[T any] struct {
	head, tail Ref[T]
	size       int
	id         uint64
}

// Empty reports whether the list has no members.
func (l *List[T]) Empty() bool { return l.size == 0 }

// Len reports the number of members.
func (l *List[T]) Len() int { return l.size }

// Front returns the head of the list, or the zero Ref if empty.
func (l *List[T]) Front() Ref[T] { return l.head }

// PushBack appends ref to the tail of the list (FIFO order: the first
// PushBack is the first the list is later walked to).
func (l *List[T]) PushBack(arena *Arena[T], ref Ref[T], link Accessor[T]) {
	node, ok := arena.Get(ref)
	if !ok {
		return
	}
	ln := link(node)
	if ln.attached {
		return
	}
	if l.id == 0 {
		l.id = listIDs.Add(1)
	}
	ln.list = l.id
	ln.prev = l.tail
	ln.next = Ref[T]{}
	if tn, ok := arena.Get(l.tail); ok {
		link(tn).next = ref
	} else {
		l.head = ref
	}
	l.tail = ref
	ln.attached = true
	l.size++
}

// Extract removes ref from the list. A no-op if ref is not currently a
// member (already extracted, or never inserted).
func (l *List[T]) Extract(arena *Arena[T], ref Ref[T], link Accessor[T]) {
	node, ok := arena.Get(ref)
	if !ok {
		return
	}
	ln := link(node)
	if !ln.attached || ln.list != l.id {
		return
	}
	if pn, ok := arena.Get(ln.prev); ok {
		link(pn).next = ln.next
	} else {
		l.head = ln.next
	}
	if nn, ok := arena.Get(ln.next); ok {
		link(nn).prev = ln.prev
	} else {
		l.tail = ln.prev
	}
	ln.prev = Ref[T]{}
	ln.next = Ref[T]{}
	ln.attached = false
	ln.list = 0
	l.size--
}

// ForEach walks the list head to tail, tolerating extraction of the
// current element by fn (the next pointer is captured before fn runs).
// Stops early if fn returns false.
func (l *List[T]) ForEach(arena *Arena[T], link Accessor[T], fn func(ref Ref[T]) bool) {
	cur := l.head
	for cur.Valid() {
		node, ok := arena.Get(cur)
		if !ok {
			return
		}
		next := link(node).next
		if !fn(cur) {
			return
		}
		cur = next
	}
}

// DrainInto moves every member of l onto dst (preserving relative
// order), clearing l. Both lists must use the same link role.
func (l *List[T]) DrainInto(arena *Arena[T], dst *List[T], link Accessor[T]) {
	l.ForEach(arena, link, func(ref Ref[T]) bool {
		l.Extract(arena, ref, link)
		dst.PushBack(arena, ref, link)
		return true
	})
}
