package cache

import (
	"github.com/google/btree"

	"github.com/dtnkit/bpcache/pkg/mpool"
)

// Queue is one secondary-index node of spec.md §4.2: a FIFO of entries
// sharing the same index key. Queue nodes are created lazily on first
// insert and destroyed as soon as their list empties.
type Queue struct {
	key  uint32
	list mpool.List[Entry]
}

// queueItem is the value stored in a btree.BTreeG[queueItem]; it is
// intentionally tiny (a key plus a handle) so that copying it around
// during tree rebalancing never touches the Queue's own list.
type queueItem struct {
	key uint32
	ref mpool.Ref[Queue]
}

func queueItemLess(a, b queueItem) bool { return a.key < b.key }

// index bundles one btree of queueItem together with the entries
// arena's link accessor for the list role it indexes.
type index struct {
	tree     *btree.BTreeG[queueItem]
	queues   *mpool.Arena[Queue]
	entries  *mpool.Arena[Entry]
	link     mpool.Accessor[Entry]
	keyOf    func(*Entry) *uint32
}

func newIndex(queues *mpool.Arena[Queue], entries *mpool.Arena[Entry], link mpool.Accessor[Entry], keyOf func(*Entry) *uint32) *index {
	return &index{
		tree:    btree.NewG(32, queueItemLess),
		queues:  queues,
		entries: entries,
		link:    link,
		keyOf:   keyOf,
	}
}

// addToSubindex inserts entryRef under key, creating the Queue node if
// this is the first entry to use that key (spec.md §4.2).
func (ix *index) addToSubindex(key uint32, entryRef mpool.Ref[Entry]) error {
	entry, ok := ix.entries.Get(entryRef)
	if !ok {
		return ErrInvalidHandle
	}
	if ix.link(entry).Attached() {
		ix.removeFromSubindex(entryRef)
	}
	*ix.keyOf(entry) = key

	item, found := ix.tree.Get(queueItem{key: key})
	if !found {
		qref, err := ix.queues.Alloc(func(q *Queue) error {
			q.key = key
			return nil
		})
		if err != nil {
			return ErrOutOfMemory
		}
		item = queueItem{key: key, ref: qref}
		ix.tree.ReplaceOrInsert(item)
	}
	q, ok := ix.queues.Get(item.ref)
	if !ok {
		return ErrInvalidHandle
	}
	q.list.PushBack(ix.entries, entryRef, ix.link)
	return nil
}

// removeFromSubindex removes entryRef from its current queue,
// destroying the Queue node if the removal empties it.
func (ix *index) removeFromSubindex(entryRef mpool.Ref[Entry]) {
	entry, ok := ix.entries.Get(entryRef)
	if !ok {
		return
	}
	key := *ix.keyOf(entry)
	item, found := ix.tree.Get(queueItem{key: key})
	if !found {
		return
	}
	q, ok := ix.queues.Get(item.ref)
	if !ok {
		return
	}
	q.list.Extract(ix.entries, entryRef, ix.link)
	if q.list.Empty() {
		ix.tree.Delete(item)
		ix.queues.Recycle(item.ref, nil)
	}
}

// forEachInRange walks queues whose key is in [lo, hi), in key order,
// invoking fn for every entry in each. fn returning false stops the
// walk early.
func (ix *index) forEachInRange(lo, hi uint32, fn func(mpool.Ref[Entry]) bool) {
	stopped := false
	ix.tree.AscendRange(queueItem{key: lo}, queueItem{key: hi}, func(item queueItem) bool {
		q, ok := ix.queues.Get(item.ref)
		if !ok {
			return true
		}
		q.list.ForEach(ix.entries, ix.link, func(ref mpool.Ref[Entry]) bool {
			if !fn(ref) {
				stopped = true
				return false
			}
			return true
		})
		return !stopped
	})
}

// len reports the number of live Queue nodes in the index.
func (ix *index) len() int { return ix.tree.Len() }
