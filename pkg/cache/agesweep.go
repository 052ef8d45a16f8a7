package cache

import (
	"github.com/dtnkit/bpcache/pkg/events"
	"github.com/dtnkit/bpcache/pkg/mpool"
)

// ageSweep resolves spec.md §9 Open Question 1: an idle, non-custody
// bundle entry is deleted on the cfg.AgeOutSweeps-th consecutive poll
// sweep that finds ACTIVITY already clear (the second, by default); a
// sweep that finds ACTIVITY set clears it and restarts the count.
// This is grounded on the teacher's reconciler
// ticker idiom of marking a resource down after N consecutive silent
// ticks rather than on the first missed one, which tolerates a single
// slow or reordered poll without prematurely discarding an entry that
// is still in flight.
//
// Entries still carrying LOCAL_CUSTODY are never touched here — their
// lifecycle ends only via an inbound DACS clearing custody, which
// fsmExecuteBundle then moves onto idleList itself.
func (s *State) ageSweep() {
	var toDelete []mpool.Ref[Entry]

	s.idleList.ForEach(s.entries, entryMainLink, func(ref mpool.Ref[Entry]) bool {
		entry, ok := s.entries.Get(ref)
		if !ok || entry.kind != EntryKindBundle {
			return true
		}
		if entry.flags.Has(FlagLocalCustody) {
			return true
		}
		if entry.flags.Has(FlagActivity) {
			entry.flags &^= FlagActivity
			entry.bundleInfo.idleSweeps = 0
			return true
		}
		entry.bundleInfo.idleSweeps++
		if entry.bundleInfo.idleSweeps >= s.cfg.AgeOutSweeps {
			toDelete = append(toDelete, ref)
		}
		return true
	})

	for _, ref := range toDelete {
		s.deleteEntry(ref)
	}
}

// deleteEntry removes entryRef from every list and index it belongs
// to, releases its bundle handle, and recycles its arena slot.
func (s *State) deleteEntry(entryRef mpool.Ref[Entry]) {
	entry, ok := s.entries.Get(entryRef)
	if !ok {
		return
	}

	flow := ""
	if b, ok := entry.refptr.Get(); ok {
		flow = b.Primary.Source.String()
	}

	if entry.mainLink.Attached() {
		s.pendingList.Extract(s.entries, entryRef, entryMainLink)
		s.idleList.Extract(s.entries, entryRef, entryMainLink)
	}
	if entry.hashLink.Attached() {
		s.hashIndex.removeFromSubindex(entryRef)
	}
	if entry.timeLink.Attached() {
		s.timeIndex.removeFromSubindex(entryRef)
	}
	if entry.destLink.Attached() {
		s.destIndex.removeFromSubindex(entryRef)
	}

	s.entries.Recycle(entryRef, func(e *Entry) { e.refptr.Release() })
	s.publish(events.TypeEntryDeleted, flow, "entry aged out and deleted")
}
