package cache

import (
	"time"

	"github.com/dtnkit/bpcache/pkg/events"
	"github.com/dtnkit/bpcache/pkg/metrics"
	"github.com/dtnkit/bpcache/pkg/mpool"
	"github.com/dtnkit/bpcache/pkg/route"
)

// makePending applies the flag mask and moves entryRef's container onto
// the pending list, extracting it from wherever it currently sits
// (spec.md §4.3). It is always safe to call against an entry that is
// already on pendingList.
func (s *State) makePending(entryRef mpool.Ref[Entry], set, clear Flags) {
	entry, ok := s.entries.Get(entryRef)
	if !ok {
		return
	}
	entry.flags = (entry.flags | set) &^ clear

	if entry.mainLink.Attached() {
		s.pendingList.Extract(s.entries, entryRef, entryMainLink)
		s.idleList.Extract(s.entries, entryRef, entryMainLink)
	}
	s.pendingList.PushBack(s.entries, entryRef, entryMainLink)
}

// fsmExecute runs the classifier of spec.md §4.3 against one pending
// entry, deciding its next holding position and action time.
func (s *State) fsmExecute(entryRef mpool.Ref[Entry], now time.Time) {
	entry, ok := s.entries.Get(entryRef)
	if !ok {
		return
	}

	if entry.kind == EntryKindDACS {
		s.fsmExecuteDACS(entryRef, entry, now)
		return
	}
	s.fsmExecuteBundle(entryRef, entry, now)
}

func (s *State) fsmExecuteDACS(entryRef mpool.Ref[Entry], entry *Entry, now time.Time) {
	if entry.flags.Has(FlagActionTimeWait) && entry.actionTime.After(now) {
		s.pendingList.Extract(s.entries, entryRef, entryMainLink)
		s.timeIndex.addToSubindex(timeKeyOf(entry.actionTime), entryRef)
		return
	}

	s.finalizeDACS(entryRef, entry)

	s.pendingList.Extract(s.entries, entryRef, entryMainLink)
	if b, ok := entry.refptr.Get(); ok {
		ref := route.QueuedRef{Bundle: b}
		if s.selfIngress.Push(ref) {
			entry.flags |= FlagLocallyQueued
		} else {
			metrics.BackpressureRejectedTotal.Inc()
			s.publish(events.TypeBackpressure, entry.dacsInfo.flowSourceEID.String(), "dacs push rejected, interface down")
		}
	}
}

func (s *State) fsmExecuteBundle(entryRef mpool.Ref[Entry], entry *Entry, now time.Time) {
	if !entry.flags.Has(FlagLocalCustody) {
		s.pendingList.Extract(s.entries, entryRef, entryMainLink)
		s.idleList.PushBack(s.entries, entryRef, entryMainLink)
		return
	}

	nextRetx := entry.bundleInfo.delivery.IngressTime.Add(entry.bundleInfo.retryInterval)
	firstSend := entry.bundleInfo.retryInterval == 0
	if firstSend {
		entry.bundleInfo.retryInterval = s.cfg.FastRetryTime
		nextRetx = now
	}

	if !now.Before(nextRetx) {
		if b, ok := entry.refptr.Get(); ok {
			ref := route.QueuedRef{Bundle: b}
			if s.selfIngress.Push(ref) {
				entry.flags |= FlagLocallyQueued
				entry.bundleInfo.delivery.IngressTime = now
				if !firstSend {
					entry.bundleInfo.retryInterval = nextBackoff(entry.bundleInfo.retryInterval, s.cfg.MaxRetryTime)
				}
			} else {
				metrics.BackpressureRejectedTotal.Inc()
				s.publish(events.TypeBackpressure, "", "bundle retransmit rejected, interface down")
			}
		}
		s.pendingList.Extract(s.entries, entryRef, entryMainLink)
		s.timeIndex.addToSubindex(timeKeyOf(now.Add(entry.bundleInfo.retryInterval)), entryRef)
		return
	}

	s.pendingList.Extract(s.entries, entryRef, entryMainLink)
	s.timeIndex.addToSubindex(timeKeyOf(nextRetx), entryRef)
}

// nextBackoff doubles interval, bounded by max.
func nextBackoff(interval, max time.Duration) time.Duration {
	next := interval * 2
	if next > max {
		return max
	}
	return next
}

// timeKeyOf packs an absolute deadline into the 32-bit key the
// time_index is keyed by: Unix seconds, which is monotonic enough for
// the deadlines this cache schedules (spec.md keys are u32 throughout).
func timeKeyOf(t time.Time) uint32 {
	return uint32(t.Unix())
}
