package cache

import (
	"time"

	"github.com/dtnkit/bpcache/pkg/bpid"
	"github.com/dtnkit/bpcache/pkg/bundle"
	"github.com/dtnkit/bpcache/pkg/metrics"
	"github.com/dtnkit/bpcache/pkg/mpool"
	"github.com/dtnkit/bpcache/pkg/route"
)

// EgressImpl drains subq until empty, admitting or consuming each
// queued bundle reference (spec.md §4.5).
func (s *State) EgressImpl(subq *route.SubQueue) {
	for {
		ref, ok := subq.TryPull()
		if !ok {
			return
		}
		if ref.Bundle == nil {
			continue
		}
		if CheckDACS(ref.Bundle) {
			s.ProcessRemoteDACSBundle(ref.Bundle)
			continue
		}
		delivery := bundle.DeliveryData{
			Policy:            ref.Bundle.Primary.DeliveryPolicyFor(),
			LocalRetxInterval: s.cfg.FastRetryTime,
			IngressIntfID:     s.cfg.SelfAddr.String(),
			StorageIntfID:     s.cfg.SelfAddr.String(),
			IngressTime:       time.Now(),
		}
		if _, _, err := s.StoreBundle(ref.Bundle, delivery); err != nil {
			s.selfLog.Warn().Err(err).Msg("bundle admission failed")
		}
	}
}

// DoPoll sweeps time_index from the largest key ≤ now downward, moving
// every due Queue's entire entry list onto pending_list (spec.md
// §4.5).
func (s *State) DoPoll() {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.PollSweepDuration)

	now := timeKeyOf(time.Now())
	var dueQueues []mpool.Ref[Queue]
	s.timeIndex.tree.DescendLessOrEqual(queueItem{key: now}, func(item queueItem) bool {
		dueQueues = append(dueQueues, item.ref)
		return true
	})

	for _, qref := range dueQueues {
		q, ok := s.timeIndex.queues.Get(qref)
		if !ok {
			continue
		}
		q.list.ForEach(s.entries, entryTimeLink, func(entryRef mpool.Ref[Entry]) bool {
			s.timeIndex.removeFromSubindex(entryRef)
			s.makePending(entryRef, 0, 0)
			return true
		})
	}

	s.ageSweep()
}

// DoRouteUp re-evaluates dest_eid_index entries whose destination key
// matches dest under mask, making each pending without removing it
// from the index (spec.md §4.5).
func (s *State) DoRouteUp(dest bpid.NodeNumber, mask uint32) {
	destKey := uint32(dest)
	s.destIndex.tree.AscendGreaterOrEqual(queueItem{key: destKey}, func(item queueItem) bool {
		if item.key&mask != destKey&mask {
			return false
		}
		q, ok := s.destIndex.queues.Get(item.ref)
		if !ok {
			return true
		}
		q.list.ForEach(s.entries, entryDestLink, func(entryRef mpool.Ref[Entry]) bool {
			s.makePendingKeepIndex(entryRef)
			return true
		})
		return true
	})
}

// makePendingKeepIndex is make_pending without touching index
// membership (do_route_up's entries stay in dest_eid_index).
func (s *State) makePendingKeepIndex(entryRef mpool.Ref[Entry]) {
	entry, ok := s.entries.Get(entryRef)
	if !ok {
		return
	}
	if entry.mainLink.Attached() {
		s.pendingList.Extract(s.entries, entryRef, entryMainLink)
		s.idleList.Extract(s.entries, entryRef, entryMainLink)
	}
	s.pendingList.PushBack(s.entries, entryRef, entryMainLink)
}

// DoIntfStateChange sets the self-ingress depth limit: MaxSubqDepth
// when up, 0 when down — the backpressure knob of spec.md §4.5 / P9.
func (s *State) DoIntfStateChange(up bool) {
	if up {
		s.selfIngress.SetDepthLimit(s.cfg.MaxSubqDepth)
	} else {
		s.selfIngress.SetDepthLimit(0)
	}
}

// EventImpl dispatches one route.Event and always finishes by flushing
// the pending list (spec.md §4.5).
func (s *State) EventImpl(ev route.Event) {
	timer := metrics.NewTimer()
	var kind string
	switch ev.Kind {
	case route.EventPoll:
		kind = "poll"
		s.DoPoll()
	case route.EventUp:
		kind = "up"
		s.DoIntfStateChange(true)
		s.DoRouteUp(ev.IntfAddr.Node, ^uint32(0))
	case route.EventDown:
		kind = "down"
		s.DoIntfStateChange(false)
	}
	s.flushPending()
	timer.ObserveDurationVec(metrics.EventDispatchDuration, kind)
}

// flushPending walks pending_list from the head while the self
// ingress may still accept a push, running fsm_execute on each entry
// in turn (spec.md §4.5).
func (s *State) flushPending() {
	now := time.Now()
	for s.selfIngress.MayPush() {
		ref := s.pendingList.Front()
		if !ref.Valid() {
			return
		}
		s.fsmExecute(ref, now)
	}
}
