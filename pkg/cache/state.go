package cache

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/dtnkit/bpcache/pkg/bpid"
	"github.com/dtnkit/bpcache/pkg/bundle"
	"github.com/dtnkit/bpcache/pkg/config"
	"github.com/dtnkit/bpcache/pkg/events"
	"github.com/dtnkit/bpcache/pkg/log"
	"github.com/dtnkit/bpcache/pkg/metrics"
	"github.com/dtnkit/bpcache/pkg/mpool"
	"github.com/dtnkit/bpcache/pkg/route"
)

// State is one storage interface's cache: the pending/idle lists, the
// three secondary indices, and the arenas backing every block this
// interface owns (spec.md §3, §4.1).
type State struct {
	cfg     config.Config
	selfLog zerolog.Logger
	bus     *events.Broker

	entries *mpool.Arena[Entry]
	queues  *mpool.Arena[Queue]
	bundles *mpool.Arena[bundle.Bundle]

	pendingList mpool.List[Entry]
	idleList    mpool.List[Entry]

	hashIndex *index
	timeIndex *index
	destIndex *index

	// generatedDACSSeq hands out monotonically increasing correlation
	// sequence numbers for DACS bundles this interface originates.
	generatedDACSSeq uint64

	// actionTime is reserved for the soonest time any entry is next due
	// for action; nothing sets or reads it, and DoPoll sweeps the
	// time_index up to the current time instead.
	actionTime time.Time

	// selfIngress is this interface's own sub-queue, used to re-inject
	// bundles produced locally (generated DACS, retransmissions) back
	// through the normal admission path.
	selfIngress *route.SubQueue

	handle *route.Handle
}

// NewState constructs an empty cache state for one storage interface.
// It does not attach to a route table; call Attach for that.
func NewState(cfg config.Config, bus *events.Broker) *State {
	s := &State{
		cfg:         cfg,
		selfLog:     log.WithInterface(cfg.SelfAddr.String()),
		bus:         bus,
		entries:     mpool.NewArena[Entry](),
		queues:      mpool.NewArena[Queue](),
		bundles:     mpool.NewArena[bundle.Bundle](),
		selfIngress: route.NewSubQueue(cfg.MaxSubqDepth),
	}
	s.hashIndex = newIndex(s.queues, s.entries, entryHashLink, func(e *Entry) *uint32 { return &e.hashKey })
	s.timeIndex = newIndex(s.queues, s.entries, entryTimeLink, func(e *Entry) *uint32 { return &e.timeKey })
	s.destIndex = newIndex(s.queues, s.entries, entryDestLink, func(e *Entry) *uint32 { return &e.destKey })
	return s
}

// publish posts an operational notification to the events bus, if one
// is configured.
func (s *State) publish(typ events.Type, flow, msg string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(&events.Event{Type: typ, Flow: flow, Message: msg})
}

// Destruct tears down the state. Per spec.md §7 this is an assertion,
// not a recoverable error: a well-behaved interface drains its lists
// and custody entries before destruction (Detach does not drain
// anything; it only releases the attach handle), so a non-empty
// list or index here indicates a bug in the caller, not a transient
// condition. Callers that cannot guarantee this should check IsEmpty
// first.
func (s *State) Destruct() {
	if !s.IsEmpty() {
		panic(ErrTornDown)
	}
}

// IsEmpty reports whether every list and index is empty, the
// precondition for a clean Destruct.
func (s *State) IsEmpty() bool {
	return s.pendingList.Empty() &&
		s.idleList.Empty() &&
		s.hashIndex.len() == 0 &&
		s.timeIndex.len() == 0 &&
		s.destIndex.len() == 0
}

// DebugScan implements metrics.StatsSource, the Go realization of
// bplib_cache_debug_scan's occupancy dump (spec.md §12).
func (s *State) DebugScan() metrics.Snapshot {
	idleCount, dacsCount := 0, 0
	s.idleList.ForEach(s.entries, entryMainLink, func(ref mpool.Ref[Entry]) bool {
		idleCount++
		return true
	})
	s.pendingList.ForEach(s.entries, entryMainLink, func(ref mpool.Ref[Entry]) bool {
		if e, ok := s.entries.Get(ref); ok && e.kind == EntryKindDACS {
			dacsCount++
		}
		return true
	})
	return metrics.Snapshot{
		PendingListLen: s.pendingList.Len(),
		IdleListLen:    s.idleList.Len(),
		HashQueues:     s.hashIndex.len(),
		TimeQueues:     s.timeIndex.len(),
		DestQueues:     s.destIndex.len(),
		EntriesIdle:    idleCount,
		EntriesDACS:    dacsCount,
	}
}

// selfAddr is a small convenience accessor used throughout the custody
// engine and event loop.
func (s *State) selfAddr() bpid.EID { return s.cfg.SelfAddr }
