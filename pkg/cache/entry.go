package cache

import (
	"time"

	"github.com/dtnkit/bpcache/pkg/bpid"
	"github.com/dtnkit/bpcache/pkg/bundle"
	"github.com/dtnkit/bpcache/pkg/mpool"
)

// Flags is the bit set over {LOCAL_CUSTODY, ACTIVITY, LOCALLY_QUEUED,
// ACTION_TIME_WAIT, DELETE} from spec.md §3.
type Flags uint8

const (
	FlagLocalCustody Flags = 1 << iota
	FlagActivity
	FlagLocallyQueued
	FlagActionTimeWait
	FlagDelete
)

// Has reports whether all bits in mask are set.
func (f Flags) Has(mask Flags) bool { return f&mask == mask }

// EntryState is the small enum an Entry's data variant is classified
// into.
type EntryState uint8

const (
	// EntryStateIdle is a normal bundle entry with no pending DACS work.
	EntryStateIdle EntryState = iota
	// EntryStateGenerateDACS is an entry accumulating a DACS payload.
	EntryStateGenerateDACS
)

func (s EntryState) String() string {
	switch s {
	case EntryStateIdle:
		return "idle"
	case EntryStateGenerateDACS:
		return "generate_dacs"
	default:
		return "unknown"
	}
}

// EntryKind selects which variant of per-kind data an Entry carries.
type EntryKind uint8

const (
	EntryKindBundle EntryKind = iota
	EntryKindDACS
)

// bundleData is the per-kind payload for a normal bundle entry.
type bundleData struct {
	delivery bundle.DeliveryData
	// retryInterval is the current backoff, starting at
	// config.FastRetryTime and doubling (bounded) on each retransmit.
	retryInterval time.Duration
	// idleSweeps counts consecutive poll sweeps this entry has spent on
	// idleList with ACTIVITY already clear; reaching cfg.AgeOutSweeps
	// triggers deletion (spec.md §9 Open Question 1).
	idleSweeps int
}

// dacsData is the per-kind payload for a DACS-generating entry.
type dacsData struct {
	// prevCustodianID is the previous custodian this DACS acknowledges
	// back to (the DACS bundle's destination).
	prevCustodianID bpid.EID
	// flowSourceEID is the flow this DACS accumulates sequence numbers
	// for.
	flowSourceEID bpid.EID
	// payload points at the mutable sequence-number array living
	// inside the DACS bundle's own canonical payload block.
	payload *bundle.CustodyAcceptPayload
}

// Entry is the per-bundle or per-DACS cache record of spec.md §3.
type Entry struct {
	owner *State

	flags Flags
	state EntryState
	kind  EntryKind

	bundleInfo bundleData
	dacsInfo   dacsData

	// refptr is the shared handle to the underlying bundle payload.
	refptr mpool.RefCounted[bundle.Bundle]

	// actionTime is a DACS entry's absolute close-out deadline. Normal
	// bundle entries leave it unset; their next retransmission deadline
	// is bundleInfo.delivery.IngressTime plus bundleInfo.retryInterval.
	actionTime time.Time

	// mainLink is this entry's membership in exactly one of
	// State.pendingList / State.idleList at a time (spec.md P2).
	mainLink mpool.Link[Entry]
	// hashLink, timeLink, destLink are this entry's membership in the
	// three secondary indices; each is independently attached or not
	// (spec.md P3).
	hashLink mpool.Link[Entry]
	timeLink mpool.Link[Entry]
	destLink mpool.Link[Entry]

	hashKey uint32
	timeKey uint32
	destKey uint32

	self mpool.Ref[Entry]
}

func entryMainLink(e *Entry) *mpool.Link[Entry] { return &e.mainLink }
func entryHashLink(e *Entry) *mpool.Link[Entry] { return &e.hashLink }
func entryTimeLink(e *Entry) *mpool.Link[Entry] { return &e.timeLink }
func entryDestLink(e *Entry) *mpool.Link[Entry] { return &e.destLink }

// BlockRef is a weak back-reference from a queued bundle reference to
// its owning Entry. Nothing in this package constructs or recycles a
// BlockRef, and no recycle callback exists: when the fabric drops a
// reference the cache pushed onto its self-ingress, the owning Entry
// keeps LOCALLY_QUEUED set and is not moved back onto the pending list.
type BlockRef struct {
	owner mpool.Ref[Entry]
}
