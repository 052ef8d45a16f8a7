package cache

import (
	"time"

	"github.com/dtnkit/bpcache/pkg/bpid"
	"github.com/dtnkit/bpcache/pkg/bundle"
	"github.com/dtnkit/bpcache/pkg/events"
	"github.com/dtnkit/bpcache/pkg/metrics"
	"github.com/dtnkit/bpcache/pkg/mpool"
)

// CustodyInfo names the (flow, custodian, sequence) triple the custody
// engine matches and accumulates DACS acknowledgements by.
type CustodyInfo struct {
	FlowSourceEID bpid.EID
	CustodianID   bpid.EID
	SequenceNum   uint64
}

// adoptBundle copies b's value into a freshly allocated, refcounted
// arena slot, giving the cache its own shared handle independent of
// whatever the fabric does with its original pointer afterward.
func (s *State) adoptBundle(b *bundle.Bundle) (mpool.RefCounted[bundle.Bundle], error) {
	return mpool.RefCreate(s.bundles, func(slot *bundle.Bundle) error {
		*slot = *b
		slot.Canonicals = append([]bundle.Canonical(nil), b.Canonicals...)
		for i := range slot.Canonicals {
			if ctb, ok := slot.Canonicals[i].Data.(*bundle.CustodyTrackingBlock); ok {
				c := *ctb
				slot.Canonicals[i].Data = &c
			}
		}
		return nil
	}, nil)
}

// StoreBundle is the admission path of spec.md §4.4. It returns
// (stored=true) for a newly created entry, or (stored=false, dup=true)
// when the bundle was recognized as a duplicate and merely
// re-acknowledged.
func (s *State) StoreBundle(b *bundle.Bundle, delivery bundle.DeliveryData) (stored, dup bool, err error) {
	now := time.Now()
	fp := bundleFingerprint(b.Primary.Source, b.Primary.Creation.SequenceNum)

	var existing mpool.Ref[Entry]
	s.hashIndex.forEachInRange(fp, fp+1, func(ref mpool.Ref[Entry]) bool {
		e, ok := s.entries.Get(ref)
		if !ok || e.kind != EntryKindBundle {
			return true
		}
		eb, ok := e.refptr.Get()
		if !ok {
			return true
		}
		if eb.Primary.Source == b.Primary.Source && eb.Primary.Creation.SequenceNum == b.Primary.Creation.SequenceNum {
			existing = ref
			return false
		}
		return true
	})

	if existing.Valid() {
		e, _ := s.entries.Get(existing)
		e.flags |= FlagActivity
		if ctb, ok := b.CustodyTracking(); ok && ctb.CurrentCustodian != (bpid.EID{}) {
			s.ackTrackingBlock(CustodyInfo{
				FlowSourceEID: b.Primary.Source,
				CustodianID:   ctb.CurrentCustodian,
				SequenceNum:   b.Primary.Creation.SequenceNum,
			})
		}
		metrics.BundlesDuplicateTotal.Inc()
		s.publish(events.TypeEntryDuplicate, b.Primary.Source.String(), "duplicate admission, activity refreshed")
		return false, true, nil
	}

	rc, err := s.adoptBundle(b)
	if err != nil {
		return false, false, ErrOutOfMemory
	}

	entryRef, err := s.entries.Alloc(func(e *Entry) error {
		e.owner = s
		e.kind = EntryKindBundle
		e.state = EntryStateIdle
		e.flags = FlagLocalCustody | FlagActivity
		e.refptr = rc
		e.bundleInfo = bundleData{delivery: delivery}
		return nil
	})
	if err != nil {
		rc.Release()
		return false, false, ErrOutOfMemory
	}
	if e, ok := s.entries.Get(entryRef); ok {
		e.self = entryRef
	}

	if err := s.destIndex.addToSubindex(uint32(b.Primary.Destination.Node), entryRef); err != nil {
		s.entries.Recycle(entryRef, func(e *Entry) { e.refptr.Release() })
		return false, false, err
	}
	if err := s.hashIndex.addToSubindex(fp, entryRef); err != nil {
		s.destIndex.removeFromSubindex(entryRef)
		s.entries.Recycle(entryRef, func(e *Entry) { e.refptr.Release() })
		return false, false, err
	}

	if delivery.Policy == bundle.DeliveryPolicyCustodyTracking {
		// From here on, mutate the arena-resident copy the new entry's
		// refptr shares — not the caller's original b — so the custody
		// tracking block egress later sees reflects this admission.
		stored, _ := s.entries.Get(entryRef)
		storedBundle, _ := stored.refptr.Get()

		finalDest := b.Primary.Destination == s.selfAddr()
		if finalDest {
			stored.bundleInfo.delivery.Policy = bundle.DeliveryPolicyLocalAck
		}

		if ctb, ok := storedBundle.CustodyTracking(); ok && ctb.CurrentCustodian != (bpid.EID{}) {
			s.ackTrackingBlock(CustodyInfo{
				FlowSourceEID: storedBundle.Primary.Source,
				CustodianID:   ctb.CurrentCustodian,
				SequenceNum:   storedBundle.Primary.Creation.SequenceNum,
			})
		} else if !finalDest {
			insertTrackingBlock(storedBundle)
		}
		updateTrackingBlock(storedBundle, s.selfAddr())
	}

	s.pendingList.PushBack(s.entries, entryRef, entryMainLink)
	s.fsmExecute(entryRef, now)

	metrics.BundlesStoredTotal.Inc()
	s.publish(events.TypeEntryStored, b.Primary.Source.String(), "bundle admitted")
	return true, false, nil
}

// insertTrackingBlock adds a custody tracking canonical block to b if
// it does not already carry one.
func insertTrackingBlock(b *bundle.Bundle) {
	if _, ok := b.CustodyTracking(); ok {
		return
	}
	b.AppendCanonical(bundle.BlockTypeCustodyTracking, bundle.CRCNone, &bundle.CustodyTrackingBlock{})
}

// updateTrackingBlock sets b's custody tracking block's current
// custodian to self, inserting one first if absent.
func updateTrackingBlock(b *bundle.Bundle, self bpid.EID) {
	ctb, ok := b.CustodyTracking()
	if !ok {
		insertTrackingBlock(b)
		ctb, _ = b.CustodyTracking()
	}
	ctb.CurrentCustodian = self
}

// openDACS allocates a fresh DACS entry and bundle shell for ci,
// per spec.md §4.4.
func (s *State) openDACS(ci CustodyInfo) (mpool.Ref[Entry], error) {
	now := time.Now()
	payload := &bundle.CustodyAcceptPayload{
		FlowSourceEID: ci.FlowSourceEID,
		MaxEntries:    s.cfg.DACSMaxSeqPerPayload,
	}

	seq := s.generatedDACSSeq
	s.generatedDACSSeq++

	rc, err := mpool.RefCreate(s.bundles, func(slot *bundle.Bundle) error {
		slot.Primary = bundle.Primary{
			Version:         7,
			Source:          s.selfAddr(),
			Destination:     ci.CustodianID,
			ReportTo:        s.selfAddr(),
			Creation:        bundle.CreationTimestamp{Time: now, SequenceNum: seq},
			Lifetime:        s.cfg.DACSLifetime,
			IsAdminRecord:   true,
			MustNotFragment: true,
			CRCType:         bundle.CRC16,
		}
		slot.AppendCanonical(bundle.BlockTypeCustodyAcceptPayload, bundle.CRCNone, payload)
		return nil
	}, nil)
	if err != nil {
		return mpool.Ref[Entry]{}, ErrOutOfMemory
	}

	entryRef, err := s.entries.Alloc(func(e *Entry) error {
		e.owner = s
		e.kind = EntryKindDACS
		e.state = EntryStateGenerateDACS
		e.flags = FlagActivity | FlagLocalCustody | FlagActionTimeWait
		e.actionTime = now.Add(s.cfg.DACSOpenTime)
		e.refptr = rc
		e.dacsInfo = dacsData{
			prevCustodianID: ci.CustodianID,
			flowSourceEID:   ci.FlowSourceEID,
			payload:         payload,
		}
		return nil
	})
	if err != nil {
		rc.Release()
		return mpool.Ref[Entry]{}, ErrOutOfMemory
	}
	if e, ok := s.entries.Get(entryRef); ok {
		e.self = entryRef
	}

	fp := dacsOpenFingerprint(ci.FlowSourceEID, ci.CustodianID)
	if err := s.hashIndex.addToSubindex(fp, entryRef); err != nil {
		s.entries.Recycle(entryRef, func(e *Entry) { e.refptr.Release() })
		return mpool.Ref[Entry]{}, err
	}
	s.pendingList.PushBack(s.entries, entryRef, entryMainLink)

	metrics.DACSOpenedTotal.Inc()
	s.publish(events.TypeDACSOpened, ci.FlowSourceEID.String(), "dacs opened")
	return entryRef, nil
}

// findOpenDACS locates a pending (not-yet-finalized) DACS entry for
// (flow, custodian), if one exists.
func (s *State) findOpenDACS(flow, custodian bpid.EID) mpool.Ref[Entry] {
	fp := dacsOpenFingerprint(flow, custodian)
	var found mpool.Ref[Entry]
	s.hashIndex.forEachInRange(fp, fp+1, func(ref mpool.Ref[Entry]) bool {
		e, ok := s.entries.Get(ref)
		if !ok || e.kind != EntryKindDACS {
			return true
		}
		if e.dacsInfo.flowSourceEID == flow && e.dacsInfo.prevCustodianID == custodian {
			found = ref
			return false
		}
		return true
	})
	return found
}

// appendDACS appends seq to the open DACS entryRef's payload, and
// finalizes it if that append fills the payload to capacity.
func (s *State) appendDACS(entryRef mpool.Ref[Entry], seq uint64) {
	entry, ok := s.entries.Get(entryRef)
	if !ok || entry.kind != EntryKindDACS {
		return
	}
	_, nowFull := entry.dacsInfo.payload.Append(seq)
	s.publish(events.TypeDACSAppended, entry.dacsInfo.flowSourceEID.String(), "dacs sequence appended")
	if nowFull {
		// DACS_MAX_SEQ_PER_PAYLOAD overrides the open-time wait: finalize
		// immediately rather than waiting for fsmExecute's deadline check.
		s.finalizeDACS(entryRef, entry)
		s.makePending(entryRef, 0, 0)
		s.fsmExecute(entryRef, time.Now())
		return
	}
	// Not yet full: route through the FSM so a freshly opened DACS gets
	// indexed into time_index at its close-out deadline.
	s.fsmExecute(entryRef, time.Now())
}

// finalizeDACS removes entry from hash_index (so no further appends
// can find it) and clears ACTION_TIME_WAIT. The caller is responsible
// for promoting it to pending / egress afterward. Idempotent: a DACS
// reaching capacity via appendDACS finalizes immediately, and the FSM
// calling finalizeDACS again on the same entry once its action time
// comes around is a silent no-op.
func (s *State) finalizeDACS(entryRef mpool.Ref[Entry], entry *Entry) {
	if !entry.hashLink.Attached() {
		return
	}
	s.hashIndex.removeFromSubindex(entryRef)
	if entry.timeLink.Attached() {
		s.timeIndex.removeFromSubindex(entryRef)
	}
	entry.flags &^= FlagActionTimeWait
	metrics.DACSFinalizedTotal.Inc()
	s.publish(events.TypeDACSFinalized, entry.dacsInfo.flowSourceEID.String(), "dacs finalized")
}

// ackTrackingBlock finds or opens the DACS entry for (ci.FlowSourceEID,
// ci.CustodianID) and appends ci.SequenceNum to it.
func (s *State) ackTrackingBlock(ci CustodyInfo) {
	ref := s.findOpenDACS(ci.FlowSourceEID, ci.CustodianID)
	if !ref.Valid() {
		var err error
		ref, err = s.openDACS(ci)
		if err != nil {
			return
		}
	}
	s.appendDACS(ref, ci.SequenceNum)
}

// CheckDACS reports whether b is a DACS bundle: an administrative
// record carrying a custody-accept payload block.
func CheckDACS(b *bundle.Bundle) bool {
	if !b.Primary.IsAdminRecord {
		return false
	}
	_, ok := b.CustodyAccept()
	return ok
}

// ProcessRemoteDACSBundle implements spec.md §4.4's inbound-DACS path:
// for every sequence number the DACS acknowledges, find the matching
// stored bundle entry and clear its LOCAL_CUSTODY flag.
func (s *State) ProcessRemoteDACSBundle(b *bundle.Bundle) {
	payload, ok := b.CustodyAccept()
	if !ok {
		return
	}
	for _, seq := range payload.SequenceNums {
		fp := bundleFingerprint(payload.FlowSourceEID, seq)
		s.hashIndex.forEachInRange(fp, fp+1, func(ref mpool.Ref[Entry]) bool {
			e, ok := s.entries.Get(ref)
			if !ok || e.kind != EntryKindBundle {
				return true
			}
			eb, ok := e.refptr.Get()
			if !ok || eb.Primary.Source != payload.FlowSourceEID || eb.Primary.Creation.SequenceNum != seq {
				return true
			}
			s.makePending(ref, 0, FlagLocalCustody)
			metrics.CustodyClearedTotal.Inc()
			s.publish(events.TypeCustodyCleared, payload.FlowSourceEID.String(), "custody cleared by inbound dacs")
			return false
		})
	}
}
