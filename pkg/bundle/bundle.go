// Package bundle holds the in-memory bundle representation the cache
// operates on. The wire codec (CBOR-ish primary/canonical block
// encoding) is out of scope for this module; this package is the
// minimal stand-in a real codec would hand decoded values through.
package bundle

import (
	"time"

	"github.com/dtnkit/bpcache/pkg/bpid"
)

// BlockType identifies a canonical block's protocol-assigned type number.
type BlockType uint64

const (
	BlockTypePayload              BlockType = 1
	BlockTypeCustodyTracking      BlockType = 192
	BlockTypeCustodyAcceptPayload BlockType = 193
)

// CRCType is the CRC field present on a primary or canonical block.
type CRCType uint8

const (
	CRCNone CRCType = 0
	CRC16   CRCType = 1
	CRC32   CRCType = 2
)

// DeliveryPolicy controls how the cache handles custody for one bundle.
type DeliveryPolicy uint8

const (
	// DeliveryPolicyLocalAck expects no further custody signal; the
	// cache's own admission is the end of the line for this bundle.
	DeliveryPolicyLocalAck DeliveryPolicy = iota
	// DeliveryPolicyCustodyTracking requests full custody-transfer
	// tracking: insertion/update of a custody tracking block and
	// generation of DACS acknowledgements back to the previous
	// custodian.
	DeliveryPolicyCustodyTracking
)

// CreationTimestamp is the bundle's (time, sequence) creation id,
// scoped to its source EID.
type CreationTimestamp struct {
	Time         time.Time
	SequenceNum  uint64
}

// Primary is the bundle's primary block.
type Primary struct {
	Version         uint8
	Source          bpid.EID
	Destination     bpid.EID
	ReportTo        bpid.EID
	Creation        CreationTimestamp
	Lifetime        time.Duration
	IsAdminRecord   bool
	MustNotFragment bool
	CRCType         CRCType
	// RequestsCustodyTracking mirrors the bundle processing control
	// flags bit requesting custody transfer reporting; it is the
	// sender's request, independent of whatever policy the receiving
	// cache ultimately applies.
	RequestsCustodyTracking bool
}

// DeliveryPolicyFor derives the cache-side delivery policy a freshly
// admitted bundle starts with, from the sender's processing control
// flags.
func (p Primary) DeliveryPolicyFor() DeliveryPolicy {
	if p.RequestsCustodyTracking {
		return DeliveryPolicyCustodyTracking
	}
	return DeliveryPolicyLocalAck
}

// Canonical is one canonical (extension) block.
type Canonical struct {
	BlockType BlockType
	BlockNum  uint64
	CRCType   CRCType
	Data      any
}

// CustodyTrackingBlock is the canonical block naming a bundle's current
// custodian.
type CustodyTrackingBlock struct {
	CurrentCustodian bpid.EID
}

// CustodyAcceptPayload is a DACS's canonical payload: an aggregated
// acknowledgement of many sequence numbers from one flow source,
// capped at a configured maximum.
type CustodyAcceptPayload struct {
	FlowSourceEID bpid.EID
	SequenceNums  []uint64
	MaxEntries    int
}

// Contains reports whether seq is already present in the payload.
func (p *CustodyAcceptPayload) Contains(seq uint64) bool {
	for _, s := range p.SequenceNums {
		if s == seq {
			return true
		}
	}
	return false
}

// Full reports whether the payload has reached its configured cap.
func (p *CustodyAcceptPayload) Full() bool {
	return len(p.SequenceNums) >= p.MaxEntries
}

// Append appends seq if it is not already present and the payload is
// not full. appended reports whether seq was added; nowFull reports
// whether the payload is at capacity after the call, including when it
// was already full beforehand (the caller should finalize the DACS).
func (p *CustodyAcceptPayload) Append(seq uint64) (appended, nowFull bool) {
	if p.Contains(seq) {
		return false, p.Full()
	}
	if p.Full() {
		return false, true
	}
	p.SequenceNums = append(p.SequenceNums, seq)
	return true, p.Full()
}

// Bundle is a fully decoded bundle: a primary block plus its canonical
// blocks, in on-wire order.
type Bundle struct {
	Primary    Primary
	Canonicals []Canonical
}

// FindCanonical returns the first canonical block of the given type, if any.
func (b *Bundle) FindCanonical(t BlockType) (*Canonical, bool) {
	for i := range b.Canonicals {
		if b.Canonicals[i].BlockType == t {
			return &b.Canonicals[i], true
		}
	}
	return nil, false
}

// CustodyTracking returns the bundle's custody tracking block, if present.
func (b *Bundle) CustodyTracking() (*CustodyTrackingBlock, bool) {
	c, ok := b.FindCanonical(BlockTypeCustodyTracking)
	if !ok {
		return nil, false
	}
	ctb, ok := c.Data.(*CustodyTrackingBlock)
	return ctb, ok
}

// CustodyAccept returns the bundle's custody-accept payload (DACS
// content), if this bundle carries one.
func (b *Bundle) CustodyAccept() (*CustodyAcceptPayload, bool) {
	c, ok := b.FindCanonical(BlockTypeCustodyAcceptPayload)
	if !ok {
		return nil, false
	}
	cap_, ok := c.Data.(*CustodyAcceptPayload)
	return cap_, ok
}

// nextCanonicalBlockNum returns a block number not already used by any
// canonical block in the bundle (canonical block 0 is reserved for the
// primary block in BPv7 numbering conventions, so block numbers start
// at 1).
func (b *Bundle) nextCanonicalBlockNum() uint64 {
	max := uint64(0)
	for _, c := range b.Canonicals {
		if c.BlockNum > max {
			max = c.BlockNum
		}
	}
	return max + 1
}

// AppendCanonical appends a canonical block, assigning it the next free
// block number, and returns that number.
func (b *Bundle) AppendCanonical(t BlockType, crcType CRCType, data any) uint64 {
	num := b.nextCanonicalBlockNum()
	b.Canonicals = append(b.Canonicals, Canonical{
		BlockType: t,
		BlockNum:  num,
		CRCType:   crcType,
		Data:      data,
	})
	return num
}

// DeliveryData is the per-bundle delivery bookkeeping the cache
// maintains alongside the wire bundle; it is not part of the wire
// format.
type DeliveryData struct {
	Policy             DeliveryPolicy
	LocalRetxInterval  time.Duration
	IngressIntfID      string
	StorageIntfID      string
	IngressTime        time.Time
	CommittedStorageID uint64
}
