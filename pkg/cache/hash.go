package cache

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/dtnkit/bpcache/pkg/bpid"
)

// Salted CRC-32C (Castagnoli) fingerprints share one hash_index tree
// between two unrelated lookup domains — open DACS entries keyed by
// flow source, and bundle/DACS duplicate detection keyed by primary
// block identity — without the two ever colliding in practice. This is
// the one piece of the cache built directly on the standard library:
// no CRC-32C implementation appears anywhere in the retrieval pack, and
// hash/crc32's Castagnoli table is the natural fit for a
// fingerprint whose only job is cheap, well-distributed bucketing
// inside one process (see DESIGN.md).
const (
	saltDACS   uint32 = 0x3126c0cf
	saltBundle uint32 = 0x7739ae76
)

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// fingerprint is the CRC-32C of parts in order, followed by salt as a
// 32-bit little-endian value.
func fingerprint(salt uint32, parts ...[]byte) uint32 {
	h := crc32.New(castagnoliTable)
	for _, p := range parts {
		h.Write(p)
	}
	var saltBuf [4]byte
	binary.LittleEndian.PutUint32(saltBuf[:], salt)
	h.Write(saltBuf[:])
	return h.Sum32()
}

func eidBytes(e bpid.EID) []byte {
	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], uint64(e.Node))
	binary.BigEndian.PutUint64(b[8:16], e.Service)
	return b[:]
}

// dacsOpenFingerprint is the hash_index key for an open (accumulating)
// DACS entry, keyed by the flow it is acknowledging and the previous
// custodian it will be sent to — excluding the sequence number, since
// one DACS accumulates many.
func dacsOpenFingerprint(flowSourceEID, custodianID bpid.EID) uint32 {
	return fingerprint(saltDACS, eidBytes(flowSourceEID), eidBytes(custodianID))
}

// bundleFingerprint is the hash_index key for duplicate detection of a
// normal bundle and for matching against an incoming DACS, keyed by
// (flow source EID, creation sequence number) per spec.md's
// duplicate-suppression law L1: two admissions of the same (flow, seq)
// pair must fingerprint identically regardless of admission order.
func bundleFingerprint(flowSourceEID bpid.EID, seq uint64) uint32 {
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], seq)
	return fingerprint(saltBundle, eidBytes(flowSourceEID), seqBuf[:])
}
