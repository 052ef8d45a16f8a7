package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dtnkit/bpcache/pkg/bpid"
)

func TestFingerprintStability(t *testing.T) {
	flow := bpid.MustParse("ipn:100.1")
	custodian := bpid.MustParse("ipn:50.1")

	a := dacsOpenFingerprint(flow, custodian)
	b := dacsOpenFingerprint(flow, custodian)
	assert.Equal(t, a, b, "dacs fingerprint must be deterministic across calls")

	c := bundleFingerprint(flow, 42)
	d := bundleFingerprint(flow, 42)
	assert.Equal(t, c, d, "bundle fingerprint must be deterministic across calls")

	assert.NotEqual(t, a, c, "dacs and bundle fingerprints should not coincide for related inputs")
}

func TestFingerprintDistinguishesInputs(t *testing.T) {
	flowA := bpid.MustParse("ipn:100.1")
	flowB := bpid.MustParse("ipn:100.2")
	custodian := bpid.MustParse("ipn:50.1")

	assert.NotEqual(t, dacsOpenFingerprint(flowA, custodian), dacsOpenFingerprint(flowB, custodian))
	assert.NotEqual(t, bundleFingerprint(flowA, 1), bundleFingerprint(flowA, 2))
}

func TestSaltsMatchSpec(t *testing.T) {
	assert.Equal(t, uint32(0x3126c0cf), saltDACS)
	assert.Equal(t, uint32(0x7739ae76), saltBundle)
}
