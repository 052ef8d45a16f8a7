package cache

import (
	"testing"
	"time"

	"github.com/dtnkit/bpcache/pkg/bpid"
	"github.com/dtnkit/bpcache/pkg/bundle"
)

// sampleBundle builds a custody-tracked bundle from flowSource with the
// given sequence number, destined for ipn:<destNode>.1.
func sampleBundle(t *testing.T, flowSource bpid.EID, seq uint64, destNode bpid.NodeNumber) *bundle.Bundle {
	t.Helper()
	return &bundle.Bundle{
		Primary: bundle.Primary{
			Version:                 7,
			Source:                  flowSource,
			Destination:             bpid.EID{Node: destNode, Service: 1},
			Creation:                bundle.CreationTimestamp{Time: time.Now(), SequenceNum: seq},
			Lifetime:                time.Hour,
			RequestsCustodyTracking: true,
		},
	}
}

func defaultDelivery() bundle.DeliveryData {
	return bundle.DeliveryData{
		Policy:      bundle.DeliveryPolicyCustodyTracking,
		IngressTime: time.Now(),
	}
}

func dacsBundle(t *testing.T, self, flowSource bpid.EID, seqs ...uint64) *bundle.Bundle {
	t.Helper()
	b := &bundle.Bundle{
		Primary: bundle.Primary{
			Version:       7,
			Source:        self,
			Destination:   self,
			Creation:      bundle.CreationTimestamp{Time: time.Now(), SequenceNum: 0},
			Lifetime:      time.Hour,
			IsAdminRecord: true,
		},
	}
	b.AppendCanonical(bundle.BlockTypeCustodyAcceptPayload, bundle.CRCNone, &bundle.CustodyAcceptPayload{
		FlowSourceEID: flowSource,
		SequenceNums:  seqs,
		MaxEntries:    64,
	})
	return b
}
