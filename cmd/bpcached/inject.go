package main

import (
	"time"

	"github.com/google/uuid"

	"github.com/dtnkit/bpcache/pkg/bpid"
	"github.com/dtnkit/bpcache/pkg/bundle"
	"github.com/dtnkit/bpcache/pkg/config"
)

func parseEID(s string) (bpid.EID, error) {
	return bpid.Parse(s)
}

// buildSyntheticBundle constructs a minimal custody-tracked bundle for
// the inject subcommand, the same role a decoded wire bundle plays
// once handed off by the (out-of-scope) codec.
func buildSyntheticBundle(source, dest string, seq uint64) (*bundle.Bundle, error) {
	src, err := bpid.Parse(source)
	if err != nil {
		return nil, err
	}
	dst, err := bpid.Parse(dest)
	if err != nil {
		return nil, err
	}
	return &bundle.Bundle{
		Primary: bundle.Primary{
			Version:     7,
			Source:      src,
			Destination: dst,
			Creation: bundle.CreationTimestamp{
				Time:        time.Now(),
				SequenceNum: seq,
			},
			Lifetime:                time.Hour,
			RequestsCustodyTracking: true,
		},
	}, nil
}

func defaultInjectDelivery(cfg config.Config) bundle.DeliveryData {
	return bundle.DeliveryData{
		Policy:            bundle.DeliveryPolicyCustodyTracking,
		LocalRetxInterval: cfg.FastRetryTime,
		IngressIntfID:     "cli:inject",
		StorageIntfID:     cfg.SelfAddr.String(),
		IngressTime:       time.Now(),
	}
}

func newCorrelationID() string {
	return uuid.New().String()
}
