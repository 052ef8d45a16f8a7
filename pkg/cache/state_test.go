package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtnkit/bpcache/pkg/bpid"
	"github.com/dtnkit/bpcache/pkg/config"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.SelfAddr = bpid.MustParse("ipn:1.1")
	cfg.DACSOpenTime = time.Hour
	return cfg
}

func newTestState(t *testing.T) *State {
	t.Helper()
	return NewState(testConfig(), nil)
}

func TestNewStateIsEmpty(t *testing.T) {
	s := newTestState(t)
	assert.True(t, s.IsEmpty())
	assert.NotPanics(t, func() { s.Destruct() })
}

func TestDestructPanicsWhenNotEmpty(t *testing.T) {
	s := newTestState(t)
	_, _, err := s.StoreBundle(sampleBundle(t, bpid.MustParse("ipn:100.1"), 1, 200), defaultDelivery())
	require.NoError(t, err)

	assert.False(t, s.IsEmpty())
	assert.PanicsWithValue(t, ErrTornDown, func() { s.Destruct() })
}

func TestDebugScanReportsOccupancy(t *testing.T) {
	s := newTestState(t)
	_, _, err := s.StoreBundle(sampleBundle(t, bpid.MustParse("ipn:100.1"), 1, 200), defaultDelivery())
	require.NoError(t, err)

	snap := s.DebugScan()
	assert.Equal(t, 1, snap.HashQueues)
	assert.Equal(t, 1, snap.DestQueues)
}
