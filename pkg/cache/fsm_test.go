package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtnkit/bpcache/pkg/bpid"
	"github.com/dtnkit/bpcache/pkg/mpool"
)

func TestMakePendingMovesBetweenLists(t *testing.T) {
	s := newTestState(t)
	flow := bpid.MustParse("ipn:100.1")
	_, _, err := s.StoreBundle(sampleBundle(t, flow, 1, 200), defaultDelivery())
	require.NoError(t, err)

	var ref mpool.Ref[Entry]
	s.pendingList.ForEach(s.entries, entryMainLink, func(r mpool.Ref[Entry]) bool {
		ref = r
		return true
	})
	require.True(t, ref.Valid())

	s.makePending(ref, 0, FlagLocalCustody)
	entry, ok := s.entries.Get(ref)
	require.True(t, ok)
	assert.False(t, entry.flags.Has(FlagLocalCustody))
	assert.True(t, entry.mainLink.Attached())
}

func TestFsmExecuteBundleMovesIdleWhenCustodyCleared(t *testing.T) {
	s := newTestState(t)
	flow := bpid.MustParse("ipn:100.1")
	_, _, err := s.StoreBundle(sampleBundle(t, flow, 1, 200), defaultDelivery())
	require.NoError(t, err)

	var ref mpool.Ref[Entry]
	s.pendingList.ForEach(s.entries, entryMainLink, func(r mpool.Ref[Entry]) bool {
		ref = r
		return true
	})
	require.True(t, ref.Valid())

	s.makePending(ref, 0, FlagLocalCustody)
	s.fsmExecute(ref, time.Now())

	assert.True(t, s.idleList.Len() >= 1, "P2: entry without LOCAL_CUSTODY moves to idle_list")
	assert.Equal(t, 0, s.pendingList.Len())
}

func TestFsmExecuteBundleSchedulesRetry(t *testing.T) {
	s := newTestState(t)
	flow := bpid.MustParse("ipn:100.1")
	_, _, err := s.StoreBundle(sampleBundle(t, flow, 1, 200), defaultDelivery())
	require.NoError(t, err)

	assert.Equal(t, 0, s.pendingList.Len(), "StoreBundle already ran fsmExecute once")
	assert.Equal(t, 1, s.timeIndex.len(), "retransmission schedules the entry into time_index")
}
