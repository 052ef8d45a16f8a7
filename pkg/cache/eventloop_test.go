package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtnkit/bpcache/pkg/mpool"
	"github.com/dtnkit/bpcache/pkg/route"
)

func allocBareEntry(t *testing.T, s *State) mpool.Ref[Entry] {
	t.Helper()
	ref, err := s.entries.Alloc(func(e *Entry) error {
		e.owner = s
		e.kind = EntryKindBundle
		e.flags = FlagLocalCustody
		return nil
	})
	require.NoError(t, err)
	e, ok := s.entries.Get(ref)
	require.True(t, ok)
	e.self = ref
	return ref
}

// Scenario 5: "Insert an Entry with time_index key now-1. Call
// do_poll. Expected: the entry moves to pending_list and the Queue is
// recycled."
func TestDoPollMovesDueEntryToPendingList(t *testing.T) {
	s := newTestState(t)
	ref := allocBareEntry(t, s)

	past := timeKeyOf(time.Now()) - 1
	require.NoError(t, s.timeIndex.addToSubindex(past, ref))
	require.Equal(t, 1, s.timeIndex.len())

	s.DoPoll()

	assert.Equal(t, 0, s.timeIndex.len(), "the due Queue is recycled")
	entry, ok := s.entries.Get(ref)
	require.True(t, ok)
	assert.True(t, entry.mainLink.Attached())

	found := false
	s.pendingList.ForEach(s.entries, entryMainLink, func(r mpool.Ref[Entry]) bool {
		if r == ref {
			found = true
		}
		return true
	})
	assert.True(t, found, "entry must be on pending_list after its due sweep")
}

// Scenario 6: "Insert entries with dest_eid keys {200, 201, 202, 300};
// call do_route_up(dest=200, mask=0xFFFFFFFE). Expected: entries at
// keys {200, 201} are placed onto pending_list while remaining in
// dest_eid_index; entries at {202, 300} are untouched."
func TestDoRouteUpMovesMatchingEntriesKeepingIndex(t *testing.T) {
	s := newTestState(t)
	keys := []uint32{200, 201, 202, 300}
	refs := make(map[uint32]mpool.Ref[Entry], len(keys))
	for _, k := range keys {
		ref := allocBareEntry(t, s)
		require.NoError(t, s.destIndex.addToSubindex(k, ref))
		refs[k] = ref
	}

	s.DoRouteUp(200, 0xFFFFFFFE)

	pending := map[mpool.Ref[Entry]]bool{}
	s.pendingList.ForEach(s.entries, entryMainLink, func(r mpool.Ref[Entry]) bool {
		pending[r] = true
		return true
	})

	assert.True(t, pending[refs[200]])
	assert.True(t, pending[refs[201]])
	assert.False(t, pending[refs[202]])
	assert.False(t, pending[refs[300]])

	assert.Equal(t, 4, s.destIndex.len(), "dest_eid_index membership is untouched by do_route_up")
}

func TestDoIntfStateChangeGatesBackpressure(t *testing.T) {
	s := newTestState(t)
	s.DoIntfStateChange(false)
	assert.False(t, s.selfIngress.MayPush(), "P9: interface down means no local ingress capacity")

	s.DoIntfStateChange(true)
	assert.True(t, s.selfIngress.MayPush())
}

func TestEventImplDispatchesPollAndFlushes(t *testing.T) {
	s := newTestState(t)
	s.DoIntfStateChange(true)
	ref := allocBareEntry(t, s)
	past := timeKeyOf(time.Now()) - 1
	require.NoError(t, s.timeIndex.addToSubindex(past, ref))

	s.EventImpl(route.Event{Kind: route.EventPoll})

	assert.Equal(t, 1, s.timeIndex.len(), "the flushed entry re-indexes itself at its next retry deadline")
	entry, ok := s.entries.Get(ref)
	require.True(t, ok)
	assert.Greater(t, entry.timeKey, past, "the due key was swept and replaced by a later one")
}
