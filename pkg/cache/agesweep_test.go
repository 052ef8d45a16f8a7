package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allocIdleEntry(t *testing.T, s *State, flags Flags) {
	t.Helper()
	ref, err := s.entries.Alloc(func(e *Entry) error {
		e.owner = s
		e.kind = EntryKindBundle
		e.flags = flags
		return nil
	})
	require.NoError(t, err)
	e, ok := s.entries.Get(ref)
	require.True(t, ok)
	e.self = ref
	s.idleList.PushBack(s.entries, ref, entryMainLink)
}

func TestAgeSweepDeletesAfterConfiguredConsecutiveSilentSweeps(t *testing.T) {
	s := newTestState(t)
	s.cfg.AgeOutSweeps = 2
	allocIdleEntry(t, s, 0)

	require.Equal(t, 1, s.idleList.Len())

	s.ageSweep()
	assert.Equal(t, 1, s.idleList.Len(), "survives one silent sweep")

	s.ageSweep()
	assert.Equal(t, 0, s.idleList.Len(), "deleted on the second consecutive silent sweep")
}

func TestAgeSweepResetsOnActivity(t *testing.T) {
	s := newTestState(t)
	s.cfg.AgeOutSweeps = 2
	allocIdleEntry(t, s, FlagActivity)

	s.ageSweep()
	assert.Equal(t, 1, s.idleList.Len(), "ACTIVITY clears instead of counting as a silent sweep")

	s.ageSweep()
	assert.Equal(t, 1, s.idleList.Len(), "idleSweeps was reset, so a single silent sweep after is not enough")

	s.ageSweep()
	assert.Equal(t, 0, s.idleList.Len())
}

func TestAgeSweepNeverTouchesLocalCustody(t *testing.T) {
	s := newTestState(t)
	s.cfg.AgeOutSweeps = 1
	allocIdleEntry(t, s, FlagLocalCustody)

	s.ageSweep()
	s.ageSweep()
	s.ageSweep()

	assert.Equal(t, 1, s.idleList.Len(), "LOCAL_CUSTODY entries are never aged out here")
}
