package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/behrlich/cachesim/internal/proto"
)

func TestTagStoreLookupMiss(t *testing.T) {
	ts := NewTagStore[proto.MESIState](16, 2, 4)
	_, ok := ts.Lookup(0x00)
	require.False(t, ok)
}

func TestTagStoreInsertAndLookup(t *testing.T) {
	ts := NewTagStore[proto.MESIState](16, 2, 4)
	evicted, ok := ts.Insert(0x00, proto.MESIExclusive)
	require.False(t, ok)
	require.Zero(t, evicted)

	state, found := ts.Lookup(0x00)
	require.True(t, found)
	require.Equal(t, proto.MESIExclusive, state)
}

func TestTagStoreLRUEvictionSingleSet(t *testing.T) {
	ts := NewTagStore[proto.MESIState](8, 2, 4) // numSets = 8/(2*4) = 1
	require.Equal(t, 1, ts.NumSets())

	ts.Insert(0x00, proto.MESIShared)  // block 0
	ts.Insert(0x04, proto.MESIShared)  // block 1, set full now (2-way)
	ts.Touch(0x00)                     // 0x00 becomes MRU again

	// Inserting a third distinct block evicts the LRU, which is now 0x04.
	evicted, ok := ts.Insert(0x08, proto.MESIExclusive)
	require.True(t, ok)
	require.Equal(t, uint64(1), evicted.BlockAddr) // block 1 == address 0x04

	_, found := ts.Lookup(0x04)
	require.False(t, found)
	_, found = ts.Lookup(0x00)
	require.True(t, found)
	_, found = ts.Lookup(0x08)
	require.True(t, found)
}

func TestTagStoreSetStateAndRemove(t *testing.T) {
	ts := NewTagStore[proto.MESIState](8, 2, 4)
	ts.Insert(0x00, proto.MESIExclusive)

	ok := ts.SetState(0x00, proto.MESIModified)
	require.True(t, ok)
	state, _ := ts.Lookup(0x00)
	require.Equal(t, proto.MESIModified, state)

	require.True(t, ts.Remove(0x00))
	_, found := ts.Lookup(0x00)
	require.False(t, found)
	require.False(t, ts.Remove(0x00))
}

func TestTagStorePanicsOnNonPowerOfTwoSets(t *testing.T) {
	require.Panics(t, func() {
		NewTagStore[proto.MESIState](24, 2, 4) // numSets = 3, not a power of two
	})
}

func TestTagStoreTouchOnAbsentBlockPanics(t *testing.T) {
	ts := NewTagStore[proto.MESIState](8, 2, 4)
	require.Panics(t, func() {
		ts.Touch(0x00)
	})
}
