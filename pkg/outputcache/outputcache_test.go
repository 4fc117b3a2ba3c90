package outputcache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladg14/libbitcoin-database/pkg/txrecord"
)

func TestPopulate_MissOnEmptyCache(t *testing.T) {
	c, err := New(4)
	require.NoError(t, err)

	_, ok := c.Populate(txrecord.OutputPoint{Hash: [32]byte{1}, Index: 0}, 100)
	require.False(t, ok)
}

func TestAdd_OnlyCachesUnspentOutputs(t *testing.T) {
	c, err := New(4)
	require.NoError(t, err)

	hash := [32]byte{2}
	tx := &txrecord.Transaction{
		Header: txrecord.Header{HeightOrForks: 10, Position: 1, State: txrecord.StateConfirmed, MedianTimePast: 555},
		Outputs: []txrecord.Output{
			{Value: 100, SpenderHeight: txrecord.NotSpent},
			{Value: 200, SpenderHeight: 5}, // already spent, must not be cached
		},
	}
	c.Add(hash, tx)

	entry, ok := c.Populate(txrecord.OutputPoint{Hash: hash, Index: 0}, 10)
	require.True(t, ok)
	require.Equal(t, uint64(100), entry.Value)
	require.Equal(t, uint32(10), entry.Height)
	require.Equal(t, uint32(555), entry.MedianTimePast)

	_, ok = c.Populate(txrecord.OutputPoint{Hash: hash, Index: 1}, 10)
	require.False(t, ok)
}

func TestPopulate_NotYetRelevantAtLowerForkHeight(t *testing.T) {
	c, err := New(4)
	require.NoError(t, err)

	hash := [32]byte{3}
	tx := &txrecord.Transaction{
		Header:  txrecord.Header{HeightOrForks: 50, State: txrecord.StateConfirmed},
		Outputs: []txrecord.Output{{Value: 1, SpenderHeight: txrecord.NotSpent}},
	}
	c.Add(hash, tx)

	_, ok := c.Populate(txrecord.OutputPoint{Hash: hash, Index: 0}, 49)
	require.False(t, ok)

	entry, ok := c.Populate(txrecord.OutputPoint{Hash: hash, Index: 0}, 50)
	require.True(t, ok)
	require.Equal(t, uint64(1), entry.Value)
}

func TestRemove_EvictsEntry(t *testing.T) {
	c, err := New(4)
	require.NoError(t, err)

	hash := [32]byte{4}
	tx := &txrecord.Transaction{
		Header:  txrecord.Header{State: txrecord.StateConfirmed},
		Outputs: []txrecord.Output{{Value: 1, SpenderHeight: txrecord.NotSpent}},
	}
	c.Add(hash, tx)

	point := txrecord.OutputPoint{Hash: hash, Index: 0}
	_, ok := c.Populate(point, 0)
	require.True(t, ok)

	c.Remove(point)

	_, ok = c.Populate(point, 0)
	require.False(t, ok)
}

func TestCapacity_EvictsLeastRecentlyUsed(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)

	for i := byte(0); i < 3; i++ {
		hash := [32]byte{i}
		tx := &txrecord.Transaction{
			Header:  txrecord.Header{State: txrecord.StateConfirmed},
			Outputs: []txrecord.Output{{Value: uint64(i), SpenderHeight: txrecord.NotSpent}},
		}
		c.Add(hash, tx)
	}

	require.Equal(t, 2, c.Len())
	_, ok := c.Populate(txrecord.OutputPoint{Hash: [32]byte{0}, Index: 0}, 0)
	require.False(t, ok, "oldest entry should have been evicted")
}
