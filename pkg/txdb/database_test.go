package txdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladg14/libbitcoin-database/pkg/txrecord"
)

func newTestDB(t *testing.T) *Database {
	dir := t.TempDir()
	db, err := Open(Config{
		HeapPath:      filepath.Join(dir, "heap.dat"),
		IndexPath:     filepath.Join(dir, "index"),
		CacheCapacity: 16,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// S1 — store/find round-trip.
func TestS1_StoreFindRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	hash := [32]byte{0xA0}
	tx0 := &txrecord.Transaction{
		Header: txrecord.Header{HeightOrForks: 1, Position: 0, State: txrecord.StateConfirmed, MedianTimePast: 0},
		Outputs: []txrecord.Output{
			{SpenderHeight: txrecord.NotSpent, Value: 5000000000, Script: []byte{0x41, 0x04, 0xAC}},
		},
		Inputs: []txrecord.Input{{PreviousIndex: txrecord.UnconfirmedPosition}},
	}
	_, err := db.Store(ctx, hash, tx0)
	require.NoError(t, err)

	got, _, ok, err := db.GetByHash(ctx, hash)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(1), got.HeightOrForks)
	require.Equal(t, uint16(0), got.Position)
	require.Equal(t, txrecord.StateConfirmed, got.State)
	require.Len(t, got.Outputs, 1)
	require.Equal(t, uint64(5000000000), got.Outputs[0].Value)
	require.Equal(t, uint32(txrecord.NotSpent), got.Outputs[0].SpenderHeight)
}

// S2 — spend.
func TestS2_Spend(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	hash0 := [32]byte{0xB0}
	tx0 := &txrecord.Transaction{
		Header:  txrecord.Header{HeightOrForks: 1, State: txrecord.StateConfirmed},
		Outputs: []txrecord.Output{{SpenderHeight: txrecord.NotSpent, Value: 5000000000}},
		Inputs:  []txrecord.Input{{PreviousIndex: txrecord.UnconfirmedPosition}},
	}
	_, err := db.Store(ctx, hash0, tx0)
	require.NoError(t, err)

	hash1 := [32]byte{0xB1}
	tx1 := &txrecord.Transaction{
		Header:  txrecord.Header{State: txrecord.StateStored},
		Outputs: []txrecord.Output{{SpenderHeight: txrecord.NotSpent, Value: 1}},
		Inputs:  []txrecord.Input{{PreviousHash: hash0, PreviousIndex: 0, Sequence: 1}},
	}
	link1, err := db.Store(ctx, hash1, tx1)
	require.NoError(t, err)

	require.NoError(t, db.Confirm(ctx, link1, 1, 999, 1))

	meta, ok, err := db.GetOutput(ctx, txrecord.OutputPoint{Hash: hash0, Index: 0}, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, meta.Confirmed)
	require.True(t, meta.Spent)
	require.Equal(t, uint32(1), meta.Height)
}

// S3 — unconfirm restores.
func TestS3_UnconfirmRestores(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	hash0 := [32]byte{0xC0}
	tx0 := &txrecord.Transaction{
		Header:  txrecord.Header{HeightOrForks: 1, State: txrecord.StateConfirmed},
		Outputs: []txrecord.Output{{SpenderHeight: txrecord.NotSpent, Value: 1}},
		Inputs:  []txrecord.Input{{PreviousIndex: txrecord.UnconfirmedPosition}},
	}
	_, err := db.Store(ctx, hash0, tx0)
	require.NoError(t, err)

	hash1 := [32]byte{0xC1}
	tx1 := &txrecord.Transaction{
		Header:  txrecord.Header{State: txrecord.StateStored},
		Outputs: []txrecord.Output{{SpenderHeight: txrecord.NotSpent, Value: 1}},
		Inputs:  []txrecord.Input{{PreviousHash: hash0, PreviousIndex: 0}},
	}
	link1, err := db.Store(ctx, hash1, tx1)
	require.NoError(t, err)

	require.NoError(t, db.Confirm(ctx, link1, 1, 555, 0))
	require.NoError(t, db.Unconfirm(ctx, link1))

	meta, ok, err := db.GetOutput(ctx, txrecord.OutputPoint{Hash: hash0, Index: 0}, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, meta.Spent)

	got, _, ok, err := db.GetByHash(ctx, hash1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, txrecord.StatePooled, got.State)
	require.Equal(t, txrecord.UnconfirmedPosition, got.Position)
	require.Equal(t, uint32(0), got.MedianTimePast)
	require.Equal(t, txrecord.UnverifiedForks, got.HeightOrForks)
}

// S5 — mempool query.
func TestS5_MempoolQuery(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	hash := [32]byte{0xD0}
	body := &txrecord.Transaction{
		Outputs: []txrecord.Output{{SpenderHeight: txrecord.NotSpent, Value: 1}},
	}
	_, err := db.Pool(ctx, hash, body, 0x1F)
	require.NoError(t, err)

	got, _, ok, err := db.GetByHash(ctx, hash)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, txrecord.StatePooled, got.State)
	require.Equal(t, txrecord.UnconfirmedPosition, got.Position)

	meta, ok, err := db.GetOutput(ctx, txrecord.OutputPoint{Hash: hash, Index: 0}, txrecord.MaxForkHeight)
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, meta.Confirmed)
}

// S6 — shutdown truncates.
func TestS6_ShutdownTruncates(t *testing.T) {
	dir := t.TempDir()
	heapPath := filepath.Join(dir, "heap.dat")
	indexPath := filepath.Join(dir, "index")

	db, err := Open(Config{HeapPath: heapPath, IndexPath: indexPath})
	require.NoError(t, err)

	ctx := context.Background()
	for i := byte(0); i < 4; i++ {
		tx := &txrecord.Transaction{
			Header:  txrecord.Header{State: txrecord.StateConfirmed, HeightOrForks: 1},
			Outputs: []txrecord.Output{{SpenderHeight: txrecord.NotSpent, Value: uint64(i)}},
		}
		_, err := db.Store(ctx, [32]byte{i}, tx)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	info, err := os.Stat(heapPath)
	require.NoError(t, err)
	require.Less(t, info.Size(), int64(1024*1024), "heap file must be truncated to its logical size on close, not left at its reserved mapped size")
}

// §8 invariant 5 — genesis coinbase output is unspendable.
func TestInvariant_GenesisCoinbaseUnspendable(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	hash := [32]byte{0xE0}
	tx := &txrecord.Transaction{
		Header:  txrecord.Header{HeightOrForks: 0, State: txrecord.StateConfirmed},
		Outputs: []txrecord.Output{{SpenderHeight: txrecord.NotSpent, Value: 5000000000}},
	}
	_, err := db.Store(ctx, hash, tx)
	require.NoError(t, err)

	meta, ok, err := db.GetOutput(ctx, txrecord.OutputPoint{Hash: hash, Index: 0}, 0)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, PrevoutMetadata{}, meta)
}

func TestGetOutput_NullPointReturnsFalse(t *testing.T) {
	db := newTestDB(t)
	meta, ok, err := db.GetOutput(context.Background(), txrecord.OutputPoint{Index: ^uint32(0)}, 0)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, PrevoutMetadata{}, meta)
}

// A transaction stored directly as confirmed has its own outputs cached by
// Store. Unconfirming it must evict those entries too, not just its
// inputs' prevouts, or GetOutput keeps reporting it confirmed.
func TestUnconfirm_EvictsOwnOutputCacheEntry(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	hash := [32]byte{0xF0}
	tx := &txrecord.Transaction{
		Header:  txrecord.Header{HeightOrForks: 5, State: txrecord.StateConfirmed},
		Outputs: []txrecord.Output{{SpenderHeight: txrecord.NotSpent, Value: 1}},
		Inputs:  []txrecord.Input{{PreviousIndex: txrecord.UnconfirmedPosition}},
	}
	link, err := db.Store(ctx, hash, tx)
	require.NoError(t, err)

	meta, ok, err := db.GetOutput(ctx, txrecord.OutputPoint{Hash: hash, Index: 0}, 5)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, meta.Confirmed)

	require.NoError(t, db.Unconfirm(ctx, link))

	meta, ok, err = db.GetOutput(ctx, txrecord.OutputPoint{Hash: hash, Index: 0}, 5)
	require.NoError(t, err)
	require.False(t, ok, "stale cache entry from before Unconfirm must have been evicted")
	require.Equal(t, PrevoutMetadata{}, meta)
}

func TestGetByLink_MissReturnsFalseNoError(t *testing.T) {
	db := newTestDB(t)
	tx, ok, err := db.GetByLink(context.Background(), 999999)
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, tx)
}
