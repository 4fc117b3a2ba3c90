package recordstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladg14/libbitcoin-database/pkg/filemap"
	"github.com/vladg14/libbitcoin-database/pkg/txrecord"
)

func newTestStore(t *testing.T) *Store {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "heap.dat"), filepath.Join(dir, "index"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func storeTx(t *testing.T, s *Store, hash [32]byte, tx *txrecord.Transaction) uint64 {
	t.Helper()
	buf := txrecord.Encode(tx)
	b, err := s.Allocate(context.Background(), hash, len(buf), func(dst []byte) { copy(dst, buf) })
	require.NoError(t, err)
	require.NoError(t, s.Link(context.Background(), b))
	return b.Link()
}

func TestStoreFind_RoundTrips(t *testing.T) {
	s := newTestStore(t)

	hash := [32]byte{1}
	tx := &txrecord.Transaction{
		Header:  txrecord.Header{HeightOrForks: 0, Position: 0, State: txrecord.StateConfirmed, MedianTimePast: 0},
		Outputs: []txrecord.Output{{SpenderHeight: txrecord.NotSpent, Value: 5000000000, Script: []byte{0x41, 0x04, 0xAC}}},
	}
	link := storeTx(t, s, hash, tx)

	rec, ok, err := s.Find(context.Background(), hash)
	require.NoError(t, err)
	require.True(t, ok)
	defer rec.Release()

	require.Equal(t, link, rec.Link())

	got, err := txrecord.Decode(rec.Bytes())
	require.NoError(t, err)
	require.Equal(t, tx.Header, got.Header)
	require.Equal(t, tx.Outputs, got.Outputs)
}

func TestFind_MissReturnsFalseNoError(t *testing.T) {
	s := newTestStore(t)

	rec, ok, err := s.Find(context.Background(), [32]byte{9, 9})
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, rec)
}

func TestCollisionChain_PreservesStoreOrder(t *testing.T) {
	s := newTestStore(t)
	hash := [32]byte{2}

	var links []uint64
	for i := 0; i < 3; i++ {
		tx := &txrecord.Transaction{Header: txrecord.Header{HeightOrForks: uint32(i)}}
		links = append(links, storeTx(t, s, hash, tx))
	}

	chain, err := s.CollisionChain(context.Background(), hash)
	require.NoError(t, err)
	require.Equal(t, links, chain)
}

func TestSpend_RequiresConfirmedState(t *testing.T) {
	s := newTestStore(t)
	hash := [32]byte{3}
	tx := &txrecord.Transaction{
		Header:  txrecord.Header{State: txrecord.StatePooled},
		Outputs: []txrecord.Output{{SpenderHeight: txrecord.NotSpent, Value: 1}},
	}
	link := storeTx(t, s, hash, tx)

	err := s.Spend(context.Background(), link, 0, 5)
	require.ErrorIs(t, err, ErrLayout)
}

func TestSpend_RequiresOutputConfirmedBeforeSpender(t *testing.T) {
	s := newTestStore(t)
	hash := [32]byte{4}
	tx := &txrecord.Transaction{
		Header:  txrecord.Header{State: txrecord.StateConfirmed, HeightOrForks: 100},
		Outputs: []txrecord.Output{{SpenderHeight: txrecord.NotSpent, Value: 1}},
	}
	link := storeTx(t, s, hash, tx)

	// the spender is confirmed at a height before the output it claims to
	// spend was itself confirmed: must fail.
	err := s.Spend(context.Background(), link, 0, 50)
	require.ErrorIs(t, err, ErrLayout)

	require.NoError(t, s.Spend(context.Background(), link, 0, 100))
}

func TestSpendThenUnspend_RestoresNotSpent(t *testing.T) {
	s := newTestStore(t)
	hash := [32]byte{5}
	tx := &txrecord.Transaction{
		Header:  txrecord.Header{State: txrecord.StateConfirmed, HeightOrForks: 10},
		Outputs: []txrecord.Output{{SpenderHeight: txrecord.NotSpent, Value: 1}},
	}
	link := storeTx(t, s, hash, tx)

	require.NoError(t, s.Spend(context.Background(), link, 0, 20))
	rec, err := s.FindByLink(context.Background(), link)
	require.NoError(t, err)
	_, _, spenderHeight, err := s.ReadOutput(rec, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(20), spenderHeight)
	rec.Release()

	require.NoError(t, s.Unspend(context.Background(), link, 0))
	rec, err = s.FindByLink(context.Background(), link)
	require.NoError(t, err)
	defer rec.Release()
	_, _, spenderHeight, err = s.ReadOutput(rec, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(txrecord.NotSpent), spenderHeight)
}

func TestWriteHeader_UpdatesInPlace(t *testing.T) {
	s := newTestStore(t)
	hash := [32]byte{6}
	tx := &txrecord.Transaction{Header: txrecord.Header{State: txrecord.StatePooled}}
	link := storeTx(t, s, hash, tx)

	rec, err := s.FindByLink(context.Background(), link)
	require.NoError(t, err)

	newHeader := txrecord.Header{HeightOrForks: 5, Position: 1, State: txrecord.StateConfirmed, MedianTimePast: 42}
	require.NoError(t, s.WriteHeader(rec, newHeader))
	rec.Release()

	rec, err = s.FindByLink(context.Background(), link)
	require.NoError(t, err)
	defer rec.Release()
	got, err := s.ReadHeader(rec)
	require.NoError(t, err)
	require.Equal(t, newHeader, got)
}

func TestReopen_PersistsRecordsAndNextOffset(t *testing.T) {
	dir := t.TempDir()
	heapPath := filepath.Join(dir, "heap.dat")
	indexPath := filepath.Join(dir, "index")

	s1, err := Open(heapPath, indexPath)
	require.NoError(t, err)

	hash := [32]byte{7}
	tx := &txrecord.Transaction{Header: txrecord.Header{State: txrecord.StateConfirmed, HeightOrForks: 1}}
	link := storeTx(t, s1, hash, tx)
	require.NoError(t, s1.Close())

	s2, err := Open(heapPath, indexPath)
	require.NoError(t, err)
	defer s2.Close()

	rec, ok, err := s2.Find(context.Background(), hash)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, link, rec.Link())
	rec.Release()

	// the next allocation must continue past the previously committed
	// record rather than overwrite it.
	tx2 := &txrecord.Transaction{Header: txrecord.Header{State: txrecord.StateConfirmed, HeightOrForks: 2}}
	link2 := storeTx(t, s2, [32]byte{8}, tx2)
	require.Greater(t, link2, link)
}

func TestOpen_RejectsPathologicallyEmptyHeapFile(t *testing.T) {
	dir := t.TempDir()
	heapPath := filepath.Join(dir, "heap.dat")
	indexPath := filepath.Join(dir, "index")

	require.NoError(t, os.WriteFile(heapPath, nil, 0644))

	_, err := Open(heapPath, indexPath)
	require.ErrorIs(t, err, filemap.ErrEmptyFile, "a heap file that exists but is empty is a caller error, not a fresh store")
}
