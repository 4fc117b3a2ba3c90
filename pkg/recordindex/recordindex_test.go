package recordindex

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func hashOf(b byte) [32]byte {
	var h [32]byte
	h[0] = b
	return h
}

func TestFind_MissReturnsNilNoError(t *testing.T) {
	dir, err := Open(filepath.Join(t.TempDir(), "idx"))
	require.NoError(t, err)
	defer dir.Close()

	links, err := dir.Find(context.Background(), hashOf(0x01))
	require.NoError(t, err)
	require.Nil(t, links)
}

func TestLink_SingleEntryRoundTrips(t *testing.T) {
	dir, err := Open(filepath.Join(t.TempDir(), "idx"))
	require.NoError(t, err)
	defer dir.Close()

	h := hashOf(0x02)
	require.NoError(t, dir.Link(context.Background(), h, 4096))

	links, err := dir.Find(context.Background(), h)
	require.NoError(t, err)
	require.Equal(t, []uint64{4096}, links)
}

func TestLink_CollisionChainPreservesOrder(t *testing.T) {
	dir, err := Open(filepath.Join(t.TempDir(), "idx"))
	require.NoError(t, err)
	defer dir.Close()

	h := hashOf(0x03)
	require.NoError(t, dir.Link(context.Background(), h, 100))
	require.NoError(t, dir.Link(context.Background(), h, 200))
	require.NoError(t, dir.Link(context.Background(), h, 300))

	links, err := dir.Find(context.Background(), h)
	require.NoError(t, err)
	require.Equal(t, []uint64{100, 200, 300}, links)
}

func TestLink_DistinctHashesDoNotCollide(t *testing.T) {
	dir, err := Open(filepath.Join(t.TempDir(), "idx"))
	require.NoError(t, err)
	defer dir.Close()

	ha, hb := hashOf(0x04), hashOf(0x05)
	require.NoError(t, dir.Link(context.Background(), ha, 1))
	require.NoError(t, dir.Link(context.Background(), hb, 2))

	linksA, err := dir.Find(context.Background(), ha)
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, linksA)

	linksB, err := dir.Find(context.Background(), hb)
	require.NoError(t, err)
	require.Equal(t, []uint64{2}, linksB)
}

func TestHealthcheck_OnOpenStore(t *testing.T) {
	dir, err := Open(filepath.Join(t.TempDir(), "idx"))
	require.NoError(t, err)
	defer dir.Close()

	require.NoError(t, dir.Healthcheck(context.Background()))
}

func TestReopen_PersistsAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx")
	h := hashOf(0x06)

	dir1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, dir1.Link(context.Background(), h, 777))
	require.NoError(t, dir1.Flush())
	require.NoError(t, dir1.Close())

	dir2, err := Open(path)
	require.NoError(t, err)
	defer dir2.Close()

	links, err := dir2.Find(context.Background(), h)
	require.NoError(t, err)
	require.Equal(t, []uint64{777}, links)
}
