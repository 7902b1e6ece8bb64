package bptree

import (
	"math/rand"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestInt32Tree(t *testing.T) *Tree[int32] {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tree.dat")
	tr, err := Open[int32](path, Int32Codec{}, 64, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestInsertAndScanRangeOrderedKeys(t *testing.T) {
	tr := newTestInt32Tree(t)

	// Enough inserts to force several leaf and internal splits
	// (fanout for int32 keys is 41).
	const n = 500
	for i := 0; i < n; i++ {
		require.NoError(t, tr.Insert(int32(i), i))
	}
	require.Equal(t, n, tr.RowCount())

	ids, err := tr.ScanRange(100, 199, true, true)
	require.NoError(t, err)
	sort.Ints(ids)
	want := make([]int, 100)
	for i := range want {
		want[i] = 100 + i
	}
	require.Equal(t, want, ids)
}

func TestInsertAndScanRangeShuffledKeys(t *testing.T) {
	tr := newTestInt32Tree(t)

	const n = 500
	order := rand.New(rand.NewSource(1)).Perm(n)
	for _, i := range order {
		require.NoError(t, tr.Insert(int32(i), i))
	}

	ids, err := tr.ScanRange(50, 75, true, false) // [50,75)
	require.NoError(t, err)
	sort.Ints(ids)
	want := make([]int, 25)
	for i := range want {
		want[i] = 50 + i
	}
	require.Equal(t, want, ids)
}

func TestScanRangeBoundaryExclusions(t *testing.T) {
	tr := newTestInt32Tree(t)
	for i := 0; i < 10; i++ {
		require.NoError(t, tr.Insert(int32(i*10), i)) // keys 0,10,...,90
	}

	closedClosed, err := tr.ScanRange(10, 30, true, true)
	require.NoError(t, err)
	require.ElementsMatch(t, []int{1, 2, 3}, closedClosed)

	openOpen, err := tr.ScanRange(10, 30, false, false)
	require.NoError(t, err)
	require.ElementsMatch(t, []int{2}, openOpen)

	closedOpen, err := tr.ScanRange(10, 30, true, false)
	require.NoError(t, err)
	require.ElementsMatch(t, []int{1, 2}, closedOpen)

	openClosed, err := tr.ScanRange(10, 30, false, true)
	require.NoError(t, err)
	require.ElementsMatch(t, []int{2, 3}, openClosed)
}

func TestScanFromUnboundedEnd(t *testing.T) {
	tr := newTestInt32Tree(t)
	for i := 0; i < 10; i++ {
		require.NoError(t, tr.Insert(int32(i*10), i))
	}

	fromClosed, err := tr.ScanFrom(50, true)
	require.NoError(t, err)
	require.ElementsMatch(t, []int{5, 6, 7, 8, 9}, fromClosed)

	fromOpen, err := tr.ScanFrom(50, false)
	require.NoError(t, err)
	require.ElementsMatch(t, []int{6, 7, 8, 9}, fromOpen)
}

func TestDuplicateKeysAllReturned(t *testing.T) {
	tr := newTestInt32Tree(t)

	// A large run of duplicate keys straddles several leaf splits;
	// every inserted record id for that key must still be retrievable.
	const dup = 300
	for i := 0; i < dup; i++ {
		require.NoError(t, tr.Insert(int32(42), i))
	}
	require.NoError(t, tr.Insert(int32(10), dup))
	require.NoError(t, tr.Insert(int32(100), dup+1))

	ids, err := tr.ScanRange(42, 42, true, true)
	require.NoError(t, err)
	require.Len(t, ids, dup)

	want := make([]int, dup)
	for i := range want {
		want[i] = i
	}
	sort.Ints(ids)
	require.Equal(t, want, ids)
}

func TestEmptyTreeScans(t *testing.T) {
	tr := newTestInt32Tree(t)

	ids, err := tr.ScanRange(0, 100, true, true)
	require.NoError(t, err)
	require.Empty(t, ids)

	ids, err = tr.ScanFrom(0, true)
	require.NoError(t, err)
	require.Empty(t, ids)
	require.Equal(t, 0, tr.RowCount())
}

func TestReopenPersistsRootAndRowCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.dat")
	tr, err := Open[int32](path, Int32Codec{}, 64, nil, nil)
	require.NoError(t, err)

	const n = 200
	for i := 0; i < n; i++ {
		require.NoError(t, tr.Insert(int32(i), i))
	}
	require.NoError(t, tr.Close())

	tr2, err := Open[int32](path, Int32Codec{}, 64, nil, nil)
	require.NoError(t, err)
	defer tr2.Close()

	require.Equal(t, n, tr2.RowCount())
	ids, err := tr2.ScanRange(0, int32(n-1), true, true)
	require.NoError(t, err)
	require.Len(t, ids, n)
}

func TestStringKeyedTree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.dat")
	tr, err := Open[string](path, StringCodec{}, 64, nil, nil)
	require.NoError(t, err)
	defer tr.Close()

	towns := []string{"ANG MO KIO", "BEDOK", "CLEMENTI", "ANG MO KIO", "BEDOK", "YISHUN"}
	for i, town := range towns {
		require.NoError(t, tr.Insert(town, i))
	}

	ids, err := tr.ScanRange("BEDOK", "BEDOK", true, true)
	require.NoError(t, err)
	require.ElementsMatch(t, []int{1, 4}, ids)
}
