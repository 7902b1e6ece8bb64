package column

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "col.dat")
	s, err := OpenStringStore(path, 8, nil, nil)
	require.NoError(t, err)
	defer s.Close()

	values := []string{"ANG MO KIO", "BEDOK", "CLEMENTI", "", "TOA PAYOH"}
	require.NoError(t, s.WriteAll(values))
	require.Equal(t, len(values), s.Count())

	got, err := s.LoadAll()
	require.NoError(t, err)
	require.Equal(t, values, got)
}

func TestStringStoreTruncatesOverlongValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "col.dat")
	s, err := OpenStringStore(path, 8, nil, nil)
	require.NoError(t, err)
	defer s.Close()

	long := strings.Repeat("x", 100)
	require.NoError(t, s.WriteAll([]string{long}))

	got, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, got[0], StringSlotLen-1)
	require.Equal(t, long[:StringSlotLen-1], got[0])
}

func TestStringStoreFetchSpansBlocks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "col.dat")
	s, err := OpenStringStore(path, 8, nil, nil)
	require.NoError(t, err)
	defer s.Close()

	n := 20 // stringValuesPerBlock == 8, so this spans three blocks
	values := make([]string, n)
	for i := range values {
		values[i] = strings.Repeat("a", i%5+1)
	}
	require.NoError(t, s.WriteAll(values))

	pairs, err := s.Fetch([]int{0, 7, 8, 15, 16, 19})
	require.NoError(t, err)
	require.Len(t, pairs, 6)
	for _, p := range pairs {
		require.Equal(t, values[p.RecordID], p.Value)
	}
}
