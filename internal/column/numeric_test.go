package column

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInt32StoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "col.dat")
	s, err := OpenInt32Store(path, 8, nil, nil)
	require.NoError(t, err)
	defer s.Close()

	values := make([]int32, 300) // spans multiple 128-value blocks
	for i := range values {
		values[i] = int32(i * 7)
	}
	require.NoError(t, s.WriteAll(values))
	require.Equal(t, len(values), s.Count())

	got, err := s.LoadAll()
	require.NoError(t, err)
	require.Equal(t, values, got)
}

func TestInt32StoreReopenPreservesCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "col.dat")
	s, err := OpenInt32Store(path, 8, nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.WriteAll([]int32{1, 2, 3}))
	require.NoError(t, s.Close())

	s2, err := OpenInt32Store(path, 8, nil, nil)
	require.NoError(t, err)
	defer s2.Close()
	require.Equal(t, 3, s2.Count())

	got, err := s2.LoadAll()
	require.NoError(t, err)
	require.Equal(t, []int32{1, 2, 3}, got)
}

func TestFloat64StoreFetchSelective(t *testing.T) {
	path := filepath.Join(t.TempDir(), "col.dat")
	s, err := OpenFloat64Store(path, 8, nil, nil)
	require.NoError(t, err)
	defer s.Close()

	values := make([]float64, 200)
	for i := range values {
		values[i] = float64(i) * 1.5
	}
	require.NoError(t, s.WriteAll(values))

	ids := []int{0, 5, 64, 65, 199, -1, 1000}
	pairs, err := s.Fetch(ids)
	require.NoError(t, err)

	got := make(map[int]float64, len(pairs))
	for _, p := range pairs {
		got[p.RecordID] = p.Value
	}
	require.Len(t, got, 5) // -1 and 1000 are out of range and silently dropped
	require.Equal(t, values[0], got[0])
	require.Equal(t, values[5], got[5])
	require.Equal(t, values[64], got[64])
	require.Equal(t, values[65], got[65])
	require.Equal(t, values[199], got[199])
}

func TestFloat64StoreEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "col.dat")
	s, err := OpenFloat64Store(path, 8, nil, nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.WriteAll(nil))
	require.Equal(t, 0, s.Count())

	got, err := s.LoadAll()
	require.NoError(t, err)
	require.Empty(t, got)
}
