package interval

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeSource is a minimal in-memory Source for testing Eval without a
// real B+ tree.
type fakeSource struct {
	sorted []int32 // keys in ascending order
	ids    []int   // ids[i] is the record id for sorted[i]
}

func newFakeSource(keys []int32) *fakeSource {
	ids := make([]int, len(keys))
	for i := range ids {
		ids[i] = i
	}
	return &fakeSource{sorted: keys, ids: ids}
}

func (f *fakeSource) RowCount() int { return len(f.sorted) }

func (f *fakeSource) ScanRange(start, end int32, includeStart, includeEnd bool) ([]int, error) {
	var out []int
	for i, k := range f.sorted {
		if k < start || (k == start && !includeStart) {
			continue
		}
		if k > end || (k == end && !includeEnd) {
			continue
		}
		out = append(out, f.ids[i])
	}
	return out, nil
}

func (f *fakeSource) ScanFrom(start int32, includeStart bool) ([]int, error) {
	var out []int
	for i, k := range f.sorted {
		if k < start || (k == start && !includeStart) {
			continue
		}
		out = append(out, f.ids[i])
	}
	return out, nil
}

func src() *fakeSource {
	return newFakeSource([]int32{0, 10, 20, 30, 40, 50, 60, 70, 80, 90})
}

func TestEvalEmptyIntervalsReturnsFullSet(t *testing.T) {
	ids, err := Eval[int32](src(), nil)
	require.NoError(t, err)
	want := make([]int, 10)
	for i := range want {
		want[i] = i
	}
	require.Equal(t, want, ids)
}

func TestEvalClosedClosed(t *testing.T) {
	ids, err := Eval(src(), []Interval[int32]{{Type: ClosedClosed, Start: 10, End: 30}})
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, ids)
}

func TestEvalOpenOpen(t *testing.T) {
	ids, err := Eval(src(), []Interval[int32]{{Type: OpenOpen, Start: 10, End: 30}})
	require.NoError(t, err)
	require.Equal(t, []int{2}, ids)
}

func TestEvalUpToClosed(t *testing.T) {
	ids, err := Eval(src(), []Interval[int32]{{Type: UpToClosed, End: 30}})
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2, 3}, ids)
}

func TestEvalUpToOpen(t *testing.T) {
	ids, err := Eval(src(), []Interval[int32]{{Type: UpToOpen, End: 30}})
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2}, ids)
}

func TestEvalFromClosedAndFromOpen(t *testing.T) {
	ids, err := Eval(src(), []Interval[int32]{{Type: FromClosed, Start: 70}})
	require.NoError(t, err)
	require.Equal(t, []int{7, 8, 9}, ids)

	ids, err = Eval(src(), []Interval[int32]{{Type: FromOpen, Start: 70}})
	require.NoError(t, err)
	require.Equal(t, []int{8, 9}, ids)
}

func TestEvalUnionOfMultipleIntervalsDeduplicates(t *testing.T) {
	ids, err := Eval(src(), []Interval[int32]{
		{Type: ClosedClosed, Start: 0, End: 20},
		{Type: ClosedClosed, Start: 10, End: 40}, // overlaps the first
	})
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2, 3, 4}, ids)
}

func TestComplementHandlesUnsortedInput(t *testing.T) {
	got := complement(5, []int{3, 1, 1, 4})
	sort.Ints(got)
	require.Equal(t, []int{0, 2}, got)
}
