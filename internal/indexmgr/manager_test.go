package indexmgr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/resaleidx/resaleidx/internal/interval"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := Open(t.TempDir(), 32, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func sampleColumns() Columns {
	return Columns{
		Month:             []string{"2020-01", "2020-01", "2020-02", "2020-02", "2020-03"},
		Town:              []string{"ANG MO KIO", "BEDOK", "ANG MO KIO", "CLEMENTI", "BEDOK"},
		FlatType:          []string{"3 ROOM", "4 ROOM", "3 ROOM", "5 ROOM", "4 ROOM"},
		Block:             []string{"101", "202", "303", "404", "505"},
		StreetName:        []string{"A AVE", "B AVE", "C AVE", "D AVE", "E AVE"},
		StoreyRange:       []string{"01 TO 03", "04 TO 06", "01 TO 03", "07 TO 09", "04 TO 06"},
		FlatModel:         []string{"Improved", "New Generation", "Improved", "Model A", "New Generation"},
		FloorAreaSqm:      []float64{60, 90, 65, 120, 85},
		ResalePrice:       []float64{300000, 350000, 310000, 500000, 340000},
		LeaseCommenceDate: []int32{1980, 1985, 1981, 1990, 1986},
	}
}

func TestBuildAndSearchNoFilters(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Build(sampleColumns()))
	require.Equal(t, 5, m.RowCount())

	ids, err := m.Search()
	require.NoError(t, err)
	require.ElementsMatch(t, []int{0, 1, 2, 3, 4}, ids)
}

func TestSearchSingleColumnFilter(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Build(sampleColumns()))

	ids, err := m.Search(m.TownFilter([]interval.Interval[string]{
		{Type: interval.ClosedClosed, Start: "ANG MO KIO", End: "ANG MO KIO"},
	}))
	require.NoError(t, err)
	require.ElementsMatch(t, []int{0, 2}, ids)
}

func TestSearchIntersectsAcrossColumns(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Build(sampleColumns()))

	ids, err := m.Search(
		m.TownFilter([]interval.Interval[string]{{Type: interval.ClosedClosed, Start: "BEDOK", End: "BEDOK"}}),
		m.ResalePriceFilter([]interval.Interval[float64]{{Type: interval.FromClosed, Start: 340000}}),
	)
	require.NoError(t, err)
	require.ElementsMatch(t, []int{1, 4}, ids) // both BEDOK rows clear the 340000 floor
}

func TestSearchShortCircuitsOnEmptyIntermediateResult(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Build(sampleColumns()))

	calls := 0
	neverCalled := func() ([]int, error) {
		calls++
		return nil, nil
	}

	ids, err := m.Search(
		m.TownFilter([]interval.Interval[string]{{Type: interval.ClosedClosed, Start: "NOWHERE", End: "NOWHERE"}}),
		Filter(neverCalled),
	)
	require.NoError(t, err)
	require.Empty(t, ids)
	require.Equal(t, 0, calls)
}

func TestSearchRangeFilterOnNumericColumn(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Build(sampleColumns()))

	ids, err := m.Search(m.FloorAreaSqmFilter([]interval.Interval[float64]{
		{Type: interval.ClosedOpen, Start: 60, End: 90},
	}))
	require.NoError(t, err)
	require.ElementsMatch(t, []int{0, 2, 4}, ids) // areas 60, 65, 85
}
