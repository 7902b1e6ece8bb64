package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/resaleidx/resaleidx/internal/interval"
)

const sampleCSV = `month,town,flat_type,block,street_name,storey_range,floor_area_sqm,flat_model,lease_commence_date,resale_price
2020-01,ANG MO KIO,3 ROOM,101,A AVE,01 TO 03,60.0,Improved,1980,300000
2020-01,BEDOK,4 ROOM,202,B AVE,04 TO 06,90.0,New Generation,1985,350000
2020-02,ANG MO KIO,3 ROOM,303,C AVE,01 TO 03,65.5,Improved,1981,310000
, , , , , , , , ,
2020-02,CLEMENTI,5 ROOM,404,D AVE,07 TO 09,120.0,Model A,1990,500000
2020-03,BEDOK,4 ROOM,505,E AVE,04 TO 06,85.0,New Generation,1986,340000
`

func writeSampleCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resale.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))
	return path
}

func TestLoadCSVSkipsMalformedRow(t *testing.T) {
	rows, err := LoadCSV(writeSampleCSV(t), nil)
	require.NoError(t, err)
	require.Len(t, rows, 5) // the blank row is skipped

	require.Equal(t, "ANG MO KIO", rows[0].Town)
	require.Equal(t, 300000.0, rows[0].ResalePrice)
	require.Equal(t, int32(1980), rows[0].LeaseCommenceDate)
}

func newTestDataset(t *testing.T) *Dataset {
	t.Helper()
	dir := t.TempDir()
	ds, err := Open(filepath.Join(dir, "data"), filepath.Join(dir, "index"), 32, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })
	return ds
}

func TestBuildFetchAndSearchRoundTrip(t *testing.T) {
	rows, err := LoadCSV(writeSampleCSV(t), nil)
	require.NoError(t, err)

	ds := newTestDataset(t)
	require.NoError(t, ds.Build(rows))
	require.Equal(t, len(rows), ds.RowCount())

	fetched, err := ds.Fetch([]int{0, 2})
	require.NoError(t, err)
	require.Equal(t, rows[0], fetched[0])
	require.Equal(t, rows[2], fetched[1])

	ids, err := ds.Search(ds.Index.TownFilter([]interval.Interval[string]{
		{Type: interval.ClosedClosed, Start: "ANG MO KIO", End: "ANG MO KIO"},
	}))
	require.NoError(t, err)
	require.ElementsMatch(t, []int{0, 2}, ids)
}

func TestReopenDatasetPreservesData(t *testing.T) {
	rows, err := LoadCSV(writeSampleCSV(t), nil)
	require.NoError(t, err)

	dir := t.TempDir()
	dataDir, indexDir := filepath.Join(dir, "data"), filepath.Join(dir, "index")

	ds, err := Open(dataDir, indexDir, 32, nil, nil)
	require.NoError(t, err)
	require.NoError(t, ds.Build(rows))
	require.NoError(t, ds.Close())

	ds2, err := Open(dataDir, indexDir, 32, nil, nil)
	require.NoError(t, err)
	defer ds2.Close()

	require.Equal(t, len(rows), ds2.RowCount())
	ids, err := ds2.Search(ds2.Index.FlatTypeFilter([]interval.Interval[string]{
		{Type: interval.ClosedClosed, Start: "4 ROOM", End: "4 ROOM"},
	}))
	require.NoError(t, err)
	require.Len(t, ids, 2)
}
