// Package schema wires the generic column store, B+ tree index, and
// index manager into the concrete ten-column Singapore HDB resale-flat
// dataset: month, town, flat_type, block, street_name, storey_range,
// floor_area_sqm, flat_model, lease_commence_date, resale_price.
package schema

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/resaleidx/resaleidx/internal/column"
	"github.com/resaleidx/resaleidx/internal/indexmgr"
	"github.com/resaleidx/resaleidx/internal/obslog"
	"github.com/resaleidx/resaleidx/internal/pageio"
)

// Row is one resale transaction.
type Row struct {
	Month             string
	Town              string
	FlatType          string
	Block             string
	StreetName        string
	StoreyRange       string
	FloorAreaSqm      float64
	FlatModel         string
	LeaseCommenceDate int32
	ResalePrice       float64
}

// csvColumnCount is the number of columns a resale-flat CSV row must
// have, in this order: month, town, flat_type, block, street_name,
// storey_range, floor_area_sqm, flat_model, lease_commence_date,
// resale_price.
const csvColumnCount = 10

// LoadCSV parses a resale-flat CSV file (header row, then one record per
// line) into rows. Malformed rows are skipped with a warning logged, not
// returned, so one bad line doesn't abort an otherwise-good load.
func LoadCSV(path string, log *obslog.Logger) ([]Row, error) {
	if log == nil {
		log = obslog.Nop()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("schema: open csv %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	if _, err := r.Read(); err != nil { // header
		return nil, fmt.Errorf("schema: read csv header: %w", err)
	}

	var rows []Row
	lineNum := 1
	for {
		lineNum++
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("schema: read csv line %d: %w", lineNum, err)
		}
		if len(rec) != csvColumnCount {
			log.Warn().Int("line", lineNum).Int("columns", len(rec)).Msg("skipping csv row with wrong column count")
			continue
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}

		row, err := parseRow(rec)
		if err != nil {
			log.Warn().Int("line", lineNum).Err(err).Msg("skipping malformed csv row")
			continue
		}
		rows = append(rows, row)
	}
	log.Info().Int("rows", len(rows)).Str("file", path).Msg("csv load complete")
	return rows, nil
}

func parseRow(rec []string) (Row, error) {
	floorArea, err := strconv.ParseFloat(rec[6], 64)
	if err != nil {
		return Row{}, fmt.Errorf("invalid floor area %q: %w", rec[6], err)
	}
	leaseDate, err := strconv.ParseInt(rec[8], 10, 32)
	if err != nil {
		return Row{}, fmt.Errorf("invalid lease commence date %q: %w", rec[8], err)
	}
	price, err := strconv.ParseFloat(rec[9], 64)
	if err != nil {
		return Row{}, fmt.Errorf("invalid resale price %q: %w", rec[9], err)
	}
	return Row{
		Month:             rec[0],
		Town:              rec[1],
		FlatType:          rec[2],
		Block:             rec[3],
		StreetName:        rec[4],
		StoreyRange:       rec[5],
		FloorAreaSqm:      floorArea,
		FlatModel:         rec[7],
		LeaseCommenceDate: int32(leaseDate),
		ResalePrice:       price,
	}, nil
}

// Dataset is the on-disk resale-flat dataset: one column store file per
// field plus a ten-tree index manager.
type Dataset struct {
	month, town, flatType, block, streetName, storeyRange, flatModel *column.StringStore
	floorAreaSqm, resalePrice                                        *column.NumericStore[float64]
	leaseCommenceDate                                                *column.NumericStore[int32]

	// Index is the underlying index manager; exported so callers (e.g.
	// cmd/query) can build Filter values with its *Filter constructors.
	Index *indexmgr.Manager

	log *obslog.Logger
}

// Open opens (or creates) the dataset's column files under dataDir and
// its index files under indexDir.
func Open(dataDir, indexDir string, cacheBlocks int, rec pageio.Recorder, log *obslog.Logger) (*Dataset, error) {
	if log == nil {
		log = obslog.Nop()
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("schema: create data dir %s: %w", dataDir, err)
	}
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return nil, fmt.Errorf("schema: create index dir %s: %w", indexDir, err)
	}

	d := &Dataset{log: log}
	openString := func(name string) (*column.StringStore, error) {
		return column.OpenStringStore(filepath.Join(dataDir, "col_"+name+".dat"), cacheBlocks, rec, log)
	}

	var err error
	if d.month, err = openString("month"); err != nil {
		return nil, err
	}
	if d.town, err = openString("town"); err != nil {
		return nil, err
	}
	if d.flatType, err = openString("flat_type"); err != nil {
		return nil, err
	}
	if d.block, err = openString("block"); err != nil {
		return nil, err
	}
	if d.streetName, err = openString("street_name"); err != nil {
		return nil, err
	}
	if d.storeyRange, err = openString("storey_range"); err != nil {
		return nil, err
	}
	if d.flatModel, err = openString("flat_model"); err != nil {
		return nil, err
	}
	if d.floorAreaSqm, err = column.OpenFloat64Store(filepath.Join(dataDir, "col_floor_area_sqm.dat"), cacheBlocks, rec, log); err != nil {
		return nil, err
	}
	if d.resalePrice, err = column.OpenFloat64Store(filepath.Join(dataDir, "col_resale_price.dat"), cacheBlocks, rec, log); err != nil {
		return nil, err
	}
	if d.leaseCommenceDate, err = column.OpenInt32Store(filepath.Join(dataDir, "col_lease_commence_date.dat"), cacheBlocks, rec, log); err != nil {
		return nil, err
	}

	if d.Index, err = indexmgr.Open(indexDir, cacheBlocks, rec, log); err != nil {
		return nil, err
	}
	return d, nil
}

// Close closes every column store and index tree.
func (d *Dataset) Close() error {
	closers := []interface{ Close() error }{
		d.month, d.town, d.flatType, d.block, d.streetName, d.storeyRange,
		d.flatModel, d.floorAreaSqm, d.resalePrice, d.leaseCommenceDate, d.Index,
	}
	var firstErr error
	for _, c := range closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// RowCount returns the number of rows currently stored.
func (d *Dataset) RowCount() int { return d.month.Count() }

// Build rewrites every column file from rows and inserts every row into
// the index trees. The column files are truncated first; the index trees
// are not cleared, so entries from an earlier Build stay in them.
func (d *Dataset) Build(rows []Row) error {
	n := len(rows)
	months := make([]string, n)
	towns := make([]string, n)
	flatTypes := make([]string, n)
	blocks := make([]string, n)
	streetNames := make([]string, n)
	storeyRanges := make([]string, n)
	flatModels := make([]string, n)
	floorAreas := make([]float64, n)
	leaseDates := make([]int32, n)
	prices := make([]float64, n)

	for i, r := range rows {
		months[i] = r.Month
		towns[i] = r.Town
		flatTypes[i] = r.FlatType
		blocks[i] = r.Block
		streetNames[i] = r.StreetName
		storeyRanges[i] = r.StoreyRange
		flatModels[i] = r.FlatModel
		floorAreas[i] = r.FloorAreaSqm
		leaseDates[i] = r.LeaseCommenceDate
		prices[i] = r.ResalePrice
	}

	writers := []struct {
		name string
		fn   func() error
	}{
		{"month", func() error { return d.month.WriteAll(months) }},
		{"town", func() error { return d.town.WriteAll(towns) }},
		{"flat_type", func() error { return d.flatType.WriteAll(flatTypes) }},
		{"block", func() error { return d.block.WriteAll(blocks) }},
		{"street_name", func() error { return d.streetName.WriteAll(streetNames) }},
		{"storey_range", func() error { return d.storeyRange.WriteAll(storeyRanges) }},
		{"flat_model", func() error { return d.flatModel.WriteAll(flatModels) }},
		{"floor_area_sqm", func() error { return d.floorAreaSqm.WriteAll(floorAreas) }},
		{"resale_price", func() error { return d.resalePrice.WriteAll(prices) }},
		{"lease_commence_date", func() error { return d.leaseCommenceDate.WriteAll(leaseDates) }},
	}
	for _, w := range writers {
		if err := w.fn(); err != nil {
			return fmt.Errorf("schema: write column %s: %w", w.name, err)
		}
	}

	d.log.Info().Int("rows", n).Msg("column store rebuilt, building indexes")
	return d.Index.Build(indexmgr.Columns{
		Month:             months,
		Town:              towns,
		FlatType:          flatTypes,
		Block:             blocks,
		StreetName:        streetNames,
		StoreyRange:       storeyRanges,
		FlatModel:         flatModels,
		FloorAreaSqm:      floorAreas,
		ResalePrice:       prices,
		LeaseCommenceDate: leaseDates,
	})
}

// Fetch returns the rows for the given record ids, in the order ids was
// given. Ids outside [0, RowCount()) are silently skipped.
func (d *Dataset) Fetch(ids []int) ([]Row, error) {
	count := d.RowCount()
	valid := make([]int, 0, len(ids))
	for _, id := range ids {
		if id >= 0 && id < count {
			valid = append(valid, id)
		}
	}
	ids = valid
	rows := make([]Row, len(ids))
	posByID := make(map[int]int, len(ids))
	for i, id := range ids {
		posByID[id] = i
	}

	monthPairs, err := d.month.Fetch(ids)
	if err != nil {
		return nil, fmt.Errorf("schema: fetch month: %w", err)
	}
	for _, p := range monthPairs {
		rows[posByID[p.RecordID]].Month = p.Value
	}

	townPairs, err := d.town.Fetch(ids)
	if err != nil {
		return nil, fmt.Errorf("schema: fetch town: %w", err)
	}
	for _, p := range townPairs {
		rows[posByID[p.RecordID]].Town = p.Value
	}

	flatTypePairs, err := d.flatType.Fetch(ids)
	if err != nil {
		return nil, fmt.Errorf("schema: fetch flat_type: %w", err)
	}
	for _, p := range flatTypePairs {
		rows[posByID[p.RecordID]].FlatType = p.Value
	}

	blockPairs, err := d.block.Fetch(ids)
	if err != nil {
		return nil, fmt.Errorf("schema: fetch block: %w", err)
	}
	for _, p := range blockPairs {
		rows[posByID[p.RecordID]].Block = p.Value
	}

	streetPairs, err := d.streetName.Fetch(ids)
	if err != nil {
		return nil, fmt.Errorf("schema: fetch street_name: %w", err)
	}
	for _, p := range streetPairs {
		rows[posByID[p.RecordID]].StreetName = p.Value
	}

	storeyPairs, err := d.storeyRange.Fetch(ids)
	if err != nil {
		return nil, fmt.Errorf("schema: fetch storey_range: %w", err)
	}
	for _, p := range storeyPairs {
		rows[posByID[p.RecordID]].StoreyRange = p.Value
	}

	modelPairs, err := d.flatModel.Fetch(ids)
	if err != nil {
		return nil, fmt.Errorf("schema: fetch flat_model: %w", err)
	}
	for _, p := range modelPairs {
		rows[posByID[p.RecordID]].FlatModel = p.Value
	}

	areaPairs, err := d.floorAreaSqm.Fetch(ids)
	if err != nil {
		return nil, fmt.Errorf("schema: fetch floor_area_sqm: %w", err)
	}
	for _, p := range areaPairs {
		rows[posByID[p.RecordID]].FloorAreaSqm = p.Value
	}

	pricePairs, err := d.resalePrice.Fetch(ids)
	if err != nil {
		return nil, fmt.Errorf("schema: fetch resale_price: %w", err)
	}
	for _, p := range pricePairs {
		rows[posByID[p.RecordID]].ResalePrice = p.Value
	}

	leasePairs, err := d.leaseCommenceDate.Fetch(ids)
	if err != nil {
		return nil, fmt.Errorf("schema: fetch lease_commence_date: %w", err)
	}
	for _, p := range leasePairs {
		rows[posByID[p.RecordID]].LeaseCommenceDate = p.Value
	}

	return rows, nil
}

// Search delegates to the index manager, intersecting filters in the
// order given.
func (d *Dataset) Search(filters ...indexmgr.Filter) ([]int, error) {
	return d.Index.Search(filters...)
}
