// Package indexmgr owns one B+ tree per indexed column and answers
// multi-attribute queries by intersecting per-column interval results.
package indexmgr

import (
	"fmt"
	"path/filepath"

	"github.com/resaleidx/resaleidx/internal/bptree"
	"github.com/resaleidx/resaleidx/internal/interval"
	"github.com/resaleidx/resaleidx/internal/obslog"
	"github.com/resaleidx/resaleidx/internal/pageio"
)

// Columns bundles the in-memory column data Build indexes, one slice per
// indexed column, aligned by record id (all slices must share the same
// length).
type Columns struct {
	Month        []string
	Town         []string
	FlatType     []string
	Block        []string
	StreetName   []string
	StoreyRange  []string
	FlatModel    []string
	FloorAreaSqm []float64
	ResalePrice  []float64
	LeaseCommenceDate []int32
}

// Manager owns the ten per-column trees for the resale-flat schema.
type Manager struct {
	month, town, flatType, block, streetName, storeyRange, flatModel *bptree.Tree[string]
	floorAreaSqm, resalePrice                                        *bptree.Tree[float64]
	leaseCommenceDate                                                *bptree.Tree[int32]

	log *obslog.Logger
}

// Open opens (or creates) all ten column indexes under dir.
func Open(dir string, cacheBlocksPerTree int, rec pageio.Recorder, log *obslog.Logger) (*Manager, error) {
	if log == nil {
		log = obslog.Nop()
	}
	m := &Manager{log: log}

	openString := func(name string) (*bptree.Tree[string], error) {
		return bptree.Open[string](filepath.Join(dir, name+".idx"), bptree.StringCodec{}, cacheBlocksPerTree, rec, log)
	}
	openFloat64 := func(name string) (*bptree.Tree[float64], error) {
		return bptree.Open[float64](filepath.Join(dir, name+".idx"), bptree.Float64Codec{}, cacheBlocksPerTree, rec, log)
	}
	openInt32 := func(name string) (*bptree.Tree[int32], error) {
		return bptree.Open[int32](filepath.Join(dir, name+".idx"), bptree.Int32Codec{}, cacheBlocksPerTree, rec, log)
	}

	var err error
	if m.month, err = openString("month"); err != nil {
		return nil, fmt.Errorf("indexmgr: open month index: %w", err)
	}
	if m.town, err = openString("town"); err != nil {
		return nil, fmt.Errorf("indexmgr: open town index: %w", err)
	}
	if m.flatType, err = openString("flat_type"); err != nil {
		return nil, fmt.Errorf("indexmgr: open flat_type index: %w", err)
	}
	if m.block, err = openString("block"); err != nil {
		return nil, fmt.Errorf("indexmgr: open block index: %w", err)
	}
	if m.streetName, err = openString("street_name"); err != nil {
		return nil, fmt.Errorf("indexmgr: open street_name index: %w", err)
	}
	if m.storeyRange, err = openString("storey_range"); err != nil {
		return nil, fmt.Errorf("indexmgr: open storey_range index: %w", err)
	}
	if m.flatModel, err = openString("flat_model"); err != nil {
		return nil, fmt.Errorf("indexmgr: open flat_model index: %w", err)
	}
	if m.floorAreaSqm, err = openFloat64("floor_area_sqm"); err != nil {
		return nil, fmt.Errorf("indexmgr: open floor_area_sqm index: %w", err)
	}
	if m.resalePrice, err = openFloat64("resale_price"); err != nil {
		return nil, fmt.Errorf("indexmgr: open resale_price index: %w", err)
	}
	if m.leaseCommenceDate, err = openInt32("lease_commence_date"); err != nil {
		return nil, fmt.Errorf("indexmgr: open lease_commence_date index: %w", err)
	}
	return m, nil
}

// Close closes all ten underlying trees.
func (m *Manager) Close() error {
	trees := []interface{ Close() error }{
		m.month, m.town, m.flatType, m.block, m.streetName, m.storeyRange,
		m.flatModel, m.floorAreaSqm, m.resalePrice, m.leaseCommenceDate,
	}
	var firstErr error
	for _, t := range trees {
		if err := t.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// RowCount returns the number of rows indexed, taken from the month
// tree (every tree is built over the same row set).
func (m *Manager) RowCount() int { return m.month.RowCount() }

// Build inserts every row of c into its corresponding tree, in record-id
// order, across all ten columns.
func (m *Manager) Build(c Columns) error {
	rowCount := len(c.Month)
	if rowCount == 0 {
		return nil
	}

	for i := 0; i < rowCount; i++ {
		if err := m.month.Insert(c.Month[i], i); err != nil {
			return fmt.Errorf("indexmgr: insert month[%d]: %w", i, err)
		}
		if err := m.town.Insert(c.Town[i], i); err != nil {
			return fmt.Errorf("indexmgr: insert town[%d]: %w", i, err)
		}
		if err := m.flatType.Insert(c.FlatType[i], i); err != nil {
			return fmt.Errorf("indexmgr: insert flat_type[%d]: %w", i, err)
		}
		if err := m.block.Insert(c.Block[i], i); err != nil {
			return fmt.Errorf("indexmgr: insert block[%d]: %w", i, err)
		}
		if err := m.streetName.Insert(c.StreetName[i], i); err != nil {
			return fmt.Errorf("indexmgr: insert street_name[%d]: %w", i, err)
		}
		if err := m.storeyRange.Insert(c.StoreyRange[i], i); err != nil {
			return fmt.Errorf("indexmgr: insert storey_range[%d]: %w", i, err)
		}
		if err := m.flatModel.Insert(c.FlatModel[i], i); err != nil {
			return fmt.Errorf("indexmgr: insert flat_model[%d]: %w", i, err)
		}
		if err := m.floorAreaSqm.Insert(c.FloorAreaSqm[i], i); err != nil {
			return fmt.Errorf("indexmgr: insert floor_area_sqm[%d]: %w", i, err)
		}
		if err := m.resalePrice.Insert(c.ResalePrice[i], i); err != nil {
			return fmt.Errorf("indexmgr: insert resale_price[%d]: %w", i, err)
		}
		if err := m.leaseCommenceDate.Insert(c.LeaseCommenceDate[i], i); err != nil {
			return fmt.Errorf("indexmgr: insert lease_commence_date[%d]: %w", i, err)
		}
		if i > 0 && i%50 == 0 {
			m.log.Debug().Int("indexed", i).Int("total", rowCount).Msg("index build progress")
		}
	}
	m.log.Info().Int("rows", rowCount).Msg("index build complete")
	return nil
}

// Filter is one column's contribution to a Search: a closure evaluating
// that column's interval set against its tree. Build one with the
// MonthFilter/TownFilter/.../ResalePriceFilter constructors.
type Filter func() ([]int, error)

func (m *Manager) MonthFilter(ivs []interval.Interval[string]) Filter {
	return func() ([]int, error) { return interval.Eval[string](m.month, ivs) }
}
func (m *Manager) TownFilter(ivs []interval.Interval[string]) Filter {
	return func() ([]int, error) { return interval.Eval[string](m.town, ivs) }
}
func (m *Manager) FlatTypeFilter(ivs []interval.Interval[string]) Filter {
	return func() ([]int, error) { return interval.Eval[string](m.flatType, ivs) }
}
func (m *Manager) BlockFilter(ivs []interval.Interval[string]) Filter {
	return func() ([]int, error) { return interval.Eval[string](m.block, ivs) }
}
func (m *Manager) StreetNameFilter(ivs []interval.Interval[string]) Filter {
	return func() ([]int, error) { return interval.Eval[string](m.streetName, ivs) }
}
func (m *Manager) StoreyRangeFilter(ivs []interval.Interval[string]) Filter {
	return func() ([]int, error) { return interval.Eval[string](m.storeyRange, ivs) }
}
func (m *Manager) FlatModelFilter(ivs []interval.Interval[string]) Filter {
	return func() ([]int, error) { return interval.Eval[string](m.flatModel, ivs) }
}
func (m *Manager) FloorAreaSqmFilter(ivs []interval.Interval[float64]) Filter {
	return func() ([]int, error) { return interval.Eval[float64](m.floorAreaSqm, ivs) }
}
func (m *Manager) ResalePriceFilter(ivs []interval.Interval[float64]) Filter {
	return func() ([]int, error) { return interval.Eval[float64](m.resalePrice, ivs) }
}
func (m *Manager) LeaseCommenceDateFilter(ivs []interval.Interval[int32]) Filter {
	return func() ([]int, error) { return interval.Eval[int32](m.leaseCommenceDate, ivs) }
}

// Search intersects the record ids matched by each filter, evaluated in
// the order given, short-circuiting as soon as the running intersection
// is empty. With no filters, Search returns every record id.
func (m *Manager) Search(filters ...Filter) ([]int, error) {
	if len(filters) == 0 {
		n := m.RowCount()
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}

	result, err := filters[0]()
	if err != nil {
		return nil, fmt.Errorf("indexmgr: search: %w", err)
	}
	for _, f := range filters[1:] {
		if len(result) == 0 {
			break
		}
		part, err := f()
		if err != nil {
			return nil, fmt.Errorf("indexmgr: search: %w", err)
		}
		result = intersectSorted(result, part)
	}
	return result, nil
}

// intersectSorted intersects two sorted, duplicate-free id lists in
// linear time.
func intersectSorted(a, b []int) []int {
	out := make([]int, 0, min(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case b[j] < a[i]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}
