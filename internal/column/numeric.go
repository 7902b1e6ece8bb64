// Package column implements the paged columnar storage layer:
// one file per column, an 8-byte record-count header followed by fixed
// 512-byte blocks packing either fixed-width numeric values or fixed-width
// (64-byte) strings.
package column

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/resaleidx/resaleidx/internal/obslog"
	"github.com/resaleidx/resaleidx/internal/pageio"
)

// HeaderSize is the size, in bytes, of the little-endian record-count
// header at the start of every column file.
const HeaderSize = 8

// Numeric is the set of fixed-width numeric column element types this
// store supports.
type Numeric interface {
	int32 | float64
}

// Pair associates a record id with the value stored at that id, as
// returned by Fetch.
type Pair[T any] struct {
	RecordID int
	Value    T
}

// NumericStore is a paged column store for a fixed-width numeric type.
type NumericStore[T Numeric] struct {
	pager          *pageio.Pager
	slotSize       int
	valuesPerBlock int
	put            func([]byte, T)
	get            func([]byte) T
	count          uint64
	log            *obslog.Logger
}

func openNumericStore[T Numeric](path string, slotSize int, put func([]byte, T), get func([]byte) T, cacheBlocks int, rec pageio.Recorder, log *obslog.Logger) (*NumericStore[T], error) {
	pg, err := pageio.Open(path, cacheBlocks, rec)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = obslog.Nop()
	}
	s := &NumericStore[T]{
		pager:          pg,
		slotSize:       slotSize,
		valuesPerBlock: pageio.BlockSize / slotSize,
		put:            put,
		get:            get,
		log:            log,
	}
	size, err := pg.Size()
	if err != nil {
		return nil, err
	}
	if size >= HeaderSize {
		var hdr [HeaderSize]byte
		if err := pg.ReadAt(0, hdr[:]); err != nil {
			return nil, err
		}
		s.count = binary.LittleEndian.Uint64(hdr[:])
	}
	return s, nil
}

// OpenInt32Store opens (or creates) an int32 column store.
func OpenInt32Store(path string, cacheBlocks int, rec pageio.Recorder, log *obslog.Logger) (*NumericStore[int32], error) {
	return openNumericStore[int32](path, 4,
		func(b []byte, v int32) { binary.LittleEndian.PutUint32(b, uint32(v)) },
		func(b []byte) int32 { return int32(binary.LittleEndian.Uint32(b)) },
		cacheBlocks, rec, log)
}

// OpenFloat64Store opens (or creates) a float64 column store.
func OpenFloat64Store(path string, cacheBlocks int, rec pageio.Recorder, log *obslog.Logger) (*NumericStore[float64], error) {
	return openNumericStore[float64](path, 8,
		func(b []byte, v float64) { binary.LittleEndian.PutUint64(b, math.Float64bits(v)) },
		func(b []byte) float64 { return math.Float64frombits(binary.LittleEndian.Uint64(b)) },
		cacheBlocks, rec, log)
}

// Close closes the underlying pager.
func (s *NumericStore[T]) Close() error { return s.pager.Close() }

// Count returns the number of records currently stored.
func (s *NumericStore[T]) Count() int { return int(s.count) }

// WriteAll truncates the column file and rewrites it from values.
func (s *NumericStore[T]) WriteAll(values []T) error {
	if err := s.pager.Truncate(); err != nil {
		return err
	}
	var hdr [HeaderSize]byte
	binary.LittleEndian.PutUint64(hdr[:], uint64(len(values)))
	if err := s.pager.WriteAt(0, hdr[:]); err != nil {
		return err
	}

	numBlocks := blockCount(len(values), s.valuesPerBlock)
	for k := 0; k < numBlocks; k++ {
		var block pageio.Block
		start := k * s.valuesPerBlock
		end := min(start+s.valuesPerBlock, len(values))
		for i := start; i < end; i++ {
			off := (i - start) * s.slotSize
			s.put(block[off:off+s.slotSize], values[i])
		}
		if _, err := s.pager.Append(&block); err != nil {
			return fmt.Errorf("column: write block %d: %w", k, err)
		}
	}
	s.count = uint64(len(values))
	return nil
}

// LoadAll reads the entire column into memory.
func (s *NumericStore[T]) LoadAll() ([]T, error) {
	count := int(s.count)
	out := make([]T, count)
	numBlocks := blockCount(count, s.valuesPerBlock)
	for k := 0; k < numBlocks; k++ {
		block, err := s.pager.Read(int64(HeaderSize + k*pageio.BlockSize))
		if err != nil {
			return nil, fmt.Errorf("column: read block %d: %w", k, err)
		}
		start := k * s.valuesPerBlock
		end := min(start+s.valuesPerBlock, count)
		for i := start; i < end; i++ {
			off := (i - start) * s.slotSize
			out[i] = s.get(block[off : off+s.slotSize])
		}
	}
	return out, nil
}

// Fetch returns (record id, value) pairs for the requested ids, reading
// only the blocks that contain them. Ids outside [0, Count()) are
// silently skipped. Output order is unspecified.
func (s *NumericStore[T]) Fetch(ids []int) ([]Pair[T], error) {
	count := int(s.count)
	byBlock := make(map[int][]int)
	for _, id := range ids {
		if id < 0 || id >= count {
			continue
		}
		blk := id / s.valuesPerBlock
		byBlock[blk] = append(byBlock[blk], id)
	}

	out := make([]Pair[T], 0, len(ids))
	for blk, blockIDs := range byBlock {
		block, err := s.pager.Read(int64(HeaderSize + blk*pageio.BlockSize))
		if err != nil {
			return nil, fmt.Errorf("column: fetch block %d: %w", blk, err)
		}
		for _, id := range blockIDs {
			slot := id % s.valuesPerBlock
			off := slot * s.slotSize
			out = append(out, Pair[T]{RecordID: id, Value: s.get(block[off : off+s.slotSize])})
		}
	}
	return out, nil
}

func blockCount(count, perBlock int) int {
	if count == 0 {
		return 0
	}
	return (count + perBlock - 1) / perBlock
}
