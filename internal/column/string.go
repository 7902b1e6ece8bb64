package column

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/resaleidx/resaleidx/internal/obslog"
	"github.com/resaleidx/resaleidx/internal/pageio"
)

// StringSlotLen is the fixed width, in bytes, of one fixed-string slot.
// Strings longer than StringSlotLen-1 bytes are truncated so the trailing
// byte can always hold the NUL terminator.
const StringSlotLen = 64

const stringValuesPerBlock = pageio.BlockSize / StringSlotLen

// StringStore is a paged column store for fixed-width, NUL-padded strings.
type StringStore struct {
	pager *pageio.Pager
	count uint64
	log   *obslog.Logger
}

// OpenStringStore opens (or creates) a fixed-string column store.
func OpenStringStore(path string, cacheBlocks int, rec pageio.Recorder, log *obslog.Logger) (*StringStore, error) {
	pg, err := pageio.Open(path, cacheBlocks, rec)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = obslog.Nop()
	}
	s := &StringStore{pager: pg, log: log}
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

// Close closes the underlying pager.
func (s *StringStore) Close() error { return s.pager.Close() }

// Count returns the number of records currently stored.
func (s *StringStore) Count() int { return int(s.count) }

// WriteAll truncates the column file and rewrites it from values. Values
// longer than StringSlotLen-1 bytes are truncated.
func (s *StringStore) WriteAll(values []string) error {
	if err := s.pager.Truncate(); err != nil {
		return err
	}
	var hdr [HeaderSize]byte
	binary.LittleEndian.PutUint64(hdr[:], uint64(len(values)))
	if err := s.pager.WriteAt(0, hdr[:]); err != nil {
		return err
	}

	numBlocks := blockCount(len(values), stringValuesPerBlock)
	for k := 0; k < numBlocks; k++ {
		var block pageio.Block
		start := k * stringValuesPerBlock
		end := min(start+stringValuesPerBlock, len(values))
		for i := start; i < end; i++ {
			off := (i - start) * StringSlotLen
			putFixedString(block[off:off+StringSlotLen], values[i])
		}
		if _, err := s.pager.Append(&block); err != nil {
			return fmt.Errorf("column: write block %d: %w", k, err)
		}
	}
	s.count = uint64(len(values))
	return nil
}

// LoadAll reads the entire column into memory.
func (s *StringStore) LoadAll() ([]string, error) {
	count := int(s.count)
	out := make([]string, count)
	numBlocks := blockCount(count, stringValuesPerBlock)
	for k := 0; k < numBlocks; k++ {
		block, err := s.pager.Read(int64(HeaderSize + k*pageio.BlockSize))
		if err != nil {
			return nil, fmt.Errorf("column: read block %d: %w", k, err)
		}
		start := k * stringValuesPerBlock
		end := min(start+stringValuesPerBlock, count)
		for i := start; i < end; i++ {
			off := (i - start) * StringSlotLen
			out[i] = getFixedString(block[off : off+StringSlotLen])
		}
	}
	return out, nil
}

// Fetch returns (record id, value) pairs for the requested ids, reading
// only the blocks that contain them. Ids outside [0, Count()) are
// silently skipped.
func (s *StringStore) Fetch(ids []int) ([]Pair[string], error) {
	count := int(s.count)
	byBlock := make(map[int][]int)
	for _, id := range ids {
		if id < 0 || id >= count {
			continue
		}
		blk := id / stringValuesPerBlock
		byBlock[blk] = append(byBlock[blk], id)
	}

	out := make([]Pair[string], 0, len(ids))
	for blk, blockIDs := range byBlock {
		block, err := s.pager.Read(int64(HeaderSize + blk*pageio.BlockSize))
		if err != nil {
			return nil, fmt.Errorf("column: fetch block %d: %w", blk, err)
		}
		for _, id := range blockIDs {
			slot := id % stringValuesPerBlock
			off := slot * StringSlotLen
			out = append(out, Pair[string]{RecordID: id, Value: getFixedString(block[off : off+StringSlotLen])})
		}
	}
	return out, nil
}

// putFixedString copies up to StringSlotLen-1 bytes of v into slot,
// NUL-terminates, and zero-pads the remainder.
func putFixedString(slot []byte, v string) {
	for i := range slot {
		slot[i] = 0
	}
	n := len(v)
	if n > StringSlotLen-1 {
		n = StringSlotLen - 1
	}
	copy(slot, v[:n])
}

// getFixedString reads a slot up to its first NUL byte, capped at
// StringSlotLen-1 characters.
func getFixedString(slot []byte) string {
	if i := bytes.IndexByte(slot, 0); i >= 0 {
		return string(slot[:i])
	}
	return string(slot[:StringSlotLen-1])
}
