// Package bptree implements the disk-resident B+ tree index: fixed-size
// nodes that fit one 512-byte block, built in record-id order, searched
// via leaf-chain range scans.
package bptree

import (
	"encoding/binary"
	"fmt"

	"github.com/resaleidx/resaleidx/internal/obslog"
	"github.com/resaleidx/resaleidx/internal/pageio"
)

const headerBlockSize = 16 // rootOffset int64 + rowCount int64

// Tree is a generic disk-resident B+ tree over key type K. The root
// offset and row count live in a header block (block 0 of the backing
// file) so a tree can be reopened without replaying inserts.
type Tree[K any] struct {
	pager      *pageio.Pager
	codec      KeyCodec[K]
	fanout     int
	rootOffset int64
	rowCount   int64
	log        *obslog.Logger
}

// Open opens (or creates) a B+ tree backed by the file at path.
func Open[K any](path string, codec KeyCodec[K], cacheBlocks int, rec pageio.Recorder, log *obslog.Logger) (*Tree[K], error) {
	pg, err := pageio.Open(path, cacheBlocks, rec)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = obslog.Nop()
	}
	t := &Tree[K]{pager: pg, codec: codec, fanout: codec.Fanout(), rootOffset: InvalidOffset, log: log}

	size, err := pg.Size()
	if err != nil {
		return nil, err
	}
	if size == 0 {
		var block pageio.Block
		invalidOffset := InvalidOffset
		binary.LittleEndian.PutUint64(block[0:8], uint64(invalidOffset))
		if _, err := pg.Append(&block); err != nil {
			return nil, fmt.Errorf("bptree: write header: %w", err)
		}
		return t, nil
	}
	if err := t.readHeader(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tree[K]) readHeader() error {
	var hdr [headerBlockSize]byte
	if err := t.pager.ReadAt(0, hdr[:]); err != nil {
		return fmt.Errorf("bptree: read header: %w", err)
	}
	t.rootOffset = int64(binary.LittleEndian.Uint64(hdr[0:8]))
	t.rowCount = int64(binary.LittleEndian.Uint64(hdr[8:16]))
	return nil
}

func (t *Tree[K]) writeHeader() error {
	var block pageio.Block
	binary.LittleEndian.PutUint64(block[0:8], uint64(t.rootOffset))
	binary.LittleEndian.PutUint64(block[8:16], uint64(t.rowCount))
	return t.pager.Overwrite(0, &block)
}

// Close closes the underlying pager.
func (t *Tree[K]) Close() error { return t.pager.Close() }

// RowCount returns the number of (key, recordID) pairs inserted.
func (t *Tree[K]) RowCount() int { return int(t.rowCount) }

func (t *Tree[K]) readNode(offset int64) (*node[K], error) {
	block, err := t.pager.Read(offset)
	if err != nil {
		return nil, fmt.Errorf("bptree: read node at %d: %w", offset, err)
	}
	return deserializeNode(block, t.codec), nil
}

func (t *Tree[K]) writeNodeAt(offset int64, n *node[K]) error {
	return t.pager.Overwrite(offset, serializeNode(n, t.codec))
}

func (t *Tree[K]) appendNode(n *node[K]) (int64, error) {
	return t.pager.Append(serializeNode(n, t.codec))
}

// Insert adds one (key, recordID) pair, splitting nodes as needed.
func (t *Tree[K]) Insert(key K, recordID int) error {
	if t.rootOffset == InvalidOffset {
		leaf := &node[K]{isLeaf: true, next: InvalidOffset}
		off, err := t.appendNode(leaf)
		if err != nil {
			return err
		}
		t.rootOffset = off
	}

	sep, newOffset, split, err := t.insertRecursive(t.rootOffset, key, recordID)
	if err != nil {
		return err
	}
	if split {
		newRoot := &node[K]{
			isLeaf: false,
			keys:   []K{sep},
			info:   []int64{t.rootOffset, newOffset},
		}
		off, err := t.appendNode(newRoot)
		if err != nil {
			return err
		}
		t.rootOffset = off
	}
	t.rowCount++
	return t.writeHeader()
}

// insertRecursive mirrors the classic copy-up leaf split / push-up
// internal split: it returns the promoted separator key and the offset
// of the freshly created right sibling when offset's subtree overflows.
func (t *Tree[K]) insertRecursive(offset int64, key K, recordID int) (sep K, newOffset int64, split bool, err error) {
	n, err := t.readNode(offset)
	if err != nil {
		return sep, 0, false, err
	}

	if n.isLeaf {
		idx := lowerBound(n.keys, key, t.codec)
		n.keys = insertAt(n.keys, idx, key)
		n.info = insertAt(n.info, idx, int64(recordID))

		if len(n.keys) <= t.fanout {
			return sep, 0, false, t.writeNodeAt(offset, n)
		}

		total := len(n.keys)
		left := (total + 1) / 2
		right := &node[K]{
			isLeaf: true,
			keys:   append([]K(nil), n.keys[left:]...),
			info:   append([]int64(nil), n.info[left:]...),
			next:   n.next,
		}
		rightOffset, err := t.appendNode(right)
		if err != nil {
			return sep, 0, false, err
		}
		n.keys = n.keys[:left]
		n.info = n.info[:left]
		n.next = rightOffset
		if err := t.writeNodeAt(offset, n); err != nil {
			return sep, 0, false, err
		}
		return right.keys[0], rightOffset, true, nil
	}

	childIdx := upperBound(n.keys, key, t.codec)
	childSep, childNewOffset, childSplit, err := t.insertRecursive(n.info[childIdx], key, recordID)
	if err != nil {
		return sep, 0, false, err
	}
	if !childSplit {
		return sep, 0, false, nil
	}

	n.keys = insertAt(n.keys, childIdx, childSep)
	n.info = insertAt(n.info, childIdx+1, childNewOffset)

	if len(n.keys) <= t.fanout {
		return sep, 0, false, t.writeNodeAt(offset, n)
	}

	left := (t.fanout + 1) / 2
	promoted := n.keys[left]

	right := &node[K]{
		isLeaf: false,
		keys:   append([]K(nil), n.keys[left+1:]...),
		info:   append([]int64(nil), n.info[left+1:]...),
	}
	rightOffset, err := t.appendNode(right)
	if err != nil {
		return sep, 0, false, err
	}
	n.keys = n.keys[:left]
	n.info = n.info[:left+1]
	if err := t.writeNodeAt(offset, n); err != nil {
		return sep, 0, false, err
	}
	return promoted, rightOffset, true, nil
}

func insertAt[T any](s []T, idx int, v T) []T {
	s = append(s, v)
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}

// upperBound returns the first index i such that keys[i] > key, i.e. the
// internal-node child index to descend into on insert (keys equal to key
// go to the right child, matching the original descent rule this is
// ported from).
func upperBound[K any](keys []K, key K, codec KeyCodec[K]) int {
	lo, hi := 0, len(keys)
	for lo < hi {
		mid := (lo + hi) / 2
		if codec.Compare(keys[mid], key) <= 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// findLeaf descends to the leftmost leaf that could contain key, using a
// lower-bound descent so a run of duplicate keys straddling a split is
// never skipped.
func (t *Tree[K]) findLeaf(key K) (*node[K], error) {
	if t.rootOffset == InvalidOffset {
		return nil, nil
	}
	offset := t.rootOffset
	n, err := t.readNode(offset)
	if err != nil {
		return nil, err
	}
	for !n.isLeaf {
		idx := lowerBound(n.keys, key, t.codec)
		offset = n.info[idx]
		n, err = t.readNode(offset)
		if err != nil {
			return nil, err
		}
	}
	return n, nil
}

// ScanRange returns record ids for keys in [start, end] (or a half-open
// variant via includeStart/includeEnd), walking the leaf chain from the
// leaf that could contain start.
func (t *Tree[K]) ScanRange(start, end K, includeStart, includeEnd bool) ([]int, error) {
	if t.rootOffset == InvalidOffset {
		return nil, nil
	}
	curr, err := t.findLeaf(start)
	if err != nil {
		return nil, err
	}
	var out []int
	for curr != nil {
		for i, k := range curr.keys {
			cmpEnd := t.codec.Compare(k, end)
			if cmpEnd > 0 || (cmpEnd == 0 && !includeEnd) {
				return out, nil
			}
			cmpStart := t.codec.Compare(k, start)
			if cmpStart > 0 || (cmpStart == 0 && includeStart) {
				out = append(out, int(curr.info[i]))
			}
		}
		if curr.next == InvalidOffset {
			break
		}
		curr, err = t.readNode(curr.next)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ScanFrom returns record ids for keys >= start (includeStart=true) or
// > start (includeStart=false), with no upper bound, walking the leaf
// chain to its end.
func (t *Tree[K]) ScanFrom(start K, includeStart bool) ([]int, error) {
	if t.rootOffset == InvalidOffset {
		return nil, nil
	}
	curr, err := t.findLeaf(start)
	if err != nil {
		return nil, err
	}
	var out []int
	for curr != nil {
		for i, k := range curr.keys {
			cmp := t.codec.Compare(k, start)
			if cmp > 0 || (cmp == 0 && includeStart) {
				out = append(out, int(curr.info[i]))
			}
		}
		if curr.next == InvalidOffset {
			break
		}
		curr, err = t.readNode(curr.next)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
