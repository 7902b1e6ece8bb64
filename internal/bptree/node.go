package bptree

import (
	"encoding/binary"

	"github.com/resaleidx/resaleidx/internal/pageio"
)

// node is the in-memory, variable-length representation of one B+ tree
// node. During insert a node is briefly allowed to hold fanout+1 keys;
// serialize refuses to persist a node in that state, the caller must
// split it first.
//
// For a leaf, info[i] is the record id associated with keys[i] and next
// is the byte offset of the following leaf in key order (InvalidOffset
// if this is the last leaf). For an internal node, info holds
// len(keys)+1 child offsets and next is unused.
type node[K any] struct {
	isLeaf bool
	keys   []K
	info   []int64
	next   int64 // leaf chain pointer; InvalidOffset if none
}

// InvalidOffset marks the absence of a node/leaf pointer.
const InvalidOffset int64 = -1

const (
	nodeHdrIsLeaf   = 0
	nodeHdrNumKeys  = 1
	nodeHdrKeys     = 3
	infoSlotSize    = 8
)

func nodeLayout(codec interface{ SlotSize() int; Fanout() int }) (fanout, keysOff, infoOff, size int) {
	fanout = codec.Fanout()
	keysOff = nodeHdrKeys
	infoOff = keysOff + fanout*codec.SlotSize()
	size = infoOff + (fanout+1)*infoSlotSize
	return
}

func serializeNode[K any](n *node[K], codec KeyCodec[K]) *pageio.Block {
	fanout, keysOff, infoOff, _ := nodeLayout(codec)
	if len(n.keys) > fanout {
		panic("bptree: serializeNode: node exceeds fanout, must split before persisting")
	}

	var block pageio.Block
	if n.isLeaf {
		block[nodeHdrIsLeaf] = 1
	}
	binary.LittleEndian.PutUint16(block[nodeHdrNumKeys:], uint16(len(n.keys)))

	slot := codec.SlotSize()
	for i, k := range n.keys {
		off := keysOff + i*slot
		codec.Encode(block[off:off+slot], k)
	}

	for i, v := range n.info {
		off := infoOff + i*infoSlotSize
		binary.LittleEndian.PutUint64(block[off:off+infoSlotSize], uint64(v))
	}
	if n.isLeaf {
		nextOff := infoOff + fanout*infoSlotSize
		binary.LittleEndian.PutUint64(block[nextOff:nextOff+infoSlotSize], uint64(n.next))
	}
	return &block
}

func deserializeNode[K any](block *pageio.Block, codec KeyCodec[K]) *node[K] {
	fanout, keysOff, infoOff, _ := nodeLayout(codec)
	isLeaf := block[nodeHdrIsLeaf] == 1
	numKeys := int(binary.LittleEndian.Uint16(block[nodeHdrNumKeys:]))

	slot := codec.SlotSize()
	keys := make([]K, numKeys)
	for i := 0; i < numKeys; i++ {
		off := keysOff + i*slot
		keys[i] = codec.Decode(block[off : off+slot])
	}

	n := &node[K]{isLeaf: isLeaf, keys: keys, next: InvalidOffset}
	if isLeaf {
		info := make([]int64, numKeys)
		for i := 0; i < numKeys; i++ {
			off := infoOff + i*infoSlotSize
			info[i] = int64(binary.LittleEndian.Uint64(block[off : off+infoSlotSize]))
		}
		n.info = info
		nextOff := infoOff + fanout*infoSlotSize
		n.next = int64(binary.LittleEndian.Uint64(block[nextOff : nextOff+infoSlotSize]))
	} else {
		info := make([]int64, numKeys+1)
		for i := 0; i <= numKeys; i++ {
			off := infoOff + i*infoSlotSize
			info[i] = int64(binary.LittleEndian.Uint64(block[off : off+infoSlotSize]))
		}
		n.info = info
	}
	return n
}

// lowerBound returns the index of the first element in keys that is >=
// key, per codec's ordering, i.e. the standard binary-search insertion
// point.
func lowerBound[K any](keys []K, key K, codec KeyCodec[K]) int {
	lo, hi := 0, len(keys)
	for lo < hi {
		mid := (lo + hi) / 2
		if codec.Compare(keys[mid], key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
