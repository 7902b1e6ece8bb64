// Package pageio provides fixed-size block I/O over a single file.
//
// A Pager owns one file and serves three operations: append a block to the
// end of the file, read a block at a byte offset, and overwrite a block at
// a byte offset. Every block is exactly BlockSize bytes; callers are
// responsible for interpreting the contents.
package pageio

import (
	"fmt"
	"os"
)

// BlockSize is the fixed unit of file I/O for every pager in this module.
const BlockSize = 512

// Block is one fixed-size unit of file content.
type Block [BlockSize]byte

// Pager manages fixed-size block I/O on a single file, with an optional
// LRU cache of recently touched blocks.
type Pager struct {
	file  *os.File
	cache *lruCache
	stats Recorder
}

// Recorder receives counts of block-level I/O, e.g. for Prometheus metrics.
// A nil Recorder is valid and simply means "don't record."
type Recorder interface {
	ObserveRead()
	ObserveWrite()
}

// Open opens (or creates) a pager backed by the file at path. cacheBlocks
// is the number of blocks to retain in the in-memory LRU cache; 0 disables
// caching.
func Open(path string, cacheBlocks int, rec Recorder) (*Pager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("pageio: open %s: %w", path, err)
	}
	return &Pager{file: f, cache: newLRUCache(cacheBlocks), stats: rec}, nil
}

// Append writes block as exactly BlockSize bytes at the current end of the
// file and returns the byte offset at which it was written (the file's
// pre-write length). The write is flushed before returning.
func (p *Pager) Append(block *Block) (int64, error) {
	info, err := p.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("pageio: stat: %w", err)
	}
	offset := info.Size()
	if _, err := p.file.WriteAt(block[:], offset); err != nil {
		return 0, fmt.Errorf("pageio: append at %d: %w", offset, err)
	}
	if err := p.file.Sync(); err != nil {
		return 0, fmt.Errorf("pageio: sync: %w", err)
	}
	p.cache.put(offset, block)
	p.record(false)
	return offset, nil
}

// Read returns the BlockSize bytes at offset, from cache or disk.
func (p *Pager) Read(offset int64) (*Block, error) {
	if b := p.cache.get(offset); b != nil {
		return b, nil
	}
	block := new(Block)
	if _, err := p.file.ReadAt(block[:], offset); err != nil {
		return nil, fmt.Errorf("pageio: read at %d: %w", offset, err)
	}
	p.cache.put(offset, block)
	p.record(true)
	return block, nil
}

// Overwrite writes block as exactly BlockSize bytes at offset, flushing
// before returning.
func (p *Pager) Overwrite(offset int64, block *Block) error {
	if _, err := p.file.WriteAt(block[:], offset); err != nil {
		return fmt.Errorf("pageio: overwrite at %d: %w", offset, err)
	}
	if err := p.file.Sync(); err != nil {
		return fmt.Errorf("pageio: sync: %w", err)
	}
	p.cache.put(offset, block)
	p.record(false)
	return nil
}

// Truncate resets the backing file to zero length and drops the cache.
// Used by writers that rebuild a file from scratch (§4.2 write_all).
func (p *Pager) Truncate() error {
	if err := p.file.Truncate(0); err != nil {
		return fmt.Errorf("pageio: truncate: %w", err)
	}
	if _, err := p.file.Seek(0, 0); err != nil {
		return fmt.Errorf("pageio: seek: %w", err)
	}
	p.cache = newLRUCache(p.cache.cap)
	return nil
}

// ReadAt reads len(buf) bytes at offset, bypassing the block cache. Used by
// callers that need to read a header region shorter than BlockSize (the
// column store's 8-byte count header).
func (p *Pager) ReadAt(offset int64, buf []byte) error {
	if _, err := p.file.ReadAt(buf, offset); err != nil {
		return fmt.Errorf("pageio: read at %d: %w", offset, err)
	}
	return nil
}

// WriteAt writes buf at offset and flushes, bypassing the block cache.
func (p *Pager) WriteAt(offset int64, buf []byte) error {
	if _, err := p.file.WriteAt(buf, offset); err != nil {
		return fmt.Errorf("pageio: write at %d: %w", offset, err)
	}
	if err := p.file.Sync(); err != nil {
		return fmt.Errorf("pageio: sync: %w", err)
	}
	return nil
}

// Size returns the current length of the backing file in bytes.
func (p *Pager) Size() (int64, error) {
	info, err := p.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("pageio: stat: %w", err)
	}
	return info.Size(), nil
}

// Close closes the underlying file.
func (p *Pager) Close() error {
	return p.file.Close()
}

func (p *Pager) record(isRead bool) {
	if p.stats == nil {
		return
	}
	if isRead {
		p.stats.ObserveRead()
	} else {
		p.stats.ObserveWrite()
	}
}

// ─── LRU block cache ───────────────────────────────────────────────────────

type lruEntry struct {
	offset int64
	block  *Block
	prev   *lruEntry
	next   *lruEntry
}

type lruCache struct {
	cap   int
	items map[int64]*lruEntry
	head  *lruEntry
	tail  *lruEntry
}

func newLRUCache(cap int) *lruCache {
	return &lruCache{cap: cap, items: make(map[int64]*lruEntry, cap)}
}

func (c *lruCache) get(offset int64) *Block {
	if c.cap == 0 {
		return nil
	}
	e, ok := c.items[offset]
	if !ok {
		return nil
	}
	c.moveToFront(e)
	return e.block
}

func (c *lruCache) put(offset int64, block *Block) {
	if c.cap == 0 {
		return
	}
	if e, ok := c.items[offset]; ok {
		e.block = block
		c.moveToFront(e)
		return
	}
	e := &lruEntry{offset: offset, block: block}
	c.items[offset] = e
	c.pushFront(e)
	if len(c.items) > c.cap {
		c.evict()
	}
}

func (c *lruCache) pushFront(e *lruEntry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) moveToFront(e *lruEntry) {
	if c.head == e {
		return
	}
	if e.prev != nil {
		e.prev.next = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	}
	if c.tail == e {
		c.tail = e.prev
	}
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
}

func (c *lruCache) evict() {
	if c.tail == nil {
		return
	}
	delete(c.items, c.tail.offset)
	if c.tail.prev != nil {
		c.tail.prev.next = nil
	}
	c.tail = c.tail.prev
	if c.tail == nil {
		c.head = nil
	}
}
