// Package alloc hands out file space for the HDF5 writer.
package alloc

import "sync"

// Allocator is an append-only allocator. Every block is placed at the
// current end of file.
type Allocator struct {
	mu      sync.Mutex
	eofAddr uint64
}

// New returns an allocator whose first block starts at base, usually the
// first byte after the superblock.
func New(base uint64) *Allocator {
	return &Allocator{eofAddr: base}
}

// Alloc reserves size bytes and returns their address. A zero size
// returns the end of file without reserving anything.
func (a *Allocator) Alloc(size uint64) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	addr := a.eofAddr
	if size > 0 {
		a.eofAddr += size
	}
	return addr
}

// EOFAddr returns the address the next block will get.
func (a *Allocator) EOFAddr() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.eofAddr
}
