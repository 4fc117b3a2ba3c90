package filemap

import "sync/atomic"

// Allocator is the result of Reserve or Resize: a borrowed, shared view of
// the mapping that is guaranteed to be at least as large as the size that
// was requested. Like Accessor, it must be released exactly once.
type Allocator struct {
	fm       *FileMap
	data     []byte
	released atomic.Bool
}

// Bytes returns the full mapped region, guaranteed at least as large as the
// size requested from Reserve or Resize.
func (a *Allocator) Bytes() []byte {
	checkInvariant(!a.released.Load(), "allocator used after release")
	return a.data
}

// Release gives up the borrow. Safe to call more than once.
func (a *Allocator) Release() {
	if a.released.CompareAndSwap(false, true) {
		a.fm.mu.RUnlock()
	}
}
