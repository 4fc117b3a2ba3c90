// Package filemap provides a growable, page-aligned memory-mapped file: the
// storage substrate every other component in this module allocates from.
//
// A FileMap tracks two sizes. The mapped size is the size of the current
// mmap region, always large enough to hold the logical size; it is a
// multiple of the OS page size after Create or any growth, while Open maps
// the file's existing length as it is. The logical size is the authoritative
// length of live data; bytes between the logical size and the mapped size
// are unused headroom reserved ahead of demand.
//
// Growth (reserve and resize) requires exclusive access to the mapping
// while the file is truncated and the mapping is replaced, because any
// concurrent reader could otherwise dereference a pointer into a region
// the kernel is in the process of unmapping. Ordinary reads and writes to
// already-mapped bytes need no such exclusion and proceed under a shared
// lock, so that a page fault on one goroutine's read never blocks another's.
package filemap

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/vladg14/libbitcoin-database/internal/logger"
)

// ExternalLocker lets a caller coordinate a FileMap's grow operations with a
// critical section that spans more than one FileMap (for example, a
// RecordStore growing its heap file while also writing to a directory that
// indexes offsets into that heap). It is held only around the ftruncate and
// remap steps of reserve/resize, never across an Access or Allocator borrow.
type ExternalLocker interface {
	Lock()
	Unlock()
}

type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

// Growth factor applied by Reserve: new mapped size is at least
// required * ExpansionNumerator / ExpansionDenominator, rounded up to a
// page boundary. Reserve grows ahead of demand so that a sequence of small
// allocations does not truncate/remap on every call. Resize grows (or
// shrinks the logical size) to exactly the requested size and never applies
// the expansion factor.
const (
	ExpansionNumerator   = 150
	ExpansionDenominator = 100
)

// FileMap is a growable, page-aligned memory mapping over a single backing
// file. The zero value is not usable; construct with Open.
type FileMap struct {
	// mu is the remap-exclusion lock. Access and Allocator borrows hold it
	// for read for the lifetime of the borrow. Reserve and Resize hold it
	// for write only while truncating and remapping, then downgrade to a
	// read hold before handing the caller an Allocator.
	mu sync.RWMutex

	external ExternalLocker

	file *os.File
	path string

	data []byte // current mapping; replaced wholesale on grow, never grown in place

	mappedSize  uint64
	logicalSize uint64
	pageSize    uint64

	expansionNumerator   uint64
	expansionDenominator uint64

	stopped atomic.Bool

	metrics Metrics
}

// Option configures Open.
type Option func(*FileMap)

// WithExternalLocker installs a lock that Reserve and Resize acquire around
// the truncate/remap steps, released before the caller's Allocator is
// returned.
func WithExternalLocker(l ExternalLocker) Option {
	return func(fm *FileMap) { fm.external = l }
}

// WithMetrics installs a Metrics sink. A nil Metrics (the default) disables
// instrumentation; see Metrics.IsEnabled.
func WithMetrics(m Metrics) Option {
	return func(fm *FileMap) { fm.metrics = m }
}

// WithExpansionFactor overrides the headroom growth factor Reserve applies
// (default ExpansionNumerator/ExpansionDenominator). denominator must not be
// zero.
func WithExpansionFactor(numerator, denominator uint64) Option {
	return func(fm *FileMap) {
		fm.expansionNumerator = numerator
		fm.expansionDenominator = denominator
	}
}

// Open maps the existing backing file at path. The file must already exist
// and have non-zero length: its current length becomes both the mapped size
// and the initial logical size. A caller that tracks a smaller logical size
// of its own can restore it with Resize after Open.
//
// A missing or zero-length file is never silently bootstrapped here; only
// the caller knows whether that means "nothing here yet" (and should call
// Create) or a genuine error. A zero-length file fails with ErrEmptyFile,
// matching the original memory_map's assertion that a mapped file must have
// non-zero size.
func Open(path string, opts ...Option) (*FileMap, error) {
	pageSize := uint64(os.Getpagesize())

	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrIO, path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: stat %s: %v", ErrIO, path, err)
	}

	size := uint64(info.Size())
	if size == 0 {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	return mapFile(f, path, size, size, pageSize, opts)
}

// Create creates a new backing file at path and maps it with initialSize
// bytes of headroom (rounded up to a page) and a logical size of zero. It
// fails if path already exists, so a caller always knows whether it just
// bootstrapped a fresh heap or is about to clobber one. A zero initialSize
// is rounded up to one page.
func Create(path string, initialSize uint64, opts ...Option) (*FileMap, error) {
	pageSize := uint64(os.Getpagesize())

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", ErrIO, path, err)
	}

	if initialSize == 0 {
		initialSize = pageSize
	}
	mappedSize := roundUpToPage(initialSize, pageSize)
	if err := f.Truncate(int64(mappedSize)); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: truncate %s: %v", ErrResize, path, err)
	}

	return mapFile(f, path, mappedSize, 0, pageSize, opts)
}

func mapFile(f *os.File, path string, mappedSize, logicalSize, pageSize uint64, opts []Option) (*FileMap, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, int(mappedSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: mmap %s: %v", ErrMap, path, err)
	}

	fm := &FileMap{
		file:                 f,
		path:                 path,
		data:                 data,
		mappedSize:           mappedSize,
		logicalSize:          logicalSize,
		pageSize:             pageSize,
		external:             noopLocker{},
		metrics:              noopMetrics{},
		expansionNumerator:   ExpansionNumerator,
		expansionDenominator: ExpansionDenominator,
	}
	for _, opt := range opts {
		opt(fm)
	}
	if fm.external == nil {
		fm.external = noopLocker{}
	}
	if fm.metrics == nil {
		fm.metrics = noopMetrics{}
	}
	if fm.expansionDenominator == 0 {
		fm.expansionNumerator, fm.expansionDenominator = ExpansionNumerator, ExpansionDenominator
	}

	logger.Debug("filemap opened", logger.File(path), logger.FileSize(mappedSize), logger.LogicalSize(logicalSize), logger.PageSize(int(pageSize)))
	return fm, nil
}

// Size returns the current mapped size in bytes.
func (m *FileMap) Size() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mappedSize
}

// LogicalSize returns the current logical (authoritative) data length.
func (m *FileMap) LogicalSize() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.logicalSize
}

// PageSize returns the OS page size this FileMap rounds mapped sizes to.
func (m *FileMap) PageSize() uint64 {
	return m.pageSize
}

// Access borrows shared read/write access to the mapping for the duration of
// the returned Accessor. Every in-progress Accessor and Allocator must be
// released before Stop can complete. Returns ErrStopped if the map has
// already been stopped.
func (m *FileMap) Access() (*Accessor, error) {
	if m.stopped.Load() {
		return nil, ErrStopped
	}
	m.mu.RLock()
	if m.stopped.Load() {
		m.mu.RUnlock()
		return nil, ErrStopped
	}
	return &Accessor{fm: m, data: m.data}, nil
}

// Reserve ensures the mapping is at least requiredSize bytes, growing ahead
// of demand by ExpansionNumerator/ExpansionDenominator when it must grow,
// and returns an Allocator borrowing shared access to the (possibly new)
// mapping. Reserve raises the logical size to requiredSize when requiredSize
// is larger, and never shrinks it; requiredSize at or below the current
// logical size leaves both sizes unchanged.
func (m *FileMap) Reserve(ctx context.Context, requiredSize uint64) (*Allocator, error) {
	return m.grow(ctx, requiredSize, m.expansionNumerator, m.expansionDenominator, false)
}

// Resize sets the logical size to exactly requiredSize, growing the mapping
// if requiredSize exceeds the current mapped size. Unlike Reserve, no
// headroom factor is applied and the logical size can move in either
// direction (a shrink never unmaps pages, it only moves the authoritative
// length backward).
func (m *FileMap) Resize(ctx context.Context, requiredSize uint64) (*Allocator, error) {
	return m.grow(ctx, requiredSize, 1, 1, true)
}

func (m *FileMap) grow(ctx context.Context, requiredSize, num, den uint64, exact bool) (*Allocator, error) {
	checkInvariant(den != 0, "expansion denominator must not be zero")

	if m.stopped.Load() {
		return nil, ErrStopped
	}

	m.mu.Lock()
	if m.stopped.Load() {
		m.mu.Unlock()
		return nil, ErrStopped
	}

	m.external.Lock()

	grew := false
	if requiredSize > m.mappedSize {
		target := requiredSize
		if !exact {
			target = requiredSize * num / den
		}
		newMappedSize := roundUpToPage(target, m.pageSize)

		if err := m.file.Truncate(int64(newMappedSize)); err != nil {
			m.external.Unlock()
			m.mu.Unlock()
			return nil, fmt.Errorf("%w: ftruncate %s to %d: %v", ErrResize, m.path, newMappedSize, err)
		}

		newData, err := remap(int(m.file.Fd()), m.data, int(newMappedSize))
		if err != nil {
			m.external.Unlock()
			m.mu.Unlock()
			return nil, fmt.Errorf("%w: remap %s to %d: %v", ErrMap, m.path, newMappedSize, err)
		}

		m.data = newData
		m.mappedSize = newMappedSize
		grew = true
	}

	if exact || requiredSize > m.logicalSize {
		m.logicalSize = requiredSize
	}

	m.external.Unlock()
	m.mu.Unlock()

	if grew && m.metrics.IsEnabled() {
		m.metrics.ObserveGrow(m.mappedSize)
	}
	if grew {
		logger.DebugCtx(ctx, "filemap grew", logger.File(m.path), logger.FileSize(m.mappedSize), logger.LogicalSize(m.logicalSize))
	}

	// Downgrade to shared access. There is no atomic upgrade-to-shared
	// primitive in sync.RWMutex, so another writer may acquire the
	// exclusive lock in between; that writer can only grow the mapping
	// further, never shrink the mapped region, so the Allocator below is
	// still valid against whatever m.data is once the read lock is granted.
	m.mu.RLock()
	return &Allocator{fm: m, data: m.data}, nil
}

// Flush forces the dirty pages of the mapping to stable storage.
func (m *FileMap) Flush() error {
	if m.stopped.Load() {
		return ErrStopped
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := unix.Msync(m.data, unix.MS_SYNC); err != nil {
		return fmt.Errorf("%w: msync %s: %v", ErrMap, m.path, err)
	}
	return nil
}

// Stop unmaps the file, truncates it to the logical size, syncs, and closes
// it. Stop blocks until every outstanding Accessor and Allocator has been
// released, since it must hold the mapping exclusively to unmap it safely.
// Stop is idempotent: calling it more than once is safe and returns true
// after the first successful call. It returns false if any step failed; the
// FileMap must not be used afterward either way.
func (m *FileMap) Stop() bool {
	if !m.stopped.CompareAndSwap(false, true) {
		return true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ok := true
	if err := unix.Msync(m.data, unix.MS_SYNC); err != nil {
		logger.Error("filemap stop: msync failed", logger.File(m.path), logger.Err(err))
		ok = false
	}
	if ok {
		if err := unix.Munmap(m.data); err != nil {
			logger.Error("filemap stop: munmap failed", logger.File(m.path), logger.Err(err))
			ok = false
		}
	}
	if ok {
		if err := m.file.Truncate(int64(m.logicalSize)); err != nil {
			logger.Error("filemap stop: truncate failed", logger.File(m.path), logger.Err(err))
			ok = false
		}
	}
	if ok {
		if err := m.file.Sync(); err != nil {
			logger.Error("filemap stop: fsync failed", logger.File(m.path), logger.Err(err))
			ok = false
		}
	}
	if err := m.file.Close(); err != nil {
		logger.Error("filemap stop: close failed", logger.File(m.path), logger.Err(err))
		ok = false
	}

	m.data = nil
	return ok
}

func roundUpToPage(size, pageSize uint64) uint64 {
	if pageSize == 0 {
		return size
	}
	return (size + pageSize - 1) / pageSize * pageSize
}
