// Package recordstore allocates variable-length transaction records inside
// a FileMap-backed heap file and indexes them by hash through a
// recordindex.Directory, following the two-phase allocate-then-link
// publish protocol: a record's bytes are written into an allocated-but-
// unlinked offset, and only becomes visible through Find by hash once
// Link has published that offset into the directory. A crash between the
// two steps leaks heap bytes but never exposes a partial record.
//
// Records are addressed by link, the byte offset of the record's first
// byte within the heap file. A link never moves and never changes meaning
// once assigned.
package recordstore

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/vladg14/libbitcoin-database/internal/logger"
	"github.com/vladg14/libbitcoin-database/pkg/filemap"
	"github.com/vladg14/libbitcoin-database/pkg/recordindex"
)

// Store owns a heap FileMap and its hash directory. The zero value is not
// usable; construct with Create or Open.
type Store struct {
	fm    *filemap.FileMap
	index *recordindex.Directory

	heapPath  string
	indexPath string

	// metaMu is the metadata mutex from §5: shared for every atomic-header
	// and atomic-output-sub-header read, exclusive for every write to
	// those same bytes. Reads and writes of immutable payload bytes never
	// take it.
	metaMu sync.RWMutex

	// allocMu serializes bumping nextOffset so two concurrent Allocate
	// calls never hand out overlapping links.
	allocMu    sync.Mutex
	nextOffset uint64

	metrics Metrics
	fmOpts  []filemap.Option
}

// Option configures Create/Open.
type Option func(*Store)

// WithMetrics installs a Metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithFileMapOptions forwards options to the underlying filemap.Open or
// filemap.Create call.
func WithFileMapOptions(opts ...filemap.Option) Option {
	return func(s *Store) { s.fmOpts = append(s.fmOpts, opts...) }
}

// Create initializes a fresh store at heapPath/indexPath. It fails with
// ErrAlreadyExists if the heap file already holds a valid header.
func Create(heapPath, indexPath string, opts ...Option) (*Store, error) {
	s, existed, err := open(heapPath, indexPath, opts...)
	if err != nil {
		return nil, err
	}
	if existed {
		s.Close()
		return nil, ErrAlreadyExists
	}
	return s, nil
}

// Open opens an existing store, or creates one if no file exists at
// heapPath. An existing zero-length heap file fails with
// filemap.ErrEmptyFile.
func Open(heapPath, indexPath string, opts ...Option) (*Store, error) {
	s, _, err := open(heapPath, indexPath, opts...)
	return s, err
}

func open(heapPath, indexPath string, opts ...Option) (*Store, bool, error) {
	s := &Store{heapPath: heapPath, indexPath: indexPath, metrics: noopMetrics{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = noopMetrics{}
	}

	fm, err := openOrCreateHeap(heapPath, s.fmOpts...)
	if err != nil {
		return nil, false, err
	}
	s.fm = fm

	existed := fm.LogicalSize() >= headerSize
	if existed {
		acc, err := fm.Access()
		if err != nil {
			fm.Stop()
			return nil, false, err
		}
		header, err := readStoreHeader(acc.Bytes())
		acc.Release()
		if err != nil {
			fm.Stop()
			return nil, false, err
		}
		s.nextOffset = header.NextOffset
	} else {
		alloc, err := fm.Resize(context.Background(), headerSize)
		if err != nil {
			fm.Stop()
			return nil, false, err
		}
		writeStoreHeader(alloc.Bytes(), storeHeader{NextOffset: headerSize})
		alloc.Release()
		s.nextOffset = headerSize
	}

	index, err := recordindex.Open(indexPath)
	if err != nil {
		fm.Stop()
		return nil, false, err
	}
	s.index = index

	logger.Debug("recordstore opened", logger.File(heapPath), logger.LogicalSize(fm.LogicalSize()))
	return s, existed, nil
}

// openOrCreateHeap opens heapPath if it already exists, or bootstraps a
// fresh heap file with one header's worth of headroom if it doesn't.
// filemap.Open refuses a zero-length or missing file outright, because only
// the caller knows whether that means "nothing here yet" or a genuine
// error; this is the caller that knows, since it is the one about to write
// a store header into a brand-new file.
func openOrCreateHeap(heapPath string, opts ...filemap.Option) (*filemap.FileMap, error) {
	if _, err := os.Stat(heapPath); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: stat %s: %v", ErrIO, heapPath, err)
		}
		return filemap.Create(heapPath, headerSize, opts...)
	}
	return filemap.Open(heapPath, opts...)
}

// Start returns ctx's error, if any, and otherwise nil. Go's constructors
// already return a fully mapped, header-verified Store, so Start does no
// other work; it is kept only so callers translating from the upward open/start/commit
// lifecycle have something to call; it exists for contract parity, not
// because there is setup left to do.
func (s *Store) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// Commit durably records the current next-allocation offset in the heap
// file's header, then flushes both the heap and the directory. Every
// completed Link should eventually be followed by a Commit (directly or
// via the owning txdb.Database's own commit schedule) so a restart after a
// clean shutdown resumes allocating after the last committed record rather
// than rediscovering it by rescanning.
func (s *Store) Commit() error {
	s.allocMu.Lock()
	next := s.nextOffset
	s.allocMu.Unlock()

	alloc, err := s.fm.Resize(context.Background(), next)
	if err != nil {
		return err
	}
	writeStoreHeader(alloc.Bytes(), storeHeader{NextOffset: next})
	alloc.Release()

	return s.Flush()
}

// Stats is a point-in-time snapshot of a Store's allocation state, useful
// for operator-facing status reporting.
type Stats struct {
	HeapPath    string
	IndexPath   string
	NextOffset  uint64
	MappedSize  uint64
	LogicalSize uint64
}

// Stats reports the store's current allocation state.
func (s *Store) Stats() Stats {
	s.allocMu.Lock()
	next := s.nextOffset
	s.allocMu.Unlock()

	return Stats{
		HeapPath:    s.heapPath,
		IndexPath:   s.indexPath,
		NextOffset:  next,
		MappedSize:  s.fm.Size(),
		LogicalSize: s.fm.LogicalSize(),
	}
}

// Flush forces the heap mapping and the hash directory to stable storage.
func (s *Store) Flush() error {
	if err := s.fm.Flush(); err != nil {
		return err
	}
	return s.index.Flush()
}

// Close commits, flushes, and releases both the heap FileMap and the hash
// directory.
func (s *Store) Close() error {
	_ = s.Commit()
	if !s.fm.Stop() {
		return fmt.Errorf("%w: filemap stop reported failure", ErrIO)
	}
	return s.index.Close()
}
