package recordstore

import (
	"context"
	"fmt"

	"github.com/vladg14/libbitcoin-database/internal/logger"
	"github.com/vladg14/libbitcoin-database/pkg/filemap"
	"github.com/vladg14/libbitcoin-database/pkg/txrecord"
)

// Builder is the result of Allocate: a written-but-unlinked record. It
// must be passed to Link exactly once, which publishes it into the hash
// directory and releases the underlying allocation borrow. Discarding a
// Builder without linking it leaks the allocated heap bytes but never
// exposes a partial record through Find, since Find only ever consults
// the directory.
type Builder struct {
	store *Store
	hash  [32]byte
	link  uint64
	alloc *filemap.Allocator
}

// Link returns the byte offset this Builder's record occupies.
func (b *Builder) Link() uint64 { return b.link }

// Record is a live, pinned view of one stored transaction record. It must
// be released exactly once.
type Record struct {
	store *Store
	acc   *filemap.Accessor
	link  uint64
}

// Link returns the byte offset of this record within the heap file.
func (r *Record) Link() uint64 { return r.link }

// Bytes returns the record's bytes, starting at its own first byte.
func (r *Record) Bytes() []byte {
	return r.acc.Bytes()[r.link:]
}

// Release gives up this record's borrow of the heap mapping.
func (r *Record) Release() { r.acc.Release() }

// Allocate reserves size bytes at the next free offset, writes into them
// via write, and returns a Builder addressing the result — but does not
// yet make the record visible by hash. Call Link to publish it.
func (s *Store) Allocate(ctx context.Context, hash [32]byte, size int, write func(buf []byte)) (*Builder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	checkInvariant(size > 0, "allocate size must be positive")

	s.allocMu.Lock()
	link := s.nextOffset
	newNext := link + uint64(size)
	s.nextOffset = newNext
	s.allocMu.Unlock()

	alloc, err := s.fm.Reserve(ctx, newNext)
	if err != nil {
		return nil, err
	}

	buf := alloc.Bytes()[link:newNext]
	write(buf)

	if s.metrics.IsEnabled() {
		s.metrics.ObserveAllocate(size)
	}
	logger.DebugCtx(ctx, "recordstore allocated record", logger.Link(link), logger.Hash(hash))

	return &Builder{store: s, hash: hash, link: link, alloc: alloc}, nil
}

// Link publishes b's record into the hash directory, making it visible to
// Find(hash), and releases b's allocation borrow.
func (s *Store) Link(ctx context.Context, b *Builder) error {
	defer b.alloc.Release()

	if err := s.index.Link(ctx, b.hash, b.link); err != nil {
		return err
	}
	logger.DebugCtx(ctx, "recordstore linked record", logger.Link(b.link), logger.Hash(b.hash))
	return nil
}

// Find returns the first record in hash's collision chain, or (nil, false,
// nil) if hash has never been linked.
func (s *Store) Find(ctx context.Context, hash [32]byte) (*Record, bool, error) {
	links, err := s.index.Find(ctx, hash)
	if err != nil {
		return nil, false, err
	}
	if len(links) == 0 {
		return nil, false, nil
	}
	rec, err := s.FindByLink(ctx, links[0])
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// CollisionChain returns every link ever stored under hash, oldest first.
// Useful for callers that must consider every transaction that ever shared
// this hash rather than only the first (oldest), which is all Find returns.
func (s *Store) CollisionChain(ctx context.Context, hash [32]byte) ([]uint64, error) {
	return s.index.Find(ctx, hash)
}

// FindByLink returns the record at the given byte offset in O(1).
func (s *Store) FindByLink(ctx context.Context, link uint64) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	acc, err := s.fm.Access()
	if err != nil {
		return nil, err
	}
	if link >= uint64(len(acc.Bytes())) {
		acc.Release()
		return nil, fmt.Errorf("%w: link %d beyond mapped region", ErrNotFound, link)
	}
	return &Record{store: s, acc: acc, link: link}, nil
}

// ReadHeader decodes rec's atomic-header under the metadata mutex, shared.
func (s *Store) ReadHeader(rec *Record) (txrecord.Header, error) {
	s.metaMu.RLock()
	defer s.metaMu.RUnlock()
	return txrecord.ReadHeader(rec.Bytes())
}

// WriteHeader overwrites rec's atomic-header under the metadata mutex,
// exclusive.
func (s *Store) WriteHeader(rec *Record, h txrecord.Header) error {
	s.metaMu.Lock()
	defer s.metaMu.Unlock()
	return txrecord.WriteHeader(rec.Bytes(), h)
}

// Spend sets output outputIndex of the record at link as spent by a
// transaction confirmed at spenderHeight. It fails with ErrLayout unless
// the record is confirmed and its own confirmation height is no later
// than spenderHeight — a transaction cannot be spent by one that was
// confirmed before it existed.
func (s *Store) Spend(ctx context.Context, link uint64, outputIndex uint64, spenderHeight uint32) error {
	rec, err := s.FindByLink(ctx, link)
	if err != nil {
		return err
	}
	defer rec.Release()

	buf := rec.Bytes()

	s.metaMu.RLock()
	header, err := txrecord.ReadHeader(buf)
	s.metaMu.RUnlock()
	if err != nil {
		return err
	}

	if header.State != txrecord.StateConfirmed || header.HeightOrForks > spenderHeight {
		return fmt.Errorf("%w: output not confirmed at requested height", ErrLayout)
	}

	offset, _, _, err := txrecord.LocateOutput(buf, outputIndex)
	if err != nil {
		return err
	}

	s.metaMu.Lock()
	txrecord.WriteSpenderHeight(buf, offset, spenderHeight)
	s.metaMu.Unlock()

	if s.metrics.IsEnabled() {
		s.metrics.ObserveSpend()
	}
	logger.DebugCtx(ctx, "recordstore spent output", logger.Link(link), logger.OutputIndex(uint32(outputIndex)), logger.SpenderHeight(spenderHeight))
	return nil
}

// Unspend clears output outputIndex of the record at link back to
// NotSpent. Equivalent to Spend with spenderHeight == txrecord.NotSpent.
func (s *Store) Unspend(ctx context.Context, link uint64, outputIndex uint64) error {
	return s.Spend(ctx, link, outputIndex, txrecord.NotSpent)
}

// ReadOutput decodes the immutable fields (value, script) and the current
// spender_height of output outputIndex in rec.
func (s *Store) ReadOutput(rec *Record, outputIndex uint64) (value uint64, script []byte, spenderHeight uint32, err error) {
	buf := rec.Bytes()
	offset, value, script, err := txrecord.LocateOutput(buf, outputIndex)
	if err != nil {
		return 0, nil, 0, err
	}

	s.metaMu.RLock()
	spenderHeight = txrecord.ReadSpenderHeight(buf, offset)
	s.metaMu.RUnlock()

	return value, script, spenderHeight, nil
}
