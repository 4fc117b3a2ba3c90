// Package recordindex implements the hash-to-link directory that
// pkg/recordstore consults to resolve a transaction hash to the byte
// offsets ("links") of every record stored under it.
//
// The wire format deliberately leaves the directory's internal bucket and
// collision-chaining algorithm unspecified: any structure that can append a
// link under a hash and later return every link ever appended under that
// hash, in the order they were appended, satisfies the contract. Rather than
// hand-roll open addressing or chaining, this package delegates that problem
// to an embedded key-value store, the same way the reference metadata
// layer delegates file and directory lookups to one.
package recordindex

import (
	"context"
	"encoding/binary"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/vladg14/libbitcoin-database/internal/logger"
)

// ============================================================================
// Key Namespace
// ============================================================================
//
// Data Type   Prefix  Key Format       Value Format
// =================================================================
// Hash entry  "h:"    h:<32-byte hash>  concatenated 8-byte little-endian
//                                       links, oldest first

const prefixHash = "h:"

func keyHash(hash [32]byte) []byte {
	key := make([]byte, 0, len(prefixHash)+32)
	key = append(key, prefixHash...)
	key = append(key, hash[:]...)
	return key
}

const linkWidth = 8

// Directory is a hash-to-link index backed by an embedded key-value store.
type Directory struct {
	db      *badger.DB
	path    string
	metrics Metrics
}

// Option configures Open.
type Option func(*Directory)

// WithMetrics installs a Metrics sink. A nil Metrics (the default) disables
// instrumentation.
func WithMetrics(m Metrics) Option {
	return func(d *Directory) { d.metrics = m }
}

// Open opens (creating if necessary) the directory at path.
func Open(path string, opts ...Option) (*Directory, error) {
	badgerOpts := badger.DefaultOptions(path).WithLogger(badgerLoggerAdapter{})

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrIO, path, err)
	}

	d := &Directory{db: db, path: path, metrics: noopMetrics{}}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = noopMetrics{}
	}

	logger.Debug("recordindex opened", logger.File(path))
	return d, nil
}

// Close flushes and closes the underlying store.
func (d *Directory) Close() error {
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrIO, d.path, err)
	}
	return nil
}

// Link appends link to the end of hash's collision chain. Appends are
// read-modify-write within a single badger transaction, so two concurrent
// Link calls against the same hash serialize rather than racing to
// overwrite each other's entry; when badger's optimistic transaction model
// rejects the loser with badger.ErrConflict, Link runs its transaction
// again, so callers do not need their own locking around Link.
func (d *Directory) Link(ctx context.Context, hash [32]byte, link uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := keyHash(hash)
	appendLink := func(txn *badger.Txn) error {
		var existing []byte
		item, err := txn.Get(key)
		switch {
		case err == nil:
			existing, err = item.ValueCopy(nil)
			if err != nil {
				return err
			}
		case err == badger.ErrKeyNotFound:
			existing = nil
		default:
			return err
		}

		buf := make([]byte, len(existing)+linkWidth)
		copy(buf, existing)
		binary.LittleEndian.PutUint64(buf[len(existing):], link)

		return txn.Set(key, buf)
	}
	err := d.db.Update(appendLink)
	for err == badger.ErrConflict {
		err = d.db.Update(appendLink)
	}
	if err != nil {
		return fmt.Errorf("%w: link hash: %v", ErrIO, err)
	}

	logger.DebugCtx(ctx, "recordindex linked", logger.Hash(hash), logger.Link(link))
	if d.metrics.IsEnabled() {
		d.metrics.ObserveLink()
	}
	return nil
}

// Find returns every link ever appended under hash, oldest first, or an
// empty (nil) slice if hash has never been linked. A miss is not an error.
func (d *Directory) Find(ctx context.Context, hash [32]byte) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var raw []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyHash(hash))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: find hash: %v", ErrIO, err)
	}

	if len(raw) == 0 {
		if d.metrics.IsEnabled() {
			d.metrics.ObserveFind(false)
		}
		return nil, nil
	}

	checkInvariant(len(raw)%linkWidth == 0, "hash directory entry has non-multiple-of-8 length")

	links := make([]uint64, len(raw)/linkWidth)
	for i := range links {
		links[i] = binary.LittleEndian.Uint64(raw[i*linkWidth : (i+1)*linkWidth])
	}

	if d.metrics.IsEnabled() {
		d.metrics.ObserveFind(true)
	}
	return links, nil
}

// Flush forces pending writes to stable storage.
func (d *Directory) Flush() error {
	if err := d.db.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %v", ErrIO, d.path, err)
	}
	return nil
}

// Healthcheck verifies the store is reachable without mutating it.
func (d *Directory) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.View(func(txn *badger.Txn) error { return nil })
}

// badgerLoggerAdapter routes badger's internal logging through this
// module's structured logger instead of badger's default stderr logger.
type badgerLoggerAdapter struct{}

func (badgerLoggerAdapter) Errorf(format string, args ...interface{})   { logger.Errorf(format, args...) }
func (badgerLoggerAdapter) Warningf(format string, args ...interface{}) { logger.Warnf(format, args...) }
func (badgerLoggerAdapter) Infof(format string, args ...interface{})    { logger.Infof(format, args...) }
func (badgerLoggerAdapter) Debugf(format string, args ...interface{})   { logger.Debugf(format, args...) }
