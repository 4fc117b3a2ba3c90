// Package txdb wires the leaf components — filemap, recordindex,
// recordstore, txrecord and outputcache — into the upward transaction
// database API consumed by a block database: create, open, close, commit,
// flush, store, pool, confirm, unconfirm, get(hash), get(link), and
// get_output(point, fork_height).
package txdb

import (
	"context"
	"errors"
	"sync"

	"github.com/vladg14/libbitcoin-database/internal/logger"
	"github.com/vladg14/libbitcoin-database/pkg/filemap"
	"github.com/vladg14/libbitcoin-database/pkg/outputcache"
	"github.com/vladg14/libbitcoin-database/pkg/recordstore"
	"github.com/vladg14/libbitcoin-database/pkg/txrecord"
)

// Config names the two backing paths a Database needs: the heap file that
// holds transaction records, and the directory for the embedded
// hash-to-link index. CacheCapacity of 0 disables the output cache
// entirely, which the format tolerates (see SPEC_FULL.md §9): every path
// other than the mempool cache-hit scenario still succeeds via RecordStore.
type Config struct {
	HeapPath      string
	IndexPath     string
	CacheCapacity int

	// GrowthNumerator and GrowthDenominator override the heap's reservation
	// growth factor (default filemap.ExpansionNumerator/ExpansionDenominator,
	// i.e. 1.5x). Both zero means "use the default".
	GrowthNumerator   uint64
	GrowthDenominator uint64
}

// Database is the top-level handle a block database opens once and uses
// for the lifetime of the process.
type Database struct {
	store   *recordstore.Store
	cache   *outputcache.Cache
	metrics Metrics

	// cachedLinksMu guards cachedLinks, the reverse index from a record's
	// link to the hash its outputs were cached under. Unconfirm is only
	// ever given a link (spec.md §4.6), but cache coherence requires
	// evicting by (hash, index); this index is how it recovers the hash it
	// was never handed.
	cachedLinksMu sync.Mutex
	cachedLinks   map[uint64][32]byte
}

// Option configures Create/Open.
type Option func(*Database)

// WithMetrics installs a Metrics sink.
func WithMetrics(m Metrics) Option {
	return func(db *Database) { db.metrics = m }
}

// Create initializes a fresh database. Fails if the heap file already
// holds data.
func Create(cfg Config, opts ...Option) (*Database, error) {
	store, err := recordstore.Create(cfg.HeapPath, cfg.IndexPath, storeOptions(cfg)...)
	if err != nil {
		return nil, err
	}
	return newDatabase(store, cfg, opts...)
}

// Open opens an existing database, or creates one if none exists yet.
func Open(cfg Config, opts ...Option) (*Database, error) {
	store, err := recordstore.Open(cfg.HeapPath, cfg.IndexPath, storeOptions(cfg)...)
	if err != nil {
		return nil, err
	}
	return newDatabase(store, cfg, opts...)
}

// storeOptions translates the handful of tunables Config exposes into the
// recordstore.Option / filemap.Option each maps to.
func storeOptions(cfg Config) []recordstore.Option {
	if cfg.GrowthNumerator == 0 && cfg.GrowthDenominator == 0 {
		return nil
	}
	return []recordstore.Option{
		recordstore.WithFileMapOptions(filemap.WithExpansionFactor(cfg.GrowthNumerator, cfg.GrowthDenominator)),
	}
}

func newDatabase(store *recordstore.Store, cfg Config, opts ...Option) (*Database, error) {
	db := &Database{store: store, metrics: noopMetrics{}}
	for _, opt := range opts {
		opt(db)
	}
	if db.metrics == nil {
		db.metrics = noopMetrics{}
	}

	if cfg.CacheCapacity > 0 {
		cache, err := outputcache.New(cfg.CacheCapacity)
		if err != nil {
			store.Close()
			return nil, err
		}
		db.cache = cache
		db.cachedLinks = make(map[uint64][32]byte)
	}

	logger.Debug("txdb opened", logger.File(cfg.HeapPath))
	return db, nil
}

// Close commits, flushes, and releases every backing resource.
func (db *Database) Close() error {
	return db.store.Close()
}

// Commit durably records the heap's next-allocation offset and flushes
// both the heap and the hash directory.
func (db *Database) Commit() error {
	return db.store.Commit()
}

// Flush forces the heap and hash directory to stable storage without
// updating the heap's checkpoint header.
func (db *Database) Flush() error {
	return db.store.Flush()
}

// Store allocates, writes, and links a new record for tx under hash, using
// tx's header fields as supplied by the caller (store does not impose a
// state). Returns the record's link.
func (db *Database) Store(ctx context.Context, hash [32]byte, tx *txrecord.Transaction) (uint64, error) {
	buf := txrecord.Encode(tx)
	b, err := db.store.Allocate(ctx, hash, len(buf), func(dst []byte) { copy(dst, buf) })
	if err != nil {
		return 0, err
	}
	if err := db.store.Link(ctx, b); err != nil {
		return 0, err
	}
	link := b.Link()

	if db.cache != nil && tx.State == txrecord.StateConfirmed && tx.HeightOrForks != 0 {
		db.cache.Add(hash, tx)
		db.rememberCachedOutputs(link, hash)
	}
	if db.metrics.IsEnabled() {
		db.metrics.ObserveStore()
	}
	return link, nil
}

// rememberCachedOutputs records that link's outputs were just cached under
// hash, so a later Unconfirm(link) can find and evict them even though it
// is never given the hash directly.
func (db *Database) rememberCachedOutputs(link uint64, hash [32]byte) {
	db.cachedLinksMu.Lock()
	db.cachedLinks[link] = hash
	db.cachedLinksMu.Unlock()
}

// forgetCachedOutputs removes and returns the hash remembered for link, if
// any was recorded.
func (db *Database) forgetCachedOutputs(link uint64) ([32]byte, bool) {
	db.cachedLinksMu.Lock()
	hash, ok := db.cachedLinks[link]
	if ok {
		delete(db.cachedLinks, link)
	}
	db.cachedLinksMu.Unlock()
	return hash, ok
}

// Pool stores a new transaction in the mempool state: header forced to
// (height=forks, median_time_past=0, position=UNCONFIRMED_POSITION,
// state=pooled), regardless of what body.Header carried in.
func (db *Database) Pool(ctx context.Context, hash [32]byte, body *txrecord.Transaction, forks uint32) (uint64, error) {
	tx := *body
	tx.Header = txrecord.Header{
		HeightOrForks:  forks,
		Position:       txrecord.UnconfirmedPosition,
		State:          txrecord.StatePooled,
		MedianTimePast: 0,
	}
	return db.Store(ctx, hash, &tx)
}

// GetByHash returns the first (oldest) record linked under hash.
func (db *Database) GetByHash(ctx context.Context, hash [32]byte) (*txrecord.Transaction, uint64, bool, error) {
	rec, ok, err := db.store.Find(ctx, hash)
	if err != nil || !ok {
		return nil, 0, false, err
	}
	defer rec.Release()

	tx, err := txrecord.Decode(rec.Bytes())
	if err != nil {
		return nil, 0, false, err
	}
	return tx, rec.Link(), true, nil
}

// Stats reports the backing store's current allocation state.
func (db *Database) Stats() recordstore.Stats {
	return db.store.Stats()
}

// GetByLink returns the record at the given byte offset.
func (db *Database) GetByLink(ctx context.Context, link uint64) (*txrecord.Transaction, bool, error) {
	rec, err := db.store.FindByLink(ctx, link)
	if err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer rec.Release()

	tx, err := txrecord.Decode(rec.Bytes())
	if err != nil {
		return nil, false, err
	}
	return tx, true, nil
}
