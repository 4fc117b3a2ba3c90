// Package outputcache implements a bounded shadow of recently-seen
// confirmed unspent outputs, consulted on the hot prevout-lookup path
// before falling through to the record store.
//
// The cache never holds a spent output or an output belonging to a
// non-confirmed transaction: every state transition that could invalidate
// an entry (spend, unconfirm) must call Remove. There is no promotion of an
// entry back into the cache on confirm; callers populate it explicitly via
// Add when they already have the transaction in hand, typically right after
// store or confirm.
package outputcache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vladg14/libbitcoin-database/internal/logger"
	"github.com/vladg14/libbitcoin-database/pkg/txrecord"
)

// Entry is the cached payload for one unspent confirmed output.
type Entry struct {
	Value          uint64
	Script         []byte
	Height         uint32
	MedianTimePast uint32
	Coinbase       bool
}

// Cache is a fixed-capacity, LRU-evicted shadow of unspent confirmed
// outputs. The zero value is not usable; construct with New.
type Cache struct {
	mu       sync.Mutex
	entries  *lru.Cache[txrecord.OutputPoint, Entry]
	capacity int
	metrics  Metrics
}

// Option configures New.
type Option func(*Cache)

// WithMetrics installs a Metrics sink.
func WithMetrics(m Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// New constructs a Cache holding at most capacity entries.
func New(capacity int, opts ...Option) (*Cache, error) {
	checkInvariant(capacity > 0, "outputcache capacity must be positive")

	entries, err := lru.New[txrecord.OutputPoint, Entry](capacity)
	if err != nil {
		return nil, err
	}

	c := &Cache{entries: entries, capacity: capacity, metrics: noopMetrics{}}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = noopMetrics{}
	}
	return c, nil
}

// Populate returns the cached entry for point if one exists and is still
// usable at forkHeight (the entry's height must not exceed forkHeight,
// since an entry whose confirming block is above the query's fork height
// has not yet happened from the caller's point of view). It returns
// (Entry{}, false) on any miss, including a present-but-not-yet-relevant
// entry.
func (c *Cache) Populate(point txrecord.OutputPoint, forkHeight uint32) (Entry, bool) {
	c.mu.Lock()
	entry, ok := c.entries.Get(point)
	c.mu.Unlock()

	if !ok || entry.Height > forkHeight {
		if c.metrics.IsEnabled() {
			c.metrics.ObserveLookup(false)
		}
		return Entry{}, false
	}

	if c.metrics.IsEnabled() {
		c.metrics.ObserveLookup(true)
	}
	return entry, true
}

// Add populates the cache with every unspent output of tx, keyed by hash and
// output index. Callers are expected to call this only for confirmed
// transactions; outputcache does not itself check tx.State.
func (c *Cache) Add(hash [32]byte, tx *txrecord.Transaction) {
	coinbase := tx.Position == 0

	c.mu.Lock()
	evicted := 0
	for i, o := range tx.Outputs {
		if o.SpenderHeight != txrecord.NotSpent {
			continue
		}
		point := txrecord.OutputPoint{Hash: hash, Index: uint32(i)}
		wasEvicted := c.entries.Add(point, Entry{
			Value:          o.Value,
			Script:         o.Script,
			Height:         tx.HeightOrForks,
			MedianTimePast: tx.MedianTimePast,
			Coinbase:       coinbase,
		})
		if wasEvicted {
			evicted++
		}
	}
	c.mu.Unlock()

	if evicted > 0 {
		logger.Debug("outputcache evicted entries on add", logger.Hash(hash), logger.Evicted(evicted))
	}
}

// Remove evicts point from the cache, if present. Called on spend and on
// unconfirm, since both invalidate the cached "unspent confirmed" state.
func (c *Cache) Remove(point txrecord.OutputPoint) {
	c.mu.Lock()
	c.entries.Remove(point)
	c.mu.Unlock()
}

// Len returns the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}
