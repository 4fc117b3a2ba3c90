package config

import "github.com/vladg14/libbitcoin-database/pkg/txdb"

// averageCacheEntryBytes estimates the footprint of one outputcache.Entry
// plus its OutputPoint key and LRU bookkeeping, used only to translate
// CacheSize's byte budget into the entry-count outputcache.New actually
// takes. A typical P2PKH-sized entry is well under this; the estimate
// leans conservative so CacheSize never undershoots the memory the caller
// asked to bound.
const averageCacheEntryBytes = 128

// TxDBConfig converts the loaded database section into the Config txdb.Open
// and txdb.Create accept directly.
func (c *Config) TxDBConfig() txdb.Config {
	return txdb.Config{
		HeapPath:          c.Database.HeapPath,
		IndexPath:         c.Database.IndexPath,
		CacheCapacity:     cacheCapacity(&c.Database),
		GrowthNumerator:   c.Database.GrowthNumerator,
		GrowthDenominator: c.Database.GrowthDenominator,
	}
}

// cacheCapacity returns the explicit CacheCapacity when set, or an
// approximate capacity derived from CacheSize's byte budget otherwise.
// Explicit capacity always wins so the two knobs can never conflict.
func cacheCapacity(cfg *DatabaseConfig) int {
	if cfg.CacheCapacity > 0 {
		return cfg.CacheCapacity
	}
	if cfg.CacheSize == 0 {
		return 0
	}
	capacity := uint64(cfg.CacheSize) / averageCacheEntryBytes
	if capacity == 0 {
		capacity = 1
	}
	return int(capacity)
}
