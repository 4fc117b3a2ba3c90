package txdb

import (
	"context"

	"github.com/vladg14/libbitcoin-database/pkg/txrecord"
)

// PrevoutMetadata is what GetOutput fills in on a successful resolution.
type PrevoutMetadata struct {
	Confirmed      bool
	Coinbase       bool
	Height         uint32
	MedianTimePast uint32
	Spent          bool
	Value          uint64
	Script         []byte
}

// GetOutput resolves a single output for prevout validation: the hot path
// every input's spend check runs through. forkHeight == txrecord.MaxForkHeight
// signals mempool query mode, in which a linked transaction's outputs are
// returned whatever its state, with Confirmed set only for a confirmed
// record. Outside mempool mode, an indexed record counts as confirmed and a
// confirmed record counts only when its height is at most forkHeight.
//
// Returns (_, false, nil) — never an error — for every case the format
// treats as "not a usable prevout": a null point, a genesis coinbase
// output, an unlinked hash, or an output whose confirmation state does not
// satisfy forkHeight.
func (db *Database) GetOutput(ctx context.Context, point txrecord.OutputPoint, forkHeight uint32) (PrevoutMetadata, bool, error) {
	if point.IsNull() {
		return PrevoutMetadata{}, false, nil
	}

	if db.cache != nil {
		if entry, ok := db.cache.Populate(point, forkHeight); ok {
			if db.metrics.IsEnabled() {
				db.metrics.ObservePrevout(true)
			}
			return PrevoutMetadata{
				Confirmed:      true,
				Coinbase:       entry.Coinbase,
				Height:         entry.Height,
				MedianTimePast: entry.MedianTimePast,
				Spent:          false,
				Value:          entry.Value,
				Script:         entry.Script,
			}, true, nil
		}
	}

	rec, ok, err := db.store.Find(ctx, point.Hash)
	if err != nil {
		return PrevoutMetadata{}, false, err
	}
	if !ok {
		if db.metrics.IsEnabled() {
			db.metrics.ObservePrevout(false)
		}
		return PrevoutMetadata{}, false, nil
	}
	defer rec.Release()

	header, err := db.store.ReadHeader(rec)
	if err != nil {
		return PrevoutMetadata{}, false, err
	}

	// Consensus-required: the genesis coinbase output is unspendable
	// because it was historically omitted from the UTXO set.
	if header.HeightOrForks == 0 {
		return PrevoutMetadata{}, false, nil
	}

	forPool := forkHeight == txrecord.MaxForkHeight
	relevant := header.HeightOrForks <= forkHeight
	confirmed := (header.State == txrecord.StateIndexed && !forPool) ||
		(header.State == txrecord.StateConfirmed && relevant)

	if !forPool && !confirmed {
		if db.metrics.IsEnabled() {
			db.metrics.ObservePrevout(false)
		}
		return PrevoutMetadata{}, false, nil
	}

	value, script, spenderHeight, err := db.store.ReadOutput(rec, uint64(point.Index))
	if err != nil {
		// An out-of-range output index is a layout mismatch, not an
		// absence the caller should treat as a system error.
		if db.metrics.IsEnabled() {
			db.metrics.ObservePrevout(false)
		}
		return PrevoutMetadata{}, false, nil
	}

	spent := confirmed && spenderHeight != txrecord.NotSpent && spenderHeight <= forkHeight

	if db.metrics.IsEnabled() {
		db.metrics.ObservePrevout(true)
	}
	return PrevoutMetadata{
		Confirmed:      confirmed,
		Coinbase:       header.Position == 0,
		Height:         header.HeightOrForks,
		MedianTimePast: header.MedianTimePast,
		Spent:          spent,
		Value:          value,
		Script:         script,
	}, true, nil
}
