package txdb

import (
	"context"
	"fmt"

	"github.com/vladg14/libbitcoin-database/internal/logger"
	"github.com/vladg14/libbitcoin-database/pkg/txrecord"
)

// Confirm marks the transaction at link as confirmed: every non-coinbase
// input's previous output is marked spent at height, then this
// transaction's own header moves to (height, median_time_past, position,
// state=confirmed). Fails on the first input whose previous output cannot
// be resolved or spent.
//
// The record at link is decoded and released before any input is spent,
// and re-acquired only to write the final header: holding a read borrow on
// the heap mapping while resolving further hashes through the same heap
// risks deadlocking against a concurrent grower queued behind it, since
// Go's RWMutex does not guarantee read-preference once a writer is
// waiting.
func (db *Database) Confirm(ctx context.Context, link uint64, height uint32, medianTimePast uint32, position uint16) error {
	rec, err := db.store.FindByLink(ctx, link)
	if err != nil {
		return err
	}
	tx, err := txrecord.Decode(rec.Bytes())
	rec.Release()
	if err != nil {
		return err
	}

	for _, in := range tx.Inputs {
		if in.IsNull() {
			continue
		}
		if err := db.spendPrevout(ctx, in, height); err != nil {
			return err
		}
	}

	rec, err = db.store.FindByLink(ctx, link)
	if err != nil {
		return err
	}
	defer rec.Release()

	if err := db.store.WriteHeader(rec, txrecord.Header{
		HeightOrForks:  height,
		Position:       position,
		State:          txrecord.StateConfirmed,
		MedianTimePast: medianTimePast,
	}); err != nil {
		return err
	}

	if db.metrics.IsEnabled() {
		db.metrics.ObserveConfirm()
	}
	logger.DebugCtx(ctx, "txdb confirmed transaction", logger.Link(link), logger.Height(height), logger.Position(position))
	return nil
}

// Unconfirm reverses Confirm: every non-coinbase input's previous output is
// restored to NotSpent, then this transaction's header moves to
// (height=UNVERIFIED_FORKS, median_time_past=0, position=UNCONFIRMED_POSITION,
// state=pooled).
//
// A transaction stored directly as confirmed has its own outputs cached by
// Store (see database.go); demoting it here without evicting those entries
// would leave OutputCache.Populate reporting confirmed=true for a now-
// pooled transaction, so Unconfirm also evicts every one of this tx's own
// output points, not just its inputs' prevouts.
func (db *Database) Unconfirm(ctx context.Context, link uint64) error {
	rec, err := db.store.FindByLink(ctx, link)
	if err != nil {
		return err
	}
	tx, err := txrecord.Decode(rec.Bytes())
	rec.Release()
	if err != nil {
		return err
	}

	if db.cache != nil {
		if hash, ok := db.forgetCachedOutputs(link); ok {
			for i := range tx.Outputs {
				db.cache.Remove(txrecord.OutputPoint{Hash: hash, Index: uint32(i)})
			}
		}
	}

	for _, in := range tx.Inputs {
		if in.IsNull() {
			continue
		}
		if err := db.unspendPrevout(ctx, in); err != nil {
			return err
		}
	}

	rec, err = db.store.FindByLink(ctx, link)
	if err != nil {
		return err
	}
	defer rec.Release()

	if err := db.store.WriteHeader(rec, txrecord.Header{
		HeightOrForks:  txrecord.UnverifiedForks,
		Position:       txrecord.UnconfirmedPosition,
		State:          txrecord.StatePooled,
		MedianTimePast: 0,
	}); err != nil {
		return err
	}

	if db.metrics.IsEnabled() {
		db.metrics.ObserveUnconfirm()
	}
	logger.DebugCtx(ctx, "txdb unconfirmed transaction", logger.Link(link))
	return nil
}

func (db *Database) spendPrevout(ctx context.Context, in txrecord.Input, spenderHeight uint32) error {
	prevRec, ok, err := db.store.Find(ctx, in.PreviousHash)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: previous output hash not linked", ErrNotFound)
	}
	prevLink := prevRec.Link()
	prevRec.Release()

	if err := db.store.Spend(ctx, prevLink, uint64(in.PreviousIndex), spenderHeight); err != nil {
		return err
	}

	if db.cache != nil {
		db.cache.Remove(txrecord.OutputPoint{Hash: in.PreviousHash, Index: uint32(in.PreviousIndex)})
	}
	return nil
}

func (db *Database) unspendPrevout(ctx context.Context, in txrecord.Input) error {
	prevRec, ok, err := db.store.Find(ctx, in.PreviousHash)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: previous output hash not linked", ErrNotFound)
	}
	prevLink := prevRec.Link()
	prevRec.Release()

	return db.store.Unspend(ctx, prevLink, uint64(in.PreviousIndex))
}
