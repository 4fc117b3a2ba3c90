package recordstore

import "errors"

var (
	// ErrAlreadyExists is returned by Create when the backing file already
	// holds data.
	ErrAlreadyExists = errors.New("recordstore: already exists")

	// ErrNotFound marks a hash or link absent from the store. Per the
	// NotFound error kind, callers receive this rather than a bare false
	// only from the handful of APIs that cannot express absence as a
	// zero-value return; Find itself returns (nil, false, nil).
	ErrNotFound = errors.New("recordstore: not found")

	// ErrLayout marks a failure of this package's own spend/unspend
	// preconditions (state != confirmed, or the output's height exceeds the
	// spender's). Decode failures from pkg/txrecord are returned as that
	// package's own errors, not wrapped in ErrLayout.
	ErrLayout = errors.New("recordstore: layout error")

	// ErrIO wraps header read/write and open/close failures.
	ErrIO = errors.New("recordstore: io error")
)

func invariantViolation(msg string) {
	panic("recordstore: invariant violation: " + msg)
}

func checkInvariant(cond bool, msg string) {
	if !cond {
		invariantViolation(msg)
	}
}
