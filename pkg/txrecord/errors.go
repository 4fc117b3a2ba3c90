package txrecord

import "errors"

// ErrLayout is returned for decode/locate failures: truncated records,
// an out-of-range output index, or a corrupt varint. Never raised for
// absence — a missing record is RecordStore's concern, not this package's.
var ErrLayout = errors.New("txrecord: layout error")

func invariantViolation(msg string) {
	panic("txrecord: invariant violation: " + msg)
}

func checkInvariant(cond bool, msg string) {
	if !cond {
		invariantViolation(msg)
	}
}
