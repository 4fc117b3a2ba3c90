package recordindex

import "errors"

var ErrIO = errors.New("recordindex: io error")

func invariantViolation(msg string) {
	panic("recordindex: invariant violation: " + msg)
}

func checkInvariant(cond bool, msg string) {
	if !cond {
		invariantViolation(msg)
	}
}
