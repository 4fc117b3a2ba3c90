package outputcache

func invariantViolation(msg string) {
	panic("outputcache: invariant violation: " + msg)
}

func checkInvariant(cond bool, msg string) {
	if !cond {
		invariantViolation(msg)
	}
}
