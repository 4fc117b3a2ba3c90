//go:build linux

package filemap

import "golang.org/x/sys/unix"

// remap grows an existing mapping to newSize in place using mremap(2) with
// MREMAP_MAYMOVE, which lets the kernel relocate the mapping if it cannot
// extend it at the current address. This avoids the unmap/mmap round trip
// the portable fallback needs, so a page fault racing the resize on another
// thread has a much smaller window in which to observe no mapping at all.
func remap(fd int, old []byte, newSize int) ([]byte, error) {
	newData, err := unix.Mremap(old, newSize, unix.MREMAP_MAYMOVE)
	if err != nil {
		return nil, err
	}
	return newData, nil
}
