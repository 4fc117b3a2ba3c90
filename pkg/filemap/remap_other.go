//go:build !linux

package filemap

import "golang.org/x/sys/unix"

// remap grows an existing mapping to newSize by unmapping it and mapping the
// file again from offset 0. mremap(2) is Linux-only, so every
// other unix target pays the unmap/mmap round trip the growth path already
// pays for truncation.
func remap(fd int, old []byte, newSize int) ([]byte, error) {
	if err := unix.Munmap(old); err != nil {
		return nil, err
	}
	newData, err := unix.Mmap(fd, 0, newSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	return newData, nil
}
