package recordstore

import (
	"encoding/binary"
	"fmt"
)

// The store keeps a small self-describing header at the start of the heap
// file. It exists so Open can recover the authoritative next-allocation
// offset without trusting the file's raw length alone (FileMap already
// truncates to the logical size on a clean Stop, but the header gives the
// store its own crash-consistency checkpoint independent of that).
//
//	offset  size  field
//	0       4     magic ("TXRS")
//	4       2     version
//	6       2     reserved
//	8       8     next_offset (first unallocated byte)
const (
	headerMagic      = "TXRS"
	headerVersion    = uint16(1)
	headerSize       = 16
	headerNextOffset = 8
)

type storeHeader struct {
	NextOffset uint64
}

func writeStoreHeader(buf []byte, h storeHeader) {
	copy(buf[0:4], headerMagic)
	binary.LittleEndian.PutUint16(buf[4:6], headerVersion)
	binary.LittleEndian.PutUint16(buf[6:8], 0)
	binary.LittleEndian.PutUint64(buf[headerNextOffset:headerNextOffset+8], h.NextOffset)
}

func readStoreHeader(buf []byte) (storeHeader, error) {
	if len(buf) < headerSize {
		return storeHeader{}, fmt.Errorf("%w: heap file shorter than store header", ErrIO)
	}
	if string(buf[0:4]) != headerMagic {
		return storeHeader{}, fmt.Errorf("%w: bad magic in heap file header", ErrIO)
	}
	version := binary.LittleEndian.Uint16(buf[4:6])
	if version != headerVersion {
		return storeHeader{}, fmt.Errorf("%w: unsupported heap file version %d", ErrIO, version)
	}
	return storeHeader{
		NextOffset: binary.LittleEndian.Uint64(buf[headerNextOffset : headerNextOffset+8]),
	}, nil
}
