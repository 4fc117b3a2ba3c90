// Package txrecord defines the on-disk byte layout of a single transaction
// record and the field-level accessors needed to mutate its small header
// and per-output sub-header in place without rewriting the surrounding
// payload.
//
// A record is little-endian and tightly packed, with no alignment padding:
//
//	offset  size   field              mutability
//	0       4      height_or_forks    atomic-header
//	4       2      position           atomic-header (0xFFFF = unconfirmed)
//	6       1      state              atomic-header
//	7       4      median_time_past   atomic-header
//	11      var    output_count       immutable after allocation
//	11+..   var    outputs[]          see Output
//	..      var    input_count        immutable
//	..      var    inputs[]           immutable
//	..      var    locktime           immutable
//	..      var    version            immutable
//
// Each output is index_spend(1B) + spender_height(4B) + value(8B) +
// varint-prefixed script. Each input is hash(32B) + index(2B) +
// varint-prefixed script + sequence(4B).
//
// Everything outside the 11-byte atomic-header and the 5-byte per-output
// atomic sub-header (index_spend + spender_height) is immutable once
// allocated: txrecord only ever overwrites those bytes in place, and only
// ever appends new records, never relocates or resizes one.
package txrecord

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/multiformats/go-varint"
)

// Field widths, per §3/§6 of the format.
const (
	HeightSize         = 4
	PositionSize       = 2
	StateSize          = 1
	MedianTimePastSize = 4
	MetadataSize       = HeightSize + PositionSize + StateSize + MedianTimePastSize // 11

	IndexSpendSize    = 1
	SpenderHeightSize = 4
	ValueSize         = 8
	SpendSize         = IndexSpendSize + SpenderHeightSize + ValueSize // 13

	InputHashSize  = 32
	InputIndexSize = 2
	SequenceSize   = 4
)

// Sentinel constants.
const (
	UnconfirmedPosition uint16 = 0xFFFF
	NotSpent            uint32 = 0xFFFFFFFF

	// UnverifiedForks signals, after unconfirm, that a transaction was
	// verified under a chain state that is no longer known. It must differ
	// from 0, from NotSpent, and from any fork-flags bitmask a live chain
	// could produce; 0xFFFFFFFE satisfies all three without colliding with
	// NotSpent's reservation of the all-ones pattern.
	UnverifiedForks uint32 = 0xFFFFFFFE

	// MaxForkHeight signals mempool query mode to prevout resolution.
	MaxForkHeight uint32 = math.MaxUint32
)

// State is the transaction's lifecycle stage, stored as a single byte.
type State uint8

const (
	StateInvalid State = iota
	StateStored
	StatePooled
	StateIndexed
	StateConfirmed
)

func (s State) String() string {
	switch s {
	case StateInvalid:
		return "invalid"
	case StateStored:
		return "stored"
	case StatePooled:
		return "pooled"
	case StateIndexed:
		return "indexed"
	case StateConfirmed:
		return "confirmed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Header is the 11-byte atomic-header prefix shared by every record.
type Header struct {
	HeightOrForks  uint32
	Position       uint16
	State          State
	MedianTimePast uint32
}

// Output is a transaction output. IndexSpend and SpenderHeight form the
// 5-byte atomic sub-header mutated by Spend/Unspend; Value and Script are
// immutable once the record is allocated.
type Output struct {
	IndexSpend    uint8
	SpenderHeight uint32
	Value         uint64
	Script        []byte
}

// Input is a transaction input. Entirely immutable once the record is
// allocated.
type Input struct {
	PreviousHash  [32]byte
	PreviousIndex uint16
	Script        []byte
	Sequence      uint32
}

// IsNull reports whether this input is the coinbase placeholder: a
// zero-valued previous hash with the unconfirmed-position sentinel as its
// index, matching the output side's unconfirmed sentinel rather than a
// dedicated all-ones index.
func (in Input) IsNull() bool {
	return in.PreviousHash == [32]byte{} && in.PreviousIndex == UnconfirmedPosition
}

// OutputPoint identifies a single output by the hash of its owning
// transaction and its index within that transaction's output list. Unlike
// Input.PreviousIndex, which is wire-width-limited to 2 bytes, an
// OutputPoint's Index is a full uint32: it is how upward callers (not the
// wire format) address an output, and callers may run against records with
// more outputs than a 16-bit index could reach.
type OutputPoint struct {
	Hash  [32]byte
	Index uint32
}

// IsNull reports whether this is the coinbase placeholder point: the
// genesis-style "no previous output" marker, encoded as an all-ones index
// on a zero hash.
func (p OutputPoint) IsNull() bool {
	return p.Hash == [32]byte{} && p.Index == math.MaxUint32
}

// Transaction is the full decoded content of a record.
type Transaction struct {
	Header
	Outputs  []Output
	Inputs   []Input
	Locktime uint64
	Version  uint64
}

func outputEncodedSize(o Output) int {
	return IndexSpendSize + SpenderHeightSize + ValueSize + varint.UvarintSize(uint64(len(o.Script))) + len(o.Script)
}

func inputEncodedSize(in Input) int {
	return InputHashSize + InputIndexSize + varint.UvarintSize(uint64(len(in.Script))) + len(in.Script) + SequenceSize
}

// EncodedSize returns the exact byte length tx will occupy, computed a
// priori so RecordStore can allocate the record in one shot.
func EncodedSize(tx *Transaction) int {
	size := MetadataSize
	size += varint.UvarintSize(uint64(len(tx.Outputs)))
	for _, o := range tx.Outputs {
		size += outputEncodedSize(o)
	}
	size += varint.UvarintSize(uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		size += inputEncodedSize(in)
	}
	size += varint.UvarintSize(tx.Locktime)
	size += varint.UvarintSize(tx.Version)
	return size
}

// Encode serializes tx into a freshly allocated buffer of exactly
// EncodedSize(tx) bytes, in allocation order: header, outputs, inputs,
// locktime, version.
func Encode(tx *Transaction) []byte {
	buf := make([]byte, EncodedSize(tx))
	n := putHeader(buf, tx.Header)

	n += varint.PutUvarint(buf[n:], uint64(len(tx.Outputs)))
	for _, o := range tx.Outputs {
		n += putOutput(buf[n:], o)
	}

	n += varint.PutUvarint(buf[n:], uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		n += putInput(buf[n:], in)
	}

	n += varint.PutUvarint(buf[n:], tx.Locktime)
	n += varint.PutUvarint(buf[n:], tx.Version)

	checkInvariant(n == len(buf), "encode wrote fewer bytes than EncodedSize predicted")
	return buf
}

func putHeader(buf []byte, h Header) int {
	binary.LittleEndian.PutUint32(buf[0:4], h.HeightOrForks)
	binary.LittleEndian.PutUint16(buf[4:6], h.Position)
	buf[6] = byte(h.State)
	binary.LittleEndian.PutUint32(buf[7:11], h.MedianTimePast)
	return MetadataSize
}

func putOutput(buf []byte, o Output) int {
	buf[0] = o.IndexSpend
	binary.LittleEndian.PutUint32(buf[1:5], o.SpenderHeight)
	binary.LittleEndian.PutUint64(buf[5:13], o.Value)
	n := SpendSize
	n += varint.PutUvarint(buf[n:], uint64(len(o.Script)))
	n += copy(buf[n:], o.Script)
	return n
}

func putInput(buf []byte, in Input) int {
	n := copy(buf[0:InputHashSize], in.PreviousHash[:])
	binary.LittleEndian.PutUint16(buf[n:n+InputIndexSize], in.PreviousIndex)
	n += InputIndexSize
	n += varint.PutUvarint(buf[n:], uint64(len(in.Script)))
	n += copy(buf[n:], in.Script)
	binary.LittleEndian.PutUint32(buf[n:n+SequenceSize], in.Sequence)
	n += SequenceSize
	return n
}

// Decode parses the full contents of a record out of buf, which must begin
// at the record's link (byte offset zero of the record, not of the file).
func Decode(buf []byte) (*Transaction, error) {
	if len(buf) < MetadataSize {
		return nil, fmt.Errorf("%w: record shorter than metadata size", ErrLayout)
	}

	tx := &Transaction{Header: readHeader(buf)}
	n := MetadataSize

	outputCount, adv, err := varint.FromUvarint(buf[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: output_count: %v", ErrLayout, err)
	}
	n += adv

	tx.Outputs = make([]Output, outputCount)
	for i := range tx.Outputs {
		o, adv, err := readOutput(buf[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: output[%d]: %v", ErrLayout, i, err)
		}
		tx.Outputs[i] = o
		n += adv
	}

	inputCount, adv, err := varint.FromUvarint(buf[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: input_count: %v", ErrLayout, err)
	}
	n += adv

	tx.Inputs = make([]Input, inputCount)
	for i := range tx.Inputs {
		in, adv, err := readInput(buf[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: input[%d]: %v", ErrLayout, i, err)
		}
		tx.Inputs[i] = in
		n += adv
	}

	locktime, adv, err := varint.FromUvarint(buf[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: locktime: %v", ErrLayout, err)
	}
	tx.Locktime = locktime
	n += adv

	version, _, err := varint.FromUvarint(buf[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: version: %v", ErrLayout, err)
	}
	tx.Version = version

	return tx, nil
}

func readHeader(buf []byte) Header {
	return Header{
		HeightOrForks:  binary.LittleEndian.Uint32(buf[0:4]),
		Position:       binary.LittleEndian.Uint16(buf[4:6]),
		State:          State(buf[6]),
		MedianTimePast: binary.LittleEndian.Uint32(buf[7:11]),
	}
}

func readOutput(buf []byte) (Output, int, error) {
	if len(buf) < SpendSize {
		return Output{}, 0, fmt.Errorf("short output header")
	}
	o := Output{
		IndexSpend:    buf[0],
		SpenderHeight: binary.LittleEndian.Uint32(buf[1:5]),
		Value:         binary.LittleEndian.Uint64(buf[5:13]),
	}
	n := SpendSize
	scriptLen, adv, err := varint.FromUvarint(buf[n:])
	if err != nil {
		return Output{}, 0, err
	}
	n += adv
	if uint64(len(buf)-n) < scriptLen {
		return Output{}, 0, fmt.Errorf("short output script")
	}
	o.Script = append([]byte(nil), buf[n:n+int(scriptLen)]...)
	n += int(scriptLen)
	return o, n, nil
}

func readInput(buf []byte) (Input, int, error) {
	if len(buf) < InputHashSize+InputIndexSize {
		return Input{}, 0, fmt.Errorf("short input header")
	}
	var in Input
	copy(in.PreviousHash[:], buf[0:InputHashSize])
	n := InputHashSize
	in.PreviousIndex = binary.LittleEndian.Uint16(buf[n : n+InputIndexSize])
	n += InputIndexSize

	scriptLen, adv, err := varint.FromUvarint(buf[n:])
	if err != nil {
		return Input{}, 0, err
	}
	n += adv
	if uint64(len(buf)-n) < scriptLen {
		return Input{}, 0, fmt.Errorf("short input script")
	}
	in.Script = append([]byte(nil), buf[n:n+int(scriptLen)]...)
	n += int(scriptLen)

	if len(buf)-n < SequenceSize {
		return Input{}, 0, fmt.Errorf("short input sequence")
	}
	in.Sequence = binary.LittleEndian.Uint32(buf[n : n+SequenceSize])
	n += SequenceSize
	return in, n, nil
}

// ReadHeader decodes just the 11-byte atomic-header prefix of a record.
func ReadHeader(buf []byte) (Header, error) {
	if len(buf) < MetadataSize {
		return Header{}, fmt.Errorf("%w: record shorter than metadata size", ErrLayout)
	}
	return readHeader(buf), nil
}

// WriteHeader overwrites the 11-byte atomic-header prefix of a record in
// place. Callers are responsible for holding the metadata mutex.
func WriteHeader(buf []byte, h Header) error {
	if len(buf) < MetadataSize {
		return fmt.Errorf("%w: record shorter than metadata size", ErrLayout)
	}
	putHeader(buf, h)
	return nil
}

// OutputCount decodes just the output_count varint and returns it along
// with the byte offset of outputs[0] within buf.
func OutputCount(buf []byte) (count uint64, outputsOffset int, err error) {
	if len(buf) < MetadataSize {
		return 0, 0, fmt.Errorf("%w: record shorter than metadata size", ErrLayout)
	}
	count, adv, err := varint.FromUvarint(buf[MetadataSize:])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: output_count: %v", ErrLayout, err)
	}
	return count, MetadataSize + adv, nil
}

// LocateOutput walks the variable-width output list forward to the given
// index without decoding unrelated outputs, and returns the byte offset of
// that output's spender_height field plus the output's immutable value and
// script. Returns ErrLayout if outputIndex is out of range.
func LocateOutput(buf []byte, outputIndex uint64) (spenderHeightOffset int, value uint64, script []byte, err error) {
	count, offset, err := OutputCount(buf)
	if err != nil {
		return 0, 0, nil, err
	}
	if outputIndex >= count {
		return 0, 0, nil, fmt.Errorf("%w: output index %d out of range (count %d)", ErrLayout, outputIndex, count)
	}

	for i := uint64(0); i < outputIndex; i++ {
		_, adv, err := readOutput(buf[offset:])
		if err != nil {
			return 0, 0, nil, fmt.Errorf("%w: output[%d]: %v", ErrLayout, i, err)
		}
		offset += adv
	}

	o, _, err := readOutput(buf[offset:])
	if err != nil {
		return 0, 0, nil, fmt.Errorf("%w: output[%d]: %v", ErrLayout, outputIndex, err)
	}
	return offset + IndexSpendSize, o.Value, o.Script, nil
}

// ReadSpenderHeight reads the 4-byte spender_height field located at
// offset (as returned by LocateOutput).
func ReadSpenderHeight(buf []byte, offset int) uint32 {
	return binary.LittleEndian.Uint32(buf[offset : offset+SpenderHeightSize])
}

// WriteSpenderHeight overwrites the 4-byte spender_height field located at
// offset (as returned by LocateOutput). Callers are responsible for
// holding the metadata mutex and for having already enforced the state and
// output-index preconditions described in §4.3.
func WriteSpenderHeight(buf []byte, offset int, spenderHeight uint32) {
	binary.LittleEndian.PutUint32(buf[offset:offset+SpenderHeightSize], spenderHeight)
}
