package txrecord

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleCoinbase() *Transaction {
	return &Transaction{
		Header: Header{
			HeightOrForks:  0,
			Position:       0,
			State:          StateConfirmed,
			MedianTimePast: 0,
		},
		Outputs: []Output{
			{SpenderHeight: NotSpent, Value: 5000000000, Script: []byte{0x41, 0x04, 0xAC}},
		},
		Inputs: []Input{
			{PreviousHash: [32]byte{}, PreviousIndex: UnconfirmedPosition, Script: nil, Sequence: 0xFFFFFFFF},
		},
		Locktime: 0,
		Version:  1,
	}
}

func TestEncodeDecode_RoundTrips(t *testing.T) {
	tx := sampleCoinbase()
	buf := Encode(tx)
	require.Len(t, buf, EncodedSize(tx))

	got, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, tx.Header, got.Header)
	require.Equal(t, tx.Outputs, got.Outputs)
	require.Equal(t, tx.Inputs, got.Inputs)
	require.Equal(t, tx.Locktime, got.Locktime)
	require.Equal(t, tx.Version, got.Version)
}

func TestEncodeDecode_MultipleOutputsAndInputs(t *testing.T) {
	tx := &Transaction{
		Header: Header{HeightOrForks: 100, Position: 3, State: StateIndexed, MedianTimePast: 1234},
		Outputs: []Output{
			{SpenderHeight: NotSpent, Value: 1000, Script: []byte{0x01, 0x02}},
			{SpenderHeight: 55, Value: 2000, Script: nil},
			{SpenderHeight: NotSpent, Value: 3000, Script: []byte{0xAA, 0xBB, 0xCC, 0xDD}},
		},
		Inputs: []Input{
			{PreviousHash: [32]byte{1, 2, 3}, PreviousIndex: 0, Script: []byte{0x76, 0xA9}, Sequence: 1},
			{PreviousHash: [32]byte{4, 5, 6}, PreviousIndex: 1, Script: nil, Sequence: 2},
		},
		Locktime: 500000,
		Version:  2,
	}

	buf := Encode(tx)
	got, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, tx, got)
}

func TestReadHeader_MatchesDecodedHeader(t *testing.T) {
	tx := sampleCoinbase()
	buf := Encode(tx)

	h, err := ReadHeader(buf)
	require.NoError(t, err)
	require.Equal(t, tx.Header, h)
}

func TestWriteHeader_OverwritesInPlaceWithoutDisturbingPayload(t *testing.T) {
	tx := sampleCoinbase()
	buf := Encode(tx)

	newHeader := Header{HeightOrForks: 42, Position: 7, State: StatePooled, MedianTimePast: 999}
	require.NoError(t, WriteHeader(buf, newHeader))

	got, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, newHeader, got.Header)
	require.Equal(t, tx.Outputs, got.Outputs)
	require.Equal(t, tx.Inputs, got.Inputs)
}

func TestLocateOutput_FindsEachOutputInAMultiOutputRecord(t *testing.T) {
	tx := &Transaction{
		Header: Header{State: StateConfirmed},
		Outputs: []Output{
			{SpenderHeight: NotSpent, Value: 111, Script: []byte{0x01}},
			{SpenderHeight: NotSpent, Value: 222, Script: []byte{0x02, 0x03}},
			{SpenderHeight: NotSpent, Value: 333, Script: nil},
		},
	}
	buf := Encode(tx)

	for i, want := range tx.Outputs {
		offset, value, script, err := LocateOutput(buf, uint64(i))
		require.NoError(t, err)
		require.Equal(t, want.Value, value)
		require.Equal(t, want.Script, script)
		require.Equal(t, uint32(NotSpent), ReadSpenderHeight(buf, offset))
	}
}

func TestLocateOutput_OutOfRangeIsLayoutError(t *testing.T) {
	tx := sampleCoinbase()
	buf := Encode(tx)

	_, _, _, err := LocateOutput(buf, 5)
	require.ErrorIs(t, err, ErrLayout)
}

func TestSpendThenUnspend_RestoresNotSpent(t *testing.T) {
	tx := &Transaction{
		Header: Header{State: StateConfirmed},
		Outputs: []Output{
			{SpenderHeight: NotSpent, Value: 111, Script: []byte{0x01}},
			{SpenderHeight: NotSpent, Value: 222, Script: []byte{0x02, 0x03}},
		},
	}
	buf := Encode(tx)

	offset, _, _, err := LocateOutput(buf, 1)
	require.NoError(t, err)

	WriteSpenderHeight(buf, offset, 77)
	require.Equal(t, uint32(77), ReadSpenderHeight(buf, offset))

	WriteSpenderHeight(buf, offset, NotSpent)
	require.Equal(t, uint32(NotSpent), ReadSpenderHeight(buf, offset))

	// the untouched output's field must be unaffected
	offset0, _, _, err := LocateOutput(buf, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(NotSpent), ReadSpenderHeight(buf, offset0))
}

func TestInput_IsNull(t *testing.T) {
	null := Input{PreviousHash: [32]byte{}, PreviousIndex: UnconfirmedPosition}
	require.True(t, null.IsNull())

	notNull := Input{PreviousHash: [32]byte{1}, PreviousIndex: UnconfirmedPosition}
	require.False(t, notNull.IsNull())
}

func TestDecode_RejectsTruncatedRecord(t *testing.T) {
	_, err := Decode([]byte{0x00, 0x01, 0x02})
	require.ErrorIs(t, err, ErrLayout)
}
