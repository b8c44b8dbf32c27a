package frame

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	f := Frame{Counter: 100, Nonce: 0x12345678, Payload: []byte("telemetry")}

	b, err := Encode(f)
	require.NoError(t, err)
	require.Len(t, b, MinSize+len(f.Payload))

	got, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, f.Counter, got.Counter)
	assert.Equal(t, f.Nonce, got.Nonce)
	assert.Equal(t, f.Payload, got.Payload)
}

func TestDecode_EmptyPayload(t *testing.T) {
	b, err := Encode(Frame{Counter: 1, Nonce: 2})
	require.NoError(t, err)
	require.Len(t, b, MinSize)

	got, err := Decode(b)
	require.NoError(t, err)
	assert.Empty(t, got.Payload)
}

func TestDecode_BadMagic(t *testing.T) {
	b, err := Encode(Frame{Counter: 1, Nonce: 2})
	require.NoError(t, err)
	binary.BigEndian.PutUint32(b[0:4], 0xDEADBEEF)

	_, err = Decode(b)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestDecode_Truncated(t *testing.T) {
	b, err := Encode(Frame{Counter: 1, Nonce: 2, Payload: []byte("abc")})
	require.NoError(t, err)

	_, err = Decode(b[:MinSize-1])
	assert.ErrorIs(t, err, ErrTruncated)

	// Header intact but payload cut short.
	_, err = Decode(b[:len(b)-2])
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestDecode_ChecksumMismatch(t *testing.T) {
	b, err := Encode(Frame{Counter: 1, Nonce: 2, Payload: []byte("abc")})
	require.NoError(t, err)

	// Flip one payload bit; the trailer no longer matches.
	b[headerSize] ^= 0x01
	_, err = Decode(b)
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestDecode_RejectsHostileLength(t *testing.T) {
	b, err := Encode(Frame{Counter: 1, Nonce: 2})
	require.NoError(t, err)
	binary.BigEndian.PutUint32(b[12:16], MaxPayload+1)

	_, err = Decode(b)
	assert.ErrorIs(t, err, ErrPayloadSize)
}

func TestDecode_IgnoresTrailingBytes(t *testing.T) {
	b, err := Encode(Frame{Counter: 9, Nonce: 0xAB, Payload: []byte("x")})
	require.NoError(t, err)

	// Datagram padding after the frame must not break the checksum.
	padded := append(b, 0x00, 0x00, 0x00)
	got, err := Decode(padded)
	require.NoError(t, err)
	assert.Equal(t, uint32(9), got.Counter)
}

type fixedNonces struct{ v uint32 }

func (f *fixedNonces) IssueNonce() uint32 {
	f.v++
	return f.v
}

func TestStamper_ProgressiveCountersFreshNonces(t *testing.T) {
	s := NewStamper(41, &fixedNonces{})

	first, err := s.Stamp([]byte("a"))
	require.NoError(t, err)
	second, err := s.Stamp([]byte("b"))
	require.NoError(t, err)

	f1, err := Decode(first)
	require.NoError(t, err)
	f2, err := Decode(second)
	require.NoError(t, err)

	assert.Equal(t, uint32(42), f1.Counter)
	assert.Equal(t, uint32(43), f2.Counter)
	assert.NotEqual(t, f1.Nonce, f2.Nonce)
	assert.Equal(t, uint32(43), s.Counter())
}
