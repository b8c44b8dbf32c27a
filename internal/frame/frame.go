// Package frame implements the wire framing for replay-protected messages.
//
// A frame carries the freshness fields the validation engine consumes plus
// an opaque payload the engine never inspects:
//
//	magic(4) | counter(4) | nonce(4) | payload_len(4) | payload | crc32(4)
//
// All fields are big-endian. The CRC-32-IEEE trailer covers every byte
// preceding it and guards against corruption, not tampering - integrity
// against an adversary is the signature layer's job, outside this package.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

// Magic identifies a replaygate frame.
const Magic uint32 = 0x52504754 // "RPGT"

const (
	headerSize  = 16
	trailerSize = 4

	// MinSize is an empty-payload frame.
	MinSize = headerSize + trailerSize

	// MaxPayload bounds the payload so a hostile length field cannot force
	// a huge allocation before the checksum is verified.
	MaxPayload = 1 << 20
)

var (
	ErrBadMagic    = errors.New("frame: bad magic")
	ErrTruncated   = errors.New("frame: truncated")
	ErrChecksum    = errors.New("frame: checksum mismatch")
	ErrPayloadSize = errors.New("frame: payload too large")
)

// Frame is one replay-protected message.
type Frame struct {
	Counter uint32
	Nonce   uint32
	Payload []byte
}

// Encode serializes the frame, stamping the CRC trailer.
func Encode(f Frame) ([]byte, error) {
	if len(f.Payload) > MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadSize, len(f.Payload))
	}

	buf := make([]byte, headerSize+len(f.Payload)+trailerSize)
	binary.BigEndian.PutUint32(buf[0:4], Magic)
	binary.BigEndian.PutUint32(buf[4:8], f.Counter)
	binary.BigEndian.PutUint32(buf[8:12], f.Nonce)
	binary.BigEndian.PutUint32(buf[12:16], uint32(len(f.Payload)))
	copy(buf[headerSize:], f.Payload)

	crc := crc32.ChecksumIEEE(buf[:len(buf)-trailerSize])
	binary.BigEndian.PutUint32(buf[len(buf)-trailerSize:], crc)
	return buf, nil
}

// Decode parses and verifies a frame. The returned payload is a copy; the
// caller may retain it after the input buffer is reused.
func Decode(b []byte) (Frame, error) {
	if len(b) < MinSize {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrTruncated, len(b))
	}

	if binary.BigEndian.Uint32(b[0:4]) != Magic {
		return Frame{}, ErrBadMagic
	}

	payloadLen := binary.BigEndian.Uint32(b[12:16])
	if payloadLen > MaxPayload {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrPayloadSize, payloadLen)
	}

	total := headerSize + int(payloadLen) + trailerSize
	if len(b) < total {
		return Frame{}, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, total, len(b))
	}
	b = b[:total]

	want := binary.BigEndian.Uint32(b[len(b)-trailerSize:])
	got := crc32.ChecksumIEEE(b[:len(b)-trailerSize])
	if got != want {
		return Frame{}, fmt.Errorf("%w: computed %08x, frame carries %08x", ErrChecksum, got, want)
	}

	payload := make([]byte, payloadLen)
	copy(payload, b[headerSize:headerSize+int(payloadLen)])

	return Frame{
		Counter: binary.BigEndian.Uint32(b[4:8]),
		Nonce:   binary.BigEndian.Uint32(b[8:12]),
		Payload: payload,
	}, nil
}

// Stamper attaches freshness fields to outbound payloads.
//
// The counter is a local send sequence, independent of the engine's
// inbound counter; the nonce comes from the engine's outbound generator.
type Stamper struct {
	counter uint32
	nonces  NonceSource
}

// NonceSource produces outbound nonces, satisfied by *engine.Engine
// via IssueNonce.
type NonceSource interface {
	IssueNonce() uint32
}

// NewStamper creates a stamper starting its send counter at last+1.
func NewStamper(last uint32, nonces NonceSource) *Stamper {
	return &Stamper{counter: last, nonces: nonces}
}

// Stamp wraps payload in a frame carrying the next counter and a fresh
// nonce, returning the encoded bytes.
func (s *Stamper) Stamp(payload []byte) ([]byte, error) {
	s.counter++
	return Encode(Frame{
		Counter: s.counter,
		Nonce:   s.nonces.IssueNonce(),
		Payload: payload,
	})
}

// Counter returns the last stamped send counter.
func (s *Stamper) Counter() uint32 {
	return s.counter
}
