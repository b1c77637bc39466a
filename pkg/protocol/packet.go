package protocol

import (
	"io"
)

// Packet represents a complete FDP packet
type Packet struct {
	Header  *Header
	Payload []byte
}

// NewPacket creates a packet with the current version, normal priority
// and the current time. Sequence is left at zero for the session layer
// to assign.
func NewPacket(sessionID SessionID, intent uint8, payload []byte) *Packet {
	return &Packet{
		Header: &Header{
			Version:       ProtocolVersion,
			SessionID:     sessionID,
			Intent:        intent,
			Priority:      PriorityNormal,
			Flags:         0,
			Sequence:      0,
			PayloadLength: uint32(len(payload)),
			Timestamp:     NowUnixMilli(),
		},
		Payload: payload,
	}
}

// WireSize returns the total serialized size of the packet
func (p *Packet) WireSize() int {
	return HeaderSize + len(p.Payload) + HashSize
}

// Codec serializes and validates packets. The zero value is unusable;
// use NewCodec or the package-level Encode/Decode which run on
// DefaultCodec. A Codec is stateless and safe for concurrent use.
type Codec struct {
	// MaxPayloadSize caps the payload bytes a single packet may carry.
	// Decode rejects larger claims before hashing or allocating.
	MaxPayloadSize uint32
}

// DefaultCodec uses the 10 MiB payload bound.
var DefaultCodec = NewCodec(DefaultMaxPayloadSize)

// NewCodec creates a codec with the given payload bound
func NewCodec(maxPayloadSize uint32) *Codec {
	return &Codec{MaxPayloadSize: maxPayloadSize}
}

// Encode serializes a packet to its wire form: header at offsets 0-35,
// payload at 36, SHA-256 trailer over everything before it appended
// last. The result round-trips through Decode exactly.
func (c *Codec) Encode(p *Packet) ([]byte, error) {
	if p.Header.PayloadLength != uint32(len(p.Payload)) {
		return nil, ErrPayloadLengthMismatch
	}

	if p.Header.PayloadLength > c.MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}

	buf := make([]byte, p.WireSize())
	copy(buf[0:HeaderSize], p.Header.Encode())
	copy(buf[HeaderSize:], p.Payload)

	digest := ComputeDigest(buf[:HeaderSize+len(p.Payload)])
	copy(buf[HeaderSize+len(p.Payload):], digest[:])

	return buf, nil
}

// Decode parses and validates a wire buffer. The checks run cheapest
// first; length and version are gated before any hashing so truncated,
// padded or future-version buffers never cost a digest computation.
// On any failure no Packet is materialized, only the typed error.
func (c *Codec) Decode(buf []byte) (*Packet, error) {
	if len(buf) < MinPacketSize {
		return nil, ErrTooShort
	}

	header := &Header{}
	if err := header.Decode(buf); err != nil {
		return nil, err
	}

	expected := HeaderSize + int(header.PayloadLength) + HashSize
	if expected != len(buf) {
		return nil, ErrLengthMismatch
	}

	if header.PayloadLength > c.MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}

	if err := header.Validate(); err != nil {
		return nil, err
	}

	if !VerifyDigest(buf) {
		return nil, ErrHashMismatch
	}

	payload := make([]byte, header.PayloadLength)
	copy(payload, buf[HeaderSize:HeaderSize+int(header.PayloadLength)])

	return &Packet{
		Header:  header,
		Payload: payload,
	}, nil
}

// Encode serializes a packet using DefaultCodec
func Encode(p *Packet) ([]byte, error) {
	return DefaultCodec.Encode(p)
}

// Decode parses and validates a wire buffer using DefaultCodec
func Decode(buf []byte) (*Packet, error) {
	return DefaultCodec.Decode(buf)
}

// ReadPacket reads one packet from an io.Reader. The header is read and
// gated first so a hostile length claim is rejected before the payload
// allocation it asks for.
func ReadPacket(r io.Reader, c *Codec) (*Packet, error) {
	if c == nil {
		c = DefaultCodec
	}

	head := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, err
	}

	header := &Header{}
	if err := header.Decode(head); err != nil {
		return nil, err
	}

	if header.PayloadLength > c.MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}

	if err := header.Validate(); err != nil {
		return nil, err
	}

	rest := make([]byte, int(header.PayloadLength)+HashSize)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, err
	}

	full := append(head, rest...)
	return c.Decode(full)
}

// WritePacket serializes a packet and writes it to an io.Writer
func WritePacket(w io.Writer, p *Packet, c *Codec) error {
	if c == nil {
		c = DefaultCodec
	}

	buf, err := c.Encode(p)
	if err != nil {
		return err
	}

	_, err = w.Write(buf)
	return err
}
