package protocol

import (
	"encoding/binary"
)

// Header represents the fixed 36-byte packet header
type Header struct {
	Version       uint8     // Protocol version
	SessionID     SessionID // Logical conversation identifier
	Intent        uint8     // Receiver-action code (opaque here)
	Priority      uint8     // Scheduling hint (opaque here)
	Flags         FlagSet   // Feature flags
	Sequence      uint32    // Per-session sequence number
	PayloadLength uint32    // Byte length of the payload
	Timestamp     uint64    // Producer-assigned time (unix ms)
}

// NewHeader builds a header from raw field values. The session ID is
// taken as a slice so callers holding tokens from an upper layer fail
// loudly instead of silently truncating.
func NewHeader(version uint8, sessionID []byte, intent, priority uint8, flags FlagSet, sequence, payloadLength uint32, timestamp uint64) (*Header, error) {
	sid, err := SessionIDFromBytes(sessionID)
	if err != nil {
		return nil, err
	}

	return &Header{
		Version:       version,
		SessionID:     sid,
		Intent:        intent,
		Priority:      priority,
		Flags:         flags,
		Sequence:      sequence,
		PayloadLength: payloadLength,
		Timestamp:     timestamp,
	}, nil
}

// Encode encodes the header to its fixed 36-byte wire form
func (h *Header) Encode() []byte {
	buf := make([]byte, HeaderSize)

	buf[0] = h.Version
	copy(buf[1:17], h.SessionID[:])
	buf[17] = h.Intent
	buf[18] = h.Priority
	buf[19] = h.Flags.Raw()
	binary.BigEndian.PutUint32(buf[20:24], h.Sequence)
	binary.BigEndian.PutUint32(buf[24:28], h.PayloadLength)
	binary.BigEndian.PutUint64(buf[28:36], h.Timestamp)

	return buf
}

// Decode decodes the header from bytes. Pure: it touches only buf and h.
func (h *Header) Decode(buf []byte) error {
	if len(buf) < HeaderSize {
		return ErrMalformed
	}

	h.Version = buf[0]
	copy(h.SessionID[:], buf[1:17])
	h.Intent = buf[17]
	h.Priority = buf[18]
	h.Flags = FlagSet(buf[19])
	h.Sequence = binary.BigEndian.Uint32(buf[20:24])
	h.PayloadLength = binary.BigEndian.Uint32(buf[24:28])
	h.Timestamp = binary.BigEndian.Uint64(buf[28:36])

	return nil
}

// Validate checks the version gate
func (h *Header) Validate() error {
	if h.Version != ProtocolVersion {
		return ErrVersionMismatch
	}

	return nil
}
