package protocol

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// Protocol constants
const (
	// Protocol version
	ProtocolVersion uint8 = 1

	// Header size in bytes
	HeaderSize = 36

	// Hash trailer size in bytes (SHA-256)
	HashSize = 32

	// Minimum packet size (empty payload)
	MinPacketSize = HeaderSize + HashSize

	// Default maximum payload size (10 MiB)
	DefaultMaxPayloadSize = 10 << 20
)

// Intents - receiver-action codes, opaque to the framing layer
const (
	// Connection management (0x0x)
	IntentPing          uint8 = 0x01
	IntentPong          uint8 = 0x02
	IntentHandshakeInit uint8 = 0x03
	IntentHandshakeAck  uint8 = 0x04
	IntentClose         uint8 = 0x05

	// Search operations (0x1x)
	IntentSearch        uint8 = 0x10
	IntentSearchSuggest uint8 = 0x11
	IntentFetchDocument uint8 = 0x12
	IntentSearchStream  uint8 = 0x13

	// Data sync (0x2x)
	IntentDataRequest uint8 = 0x20
	IntentDataPush    uint8 = 0x21
	IntentDataDelta   uint8 = 0x22
	IntentDataVerify  uint8 = 0x23

	// Ranking & personalization (0x3x)
	IntentRankingUpdate  uint8 = 0x30
	IntentRankingRequest uint8 = 0x31

	// Edge/cache (0x4x)
	IntentCacheQuery      uint8 = 0x40
	IntentCacheInvalidate uint8 = 0x41

	// Status (0xFx)
	IntentError   uint8 = 0xF0
	IntentSuccess uint8 = 0xF1
)

// Priorities - scheduling hints, no semantics enforced here
const (
	PriorityLowest   uint8 = 0
	PriorityLow      uint8 = 64
	PriorityNormal   uint8 = 128
	PriorityHigh     uint8 = 192
	PriorityCritical uint8 = 255
)

// SessionIDSize is the length of a session identifier in bytes.
const SessionIDSize = 16

// SessionID identifies a logical conversation (16 bytes, opaque)
type SessionID [SessionIDSize]byte

// GenerateSessionID generates a random session ID
func GenerateSessionID() SessionID {
	var id SessionID
	// Use timestamp for first 8 bytes (for uniqueness and ordering)
	timestamp := time.Now().UnixNano()
	binary.BigEndian.PutUint64(id[0:8], uint64(timestamp))

	// Use crypto/rand for secure random bytes in remaining 8 bytes.
	// rand.Read never returns an error; it aborts the program if the
	// randomness source is unavailable.
	rand.Read(id[8:])

	return id
}

// SessionIDFromBytes builds a SessionID from a byte slice
func SessionIDFromBytes(b []byte) (SessionID, error) {
	var id SessionID
	if len(b) != SessionIDSize {
		return id, ErrInvalidSessionIDLength
	}
	copy(id[:], b)
	return id, nil
}

// String returns the session ID as a hex string
func (id SessionID) String() string {
	return hex.EncodeToString(id[:])
}

// IsZeroSessionID checks if a session ID is all zeros
func IsZeroSessionID(id SessionID) bool {
	zero := SessionID{}
	return id == zero
}

// NowUnixMilli returns current time in Unix milliseconds
func NowUnixMilli() uint64 {
	return uint64(time.Now().UnixMilli())
}
