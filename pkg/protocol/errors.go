package protocol

import "errors"

// Validation failures. Every one of them means "discard this packet";
// none are retryable at this layer.
var (
	// ErrTooShort is returned when a buffer is below the 68-byte minimum
	ErrTooShort = errors.New("packet too short")

	// ErrMalformed is returned on structural header parse failure
	ErrMalformed = errors.New("malformed header")

	// ErrPayloadLengthMismatch is returned when a packet's declared
	// payload length disagrees with its actual payload
	ErrPayloadLengthMismatch = errors.New("payload length mismatch")

	// ErrLengthMismatch is returned when the declared payload length
	// does not match the buffer size
	ErrLengthMismatch = errors.New("packet length mismatch")

	// ErrVersionMismatch is returned on an unsupported protocol version
	ErrVersionMismatch = errors.New("unsupported protocol version")

	// ErrHashMismatch is returned when the integrity trailer does not
	// match the recomputed digest
	ErrHashMismatch = errors.New("integrity hash mismatch")

	// ErrInvalidSessionIDLength is returned when a session ID is not
	// exactly 16 bytes
	ErrInvalidSessionIDLength = errors.New("invalid session ID length")

	// ErrPayloadTooLarge is returned when a payload exceeds the codec's
	// configured maximum
	ErrPayloadTooLarge = errors.New("payload exceeds maximum size")
)
