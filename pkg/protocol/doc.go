// Package protocol implements the FDP packet framing and integrity layer.
//
// FDP is a binary wire protocol for a decentralized search network. This
// package is the framing core: a fixed 36-byte header, a bit-packed flags
// byte, a variable-length payload, and a 32-byte SHA-256 trailer used to
// detect corruption or tampering. Everything above it (session
// negotiation, compression and encryption algorithms, scheduling,
// transport, the search engine itself) talks to this core only through
// "produce or consume a validated Packet".
//
// # Wire Format
//
// All multi-byte integers are big-endian. Every packet looks like:
//
//	Offset  Size             Field
//	0       1                Version
//	1       16               Session ID
//	17      1                Intent
//	18      1                Priority
//	19      1                Flags
//	20      4                Sequence number
//	24      4                Payload length
//	28      8                Timestamp (unix ms)
//	36      payload length   Payload
//	last    32               SHA-256 digest over bytes [0, 36+payload length)
//
// Total size is always 36 + payload length + 32; the minimum valid packet
// is 68 bytes (empty payload).
//
// # Flags
//
// The flags byte carries three defined bits: Compressed (bit 0),
// Encrypted (bit 1) and Fragmented (bit 2). The remaining bits are
// reserved and pass through decoding unexamined, so future versions can
// assign them without breaking older nodes. The flags only signal that a
// transformation was applied; performing compression or encryption is the
// caller's job.
//
// # Intents
//
// Intent is a one-byte receiver-action code. The framing layer treats it
// as opaque; the constants defined here (Ping, Search, DataPush, ...)
// exist for the layers above.
//
// # Validation
//
// Decode runs a fixed pipeline, cheapest checks first:
//
//  1. minimum length (ErrTooShort)
//  2. header parse (ErrMalformed)
//  3. declared vs actual total length (ErrLengthMismatch)
//  4. payload size bound (ErrPayloadTooLarge)
//  5. version gate (ErrVersionMismatch)
//  6. digest verification (ErrHashMismatch)
//
// Length and version are checked before any hashing so hostile input is
// rejected with minimal work, and a truncated or padded buffer can never
// reach the digest comparison. Every failure is terminal: no Packet value
// is ever produced from an invalid buffer, and no error kind is retryable
// at this layer.
//
// # Integrity, Not Authenticity
//
// The trailer is an unkeyed digest. It detects corruption and casual
// tampering but not an adversary who rewrites both payload and trailer.
// Callers that need authenticity should wrap encoded packets with the
// keyed tags in package auth.
//
// # Concurrency
//
// All functions here are pure with respect to packet data. Independent
// Encode and Decode calls may run fully in parallel with no coordination.
//
// # Usage Example
//
//	sid := protocol.GenerateSessionID()
//	pkt := protocol.NewPacket(sid, protocol.IntentSearch, []byte("query"))
//	pkt.Header.Sequence = 1
//
//	wire, err := protocol.Encode(pkt)
//	if err != nil {
//	    // payload exceeded the codec bound
//	}
//
//	// ... transport delivers wire to a peer ...
//
//	got, err := protocol.Decode(wire)
//	if err != nil {
//	    // typed failure; discard the buffer
//	}
package protocol
