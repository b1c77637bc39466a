// Package auth adds keyed authenticity tags on top of encoded packets.
//
// The packet codec's SHA-256 trailer detects corruption but is unkeyed:
// an adversary who can rewrite both payload and trailer defeats it.
// Peers that share a key can wrap encoded packets with a keyed
// BLAKE2b-256 tag before handing them to the transport and unwrap them
// on receipt, entirely outside the framing core.
package auth

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/blake2b"
)

// TagSize is the length of an authenticity tag in bytes
const TagSize = 32

var (
	// ErrBadTag is returned when a sealed buffer's tag does not verify
	ErrBadTag = errors.New("authenticity tag mismatch")

	// ErrSealedTooShort is returned when a buffer cannot contain a tag
	ErrSealedTooShort = errors.New("sealed buffer too short")
)

// Tag computes a keyed BLAKE2b-256 tag over data. Keys may be up to 64
// bytes; longer keys are rejected by blake2b.
func Tag(key, data []byte) ([TagSize]byte, error) {
	var tag [TagSize]byte

	mac, err := blake2b.New256(key)
	if err != nil {
		return tag, err
	}

	mac.Write(data)
	copy(tag[:], mac.Sum(nil))
	return tag, nil
}

// Seal appends a keyed tag to an encoded packet
func Seal(key, encoded []byte) ([]byte, error) {
	tag, err := Tag(key, encoded)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(encoded)+TagSize)
	sealed = append(sealed, encoded...)
	sealed = append(sealed, tag[:]...)
	return sealed, nil
}

// Open verifies the trailing tag in constant time and returns the
// encoded packet without it. The returned slice aliases sealed.
func Open(key, sealed []byte) ([]byte, error) {
	if len(sealed) < TagSize {
		return nil, ErrSealedTooShort
	}

	encoded := sealed[:len(sealed)-TagSize]
	got := sealed[len(sealed)-TagSize:]

	want, err := Tag(key, encoded)
	if err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare(want[:], got) != 1 {
		return nil, ErrBadTag
	}

	return encoded, nil
}
