package protocol

import (
	"crypto/sha256"
	"crypto/subtle"
)

// ComputeDigest computes the SHA-256 integrity trailer over the exact
// byte span covering header+payload (no trailing digest included).
func ComputeDigest(data []byte) [HashSize]byte {
	return sha256.Sum256(data)
}

// VerifyDigest recomputes the digest over full[:len-32] and compares it
// in constant time against the trailing 32 bytes. The digest detects
// corruption and tampering, not authenticity: it is unkeyed.
func VerifyDigest(full []byte) bool {
	if len(full) < HashSize {
		return false
	}

	body := full[:len(full)-HashSize]
	trailer := full[len(full)-HashSize:]

	digest := ComputeDigest(body)
	return subtle.ConstantTimeCompare(digest[:], trailer) == 1
}
