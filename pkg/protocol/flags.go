package protocol

// Flag is one named bit of the packet flags byte.
type Flag uint8

// Defined flag bits. The flags only signal that a transformation was
// applied to the payload; applying it is the caller's job.
const (
	FlagCompressed Flag = 1 << 0 // Payload is compressed
	FlagEncrypted  Flag = 1 << 1 // Payload is encrypted
	FlagFragmented Flag = 1 << 2 // Packet is one shard of a larger message

	// Bits 3-7 are reserved. They are preserved on encode and passed
	// through unexamined on decode so future versions can assign them.
)

// FlagSet is the packet flags byte with named boolean accessors.
type FlagSet uint8

// Has reports whether a flag bit is set.
func (f FlagSet) Has(flag Flag) bool {
	return uint8(f)&uint8(flag) != 0
}

// With returns a copy of the flag set with exactly one bit changed.
// All other bits, reserved ones included, are unchanged.
func (f FlagSet) With(flag Flag, set bool) FlagSet {
	if set {
		return f | FlagSet(flag)
	}
	return f &^ FlagSet(flag)
}

// Raw returns the underlying byte for serialization.
func (f FlagSet) Raw() uint8 {
	return uint8(f)
}
