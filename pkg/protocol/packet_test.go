package protocol

import (
	"bytes"
	"testing"
)

func testPacket(payload []byte) *Packet {
	pkt := NewPacket(GenerateSessionID(), IntentSearch, payload)
	pkt.Header.Sequence = 1
	return pkt
}

func TestPacketRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty payload", nil},
		{"small payload", []byte("Hello")},
		{"binary payload", []byte{0x00, 0xFF, 0x7F, 0x80, 0x01}},
		{"large payload", bytes.Repeat([]byte("fdp"), 4096)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkt := testPacket(tt.payload)
			pkt.Header.Flags = FlagSet(0).With(FlagCompressed, true)
			pkt.Header.Priority = PriorityHigh

			wire, err := Encode(pkt)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			if len(wire) != HeaderSize+len(tt.payload)+HashSize {
				t.Errorf("Encode() length = %d, want %d", len(wire), HeaderSize+len(tt.payload)+HashSize)
			}

			got, err := Decode(wire)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}

			if *got.Header != *pkt.Header {
				t.Errorf("Header = %+v, want %+v", got.Header, pkt.Header)
			}
			if !bytes.Equal(got.Payload, tt.payload) {
				t.Errorf("Payload = %q, want %q", got.Payload, tt.payload)
			}
		})
	}
}

func TestPacketConcreteScenario(t *testing.T) {
	// version 1, zero session ID, intent 0, priority 0, flags 0,
	// sequence 5, payload "Hello", timestamp 0 -> exactly 73 bytes.
	pkt := &Packet{
		Header: &Header{
			Version:       ProtocolVersion,
			SessionID:     SessionID{},
			Intent:        0,
			Priority:      0,
			Flags:         0,
			Sequence:      5,
			PayloadLength: 5,
			Timestamp:     0,
		},
		Payload: []byte("Hello"),
	}

	wire, err := Encode(pkt)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(wire) != 73 {
		t.Fatalf("Encode() length = %d, want 73", len(wire))
	}

	got, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if string(got.Payload) != "Hello" {
		t.Errorf("Payload = %q, want %q", got.Payload, "Hello")
	}
	if got.Header.Sequence != 5 {
		t.Errorf("Sequence = %d, want 5", got.Header.Sequence)
	}

	// Truncating by one byte must fail on the length gate.
	if _, err := Decode(wire[:72]); err != ErrLengthMismatch {
		t.Errorf("Decode(truncated) error = %v, want %v", err, ErrLengthMismatch)
	}
}

func TestEncodePayloadLengthMismatch(t *testing.T) {
	pkt := testPacket([]byte("Hello"))
	pkt.Header.PayloadLength = 4 // self-contradictory wire image

	if _, err := Encode(pkt); err != ErrPayloadLengthMismatch {
		t.Errorf("Encode() error = %v, want %v", err, ErrPayloadLengthMismatch)
	}
}

func TestEncodePayloadTooLarge(t *testing.T) {
	codec := NewCodec(16)
	pkt := testPacket(bytes.Repeat([]byte{0xAB}, 17))

	if _, err := codec.Encode(pkt); err != ErrPayloadTooLarge {
		t.Errorf("Encode() error = %v, want %v", err, ErrPayloadTooLarge)
	}
}

func TestDecodeTooShort(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{"empty", 0},
		{"header only", HeaderSize},
		{"one below minimum", MinPacketSize - 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(make([]byte, tt.size)); err != ErrTooShort {
				t.Errorf("Decode() error = %v, want %v", err, ErrTooShort)
			}
		})
	}
}

func TestDecodeLengthMismatch(t *testing.T) {
	pkt := testPacket([]byte("Hello"))
	wire, err := Encode(pkt)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	tests := []struct {
		name string
		buf  []byte
	}{
		{"truncated payload", wire[:len(wire)-1]},
		{"padded buffer", append(append([]byte{}, wire...), 0x00)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.buf); err != ErrLengthMismatch {
				t.Errorf("Decode() error = %v, want %v", err, ErrLengthMismatch)
			}
		})
	}
}

func TestDecodeVersionGatePrecedesHashGate(t *testing.T) {
	// Build a buffer with a wrong version but a correct digest. It must
	// fail on the version gate, not pass and not reach the hash gate.
	pkt := testPacket([]byte("Hello"))
	wire, err := Encode(pkt)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	wire[0] = ProtocolVersion + 1
	digest := ComputeDigest(wire[:len(wire)-HashSize])
	copy(wire[len(wire)-HashSize:], digest[:])

	if _, err := Decode(wire); err != ErrVersionMismatch {
		t.Errorf("Decode() error = %v, want %v", err, ErrVersionMismatch)
	}
}

func TestDecodeTamperSensitivity(t *testing.T) {
	pkt := testPacket([]byte("Hello"))
	wire, err := Encode(pkt)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	// Flipping any single bit anywhere must surface as a typed failure,
	// and bits that leave length and version intact must fail the hash
	// gate specifically.
	for i := 0; i < len(wire)*8; i++ {
		tampered := append([]byte{}, wire...)
		tampered[i/8] ^= 1 << (i % 8)

		got, err := Decode(tampered)
		if err == nil {
			t.Fatalf("Decode() accepted buffer with bit %d flipped", i)
		}
		if got != nil {
			t.Fatalf("Decode() materialized a packet alongside error %v", err)
		}

		byteOff := i / 8
		switch {
		case byteOff == 0:
			if err != ErrVersionMismatch {
				t.Errorf("bit %d (version): error = %v, want %v", i, err, ErrVersionMismatch)
			}
		case byteOff >= 24 && byteOff < 28:
			// Payload length bytes change the expected total size.
			if err != ErrLengthMismatch && err != ErrPayloadTooLarge {
				t.Errorf("bit %d (payload length): error = %v", i, err)
			}
		default:
			if err != ErrHashMismatch {
				t.Errorf("bit %d: error = %v, want %v", i, err, ErrHashMismatch)
			}
		}
	}
}

func TestDecodePayloadTooLarge(t *testing.T) {
	codec := NewCodec(4)
	pkt := testPacket([]byte("Hello"))

	wire, err := Encode(pkt) // default codec allows it
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	if _, err := codec.Decode(wire); err != ErrPayloadTooLarge {
		t.Errorf("Decode() error = %v, want %v", err, ErrPayloadTooLarge)
	}
}

func TestDecodeCopiesPayload(t *testing.T) {
	pkt := testPacket([]byte("Hello"))
	wire, err := Encode(pkt)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	got, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	wire[HeaderSize] ^= 0xFF
	if string(got.Payload) != "Hello" {
		t.Error("decoded payload aliases the input buffer")
	}
}

func TestReadWritePacket(t *testing.T) {
	pkt := testPacket([]byte("stream framing"))
	pkt.Header.Intent = IntentDataPush

	buf := &bytes.Buffer{}
	if err := WritePacket(buf, pkt, nil); err != nil {
		t.Fatalf("WritePacket() error = %v", err)
	}

	got, err := ReadPacket(buf, nil)
	if err != nil {
		t.Fatalf("ReadPacket() error = %v", err)
	}

	if *got.Header != *pkt.Header {
		t.Errorf("Header = %+v, want %+v", got.Header, pkt.Header)
	}
	if !bytes.Equal(got.Payload, pkt.Payload) {
		t.Errorf("Payload = %q, want %q", got.Payload, pkt.Payload)
	}
}

func TestReadPacketRejectsOversizedClaim(t *testing.T) {
	// A header claiming a huge payload must be rejected from the header
	// alone, before the reader is asked for that many bytes.
	pkt := testPacket([]byte("x"))
	pkt.Header.PayloadLength = DefaultMaxPayloadSize + 1
	head := pkt.Header.Encode()

	if _, err := ReadPacket(bytes.NewReader(head), nil); err != ErrPayloadTooLarge {
		t.Errorf("ReadPacket() error = %v, want %v", err, ErrPayloadTooLarge)
	}
}

func TestReadPacketTruncatedStream(t *testing.T) {
	pkt := testPacket([]byte("Hello"))
	wire, err := Encode(pkt)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	if _, err := ReadPacket(bytes.NewReader(wire[:HeaderSize+2]), nil); err == nil {
		t.Error("ReadPacket() accepted a truncated stream")
	}
}
