// Package fragment splits oversized payloads into shard packets and
// reassembles them on the receiving side.
//
// A payload is Reed-Solomon encoded into data+parity shards; each shard
// travels as one FDP packet carrying the Fragmented flag and a fixed
// 24-byte shard header inside its payload. Any dataShards of the
// dataShards+parityShards packets are enough to reconstruct the original
// payload, so a lossy transport can drop up to parityShards packets per
// group without a retransmission.
package fragment

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/reedsolomon"

	"github.com/fdp-protocol/fdp-node/pkg/protocol"
)

const (
	// DefaultDataShards is the default number of data shards
	DefaultDataShards = 10
	// DefaultParityShards is the default number of parity shards
	DefaultParityShards = 5

	// ShardHeaderSize is the fixed size of the shard header carried at
	// the front of each fragment packet's payload
	ShardHeaderSize = 24
)

var (
	// ErrNotFragment is returned when a packet lacks the Fragmented flag
	ErrNotFragment = errors.New("packet is not a fragment")

	// ErrMalformedShard is returned on a structurally invalid shard header
	ErrMalformedShard = errors.New("malformed shard header")

	// ErrShardConflict is returned when a shard disagrees with its group
	// about geometry or size
	ErrShardConflict = errors.New("shard conflicts with its group")
)

// GroupID ties the shards of one fragmented payload together (16 bytes)
type GroupID [16]byte

// String returns the group ID as a hex string
func (g GroupID) String() string {
	return fmt.Sprintf("%x", g[:])
}

func newGroupID() GroupID {
	var id GroupID
	if _, err := rand.Read(id[:]); err != nil {
		// crypto/rand failing is effectively fatal elsewhere too; a
		// zero group ID still reassembles, it just loses uniqueness.
		return id
	}
	return id
}

// ShardHeader describes one shard's place in its group. Wire layout,
// big-endian like the packet header:
//
//	Offset  Size  Field
//	0       16    Group ID
//	16      1     Shard index
//	17      1     Data shard count
//	18      1     Parity shard count
//	19      1     Reserved
//	20      4     Original payload size
type ShardHeader struct {
	Group        GroupID
	Index        uint8
	DataShards   uint8
	ParityShards uint8
	OriginalSize uint32
}

// Encode encodes the shard header to its fixed 24-byte form
func (s *ShardHeader) Encode() []byte {
	buf := make([]byte, ShardHeaderSize)

	copy(buf[0:16], s.Group[:])
	buf[16] = s.Index
	buf[17] = s.DataShards
	buf[18] = s.ParityShards
	buf[19] = 0
	binary.BigEndian.PutUint32(buf[20:24], s.OriginalSize)

	return buf
}

// Decode decodes the shard header from the front of a fragment payload
func (s *ShardHeader) Decode(buf []byte) error {
	if len(buf) < ShardHeaderSize {
		return ErrMalformedShard
	}

	copy(s.Group[:], buf[0:16])
	s.Index = buf[16]
	s.DataShards = buf[17]
	s.ParityShards = buf[18]
	s.OriginalSize = binary.BigEndian.Uint32(buf[20:24])

	if s.DataShards == 0 {
		return ErrMalformedShard
	}
	if int(s.Index) >= int(s.DataShards)+int(s.ParityShards) {
		return ErrMalformedShard
	}

	return nil
}

// Fragmenter splits payloads into shard packets
type Fragmenter struct {
	encoder      reedsolomon.Encoder
	dataShards   int
	parityShards int
}

// NewFragmenter creates a fragmenter with the given shard geometry
func NewFragmenter(dataShards, parityShards int) (*Fragmenter, error) {
	if dataShards <= 0 || dataShards > 255 || parityShards < 0 || parityShards > 255 {
		return nil, fmt.Errorf("invalid shard geometry: %d data, %d parity", dataShards, parityShards)
	}

	enc, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, fmt.Errorf("failed to create Reed-Solomon encoder: %w", err)
	}

	return &Fragmenter{
		encoder:      enc,
		dataShards:   dataShards,
		parityShards: parityShards,
	}, nil
}

// NewDefaultFragmenter creates a fragmenter with the 10+5 geometry
func NewDefaultFragmenter() (*Fragmenter, error) {
	return NewFragmenter(DefaultDataShards, DefaultParityShards)
}

// TotalShards returns the number of packets Split produces per payload
func (f *Fragmenter) TotalShards() int {
	return f.dataShards + f.parityShards
}

// FaultTolerance returns how many shard packets may be lost per group
// while the payload stays recoverable
func (f *Fragmenter) FaultTolerance() int {
	return f.parityShards
}

// Split encodes a payload into shard packets for the given session. Each
// returned packet carries the Fragmented flag and is ready for the codec.
func (f *Fragmenter) Split(sessionID protocol.SessionID, intent uint8, payload []byte) ([]*protocol.Packet, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("cannot fragment empty payload")
	}

	shards, err := f.encoder.Split(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to split payload: %w", err)
	}

	if err := f.encoder.Encode(shards); err != nil {
		return nil, fmt.Errorf("failed to encode parity: %w", err)
	}

	group := newGroupID()
	packets := make([]*protocol.Packet, 0, len(shards))

	for i, shard := range shards {
		sh := &ShardHeader{
			Group:        group,
			Index:        uint8(i),
			DataShards:   uint8(f.dataShards),
			ParityShards: uint8(f.parityShards),
			OriginalSize: uint32(len(payload)),
		}

		body := make([]byte, 0, ShardHeaderSize+len(shard))
		body = append(body, sh.Encode()...)
		body = append(body, shard...)

		pkt := protocol.NewPacket(sessionID, intent, body)
		pkt.Header.Flags = pkt.Header.Flags.With(protocol.FlagFragmented, true)
		packets = append(packets, pkt)
	}

	return packets, nil
}
