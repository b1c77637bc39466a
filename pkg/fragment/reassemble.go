package fragment

import (
	"fmt"
	"sync"

	"github.com/klauspost/reedsolomon"

	"github.com/fdp-protocol/fdp-node/pkg/protocol"
)

// group accumulates the shards of one fragmented payload
type group struct {
	shards       [][]byte
	dataShards   int
	parityShards int
	originalSize int
	shardSize    int
	received     int
}

// Reassembler collects fragment packets and reconstructs payloads once
// enough shards of a group have arrived. Safe for concurrent use.
type Reassembler struct {
	mu     sync.Mutex
	groups map[GroupID]*group
}

// NewReassembler creates an empty reassembler
func NewReassembler() *Reassembler {
	return &Reassembler{
		groups: make(map[GroupID]*group),
	}
}

// Add feeds one validated fragment packet in. When the packet completes
// its group the reconstructed payload is returned with done=true and the
// group's state is dropped; otherwise done=false. Duplicate shards are
// ignored.
func (r *Reassembler) Add(p *protocol.Packet) ([]byte, bool, error) {
	if !p.Header.Flags.Has(protocol.FlagFragmented) {
		return nil, false, ErrNotFragment
	}

	sh := &ShardHeader{}
	if err := sh.Decode(p.Payload); err != nil {
		return nil, false, err
	}

	shard := p.Payload[ShardHeaderSize:]
	total := int(sh.DataShards) + int(sh.ParityShards)

	r.mu.Lock()
	defer r.mu.Unlock()

	g, exists := r.groups[sh.Group]
	if !exists {
		g = &group{
			shards:       make([][]byte, total),
			dataShards:   int(sh.DataShards),
			parityShards: int(sh.ParityShards),
			originalSize: int(sh.OriginalSize),
			shardSize:    len(shard),
		}
		r.groups[sh.Group] = g
	}

	if int(sh.DataShards) != g.dataShards || int(sh.ParityShards) != g.parityShards ||
		int(sh.OriginalSize) != g.originalSize || len(shard) != g.shardSize {
		return nil, false, ErrShardConflict
	}

	if g.shards[sh.Index] != nil {
		return nil, false, nil // duplicate
	}

	g.shards[sh.Index] = append([]byte(nil), shard...)
	g.received++

	if g.received < g.dataShards {
		return nil, false, nil
	}

	payload, err := g.reconstruct()
	if err != nil {
		return nil, false, err
	}

	delete(r.groups, sh.Group)
	return payload, true, nil
}

// Pending returns the number of groups still waiting for shards
func (r *Reassembler) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.groups)
}

// Drop discards a partially received group, e.g. when the session layer
// gives up on it
func (r *Reassembler) Drop(id GroupID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.groups, id)
}

// reconstruct rebuilds missing shards and joins the data shards back
// into the original payload. Caller holds the lock.
func (g *group) reconstruct() ([]byte, error) {
	enc, err := reedsolomon.New(g.dataShards, g.parityShards)
	if err != nil {
		return nil, fmt.Errorf("failed to create Reed-Solomon encoder: %w", err)
	}

	// Reconstruct mutates the slice; work on a copy so a verification
	// failure leaves the group intact.
	shards := make([][]byte, len(g.shards))
	copy(shards, g.shards)

	if err := enc.Reconstruct(shards); err != nil {
		return nil, fmt.Errorf("failed to reconstruct shards: %w", err)
	}

	ok, err := enc.Verify(shards)
	if err != nil {
		return nil, fmt.Errorf("failed to verify shards: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("shard verification failed")
	}

	buf := make([]byte, 0, g.originalSize)
	for i := 0; i < g.dataShards; i++ {
		buf = append(buf, shards[i]...)
	}

	// Trim the padding Split added to fill the last shard.
	if len(buf) > g.originalSize {
		buf = buf[:g.originalSize]
	}

	return buf, nil
}
