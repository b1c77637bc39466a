package fragment

import (
	"bytes"
	"testing"

	"github.com/fdp-protocol/fdp-node/pkg/protocol"
)

func TestSplitProducesFragmentPackets(t *testing.T) {
	f, err := NewFragmenter(4, 2)
	if err != nil {
		t.Fatalf("NewFragmenter() error = %v", err)
	}

	sid := protocol.GenerateSessionID()
	payload := bytes.Repeat([]byte("decentralized search "), 100)

	packets, err := f.Split(sid, protocol.IntentDataPush, payload)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	if len(packets) != f.TotalShards() {
		t.Fatalf("Split() produced %d packets, want %d", len(packets), f.TotalShards())
	}

	for i, pkt := range packets {
		if !pkt.Header.Flags.Has(protocol.FlagFragmented) {
			t.Errorf("packet %d missing Fragmented flag", i)
		}
		if pkt.Header.SessionID != sid {
			t.Errorf("packet %d has wrong session ID", i)
		}
		if pkt.Header.Intent != protocol.IntentDataPush {
			t.Errorf("packet %d has wrong intent", i)
		}

		// Every shard packet must survive the wire codec.
		wire, err := protocol.Encode(pkt)
		if err != nil {
			t.Fatalf("Encode(packet %d) error = %v", i, err)
		}
		if _, err := protocol.Decode(wire); err != nil {
			t.Fatalf("Decode(packet %d) error = %v", i, err)
		}
	}
}

func TestSplitEmptyPayload(t *testing.T) {
	f, err := NewDefaultFragmenter()
	if err != nil {
		t.Fatalf("NewDefaultFragmenter() error = %v", err)
	}

	if _, err := f.Split(protocol.GenerateSessionID(), protocol.IntentDataPush, nil); err == nil {
		t.Error("Split() accepted an empty payload")
	}
}

func TestReassembleAllShards(t *testing.T) {
	f, err := NewFragmenter(4, 2)
	if err != nil {
		t.Fatalf("NewFragmenter() error = %v", err)
	}

	payload := bytes.Repeat([]byte{0x42, 0x00, 0xFF}, 1000)
	packets, err := f.Split(protocol.GenerateSessionID(), protocol.IntentDataPush, payload)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	r := NewReassembler()
	var result []byte
	done := false

	for i, pkt := range packets {
		got, finished, err := r.Add(pkt)
		if err != nil {
			t.Fatalf("Add(packet %d) error = %v", i, err)
		}
		if finished {
			result = got
			done = true
			break
		}
	}

	if !done {
		t.Fatal("reassembly never completed")
	}
	if !bytes.Equal(result, payload) {
		t.Error("reassembled payload differs from original")
	}
	if r.Pending() != 0 {
		t.Errorf("Pending() = %d after completion, want 0", r.Pending())
	}
}

func TestReassembleWithLostShards(t *testing.T) {
	f, err := NewFragmenter(4, 2)
	if err != nil {
		t.Fatalf("NewFragmenter() error = %v", err)
	}

	payload := bytes.Repeat([]byte("shard loss tolerance"), 512)
	packets, err := f.Split(protocol.GenerateSessionID(), protocol.IntentDataPush, payload)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	// Drop as many packets as the parity allows, including a data shard.
	survivors := packets[1 : len(packets)-1]

	r := NewReassembler()
	var result []byte
	done := false

	for _, pkt := range survivors {
		got, finished, err := r.Add(pkt)
		if err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		if finished {
			result = got
			done = true
		}
	}

	if !done {
		t.Fatal("reassembly did not complete with parity-count losses")
	}
	if !bytes.Equal(result, payload) {
		t.Error("reconstructed payload differs from original")
	}
}

func TestReassembleInsufficientShards(t *testing.T) {
	f, err := NewFragmenter(4, 2)
	if err != nil {
		t.Fatalf("NewFragmenter() error = %v", err)
	}

	payload := bytes.Repeat([]byte("not enough"), 256)
	packets, err := f.Split(protocol.GenerateSessionID(), protocol.IntentDataPush, payload)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	r := NewReassembler()
	for _, pkt := range packets[:3] { // below the 4 data-shard minimum
		_, finished, err := r.Add(pkt)
		if err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		if finished {
			t.Fatal("reassembly completed below the recovery threshold")
		}
	}

	if r.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", r.Pending())
	}
}

func TestReassembleDuplicateShards(t *testing.T) {
	f, err := NewFragmenter(4, 2)
	if err != nil {
		t.Fatalf("NewFragmenter() error = %v", err)
	}

	payload := bytes.Repeat([]byte("dup"), 300)
	packets, err := f.Split(protocol.GenerateSessionID(), protocol.IntentDataPush, payload)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	r := NewReassembler()

	// Feed the same shard repeatedly; it must not count toward recovery.
	for i := 0; i < 10; i++ {
		_, finished, err := r.Add(packets[0])
		if err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		if finished {
			t.Fatal("duplicates counted toward recovery threshold")
		}
	}
}

func TestReassembleRejectsNonFragment(t *testing.T) {
	pkt := protocol.NewPacket(protocol.GenerateSessionID(), protocol.IntentPing, []byte("plain"))

	r := NewReassembler()
	if _, _, err := r.Add(pkt); err != ErrNotFragment {
		t.Errorf("Add() error = %v, want %v", err, ErrNotFragment)
	}
}

func TestReassembleRejectsConflictingShard(t *testing.T) {
	f, err := NewFragmenter(4, 2)
	if err != nil {
		t.Fatalf("NewFragmenter() error = %v", err)
	}

	payload := bytes.Repeat([]byte("conflict"), 400)
	packets, err := f.Split(protocol.GenerateSessionID(), protocol.IntentDataPush, payload)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	r := NewReassembler()
	if _, _, err := r.Add(packets[0]); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	// Corrupt the second shard's declared geometry but keep its group.
	sh := &ShardHeader{}
	if err := sh.Decode(packets[1].Payload); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	sh.DataShards = 5
	copy(packets[1].Payload[:ShardHeaderSize], sh.Encode())

	if _, _, err := r.Add(packets[1]); err != ErrShardConflict {
		t.Errorf("Add() error = %v, want %v", err, ErrShardConflict)
	}
}

func TestShardHeaderDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{"too short", make([]byte, ShardHeaderSize-1)},
		{"zero data shards", make([]byte, ShardHeaderSize)},
		{
			"index out of range",
			func() []byte {
				sh := &ShardHeader{Index: 6, DataShards: 4, ParityShards: 2}
				return sh.Encode()
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sh := &ShardHeader{}
			if err := sh.Decode(tt.buf); err != ErrMalformedShard {
				t.Errorf("Decode() error = %v, want %v", err, ErrMalformedShard)
			}
		})
	}
}

func TestShardHeaderRoundTrip(t *testing.T) {
	sh := &ShardHeader{
		Group:        GroupID{0x01, 0x02},
		Index:        3,
		DataShards:   10,
		ParityShards: 5,
		OriginalSize: 123456,
	}

	encoded := sh.Encode()
	if len(encoded) != ShardHeaderSize {
		t.Fatalf("Encode() length = %d, want %d", len(encoded), ShardHeaderSize)
	}

	decoded := &ShardHeader{}
	if err := decoded.Decode(encoded); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if *decoded != *sh {
		t.Errorf("roundtrip = %+v, want %+v", decoded, sh)
	}
}
