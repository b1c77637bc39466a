// Package session tracks per-session replay state for FDP packets.
//
// The framing codec is deliberately stateless: it validates single
// packets and keeps no memory between calls. Duplicate and replayed
// packets are caught here instead, by mapping each session ID to the
// last sequence number and timestamp seen from it. State is persisted
// in SQLite so a restarted node keeps rejecting replays.
package session

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fdp-protocol/fdp-node/pkg/protocol"
)

var (
	// ErrStaleSequence is returned when a packet's sequence number does
	// not advance past the last one seen for its session
	ErrStaleSequence = errors.New("stale sequence number")

	// ErrTimestampSkew is returned when a packet's timestamp falls
	// outside the configured clock skew window
	ErrTimestampSkew = errors.New("timestamp outside skew window")
)

// State is the last-seen record for one session
type State struct {
	SessionID     protocol.SessionID
	LastSequence  uint32
	LastTimestamp uint64
	UpdatedAt     int64 // Unix seconds
}

// Config holds tracker configuration
type Config struct {
	// TTL is how long an idle session's state is kept before the sweep
	// removes it. Zero keeps state forever.
	TTL time.Duration

	// MaxClockSkew is how far a packet timestamp may deviate from local
	// time in either direction. Zero disables the timestamp check.
	MaxClockSkew time.Duration
}

// DefaultConfig returns default tracker configuration
func DefaultConfig() *Config {
	return &Config{
		TTL:          24 * time.Hour,
		MaxClockSkew: 5 * time.Minute,
	}
}

// Tracker persists last-seen sequence/timestamp per session
type Tracker struct {
	db   *sql.DB
	ttl  time.Duration
	skew time.Duration
	quit chan struct{}
}

// Open opens (or creates) a tracker database at dbPath
func Open(dbPath string, config *Config) (*Tracker, error) {
	if config == nil {
		config = DefaultConfig()
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open tracker database: %v", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %v", err)
	}

	tracker := &Tracker{
		db:   db,
		ttl:  config.TTL,
		skew: config.MaxClockSkew,
		quit: make(chan struct{}),
	}

	if err := tracker.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	if tracker.ttl > 0 {
		go tracker.sweepExpiredSessions()
	}

	return tracker, nil
}

// initSchema creates the database schema
func (t *Tracker) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		last_sequence INTEGER NOT NULL,
		last_timestamp INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	-- Index for expiry sweeps
	CREATE INDEX IF NOT EXISTS idx_updated ON sessions(updated_at);
	`

	if _, err := t.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %v", err)
	}

	return nil
}

// Observe records one validated packet against its session. It rejects
// sequence numbers that do not advance and timestamps outside the skew
// window; accepting a packet updates the session's last-seen state.
func (t *Tracker) Observe(p *protocol.Packet) error {
	if t.skew > 0 {
		now := time.Now().UnixMilli()
		ts := int64(p.Header.Timestamp)
		window := t.skew.Milliseconds()
		if ts < now-window || ts > now+window {
			return ErrTimestampSkew
		}
	}

	sessionHex := p.Header.SessionID.String()
	now := time.Now().Unix()

	tx, err := t.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	var lastSeq uint32
	err = tx.QueryRow(`SELECT last_sequence FROM sessions WHERE session_id = ?`, sessionHex).Scan(&lastSeq)
	switch {
	case err == sql.ErrNoRows:
		_, err = tx.Exec(`
			INSERT INTO sessions (session_id, last_sequence, last_timestamp, updated_at)
			VALUES (?, ?, ?, ?)
		`, sessionHex, p.Header.Sequence, p.Header.Timestamp, now)
		if err != nil {
			return fmt.Errorf("failed to insert session: %v", err)
		}
	case err != nil:
		return fmt.Errorf("failed to query session: %v", err)
	default:
		if p.Header.Sequence <= lastSeq {
			return ErrStaleSequence
		}
		_, err = tx.Exec(`
			UPDATE sessions SET last_sequence = ?, last_timestamp = ?, updated_at = ?
			WHERE session_id = ?
		`, p.Header.Sequence, p.Header.Timestamp, now, sessionHex)
		if err != nil {
			return fmt.Errorf("failed to update session: %v", err)
		}
	}

	return tx.Commit()
}

// LastSeen returns the recorded state for a session, if any
func (t *Tracker) LastSeen(id protocol.SessionID) (*State, bool, error) {
	state := &State{SessionID: id}

	err := t.db.QueryRow(`
		SELECT last_sequence, last_timestamp, updated_at FROM sessions WHERE session_id = ?
	`, id.String()).Scan(&state.LastSequence, &state.LastTimestamp, &state.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query session: %v", err)
	}

	return state, true, nil
}

// Sessions returns the state of every tracked session
func (t *Tracker) Sessions() ([]*State, error) {
	rows, err := t.db.Query(`
		SELECT session_id, last_sequence, last_timestamp, updated_at
		FROM sessions
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %v", err)
	}
	defer rows.Close()

	var states []*State
	for rows.Next() {
		state := &State{}
		var sessionHex string
		if err := rows.Scan(&sessionHex, &state.LastSequence, &state.LastTimestamp, &state.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %v", err)
		}

		if raw, err := hex.DecodeString(sessionHex); err == nil {
			if sid, err := protocol.SessionIDFromBytes(raw); err == nil {
				state.SessionID = sid
			}
		}
		states = append(states, state)
	}

	return states, rows.Err()
}

// Count returns the number of tracked sessions
func (t *Tracker) Count() (int, error) {
	var count int
	if err := t.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %v", err)
	}
	return count, nil
}

// PurgeExpired removes sessions idle longer than the TTL
func (t *Tracker) PurgeExpired() (int64, error) {
	if t.ttl == 0 {
		return 0, nil
	}

	cutoff := time.Now().Add(-t.ttl).Unix()
	result, err := t.db.Exec(`DELETE FROM sessions WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %v", err)
	}

	return result.RowsAffected()
}

// sweepExpiredSessions periodically removes idle sessions
func (t *Tracker) sweepExpiredSessions() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-t.quit:
			return
		case <-ticker.C:
			count, err := t.PurgeExpired()
			if err != nil {
				log.Printf("Failed to purge expired sessions: %v", err)
				continue
			}
			if count > 0 {
				log.Printf("Purged %d expired sessions", count)
			}
		}
	}
}

// Close stops the sweep and closes the database
func (t *Tracker) Close() error {
	close(t.quit)
	return t.db.Close()
}
