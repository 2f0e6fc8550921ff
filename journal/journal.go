// Package journal keeps a SQLite log of received messages, transmissions
// and relay decisions.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// Entry kinds.
const (
	KindReceived = "rx"
	KindPartial  = "rx_partial"
	KindSent     = "tx"
	KindTxFailed = "tx_failed"
	KindRelay    = "relay"
	KindError    = "error"
)

// timeFormat is fixed width so the text column sorts chronologically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is one journal row.
type Entry struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	At          time.Time `json:"at"`
	From        string    `json:"from,omitempty"`
	To          string    `json:"to,omitempty"`
	Text        string    `json:"text"`
	SNR         int       `json:"snr,omitempty"`
	FrequencyHz float64   `json:"frequency_hz,omitempty"`
	Submode     int       `json:"submode,omitempty"`
	Detail      string    `json:"detail,omitempty"`
}

// Store is the SQLite-backed journal.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *rand.Rand
}

// Open opens or creates the journal database at dbPath.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	s := &Store{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		id           TEXT PRIMARY KEY,
		kind         TEXT NOT NULL,
		at           TEXT NOT NULL,
		from_call    TEXT,
		to_call      TEXT,
		text         TEXT NOT NULL,
		snr          INTEGER NOT NULL DEFAULT 0,
		frequency_hz REAL NOT NULL DEFAULT 0,
		submode      INTEGER NOT NULL DEFAULT 0,
		detail       TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_entries_at ON entries(at DESC);
	CREATE INDEX IF NOT EXISTS idx_entries_kind ON entries(kind);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) newID(at time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), s.entropy).String()
}

// Append stores e, assigning an ID and a timestamp when missing.
func (s *Store) Append(ctx context.Context, e Entry) (Entry, error) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	e.At = e.At.UTC()
	if e.ID == "" {
		e.ID = s.newID(e.At)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (id, kind, at, from_call, to_call, text, snr, frequency_hz, submode, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Kind, e.At.Format(timeFormat), e.From, e.To, e.Text,
		e.SNR, e.FrequencyHz, e.Submode, e.Detail,
	)
	if err != nil {
		return e, fmt.Errorf("insert entry: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first. kind filters when set.
func (s *Store) Recent(ctx context.Context, kind string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, kind, at, from_call, to_call, text, snr, frequency_hz, submode, detail FROM entries`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var at string
		var from, to, detail sql.NullString
		if err := rows.Scan(&e.ID, &e.Kind, &at, &from, &to, &e.Text, &e.SNR, &e.FrequencyHz, &e.Submode, &detail); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.At, _ = time.Parse(timeFormat, at)
		e.From, e.To, e.Detail = from.String, to.String, detail.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
