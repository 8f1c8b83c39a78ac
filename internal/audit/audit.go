// Package audit records back-office actions to a local SQLite log: who did
// what to which reservation and when. This is operational history for the
// hotel staff, not reservation state — the backend stays the single source of
// truth for bookings.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"

	"github.com/hoteldormis1/posada-dormis-backoffice/internal/calendar"
	"github.com/hoteldormis1/posada-dormis-backoffice/internal/timeline"
)

// Action names in the log.
const (
	ActionReservationCreated = "reservation_created"
	ActionTransition         = "transition"
	ActionConflictRejected   = "conflict_rejected"
)

// Store is the SQLite-backed action log.
type Store struct {
	db     *sql.DB
	logger *zerolog.Logger
}

// Entry is one recorded action.
type Entry struct {
	ID        int64
	At        time.Time
	Action    string
	RoomID    int64
	BookingID int64
	Start     string
	End       string
	Detail    string
}

// Open creates or opens the audit database at path.
func Open(path string, logger *zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect audit database: %w", err)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS actions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		action TEXT NOT NULL,
		room_id INTEGER NOT NULL DEFAULT 0,
		booking_id INTEGER NOT NULL DEFAULT 0,
		start_day TEXT NOT NULL DEFAULT '',
		end_day TEXT NOT NULL DEFAULT '',
		detail TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_actions_at ON actions(at);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create audit schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReservationCreated logs a successful reservation creation.
func (s *Store) ReservationCreated(ctx context.Context, roomID, bookingID int64, start, end calendar.Day, guest string) {
	s.record(ctx, ActionReservationCreated, roomID, bookingID, start.String(), end.String(), guest)
}

// Transition logs a status transition.
func (s *Store) Transition(ctx context.Context, bookingID int64, op timeline.Op) {
	s.record(ctx, ActionTransition, 0, bookingID, "", "", string(op))
}

// ConflictRejected logs a selection or write attempt rejected by the overlap
// check.
func (s *Store) ConflictRejected(ctx context.Context, roomID int64, start, end calendar.Day) {
	s.record(ctx, ActionConflictRejected, roomID, 0, start.String(), end.String(), "")
}

func (s *Store) record(ctx context.Context, action string, roomID, bookingID int64, start, end, detail string) {
	// Timestamps are written from Go in UTC so retention comparisons bind
	// consistently regardless of the process timezone.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO actions (at, action, room_id, booking_id, start_day, end_day, detail) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC(), action, roomID, bookingID, start, end, detail,
	)
	if err != nil {
		// Audit failures must never break the user-facing flow.
		s.logger.Error().Err(err).Str("action", action).Msg("audit write failed")
	}
}

// Recent returns the latest entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, at, action, room_id, booking_id, start_day, end_day, detail
		 FROM actions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.At, &e.Action, &e.RoomID, &e.BookingID, &e.Start, &e.End, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Cleanup deletes entries older than the retention window and returns how
// many were removed.
func (s *Store) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.db.ExecContext(ctx, `DELETE FROM actions WHERE at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup audit entries: %w", err)
	}
	return res.RowsAffected()
}
