// Package sqlite provides SQLite-backed attendance event persistence.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/punchd/punchd/internal/platform/storage/sqlitemigrate"
	"github.com/punchd/punchd/internal/services/attendance/storage"
	"github.com/punchd/punchd/internal/services/attendance/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed attendance event persistence.
type Store struct {
	sqlDB *sql.DB
}

// Open opens an attendance SQLite store and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// AppendEvent persists one attendance event and returns its sequence id.
func (s *Store) AppendEvent(ctx context.Context, record storage.EventRecord) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}

	record.UserID = strings.TrimSpace(record.UserID)
	record.UserName = strings.TrimSpace(record.UserName)
	record.Command = strings.TrimSpace(record.Command)
	if record.UserID == "" {
		return 0, fmt.Errorf("user id is required")
	}
	if record.Command == "" {
		return 0, fmt.Errorf("command is required")
	}
	if record.Timestamp.IsZero() {
		return 0, fmt.Errorf("timestamp is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO events (
	user_id,
	user_name,
	command,
	timestamp
) VALUES (?, ?, ?, ?)
`,
		record.UserID,
		record.UserName,
		record.Command,
		record.Timestamp.UTC().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("append event: %w", err)
	}
	eventID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("event id: %w", err)
	}
	return eventID, nil
}

// HasEventOnDay reports whether the user recorded the command within the
// calendar day beginning at dayStart.
func (s *Store) HasEventOnDay(ctx context.Context, userID string, command string, dayStart time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}

	dayEnd := dayStart.Add(24 * time.Hour)
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT 1
FROM events
WHERE user_id = ? AND command = ? AND timestamp >= ? AND timestamp < ?
LIMIT 1
`,
		strings.TrimSpace(userID),
		strings.TrimSpace(command),
		dayStart.UTC().UnixMilli(),
		dayEnd.UTC().UnixMilli(),
	)
	var found int
	if err := row.Scan(&found); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check event on day: %w", err)
	}
	return true, nil
}

// ListEventsByUser lists the user's full history, oldest first.
func (s *Store) ListEventsByUser(ctx context.Context, userID string) ([]storage.EventRecord, error) {
	return s.listEvents(ctx, `
SELECT id, user_id, user_name, command, timestamp
FROM events
WHERE user_id = ?
ORDER BY timestamp ASC, id ASC
`, strings.TrimSpace(userID))
}

// ListEventsByUserOnDay lists the user's events within the calendar day
// beginning at dayStart, oldest first.
func (s *Store) ListEventsByUserOnDay(ctx context.Context, userID string, dayStart time.Time) ([]storage.EventRecord, error) {
	dayEnd := dayStart.Add(24 * time.Hour)
	return s.listEvents(ctx, `
SELECT id, user_id, user_name, command, timestamp
FROM events
WHERE user_id = ? AND timestamp >= ? AND timestamp < ?
ORDER BY timestamp ASC, id ASC
`, strings.TrimSpace(userID), dayStart.UTC().UnixMilli(), dayEnd.UTC().UnixMilli())
}

// ListAllEvents lists every user's events, oldest first.
func (s *Store) ListAllEvents(ctx context.Context) ([]storage.EventRecord, error) {
	return s.listEvents(ctx, `
SELECT id, user_id, user_name, command, timestamp
FROM events
ORDER BY timestamp ASC, id ASC
`)
}

func (s *Store) listEvents(ctx context.Context, query string, args ...any) ([]storage.EventRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var records []storage.EventRecord
	for rows.Next() {
		var record storage.EventRecord
		var timestamp int64
		if err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.UserName,
			&record.Command,
			&timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		record.Timestamp = time.UnixMilli(timestamp).UTC()
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return records, nil
}

var _ storage.EventStore = (*Store)(nil)
