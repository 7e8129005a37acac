// Package storage defines the persistence boundary for attendance events.
package storage

import (
	"context"
	"time"
)

// EventRecord stores one accepted attendance command for one user.
// Records are append-only: no update or delete exists on the store.
type EventRecord struct {
	ID        int64
	UserID    string
	UserName  string
	Command   string
	Timestamp time.Time
}

// EventStore persists the attendance event log.
//
// ListEventsByUser, ListEventsByUserOnDay, and ListAllEvents return records
// ordered by (timestamp, id) ascending. The store accepts any structurally
// valid record; attendance legality is decided before a record reaches it.
type EventStore interface {
	AppendEvent(ctx context.Context, record EventRecord) (int64, error)
	HasEventOnDay(ctx context.Context, userID string, command string, dayStart time.Time) (bool, error)
	ListEventsByUser(ctx context.Context, userID string) ([]EventRecord, error)
	ListEventsByUserOnDay(ctx context.Context, userID string, dayStart time.Time) ([]EventRecord, error)
	ListAllEvents(ctx context.Context) ([]EventRecord, error)
}
