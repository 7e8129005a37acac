package domain

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/punchd/punchd/internal/services/attendance/storage"
)

// fakeStore is an in-memory EventStore honoring the (timestamp, id)
// ascending ordering contract.
type fakeStore struct {
	mu     sync.Mutex
	nextID int64
	events []storage.EventRecord

	appendErr error
	listErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1}
}

func (f *fakeStore) AppendEvent(_ context.Context, record storage.EventRecord) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return 0, f.appendErr
	}
	record.ID = f.nextID
	f.nextID++
	f.events = append(f.events, record)
	return record.ID, nil
}

func (f *fakeStore) HasEventOnDay(_ context.Context, userID string, command string, dayStart time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return false, f.listErr
	}
	dayEnd := dayStart.Add(24 * time.Hour)
	for _, event := range f.events {
		if event.UserID != userID || event.Command != command {
			continue
		}
		if !event.Timestamp.Before(dayStart) && event.Timestamp.Before(dayEnd) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ListEventsByUser(_ context.Context, userID string) ([]storage.EventRecord, error) {
	return f.list(func(event storage.EventRecord) bool {
		return event.UserID == userID
	})
}

func (f *fakeStore) ListEventsByUserOnDay(_ context.Context, userID string, dayStart time.Time) ([]storage.EventRecord, error) {
	dayEnd := dayStart.Add(24 * time.Hour)
	return f.list(func(event storage.EventRecord) bool {
		return event.UserID == userID &&
			!event.Timestamp.Before(dayStart) && event.Timestamp.Before(dayEnd)
	})
}

func (f *fakeStore) ListAllEvents(_ context.Context) ([]storage.EventRecord, error) {
	return f.list(func(storage.EventRecord) bool { return true })
}

func (f *fakeStore) list(keep func(storage.EventRecord) bool) ([]storage.EventRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []storage.EventRecord
	for _, event := range f.events {
		if keep(event) {
			out = append(out, event)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (f *fakeStore) eventCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func (f *fakeStore) eventCountFor(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, event := range f.events {
		if event.UserID == userID {
			count++
		}
	}
	return count
}

var _ storage.EventStore = (*fakeStore)(nil)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
