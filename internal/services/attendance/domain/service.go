// Package domain implements the attendance state machine: which commands are
// legal given a user's event history, and what each accepted command records.
package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/punchd/punchd/internal/services/attendance/storage"
)

var (
	// ErrStoreNotConfigured indicates the service is missing persistence wiring.
	ErrStoreNotConfigured = errors.New("event store is not configured")
	// ErrUserIDRequired indicates the caller identity is missing.
	ErrUserIDRequired = errors.New("user id is required")
)

// Denial reasons surfaced to the caller when a command is illegal.
const (
	ReasonMustCheckInFirst    = "must check in first"
	ReasonMustStartBreakFirst = "must start a break first"
	ReasonUnrecognizedCommand = "unrecognized command"
)

// NoLogsMessage is returned by read commands when nothing matches.
const NoLogsMessage = "no logs found"

const timestampLayout = "2006-01-02 15:04:05"

// Verdict is the outcome of a legality check for one command.
type Verdict struct {
	Allowed bool
	Reason  string
}

// Outcome is the result of processing one command. Event is non-nil only
// when a transition was accepted and appended to the log.
type Outcome struct {
	Message string
	Event   *storage.EventRecord
}

// ProcessInput carries one inbound command through the processor.
type ProcessInput struct {
	Command  string
	UserID   string
	UserName string
}

// Service resolves command legality against the event log and records
// accepted transitions.
type Service struct {
	store    storage.EventStore
	clock    func() time.Time
	logReads bool
}

// NewService constructs the attendance command processor. When logReads is
// true, read commands are themselves appended to the event log before the
// listing is rendered.
func NewService(store storage.EventStore, clock func() time.Time, logReads bool) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		store:    store,
		clock:    clock,
		logReads: logReads,
	}
}

// Resolve answers whether cmd is legal for the user at now, by inspecting
// the user's events for now's calendar day. It never writes.
func (s *Service) Resolve(ctx context.Context, userID string, cmd Command, now time.Time) (Verdict, error) {
	if s == nil || s.store == nil {
		return Verdict{}, ErrStoreNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Verdict{}, ErrUserIDRequired
	}

	switch cmd {
	case CommandCheckin:
		// Repeated same-day check-ins are accepted as independent events.
		return Verdict{Allowed: true}, nil
	case CommandCheckout, CommandBreakStart:
		ok, err := s.store.HasEventOnDay(ctx, userID, string(CommandCheckin), dayStart(now))
		if err != nil {
			return Verdict{}, fmt.Errorf("resolve %s: %w", cmd, err)
		}
		if !ok {
			return Verdict{Reason: ReasonMustCheckInFirst}, nil
		}
		return Verdict{Allowed: true}, nil
	case CommandBreakEnd:
		ok, err := s.store.HasEventOnDay(ctx, userID, string(CommandBreakStart), dayStart(now))
		if err != nil {
			return Verdict{}, fmt.Errorf("resolve %s: %w", cmd, err)
		}
		if !ok {
			return Verdict{Reason: ReasonMustStartBreakFirst}, nil
		}
		return Verdict{Allowed: true}, nil
	default:
		// Decided without a log read.
		return Verdict{Reason: ReasonUnrecognizedCommand}, nil
	}
}

// Process runs one command through the state machine. Illegal transitions
// produce a rejection Outcome, not an error; errors are storage faults only.
func (s *Service) Process(ctx context.Context, input ProcessInput) (Outcome, error) {
	if s == nil || s.store == nil {
		return Outcome{}, ErrStoreNotConfigured
	}
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return Outcome{}, ErrUserIDRequired
	}
	userName := strings.TrimSpace(input.UserName)
	now := s.nowUTC()
	cmd := ParseCommand(input.Command)

	switch {
	case cmd.IsTransition():
		verdict, err := s.Resolve(ctx, userID, cmd, now)
		if err != nil {
			return Outcome{}, err
		}
		if !verdict.Allowed {
			return Outcome{Message: verdict.Reason}, nil
		}
		event := storage.EventRecord{
			UserID:    userID,
			UserName:  userName,
			Command:   string(cmd),
			Timestamp: now,
		}
		eventID, err := s.store.AppendEvent(ctx, event)
		if err != nil {
			return Outcome{}, fmt.Errorf("append %s: %w", cmd, err)
		}
		event.ID = eventID
		return Outcome{
			Message: transitionMessage(cmd, userName, now),
			Event:   &event,
		}, nil

	case cmd.IsRead():
		if s.logReads {
			if _, err := s.store.AppendEvent(ctx, storage.EventRecord{
				UserID:    userID,
				UserName:  userName,
				Command:   string(cmd),
				Timestamp: now,
			}); err != nil {
				return Outcome{}, fmt.Errorf("append %s: %w", cmd, err)
			}
		}
		message, err := s.renderListing(ctx, cmd, userID, now)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Message: message}, nil

	default:
		return Outcome{Message: ReasonUnrecognizedCommand}, nil
	}
}

func (s *Service) renderListing(ctx context.Context, cmd Command, userID string, now time.Time) (string, error) {
	var (
		events []storage.EventRecord
		err    error
	)
	switch cmd {
	case CommandMyLog:
		events, err = s.store.ListEventsByUserOnDay(ctx, userID, dayStart(now))
	case CommandMyLogs:
		events, err = s.store.ListEventsByUser(ctx, userID)
	case CommandAllLogs:
		events, err = s.store.ListAllEvents(ctx)
	}
	if err != nil {
		return "", fmt.Errorf("list %s: %w", cmd, err)
	}
	if len(events) == 0 {
		return NoLogsMessage, nil
	}

	// Stores return ascending (timestamp, id); listings read newest first.
	lines := make([]string, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		event := events[i]
		ts := event.Timestamp.UTC().Format(timestampLayout)
		if cmd == CommandAllLogs {
			lines = append(lines, fmt.Sprintf("%s - %s at %s", event.UserName, event.Command, ts))
		} else {
			lines = append(lines, fmt.Sprintf("%s at %s", event.Command, ts))
		}
	}
	return strings.Join(lines, "\n"), nil
}

func transitionMessage(cmd Command, userName string, at time.Time) string {
	ts := at.UTC().Format(timestampLayout)
	var action string
	switch cmd {
	case CommandCheckin:
		action = "checked in"
	case CommandCheckout:
		action = "checked out"
	case CommandBreakStart:
		action = "break started"
	case CommandBreakEnd:
		action = "break ended"
	}
	if userName == "" {
		return fmt.Sprintf("%s at %s", action, ts)
	}
	return fmt.Sprintf("%s, %s at %s", userName, action, ts)
}

func (s *Service) nowUTC() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock().UTC()
}

// dayStart truncates t to midnight in t's location; the calendar day used
// for legality checks is the processing timestamp's date.
func dayStart(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
