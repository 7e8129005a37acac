package domain

import "strings"

// Command identifies one attendance command kind.
type Command string

const (
	// CommandCheckin records the start of a working day.
	CommandCheckin Command = "checkin"
	// CommandCheckout records the end of a working day.
	CommandCheckout Command = "checkout"
	// CommandBreakStart records the start of a break.
	CommandBreakStart Command = "breakstart"
	// CommandBreakEnd records the end of a break.
	CommandBreakEnd Command = "breakend"
	// CommandMyLog lists the caller's events for the current day.
	CommandMyLog Command = "mylog"
	// CommandMyLogs lists the caller's full history.
	CommandMyLogs Command = "mylogs"
	// CommandAllLogs lists every user's full history.
	CommandAllLogs Command = "alllogs"
	// CommandUnknown marks free text that matches no known command.
	CommandUnknown Command = ""
)

// ParseCommand maps raw webhook command text to a Command. Chat platforms
// send slash commands ("/checkin"); the bare form is accepted too. Unmatched
// text maps to CommandUnknown.
func ParseCommand(raw string) Command {
	token := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), "/")
	switch Command(token) {
	case CommandCheckin, CommandCheckout, CommandBreakStart, CommandBreakEnd,
		CommandMyLog, CommandMyLogs, CommandAllLogs:
		return Command(token)
	default:
		return CommandUnknown
	}
}

// IsTransition reports whether the command changes attendance state and is
// therefore subject to legality checks and log appends.
func (c Command) IsTransition() bool {
	switch c {
	case CommandCheckin, CommandCheckout, CommandBreakStart, CommandBreakEnd:
		return true
	default:
		return false
	}
}

// IsRead reports whether the command only reads the event log.
func (c Command) IsRead() bool {
	switch c {
	case CommandMyLog, CommandMyLogs, CommandAllLogs:
		return true
	default:
		return false
	}
}
