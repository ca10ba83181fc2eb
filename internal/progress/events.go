// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"time"
)

// EventType is a state transition of a single target.
type EventType int

const (
	// EventPending is reported for every target before any work starts.
	EventPending EventType = iota
	// EventStarted is reported when the subprocess for a target is about to be spawned.
	EventStarted
	// EventCompleted is reported when the command exited zero.
	EventCompleted
	// EventFailed is reported when the command could not be spawned or exited non-zero.
	EventFailed
	// EventSkipped is reported for targets that were never attempted.
	EventSkipped
	// EventOutput carries the newest line of output of a running target in Message.
	EventOutput
)

// String implements fmt.Stringer.
func (et EventType) String() string {
	switch et {
	case EventPending:
		return "pending"
	case EventStarted:
		return "started"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	case EventSkipped:
		return "skipped"
	case EventOutput:
		return "output"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further events follow for the target.
func (et EventType) Terminal() bool {
	return et == EventCompleted || et == EventFailed || et == EventSkipped
}

// Event is a single transition for one directory.
type Event struct {
	Directory string
	Type      EventType
	Message   string
	Timestamp time.Time
	ExitCode  int   // EventCompleted, EventFailed
	Error     error // EventFailed
}

// NewEvent stamps an event with the current time.
func NewEvent(dir string, t EventType, msg string) Event {
	return Event{
		Directory: dir,
		Type:      t,
		Message:   msg,
		Timestamp: time.Now(),
	}
}

// Reporter receives events. Implementations must be safe for concurrent use.
type Reporter interface {
	Report(event Event)
}

// Listener is fed events by a ChannelReporter.
type Listener interface {
	OnEvent(event Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Event)

// Report implements Reporter.
func (f ReporterFunc) Report(e Event) {
	f(e)
}

// NullReporter discards all events.
type NullReporter struct{}

// Report implements Reporter.
func (NullReporter) Report(Event) {}
