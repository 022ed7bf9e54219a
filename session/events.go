/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package session

import (
	"time"

	"github.com/pcepsim/pcepd/pcep"
)

// EventKind names a session lifecycle event.
type EventKind int

// Session events.
const (
	// EventConnected is raised once the transport is usable.
	EventConnected EventKind = iota
	// EventMessage is raised for every complete inbound message.
	EventMessage
	// EventPreTransmit is raised after a message is serialized. Cancel drops it.
	EventPreTransmit
	// EventTransmitted is raised once a message has been fully written.
	EventTransmitted
	// EventFramingError is raised for an invalid message header. Cancel discards the header
	// and keeps reading; otherwise the session closes.
	EventFramingError
	// EventSocketError is raised when the transport fails. The session closes.
	EventSocketError
	// EventTimeout is raised when the deadline reported by the sink has passed.
	EventTimeout
	// EventOpened is raised by the opener when the PCEP session is up.
	EventOpened
	// EventClosing is raised when the session starts closing.
	EventClosing
	// EventClosed is raised when the transport has been released.
	EventClosed
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "Connected"
	case EventMessage:
		return "Message"
	case EventPreTransmit:
		return "PreTransmit"
	case EventTransmitted:
		return "Transmitted"
	case EventFramingError:
		return "FramingError"
	case EventSocketError:
		return "SocketError"
	case EventTimeout:
		return "Timeout"
	case EventOpened:
		return "Opened"
	case EventClosing:
		return "Closing"
	case EventClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Event is passed to the sink of a session.
type Event struct {
	Kind    EventKind
	Session *Session
	Time    time.Time
	// Message is set for Message, PreTransmit and Transmitted events.
	Message *pcep.Message
	// Bytes holds the wire form of Message. It is only valid during the callback.
	Bytes []byte
	// Err is set for FramingError and SocketError events.
	Err error
}

// Outcome tells the session whether to apply the default action of an event.
type Outcome int

// Event outcomes.
const (
	Proceed Outcome = iota
	Cancel
)

// Sink receives the events of a session. It is called on the bus goroutine.
type Sink interface {
	HandleEvent(ev *Event) Outcome
	// Deadline returns when the session should next raise EventTimeout. The zero time means never.
	Deadline() time.Time
}
