/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package peer

import (
	"time"

	"github.com/pcepsim/pcepd/core"
	"github.com/pcepsim/pcepd/pcep"
	"github.com/pcepsim/pcepd/session"
)

// Handler reacts to the events of one session. Handlers run on the bus goroutine.
type Handler interface {
	HandleEvent(ev *session.Event) session.Outcome
	// Deadline returns when the handler next needs EventTimeout. The zero time means never.
	Deadline() time.Time
}

// Chain passes each event to its handlers in order. A handler returning Cancel stops the
// event there and suppresses the default action of the session.
type Chain struct {
	handlers []Handler
}

// NewChain creates a chain of handlers.
func NewChain(handlers ...Handler) *Chain {
	c := &Chain{}
	for _, h := range handlers {
		c.Append(h)
	}
	return c
}

// Append adds a handler at the end of the chain. Nil handlers are skipped.
func (c *Chain) Append(h Handler) {
	if h != nil {
		c.handlers = append(c.handlers, h)
	}
}

// Len returns the number of handlers.
func (c *Chain) Len() int {
	return len(c.handlers)
}

func (c *Chain) HandleEvent(ev *session.Event) session.Outcome {
	for _, h := range c.handlers {
		if h.HandleEvent(ev) == session.Cancel {
			return session.Cancel
		}
	}
	return session.Proceed
}

// Deadline returns the earliest deadline of all handlers.
func (c *Chain) Deadline() time.Time {
	var d time.Time
	for _, h := range c.handlers {
		d = earliest(d, h.Deadline())
	}
	return d
}

// earliest returns the earliest non-zero time, or the zero time.
func earliest(times ...time.Time) time.Time {
	var ret time.Time
	for _, t := range times {
		if !t.IsZero() && (ret.IsZero() || t.Before(ret)) {
			ret = t
		}
	}
	return ret
}

// due reports whether a non-zero deadline has passed.
func due(deadline time.Time, now time.Time) bool {
	return !deadline.IsZero() && !now.Before(deadline)
}

func seconds(v uint64) time.Duration {
	return time.Duration(v) * time.Second
}

func send(s *session.Session, m *pcep.Message) {
	if err := s.Send(m); err != nil {
		core.LogDebug(s, "Unable to send ", m, ": ", err)
	}
}
