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

// Keeper enforces the keepalive and dead timers of an open session. It also closes the
// session when the remote speaker sends Close.
type Keeper struct {
	opener    *Opener
	s         *session.Session
	up        bool
	keepalive time.Duration
	dead      time.Duration
	kaAt      time.Time
	deadAt    time.Time
	reason    pcep.CloseReason
}

// NewKeeper creates a keeper that takes the negotiated timers from the opener.
func NewKeeper(opener *Opener) *Keeper {
	return &Keeper{opener: opener}
}

// Intervals returns the keepalive interval and the dead interval in use.
func (k *Keeper) Intervals() (time.Duration, time.Duration) {
	return k.keepalive, k.dead
}

// CloseReason returns the reason the session was closed for, if the keeper closed it
// or the remote speaker sent one.
func (k *Keeper) CloseReason() pcep.CloseReason {
	return k.reason
}

func (k *Keeper) HandleEvent(ev *session.Event) session.Outcome {
	switch ev.Kind {
	case session.EventOpened:
		k.s = ev.Session
		k.keepalive = seconds(k.opener.Local().Body.Get(pcep.OpenKeepalive))
		k.dead = seconds(k.opener.Remote().Body.Get(pcep.OpenDeadtimer))
		k.up = true
		k.pushKeepalive(ev.Time)
		k.pushDead(ev.Time)
	case session.EventMessage:
		if !k.up {
			break
		}
		k.pushDead(ev.Time)
		if ev.Message.Type() == pcep.MsgClose {
			if obj := ev.Message.Find(pcep.KindClose); obj != nil {
				k.reason = pcep.CloseReason(obj.Body.Get(pcep.CloseReasonID))
			}
			core.LogInfo(k.s, "Remote closed the session: ", k.reason)
			k.up = false
			k.s.Close()
			return session.Cancel
		}
	case session.EventTransmitted:
		if k.up {
			k.pushKeepalive(ev.Time)
		}
	case session.EventTimeout:
		k.onTimeout(ev.Time)
	case session.EventClosing:
		k.up = false
	}
	return session.Proceed
}

func (k *Keeper) Deadline() time.Time {
	if !k.up {
		return time.Time{}
	}
	return earliest(k.kaAt, k.deadAt)
}

func (k *Keeper) pushKeepalive(now time.Time) {
	if k.keepalive > 0 {
		k.kaAt = now.Add(k.keepalive)
	}
}

func (k *Keeper) pushDead(now time.Time) {
	if k.dead > 0 {
		k.deadAt = now.Add(k.dead)
	}
}

func (k *Keeper) onTimeout(now time.Time) {
	if !k.up {
		return
	}
	if due(k.deadAt, now) {
		core.LogWarn(k.s, "Dead timer expired")
		k.reason = pcep.CloseDeadTimerExpired
		k.up = false
		send(k.s, pcep.NewClose(pcep.CloseDeadTimerExpired))
		k.s.Close()
		return
	}
	if due(k.kaAt, now) {
		send(k.s, pcep.NewKeepalive())
		k.pushKeepalive(now)
	}
}
