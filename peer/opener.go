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
	"github.com/pcepsim/pcepd/pcep/wire"
	"github.com/pcepsim/pcepd/session"
)

// OpenerState is the state of session establishment.
type OpenerState int

// Opener states.
const (
	OpenIdle OpenerState = iota
	OpenWait
	KeepWait
	OpenUp
	OpenFailed
)

func (s OpenerState) String() string {
	switch s {
	case OpenIdle:
		return "Idle"
	case OpenWait:
		return "OpenWait"
	case KeepWait:
		return "KeepWait"
	case OpenUp:
		return "Up"
	default:
		return "Failed"
	}
}

// Default establishment timers.
const (
	DefaultOpenWait = 60 * time.Second
	DefaultKeepWait = 60 * time.Second
)

// Opener establishes a PCEP session: it exchanges Open and Keepalive messages, negotiates
// parameters through the policy, and raises EventOpened once both sides agree. Messages
// received before that are consumed.
type Opener struct {
	policy   OpenPolicy
	openWait time.Duration
	keepWait time.Duration

	s        *session.Session
	state    OpenerState
	localOK  bool
	remoteOK bool
	openSeen bool
	reasons  map[string]bool
	openAt   time.Time
	keepAt   time.Time
	local    *wire.Container
	remote   *wire.Container
}

// NewOpener creates an opener. Non-positive waits use the defaults.
func NewOpener(policy OpenPolicy, openWait time.Duration, keepWait time.Duration) *Opener {
	if openWait <= 0 {
		openWait = DefaultOpenWait
	}
	if keepWait <= 0 {
		keepWait = DefaultKeepWait
	}
	return &Opener{
		policy:   policy,
		openWait: openWait,
		keepWait: keepWait,
		reasons:  make(map[string]bool),
	}
}

// State returns the establishment state.
func (o *Opener) State() OpenerState {
	return o.state
}

// Local returns the last OPEN object sent.
func (o *Opener) Local() *wire.Container {
	return o.local
}

// Remote returns the accepted OPEN object of the remote speaker.
func (o *Opener) Remote() *wire.Container {
	return o.remote
}

func (o *Opener) HandleEvent(ev *session.Event) session.Outcome {
	switch ev.Kind {
	case session.EventConnected:
		o.start(ev)
	case session.EventMessage:
		switch o.state {
		case OpenWait, KeepWait:
			o.onMessage(ev)
		case OpenUp:
			return session.Proceed
		}
		return session.Cancel
	case session.EventTimeout:
		o.onTimeout(ev.Time)
	case session.EventClosing:
		if o.state == OpenWait || o.state == KeepWait {
			o.state = OpenFailed
		}
	}
	return session.Proceed
}

func (o *Opener) Deadline() time.Time {
	switch o.state {
	case OpenWait, KeepWait:
		return earliest(o.openAt, o.keepAt)
	default:
		return time.Time{}
	}
}

func (o *Opener) start(ev *session.Event) {
	o.s = ev.Session
	o.local = o.policy.Local()
	send(o.s, pcep.NewOpen(o.local))
	o.state = OpenWait
	o.openAt = ev.Time.Add(o.openWait)
	core.LogDebug(o.s, "Open sent, waiting for remote Open")
}

func (o *Opener) onMessage(ev *session.Event) {
	m := ev.Message
	switch {
	case m.Type() == pcep.MsgOpen && !o.remoteOK:
		o.onOpen(ev)
	case !o.openSeen:
		core.LogWarn(o.s, "Expected Open, received ", m)
		o.fail(pcep.ErrValueReceivedNotOpen)
	case m.Type() == pcep.MsgKeepalive && !o.localOK:
		o.localOK = true
		o.keepAt = time.Time{}
		o.advance(ev.Time)
	case m.Type() == pcep.MsgPCErr && !o.localOK:
		o.onPCErr(ev)
	default:
		core.LogDebug(o.s, "Ignoring ", m, " during session establishment")
	}
}

func (o *Opener) onOpen(ev *session.Event) {
	obj := ev.Message.Find(pcep.KindOpen)
	if obj == nil {
		core.LogWarn(o.s, "Open message without OPEN object")
		o.fail(pcep.ErrValueReceivedNotOpen)
		return
	}
	o.openSeen = true

	verdict, reason, proposal := o.policy.Check(obj)
	switch verdict {
	case Acceptable:
		o.remote = obj
		o.remoteOK = true
		o.openAt = time.Time{}
		send(o.s, pcep.NewKeepalive())
		o.advance(ev.Time)
	case Negotiable:
		if o.reasons[reason] {
			core.LogWarn(o.s, "Remote Open still unacceptable (", reason, ")")
			o.fail(pcep.ErrValueSecondUnacceptable)
			return
		}
		o.reasons[reason] = true
		core.LogInfo(o.s, "Remote Open unacceptable (", reason, "), proposing alternative")
		send(o.s, pcep.NewPCErr(pcep.ErrTypeSessionFailure, pcep.ErrValueNegotiable, proposal))
		o.openAt = ev.Time.Add(o.openWait)
	default:
		core.LogWarn(o.s, "Remote Open not acceptable (", reason, ")")
		o.fail(pcep.ErrValueNonNegotiable)
	}
}

// onPCErr handles the answer of the remote speaker to our OPEN object.
func (o *Opener) onPCErr(ev *session.Event) {
	m := ev.Message
	if !hasError(m, pcep.ErrTypeSessionFailure, pcep.ErrValueNegotiable) {
		core.LogWarn(o.s, "Session establishment refused by remote")
		o.state = OpenFailed
		o.s.Close()
		return
	}
	proposal := m.Find(pcep.KindOpen)
	if proposal == nil || !o.policy.Adopt(proposal) {
		core.LogWarn(o.s, "Rejecting proposed session parameters")
		o.fail(pcep.ErrValueProposalRejected)
		return
	}
	o.local = o.policy.Local()
	send(o.s, pcep.NewOpen(o.local))
	core.LogInfo(o.s, "Adopted proposed session parameters")
	o.keepAt = time.Time{}
	o.advance(ev.Time)
}

// advance moves to the next state once a side of the exchange completes.
func (o *Opener) advance(now time.Time) {
	switch {
	case o.localOK && o.remoteOK:
		o.up()
	case o.remoteOK:
		o.state = KeepWait
		if o.keepAt.IsZero() {
			o.keepAt = now.Add(o.keepWait)
		}
	default:
		o.state = OpenWait
		if o.openAt.IsZero() {
			o.openAt = now.Add(o.openWait)
		}
	}
}

func (o *Opener) onTimeout(now time.Time) {
	switch {
	case o.state == OpenWait && due(o.openAt, now):
		core.LogWarn(o.s, "OpenWait timer expired")
		o.fail(pcep.ErrValueOpenWaitExpired)
	case o.state == KeepWait && due(o.keepAt, now):
		core.LogWarn(o.s, "KeepWait timer expired")
		o.fail(pcep.ErrValueKeepWaitExpired)
	}
}

func (o *Opener) fail(value uint8) {
	send(o.s, pcep.NewPCErr(pcep.ErrTypeSessionFailure, value, nil))
	o.state = OpenFailed
	o.openAt, o.keepAt = time.Time{}, time.Time{}
	o.s.Close()
}

func (o *Opener) up() {
	o.state = OpenUp
	o.openAt, o.keepAt = time.Time{}, time.Time{}
	core.LogInfo(o.s, "PCEP session up, keepalive=", o.local.Body.Get(pcep.OpenKeepalive),
		" deadtimer=", o.remote.Body.Get(pcep.OpenDeadtimer))
	o.s.Raise(session.EventOpened)
}

// hasError reports whether a PCErr message carries the given error.
func hasError(m *pcep.Message, typ pcep.ErrorType, value uint8) bool {
	for _, it := range m.Objects() {
		if c, ok := it.(*wire.Container); ok && c.Kind() == pcep.KindError &&
			pcep.ErrorType(c.Body.Get(pcep.ErrorTypeID)) == typ && uint8(c.Body.Get(pcep.ErrorValueID)) == value {
			return true
		}
	}
	return false
}
