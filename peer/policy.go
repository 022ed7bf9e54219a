/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package peer

import (
	"github.com/pcepsim/pcepd/pcep"
	"github.com/pcepsim/pcepd/pcep/wire"
	"github.com/pcepsim/pcepd/utils/comparison"
)

// Verdict is the judgement of a remote OPEN object.
type Verdict int

// Verdicts.
const (
	Acceptable Verdict = iota
	Negotiable
	NotNegotiable
)

func (v Verdict) String() string {
	switch v {
	case Acceptable:
		return "Acceptable"
	case Negotiable:
		return "Negotiable"
	default:
		return "NotNegotiable"
	}
}

// OpenPolicy decides the session parameters during establishment.
type OpenPolicy interface {
	// Local returns a fresh copy of the OPEN object to send.
	Local() *wire.Container
	// Check judges the OPEN object of the remote speaker. A Negotiable verdict comes with the
	// reason, used to detect repeated failures, and a counter-proposal.
	Check(remote *wire.Container) (v Verdict, reason string, proposal *wire.Container)
	// Adopt judges a counter-proposal made by the remote speaker. If it returns true,
	// later calls to Local reflect the proposal.
	Adopt(proposal *wire.Container) bool
}

// Limits is an OpenPolicy accepting timers within configured bounds.
type Limits struct {
	Keepalive    uint8
	Deadtimer    uint8
	SessionID    uint8
	MinKeepalive uint8
	MaxKeepalive uint8
	MinDeadtimer uint8
	MaxDeadtimer uint8
	// Capability is advertised when set.
	Capability *pcep.StatefulCapability
	// RequireStateful refuses remote speakers without the stateful capability.
	RequireStateful bool
	// DBVersion returns the database version advertised with the capability. Zero omits it.
	DBVersion func() uint64
	// SpeakerID is advertised when set and the capability includes the database version.
	SpeakerID string
}

func (l *Limits) Local() *wire.Container {
	var tlvs []wire.Item
	if l.Capability != nil {
		tlvs = append(tlvs, pcep.NewStatefulCapability(*l.Capability))
		if l.Capability.IncludeDBVersion {
			if v := l.version(); v != 0 {
				tlvs = append(tlvs, pcep.NewDBVersion(v))
			}
			if l.SpeakerID != "" {
				tlvs = append(tlvs, pcep.NewSpeakerEntityID(l.SpeakerID))
			}
		}
	}
	return pcep.NewOpenObject(l.Keepalive, l.Deadtimer, l.SessionID, tlvs...)
}

func (l *Limits) version() uint64 {
	if l.DBVersion == nil {
		return 0
	}
	return l.DBVersion()
}

func (l *Limits) Check(remote *wire.Container) (Verdict, string, *wire.Container) {
	if _, ok := pcep.StatefulCapabilityOf(remote); l.RequireStateful && !ok {
		return NotNegotiable, "stateful", nil
	}
	ka := uint8(remote.Body.Get(pcep.OpenKeepalive))
	dt := uint8(remote.Body.Get(pcep.OpenDeadtimer))
	wantKa := comparison.Clamp(ka, l.MinKeepalive, l.MaxKeepalive)
	wantDt := comparison.Clamp(dt, l.MinDeadtimer, l.MaxDeadtimer)
	if wantKa == ka && wantDt == dt {
		return Acceptable, "", nil
	}
	reason := "keepalive"
	if wantKa == ka {
		reason = "deadtimer"
	}
	proposal := pcep.NewOpenObject(wantKa, wantDt, uint8(remote.Body.Get(pcep.OpenSessionID)))
	return Negotiable, reason, proposal
}

func (l *Limits) Adopt(proposal *wire.Container) bool {
	ka := uint8(proposal.Body.Get(pcep.OpenKeepalive))
	dt := uint8(proposal.Body.Get(pcep.OpenDeadtimer))
	if !comparison.Within(ka, l.MinKeepalive, l.MaxKeepalive) || !comparison.Within(dt, l.MinDeadtimer, l.MaxDeadtimer) {
		return false
	}
	l.Keepalive = ka
	l.Deadtimer = dt
	return true
}
