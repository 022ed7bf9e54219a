/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package peer

import (
	"net/netip"
	"time"

	"github.com/pcepsim/pcepd/core"
	"github.com/pcepsim/pcepd/pcep"
	"github.com/pcepsim/pcepd/pcep/wire"
	"github.com/pcepsim/pcepd/session"
	"github.com/pcepsim/pcepd/table"
)

// Reply is the outcome of a path computation request.
type Reply struct {
	RequestID uint32
	NoPath    bool
	ERO       []netip.Addr
	Latency   time.Duration
}

// ReplyFunc receives the reply to a request, or an error if the session closed first.
type ReplyFunc func(r Reply, err error)

type pendingRequest struct {
	sent time.Time
	done ReplyFunc
}

// Computer handles stateless path computation: a PCC sends PCReq and matches PCRep,
// a PCE answers PCReq from its configured paths.
type Computer struct {
	cfg     *Config
	s       *session.Session
	up      bool
	nextID  uint32
	pending map[uint32]pendingRequest
}

// NewComputer creates the path computation handler of a session.
func NewComputer(cfg *Config) *Computer {
	return &Computer{cfg: cfg, pending: make(map[uint32]pendingRequest)}
}

// Pending returns the number of requests waiting for a reply.
func (c *Computer) Pending() int {
	return len(c.pending)
}

func (c *Computer) HandleEvent(ev *session.Event) session.Outcome {
	switch ev.Kind {
	case session.EventOpened:
		c.s = ev.Session
		c.up = true
	case session.EventMessage:
		if !c.up {
			break
		}
		switch {
		case ev.Message.Type() == pcep.MsgPCReq && c.cfg.Speaker == PCE:
			c.answer(ev.Message)
			return session.Cancel
		case ev.Message.Type() == pcep.MsgPCRep && c.cfg.Speaker == PCC:
			c.resolve(ev)
			return session.Cancel
		}
	case session.EventClosing:
		c.up = false
		for id, p := range c.pending {
			delete(c.pending, id)
			p.done(Reply{RequestID: id}, ErrNotUp)
		}
	}
	return session.Proceed
}

func (c *Computer) Deadline() time.Time {
	return time.Time{}
}

// Request sends a PCReq for a path between two endpoints. done is called on the bus goroutine.
func (c *Computer) Request(src netip.Addr, dst netip.Addr, done ReplyFunc) error {
	if !c.up {
		return ErrNotUp
	}
	if c.cfg.Speaker != PCC {
		return ErrWrongSpeaker
	}
	c.nextID++
	if c.nextID == 0 {
		c.nextID = 1
	}
	id := c.nextID
	m := pcep.NewMessage(pcep.MsgPCReq)
	m.Append(pcep.NewRP(id), pcep.NewEndpoints(src, dst))
	c.pending[id] = pendingRequest{sent: c.s.Now(), done: done}
	send(c.s, m)
	return nil
}

// lookup returns the configured path between two endpoints.
func (c *Computer) lookup(src netip.Addr, dst netip.Addr) ([]netip.Addr, bool) {
	for _, p := range c.cfg.Paths {
		if p.Src == src && p.Dst == dst {
			return p.ERO, true
		}
	}
	return nil, false
}

func (c *Computer) answer(m *pcep.Message) {
	g, err := m.Restructure()
	if err != nil {
		return
	}
	rep := pcep.NewMessage(pcep.MsgPCRep)
	for _, r := range g.Groups(pcep.RuleRequests) {
		rp := r.First(pcep.RuleRP)
		ep := r.First(pcep.RuleEndpoints)
		if rp == nil {
			send(c.s, pcep.NewPCErr(pcep.ErrTypeMandatoryMissing, pcep.ErrValueMissingRP, nil))
			continue
		}
		id := uint32(rp.Body.Get(pcep.RPRequestID))
		var ero []netip.Addr
		found := false
		if ep != nil {
			ero, found = c.lookup(pcep.AddrOf(ep.Body.Get(pcep.EndpointsSource)), pcep.AddrOf(ep.Body.Get(pcep.EndpointsDestination)))
		}
		if found {
			rep.Append(pcep.NewRP(id), pcep.NewRoute(pcep.KindERO, ero...))
		} else {
			rep.Append(pcep.NewRP(id), pcep.NewNoPath(0, pcep.NewNoPathVector(false)))
		}
		table.AddToMeasurementInt("compute.requests", 1)
	}
	if len(rep.Objects()) > 0 {
		send(c.s, rep)
	}
}

func (c *Computer) resolve(ev *session.Event) {
	g, err := ev.Message.Restructure()
	if err != nil {
		return
	}
	for _, r := range g.Groups(pcep.RuleResponses) {
		rp := r.First(pcep.RuleRP)
		if rp == nil {
			continue
		}
		id := uint32(rp.Body.Get(pcep.RPRequestID))
		p, ok := c.pending[id]
		if !ok {
			core.LogWarn(c.s, "Reply to unknown request ", id)
			continue
		}
		delete(c.pending, id)
		reply := Reply{RequestID: id, Latency: ev.Time.Sub(p.sent)}
		if r.First(pcep.RuleNoPath) != nil {
			reply.NoPath = true
		} else if paths := r.Groups(pcep.RulePaths); len(paths) > 0 {
			reply.ERO = routeOf(paths[0].First(pcep.RuleERO))
		}
		table.AddSampleToEWMA("compute.latency_ms", float64(reply.Latency)/float64(time.Millisecond), 0.125)
		p.done(reply, nil)
	}
}

func routeOf(c *wire.Container) []netip.Addr {
	if c == nil {
		return nil
	}
	return pcep.RouteHops(c)
}
