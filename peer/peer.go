/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package peer

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/pcepsim/pcepd/bus"
	"github.com/pcepsim/pcepd/core"
	"github.com/pcepsim/pcepd/pcep"
	"github.com/pcepsim/pcepd/session"
	"github.com/pcepsim/pcepd/table"
)

// Handlers are the protocol handlers of one session.
type Handlers struct {
	Opener   *Opener
	Keeper   *Keeper
	Stateful *StatefulHandler
	Computer *Computer
}

// Peer is a simulated PCC or PCE. It owns at most one session at a time, creates it by dialing
// or accepting, and dials again after a session of an active peer closes.
// Apart from the exported operations documented as safe, methods run on the bus goroutine.
type Peer struct {
	cfg      Config
	bus      *bus.Bus
	sopts    session.Options
	extra    []Handler
	db       *table.LSPDB
	listener *bus.Listener
	redial   *bus.Timer
	stopped  bool

	current  *session.Session
	handlers *Handlers
}

// New creates a peer. Its LSP database outlives sessions: a PCC starts it with the LSPs of
// its configuration, a PCE keeps what it learned for the next session with the same peer.
func New(cfg Config) *Peer {
	p := &Peer{cfg: cfg}
	p.sopts = session.DefaultOptions(cfg.Name)
	p.db = table.NewLSPDB(cfg.Name, cfg.DBVersion)
	if cfg.Speaker == PCC {
		for _, lc := range cfg.LSPs {
			l := p.db.Allocate(lc.Name)
			l.Src, l.Dst, l.ERO = lc.Src, lc.Dst, lc.ERO
			l.Delegated = lc.Delegated
			l.Operational = true
		}
		if p.db.Len() > 0 && p.db.Version() == 0 {
			p.db.Bump()
		}
	}
	return p
}

func (p *Peer) String() string {
	return fmt.Sprintf("Peer, %s (%s)", p.cfg.Name, p.cfg.Speaker)
}

// Config returns the configuration of the peer.
func (p *Peer) Config() Config {
	return p.cfg
}

// Use adds a handler placed before the protocol handlers of every future session.
func (p *Peer) Use(h Handler) {
	p.extra = append(p.extra, h)
}

// SetSessionOptions replaces the options of future sessions. The name is kept.
func (p *Peer) SetSessionOptions(opts session.Options) {
	opts.Name = p.cfg.Name
	p.sopts = opts
}

// Start attaches the peer to a bus: active peers dial, passive peers listen.
func (p *Peer) Start(b *bus.Bus) {
	p.bus = b
	if p.cfg.Role == Passive {
		p.listener = bus.NewListener(p.cfg.Local, p.accept)
		b.Add(p.listener)
		return
	}
	p.dial()
}

// Listener returns the listener of a passive peer.
func (p *Peer) Listener() *bus.Listener {
	return p.listener
}

func (p *Peer) dial() {
	p.redial = nil
	if p.stopped {
		return
	}
	s := session.Dial(p.sopts, p.cfg.Local, p.cfg.Remote, nil)
	p.attach(s)
	p.bus.Add(s)
}

func (p *Peer) accept(fd int, remote netip.AddrPort) {
	if p.stopped || (p.current != nil && p.current.State() < session.StateClosing) {
		core.LogWarn(p, "Refusing second session from ", remote)
		bus.CloseFd(fd)
		return
	}
	s := session.Accepted(p.sopts, fd, remote, nil)
	p.attach(s)
	p.bus.Add(s)
}

// Attach installs the handlers of the peer on a session that the caller adds to a bus
// or drives by hand.
func (p *Peer) Attach(s *session.Session) *Handlers {
	return p.attach(s)
}

func (p *Peer) attach(s *session.Session) *Handlers {
	db := p.db
	cfg := &p.cfg
	opener := NewOpener(cfg.Limits(db.Version), cfg.OpenWait, cfg.KeepWait)
	h := &Handlers{
		Opener:   opener,
		Keeper:   NewKeeper(opener),
		Stateful: NewStateful(cfg, opener, db),
		Computer: NewComputer(cfg),
	}
	chain := NewChain(p.extra...)
	chain.Append(h.Opener)
	chain.Append(h.Keeper)
	chain.Append(h.Stateful)
	chain.Append(h.Computer)
	chain.Append(&lifecycle{peer: p, handlers: h})
	s.SetSink(chain)

	p.current = s
	p.handlers = h
	return h
}

// lifecycle publishes the status of a session and reconnects after it closes.
type lifecycle struct {
	peer     *Peer
	handlers *Handlers
}

func (l *lifecycle) HandleEvent(ev *session.Event) session.Outcome {
	p := l.peer
	switch ev.Kind {
	case session.EventClosed:
		table.Sessions.Remove(ev.Session.ID().String())
		if p.current == ev.Session {
			p.current = nil
			p.handlers = nil
		}
		if p.cfg.Role == Active && !p.stopped && p.bus != nil {
			core.LogInfo(p, "Reconnecting in ", p.cfg.ReconnectDelay)
			p.redial = p.bus.After(p.cfg.ReconnectDelay, p.dial)
		}
	default:
		p.publish(ev.Session, l.handlers, ev.Time)
	}
	return session.Proceed
}

func (l *lifecycle) Deadline() time.Time {
	return time.Time{}
}

func (p *Peer) publish(s *session.Session, h *Handlers, now time.Time) {
	st := s.Stats()
	ka, dead := h.Keeper.Intervals()
	remote := ""
	if s.Remote().IsValid() {
		remote = s.Remote().String()
	}
	table.Sessions.Publish(table.SessionStatus{
		ID:            s.ID().String(),
		Peer:          p.cfg.Name,
		Speaker:       p.cfg.Speaker.String(),
		Remote:        remote,
		State:         s.State().String(),
		Opener:        h.Opener.State().String(),
		Keepalive:     uint8(ka / time.Second),
		Deadtimer:     uint8(dead / time.Second),
		MessagesIn:    st.MessagesIn,
		MessagesOut:   st.MessagesOut,
		FramingErrors: st.FramingErrors,
		LSPs:          h.Stateful.DB().Len(),
		DBVersion:     h.Stateful.DB().Version(),
		Synced:        h.Stateful.Synced(),
		SyncAvoided:   h.Stateful.Avoided(),
		Created:       st.Created,
		Updated:       now,
	})
}

// Session returns the current session and its handlers, or nil.
func (p *Peer) Session() (*session.Session, *Handlers) {
	return p.current, p.handlers
}

// DB returns the LSP database of the peer. It is shared by successive sessions.
func (p *Peer) DB() *table.LSPDB {
	return p.db
}

// call runs fn on the bus goroutine and waits for its result.
func (p *Peer) call(ctx context.Context, fn func() error) error {
	if p.bus == nil {
		return ErrStopped
	}
	result := make(chan error, 1)
	p.bus.After(0, func() { result <- fn() })
	select {
	case err := <-result:
		return err
	case <-p.bus.Done():
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Peer) stateful() (*StatefulHandler, error) {
	if p.handlers == nil || p.handlers.Opener.State() != OpenUp {
		return nil, ErrNotUp
	}
	return p.handlers.Stateful, nil
}

// WaitUp blocks until a session is open. Safe from any goroutine.
func (p *Peer) WaitUp(ctx context.Context) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		err := p.call(ctx, func() error {
			if p.handlers == nil || p.handlers.Opener.State() != OpenUp {
				return ErrNotUp
			}
			return nil
		})
		if !errors.Is(err, ErrNotUp) {
			return err
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Update asks the PCC to move a delegated LSP onto a new path. Safe from any goroutine.
func (p *Peer) Update(ctx context.Context, name string, ero []netip.Addr) error {
	return p.call(ctx, func() error {
		h, err := p.stateful()
		if err != nil {
			return err
		}
		return h.Update(name, ero)
	})
}

// Initiate asks the PCC to create an LSP. Safe from any goroutine.
func (p *Peer) Initiate(ctx context.Context, name string, src netip.Addr, dst netip.Addr, ero []netip.Addr) error {
	return p.call(ctx, func() error {
		h, err := p.stateful()
		if err != nil {
			return err
		}
		return h.Initiate(name, src, dst, ero)
	})
}

// RemoveLSP asks the PCC to delete an LSP this PCE initiated. Safe from any goroutine.
func (p *Peer) RemoveLSP(ctx context.Context, name string) error {
	return p.call(ctx, func() error {
		h, err := p.stateful()
		if err != nil {
			return err
		}
		return h.Remove(name)
	})
}

// Request sends a PCReq and waits for the reply. Safe from any goroutine.
func (p *Peer) Request(ctx context.Context, src netip.Addr, dst netip.Addr) (Reply, error) {
	replies := make(chan Reply, 1)
	errs := make(chan error, 1)
	err := p.call(ctx, func() error {
		if p.handlers == nil || p.handlers.Opener.State() != OpenUp {
			return ErrNotUp
		}
		return p.handlers.Computer.Request(src, dst, func(r Reply, err error) {
			if err != nil {
				errs <- err
				return
			}
			replies <- r
		})
	})
	if err != nil {
		return Reply{}, err
	}
	select {
	case r := <-replies:
		return r, nil
	case err := <-errs:
		return Reply{}, err
	case <-p.bus.Done():
		return Reply{}, ErrStopped
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

// Stop closes the session with a Close message and stops dialing or listening. Safe from any goroutine.
func (p *Peer) Stop(ctx context.Context) error {
	return p.call(ctx, func() error {
		p.stopped = true
		if p.redial != nil {
			p.redial.Stop()
			p.redial = nil
		}
		if p.listener != nil {
			p.listener.Close()
		}
		if p.current != nil {
			if p.handlers.Opener.State() == OpenUp {
				send(p.current, pcep.NewClose(pcep.CloseNoReason))
			}
			p.current.Close()
		}
		return nil
	})
}
