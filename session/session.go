/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package session

import (
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pcepsim/pcepd/bus"
	"github.com/pcepsim/pcepd/core"
	"github.com/pcepsim/pcepd/pcep"
)

// State is the transport state of a session.
type State int32

// Session states.
const (
	StateConnecting State = iota
	StateEstablished
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateEstablished:
		return "Established"
	case StateClosing:
		return "Closing"
	default:
		return "Closed"
	}
}

// Options configure a session.
type Options struct {
	// Name identifies the session in logs.
	Name string
	// InboundQueue bounds the FIFO of received messages. The oldest message is dropped when full.
	InboundQueue int
	// Pool provides the receive buffer. Nil uses heap memory.
	Pool *Pool
	// Clock returns the current time. Nil uses time.Now.
	Clock func() time.Time
}

// DefaultOptions reads the session configuration.
func DefaultOptions(name string) Options {
	return Options{
		Name:         name,
		InboundQueue: core.GetConfigIntDefault("session.inbound_queue", 64),
		Pool:         DefaultPool(),
	}
}

// Stats are the counters of a session.
type Stats struct {
	MessagesIn    uint64
	MessagesOut   uint64
	BytesIn       uint64
	BytesOut      uint64
	FramingErrors uint64
	Created       time.Time
	Connected     time.Time
	LastRx        time.Time
	LastTx        time.Time
}

// Session frames PCEP messages over one stream socket. Except for Send, RequestClose, State and ID,
// every method runs on the bus goroutine.
type Session struct {
	id     uuid.UUID
	opts   Options
	local  netip.AddrPort
	remote netip.AddrPort
	sink   Sink

	fd      int
	dial    bool
	stream  bool
	bus     atomic.Pointer[bus.Bus]
	state   atomic.Int32
	closeRq atomic.Bool

	rbuf   []byte
	rlen   int
	expect int

	wbuf []byte
	woff int
	wmsg *pcep.Message

	mu       sync.Mutex
	outbound []*pcep.Message

	inbound []*pcep.Message
	stats   Stats
}

func newSession(opts Options, sink Sink) *Session {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.InboundQueue <= 0 {
		opts.InboundQueue = 64
	}
	s := &Session{
		id:     uuid.New(),
		opts:   opts,
		sink:   sink,
		fd:     -1,
		expect: pcep.MessageHeaderSize,
	}
	s.stats.Created = opts.Clock()
	return s
}

// New creates a session without a transport. It only queues outbound messages; inbound
// messages are injected with Deliver. Start raises EventConnected.
func New(opts Options, sink Sink) *Session {
	return newSession(opts, sink)
}

// Dial creates a session that connects to remote when added to a bus.
func Dial(opts Options, local netip.AddrPort, remote netip.AddrPort, sink Sink) *Session {
	s := newSession(opts, sink)
	s.local = local
	s.remote = remote
	s.dial = true
	s.stream = true
	return s
}

// Accepted creates a session over an accepted socket. The session owns fd.
func Accepted(opts Options, fd int, remote netip.AddrPort, sink Sink) *Session {
	s := newSession(opts, sink)
	s.fd = fd
	s.remote = remote
	s.stream = true
	return s
}

func (s *Session) String() string {
	return fmt.Sprintf("Session, %s, ID=%s", s.opts.Name, s.id.String()[:8])
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Name returns the name given at creation.
func (s *Session) Name() string {
	return s.opts.Name
}

// Remote returns the remote endpoint, if known.
func (s *Session) Remote() netip.AddrPort {
	return s.remote
}

// State returns the transport state. Safe from any goroutine.
func (s *Session) State() State {
	return State(s.state.Load())
}

// SetSink replaces the event sink.
func (s *Session) SetSink(sink Sink) {
	s.sink = sink
}

// Now returns the session clock.
func (s *Session) Now() time.Time {
	return s.opts.Clock()
}

// Stats returns a copy of the counters.
func (s *Session) Stats() Stats {
	return s.stats
}

// Send queues a message for transmission. Safe from any goroutine.
func (s *Session) Send(m *pcep.Message) error {
	if s.State() >= StateClosing {
		return ErrSessionClosed
	}
	s.mu.Lock()
	s.outbound = append(s.outbound, m)
	s.mu.Unlock()
	if b := s.bus.Load(); b != nil {
		b.Hail()
	}
	return nil
}

// Drain removes and returns the queued outbound messages that have not been serialized yet.
func (s *Session) Drain() []*pcep.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.outbound
	s.outbound = nil
	return out
}

// Receive removes and returns the oldest received message, or nil.
func (s *Session) Receive() *pcep.Message {
	if len(s.inbound) == 0 {
		return nil
	}
	m := s.inbound[0]
	s.inbound[0] = nil
	s.inbound = s.inbound[1:]
	return m
}

// Raise dispatches an event to the sink. Handlers use it for events of their own, such as EventOpened.
func (s *Session) Raise(kind EventKind) Outcome {
	return s.raise(&Event{Kind: kind})
}

func (s *Session) raise(ev *Event) Outcome {
	ev.Session = s
	if ev.Time.IsZero() {
		ev.Time = s.Now()
	}
	core.LogTrace(s, "Event ", ev.Kind)
	if s.sink == nil {
		return Proceed
	}
	return s.sink.HandleEvent(ev)
}

// Close starts closing the session. Queued output is flushed on a best-effort basis when the
// transport is released.
func (s *Session) Close() {
	s.beginClose()
}

// RequestClose asks the bus to close the session at its next reconciliation. Safe from any goroutine.
func (s *Session) RequestClose() {
	s.closeRq.Store(true)
	if b := s.bus.Load(); b != nil {
		b.Hail()
	}
}

func (s *Session) beginClose() {
	if !s.state.CompareAndSwap(int32(StateConnecting), int32(StateClosing)) &&
		!s.state.CompareAndSwap(int32(StateEstablished), int32(StateClosing)) {
		return
	}
	core.LogInfo(s, "Closing")
	s.raise(&Event{Kind: EventClosing})
	if !s.stream {
		s.Release()
	}
}

///////////////////////////////////////////////////////////////////////////////
// Sessions without a transport
///////////////////////////////////////////////////////////////////////////////

// Start marks a session without a transport as connected.
func (s *Session) Start() {
	s.connected()
}

// Deliver processes m as if it had been read from the transport.
func (s *Session) Deliver(m *pcep.Message) {
	s.receive(m, nil)
}

///////////////////////////////////////////////////////////////////////////////
// bus.Conn
///////////////////////////////////////////////////////////////////////////////

func (s *Session) Fd() int {
	return s.fd
}

func (s *Session) Open(b *bus.Bus) error {
	s.bus.Store(b)
	if s.dial {
		fd, err := bus.Dial(s.local, s.remote)
		if err != nil {
			s.raise(&Event{Kind: EventSocketError, Err: err})
			return err
		}
		s.fd = fd
		core.LogInfo(s, "Connecting to ", s.remote)
		return nil
	}
	s.connected()
	return nil
}

func (s *Session) connected() {
	if s.stream && s.rbuf == nil {
		s.rbuf = s.opts.Pool.Get()
	}
	s.state.Store(int32(StateEstablished))
	s.stats.Connected = s.Now()
	core.LogInfo(s, "Connected")
	s.raise(&Event{Kind: EventConnected})
}

func (s *Session) WantsWrite() bool {
	if s.State() == StateConnecting {
		return s.fd >= 0
	}
	if s.wbuf != nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outbound) > 0
}

func (s *Session) OnWritable() {
	if s.State() == StateConnecting {
		if err := bus.ConnectResult(s.fd); err != nil {
			s.fail(err)
			return
		}
		s.connected()
	}
	s.flush()
}

func (s *Session) OnExceptional() {
	err := bus.ConnectResult(s.fd)
	if err == nil {
		err = errors.New("exceptional condition on socket")
	}
	s.fail(err)
}

func (s *Session) fail(err error) {
	core.LogWarn(s, "Socket error: ", err)
	s.raise(&Event{Kind: EventSocketError, Err: err})
	s.beginClose()
}

// flush writes queued messages until the socket would block.
func (s *Session) flush() {
	for s.fd >= 0 {
		if s.wbuf == nil && !s.next() {
			return
		}
		n, err := bus.Write(s.fd, s.wbuf[s.woff:])
		if err != nil {
			s.wbuf, s.wmsg = nil, nil
			s.fail(err)
			return
		}
		if n == 0 {
			return
		}
		s.woff += n
		s.stats.BytesOut += uint64(n)
		if s.woff < len(s.wbuf) {
			continue
		}
		s.stats.MessagesOut++
		s.stats.LastTx = s.Now()
		core.LogDebug(s, "Sent ", s.wmsg)
		ev := &Event{Kind: EventTransmitted, Message: s.wmsg, Bytes: s.wbuf}
		s.wbuf, s.wmsg, s.woff = nil, nil, 0
		s.raise(ev)
	}
}

// next serializes the oldest queued message that is not cancelled.
func (s *Session) next() bool {
	for {
		s.mu.Lock()
		if len(s.outbound) == 0 {
			s.mu.Unlock()
			return false
		}
		m := s.outbound[0]
		s.outbound[0] = nil
		s.outbound = s.outbound[1:]
		s.mu.Unlock()

		buf := m.Encode()
		if s.raise(&Event{Kind: EventPreTransmit, Message: m, Bytes: buf}) == Cancel {
			core.LogDebug(s, "Transmission of ", m, " cancelled")
			continue
		}
		s.wbuf, s.wmsg, s.woff = buf, m, 0
		return true
	}
}

func (s *Session) OnReadable() {
	if s.State() == StateConnecting {
		s.OnWritable()
	}
	for s.State() == StateEstablished {
		n, err := bus.Read(s.fd, s.rbuf[s.rlen:s.expect])
		if err != nil {
			if errors.Is(err, bus.ErrClosed) {
				core.LogInfo(s, "Peer closed the connection")
			}
			s.fail(err)
			return
		}
		if n == 0 {
			return
		}
		s.rlen += n
		s.stats.BytesIn += uint64(n)
		if s.rlen < s.expect {
			continue
		}
		if s.expect == pcep.MessageHeaderSize && !s.header() {
			continue
		}
		if s.rlen == s.expect {
			s.frame()
		}
	}
}

// header validates an accumulated message header and sets the expected frame size.
// It returns false if the header was discarded.
func (s *Session) header() bool {
	hdr, _ := pcep.PeekHeader(s.rbuf[:s.rlen])
	if err := hdr.Validate(); err != nil {
		s.stats.FramingErrors++
		ferr := &FramingError{Header: hdr, Err: err}
		core.LogWarn(s, ferr)
		if s.raise(&Event{Kind: EventFramingError, Err: ferr}) == Cancel {
			s.rlen = 0
			return false
		}
		s.beginClose()
		return false
	}
	s.expect = hdr.Length
	return true
}

func (s *Session) frame() {
	frame := s.rbuf[:s.rlen]
	s.rlen, s.expect = 0, pcep.MessageHeaderSize
	m, err := pcep.DecodeMessage(frame)
	if err != nil {
		core.LogWarn(s, "Unable to decode message: ", err)
		return
	}
	s.receive(m, frame)
}

func (s *Session) receive(m *pcep.Message, frame []byte) {
	m.Received = s.Now()
	s.stats.MessagesIn++
	s.stats.LastRx = m.Received
	if !m.Valid() {
		core.LogWarn(s, "Received malformed ", m)
	} else {
		core.LogDebug(s, "Received ", m)
	}
	if len(s.inbound) >= s.opts.InboundQueue {
		core.LogWarn(s, "Inbound queue full, dropping oldest message")
		s.Receive()
	}
	s.inbound = append(s.inbound, m)
	s.raise(&Event{Kind: EventMessage, Message: m, Bytes: frame, Time: m.Received})
}

func (s *Session) Deadline() time.Time {
	if s.sink == nil || s.State() >= StateClosing {
		return time.Time{}
	}
	return s.sink.Deadline()
}

func (s *Session) OnTimeout(now time.Time) {
	s.raise(&Event{Kind: EventTimeout, Time: now})
}

func (s *Session) Closing() bool {
	if s.closeRq.Load() {
		s.closeRq.Store(false)
		s.beginClose()
	}
	return s.State() >= StateClosing
}

func (s *Session) Release() {
	if s.State() == StateClosed {
		return
	}
	if s.State() != StateConnecting {
		s.flush()
	}
	bus.CloseFd(s.fd)
	s.fd = -1
	if s.rbuf != nil {
		s.opts.Pool.Put(s.rbuf)
		s.rbuf = nil
	}
	s.state.Store(int32(StateClosed))
	core.LogInfo(s, "Closed")
	s.raise(&Event{Kind: EventClosed})
}
