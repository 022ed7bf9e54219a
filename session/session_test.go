/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package session_test

import (
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/pcepsim/pcepd/bus"
	"github.com/pcepsim/pcepd/pcep"
	"github.com/pcepsim/pcepd/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events chan session.Event
	decide func(ev *session.Event) session.Outcome
}

func newRecorder() *recorder {
	return &recorder{events: make(chan session.Event, 64)}
}

func (r *recorder) HandleEvent(ev *session.Event) session.Outcome {
	cp := *ev
	cp.Bytes = nil
	r.events <- cp
	if r.decide != nil {
		return r.decide(ev)
	}
	return session.Proceed
}

func (r *recorder) Deadline() time.Time {
	return time.Time{}
}

func (r *recorder) waitFor(t *testing.T, kind session.EventKind) session.Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-r.events:
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("no %s event", kind)
			return session.Event{}
		}
	}
}

func startBus(t *testing.T) *bus.Bus {
	b, err := bus.New(bus.Config{MaxWait: 20 * time.Millisecond, MaxReconcileRounds: 16})
	require.NoError(t, err)
	go b.Run()
	t.Cleanup(func() {
		b.Stop()
		<-b.Done()
	})
	return b
}

// rawPeer returns a session on the bus and the other end of its socket pair.
func rawPeer(t *testing.T, b *bus.Bus, r *recorder) (*session.Session, int) {
	fds, err := bus.SocketPair()
	require.NoError(t, err)
	t.Cleanup(func() { bus.CloseFd(fds[1]) })
	s := session.Accepted(session.Options{Name: "raw"}, fds[0], netip.AddrPort{}, r)
	b.Add(s)
	r.waitFor(t, session.EventConnected)
	return s, fds[1]
}

func writeAll(t *testing.T, fd int, data []byte) {
	for len(data) > 0 {
		n, err := bus.Write(fd, data)
		require.NoError(t, err)
		data = data[n:]
	}
}

func TestPairExchange(t *testing.T) {
	b := startBus(t)
	ra, rb := newRecorder(), newRecorder()
	a, c, err := session.Pair(session.Options{Name: "a"}, ra, session.Options{Name: "b"}, rb)
	require.NoError(t, err)
	b.Add(a)
	b.Add(c)
	ra.waitFor(t, session.EventConnected)
	rb.waitFor(t, session.EventConnected)

	require.NoError(t, a.Send(pcep.NewOpen(pcep.NewOpenObject(30, 120, 1))))
	require.NoError(t, a.Send(pcep.NewKeepalive()))

	ev := rb.waitFor(t, session.EventMessage)
	assert.Equal(t, pcep.MsgOpen, ev.Message.Type())
	assert.False(t, ev.Message.Received.IsZero())
	open := ev.Message.Find(pcep.KindOpen)
	require.NotNil(t, open)
	assert.Equal(t, uint64(120), open.Body.Get(pcep.OpenDeadtimer))

	ev = rb.waitFor(t, session.EventMessage)
	assert.Equal(t, pcep.MsgKeepalive, ev.Message.Type())
	tx := ra.waitFor(t, session.EventTransmitted)
	assert.Equal(t, pcep.MsgOpen, tx.Message.Type())
}

func TestPartialFrames(t *testing.T) {
	b := startBus(t)
	r := newRecorder()
	_, fd := rawPeer(t, b, r)

	frame := []byte{0x20, 0x01, 0x00, 0x0C, 0x01, 0x10, 0x00, 0x08, 0x20, 0x00, 0x64, 0x00}
	for _, chunk := range [][]byte{frame[:1], frame[1:3], frame[3:7], frame[7:]} {
		writeAll(t, fd, chunk)
		time.Sleep(5 * time.Millisecond)
	}

	ev := r.waitFor(t, session.EventMessage)
	assert.Equal(t, pcep.MsgOpen, ev.Message.Type())
	assert.True(t, ev.Message.Valid())
	assert.Equal(t, frame, ev.Message.Encode())
}

func TestFramingErrorResync(t *testing.T) {
	b := startBus(t)
	r := newRecorder()
	r.decide = func(ev *session.Event) session.Outcome {
		if ev.Kind == session.EventFramingError {
			return session.Cancel
		}
		return session.Proceed
	}
	s, fd := rawPeer(t, b, r)

	writeAll(t, fd, []byte{0x00, 0x02, 0x00, 0x04, 0x20, 0x02, 0x00, 0x04})

	ev := r.waitFor(t, session.EventFramingError)
	var ferr *session.FramingError
	require.True(t, errors.As(ev.Err, &ferr))
	assert.ErrorIs(t, ev.Err, pcep.ErrBadVersion)
	assert.Equal(t, uint8(0), ferr.Header.Version)

	ev = r.waitFor(t, session.EventMessage)
	assert.Equal(t, pcep.MsgKeepalive, ev.Message.Type())
	assert.Equal(t, session.StateEstablished, s.State())
}

func TestFramingErrorCloses(t *testing.T) {
	b := startBus(t)
	r := newRecorder()
	s, fd := rawPeer(t, b, r)

	writeAll(t, fd, []byte{0x20, 0x02, 0x00, 0x05})

	ev := r.waitFor(t, session.EventFramingError)
	assert.ErrorIs(t, ev.Err, pcep.ErrBadLength)
	r.waitFor(t, session.EventClosing)
	r.waitFor(t, session.EventClosed)
	assert.Equal(t, session.StateClosed, s.State())
	assert.ErrorIs(t, s.Send(pcep.NewKeepalive()), session.ErrSessionClosed)
}

func TestPreTransmitCancel(t *testing.T) {
	b := startBus(t)
	ra, rb := newRecorder(), newRecorder()
	ra.decide = func(ev *session.Event) session.Outcome {
		if ev.Kind == session.EventPreTransmit && ev.Message.Type() == pcep.MsgKeepalive {
			return session.Cancel
		}
		return session.Proceed
	}
	a, c, err := session.Pair(session.Options{Name: "a"}, ra, session.Options{Name: "b"}, rb)
	require.NoError(t, err)
	b.Add(a)
	b.Add(c)
	rb.waitFor(t, session.EventConnected)

	require.NoError(t, a.Send(pcep.NewKeepalive()))
	require.NoError(t, a.Send(pcep.NewClose(pcep.CloseNoReason)))

	ev := rb.waitFor(t, session.EventMessage)
	assert.Equal(t, pcep.MsgClose, ev.Message.Type())
}

func TestPeerHangup(t *testing.T) {
	b := startBus(t)
	r := newRecorder()
	fds, err := bus.SocketPair()
	require.NoError(t, err)
	s := session.Accepted(session.Options{Name: "hangup"}, fds[0], netip.AddrPort{}, r)
	b.Add(s)
	r.waitFor(t, session.EventConnected)

	bus.CloseFd(fds[1])
	ev := r.waitFor(t, session.EventSocketError)
	assert.ErrorIs(t, ev.Err, bus.ErrClosed)
	r.waitFor(t, session.EventClosed)
}

func TestDetachedSession(t *testing.T) {
	r := newRecorder()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := session.New(session.Options{Name: "sim", Clock: func() time.Time { return now }}, r)

	s.Start()
	assert.Equal(t, session.EventConnected, (<-r.events).Kind)
	assert.Equal(t, session.StateEstablished, s.State())

	require.NoError(t, s.Send(pcep.NewKeepalive()))
	out := s.Drain()
	require.Len(t, out, 1)
	assert.Equal(t, pcep.MsgKeepalive, out[0].Type())
	assert.Empty(t, s.Drain())

	s.Deliver(pcep.NewKeepalive())
	ev := <-r.events
	assert.Equal(t, session.EventMessage, ev.Kind)
	assert.Equal(t, now, ev.Message.Received)
	assert.Equal(t, now, ev.Time)
	assert.NotNil(t, s.Receive())
	assert.Nil(t, s.Receive())
	assert.Equal(t, uint64(1), s.Stats().MessagesIn)

	s.Close()
	assert.Equal(t, session.EventClosing, (<-r.events).Kind)
	assert.Equal(t, session.EventClosed, (<-r.events).Kind)
	assert.Equal(t, session.StateClosed, s.State())
}

func TestInboundQueueBound(t *testing.T) {
	s := session.New(session.Options{Name: "bounded", InboundQueue: 2}, nil)
	s.Start()
	s.Deliver(pcep.NewOpen(pcep.NewOpenObject(30, 120, 1)))
	s.Deliver(pcep.NewKeepalive())
	s.Deliver(pcep.NewClose(pcep.CloseNoReason))
	assert.Equal(t, pcep.MsgKeepalive, s.Receive().Type())
	assert.Equal(t, pcep.MsgClose, s.Receive().Type())
	assert.Nil(t, s.Receive())
}
