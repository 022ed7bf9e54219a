/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package bus

import (
	"net/netip"
	"time"

	"github.com/pcepsim/pcepd/core"
)

// AcceptFunc receives an accepted socket. It owns the descriptor from then on.
type AcceptFunc func(fd int, remote netip.AddrPort)

// Listener is a bus connection accepting TCP streams on a local address.
type Listener struct {
	local    netip.AddrPort
	bound    netip.AddrPort
	fd       int
	onAccept AcceptFunc
	closing  bool
}

// NewListener creates a listener. The socket is opened when the listener joins a bus.
func NewListener(local netip.AddrPort, onAccept AcceptFunc) *Listener {
	return &Listener{local: local, fd: -1, onAccept: onAccept}
}

func (l *Listener) String() string {
	if l.bound.IsValid() {
		return "Listener, " + l.bound.String()
	}
	return "Listener, " + l.local.String()
}

// Addr returns the bound address, which differs from the requested one if port 0 was asked for.
func (l *Listener) Addr() netip.AddrPort {
	return l.bound
}

// Close asks the bus to release the listener.
func (l *Listener) Close() {
	l.closing = true
}

func (l *Listener) Fd() int {
	return l.fd
}

func (l *Listener) Open(b *Bus) error {
	fd, bound, err := Listen(l.local)
	if err != nil {
		return err
	}
	l.fd = fd
	l.bound = bound
	core.LogInfo(l, "Listening")
	return nil
}

func (l *Listener) WantsWrite() bool {
	return false
}

func (l *Listener) OnReadable() {
	for !l.closing {
		nfd, remote, err := Accept(l.fd)
		if err != nil {
			core.LogWarn(l, "Unable to accept: ", err)
			return
		}
		if nfd < 0 {
			return
		}
		core.LogDebug(l, "Accepted connection from ", remote)
		l.onAccept(nfd, remote)
	}
}

func (l *Listener) OnWritable() {}

func (l *Listener) OnExceptional() {
	core.LogError(l, "Listening socket failed: ", ConnectResult(l.fd))
	l.closing = true
}

func (l *Listener) Deadline() time.Time {
	return time.Time{}
}

func (l *Listener) OnTimeout(now time.Time) {}

func (l *Listener) Closing() bool {
	return l.closing
}

func (l *Listener) Release() {
	CloseFd(l.fd)
	l.fd = -1
	core.LogInfo(l, "Stopped listening")
}
