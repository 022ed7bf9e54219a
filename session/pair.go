/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package session

import (
	"net/netip"

	"github.com/pcepsim/pcepd/bus"
)

// Pair creates two sessions connected to each other over a local socket pair.
// Both must be added to a bus.
func Pair(a Options, sinkA Sink, b Options, sinkB Sink) (*Session, *Session, error) {
	fds, err := bus.SocketPair()
	if err != nil {
		return nil, nil, err
	}
	return Accepted(a, fds[0], netip.AddrPort{}, sinkA), Accepted(b, fds[1], netip.AddrPort{}, sinkB), nil
}
