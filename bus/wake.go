/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package bus

import (
	"sync"

	"golang.org/x/sys/unix"
)

// wakePipe interrupts a poll from another goroutine by making a pipe readable.
type wakePipe struct {
	mu sync.RWMutex
	r  int
	w  int
}

func newWakePipe() (*wakePipe, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return nil, socketError("pipe", err)
	}
	for _, fd := range fds {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(fds[0])
			unix.Close(fds[1])
			return nil, socketError("pipe", err)
		}
	}
	return &wakePipe{r: fds[0], w: fds[1]}, nil
}

// hail never blocks. A full pipe already guarantees a wakeup.
func (p *wakePipe) hail() {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.w >= 0 {
		_, _ = unix.Write(p.w, []byte{1})
	}
}

func (p *wakePipe) drain() {
	var buf [64]byte
	for {
		n, err := unix.Read(p.r, buf[:])
		if err != nil || n < len(buf) {
			return
		}
	}
}

func (p *wakePipe) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	unix.Close(p.r)
	unix.Close(p.w)
	p.r, p.w = -1, -1
}
