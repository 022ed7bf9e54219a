//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd || illumos || solaris || android || aix

/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package impl

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// SyscallReuseAddr sets SO_REUSEADDR on Unix-like platforms. It matches the net.ListenConfig Control signature.
func SyscallReuseAddr(network string, address string, c syscall.RawConn) error {
	var err error
	ctrlErr := c.Control(func(fd uintptr) {
		err = SetReuseAddr(int(fd))
	})
	if ctrlErr != nil {
		return ctrlErr
	}
	return err
}

// SetReuseAddr sets SO_REUSEADDR on a raw socket.
func SetReuseAddr(fd int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
}

// SetNoDelay disables Nagle's algorithm on a raw TCP socket.
func SetNoDelay(fd int) error {
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
}

// PendingError returns and clears the pending error of a socket, e.g. the result of a non-blocking connect.
func PendingError(fd int) error {
	errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if errno != 0 {
		return unix.Errno(errno)
	}
	return nil
}
