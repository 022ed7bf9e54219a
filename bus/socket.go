/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package bus

import (
	"errors"
	"net/netip"

	"github.com/pcepsim/pcepd/bus/impl"
	"golang.org/x/sys/unix"
)

func sockaddr(ap netip.AddrPort) (unix.Sockaddr, int) {
	addr := ap.Addr().Unmap()
	if addr.Is4() {
		return &unix.SockaddrInet4{Port: int(ap.Port()), Addr: addr.As4()}, unix.AF_INET
	}
	return &unix.SockaddrInet6{Port: int(ap.Port()), Addr: addr.As16()}, unix.AF_INET6
}

func addrPort(sa unix.Sockaddr) netip.AddrPort {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(a.Addr), uint16(a.Port))
	case *unix.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(a.Addr), uint16(a.Port))
	default:
		return netip.AddrPort{}
	}
}

func stream(family int) (int, error) {
	fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, socketError("socket", err)
	}
	unix.CloseOnExec(fd)
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, socketError("socket", err)
	}
	return fd, nil
}

// Listen opens a non-blocking TCP listening socket and returns it with its bound address.
func Listen(local netip.AddrPort) (int, netip.AddrPort, error) {
	sa, family := sockaddr(local)
	fd, err := stream(family)
	if err != nil {
		return -1, netip.AddrPort{}, err
	}
	if err := impl.SetReuseAddr(fd); err != nil {
		unix.Close(fd)
		return -1, netip.AddrPort{}, socketError("listen", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, netip.AddrPort{}, socketError("bind", err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return -1, netip.AddrPort{}, socketError("listen", err)
	}
	bound, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return -1, netip.AddrPort{}, socketError("listen", err)
	}
	return fd, addrPort(bound), nil
}

// Dial starts a non-blocking connect. Completion is reported by the socket becoming writable,
// after which ConnectResult returns the outcome. A valid local address binds the socket first.
func Dial(local netip.AddrPort, remote netip.AddrPort) (int, error) {
	rsa, family := sockaddr(remote)
	fd, err := stream(family)
	if err != nil {
		return -1, err
	}
	if local.IsValid() {
		lsa, _ := sockaddr(local)
		_ = impl.SetReuseAddr(fd)
		if err := unix.Bind(fd, lsa); err != nil {
			unix.Close(fd)
			return -1, socketError("bind", err)
		}
	}
	_ = impl.SetNoDelay(fd)
	err = unix.Connect(fd, rsa)
	if err != nil && !errors.Is(err, unix.EINPROGRESS) {
		unix.Close(fd)
		return -1, socketError("connect", err)
	}
	return fd, nil
}

// ConnectResult returns the outcome of a non-blocking connect.
func ConnectResult(fd int) error {
	return socketError("connect", impl.PendingError(fd))
}

// Accept accepts one pending connection. It returns -1 without error if none is pending.
func Accept(fd int) (int, netip.AddrPort, error) {
	nfd, sa, err := unix.Accept(fd)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR) {
			return -1, netip.AddrPort{}, nil
		}
		return -1, netip.AddrPort{}, socketError("accept", err)
	}
	unix.CloseOnExec(nfd)
	if err := unix.SetNonblock(nfd, true); err != nil {
		unix.Close(nfd)
		return -1, netip.AddrPort{}, socketError("accept", err)
	}
	_ = impl.SetNoDelay(nfd)
	return nfd, addrPort(sa), nil
}

// SocketPair creates a connected pair of non-blocking local stream sockets.
func SocketPair() ([2]int, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return fds, socketError("socketpair", err)
	}
	for _, fd := range fds {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(fds[0])
			unix.Close(fds[1])
			return fds, socketError("socketpair", err)
		}
	}
	return fds, nil
}

// Read reads what is available. It returns 0 without error when the read would block,
// and ErrClosed when the peer has closed the stream.
func Read(fd int, buf []byte) (int, error) {
	n, err := unix.Read(fd, buf)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, socketError("read", err)
	}
	if n == 0 && len(buf) > 0 {
		return 0, socketError("read", ErrClosed)
	}
	return n, nil
}

// Write writes what the socket accepts. It returns 0 without error when the write would block.
func Write(fd int, buf []byte) (int, error) {
	n, err := unix.Write(fd, buf)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, socketError("send", err)
	}
	return n, nil
}

// CloseFd closes a raw socket.
func CloseFd(fd int) {
	if fd >= 0 {
		unix.Close(fd)
	}
}
