/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package bus

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pcepsim/pcepd/core"
	"github.com/pcepsim/pcepd/utils/comparison"
	"github.com/pcepsim/pcepd/utils/priority_queue"
	"golang.org/x/sys/unix"
)

// Conn is a connection multiplexed by the bus. Every method except String is called on the bus goroutine.
type Conn interface {
	String() string
	// Fd returns the descriptor to poll, or -1 if there is none yet.
	Fd() int
	// Open is called once, at the first reconciliation after Add. An error releases the connection.
	Open(b *Bus) error
	// WantsWrite reports whether the connection has output pending.
	WantsWrite() bool
	OnReadable()
	OnWritable()
	OnExceptional()
	// Deadline returns the next time OnTimeout should be called. The zero time means none.
	Deadline() time.Time
	OnTimeout(now time.Time)
	// Closing reports whether the connection asked to be released.
	Closing() bool
	// Release is called once, at the reconciliation after Closing becomes true.
	Release()
}

// Config holds the tunables of a bus.
type Config struct {
	// MaxWait caps a single poll so that stop requests and new timers stay responsive.
	MaxWait time.Duration
	// MaxReconcileRounds bounds the open/release passes of one reconciliation.
	MaxReconcileRounds int
}

// DefaultConfig reads the bus configuration.
func DefaultConfig() Config {
	return Config{
		MaxWait:            core.GetConfigMillisDefault("bus.max_wait_ms", time.Second),
		MaxReconcileRounds: core.GetConfigIntDefault("bus.max_reconcile_rounds", 16),
	}
}

// Bus drives every connection from a single goroutine with a poll loop.
type Bus struct {
	cfg   Config
	wake  *wakePipe
	conns []Conn

	mu      sync.Mutex
	pending []Conn
	timers  priority_queue.Queue[*Timer, int64]

	running atomic.Bool
	stopped atomic.Bool
	done    chan struct{}
}

// Timer is a callback scheduled on the bus goroutine.
type Timer struct {
	b    *Bus
	fn   func()
	item *priority_queue.Item[*Timer, int64]
}

// New creates a bus.
func New(cfg Config) (*Bus, error) {
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = time.Second
	}
	if cfg.MaxReconcileRounds <= 0 {
		cfg.MaxReconcileRounds = 16
	}
	wake, err := newWakePipe()
	if err != nil {
		return nil, err
	}
	return &Bus{
		cfg:    cfg,
		wake:   wake,
		timers: priority_queue.New[*Timer, int64](),
		done:   make(chan struct{}),
	}, nil
}

func (b *Bus) String() string {
	return "Bus"
}

// Add hands a connection to the bus. It is opened at the next reconciliation. Safe from any goroutine.
func (b *Bus) Add(c Conn) {
	b.mu.Lock()
	b.pending = append(b.pending, c)
	b.mu.Unlock()
	b.Hail()
}

// After schedules fn on the bus goroutine after d. Safe from any goroutine.
func (b *Bus) After(d time.Duration, fn func()) *Timer {
	t := &Timer{b: b, fn: fn}
	b.mu.Lock()
	t.item = b.timers.Push(t, time.Now().Add(d).UnixNano())
	b.mu.Unlock()
	b.Hail()
	return t
}

// Stop cancels the timer. It returns false if the timer already fired or was stopped.
func (t *Timer) Stop() bool {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	return t.b.timers.Remove(t.item)
}

// Hail interrupts the poll wait. Safe from any goroutine.
func (b *Bus) Hail() {
	b.wake.hail()
}

// Stop makes Run return after the current iteration. Safe from any goroutine.
func (b *Bus) Stop() {
	b.stopped.Store(true)
	b.Hail()
}

// Done is closed when Run returns.
func (b *Bus) Done() <-chan struct{} {
	return b.done
}

// Len returns the number of open connections. Only meaningful on the bus goroutine.
func (b *Bus) Len() int {
	return len(b.conns)
}

// Run executes the poll loop until Stop is called or an unrecoverable error occurs.
// Every open connection is released before Run returns.
func (b *Bus) Run() error {
	if !b.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(b.done)
	defer b.shutdown()

	core.LogInfo(b, "Starting poll loop")
	var fds []unix.PollFd
	var polled []Conn
	for !b.stopped.Load() {
		if err := b.reconcile(); err != nil {
			return err
		}

		now := time.Now()
		wait := b.timeout(now)

		fds = fds[:0]
		polled = polled[:0]
		fds = append(fds, unix.PollFd{Fd: int32(b.wake.r), Events: unix.POLLIN})
		for _, c := range b.conns {
			fd := c.Fd()
			if fd < 0 {
				continue
			}
			events := int16(unix.POLLIN | unix.POLLPRI)
			if c.WantsWrite() {
				events |= unix.POLLOUT
			}
			fds = append(fds, unix.PollFd{Fd: int32(fd), Events: events})
			polled = append(polled, c)
		}

		_, err := unix.Poll(fds, int((wait+time.Millisecond-1)/time.Millisecond))
		if err != nil && !errors.Is(err, unix.EINTR) {
			return socketError("poll", err)
		}
		if fds[0].Revents != 0 {
			b.wake.drain()
		}

		b.dispatch(fds[1:], polled)
		b.fireTimeouts(time.Now())

		if err := b.reconcile(); err != nil {
			return err
		}
	}
	core.LogInfo(b, "Poll loop stopped")
	return nil
}

func (b *Bus) dispatch(fds []unix.PollFd, polled []Conn) {
	const exceptional = unix.POLLERR | unix.POLLNVAL | unix.POLLPRI
	for i, c := range polled {
		if fds[i].Revents&exceptional != 0 && !c.Closing() {
			c.OnExceptional()
		}
	}
	for i, c := range polled {
		if fds[i].Revents&unix.POLLOUT != 0 && !c.Closing() {
			c.OnWritable()
		}
	}
	for i, c := range polled {
		if fds[i].Revents&(unix.POLLIN|unix.POLLHUP) != 0 && !c.Closing() {
			c.OnReadable()
		}
	}
}

// timeout returns how long the next poll may wait: the cap, or less if a deadline comes first.
func (b *Bus) timeout(now time.Time) time.Duration {
	wait := b.cfg.MaxWait
	for _, c := range b.conns {
		if d := c.Deadline(); !d.IsZero() {
			wait = comparison.Min(wait, d.Sub(now))
		}
	}
	b.mu.Lock()
	if b.timers.Len() > 0 {
		wait = comparison.Min(wait, time.Duration(b.timers.PeekPriority()-now.UnixNano()))
	}
	b.mu.Unlock()
	return comparison.Max(wait, 0)
}

func (b *Bus) fireTimeouts(now time.Time) {
	for _, c := range b.conns {
		if c.Closing() {
			continue
		}
		if d := c.Deadline(); !d.IsZero() && !d.After(now) {
			c.OnTimeout(now)
		}
	}
	for {
		b.mu.Lock()
		if b.timers.Len() == 0 || b.timers.PeekPriority() > now.UnixNano() {
			b.mu.Unlock()
			return
		}
		t := b.timers.Pop()
		b.mu.Unlock()
		t.fn()
	}
}

// reconcile opens added connections and releases closing ones until the set is stable.
func (b *Bus) reconcile() error {
	for round := 0; ; round++ {
		b.mu.Lock()
		pending := b.pending
		b.pending = nil
		b.mu.Unlock()

		if round >= b.cfg.MaxReconcileRounds {
			return fmt.Errorf("%w after %d rounds (%d pending)", ErrReconcileLimit, round, len(pending))
		}

		changed := len(pending) > 0
		for _, c := range pending {
			if err := c.Open(b); err != nil {
				core.LogWarn(b, "Unable to open ", c, ": ", err)
				c.Release()
				continue
			}
			b.conns = append(b.conns, c)
		}

		kept := b.conns[:0]
		for _, c := range b.conns {
			if c.Closing() {
				core.LogDebug(b, "Releasing ", c)
				c.Release()
				changed = true
				continue
			}
			kept = append(kept, c)
		}
		for i := len(kept); i < len(b.conns); i++ {
			b.conns[i] = nil
		}
		b.conns = kept

		if !changed {
			return nil
		}
	}
}

func (b *Bus) shutdown() {
	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()
	for _, c := range pending {
		c.Release()
	}
	for _, c := range b.conns {
		c.Release()
	}
	b.conns = nil
	b.wake.close()
}
