/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

// Package mgmt serves the status of the daemon over HTTP and WebSocket.
package mgmt

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pcepsim/pcepd/bus/impl"
	"github.com/pcepsim/pcepd/core"
)

// Config contains management configuration.
type Config struct {
	Enabled  bool
	Bind     string
	Interval time.Duration
}

// DefaultConfig reads the management configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:  core.GetConfigBoolDefault("mgmt.enabled", false),
		Bind:     core.GetConfigStringDefault("mgmt.bind", "127.0.0.1:8189"),
		Interval: core.GetConfigMillisDefault("mgmt.interval_ms", time.Second),
	}
}

// Thread represents the management server.
type Thread struct {
	cfg      Config
	server   http.Server
	upgrader websocket.Upgrader
	listener net.Listener
	quit     chan struct{}

	mu      sync.Mutex
	feeds   sync.WaitGroup
	stopped bool
}

// MakeMgmtThread creates a management server. Nothing is bound until Listen.
func MakeMgmtThread(cfg Config) *Thread {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	m := &Thread{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			WriteBufferPool: &sync.Pool{},
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		quit: make(chan struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/status", m.handleStatus)
	mux.HandleFunc("/ws", m.handleFeed)
	m.server.Handler = mux
	return m
}

func (m *Thread) String() string {
	return "Management"
}

// Handler returns the request router of the server.
func (m *Thread) Handler() http.Handler {
	return m.server.Handler
}

// register counts a live feed. It fails once Shutdown has begun.
func (m *Thread) register() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return false
	}
	m.feeds.Add(1)
	return true
}

// Listen binds the management socket.
func (m *Thread) Listen() error {
	lc := net.ListenConfig{Control: impl.SyscallReuseAddr}
	ln, err := lc.Listen(context.Background(), "tcp", m.cfg.Bind)
	if err != nil {
		return err
	}
	m.listener = ln
	core.LogInfo(m, "Listening on ", ln.Addr())
	return nil
}

// Addr returns the bound address.
func (m *Thread) Addr() net.Addr {
	if m.listener == nil {
		return nil
	}
	return m.listener.Addr()
}

// Run serves requests until Shutdown.
func (m *Thread) Run() error {
	if m.listener == nil {
		if err := m.Listen(); err != nil {
			return err
		}
	}
	err := m.server.Serve(m.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server and closes every live feed.
func (m *Thread) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if !m.stopped {
		m.stopped = true
		close(m.quit)
	}
	m.mu.Unlock()
	err := m.server.Shutdown(ctx)
	m.feeds.Wait()
	core.LogInfo(m, "Stopped")
	return err
}
