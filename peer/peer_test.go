/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package peer

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/pcepsim/pcepd/bus"
	"github.com/pcepsim/pcepd/pcep"
	"github.com/pcepsim/pcepd/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type simClock struct {
	now time.Time
}

func (c *simClock) Now() time.Time {
	return c.now
}

func (c *simClock) advance(d time.Duration) time.Time {
	c.now = c.now.Add(d)
	return c.now
}

// link connects two sessions without a transport and moves queued messages between them.
type link struct {
	t     *testing.T
	clock *simClock
	a     *session.Session
	b     *session.Session
	sentA []*pcep.Message
	sentB []*pcep.Message
}

func newLink(t *testing.T, sinkA session.Sink, sinkB session.Sink) *link {
	clock := &simClock{now: time.Unix(1700000000, 0)}
	l := &link{t: t, clock: clock}
	l.a = session.New(session.Options{Name: "A", Clock: clock.Now}, sinkA)
	l.b = session.New(session.Options{Name: "B", Clock: clock.Now}, sinkB)
	return l
}

// peerLink attaches two peers to a link.
func peerLink(t *testing.T, cfgA Config, cfgB Config) (*link, *Handlers, *Handlers) {
	l := newLink(t, nil, nil)
	ha := New(cfgA).Attach(l.a)
	hb := New(cfgB).Attach(l.b)
	return l, ha, hb
}

func (l *link) start() {
	l.a.Start()
	l.b.Start()
	l.pump()
}

// pump delivers messages until both sides are quiet.
func (l *link) pump() {
	for i := 0; i < 64; i++ {
		fromA := l.a.Drain()
		l.sentA = append(l.sentA, fromA...)
		for _, m := range fromA {
			if l.b.State() == session.StateEstablished {
				l.b.Deliver(m)
			}
		}
		fromB := l.b.Drain()
		l.sentB = append(l.sentB, fromB...)
		for _, m := range fromB {
			if l.a.State() == session.StateEstablished {
				l.a.Deliver(m)
			}
		}
		if len(fromA) == 0 && len(fromB) == 0 {
			return
		}
	}
	l.t.Fatal("sessions did not settle")
}

func count(msgs []*pcep.Message, t pcep.MessageType) int {
	n := 0
	for _, m := range msgs {
		if m.Type() == t {
			n++
		}
	}
	return n
}

func last(msgs []*pcep.Message) *pcep.Message {
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

func addr(s string) netip.Addr {
	return netip.MustParseAddr(s)
}

func pccConfig(mode Mode) Config {
	cfg := DefaultConfig("pcc")
	cfg.Mode = mode
	cfg.Remote = netip.MustParseAddrPort("192.0.2.2:4189")
	cfg.LSPs = []LSPConfig{
		{Name: "lsp-a", Src: addr("10.0.0.1"), Dst: addr("10.0.0.9"), ERO: []netip.Addr{addr("10.1.0.1"), addr("10.0.0.9")}, Delegated: true},
		{Name: "lsp-b", Src: addr("10.0.0.1"), Dst: addr("10.0.0.8"), ERO: []netip.Addr{addr("10.0.0.8")}},
	}
	return cfg
}

func pceConfig(mode Mode) Config {
	cfg := DefaultConfig("pce")
	cfg.Speaker = PCE
	cfg.Role = Passive
	cfg.Mode = mode
	cfg.Local = netip.MustParseAddrPort("127.0.0.1:0")
	return cfg
}

func TestPeerOverLoopback(t *testing.T) {
	b, err := bus.New(bus.Config{MaxWait: 20 * time.Millisecond, MaxReconcileRounds: 16})
	require.NoError(t, err)
	go b.Run()

	pce := New(pceConfig(StatefulActive))
	pccCfg := pccConfig(StatefulActive)
	pccCfg.ReconnectDelay = time.Hour
	var pcc *Peer
	pce.Start(b)
	b.After(0, func() {
		pccCfg.Remote = pce.Listener().Addr()
		pcc = New(pccCfg)
		pcc.Start(b)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	newPath := []netip.Addr{addr("10.2.0.1"), addr("10.0.0.9")}
	require.Eventually(t, func() bool {
		return pce.Update(ctx, "lsp-a", newPath) == nil
	}, 5*time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, pce.Update(ctx, "lsp-b", newPath), ErrNotDelegated)
	assert.ErrorIs(t, pce.Update(ctx, "lsp-z", newPath), ErrUnknownLSP)

	require.NoError(t, pce.Stop(ctx))
	time.Sleep(100 * time.Millisecond)
	b.Stop()
	<-b.Done()

	assert.Equal(t, newPath, pcc.DB().ByName("lsp-a").ERO)
}

func TestPeerCallAfterStop(t *testing.T) {
	p := New(pccConfig(Stateless))
	_, err := p.Request(context.Background(), addr("10.0.0.1"), addr("10.0.0.9"))
	assert.ErrorIs(t, err, ErrStopped)

	b, err := bus.New(bus.Config{MaxWait: 20 * time.Millisecond, MaxReconcileRounds: 16})
	require.NoError(t, err)
	go b.Run()
	b.Stop()
	<-b.Done()
	p.bus = b
	assert.ErrorIs(t, p.Update(context.Background(), "lsp-a", nil), ErrStopped)
}
