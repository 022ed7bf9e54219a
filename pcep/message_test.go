/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package pcep_test

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/pcepsim/pcepd/pcep"
	"github.com/pcepsim/pcepd/pcep/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeOpenVector(t *testing.T) {
	wireBytes := []byte{0x20, 0x01, 0x00, 0x0C, 0x01, 0x10, 0x00, 0x08, 0x20, 0x00, 0x64, 0x00}
	m, err := pcep.DecodeMessage(wireBytes)
	require.NoError(t, err)
	assert.Equal(t, pcep.MsgOpen, m.Type())
	assert.Equal(t, uint8(1), m.Version())
	assert.Equal(t, 12, m.Length())
	assert.True(t, m.Valid())

	require.Len(t, m.Objects(), 1)
	open := m.Find(pcep.KindOpen)
	require.NotNil(t, open)
	assert.Equal(t, uint64(pcep.ClassOpen), open.Header.Get(pcep.ObjectClass))
	assert.Equal(t, uint64(1), open.Header.Get(pcep.ObjectType))
	assert.Equal(t, 8, open.Length())
	assert.Equal(t, uint64(0), open.Body.Get(pcep.OpenKeepalive))
	assert.Equal(t, uint64(100), open.Body.Get(pcep.OpenDeadtimer))

	assert.Equal(t, wireBytes, m.Encode())
}

func TestDecodeNonConformantVector(t *testing.T) {
	// Version 0 in the header and an OPEN object too short for its body
	wireBytes := []byte{0x01, 0x01, 0x00, 0x0C, 0x01, 0x10, 0x00, 0x04, 0x00, 0x00, 0x00, 0x64}
	m, err := pcep.DecodeMessage(wireBytes)
	require.NoError(t, err)
	assert.Equal(t, pcep.MsgOpen, m.Type())
	assert.Equal(t, uint8(0), m.Version())
	assert.False(t, m.Valid())
	require.Len(t, m.Objects(), 2)
	assert.IsType(t, &wire.Unknown{}, m.Objects()[0])
	assert.IsType(t, &wire.Unknown{}, m.Objects()[1])

	g, err := m.Restructure()
	require.NoError(t, err)
	assert.False(t, g.Valid())

	assert.Equal(t, wireBytes, m.Encode())
}

func TestBuildOpenAndKeepalive(t *testing.T) {
	open := pcep.NewOpenObject(30, 120, 7,
		pcep.NewStatefulCapability(pcep.StatefulCapability{Update: true, IncludeDBVersion: true}),
		pcep.NewDBVersion(42))
	m := pcep.NewOpen(open)
	buf := m.Encode()
	assert.Equal(t, 4+4+4+8+12, len(buf))
	assert.Equal(t, []byte{0x20, 0x01, 0x00, 0x20}, buf[:4])
	assert.Equal(t, []byte{0x01, 0x10, 0x00, 0x1C, 0x20, 0x1E, 0x78, 0x07}, buf[4:12])
	assert.Equal(t, []byte{0x00, 0x10, 0x00, 0x04, 0x00, 0x00, 0x00, 0x03}, buf[12:20])

	m2, err := pcep.DecodeMessage(buf)
	require.NoError(t, err)
	assert.True(t, m2.Valid())
	open2 := m2.Find(pcep.KindOpen)
	require.NotNil(t, open2)
	caps, ok := pcep.StatefulCapabilityOf(open2)
	require.True(t, ok)
	assert.True(t, caps.Update)
	assert.True(t, caps.IncludeDBVersion)
	assert.False(t, caps.Instantiation)
	assert.Equal(t, uint64(42), pcep.DBVersionOf(open2))
	assert.Equal(t, buf, m2.Encode())

	assert.Equal(t, []byte{0x20, 0x02, 0x00, 0x04}, pcep.NewKeepalive().Encode())
}

func TestCloseAndPCErr(t *testing.T) {
	assert.Equal(t, []byte{
		0x20, 0x07, 0x00, 0x0C,
		0x0F, 0x10, 0x00, 0x08, 0x00, 0x00, 0x00, 0x02,
	}, pcep.NewClose(pcep.CloseDeadTimerExpired).Encode())

	proposal := pcep.NewOpenObject(10, 40, 1)
	m := pcep.NewPCErr(pcep.ErrTypeSessionFailure, pcep.ErrValueNegotiable, proposal)
	g, err := m.Restructure()
	require.NoError(t, err)
	assert.True(t, g.Valid())
	errs := g.Groups(pcep.RuleErrors)
	require.Len(t, errs, 1)
	e := errs[0].First(pcep.RuleError)
	assert.Equal(t, uint64(pcep.ErrTypeSessionFailure), e.Body.Get(pcep.ErrorTypeID))
	assert.Equal(t, uint64(pcep.ErrValueNegotiable), e.Body.Get(pcep.ErrorValueID))
	assert.Same(t, proposal, g.First(pcep.RuleOpen))
}

func TestReportGrammar(t *testing.T) {
	a := netip.MustParseAddr("10.0.0.1")
	b := netip.MustParseAddr("10.0.0.2")
	m := pcep.NewMessage(pcep.MsgPCRpt)
	m.Append(
		pcep.NewLSP(1, pcep.LSPFlags{Sync: true, Delegate: true, Operational: pcep.LSPUp}, pcep.NewSymbolicName("lsp-a")),
		pcep.NewRoute(pcep.KindERO, a, b),
		pcep.NewBandwidth(1000),
		pcep.NewMetric(pcep.MetricTE, 20, true),
		pcep.NewSRP(5, false),
		pcep.NewLSP(2, pcep.LSPFlags{Sync: true}, pcep.NewSymbolicName("lsp-b")),
		pcep.NewRoute(pcep.KindERO),
		pcep.NewLSP(0, pcep.LSPFlags{}),
		pcep.NewRoute(pcep.KindERO),
	)
	buf := m.Encode()
	m2, err := pcep.DecodeMessage(buf)
	require.NoError(t, err)
	g, err := m2.Restructure()
	require.NoError(t, err)
	assert.True(t, g.Valid())

	reports := g.Groups(pcep.RuleReports)
	require.Len(t, reports, 3)
	lsp := reports[0].First(pcep.RuleLSP)
	assert.Equal(t, "lsp-a", pcep.SymbolicNameOf(lsp))
	assert.Equal(t, []netip.Addr{a, b}, pcep.RouteHops(reports[0].First(pcep.RuleERO)))
	assert.Equal(t, float32(1000), reports[0].First(pcep.RuleBandwidth).Body.Float(pcep.BandwidthValue))
	assert.Len(t, reports[0].Items(pcep.RuleMetrics), 1)
	assert.Nil(t, reports[0].First(pcep.RuleSRP))

	assert.Equal(t, uint64(5), reports[1].First(pcep.RuleSRP).Body.Get(pcep.SRPID))
	flags := pcep.LSPFlagsOf(reports[1].First(pcep.RuleLSP))
	assert.True(t, flags.Sync)
	assert.False(t, flags.Delegate)

	eos := reports[2].First(pcep.RuleLSP)
	assert.Equal(t, uint64(0), eos.Body.Get(pcep.LSPPlspID))
	assert.False(t, pcep.LSPFlagsOf(eos).Sync)

	m2.Flatten(g)
	assert.Equal(t, buf, m2.Encode())
}

func TestRestructureIsNotLive(t *testing.T) {
	m := pcep.NewMessage(pcep.MsgPCUpd)
	m.Append(pcep.NewSRP(1, false), pcep.NewLSP(9, pcep.LSPFlags{Delegate: true}), pcep.NewRoute(pcep.KindERO))
	before := m.Encode()

	g, err := m.Restructure()
	require.NoError(t, err)
	require.True(t, g.Valid())
	updates := g.Groups(pcep.RuleUpdates)
	require.Len(t, updates, 1)
	updates[0].Add(pcep.RuleMetrics, pcep.NewMetric(pcep.MetricIGP, 5, false))

	// Editing the group does not touch the message until it is flattened back
	assert.Len(t, m.Objects(), 3)
	assert.Equal(t, before, m.Encode())

	m.Flatten(g)
	assert.Len(t, m.Objects(), 4)
	assert.Equal(t, len(before)+12, len(m.Encode()))

	// Editing the message leaves an earlier group stale
	m.Append(pcep.NewBandwidth(1))
	assert.Len(t, g.Pack(nil), 4)
	assert.Len(t, m.Objects(), 5)
}

func TestUnknownMessageType(t *testing.T) {
	wireBytes := []byte{0x20, 0x63, 0x00, 0x10, 0x02, 0x10, 0x00, 0x0C, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x07}
	m, err := pcep.DecodeMessage(wireBytes)
	require.NoError(t, err)
	assert.Equal(t, pcep.MessageType(0x63), m.Type())
	assert.True(t, m.Valid())
	rp := m.Find(pcep.KindRP)
	require.NotNil(t, rp)
	assert.Equal(t, uint64(7), rp.Body.Get(pcep.RPRequestID))
	_, err = m.Restructure()
	assert.True(t, errors.Is(err, pcep.ErrNoGrammar))
	assert.Equal(t, wireBytes, m.Encode())

	built := pcep.NewMessage(pcep.MessageType(0x63))
	built.Append(pcep.NewRP(7))
	assert.Equal(t, wireBytes, built.Encode())
}

func TestDecodeShortBuffers(t *testing.T) {
	_, err := pcep.DecodeMessage([]byte{0x20, 0x02})
	assert.True(t, errors.Is(err, pcep.ErrShortMessage))
	_, err = pcep.DecodeMessage([]byte{0x20, 0x02, 0x00, 0x08, 0x00})
	assert.True(t, errors.Is(err, pcep.ErrShortMessage))
	_, err = pcep.DecodeMessage([]byte{0x20, 0x02, 0x00, 0x00})
	assert.True(t, errors.Is(err, pcep.ErrBadLength))
}

func TestPeekHeader(t *testing.T) {
	h, err := pcep.PeekHeader([]byte{0x20, 0x0A, 0x01, 0x00})
	require.NoError(t, err)
	assert.Equal(t, pcep.MsgPCRpt, h.Type)
	assert.Equal(t, 256, h.Length)
	assert.NoError(t, h.Validate())

	h, _ = pcep.PeekHeader([]byte{0x40, 0x02, 0x00, 0x04})
	assert.True(t, errors.Is(h.Validate(), pcep.ErrBadVersion))
	h, _ = pcep.PeekHeader([]byte{0x20, 0x02, 0x00, 0x06})
	assert.True(t, errors.Is(h.Validate(), pcep.ErrBadLength))
	h, _ = pcep.PeekHeader([]byte{0x20, 0x02, 0x00, 0x00})
	assert.True(t, errors.Is(h.Validate(), pcep.ErrBadLength))
}

func TestProtocolError(t *testing.T) {
	err := pcep.NewProtocolError(pcep.ErrTypeSessionFailure, pcep.ErrValueOpenWaitExpired, nil)
	assert.True(t, errors.Is(err, &pcep.ProtocolError{Type: 1, Value: 2}))
	assert.False(t, errors.Is(err, &pcep.ProtocolError{Type: 1, Value: 7}))
	assert.Equal(t, "PCEP error 1/2", err.Error())
	assert.Equal(t, "DeadTimerExpired", pcep.CloseDeadTimerExpired.String())
}

func TestMessageShow(t *testing.T) {
	m := pcep.NewOpen(pcep.NewOpenObject(30, 120, 1))
	tree := m.Show()
	assert.Equal(t, "Open", tree.Label)
	open := tree.Find("OPEN")
	require.NotNil(t, open)
	assert.Equal(t, "30", open.Find("keepalive").Value)
}

func TestSegmentHop(t *testing.T) {
	node := netip.MustParseAddr("192.0.2.1")
	ero := pcep.New(pcep.KindERO).Append(pcep.NewSegmentHop(16001, node))
	buf := pcep.NewMessage(pcep.MsgPCUpd).Append(pcep.NewSRP(1, false), pcep.NewLSP(1, pcep.LSPFlags{}), ero).Encode()
	m, err := pcep.DecodeMessage(buf)
	require.NoError(t, err)
	assert.True(t, m.Valid())
	decoded := m.Find(pcep.KindERO)
	require.NotNil(t, decoded)
	assert.Equal(t, []netip.Addr{node}, pcep.RouteHops(decoded))
	hop := decoded.Children[0].(*wire.Container)
	assert.Equal(t, uint64(16001), hop.Body.Get(pcep.SegmentSID)>>12)
}
