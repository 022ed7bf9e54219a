/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package peer

import (
	"net/netip"
	"testing"
	"time"

	"github.com/pcepsim/pcepd/pcep"
	"github.com/pcepsim/pcepd/pcep/wire"
	"github.com/pcepsim/pcepd/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statefulLink(t *testing.T, pcc Config, pce Config) (*link, *StatefulHandler, *StatefulHandler) {
	l, ha, hb := peerLink(t, pcc, pce)
	l.start()
	require.Equal(t, OpenUp, ha.Opener.State())
	require.Equal(t, OpenUp, hb.Opener.State())
	return l, ha.Stateful, hb.Stateful
}

func TestStatefulFullSync(t *testing.T) {
	l, pcc, pce := statefulLink(t, pccConfig(StatefulActive), pceConfig(StatefulActive))

	assert.True(t, pcc.Active())
	assert.True(t, pcc.Synced())
	assert.True(t, pce.Synced())
	assert.False(t, pce.Avoided())
	assert.Equal(t, 1, count(l.sentA, pcep.MsgPCRpt))
	assert.Equal(t, 0, count(l.sentB, pcep.MsgPCErr))

	require.Equal(t, 2, pce.DB().Len())
	a := pce.DB().ByName("lsp-a")
	require.NotNil(t, a)
	assert.True(t, a.Delegated)
	assert.True(t, a.Operational)
	assert.Equal(t, addr("10.0.0.1"), a.Src)
	assert.Equal(t, addr("10.0.0.9"), a.Dst)
	assert.Equal(t, []netip.Addr{addr("10.1.0.1"), addr("10.0.0.9")}, a.ERO)
	assert.False(t, pce.DB().ByName("lsp-b").Delegated)
}

func TestStatefulSyncOneReportPerLSP(t *testing.T) {
	cfg := pccConfig(StatefulActive)
	cfg.SyncBatch = false
	l, _, pce := statefulLink(t, cfg, pceConfig(StatefulActive))

	assert.Equal(t, 3, count(l.sentA, pcep.MsgPCRpt))
	assert.True(t, pce.Synced())
	assert.Equal(t, 2, pce.DB().Len())
}

func TestStatefulSyncAvoidance(t *testing.T) {
	pccCfg, pceCfg := pccConfig(StatefulActive), pceConfig(StatefulActive)
	pccCfg.IncludeDBVersion, pceCfg.IncludeDBVersion = true, true
	pccCfg.DBVersion, pceCfg.DBVersion = 7, 7
	l, pcc, pce := statefulLink(t, pccCfg, pceCfg)

	assert.True(t, pcc.Avoided())
	assert.True(t, pce.Avoided())
	assert.True(t, pce.Synced())
	assert.Equal(t, 0, count(l.sentA, pcep.MsgPCRpt))
	assert.Equal(t, uint64(7), pcep.DBVersionOf(l.sentA[0].Find(pcep.KindOpen)))
}

func TestStatefulSyncVersionMismatch(t *testing.T) {
	pccCfg, pceCfg := pccConfig(StatefulActive), pceConfig(StatefulActive)
	pccCfg.IncludeDBVersion, pceCfg.IncludeDBVersion = true, true
	pccCfg.DBVersion, pceCfg.DBVersion = 7, 3
	l, pcc, pce := statefulLink(t, pccCfg, pceCfg)

	assert.False(t, pcc.Avoided())
	assert.Equal(t, 1, count(l.sentA, pcep.MsgPCRpt))
	assert.True(t, pce.Synced())
	assert.Equal(t, uint64(7), pce.DB().Version())
}

func versionedConfigs() (Config, Config) {
	pccCfg, pceCfg := pccConfig(StatefulActive), pceConfig(StatefulActive)
	pccCfg.IncludeDBVersion, pceCfg.IncludeDBVersion = true, true
	return pccCfg, pceCfg
}

// connect attaches two long-lived peers to a new link and opens it.
func connect(t *testing.T, pcc *Peer, pce *Peer) (*link, *StatefulHandler, *StatefulHandler) {
	l := newLink(t, nil, nil)
	ha, hb := pcc.Attach(l.a), pce.Attach(l.b)
	l.start()
	require.Equal(t, OpenUp, ha.Opener.State())
	require.Equal(t, OpenUp, hb.Opener.State())
	return l, ha.Stateful, hb.Stateful
}

func (l *link) close() {
	l.clock.advance(time.Second)
	l.a.Close()
	l.b.Close()
}

func TestStatefulReportsCarryVersion(t *testing.T) {
	pccCfg, pceCfg := versionedConfigs()
	l, pcc, pce := statefulLink(t, pccCfg, pceCfg)

	version := pcc.DB().Version()
	assert.NotZero(t, version)
	assert.Equal(t, version, pcep.DBVersionOf(l.sentA[0].Find(pcep.KindOpen)))
	report := l.sentA[0]
	for _, m := range l.sentA {
		if m.Type() == pcep.MsgPCRpt {
			report = m
			break
		}
	}
	require.Equal(t, pcep.MsgPCRpt, report.Type())
	assert.Equal(t, version, pcep.DBVersionOf(report.Find(pcep.KindLSP)))
	assert.Equal(t, version, pce.DB().Version())
}

func TestStatefulAvoidanceAcrossSessions(t *testing.T) {
	pccCfg, pceCfg := versionedConfigs()
	pcc, pce := New(pccCfg), New(pceCfg)

	l, _, first := connect(t, pcc, pce)
	assert.False(t, first.Avoided())
	require.Equal(t, 2, pce.DB().Len())
	require.NotZero(t, pce.DB().Version())
	assert.Equal(t, pcc.DB().Version(), pce.DB().Version())
	l.close()

	l, pccH, pceH := connect(t, pcc, pce)
	assert.True(t, pccH.Avoided())
	assert.True(t, pceH.Avoided())
	assert.Equal(t, 0, count(l.sentA, pcep.MsgPCRpt))
	assert.Equal(t, 2, pce.DB().Len())

	newPath := []netip.Addr{addr("10.2.0.1"), addr("10.0.0.9")}
	require.NoError(t, pceH.Update("lsp-a", newPath))
	l.pump()
	assert.Equal(t, newPath, pcc.DB().ByName("lsp-a").ERO)
	assert.Equal(t, newPath, pce.DB().ByName("lsp-a").ERO)
	assert.Equal(t, pcc.DB().Version(), pce.DB().Version())
}

func TestStatefulResyncPurgesStaleLSPs(t *testing.T) {
	pccCfg, pceCfg := versionedConfigs()
	pcc, pce := New(pccCfg), New(pceCfg)

	l, _, _ := connect(t, pcc, pce)
	require.Equal(t, 2, pce.DB().Len())
	l.close()

	require.True(t, pcc.DB().Remove(pcc.DB().ByName("lsp-b").PLSPID))
	pcc.DB().Bump()

	_, _, pceH := connect(t, pcc, pce)
	assert.False(t, pceH.Avoided())
	assert.True(t, pceH.Synced())
	assert.Equal(t, 1, pce.DB().Len())
	assert.Nil(t, pce.DB().ByName("lsp-b"))
	assert.NotNil(t, pce.DB().ByName("lsp-a"))
	assert.Equal(t, pcc.DB().Version(), pce.DB().Version())
}

func TestStatefulInterruptedSyncForgetsVersion(t *testing.T) {
	pccCfg, pceCfg := versionedConfigs()
	pccCfg.SyncBatch = false
	pcc, pce := New(pccCfg), New(pceCfg)

	l := newLink(t, nil, nil)
	pcc.Attach(l.a)
	hb := pce.Attach(l.b)
	l.a.Start()
	l.b.Start()
	// only the first report of the synchronization reaches the PCE
	reports := 0
	for i := 0; i < 16; i++ {
		for _, m := range l.a.Drain() {
			if m.Type() == pcep.MsgPCRpt {
				reports++
				if reports > 1 {
					continue
				}
			}
			l.b.Deliver(m)
		}
		for _, m := range l.b.Drain() {
			l.a.Deliver(m)
		}
	}
	require.Equal(t, OpenUp, hb.Opener.State())
	require.Equal(t, 3, reports)
	assert.False(t, hb.Stateful.Synced())
	assert.Equal(t, 1, pce.DB().Len())
	assert.NotZero(t, pce.DB().Version())

	l.close()
	assert.Zero(t, pce.DB().Version())

	_, _, pceH := connect(t, pcc, pce)
	assert.False(t, pceH.Avoided())
	assert.Equal(t, 2, pce.DB().Len())
	assert.Equal(t, pcc.DB().Version(), pce.DB().Version())
}

func TestStatefulUpdate(t *testing.T) {
	l, pcc, pce := statefulLink(t, pccConfig(StatefulActive), pceConfig(StatefulActive))
	version := pcc.DB().Version()
	newPath := []netip.Addr{addr("10.2.0.1"), addr("10.0.0.9")}

	require.NoError(t, pce.Update("lsp-a", newPath))
	l.pump()

	assert.Equal(t, newPath, pcc.DB().ByName("lsp-a").ERO)
	assert.Equal(t, newPath, pce.DB().ByName("lsp-a").ERO)
	assert.Greater(t, pcc.DB().Version(), version)
	report := last(l.sentA)
	require.Equal(t, pcep.MsgPCRpt, report.Type())
	assert.Equal(t, uint64(1), report.Find(pcep.KindSRP).Body.Get(pcep.SRPID))

	assert.ErrorIs(t, pce.Update("lsp-b", newPath), ErrNotDelegated)
	assert.ErrorIs(t, pce.Update("lsp-z", newPath), ErrUnknownLSP)
	assert.ErrorIs(t, pcc.Update("lsp-a", newPath), ErrWrongSpeaker)
}

func pcupd(srpID uint32, plspID uint32) *pcep.Message {
	m := pcep.NewMessage(pcep.MsgPCUpd)
	m.Append(pcep.NewSRP(srpID, false), pcep.NewLSP(plspID, pcep.LSPFlags{Delegate: true}), pcep.NewRoute(pcep.KindERO, addr("10.0.0.9")))
	return m
}

func TestStatefulUpdateErrors(t *testing.T) {
	l, pcc, _ := statefulLink(t, pccConfig(StatefulActive), pceConfig(StatefulActive))
	l.a.Drain()

	l.a.Deliver(pcupd(10, pcc.DB().ByName("lsp-b").PLSPID))
	m := last(l.a.Drain())
	require.NotNil(t, m)
	assert.True(t, hasError(m, pcep.ErrTypeInvalidOperation, pcep.ErrValueNotDelegated))
	assert.Equal(t, uint64(10), m.Find(pcep.KindSRP).Body.Get(pcep.SRPID))

	l.a.Deliver(pcupd(11, 99))
	assert.True(t, hasError(last(l.a.Drain()), pcep.ErrTypeInvalidOperation, pcep.ErrValueUnknownPLSP))
	assert.Equal(t, session.StateEstablished, l.a.State())
}

func TestStatefulUpdateWithoutCapability(t *testing.T) {
	l, pcc, pce := statefulLink(t, pccConfig(Stateful), pceConfig(StatefulActive))
	assert.ErrorIs(t, pce.Update("lsp-a", nil), ErrNotCapable)

	l.a.Drain()
	l.a.Deliver(pcupd(1, pcc.DB().ByName("lsp-a").PLSPID))
	assert.True(t, hasError(last(l.a.Drain()), pcep.ErrTypeInvalidOperation, pcep.ErrValueNotStateful))
}

func TestStatelessSessionRejectsStatefulMessages(t *testing.T) {
	l, pcc, pce := statefulLink(t, pccConfig(Stateless), pceConfig(Stateless))
	assert.False(t, pcc.Active())
	assert.Equal(t, 0, count(l.sentA, pcep.MsgPCRpt))
	assert.ErrorIs(t, pce.Update("lsp-a", nil), ErrNotUp)

	l.a.Deliver(pcupd(1, 1))
	assert.True(t, hasError(last(l.a.Drain()), pcep.ErrTypeInvalidOperation, pcep.ErrValueNotStateful))

	report := pcep.NewMessage(pcep.MsgPCRpt)
	report.Append(pcep.NewLSP(1, pcep.LSPFlags{}), pcep.NewRoute(pcep.KindERO))
	l.b.Deliver(report)
	assert.True(t, hasError(last(l.b.Drain()), pcep.ErrTypeInvalidOperation, pcep.ErrValueReportNotStateful))
}

func pcinitiate(srpID uint32, remove bool, plspID uint32, tlvs ...wire.Item) *pcep.Message {
	m := pcep.NewMessage(pcep.MsgPCInitiate)
	m.Append(pcep.NewSRP(srpID, remove), pcep.NewLSP(plspID, pcep.LSPFlags{Remove: remove}, tlvs...))
	return m
}

func TestStatefulInitiateAndRemove(t *testing.T) {
	l, pcc, pce := statefulLink(t, pccConfig(StatefulInitiation), pceConfig(StatefulInitiation))
	path := []netip.Addr{addr("10.3.0.1"), addr("10.0.0.7")}

	require.NoError(t, pce.Initiate("lsp-new", addr("10.0.0.1"), addr("10.0.0.7"), path))
	l.pump()

	created := pcc.DB().ByName("lsp-new")
	require.NotNil(t, created)
	assert.True(t, created.Initiated)
	assert.True(t, created.Delegated)
	assert.Equal(t, addr("10.0.0.7"), created.Dst)
	assert.Equal(t, path, created.ERO)
	learned := pce.DB().ByName("lsp-new")
	require.NotNil(t, learned)
	assert.True(t, learned.Initiated)
	assert.Equal(t, created.PLSPID, learned.PLSPID)
	assert.ErrorIs(t, pce.Initiate("lsp-new", addr("10.0.0.1"), addr("10.0.0.7"), nil), ErrNameInUse)

	assert.ErrorIs(t, pce.Remove("lsp-a"), ErrNotCapable)
	require.NoError(t, pce.Remove("lsp-new"))
	l.pump()
	assert.Nil(t, pcc.DB().ByName("lsp-new"))
	assert.Nil(t, pce.DB().ByName("lsp-new"))
	assert.Equal(t, 2, pcc.DB().Len())
	assert.Equal(t, 0, count(l.sentA, pcep.MsgPCErr))
}

func TestStatefulInitiateErrors(t *testing.T) {
	l, pcc, _ := statefulLink(t, pccConfig(StatefulInitiation), pceConfig(StatefulInitiation))
	l.a.Drain()

	l.a.Deliver(pcinitiate(1, false, 0, pcep.NewSymbolicName("lsp-b")))
	assert.True(t, hasError(last(l.a.Drain()), pcep.ErrTypeInstantiation, pcep.ErrValueNameInUse))

	l.a.Deliver(pcinitiate(2, false, 0))
	assert.True(t, hasError(last(l.a.Drain()), pcep.ErrTypeInstantiation, pcep.ErrValueUnacceptableParams))

	l.a.Deliver(pcinitiate(3, true, pcc.DB().ByName("lsp-a").PLSPID))
	assert.True(t, hasError(last(l.a.Drain()), pcep.ErrTypeInvalidOperation, pcep.ErrValueNotInitiated))

	l.a.Deliver(pcinitiate(4, true, 77))
	assert.True(t, hasError(last(l.a.Drain()), pcep.ErrTypeInvalidOperation, pcep.ErrValueUnknownPLSP))
	assert.Equal(t, 2, pcc.DB().Len())
}

func TestStatefulInitiateWithoutCapability(t *testing.T) {
	l, _, pce := statefulLink(t, pccConfig(StatefulActive), pceConfig(StatefulInitiation))
	assert.ErrorIs(t, pce.Initiate("lsp-new", addr("10.0.0.1"), addr("10.0.0.7"), nil), ErrNotCapable)

	l.a.Drain()
	l.a.Deliver(pcinitiate(1, false, 0, pcep.NewSymbolicName("lsp-new")))
	assert.True(t, hasError(last(l.a.Drain()), pcep.ErrTypeInvalidOperation, pcep.ErrValueNotStateful))
}
