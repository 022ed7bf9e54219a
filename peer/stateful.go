/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package peer

import (
	"fmt"
	"math"
	"net/netip"
	"time"

	"github.com/pcepsim/pcepd/core"
	"github.com/pcepsim/pcepd/pcep"
	"github.com/pcepsim/pcepd/pcep/wire"
	"github.com/pcepsim/pcepd/session"
	"github.com/pcepsim/pcepd/table"
)

// StatefulHandler keeps the LSP database of a session in sync with the remote speaker.
// A PCC reports its LSPs and applies updates and instantiations; a PCE learns LSPs from
// reports and issues updates and instantiations.
type StatefulHandler struct {
	cfg    *Config
	opener *Opener
	db     *table.LSPDB

	s       *session.Session
	active  bool
	local   pcep.StatefulCapability
	remote  pcep.StatefulCapability
	synced  bool
	avoided bool
	srpID   uint32

	// LSPs known from an earlier session that the current synchronization has not reported yet
	stale map[uint32]struct{}
}

// NewStateful creates the stateful handler of a session.
func NewStateful(cfg *Config, opener *Opener, db *table.LSPDB) *StatefulHandler {
	return &StatefulHandler{cfg: cfg, opener: opener, db: db}
}

// DB returns the LSP database.
func (h *StatefulHandler) DB() *table.LSPDB {
	return h.db
}

// Active reports whether both speakers advertised the stateful capability on an open session.
func (h *StatefulHandler) Active() bool {
	return h.active
}

// Synced reports whether the initial state synchronization is complete.
func (h *StatefulHandler) Synced() bool {
	return h.synced
}

// Avoided reports whether the initial synchronization was skipped thanks to matching database versions.
func (h *StatefulHandler) Avoided() bool {
	return h.avoided
}

func (h *StatefulHandler) HandleEvent(ev *session.Event) session.Outcome {
	switch ev.Kind {
	case session.EventOpened:
		h.onOpened(ev)
	case session.EventMessage:
		return h.onMessage(ev)
	case session.EventClosing:
		if h.active && !h.synced && h.cfg.Speaker == PCE {
			core.LogInfo(h.s, "Closing before state synchronization completed, forgetting database version")
			h.db.Invalidate()
		}
		h.active = false
	}
	return session.Proceed
}

func (h *StatefulHandler) Deadline() time.Time {
	return time.Time{}
}

func (h *StatefulHandler) onOpened(ev *session.Event) {
	h.s = ev.Session
	local, lok := pcep.StatefulCapabilityOf(h.opener.Local())
	remote, rok := pcep.StatefulCapabilityOf(h.opener.Remote())
	if !lok || !rok {
		core.LogInfo(h.s, "Stateless session")
		return
	}
	h.active = true
	h.local, h.remote = local, remote

	localVersion := pcep.DBVersionOf(h.opener.Local())
	remoteVersion := pcep.DBVersionOf(h.opener.Remote())
	h.avoided = local.IncludeDBVersion && remote.IncludeDBVersion &&
		localVersion != 0 && remoteVersion != 0 && localVersion == remoteVersion
	if h.avoided {
		core.LogInfo(h.s, "State synchronization avoided, database version=", localVersion)
		h.synced = true
		return
	}
	if h.cfg.Speaker == PCC {
		h.synchronize(ev.Time)
	} else {
		h.stale = make(map[uint32]struct{}, h.db.Len())
		for _, l := range h.db.All() {
			h.stale[l.PLSPID] = struct{}{}
		}
		core.LogInfo(h.s, "Waiting for state synchronization, ", len(h.stale), " LSPs known")
	}
}

// synchronize reports every LSP with the SYNC flag, then the end-of-synchronization marker.
func (h *StatefulHandler) synchronize(now time.Time) {
	if h.includeVersion() && h.db.Version() == 0 {
		h.db.Bump()
	}
	lsps := h.db.All()
	core.LogInfo(h.s, "Synchronizing ", len(lsps), " LSPs")
	m := pcep.NewMessage(pcep.MsgPCRpt)
	for _, l := range lsps {
		flags := h.flagsOf(l)
		flags.Sync = true
		m.Append(h.reportItems(l, flags, 0)...)
		h.db.Record(l, table.HistoryReport, m, now)
		if !h.cfg.SyncBatch {
			send(h.s, m)
			m = pcep.NewMessage(pcep.MsgPCRpt)
		}
	}
	m.Append(pcep.NewLSP(0, pcep.LSPFlags{}), pcep.NewRoute(pcep.KindERO))
	send(h.s, m)
	h.synced = true
}

func (h *StatefulHandler) flagsOf(l *table.LSP) pcep.LSPFlags {
	f := pcep.LSPFlags{Delegate: l.Delegated, Create: l.Initiated, Admin: true, Operational: pcep.LSPDown}
	if l.Operational {
		f.Operational = pcep.LSPUp
	}
	return f
}

func (h *StatefulHandler) includeVersion() bool {
	return h.local.IncludeDBVersion && h.remote.IncludeDBVersion
}

func (h *StatefulHandler) reportItems(l *table.LSP, flags pcep.LSPFlags, srpID uint32) []wire.Item {
	var items []wire.Item
	if srpID != 0 {
		items = append(items, pcep.NewSRP(srpID, flags.Remove))
	}
	var tlvs []wire.Item
	if l.Name != "" {
		tlvs = append(tlvs, pcep.NewSymbolicName(l.Name))
	}
	if l.Src.Is4() && l.Dst.Is4() {
		tlvs = append(tlvs, pcep.NewLSPIdentifiers(l.Src, 1, uint16(l.PLSPID), l.Dst))
	}
	if h.includeVersion() {
		tlvs = append(tlvs, pcep.NewDBVersion(h.db.Version()))
	}
	return append(items, pcep.NewLSP(l.PLSPID, flags, tlvs...), pcep.NewRoute(pcep.KindERO, l.ERO...))
}

func (h *StatefulHandler) report(l *table.LSP, flags pcep.LSPFlags, srpID uint32, now time.Time) {
	m := pcep.NewMessage(pcep.MsgPCRpt)
	m.Append(h.reportItems(l, flags, srpID)...)
	h.db.Record(l, table.HistoryReport, m, now)
	send(h.s, m)
}

// reject sends a PCErr referring to the SRP object of a request, if there is one.
func (h *StatefulHandler) reject(typ pcep.ErrorType, value uint8, srp *wire.Container) {
	var ids []wire.Item
	if srp != nil {
		ids = append(ids, srp)
	}
	core.LogWarn(h.s, "Rejecting request: ", pcep.NewProtocolError(typ, value, nil))
	send(h.s, pcep.NewPCErr(typ, value, nil, ids...))
}

func (h *StatefulHandler) onMessage(ev *session.Event) session.Outcome {
	m := ev.Message
	switch m.Type() {
	case pcep.MsgPCRpt, pcep.MsgPCUpd, pcep.MsgPCInitiate:
	default:
		return session.Proceed
	}
	if !h.active {
		if m.Type() == pcep.MsgPCRpt {
			h.reject(pcep.ErrTypeInvalidOperation, pcep.ErrValueReportNotStateful, nil)
		} else {
			h.reject(pcep.ErrTypeInvalidOperation, pcep.ErrValueNotStateful, nil)
		}
		return session.Cancel
	}
	g, err := m.Restructure()
	if err != nil {
		core.LogWarn(h.s, "Unable to restructure ", m, ": ", err)
		return session.Cancel
	}
	if !g.Valid() {
		core.LogWarn(h.s, "Malformed ", m, ", processing what is usable")
	}
	table.AddToMeasurementInt("stateful."+m.Type().String(), 1)

	switch {
	case m.Type() == pcep.MsgPCRpt && h.cfg.Speaker == PCE:
		h.onReport(ev, g)
	case m.Type() == pcep.MsgPCUpd && h.cfg.Speaker == PCC:
		h.onUpdate(ev, g)
	case m.Type() == pcep.MsgPCInitiate && h.cfg.Speaker == PCC:
		h.onInitiate(ev, g)
	default:
		core.LogWarn(h.s, "Unexpected ", m, " for a ", h.cfg.Speaker)
	}
	return session.Cancel
}

func (h *StatefulHandler) onReport(ev *session.Event, g *wire.Group) {
	for _, r := range g.Groups(pcep.RuleReports) {
		lsp := r.First(pcep.RuleLSP)
		if lsp == nil {
			continue
		}
		flags := pcep.LSPFlagsOf(lsp)
		id := uint32(lsp.Body.Get(pcep.LSPPlspID))
		h.db.Adopt(pcep.DBVersionOf(lsp))
		delete(h.stale, id)

		switch {
		case id == 0:
		case flags.Remove:
			h.db.Remove(id)
		default:
			l := h.db.Learn(id, pcep.SymbolicNameOf(lsp))
			l.Delegated = flags.Delegate
			l.Initiated = flags.Create
			l.Operational = flags.Operational != pcep.LSPDown
			if ero := r.First(pcep.RuleERO); ero != nil {
				l.ERO = pcep.RouteHops(ero)
			}
			if ids := pcep.FindIn(lsp.Children, pcep.KindIPv4LSPIdentifiers); ids != nil {
				l.Src = pcep.AddrOf(ids.Body.Get(pcep.LSPIdSender))
				l.Dst = pcep.AddrOf(ids.Body.Get(pcep.LSPIdEndpoint))
			}
			h.db.Record(l, table.HistoryReport, ev.Message, ev.Time)
		}

		if !flags.Sync && !h.synced {
			h.synced = true
			h.purgeStale()
			core.LogInfo(h.s, "State synchronization complete, ", h.db.Len(), " LSPs, database version=", h.db.Version())
		}
	}
}

// purgeStale drops the LSPs the remote did not report again during synchronization.
func (h *StatefulHandler) purgeStale() {
	for id := range h.stale {
		if l := h.db.Get(id); l != nil {
			core.LogInfo(h.s, "Removing stale LSP ", l.Name, " (PLSP-ID ", id, ")")
			h.db.Remove(id)
		}
	}
	h.stale = nil
}

func (h *StatefulHandler) onUpdate(ev *session.Event, g *wire.Group) {
	if !h.local.Update || !h.remote.Update {
		h.reject(pcep.ErrTypeInvalidOperation, pcep.ErrValueNotStateful, nil)
		return
	}
	for _, u := range g.Groups(pcep.RuleUpdates) {
		srp := u.First(pcep.RuleSRP)
		lsp := u.First(pcep.RuleLSP)
		if srp == nil || lsp == nil {
			h.reject(pcep.ErrTypeMandatoryMissing, missingValue(srp, lsp), srp)
			continue
		}
		id := uint32(lsp.Body.Get(pcep.LSPPlspID))
		l := h.db.Get(id)
		if l == nil {
			h.reject(pcep.ErrTypeInvalidOperation, pcep.ErrValueUnknownPLSP, srp)
			continue
		}
		if !l.Delegated {
			h.reject(pcep.ErrTypeInvalidOperation, pcep.ErrValueNotDelegated, srp)
			continue
		}
		h.db.Record(l, table.HistoryUpdate, ev.Message, ev.Time)
		if ero := u.First(pcep.RuleERO); ero != nil {
			l.ERO = pcep.RouteHops(ero)
		}
		l.Operational = true
		h.db.Bump()
		core.LogInfo(h.s, "Updated LSP ", l.Name, " (PLSP-ID ", l.PLSPID, ")")
		h.report(l, h.flagsOf(l), uint32(srp.Body.Get(pcep.SRPID)), ev.Time)
	}
}

func (h *StatefulHandler) onInitiate(ev *session.Event, g *wire.Group) {
	if !h.local.Instantiation || !h.remote.Instantiation {
		h.reject(pcep.ErrTypeInvalidOperation, pcep.ErrValueNotStateful, nil)
		return
	}
	for _, r := range g.Groups(pcep.RuleRequests) {
		srp := r.First(pcep.RuleSRP)
		lsp := r.First(pcep.RuleLSP)
		if srp == nil || lsp == nil {
			h.reject(pcep.ErrTypeMandatoryMissing, missingValue(srp, lsp), srp)
			continue
		}
		srpID := uint32(srp.Body.Get(pcep.SRPID))

		if srp.Body.Flag(pcep.SRPRemove) {
			id := uint32(lsp.Body.Get(pcep.LSPPlspID))
			l := h.db.Get(id)
			if l == nil {
				h.reject(pcep.ErrTypeInvalidOperation, pcep.ErrValueUnknownPLSP, srp)
				continue
			}
			if !l.Initiated {
				h.reject(pcep.ErrTypeInvalidOperation, pcep.ErrValueNotInitiated, srp)
				continue
			}
			h.db.Remove(id)
			h.db.Bump()
			core.LogInfo(h.s, "Removed LSP ", l.Name, " (PLSP-ID ", l.PLSPID, ")")
			flags := h.flagsOf(l)
			flags.Remove = true
			h.report(l, flags, srpID, ev.Time)
			continue
		}

		name := pcep.SymbolicNameOf(lsp)
		if name == "" {
			h.reject(pcep.ErrTypeInstantiation, pcep.ErrValueUnacceptableParams, srp)
			continue
		}
		if h.db.ByName(name) != nil {
			h.reject(pcep.ErrTypeInstantiation, pcep.ErrValueNameInUse, srp)
			continue
		}
		l := h.db.Allocate(name)
		l.Initiated = true
		l.Delegated = true
		l.Operational = true
		if ep := r.First(pcep.RuleEndpoints); ep != nil {
			l.Src = pcep.AddrOf(ep.Body.Get(pcep.EndpointsSource))
			l.Dst = pcep.AddrOf(ep.Body.Get(pcep.EndpointsDestination))
		}
		if ero := r.First(pcep.RuleERO); ero != nil {
			l.ERO = pcep.RouteHops(ero)
		}
		h.db.Record(l, table.HistoryInitiate, ev.Message, ev.Time)
		h.db.Bump()
		core.LogInfo(h.s, "Instantiated LSP ", name, " (PLSP-ID ", l.PLSPID, ")")
		h.report(l, h.flagsOf(l), srpID, ev.Time)
	}
}

func missingValue(srp *wire.Container, lsp *wire.Container) uint8 {
	if srp == nil {
		return pcep.ErrValueMissingSRP
	}
	return pcep.ErrValueMissingLSP
}

func (h *StatefulHandler) nextSRP() uint32 {
	h.srpID++
	if h.srpID == 0 || h.srpID == math.MaxUint32 {
		h.srpID = 1
	}
	return h.srpID
}

func (h *StatefulHandler) ready(needUpdate bool, needInstantiation bool) error {
	if !h.active {
		return ErrNotUp
	}
	if h.cfg.Speaker != PCE {
		return ErrWrongSpeaker
	}
	if needUpdate && (!h.local.Update || !h.remote.Update) {
		return fmt.Errorf("%w: update", ErrNotCapable)
	}
	if needInstantiation && (!h.local.Instantiation || !h.remote.Instantiation) {
		return fmt.Errorf("%w: instantiation", ErrNotCapable)
	}
	return nil
}

// Update sends a PCUpd moving a delegated LSP onto a new path.
func (h *StatefulHandler) Update(name string, ero []netip.Addr) error {
	if err := h.ready(true, false); err != nil {
		return err
	}
	l := h.db.ByName(name)
	if l == nil {
		return fmt.Errorf("%w: %s", ErrUnknownLSP, name)
	}
	if !l.Delegated {
		return fmt.Errorf("%w: %s", ErrNotDelegated, name)
	}
	m := pcep.NewMessage(pcep.MsgPCUpd)
	m.Append(
		pcep.NewSRP(h.nextSRP(), false),
		pcep.NewLSP(l.PLSPID, pcep.LSPFlags{Delegate: true, Admin: true}),
		pcep.NewRoute(pcep.KindERO, ero...))
	h.db.Record(l, table.HistoryUpdate, m, h.s.Now())
	send(h.s, m)
	return nil
}

// Initiate sends a PCInitiate asking the PCC to create an LSP.
func (h *StatefulHandler) Initiate(name string, src netip.Addr, dst netip.Addr, ero []netip.Addr) error {
	if err := h.ready(false, true); err != nil {
		return err
	}
	if h.db.ByName(name) != nil {
		return fmt.Errorf("%w: %s", ErrNameInUse, name)
	}
	m := pcep.NewMessage(pcep.MsgPCInitiate)
	m.Append(
		pcep.NewSRP(h.nextSRP(), false),
		pcep.NewLSP(0, pcep.LSPFlags{Admin: true}, pcep.NewSymbolicName(name)),
		pcep.NewEndpoints(src, dst),
		pcep.NewRoute(pcep.KindERO, ero...))
	send(h.s, m)
	return nil
}

// Remove sends a PCInitiate asking the PCC to delete an LSP this PCE initiated.
func (h *StatefulHandler) Remove(name string) error {
	if err := h.ready(false, true); err != nil {
		return err
	}
	l := h.db.ByName(name)
	if l == nil {
		return fmt.Errorf("%w: %s", ErrUnknownLSP, name)
	}
	if !l.Initiated {
		return fmt.Errorf("%w: %s was not initiated by a PCE", ErrNotCapable, name)
	}
	m := pcep.NewMessage(pcep.MsgPCInitiate)
	m.Append(
		pcep.NewSRP(h.nextSRP(), true),
		pcep.NewLSP(l.PLSPID, pcep.LSPFlags{Remove: true}))
	h.db.Record(l, table.HistoryInitiate, m, h.s.Now())
	send(h.s, m)
	return nil
}
