/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package pcep

import (
	"encoding/binary"
	"net/netip"

	"github.com/pcepsim/pcepd/pcep/wire"
)

// New creates an empty item of a catalogue kind.
func New(k *wire.Kind) *wire.Container {
	LoadCatalogue()
	return k.New()
}

func must(c *wire.Container, id wire.FieldID, v uint64) *wire.Container {
	c.Body.MustSet(id, v)
	return c
}

func addrValue(a netip.Addr) uint64 {
	if !a.Is4() {
		return 0
	}
	b := a.As4()
	return uint64(binary.BigEndian.Uint32(b[:]))
}

// AddrOf converts a 32-bit field value to an IPv4 address.
func AddrOf(v uint64) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return netip.AddrFrom4(b)
}

///////////////////////////////////////////////////////////////////////////////
// Messages
///////////////////////////////////////////////////////////////////////////////

// NewOpen creates an Open message.
func NewOpen(open *wire.Container) *Message {
	m := NewMessage(MsgOpen)
	m.Append(open)
	return m
}

// NewOpenObject creates an OPEN object.
func NewOpenObject(keepalive uint8, deadtimer uint8, sessionID uint8, tlvs ...wire.Item) *wire.Container {
	c := New(KindOpen)
	c.Body.MustSet(OpenKeepalive, uint64(keepalive))
	c.Body.MustSet(OpenDeadtimer, uint64(deadtimer))
	c.Body.MustSet(OpenSessionID, uint64(sessionID))
	return c.Append(tlvs...)
}

// NewKeepalive creates a Keepalive message.
func NewKeepalive() *Message {
	return NewMessage(MsgKeepalive)
}

// NewClose creates a Close message.
func NewClose(reason CloseReason) *Message {
	m := NewMessage(MsgClose)
	m.Append(must(New(KindClose), CloseReasonID, uint64(reason)))
	return m
}

// NewErrorObject creates a PCEP-ERROR object.
func NewErrorObject(typ ErrorType, value uint8) *wire.Container {
	c := New(KindError)
	c.Body.MustSet(ErrorTypeID, uint64(typ))
	c.Body.MustSet(ErrorValueID, uint64(value))
	return c
}

// NewPCErr creates a PCErr message. ids are RP or SRP objects the error refers to.
// A non-nil open is appended as a negotiation proposal.
func NewPCErr(typ ErrorType, value uint8, open *wire.Container, ids ...wire.Item) *Message {
	m := NewMessage(MsgPCErr)
	m.Append(ids...)
	m.Append(NewErrorObject(typ, value))
	if open != nil {
		m.Append(open)
	}
	return m
}

///////////////////////////////////////////////////////////////////////////////
// Objects
///////////////////////////////////////////////////////////////////////////////

// NewRP creates an RP object.
func NewRP(requestID uint32) *wire.Container {
	return must(New(KindRP), RPRequestID, uint64(requestID))
}

// NewEndpoints creates an IPv4 END-POINTS object.
func NewEndpoints(src netip.Addr, dst netip.Addr) *wire.Container {
	c := New(KindEndpointsIPv4)
	c.Body.MustSet(EndpointsSource, addrValue(src))
	c.Body.MustSet(EndpointsDestination, addrValue(dst))
	return c
}

// NewBandwidth creates a requested BANDWIDTH object in bytes per second.
func NewBandwidth(bw float32) *wire.Container {
	c := New(KindBandwidthRequested)
	c.Body.SetFloat(BandwidthValue, bw)
	return c
}

// NewMetric creates a METRIC object.
func NewMetric(typ uint8, value float32, computed bool) *wire.Container {
	c := New(KindMetric)
	c.Body.MustSet(MetricType, uint64(typ))
	c.Body.SetFloat(MetricValue, value)
	c.Body.SetFlag(MetricComputed, computed)
	return c
}

// NewNoPath creates a NO-PATH object.
func NewNoPath(nature uint8, tlvs ...wire.Item) *wire.Container {
	return must(New(KindNoPath), NoPathNature, uint64(nature)).Append(tlvs...)
}

// NewNotification creates a NOTIFICATION object.
func NewNotification(typ uint8, value uint8) *wire.Container {
	c := New(KindNotification)
	c.Body.MustSet(NotificationType, uint64(typ))
	c.Body.MustSet(NotificationValue, uint64(value))
	return c
}

// NewSRP creates an SRP object.
func NewSRP(id uint32, remove bool, tlvs ...wire.Item) *wire.Container {
	c := must(New(KindSRP), SRPID, uint64(id))
	c.Body.SetFlag(SRPRemove, remove)
	return c.Append(tlvs...)
}

// LSPFlags are the flags of an LSP object.
type LSPFlags struct {
	Delegate    bool
	Sync        bool
	Remove      bool
	Admin       bool
	Create      bool
	Operational uint8
}

// NewLSP creates an LSP object. PLSP-IDs wider than 20 bits are masked.
func NewLSP(plspID uint32, flags LSPFlags, tlvs ...wire.Item) *wire.Container {
	c := New(KindLSP)
	c.Body.SetDegraded(LSPPlspID, uint64(plspID))
	c.Body.SetFlag(LSPDelegate, flags.Delegate)
	c.Body.SetFlag(LSPSync, flags.Sync)
	c.Body.SetFlag(LSPRemove, flags.Remove)
	c.Body.SetFlag(LSPAdmin, flags.Admin)
	c.Body.SetFlag(LSPCreate, flags.Create)
	c.Body.SetDegraded(LSPOperational, uint64(flags.Operational))
	return c.Append(tlvs...)
}

// LSPFlagsOf reads the flags of an LSP object.
func LSPFlagsOf(c *wire.Container) LSPFlags {
	return LSPFlags{
		Delegate:    c.Body.Flag(LSPDelegate),
		Sync:        c.Body.Flag(LSPSync),
		Remove:      c.Body.Flag(LSPRemove),
		Admin:       c.Body.Flag(LSPAdmin),
		Create:      c.Body.Flag(LSPCreate),
		Operational: uint8(c.Body.Get(LSPOperational)),
	}
}

// NewRoute creates an ERO, RRO or IRO made of strict IPv4 /32 hops.
func NewRoute(k *wire.Kind, hops ...netip.Addr) *wire.Container {
	c := New(k)
	for _, hop := range hops {
		c.Append(NewIPv4Hop(hop, 32, false))
	}
	return c
}

// NewIPv4Hop creates an IPv4 prefix sub-object.
func NewIPv4Hop(addr netip.Addr, prefixLength uint8, loose bool) *wire.Container {
	c := New(KindIPv4Prefix)
	c.Header.SetFlag(SubobjectLoose, loose)
	c.Body.MustSet(IPv4Address, addrValue(addr))
	c.Body.MustSet(IPv4PrefixLength, uint64(prefixLength))
	return c
}

// NewSegmentHop creates an SR-ERO sub-object carrying an MPLS label SID and an IPv4 node NAI.
func NewSegmentHop(label uint32, node netip.Addr) *wire.Container {
	c := New(KindSegmentHop)
	c.Body.SetFlag(SegmentMPLS, true)
	c.Body.SetDegraded(SegmentSID, uint64(label)<<12)
	if node.Is4() {
		c.Body.MustSet(SegmentNAIType, 1)
		b := node.As4()
		c.Payload = b[:]
	} else {
		c.Body.SetFlag(SegmentNoNAI, true)
	}
	return c
}

// RouteHops returns the IPv4 hops of an ERO, RRO or IRO. Other sub-objects are skipped.
func RouteHops(route *wire.Container) []netip.Addr {
	var ret []netip.Addr
	for _, it := range route.Children {
		c, ok := it.(*wire.Container)
		if !ok {
			continue
		}
		switch c.Kind() {
		case KindIPv4Prefix:
			ret = append(ret, AddrOf(c.Body.Get(IPv4Address)))
		case KindSegmentHop:
			if c.Body.Get(SegmentNAIType) == 1 && len(c.Payload) >= 4 {
				ret = append(ret, netip.AddrFrom4([4]byte(c.Payload[:4])))
			}
		}
	}
	return ret
}

///////////////////////////////////////////////////////////////////////////////
// TLVs
///////////////////////////////////////////////////////////////////////////////

// StatefulCapability is the content of a STATEFUL-PCE-CAPABILITY TLV.
type StatefulCapability struct {
	Update           bool
	IncludeDBVersion bool
	Instantiation    bool
	TriggeredResync  bool
}

// NewStatefulCapability creates a STATEFUL-PCE-CAPABILITY TLV.
func NewStatefulCapability(caps StatefulCapability) *wire.Container {
	c := New(KindStatefulCap)
	c.Body.SetFlag(StatefulUpdate, caps.Update)
	c.Body.SetFlag(StatefulIncludeDBVer, caps.IncludeDBVersion)
	c.Body.SetFlag(StatefulInstantiation, caps.Instantiation)
	c.Body.SetFlag(StatefulTriggered, caps.TriggeredResync)
	return c
}

// StatefulCapabilityOf reads the STATEFUL-PCE-CAPABILITY TLV of an object.
func StatefulCapabilityOf(obj *wire.Container) (StatefulCapability, bool) {
	tlv := FindIn(obj.Children, KindStatefulCap)
	if tlv == nil {
		return StatefulCapability{}, false
	}
	return StatefulCapability{
		Update:           tlv.Body.Flag(StatefulUpdate),
		IncludeDBVersion: tlv.Body.Flag(StatefulIncludeDBVer),
		Instantiation:    tlv.Body.Flag(StatefulInstantiation),
		TriggeredResync:  tlv.Body.Flag(StatefulTriggered),
	}, true
}

// NewDBVersion creates an LSP-DB-VERSION TLV.
func NewDBVersion(v uint64) *wire.Container {
	return must(New(KindLSPDBVersion), DBVersionValue, v)
}

// DBVersionOf reads the LSP-DB-VERSION TLV of an object. Zero means absent.
func DBVersionOf(obj *wire.Container) uint64 {
	tlv := FindIn(obj.Children, KindLSPDBVersion)
	if tlv == nil {
		return 0
	}
	return tlv.Body.Get(DBVersionValue)
}

// NewSymbolicName creates a SYMBOLIC-PATH-NAME TLV.
func NewSymbolicName(name string) *wire.Container {
	c := New(KindSymbolicPathName)
	c.Payload = []byte(name)
	return c
}

// SymbolicNameOf reads the SYMBOLIC-PATH-NAME TLV of an object.
func SymbolicNameOf(obj *wire.Container) string {
	tlv := FindIn(obj.Children, KindSymbolicPathName)
	if tlv == nil {
		return ""
	}
	return string(tlv.Payload)
}

// NewLSPIdentifiers creates an IPV4-LSP-IDENTIFIERS TLV.
func NewLSPIdentifiers(sender netip.Addr, lspID uint16, tunnelID uint16, endpoint netip.Addr) *wire.Container {
	c := New(KindIPv4LSPIdentifiers)
	c.Body.MustSet(LSPIdSender, addrValue(sender))
	c.Body.MustSet(LSPIdLSPID, uint64(lspID))
	c.Body.MustSet(LSPIdTunnelID, uint64(tunnelID))
	c.Body.MustSet(LSPIdExtended, addrValue(sender))
	c.Body.MustSet(LSPIdEndpoint, addrValue(endpoint))
	return c
}

// NewPathSetupType creates a PATH-SETUP-TYPE TLV.
func NewPathSetupType(pst uint8) *wire.Container {
	return must(New(KindPathSetupType), PathSetupValue, uint64(pst))
}

// NewNoPathVector creates a NO-PATH-VECTOR TLV.
func NewNoPathVector(unknownDestination bool) *wire.Container {
	c := New(KindNoPathVector)
	c.Body.SetFlag(NoPathUnknownDest, unknownDestination)
	return c
}

// NewSpeakerEntityID creates a SPEAKER-ENTITY-ID TLV.
func NewSpeakerEntityID(id string) *wire.Container {
	c := New(KindSpeakerEntityID)
	c.Payload = []byte(id)
	return c
}
