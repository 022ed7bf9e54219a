/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package pcep

import "strconv"

// Version is the PCEP protocol version.
const Version = 1

// DefaultPort is the TCP port assigned to PCEP.
const DefaultPort = 4189

// MaxMessageSize is the largest length a message header can declare.
const MaxMessageSize = 0xFFFF

// MessageType is the type of a PCEP message.
type MessageType uint8

// Message types
const (
	MsgOpen       MessageType = 1
	MsgKeepalive  MessageType = 2
	MsgPCReq      MessageType = 3
	MsgPCRep      MessageType = 4
	MsgPCNtf      MessageType = 5
	MsgPCErr      MessageType = 6
	MsgClose      MessageType = 7
	MsgPCRpt      MessageType = 10
	MsgPCUpd      MessageType = 11
	MsgPCInitiate MessageType = 12
)

var messageTypeNames = map[MessageType]string{
	MsgOpen:       "Open",
	MsgKeepalive:  "Keepalive",
	MsgPCReq:      "PCReq",
	MsgPCRep:      "PCRep",
	MsgPCNtf:      "PCNtf",
	MsgPCErr:      "PCErr",
	MsgClose:      "Close",
	MsgPCRpt:      "PCRpt",
	MsgPCUpd:      "PCUpd",
	MsgPCInitiate: "PCInitiate",
}

func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return "Message(" + strconv.Itoa(int(t)) + ")"
}

// Object classes
const (
	ClassOpen         = 1
	ClassRP           = 2
	ClassNoPath       = 3
	ClassEndpoints    = 4
	ClassBandwidth    = 5
	ClassMetric       = 6
	ClassERO          = 7
	ClassRRO          = 8
	ClassLSPA         = 9
	ClassIRO          = 10
	ClassNotification = 12
	ClassError        = 13
	ClassClose        = 15
	ClassLSP          = 32
	ClassSRP          = 33
)

// ObjectKey combines an object class and type into a registry key.
func ObjectKey(class uint8, typ uint8) uint32 {
	return uint32(class)<<4 | uint32(typ&0xf)
}

// TLV types
const (
	TLVNoPathVector      = 0x01
	TLVStatefulCap       = 0x10
	TLVSymbolicPathName  = 0x11
	TLVIPv4LSPIdentifier = 0x12
	TLVLSPErrorCode      = 0x14
	TLVLSPDBVersion      = 0x17
	TLVSpeakerEntityID   = 0x18
	TLVPathSetupType     = 0x1c
)

// RSVP sub-object types used in ERO, RRO and IRO
const (
	SubIPv4Prefix = 1
	SubLabel      = 3
	SubUnnumbered = 4
	SubASNumber   = 32
	SubSegmentHop = 36
)

// Metric types
const (
	MetricIGP = 1
	MetricTE  = 2
	MetricHop = 3
)

// Path setup types
const (
	PathSetupRSVP = 0
	PathSetupSR   = 1
)

// Operational states carried in the LSP object
const (
	LSPDown      = 0
	LSPUp        = 1
	LSPActive    = 2
	LSPGoingDown = 3
	LSPGoingUp   = 4
)
