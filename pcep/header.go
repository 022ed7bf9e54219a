/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package pcep

import (
	"fmt"

	"github.com/pcepsim/pcepd/pcep/wire"
)

// MessageHeaderSize is the size of the common message header.
const MessageHeaderSize = 4

// Header schemas of the four PCEP framings.
var (
	MessageHeader = wire.MustCompile("message-header", 4,
		wire.Uint("version", 0, 3).WithDefault(Version),
		wire.Uint("flags", 3, 5),
		wire.Uint("type", 8, 8),
		wire.Uint("length", 16, 16))

	ObjectHeader = wire.MustCompile("object-header", 4,
		wire.Uint("class", 0, 8),
		wire.Uint("type", 8, 4),
		wire.Flag("processing", 14),
		wire.Flag("ignore", 15),
		wire.Uint("length", 16, 16))

	TLVHeader = wire.MustCompile("tlv-header", 4,
		wire.Uint("type", 0, 16),
		wire.Uint("length", 16, 16))

	SubobjectHeader = wire.MustCompile("subobject-header", 1,
		wire.Flag("loose", 0),
		wire.Uint("type", 1, 7),
		wire.Uint("length", 8, 8))
)

// Header field IDs
var (
	MessageVersion = MessageHeader.MustID("version")
	MessageFlags   = MessageHeader.MustID("flags")
	MessageTypeID  = MessageHeader.MustID("type")
	MessageLength  = MessageHeader.MustID("length")

	ObjectClass      = ObjectHeader.MustID("class")
	ObjectType       = ObjectHeader.MustID("type")
	ObjectProcessing = ObjectHeader.MustID("processing")
	ObjectIgnore     = ObjectHeader.MustID("ignore")
	ObjectLength     = ObjectHeader.MustID("length")

	TLVType   = TLVHeader.MustID("type")
	TLVLength = TLVHeader.MustID("length")

	SubobjectLoose  = SubobjectHeader.MustID("loose")
	SubobjectType   = SubobjectHeader.MustID("type")
	SubobjectLength = SubobjectHeader.MustID("length")
)

// Framings
var (
	Messages = &wire.Framing{
		Name:                 "message",
		Header:               MessageHeader,
		Length:               MessageLength,
		LengthIncludesHeader: true,
		Pad:                  4,
		KeyOf:                func(h *wire.Record) uint32 { return uint32(h.Get(MessageTypeID)) },
		StampKey:             func(h *wire.Record, key uint32) { h.SetDegraded(MessageTypeID, uint64(key)) },
	}

	Objects = &wire.Framing{
		Name:                 "object",
		Header:               ObjectHeader,
		Length:               ObjectLength,
		LengthIncludesHeader: true,
		Pad:                  4,
		KeyOf: func(h *wire.Record) uint32 {
			return ObjectKey(uint8(h.Get(ObjectClass)), uint8(h.Get(ObjectType)))
		},
		StampKey: func(h *wire.Record, key uint32) {
			h.SetDegraded(ObjectClass, uint64(key>>4))
			h.SetDegraded(ObjectType, uint64(key&0xf))
		},
	}

	TLVs = &wire.Framing{
		Name:     "tlv",
		Header:   TLVHeader,
		Length:   TLVLength,
		Pad:      4,
		KeyOf:    func(h *wire.Record) uint32 { return uint32(h.Get(TLVType)) },
		StampKey: func(h *wire.Record, key uint32) { h.SetDegraded(TLVType, uint64(key)) },
	}

	Subobjects = &wire.Framing{
		Name:                 "subobject",
		Header:               SubobjectHeader,
		Length:               SubobjectLength,
		LengthIncludesHeader: true,
		Pad:                  1,
		KeyOf:                func(h *wire.Record) uint32 { return uint32(h.Get(SubobjectType)) },
		StampKey:             func(h *wire.Record, key uint32) { h.SetDegraded(SubobjectType, uint64(key)) },
	}
)

// Header is the decoded common message header.
type Header struct {
	Version uint8
	Flags   uint8
	Type    MessageType
	Length  int
}

// PeekHeader decodes the common header at the start of buf.
func PeekHeader(buf []byte) (Header, error) {
	if len(buf) < MessageHeaderSize {
		return Header{}, ErrShortMessage
	}
	r := wire.NewRecord(MessageHeader)
	r.Decode(buf[:MessageHeaderSize])
	return Header{
		Version: uint8(r.Get(MessageVersion)),
		Flags:   uint8(r.Get(MessageFlags)),
		Type:    MessageType(r.Get(MessageTypeID)),
		Length:  int(r.Get(MessageLength)),
	}, nil
}

// Validate checks the version and length rules that framing depends on.
func (h Header) Validate() error {
	if h.Version != Version {
		return fmt.Errorf("%w: %d", ErrBadVersion, h.Version)
	}
	if h.Length < MessageHeaderSize || h.Length%4 != 0 {
		return fmt.Errorf("%w: %d", ErrBadLength, h.Length)
	}
	return nil
}

func (h Header) String() string {
	return fmt.Sprintf("v%d %s len=%d", h.Version, h.Type, h.Length)
}
