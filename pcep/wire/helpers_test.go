/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package wire_test

import "github.com/pcepsim/pcepd/pcep/wire"

var testObjectHeader = wire.MustCompile("object-header", 4,
	wire.Uint("class", 0, 8),
	wire.Uint("type", 8, 4),
	wire.Flag("p", 14),
	wire.Flag("i", 15),
	wire.Uint("length", 16, 16))

var testTLVHeader = wire.MustCompile("tlv-header", 4,
	wire.Uint("type", 0, 16),
	wire.Uint("length", 16, 16))

var testSubHeader = wire.MustCompile("sub-header", 1,
	wire.Flag("l", 0),
	wire.Uint("type", 1, 7),
	wire.Uint("length", 8, 8))

var (
	objClass  = testObjectHeader.MustID("class")
	objType   = testObjectHeader.MustID("type")
	tlvType   = testTLVHeader.MustID("type")
	subType   = testSubHeader.MustID("type")
	subLoose  = testSubHeader.MustID("l")
	testOpen  = wire.MustCompile("open", 4, wire.Uint("version", 0, 3).WithDefault(1), wire.Uint("flags", 3, 5), wire.Uint("keepalive", 8, 8), wire.Uint("deadtimer", 16, 8), wire.Uint("sid", 24, 8))
	testDBVer = wire.MustCompile("db-version", 4, wire.Uint("version", 0, 64))
	testSmall = wire.MustCompile("small", 4, wire.Uint("value", 0, 32))
	testIPv4  = wire.MustCompile("ipv4", 1, wire.Uint("address", 0, 32), wire.Uint("prefix", 32, 8))
)

var (
	openKeepalive = testOpen.MustID("keepalive")
	openDeadtimer = testOpen.MustID("deadtimer")
	openSID       = testOpen.MustID("sid")
	dbVersion     = testDBVer.MustID("version")
	smallValue    = testSmall.MustID("value")
	ipv4Address   = testIPv4.MustID("address")
	ipv4Prefix    = testIPv4.MustID("prefix")
)

var testTLVs = &wire.Framing{
	Name:   "tlv",
	Header: testTLVHeader,
	Length: testTLVHeader.MustID("length"),
	Pad:    4,
	KeyOf:  func(h *wire.Record) uint32 { return uint32(h.Get(tlvType)) },
	StampKey: func(h *wire.Record, key uint32) {
		h.MustSet(tlvType, uint64(key))
	},
}

var testSubs = &wire.Framing{
	Name:                 "sub",
	Header:               testSubHeader,
	Length:               testSubHeader.MustID("length"),
	LengthIncludesHeader: true,
	Pad:                  1,
	KeyOf:                func(h *wire.Record) uint32 { return uint32(h.Get(subType)) },
	StampKey: func(h *wire.Record, key uint32) {
		h.MustSet(subType, uint64(key))
	},
}

var testObjects = &wire.Framing{
	Name:                 "object",
	Header:               testObjectHeader,
	Length:               testObjectHeader.MustID("length"),
	LengthIncludesHeader: true,
	Pad:                  4,
	KeyOf: func(h *wire.Record) uint32 {
		return uint32(h.Get(objClass))<<4 | uint32(h.Get(objType))
	},
	StampKey: func(h *wire.Record, key uint32) {
		h.MustSet(objClass, uint64(key>>4))
		h.MustSet(objType, uint64(key&0xf))
	},
}

var (
	kindName    = &wire.Kind{Name: "name", Key: 17, Payload: true}
	kindVersion = &wire.Kind{Name: "db-version", Key: 23, Body: testDBVer}
	kindIPv4    = &wire.Kind{Name: "ipv4", Key: 1, Body: testIPv4}
	kindOpen    = &wire.Kind{Name: "open", Key: 1<<4 | 1, Body: testOpen, Children: testTLVs}
	kindRoute   = &wire.Kind{Name: "route", Key: 7<<4 | 1, Children: testSubs}
	kindA       = &wire.Kind{Name: "a", Key: 100<<4 | 1, Body: testSmall}
	kindB       = &wire.Kind{Name: "b", Key: 101<<4 | 1, Body: testSmall}
	kindC       = &wire.Kind{Name: "c", Key: 102<<4 | 1, Body: testSmall}
)

func init() {
	testTLVs.MustRegister(kindName, kindVersion)
	testSubs.MustRegister(kindIPv4)
	testObjects.MustRegister(kindOpen, kindRoute, kindA, kindB, kindC)
}

func small(k *wire.Kind, v uint64) *wire.Container {
	c := k.New()
	c.Body.MustSet(smallValue, v)
	return c
}
