/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package pcep

import "github.com/pcepsim/pcepd/pcep/wire"

// RSVP sub-objects are not padded, so their bodies use byte alignment.
var (
	ipv4PrefixBody = wire.MustCompile("IPv4-PREFIX", 1,
		wire.Uint("address", 0, 32),
		wire.Uint("prefix_length", 32, 8),
		wire.Uint("flags", 40, 8))

	labelBody = wire.MustCompile("LABEL", 1,
		wire.Flag("upstream", 0),
		wire.Uint("ctype", 8, 8),
		wire.Uint("label", 16, 32))

	unnumberedBody = wire.MustCompile("UNNUMBERED-INTERFACE", 1,
		wire.Uint("router_id", 16, 32),
		wire.Uint("interface_id", 48, 32))

	asNumberBody = wire.MustCompile("AS-NUMBER", 1,
		wire.Uint("as", 0, 16))

	segmentHopBody = wire.MustCompile("SR-ERO", 1,
		wire.Uint("nai_type", 0, 4),
		wire.Flag("no_nai", 12),
		wire.Flag("no_sid", 13),
		wire.Flag("c", 14),
		wire.Flag("m", 15),
		wire.Uint("sid", 16, 32))
)

// Sub-object field IDs
var (
	IPv4Address      = ipv4PrefixBody.MustID("address")
	IPv4PrefixLength = ipv4PrefixBody.MustID("prefix_length")
	LabelValue       = labelBody.MustID("label")
	UnnumberedRouter = unnumberedBody.MustID("router_id")
	UnnumberedIface  = unnumberedBody.MustID("interface_id")
	ASNumber         = asNumberBody.MustID("as")
	SegmentNAIType   = segmentHopBody.MustID("nai_type")
	SegmentNoNAI     = segmentHopBody.MustID("no_nai")
	SegmentMPLS      = segmentHopBody.MustID("m")
	SegmentSID       = segmentHopBody.MustID("sid")
)

// Sub-object kinds
var (
	KindIPv4Prefix = &wire.Kind{Name: "IPv4-PREFIX", Key: SubIPv4Prefix, Body: ipv4PrefixBody}
	KindLabel      = &wire.Kind{Name: "LABEL", Key: SubLabel, Body: labelBody}
	KindUnnumbered = &wire.Kind{Name: "UNNUMBERED-INTERFACE", Key: SubUnnumbered, Body: unnumberedBody}
	KindASNumber   = &wire.Kind{Name: "AS-NUMBER", Key: SubASNumber, Body: asNumberBody}
	KindSegmentHop = &wire.Kind{Name: "SR-ERO", Key: SubSegmentHop, Body: segmentHopBody, Payload: true}
)

var subobjectKinds = []*wire.Kind{KindIPv4Prefix, KindLabel, KindUnnumbered, KindASNumber, KindSegmentHop}
