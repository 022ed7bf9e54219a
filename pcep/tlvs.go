/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package pcep

import "github.com/pcepsim/pcepd/pcep/wire"

var (
	noPathVectorBody = wire.MustCompile("NO-PATH-VECTOR", 4,
		wire.Flag("pce_unavailable", 31),
		wire.Flag("unknown_destination", 30),
		wire.Flag("unknown_source", 29))

	statefulCapBody = wire.MustCompile("STATEFUL-PCE-CAPABILITY", 4,
		wire.Flag("triggered_initial_sync", 26),
		wire.Flag("delta_sync", 27),
		wire.Flag("triggered_resync", 28),
		wire.Flag("instantiation", 29),
		wire.Flag("include_db_version", 30),
		wire.Flag("update", 31))

	ipv4LSPIdentifiersBody = wire.MustCompile("IPV4-LSP-IDENTIFIERS", 4,
		wire.Uint("sender", 0, 32),
		wire.Uint("lsp_id", 32, 16),
		wire.Uint("tunnel_id", 48, 16),
		wire.Uint("extended_tunnel_id", 64, 32),
		wire.Uint("endpoint", 96, 32))

	lspErrorCodeBody = wire.MustCompile("LSP-ERROR-CODE", 4,
		wire.Uint("code", 0, 32))

	dbVersionBody = wire.MustCompile("LSP-DB-VERSION", 4,
		wire.Uint("version", 0, 64))

	pathSetupTypeBody = wire.MustCompile("PATH-SETUP-TYPE", 4,
		wire.Uint("type", 24, 8))
)

// TLV field IDs
var (
	NoPathUnavailable = noPathVectorBody.MustID("pce_unavailable")
	NoPathUnknownDest = noPathVectorBody.MustID("unknown_destination")
	NoPathUnknownSrc  = noPathVectorBody.MustID("unknown_source")

	StatefulUpdate        = statefulCapBody.MustID("update")
	StatefulIncludeDBVer  = statefulCapBody.MustID("include_db_version")
	StatefulInstantiation = statefulCapBody.MustID("instantiation")
	StatefulTriggered     = statefulCapBody.MustID("triggered_resync")

	LSPIdSender    = ipv4LSPIdentifiersBody.MustID("sender")
	LSPIdLSPID     = ipv4LSPIdentifiersBody.MustID("lsp_id")
	LSPIdTunnelID  = ipv4LSPIdentifiersBody.MustID("tunnel_id")
	LSPIdExtended  = ipv4LSPIdentifiersBody.MustID("extended_tunnel_id")
	LSPIdEndpoint  = ipv4LSPIdentifiersBody.MustID("endpoint")
	LSPErrorCode   = lspErrorCodeBody.MustID("code")
	DBVersionValue = dbVersionBody.MustID("version")
	PathSetupValue = pathSetupTypeBody.MustID("type")
)

// TLV kinds
var (
	KindNoPathVector       = &wire.Kind{Name: "NO-PATH-VECTOR", Key: TLVNoPathVector, Body: noPathVectorBody}
	KindStatefulCap        = &wire.Kind{Name: "STATEFUL-PCE-CAPABILITY", Key: TLVStatefulCap, Body: statefulCapBody}
	KindSymbolicPathName   = &wire.Kind{Name: "SYMBOLIC-PATH-NAME", Key: TLVSymbolicPathName, Payload: true}
	KindIPv4LSPIdentifiers = &wire.Kind{Name: "IPV4-LSP-IDENTIFIERS", Key: TLVIPv4LSPIdentifier, Body: ipv4LSPIdentifiersBody}
	KindLSPErrorCode       = &wire.Kind{Name: "LSP-ERROR-CODE", Key: TLVLSPErrorCode, Body: lspErrorCodeBody}
	KindLSPDBVersion       = &wire.Kind{Name: "LSP-DB-VERSION", Key: TLVLSPDBVersion, Body: dbVersionBody}
	KindSpeakerEntityID    = &wire.Kind{Name: "SPEAKER-ENTITY-ID", Key: TLVSpeakerEntityID, Payload: true}
	KindPathSetupType      = &wire.Kind{Name: "PATH-SETUP-TYPE", Key: TLVPathSetupType, Body: pathSetupTypeBody}
)

var tlvKinds = []*wire.Kind{
	KindNoPathVector, KindStatefulCap, KindSymbolicPathName, KindIPv4LSPIdentifiers,
	KindLSPErrorCode, KindLSPDBVersion, KindSpeakerEntityID, KindPathSetupType,
}
