/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package pcep

import "github.com/pcepsim/pcepd/pcep/wire"

///////////////////////////////////////////////////////////////////////////////
// Object bodies
///////////////////////////////////////////////////////////////////////////////

var (
	openBody = wire.MustCompile("OPEN", 4,
		wire.Uint("version", 0, 3).WithDefault(Version),
		wire.Uint("flags", 3, 5),
		wire.Uint("keepalive", 8, 8),
		wire.Uint("deadtimer", 16, 8),
		wire.Uint("session_id", 24, 8))

	rpBody = wire.MustCompile("RP", 4,
		wire.Flag("strict", 26),
		wire.Flag("bidirectional", 27),
		wire.Flag("reoptimization", 28),
		wire.Uint("priority", 29, 3),
		wire.Uint("request_id", 32, 32))

	noPathBody = wire.MustCompile("NO-PATH", 4,
		wire.Uint("nature", 0, 8),
		wire.Flag("unsatisfied", 8))

	endpointsIPv4Body = wire.MustCompile("END-POINTS", 4,
		wire.Uint("source", 0, 32),
		wire.Uint("destination", 32, 32))

	bandwidthBody = wire.MustCompile("BANDWIDTH", 4,
		wire.Float32("bandwidth", 0))

	metricBody = wire.MustCompile("METRIC", 4,
		wire.Flag("computed", 22),
		wire.Flag("bound", 23),
		wire.Uint("type", 24, 8),
		wire.Float32("value", 32))

	lspaBody = wire.MustCompile("LSPA", 4,
		wire.Uint("exclude_any", 0, 32),
		wire.Uint("include_any", 32, 32),
		wire.Uint("include_all", 64, 32),
		wire.Uint("setup_priority", 96, 8),
		wire.Uint("holding_priority", 104, 8),
		wire.Flag("local_protection", 119))

	notificationBody = wire.MustCompile("NOTIFICATION", 4,
		wire.Uint("type", 16, 8),
		wire.Uint("value", 24, 8))

	errorBody = wire.MustCompile("PCEP-ERROR", 4,
		wire.Uint("type", 16, 8),
		wire.Uint("value", 24, 8))

	closeBody = wire.MustCompile("CLOSE", 4,
		wire.Uint("reason", 24, 8))

	lspBody = wire.MustCompile("LSP", 4,
		wire.Uint("plsp_id", 0, 20),
		wire.Flag("create", 24),
		wire.Uint("operational", 25, 3),
		wire.Flag("administrative", 28),
		wire.Flag("remove", 29),
		wire.Flag("sync", 30),
		wire.Flag("delegate", 31))

	srpBody = wire.MustCompile("SRP", 4,
		wire.Flag("remove", 31),
		wire.Uint("srp_id", 32, 32))
)

// Object field IDs
var (
	OpenVersion   = openBody.MustID("version")
	OpenKeepalive = openBody.MustID("keepalive")
	OpenDeadtimer = openBody.MustID("deadtimer")
	OpenSessionID = openBody.MustID("session_id")

	RPStrict    = rpBody.MustID("strict")
	RPPriority  = rpBody.MustID("priority")
	RPRequestID = rpBody.MustID("request_id")

	NoPathNature = noPathBody.MustID("nature")

	EndpointsSource      = endpointsIPv4Body.MustID("source")
	EndpointsDestination = endpointsIPv4Body.MustID("destination")

	BandwidthValue = bandwidthBody.MustID("bandwidth")

	MetricComputed = metricBody.MustID("computed")
	MetricBound    = metricBody.MustID("bound")
	MetricType     = metricBody.MustID("type")
	MetricValue    = metricBody.MustID("value")

	LSPASetupPriority   = lspaBody.MustID("setup_priority")
	LSPAHoldingPriority = lspaBody.MustID("holding_priority")

	NotificationType  = notificationBody.MustID("type")
	NotificationValue = notificationBody.MustID("value")

	ErrorTypeID  = errorBody.MustID("type")
	ErrorValueID = errorBody.MustID("value")

	CloseReasonID = closeBody.MustID("reason")

	LSPPlspID      = lspBody.MustID("plsp_id")
	LSPCreate      = lspBody.MustID("create")
	LSPOperational = lspBody.MustID("operational")
	LSPAdmin       = lspBody.MustID("administrative")
	LSPRemove      = lspBody.MustID("remove")
	LSPSync        = lspBody.MustID("sync")
	LSPDelegate    = lspBody.MustID("delegate")

	SRPRemove = srpBody.MustID("remove")
	SRPID     = srpBody.MustID("srp_id")
)

// Object kinds
var (
	KindOpen               = &wire.Kind{Name: "OPEN", Key: ObjectKey(ClassOpen, 1), Body: openBody, Children: TLVs}
	KindRP                 = &wire.Kind{Name: "RP", Key: ObjectKey(ClassRP, 1), Body: rpBody, Children: TLVs}
	KindNoPath             = &wire.Kind{Name: "NO-PATH", Key: ObjectKey(ClassNoPath, 1), Body: noPathBody, Children: TLVs}
	KindEndpointsIPv4      = &wire.Kind{Name: "END-POINTS", Key: ObjectKey(ClassEndpoints, 1), Body: endpointsIPv4Body}
	KindBandwidthRequested = &wire.Kind{Name: "BANDWIDTH", Key: ObjectKey(ClassBandwidth, 1), Body: bandwidthBody}
	KindBandwidthExisting  = &wire.Kind{Name: "BANDWIDTH-EXISTING", Key: ObjectKey(ClassBandwidth, 2), Body: bandwidthBody}
	KindMetric             = &wire.Kind{Name: "METRIC", Key: ObjectKey(ClassMetric, 1), Body: metricBody}
	KindERO                = &wire.Kind{Name: "ERO", Key: ObjectKey(ClassERO, 1), Children: Subobjects}
	KindRRO                = &wire.Kind{Name: "RRO", Key: ObjectKey(ClassRRO, 1), Children: Subobjects}
	KindLSPA               = &wire.Kind{Name: "LSPA", Key: ObjectKey(ClassLSPA, 1), Body: lspaBody, Children: TLVs}
	KindIRO                = &wire.Kind{Name: "IRO", Key: ObjectKey(ClassIRO, 1), Children: Subobjects}
	KindNotification       = &wire.Kind{Name: "NOTIFICATION", Key: ObjectKey(ClassNotification, 1), Body: notificationBody, Children: TLVs}
	KindError              = &wire.Kind{Name: "PCEP-ERROR", Key: ObjectKey(ClassError, 1), Body: errorBody, Children: TLVs}
	KindClose              = &wire.Kind{Name: "CLOSE", Key: ObjectKey(ClassClose, 1), Body: closeBody, Children: TLVs}
	KindLSP                = &wire.Kind{Name: "LSP", Key: ObjectKey(ClassLSP, 1), Body: lspBody, Children: TLVs}
	KindSRP                = &wire.Kind{Name: "SRP", Key: ObjectKey(ClassSRP, 1), Body: srpBody, Children: TLVs}
)

var objectKinds = []*wire.Kind{
	KindOpen, KindRP, KindNoPath, KindEndpointsIPv4, KindBandwidthRequested, KindBandwidthExisting,
	KindMetric, KindERO, KindRRO, KindLSPA, KindIRO, KindNotification, KindError, KindClose, KindLSP, KindSRP,
}
