/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package pcep

import (
	w "github.com/pcepsim/pcepd/pcep/wire"
)

// Message kinds. A message has no body; its objects are the container's children.
var (
	KindMsgOpen       = &w.Kind{Name: "Open", Key: uint32(MsgOpen), Children: Objects}
	KindMsgKeepalive  = &w.Kind{Name: "Keepalive", Key: uint32(MsgKeepalive), Children: Objects}
	KindMsgPCReq      = &w.Kind{Name: "PCReq", Key: uint32(MsgPCReq), Children: Objects}
	KindMsgPCRep      = &w.Kind{Name: "PCRep", Key: uint32(MsgPCRep), Children: Objects}
	KindMsgPCNtf      = &w.Kind{Name: "PCNtf", Key: uint32(MsgPCNtf), Children: Objects}
	KindMsgPCErr      = &w.Kind{Name: "PCErr", Key: uint32(MsgPCErr), Children: Objects}
	KindMsgClose      = &w.Kind{Name: "Close", Key: uint32(MsgClose), Children: Objects}
	KindMsgPCRpt      = &w.Kind{Name: "PCRpt", Key: uint32(MsgPCRpt), Children: Objects}
	KindMsgPCUpd      = &w.Kind{Name: "PCUpd", Key: uint32(MsgPCUpd), Children: Objects}
	KindMsgPCInitiate = &w.Kind{Name: "PCInitiate", Key: uint32(MsgPCInitiate), Children: Objects}

	// KindMsgGeneric carries message types without a registered kind.
	KindMsgGeneric = &w.Kind{Name: "Message", Key: 0, Children: Objects}
)

var messageKinds = []*w.Kind{
	KindMsgOpen, KindMsgKeepalive, KindMsgPCReq, KindMsgPCRep, KindMsgPCNtf,
	KindMsgPCErr, KindMsgClose, KindMsgPCRpt, KindMsgPCUpd, KindMsgPCInitiate,
}

// Grammar rule names shared by several messages.
const (
	RuleOpen          = "open"
	RuleClose         = "close"
	RuleRequests      = "requests"
	RuleResponses     = "responses"
	RuleNotifications = "notifications"
	RuleErrors        = "errors"
	RuleReports       = "reports"
	RuleUpdates       = "updates"
	RulePaths         = "paths"
	RuleRP            = "rp"
	RuleSRP           = "srp"
	RuleLSP           = "lsp"
	RuleEndpoints     = "endpoints"
	RuleNoPath        = "no-path"
	RuleERO           = "ero"
	RuleRRO           = "rro"
	RuleIRO           = "iro"
	RuleLSPA          = "lspa"
	RuleBandwidth     = "bandwidth"
	RuleMetrics       = "metrics"
	RuleNotification  = "notification"
	RuleError         = "error"
	RuleIDs           = "ids"
)

var bandwidths = []*w.Kind{KindBandwidthRequested, KindBandwidthExisting}

// Message grammars. Alternatives are written as optional slots.
var (
	openGrammar      = w.NewGrammar("Open", w.Match(RuleOpen, w.One, KindOpen))
	keepaliveGrammar = w.NewGrammar("Keepalive")
	closeGrammar     = w.NewGrammar("Close", w.Match(RuleClose, w.One, KindClose))

	requestGrammar = w.NewGrammar("request",
		w.Match(RuleRP, w.One, KindRP),
		w.Match(RuleEndpoints, w.One, KindEndpointsIPv4),
		w.Match(RuleLSP, w.Optional, KindLSP),
		w.Match(RuleLSPA, w.Optional, KindLSPA),
		w.Match(RuleBandwidth, w.Many, bandwidths...),
		w.Match(RuleMetrics, w.Many, KindMetric),
		w.Match(RuleRRO, w.Optional, KindRRO),
		w.Match(RuleIRO, w.Optional, KindIRO))
	pcreqGrammar = w.NewGrammar("PCReq", w.Nest(RuleRequests, w.OneOrMore, requestGrammar))

	pathGrammar = w.NewGrammar("path",
		w.Match(RuleERO, w.One, KindERO),
		w.Match(RuleLSPA, w.Optional, KindLSPA),
		w.Match(RuleBandwidth, w.Many, bandwidths...),
		w.Match(RuleMetrics, w.Many, KindMetric),
		w.Match(RuleIRO, w.Optional, KindIRO))
	responseGrammar = w.NewGrammar("response",
		w.Match(RuleRP, w.One, KindRP),
		w.Match(RuleNoPath, w.Optional, KindNoPath),
		w.Match(RuleLSPA, w.Optional, KindLSPA),
		w.Match(RuleBandwidth, w.Many, bandwidths...),
		w.Match(RuleMetrics, w.Many, KindMetric),
		w.Match(RuleIRO, w.Optional, KindIRO),
		w.Nest(RulePaths, w.Many, pathGrammar))
	pcrepGrammar = w.NewGrammar("PCRep", w.Nest(RuleResponses, w.OneOrMore, responseGrammar))

	notifyGrammar = w.NewGrammar("notify",
		w.Match(RuleRP, w.Many, KindRP),
		w.Match(RuleNotification, w.OneOrMore, KindNotification))
	pcntfGrammar = w.NewGrammar("PCNtf", w.Nest(RuleNotifications, w.OneOrMore, notifyGrammar))

	errorGrammar = w.NewGrammar("error",
		w.Match(RuleIDs, w.Many, KindRP, KindSRP),
		w.Match(RuleError, w.OneOrMore, KindError))
	pcerrGrammar = w.NewGrammar("PCErr",
		w.Nest(RuleErrors, w.OneOrMore, errorGrammar),
		w.Match(RuleOpen, w.Optional, KindOpen))

	reportGrammar = w.NewGrammar("report",
		w.Match(RuleSRP, w.Optional, KindSRP),
		w.Match(RuleLSP, w.One, KindLSP),
		w.Match(RuleERO, w.Optional, KindERO),
		w.Match(RuleLSPA, w.Optional, KindLSPA),
		w.Match(RuleBandwidth, w.Many, bandwidths...),
		w.Match(RuleMetrics, w.Many, KindMetric),
		w.Match(RuleIRO, w.Optional, KindIRO),
		w.Match(RuleRRO, w.Optional, KindRRO))
	pcrptGrammar = w.NewGrammar("PCRpt", w.Nest(RuleReports, w.OneOrMore, reportGrammar))

	updateGrammar = w.NewGrammar("update",
		w.Match(RuleSRP, w.One, KindSRP),
		w.Match(RuleLSP, w.One, KindLSP),
		w.Match(RuleERO, w.One, KindERO),
		w.Match(RuleLSPA, w.Optional, KindLSPA),
		w.Match(RuleBandwidth, w.Many, bandwidths...),
		w.Match(RuleMetrics, w.Many, KindMetric),
		w.Match(RuleIRO, w.Optional, KindIRO))
	pcupdGrammar = w.NewGrammar("PCUpd", w.Nest(RuleUpdates, w.OneOrMore, updateGrammar))

	initiateGrammar = w.NewGrammar("initiate",
		w.Match(RuleSRP, w.One, KindSRP),
		w.Match(RuleLSP, w.One, KindLSP),
		w.Match(RuleEndpoints, w.Optional, KindEndpointsIPv4),
		w.Match(RuleERO, w.Optional, KindERO),
		w.Match(RuleLSPA, w.Optional, KindLSPA),
		w.Match(RuleBandwidth, w.Many, bandwidths...),
		w.Match(RuleMetrics, w.Many, KindMetric),
		w.Match(RuleIRO, w.Optional, KindIRO))
	pcinitiateGrammar = w.NewGrammar("PCInitiate", w.Nest(RuleRequests, w.OneOrMore, initiateGrammar))
)

var grammars = map[MessageType]*w.Grammar{
	MsgOpen:       openGrammar,
	MsgKeepalive:  keepaliveGrammar,
	MsgPCReq:      pcreqGrammar,
	MsgPCRep:      pcrepGrammar,
	MsgPCNtf:      pcntfGrammar,
	MsgPCErr:      pcerrGrammar,
	MsgClose:      closeGrammar,
	MsgPCRpt:      pcrptGrammar,
	MsgPCUpd:      pcupdGrammar,
	MsgPCInitiate: pcinitiateGrammar,
}

// GrammarFor returns the grammar of a message type.
func GrammarFor(t MessageType) (*w.Grammar, bool) {
	g, ok := grammars[t]
	return g, ok
}
