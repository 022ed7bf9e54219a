/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package table

import (
	"math"
	"net/netip"
	"time"

	"github.com/cespare/xxhash"
	"github.com/pcepsim/pcepd/core"
	"github.com/pcepsim/pcepd/pcep"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// MaxPLSPID is the largest PLSP-ID. Zero is reserved.
const MaxPLSPID = 1<<20 - 1

// HistoryKind tells what kind of message an LSP history entry holds.
type HistoryKind int

// History kinds.
const (
	HistoryReport HistoryKind = iota
	HistoryUpdate
	HistoryInitiate
)

func (k HistoryKind) String() string {
	switch k {
	case HistoryReport:
		return "Report"
	case HistoryUpdate:
		return "Update"
	default:
		return "Initiate"
	}
}

// HistoryEntry is one message that touched an LSP.
type HistoryEntry struct {
	Kind    HistoryKind
	Time    time.Time
	Version uint64
	Message *pcep.Message
}

// LSP is the state of one label-switched path known to a session.
type LSP struct {
	PLSPID      uint32
	Name        string
	Src         netip.Addr
	Dst         netip.Addr
	ERO         []netip.Addr
	Delegated   bool
	Initiated   bool
	Operational bool
	LastReport  *pcep.Message
	LastUpdate  *pcep.Message
	History     []HistoryEntry
}

func (l *LSP) record(e HistoryEntry) {
	switch e.Kind {
	case HistoryReport:
		l.LastReport = e.Message
	default:
		l.LastUpdate = e.Message
	}
	l.History = append(l.History, e)
	if historyLimit > 0 && len(l.History) > historyLimit {
		l.History = slices.Delete(l.History, 0, len(l.History)-historyLimit)
	}
}

// LSPDB is the LSP state database of one session. It is not safe for concurrent use.
type LSPDB struct {
	name    string
	lsps    map[uint32]*LSP
	names   map[uint64]uint32
	version uint64
	nextID  uint32
}

// NewLSPDB creates a database whose version counter starts at version. Zero means no version.
func NewLSPDB(name string, version uint64) *LSPDB {
	return &LSPDB{
		name:    name,
		lsps:    make(map[uint32]*LSP),
		names:   make(map[uint64]uint32),
		version: version,
		nextID:  1,
	}
}

func (db *LSPDB) String() string {
	return "LSPDB, " + db.name
}

// Version returns the current database version.
func (db *LSPDB) Version() uint64 {
	return db.version
}

// Bump advances the version counter and returns the new version.
// The counter skips the reserved maximum and zero.
func (db *LSPDB) Bump() uint64 {
	db.version = NextVersion(db.version)
	return db.version
}

// NextVersion returns the version following v.
func NextVersion(v uint64) uint64 {
	v++
	if v == math.MaxUint64 || v == 0 {
		v = 1
	}
	return v
}

// Adopt takes over the version announced by the peer that owns the LSPs.
// An apparent regression is logged and accepted.
func (db *LSPDB) Adopt(v uint64) {
	if v == 0 {
		return
	}
	if v < db.version {
		core.LogWarn(db, "Database version regressed from ", db.version, " to ", v)
	}
	db.version = v
}

// Invalidate forgets the version, so the next session cannot avoid synchronization.
// The LSPs are kept until a synchronization replaces them.
func (db *LSPDB) Invalidate() {
	db.version = 0
}

// Len returns the number of LSPs.
func (db *LSPDB) Len() int {
	return len(db.lsps)
}

// Get returns the LSP with the given PLSP-ID.
func (db *LSPDB) Get(id uint32) *LSP {
	return db.lsps[id]
}

// ByName returns the LSP with the given symbolic name.
func (db *LSPDB) ByName(name string) *LSP {
	id, ok := db.names[xxhash.Sum64String(name)]
	if !ok {
		return nil
	}
	if l := db.lsps[id]; l != nil && l.Name == name {
		return l
	}
	return nil
}

// Allocate creates an LSP with a fresh PLSP-ID.
func (db *LSPDB) Allocate(name string) *LSP {
	for db.lsps[db.nextID] != nil {
		db.advanceID()
	}
	l := &LSP{PLSPID: db.nextID, Name: name}
	db.advanceID()
	db.insert(l)
	return l
}

func (db *LSPDB) advanceID() {
	db.nextID++
	if db.nextID > MaxPLSPID {
		db.nextID = 1
	}
}

// Learn returns the LSP with the given PLSP-ID, creating it if it is not known yet.
func (db *LSPDB) Learn(id uint32, name string) *LSP {
	l := db.lsps[id]
	if l == nil {
		l = &LSP{PLSPID: id, Name: name}
		db.insert(l)
		return l
	}
	if name != "" && name != l.Name {
		db.unindex(l)
		l.Name = name
		db.index(l)
	}
	return l
}

func (db *LSPDB) insert(l *LSP) {
	db.lsps[l.PLSPID] = l
	db.index(l)
}

func (db *LSPDB) index(l *LSP) {
	if l.Name != "" {
		db.names[xxhash.Sum64String(l.Name)] = l.PLSPID
	}
}

func (db *LSPDB) unindex(l *LSP) {
	if l.Name == "" {
		return
	}
	h := xxhash.Sum64String(l.Name)
	if db.names[h] == l.PLSPID {
		delete(db.names, h)
	}
}

// Remove deletes an LSP. It returns false if the LSP is not known.
func (db *LSPDB) Remove(id uint32) bool {
	l := db.lsps[id]
	if l == nil {
		return false
	}
	db.unindex(l)
	delete(db.lsps, id)
	return true
}

// Record appends a message to the history of an LSP, stamped with the current version.
func (db *LSPDB) Record(l *LSP, kind HistoryKind, m *pcep.Message, at time.Time) {
	l.record(HistoryEntry{Kind: kind, Time: at, Version: db.version, Message: m})
}

// All returns every LSP ordered by PLSP-ID.
func (db *LSPDB) All() []*LSP {
	ids := maps.Keys(db.lsps)
	slices.Sort(ids)
	out := make([]*LSP, 0, len(ids))
	for _, id := range ids {
		out = append(out, db.lsps[id])
	}
	return out
}
