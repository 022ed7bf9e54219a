/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package table

import (
	"time"

	"github.com/cornelk/hashmap"
	"golang.org/x/exp/slices"
)

// SessionStatus is a snapshot of one session, published by its peer.
type SessionStatus struct {
	ID            string    `json:"id"`
	Peer          string    `json:"peer"`
	Speaker       string    `json:"speaker"`
	Remote        string    `json:"remote"`
	State         string    `json:"state"`
	Opener        string    `json:"opener"`
	Keepalive     uint8     `json:"keepalive"`
	Deadtimer     uint8     `json:"deadtimer"`
	MessagesIn    uint64    `json:"messagesIn"`
	MessagesOut   uint64    `json:"messagesOut"`
	FramingErrors uint64    `json:"framingErrors"`
	LSPs          int       `json:"lsps"`
	DBVersion     uint64    `json:"dbVersion"`
	Synced        bool      `json:"synced"`
	SyncAvoided   bool      `json:"syncAvoided"`
	Created       time.Time `json:"created"`
	Updated       time.Time `json:"updated"`
}

type sessionTable struct {
	table *hashmap.HashMap
}

// Sessions contains the status of every live session. It is safe for concurrent use.
var Sessions = &sessionTable{table: hashmap.New(16)}

// Publish stores a status snapshot, replacing the previous one of the same session.
func (t *sessionTable) Publish(s SessionStatus) {
	t.table.Set(s.ID, &s)
}

// Get returns the latest snapshot of a session.
func (t *sessionTable) Get(id string) (SessionStatus, bool) {
	v, ok := t.table.GetStringKey(id)
	if !ok {
		return SessionStatus{}, false
	}
	return *v.(*SessionStatus), true
}

// Remove deletes a session.
func (t *sessionTable) Remove(id string) {
	t.table.Del(id)
}

// Len returns the number of sessions.
func (t *sessionTable) Len() int {
	return t.table.Len()
}

// Snapshot returns every session ordered by peer name, then creation time.
func (t *sessionTable) Snapshot() []SessionStatus {
	out := make([]SessionStatus, 0, t.table.Len())
	for kv := range t.table.Iter() {
		out = append(out, *kv.Value.(*SessionStatus))
	}
	slices.SortFunc(out, func(a, b SessionStatus) bool {
		if a.Peer != b.Peer {
			return a.Peer < b.Peer
		}
		return a.Created.Before(b.Created)
	})
	return out
}
