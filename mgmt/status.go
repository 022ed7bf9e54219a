/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package mgmt

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pcepsim/pcepd/core"
	"github.com/pcepsim/pcepd/table"
)

// GeneralStatus is the document served on /status and pushed on /ws.
type GeneralStatus struct {
	Version          string                 `json:"version"`
	StartTimestamp   time.Time              `json:"startTimestamp"`
	CurrentTimestamp time.Time              `json:"currentTimestamp"`
	NSessions        int                    `json:"nSessions"`
	Sessions         []table.SessionStatus  `json:"sessions"`
	Measurements     map[string]interface{} `json:"measurements"`
}

// Status collects the current status.
func Status() *GeneralStatus {
	sessions := table.Sessions.Snapshot()
	return &GeneralStatus{
		Version:          core.Version,
		StartTimestamp:   core.StartTimestamp,
		CurrentTimestamp: time.Now(),
		NSessions:        len(sessions),
		Sessions:         sessions,
		Measurements:     table.Measurements(),
	}
}

func (m *Thread) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(Status()); err != nil {
		core.LogDebug(m, "Unable to write status: ", err)
	}
}
