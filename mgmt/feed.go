/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package mgmt

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pcepsim/pcepd/core"
)

const writeWait = 5 * time.Second

// handleFeed pushes a status document every interval until the client goes away.
func (m *Thread) handleFeed(w http.ResponseWriter, r *http.Request) {
	if !m.register() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	defer m.feeds.Done()
	c, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer c.Close()
	core.LogInfo(m, "Status feed opened by ", c.RemoteAddr())

	// Clients never send data; reading detects when they close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := c.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	for {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteJSON(Status()); err != nil {
			core.LogDebug(m, "Status feed closed: ", err)
			return
		}
		select {
		case <-ticker.C:
		case <-gone:
			core.LogInfo(m, "Status feed closed by ", c.RemoteAddr())
			return
		case <-m.quit:
			c.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(writeWait))
			return
		}
	}
}
