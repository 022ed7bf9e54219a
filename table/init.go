/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package table

import (
	"github.com/pcepsim/pcepd/core"
)

// historyLimit is the maximum number of history entries kept per LSP. Zero keeps everything.
var historyLimit = 32

// Configure configures the tables.
func Configure() {
	historyLimit = core.GetConfigIntDefault("tables.lsp_history", 32)
	if historyLimit < 0 {
		historyLimit = 0
	}
	core.LogDebug("Tables", "LSP history limit=", historyLimit)
}
