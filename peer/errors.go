/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package peer

import "errors"

// Error definitions
var (
	ErrNotUp        = errors.New("no open session")
	ErrNotCapable   = errors.New("capability not negotiated")
	ErrWrongSpeaker = errors.New("operation not available for this speaker")
	ErrUnknownLSP   = errors.New("unknown LSP")
	ErrNotDelegated = errors.New("LSP is not delegated")
	ErrNameInUse    = errors.New("symbolic name already in use")
	ErrStopped      = errors.New("peer or bus stopped")
)
