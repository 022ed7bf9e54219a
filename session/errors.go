/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package session

import (
	"errors"
	"fmt"

	"github.com/pcepsim/pcepd/pcep"
)

// Error definitions
var (
	ErrSessionClosed = errors.New("session is closing or closed")
	ErrPoolExhausted = errors.New("receive buffer pool exhausted")
)

// FramingError reports a message header that cannot start a valid frame.
type FramingError struct {
	Header pcep.Header
	Err    error
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("framing error at %s: %v", e.Header, e.Err)
}

func (e *FramingError) Unwrap() error {
	return e.Err
}
