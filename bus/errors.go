/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package bus

import (
	"errors"
	"fmt"
)

// Error definitions
var (
	ErrReconcileLimit = errors.New("connection set did not settle")
	ErrRunning        = errors.New("bus is already running")
	ErrClosed         = errors.New("socket closed by peer")
)

// SocketError is an operating system failure tagged with the action that failed.
type SocketError struct {
	Op  string
	Err error
}

func (e *SocketError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SocketError) Unwrap() error {
	return e.Err
}

func socketError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &SocketError{Op: op, Err: err}
}
