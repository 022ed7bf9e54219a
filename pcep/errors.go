/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package pcep

import (
	"errors"
	"fmt"
)

// Error definitions
var (
	ErrShortMessage = errors.New("buffer shorter than message")
	ErrBadVersion   = errors.New("unsupported PCEP version")
	ErrBadLength    = errors.New("message length is zero or not a multiple of 4")
	ErrNoGrammar    = errors.New("no grammar for message type")
	ErrNotFound     = errors.New("object not present")
)

// ErrorType is the Error-Type of a PCEP-ERROR object.
type ErrorType uint8

// Error types
const (
	ErrTypeSessionFailure   ErrorType = 1
	ErrTypeCapability       ErrorType = 2
	ErrTypeUnknownObject    ErrorType = 3
	ErrTypeNotSupported     ErrorType = 4
	ErrTypePolicy           ErrorType = 5
	ErrTypeMandatoryMissing ErrorType = 6
	ErrTypeUnknownRequest   ErrorType = 8
	ErrTypeSecondSession    ErrorType = 9
	ErrTypeInvalidObject    ErrorType = 10
	ErrTypeInvalidOperation ErrorType = 19
	ErrTypeSyncError        ErrorType = 20
	ErrTypeInstantiation    ErrorType = 24
)

// Error values for ErrTypeSessionFailure
const (
	ErrValueReceivedNotOpen    uint8 = 1
	ErrValueOpenWaitExpired    uint8 = 2
	ErrValueNonNegotiable      uint8 = 3
	ErrValueNegotiable         uint8 = 4
	ErrValueSecondUnacceptable uint8 = 5
	ErrValueProposalRejected   uint8 = 6
	ErrValueKeepWaitExpired    uint8 = 7
)

// Error values for ErrTypeInvalidOperation
const (
	ErrValueNotDelegated      uint8 = 1
	ErrValueNotStateful       uint8 = 2
	ErrValueUnknownPLSP       uint8 = 3
	ErrValueReportNotStateful uint8 = 5
	ErrValueNotActive         uint8 = 6
	ErrValueNotInitiated      uint8 = 9
)

// Error values for ErrTypeMandatoryMissing
const (
	ErrValueMissingRP  uint8 = 1
	ErrValueMissingLSP uint8 = 8
	ErrValueMissingERO uint8 = 9
	ErrValueMissingSRP uint8 = 10
)

// Error values for ErrTypeSyncError
const (
	ErrValueSyncReport uint8 = 1
)

// Error values for ErrTypeInstantiation
const (
	ErrValueUnacceptableParams uint8 = 1
	ErrValueInternalError      uint8 = 2
	ErrValueNameInUse          uint8 = 3
)

// CloseReason is the reason carried in a CLOSE object.
type CloseReason uint8

// Close reasons
const (
	CloseNoReason          CloseReason = 1
	CloseDeadTimerExpired  CloseReason = 2
	CloseMalformedMessage  CloseReason = 3
	CloseTooManyUnknownReq CloseReason = 4
	CloseTooManyUnknownMsg CloseReason = 5
)

func (r CloseReason) String() string {
	switch r {
	case CloseNoReason:
		return "NoExplanation"
	case CloseDeadTimerExpired:
		return "DeadTimerExpired"
	case CloseMalformedMessage:
		return "MalformedMessage"
	case CloseTooManyUnknownReq:
		return "TooManyUnknownRequests"
	case CloseTooManyUnknownMsg:
		return "TooManyUnrecognizedMessages"
	default:
		return fmt.Sprintf("CloseReason(%d)", uint8(r))
	}
}

// ProtocolError is a PCEP error condition identified by its (type, value) code.
type ProtocolError struct {
	Type  ErrorType
	Value uint8
	Cause error
}

// NewProtocolError creates a protocol error.
func NewProtocolError(typ ErrorType, value uint8, cause error) *ProtocolError {
	return &ProtocolError{Type: typ, Value: value, Cause: cause}
}

func (e *ProtocolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("PCEP error %d/%d: %v", e.Type, e.Value, e.Cause)
	}
	return fmt.Sprintf("PCEP error %d/%d", e.Type, e.Value)
}

func (e *ProtocolError) Unwrap() error {
	return e.Cause
}

// Is matches another ProtocolError with the same code.
func (e *ProtocolError) Is(target error) bool {
	t, ok := target.(*ProtocolError)
	return ok && t.Type == e.Type && t.Value == e.Value
}
