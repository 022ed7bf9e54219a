/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package wire

import (
	"errors"
	"fmt"
)

// Error definitions
var (
	ErrOutOfRange     = errors.New("value does not fit in field")
	ErrWrongKind      = errors.New("field has another kind")
	ErrFieldOverlap   = errors.New("fields overlap")
	ErrDuplicateField = errors.New("duplicate field name")
	ErrBadField       = errors.New("invalid field definition")
	ErrDuplicateKey   = errors.New("kind already registered for key")
	ErrUnregistered   = errors.New("no kind registered for key")
	ErrShortHeader    = errors.New("buffer too short for header")
	ErrTruncated      = errors.New("item extends past its container")
	ErrUnknownRule    = errors.New("grammar has no such rule")
)

// SizeError indicates that the length on the wire contradicts the schema of the kind being decoded.
type SizeError struct {
	Kind     string
	Declared int
	Want     int
	Fixed    bool
}

func (e *SizeError) Error() string {
	if e.Fixed {
		return fmt.Sprintf("%s: declared length %d, fixed size is %d", e.Kind, e.Declared, e.Want)
	}
	return fmt.Sprintf("%s: declared length %d shorter than minimum %d", e.Kind, e.Declared, e.Want)
}
