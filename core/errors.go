/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package core

import "errors"

// Error definitions
var (
	ErrNoConfig       = errors.New("configuration has not been loaded")
	ErrBadConfigValue = errors.New("configuration value has the wrong type")
)
