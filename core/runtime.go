/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package core

import "time"

// Version of pcepd.
var Version string

// BuildTime contains the timestamp of when the version of pcepd was built.
var BuildTime string

// StartTimestamp is the time the daemon was started.
var StartTimestamp time.Time
