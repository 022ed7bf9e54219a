/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package core_test

import (
	"testing"
	"time"

	"github.com/pcepsim/pcepd/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	require.NoError(t, core.LoadConfigString(`
[core]
log_level = "DEBUG"

[bus]
max_wait_ms = 250

[mgmt]
enabled = true

[[peers]]
name = "pcc1"

[[peers]]
name = "pce1"
`))

	assert.Equal(t, "DEBUG", core.GetConfigStringDefault("core.log_level", "INFO"))
	assert.Equal(t, "x", core.GetConfigStringDefault("core.missing", "x"))
	assert.Equal(t, 250, core.GetConfigIntDefault("bus.max_wait_ms", 1000))
	assert.Equal(t, 16, core.GetConfigIntDefault("bus.max_reconcile_rounds", 16))
	assert.Equal(t, 250*time.Millisecond, core.GetConfigMillisDefault("bus.max_wait_ms", time.Second))
	assert.Equal(t, time.Second, core.GetConfigMillisDefault("bus.nothing", time.Second))
	assert.True(t, core.GetConfigBoolDefault("mgmt.enabled", false))
	assert.False(t, core.GetConfigBoolDefault("core.log_level", false))

	peers := core.GetConfigTrees("peers")
	require.Len(t, peers, 2)
	assert.Equal(t, "pce1", peers[1].Get("name"))
	assert.Nil(t, core.GetConfigTrees("core"))
}

func TestConfigBadToml(t *testing.T) {
	assert.Error(t, core.LoadConfigString("[core\nlog_level ="))
}
