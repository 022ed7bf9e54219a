/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package peer

import (
	"net/netip"
	"testing"
	"time"

	"github.com/pcepsim/pcepd/core"
	"github.com/pelletier/go-toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const peersConfig = `
[[peers]]
name = "pce-1"
speaker = "pce"
role = "passive"
mode = "stateful-initiation"
local = "127.0.0.1"
keepalive = 10
deadtimer = 40
include_db_version = true
db_version = 12

  [[peers.paths]]
  src = "10.0.0.1"
  dst = "10.0.0.9"
  ero = ["10.1.0.1", "10.0.0.9"]

[[peers]]
name = "pcc-1"
remote = "192.0.2.1:4200"
mode = "stateful-active"
open_wait = 5
reconnect_delay = 1
sync_batch = false
require_stateful = true

  [[peers.lsps]]
  name = "lsp-a"
  src = "10.0.0.1"
  dst = "10.0.0.9"
  delegated = true
`

func TestLoadConfigs(t *testing.T) {
	require.NoError(t, core.LoadConfigString(peersConfig))
	cfgs, err := LoadConfigs()
	require.NoError(t, err)
	require.Len(t, cfgs, 2)

	pce := cfgs[0]
	assert.Equal(t, "pce-1", pce.Name)
	assert.Equal(t, PCE, pce.Speaker)
	assert.Equal(t, Passive, pce.Role)
	assert.Equal(t, StatefulInitiation, pce.Mode)
	assert.Equal(t, netip.MustParseAddrPort("127.0.0.1:4189"), pce.Local)
	assert.Equal(t, uint8(10), pce.Keepalive)
	assert.Equal(t, uint8(40), pce.Deadtimer)
	assert.True(t, pce.IncludeDBVersion)
	assert.Equal(t, uint64(12), pce.DBVersion)
	assert.Equal(t, "pce-1", pce.NodeID)
	require.Len(t, pce.Paths, 1)
	assert.Equal(t, []netip.Addr{addr("10.1.0.1"), addr("10.0.0.9")}, pce.Paths[0].ERO)

	pcc := cfgs[1]
	assert.Equal(t, PCC, pcc.Speaker)
	assert.Equal(t, Active, pcc.Role)
	assert.Equal(t, netip.MustParseAddrPort("192.0.2.1:4200"), pcc.Remote)
	assert.Equal(t, 5*time.Second, pcc.OpenWait)
	assert.Equal(t, DefaultKeepWait, pcc.KeepWait)
	assert.Equal(t, time.Second, pcc.ReconnectDelay)
	assert.False(t, pcc.SyncBatch)
	assert.True(t, pcc.RequireStateful)
	assert.Equal(t, uint8(30), pcc.Keepalive)
	require.Len(t, pcc.LSPs, 1)
	assert.Equal(t, "lsp-a", pcc.LSPs[0].Name)
	assert.True(t, pcc.LSPs[0].Delegated)

	limits := pcc.Limits(nil)
	require.NotNil(t, limits.Capability)
	assert.True(t, limits.Capability.Update)
	assert.False(t, limits.Capability.Instantiation)
}

func TestDecodeConfigErrors(t *testing.T) {
	for name, content := range map[string]string{
		"missing name":   `remote = "192.0.2.1"`,
		"missing remote": `name = "pcc"`,
		"bad speaker":    "name = \"x\"\nspeaker = \"router\"\nremote = \"192.0.2.1\"",
		"bad mode":       "name = \"x\"\nmode = \"eager\"\nremote = \"192.0.2.1\"",
		"bad keepalive":  "name = \"x\"\nkeepalive = 300\nremote = \"192.0.2.1\"",
		"bad address":    "name = \"x\"\nremote = \"not-an-address\"",
		"unnamed lsp":    "name = \"x\"\nremote = \"192.0.2.1\"\n[[lsps]]\nsrc = \"10.0.0.1\"",
	} {
		tree, err := toml.Load(content)
		require.NoError(t, err, name)
		_, err = DecodeConfig(tree)
		assert.ErrorIs(t, err, core.ErrBadConfigValue, name)
	}
}

func TestModeCapability(t *testing.T) {
	assert.Nil(t, Stateless.Capability(true))
	c := Stateful.Capability(true)
	assert.False(t, c.Update)
	assert.True(t, c.IncludeDBVersion)
	assert.True(t, StatefulActive.Capability(false).Update)
	assert.True(t, StatefulInitiation.Capability(false).Instantiation)
	assert.Equal(t, "stateful-active", StatefulActive.String())
}
