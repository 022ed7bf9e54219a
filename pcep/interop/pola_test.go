/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package interop_test

import (
	"testing"

	polapcep "github.com/nttcom/pola/pkg/packet/pcep"
	"github.com/pcepsim/pcepd/pcep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolaKeepalive(t *testing.T) {
	ka, err := polapcep.NewKeepaliveMessage()
	require.NoError(t, err)
	theirs, err := ka.Serialize()
	require.NoError(t, err)

	assert.Equal(t, theirs, pcep.NewKeepalive().Encode())
	m, err := pcep.DecodeMessage(theirs)
	require.NoError(t, err)
	assert.Equal(t, pcep.MsgKeepalive, m.Type())
	assert.True(t, m.Valid())
}

func TestPolaOpen(t *testing.T) {
	open, err := polapcep.NewOpenMessage(3, 30, nil)
	require.NoError(t, err)
	theirs, err := open.Serialize()
	require.NoError(t, err)

	m, err := pcep.DecodeMessage(theirs)
	require.NoError(t, err)
	assert.True(t, m.Valid())
	obj := m.Find(pcep.KindOpen)
	require.NotNil(t, obj)
	assert.Equal(t, uint64(30), obj.Body.Get(pcep.OpenKeepalive))
	assert.Equal(t, uint64(120), obj.Body.Get(pcep.OpenDeadtimer))
	assert.Equal(t, uint64(3), obj.Body.Get(pcep.OpenSessionID))
	assert.Equal(t, theirs, m.Encode())

	ours := pcep.NewOpen(pcep.NewOpenObject(30, 120, 3)).Encode()
	assert.Equal(t, theirs, ours)
}
