/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTree(ran *[]string) *CmdTree {
	record := func(args []string) { *ran = args }
	return &CmdTree{
		Name: "pcepd",
		Help: "PCEP session simulator",
		Sub: []*CmdTree{{
			Name: "run",
			Help: "Start the daemon",
			Fun:  record,
		}, {}, {
			Name: "tool",
			Help: "Tools",
			Sub: []*CmdTree{{
				Name: "decode",
				Help: "Decode messages",
				Fun:  record,
			}},
		}},
	}
}

func TestFind(t *testing.T) {
	var ran []string
	tree := testTree(&ran)

	found, args := tree.Find([]string{"pcepd", "run", "pcepd.toml"})
	require.NotNil(t, found)
	assert.Equal(t, "run", found.Name)
	assert.Equal(t, []string{"pcepd run", "pcepd.toml"}, args)

	found, args = tree.Find([]string{"pcepd", "tool", "decode", "20020004"})
	require.NotNil(t, found)
	found.Fun(args)
	assert.Equal(t, []string{"pcepd tool decode", "20020004"}, ran)

	found, _ = tree.Find([]string{"pcepd"})
	assert.Nil(t, found)
	found, _ = tree.Find([]string{"pcepd", "bogus"})
	assert.Nil(t, found)
	found, args = tree.Find([]string{"pcepd", "tool"})
	assert.Nil(t, found)
	assert.Equal(t, []string{"pcepd tool"}, args)
}

func TestUsage(t *testing.T) {
	var ran []string
	var out bytes.Buffer
	testTree(&ran).printUsage(&out, []string{"pcepd"})
	assert.Contains(t, out.String(), "PCEP session simulator (pcepd)")
	assert.Contains(t, out.String(), "Usage: pcepd [command]")
	assert.Contains(t, out.String(), "  run             Start the daemon\n\n  tool")
}
