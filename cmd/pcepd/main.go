/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package main

import (
	"os"

	"github.com/pcepsim/pcepd/cmd"
	"github.com/pcepsim/pcepd/executor"
	"github.com/pcepsim/pcepd/tools"
)

func main() {
	// create a command tree
	tree := cmd.CmdTree{
		Name: "pcepd",
		Help: "PCEP Session Simulator Daemon",
		Sub: []*cmd.CmdTree{{
			Name: "run",
			Help: "Start the simulated PCC and PCE peers",
			Fun:  executor.Main,
		}, {
			// tools separator
		}, {
			Name: "decode",
			Help: "Decode PCEP messages given in hex",
			Fun:  tools.RunDecode,
		}, {
			Name: "status",
			Help: "Print the sessions of a running daemon",
			Fun:  tools.RunStatus,
		}, {
			Name: "request",
			Help: "Send path computation requests to a PCE",
			Fun:  tools.RunRequest,
		}},
	}

	// Parse the command line arguments
	args := os.Args
	args[0] = tree.Name
	tree.Execute(args)
}
