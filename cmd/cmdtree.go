/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const banner = `
                            _
  _ __   ___ ___ _ __   __| |
 | '_ \ / __/ _ \ '_ \ / _  |
 | |_) | (_|  __/ |_) | (_| |
 | .__/ \___\___| .__/ \__,_|
 |_|            |_|
`

// CmdTree is a node of the command line: either a runnable command or a group of subcommands.
// An entry with an empty name separates groups in the usage listing.
type CmdTree struct {
	Name string
	Help string
	Sub  []*CmdTree
	Fun  func([]string)
}

// Usage prints the banner and subcommands, then exits with status 2.
func (c *CmdTree) Usage(args []string) {
	c.printUsage(os.Stderr, args)
	os.Exit(2)
}

func (c *CmdTree) printUsage(w io.Writer, args []string) {
	fmt.Fprintln(w, banner[1:])
	fmt.Fprintf(w, "%s (%s)\n\n", c.Help, c.Name)
	fmt.Fprintf(w, "Usage: %s [command]\n", args[0])
	for _, sub := range c.Sub {
		if sub.Name == "" {
			fmt.Fprintln(w)
			continue
		}
		spaces := strings.Repeat(" ", max(16-len(sub.Name), 1))
		fmt.Fprintf(w, "  %s%s%s\n", sub.Name, spaces, sub.Help)
	}
	fmt.Fprintln(w)
}

// Find returns the command selected by args and the arguments to run it with,
// or nil if args do not reach a runnable command.
func (c *CmdTree) Find(args []string) (*CmdTree, []string) {
	// eagerly execute command if found
	if c.Fun != nil {
		return c, args
	}
	if len(args) <= 1 {
		return nil, args
	}

	// recursively search for subcommand
	for _, sub := range c.Sub {
		if len(sub.Name) > 0 && args[1] == sub.Name {
			name := args[0] + " " + args[1]
			sargs := append([]string{name}, args[2:]...)
			if found, fargs := sub.Find(sargs); found != nil {
				return found, fargs
			}
			return nil, sargs
		}
	}
	return nil, args
}

// Execute runs the command selected by args, or prints usage.
func (c *CmdTree) Execute(args []string) {
	found, fargs := c.Find(args)
	if found == nil {
		c.Usage(args)
		return
	}
	found.Fun(fargs)
}
