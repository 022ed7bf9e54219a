/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package executor

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pcepsim/pcepd/core"
)

// Version of pcepd, set at link time.
var Version string

// Main runs the daemon until it receives SIGINT or SIGTERM.
func Main(args []string) {
	config := &PcepdConfig{Version: Version}

	flagset := flag.NewFlagSet("pcepd", flag.ExitOnError)
	flagset.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s <config-file> [options]\n", args[0])
		flagset.PrintDefaults()
	}

	var printVersion bool
	flagset.BoolVar(&printVersion, "version", false, "Print version and exit")
	flagset.StringVar(&config.LogFile, "log-file", "", "Write logs to the specified file")
	flagset.StringVar(&config.CpuProfile, "cpu-profile", "", "Enable CPU profiling (output to specified file)")
	flagset.StringVar(&config.MemProfile, "mem-profile", "", "Enable memory profiling (output to specified file)")
	flagset.StringVar(&config.BlockProfile, "block-profile", "", "Enable block profiling (output to specified file)")
	flagset.Parse(args[1:])

	if printVersion {
		fmt.Fprintln(os.Stderr, "pcepd: PCEP session simulator daemon")
		fmt.Fprintln(os.Stderr, "Version: ", Version)
		fmt.Fprintln(os.Stderr, "Released under the terms of the MIT License")
		return
	}

	config.ConfigFileName = flagset.Arg(0)
	if config.ConfigFileName == "" {
		flagset.Usage()
		os.Exit(3)
	}

	pcepd, err := NewPcepd(config)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Unable to start pcepd: "+err.Error())
		os.Exit(3)
	}
	if err := pcepd.Start(); err != nil {
		core.LogFatal("Main", "Unable to start pcepd: ", err)
	}

	sigChannel := make(chan os.Signal, 1)
	signal.Notify(sigChannel, os.Interrupt, syscall.SIGTERM)
	select {
	case receivedSig := <-sigChannel:
		core.LogInfo("Main", "Received signal ", receivedSig, " - exiting")
	case <-pcepd.Done():
		core.LogError("Main", "Event loop stopped - exiting")
	}

	if err := pcepd.Stop(); err != nil {
		fmt.Fprintln(os.Stderr, "pcepd stopped with error: "+err.Error())
		os.Exit(1)
	}
}
