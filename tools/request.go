/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package tools

import (
	"context"
	"flag"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pcepsim/pcepd/bus"
	"github.com/pcepsim/pcepd/core"
	"github.com/pcepsim/pcepd/peer"
	"github.com/pcepsim/pcepd/utils/comparison"
)

// RequestClient sends periodic path computation requests to a PCE and reports the latency.
type RequestClient struct {
	args []string
	bus  *bus.Bus
	peer *peer.Peer

	// command line configuration
	remote   netip.AddrPort
	src      netip.Addr
	dst      netip.Addr
	interval int
	timeout  int
	count    int

	// stat counters
	nSent   int
	nRecv   int
	nNoPath int
	nFailed int

	// stat time counters
	totalTime time.Duration
	rttMin    time.Duration
	rttMax    time.Duration
	rttAvg    time.Duration
}

func RunRequest(args []string) {
	(&RequestClient{args: args}).run()
}

func (rc *RequestClient) usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <pce-address> <source> <destination>\n", rc.args[0])
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "Open a stateless PCEP session and send PCReq messages for a path\n")
	fmt.Fprintf(os.Stderr, "between two IPv4 endpoints, printing each reply and its latency.\n")
}

func (rc *RequestClient) String() string {
	return "Request"
}

func (rc *RequestClient) send() {
	rc.nSent++
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(rc.timeout)*time.Millisecond)
	defer cancel()

	reply, err := rc.peer.Request(ctx, rc.src, rc.dst)
	switch {
	case err != nil:
		fmt.Printf("failed request to %s: %v\n", rc.remote, err)
		rc.nFailed++
		return
	case reply.NoPath:
		fmt.Printf("no path from %s: id=%d, time=%f ms\n", rc.remote, reply.RequestID,
			float64(reply.Latency.Microseconds())/1000.0)
		rc.nNoPath++
	default:
		fmt.Printf("path from %s: id=%d, ero=%v, time=%f ms\n", rc.remote, reply.RequestID, reply.ERO,
			float64(reply.Latency.Microseconds())/1000.0)
	}

	rc.nRecv++
	rc.totalTime += reply.Latency
	if rc.nRecv == 1 {
		rc.rttMin = reply.Latency
	}
	rc.rttMin = comparison.Min(rc.rttMin, reply.Latency)
	rc.rttMax = comparison.Max(rc.rttMax, reply.Latency)
	rc.rttAvg = rc.totalTime / time.Duration(rc.nRecv)
}

func (rc *RequestClient) stats() {
	if rc.nSent == 0 {
		fmt.Printf("No requests transmitted\n")
		return
	}

	fmt.Printf("\n--- %s request statistics ---\n", rc.remote)
	fmt.Printf("%d requests transmitted, %d replies received (%d without path), %d%% failed\n",
		rc.nSent, rc.nRecv, rc.nNoPath, rc.nFailed*100/rc.nSent)
	fmt.Printf("latency min/avg/max = %f/%f/%f ms\n",
		float64(rc.rttMin.Microseconds())/1000.0,
		float64(rc.rttAvg.Microseconds())/1000.0,
		float64(rc.rttMax.Microseconds())/1000.0)
}

func (rc *RequestClient) parse() error {
	flagset := flag.NewFlagSet("request", flag.ExitOnError)
	flagset.Usage = func() {
		rc.usage()
		flagset.PrintDefaults()
	}
	flagset.IntVar(&rc.interval, "i", 1000, "request interval, in milliseconds")
	flagset.IntVar(&rc.timeout, "t", 4000, "timeout for each request, in milliseconds")
	flagset.IntVar(&rc.count, "c", 0, "number of requests to send")
	flagset.Parse(rc.args[1:])
	if flagset.NArg() != 3 {
		flagset.Usage()
		os.Exit(3)
	}

	var err error
	if rc.remote, err = parseAddrPort(flagset.Arg(0)); err != nil {
		return err
	}
	if rc.src, err = netip.ParseAddr(flagset.Arg(1)); err != nil {
		return err
	}
	rc.dst, err = netip.ParseAddr(flagset.Arg(2))
	return err
}

func parseAddrPort(s string) (netip.AddrPort, error) {
	if ap, err := netip.ParseAddrPort(s); err == nil {
		return ap, nil
	}
	a, err := netip.ParseAddr(s)
	if err != nil {
		return netip.AddrPort{}, err
	}
	return netip.AddrPortFrom(a, 4189), nil
}

func (rc *RequestClient) run() {
	if err := rc.parse(); err != nil {
		fmt.Fprintln(os.Stderr, "Invalid argument: "+err.Error())
		os.Exit(3)
	}
	core.InitializeLogger("")

	var err error
	rc.bus, err = bus.New(bus.DefaultConfig())
	if err != nil {
		core.LogFatal(rc, "Unable to create event loop: ", err)
	}
	go rc.bus.Run()
	defer rc.bus.Stop()

	cfg := peer.DefaultConfig("request")
	cfg.Remote = rc.remote
	rc.peer = peer.New(cfg)
	rc.peer.Start(rc.bus)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(rc.timeout)*time.Millisecond)
	err = rc.peer.WaitUp(ctx)
	cancel()
	if err != nil {
		core.LogFatal(rc, "Unable to open a session with ", rc.remote, ": ", err)
	}
	defer rc.peer.Stop(context.Background())

	// quit on signal
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, os.Interrupt, syscall.SIGTERM)

	fmt.Printf("PCREQ %s -> %s via %s\n", rc.src, rc.dst, rc.remote)
	defer rc.stats()

	rc.send()
	ticker := time.NewTicker(time.Duration(rc.interval) * time.Millisecond)
	defer ticker.Stop()
	for rc.count == 0 || rc.nSent < rc.count {
		select {
		case <-ticker.C:
			rc.send()
		case <-sigchan:
			return
		}
	}
}
