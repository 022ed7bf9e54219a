/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package tools

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/pcepsim/pcepd/mgmt"
)

// FetchStatus reads the status document from a running daemon.
func FetchStatus(client *http.Client, url string) (*mgmt.GeneralStatus, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response: %s", resp.Status)
	}
	status := &mgmt.GeneralStatus{}
	if err := json.NewDecoder(resp.Body).Decode(status); err != nil {
		return nil, err
	}
	return status, nil
}

// PrintStatus writes the status as a session table followed by the measurements.
func PrintStatus(w io.Writer, status *mgmt.GeneralStatus) {
	fmt.Fprintf(w, "pcepd %s, up %s, %d sessions\n\n", status.Version,
		status.CurrentTimestamp.Sub(status.StartTimestamp).Round(time.Second), status.NSessions)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PEER\tSPEAKER\tREMOTE\tSTATE\tKA/DT\tIN/OUT\tLSPS\tDBV\tSYNCED")
	for _, s := range status.Sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\t%d/%d\t%d\t%d\t%t\n",
			s.Peer, s.Speaker, s.Remote, s.State, s.Keepalive, s.Deadtimer,
			s.MessagesIn, s.MessagesOut, s.LSPs, s.DBVersion, s.Synced)
	}
	tw.Flush()

	if len(status.Measurements) == 0 {
		return
	}
	keys := make([]string, 0, len(status.Measurements))
	for k := range status.Measurements {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintln(w)
	for _, k := range keys {
		fmt.Fprintf(w, "%s = %v\n", k, status.Measurements[k])
	}
}

func RunStatus(args []string) {
	flagset := flag.NewFlagSet("status", flag.ExitOnError)
	flagset.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-bind host:port]\n", args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Print the sessions of a running pcepd.\n")
		flagset.PrintDefaults()
	}
	bind := flagset.String("bind", "127.0.0.1:8189", "management address of the daemon")
	timeout := flagset.Int("t", 2000, "timeout, in milliseconds")
	flagset.Parse(args[1:])

	client := &http.Client{Timeout: time.Duration(*timeout) * time.Millisecond}
	status, err := FetchStatus(client, "http://"+*bind+"/status")
	if err != nil {
		fmt.Fprintln(os.Stderr, "Unable to fetch status: "+err.Error())
		os.Exit(1)
	}
	PrintStatus(os.Stdout, status)
}
