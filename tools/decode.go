/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package tools

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pcepsim/pcepd/pcep"
)

// Decode renders every PCEP message found in a hex string.
func Decode(w io.Writer, text string, asJSON bool) error {
	buf, err := hex.DecodeString(strings.Join(strings.Fields(text), ""))
	if err != nil {
		return err
	}
	if len(buf) == 0 {
		return pcep.ErrShortMessage
	}
	for len(buf) > 0 {
		hdr, err := pcep.PeekHeader(buf)
		if err != nil {
			return err
		}
		m, err := pcep.DecodeMessage(buf)
		if err != nil {
			return err
		}
		if asJSON {
			fmt.Fprintf(w, "%s\n", m.Show().JSON())
		} else {
			fmt.Fprint(w, m.Show().String())
		}
		buf = buf[hdr.Length:]
	}
	return nil
}

func RunDecode(args []string) {
	flagset := flag.NewFlagSet("decode", flag.ExitOnError)
	flagset.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [hex]\n", args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Decode PCEP messages given in hex, or read from stdin.\n")
		flagset.PrintDefaults()
	}
	asJSON := flagset.Bool("json", false, "print JSON instead of a tree")
	flagset.Parse(args[1:])

	text := strings.Join(flagset.Args(), "")
	if text == "" {
		in, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		text = string(in)
	}
	if err := Decode(os.Stdout, text, *asJSON); err != nil {
		fmt.Fprintln(os.Stderr, "Unable to decode: "+err.Error())
		os.Exit(1)
	}
}
