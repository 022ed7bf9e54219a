/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

// Package trace records PCEP messages into pcap files readable by packet analyzers.
package trace

import (
	"encoding/binary"
	"io"
	"net"
	"net/netip"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/google/uuid"
	"github.com/pcepsim/pcepd/core"
	"github.com/pcepsim/pcepd/pcep"
	"github.com/pcepsim/pcepd/session"
)

// SnapLen is the capture length written in the file header.
const SnapLen = 65535

// maxPayload is the largest PCEP payload that fits an IPv4 packet with TCP and IP headers.
const maxPayload = 65535 - 20 - 20

var (
	localMAC  = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	remoteMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
	localIP   = netip.MustParseAddr("198.51.100.1")
	remoteIP  = netip.MustParseAddr("198.51.100.2")
)

// flow holds the synthesized TCP state of one session.
type flow struct {
	local  netip.AddrPort
	remote netip.AddrPort
	seqOut uint32
	seqIn  uint32
}

// Writer writes every message sent or received by the sessions it observes, wrapped in
// synthesized Ethernet, IPv4 and TCP headers. It is a session handler shared by all peers.
type Writer struct {
	mu      sync.Mutex
	out     io.WriteCloser
	pw      *pcapgo.Writer
	flows   map[uuid.UUID]*flow
	packets uint64
}

// Open creates a pcap file.
func Open(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// NewWriter writes a pcap file header to out and returns a writer appending to it.
func NewWriter(out io.WriteCloser) (*Writer, error) {
	pw := pcapgo.NewWriter(out)
	if err := pw.WriteFileHeader(SnapLen, layers.LinkTypeEthernet); err != nil {
		return nil, err
	}
	return &Writer{out: out, pw: pw, flows: make(map[uuid.UUID]*flow)}, nil
}

func (w *Writer) String() string {
	return "Trace"
}

// Packets returns the number of packets written.
func (w *Writer) Packets() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.packets
}

func (w *Writer) HandleEvent(ev *session.Event) session.Outcome {
	switch ev.Kind {
	case session.EventMessage:
		w.record(ev, false)
	case session.EventTransmitted:
		w.record(ev, true)
	case session.EventClosed:
		w.mu.Lock()
		delete(w.flows, ev.Session.ID())
		w.mu.Unlock()
	}
	return session.Proceed
}

func (w *Writer) Deadline() time.Time {
	return time.Time{}
}

func (w *Writer) record(ev *session.Event, outbound bool) {
	payload := ev.Bytes
	if payload == nil && ev.Message != nil {
		payload = ev.Message.Encode()
	}
	if len(payload) > maxPayload {
		payload = payload[:maxPayload]
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pw == nil {
		return
	}
	f := w.flowOf(ev.Session)
	src, dst := f.remote, f.local
	srcMAC, dstMAC := remoteMAC, localMAC
	seq, ack := &f.seqIn, f.seqOut
	if outbound {
		src, dst = dst, src
		srcMAC, dstMAC = dstMAC, srcMAC
		seq, ack = &f.seqOut, f.seqIn
	}

	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    src.Addr().AsSlice(),
		DstIP:    dst.Addr().AsSlice(),
	}
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(src.Port()),
		DstPort: layers.TCPPort(dst.Port()),
		Seq:     *seq,
		Ack:     ack,
		ACK:     true,
		PSH:     true,
		Window:  65535,
	}
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		core.LogWarn(w, "Unable to prepare TCP checksum: ", err)
		return
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, tcp, gopacket.Payload(payload)); err != nil {
		core.LogWarn(w, "Unable to serialize packet: ", err)
		return
	}
	*seq += uint32(len(payload))

	data := buf.Bytes()
	ci := gopacket.CaptureInfo{Timestamp: ev.Time, CaptureLength: len(data), Length: len(data)}
	if err := w.pw.WritePacket(ci, data); err != nil {
		core.LogWarn(w, "Unable to write packet: ", err)
		return
	}
	w.packets++
}

// flowOf returns the addresses of a session. Sessions without an IPv4 remote address get
// synthesized addresses; the local port is derived from the session ID.
func (w *Writer) flowOf(s *session.Session) *flow {
	if f, ok := w.flows[s.ID()]; ok {
		return f
	}
	id := s.ID()
	ephemeral := 49152 + binary.BigEndian.Uint16(id[:2])%16384
	f := &flow{
		local:  netip.AddrPortFrom(localIP, ephemeral),
		remote: netip.AddrPortFrom(remoteIP, pcep.DefaultPort),
		seqOut: binary.BigEndian.Uint32(id[4:8]),
		seqIn:  binary.BigEndian.Uint32(id[8:12]),
	}
	if r := s.Remote(); r.IsValid() && r.Addr().Unmap().Is4() {
		f.remote = netip.AddrPortFrom(r.Addr().Unmap(), r.Port())
		if r.Port() != pcep.DefaultPort {
			f.local = netip.AddrPortFrom(localIP, pcep.DefaultPort)
		}
	}
	w.flows[id] = f
	return f
}

// Close flushes and closes the output. Later events are ignored.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pw == nil {
		return nil
	}
	w.pw = nil
	core.LogInfo(w, "Wrote ", w.packets, " packets")
	return w.out.Close()
}
