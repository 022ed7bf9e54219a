/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package peer

import (
	"fmt"
	"math"
	"net/netip"
	"time"

	"github.com/pcepsim/pcepd/core"
	"github.com/pcepsim/pcepd/pcep"
	"github.com/pelletier/go-toml"
)

// Speaker is the PCEP role of a peer.
type Speaker int

// Speakers.
const (
	PCC Speaker = iota
	PCE
)

func (s Speaker) String() string {
	if s == PCE {
		return "pce"
	}
	return "pcc"
}

// Role tells whether a peer opens the TCP connection.
type Role int

// Roles.
const (
	Active Role = iota
	Passive
)

func (r Role) String() string {
	if r == Passive {
		return "passive"
	}
	return "active"
}

// Mode selects the stateful capabilities advertised by a peer.
type Mode int

// Modes.
const (
	Stateless Mode = iota
	Stateful
	StatefulActive
	StatefulInitiation
)

var modeNames = map[Mode]string{
	Stateless:          "stateless",
	Stateful:           "stateful",
	StatefulActive:     "stateful-active",
	StatefulInitiation: "stateful-initiation",
}

func (m Mode) String() string {
	return modeNames[m]
}

// Capability returns the STATEFUL-PCE-CAPABILITY content of the mode, or nil if stateless.
func (m Mode) Capability(includeDBVersion bool) *pcep.StatefulCapability {
	if m == Stateless {
		return nil
	}
	return &pcep.StatefulCapability{
		Update:           m >= StatefulActive,
		Instantiation:    m == StatefulInitiation,
		IncludeDBVersion: includeDBVersion,
	}
}

// LSPConfig describes an LSP owned by a PCC.
type LSPConfig struct {
	Name      string
	Src       netip.Addr
	Dst       netip.Addr
	ERO       []netip.Addr
	Delegated bool
}

// PathConfig is a path a PCE returns for requests between two endpoints.
type PathConfig struct {
	Src netip.Addr
	Dst netip.Addr
	ERO []netip.Addr
}

// Config describes one simulated PCEP speaker.
type Config struct {
	Name             string
	Speaker          Speaker
	Role             Role
	Mode             Mode
	Local            netip.AddrPort
	Remote           netip.AddrPort
	Keepalive        uint8
	Deadtimer        uint8
	SessionID        uint8
	NodeID           string
	OpenWait         time.Duration
	KeepWait         time.Duration
	MinKeepalive     uint8
	MaxKeepalive     uint8
	MinDeadtimer     uint8
	MaxDeadtimer     uint8
	ReconnectDelay   time.Duration
	SyncBatch        bool
	DBVersion        uint64
	IncludeDBVersion bool
	RequireStateful  bool
	LSPs             []LSPConfig
	Paths            []PathConfig
}

// DefaultConfig returns the configuration of an active stateless PCC with RFC 5440 timers.
func DefaultConfig(name string) Config {
	return Config{
		Name:           name,
		Speaker:        PCC,
		Role:           Active,
		Mode:           Stateless,
		Keepalive:      30,
		Deadtimer:      120,
		SessionID:      1,
		OpenWait:       DefaultOpenWait,
		KeepWait:       DefaultKeepWait,
		MinKeepalive:   0,
		MaxKeepalive:   math.MaxUint8,
		MinDeadtimer:   0,
		MaxDeadtimer:   math.MaxUint8,
		ReconnectDelay: 5 * time.Second,
		SyncBatch:      true,
	}
}

// Limits returns the open policy of the configuration.
func (c *Config) Limits(version func() uint64) *Limits {
	return &Limits{
		Keepalive:       c.Keepalive,
		Deadtimer:       c.Deadtimer,
		SessionID:       c.SessionID,
		MinKeepalive:    c.MinKeepalive,
		MaxKeepalive:    c.MaxKeepalive,
		MinDeadtimer:    c.MinDeadtimer,
		MaxDeadtimer:    c.MaxDeadtimer,
		Capability:      c.Mode.Capability(c.IncludeDBVersion),
		RequireStateful: c.RequireStateful,
		DBVersion:       version,
		SpeakerID:       c.NodeID,
	}
}

// LoadConfigs decodes every [[peers]] table of the loaded configuration.
func LoadConfigs() ([]Config, error) {
	var ret []Config
	for i, tree := range core.GetConfigTrees("peers") {
		cfg, err := DecodeConfig(tree)
		if err != nil {
			return nil, fmt.Errorf("peers[%d]: %w", i, err)
		}
		ret = append(ret, cfg)
	}
	return ret, nil
}

// DecodeConfig decodes one [[peers]] table.
func DecodeConfig(tree *toml.Tree) (Config, error) {
	d := decoder{tree: tree}
	cfg := DefaultConfig(d.str("name", ""))
	if cfg.Name == "" {
		return cfg, fmt.Errorf("%w: name is required", core.ErrBadConfigValue)
	}

	switch s := d.str("speaker", "pcc"); s {
	case "pcc":
		cfg.Speaker = PCC
	case "pce":
		cfg.Speaker = PCE
	default:
		d.fail("speaker", s)
	}
	switch r := d.str("role", "active"); r {
	case "active":
		cfg.Role = Active
	case "passive":
		cfg.Role = Passive
	default:
		d.fail("role", r)
	}
	mode := d.str("mode", "stateless")
	found := false
	for m, name := range modeNames {
		if name == mode {
			cfg.Mode, found = m, true
		}
	}
	if !found {
		d.fail("mode", mode)
	}

	defaultLocal := ""
	if cfg.Role == Passive {
		defaultLocal = fmt.Sprintf("0.0.0.0:%d", pcep.DefaultPort)
	}
	cfg.Local = d.addrPort("local", defaultLocal)
	cfg.Remote = d.addrPort("remote", "")
	if cfg.Role == Active && !cfg.Remote.IsValid() {
		d.err = fmt.Errorf("%w: remote is required for active peers", core.ErrBadConfigValue)
	}

	cfg.Keepalive = d.u8("keepalive", cfg.Keepalive)
	cfg.Deadtimer = d.u8("deadtimer", cfg.Deadtimer)
	cfg.SessionID = d.u8("session_id", cfg.SessionID)
	cfg.NodeID = d.str("node_id", cfg.Name)
	cfg.OpenWait = d.seconds("open_wait", cfg.OpenWait)
	cfg.KeepWait = d.seconds("keep_wait", cfg.KeepWait)
	cfg.MinKeepalive = d.u8("min_keepalive", cfg.MinKeepalive)
	cfg.MaxKeepalive = d.u8("max_keepalive", cfg.MaxKeepalive)
	cfg.MinDeadtimer = d.u8("min_deadtimer", cfg.MinDeadtimer)
	cfg.MaxDeadtimer = d.u8("max_deadtimer", cfg.MaxDeadtimer)
	cfg.ReconnectDelay = d.seconds("reconnect_delay", cfg.ReconnectDelay)
	cfg.SyncBatch = d.boolean("sync_batch", cfg.SyncBatch)
	cfg.DBVersion = uint64(d.integer("db_version", 0, 0, math.MaxInt64))
	cfg.IncludeDBVersion = d.boolean("include_db_version", false)
	cfg.RequireStateful = d.boolean("require_stateful", false)

	for _, t := range d.trees("lsps") {
		ld := decoder{tree: t}
		l := LSPConfig{
			Name:      ld.str("name", ""),
			Src:       ld.addr("src"),
			Dst:       ld.addr("dst"),
			ERO:       ld.addrs("ero"),
			Delegated: ld.boolean("delegated", false),
		}
		if l.Name == "" && ld.err == nil {
			ld.err = fmt.Errorf("%w: lsps need a name", core.ErrBadConfigValue)
		}
		if ld.err != nil && d.err == nil {
			d.err = ld.err
		}
		cfg.LSPs = append(cfg.LSPs, l)
	}
	for _, t := range d.trees("paths") {
		pd := decoder{tree: t}
		cfg.Paths = append(cfg.Paths, PathConfig{Src: pd.addr("src"), Dst: pd.addr("dst"), ERO: pd.addrs("ero")})
		if pd.err != nil && d.err == nil {
			d.err = pd.err
		}
	}
	return cfg, d.err
}

// decoder reads typed values from a TOML table and keeps the first error.
type decoder struct {
	tree *toml.Tree
	err  error
}

func (d *decoder) fail(key string, v interface{}) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: %s = %v", core.ErrBadConfigValue, key, v)
	}
}

func (d *decoder) str(key string, def string) string {
	v := d.tree.Get(key)
	if v == nil {
		return def
	}
	s, ok := v.(string)
	if !ok {
		d.fail(key, v)
		return def
	}
	return s
}

func (d *decoder) boolean(key string, def bool) bool {
	v := d.tree.Get(key)
	if v == nil {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		d.fail(key, v)
		return def
	}
	return b
}

func (d *decoder) integer(key string, def int64, min int64, max int64) int64 {
	v := d.tree.Get(key)
	if v == nil {
		return def
	}
	i, ok := v.(int64)
	if !ok || i < min || i > max {
		d.fail(key, v)
		return def
	}
	return i
}

func (d *decoder) u8(key string, def uint8) uint8 {
	return uint8(d.integer(key, int64(def), 0, math.MaxUint8))
}

func (d *decoder) seconds(key string, def time.Duration) time.Duration {
	return time.Duration(d.integer(key, int64(def/time.Second), 0, math.MaxInt32)) * time.Second
}

func (d *decoder) addr(key string) netip.Addr {
	s := d.str(key, "")
	if s == "" {
		return netip.Addr{}
	}
	a, err := netip.ParseAddr(s)
	if err != nil {
		d.fail(key, s)
	}
	return a
}

func (d *decoder) addrPort(key string, def string) netip.AddrPort {
	s := d.str(key, def)
	if s == "" {
		return netip.AddrPort{}
	}
	ap, err := netip.ParseAddrPort(s)
	if err != nil {
		a, aerr := netip.ParseAddr(s)
		if aerr != nil {
			d.fail(key, s)
			return netip.AddrPort{}
		}
		ap = netip.AddrPortFrom(a, pcep.DefaultPort)
	}
	return ap
}

func (d *decoder) addrs(key string) []netip.Addr {
	v := d.tree.Get(key)
	if v == nil {
		return nil
	}
	list, ok := v.([]interface{})
	if !ok {
		d.fail(key, v)
		return nil
	}
	ret := make([]netip.Addr, 0, len(list))
	for _, item := range list {
		s, _ := item.(string)
		a, err := netip.ParseAddr(s)
		if err != nil {
			d.fail(key, item)
			return nil
		}
		ret = append(ret, a)
	}
	return ret
}

func (d *decoder) trees(key string) []*toml.Tree {
	trees, _ := d.tree.Get(key).([]*toml.Tree)
	return trees
}
