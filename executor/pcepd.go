/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package executor

import (
	"context"
	"errors"
	"time"

	"github.com/pcepsim/pcepd/bus"
	"github.com/pcepsim/pcepd/core"
	"github.com/pcepsim/pcepd/mgmt"
	"github.com/pcepsim/pcepd/pcep"
	"github.com/pcepsim/pcepd/peer"
	"github.com/pcepsim/pcepd/table"
	"github.com/pcepsim/pcepd/trace"
	"golang.org/x/sync/errgroup"
)

// PcepdConfig is the command line configuration of pcepd.
type PcepdConfig struct {
	Version        string
	ConfigFileName string
	LogFile        string
	CpuProfile     string
	MemProfile     string
	BlockProfile   string
}

// Pcepd runs the simulated speakers of one configuration file.
type Pcepd struct {
	config   *PcepdConfig
	profiler *Profiler
	bus      *bus.Bus
	peers    []*peer.Peer
	tracer   *trace.Writer
	mgmt     *mgmt.Thread
	group    *errgroup.Group
}

// NewPcepd loads the configuration and creates the daemon. Nothing runs until Start.
func NewPcepd(config *PcepdConfig) (*Pcepd, error) {
	core.Version = config.Version
	core.StartTimestamp = time.Now()

	if config.ConfigFileName != "" {
		core.LoadConfig(config.ConfigFileName)
	}
	logFile := config.LogFile
	if logFile == "" {
		logFile = core.GetConfigStringDefault("core.log_file", "")
	}
	core.InitializeLogger(logFile)
	table.Configure()
	pcep.LoadCatalogue()

	cfgs, err := peer.LoadConfigs()
	if err != nil {
		return nil, err
	}
	if len(cfgs) == 0 {
		return nil, errors.New("no [[peers]] configured")
	}

	p := &Pcepd{config: config, profiler: NewProfiler(config)}
	if p.bus, err = bus.New(bus.DefaultConfig()); err != nil {
		return nil, err
	}
	if path := core.GetConfigStringDefault("trace.file", ""); path != "" {
		if p.tracer, err = trace.Open(path); err != nil {
			return nil, err
		}
		core.LogInfo("Main", "Tracing PCEP messages to ", path)
	}
	if cfg := mgmt.DefaultConfig(); cfg.Enabled {
		p.mgmt = mgmt.MakeMgmtThread(cfg)
	}
	for _, cfg := range cfgs {
		pr := peer.New(cfg)
		if p.tracer != nil {
			pr.Use(p.tracer)
		}
		p.peers = append(p.peers, pr)
	}
	return p, nil
}

// Start runs the bus, the peers and the management server. It does not block.
func (p *Pcepd) Start() error {
	core.LogInfo("Main", "Starting pcepd with ", len(p.peers), " peers")
	if err := p.profiler.Start(); err != nil {
		return err
	}
	if p.mgmt != nil {
		if err := p.mgmt.Listen(); err != nil {
			return err
		}
	}

	p.group = &errgroup.Group{}
	for _, pr := range p.peers {
		pr.Start(p.bus)
	}
	p.group.Go(p.bus.Run)
	if p.mgmt != nil {
		p.group.Go(p.mgmt.Run)
	}
	return nil
}

// Done is closed when the bus stops.
func (p *Pcepd) Done() <-chan struct{} {
	return p.bus.Done()
}

// Stop closes every session with a Close message and waits for the daemon to shut down.
func (p *Pcepd) Stop() error {
	core.LogInfo("Main", "pcepd shutting down ...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, pr := range p.peers {
		if err := pr.Stop(ctx); err != nil && !errors.Is(err, peer.ErrStopped) {
			core.LogWarn("Main", "Unable to stop ", pr, ": ", err)
		}
	}
	// Let the bus flush the Close messages.
	p.bus.After(100*time.Millisecond, p.bus.Stop)
	if p.mgmt != nil {
		if err := p.mgmt.Shutdown(ctx); err != nil {
			core.LogWarn("Main", "Unable to stop management: ", err)
		}
	}

	var err error
	if p.group != nil {
		err = p.group.Wait()
	}
	if p.tracer != nil {
		p.tracer.Close()
	}
	p.profiler.Stop()
	core.ShutdownLogger()
	return err
}
