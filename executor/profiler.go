/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package executor

import (
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/pcepsim/pcepd/core"
)

// Profiler writes the CPU, heap and blocking profiles requested on the command line.
type Profiler struct {
	config  *PcepdConfig
	cpuFile *os.File
	block   *pprof.Profile
}

func NewProfiler(config *PcepdConfig) *Profiler {
	return &Profiler{config: config}
}

func (p *Profiler) String() string {
	return "Profiler"
}

func (p *Profiler) Start() (err error) {
	if p.config.CpuProfile != "" {
		p.cpuFile, err = os.Create(p.config.CpuProfile)
		if err != nil {
			return err
		}
		core.LogInfo(p, "Profiling CPU - outputting to ", p.config.CpuProfile)
		if err = pprof.StartCPUProfile(p.cpuFile); err != nil {
			p.cpuFile.Close()
			p.cpuFile = nil
			return err
		}
	}

	if p.config.BlockProfile != "" {
		core.LogInfo(p, "Profiling blocking operations - outputting to ", p.config.BlockProfile)
		runtime.SetBlockProfileRate(1)
		p.block = pprof.Lookup("block")
	}
	return nil
}

func (p *Profiler) Stop() {
	if p.config.MemProfile != "" {
		if err := p.writeFile(p.config.MemProfile, func(f *os.File) error {
			runtime.GC()
			return pprof.WriteHeapProfile(f)
		}); err != nil {
			core.LogError(p, "Unable to write memory profile: ", err)
		}
	}

	if p.block != nil {
		if err := p.writeFile(p.config.BlockProfile, func(f *os.File) error {
			return p.block.WriteTo(f, 0)
		}); err != nil {
			core.LogError(p, "Unable to write block profile: ", err)
		}
	}

	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		p.cpuFile.Close()
		p.cpuFile = nil
	}
}

func (p *Profiler) writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return write(f)
}
