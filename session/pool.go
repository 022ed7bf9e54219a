/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package session

import (
	"sync"

	"github.com/pcepsim/pcepd/core"
	"github.com/pcepsim/pcepd/pcep"
	"github.com/Link512/stealthpool"
)

// BlockSize is the size of a receive buffer. It holds the largest message a header can declare.
const BlockSize = pcep.MaxMessageSize + 1

// Pool hands out receive buffers from off-heap memory, falling back to the heap when exhausted.
type Pool struct {
	p *stealthpool.Pool
}

var (
	defaultPool     *Pool
	defaultPoolOnce sync.Once
)

// NewPool allocates a pool of the given number of blocks.
func NewPool(blocks int) (*Pool, error) {
	p, err := stealthpool.New(blocks, stealthpool.WithBlockSize(BlockSize))
	if err != nil {
		return nil, err
	}
	return &Pool{p: p}, nil
}

// DefaultPool returns the process-wide pool sized by session.pool_blocks.
// A pool that cannot be allocated degrades to heap buffers.
func DefaultPool() *Pool {
	defaultPoolOnce.Do(func() {
		p, err := NewPool(core.GetConfigIntDefault("session.pool_blocks", 256))
		if err != nil {
			core.LogError("Session", "Failed to allocate stealthpool: ", err)
			p = &Pool{}
		}
		defaultPool = p
	})
	return defaultPool
}

// Get returns a buffer of BlockSize bytes. Its content is undefined.
func (p *Pool) Get() []byte {
	if p != nil && p.p != nil {
		if b, err := p.p.Get(); err == nil {
			return b
		}
		core.LogDebug("Session", ErrPoolExhausted, ", using heap buffer")
	}
	return make([]byte, BlockSize)
}

// Put returns a buffer obtained from Get. Heap buffers are ignored.
func (p *Pool) Put(b []byte) {
	if p == nil || p.p == nil || b == nil {
		return
	}
	_ = p.p.Return(b)
}

// Close frees the pool memory. Buffers still out must not be used afterwards.
func (p *Pool) Close() error {
	if p == nil || p.p == nil {
		return nil
	}
	return p.p.Close()
}
