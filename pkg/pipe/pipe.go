// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package pipe implements a fixed-capacity single-producer single-consumer
// byte ring. One goroutine may call the producer methods (Put, PutByte) while
// another calls the consumer methods (Get, GetByte, Cursor) without locking.
package pipe

import (
	"errors"
	"sync/atomic"
)

// ErrBufferUnderrun is returned when more bytes are requested than are stored
var ErrBufferUnderrun = errors.New("pipe: buffer underrun")

// Pipe is a lock-free SPSC byte ring.
//
// The storage holds capacity+1 bytes and one slot always stays empty, so
// read == write means empty and write+1 == read means full. The producer
// only stores w, the consumer only stores r.
type Pipe struct {
	buf []byte
	r   atomic.Uint32
	w   atomic.Uint32
}

// New creates a pipe that can hold capacity bytes
func New(capacity int) *Pipe {
	if capacity < 1 {
		capacity = 1
	}
	return &Pipe{buf: make([]byte, capacity+1)}
}

func (p *Pipe) inc(i uint32) uint32 {
	i++
	if int(i) == len(p.buf) {
		return 0
	}
	return i
}

func (p *Pipe) used(r, w uint32) int {
	n := int(w) - int(r)
	if n < 0 {
		n += len(p.buf)
	}
	return n
}

// Cap returns the number of bytes the pipe can hold
func (p *Pipe) Cap() int {
	return len(p.buf) - 1
}

// Size returns the number of bytes currently stored
func (p *Pipe) Size() int {
	return p.used(p.r.Load(), p.w.Load())
}

// Free returns the number of bytes that can be added before the pipe is full
func (p *Pipe) Free() int {
	return p.Cap() - p.Size()
}

// Readable reports whether at least one byte is stored
func (p *Pipe) Readable() bool {
	return p.r.Load() != p.w.Load()
}

// Writeable reports whether at least one byte can be added
func (p *Pipe) Writeable() bool {
	return p.inc(p.w.Load()) != p.r.Load()
}

// PutByte appends c. It returns false and drops the byte when the pipe is full.
func (p *Pipe) PutByte(c byte) bool {
	w := p.w.Load()
	next := p.inc(w)
	if next == p.r.Load() {
		return false
	}
	p.buf[w] = c
	p.w.Store(next)
	return true
}

// Put copies as many bytes of data as fit and returns the count. It never blocks.
func (p *Pipe) Put(data []byte) int {
	w := p.w.Load()
	free := p.Cap() - p.used(p.r.Load(), w)
	n := len(data)
	if n > free {
		n = free
	}
	if n == 0 {
		return 0
	}
	first := copy(p.buf[w:], data[:n])
	copy(p.buf, data[first:n])
	p.w.Store(uint32((int(w) + n) % len(p.buf)))
	return n
}

// GetByte removes and returns the oldest byte
func (p *Pipe) GetByte() (byte, error) {
	r := p.r.Load()
	if r == p.w.Load() {
		return 0, ErrBufferUnderrun
	}
	c := p.buf[r]
	p.r.Store(p.inc(r))
	return c, nil
}

// Get removes exactly n bytes from the front of the pipe. If fewer than n
// bytes are stored nothing is removed and ErrBufferUnderrun is returned.
func (p *Pipe) Get(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrBufferUnderrun
	}
	r := p.r.Load()
	if n > p.used(r, p.w.Load()) {
		return nil, ErrBufferUnderrun
	}
	out := make([]byte, n)
	first := copy(out, p.buf[r:])
	copy(out[first:], p.buf)
	p.r.Store(uint32((int(r) + n) % len(p.buf)))
	return out, nil
}

// Cursor returns a lookahead positioned offset bytes past the read index.
// It must only be used from the consumer side.
func (p *Pipe) Cursor(offset int) *Cursor {
	c := &Cursor{p: p}
	c.Reset(offset)
	return c
}
