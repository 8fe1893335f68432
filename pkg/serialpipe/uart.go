// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package serialpipe

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
)

// DefaultFIFOSize is the depth of the emulated hardware FIFOs
const DefaultFIFOSize = 64

const numIRQ = 2

// UART emulates a UART peripheral on top of a byte stream such as a serial
// port, a WebSocket bridge or a TCP socket. Background goroutines move
// bytes between the stream and the FIFOs and raise the interrupts.
type UART struct {
	port io.ReadWriter

	rxFIFO chan byte
	txFIFO chan byte
	irq    chan IRQ

	pending   [numIRQ]atomic.Bool
	txEnabled atomic.Bool
}

// NewUART creates a UART over port with FIFOs of fifoSize bytes
func NewUART(port io.ReadWriter, fifoSize int) *UART {
	if fifoSize < 1 {
		fifoSize = DefaultFIFOSize
	}
	return &UART{
		port:   port,
		rxFIFO: make(chan byte, fifoSize),
		txFIFO: make(chan byte, fifoSize),
		irq:    make(chan IRQ, numIRQ),
	}
}

func (u *UART) Readable() bool { return len(u.rxFIFO) > 0 }

func (u *UART) Getc() byte {
	select {
	case c := <-u.rxFIFO:
		return c
	default:
		return 0
	}
}

func (u *UART) Writeable() bool { return len(u.txFIFO) < cap(u.txFIFO) }

// Putc queues c for transmission. Like a hardware FIFO, a byte written
// while full is lost.
func (u *UART) Putc(c byte) {
	select {
	case u.txFIFO <- c:
	default:
	}
}

func (u *UART) IRQ() <-chan IRQ { return u.irq }

func (u *UART) Clear(irq IRQ) { u.pending[irq].Store(false) }

func (u *UART) EnableTxIRQ(enabled bool) {
	u.txEnabled.Store(enabled)
	if enabled && u.Writeable() {
		u.raise(TxIRQ)
	}
}

// raise queues irq unless it is already pending. The irq channel holds one
// slot per source so this never blocks.
func (u *UART) raise(irq IRQ) {
	if u.pending[irq].CompareAndSwap(false, true) {
		u.irq <- irq
	}
}

// Run moves bytes until ctx is done or the port fails. A blocked port read
// only returns once the port is closed by its owner.
func (u *UART) Run(ctx context.Context) error {
	errc := make(chan error, 2)
	go func() { errc <- u.receive(ctx) }()
	go func() { errc <- u.transmit(ctx) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errc:
		return err
	}
}

func (u *UART) receive(ctx context.Context) error {
	buf := make([]byte, cap(u.rxFIFO))
	for {
		n, err := u.port.Read(buf)
		for _, c := range buf[:n] {
			select {
			case u.rxFIFO <- c:
				u.raise(RxIRQ)
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDeviceClosed, err)
		}
	}
}

func (u *UART) transmit(ctx context.Context) error {
	buf := make([]byte, 0, cap(u.txFIFO))
	for {
		select {
		case c := <-u.txFIFO:
			buf = append(buf[:0], c)
		case <-ctx.Done():
			return ctx.Err()
		}

		// collect whatever else is already queued
	drain:
		for len(buf) < cap(buf) {
			select {
			case c := <-u.txFIFO:
				buf = append(buf, c)
			default:
				break drain
			}
		}

		if u.txEnabled.Load() {
			u.raise(TxIRQ)
		}
		if _, err := u.port.Write(buf); err != nil {
			return fmt.Errorf("%w: %w", ErrDeviceClosed, err)
		}
	}
}
