// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package serialpipe pumps bytes between an interrupt-driven serial
// peripheral and a pair of lock-free pipes.
//
// The peripheral is modelled by Device. SerialPipe.Run plays the part of
// the interrupt controller: it is the only goroutine that services device
// interrupts, moving received bytes into the rx pipe and feeding queued
// bytes from the tx pipe to the device. Application goroutines use the
// non-blocking Putc/SendNonBlocking/Getc calls or the context-aware
// Send/GetBlocking wrappers.
package serialpipe

import (
	"context"
	"errors"
)

// ErrDeviceClosed is returned when the device stops delivering data
var ErrDeviceClosed = errors.New("serial device closed")

// IRQ identifies an interrupt source of a Device
type IRQ int

const (
	RxIRQ IRQ = iota // received data is available
	TxIRQ            // the transmit FIFO has room
)

func (i IRQ) String() string {
	switch i {
	case RxIRQ:
		return "RX"
	case TxIRQ:
		return "TX"
	default:
		return "INVALID"
	}
}

// Device is a serial peripheral with hardware FIFOs and interrupt lines.
//
// Getc is only called after Readable returned true and Putc only after
// Writeable returned true. A raised IRQ stays pending until Clear; the
// device must not queue a second notification for a pending source.
// While the TX interrupt is enabled the device raises TxIRQ whenever its
// transmit FIFO has room.
type Device interface {
	Readable() bool
	Getc() byte
	Writeable() bool
	Putc(c byte)

	IRQ() <-chan IRQ
	Clear(irq IRQ)
	EnableTxIRQ(enabled bool)
}

// Runner is implemented by devices that need a goroutine of their own,
// such as the UART emulation. SerialPipe.Run starts it.
type Runner interface {
	Run(ctx context.Context) error
}
