// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package serialpipe

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Thermoquad/gnsslink/pkg/pipe"
)

// Default pipe sizes
const (
	DefaultRxSize = 512
	DefaultTxSize = 512
)

// DefaultPollInterval bounds how long blocking calls sleep between checks
// when no progress notification arrives
const DefaultPollInterval = 5 * time.Millisecond

// Counters reports the byte traffic through a SerialPipe
type Counters struct {
	RxBytes  uint64 `json:"rx_bytes"`
	TxBytes  uint64 `json:"tx_bytes"`
	Overflow uint64 `json:"overflow"` // received bytes lost because the rx pipe was full
}

// irqLine is one maskable interrupt source. Holding mu masks the source:
// the interrupt handler takes the same lock before touching shared state.
type irqLine struct {
	mu       sync.Mutex
	attached bool
	enable   func(bool)
}

func (l *irqLine) attach() {
	if !l.attached {
		l.attached = true
		l.enable(true)
	}
}

func (l *irqLine) detach() {
	if l.attached {
		l.attached = false
		l.enable(false)
	}
}

// SerialPipe buffers traffic to and from a Device.
//
// The rx pipe has one producer (Run) and one consumer (the application);
// Getc, Get, GetBlocking and any direct use of Rx must come from a single
// goroutine. The tx pipe has one producer (the application) and is
// consumed under the tx interrupt lock.
type SerialPipe struct {
	dev Device
	rx  *pipe.Pipe
	tx  *pipe.Pipe

	txIRQ irqLine

	rxNotify   chan struct{}
	txProgress chan struct{}
	stopped    chan struct{}
	stopOnce   sync.Once

	rxBytes  atomic.Uint64
	txBytes  atomic.Uint64
	overflow atomic.Uint64

	PollInterval time.Duration
	Logger       log.FieldLogger
}

// New creates a SerialPipe for dev with the given pipe capacities.
// Sizes below one fall back to the defaults.
func New(dev Device, rxSize, txSize int) *SerialPipe {
	if rxSize < 1 {
		rxSize = DefaultRxSize
	}
	if txSize < 1 {
		txSize = DefaultTxSize
	}
	s := &SerialPipe{
		dev:          dev,
		rx:           pipe.New(rxSize),
		tx:           pipe.New(txSize),
		rxNotify:     make(chan struct{}, 1),
		txProgress:   make(chan struct{}, 1),
		stopped:      make(chan struct{}),
		PollInterval: DefaultPollInterval,
		Logger:       log.StandardLogger(),
	}
	s.txIRQ.enable = dev.EnableTxIRQ
	return s
}

// Run services device interrupts until ctx is done or the device fails.
// It starts the device's own Run when the device implements Runner.
// Only one Run may be active per SerialPipe.
func (s *SerialPipe) Run(ctx context.Context) error {
	defer s.stopOnce.Do(func() { close(s.stopped) })

	var devErr chan error
	if r, ok := s.dev.(Runner); ok {
		devErr = make(chan error, 1)
		go func() { devErr <- r.Run(ctx) }()
	}

	s.Logger.Debug("serial pipe running")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-devErr:
			// pick up whatever the device received before it stopped
			s.rxISR()
			s.Logger.WithError(err).WithField("overflow", s.overflow.Load()).Debug("serial device stopped")
			return err

		case irq := <-s.dev.IRQ():
			s.dev.Clear(irq)
			switch irq {
			case RxIRQ:
				s.rxISR()
			case TxIRQ:
				s.txISR()
			}
		}
	}
}

// Done is closed when Run returns
func (s *SerialPipe) Done() <-chan struct{} {
	return s.stopped
}

func (s *SerialPipe) rxISR() {
	received := false
	for s.dev.Readable() {
		c := s.dev.Getc()
		if s.rx.PutByte(c) {
			s.rxBytes.Add(1)
			received = true
		} else {
			s.overflow.Add(1)
		}
	}
	if received {
		notify(s.rxNotify)
	}
}

func (s *SerialPipe) txISR() {
	s.txIRQ.mu.Lock()
	defer s.txIRQ.mu.Unlock()
	s.txCopy()
}

// txCopy feeds the device from the tx pipe. Callers hold txIRQ.mu.
func (s *SerialPipe) txCopy() {
	moved := false
	for s.dev.Writeable() {
		c, err := s.tx.GetByte()
		if err != nil {
			s.txIRQ.detach()
			break
		}
		s.dev.Putc(c)
		s.txBytes.Add(1)
		moved = true
	}
	if moved {
		notify(s.txProgress)
	}
}

// txStart masks the tx interrupt, feeds the device directly and leaves
// the interrupt attached only if bytes remain queued
func (s *SerialPipe) txStart() {
	s.txIRQ.mu.Lock()
	defer s.txIRQ.mu.Unlock()
	s.txCopy()
	if s.tx.Readable() {
		s.txIRQ.attach()
	}
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// ============================================================================
// Transmit
// ============================================================================

// Writeable returns the free space in the tx pipe
func (s *SerialPipe) Writeable() int {
	return s.tx.Free()
}

// Putc queues one byte. It returns false if the tx pipe is full.
func (s *SerialPipe) Putc(c byte) bool {
	ok := s.tx.PutByte(c)
	s.txStart()
	return ok
}

// SendNonBlocking queues as much of p as fits and returns the count
func (s *SerialPipe) SendNonBlocking(p []byte) int {
	n := s.tx.Put(p)
	s.txStart()
	return n
}

// Send queues all of p, waiting for room as needed. It returns early with
// the number of bytes queued when ctx is done or with ErrDeviceClosed once
// Run has stopped.
func (s *SerialPipe) Send(ctx context.Context, p []byte) (int, error) {
	sent := s.SendNonBlocking(p)
	if sent == len(p) {
		return sent, nil
	}

	ticker := time.NewTicker(s.pollInterval())
	defer ticker.Stop()

	for sent < len(p) {
		select {
		case <-ctx.Done():
			return sent, ctx.Err()
		case <-s.stopped:
			return sent, ErrDeviceClosed
		case <-s.txProgress:
		case <-ticker.C:
		}
		sent += s.SendNonBlocking(p[sent:])
	}
	return sent, nil
}

// ============================================================================
// Receive
// ============================================================================

// Readable returns the number of bytes waiting in the rx pipe
func (s *SerialPipe) Readable() int {
	return s.rx.Size()
}

// Getc removes one received byte
func (s *SerialPipe) Getc() (byte, error) {
	return s.rx.GetByte()
}

// Get removes exactly n received bytes, or none with pipe.ErrBufferUnderrun
func (s *SerialPipe) Get(n int) ([]byte, error) {
	return s.rx.Get(n)
}

// GetBlocking waits until n bytes have been received and removes them.
// It returns ErrDeviceClosed if Run stops first, and pipe.ErrBufferUnderrun
// at once if n exceeds the rx pipe capacity.
func (s *SerialPipe) GetBlocking(ctx context.Context, n int) ([]byte, error) {
	if n > s.rx.Cap() {
		return nil, fmt.Errorf("get %d bytes from a %d byte pipe: %w", n, s.rx.Cap(), pipe.ErrBufferUnderrun)
	}

	ticker := time.NewTicker(s.pollInterval())
	defer ticker.Stop()

	for {
		if s.rx.Size() >= n {
			return s.rx.Get(n)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.stopped:
			if s.rx.Size() >= n {
				return s.rx.Get(n)
			}
			return nil, ErrDeviceClosed
		case <-s.rxNotify:
		case <-ticker.C:
		}
	}
}

// Rx returns the receive pipe for in-place scanning
func (s *SerialPipe) Rx() *pipe.Pipe {
	return s.rx
}

// RxNotify signals after Run has added bytes to the rx pipe
func (s *SerialPipe) RxNotify() <-chan struct{} {
	return s.rxNotify
}

// Counters returns the traffic counters
func (s *SerialPipe) Counters() Counters {
	return Counters{
		RxBytes:  s.rxBytes.Load(),
		TxBytes:  s.txBytes.Load(),
		Overflow: s.overflow.Load(),
	}
}

func (s *SerialPipe) pollInterval() time.Duration {
	if s.PollInterval <= 0 {
		return DefaultPollInterval
	}
	return s.PollInterval
}
