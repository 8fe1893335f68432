// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package serialpipe

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUARTRaiseCoalesces(t *testing.T) {
	u := NewUART(newSink(), 4)

	u.raise(RxIRQ)
	u.raise(RxIRQ)
	u.raise(TxIRQ)
	require.Len(t, u.IRQ(), 2)

	assert.Equal(t, RxIRQ, <-u.IRQ())
	assert.Equal(t, TxIRQ, <-u.IRQ())

	// pending until cleared
	u.raise(RxIRQ)
	assert.Len(t, u.IRQ(), 0)
	u.Clear(RxIRQ)
	u.raise(RxIRQ)
	assert.Len(t, u.IRQ(), 1)
}

func TestUARTTxFIFO(t *testing.T) {
	u := NewUART(newSink(), 2)
	assert.True(t, u.Writeable())
	u.Putc(1)
	u.Putc(2)
	assert.False(t, u.Writeable())
	u.Putc(3) // lost, FIFO full
	assert.Len(t, u.txFIFO, 2)
}

func TestUARTEnableTxIRQ(t *testing.T) {
	u := NewUART(newSink(), 2)
	u.EnableTxIRQ(true)
	require.Len(t, u.IRQ(), 1)
	assert.Equal(t, TxIRQ, <-u.IRQ())
	u.Clear(TxIRQ)

	u.Putc(1)
	u.Putc(2)
	u.EnableTxIRQ(true)
	assert.Len(t, u.IRQ(), 0, "full FIFO must not raise TX")
}

func TestUARTRxFIFO(t *testing.T) {
	u := NewUART(struct {
		io.Reader
		io.Writer
	}{nil, io.Discard}, 4)

	assert.False(t, u.Readable())
	assert.Equal(t, byte(0), u.Getc())
	u.rxFIFO <- 0x42
	assert.True(t, u.Readable())
	assert.Equal(t, byte(0x42), u.Getc())
	assert.Equal(t, "RX", RxIRQ.String())
	assert.Equal(t, "TX", TxIRQ.String())
}
