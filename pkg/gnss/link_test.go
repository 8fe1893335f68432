// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gnss

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Thermoquad/gnsslink/pkg/pipe"
)

// fakePort is a Port whose receive pipe is filled by the test
type fakePort struct {
	rx     *pipe.Pipe
	notify chan struct{}

	mu   sync.Mutex
	sent bytes.Buffer
}

func newFakePort(capacity int) *fakePort {
	return &fakePort{
		rx:     pipe.New(capacity),
		notify: make(chan struct{}, 1),
	}
}

func (f *fakePort) Rx() *pipe.Pipe { return f.rx }

func (f *fakePort) RxNotify() <-chan struct{} { return f.notify }

func (f *fakePort) Send(ctx context.Context, p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent.Write(p)
}

func (f *fakePort) deliver(p []byte) {
	f.rx.Put(p)
	select {
	case f.notify <- struct{}{}:
	default:
	}
}

func (f *fakePort) sentBytes() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte{}, f.sent.Bytes()...)
}

func TestLinkReadMessage(t *testing.T) {
	port := newFakePort(128)
	link := NewLink(port)

	m, err := link.ReadMessage()
	if m != nil || err != nil {
		t.Fatalf("ReadMessage() on empty = %v, %v", m, err)
	}

	port.deliver([]byte("xx"))
	port.deliver(ackAck)

	m, err = link.ReadMessage()
	if err != nil || m == nil || m.Kind != KindUnknown || string(m.Data) != "xx" {
		t.Fatalf("ReadMessage() = %+v, %v", m, err)
	}
	m, err = link.ReadMessage()
	if err != nil || m == nil || m.Kind != KindUBX || !bytes.Equal(m.Data, ackAck) {
		t.Fatalf("ReadMessage() = %+v, %v", m, err)
	}

	s := link.Stats.Snapshot()
	if s.UBXFrames != 1 || s.UnknownBytes != 2 || s.ByName["ACK-ACK"] != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestLinkNextMessageWaits(t *testing.T) {
	port := newFakePort(128)
	link := NewLink(port)
	link.PollInterval = time.Hour

	go func() {
		time.Sleep(20 * time.Millisecond)
		port.deliver(tstSentence)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m, err := link.NextMessage(ctx)
	if err != nil {
		t.Fatalf("NextMessage() error = %v", err)
	}
	if m.Kind != KindNMEA || m.Address() != "GPTST" {
		t.Errorf("NextMessage() = %s %q", m.Kind, m.Data)
	}
}

func TestLinkNextMessageCancel(t *testing.T) {
	link := NewLink(newFakePort(16))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := link.NextMessage(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("NextMessage() error = %v, want deadline exceeded", err)
	}
}

func TestLinkStalledAndDiscard(t *testing.T) {
	port := newFakePort(8)
	link := NewLink(port)
	port.deliver([]byte{0xB5, 0x62, 0x01, 0x07, 0x40, 0x00, 0x00, 0x00})

	for i := 0; i < 3; i++ {
		if _, err := link.ReadMessage(); !errors.Is(err, ErrStalled) {
			t.Fatalf("ReadMessage() error = %v, want ErrStalled", err)
		}
	}
	if got := link.Stats.Snapshot().Stalls; got != 1 {
		t.Errorf("Stalls = %d, want 1", got)
	}

	if err := link.Discard(1); err != nil {
		t.Fatalf("Discard() error = %v", err)
	}
	m, err := link.ReadMessage()
	if err != nil || m == nil || m.Kind != KindUnknown || len(m.Data) != 7 {
		t.Errorf("ReadMessage() after discard = %+v, %v", m, err)
	}

	if err := link.Discard(1); !errors.Is(err, pipe.ErrBufferUnderrun) {
		t.Errorf("Discard() on empty pipe error = %v", err)
	}
}

func TestLinkFlush(t *testing.T) {
	port := newFakePort(64)
	link := NewLink(port)

	if m, err := link.Flush(); m != nil || err != nil {
		t.Fatalf("Flush() on empty pipe = %+v, %v", m, err)
	}

	tail := []byte("$GPGGA,12")
	port.deliver(tail)
	if m, err := link.ReadMessage(); m != nil || err != nil {
		t.Fatalf("ReadMessage() on partial frame = %+v, %v", m, err)
	}

	m, err := link.Flush()
	if err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if m == nil || m.Kind != KindUnknown || !bytes.Equal(m.Data, tail) {
		t.Fatalf("Flush() = %+v, want unknown %q", m, tail)
	}
	if port.rx.Size() != 0 {
		t.Errorf("pipe holds %d bytes after flush", port.rx.Size())
	}

	snap := link.Stats.Snapshot()
	if snap.UnknownBytes != uint64(len(tail)) || snap.UnknownRuns != 1 {
		t.Errorf("UnknownBytes = %d, UnknownRuns = %d", snap.UnknownBytes, snap.UnknownRuns)
	}
}

func TestLinkSkipStalled(t *testing.T) {
	port := newFakePort(8)
	link := NewLink(port)
	link.Scanner.SkipStalled = true
	port.deliver([]byte{0xB5, 0x62, 0x01, 0x07, 0x40, 0x00, 0x00, 0x00})

	m, err := link.ReadMessage()
	if err != nil || m == nil || m.Kind != KindUnknown || len(m.Data) != 8 {
		t.Errorf("ReadMessage() = %+v, %v", m, err)
	}
}

func TestLinkAwait(t *testing.T) {
	port := newFakePort(128)
	link := NewLink(port)
	port.deliver(tstSentence)
	port.deliver(navStatusPoll)
	port.deliver(ackAck)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m, err := link.Await(ctx, func(m *Message) bool {
		matched, _ := IsAck(m, ClassCFG, IDCfgMSG)
		return matched
	})
	if err != nil {
		t.Fatalf("Await() error = %v", err)
	}
	if !bytes.Equal(m.Data, ackAck) {
		t.Errorf("Await() = % X", m.Data)
	}
}

func TestLinkSend(t *testing.T) {
	port := newFakePort(16)
	link := NewLink(port)
	ctx := context.Background()

	if _, err := link.Poll(ctx, ClassNAV, IDNavStatus); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if _, err := link.SendNMEA(ctx, []byte("GPTST,1,2")); err != nil {
		t.Fatalf("SendNMEA() error = %v", err)
	}
	if _, err := link.SendUBX(ctx, ClassACK, IDAckAck, []byte{0x06, 0x01}); err != nil {
		t.Fatalf("SendUBX() error = %v", err)
	}

	want := append(append(append([]byte{}, navStatusPoll...), tstSentence...), ackAck...)
	if got := port.sentBytes(); !bytes.Equal(got, want) {
		t.Errorf("sent = %q, want %q", got, want)
	}

	if _, err := link.SendNMEA(ctx, []byte("bad*body")); !errors.Is(err, ErrInvalidBody) {
		t.Errorf("SendNMEA() error = %v, want ErrInvalidBody", err)
	}
	if _, err := link.SendNMEALegacy(ctx, []byte("GPTST,1,2")); err != nil {
		t.Errorf("SendNMEALegacy() error = %v", err)
	}
}
