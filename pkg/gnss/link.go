// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gnss

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Thermoquad/gnsslink/pkg/pipe"
)

// ErrStalled is returned when the receive pipe is full and its front holds
// the start of a frame that cannot complete. The caller must Discard bytes
// to make progress.
var ErrStalled = errors.New("receive pipe stalled on an incomplete frame")

// DefaultPollInterval is how often NextMessage rechecks the receive pipe
// when the port gives no receive notifications
const DefaultPollInterval = 10 * time.Millisecond

// Port is a byte transport with a receive pipe filled in the background
type Port interface {
	Rx() *pipe.Pipe
	Send(ctx context.Context, p []byte) (int, error)
}

// RxNotifier is implemented by ports that signal when bytes arrive
type RxNotifier interface {
	RxNotify() <-chan struct{}
}

// Link reads classified messages from a port and sends frames to it.
// ReadMessage, NextMessage, Await and Discard are consumer-side calls and
// must come from a single goroutine.
type Link struct {
	port Port

	Scanner      Scanner
	Stats        *Statistics
	PollInterval time.Duration
	Logger       log.FieldLogger

	stalled bool
}

// NewLink creates a link over port
func NewLink(port Port) *Link {
	return &Link{
		port:         port,
		Stats:        NewStatistics(),
		PollInterval: DefaultPollInterval,
		Logger:       log.StandardLogger(),
	}
}

// ReadMessage extracts the next message from the receive pipe without
// blocking. It returns (nil, nil) when more bytes are needed and
// ErrStalled when the pipe is full with an incomplete frame at its front.
func (l *Link) ReadMessage() (*Message, error) {
	rx := l.port.Rx()
	res := l.Scanner.Scan(rx, -1)

	if res.Kind == KindNeedMoreData {
		stalled := res.Stalled
		if l.stalled {
			// count each stall once
			res.Stalled = false
		}
		l.Stats.Update(res)
		l.stalled = stalled
		if stalled {
			return nil, ErrStalled
		}
		return nil, nil
	}
	l.stalled = false

	data, err := rx.Get(res.Length)
	if err != nil {
		return nil, fmt.Errorf("extract %s of %d bytes: %w", res.Kind, res.Length, err)
	}
	l.Stats.Update(res)

	m := NewMessage(res.Kind, data)
	l.Stats.CountMessage(m)
	l.Logger.WithFields(log.Fields{
		"kind":   res.Kind,
		"length": res.Length,
	}).Trace("message")
	return m, nil
}

// NextMessage waits until a message is available or ctx is done.
// ErrStalled is returned to the caller, who decides how much to Discard.
func (l *Link) NextMessage(ctx context.Context) (*Message, error) {
	var notify <-chan struct{}
	if n, ok := l.port.(RxNotifier); ok {
		notify = n.RxNotify()
	}

	interval := l.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m, err := l.ReadMessage()
		if m != nil || err != nil {
			return m, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-notify:
		case <-ticker.C:
		}
	}
}

// Await reads messages until one satisfies match or ctx is done. Messages
// that do not match are dropped. A stalled pipe is resynchronized by
// discarding one byte.
func (l *Link) Await(ctx context.Context, match func(*Message) bool) (*Message, error) {
	for {
		m, err := l.NextMessage(ctx)
		if errors.Is(err, ErrStalled) {
			if err := l.Discard(1); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		if match(m) {
			return m, nil
		}
		l.Logger.WithField("name", m.Name()).Debug("skipping message while waiting")
	}
}

// Discard drops n bytes from the front of the receive pipe. They are
// counted as an unknown run.
func (l *Link) Discard(n int) error {
	if _, err := l.port.Rx().Get(n); err != nil {
		return fmt.Errorf("discard %d bytes: %w", n, err)
	}
	l.stalled = false
	l.Stats.Update(Result{Kind: KindUnknown, Length: n})
	l.Logger.WithField("length", n).Debug("discarded bytes")
	return nil
}

// Flush removes everything left in the receive pipe as one unknown message.
// It is meant for the end of a stream, when a partial frame can no longer
// complete. It returns (nil, nil) if the pipe is empty.
func (l *Link) Flush() (*Message, error) {
	rx := l.port.Rx()
	n := rx.Size()
	if n == 0 {
		return nil, nil
	}
	data, err := rx.Get(n)
	if err != nil {
		return nil, fmt.Errorf("flush %d bytes: %w", n, err)
	}
	l.stalled = false
	l.Stats.Update(Result{Kind: KindUnknown, Length: n})

	m := NewMessage(KindUnknown, data)
	l.Stats.CountMessage(m)
	l.Logger.WithField("length", n).Debug("flushed trailing bytes")
	return m, nil
}

// Send writes raw bytes to the port
func (l *Link) Send(ctx context.Context, p []byte) (int, error) {
	return l.port.Send(ctx, p)
}

// SendUBX builds and sends a UBX frame
func (l *Link) SendUBX(ctx context.Context, class, id byte, payload []byte) (int, error) {
	frame, err := BuildUBX(class, id, payload)
	if err != nil {
		return 0, err
	}
	return l.port.Send(ctx, frame)
}

// SendNMEA builds and sends an NMEA sentence
func (l *Link) SendNMEA(ctx context.Context, body []byte) (int, error) {
	frame, err := BuildNMEA(body)
	if err != nil {
		return 0, err
	}
	return l.port.Send(ctx, frame)
}

// SendNMEALegacy sends an NMEA sentence with legacy checksum digits.
// See BuildNMEALegacy.
func (l *Link) SendNMEALegacy(ctx context.Context, body []byte) (int, error) {
	frame, err := BuildNMEALegacy(body)
	if err != nil {
		return 0, err
	}
	return l.port.Send(ctx, frame)
}

// Poll sends an empty-payload poll request for class and id
func (l *Link) Poll(ctx context.Context, class, id byte) (int, error) {
	return l.port.Send(ctx, NewPoll(class, id))
}
