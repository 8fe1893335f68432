// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package bridge forwards link messages to an MQTT broker and serves the
// link state over HTTP.
package bridge

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Thermoquad/gnsslink/pkg/gnss"
)

// Topic returns the topic for m below prefix:
// <prefix>ubx/<NAME>, <prefix>nmea/<ADDRESS> or <prefix>unknown
func Topic(prefix string, m *gnss.Message) string {
	switch m.Kind {
	case gnss.KindUBX:
		return prefix + "ubx/" + m.Name()
	case gnss.KindNMEA:
		return prefix + "nmea/" + m.Name()
	default:
		return prefix + "unknown"
	}
}

// Bridge publishes raw frames and remembers the latest frame per name
type Bridge struct {
	Publisher Publisher
	Prefix    string
	Latest    *Latest

	// SkipUnknown drops unrecognized runs instead of publishing them
	SkipUnknown bool
}

// New creates a bridge publishing through pub
func New(pub Publisher, prefix string) *Bridge {
	return &Bridge{
		Publisher: pub,
		Prefix:    prefix,
		Latest:    NewLatest(),
	}
}

// Forward publishes m and records it as the latest of its name
func (b *Bridge) Forward(m *gnss.Message) error {
	if b.Latest != nil && m.Kind != gnss.KindUnknown {
		b.Latest.Set(m)
	}
	if m.Kind == gnss.KindUnknown && b.SkipUnknown {
		return nil
	}
	if b.Publisher == nil {
		return nil
	}
	topic := Topic(b.Prefix, m)
	if err := b.Publisher.Publish(topic, m.Data); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Latest keeps the most recent message of each name. It is safe for
// concurrent use.
type Latest struct {
	mu   sync.RWMutex
	msgs map[string]*gnss.Message
}

// NewLatest creates an empty store
func NewLatest() *Latest {
	return &Latest{msgs: make(map[string]*gnss.Message)}
}

// Set stores m under its name
func (l *Latest) Set(m *gnss.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs[m.Name()] = m
}

// Get returns the latest message named name
func (l *Latest) Get(name string) (*gnss.Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.msgs[name]
	return m, ok
}

// Names returns the stored names in sorted order
func (l *Latest) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.msgs))
	for name := range l.msgs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
