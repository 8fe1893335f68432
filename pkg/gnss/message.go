// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gnss

import (
	"bytes"
	"fmt"
	"time"
)

// Message is one classified chunk of the input stream: a complete UBX frame,
// a complete NMEA sentence, or a run of bytes that matched neither.
// Data always holds the raw bytes exactly as received.
type Message struct {
	Kind      Kind
	Data      []byte
	Timestamp time.Time
}

// NewMessage creates a message stamped with the current time
func NewMessage(kind Kind, data []byte) *Message {
	return &Message{
		Kind:      kind,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// Class returns the UBX message class (0 for other kinds)
func (m *Message) Class() byte {
	if m.Kind != KindUBX || len(m.Data) < UBXHeaderSize {
		return 0
	}
	return m.Data[2]
}

// ID returns the UBX message id (0 for other kinds)
func (m *Message) ID() byte {
	if m.Kind != KindUBX || len(m.Data) < UBXHeaderSize {
		return 0
	}
	return m.Data[3]
}

// Payload returns the UBX payload without header and checksum
func (m *Message) Payload() []byte {
	if m.Kind != KindUBX || len(m.Data) < UBXOverhead {
		return nil
	}
	return m.Data[UBXHeaderSize : len(m.Data)-UBXChecksumSize]
}

// Body returns the NMEA sentence between '$' and '*'
func (m *Message) Body() []byte {
	if m.Kind != KindNMEA || len(m.Data) < NMEAOverhead {
		return nil
	}
	return m.Data[1 : len(m.Data)-5]
}

// Address returns the NMEA address field, e.g. "GPGGA" or "PUBX"
func (m *Message) Address() string {
	body := m.Body()
	if i := bytes.IndexByte(body, NMEASeparator); i >= 0 {
		body = body[:i]
	}
	return string(body)
}

// Talker returns the NMEA talker id ("GP", "GN", ...). Proprietary
// sentences report "P".
func (m *Message) Talker() string {
	addr := m.Address()
	if len(addr) > 0 && addr[0] == 'P' {
		return "P"
	}
	if len(addr) < 2 {
		return addr
	}
	return addr[:2]
}

// Sentence returns the NMEA sentence formatter ("GGA", "RMC", ...) or the
// manufacturer code of a proprietary sentence
func (m *Message) Sentence() string {
	addr := m.Address()
	return addr[len(m.Talker()):]
}

// Fields returns the comma-separated NMEA fields, address first
func (m *Message) Fields() []string {
	body := m.Body()
	if body == nil {
		return nil
	}
	parts := bytes.Split(body, []byte{NMEASeparator})
	fields := make([]string, len(parts))
	for i, p := range parts {
		fields[i] = string(p)
	}
	return fields
}

// Name returns a short identifier usable as a key or topic segment
func (m *Message) Name() string {
	switch m.Kind {
	case KindUBX:
		name := FormatMessageType(m.Class(), m.ID())
		if name == "UNKNOWN" {
			return fmt.Sprintf("%02X-%02X", m.Class(), m.ID())
		}
		return name
	case KindNMEA:
		return m.Address()
	default:
		return "UNKNOWN"
	}
}

// Validate re-checks the frame bytes of UBX and NMEA messages
func (m *Message) Validate() error {
	switch m.Kind {
	case KindUBX:
		_, _, _, err := DecodeUBX(m.Data)
		return err
	case KindNMEA:
		_, err := DecodeNMEA(m.Data)
		return err
	default:
		return nil
	}
}
