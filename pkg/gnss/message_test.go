// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gnss

import (
	"bytes"
	"reflect"
	"testing"
)

func TestMessageUBXAccessors(t *testing.T) {
	m := NewMessage(KindUBX, ackAck)

	if m.Class() != ClassACK || m.ID() != IDAckAck {
		t.Errorf("Class/ID = %02X %02X", m.Class(), m.ID())
	}
	if !bytes.Equal(m.Payload(), []byte{0x06, 0x01}) {
		t.Errorf("Payload() = % X", m.Payload())
	}
	if m.Body() != nil {
		t.Error("Body() should be nil for UBX")
	}
	if m.Name() != "ACK-ACK" {
		t.Errorf("Name() = %q", m.Name())
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestMessageUnnamedUBX(t *testing.T) {
	frame, _ := BuildUBX(0x7F, 0x01, nil)
	m := NewMessage(KindUBX, frame)
	if m.Name() != "7F-01" {
		t.Errorf("Name() = %q, want 7F-01", m.Name())
	}
}

func TestMessageNMEAAccessors(t *testing.T) {
	m := NewMessage(KindNMEA, gga)

	if m.Address() != "GPGGA" || m.Talker() != "GP" || m.Sentence() != "GGA" {
		t.Errorf("Address/Talker/Sentence = %q %q %q", m.Address(), m.Talker(), m.Sentence())
	}
	if m.Class() != 0 || m.Payload() != nil {
		t.Error("UBX accessors should be empty for NMEA")
	}
	fields := m.Fields()
	if len(fields) != 15 || fields[0] != "GPGGA" || fields[14] != "" {
		t.Errorf("Fields() = %q", fields)
	}
	if m.Name() != "GPGGA" {
		t.Errorf("Name() = %q", m.Name())
	}
}

func TestMessageProprietary(t *testing.T) {
	m := NewMessage(KindNMEA, []byte("$PUBX,00*33\r\n"))
	if m.Talker() != "P" || m.Sentence() != "UBX" {
		t.Errorf("Talker/Sentence = %q %q", m.Talker(), m.Sentence())
	}
	if !reflect.DeepEqual(m.Fields(), []string{"PUBX", "00"}) {
		t.Errorf("Fields() = %q", m.Fields())
	}
}

func TestMessageUnknown(t *testing.T) {
	m := NewMessage(KindUnknown, []byte{1, 2, 3})
	if m.Name() != "UNKNOWN" || m.Fields() != nil || m.Validate() != nil {
		t.Error("unknown message accessors")
	}
}
