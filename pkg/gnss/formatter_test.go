// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gnss

import (
	"strings"
	"testing"
)

func TestFormatMessageType(t *testing.T) {
	tests := []struct {
		class, id byte
		want      string
	}{
		{0x01, 0x07, "NAV-PVT"},
		{0x01, 0x03, "NAV-STATUS"},
		{0x01, 0x09, "NAV-ODO"},
		{0x01, 0x35, "NAV-SAT"},
		{0x05, 0x01, "ACK-ACK"},
		{0x05, 0x00, "ACK-NAK"},
		{0x21, 0x11, "LOG-BATCH"},
		{0x21, 0x10, "LOG-RETRIEVEBATCH"},
		{0x06, 0x00, "CFG-PRT"},
		{0x06, 0x01, "CFG-MSG"},
		{0x06, 0x24, "CFG-NAV5"},
		{0x06, 0x23, "CFG-NAVX5"},
		{0x06, 0x1E, "CFG-ODO"},
		{0x06, 0x93, "CFG-BATCH"},
		{0x02, 0x41, "RXM-PMREQ"},
		{0x0A, 0x04, "MON-VER"},
		{0x01, 0xFF, "UNKNOWN"},
		{0x99, 0x01, "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := FormatMessageType(tt.class, tt.id); got != tt.want {
			t.Errorf("FormatMessageType(0x%02X, 0x%02X) = %q, want %q", tt.class, tt.id, got, tt.want)
		}
	}
}

func TestFormatClass(t *testing.T) {
	if got := FormatClass(ClassCFG); got != "CFG" {
		t.Errorf("FormatClass(CFG) = %q", got)
	}
	if got := FormatClass(0x42); got != "0x42" {
		t.Errorf("FormatClass(0x42) = %q", got)
	}
}

func TestFormatHex(t *testing.T) {
	if got := FormatHex(nil); got != "  (no payload)\n" {
		t.Errorf("FormatHex(nil) = %q", got)
	}

	data := make([]byte, 17)
	data[16] = 0xAB
	got := FormatHex(data)
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("FormatHex() lines = %d, want 2: %q", len(lines), got)
	}
	if lines[1] != "  AB " {
		t.Errorf("second line = %q", lines[1])
	}
}

func TestFormatMessage(t *testing.T) {
	out := FormatMessage(NewMessage(KindUBX, ackAck))
	if !strings.Contains(out, "UBX ACK-ACK (0x05 0x01) len=2") || !strings.Contains(out, "06 01") {
		t.Errorf("FormatMessage(UBX) = %q", out)
	}

	out = FormatMessage(NewMessage(KindNMEA, tstSentence))
	if !strings.Contains(out, "NMEA GPTST GPTST,1,2") {
		t.Errorf("FormatMessage(NMEA) = %q", out)
	}

	out = FormatMessage(NewMessage(KindUnknown, []byte{0xDE, 0xAD}))
	if !strings.Contains(out, "UNKNOWN 2 bytes") || !strings.Contains(out, "DE AD") {
		t.Errorf("FormatMessage(unknown) = %q", out)
	}
}
