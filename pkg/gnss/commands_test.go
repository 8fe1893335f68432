// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gnss

import (
	"bytes"
	"testing"
)

func TestNewPoll(t *testing.T) {
	want := []byte{0xB5, 0x62, 0x0A, 0x04, 0x00, 0x00, 0x0E, 0x34}
	if got := NewPoll(ClassMON, IDMonVER); !bytes.Equal(got, want) {
		t.Errorf("NewPoll(MON-VER) = % X, want % X", got, want)
	}
}

func TestNewLogRetrieveBatch(t *testing.T) {
	want := []byte{0xB5, 0x62, 0x21, 0x10, 0x04, 0x00, 0x00, 0x01, 0x00, 0x00, 0x36, 0x93}
	if got := NewLogRetrieveBatch(true); !bytes.Equal(got, want) {
		t.Errorf("NewLogRetrieveBatch(true) = % X, want % X", got, want)
	}

	class, id, payload, err := DecodeUBX(NewLogRetrieveBatch(false))
	if err != nil {
		t.Fatalf("DecodeUBX() error = %v", err)
	}
	if class != ClassLOG || id != IDLogRetrieveBatch || payload[1] != 0x00 {
		t.Errorf("NewLogRetrieveBatch(false) = %02X %02X % X", class, id, payload)
	}
}

func TestNewMessageRate(t *testing.T) {
	want := []byte{0xB5, 0x62, 0x06, 0x01, 0x03, 0x00, 0x01, 0x07, 0x01, 0x13, 0x51}
	if got := NewMessageRate(ClassNAV, IDNavPVT, 1); !bytes.Equal(got, want) {
		t.Errorf("NewMessageRate() = % X, want % X", got, want)
	}
}

func TestIsAck(t *testing.T) {
	ack := NewMessage(KindUBX, ackAck)
	if matched, ok := IsAck(ack, ClassCFG, IDCfgMSG); !matched || !ok {
		t.Errorf("IsAck(ACK-ACK CFG-MSG) = %v, %v", matched, ok)
	}
	if matched, _ := IsAck(ack, ClassCFG, IDCfgPRT); matched {
		t.Error("IsAck() matched the wrong message")
	}

	nakFrame, _ := BuildUBX(ClassACK, IDAckNak, []byte{0x06, 0x01})
	if matched, ok := IsAck(NewMessage(KindUBX, nakFrame), ClassCFG, IDCfgMSG); !matched || ok {
		t.Errorf("IsAck(ACK-NAK) = %v, %v", matched, ok)
	}

	if matched, _ := IsAck(NewMessage(KindNMEA, tstSentence), ClassCFG, IDCfgMSG); matched {
		t.Error("IsAck() matched an NMEA sentence")
	}
}
