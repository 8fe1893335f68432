// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gnss

import (
	"bytes"
	"testing"

	"github.com/Thermoquad/gnsslink/pkg/pipe"
)

var (
	navStatusPoll = []byte{0xB5, 0x62, 0x01, 0x03, 0x00, 0x00, 0x04, 0x0D}
	ackAck        = []byte{0xB5, 0x62, 0x05, 0x01, 0x02, 0x00, 0x06, 0x01, 0x0F, 0x38}
	tstSentence   = []byte("$GPTST,1,2*47\r\n")
)

type chunk struct {
	kind Kind
	data []byte
}

func newPipeWith(t *testing.T, capacity int, data ...[]byte) *pipe.Pipe {
	t.Helper()
	p := pipe.New(capacity)
	for _, d := range data {
		if n := p.Put(d); n != len(d) {
			t.Fatalf("Put() = %d, want %d", n, len(d))
		}
	}
	return p
}

// drain scans and extracts until the scanner asks for more data
func drain(t *testing.T, s *Scanner, p *pipe.Pipe) ([]chunk, Result) {
	t.Helper()
	var out []chunk
	for i := 0; ; i++ {
		if i > 100000 {
			t.Fatal("scanner made no progress")
		}
		res := s.Scan(p, -1)
		if res.Kind == KindNeedMoreData {
			return out, res
		}
		if res.Length <= 0 {
			t.Fatalf("Scan() returned %s with length %d", res.Kind, res.Length)
		}
		data, err := p.Get(res.Length)
		if err != nil {
			t.Fatalf("Get(%d) error = %v", res.Length, err)
		}
		out = append(out, chunk{res.Kind, data})
	}
}

func TestScanSingleFrames(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		kind Kind
	}{
		{"NAV-STATUS poll", navStatusPoll, KindUBX},
		{"ACK-ACK", ackAck, KindUBX},
		{"GPTST", tstSentence, KindNMEA},
		{"empty body sentence", []byte("$*00\r\n"), KindNMEA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Scanner{}
			p := newPipeWith(t, 64, tt.data)
			res := s.Scan(p, -1)
			if res.Kind != tt.kind || res.Length != len(tt.data) {
				t.Errorf("Scan() = %s/%d, want %s/%d", res.Kind, res.Length, tt.kind, len(tt.data))
			}
			if p.Size() != len(tt.data) {
				t.Errorf("Scan() consumed bytes: size = %d", p.Size())
			}
		})
	}
}

func TestScanEmpty(t *testing.T) {
	s := &Scanner{}
	res := s.Scan(pipe.New(16), -1)
	if res.Kind != KindNeedMoreData || res.Stalled {
		t.Errorf("Scan() on empty pipe = %+v", res)
	}
}

func TestScanUnknownBeforeFrame(t *testing.T) {
	s := &Scanner{}
	p := newPipeWith(t, 128, []byte("noise"), navStatusPoll, tstSentence)

	chunks, res := drain(t, s, p)
	want := []chunk{
		{KindUnknown, []byte("noise")},
		{KindUBX, navStatusPoll},
		{KindNMEA, tstSentence},
	}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(chunks), len(want))
	}
	for i := range want {
		if chunks[i].kind != want[i].kind || !bytes.Equal(chunks[i].data, want[i].data) {
			t.Errorf("chunk %d = %s %q, want %s %q", i, chunks[i].kind, chunks[i].data, want[i].kind, want[i].data)
		}
	}
	if res.Stalled {
		t.Error("empty pipe reported as stalled")
	}
}

func TestScanTrailingNoise(t *testing.T) {
	s := &Scanner{}
	p := newPipeWith(t, 64, []byte{0x00, 0x11, 0x22})

	res := s.Scan(p, -1)
	if res.Kind != KindUnknown || res.Length != 3 {
		t.Errorf("Scan() = %s/%d, want UNKNOWN/3", res.Kind, res.Length)
	}
}

func TestScanUnknownBeforePartialFrame(t *testing.T) {
	s := &Scanner{}
	p := newPipeWith(t, 64, []byte("ab$GP"))

	res := s.Scan(p, -1)
	if res.Kind != KindUnknown || res.Length != 2 {
		t.Fatalf("Scan() = %s/%d, want UNKNOWN/2", res.Kind, res.Length)
	}
	p.Get(2)

	res = s.Scan(p, -1)
	if res.Kind != KindNeedMoreData || res.Stalled {
		t.Errorf("Scan() = %+v, want waiting", res)
	}
}

func TestScanIncrementalArrival(t *testing.T) {
	s := &Scanner{}
	p := pipe.New(64)

	for i, b := range ackAck {
		res := s.Scan(p, -1)
		if res.Kind != KindNeedMoreData {
			t.Fatalf("after %d bytes Scan() = %s, want NEED_MORE_DATA", i, res.Kind)
		}
		p.PutByte(b)
	}

	res := s.Scan(p, -1)
	if res.Kind != KindUBX || res.Length != len(ackAck) {
		t.Errorf("Scan() = %s/%d, want UBX/%d", res.Kind, res.Length, len(ackAck))
	}
}

func TestScanBudget(t *testing.T) {
	s := &Scanner{}
	p := newPipeWith(t, 64, ackAck)

	res := s.Scan(p, 5)
	if res.Kind != KindNeedMoreData {
		t.Errorf("Scan(budget=5) = %s, want NEED_MORE_DATA", res.Kind)
	}

	res = s.Scan(p, 100)
	if res.Kind != KindUBX || res.Length != len(ackAck) {
		t.Errorf("Scan(budget=100) = %s/%d", res.Kind, res.Length)
	}

	res = s.Scan(p, 0)
	if res.Kind != KindNeedMoreData {
		t.Errorf("Scan(budget=0) = %s, want NEED_MORE_DATA", res.Kind)
	}
}

func TestScanBadChecksumResyncs(t *testing.T) {
	badUBX := append([]byte{}, navStatusPoll...)
	badUBX[7] ^= 0x01
	badNMEA := []byte("$GPTST,1,2*48\r\n")

	tests := []struct {
		name string
		bad  []byte
	}{
		{"UBX", badUBX},
		{"NMEA", badNMEA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Scanner{}
			p := newPipeWith(t, 128, tt.bad, navStatusPoll)

			res := s.Scan(p, -1)
			if res.Kind != KindUnknown {
				t.Fatalf("Scan() = %s, want UNKNOWN", res.Kind)
			}
			if res.ChecksumErrors != 1 {
				t.Errorf("ChecksumErrors = %d, want 1", res.ChecksumErrors)
			}

			chunks, _ := drain(t, s, p)
			if len(chunks) != 2 {
				t.Fatalf("got %d chunks, want 2", len(chunks))
			}
			if chunks[0].kind != KindUnknown || !bytes.Equal(chunks[0].data, tt.bad) {
				t.Errorf("chunk 0 = %s % X, want UNKNOWN % X", chunks[0].kind, chunks[0].data, tt.bad)
			}
			if chunks[1].kind != KindUBX || !bytes.Equal(chunks[1].data, navStatusPoll) {
				t.Errorf("chunk 1 = %s % X", chunks[1].kind, chunks[1].data)
			}
		})
	}
}

func TestScanRejectsNonPrintableNMEA(t *testing.T) {
	s := &Scanner{}
	p := newPipeWith(t, 64, []byte("$GP\x01TST*00\r\n"))

	res := s.Scan(p, -1)
	if res.Kind != KindUnknown || res.Length != p.Size() {
		t.Errorf("Scan() = %s/%d, want UNKNOWN/%d", res.Kind, res.Length, p.Size())
	}
}

func TestScanLegacyDigitsRejected(t *testing.T) {
	frame, err := BuildNMEALegacy([]byte("GPTST,1,2"))
	if err != nil {
		t.Fatalf("BuildNMEALegacy() error = %v", err)
	}

	s := &Scanner{}
	p := newPipeWith(t, 64, frame)
	res := s.Scan(p, -1)
	if res.Kind != KindUnknown || res.ChecksumErrors != 1 {
		t.Errorf("Scan() = %+v, want UNKNOWN with one checksum error", res)
	}
}

// ============================================================
// Stall handling
// ============================================================

func TestScanStalled(t *testing.T) {
	// Declared payload of 0x40 bytes cannot fit in a 16 byte pipe
	header := []byte{0xB5, 0x62, 0x01, 0x07, 0x40, 0x00}
	fill := bytes.Repeat([]byte{0xAA}, 10)

	s := &Scanner{}
	p := newPipeWith(t, 16, header, fill)
	if p.Free() != 0 {
		t.Fatalf("pipe not full: free = %d", p.Free())
	}

	res := s.Scan(p, -1)
	if res.Kind != KindNeedMoreData || !res.Stalled {
		t.Errorf("Scan() = %+v, want stalled NEED_MORE_DATA", res)
	}
	if p.Size() != 16 {
		t.Errorf("Scan() consumed bytes")
	}
}

func TestScanSkipStalled(t *testing.T) {
	header := []byte{0xB5, 0x62, 0x01, 0x07, 0x40, 0x00}
	fill := bytes.Repeat([]byte{0xAA}, 10)

	s := &Scanner{SkipStalled: true}
	p := newPipeWith(t, 16, header, fill)

	res := s.Scan(p, -1)
	if res.Kind != KindUnknown || res.Length != 16 || res.Stalled {
		t.Errorf("Scan() = %+v, want UNKNOWN/16", res)
	}
}

func TestScanStalledAfterUnknown(t *testing.T) {
	s := &Scanner{}
	p := newPipeWith(t, 8, []byte{0x00, 0x01}, []byte{0xB5, 0x62, 0x01, 0x07, 0x40, 0x00})

	res := s.Scan(p, -1)
	if res.Kind != KindUnknown || res.Length != 2 || res.Stalled {
		t.Errorf("Scan() = %+v, want UNKNOWN/2 not stalled", res)
	}
}

// ============================================================
// Corruption
// ============================================================

func TestScanSingleByteCorruption(t *testing.T) {
	for _, frame := range [][]byte{navStatusPoll, ackAck} {
		for pos := range frame {
			for flip := 1; flip < 256; flip++ {
				corrupt := append([]byte{}, frame...)
				corrupt[pos] ^= byte(flip)

				s := &Scanner{}
				p := newPipeWith(t, 512, corrupt)
				chunks, _ := drain(t, s, p)
				for _, c := range chunks {
					if c.kind == KindUBX {
						t.Fatalf("pos %d flip %02X: corrupted frame % X accepted as % X", pos, flip, corrupt, c.data)
					}
				}
			}
		}
	}
}
