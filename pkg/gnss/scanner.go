// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gnss

import (
	"encoding/binary"

	"github.com/Thermoquad/gnsslink/pkg/pipe"
)

// Kind classifies the bytes at the front of a stream
type Kind int

const (
	KindNoMatch Kind = iota
	KindNeedMoreData
	KindUBX
	KindNMEA
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNoMatch:
		return "NO_MATCH"
	case KindNeedMoreData:
		return "NEED_MORE_DATA"
	case KindUBX:
		return "UBX"
	case KindNMEA:
		return "NMEA"
	case KindUnknown:
		return "UNKNOWN"
	default:
		return "INVALID"
	}
}

// Match is the outcome of testing one frame grammar at one position
type Match struct {
	Kind        Kind
	Length      int
	BadChecksum bool // frame shape was complete but the checksum did not match
}

// Source is the read side of a byte pipe as seen by the scanner
type Source interface {
	Size() int
	Free() int
	Cursor(offset int) *pipe.Cursor
}

// Result tells the caller what to extract from the front of the source.
// For KindUBX, KindNMEA and KindUnknown the caller removes exactly Length bytes.
type Result struct {
	Kind           Kind
	Length         int
	Stalled        bool // the source is full and still holds an incomplete frame
	ChecksumErrors int  // complete frames rejected for a bad checksum
}

// MatchUBX tests for a UBX frame at the cursor, examining at most budget bytes
func MatchUBX(c *pipe.Cursor, budget int) Match {
	o := 0
	next := func() (byte, bool) {
		o++
		if o > budget {
			return 0, false
		}
		b, err := c.Next()
		return b, err == nil
	}
	wait := Match{Kind: KindNeedMoreData}
	none := Match{Kind: KindNoMatch}

	b, ok := next()
	if !ok {
		return wait
	}
	if b != UBXSync1 {
		return none
	}
	if b, ok = next(); !ok {
		return wait
	}
	if b != UBXSync2 {
		return none
	}

	var hdr [4]byte
	for i := range hdr {
		if hdr[i], ok = next(); !ok {
			return wait
		}
	}
	ckA, ckB := ChecksumUBX(hdr[:])

	length := int(binary.LittleEndian.Uint16(hdr[2:]))
	for i := 0; i < length; i++ {
		if b, ok = next(); !ok {
			return wait
		}
		ckA += b
		ckB += ckA
	}

	if b, ok = next(); !ok {
		return wait
	}
	gotA := b
	if b, ok = next(); !ok {
		return wait
	}
	if gotA != ckA || b != ckB {
		return Match{Kind: KindNoMatch, BadChecksum: true}
	}
	return Match{Kind: KindUBX, Length: o}
}

// MatchNMEA tests for an NMEA sentence at the cursor, examining at most budget bytes
func MatchNMEA(c *pipe.Cursor, budget int) Match {
	o := 0
	next := func() (byte, bool) {
		o++
		if o > budget {
			return 0, false
		}
		b, err := c.Next()
		return b, err == nil
	}
	wait := Match{Kind: KindNeedMoreData}
	none := Match{Kind: KindNoMatch}

	b, ok := next()
	if !ok {
		return wait
	}
	if b != NMEAStart {
		return none
	}

	var crc byte
	for {
		if b, ok = next(); !ok {
			return wait
		}
		if b == NMEADelimiter {
			break
		}
		if !isPrint(b) {
			return none
		}
		crc ^= b
	}

	hi, lo := HexDigits(crc)
	for _, want := range [2]byte{hi, lo} {
		if b, ok = next(); !ok {
			return wait
		}
		if b != want {
			return Match{Kind: KindNoMatch, BadChecksum: true}
		}
	}
	if b, ok = next(); !ok {
		return wait
	}
	if b != '\r' {
		return none
	}
	if b, ok = next(); !ok {
		return wait
	}
	if b != '\n' {
		return none
	}
	return Match{Kind: KindNMEA, Length: o}
}

// matchers are tried in order at every position. The start bytes are
// disjoint so at most one can succeed.
var matchers = []func(*pipe.Cursor, int) Match{MatchUBX, MatchNMEA}

// Scanner classifies the front of a byte source into frames and unknown runs
type Scanner struct {
	// SkipStalled treats an incomplete frame in a full source as garbage and
	// scans past it instead of reporting Stalled.
	SkipStalled bool
}

// Scan examines up to budget bytes from the front of src. A negative budget
// or one larger than src.Size() is clamped to src.Size(). Scan never
// consumes; the caller removes Result.Length bytes for the frame kinds.
func (s *Scanner) Scan(src Source, budget int) Result {
	size := src.Size()
	free := src.Free()
	if budget < 0 || budget > size {
		budget = size
	}

	res := Result{}
	unknown := 0
	cursor := src.Cursor(0)

	for budget > 0 {
		for _, match := range matchers {
			cursor.Reset(unknown)
			m := match(cursor, budget)
			if m.BadChecksum {
				res.ChecksumErrors++
			}

			if m.Kind == KindNeedMoreData && free == 0 {
				if s.SkipStalled {
					continue
				}
				res.Stalled = true
			}

			if m.Kind != KindNoMatch && unknown > 0 {
				res.Kind, res.Length, res.Stalled = KindUnknown, unknown, false
				return res
			}
			switch m.Kind {
			case KindNeedMoreData:
				res.Kind = KindNeedMoreData
				return res
			case KindUBX, KindNMEA:
				res.Kind, res.Length = m.Kind, m.Length
				return res
			}
		}

		unknown++
		budget--
	}

	if unknown > 0 {
		res.Kind, res.Length = KindUnknown, unknown
		return res
	}
	res.Kind = KindNeedMoreData
	return res
}
