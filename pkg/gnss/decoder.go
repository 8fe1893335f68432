// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gnss

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Frame validation errors
var (
	ErrShortFrame     = errors.New("frame too short")
	ErrBadSync        = errors.New("bad sync")
	ErrLengthMismatch = errors.New("length mismatch")
	ErrChecksum       = errors.New("checksum mismatch")
	ErrInvalidBody    = errors.New("invalid NMEA body")
)

// DecodeUBX validates a complete UBX frame and returns its fields.
// The payload aliases frame.
func DecodeUBX(frame []byte) (class, id byte, payload []byte, err error) {
	if len(frame) < UBXOverhead {
		return 0, 0, nil, fmt.Errorf("UBX: %w: %d bytes", ErrShortFrame, len(frame))
	}
	if frame[0] != UBXSync1 || frame[1] != UBXSync2 {
		return 0, 0, nil, fmt.Errorf("UBX: %w: %02X %02X", ErrBadSync, frame[0], frame[1])
	}

	length := int(binary.LittleEndian.Uint16(frame[4:6]))
	if len(frame) != length+UBXOverhead {
		return 0, 0, nil, fmt.Errorf("UBX: %w: header says %d payload bytes, frame has %d",
			ErrLengthMismatch, length, len(frame)-UBXOverhead)
	}

	end := UBXHeaderSize + length
	ckA, ckB := ChecksumUBX(frame[2:end])
	if ckA != frame[end] || ckB != frame[end+1] {
		return 0, 0, nil, fmt.Errorf("UBX: %w: expected %02X %02X, got %02X %02X",
			ErrChecksum, ckA, ckB, frame[end], frame[end+1])
	}

	return frame[2], frame[3], frame[UBXHeaderSize:end], nil
}

// DecodeNMEA validates a complete NMEA frame and returns the body between
// '$' and '*'. The body aliases frame.
func DecodeNMEA(frame []byte) ([]byte, error) {
	if len(frame) < NMEAOverhead {
		return nil, fmt.Errorf("NMEA: %w: %d bytes", ErrShortFrame, len(frame))
	}
	if frame[0] != NMEAStart {
		return nil, fmt.Errorf("NMEA: %w: 0x%02X", ErrBadSync, frame[0])
	}

	n := len(frame)
	if frame[n-5] != NMEADelimiter || frame[n-2] != '\r' || frame[n-1] != '\n' {
		return nil, fmt.Errorf("NMEA: %w: bad trailer", ErrLengthMismatch)
	}

	body := frame[1 : n-5]
	if err := validateNMEABody(body); err != nil {
		return nil, fmt.Errorf("NMEA: %w", err)
	}

	hi, lo := HexDigits(ChecksumNMEA(body))
	if frame[n-4] != hi || frame[n-3] != lo {
		return nil, fmt.Errorf("NMEA: %w: expected %c%c, got %c%c",
			ErrChecksum, hi, lo, frame[n-4], frame[n-3])
	}
	return body, nil
}
