// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gnss

import (
	"encoding/binary"
	"fmt"
)

// BuildUBX creates a complete UBX frame ready for transmission:
// B5 62 class id lenLo lenHi payload ckA ckB
func BuildUBX(class, id byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxUBXPayload {
		return nil, fmt.Errorf("UBX payload too large: %d bytes (max %d)", len(payload), MaxUBXPayload)
	}

	frame := make([]byte, 0, len(payload)+UBXOverhead)
	frame = append(frame, UBXSync1, UBXSync2, class, id)
	frame = binary.LittleEndian.AppendUint16(frame, uint16(len(payload)))
	frame = append(frame, payload...)

	// Checksum covers everything after the sync bytes
	ckA, ckB := ChecksumUBX(frame[2:])
	return append(frame, ckA, ckB), nil
}

// BuildNMEA wraps body as $body*HH\r\n. The body must be printable and must
// not contain the '*' delimiter.
func BuildNMEA(body []byte) ([]byte, error) {
	if err := validateNMEABody(body); err != nil {
		return nil, err
	}
	hi, lo := HexDigits(ChecksumNMEA(body))
	return appendNMEA(body, hi, lo), nil
}

// BuildNMEALegacy wraps body with the checksum digits produced by older
// firmware senders, which compared instead of shifting when extracting the
// nibbles. The high digit is always '0' and the low digit is '1' for any
// non-zero checksum. Receivers validating checksums reject most of these
// frames; use only when talking to a peer that expects them.
func BuildNMEALegacy(body []byte) ([]byte, error) {
	if err := validateNMEABody(body); err != nil {
		return nil, err
	}
	lo := byte('0')
	if ChecksumNMEA(body) != 0 {
		lo = '1'
	}
	return appendNMEA(body, '0', lo), nil
}

func appendNMEA(body []byte, hi, lo byte) []byte {
	frame := make([]byte, 0, len(body)+NMEAOverhead)
	frame = append(frame, NMEAStart)
	frame = append(frame, body...)
	return append(frame, NMEADelimiter, hi, lo, '\r', '\n')
}

func validateNMEABody(body []byte) error {
	for i, b := range body {
		if b == NMEADelimiter {
			return fmt.Errorf("%w: '*' at offset %d", ErrInvalidBody, i)
		}
		if !isPrint(b) {
			return fmt.Errorf("%w: non-printable byte 0x%02X at offset %d", ErrInvalidBody, b, i)
		}
	}
	return nil
}
