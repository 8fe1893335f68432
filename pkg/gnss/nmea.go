// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gnss

import (
	"strconv"
)

func isFieldEnd(b byte) bool {
	return b == NMEASeparator || b == NMEADelimiter || b == '\r' || b == '\n'
}

// FieldPos returns the offset of field ix in an NMEA sentence, or -1 if the
// field does not exist or is empty. Field 0 is the address field. The
// sentence may be a full frame or just the body.
func FieldPos(sentence []byte, ix int) int {
	pos := 0
	for ; pos < len(sentence) && ix > 0; pos++ {
		if sentence[pos] == NMEASeparator {
			ix--
		}
	}
	if ix != 0 || pos >= len(sentence) || isFieldEnd(sentence[pos]) {
		return -1
	}
	return pos
}

// Field returns the raw text of field ix
func Field(sentence []byte, ix int) (string, bool) {
	pos := FieldPos(sentence, ix)
	if pos < 0 {
		return "", false
	}
	end := pos
	for end < len(sentence) && !isFieldEnd(sentence[end]) {
		end++
	}
	return string(sentence[pos:end]), true
}

// FieldInt parses the leading integer of field ix in the given base.
// Trailing non-digits are ignored, as with strtol.
func FieldInt(sentence []byte, ix int, base int) (int64, bool) {
	s, ok := Field(sentence, ix)
	if !ok {
		return 0, false
	}
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && digitValue(s[end]) < base {
		end++
	}
	if end == start {
		return 0, false
	}
	v, err := strconv.ParseInt(s[:end], base, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FieldFloat parses field ix as a decimal number
func FieldFloat(sentence []byte, ix int) (float64, bool) {
	s, ok := Field(sentence, ix)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FieldChar returns the first non-space character of field ix
func FieldChar(sentence []byte, ix int) (byte, bool) {
	pos := FieldPos(sentence, ix)
	if pos < 0 {
		return 0, false
	}
	for pos < len(sentence) && sentence[pos] == ' ' {
		pos++
	}
	if pos >= len(sentence) || isFieldEnd(sentence[pos]) {
		return 0, false
	}
	return sentence[pos], true
}

func digitValue(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'z':
		return int(b-'a') + 10
	case b >= 'A' && b <= 'Z':
		return int(b-'A') + 10
	default:
		return 99
	}
}
