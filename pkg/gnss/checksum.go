// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gnss

// ChecksumUBX computes the 8-bit Fletcher checksum used by UBX frames.
// data covers class, id, both length bytes and the payload.
func ChecksumUBX(data []byte) (ckA, ckB byte) {
	for _, b := range data {
		ckA += b
		ckB += ckA
	}
	return ckA, ckB
}

// ChecksumNMEA computes the XOR of every byte between '$' and '*'
func ChecksumNMEA(body []byte) byte {
	var c byte
	for _, b := range body {
		c ^= b
	}
	return c
}

// HexDigits returns the upper-case hex digits of c, high nibble first
func HexDigits(c byte) (hi, lo byte) {
	return hexDigits[c>>4], hexDigits[c&0x0F]
}

// isPrint matches the C locale isprint: 0x20 through 0x7E
func isPrint(b byte) bool {
	return b >= 0x20 && b <= 0x7E
}
