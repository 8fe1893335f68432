// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package gnss implements the framing layer of a u-blox style GNSS serial link.
//
// Two protocols share the byte stream: UBX, a binary protocol with a Fletcher-8
// checksum, and NMEA 0183, a printable-text protocol with an XOR checksum. This
// package builds and validates both frame types, classifies a mixed byte stream
// into frames and unrecognized runs, and names the common UBX messages.
// It does not interpret payload contents.
package gnss

// UBX framing bytes
const (
	UBXSync1 = 0xB5
	UBXSync2 = 0x62
)

// UBX frame layout
const (
	UBXHeaderSize   = 6 // sync1 sync2 class id lenLo lenHi
	UBXChecksumSize = 2
	UBXOverhead     = UBXHeaderSize + UBXChecksumSize
	MaxUBXPayload   = 0xFFFF
)

// NMEA framing bytes
const (
	NMEAStart     = '$'
	NMEADelimiter = '*'
	NMEASeparator = ','
	NMEAOverhead  = 6 // $ * H H \r \n
)

// UBX message classes
const (
	ClassNAV = 0x01
	ClassRXM = 0x02
	ClassINF = 0x04
	ClassACK = 0x05
	ClassCFG = 0x06
	ClassMON = 0x0A
	ClassTIM = 0x0D
	ClassLOG = 0x21
)

// UBX message ids - NAV class
const (
	IDNavStatus = 0x03
	IDNavPVT    = 0x07
	IDNavODO    = 0x09
	IDNavSAT    = 0x35
)

// UBX message ids - ACK class
const (
	IDAckNak = 0x00
	IDAckAck = 0x01
)

// UBX message ids - CFG class
const (
	IDCfgPRT   = 0x00
	IDCfgMSG   = 0x01
	IDCfgODO   = 0x1E
	IDCfgNAVX5 = 0x23
	IDCfgNAV5  = 0x24
	IDCfgBATCH = 0x93
)

// UBX message ids - other classes
const (
	IDRxmPMREQ         = 0x41
	IDMonVER           = 0x04
	IDLogRetrieveBatch = 0x10
	IDLogBatch         = 0x11
)

const hexDigits = "0123456789ABCDEF"
