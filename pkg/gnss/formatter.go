// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gnss

import (
	"fmt"
	"strings"
)

// FormatMessage formats a message into a human-readable string
func FormatMessage(m *Message) string {
	timestamp := m.Timestamp.Format("15:04:05.000")

	switch m.Kind {
	case KindUBX:
		return fmt.Sprintf("[%s] UBX %s (0x%02X 0x%02X) len=%d\n%s",
			timestamp, FormatMessageType(m.Class(), m.ID()), m.Class(), m.ID(),
			len(m.Payload()), FormatHex(m.Payload()))
	case KindNMEA:
		return fmt.Sprintf("[%s] NMEA %s %s\n", timestamp, m.Address(), m.Body())
	default:
		return fmt.Sprintf("[%s] %s %d bytes\n%s", timestamp, m.Kind, len(m.Data), FormatHex(m.Data))
	}
}

// FormatMessageType returns the human-readable name for a UBX class and id
func FormatMessageType(class, id byte) string {
	switch class {
	case ClassNAV:
		switch id {
		case IDNavStatus:
			return "NAV-STATUS"
		case IDNavPVT:
			return "NAV-PVT"
		case IDNavODO:
			return "NAV-ODO"
		case IDNavSAT:
			return "NAV-SAT"
		}

	case ClassACK:
		switch id {
		case IDAckAck:
			return "ACK-ACK"
		case IDAckNak:
			return "ACK-NAK"
		}

	case ClassCFG:
		switch id {
		case IDCfgPRT:
			return "CFG-PRT"
		case IDCfgMSG:
			return "CFG-MSG"
		case IDCfgNAV5:
			return "CFG-NAV5"
		case IDCfgNAVX5:
			return "CFG-NAVX5"
		case IDCfgODO:
			return "CFG-ODO"
		case IDCfgBATCH:
			return "CFG-BATCH"
		}

	case ClassLOG:
		switch id {
		case IDLogBatch:
			return "LOG-BATCH"
		case IDLogRetrieveBatch:
			return "LOG-RETRIEVEBATCH"
		}

	case ClassRXM:
		if id == IDRxmPMREQ {
			return "RXM-PMREQ"
		}

	case ClassMON:
		if id == IDMonVER {
			return "MON-VER"
		}
	}
	return "UNKNOWN"
}

// FormatClass returns the name of a UBX message class
func FormatClass(class byte) string {
	switch class {
	case ClassNAV:
		return "NAV"
	case ClassRXM:
		return "RXM"
	case ClassINF:
		return "INF"
	case ClassACK:
		return "ACK"
	case ClassCFG:
		return "CFG"
	case ClassMON:
		return "MON"
	case ClassTIM:
		return "TIM"
	case ClassLOG:
		return "LOG"
	default:
		return fmt.Sprintf("0x%02X", class)
	}
}

// FormatHex renders data as an indented hex dump, 16 bytes per line
func FormatHex(data []byte) string {
	if len(data) == 0 {
		return "  (no payload)\n"
	}
	var sb strings.Builder
	for i, b := range data {
		if i%16 == 0 {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString("  ")
		}
		fmt.Fprintf(&sb, "%02X ", b)
	}
	sb.WriteString("\n")
	return sb.String()
}
