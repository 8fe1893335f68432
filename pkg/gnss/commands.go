// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gnss

// Frame builder functions return complete UBX frames ready for sending.
// They only lay out bytes; no receiver configuration is implied.

// NewPoll creates an empty-payload UBX frame, which u-blox receivers treat
// as a poll request for that message.
func NewPoll(class, id byte) []byte {
	frame, _ := BuildUBX(class, id, nil)
	return frame
}

// NewLogRetrieveBatch creates a LOG-RETRIEVEBATCH request (0x21 0x10).
// When sendMonFirst is set the receiver sends MON-BATCH before the data.
func NewLogRetrieveBatch(sendMonFirst bool) []byte {
	payload := []byte{0x00, 0x00, 0x00, 0x00}
	if sendMonFirst {
		payload[1] = 0x01
	}
	frame, _ := BuildUBX(ClassLOG, IDLogRetrieveBatch, payload)
	return frame
}

// NewMessageRate creates a CFG-MSG frame (0x06 0x01) setting the output
// rate of one message on the current port. Rate 0 disables the message.
func NewMessageRate(class, id, rate byte) []byte {
	frame, _ := BuildUBX(ClassCFG, IDCfgMSG, []byte{class, id, rate})
	return frame
}

// IsAck reports whether m acknowledges (ack=true) or rejects (ack=false)
// the message identified by class and id
func IsAck(m *Message, class, id byte) (matched, ack bool) {
	if m.Kind != KindUBX || m.Class() != ClassACK {
		return false, false
	}
	p := m.Payload()
	if len(p) < 2 || p[0] != class || p[1] != id {
		return false, false
	}
	return true, m.ID() == IDAckAck
}
