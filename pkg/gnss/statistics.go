// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gnss

import (
	"fmt"
	"sync"
	"time"
)

// Snapshot is a point-in-time copy of the link statistics
type Snapshot struct {
	StartTime time.Time `json:"start_time"`

	Messages       uint64            `json:"messages"`
	UBXFrames      uint64            `json:"ubx_frames"`
	NMEASentences  uint64            `json:"nmea_sentences"`
	UnknownRuns    uint64            `json:"unknown_runs"`
	UnknownBytes   uint64            `json:"unknown_bytes"`
	ChecksumErrors uint64            `json:"checksum_errors"`
	Stalls         uint64            `json:"stalls"`
	OverflowBytes  uint64            `json:"overflow_bytes"`
	ByName         map[string]uint64 `json:"by_name"`

	MessageRate float64 `json:"message_rate"` // messages/sec
	ErrorRate   float64 `json:"error_rate"`   // errors/sec
}

// Statistics tracks scan results and error rates. It is safe for
// concurrent use.
type Statistics struct {
	mu sync.Mutex
	s  Snapshot
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	st := &Statistics{}
	st.Reset()
	return st
}

// Update counts one scan result
func (st *Statistics) Update(res Result) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.s.ChecksumErrors += uint64(res.ChecksumErrors)
	if res.Stalled {
		st.s.Stalls++
	}

	switch res.Kind {
	case KindUBX:
		st.s.Messages++
		st.s.UBXFrames++
	case KindNMEA:
		st.s.Messages++
		st.s.NMEASentences++
	case KindUnknown:
		st.s.Messages++
		st.s.UnknownRuns++
		st.s.UnknownBytes += uint64(res.Length)
	}
}

// CountMessage counts a delivered message under its name
func (st *Statistics) CountMessage(m *Message) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.ByName[m.Name()]++
}

// AddOverflow counts bytes lost because the receive pipe was full
func (st *Statistics) AddOverflow(n uint64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.OverflowBytes += n
}

func (st *Statistics) calculateRates() {
	elapsed := time.Since(st.s.StartTime).Seconds()
	if elapsed > 0 {
		st.s.MessageRate = float64(st.s.Messages) / elapsed
		errorCount := st.s.ChecksumErrors + st.s.UnknownRuns + st.s.Stalls
		st.s.ErrorRate = float64(errorCount) / elapsed
	}
}

// CalculateRates recalculates message and error rates
func (st *Statistics) CalculateRates() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.calculateRates()
}

// Snapshot returns a copy of the current counters with fresh rates
func (st *Statistics) Snapshot() Snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.calculateRates()

	snap := st.s
	snap.ByName = make(map[string]uint64, len(st.s.ByName))
	for k, v := range st.s.ByName {
		snap.ByName[k] = v
	}
	return snap
}

// String returns a formatted statistics summary
func (st *Statistics) String() string {
	s := st.Snapshot()

	var ubxPercent, nmeaPercent, unknownPercent float64
	if s.Messages > 0 {
		ubxPercent = float64(s.UBXFrames) * 100.0 / float64(s.Messages)
		nmeaPercent = float64(s.NMEASentences) * 100.0 / float64(s.Messages)
		unknownPercent = float64(s.UnknownRuns) * 100.0 / float64(s.Messages)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Messages:  %8d\n", s.Messages)
	result += fmt.Sprintf("UBX Frames:      %8d (%.1f%%)\n", s.UBXFrames, ubxPercent)
	result += fmt.Sprintf("NMEA Sentences:  %8d (%.1f%%)\n", s.NMEASentences, nmeaPercent)

	if s.UnknownRuns > 0 {
		result += fmt.Sprintf("Unknown Runs:    %8d (%.1f%%)\n", s.UnknownRuns, unknownPercent)
		result += fmt.Sprintf("  Unknown Bytes:    %5d\n", s.UnknownBytes)
	}
	if s.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d\n", s.ChecksumErrors)
	}
	if s.Stalls > 0 {
		result += fmt.Sprintf("Stalls:          %8d\n", s.Stalls)
	}
	if s.OverflowBytes > 0 {
		result += fmt.Sprintf("Overflow Bytes:  %8d\n", s.OverflowBytes)
	}

	result += fmt.Sprintf("Message Rate:    %8.1f msgs/sec\n", s.MessageRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (st *Statistics) Reset() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s = Snapshot{
		StartTime: time.Now(),
		ByName:    make(map[string]uint64),
	}
}
