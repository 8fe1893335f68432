// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture stores classified link traffic as a sequence of CBOR
// records so a session can be replayed or inspected later.
package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/Thermoquad/gnsslink/pkg/gnss"
)

// Record is one captured message. Keys are encoded as small integers.
type Record struct {
	Time time.Time `cbor:"0,keyasint"`
	Kind gnss.Kind `cbor:"1,keyasint"`
	Data []byte    `cbor:"2,keyasint"`
}

// RecordFromMessage converts a link message into a capture record
func RecordFromMessage(m *gnss.Message) Record {
	return Record{
		Time: m.Timestamp,
		Kind: m.Kind,
		Data: m.Data,
	}
}

// Message converts the record back into a link message
func (r Record) Message() *gnss.Message {
	return &gnss.Message{
		Kind:      r.Kind,
		Data:      r.Data,
		Timestamp: r.Time,
	}
}

var encMode = func() cbor.EncMode {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	mode, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("capture: cbor encode options: %v", err))
	}
	return mode
}()

// Writer appends records to a stream
type Writer struct {
	bw  *bufio.Writer
	enc *cbor.Encoder
}

// NewWriter creates a record writer. Call Flush before closing w.
func NewWriter(w io.Writer) *Writer {
	bw := bufio.NewWriter(w)
	return &Writer{bw: bw, enc: encMode.NewEncoder(bw)}
}

// Write encodes one record
func (w *Writer) Write(rec Record) error {
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	return nil
}

// WriteMessage encodes a link message
func (w *Writer) WriteMessage(m *gnss.Message) error {
	return w.Write(RecordFromMessage(m))
}

// Flush writes buffered records to the underlying stream
func (w *Writer) Flush() error {
	return w.bw.Flush()
}

// Reader reads records from a stream
type Reader struct {
	dec *cbor.Decoder
}

// NewReader creates a record reader
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: cbor.NewDecoder(r)}
}

// Next returns the next record, or io.EOF at the end of the stream
func (r *Reader) Next() (*Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return &rec, nil
}
