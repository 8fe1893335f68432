// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/gnsslink/pkg/capture"
)

var (
	recordOutput   string
	recordDuration time.Duration
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record classified traffic to a capture file",
	Long: `Record every UBX frame, NMEA sentence and unrecognized run to a CBOR
capture file, with its receive time. Use replay to inspect the file later.`,
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().StringVarP(&recordOutput, "output", "o", "", "Capture file to write")
	recordCmd.Flags().DurationVar(&recordDuration, "duration", 0, "Stop after this long (0 records until interrupted)")
	recordCmd.MarkFlagRequired("output")
}

func runRecord(cmd *cobra.Command, args []string) error {
	f, err := os.Create(recordOutput)
	if err != nil {
		return fmt.Errorf("failed to create capture file: %w", err)
	}
	defer f.Close()

	ctx, stop := signalContext()
	defer stop()

	session, err := OpenSession(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	if recordDuration > 0 {
		timer := time.AfterFunc(recordDuration, func() { session.Close() })
		defer timer.Stop()
	}

	fmt.Fprintf(os.Stderr, "Recording %s to %s\n", session.Info, recordOutput)

	w := capture.NewWriter(f)
	count := 0
	lastFlush := time.Now()

	for {
		m, err := session.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			w.Flush()
			return err
		}
		if err := w.WriteMessage(m); err != nil {
			return err
		}
		count++

		if time.Since(lastFlush) > time.Second {
			if err := w.Flush(); err != nil {
				return fmt.Errorf("failed to write capture file: %w", err)
			}
			lastFlush = time.Now()
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write capture file: %w", err)
	}
	log.WithFields(log.Fields{
		"records": count,
		"file":    recordOutput,
	}).Info("recording finished")
	fmt.Fprint(os.Stderr, session.Link.Stats.String())
	return stopReason(session)
}
