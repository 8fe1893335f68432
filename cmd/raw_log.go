// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/gnsslink/pkg/gnss"
)

var rawLogShowUnknown bool

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display received frames in human-readable format",
	Long: `Continuously split the receiver stream into UBX frames and NMEA sentences
and display each one with its timestamp, type and contents.

Runs of bytes that are neither are shown as UNKNOWN with --unknown.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&rawLogShowUnknown, "unknown", false, "Also show unrecognized bytes")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	session, err := OpenSession(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	fmt.Printf("gnsslink - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", session.Info)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	for {
		m, err := session.Next()
		if errors.Is(err, io.EOF) {
			return stopReason(session)
		}
		if err != nil {
			return err
		}
		if m.Kind == gnss.KindUnknown && !rawLogShowUnknown {
			continue
		}
		fmt.Print(gnss.FormatMessage(m))
	}
}
