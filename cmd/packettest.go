// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/gnsslink/pkg/gnss"
)

var (
	packetTestTimeout int
	packetTestKind    string
)

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test connection by waiting for a valid frame",
	Long: `Wait for a valid UBX frame or NMEA sentence on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any frame
that passes its checksum. Unrecognized bytes are skipped.

Use --kind ubx or --kind nmea to wait for one kind only.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error`,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
	packetTestCmd.Flags().StringVar(&packetTestKind, "kind", "any", "Frame kind to wait for (any, ubx, nmea)")
}

// kindMatcher returns a predicate for the --kind flag value
func kindMatcher(kind string) (func(*gnss.Message) bool, error) {
	switch kind {
	case "any":
		return func(m *gnss.Message) bool {
			return m.Kind == gnss.KindUBX || m.Kind == gnss.KindNMEA
		}, nil
	case "ubx":
		return func(m *gnss.Message) bool { return m.Kind == gnss.KindUBX }, nil
	case "nmea":
		return func(m *gnss.Message) bool { return m.Kind == gnss.KindNMEA }, nil
	default:
		return nil, fmt.Errorf("unknown frame kind %q (use any, ubx or nmea)", kind)
	}
}

func runPacketTest(cmd *cobra.Command, args []string) error {
	match, err := kindMatcher(packetTestKind)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	session, err := OpenSession(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer session.Close()

	fmt.Printf("gnsslink - Packet Test\n")
	fmt.Printf("Connection: %s\n", session.Info)
	fmt.Printf("Timeout: %d seconds\n", packetTestTimeout)
	fmt.Printf("Waiting for valid frame...\n\n")

	waitCtx, cancel := context.WithTimeout(ctx, time.Duration(packetTestTimeout)*time.Second)
	defer cancel()

	m, err := session.Link.Await(waitCtx, match)
	if err != nil {
		select {
		case <-session.Done():
			fmt.Fprintf(os.Stderr, "Read error: %v\n", session.Err())
			session.Close()
			os.Exit(2)
		default:
		}
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", packetTestTimeout)
		session.Close()
		os.Exit(1)
	}

	snap := session.Link.Stats.Snapshot()
	if snap.UnknownBytes > 0 {
		fmt.Printf("(skipped %d invalid bytes before sync)\n", snap.UnknownBytes)
	}
	fmt.Printf("SUCCESS: Received valid frame\n")
	fmt.Printf("  Kind: %s\n", m.Kind)
	fmt.Printf("  Name: %s\n", m.Name())
	fmt.Printf("  Length: %d bytes\n", len(m.Data))
	if m.Kind == gnss.KindUBX {
		fmt.Printf("  Class/ID: 0x%02X 0x%02X\n", m.Class(), m.ID())
	} else {
		fmt.Printf("  Talker: %s\n", m.Talker())
	}
	session.Close()
	os.Exit(0)
	return nil
}
