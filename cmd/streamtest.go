// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	streamTestDuration int
	streamTestVerbose  bool
)

var streamTestCmd = &cobra.Command{
	Use:   "stream_test",
	Short: "Test raw connection stability and throughput",
	Long: `Read raw bytes from the connection without framing them, and report
throughput and receive pipe overflow. Useful for debugging connection
stability and sizing --rx-size.

Exit codes:
  0 - Test completed normally
  1 - Connection failed during the test
  2 - Connection error`,
	RunE: runStreamTest,
}

func init() {
	rootCmd.AddCommand(streamTestCmd)
	streamTestCmd.Flags().IntVar(&streamTestDuration, "duration", 30, "Test duration in seconds")
	streamTestCmd.Flags().BoolVarP(&streamTestVerbose, "verbose", "v", false, "Print received bytes as hex")
}

func runStreamTest(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	session, err := OpenSession(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer session.Close()

	fmt.Printf("Connection Stability Test\n")
	fmt.Printf("Connection: %s\n", session.Info)
	fmt.Printf("Duration: %d seconds\n\n", streamTestDuration)

	start := time.Now()
	testCtx, cancel := context.WithTimeout(ctx, time.Duration(streamTestDuration)*time.Second)
	defer cancel()

	heartbeat := time.NewTicker(time.Second)
	defer heartbeat.Stop()

	sp := session.Pipe
	fmt.Printf("Listening for data...\n\n")

	for testCtx.Err() == nil {
		// wait for at least one byte, then take everything queued
		first, err := sp.GetBlocking(testCtx, 1)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				break
			}
			fmt.Printf("\n[%s] Connection error: %v\n",
				time.Now().Format("15:04:05.000"), session.Err())
			printStreamResults(session, time.Since(start))
			fmt.Printf("Result: FAILED (connection error)\n")
			session.Close()
			os.Exit(1)
		}
		rest, _ := sp.Get(sp.Readable())
		data := append(first, rest...)

		if streamTestVerbose {
			fmt.Printf("[%s] Received %d bytes: %x\n",
				time.Now().Format("15:04:05.000"), len(data), data)
		}

		select {
		case <-heartbeat.C:
			if !streamTestVerbose {
				c := sp.Counters()
				fmt.Printf("[%s] Still connected... %d bytes (%.0fs remaining)\n",
					time.Now().Format("15:04:05.000"), c.RxBytes, time.Until(start.Add(time.Duration(streamTestDuration)*time.Second)).Seconds())
			}
		default:
		}
	}

	printStreamResults(session, time.Since(start))
	fmt.Printf("Result: PASSED (connection stable)\n")
	return nil
}

func printStreamResults(session *Session, elapsed time.Duration) {
	c := session.Pipe.Counters()
	fmt.Printf("\n--- Test Results ---\n")
	fmt.Printf("Duration: %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Bytes received: %d\n", c.RxBytes)
	if elapsed > 0 {
		fmt.Printf("Throughput: %.1f bytes/s\n", float64(c.RxBytes)/elapsed.Seconds())
	}
	fmt.Printf("Overflow: %d bytes\n", c.Overflow)
}
