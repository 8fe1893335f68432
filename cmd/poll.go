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
	pollClass   uint8
	pollID      uint8
	pollTimeout int
	pollCount   int
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Poll a UBX message and wait for the reply",
	Long: `Send an empty-payload UBX poll request and wait for the receiver to answer
with the same class and id, or to reject it with ACK-NAK.

The default polls MON-VER, which every u-blox receiver answers.

This is useful for verifying:
  - The connection carries traffic in both directions
  - The receiver speaks UBX on this port
  - Round trip latency through bridges

Exit codes:
  0 - All polls answered
  1 - One or more polls rejected or timed out
  2 - Connection error`,
	RunE: runPoll,
}

func init() {
	rootCmd.AddCommand(pollCmd)
	pollCmd.Flags().Uint8Var(&pollClass, "class", gnss.ClassMON, "UBX message class (e.g. 0x0A)")
	pollCmd.Flags().Uint8Var(&pollID, "id", gnss.IDMonVER, "UBX message id (e.g. 0x04)")
	pollCmd.Flags().IntVar(&pollTimeout, "timeout", 5, "Timeout in seconds for each poll")
	pollCmd.Flags().IntVar(&pollCount, "count", 1, "Number of polls to send")
}

// pollReply matches the answer to a poll of class and id, or its rejection
func pollReply(class, id byte) func(*gnss.Message) bool {
	return func(m *gnss.Message) bool {
		if matched, ack := gnss.IsAck(m, class, id); matched && !ack {
			return true
		}
		return m.Kind == gnss.KindUBX && m.Class() == class && m.ID() == id
	}
}

func runPoll(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	session, err := OpenSession(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer session.Close()

	name := gnss.FormatMessageType(pollClass, pollID)
	fmt.Printf("gnsslink - Poll %s (0x%02X 0x%02X)\n", name, pollClass, pollID)
	fmt.Printf("Connection: %s\n", session.Info)
	fmt.Printf("Timeout: %d seconds per poll\n", pollTimeout)
	fmt.Printf("Count: %d polls\n\n", pollCount)

	successCount := 0
	failCount := 0

	for i := 1; i <= pollCount; i++ {
		fmt.Printf("Poll %d/%d: ", i, pollCount)

		pollCtx, cancel := context.WithTimeout(ctx, time.Duration(pollTimeout)*time.Second)
		startTime := time.Now()
		if _, err := session.Link.Poll(pollCtx, pollClass, pollID); err != nil {
			cancel()
			fmt.Printf("SEND FAILED: %v\n", err)
			failCount++
			continue
		}

		reply, err := session.Link.Await(pollCtx, pollReply(pollClass, pollID))
		cancel()
		switch {
		case err != nil:
			fmt.Printf("TIMEOUT (no response in %ds)\n", pollTimeout)
			failCount++
		case reply.Class() == gnss.ClassACK:
			fmt.Printf("NAK after %v\n", time.Since(startTime).Round(time.Millisecond))
			failCount++
		default:
			fmt.Printf("reply %d bytes, rtt=%v\n", len(reply.Payload()), time.Since(startTime).Round(time.Millisecond))
			fmt.Print(gnss.FormatHex(reply.Payload()))
			successCount++
		}

		select {
		case <-session.Done():
			fmt.Fprintf(os.Stderr, "Connection error: %v\n", session.Err())
			session.Close()
			os.Exit(2)
		default:
		}

		if i < pollCount {
			time.Sleep(100 * time.Millisecond)
		}
	}

	fmt.Printf("\n--- Poll statistics ---\n")
	fmt.Printf("%d polls sent, %d replies received, %.0f%% loss\n",
		pollCount, successCount, float64(failCount)/float64(pollCount)*100)

	if failCount > 0 {
		session.Close()
		os.Exit(1)
	}
	return nil
}
