// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/gnsslink/pkg/gnss"
)

var (
	sendClass   uint8
	sendID      uint8
	sendPayload string
	sendWaitAck bool
	sendTimeout int

	sendLegacy bool

	rateClass uint8
	rateID    uint8
	rateValue uint8

	batchMonFirst bool
	batchIdle     int
)

var sendUBXCmd = &cobra.Command{
	Use:   "send_ubx",
	Short: "Send one UBX frame",
	Long: `Build a UBX frame from --class, --id and a hex --payload and send it.

With --wait-ack the command waits for ACK-ACK or ACK-NAK, as sent by the
receiver in answer to CFG messages.`,
	Example: `  gnsslink send_ubx -p /dev/ttyACM0 --class 0x06 --id 0x01 --payload F00500 --wait-ack`,
	RunE:    runSendUBX,
}

var sendNMEACmd = &cobra.Command{
	Use:   "send_nmea BODY",
	Short: "Send one NMEA sentence",
	Long: `Wrap BODY as $BODY*HH<CR><LF> and send it. BODY must be printable ASCII
without '*'.

--legacy sends the checksum digits produced by older firmware, which only
tell zero and non-zero checksums apart. Use it only with peers that expect it.`,
	Example: `  gnsslink send_nmea -p /dev/ttyACM0 'PUBX,40,GLL,0,0,0,0,0,0'`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSendNMEA,
}

var setRateCmd = &cobra.Command{
	Use:   "set_rate",
	Short: "Set the output rate of a message with CFG-MSG",
	Long: `Send CFG-MSG for --class and --id with --rate and wait for the receiver to
acknowledge it. Rate 0 disables the message on the current port.`,
	RunE: runSetRate,
}

var logBatchCmd = &cobra.Command{
	Use:   "log_batch",
	Short: "Retrieve batched fixes with LOG-RETRIEVEBATCH",
	Long: `Request the receiver's batch buffer and print every LOG-BATCH frame that
follows. The command ends once no LOG-BATCH frame arrives for --idle seconds.`,
	RunE: runLogBatch,
}

func init() {
	rootCmd.AddCommand(sendUBXCmd)
	sendUBXCmd.Flags().Uint8Var(&sendClass, "class", 0, "UBX message class (e.g. 0x06)")
	sendUBXCmd.Flags().Uint8Var(&sendID, "id", 0, "UBX message id (e.g. 0x01)")
	sendUBXCmd.Flags().StringVar(&sendPayload, "payload", "", "Payload as hex bytes")
	sendUBXCmd.Flags().BoolVar(&sendWaitAck, "wait-ack", false, "Wait for ACK-ACK or ACK-NAK")
	sendUBXCmd.Flags().IntVar(&sendTimeout, "timeout", 5, "Timeout in seconds")
	sendUBXCmd.MarkFlagRequired("class")
	sendUBXCmd.MarkFlagRequired("id")

	rootCmd.AddCommand(sendNMEACmd)
	sendNMEACmd.Flags().BoolVar(&sendLegacy, "legacy", false, "Send legacy checksum digits")
	sendNMEACmd.Flags().IntVar(&sendTimeout, "timeout", 5, "Timeout in seconds")

	rootCmd.AddCommand(setRateCmd)
	setRateCmd.Flags().Uint8Var(&rateClass, "class", 0, "UBX message class")
	setRateCmd.Flags().Uint8Var(&rateID, "id", 0, "UBX message id")
	setRateCmd.Flags().Uint8Var(&rateValue, "rate", 1, "Output rate in navigation solutions (0 disables)")
	setRateCmd.Flags().IntVar(&sendTimeout, "timeout", 5, "Timeout in seconds")
	setRateCmd.MarkFlagRequired("class")
	setRateCmd.MarkFlagRequired("id")

	rootCmd.AddCommand(logBatchCmd)
	logBatchCmd.Flags().BoolVar(&batchMonFirst, "mon-first", false, "Ask for MON-BATCH before the data")
	logBatchCmd.Flags().IntVar(&batchIdle, "idle", 3, "Seconds without LOG-BATCH before stopping")
}

// parsePayload decodes hex bytes, allowing spaces, colons and a 0x prefix
func parsePayload(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	s = strings.NewReplacer(" ", "", ":", "").Replace(s)
	payload, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}
	return payload, nil
}

// awaitAck waits for the receiver to acknowledge class and id
func awaitAck(ctx context.Context, link *gnss.Link, class, id byte) error {
	reply, err := link.Await(ctx, func(m *gnss.Message) bool {
		matched, _ := gnss.IsAck(m, class, id)
		return matched
	})
	if err != nil {
		return fmt.Errorf("no acknowledgement for %s: %w", gnss.FormatMessageType(class, id), err)
	}
	if _, ack := gnss.IsAck(reply, class, id); !ack {
		return fmt.Errorf("receiver rejected %s (ACK-NAK)", gnss.FormatMessageType(class, id))
	}
	return nil
}

func runSendUBX(cmd *cobra.Command, args []string) error {
	payload, err := parsePayload(sendPayload)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Duration(sendTimeout)*time.Second)
	defer cancel()

	session, err := OpenSession(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	n, err := session.Link.SendUBX(ctx, sendClass, sendID, payload)
	if err != nil {
		return fmt.Errorf("send failed after %d bytes: %w", n, err)
	}
	fmt.Printf("Sent %s (0x%02X 0x%02X), %d bytes\n", gnss.FormatMessageType(sendClass, sendID), sendClass, sendID, n)

	if !sendWaitAck {
		return nil
	}
	if err := awaitAck(ctx, session.Link, sendClass, sendID); err != nil {
		return err
	}
	fmt.Printf("ACK-ACK received\n")
	return nil
}

func runSendNMEA(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Duration(sendTimeout)*time.Second)
	defer cancel()

	session, err := OpenSession(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	body := []byte(args[0])
	var n int
	if sendLegacy {
		n, err = session.Link.SendNMEALegacy(ctx, body)
	} else {
		n, err = session.Link.SendNMEA(ctx, body)
	}
	if err != nil {
		return fmt.Errorf("send failed after %d bytes: %w", n, err)
	}
	fmt.Printf("Sent $%s, %d bytes\n", body, n)
	return nil
}

func runSetRate(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Duration(sendTimeout)*time.Second)
	defer cancel()

	session, err := OpenSession(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	if _, err := session.Link.Send(ctx, gnss.NewMessageRate(rateClass, rateID, rateValue)); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	if err := awaitAck(ctx, session.Link, gnss.ClassCFG, gnss.IDCfgMSG); err != nil {
		return err
	}
	fmt.Printf("%s rate set to %d\n", gnss.FormatMessageType(rateClass, rateID), rateValue)
	return nil
}

func runLogBatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	session, err := OpenSession(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	if _, err := session.Link.Send(ctx, gnss.NewLogRetrieveBatch(batchMonFirst)); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}

	isBatch := func(m *gnss.Message) bool {
		return m.Kind == gnss.KindUBX &&
			((m.Class() == gnss.ClassLOG && m.ID() == gnss.IDLogBatch) || m.Class() == gnss.ClassMON)
	}

	count := 0
	for {
		idleCtx, cancel := context.WithTimeout(ctx, time.Duration(batchIdle)*time.Second)
		m, err := session.Link.Await(idleCtx, isBatch)
		cancel()
		if err != nil {
			break
		}
		if m.Class() == gnss.ClassLOG {
			count++
		}
		fmt.Print(gnss.FormatMessage(m))
	}

	fmt.Printf("\n%d LOG-BATCH frames received\n", count)
	return nil
}
