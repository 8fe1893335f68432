// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/gnsslink/pkg/gnss"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Monitor stream health and frame statistics",
	Long: `Track framing errors and traffic statistics on the receiver stream.

This command classifies every byte and reports:
  - Runs of bytes that are neither UBX nor NMEA
  - Frames rejected for a bad checksum
  - Stalls where an incomplete frame filled the receive pipe
  - Received bytes lost to receive pipe overflow
  - Message and error rates, with counts per message name

By default, only errors are displayed. Use --show-all to display every frame.

Bytes before the first valid frame are counted separately as sync loss and
are not reported as errors.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just errors)")
	monitorCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	monitorCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	session, err := OpenSession(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	if useTUI {
		return runTUIMode(session)
	}
	return runTextMode(session)
}

// syncTracker separates the garbage seen before the first frame from real
// stream errors
type syncTracker struct {
	synchronized bool
	invalidBytes int
}

// observe reports whether m is the first frame after start-up
func (t *syncTracker) observe(m *gnss.Message) bool {
	if t.synchronized {
		return false
	}
	if m.Kind == gnss.KindUnknown {
		t.invalidBytes += len(m.Data)
		return false
	}
	t.synchronized = true
	return true
}

// isStreamError reports whether m should be shown as an error
func (t *syncTracker) isStreamError(m *gnss.Message) bool {
	return t.synchronized && m.Kind == gnss.KindUnknown
}

// fixInfo is the position summary of a GGA sentence
type fixInfo struct {
	time       string
	latitude   string
	longitude  string
	quality    int64
	satellites int64
	hdop       float64
	altitude   float64
	hasAlt     bool
}

// parseGGA extracts the fix summary from a GGA sentence of any talker
func parseGGA(m *gnss.Message) (*fixInfo, bool) {
	if m.Kind != gnss.KindNMEA || m.Sentence() != "GGA" {
		return nil, false
	}
	body := m.Body()

	fix := &fixInfo{}
	fix.time, _ = gnss.Field(body, 1)
	if lat, ok := gnss.Field(body, 2); ok {
		hemi, _ := gnss.FieldChar(body, 3)
		fix.latitude = fmt.Sprintf("%s %c", lat, hemi)
	}
	if lon, ok := gnss.Field(body, 4); ok {
		hemi, _ := gnss.FieldChar(body, 5)
		fix.longitude = fmt.Sprintf("%s %c", lon, hemi)
	}
	fix.quality, _ = gnss.FieldInt(body, 6, 10)
	fix.satellites, _ = gnss.FieldInt(body, 7, 10)
	fix.hdop, _ = gnss.FieldFloat(body, 8)
	fix.altitude, fix.hasAlt = gnss.FieldFloat(body, 9)
	return fix, true
}

func fixQualityName(q int64) string {
	switch q {
	case 0:
		return "NO FIX"
	case 1:
		return "GPS"
	case 2:
		return "DGPS"
	case 4:
		return "RTK FIXED"
	case 5:
		return "RTK FLOAT"
	case 6:
		return "DEAD RECKONING"
	default:
		return fmt.Sprintf("QUALITY %d", q)
	}
}

// printStreamError prints an unrecognized run in highlighted format
func printStreamError(m *gnss.Message) {
	timestamp := m.Timestamp.Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;31mUNRECOGNIZED:\033[0m %d bytes\n", timestamp, len(m.Data))
	fmt.Print(gnss.FormatHex(m.Data))
	fmt.Printf("  >>> BYTES SKIPPED <<<\n\n")
}

// printFix prints a GGA fix summary
func printFix(fix *fixInfo) {
	fmt.Printf("[%s] \033[1;32mFIX:\033[0m %s, %d satellites, HDOP %.1f",
		fix.time, fixQualityName(fix.quality), fix.satellites, fix.hdop)
	if fix.hasAlt {
		fmt.Printf(", alt %.1fm", fix.altitude)
	}
	fmt.Printf("\n  %s / %s\n\n", fix.latitude, fix.longitude)
}

// runTUIMode runs the monitor in TUI mode
func runTUIMode(session *Session) error {
	m := initialModel(session, statsInterval, showAll)
	p := tea.NewProgram(m)

	go func() {
		for {
			msg, err := session.Next()
			if err != nil {
				p.Send(stoppedMsg{err: err})
				return
			}
			p.Send(frameMsg{msg: msg})
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runTextMode runs the monitor in text mode
func runTextMode(session *Session) error {
	fmt.Printf("gnsslink - Stream Monitor\n")
	fmt.Printf("Connection: %s\n", session.Info)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	stats := session.Link.Stats
	var sync syncTracker
	var lastOverflow uint64

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	frames := make(chan *gnss.Message, 16)
	errc := make(chan error, 1)
	go func() {
		for {
			m, err := session.Next()
			if err != nil {
				errc <- err
				return
			}
			frames <- m
		}
	}()

	for {
		select {
		case m := <-frames:
			if sync.observe(m) {
				if sync.invalidBytes > 0 {
					fmt.Printf("[SYNC] Synchronized after skipping %d invalid bytes\n\n", sync.invalidBytes)
				} else {
					fmt.Printf("[SYNC] Synchronized\n\n")
				}
			}

			switch {
			case sync.isStreamError(m):
				printStreamError(m)
			case showAll:
				fmt.Print(gnss.FormatMessage(m))
			}
			if fix, ok := parseGGA(m); ok && showAll {
				printFix(fix)
			}

		case err := <-errc:
			lastOverflow = session.SyncOverflow(lastOverflow)
			fmt.Println()
			fmt.Print(stats.String())
			if errors.Is(err, io.EOF) {
				return stopReason(session)
			}
			return err

		case <-statsTicker.C:
			lastOverflow = session.SyncOverflow(lastOverflow)
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()
		}
	}
}
