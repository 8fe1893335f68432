// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/gnsslink/pkg/capture"
	"github.com/Thermoquad/gnsslink/pkg/gnss"
	"github.com/Thermoquad/gnsslink/pkg/pipe"
)

var (
	replayRescan   bool
	replayRealtime bool
)

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Print the messages in a capture file",
	Long: `Print the messages stored in a capture file written by record.

With --rescan the stored bytes are fed back through a receive pipe of
--rx-size bytes and split again, which shows how a different pipe size or
--skip-stalled would have framed the same traffic.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayRescan, "rescan", false, "Split the stored bytes again")
	replayCmd.Flags().BoolVar(&replayRealtime, "realtime", false, "Pace output by the recorded timestamps")
}

// replayPort is a receive pipe filled from a capture file. Sends are dropped.
type replayPort struct {
	rx *pipe.Pipe
}

func (p *replayPort) Rx() *pipe.Pipe { return p.rx }

func (p *replayPort) Send(ctx context.Context, b []byte) (int, error) {
	return len(b), nil
}

// rescanner splits replayed bytes with a link
type rescanner struct {
	port *replayPort
	link *gnss.Link
	emit func(*gnss.Message)
}

func newRescanner(size int, skip bool, emit func(*gnss.Message)) *rescanner {
	port := &replayPort{rx: pipe.New(size)}
	link := gnss.NewLink(port)
	link.Scanner.SkipStalled = skip
	return &rescanner{port: port, link: link, emit: emit}
}

// feed pushes data through the pipe, extracting messages as room is needed
func (r *rescanner) feed(data []byte) error {
	for {
		n := r.port.rx.Put(data)
		data = data[n:]
		if err := r.drain(); err != nil {
			return err
		}
		if len(data) == 0 {
			return nil
		}
	}
}

func (r *rescanner) drain() error {
	for {
		m, err := r.link.ReadMessage()
		if errors.Is(err, gnss.ErrStalled) {
			if err := r.link.Discard(1); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		if m == nil {
			return nil
		}
		r.emit(m)
	}
}

// flush reports bytes left over at the end of the capture as one unknown run
func (r *rescanner) flush() error {
	m, err := r.link.Flush()
	if err != nil {
		return err
	}
	if m != nil {
		r.emit(m)
	}
	return nil
}

// printRecord prints one replayed message
func printRecord(m *gnss.Message) {
	fmt.Print(gnss.FormatMessage(m))
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer f.Close()

	ctx, stop := signalContext()
	defer stop()

	stats := gnss.NewStatistics()
	var rs *rescanner
	if replayRescan {
		rs = newRescanner(rxSize, skipStalled, printRecord)
		stats = rs.link.Stats
	}

	r := capture.NewReader(f)
	var last time.Time
	for ctx.Err() == nil {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		if replayRealtime && !last.IsZero() {
			if gap := rec.Time.Sub(last); gap > 0 {
				select {
				case <-time.After(gap):
				case <-ctx.Done():
				}
			}
		}
		last = rec.Time

		if rs != nil {
			if err := rs.feed(rec.Data); err != nil {
				return err
			}
			continue
		}

		m := rec.Message()
		stats.Update(gnss.Result{Kind: m.Kind, Length: len(m.Data)})
		stats.CountMessage(m)
		printRecord(m)
	}

	if rs != nil {
		if err := rs.flush(); err != nil {
			return err
		}
	}

	fmt.Println()
	fmt.Print(stats.String())
	return nil
}
