// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
	"golang.org/x/term"

	"github.com/Thermoquad/gnsslink/pkg/gnss"
	"github.com/Thermoquad/gnsslink/pkg/serialpipe"
)

// Connection is a raw byte stream to the receiver, over serial or WebSocket
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// SerialConnection wraps a serial port
type SerialConnection struct {
	port serial.Port
}

func (s *SerialConnection) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = errors.New("websocket connection closed")

// WebSocketConnection carries the receiver byte stream in binary WebSocket
// messages. Message boundaries carry no meaning.
type WebSocketConnection struct {
	conn   *websocket.Conn
	buf    []byte
	closed bool
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	if w.closed {
		return 0, ErrConnectionClosed
	}

	for len(w.buf) == 0 {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.closed = true
			return 0, fmt.Errorf("%w: %w", ErrConnectionClosed, err)
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		w.buf = data
	}

	n := copy(p, w.buf)
	w.buf = w.buf[n:]
	return n, nil
}

func (w *WebSocketConnection) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConnection) Close() error {
	return w.conn.Close()
}

// OpenSerialConnection opens a serial port connection
func OpenSerialConnection(portName string, baudRate int) (Connection, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	return &SerialConnection{port: port}, nil
}

// OpenWebSocketConnection opens a WebSocket connection with HTTP Basic auth
func OpenWebSocketConnection(wsURL, username, password string, skipSSLVerify bool) (Connection, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return &WebSocketConnection{conn: conn}, nil
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	if pw := os.Getenv("GNSSLINK_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// not a terminal
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// OpenConnection opens either a serial or WebSocket connection based on flags
func OpenConnection() (Connection, string, error) {
	if wsURL != "" {
		password := ""
		if wsUsername != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		conn, err := OpenWebSocketConnection(wsURL, wsUsername, password, wsNoSSLVerify)
		if err != nil {
			return nil, "", err
		}

		return conn, fmt.Sprintf("WebSocket: %s", wsURL), nil
	}

	if portName != "" {
		conn, err := OpenSerialConnection(portName, baudRate)
		if err != nil {
			return nil, "", err
		}

		return conn, fmt.Sprintf("Serial: %s @ %d baud", portName, baudRate), nil
	}

	return nil, "", fmt.Errorf("either --port or --url must be specified")
}

// Session is an open connection with its interrupt loop running and a
// link reading from the receive pipe
type Session struct {
	Info string
	Pipe *serialpipe.SerialPipe
	Link *gnss.Link

	conn    Connection
	cancel  context.CancelFunc
	readCtx context.Context
	errc    chan error

	closeOnce sync.Once
	closeErr  error
}

// OpenSession opens the connection selected by the flags and starts the
// serial pipe over it. The session stops when ctx is done or Close is called.
func OpenSession(ctx context.Context) (*Session, error) {
	conn, info, err := OpenConnection()
	if err != nil {
		return nil, err
	}
	return StartSession(ctx, conn, info), nil
}

// StartSession starts the serial pipe and link over an open connection
func StartSession(ctx context.Context, conn Connection, info string) *Session {
	ctx, cancel := context.WithCancel(ctx)
	readCtx, readCancel := context.WithCancel(ctx)

	sp := serialpipe.New(serialpipe.NewUART(conn, serialpipe.DefaultFIFOSize), rxSize, txSize)
	sp.Logger = log.WithField("conn", info)

	link := gnss.NewLink(sp)
	link.Scanner.SkipStalled = skipStalled
	link.Logger = sp.Logger

	s := &Session{
		Info:    info,
		Pipe:    sp,
		Link:    link,
		conn:    conn,
		cancel:  cancel,
		readCtx: readCtx,
		errc:    make(chan error, 1),
	}
	go func() {
		err := sp.Run(ctx)
		readCancel()
		s.errc <- err
	}()
	return s
}

// Next waits for the next message. A stalled receive pipe is resynchronized
// by discarding one byte. Once the connection has stopped, bytes left in the
// receive pipe are returned as one unknown message and then Next returns
// io.EOF.
func (s *Session) Next() (*gnss.Message, error) {
	for {
		m, err := s.Link.NextMessage(s.readCtx)
		switch {
		case err == nil:
			return m, nil
		case errors.Is(err, gnss.ErrStalled):
			if err := s.Link.Discard(1); err != nil {
				return nil, err
			}
		case s.readCtx.Err() != nil:
			// the last read may have landed after the scan that gave up
			m, err := s.Link.ReadMessage()
			if errors.Is(err, gnss.ErrStalled) {
				continue
			}
			if m == nil && err == nil {
				// a partial frame left behind can no longer complete
				m, err = s.Link.Flush()
			}
			if m != nil || err != nil {
				return m, err
			}
			return nil, io.EOF
		default:
			return nil, err
		}
	}
}

// Done is closed when the serial pipe stops
func (s *Session) Done() <-chan struct{} {
	return s.Pipe.Done()
}

// Err returns why the serial pipe stopped. It blocks until it has.
func (s *Session) Err() error {
	err := <-s.errc
	s.errc <- err
	return err
}

// SyncOverflow moves receive overflow not yet seen by the link statistics
// into them. last is the previous overflow total; the new total is returned.
func (s *Session) SyncOverflow(last uint64) uint64 {
	total := s.Pipe.Counters().Overflow
	if total > last {
		s.Link.Stats.AddOverflow(total - last)
	}
	return total
}

// Close stops the serial pipe and closes the connection. Calls after the
// first return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		// unblocks a pending read in the UART
		s.closeErr = s.conn.Close()
		<-s.Pipe.Done()
	})
	return s.closeErr
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// stopReason turns the serial pipe's exit into a command result. A closed
// connection or an interrupt is a normal end.
func stopReason(s *Session) error {
	err := s.Err()
	if isClosed(err) {
		log.WithError(err).Info("Connection closed")
		return nil
	}
	return err
}

// isClosed reports whether err means the connection went away
func isClosed(err error) bool {
	return errors.Is(err, serialpipe.ErrDeviceClosed) ||
		errors.Is(err, ErrConnectionClosed) ||
		errors.Is(err, context.Canceled)
}
