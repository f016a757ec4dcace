// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Mara Voss, FS Optics

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"golang.org/x/term"

	"github.com/fsoptics/fsmctl/pkg/steer"
)

// Link is the raw byte stream to the mirror module: a local serial
// port, or a WebSocket bridge relaying the same stream over the
// network.
type Link interface {
	io.Reader
	io.Writer
	io.Closer
}

// ErrLinkClosed is returned when reading from a bridge whose WebSocket
// has already failed
var ErrLinkClosed = fmt.Errorf("websocket link closed")

// wsLink adapts a WebSocket to the byte-stream Link interface. Inbound
// binary messages can be any length, so leftover bytes from a message
// are held in pending until later Reads drain them.
type wsLink struct {
	conn    *websocket.Conn
	pending []byte
	dead    bool
}

func (l *wsLink) Read(p []byte) (int, error) {
	if l.dead {
		return 0, ErrLinkClosed
	}
	for len(l.pending) == 0 {
		typ, msg, err := l.conn.ReadMessage()
		if err != nil {
			l.dead = true
			return 0, err
		}
		// Text and control payloads carry no frames; drop them.
		if typ == websocket.BinaryMessage {
			l.pending = msg
		}
	}
	n := copy(p, l.pending)
	l.pending = l.pending[n:]
	return n, nil
}

func (l *wsLink) Write(p []byte) (int, error) {
	if err := l.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (l *wsLink) Close() error {
	return l.conn.Close()
}

// openSerialLink opens the local serial port. The DIM link is always
// 8N1; only the rate is configurable.
func openSerialLink(portName string, baudRate int) (Link, error) {
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %v", portName, err)
	}
	// serial.Port already satisfies Link.
	return port, nil
}

// dialBridge connects to a WebSocket bridge, authenticating with HTTP
// Basic auth when a username is set.
func dialBridge(rawURL, username, password string, skipSSLVerify bool) (Link, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: skipSSLVerify}
	}

	header := http.Header{}
	if username != "" {
		cred := username + ":" + password
		header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(cred)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, rawURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %v", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %v", err)
	}
	return &wsLink{conn: conn}, nil
}

// promptPassword resolves the bridge password. FSMCTL_PASSWORD wins so
// scripted runs never block on a prompt; otherwise read from the
// terminal with echo off, or a plain line when stdin is not a tty.
func promptPassword() (string, error) {
	if pw := os.Getenv("FSMCTL_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	defer fmt.Fprintln(os.Stderr)

	if b, err := term.ReadPassword(int(syscall.Stdin)); err == nil {
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read password: %v", err)
	}
	return strings.TrimSpace(line), nil
}

// OpenLink opens whichever link the global flags select and describes
// it for the connection banner.
func OpenLink() (Link, string, error) {
	switch {
	case wsURL != "":
		var password string
		if wsUsername != "" {
			var err error
			password, err = promptPassword()
			if err != nil {
				return nil, "", err
			}
		}
		link, err := dialBridge(wsURL, wsUsername, password, wsNoSSLVerify)
		if err != nil {
			return nil, "", err
		}
		return link, fmt.Sprintf("WebSocket: %s", wsURL), nil

	case portName != "":
		link, err := openSerialLink(portName, baudRate)
		if err != nil {
			return nil, "", err
		}
		return link, fmt.Sprintf("Serial: %s @ %d baud", portName, baudRate), nil
	}
	return nil, "", fmt.Errorf("either --port or --url must be specified")
}

// openController opens the configured link, wraps it in a pumped
// transport so reads never block, and builds a controller honoring the
// global step and strictness flags. The caller owns closing the
// returned Link.
func openController(opts steer.Options) (*steer.Controller, Link, string, error) {
	link, connInfo, err := OpenLink()
	if err != nil {
		return nil, nil, "", err
	}

	if opts.StepSize == 0 {
		opts.StepSize = stepSize
	}
	opts.Strict = opts.Strict || strictMode

	ctrl := steer.NewController(steer.NewPump(link), opts)
	return ctrl, link, connInfo, nil
}
