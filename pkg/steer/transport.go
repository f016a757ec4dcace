// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mara Voss, FS Optics

package steer

import (
	"io"
	"sync"
)

// Transport is the byte link between the host and the module. Reads
// must never block: Available reports how much inbound data is already
// buffered, and Read returns at most that much. Write blocks until the
// link accepts the bytes or fails.
type Transport interface {
	Available() int
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// Pump adapts a blocking io.ReadWriter (a serial port, a WebSocket
// stream) to the Transport interface. A background goroutine performs
// the blocking reads and buffers whatever arrives, so the Transport
// side can poll without stalling a control loop.
//
// The Pump does not own the underlying link: closing the link is the
// caller's job, and is also how the pump goroutine is shut down (its
// blocked Read fails and the goroutine exits).
type Pump struct {
	rw   io.ReadWriter
	done chan struct{}

	mu  sync.Mutex
	buf []byte
	err error
}

// NewPump wraps rw and starts the reader goroutine
func NewPump(rw io.ReadWriter) *Pump {
	p := &Pump{
		rw:   rw,
		done: make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *Pump) run() {
	defer close(p.done)
	chunk := make([]byte, 256)
	for {
		n, err := p.rw.Read(chunk)
		if n > 0 {
			p.mu.Lock()
			p.buf = append(p.buf, chunk[:n]...)
			p.mu.Unlock()
		}
		if err != nil {
			p.mu.Lock()
			p.err = err
			p.mu.Unlock()
			return
		}
	}
}

// Available returns the number of buffered inbound bytes
func (p *Pump) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buf)
}

// Read copies buffered bytes into b without blocking. Once the buffer
// is empty, Read reports the reader goroutine's failure, if any.
func (p *Pump) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.buf) == 0 {
		return 0, p.err
	}
	n := copy(b, p.buf)
	p.buf = p.buf[n:]
	if len(p.buf) == 0 {
		// Drop the backing array so repeated bursts cannot pin a
		// high-water allocation.
		p.buf = nil
	}
	return n, nil
}

// Write passes b through to the underlying link
func (p *Pump) Write(b []byte) (int, error) {
	return p.rw.Write(b)
}

// Err returns the error that stopped the reader goroutine, or nil if
// it is still running
func (p *Pump) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Done returns a channel closed when the reader goroutine exits
func (p *Pump) Done() <-chan struct{} {
	return p.done
}
