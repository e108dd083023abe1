// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"errors"
	"io"
	"sync"
)

// mockTransport is an in-memory Transport that records written frames and
// serves queued frames to readers.
type mockTransport struct {
	mtx      sync.Mutex
	written  [][]byte
	writeErr error
	closed   bool
	closes   int

	reads chan []byte
	done  chan struct{}
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		reads: make(chan []byte, 16),
		done:  make(chan struct{}),
	}
}

func (t *mockTransport) ReadFrame() ([]byte, error) {
	select {
	case frame := <-t.reads:
		return frame, nil
	case <-t.done:
		return nil, io.EOF
	}
}

func (t *mockTransport) WriteFrame(frame []byte) error {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.closed {
		return errors.New("write on closed transport")
	}
	if t.writeErr != nil {
		return t.writeErr
	}
	t.written = append(t.written, append([]byte(nil), frame...))
	return nil
}

func (t *mockTransport) Close() error {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.closes++
	if !t.closed {
		t.closed = true
		close(t.done)
	}
	return nil
}

// frames returns a copy of the frames written so far.
func (t *mockTransport) frames() [][]byte {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return append([][]byte(nil), t.written...)
}

func (t *mockTransport) isClosed() bool {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.closed
}

// testAddr returns a distinct loopback address for the passed port.
func testAddr(port uint16) Addr {
	return Addr{Host: "127.0.0.1", Port: port}
}
