// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// closeGracePeriod is how long a close control frame may take to be written
// before the underlying connection is torn down regardless.
const closeGracePeriod = time.Second

// WebsocketTransport implements Transport over a gorilla websocket connection.
// Text messages are frames.  Other data messages are skipped.
type WebsocketTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	// writeMtx serializes writers since the underlying connection only
	// supports a single concurrent writer.
	writeMtx sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

// NewWebsocketTransport wraps the passed websocket connection.  Each write is
// bounded by writeTimeout when it is non-zero and inbound frames larger than
// maxFrameSize cause the read to fail when it is non-zero.
func NewWebsocketTransport(conn *websocket.Conn, writeTimeout time.Duration, maxFrameSize int64) *WebsocketTransport {
	if maxFrameSize > 0 {
		conn.SetReadLimit(maxFrameSize)
	}
	return &WebsocketTransport{
		conn:         conn,
		writeTimeout: writeTimeout,
	}
}

// ReadFrame returns the payload of the next text message.  A normal close by
// the remote end, or a local close, is reported as io.EOF.
//
// This is part of the Transport interface.
func (t *WebsocketTransport) ReadFrame() ([]byte, error) {
	for {
		msgType, data, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure,
				websocket.CloseGoingAway) || errors.Is(err, net.ErrClosed) {

				return nil, io.EOF
			}
			return nil, err
		}
		if msgType != websocket.TextMessage {
			log.Debugf("Skipping non-text websocket message (type %d, "+
				"%d bytes) from %s", msgType, len(data), t.conn.RemoteAddr())
			continue
		}
		return data, nil
	}
}

// WriteFrame writes the frame as a single text message.
//
// This is part of the Transport interface.
func (t *WebsocketTransport) WriteFrame(frame []byte) error {
	t.writeMtx.Lock()
	defer t.writeMtx.Unlock()

	if t.writeTimeout > 0 {
		deadline := time.Now().Add(t.writeTimeout)
		if err := t.conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}
	return t.conn.WriteMessage(websocket.TextMessage, frame)
}

// Close sends a close message to the remote end and closes the underlying
// connection.  It is safe to call more than once.
//
// This is part of the Transport interface.
func (t *WebsocketTransport) Close() error {
	t.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		deadline := time.Now().Add(closeGracePeriod)
		_ = t.conn.WriteControl(websocket.CloseMessage, msg, deadline)
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}
