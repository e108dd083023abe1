// Copyright (c) 2016 The btcsuite developers
// Copyright (c) 2019-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/decred/ledgerd/peer"
	"github.com/decred/ledgerd/wire"
	"github.com/gorilla/websocket"
)

// runConnMgrAsync invokes the Run method on the passed connection manager in a
// separate goroutine and returns a cancelable context and wait group the caller
// can use to shutdown the the connection manager and wait for clean shutdown.
func runConnMgrAsync(ctx context.Context, cmgr *ConnManager) (context.Context, context.CancelFunc, *sync.WaitGroup) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		cmgr.Run(ctx)
		wg.Done()
	}()
	return ctx, cancel, &wg
}

// pipeTransport is one end of an in-memory duplex frame channel.
type pipeTransport struct {
	in       <-chan []byte
	out      chan<- []byte
	done     chan struct{}
	peerDone chan struct{}
	once     *sync.Once

	mtx      sync.Mutex
	writeErr error
}

// newPipe returns both ends of an in-memory duplex frame channel.  Closing
// either end closes both.
func newPipe() (*pipeTransport, *pipeTransport) {
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)
	done := make(chan struct{})
	once := new(sync.Once)
	a := &pipeTransport{in: ba, out: ab, done: done, once: once}
	b := &pipeTransport{in: ab, out: ba, done: done, once: once}
	return a, b
}

func (p *pipeTransport) ReadFrame() ([]byte, error) {
	select {
	case frame := <-p.in:
		return frame, nil
	case <-p.done:
		return nil, io.EOF
	}
}

func (p *pipeTransport) WriteFrame(frame []byte) error {
	p.mtx.Lock()
	err := p.writeErr
	p.mtx.Unlock()
	if err != nil {
		return err
	}
	select {
	case <-p.done:
		return io.ErrClosedPipe
	default:
	}
	select {
	case p.out <- append([]byte(nil), frame...):
		return nil
	case <-p.done:
		return io.ErrClosedPipe
	}
}

func (p *pipeTransport) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

// readMsg reads and decodes the next frame from the pipe end within a
// reasonable time.
func readMsg(t *testing.T, p *pipeTransport) wire.Message {
	t.Helper()

	type result struct {
		frame []byte
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		frame, err := p.ReadFrame()
		ch <- result{frame, err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			t.Fatalf("unexpected read error: %v", r.err)
		}
		msg, err := wire.Decode(r.frame)
		if err != nil {
			t.Fatalf("unexpected decode error: %v", err)
		}
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for frame")
	}
	return nil
}

// recordingHandler records every message it is handed.
type recordingHandler struct {
	mtx  sync.Mutex
	msgs []wire.Message
	ch   chan wire.Message
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{ch: make(chan wire.Message, 64)}
}

func (h *recordingHandler) OnMessage(conn *peer.Conn, msg wire.Message) {
	h.mtx.Lock()
	h.msgs = append(h.msgs, msg)
	h.mtx.Unlock()
	h.ch <- msg
}

// next waits for the next message handed to the handler.
func (h *recordingHandler) next(t *testing.T) wire.Message {
	t.Helper()
	select {
	case msg := <-h.ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}
	return nil
}

// waitFor polls the condition until it holds or the test times out.
func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", desc)
		}
		time.Sleep(time.Millisecond)
	}
}

// mockDialer returns a dial function serving in-memory pipes.  The remote end
// of every dialed pipe is sent on the returned channel.  Addresses in the
// failing set are refused.
func mockDialer(failing map[peer.Addr]bool) (func(context.Context, peer.Addr) (peer.Transport, error), chan *pipeTransport) {
	remotes := make(chan *pipeTransport, 16)
	dial := func(ctx context.Context, addr peer.Addr) (peer.Transport, error) {
		if failing[addr] {
			return nil, errors.New("connection refused")
		}
		local, remote := newPipe()
		remotes <- remote
		return local, nil
	}
	return dial, remotes
}

func testAddr(port uint16) peer.Addr {
	return peer.Addr{Host: "127.0.0.1", Port: port}
}

// lookup returns the connection registered for the address.
func lookup(r *peer.Registry, addr peer.Addr) (*peer.Conn, bool) {
	for a, conn := range r.AllLive() {
		if a == addr {
			return conn, true
		}
	}
	return nil, false
}

// TestNewConfig tests that new ConnManager config is validated as expected.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	dial, _ := mockDialer(nil)
	tests := []struct {
		name string
		cfg  Config
		err  error
	}{{
		name: "no registry",
		cfg:  Config{Handler: newRecordingHandler(), Dial: dial},
		err:  ErrRegistryNil,
	}, {
		name: "no handler",
		cfg:  Config{Registry: peer.NewRegistry(), Dial: dial},
		err:  ErrHandlerNil,
	}, {
		name: "no dial",
		cfg: Config{Registry: peer.NewRegistry(),
			Handler: newRecordingHandler()},
		err: ErrDialNil,
	}, {
		name: "ok",
		cfg: Config{Registry: peer.NewRegistry(),
			Handler: newRecordingHandler(), Dial: dial},
	}}

	for _, test := range tests {
		_, err := New(&test.cfg)
		if !errors.Is(err, test.err) {
			t.Errorf("%q: unexpected error -- got %v, want %v", test.name,
				err, test.err)
		}
	}
}

// TestAcceptInbound ensures an inbound connection is registered, probed with
// a latest block query before anything else and served until it closes.
func TestAcceptInbound(t *testing.T) {
	t.Parallel()

	registry := peer.NewRegistry()
	handler := newRecordingHandler()
	dial, _ := mockDialer(nil)
	cmgr, err := New(&Config{Registry: registry, Handler: handler, Dial: dial})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, cancel, wg := runConnMgrAsync(context.Background(), cmgr)
	defer func() {
		cancel()
		wg.Wait()
	}()

	local, remote := newPipe()
	origin := testAddr(50000)
	if err := cmgr.AcceptInbound(local, origin); err != nil {
		t.Fatalf("unexpected accept error: %v", err)
	}
	conn, ok := lookup(registry, origin)
	if !ok {
		t.Fatal("inbound connection not registered")
	}
	if !conn.Inbound() {
		t.Fatal("connection not marked inbound")
	}

	if msg := readMsg(t, remote); msg.MsgType() != wire.TypeQueryLatest {
		t.Fatalf("unexpected first message %s", msg.Command())
	}

	// A bad frame is skipped and the connection stays up.
	remote.WriteFrame([]byte(`{"type":9}`))
	remote.WriteFrame([]byte(`{"type":1}`))
	if msg := handler.next(t); msg.MsgType() != wire.TypeQueryAll {
		t.Fatalf("unexpected message %s", msg.Command())
	}
	if registry.Count() != 1 {
		t.Fatal("connection dropped after bad frame")
	}

	// Closing the remote end stops the receive loop and unregisters.
	remote.Close()
	waitFor(t, "unregister", func() bool { return registry.Count() == 0 })
	waitFor(t, "receive loop exit", func() bool { return cmgr.Count() == 0 })

	handler.mtx.Lock()
	got := len(handler.msgs)
	handler.mtx.Unlock()
	if got != 1 {
		t.Fatalf("unexpected handled messages -- got %d, want 1", got)
	}
}

// TestConnectToPeers ensures every address is attempted independently and a
// failing address does not affect the others.
func TestConnectToPeers(t *testing.T) {
	t.Parallel()

	registry := peer.NewRegistry()
	bad := testAddr(2)
	dial, remotes := mockDialer(map[peer.Addr]bool{bad: true})
	cmgr, err := New(&Config{
		Registry:    registry,
		Handler:     newRecordingHandler(),
		Dial:        dial,
		DialTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel, wg := runConnMgrAsync(context.Background(), cmgr)

	addrs := []peer.Addr{testAddr(1), bad, testAddr(3)}
	cmgr.ConnectToPeers(ctx, addrs)
	waitFor(t, "outbound connections", func() bool {
		return registry.Count() == 2
	})
	for _, addr := range []peer.Addr{testAddr(1), testAddr(3)} {
		conn, ok := lookup(registry, addr)
		if !ok || conn.Inbound() {
			t.Fatalf("missing outbound connection to %s", addr)
		}
	}
	if _, ok := lookup(registry, bad); ok {
		t.Fatalf("unexpected connection to %s", bad)
	}

	for i := 0; i < 2; i++ {
		remote := <-remotes
		if msg := readMsg(t, remote); msg.MsgType() != wire.TypeQueryLatest {
			t.Fatalf("unexpected first message %s", msg.Command())
		}
	}

	// Shutdown closes every connection and waits for the receive loops.
	cancel()
	wg.Wait()
	if registry.Count() != 0 || cmgr.Count() != 0 {
		t.Fatal("connections remain after shutdown")
	}
	local, _ := newPipe()
	err = cmgr.AcceptInbound(local, testAddr(4))
	if !errors.Is(err, ErrShuttingDown) {
		t.Fatalf("unexpected error -- got %v, want %v", err, ErrShuttingDown)
	}
}

// TestConnectFailures ensures dial timeouts and failed probes are reported.
func TestConnectFailures(t *testing.T) {
	t.Parallel()

	registry := peer.NewRegistry()
	var probeFail bool
	dial := func(ctx context.Context, addr peer.Addr) (peer.Transport, error) {
		if !probeFail {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		local, _ := newPipe()
		local.writeErr = errors.New("reset by peer")
		return local, nil
	}
	cmgr, err := New(&Config{
		Registry:    registry,
		Handler:     newRecordingHandler(),
		Dial:        dial,
		DialTimeout: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = cmgr.Connect(context.Background(), testAddr(1))
	if !errors.Is(err, ErrDialFailed) {
		t.Fatalf("unexpected error -- got %v, want %v", err, ErrDialFailed)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("dial error does not wrap the deadline: %v", err)
	}

	probeFail = true
	err = cmgr.Connect(context.Background(), testAddr(1))
	if !errors.Is(err, ErrProbeFailed) {
		t.Fatalf("unexpected error -- got %v, want %v", err, ErrProbeFailed)
	}
	if registry.Count() != 0 || cmgr.Count() != 0 {
		t.Fatal("connection remains after failed probe")
	}
}

// TestWebsocketConnect ensures two connection managers connect over a real
// websocket and each sends the initial latest block query.
func TestWebsocketConnect(t *testing.T) {
	t.Parallel()

	wsCfg := &WebsocketConfig{WriteTimeout: time.Second, MaxFrameSize: 1 << 20}
	dial, err := WebsocketDialer(wsCfg)
	if err != nil {
		t.Fatalf("unexpected dialer error: %v", err)
	}

	newMgr := func() (*ConnManager, *peer.Registry, *recordingHandler) {
		registry := peer.NewRegistry()
		handler := newRecordingHandler()
		cmgr, err := New(&Config{Registry: registry, Handler: handler,
			Dial: dial})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return cmgr, registry, handler
	}
	server, serverReg, serverHandler := newMgr()
	client, clientReg, clientHandler := newMgr()

	_, cancelServer, serverWg := runConnMgrAsync(context.Background(), server)
	ctx, cancelClient, clientWg := runConnMgrAsync(context.Background(), client)

	srv := httptest.NewServer(server.WebsocketHandler(&websocket.Upgrader{},
		wsCfg))
	defer srv.Close()

	addr, err := peer.ParseAddr("ws" + strings.TrimPrefix(srv.URL, "http"))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if err := client.Connect(ctx, addr); err != nil {
		t.Fatalf("unexpected connect error: %v", err)
	}

	if msg := serverHandler.next(t); msg.MsgType() != wire.TypeQueryLatest {
		t.Fatalf("server got unexpected message %s", msg.Command())
	}
	if msg := clientHandler.next(t); msg.MsgType() != wire.TypeQueryLatest {
		t.Fatalf("client got unexpected message %s", msg.Command())
	}
	if serverReg.Count() != 1 || clientReg.Count() != 1 {
		t.Fatalf("unexpected registry counts %d and %d", serverReg.Count(),
			clientReg.Count())
	}

	// Shutting down the client disconnects the server side too.
	cancelClient()
	clientWg.Wait()
	waitFor(t, "server unregister", func() bool {
		return serverReg.Count() == 0
	})
	cancelServer()
	serverWg.Wait()
}

// TestWebsocketDialerProxy ensures invalid proxy addresses are rejected.
func TestWebsocketDialerProxy(t *testing.T) {
	t.Parallel()

	_, err := WebsocketDialer(&WebsocketConfig{Proxy: "127.0.0.1"})
	if !errors.Is(err, ErrInvalidProxy) {
		t.Fatalf("unexpected error -- got %v, want %v", err, ErrInvalidProxy)
	}
	if _, err := WebsocketDialer(&WebsocketConfig{Proxy: "127.0.0.1:9050"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
