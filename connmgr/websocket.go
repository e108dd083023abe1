// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/decred/go-socks/socks"
	"github.com/decred/ledgerd/peer"
	"github.com/gorilla/websocket"
)

// WebsocketConfig holds the options shared by the websocket listener and
// dialer.
type WebsocketConfig struct {
	// WriteTimeout bounds every frame written to a peer.  Zero means no
	// timeout.
	WriteTimeout time.Duration

	// MaxFrameSize is the largest inbound frame accepted from a peer.  Zero
	// means no limit.
	MaxFrameSize int64

	// Proxy is the host:port of a SOCKS5 proxy outbound connections are made
	// through.  Empty means direct connections.
	Proxy         string
	ProxyUser     string
	ProxyPassword string
}

// WebsocketHandler returns an HTTP handler that upgrades every request to a
// websocket connection and starts serving it as an inbound peer connection.
// The inbound peer is identified by the remote address of the request.
func (cm *ConnManager) WebsocketHandler(upgrader *websocket.Upgrader, cfg *WebsocketConfig) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin, err := peer.AddrFromRemote(r.RemoteAddr)
		if err != nil {
			log.Warnf("Rejecting inbound connection: %v", err)
			http.Error(w, "400 Bad Request", http.StatusBadRequest)
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			var herr websocket.HandshakeError
			if !errors.As(err, &herr) {
				log.Errorf("Unexpected websocket error: %v", err)
			}
			return
		}

		transport := peer.NewWebsocketTransport(ws, cfg.WriteTimeout,
			cfg.MaxFrameSize)
		if err := cm.AcceptInbound(transport, origin); err != nil {
			log.Debugf("Inbound connection from %s not served: %v",
				origin, err)
		}
	})
}

// WebsocketDialer returns a Dial function suitable for the connection manager
// configuration that opens websocket connections to peers, optionally through
// a SOCKS5 proxy.
func WebsocketDialer(cfg *WebsocketConfig) (func(context.Context, peer.Addr) (peer.Transport, error), error) {
	dialer := &websocket.Dialer{
		HandshakeTimeout: 45 * time.Second,
	}
	if cfg.Proxy != "" {
		if _, _, err := net.SplitHostPort(cfg.Proxy); err != nil {
			str := "invalid proxy address " + cfg.Proxy + ": " + err.Error()
			return nil, makeError(ErrInvalidProxy, str)
		}
		proxy := &socks.Proxy{
			Addr:     cfg.Proxy,
			Username: cfg.ProxyUser,
			Password: cfg.ProxyPassword,
		}
		dialer.NetDialContext = proxy.DialContext
	}

	return func(ctx context.Context, addr peer.Addr) (peer.Transport, error) {
		ws, _, err := dialer.DialContext(ctx, addr.String(), nil)
		if err != nil {
			return nil, err
		}
		return peer.NewWebsocketTransport(ws, cfg.WriteTimeout,
			cfg.MaxFrameSize), nil
	}, nil
}
