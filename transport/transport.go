// Package transport supplies the Dialer function type Connection.DialFn
// already uses, plus two concrete dialers: the default
// tls.Dial, generalized to take plain TCP or TLS, and an optional ws://
// / wss:// dialer for bouncer-style deployments sitting behind a relay,
// per domain-stack wiring of nhooyr.io/websocket.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/url"

	"nhooyr.io/websocket"
)

// Dialer returns a fresh connection to an IRC server, matching
// Connection.DialFn's signature so either can be assigned to it unmodified.
type Dialer func() (io.ReadWriteCloser, error)

// TCP returns a Dialer that connects to addr ("host:port") in plaintext,
// for networks or test fixtures that don't offer TLS.
func TCP(addr string) Dialer {
	return func() (io.ReadWriteCloser, error) {
		return net.Dial("tcp", addr)
	}
}

// TLS returns a Dialer that connects to addr with TLS, using cfg (or the
// zero value, meaning verify against the system roots and the server name
// parsed from addr) when cfg is nil. This is Connection's default dial
// behavior, generalized to accept a caller-supplied *tls.Config.
func TLS(addr string, cfg *tls.Config) Dialer {
	return func() (io.ReadWriteCloser, error) {
		return tls.Dial("tcp", addr, cfg)
	}
}

// WebSocket returns a Dialer that connects to a ws:// or wss:// endpoint and
// adapts it to io.ReadWriteCloser by framing each Write as one text
// websocket message and presenting reads as a continuous byte stream, so
// everything above (netio.LineReader, Connection.WriteMessage) is unaware the
// transport isn't a raw TCP stream.
func WebSocket(rawURL string) Dialer {
	return func() (io.ReadWriteCloser, error) {
		if _, err := url.Parse(rawURL); err != nil {
			return nil, fmt.Errorf("transport: parse websocket url: %w", err)
		}
		ctx := context.Background()
		conn, _, err := websocket.Dial(ctx, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("transport: dial websocket: %w", err)
		}
		return &wsConn{conn: conn, ctx: ctx}, nil
	}
}

// wsConn adapts a *websocket.Conn to io.ReadWriteCloser, buffering leftover
// bytes from a partial Read the same way a TCP stream never needs to because
// websocket.Conn hands back whole messages, not a byte stream.
type wsConn struct {
	conn *websocket.Conn
	ctx context.Context
	buf []byte
}

func (w *wsConn) Read(p []byte) (int, error) {
	for len(w.buf) == 0 {
		_, data, err := w.conn.Read(w.ctx)
		if err != nil {
			return 0, err
		}
		w.buf = data
	}
	n := copy(p, w.buf)
	w.buf = w.buf[n:]
	return n, nil
}

func (w *wsConn) Write(p []byte) (int, error) {
	if err := w.conn.Write(w.ctx, websocket.MessageText, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsConn) Close() error {
	return w.conn.Close(websocket.StatusNormalClosure, "")
}
