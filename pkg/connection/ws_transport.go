package connection

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSDialer dials websocket endpoints with gorilla/websocket. It is the
// default production transport.
type WSDialer struct {
	// HandshakeTimeout bounds the upgrade handshake; the dial context
	// bounds the whole attempt.
	HandshakeTimeout time.Duration
	// WriteTimeout is applied per write on established connections.
	WriteTimeout time.Duration
	// Header is sent with the upgrade request, e.g. for auth cookies.
	Header http.Header
}

func (d *WSDialer) Dial(ctx context.Context, endpoint string) (Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	ws, resp, err := dialer.DialContext(ctx, endpoint, d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial %s: %w (status %s)", endpoint, err, resp.Status)
		}
		return nil, fmt.Errorf("websocket dial %s: %w", endpoint, err)
	}
	return &wsConn{ws: ws, writeTimeout: d.WriteTimeout}, nil
}

// wsConn wraps one websocket session. gorilla permits a single concurrent
// writer, so sends serialize behind a mutex (heartbeat and callers share
// the socket).
type wsConn struct {
	writeMu      sync.Mutex
	ws           *websocket.Conn
	writeTimeout time.Duration
}

func (c *wsConn) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Recv() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

func (c *wsConn) Close() error {
	// Best-effort close frame so the peer sees a clean shutdown.
	deadline := time.Now().Add(time.Second)
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return c.ws.Close()
}

var _ Dialer = (*WSDialer)(nil)
