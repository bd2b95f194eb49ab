package transport

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
)

type GorillaDialer struct {
	dialer *websocket.Dialer
}

func NewGorillaDialer() *GorillaDialer {
	return &GorillaDialer{
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

func (d *GorillaDialer) Dial(ctx context.Context, endpoint string) (Conn, error) {
	ws, resp, err := d.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "dial %s: http status %d", endpoint, resp.StatusCode)
		}
		return nil, errors.Wrapf(err, "dial %s", endpoint)
	}
	return NewGorillaConn(ws), nil
}

// GorillaConn wraps a gorilla connection. gorilla supports one concurrent
// reader and one concurrent writer, so writes are serialised here.
type GorillaConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func NewGorillaConn(ws *websocket.Conn) *GorillaConn {
	return &GorillaConn{ws: ws}
}

// ReadMessage blocks until a text or binary message arrives. ctx is only
// checked up front; Close unblocks a pending read.
func (c *GorillaConn) ReadMessage(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, data, err := c.ws.ReadMessage()
	return data, err
}

func (c *GorillaConn) WriteMessage(ctx context.Context, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close sends a normal closure frame on a best effort basis and releases the
// underlying connection.
func (c *GorillaConn) Close() error {
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.ws.Close()
}
