package transport

import (
	"context"

	"github.com/coder/websocket"
	"github.com/pkg/errors"
)

// Camera frames are base64 JPEGs and easily exceed coder's 32 KiB default.
const readLimit = 16 << 20

type CoderDialer struct{}

func NewCoderDialer() *CoderDialer { return &CoderDialer{} }

func (d *CoderDialer) Dial(ctx context.Context, endpoint string) (Conn, error) {
	ws, resp, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "dial %s: http status %d", endpoint, resp.StatusCode)
		}
		return nil, errors.Wrapf(err, "dial %s", endpoint)
	}
	ws.SetReadLimit(readLimit)
	return &CoderConn{ws: ws}, nil
}

type CoderConn struct {
	ws *websocket.Conn
}

func (c *CoderConn) ReadMessage(ctx context.Context) ([]byte, error) {
	_, data, err := c.ws.Read(ctx)
	return data, err
}

func (c *CoderConn) WriteMessage(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.ws.Write(ctx, websocket.MessageText, data)
}

func (c *CoderConn) Close() error {
	return c.ws.Close(websocket.StatusNormalClosure, "")
}
