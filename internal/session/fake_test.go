package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AlverezYari/featherlink/internal/transport"
)

// fakeConn is an in-memory transport.Conn. Tests push inbound messages with
// deliver and inspect what the session wrote with sent.
type fakeConn struct {
	inbound chan []byte
	closed  chan struct{}

	mu       sync.Mutex
	written  []string
	writeErr error
	once     sync.Once
	reads    atomic.Int64
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage(ctx context.Context) ([]byte, error) {
	c.reads.Add(1)
	select {
	case b := <-c.inbound:
		return b, nil
	case <-c.closed:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeConn) WriteMessage(_ context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.written = append(c.written, string(data))
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// deliver hands raw to the read loop and returns once the session has
// finished handling it, which is when the loop asks for the next message.
func (c *fakeConn) deliver(raw string) {
	c.inbound <- []byte(raw)
	n := c.reads.Load()
	deadline := time.Now().Add(2 * time.Second)
	for c.reads.Load() <= n && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
}

// hangUp simulates the remote end closing the connection.
func (c *fakeConn) hangUp() { c.Close() }

func (c *fakeConn) sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.written...)
}

func (c *fakeConn) failWrites(err error) {
	c.mu.Lock()
	c.writeErr = err
	c.mu.Unlock()
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

type fakeDialer struct {
	conn  *fakeConn
	err   error
	block chan struct{}
}

func (d *fakeDialer) Dial(ctx context.Context, _ string) (transport.Conn, error) {
	if d.block != nil {
		select {
		case <-d.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

var errBoom = errors.New("boom")
