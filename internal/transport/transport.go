// Package transport adapts websocket libraries to the text-message
// connection a camera session needs.
package transport

import (
	"context"

	"github.com/pkg/errors"
)

var ErrUnknownTransport = errors.New("unknown transport")

// Conn is a message oriented, bidirectional connection carrying text frames.
type Conn interface {
	ReadMessage(ctx context.Context) ([]byte, error)
	WriteMessage(ctx context.Context, data []byte) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, endpoint string) (Conn, error)
}

// NewDialer returns the dialer for kind: "gorilla" (default) or "coder".
func NewDialer(kind string) (Dialer, error) {
	switch kind {
	case "", "gorilla":
		return NewGorillaDialer(), nil
	case "coder":
		return NewCoderDialer(), nil
	default:
		return nil, errors.Wrapf(ErrUnknownTransport, "%q", kind)
	}
}
