package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoServer(t *testing.T) string {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, append([]byte("echo:"), data...)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDialers(t *testing.T) {
	endpoint := echoServer(t)

	for _, kind := range []string{"gorilla", "coder"} {
		t.Run(kind, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			d, err := NewDialer(kind)
			require.NoError(t, err)

			conn, err := d.Dial(ctx, endpoint)
			require.NoError(t, err)

			require.NoError(t, conn.WriteMessage(ctx, []byte(`{"command":"capture"}`)))
			got, err := conn.ReadMessage(ctx)
			require.NoError(t, err)
			assert.Equal(t, `echo:{"command":"capture"}`, string(got))

			assert.NoError(t, conn.Close())
		})
	}
}

func TestDialRefused(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := "ws" + strings.TrimPrefix(srv.URL, "http")

	for _, kind := range []string{"gorilla", "coder"} {
		d, err := NewDialer(kind)
		require.NoError(t, err)
		_, err = d.Dial(ctx, endpoint)
		assert.ErrorContains(t, err, "404", kind)
	}
	srv.Close()
}

func TestNewDialerUnknown(t *testing.T) {
	_, err := NewDialer("carrier-pigeon")
	assert.ErrorIs(t, err, ErrUnknownTransport)

	d, err := NewDialer("")
	require.NoError(t, err)
	assert.IsType(t, &GorillaDialer{}, d)
}
