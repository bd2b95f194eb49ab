package server

import (
	"bytes"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlverezYari/featherlink/internal/config"
	"github.com/AlverezYari/featherlink/internal/metrics"
	"github.com/AlverezYari/featherlink/pkg/camera"
)

func newTestServer(t *testing.T) (*Server, *metrics.Metrics, string) {
	t.Helper()
	m := metrics.New()
	srv := New(config.SimulatorConfig{Listen: "127.0.0.1:0", FrameInterval: 10 * time.Millisecond},
		camera.NewPatternSource(64, 48), zerolog.Nop(), m, nil)
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.closeConnections()
		hs.Close()
	})
	return srv, m, "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws/camera"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, cmd camera.Command) {
	t.Helper()
	raw, err := camera.EncodeCommand(cmd)
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, raw))
}

func receive(t *testing.T, ws *websocket.Conn) camera.InboundMessage {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := ws.ReadMessage()
	require.NoError(t, err)
	msg, err := camera.DecodeInbound(raw)
	require.NoError(t, err)
	return msg
}

func TestCaptureRepliesWithOneImage(t *testing.T) {
	_, m, url := newTestServer(t)
	ws := dial(t, url)

	send(t, ws, camera.CommandCapture)
	msg := receive(t, ws)
	assert.Equal(t, camera.MessageImage, msg.Type)
	require.NotNil(t, msg.Data)

	b, err := camera.Frame{Data: *msg.Data}.Decode()
	require.NoError(t, err)
	_, err = jpeg.Decode(bytes.NewReader(b))
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SimulatorFramesSent.WithLabelValues("image")))
}

func TestStreamUntilStopped(t *testing.T) {
	_, m, url := newTestServer(t)
	ws := dial(t, url)

	send(t, ws, camera.CommandStream)
	for i := 0; i < 3; i++ {
		assert.Equal(t, camera.MessageStream, receive(t, ws).Type)
	}

	send(t, ws, camera.CommandStopStream)
	// stop_stream waits for the stream goroutine, so a capture answered
	// afterwards means the count is final.
	send(t, ws, camera.CommandCapture)
	for receive(t, ws).Type != camera.MessageImage {
	}
	sent := testutil.ToFloat64(m.SimulatorFramesSent.WithLabelValues("stream"))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, sent, testutil.ToFloat64(m.SimulatorFramesSent.WithLabelValues("stream")))
}

func TestMalformedCommandIsIgnored(t *testing.T) {
	srv, _, url := newTestServer(t)
	ws := dial(t, url)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{nope")))
	send(t, ws, camera.CommandCapture)
	assert.Equal(t, camera.MessageImage, receive(t, ws).Type)

	var found bool
	for _, e := range srv.GetRecentLogs(0) {
		if e.Level == "ERROR" && strings.Contains(e.Message, "Ignoring message") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestConnectionTracking(t *testing.T) {
	srv, m, url := newTestServer(t)
	ws := dial(t, url)

	require.Eventually(t, func() bool { return srv.ConnectionCount() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SimulatorConnections))

	ws.Close()
	require.Eventually(t, func() bool { return srv.ConnectionCount() == 0 }, time.Second, time.Millisecond)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SimulatorConnections))
}

func TestStartStop(t *testing.T) {
	var forwarded []string
	srv := New(config.SimulatorConfig{Listen: "127.0.0.1:0", FrameInterval: time.Second},
		camera.NewPatternSource(0, 0), zerolog.Nop(), nil, func(level, message string) {
			forwarded = append(forwarded, level)
		})

	require.NoError(t, srv.Start())
	assert.True(t, srv.IsRunning())
	assert.NotEqual(t, "0", srv.Port())
	assert.Error(t, srv.Start())

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Stop())
	assert.False(t, srv.IsRunning())
	assert.Error(t, srv.Stop())

	assert.Contains(t, forwarded, "ERROR")
	assert.Contains(t, forwarded, "INFO")
}

func TestLogBufferIsBounded(t *testing.T) {
	srv := New(config.SimulatorConfig{}, camera.NewPatternSource(0, 0), zerolog.Nop(), nil, nil)
	for i := 0; i < logBufferSize+20; i++ {
		srv.addLog("INFO", "line")
	}
	assert.Len(t, srv.GetRecentLogs(0), logBufferSize)
	assert.Len(t, srv.GetRecentLogs(10), 10)
}
