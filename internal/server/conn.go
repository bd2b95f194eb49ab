package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AlverezYari/featherlink/pkg/camera"
)

// cameraConn is one client of the simulator. Commands are read on the
// handler goroutine; a stream runs on its own goroutine, so writes go
// through writeMu.
type cameraConn struct {
	srv    *Server
	ws     *websocket.Conn
	remote string

	writeMu sync.Mutex

	mu         sync.Mutex
	stopStream chan struct{}
	streamDone chan struct{}
	closeOnce  sync.Once
}

func newCameraConn(srv *Server, ws *websocket.Conn, remote string) *cameraConn {
	return &cameraConn{srv: srv, ws: ws, remote: remote}
}

func (c *cameraConn) serve() {
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.srv.addLog("ERROR", fmt.Sprintf("Error reading message from websocket: %v", err))
			}
			return
		}

		msg, err := camera.DecodeCommand(raw)
		if err != nil {
			c.srv.addLog("ERROR", fmt.Sprintf("Ignoring message from %s: %v", c.remote, err))
			continue
		}
		c.srv.addLog("DEBUG", fmt.Sprintf("Command %q from %s", msg.Command, c.remote))

		switch msg.Command {
		case camera.CommandCapture:
			if err := c.sendFrame(camera.MessageImage); err != nil {
				c.srv.addLog("ERROR", fmt.Sprintf("Error sending capture: %v", err))
				return
			}
		case camera.CommandStopCapture:
			// Captures are answered immediately, nothing is ever pending.
		case camera.CommandStream:
			c.startStream()
		case camera.CommandStopStream:
			c.endStream()
		default:
			c.srv.addLog("ERROR", fmt.Sprintf("Unknown command %q from %s", msg.Command, c.remote))
		}
	}
}

func (c *cameraConn) sendFrame(t camera.MessageType) error {
	jpeg, err := c.srv.source.Frame()
	if err != nil {
		return fmt.Errorf("capture frame: %w", err)
	}
	payload, err := camera.EncodeInbound(t, jpeg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		return err
	}
	c.srv.metrics.SimulatorFramesSent.WithLabelValues(string(t)).Inc()
	return nil
}

func (c *cameraConn) startStream() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopStream != nil {
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	c.stopStream, c.streamDone = stop, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(c.srv.interval)
		defer ticker.Stop()
		for {
			if err := c.sendFrame(camera.MessageStream); err != nil {
				c.srv.addLog("ERROR", fmt.Sprintf("Stream to %s ended: %v", c.remote, err))
				return
			}
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}()
	c.srv.addLog("INFO", fmt.Sprintf("Streaming to %s every %s", c.remote, c.srv.interval))
}

// endStream stops the stream goroutine and waits for it, so no stream frame
// is written after stop_stream has been handled.
func (c *cameraConn) endStream() {
	c.mu.Lock()
	stop, done := c.stopStream, c.streamDone
	c.stopStream, c.streamDone = nil, nil
	c.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
	c.srv.addLog("INFO", fmt.Sprintf("Stream to %s stopped", c.remote))
}

func (c *cameraConn) close() {
	c.closeOnce.Do(func() {
		c.ws.Close()
		c.endStream()
	})
}
