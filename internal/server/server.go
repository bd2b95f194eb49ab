// internal/server/server.go
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/AlverezYari/featherlink/internal/config"
	"github.com/AlverezYari/featherlink/internal/metrics"
	"github.com/AlverezYari/featherlink/pkg/camera"
)

const (
	logBufferSize = 100
	writeWait     = 5 * time.Second
)

type LogEntry struct {
	Timestamp time.Time
	Level     string
	Message   string
}

// Server is a stand-in camera: it speaks the camera protocol on /ws/camera
// and serves frames from a FrameSource.
type Server struct {
	server    *http.Server
	listener  net.Listener
	listen    string
	interval  time.Duration
	source    camera.FrameSource
	log       zerolog.Logger
	metrics   *metrics.Metrics
	upgrader  websocket.Upgrader
	runMu     sync.Mutex
	isRunning bool

	logBuffer   []LogEntry
	logMutex    sync.RWMutex
	logCallback func(level, message string) // Callback for forwarding logs

	wsConnections   map[*cameraConn]bool
	wsConnectionsMu sync.Mutex
}

func New(cfg config.SimulatorConfig, source camera.FrameSource, log zerolog.Logger, m *metrics.Metrics, logCallback func(level, message string)) *Server {
	if m == nil {
		m = metrics.New()
	}
	return &Server{
		listen:      cfg.Listen,
		interval:    cfg.FrameInterval,
		source:      source,
		log:         log.With().Str("component", "simulator").Logger(),
		metrics:     m,
		logBuffer:   make([]LogEntry, 0, logBufferSize),
		logCallback: logCallback,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		wsConnections: make(map[*cameraConn]bool),
	}
}

// Handler returns the simulator's routes without starting a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/camera", s.handleWebSocketCamera)
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "featherlink camera simulator")
	})
	return mux
}

func (s *Server) Start() error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.isRunning {
		s.addLog("ERROR", fmt.Sprintf("Server is already running on %s", s.listen))
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		s.addLog("ERROR", fmt.Sprintf("Error listening on %s: %v", s.listen, err))
		return fmt.Errorf("listen %s: %w", s.listen, err)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			s.addLog("ERROR", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	s.isRunning = true
	s.addLog("INFO", fmt.Sprintf("Camera simulator listening on %s", ln.Addr()))
	return nil
}

func (s *Server) Stop() error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if !s.isRunning {
		s.addLog("ERROR", "Server stop requested, but server is not running")
		return fmt.Errorf("server is not running")
	}

	s.addLog("INFO", "Stopping server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Shutdown does not touch hijacked connections.
	s.closeConnections()

	if err := s.server.Shutdown(ctx); err != nil {
		s.addLog("ERROR", fmt.Sprintf("Server shutdown error: %v", err))
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.isRunning = false
	s.addLog("INFO", "Server stopped")
	return nil
}

func (s *Server) IsRunning() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.isRunning
}

// Addr is the bound address once started, otherwise the configured one.
func (s *Server) Addr() string {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.listener != nil && s.isRunning {
		return s.listener.Addr().String()
	}
	return s.listen
}

func (s *Server) Port() string {
	_, port, err := net.SplitHostPort(s.Addr())
	if err != nil {
		return ""
	}
	return port
}

func (s *Server) ConnectionCount() int {
	s.wsConnectionsMu.Lock()
	defer s.wsConnectionsMu.Unlock()
	return len(s.wsConnections)
}

func (s *Server) handleWebSocketCamera(w http.ResponseWriter, r *http.Request) {
	s.addLog("INFO", fmt.Sprintf("Websocket connection attempt from: %s", r.RemoteAddr))
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.addLog("ERROR", fmt.Sprintf("Error upgrading websocket connection: %v", err))
		return
	}

	conn := newCameraConn(s, ws, r.RemoteAddr)

	s.wsConnectionsMu.Lock()
	s.wsConnections[conn] = true
	s.wsConnectionsMu.Unlock()
	s.metrics.SimulatorConnections.Inc()
	s.addLog("INFO", fmt.Sprintf("Websocket connection established from: %s", r.RemoteAddr))

	defer func() {
		conn.close()
		s.wsConnectionsMu.Lock()
		delete(s.wsConnections, conn)
		s.wsConnectionsMu.Unlock()
		s.metrics.SimulatorConnections.Dec()
		s.addLog("INFO", fmt.Sprintf("Websocket connection closed: %s", r.RemoteAddr))
	}()

	conn.serve()
}

func (s *Server) closeConnections() {
	s.wsConnectionsMu.Lock()
	defer s.wsConnectionsMu.Unlock()
	for conn := range s.wsConnections {
		conn.close()
	}
}

// GetRecentLogs returns up to n of the newest log entries, oldest first.
func (s *Server) GetRecentLogs(n int) []LogEntry {
	s.logMutex.RLock()
	defer s.logMutex.RUnlock()
	if n <= 0 || n > len(s.logBuffer) {
		n = len(s.logBuffer)
	}
	out := make([]LogEntry, n)
	copy(out, s.logBuffer[len(s.logBuffer)-n:])
	return out
}

func (s *Server) addLog(level, message string) {
	logEntry := LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   fmt.Sprintf("[%s] %s", level, message),
	}

	s.logMutex.Lock()
	s.logBuffer = append(s.logBuffer, logEntry)
	if len(s.logBuffer) > logBufferSize {
		s.logBuffer = s.logBuffer[1:]
	}
	s.logMutex.Unlock()

	switch level {
	case "ERROR":
		s.log.Error().Msg(message)
	case "DEBUG":
		s.log.Debug().Msg(message)
	default:
		s.log.Info().Msg(message)
	}
	if s.logCallback != nil {
		s.logCallback(level, message)
	}
}
