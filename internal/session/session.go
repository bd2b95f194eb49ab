// Package session owns one camera connection and the state machine that
// tracks it.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/AlverezYari/featherlink/internal/metrics"
	"github.com/AlverezYari/featherlink/internal/transport"
	"github.com/AlverezYari/featherlink/pkg/camera"
)

var (
	ErrDial           = errors.New("camera connection failed")
	ErrConnectionLost = errors.New("camera connection lost")
	ErrClosed         = errors.New("session closed")
)

// Listener receives a snapshot after every state change. It is called outside
// the session lock, possibly from the read loop goroutine, so snapshots can
// arrive out of order; compare Version and keep the highest.
type Listener func(Snapshot)

type Option func(*Session)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

func WithListener(fn Listener) Option {
	return func(s *Session) { s.listener = fn }
}

// Session is one lifetime of a camera connection, from dial to close. The
// connection handle never leaves the session. A disconnected session cannot
// be reopened; create a new one.
type Session struct {
	id       string
	endpoint string
	dialer   transport.Dialer
	log      zerolog.Logger
	metrics  *metrics.Metrics
	listener Listener

	mu      sync.Mutex
	machine *Machine
	conn    transport.Conn
	opened  bool
	err     error

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func New(dialer transport.Dialer, endpoint string, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:       uuid.NewString(),
		endpoint: endpoint,
		dialer:   dialer,
		log:      zerolog.Nop(),
		machine:  NewMachine(),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	s.log = s.log.With().Str("component", "session").Str("session", s.id).Logger()
	return s
}

func (s *Session) ID() string { return s.id }

// Open dials the endpoint. On success the session is connected and starts
// consuming inbound messages; on failure it is disconnected for good. Open
// may only be called once.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.machine.Status() == camera.StatusDisconnected {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.opened {
		s.mu.Unlock()
		return errors.New("session already opened")
	}
	s.opened = true
	s.mu.Unlock()

	s.log.Info().Str("endpoint", s.endpoint).Msg("connecting")

	dialCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	conn, err := s.dialer.Dial(dialCtx, s.endpoint)
	stop()
	cancel()

	s.mu.Lock()
	if s.machine.Status() == camera.StatusDisconnected {
		// Closed while dialling.
		s.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		close(s.done)
		return ErrClosed
	}
	if err != nil {
		s.err = fmt.Errorf("%w: %v", ErrDial, err)
		s.machine.Closed()
		snap := s.machine.Snapshot()
		s.mu.Unlock()

		s.cancel()
		close(s.done)
		s.log.Error().Err(err).Msg("connect failed")
		s.notify(true, snap)
		return s.err
	}
	s.conn = conn
	changed := s.machine.Connected()
	snap := s.machine.Snapshot()
	s.mu.Unlock()

	s.metrics.SessionsActive.Inc()
	s.log.Info().Msg("connected")
	s.notify(changed, snap)

	go s.readLoop(conn)
	return nil
}

func (s *Session) readLoop(conn transport.Conn) {
	defer close(s.done)

	for {
		raw, err := conn.ReadMessage(s.ctx)
		if err != nil {
			s.mu.Lock()
			local := s.machine.Status() == camera.StatusDisconnected
			s.mu.Unlock()
			if !local {
				s.log.Warn().Err(err).Msg("connection closed by peer")
				s.teardown(fmt.Errorf("%w: %v", ErrConnectionLost, err))
			}
			return
		}
		s.handle(raw)
	}
}

func (s *Session) handle(raw []byte) {
	s.mu.Lock()
	eff, err := s.machine.Receive(raw)
	snap := s.machine.Snapshot()
	s.mu.Unlock()

	if err != nil {
		s.metrics.MalformedTotal.Inc()
		s.log.Warn().Err(err).Int("bytes", len(raw)).Msg("dropping inbound message")
		return
	}
	if eff.FrameUpdated {
		s.metrics.FramesReceived.WithLabelValues(typeLabel(eff.Type)).Inc()
	}
	if eff.CaptureCompleted {
		s.log.Info().Msg("capture completed")
	}
	s.notify(eff.FrameUpdated || eff.CaptureCompleted, snap)
}

func typeLabel(t camera.MessageType) string {
	if t == "" {
		return "none"
	}
	return string(t)
}

func (s *Session) StartStream() { s.issue(camera.CommandStream) }
func (s *Session) StopStream()  { s.issue(camera.CommandStopStream) }
func (s *Session) Capture()     { s.issue(camera.CommandCapture) }
func (s *Session) StopCapture() { s.issue(camera.CommandStopCapture) }

// Can reports whether cmd would currently be accepted.
func (s *Session) Can(cmd camera.Command) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Can(cmd)
}

// issue applies cmd and writes it within one critical section, so the
// precondition cannot change between the check and the send. Rejected
// commands are dropped silently.
func (s *Session) issue(cmd camera.Command) {
	payload, err := camera.EncodeCommand(cmd)
	if err != nil {
		s.log.Error().Err(err).Msg("encode command")
		return
	}

	s.mu.Lock()
	if !s.machine.Apply(cmd) {
		s.mu.Unlock()
		s.metrics.CommandsRejected.WithLabelValues(string(cmd)).Inc()
		s.log.Debug().Str("command", string(cmd)).Msg("command rejected")
		return
	}
	err = s.conn.WriteMessage(s.ctx, payload)
	snap := s.machine.Snapshot()
	s.mu.Unlock()

	if err != nil {
		s.log.Warn().Err(err).Str("command", string(cmd)).Msg("send failed")
		s.teardown(fmt.Errorf("%w: %v", ErrConnectionLost, err))
		return
	}
	s.metrics.CommandsSent.WithLabelValues(string(cmd)).Inc()
	s.log.Debug().Str("command", string(cmd)).Str("activity", snap.Activity.String()).Msg("command sent")
	s.notify(true, snap)
}

// Close ends the session. It is safe to call more than once and from any
// goroutine; the connection is always released.
func (s *Session) Close() error {
	s.teardown(nil)
	return nil
}

func (s *Session) teardown(cause error) {
	s.mu.Lock()
	changed := s.machine.Closed()
	if !changed {
		s.mu.Unlock()
		return
	}
	if cause != nil && s.err == nil {
		s.err = cause
	}
	conn := s.conn
	s.conn = nil
	// Nothing will ever close done if Open never ran.
	neverOpened := !s.opened
	s.opened = true
	snap := s.machine.Snapshot()
	s.mu.Unlock()

	if neverOpened {
		close(s.done)
	}

	s.cancel()
	if conn != nil {
		if err := conn.Close(); err != nil {
			s.log.Debug().Err(err).Msg("close connection")
		}
		s.metrics.SessionsActive.Dec()
	}
	s.log.Info().Msg("disconnected")
	s.notify(true, snap)
}

func (s *Session) notify(changed bool, snap Snapshot) {
	if changed && s.listener != nil {
		s.listener(snap)
	}
}

// Done is closed once the session is disconnected and no more inbound
// messages will be processed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns why the session ended, or nil while it is alive or after a
// local Close.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Snapshot()
}

func (s *Session) Status() camera.Status     { return s.Snapshot().Status }
func (s *Session) Activity() camera.Activity { return s.Snapshot().Activity }

// Frame returns the latest frame, or nil if none has arrived.
func (s *Session) Frame() *camera.Frame { return s.Snapshot().Frame }
