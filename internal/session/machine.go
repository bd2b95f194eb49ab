package session

import (
	"time"

	"github.com/AlverezYari/featherlink/pkg/camera"
)

// Snapshot is an immutable view of a session at one Version.
type Snapshot struct {
	Version  uint64
	Status   camera.Status
	Activity camera.Activity
	Frame    *camera.Frame
}

// Effect reports what an inbound message changed.
type Effect struct {
	Type             camera.MessageType
	FrameUpdated     bool
	CaptureCompleted bool
}

// Machine is the connection and activity state machine. It performs no I/O:
// Apply tells the caller what to send, Receive consumes what arrived. It is
// not safe for concurrent use.
type Machine struct {
	version  uint64
	status   camera.Status
	activity camera.Activity
	frame    *camera.Frame
	frames   uint64
	now      func() time.Time
}

func NewMachine() *Machine {
	return &Machine{
		status:   camera.StatusConnecting,
		activity: camera.ActivityIdle,
		now:      time.Now,
	}
}

// Connected moves connecting to connected. Any other state is left alone.
func (m *Machine) Connected() bool {
	if m.status != camera.StatusConnecting {
		return false
	}
	m.status = camera.StatusConnected
	m.version++
	return true
}

// Closed moves to the terminal disconnected state and abandons any stream or
// capture in flight. It reports whether anything changed.
func (m *Machine) Closed() bool {
	if m.status == camera.StatusDisconnected {
		return false
	}
	m.status = camera.StatusDisconnected
	m.activity = camera.ActivityIdle
	m.version++
	return true
}

// Can reports whether cmd's precondition holds.
func (m *Machine) Can(cmd camera.Command) bool {
	if m.status != camera.StatusConnected {
		return false
	}
	switch cmd {
	case camera.CommandStream:
		return m.activity != camera.ActivityStreaming
	case camera.CommandStopStream:
		return m.activity == camera.ActivityStreaming
	case camera.CommandCapture:
		return m.activity != camera.ActivityCapturing
	case camera.CommandStopCapture:
		return m.activity == camera.ActivityCapturing
	}
	return false
}

// Apply runs cmd through the precondition table. When it holds, the activity
// transition is applied and true is returned: the caller must put cmd on the
// wire. Otherwise nothing changes.
func (m *Machine) Apply(cmd camera.Command) bool {
	if !m.Can(cmd) {
		return false
	}
	switch cmd {
	case camera.CommandStream:
		m.activity = camera.ActivityStreaming
	case camera.CommandCapture:
		m.activity = camera.ActivityCapturing
	case camera.CommandStopStream, camera.CommandStopCapture:
		m.activity = camera.ActivityIdle
	}
	m.version++
	return true
}

// Receive handles one inbound message. Any message carrying data replaces the
// retained frame; only an "image" message completes a capture. Streams are
// never completed by the server. Decode failures leave the state untouched.
func (m *Machine) Receive(raw []byte) (Effect, error) {
	if m.status == camera.StatusDisconnected {
		return Effect{}, nil
	}

	msg, err := camera.DecodeInbound(raw)
	if err != nil {
		return Effect{}, err
	}

	eff := Effect{Type: msg.Type}
	if msg.Data != nil {
		m.frames++
		m.frame = &camera.Frame{
			Data:       *msg.Data,
			Seq:        m.frames,
			ReceivedAt: m.now(),
		}
		eff.FrameUpdated = true
	}
	if msg.Type == camera.MessageImage && m.activity == camera.ActivityCapturing {
		m.activity = camera.ActivityIdle
		eff.CaptureCompleted = true
	}
	if eff.FrameUpdated || eff.CaptureCompleted {
		m.version++
	}
	return eff, nil
}

func (m *Machine) Status() camera.Status     { return m.status }
func (m *Machine) Activity() camera.Activity { return m.activity }

func (m *Machine) Snapshot() Snapshot {
	s := Snapshot{
		Version:  m.version,
		Status:   m.status,
		Activity: m.activity,
	}
	if m.frame != nil {
		f := *m.frame
		s.Frame = &f
	}
	return s
}
