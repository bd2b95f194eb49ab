// internal/tui/model.go
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/AlverezYari/featherlink/internal/session"
	"github.com/AlverezYari/featherlink/pkg/camera"
)

type tabType int

const (
	cameraTab tabType = iota
	logsTab
)

type tab struct {
	title string
	id    tabType
}

// Controller is the part of a session the UI drives.
type Controller interface {
	Open(ctx context.Context) error
	Close() error
	Can(cmd camera.Command) bool
	Snapshot() session.Snapshot
	StartStream()
	StopStream()
	Capture()
	StopCapture()
}

// action is one of the four camera buttons.
type action struct {
	key     string
	label   string
	command camera.Command
	run     func(Controller)
}

var actions = []action{
	{"s", "Start Stream", camera.CommandStream, Controller.StartStream},
	{"x", "Stop Stream", camera.CommandStopStream, Controller.StopStream},
	{"c", "Capture Image", camera.CommandCapture, Controller.Capture},
	{"v", "Stop Capture", camera.CommandStopCapture, Controller.StopCapture},
}

const (
	maxLogLines  = 1000
	openTimeout  = 15 * time.Second
	previewWidth = 64
)

// Msg types
type tickMsg time.Time
type snapshotMsg session.Snapshot
type logLineMsg string
type openedMsg struct{ err error }

// Model holds our application state
type Model struct {
	endpoint    string
	controller  Controller
	width       int
	height      int
	status      string
	currentTime time.Time
	activeTab   tabType
	tabs        []tab
	quitting    bool

	snapshot    session.Snapshot
	preview     string
	previewErr  error
	previewSeq  uint64
	lastErr     error
	logViewport viewport.Model
	logs        []string // Log lines
}

// New returns a Model with initial state
func New(endpoint string, controller Controller) Model {
	return Model{
		endpoint:    endpoint,
		controller:  controller,
		status:      "Connecting...",
		currentTime: time.Now(),
		activeTab:   cameraTab,
		tabs: []tab{
			{title: "Camera", id: cameraTab},
			{title: "Logs", id: logsTab},
		},
		snapshot: controller.Snapshot(),
		logViewport: func() viewport.Model {
			vp := viewport.New(0, 10)
			vp.MouseWheelEnabled = true
			return vp
		}(),
		logs: make([]string, 0),
	}
}

// Init runs any initial IO
func (m Model) Init() tea.Cmd {
	return tea.Batch(timeTickCmd(), openCmd(m.controller))
}

func openCmd(c Controller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
		defer cancel()
		return openedMsg{err: c.Open(ctx)}
	}
}

func (m *Model) addLog(line string) {
	m.logs = append(m.logs, line)

	// Cap log buffer size
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[1:]
	}
	atBottom := m.logViewport.AtBottom()
	m.logViewport.SetContent(strings.Join(m.logs, "\n"))
	if atBottom {
		m.logViewport.GotoBottom()
	}
}

// applySnapshot keeps the newest snapshot and re-renders the preview when
// the frame changed.
func (m *Model) applySnapshot(s session.Snapshot) bool {
	if s.Version < m.snapshot.Version {
		return false
	}
	m.snapshot = s

	switch s.Status {
	case camera.StatusConnecting:
		m.status = "Connecting..."
	case camera.StatusConnected:
		m.status = "Connected - " + s.Activity.String()
	case camera.StatusDisconnected:
		m.status = "Disconnected"
	}

	if s.Frame != nil && s.Frame.Seq != m.previewSeq {
		m.previewSeq = s.Frame.Seq
		m.preview, m.previewErr = renderPreview(*s.Frame, m.previewCols())
	}
	return true
}

func (m Model) previewCols() int {
	cols := m.width - 4
	if cols <= 0 || cols > previewWidth {
		cols = previewWidth
	}
	return cols
}

// Helper command for time updates
func timeTickCmd() tea.Cmd {
	return tea.Every(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
