// internal/tui/update.go
package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/AlverezYari/featherlink/internal/session"
)

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logViewport.Width = msg.Width
		m.logViewport.Height = max(msg.Height-6, 3)
		if f := m.snapshot.Frame; f != nil {
			m.preview, m.previewErr = renderPreview(*f, m.previewCols())
		}

	case tickMsg:
		m.currentTime = time.Time(msg)
		return m, timeTickCmd()

	case openedMsg:
		if msg.err != nil {
			m.lastErr = msg.err
			m.addLog(fmt.Sprintf("[ERROR] %v", msg.err))
		}
		m.applySnapshot(m.controller.Snapshot())

	case snapshotMsg:
		m.applySnapshot(session.Snapshot(msg))

	case logLineMsg:
		m.addLog(string(msg))

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.controller.Close()
			return m, tea.Quit
		case "1":
			m.activeTab = cameraTab
		case "2":
			m.activeTab = logsTab
		case "tab":
			// Cycle through tabs
			m.activeTab = (m.activeTab + 1) % tabType(len(m.tabs))
		default:
			if m.activeTab == logsTab {
				var cmd tea.Cmd
				m.logViewport, cmd = m.logViewport.Update(msg)
				return m, cmd
			}
			for _, a := range actions {
				if msg.String() != a.key {
					continue
				}
				// The session rejects it too; checking here keeps a
				// disabled button from looking pressed.
				if m.controller.Can(a.command) {
					a.run(m.controller)
					m.applySnapshot(m.controller.Snapshot())
				}
			}
		}

	case tea.MouseMsg:
		if m.activeTab == logsTab {
			var cmd tea.Cmd
			m.logViewport, cmd = m.logViewport.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}
