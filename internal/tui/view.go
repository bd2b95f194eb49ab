// internal/tui/view.go
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/AlverezYari/featherlink/pkg/camera"
)

// Style definitions
var (
	headerStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("0")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("237")).
			Foreground(lipgloss.Color("250")).
			Padding(0, 1)

	mainContentStyle = lipgloss.NewStyle().
				Padding(1, 0)

	tabStyle = lipgloss.NewStyle().
			Padding(0, 1)

	activeTabStyle = tabStyle.
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("0"))

	buttonStyle = lipgloss.NewStyle().
			Padding(0, 1).
			MarginRight(1).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("25"))

	disabledButtonStyle = buttonStyle.
				Foreground(lipgloss.Color("244")).
				Background(lipgloss.Color("238"))

	badgeStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var statusColors = map[camera.Status]lipgloss.Color{
	camera.StatusConnecting:   lipgloss.Color("214"),
	camera.StatusConnected:    lipgloss.Color("42"),
	camera.StatusDisconnected: lipgloss.Color("196"),
}

var activityColors = map[camera.Activity]lipgloss.Color{
	camera.ActivityIdle:      lipgloss.Color("245"),
	camera.ActivityStreaming: lipgloss.Color("33"),
	camera.ActivityCapturing: lipgloss.Color("170"),
}

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	timeStr := m.currentTime.Format("Mon Jan 2 15:04:05 2006")

	// Header with tabs
	headerContent := lipgloss.JoinHorizontal(
		lipgloss.Center,
		"📷 featherlink",
		lipgloss.NewStyle().
			Width(max(m.width-18, 0)).
			Align(lipgloss.Right).
			Render(timeStr),
	)

	header := headerStyle.Width(m.width).Render(headerContent)

	// Tabs
	tabs := m.renderTabs()

	// Main content from active tab
	mainContent := mainContentStyle.Render(m.renderActiveTabContent())

	// Status bar
	statusBar := statusBarStyle.Width(m.width).Render(
		fmt.Sprintf("Status: %s | Tab or 1-2: Switch Views | Press q to quit", m.status),
	)

	// Combine all sections
	return fmt.Sprintf("%s\n%s\n%s\n%s", header, tabs, mainContent, statusBar)
}

// Helper function to render tabs
func (m Model) renderTabs() string {
	var renderedTabs []string

	for _, t := range m.tabs {
		style := tabStyle
		if t.id == m.activeTab {
			style = activeTabStyle
		}
		renderedTabs = append(renderedTabs, style.Render(t.title))
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		renderedTabs...,
	)
}

// Helper function to render active tab content
func (m Model) renderActiveTabContent() string {
	switch m.activeTab {
	case cameraTab:
		return m.renderCamera()
	case logsTab:
		if len(m.logs) == 0 {
			return dimStyle.Render("No log output yet.")
		}
		return m.logViewport.View()
	}
	return ""
}

func (m Model) renderCamera() string {
	var content strings.Builder

	s := m.snapshot
	content.WriteString(fmt.Sprintf("Endpoint: %s\n", m.endpoint))
	content.WriteString("Connection: ")
	content.WriteString(badgeStyle.Foreground(statusColors[s.Status]).Render(s.Status.String()))
	content.WriteString("  Activity: ")
	content.WriteString(badgeStyle.Foreground(activityColors[s.Activity]).Render(s.Activity.String()))
	content.WriteString("\n")
	if m.lastErr != nil {
		content.WriteString(dimStyle.Render(m.lastErr.Error()))
		content.WriteString("\n")
	}
	content.WriteString("\n")
	content.WriteString(m.renderActions())
	content.WriteString("\n\n")

	if s.Frame == nil {
		content.WriteString(dimStyle.Render("No frame received."))
		return content.String()
	}

	uri := s.Frame.DataURI()
	if len(uri) > 48 {
		uri = uri[:48] + "…"
	}
	content.WriteString(dimStyle.Render(fmt.Sprintf("Frame #%d  %d bytes  %s  %s",
		s.Frame.Seq, len(s.Frame.Data), s.Frame.ReceivedAt.Format("15:04:05.000"), uri)))
	content.WriteString("\n")
	if m.previewErr != nil {
		content.WriteString(dimStyle.Render(fmt.Sprintf("[cannot preview frame: %v]", m.previewErr)))
	} else {
		content.WriteString(m.preview)
	}
	return content.String()
}

func (m Model) renderActions() string {
	var buttons []string
	for _, a := range actions {
		label := fmt.Sprintf("[%s] %s", a.key, a.label)
		switch {
		case a.command == camera.CommandStream && m.snapshot.Activity == camera.ActivityStreaming:
			label = fmt.Sprintf("[%s] Streaming...", a.key)
		case a.command == camera.CommandCapture && m.snapshot.Activity == camera.ActivityCapturing:
			label = fmt.Sprintf("[%s] Capturing...", a.key)
		}

		style := buttonStyle
		if !m.controller.Can(a.command) {
			style = disabledButtonStyle
		}
		buttons = append(buttons, style.Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, buttons...)
}
