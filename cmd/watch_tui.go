// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Mara Voss, FS Optics

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fsoptics/fsmctl/pkg/dim"
	"github.com/fsoptics/fsmctl/pkg/steer"
)

//////////////////////////////////////////////////////////////
// Model
//////////////////////////////////////////////////////////////

// watchModel is the Bubble Tea model for the watch TUI
type watchModel struct {
	ctrl     *steer.Controller
	connInfo string
	stats    dim.StatisticsSnapshot

	eventLog      []watchEvent
	maxLogEntries int

	editInput textinput.Model
	editing   bool

	width    int
	height   int
	quitting bool
}

type watchTickMsg time.Time

func initialWatchModel(ctrl *steer.Controller, connInfo string) watchModel {
	ti := textinput.New()
	ti.Placeholder = "x 0x7FFF"
	ti.Prompt = "set> "
	ti.CharLimit = 16
	ti.Width = 20

	return watchModel{
		ctrl:          ctrl,
		connInfo:      connInfo,
		stats:         ctrl.Stats().Snapshot(),
		eventLog:      make([]watchEvent, 0),
		maxLogEntries: 100,
		editInput:     ti,
		width:         80,
		height:        24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m watchModel) Init() tea.Cmd {
	return watchTickCmd()
}

func watchTickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return watchTickMsg(t)
	})
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case watchTickMsg:
		// Repaint and refresh the stats copy; the table itself is read
		// from the controller inside View
		m.stats = m.ctrl.Stats().Snapshot()
		return m, watchTickCmd()

	case watchBatchMsg:
		m.eventLog = append(m.eventLog, msg.events...)
		if len(m.eventLog) > m.maxLogEntries {
			m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
		}
	}

	return m, nil
}

func (m watchModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editing {
		switch msg.String() {
		case "esc":
			m.editing = false
			m.editInput.Blur()
			m.editInput.Reset()
			return m, nil

		case "enter":
			input := m.editInput.Value()
			m.editing = false
			m.editInput.Blur()
			m.editInput.Reset()
			m.applyEdit(input)
			return m, nil
		}

		var cmd tea.Cmd
		m.editInput, cmd = m.editInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "e":
		m.editing = true
		m.editInput.Focus()
		return m, textinput.Blink

	case "c":
		if !m.ctrl.Center() {
			m.addEvent("center: send failed", true)
		}

	case "i":
		if !m.ctrl.Initialize() {
			m.addEvent("initialize: send failed", true)
		}

	case "s":
		if !m.ctrl.Save() {
			m.addEvent("save: send failed", true)
		}
	}

	return m, nil
}

// applyEdit parses "<axis> <value>" from the edit field and sends it
func (m *watchModel) applyEdit(input string) {
	fields := strings.Fields(input)
	if len(fields) != 2 {
		m.addEvent(fmt.Sprintf("edit %q: want '<axis> <value>'", input), true)
		return
	}

	axis, err := steer.ParseAxis(fields[0])
	if err != nil {
		m.addEvent(fmt.Sprintf("edit: %v", err), true)
		return
	}
	value, err := parseShellValue(fields[1])
	if err != nil {
		m.addEvent(fmt.Sprintf("edit: %v", err), true)
		return
	}

	if !m.ctrl.Set(axis, value) {
		m.addEvent(fmt.Sprintf("set %s: send failed", axis), true)
	}
}

func (m *watchModel) addEvent(message string, isError bool) {
	m.eventLog = append(m.eventLog, watchEvent{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

func (m watchModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	staleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("FSMCTL - CHANNEL WATCH"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf(
		"%s | e=edit c=center i=init s=save q=quit", m.connInfo)))
	s.WriteString("\n\n")

	// Link status
	if m.ctrl.Attached() {
		s.WriteString(valueStyle.Render("✓ Link up"))
	} else {
		s.WriteString(errorStyle.Render("✗ Link lost - holding last known state"))
	}
	s.WriteString("\n\n")

	// Channel table
	tableContent := strings.Builder{}
	now := time.Now()
	for channel := uint8(0); channel < dim.ChannelCommand; channel++ {
		entry := m.ctrl.Table().Entry(channel)

		row := fmt.Sprintf("ch%d %-14s ", channel, dim.FormatChannel(channel))
		if !entry.Known {
			tableContent.WriteString(staleStyle.Render(row + "(unknown)"))
			tableContent.WriteString("\n")
			continue
		}

		age := now.Sub(entry.UpdatedAt)
		cell := fmt.Sprintf("%s0x%04X (%5d)  %s",
			row, entry.Value, entry.Value, age.Round(100*time.Millisecond))
		if age < time.Second {
			tableContent.WriteString(valueStyle.Render(cell))
		} else {
			tableContent.WriteString(staleStyle.Render(cell))
		}
		tableContent.WriteString("\n")
	}
	s.WriteString(boxStyle.Render(strings.TrimRight(tableContent.String(), "\n")))
	s.WriteString("\n\n")

	// Statistics
	stats := m.stats
	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("Decoded:"), valueStyle.Render(fmt.Sprintf("%d", stats.FramesDecoded)),
		labelStyle.Render("Sent:"), valueStyle.Render(fmt.Sprintf("%d", stats.FramesSent)),
		labelStyle.Render("Anomalous:"), func() string {
			if stats.AnomalousFrames > 0 {
				return warningStyle.Render(fmt.Sprintf("%d", stats.AnomalousFrames))
			}
			return valueStyle.Render("0")
		}(),
	))
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("INIT seen:"), valueStyle.Render(fmt.Sprintf("%d", stats.InitializeSeen)),
		labelStyle.Render("SAVE seen:"), valueStyle.Render(fmt.Sprintf("%d", stats.SaveSeen)),
		labelStyle.Render("Resync bytes:"), func() string {
			if stats.ResyncBytes > 0 {
				return warningStyle.Render(fmt.Sprintf("%d", stats.ResyncBytes))
			}
			return valueStyle.Render("0")
		}(),
	))
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		labelStyle.Render("Frame rate:"), valueStyle.Render(fmt.Sprintf("%.1f/s", stats.FrameRate)),
		labelStyle.Render("Write failures:"), func() string {
			if stats.WriteFailures > 0 {
				return errorStyle.Render(fmt.Sprintf("%d", stats.WriteFailures))
			}
			return valueStyle.Render("0")
		}(),
	))
	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Edit field
	if m.editing {
		s.WriteString(m.editInput.View())
		s.WriteString(headerStyle.Render("  (enter to send, esc to cancel)"))
		s.WriteString("\n\n")
	}

	// Frame log
	s.WriteString(labelStyle.Render("Recent Frames:"))
	s.WriteString("\n")

	logHeight := m.height - 22
	if logHeight < 4 {
		logHeight = 4
	}

	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no frames yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					headerStyle.Render(entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(strings.TrimRight(logContent.String(), "\n")))

	return s.String()
}
