// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/gnsslink/pkg/gnss"
)

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for info
}

// TUI model
type model struct {
	connInfo      string
	statsInterval int
	showAll       bool
	session       *Session
	stats         *gnss.Statistics
	sync          syncTracker
	lastOverflow  uint64
	eventLog      []eventLogEntry
	maxLogEntries int
	names         table.Model
	lastFix       *fixInfo
	stopped       error
	width         int
	height        int
	quitting      bool
}

// Messages
type tickMsg time.Time
type frameMsg struct {
	msg *gnss.Message
}
type stoppedMsg struct {
	err error
}

// formatUptime formats a duration in milliseconds to a human-friendly string
func formatUptime(ms uint64) string {
	if ms == 0 {
		return "0 seconds"
	}

	seconds := ms / 1000
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	seconds %= 60
	minutes %= 60
	hours %= 24

	unit := func(n uint64, name string) string {
		if n == 1 {
			return "1 " + name
		}
		return fmt.Sprintf("%d %ss", n, name)
	}

	parts := []string{}
	if days > 0 {
		parts = append(parts, unit(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, unit(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, unit(minutes, "minute"))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, unit(seconds, "second"))
	}

	// Join with commas and "and" for last item
	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	last := parts[len(parts)-1]
	rest := strings.Join(parts[:len(parts)-1], ", ")
	return rest + ", and " + last
}

func newNamesTable() table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Message", Width: 14},
			{Title: "Count", Width: 10},
		}),
		table.WithHeight(8),
		table.WithFocused(false),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.Foreground(lipgloss.NoColor{}).Bold(false)
	t.SetStyles(s)
	return t
}

// nameRows sorts message counts by count, then name
func nameRows(byName map[string]uint64) []table.Row {
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if byName[names[i]] != byName[names[j]] {
			return byName[names[i]] > byName[names[j]]
		}
		return names[i] < names[j]
	})

	rows := make([]table.Row, len(names))
	for i, name := range names {
		rows[i] = table.Row{name, fmt.Sprintf("%d", byName[name])}
	}
	return rows
}

func initialModel(session *Session, statsInterval int, showAll bool) model {
	return model{
		connInfo:      session.Info,
		statsInterval: statsInterval,
		showAll:       showAll,
		session:       session,
		stats:         session.Link.Stats,
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		names:         newNamesTable(),
		width:         80,
		height:        24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.refresh()
		return m, tickCmd()

	case stoppedMsg:
		m.refresh()
		m.stopped = msg.err
		if errors.Is(msg.err, io.EOF) {
			if err := m.session.Err(); err != nil && !isClosed(err) {
				m.addLogEntry(fmt.Sprintf("Connection closed: %v", err), true)
			} else {
				m.addLogEntry("Connection closed", false)
			}
		} else {
			m.addLogEntry(fmt.Sprintf("Read failed: %v", msg.err), true)
		}

	case frameMsg:
		if m.sync.observe(msg.msg) {
			if m.sync.invalidBytes > 0 {
				m.addLogEntry(fmt.Sprintf("Synchronized after skipping %d invalid bytes", m.sync.invalidBytes), false)
			} else {
				m.addLogEntry("Synchronized", false)
			}
		}

		if fix, ok := parseGGA(msg.msg); ok {
			m.lastFix = fix
		}

		switch {
		case m.sync.isStreamError(msg.msg):
			m.addLogEntry(fmt.Sprintf("UNRECOGNIZED: %d bytes skipped", len(msg.msg.Data)), true)
		case m.showAll:
			m.addLogEntry(fmt.Sprintf("%s %s (valid)", msg.msg.Kind, msg.msg.Name()), false)
		}
	}

	return m, nil
}

// refresh pulls overflow counts into the statistics and updates the table
func (m *model) refresh() {
	m.lastOverflow = m.session.SyncOverflow(m.lastOverflow)
	m.stats.CalculateRates()
	m.names.SetRows(nameRows(m.stats.Snapshot().ByName))
}

func (m *model) addLogEntry(message string, isError bool) {
	entry := eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	snap := m.stats.Snapshot()

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("GNSSLINK - STREAM MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Running %s | Mode: %s | Press 'q' to quit",
		m.connInfo, formatUptime(uint64(time.Since(snap.StartTime).Milliseconds())), func() string {
			if m.showAll {
				return "All frames"
			}
			return "Errors only"
		}())))
	s.WriteString("\n\n")

	// Sync status
	switch {
	case m.stopped != nil:
		s.WriteString(errorStyle.Render("✗ Connection stopped"))
	case !m.sync.synchronized:
		s.WriteString(warningStyle.Render("⏳ Waiting for synchronization..."))
	default:
		s.WriteString(statsValueStyle.Render("✓ Synchronized"))
		if m.sync.invalidBytes > 0 {
			s.WriteString(headerStyle.Render(fmt.Sprintf(" (skipped %d invalid bytes)", m.sync.invalidBytes)))
		}
	}
	s.WriteString("\n\n")

	// Statistics
	totalErrors := snap.UnknownRuns + snap.ChecksumErrors + snap.Stalls
	var validPercent float64
	if snap.Messages > 0 {
		validPercent = float64(snap.UBXFrames+snap.NMEASentences) * 100.0 / float64(snap.Messages)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Total:"), statsValueStyle.Render(fmt.Sprintf("%d", snap.Messages)),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", snap.UBXFrames+snap.NMEASentences, validPercent)),
		statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d", totalErrors)),
	))
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
		statsLabelStyle.Render("UBX:"), statsValueStyle.Render(fmt.Sprintf("%d", snap.UBXFrames)),
		statsLabelStyle.Render("NMEA:"), statsValueStyle.Render(fmt.Sprintf("%d", snap.NMEASentences)),
	))

	if snap.UnknownRuns > 0 || snap.ChecksumErrors > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s (%d bytes)   %s %s\n",
			statsLabelStyle.Render("Unknown:"), errorStyle.Render(fmt.Sprintf("%d", snap.UnknownRuns)), snap.UnknownBytes,
			statsLabelStyle.Render("Checksum Errors:"), errorStyle.Render(fmt.Sprintf("%d", snap.ChecksumErrors)),
		))
	}

	if snap.Stalls > 0 || snap.OverflowBytes > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			statsLabelStyle.Render("Stalls:"), warningStyle.Render(fmt.Sprintf("%d", snap.Stalls)),
			statsLabelStyle.Render("Overflow:"), warningStyle.Render(fmt.Sprintf("%d bytes", snap.OverflowBytes)),
		))
	}

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Message Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f msg/s", snap.MessageRate)),
		statsLabelStyle.Render("Error Rate:"), func() string {
			if snap.ErrorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f err/s", snap.ErrorRate))
			}
			return statsValueStyle.Render(fmt.Sprintf("%.1f err/s", snap.ErrorRate))
		}(),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Message counts beside the latest fix
	left := boxStyle.Render(m.names.View())
	if m.lastFix != nil {
		fix := strings.Builder{}
		fix.WriteString(statsLabelStyle.Render("Latest Fix"))
		fix.WriteString("\n")
		fix.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Time:"), statsValueStyle.Render(m.lastFix.time)))
		fix.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Quality:"), statsValueStyle.Render(fixQualityName(m.lastFix.quality))))
		fix.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Satellites:"), statsValueStyle.Render(fmt.Sprintf("%d", m.lastFix.satellites))))
		fix.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("HDOP:"), statsValueStyle.Render(fmt.Sprintf("%.1f", m.lastFix.hdop))))
		fix.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Lat:"), statsValueStyle.Render(m.lastFix.latitude)))
		fix.WriteString(fmt.Sprintf("%s %s", statsLabelStyle.Render("Lon:"), statsValueStyle.Render(m.lastFix.longitude)))
		if m.lastFix.hasAlt {
			fix.WriteString(fmt.Sprintf("\n%s %s", statsLabelStyle.Render("Alt:"), statsValueStyle.Render(fmt.Sprintf("%.1f m", m.lastFix.altitude))))
		}
		s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, " ", boxStyle.Render(fix.String())))
	} else {
		s.WriteString(left)
	}
	s.WriteString("\n\n")

	// Event log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 28 // Reserve space for header, stats and table
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}
