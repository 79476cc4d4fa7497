package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"glovehome/internal/ipc"
	"glovehome/internal/sensorlog"
	"glovehome/internal/statefeed"
)

const recentRecords = 5

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	pathStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#7D56F4"))
	entryStyle    = lipgloss.NewStyle().PaddingLeft(2)
	bentStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F87"))
	straightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A8A8A8"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// sentMsg is the result of one IPC request.
type sentMsg struct{ err error }

type model struct {
	send func(ipc.Message) error

	linkUp  bool
	linkErr error
	sendErr error

	view       statefeed.View
	status     string
	flex       bool
	pattern    bool
	gesture    statefeed.Gesture
	connection statefeed.Connection
	logCount   int
	records    []sensorlog.Record

	table table.Model
}

func newModel(send func(ipc.Message) error) *model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Time", Width: 8},
			{Title: "Mode", Width: 10},
			{Title: "Flex", Width: 8},
			{Title: "IMU", Width: 26},
			{Title: "IR", Width: 18},
			{Title: "Gesture", Width: 22},
		}),
		table.WithHeight(recentRecords+1),
	)
	return &model{send: send, table: t}
}

func (m *model) Init() tea.Cmd { return nil }

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg.String())
	case frameMsg:
		m.apply(statefeed.Envelope(msg))
	case linkMsg:
		m.linkUp = msg.up
		m.linkErr = msg.err
	case sentMsg:
		m.sendErr = msg.err
	}
	return m, nil
}

func (m *model) handleKey(key string) tea.Cmd {
	switch key {
	case "q", "ctrl+c", "esc":
		return tea.Quit
	case "1", "2", "3", "4", "5", "6", "7", "8":
		return m.request(ipc.KeyShortcut{Key: int(key[0] - '0')})
	case "u":
		return m.request(ipc.Undo{})
	case "c":
		return m.request(ipc.ClearLogs{})
	}
	return nil
}

func (m *model) request(msg ipc.Message) tea.Cmd {
	send := m.send
	return func() tea.Msg { return sentMsg{err: send(msg)} }
}

// apply folds one feed frame into the dashboard state.
func (m *model) apply(env statefeed.Envelope) {
	switch env.Type {
	case statefeed.TypeStateInit:
		var s statefeed.Snapshot
		if env.Decode(&s) != nil {
			return
		}
		m.view = s.View
		m.status = s.Status
		m.flex = s.Flex.Bent
		m.gesture = s.Gesture
		m.connection = s.Connection
		m.logCount = s.LogCount
		m.records = s.Records
		m.pattern = false
	case statefeed.TypeViewChanged:
		_ = env.Decode(&m.view)
	case statefeed.TypeGestureOutcome:
		var o statefeed.Outcome
		if env.Decode(&o) == nil {
			m.status = o.Status
			m.pattern = false
		}
	case statefeed.TypeFlexChanged:
		var f statefeed.Flex
		if env.Decode(&f) == nil {
			m.flex = f.Bent
		}
	case statefeed.TypePatternDetected:
		m.pattern = true
	case statefeed.TypeSensorRecord:
		var r sensorlog.Record
		if env.Decode(&r) == nil {
			m.records = append([]sensorlog.Record{r}, m.records...)
			if len(m.records) > recentRecords {
				m.records = m.records[:recentRecords]
			}
		}
	case statefeed.TypeGestureChanged:
		_ = env.Decode(&m.gesture)
	case statefeed.TypeConnectionChanged:
		_ = env.Decode(&m.connection)
	case statefeed.TypeLogCount:
		var c statefeed.LogCount
		if env.Decode(&c) == nil {
			m.logCount = c.Count
		}
	case statefeed.TypeLogsCleared:
		m.records = nil
		m.logCount = 0
	}
}

func (m *model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("glovehome") + "  " + m.linkText() + "\n\n")

	var browser strings.Builder
	browser.WriteString(pathStyle.Render(m.view.Path) + "\n")
	if len(m.view.Entries) == 0 {
		browser.WriteString(entryStyle.Render("(empty)") + "\n")
	}
	for _, e := range m.view.Entries {
		line := e.Name
		if e.Folder {
			line += "/"
		} else {
			line = fmt.Sprintf("%-14s %s", e.Name, e.Value)
		}
		if e.Path == m.view.Selected {
			browser.WriteString(entryStyle.Render(selectedStyle.Render(line)) + "\n")
		} else {
			browser.WriteString(entryStyle.Render(line) + "\n")
		}
	}

	flex := straightStyle.Render("STRAIGHT")
	if m.flex {
		flex = bentStyle.Render("BENT")
	}
	if m.pattern {
		flex += " " + bentStyle.Render("double bend")
	}
	side := fmt.Sprintf("Flex:    %s\nGesture: %s\n%s\n\nCloud:   %s\nLogs:    %d",
		flex, orDash(m.gesture.Name), helpStyle.Render(m.gesture.Description), m.cloudText(), m.logCount)

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Width(40).Render(browser.String()),
		panelStyle.Width(44).Render(side)))
	b.WriteString("\n" + m.status + "\n\n")

	m.table.SetRows(recordRows(m.records))
	b.WriteString(m.table.View() + "\n\n")

	if m.sendErr != nil {
		b.WriteString(errorStyle.Render(m.sendErr.Error()) + "\n")
	}
	b.WriteString(helpStyle.Render("1-8 harness keys • u undo • c clear logs • q quit"))
	return b.String()
}

func (m *model) linkText() string {
	if m.linkUp {
		return pathStyle.Render("● live")
	}
	if m.linkErr != nil {
		return errorStyle.Render("○ " + m.linkErr.Error())
	}
	return helpStyle.Render("○ connecting")
}

func (m *model) cloudText() string {
	switch {
	case !m.connection.Enabled:
		return "disabled"
	case m.connection.Connected:
		return "connected"
	default:
		return "offline"
	}
}

func recordRows(recs []sensorlog.Record) []table.Row {
	rows := make([]table.Row, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, table.Row{
			r.Timestamp.Format("15:04:05"),
			r.Mode.String(),
			r.FlexLabel(),
			r.IMUText(),
			r.IRText(),
			r.Gesture,
		})
	}
	return rows
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
