// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/openaerial/surveyplan/pkg/transfer"
	"golang.org/x/sync/errgroup"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statsLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// Messages
type tickMsg time.Time
type progressMsg struct {
	current int
	total   int
	message string
}
type transferDoneMsg struct {
	result *transfer.Result
	err    error
}

// transferModel shows one running transfer.
type transferModel struct {
	title    string
	connInfo string
	cancel   context.CancelFunc

	spinner  spinner.Model
	progress progress.Model

	current  int
	total    int
	status   string
	started  time.Time
	elapsed  time.Duration
	eventLog []eventLogEntry
	maxLog   int

	done     bool
	result   *transfer.Result
	err      error
	quitting bool
	width    int
	height   int
}

func newTransferModel(title, connInfo string, cancel context.CancelFunc) transferModel {
	return transferModel{
		title:    title,
		connInfo: connInfo,
		cancel:   cancel,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(warningStyle)),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		status:   "Connecting...",
		started:  time.Now(),
		maxLog:   100,
		width:    80,
		height:   24,
	}
}

func (m transferModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m transferModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if !m.done {
				m.cancel()
				m.addLogEntry("Cancelled by user", true)
			}
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 10), 80)

	case tickMsg:
		if m.done {
			return m, nil
		}
		m.elapsed = time.Since(m.started)
		return m, tickCmd()

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressMsg:
		m.current = msg.current
		m.total = msg.total
		if msg.message != m.status {
			m.status = msg.message
			m.addLogEntry(msg.message, false)
		}

	case transferDoneMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		m.elapsed = time.Since(m.started)
		if msg.err != nil {
			m.addLogEntry(msg.err.Error(), true)
		}
		return m, tea.Quit
	}

	return m, nil
}

func (m *transferModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	// Keep only last N entries
	if len(m.eventLog) > m.maxLog {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLog:]
	}
}

func (m transferModel) percent() float64 {
	if m.total <= 0 {
		return 0
	}
	return float64(m.current) / float64(m.total)
}

func (m transferModel) View() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render(strings.ToUpper(m.title)))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("Connection: %s | Press 'q' to cancel", m.connInfo)))
	s.WriteString("\n\n")

	// Status line
	switch {
	case !m.done:
		s.WriteString(m.spinner.View() + " " + warningStyle.Render(m.status))
	case m.err != nil:
		s.WriteString(errorStyle.Render("✗ " + m.err.Error()))
	default:
		s.WriteString(statsValueStyle.Render("✓ " + m.status))
	}
	s.WriteString("\n\n")

	stats := strings.Builder{}
	stats.WriteString(m.progress.ViewAs(m.percent()))
	stats.WriteString("\n")
	stats.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Items:"), statsValueStyle.Render(fmt.Sprintf("%d / %d", m.current, m.total)),
		statsLabelStyle.Render("Elapsed:"), statsValueStyle.Render(m.elapsed.Round(time.Second).String()),
	))
	if m.result != nil {
		resends := statsValueStyle.Render(fmt.Sprintf("%d", m.result.Resends))
		if m.result.Resends > 0 {
			resends = warningStyle.Render(fmt.Sprintf("%d", m.result.Resends))
		}
		stats.WriteString(fmt.Sprintf("   %s %s   %s %s",
			statsLabelStyle.Render("Resends:"), resends,
			statsLabelStyle.Render("Status:"), statsValueStyle.Render(m.result.Status.String()),
		))
	}
	s.WriteString(boxStyle.Render(stats.String()))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := max(m.height-14, 5)
	startIdx := max(len(m.eventLog)-logHeight, 0)

	logContent := strings.Builder{}
	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for _, entry := range m.eventLog[startIdx:] {
			timestamp := entry.timestamp.Format("15:04:05.000")
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
	s.WriteString(boxStyle.Width(max(m.width-4, 20)).Render(logContent.String()))
	s.WriteString("\n")

	return s.String()
}

// transferFunc runs one transfer, reporting to obs.
type transferFunc func(ctx context.Context, obs transfer.Observer) (*transfer.Result, error)

// runTransferTUI runs fn while a bubbletea program shows its progress.
// Quitting the program cancels the transfer.
func runTransferTUI(ctx context.Context, title, connInfo string, fn transferFunc, extra transfer.Observer) (*transfer.Result, error) {
	tctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newTransferModel(title, connInfo, cancel))
	obs := transfer.Observers{
		transfer.ObserverFunc(func(current, total int, msg string) {
			p.Send(progressMsg{current: current, total: total, message: msg})
		}),
		extra,
	}

	var (
		res *transfer.Result
		err error
	)
	g := new(errgroup.Group)
	g.Go(func() error {
		_, runErr := p.Run()
		cancel()
		return runErr
	})
	g.Go(func() error {
		res, err = fn(tctx, obs)
		p.Send(transferDoneMsg{result: res, err: err})
		return nil
	})
	if uiErr := g.Wait(); uiErr != nil {
		logger.Warn("TUI error", "error", uiErr.Error())
	}
	return res, err
}
