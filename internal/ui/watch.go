package ui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/nick-dorsch/eisen/internal/escalation"
	"github.com/nick-dorsch/eisen/internal/ui/components"
	"github.com/nick-dorsch/eisen/pkg/models"
)

var (
	headerTextStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(0, 1)

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// MatrixLoader reads the current matrix from the store.
type MatrixLoader func(ctx context.Context) (map[models.Quadrant][]*models.Task, error)

type matrixMsg struct {
	matrix map[models.Quadrant][]*models.Task
	err    error
}

type scanEventMsg escalation.ScanEvent

// WatchModel shows the live matrix and a log of scheduler scans. The matrix
// is reloaded after every scan event.
type WatchModel struct {
	events <-chan escalation.ScanEvent
	load   MatrixLoader
	now    func() time.Time

	matrix  map[models.Quadrant][]*models.Task
	log     *components.ScanLog
	loadErr error

	scans     int
	escalated int
	skipped   int
	failed    int
	lastScan  time.Time

	threshold int
	width     int
	height    int
	ready     bool
	quitting  bool
}

func NewWatchModel(events <-chan escalation.ScanEvent, load MatrixLoader, thresholdDays int) *WatchModel {
	return &WatchModel{
		events:    events,
		load:      load,
		now:       time.Now,
		log:       components.NewScanLog(80, 8),
		threshold: thresholdDays,
	}
}

func (m *WatchModel) Init() tea.Cmd {
	return tea.Batch(m.loadMatrix(), m.pollEvents())
}

func (m *WatchModel) pollEvents() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return nil
		}
		return scanEventMsg(ev)
	}
}

func (m *WatchModel) loadMatrix() tea.Cmd {
	return func() tea.Msg {
		matrix, err := m.load(context.Background())
		return matrixMsg{matrix: matrix, err: err}
	}
}

func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			cmds = append(cmds, m.loadMatrix())
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.log.SetSize(m.width, m.logHeight())

	case matrixMsg:
		if msg.err != nil {
			m.loadErr = msg.err
		} else {
			m.loadErr = nil
			m.matrix = msg.matrix
		}

	case scanEventMsg:
		m.record(escalation.ScanEvent(msg))
		cmds = append(cmds, m.loadMatrix(), m.pollEvents())
	}

	if cmd := m.log.Update(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *WatchModel) record(ev escalation.ScanEvent) {
	stamp := ev.At.Format(time.TimeOnly)

	switch {
	case ev.Skipped:
		m.skipped++
		m.log.Append(fmt.Sprintf("%s  skipped: previous scan still running", stamp))
	case ev.Err != nil:
		m.failed++
		m.log.Append(errorStyle.Render(fmt.Sprintf("%s  scan failed: %v", stamp, ev.Err)))
	case ev.Result != nil:
		m.scans++
		m.lastScan = ev.At
		m.escalated += len(ev.Result.Escalated)
		m.log.Append(fmt.Sprintf("%s  scanned %d open, escalated %d (cutoff %s)",
			stamp, ev.Result.Scanned, len(ev.Result.Escalated), ev.Result.Cutoff.Format(time.DateTime)))
		for _, t := range ev.Result.Escalated {
			m.log.Append(fmt.Sprintf("          ↑ %s", t.Title))
		}
	}
}

func (m *WatchModel) logHeight() int {
	h := m.height / 4
	if h < 3 {
		h = 3
	}
	return h
}

func (m *WatchModel) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Waiting for the first scan..."
	}

	header := m.renderHeader()

	var body string
	if m.loadErr != nil {
		body = errorStyle.Render(fmt.Sprintf("Error loading matrix: %v", m.loadErr))
	} else {
		body = RenderMatrix(m.matrix, m.width, m.now())
	}

	help := helpStyle.Render("Press 'q' to quit • 'r' to reload the matrix")
	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.log.View(), help)
}

func (m *WatchModel) renderHeader() string {
	last := "never"
	if !m.lastScan.IsZero() {
		last = m.lastScan.Format(time.DateTime)
	}

	text := headerTextStyle.Render(fmt.Sprintf("Eisen | threshold %d days | last scan %s", m.threshold, last))
	stats := statsStyle.Render(fmt.Sprintf("scans %d · escalated %d · skipped %d · failed %d",
		m.scans, m.escalated, m.skipped, m.failed))
	return lipgloss.JoinHorizontal(lipgloss.Center, text, "  ", stats)
}

// RunWatch runs the watch view until the user quits or ctx is cancelled.
func RunWatch(ctx context.Context, events <-chan escalation.ScanEvent, load MatrixLoader, thresholdDays int) error {
	m := NewWatchModel(events, load, thresholdDays)
	p := tea.NewProgram(m, tea.WithAltScreen())

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	_, err := p.Run()
	return err
}
