package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	outputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	scrollbarTrackStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("236"))

	scrollbarHandleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))
)

// ScanLog renders the scan history in a scrolling viewport. Only the most
// recent Limit lines are kept.
type ScanLog struct {
	viewport viewport.Model
	lines    []string
	ready    bool
	width    int
	height   int

	Limit int
}

func NewScanLog(width, height int) *ScanLog {
	return &ScanLog{
		viewport: viewport.New(width, height),
		width:    width,
		height:   height,
		Limit:    500,
	}
}

func (l *ScanLog) SetSize(width, height int) {
	l.width = width
	l.height = height
	vpWidth := width
	if width > 0 {
		vpWidth = width - 1
	}
	if !l.ready {
		l.viewport = viewport.New(vpWidth, height)
		l.ready = true
	} else {
		l.viewport.Width = vpWidth
		l.viewport.Height = height
	}
	l.updateContent()
}

func (l *ScanLog) Append(line string) {
	l.lines = append(l.lines, line)
	if l.Limit > 0 && len(l.lines) > l.Limit {
		l.lines = l.lines[len(l.lines)-l.Limit:]
	}
	l.updateContent()
}

func (l *ScanLog) AppendStatus(status string) {
	l.Append(statusStyle.Render(fmt.Sprintf("--- %s ---", status)))
}

func (l *ScanLog) Lines() []string {
	return l.lines
}

func (l *ScanLog) Reset() {
	l.lines = nil
	l.updateContent()
}

func (l *ScanLog) updateContent() {
	content := strings.Join(l.lines, "\n")
	if width := l.viewport.Width; width > 0 {
		content = outputStyle.Width(width).Render(content)
	} else {
		content = outputStyle.Render(content)
	}
	l.viewport.SetContent(content)
	l.viewport.GotoBottom()
}

func (l *ScanLog) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	l.viewport, cmd = l.viewport.Update(msg)
	return cmd
}

func (l *ScanLog) View() string {
	if !l.ready {
		return ""
	}

	if l.viewport.TotalLineCount() <= l.viewport.Height {
		return l.viewport.View()
	}

	h := l.viewport.Height
	handlePos := int(float64(h-1) * l.viewport.ScrollPercent())

	var sb strings.Builder
	for i := 0; i < h; i++ {
		if i == handlePos {
			sb.WriteString(scrollbarHandleStyle.Render("┃"))
		} else {
			sb.WriteString(scrollbarTrackStyle.Render("│"))
		}
		if i < h-1 {
			sb.WriteString("\n")
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, l.viewport.View(), sb.String())
}
