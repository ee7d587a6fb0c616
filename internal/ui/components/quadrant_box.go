package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/nick-dorsch/eisen/pkg/models"
)

var (
	quadrantColors = map[models.Quadrant]lipgloss.Color{
		models.QuadrantDo:        lipgloss.Color("196"),
		models.QuadrantSchedule:  lipgloss.Color("39"),
		models.QuadrantDelegate:  lipgloss.Color("214"),
		models.QuadrantEliminate: lipgloss.Color("241"),
	}

	quadrantBoxStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				Padding(0, 1)

	subTitleStyle = lipgloss.NewStyle().
			Bold(true)

	dueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	overdueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	placeholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true)
)

// QuadrantBox renders one cell of the matrix.
type QuadrantBox struct {
	Quadrant models.Quadrant
	Tasks    []*models.Task
	Width    int

	// Now marks overdue deadlines. Zero disables the marking.
	Now time.Time
}

func NewQuadrantBox(q models.Quadrant, tasks []*models.Task, width int) *QuadrantBox {
	return &QuadrantBox{Quadrant: q, Tasks: tasks, Width: width}
}

// Title is the heading shown on the box, e.g. "1 · Do".
func (b *QuadrantBox) Title() string {
	label := b.Quadrant.String()
	if label != "" {
		label = strings.ToUpper(label[:1]) + label[1:]
	}
	return fmt.Sprintf("%d · %s (%d)", int(b.Quadrant), label, len(b.Tasks))
}

func (b *QuadrantBox) View() string {
	color := quadrantColors[b.Quadrant]
	style := quadrantBoxStyle.BorderForeground(color)
	if b.Width > 0 {
		style = style.Width(b.Width)
	}

	innerWidth := b.Width - 4
	if innerWidth < 0 {
		innerWidth = 0
	}

	var lines []string
	for _, t := range b.Tasks {
		lines = append(lines, b.renderTask(t, innerWidth)...)
	}

	body := placeholderStyle.Render("No tasks")
	if len(lines) > 0 {
		body = strings.Join(lines, "\n")
	}

	title := subTitleStyle.Foreground(color).Render(b.Title())
	return style.Render(title + "\n" + body)
}

func (b *QuadrantBox) renderTask(t *models.Task, width int) []string {
	due := "no deadline"
	dStyle := dueStyle
	if t.Deadline != nil {
		due = "due " + t.Deadline.Format(time.DateOnly)
		if !b.Now.IsZero() && !t.Deadline.After(b.Now) {
			due = "overdue " + t.Deadline.Format(time.DateOnly)
			dStyle = overdueStyle
		}
	}

	nameWidth := width - 2
	title := t.Title
	if nameWidth > 0 {
		title = lipgloss.NewStyle().Width(nameWidth).Render(t.Title)
	}

	var lines []string
	for i, line := range strings.Split(title, "\n") {
		if i == 0 {
			lines = append(lines, fmt.Sprintf("• %s", line))
		} else {
			lines = append(lines, fmt.Sprintf("  %s", line))
		}
	}
	lines = append(lines, "  "+dStyle.Render(due))
	return lines
}
