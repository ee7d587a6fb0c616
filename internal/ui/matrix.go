package ui

import (
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/nick-dorsch/eisen/internal/ui/components"
	"github.com/nick-dorsch/eisen/pkg/models"
)

var (
	axisStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Italic(true)
)

// RenderMatrix lays the four quadrants out as a 2x2 grid: important on top,
// urgent on the left. Tasks with a deadline at or before now are marked
// overdue.
func RenderMatrix(matrix map[models.Quadrant][]*models.Task, width int, now time.Time) string {
	cellWidth := width/2 - 2
	if cellWidth < 20 {
		cellWidth = 20
	}

	box := func(q models.Quadrant) string {
		b := components.NewQuadrantBox(q, matrix[q], cellWidth)
		b.Now = now
		return b.View()
	}

	top := lipgloss.JoinHorizontal(lipgloss.Top, box(models.QuadrantDo), box(models.QuadrantSchedule))
	bottom := lipgloss.JoinHorizontal(lipgloss.Top, box(models.QuadrantDelegate), box(models.QuadrantEliminate))

	axis := axisStyle.Render("urgent ←→ not urgent  ·  important ↑↓ not important")
	return lipgloss.JoinVertical(lipgloss.Left, top, bottom, axis)
}
