package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	logoStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	commandStyle     = lipgloss.NewStyle().PaddingLeft(2).Width(16)
	activeStyle      = commandStyle.Foreground(lipgloss.Color("12")).Bold(true)
	descriptionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const logo = `
        _
   ___ (_)  ___   ___   _ __
  / _ \| | / __| / _ \ | '_ \
 |  __/| | \__ \|  __/ | | | |
  \___||_| |___/ \___| |_| |_|

  do · schedule · delegate · eliminate
`

// MenuCommand is one entry of the start menu. Name is the CLI subcommand it
// runs.
type MenuCommand struct {
	Name        string
	Description string
}

// MenuCommands lists the commands that need no arguments, in menu order.
var MenuCommands = []MenuCommand{
	{Name: "init", Description: "create the database and config"},
	{Name: "serve", Description: "run the API and escalation scheduler"},
	{Name: "matrix", Description: "show open tasks by quadrant"},
	{Name: "list-tasks", Description: "list every task by deadline"},
	{Name: "scan", Description: "run one escalation scan now"},
	{Name: "watch", Description: "live matrix with scheduled scans"},
}

// MenuModel lets the user pick a command when eisen runs without one.
type MenuModel struct {
	commands []MenuCommand
	cursor   int
	chosen   *MenuCommand
	quitting bool
}

func NewMenuModel() MenuModel {
	return MenuModel{commands: MenuCommands}
}

func (m MenuModel) Init() tea.Cmd {
	return nil
}

func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "q", "esc":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		m.cursor = max(m.cursor-1, 0)
	case "down", "j":
		m.cursor = min(m.cursor+1, len(m.commands)-1)
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = len(m.commands) - 1
	case "enter":
		cmd := m.commands[m.cursor]
		m.chosen = &cmd
		return m, tea.Quit
	}
	return m, nil
}

func (m MenuModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(logoStyle.Render(logo))
	b.WriteString("\n\n")

	for i, cmd := range m.commands {
		if i == m.cursor {
			b.WriteString(activeStyle.Render("> " + cmd.Name))
		} else {
			b.WriteString(commandStyle.Render("  " + cmd.Name))
		}
		b.WriteString(descriptionStyle.Render(cmd.Description))
		b.WriteString("\n")
	}

	b.WriteString(descriptionStyle.Render("\n↑/k ↓/j move · enter run · q quit"))
	b.WriteString("\n")
	return b.String()
}

// Selected returns the chosen command name, or "" if the menu was quit.
func (m MenuModel) Selected() string {
	if m.chosen == nil {
		return ""
	}
	return m.chosen.Name
}

// RunMenu shows the menu and returns the selected command name.
func RunMenu() (string, error) {
	final, err := tea.NewProgram(NewMenuModel()).Run()
	if err != nil {
		return "", err
	}
	return final.(MenuModel).Selected(), nil
}
