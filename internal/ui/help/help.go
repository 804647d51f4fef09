package help

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type Model struct {
	width  int
	height int
	quit   bool
}

func New() Model {
	return Model{}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Back) {
			m.quit = true
		}
	}

	return m, nil
}

type entry struct {
	keys string
	desc string
}

var sections = []struct {
	title   string
	entries []entry
}{
	{"⏱️  Timer Controls", []entry{
		{"space", "Start or pause the countdown"},
		{"s", "Start"},
		{"p", "Pause"},
		{"r", "Reset the current phase to its full length"},
		{"1 / 2 / 3", "Switch to focus / short break / long break"},
		{"+ / -", "Lengthen or shorten the current phase by a minute"},
	}},
	{"🧭 Navigation", []entry{
		{"t", "Today's and this week's stats"},
		{"g", "Open settings"},
		{"? / f1", "Show this help page"},
		{"b / esc", "Go back"},
		{"q / Ctrl+C", "Quit the application"},
	}},
}

func (m Model) View() string {
	width, height := m.width, m.height
	if width == 0 {
		width = 100
	}
	if height == 0 {
		height = 30
	}

	containerStyle := lipgloss.NewStyle().
		Width(width).
		Height(height).
		Padding(2)

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF7CCB")).
		Align(lipgloss.Center).
		MarginBottom(1)

	sectionTitleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FDFF8C")).
		MarginBottom(1).
		MarginTop(1)

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#4CAF50")).
		Bold(true)

	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#CCCCCC"))

	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666")).
		MarginTop(2).
		Align(lipgloss.Center)

	parts := []string{titleStyle.Render("🆘 Focus Flow Help")}
	for _, s := range sections {
		lines := make([]string, len(s.entries))
		for i, e := range s.entries {
			lines[i] = fmt.Sprintf("%s - %s", keyStyle.Render(e.keys), descStyle.Render(e.desc))
		}
		parts = append(parts, sectionTitleStyle.Render(s.title), strings.Join(lines, "\n"))
	}

	parts = append(parts,
		sectionTitleStyle.Render("🍅 Cycles"),
		descStyle.Render(
			"Phases advance on their own: focus is followed by a short break, and\n"+
				"every fourth completed focus phase earns a long break. Switching phases\n"+
				"by hand does not count as a completed cycle.\n\n"+
				"The countdown follows the wall clock, so a busy or suspended terminal\n"+
				"never makes it drift. Completed phases are stored in ~/.focusflow/."),
		footerStyle.Render("Press 'b/esc' to go back"),
	)

	return containerStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) ShouldQuit() bool {
	return m.quit
}

// Reset clears the quit flag so the screen can be shown again.
func (m *Model) Reset() {
	m.quit = false
}

type keyMap struct {
	Back key.Binding
}

var keys = keyMap{
	Back: key.NewBinding(
		key.WithKeys("b", "esc", "q", "?", "f1"),
		key.WithHelp("b/esc", "back"),
	),
}
