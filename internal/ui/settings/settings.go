package settings

import (
	"fmt"
	"strconv"
	"unicode"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/adibhanna/focusflow/internal/models"
	"github.com/adibhanna/focusflow/internal/storage"
	"github.com/adibhanna/focusflow/internal/timer"
)

type field struct {
	label       string
	placeholder string
	charLimit   int
}

var fields = []field{
	{"Focus Length (minutes):", "50", 3},
	{"Short Break Length (minutes):", "5", 2},
	{"Long Break Length (minutes):", "15", 3},
	{"Daily Focus Goal (phases):", "8", 2},
}

type Model struct {
	storage      *storage.Storage
	config       models.Config
	inputs       []textinput.Model
	focusIndex   int
	saved        bool
	reset        bool
	confirmReset bool
	errorMsg     string
	width        int
	height       int
}

func New(storage *storage.Storage) (Model, error) {
	config, err := storage.GetConfig()
	if err != nil {
		return Model{}, err
	}

	// Only digits may be typed
	numericValidation := func(text string) error {
		for _, char := range text {
			if !unicode.IsDigit(char) {
				return fmt.Errorf("only numbers allowed")
			}
		}
		return nil
	}

	inputs := make([]textinput.Model, len(fields))
	for i, f := range fields {
		inputs[i] = textinput.New()
		inputs[i].Placeholder = f.placeholder
		inputs[i].CharLimit = f.charLimit
		inputs[i].Width = 20
		inputs[i].Validate = numericValidation
	}
	inputs[0].Focus()

	m := Model{
		storage: storage,
		inputs:  inputs,
	}
	m.load(config)
	return m, nil
}

func (m *Model) load(config models.Config) {
	m.config = config
	m.inputs[0].SetValue(strconv.Itoa(config.FocusMinutes))
	m.inputs[1].SetValue(strconv.Itoa(config.ShortBreakMinutes))
	m.inputs[2].SetValue(strconv.Itoa(config.LongBreakMinutes))
	m.inputs[3].SetValue(strconv.Itoa(config.DailyFocusGoal))
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Tab), key.Matches(msg, keys.Down):
			m.focusIndex = (m.focusIndex + 1) % len(m.inputs)
			return m.updateFocus(), nil

		case key.Matches(msg, keys.ShiftTab), key.Matches(msg, keys.Up):
			m.focusIndex = (m.focusIndex - 1 + len(m.inputs)) % len(m.inputs)
			return m.updateFocus(), nil

		case key.Matches(msg, keys.Save):
			if err := m.saveConfig(); err != nil {
				m.errorMsg = err.Error()
				m.saved = false
				return m, nil
			}
			m.saved = true
			m.errorMsg = ""
			return m, tea.Quit

		case key.Matches(msg, keys.Reset):
			if !m.confirmReset {
				m.confirmReset = true
				return m, nil
			}
			if err := m.resetAllData(); err != nil {
				m.errorMsg = err.Error()
				m.confirmReset = false
				return m, nil
			}
			m.reset = true
			return m, tea.Quit

		case key.Matches(msg, keys.Back), key.Matches(msg, keys.Quit):
			if m.confirmReset {
				m.confirmReset = false
				return m, nil
			}
			return m, tea.Quit
		}
	}

	cmd := m.updateInputs(msg)
	return m, cmd
}

func (m Model) updateFocus() tea.Model {
	for i := range m.inputs {
		if i == m.focusIndex {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
	return m
}

func (m *Model) updateInputs(msg tea.Msg) tea.Cmd {
	cmds := make([]tea.Cmd, len(m.inputs))
	for i := range m.inputs {
		oldValue := m.inputs[i].Value()
		m.inputs[i], cmds[i] = m.inputs[i].Update(msg)
		if m.inputs[i].Value() != oldValue {
			m.errorMsg = ""
		}
	}
	return tea.Batch(cmds...)
}

func (m *Model) values() []string {
	out := make([]string, len(m.inputs))
	for i := range m.inputs {
		out[i] = m.inputs[i].Value()
	}
	return out
}

func (m *Model) saveConfig() error {
	config, err := Apply(m.config, m.values())
	if err != nil {
		return err
	}
	m.config = config
	return m.storage.SaveConfig(config)
}

// Apply validates the form values (focus, short break, long break, daily goal)
// and returns base updated with them. The current background is kept.
func Apply(base models.Config, values []string) (models.Config, error) {
	if len(values) != len(fields) {
		return base, fmt.Errorf("expected %d values, got %d", len(fields), len(values))
	}

	phases := []struct {
		phase timer.Phase
		name  string
	}{
		{timer.PhaseFocus, "focus length"},
		{timer.PhaseShortBreak, "short break length"},
		{timer.PhaseLongBreak, "long break length"},
	}
	for i, p := range phases {
		if values[i] == "" {
			return base, fmt.Errorf("%s is required", p.name)
		}
		n, err := strconv.Atoi(values[i])
		lo, hi := models.MinuteRange(p.phase)
		if err != nil || n < lo || n > hi {
			return base, fmt.Errorf("%s must be between %d-%d minutes", p.name, lo, hi)
		}
		base = base.WithMinutes(p.phase, n)
	}

	if values[3] == "" {
		return base, fmt.Errorf("daily focus goal is required")
	}
	goal, err := strconv.Atoi(values[3])
	if err != nil || goal < 1 || goal > 24 {
		return base, fmt.Errorf("daily goal must be between 1-24 focus phases")
	}
	base.DailyFocusGoal = goal

	return base, nil
}

func (m *Model) resetAllData() error {
	if err := m.storage.ResetAllData(); err != nil {
		return err
	}
	m.load(models.DefaultConfig())
	return nil
}

func (m Model) Saved() bool {
	return m.saved
}

func (m Model) WasReset() bool {
	return m.reset
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	containerStyle := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Padding(4)

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF7CCB")).
		MarginBottom(3).
		Align(lipgloss.Center)

	formStyle := lipgloss.NewStyle().
		Align(lipgloss.Left).
		MarginTop(2).
		MarginBottom(2)

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FDFF8C")).
		MarginBottom(1)

	inputStyle := lipgloss.NewStyle().
		MarginBottom(2)

	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#4CAF50")).
		Bold(true).
		MarginTop(2)

	title := titleStyle.Render("⚙️  Settings")

	var form string
	for i, f := range fields {
		form += labelStyle.Render(f.label) + "\n"
		form += inputStyle.Render(m.inputs[i].View()) + "\n"
	}

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		formStyle.Render(form),
		m.renderHelp(),
	)

	if m.saved {
		content += "\n" + successStyle.Render("✅ Settings saved successfully!")
	}

	if m.reset {
		content += "\n" + successStyle.Render("🔄 All data reset successfully!")
	}

	if m.confirmReset {
		warningStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true).
			MarginTop(2)
		content += "\n" + warningStyle.Render("⚠️  WARNING: This will delete ALL completed phases and reset settings!")
	}

	if m.errorMsg != "" {
		errorStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true).
			MarginTop(2)
		content += "\n" + errorStyle.Render("❌ "+m.errorMsg)
	}

	return containerStyle.Render(content)
}

func (m Model) renderHelp() string {
	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666")).
		MarginTop(2)

	if m.confirmReset {
		return helpStyle.Render("⚠️  Press 'r' again to confirm RESET (deletes all data) • b: cancel")
	}

	return helpStyle.Render("tab/↓: next field • shift+tab/↑: previous • s: save • r: reset all data • b: back • q: quit")
}

type keyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Up       key.Binding
	Down     key.Binding
	Save     key.Binding
	Reset    key.Binding
	Back     key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next field"),
	),
	ShiftTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "previous field"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "previous field"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "next field"),
	),
	Save: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "save"),
	),
	Reset: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reset all data"),
	),
	Back: key.NewBinding(
		key.WithKeys("b", "esc"),
		key.WithHelp("b", "back"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
