package stats

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/adibhanna/focusflow/internal/models"
	"github.com/adibhanna/focusflow/internal/storage"
)

type ViewType int

const (
	DayView ViewType = iota
	WeekView
)

// Model shows today's or this week's completed phases. It is hosted inside
// the timer screen and reports Closed instead of quitting the program.
type Model struct {
	viewType      ViewType
	storage       *storage.Storage
	dayStats      models.DayStats
	weekStats     models.WeekStats
	exportDir     string
	width         int
	height        int
	exportMessage string
	showMessage   bool
	closed        bool
}

func New(viewType ViewType, storage *storage.Storage) (Model, error) {
	m := Model{
		viewType: viewType,
		storage:  storage,
	}
	err := m.Load(time.Now())
	return m, err
}

// Load refreshes both views for the day and ISO week containing now.
func (m *Model) Load(now time.Time) error {
	day, err := m.storage.GetDayStats(now.Format("2006-01-02"))
	if err != nil {
		return err
	}
	year, week := now.ISOWeek()
	weekStats, err := m.storage.GetWeekStats(year, week)
	if err != nil {
		return err
	}
	m.dayStats = day
	m.weekStats = weekStats
	m.closed = false
	return nil
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
		switch {
		case key.Matches(msg, keys.Back):
			m.closed = true
			return m, nil
		case key.Matches(msg, keys.Day):
			m.viewType = DayView
		case key.Matches(msg, keys.Week):
			m.viewType = WeekView
		case key.Matches(msg, keys.Switch):
			m.viewType = (m.viewType + 1) % 2
		case key.Matches(msg, keys.Export):
			return m, m.exportStats()
		}

	case exportResultMsg:
		m.exportMessage = msg.message
		m.showMessage = true
		return m, tea.Tick(time.Second*3, func(t time.Time) tea.Msg {
			return clearMessageMsg{}
		})

	case clearMessageMsg:
		m.showMessage = false
		m.exportMessage = ""
		return m, nil
	}

	return m, nil
}

type clearMessageMsg struct{}

// Closed reports whether the user asked to leave the stats screen.
func (m Model) Closed() bool {
	return m.closed
}

func (m Model) View() string {
	width, height := m.width, m.height
	if width == 0 {
		width, height = 100, 30
	}

	containerStyle := lipgloss.NewStyle().
		Width(width).
		Height(height).
		Padding(2)

	var content string
	switch m.viewType {
	case WeekView:
		content = m.renderWeekView()
	default:
		content = m.renderDayView()
	}

	return containerStyle.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		content,
		m.renderHelp(),
	))
}

func (m Model) renderDayView() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF7CCB")).
		MarginBottom(2)

	statsStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FDFF8C")).
		MarginBottom(1)

	phaseStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888")).
		PaddingLeft(2)

	date, _ := time.Parse("2006-01-02", m.dayStats.Date)
	title := titleStyle.Render(fmt.Sprintf("📊 Daily Stats - %s", date.Format("Monday, January 2, 2006")))

	stats := statsStyle.Render(fmt.Sprintf(
		"Focus Phases: %d | Focus Time: %s | Break Time: %s",
		m.dayStats.FocusCount,
		formatMinutes(m.dayStats.FocusMinutes),
		formatMinutes(m.dayStats.BreakMinutes),
	))

	var phases string
	if len(m.dayStats.Phases) == 0 {
		phases = phaseStyle.Render("Nothing completed yet today. Time to focus! 🚀")
	} else {
		phases = "\nCompleted Phases:\n"
		for i, r := range m.dayStats.Phases {
			phases += phaseStyle.Render(fmt.Sprintf(
				"✅ %d. %s: %s - %s (%d min)",
				i+1,
				r.Phase.Label(),
				r.StartTime.Format("3:04 PM"),
				r.EndTime.Format("3:04 PM"),
				r.Seconds/60,
			)) + "\n"
		}
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		stats,
		phases,
	)
}

func (m Model) renderWeekView() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF7CCB")).
		MarginBottom(2)

	statsStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FDFF8C")).
		MarginBottom(1)

	dayStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888")).
		PaddingLeft(2)

	title := titleStyle.Render(fmt.Sprintf("📅 Weekly Stats - Week %d, %d", m.weekStats.Week, m.weekStats.Year))

	stats := statsStyle.Render(fmt.Sprintf(
		"Focus Phases: %d | Focus Time: %s | Break Time: %s",
		m.weekStats.FocusCount,
		formatMinutes(m.weekStats.FocusMinutes),
		formatMinutes(m.weekStats.BreakMinutes),
	))

	var days string
	if len(m.weekStats.DailyStats) == 0 {
		days = dayStyle.Render("Nothing completed this week yet. Let's get started! 💪")
	} else {
		days = "\nDaily Breakdown:\n"
		for _, day := range m.weekStats.DailyStats {
			date, _ := time.Parse("2006-01-02", day.Date)
			days += dayStyle.Render(fmt.Sprintf(
				"%s: %d focus (%s)",
				date.Format("Monday"),
				day.FocusCount,
				formatMinutes(day.FocusMinutes),
			)) + "\n"
		}
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		stats,
		m.renderWeekChart(),
		days,
	)
}

func (m Model) renderWeekChart() string {
	chartStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666")).
		MarginTop(1).
		MarginBottom(1)

	counts := make(map[string]int)
	most := 0
	for _, day := range m.weekStats.DailyStats {
		date, _ := time.Parse("2006-01-02", day.Date)
		counts[date.Format("Mon")] = day.FocusCount
		most = max(most, day.FocusCount)
	}
	if most == 0 {
		return ""
	}

	const barHeight = 5
	days := []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

	var b strings.Builder
	b.WriteString("\n")
	for row := barHeight; row > 0; row-- {
		for _, day := range days {
			level := int(float64(counts[day]) / float64(most) * barHeight)
			if level >= row {
				b.WriteString("█ ")
			} else {
				b.WriteString("  ")
			}
		}
		b.WriteString("\n")
	}
	for _, day := range days {
		b.WriteString(day[:2] + " ")
	}

	return chartStyle.Render(b.String())
}

func formatMinutes(total int) string {
	hours, mins := total/60, total%60
	switch {
	case hours > 0 && mins > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}

func (m Model) renderHelp() string {
	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666")).
		MarginTop(2)

	help := "d: today • w: this week • tab: switch • e: export • b: back"

	if m.showMessage && m.exportMessage != "" {
		messageStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)
		help = messageStyle.Render(m.exportMessage) + "\n" + help
	}

	return helpStyle.Render(help)
}

func (m Model) exportStats() tea.Cmd {
	store, dir := m.storage, m.exportDir
	return func() tea.Msg {
		path, err := store.SaveReport(time.Now(), dir)
		if err != nil {
			return exportResultMsg{success: false, message: fmt.Sprintf("Export failed: %v", err)}
		}
		return exportResultMsg{success: true, message: fmt.Sprintf("✅ Exported to %s", path)}
	}
}

type exportResultMsg struct {
	success bool
	message string
}

type keyMap struct {
	Back   key.Binding
	Day    key.Binding
	Week   key.Binding
	Switch key.Binding
	Export key.Binding
}

var keys = keyMap{
	Back: key.NewBinding(
		key.WithKeys("b", "esc", "t"),
		key.WithHelp("b", "back"),
	),
	Day: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "today"),
	),
	Week: key.NewBinding(
		key.WithKeys("w"),
		key.WithHelp("w", "this week"),
	),
	Switch: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch view"),
	),
	Export: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "export"),
	),
}
