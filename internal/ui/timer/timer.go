// Package timer is the main screen: it hosts the countdown engine, drives it
// with frames, and records every phase that runs out.
package timer

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/adibhanna/focusflow/internal/models"
	"github.com/adibhanna/focusflow/internal/storage"
	engine "github.com/adibhanna/focusflow/internal/timer"
	"github.com/adibhanna/focusflow/internal/ui/help"
	"github.com/adibhanna/focusflow/internal/ui/stats"
)

const frameInterval = 100 * time.Millisecond

// frameMsg carries the generation of the frame chain that produced it, so a
// chain abandoned by Pause dies quietly instead of doubling the cadence.
type frameMsg struct {
	gen int
	at  time.Time
}

type viewState int

const (
	timerView viewState = iota
	helpView
	statsView
)

type Model struct {
	engine   *engine.Engine
	storage  *storage.Storage
	clock    engine.Clock
	config   models.Config
	today    models.DayStats
	progress progress.Model
	help     help.Model
	stats    stats.Model
	view     viewState

	frameGen int
	framing  bool

	notice       string
	width        int
	height       int
	quit         bool
	openSettings bool
}

// New builds the screen around eng, which outlives the screen so the countdown
// survives trips to the settings form.
func New(eng *engine.Engine, store *storage.Storage) (Model, error) {
	config, err := store.GetConfig()
	if err != nil {
		return Model{}, err
	}
	eng.SetLengths(config.PhaseLengths())

	statsModel, err := stats.New(stats.DayView, store)
	if err != nil {
		return Model{}, err
	}

	prog := progress.New(progress.WithScaledGradient("#FF7CCB", "#FDFF8C"))
	prog.Width = 60

	m := Model{
		engine:   eng,
		storage:  store,
		clock:    engine.SystemClock,
		config:   config,
		progress: prog,
		help:     help.New(),
		stats:    statsModel,
	}
	m.refreshToday(m.clock.Now())

	if eng.NeedsTick() {
		m.frameGen = 1
		m.framing = true
	}
	return m, nil
}

func (m Model) Init() tea.Cmd {
	if m.framing {
		return frameCmd(m.frameGen)
	}
	return nil
}

func frameCmd(gen int) tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg{gen: gen, at: t}
	})
}

// startFrames begins a new frame chain if the engine wants one and none is live.
func (m *Model) startFrames() tea.Cmd {
	if m.framing || !m.engine.NeedsTick() {
		return nil
	}
	m.frameGen++
	m.framing = true
	return frameCmd(m.frameGen)
}

func (m *Model) stopFrames() {
	m.frameGen++
	m.framing = false
}

func (m *Model) refreshToday(now time.Time) {
	today, err := m.storage.GetDayStats(now.Format("2006-01-02"))
	if err != nil {
		logrus.WithError(err).Warn("failed to load today's stats")
		return
	}
	m.today = today
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(msg.Width-20, 80)
		m.help, _ = m.help.Update(msg)
		m.stats, _ = m.stats.Update(msg)
		return m, nil

	case frameMsg:
		return m.onFrame(msg)

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, keys.ForceQuit) {
			m.quit = true
			return m, tea.Quit
		}
		switch m.view {
		case helpView:
			m.help, _ = m.help.Update(msg)
			if m.help.ShouldQuit() {
				m.help.Reset()
				m.view = timerView
			}
			return m, nil
		case statsView:
			var cmd tea.Cmd
			m.stats, cmd = m.stats.Update(msg)
			if m.stats.Closed() {
				m.view = timerView
			}
			return m, cmd
		}
		return m.onKey(msg)
	}

	if m.view == statsView {
		var cmd tea.Cmd
		m.stats, cmd = m.stats.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) onFrame(msg frameMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.frameGen || !m.framing {
		return m, nil
	}

	if adv, ok := m.engine.Tick(msg.at); ok {
		m.completePhase(adv, msg.at)
	}

	if !m.engine.NeedsTick() {
		m.framing = false
		return m, nil
	}
	return m, frameCmd(m.frameGen)
}

// completePhase records the phase that just ran out and refreshes today's totals.
func (m *Model) completePhase(adv engine.Advance, at time.Time) {
	log := logrus.WithFields(logrus.Fields{
		"from":   adv.From,
		"to":     adv.To,
		"cycles": adv.Cycles,
	})

	if seconds := int(math.Round(adv.Length)); seconds > 0 {
		record := models.NewPhaseRecord(uuid.New().String(), adv.From, seconds, at)
		if err := m.storage.SavePhase(record); err != nil {
			log.WithError(err).Error("failed to save completed phase")
		}
	}
	log.Info("phase completed")
	m.refreshToday(at)

	if adv.From != engine.PhaseFocus {
		m.notice = fmt.Sprintf("%s over. Ready for %s.", adv.From.Label(), adv.To.Label())
		return
	}
	if m.today.FocusCount >= m.config.DailyFocusGoal {
		m.notice = fmt.Sprintf("*** DAILY GOAL ACHIEVED! You completed %d/%d focus phases! ***",
			m.today.FocusCount, m.config.DailyFocusGoal)
		return
	}
	m.notice = fmt.Sprintf("*** Focus phase completed! Time for a %s. ***", strings.ToLower(adv.To.Label()))
}

func (m Model) onKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.quit = true
		return m, tea.Quit

	case key.Matches(msg, keys.Toggle):
		if m.engine.Running() {
			return m.pause()
		}
		return m.start()

	case key.Matches(msg, keys.Start):
		return m.start()

	case key.Matches(msg, keys.Pause):
		return m.pause()

	case key.Matches(msg, keys.Reset):
		m.engine.Reset()
		m.stopFrames()
		m.notice = ""
		return m, nil

	case key.Matches(msg, keys.Focus):
		return m.switchTo(engine.PhaseFocus)
	case key.Matches(msg, keys.ShortBreak):
		return m.switchTo(engine.PhaseShortBreak)
	case key.Matches(msg, keys.LongBreak):
		return m.switchTo(engine.PhaseLongBreak)

	case key.Matches(msg, keys.Longer):
		return m.adjustLength(1)
	case key.Matches(msg, keys.Shorter):
		return m.adjustLength(-1)

	case key.Matches(msg, keys.Help):
		m.view = helpView
		return m, nil

	case key.Matches(msg, keys.Stats):
		if err := m.stats.Load(m.clock.Now()); err != nil {
			logrus.WithError(err).Warn("failed to load stats")
		}
		m.view = statsView
		return m, nil

	case key.Matches(msg, keys.Settings):
		m.openSettings = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) start() (tea.Model, tea.Cmd) {
	if m.engine.Running() {
		return m, nil
	}
	m.engine.Start()
	if !m.engine.Running() {
		return m, nil
	}
	// Stamp the first frame now so the countdown starts at the key press.
	m.engine.Tick(m.clock.Now())
	m.notice = ""
	cmd := m.startFrames()
	return m, cmd
}

func (m Model) pause() (tea.Model, tea.Cmd) {
	m.engine.Pause()
	if !m.engine.NeedsTick() {
		m.stopFrames()
	}
	return m, nil
}

func (m Model) switchTo(p engine.Phase) (tea.Model, tea.Cmd) {
	m.engine.ResetTo(p)
	m.stopFrames()
	m.notice = ""
	return m, nil
}

// adjustLength changes the current phase's configured length by delta minutes
// and saves it. A stopped timer shows the new length straight away.
func (m Model) adjustLength(delta int) (tea.Model, tea.Cmd) {
	phase := m.engine.Phase()
	updated := m.config.WithMinutes(phase, m.config.MinutesFor(phase)+delta)
	if updated.MinutesFor(phase) == m.config.MinutesFor(phase) {
		return m, nil
	}

	if err := m.storage.SaveConfig(updated); err != nil {
		logrus.WithError(err).Error("failed to save phase length")
		m.notice = fmt.Sprintf("Could not save settings: %v", err)
		return m, nil
	}
	m.config = updated
	m.engine.SetLengths(updated.PhaseLengths())
	m.notice = fmt.Sprintf("%s length set to %d min", phase.Label(), updated.MinutesFor(phase))
	return m, nil
}

func (m Model) ShouldQuit() bool {
	return m.quit
}

func (m Model) ShouldOpenSettings() bool {
	return m.openSettings
}

func (m Model) View() string {
	switch m.view {
	case helpView:
		return m.help.View()
	case statsView:
		return m.stats.View()
	}

	if m.width == 0 {
		return "Loading..."
	}

	containerStyle := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Padding(2)

	return containerStyle.Render(lipgloss.JoinVertical(
		lipgloss.Center,
		m.renderTimer(),
		m.renderToday(),
		m.renderBackground(),
		m.renderNotice(),
		m.renderHelp(),
	))
}

var phaseColors = map[engine.Phase]string{
	engine.PhaseFocus:      "#7D56F4",
	engine.PhaseShortBreak: "#4CAF50",
	engine.PhaseLongBreak:  "#2196F3",
}

func (m Model) renderTimer() string {
	snap := m.engine.Snapshot()

	labelStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(phaseColors[snap.Phase])).
		MarginBottom(1)

	timerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color(phaseColors[snap.Phase])).
		Padding(1, 4).
		MarginBottom(2)

	statusStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888")).
		MarginTop(1).
		MarginBottom(1)

	var status string
	switch {
	case snap.Running && snap.Phase == engine.PhaseFocus:
		status = "🎯 Stay focused!"
	case snap.Running:
		status = "☕ Take a breather"
	case snap.Remaining < snap.Length:
		status = "⏸️  Paused - press space to resume"
	default:
		status = "Press space to start"
	}

	cycles := fmt.Sprintf("Cycles: %d • Total: %s", snap.Cycles, engine.FormatUsage(snap.Usage))

	return lipgloss.JoinVertical(
		lipgloss.Center,
		labelStyle.Render(snap.Phase.Label()),
		timerStyle.Render(bigClock(m.clockText())),
		m.progress.ViewAs(snap.Progress),
		statusStyle.Render(status),
		statusStyle.Render(cycles),
	)
}

// clockText is the displayed countdown, rounded to the nearest second.
func (m Model) clockText() string {
	return engine.FormatClock(float64(m.engine.RemainingRounded()))
}

var glyphs = map[rune][]string{
	'0': {"███", "█ █", "█ █", "█ █", "███"},
	'1': {" █ ", "██ ", " █ ", " █ ", "███"},
	'2': {"███", "  █", "███", "█  ", "███"},
	'3': {"███", "  █", "███", "  █", "███"},
	'4': {"█ █", "█ █", "███", "  █", "  █"},
	'5': {"███", "█  ", "███", "  █", "███"},
	'6': {"███", "█  ", "███", "█ █", "███"},
	'7': {"███", "  █", "  █", "  █", "  █"},
	'8': {"███", "█ █", "███", "█ █", "███"},
	'9': {"███", "█ █", "███", "  █", "███"},
	':': {" ", "█", " ", "█", " "},
}

// bigClock renders a formatted clock in five-row block digits.
func bigClock(s string) string {
	lines := make([]string, 5)
	for row := range lines {
		parts := make([]string, 0, len(s))
		for _, r := range s {
			if g, ok := glyphs[r]; ok {
				parts = append(parts, g[row])
			}
		}
		lines[row] = strings.Join(parts, " ")
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderToday() string {
	progressStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FDFF8C")).
		MarginTop(1)

	dateStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888"))

	completed := m.today.FocusCount
	goal := max(m.config.DailyFocusGoal, 1)

	const barWidth = 40
	filled := min(completed*barWidth/goal, barWidth)
	bar := strings.Repeat("■", filled) + strings.Repeat("□", barWidth-filled)

	return lipgloss.JoinVertical(
		lipgloss.Center,
		dateStyle.Render(m.clock.Now().Format("Monday, January 2, 2006")),
		progressStyle.Render(fmt.Sprintf("Today: %d/%d focus phases • %dm", completed, goal, m.today.FocusMinutes)),
		progressStyle.Render(bar),
	)
}

func (m Model) renderBackground() string {
	bg := m.config.Background
	if bg == nil || bg.ImageURL == "" {
		return ""
	}

	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666")).
		MarginTop(1)

	return style.Render(fmt.Sprintf("🖼  %s\n%s", bg.Prompt, bg.ImageURL))
}

func (m Model) renderNotice() string {
	if m.notice == "" {
		return ""
	}
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFD700")).
		MarginTop(1).
		Render(m.notice)
}

func (m Model) renderHelp() string {
	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666")).
		MarginTop(2)

	return helpStyle.Render("space: start/pause • r: reset • 1/2/3: phase • +/-: length • t: stats • g: settings • ?: help • q: quit")
}

type keyMap struct {
	Toggle     key.Binding
	Start      key.Binding
	Pause      key.Binding
	Reset      key.Binding
	Focus      key.Binding
	ShortBreak key.Binding
	LongBreak  key.Binding
	Longer     key.Binding
	Shorter    key.Binding
	Help       key.Binding
	Stats      key.Binding
	Settings   key.Binding
	Quit       key.Binding
	ForceQuit  key.Binding
}

var keys = keyMap{
	Toggle: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "start/pause"),
	),
	Start: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "start"),
	),
	Pause: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "pause"),
	),
	Reset: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reset"),
	),
	Focus: key.NewBinding(
		key.WithKeys("1"),
		key.WithHelp("1", "focus"),
	),
	ShortBreak: key.NewBinding(
		key.WithKeys("2"),
		key.WithHelp("2", "short break"),
	),
	LongBreak: key.NewBinding(
		key.WithKeys("3"),
		key.WithHelp("3", "long break"),
	),
	Longer: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "longer"),
	),
	Shorter: key.NewBinding(
		key.WithKeys("-", "_"),
		key.WithHelp("-", "shorter"),
	),
	Help: key.NewBinding(
		key.WithKeys("?", "f1"),
		key.WithHelp("?", "help"),
	),
	Stats: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "stats"),
	),
	Settings: key.NewBinding(
		key.WithKeys("g"),
		key.WithHelp("g", "settings"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q"),
		key.WithHelp("q", "quit"),
	),
	ForceQuit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
}
