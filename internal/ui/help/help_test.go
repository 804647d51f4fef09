package help

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestModel_BackKeys(t *testing.T) {
	for _, msg := range []tea.KeyMsg{
		{Type: tea.KeyEsc},
		{Type: tea.KeyRunes, Runes: []rune{'b'}},
		{Type: tea.KeyRunes, Runes: []rune{'?'}},
	} {
		m := New()
		m, cmd := m.Update(msg)
		assert.True(t, m.ShouldQuit(), msg.String())
		assert.Nil(t, cmd)

		m.Reset()
		assert.False(t, m.ShouldQuit())
	}
}

func TestModel_ViewListsTimerKeys(t *testing.T) {
	m, _ := New().Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	view := m.View()
	assert.Contains(t, view, "Switch to focus / short break / long break")
	assert.Contains(t, view, "every fourth completed focus phase")
}
