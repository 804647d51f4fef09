package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adibhanna/focusflow/internal/models"
	"github.com/adibhanna/focusflow/internal/timer"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewAt(t.TempDir())
	require.NoError(t, err)
	return s
}

// Monday of ISO week 2, 2026.
var monday = time.Date(2026, 1, 5, 10, 0, 0, 0, time.Local)

func TestConfig_DefaultsWrittenOnFirstUse(t *testing.T) {
	s := newTestStorage(t)
	assert.True(t, s.IsFirstTime())

	cfg, err := s.GetConfig()
	require.NoError(t, err)
	assert.Equal(t, models.DefaultConfig(), cfg)
	assert.False(t, s.IsFirstTime())
	assert.Equal(t, 3000.0, cfg.PhaseLengths().Focus)
}

func TestConfig_RoundTripAndBackground(t *testing.T) {
	s := newTestStorage(t)

	cfg := models.DefaultConfig()
	cfg.FocusMinutes = 25
	require.NoError(t, s.SaveConfig(cfg))

	bg := &models.Background{Prompt: "misty forest", ImageURL: "https://img.example/1.webp", GeneratedAt: monday}
	require.NoError(t, s.SetBackground(bg))

	got, err := s.GetConfig()
	require.NoError(t, err)
	assert.Equal(t, 25, got.FocusMinutes)
	require.NotNil(t, got.Background)
	assert.Equal(t, "misty forest", got.Background.Prompt)
	assert.True(t, monday.Equal(got.Background.GeneratedAt))

	require.NoError(t, s.SetBackground(nil))
	got, err = s.GetConfig()
	require.NoError(t, err)
	assert.Nil(t, got.Background)
}

func TestConfig_CorruptFile(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.DataDir(), "config.json"), []byte("{"), 0644))

	_, err := s.GetConfig()
	assert.Error(t, err)
}

func TestSavePhase_UpsertsByID(t *testing.T) {
	s := newTestStorage(t)

	r := models.NewPhaseRecord("a", timer.PhaseFocus, 1500, monday)
	require.NoError(t, s.SavePhase(r))
	r.Seconds = 1200
	require.NoError(t, s.SavePhase(r))
	require.NoError(t, s.SavePhase(models.NewPhaseRecord("b", timer.PhaseShortBreak, 300, monday)))

	all, err := s.GetAllPhases()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 1200, all[0].Seconds)
	assert.Equal(t, "2026-01-05", all[0].Date)
	assert.Equal(t, 2, all[0].Week)
	assert.True(t, monday.Add(-1500*time.Second).Equal(all[0].StartTime))
}

func TestDayAndWeekStats(t *testing.T) {
	s := newTestStorage(t)
	tuesday := monday.AddDate(0, 0, 1)
	nextWeek := monday.AddDate(0, 0, 7)

	records := []models.PhaseRecord{
		models.NewPhaseRecord("1", timer.PhaseFocus, 1500, monday),
		models.NewPhaseRecord("2", timer.PhaseShortBreak, 300, monday),
		models.NewPhaseRecord("3", timer.PhaseFocus, 1500, tuesday),
		models.NewPhaseRecord("4", timer.PhaseLongBreak, 900, tuesday),
		models.NewPhaseRecord("5", timer.PhaseFocus, 1500, nextWeek),
	}
	for _, r := range records {
		require.NoError(t, s.SavePhase(r))
	}

	day, err := s.GetDayStats("2026-01-05")
	require.NoError(t, err)
	assert.Equal(t, 1, day.FocusCount)
	assert.Equal(t, 25, day.FocusMinutes)
	assert.Equal(t, 5, day.BreakMinutes)
	assert.Len(t, day.Phases, 2)

	week, err := s.GetWeekStats(2026, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, week.FocusCount)
	assert.Equal(t, 50, week.FocusMinutes)
	assert.Equal(t, 20, week.BreakMinutes)
	require.Len(t, week.DailyStats, 2)
	assert.Equal(t, "2026-01-05", week.DailyStats[0].Date)
	assert.Equal(t, "2026-01-06", week.DailyStats[1].Date)
}

func TestResetAllData(t *testing.T) {
	s := newTestStorage(t)
	_, err := s.GetConfig()
	require.NoError(t, err)
	require.NoError(t, s.SavePhase(models.NewPhaseRecord("1", timer.PhaseFocus, 60, monday)))

	require.NoError(t, s.ResetAllData())
	assert.True(t, s.IsFirstTime())

	all, err := s.GetAllPhases()
	require.NoError(t, err)
	assert.Empty(t, all)

	// Removing twice is fine.
	require.NoError(t, s.ResetAllData())
}

func TestExportReport(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.SavePhase(models.NewPhaseRecord("1", timer.PhaseFocus, 1500, monday)))
	require.NoError(t, s.SavePhase(models.NewPhaseRecord("2", timer.PhaseShortBreak, 300, monday)))

	report, err := s.ExportReport(monday.Add(time.Hour))
	require.NoError(t, err)

	assert.Contains(t, report, "Focus Flow - Statistics Report")
	assert.Contains(t, report, "Completed Phases: 2")
	assert.Contains(t, report, "Total Focus Time: 25m 0s")
	assert.Contains(t, report, "CURRENT WEEK (Week 2, 2026)")
	assert.Contains(t, report, "Monday: 1 focus (25m), 5m break")
	assert.Contains(t, report, "TODAY (Monday, January 5, 2026)")
	assert.Contains(t, report, "Short Break")
}

func TestSaveReport(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.SavePhase(models.NewPhaseRecord("a", timer.PhaseFocus, 1500, monday)))

	out := t.TempDir()
	path, err := s.SaveReport(monday, out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "focusflow-stats-2026-01-05-100000.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Focus Phases: 1")

	_, err = s.SaveReport(monday, filepath.Join(out, "missing"))
	assert.ErrorContains(t, err, "failed to save report")
}
