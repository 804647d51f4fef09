package models

import (
	"time"

	"github.com/adibhanna/focusflow/internal/timer"
)

// PhaseRecord is one completed timer phase.
type PhaseRecord struct {
	ID        string      `json:"id"`
	Phase     timer.Phase `json:"phase"`
	StartTime time.Time   `json:"start_time"`
	EndTime   time.Time   `json:"end_time"`
	Seconds   int         `json:"seconds"` // configured length of the phase
	Date      string      `json:"date"`    // YYYY-MM-DD format
	Week      int         `json:"week"`    // ISO week number
	Month     string      `json:"month"`   // YYYY-MM format
	Year      int         `json:"year"`
}

// NewPhaseRecord stamps a completed phase with the calendar fields used for stats.
func NewPhaseRecord(id string, phase timer.Phase, seconds int, end time.Time) PhaseRecord {
	year, week := end.ISOWeek()
	return PhaseRecord{
		ID:        id,
		Phase:     phase,
		StartTime: end.Add(-time.Duration(seconds) * time.Second),
		EndTime:   end,
		Seconds:   seconds,
		Date:      end.Format("2006-01-02"),
		Week:      week,
		Month:     end.Format("2006-01"),
		Year:      year,
	}
}

type Background struct {
	Prompt      string    `json:"prompt"`
	ImageURL    string    `json:"image_url"`
	GeneratedAt time.Time `json:"generated_at"`
}

type Config struct {
	FocusMinutes      int         `json:"focus_minutes"`
	ShortBreakMinutes int         `json:"short_break_minutes"`
	LongBreakMinutes  int         `json:"long_break_minutes"`
	DailyFocusGoal    int         `json:"daily_focus_goal"` // focus phases per day
	Background        *Background `json:"background,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		FocusMinutes:      50,
		ShortBreakMinutes: 5,
		LongBreakMinutes:  15,
		DailyFocusGoal:    8,
	}
}

func (c Config) PhaseLengths() timer.PhaseLengths {
	return timer.PhaseLengthsFromMinutes(c.FocusMinutes, c.ShortBreakMinutes, c.LongBreakMinutes)
}

// MinutesFor returns the configured minutes for a phase.
func (c Config) MinutesFor(p timer.Phase) int {
	switch p {
	case timer.PhaseShortBreak:
		return c.ShortBreakMinutes
	case timer.PhaseLongBreak:
		return c.LongBreakMinutes
	default:
		return c.FocusMinutes
	}
}

// MinuteRange is the accepted range of minutes for a phase.
func MinuteRange(p timer.Phase) (lo, hi int) {
	switch p {
	case timer.PhaseShortBreak:
		return 1, 60
	case timer.PhaseLongBreak:
		return 1, 120
	default:
		return 1, 180
	}
}

// WithMinutes returns a copy with the phase's minutes set, clamped to MinuteRange.
func (c Config) WithMinutes(p timer.Phase, minutes int) Config {
	lo, hi := MinuteRange(p)
	minutes = max(lo, min(hi, minutes))
	switch p {
	case timer.PhaseShortBreak:
		c.ShortBreakMinutes = minutes
	case timer.PhaseLongBreak:
		c.LongBreakMinutes = minutes
	default:
		c.FocusMinutes = minutes
	}
	return c
}

type DayStats struct {
	Date         string        `json:"date"`
	FocusCount   int           `json:"focus_count"`
	FocusMinutes int           `json:"focus_minutes"`
	BreakMinutes int           `json:"break_minutes"`
	Phases       []PhaseRecord `json:"phases"`
}

type WeekStats struct {
	Week         int        `json:"week"`
	Year         int        `json:"year"`
	FocusCount   int        `json:"focus_count"`
	FocusMinutes int        `json:"focus_minutes"`
	BreakMinutes int        `json:"break_minutes"`
	DailyStats   []DayStats `json:"daily_stats"`
}
