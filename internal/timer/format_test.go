package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatClock(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00"},
		{0.99, "00:00"},
		{59.999, "00:59"},
		{61, "01:01"},
		{1500, "25:00"},
		{3599, "59:59"},
		{3600, "60:00"},
		{6000, "100:00"},
		{-3, "00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatClock(tt.seconds))
		})
	}
}

func TestFormatUsage(t *testing.T) {
	assert.Equal(t, "0s", FormatUsage(0))
	assert.Equal(t, "45s", FormatUsage(45*time.Second))
	assert.Equal(t, "2m 3s", FormatUsage(2*time.Minute+3*time.Second))
	assert.Equal(t, "1h 0m 5s", FormatUsage(time.Hour+5*time.Second))
}

func TestPhaseLengths(t *testing.T) {
	l := DefaultPhaseLengths()
	assert.Equal(t, 3000.0, l.Of(PhaseFocus))
	assert.Equal(t, 300.0, l.Of(PhaseShortBreak))
	assert.Equal(t, 900.0, l.Of(PhaseLongBreak))

	l = l.With(PhaseShortBreak, 120)
	assert.Equal(t, 120.0, l.ShortBreak)
	assert.Equal(t, 3000.0, l.Focus)

	assert.True(t, PhaseLongBreak.Valid())
	assert.False(t, Phase("").Valid())
	assert.Equal(t, "Short Break", PhaseShortBreak.Label())
}

func TestManualClock(t *testing.T) {
	c := NewManualClock(t0)
	assert.Equal(t, t0, c.Now())
	assert.Equal(t, t0.Add(time.Second), c.Advance(time.Second))
	assert.Equal(t, t0.Add(time.Second), c.Now())
}
