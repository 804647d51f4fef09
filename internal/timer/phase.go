package timer

// Phase identifies which part of the Pomodoro cycle the timer is in.
type Phase string

const (
	PhaseFocus      Phase = "focus"
	PhaseShortBreak Phase = "shortBreak"
	PhaseLongBreak  Phase = "longBreak"
)

// Phases lists every phase in cycle order.
var Phases = []Phase{PhaseFocus, PhaseShortBreak, PhaseLongBreak}

func (p Phase) Valid() bool {
	switch p {
	case PhaseFocus, PhaseShortBreak, PhaseLongBreak:
		return true
	}
	return false
}

func (p Phase) Label() string {
	switch p {
	case PhaseFocus:
		return "Focus"
	case PhaseShortBreak:
		return "Short Break"
	case PhaseLongBreak:
		return "Long Break"
	default:
		return "Unknown"
	}
}

// PhaseLengths holds the configured duration of each phase in seconds.
type PhaseLengths struct {
	Focus      float64
	ShortBreak float64
	LongBreak  float64
}

func DefaultPhaseLengths() PhaseLengths {
	return PhaseLengthsFromMinutes(50, 5, 15)
}

func PhaseLengthsFromMinutes(focus, short, long int) PhaseLengths {
	return PhaseLengths{
		Focus:      float64(focus * 60),
		ShortBreak: float64(short * 60),
		LongBreak:  float64(long * 60),
	}
}

// Of returns the length of p. Unknown phases fall back to the focus length.
func (l PhaseLengths) Of(p Phase) float64 {
	switch p {
	case PhaseShortBreak:
		return l.ShortBreak
	case PhaseLongBreak:
		return l.LongBreak
	default:
		return l.Focus
	}
}

// With returns a copy of l with the length of p replaced.
func (l PhaseLengths) With(p Phase, seconds float64) PhaseLengths {
	switch p {
	case PhaseShortBreak:
		l.ShortBreak = seconds
	case PhaseLongBreak:
		l.LongBreak = seconds
	default:
		l.Focus = seconds
	}
	return l
}
